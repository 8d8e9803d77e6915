package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/news-harvest/app/cfg"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/health"},
	}))

	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, apiAccessKey)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	r.GET("/health", handler.GetHealth)

	if apiAccessKey != "" {
		api := r.Group("/api")
		api.Use(authMiddleware(apiAccessKey))
		{
			api.POST("/channels/process", handler.ProcessFeeds)
			api.POST("/channels/:id/process", handler.ProcessFeed)
			api.POST("/channels/:id/enqueue", handler.EnqueueFeed)

			api.GET("/parsers/parse", handler.ParseContent)
			api.POST("/parsers/refine", handler.RefineParser)
			api.POST("/parsers/test", handler.TestParser)
			api.GET("/parsers/analyze-url", handler.AnalyzeURL)
			api.GET("/parsers/analyze", handler.AnalyzeParsers)
			api.POST("/parsers", handler.CreateParser)
			api.PUT("/parsers/:id", handler.UpdateParser)

			api.GET("/ai-content", handler.ListAIContent)
			api.POST("/ai-content/:id", handler.UpdateAIContent)
		}
		slog.Info("API endpoints enabled with authentication")
	} else {
		slog.Warn("API endpoints disabled (API_ACCESS_KEY not set)")
	}

	r.GET("/", func(c *gin.Context) {
		endpoints := map[string]string{
			"health": "/health",
		}

		if apiAccessKey != "" {
			endpoints["process"] = "/api/channels/process?force=<bool> (POST)"
			endpoints["process_channel"] = "/api/channels/<id>/process (POST)"
			endpoints["enqueue_channel"] = "/api/channels/<id>/enqueue (POST)"
			endpoints["parse"] = "/api/parsers/parse?url=<url>&parserId=<id>"
			endpoints["refine"] = "/api/parsers/refine (POST)"
			endpoints["test"] = "/api/parsers/test (POST)"
			endpoints["analyze_url"] = "/api/parsers/analyze-url?url=<url>"
			endpoints["analyze"] = "/api/parsers/analyze"
			endpoints["parsers"] = "/api/parsers (POST), /api/parsers/<id> (PUT)"
			endpoints["ai_content"] = "/api/ai-content?postRef=null|<id>, /api/ai-content/<id> (POST)"
		}

		c.JSON(http.StatusOK, gin.H{
			"service":     "News Harvest",
			"version":     cfg.GetVersion(),
			"description": "News ingestion from RSS/Atom feeds and scraped listing pages with regex article parsers",
			"endpoints":   endpoints,
			"api_status": map[string]interface{}{
				"enabled":       apiAccessKey != "",
				"auth_required": apiAccessKey != "",
				"header":        "X-API-Key",
			},
		})
	})

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

// authMiddleware accepts the key from X-API-Key or an Authorization bearer token.
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
