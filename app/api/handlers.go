package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/news-harvest/app/ai"
	"github.com/lysyi3m/news-harvest/app/database"
	"github.com/lysyi3m/news-harvest/app/fetcher"
	"github.com/lysyi3m/news-harvest/app/parser"
	"github.com/lysyi3m/news-harvest/app/tasks"
)

const defaultListLimit = 100

func NewHandler(processor tasks.FeedProcessor, contentParser ContentParser,
	channelRepo database.ChannelRepository, aiContent database.AIContentRepository,
	scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		processor:   processor,
		parser:      contentParser,
		channelRepo: channelRepo,
		aiContent:   aiContent,
		scheduler:   scheduler,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if channels, err := h.channelRepo.FindAll(c.Request.Context(), nil, 1000); err == nil {
		health["channels"] = len(channels)
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) ProcessFeeds(c *gin.Context) {
	force, _ := strconv.ParseBool(c.Query("force"))

	summary := h.processor.ProcessFeeds(c.Request.Context(), force)
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) ProcessFeed(c *gin.Context) {
	id := c.Param("id")

	summary, err := h.processor.ProcessFeed(c.Request.Context(), id)
	if err != nil {
		respondError(c, "process_feed", err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *Handler) EnqueueFeed(c *gin.Context) {
	id := c.Param("id")

	if _, err := h.channelRepo.FindOne(c.Request.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			err = &tasks.ChannelNotFoundError{ChannelID: id}
		}
		respondError(c, "enqueue_feed", err)
		return
	}

	task := tasks.NewProcessChannelTask(id, h.processor)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing channel task", "channel", id, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to enqueue channel task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Channel processing enqueued",
		"task": gin.H{
			"id":   task.ID,
			"type": task.Type,
		},
	})
}

func (h *Handler) ParseContent(c *gin.Context) {
	pageURL := c.Query("url")
	if pageURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing url parameter"})
		return
	}

	resp, err := h.parser.ParseContent(c.Request.Context(), c.Query("parserId"), pageURL)
	if err != nil {
		respondError(c, "parse_content", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) RefineParser(c *gin.Context) {
	var req parserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	refined, err := h.parser.RefineWithAI(c.Request.Context(), req.URL, &req.Parser)
	if err != nil {
		respondError(c, "refine_parser", err)
		return
	}

	c.JSON(http.StatusOK, refined)
}

func (h *Handler) TestParser(c *gin.Context) {
	var req parserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	result, err := h.parser.TestCustomParser(c.Request.Context(), req.URL, &req.Parser)
	if err != nil {
		respondError(c, "test_parser", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) AnalyzeURL(c *gin.Context) {
	pageURL := c.Query("url")
	if pageURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing url parameter"})
		return
	}

	analysis, err := h.parser.AnalyzeURL(c.Request.Context(), pageURL)
	if err != nil {
		respondError(c, "analyze_url", err)
		return
	}

	c.JSON(http.StatusOK, analysis)
}

func (h *Handler) AnalyzeParsers(c *gin.Context) {
	issues, err := h.parser.AnalyzeAllParsers(c.Request.Context())
	if err != nil {
		respondError(c, "analyze_parsers", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"issues": issues,
		"total":  len(issues),
	})
}

func (h *Handler) CreateParser(c *gin.Context) {
	var def database.Parser
	if err := c.ShouldBindJSON(&def); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	created, err := h.parser.CreateParser(c.Request.Context(), &def)
	if err != nil {
		respondError(c, "create_parser", err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *Handler) UpdateParser(c *gin.Context) {
	var def database.Parser
	if err := c.ShouldBindJSON(&def); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	updated, err := h.parser.UpdateParser(c.Request.Context(), c.Param("id"), &def)
	if err != nil {
		respondError(c, "update_parser", err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// ListAIContent lists generated content. postRef=null selects entries that
// have not been published yet.
func (h *Handler) ListAIContent(c *gin.Context) {
	var filter database.Filter
	switch postRef := c.Query("postRef"); postRef {
	case "":
	case "null":
		filter = append(filter, database.IsNull("post_ref"))
	default:
		filter = append(filter, database.Eq("post_ref", postRef))
	}

	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	items, err := h.aiContent.FindAll(c.Request.Context(), filter, limit)
	if err != nil {
		respondError(c, "list_ai_content", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": len(items),
	})
}

func (h *Handler) UpdateAIContent(c *gin.Context) {
	id := c.Param("id")

	found, err := h.aiContent.FindAll(c.Request.Context(), database.Filter{database.Eq("id", id)}, 1)
	if err != nil {
		respondError(c, "update_ai_content", err)
		return
	}
	if len(found) == 0 {
		respondError(c, "update_ai_content", database.ErrNotFound)
		return
	}

	content := found[0]
	if err := c.ShouldBindJSON(&content); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	content.ID = id

	if err := h.aiContent.Update(c.Request.Context(), &content); err != nil {
		respondError(c, "update_ai_content", err)
		return
	}

	c.JSON(http.StatusOK, content)
}

// respondError maps domain errors onto HTTP statuses.
func respondError(c *gin.Context, operation string, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "operation", operation, "error", err)
	} else {
		slog.Debug("Request rejected", "operation", operation, "status", status, "error", err)
	}

	c.JSON(status, gin.H{"error": err.Error()})
}

func errorStatus(err error) int {
	var invalidPattern *parser.InvalidPatternError
	var channelNotFound *tasks.ChannelNotFoundError
	var aiTimeout *ai.TimeoutError
	var aiGeneration *ai.GenerationError
	var fetchErr *fetcher.FetchError

	switch {
	case errors.As(err, &invalidPattern):
		return http.StatusBadRequest
	case errors.As(err, &channelNotFound), errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &aiTimeout), errors.As(err, &aiGeneration), errors.Is(err, parser.ErrNoJSON):
		return http.StatusBadGateway
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
