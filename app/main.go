package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/news-harvest/app/ai"
	"github.com/lysyi3m/news-harvest/app/api"
	"github.com/lysyi3m/news-harvest/app/cfg"
	"github.com/lysyi3m/news-harvest/app/config"
	"github.com/lysyi3m/news-harvest/app/database"
	"github.com/lysyi3m/news-harvest/app/feed"
	"github.com/lysyi3m/news-harvest/app/fetcher"
	"github.com/lysyi3m/news-harvest/app/ingest"
	"github.com/lysyi3m/news-harvest/app/parser"
	"github.com/lysyi3m/news-harvest/app/sandbox"
	"github.com/lysyi3m/news-harvest/app/scraper"
	"github.com/lysyi3m/news-harvest/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	slog.Info("Starting News Harvest", "version", appCfg.Version, "timezone", time.Local.String())

	db, err := database.Open(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	channelRepo := database.NewChannelRepository(db)
	rawItemRepo := database.NewRawItemRepository(db)
	parserRepo := database.NewParserRepository(db)
	aiContentRepo := database.NewAIContentRepository(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	generator, closeGenerator, err := ai.NewGenerator(ctx, ai.Config{
		Provider:     appCfg.AIProvider,
		GeminiAPIKey: appCfg.GeminiAPIKey,
		GeminiModel:  appCfg.GeminiModel,
		GrokAPIKey:   appCfg.GrokAPIKey,
		GrokModel:    appCfg.GrokModel,
		GrokBaseURL:  appCfg.GrokBaseURL,
		Timeout:      appCfg.AITimeout,
	})
	if err != nil {
		slog.Error("Failed to create AI backend", "provider", appCfg.AIProvider, "error", err)
		os.Exit(1)
	}
	defer closeGenerator()

	pageFetcher := fetcher.New(&http.Client{}, appCfg.UserAgent)
	engine := parser.NewEngine(pageFetcher, sandbox.New(), channelRepo, parserRepo, generator)
	ingestor := ingest.New(channelRepo, rawItemRepo, pageFetcher, engine)
	orchestrator := tasks.NewOrchestrator(channelRepo, feed.NewParser(pageFetcher), scraper.New(pageFetcher), ingestor)

	configCache := config.NewChannelConfigCache(appCfg.ChannelsDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load channel configurations", "dir", appCfg.ChannelsDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Channel configurations loaded", "dir", appCfg.ChannelsDir, "count", configCache.GetConfigCount())

	scheduler := tasks.NewScheduler(orchestrator, configCache, channelRepo, parserRepo,
		time.Duration(appCfg.SchedulerInterval)*time.Second, appCfg.WorkerCount)
	scheduler.SetChannelRetries(appCfg.ChannelRetries)
	scheduler.Start()
	defer scheduler.Stop()

	go func() {
		if err := configCache.Watch(ctx, scheduler.SyncChannel); err != nil {
			slog.Warn("Channel configuration watcher stopped", "error", err)
		}
	}()

	handler := api.NewHandler(orchestrator, engine, channelRepo, aiContentRepo, scheduler)

	// WriteTimeout covers a full synchronous sweep.
	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(handler, appCfg.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 11 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port, "api_enabled", appCfg.APIAccessKey != "")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	slog.Info("News Harvest shutdown complete")
}
