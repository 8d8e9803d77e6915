package cfg

import (
	"testing"
	"time"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TZ", "UTC")

	cfg, err := load([]string{})
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.DBPath != "./data/harvest.db" {
		t.Errorf("Expected DB path './data/harvest.db', got '%s'", cfg.DBPath)
	}
	if cfg.SchedulerInterval != 3600 {
		t.Errorf("Expected scheduler interval 3600, got %d", cfg.SchedulerInterval)
	}
	if cfg.AITimeout != 90*time.Second {
		t.Errorf("Expected AI timeout 90s, got %v", cfg.AITimeout)
	}
	if cfg.UserAgent != DefaultUserAgent {
		t.Errorf("Expected default user agent, got '%s'", cfg.UserAgent)
	}
	if cfg.GeminiModel != "gemini-1.5-flash" {
		t.Errorf("Expected model 'gemini-1.5-flash', got '%s'", cfg.GeminiModel)
	}

	if cfg.AIProvider != "gemini" || cfg.GrokModel != "grok-2" {
		t.Errorf("Expected gemini provider and grok-2 model, got '%s', '%s'", cfg.AIProvider, cfg.GrokModel)
	}
	if cfg.ChannelRetries != 0 {
		t.Errorf("Expected no channel retries, got %d", cfg.ChannelRetries)
	}

	if Get() != cfg {
		t.Error("Expected Get to return the loaded configuration")
	}
}

func TestLoadFlagsOverride(t *testing.T) {
	cfg, err := load([]string{"--port", "9090", "--ai-timeout", "30", "--debug", "--api-key", "secret"})
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Expected port '9090', got '%s'", cfg.Port)
	}
	if cfg.AITimeout != 30*time.Second {
		t.Errorf("Expected AI timeout 30s, got %v", cfg.AITimeout)
	}
	if !cfg.Debug {
		t.Error("Expected debug to be enabled")
	}
	if cfg.APIAccessKey != "secret" {
		t.Errorf("Expected API key 'secret', got '%s'", cfg.APIAccessKey)
	}
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("WORKER_COUNT", "4")
	t.Setenv("CHANNELS_DIR", "/etc/harvest/channels")

	cfg, err := load([]string{})
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.WorkerCount != 4 {
		t.Errorf("Expected worker count 4, got %d", cfg.WorkerCount)
	}
	if cfg.ChannelsDir != "/etc/harvest/channels" {
		t.Errorf("Expected channels dir '/etc/harvest/channels', got '%s'", cfg.ChannelsDir)
	}
}

func TestLoadRejectsInvalidWorkerCount(t *testing.T) {
	if _, err := load([]string{"--worker-count", "0"}); err == nil {
		t.Error("Expected error for zero worker count")
	}
}

func TestLoadAIProvider(t *testing.T) {
	cfg, err := load([]string{"--ai-provider", "grok", "--grok-api-key", "k", "--channel-retries", "2"})
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.AIProvider != "grok" || cfg.GrokAPIKey != "k" {
		t.Errorf("Expected grok provider with key, got '%s' '%s'", cfg.AIProvider, cfg.GrokAPIKey)
	}
	if cfg.ChannelRetries != 2 {
		t.Errorf("Expected 2 channel retries, got %d", cfg.ChannelRetries)
	}

	if _, err := load([]string{"--ai-provider", "other"}); err == nil {
		t.Error("Expected error for unknown provider")
	}
}
