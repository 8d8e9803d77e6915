package ai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const (
	ProviderGemini = "gemini"
	ProviderGrok   = "grok"
)

type Config struct {
	Provider     string
	GeminiAPIKey string
	GeminiModel  string
	GrokAPIKey   string
	GrokModel    string
	GrokBaseURL  string
	Timeout      time.Duration
}

// NewGenerator builds the configured backend wrapped with the timeout. A
// provider without an API key yields Disabled. The returned close function is
// never nil.
func NewGenerator(ctx context.Context, c Config) (Generator, func(), error) {
	noop := func() {}

	switch c.Provider {
	case ProviderGemini, "":
		if c.GeminiAPIKey == "" {
			slog.Warn("AI refinement disabled (GEMINI_API_KEY not set)")
			return Disabled{}, noop, nil
		}
		gemini, err := NewGemini(ctx, c.GeminiAPIKey, c.GeminiModel)
		if err != nil {
			return nil, noop, err
		}
		slog.Info("AI refinement enabled", "provider", ProviderGemini, "model", gemini.model, "timeout", c.Timeout)
		return WithTimeout(gemini, c.Timeout), gemini.Close, nil

	case ProviderGrok:
		if c.GrokAPIKey == "" {
			slog.Warn("AI refinement disabled (GROK_API_KEY not set)")
			return Disabled{}, noop, nil
		}
		grok := NewGrok(&http.Client{}, c.GrokAPIKey, c.GrokModel, c.GrokBaseURL)
		slog.Info("AI refinement enabled", "provider", ProviderGrok, "model", grok.model, "timeout", c.Timeout)
		return WithTimeout(grok, c.Timeout), noop, nil
	}

	return nil, noop, fmt.Errorf("unsupported AI provider %q", c.Provider)
}
