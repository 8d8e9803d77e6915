package ai

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const (
	DefaultGrokModel   = "grok-2"
	DefaultGrokBaseURL = "https://api.x.ai/v1"

	grokTemperature = 0.1
	grokMaxTokens   = 8000
)

// Grok talks to an OpenAI-compatible chat completions endpoint.
type Grok struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
}

func NewGrok(httpClient *http.Client, apiKey, model, baseURL string) *Grok {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Grok{
		httpClient: httpClient,
		apiKey:     apiKey,
		model:      cmp.Or(model, DefaultGrokModel),
		baseURL:    strings.TrimRight(cmp.Or(baseURL, DefaultGrokBaseURL), "/"),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (g *Grok) GenerateContent(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       g.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: grokTemperature,
		MaxTokens:   grokMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call Grok: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("failed to generate content: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode Grok response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}

	text := parsed.Choices[0].Message.Content
	slog.Debug("Grok response received", "model", g.model, "chars", len(text))

	return text, nil
}
