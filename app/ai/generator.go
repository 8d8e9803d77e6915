package ai

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrEmptyResponse = errors.New("empty response from model")
	ErrDisabled      = errors.New("AI backend is not configured")
)

// Generator produces a text completion for a prompt.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

type timeoutGenerator struct {
	next    Generator
	timeout time.Duration
}

// WithTimeout bounds every call to g by d and normalises failures into
// TimeoutError and GenerationError.
func WithTimeout(g Generator, d time.Duration) Generator {
	return &timeoutGenerator{next: g, timeout: d}
}

func (t *timeoutGenerator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)

	go func() {
		text, err := t.next.GenerateContent(ctx, prompt)
		done <- result{text, err}
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", &TimeoutError{Timeout: t.timeout}
		}
		return "", &GenerationError{Err: ctx.Err()}
	case r := <-done:
		var genErr *GenerationError
		var timeoutErr *TimeoutError
		switch {
		case errors.As(r.err, &genErr), errors.As(r.err, &timeoutErr):
			return "", r.err
		case errors.Is(r.err, context.DeadlineExceeded):
			return "", &TimeoutError{Timeout: t.timeout}
		case r.err != nil:
			return "", &GenerationError{Err: r.err}
		case strings.TrimSpace(r.text) == "":
			return "", &GenerationError{Err: ErrEmptyResponse}
		}
		return r.text, nil
	}
}

// Disabled is used when no API key is configured.
type Disabled struct{}

func (Disabled) GenerateContent(context.Context, string) (string, error) {
	return "", &GenerationError{Err: ErrDisabled}
}
