// Package sandbox runs untrusted regular expressions against untrusted input
// with hard size ceilings and a deadline.
package sandbox

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
)

const (
	MaxSubjectLength = 1_000_000
	MaxPatternLength = 1_000
	DefaultTimeout   = 2 * time.Second
)

type Sandbox struct {
	Timeout time.Duration
}

func New() *Sandbox {
	return &Sandbox{Timeout: DefaultTimeout}
}

// Run matches pattern against subject. Without the g flag the result holds the
// whole match followed by its capture groups; with g it holds every whole match.
// A nil result means no match, a rejected input, a compile failure or a timeout.
func (s *Sandbox) Run(ctx context.Context, subject, pattern, flags string) []string {
	if len(subject) > MaxSubjectLength {
		slog.Debug("Subject too large, skipping regex", "length", len(subject))
		return nil
	}
	if len(pattern) > MaxPatternLength {
		slog.Debug("Pattern too long, skipping regex", "length", len(pattern))
		return nil
	}

	re, err := Compile(pattern, flags)
	if err != nil {
		slog.Debug("Regex failed to compile", "pattern", pattern, "error", err)
		return nil
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	global := strings.Contains(flags, "g")
	result := make(chan []string, 1)

	go func() {
		if global {
			result <- re.FindAllString(subject, -1)
			return
		}
		result <- re.FindStringSubmatch(subject)
	}()

	select {
	case match := <-result:
		if len(match) == 0 {
			return nil
		}
		return match
	case <-runCtx.Done():
		slog.Debug("Regex execution timed out", "timeout", timeout)
		return nil
	}
}

// Compile translates JS-style flags into inline RE2 flags and compiles the pattern.
func Compile(pattern, flags string) (*regexp.Regexp, error) {
	var inline strings.Builder
	for _, f := range flags {
		switch f {
		case 'i', 's', 'm':
			if !strings.ContainsRune(inline.String(), f) {
				inline.WriteRune(f)
			}
		case 'g', 'u', 'y':
		default:
			return nil, fmt.Errorf("unsupported regex flag %q", f)
		}
	}

	if inline.Len() > 0 {
		pattern = "(?" + inline.String() + ")" + pattern
	}

	return regexp.Compile(pattern)
}

// Group returns capture group 1 when it is non-empty, else the whole match.
func Group(match []string) string {
	if len(match) == 0 {
		return ""
	}
	if len(match) > 1 && match[1] != "" {
		return match[1]
	}
	return match[0]
}
