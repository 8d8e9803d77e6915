package parser

import (
	"fmt"
	"time"
)

type ParseTimeoutError struct {
	ParserID string
	Timeout  time.Duration
}

func (e *ParseTimeoutError) Error() string {
	return fmt.Sprintf("parser %s timed out after %s", e.ParserID, e.Timeout)
}

type InvalidPatternError struct {
	Field   string
	Pattern string
	Err     error
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid regular expression for field %q: %v", e.Field, e.Err)
}

func (e *InvalidPatternError) Unwrap() error {
	return e.Err
}
