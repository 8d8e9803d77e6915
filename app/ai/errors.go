package ai

import (
	"fmt"
	"time"
)

type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("AI request timed out after %s", e.Timeout)
}

type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("AI generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
