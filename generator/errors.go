package generator

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse means the endpoint answered without a usable body.
var ErrEmptyResponse = errors.New("generator: model returned empty response")

// GenerationError wraps a failed call for one persona: transport failure,
// endpoint error or empty body.
type GenerationError struct {
	PersonaID string
	Err       error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate for persona %s: %v", e.PersonaID, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ParseError means the body was not valid JSON.
type ParseError struct {
	Raw string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("generator: response is not valid JSON: %s", snippet(e.Raw, 80))
}

func snippet(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "…"
}
