package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"persona_studio/generator"
	"persona_studio/persona"
)

// Status of a single generated record. loading is the only non-terminal state.
type Status string

const (
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

var (
	ErrEmptyDraft      = errors.New("draft is empty")
	ErrNoPersonas      = errors.New("no personas selected")
	ErrPersonaNotFound = errors.New("persona not found")
)

// GeneratedContent is one persona's output for one batch.
type GeneratedContent struct {
	ID            string   `json:"id"`
	PersonaID     string   `json:"personaId"`
	OriginalDraft string   `json:"originalDraft"`
	Content       string   `json:"content"`
	Analysis      string   `json:"analysis,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	Status        Status   `json:"status"`
	Timestamp     int64    `json:"timestamp"`
	Error         string   `json:"error,omitempty"`
}

// ResultID derives the record id from its persona and batch.
func ResultID(personaID string, timestamp int64) string {
	return fmt.Sprintf("%s-%d", personaID, timestamp)
}

// Generator produces content for one persona.
type Generator interface {
	Generate(ctx context.Context, draft string, p persona.Persona) (generator.Result, error)
}

// PersonaLookup resolves persona ids at dispatch time.
type PersonaLookup interface {
	Get(id string) (persona.Persona, bool)
}

// update is the message a finished generation sends back to the single
// consumer that owns the result set.
type update struct {
	personaID string
	timestamp int64
	result    generator.Result
	err       error
}
