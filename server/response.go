package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"persona_studio/orchestrator"
	"persona_studio/persona"
)

type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

func respondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, errorEnvelope{Error: apiError{Message: msg, Code: code}})
}

// respondDomainError maps core errors onto HTTP statuses.
func respondDomainError(c *gin.Context, err error) {
	var verr *persona.ValidationError
	switch {
	case errors.As(err, &verr):
		respondError(c, http.StatusBadRequest, "invalid_"+verr.Field, err)
	case errors.Is(err, persona.ErrNotFound):
		respondError(c, http.StatusNotFound, "persona_not_found", err)
	case errors.Is(err, orchestrator.ErrEmptyDraft):
		respondError(c, http.StatusBadRequest, "empty_draft", err)
	case errors.Is(err, orchestrator.ErrNoPersonas):
		respondError(c, http.StatusBadRequest, "no_personas", err)
	default:
		respondError(c, http.StatusInternalServerError, "internal", err)
	}
}
