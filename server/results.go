package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"persona_studio/orchestrator"
	"persona_studio/persona"
	"persona_studio/publisher"
)

const heartbeatInterval = 15 * time.Second

type generateRequest struct {
	Draft      string   `json:"draft"`
	PersonaIDs []string `json:"personaIds"`
}

func (s *Server) handleGenerate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	batch, err := s.orch.RunBatch(c.Request.Context(), req.Draft, req.PersonaIDs)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	s.log.Info("batch dispatched", "timestamp", batch.Timestamp, "personas", len(batch.Initial.Results))
	c.JSON(http.StatusAccepted, batch.Initial)
}

func (s *Server) handleResults(c *gin.Context) {
	c.JSON(http.StatusOK, s.orch.Snapshot())
}

// handleResultEvents streams a snapshot event on every change, starting with
// the current state.
func (s *Server) handleResultEvents(c *gin.Context) {
	updates, unsubscribe := s.orch.Subscribe()
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("snapshot", s.orch.Snapshot())
	c.Writer.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()
	ctx := c.Request.Context()

	c.Stream(func(w io.Writer) bool {
		select {
		case snap, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent("snapshot", snap)
			return true
		case <-heartbeat.C:
			_, err := io.WriteString(w, ": ping\n\n")
			return err == nil
		case <-ctx.Done():
			return false
		}
	})
}

func (s *Server) handleResultHTML(c *gin.Context) {
	res, ok := s.orch.Result(c.Param("id"))
	if !ok {
		respondError(c, http.StatusNotFound, "result_not_found", errors.New("result not found"))
		return
	}
	if res.Status != orchestrator.StatusSuccess {
		respondError(c, http.StatusConflict, "result_not_ready", errors.New("result is "+string(res.Status)))
		return
	}
	html, err := publisher.RenderHTML(res.Content)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "render_failed", err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

func (s *Server) handleResultPublish(c *gin.Context) {
	if s.publisher == nil {
		respondError(c, http.StatusNotImplemented, "publisher_disabled", errors.New("wechat publishing is not configured"))
		return
	}
	res, ok := s.orch.Result(c.Param("id"))
	if !ok {
		respondError(c, http.StatusNotFound, "result_not_found", errors.New("result not found"))
		return
	}
	if res.Status != orchestrator.StatusSuccess {
		respondError(c, http.StatusConflict, "result_not_ready", errors.New("result is "+string(res.Status)))
		return
	}
	p, ok := s.personas.Get(res.PersonaID)
	if !ok {
		respondDomainError(c, persona.ErrNotFound)
		return
	}
	if p.Platform != persona.WeChat {
		respondError(c, http.StatusBadRequest, "unsupported_platform", errors.New("only 公众号 results can be published"))
		return
	}

	mediaID, err := s.publisher.PublishDraft(c.Request.Context(), publisher.Article{
		Markdown: res.Content,
		Digest:   res.Analysis,
	})
	if err != nil {
		s.log.Error("publish failed", "result_id", res.ID, "error", err)
		respondError(c, http.StatusBadGateway, "publish_failed", err)
		return
	}
	s.log.Info("result published", "result_id", res.ID, "media_id", mediaID)
	c.JSON(http.StatusOK, gin.H{"mediaId": mediaID})
}
