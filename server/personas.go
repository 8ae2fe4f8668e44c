package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"persona_studio/persona"
)

func (s *Server) handlePlatforms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"platforms": persona.Platforms})
}

func (s *Server) handlePersonaList(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"personas": s.personas.List()})
}

func (s *Server) handlePersonaCreate(c *gin.Context) {
	var req persona.Fields
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	p, err := s.personas.Create(req)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	s.log.Info("persona created", "persona_id", p.ID, "platform", p.Platform)
	c.JSON(http.StatusCreated, p)
}

func (s *Server) handlePersonaUpdate(c *gin.Context) {
	var req persona.Fields
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	p, err := s.personas.Update(c.Param("id"), req)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// 删除是幂等的，重复删除同样返回 204
func (s *Server) handlePersonaDelete(c *gin.Context) {
	id := c.Param("id")
	if s.personas.Delete(id) {
		s.log.Info("persona deleted", "persona_id", id)
	}
	c.Status(http.StatusNoContent)
}
