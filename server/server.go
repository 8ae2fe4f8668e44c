package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"persona_studio/logger"
	"persona_studio/orchestrator"
	"persona_studio/persona"
	"persona_studio/publisher"
)

// DraftPublisher saves a generated post somewhere outside the process.
type DraftPublisher interface {
	PublishDraft(ctx context.Context, art publisher.Article) (string, error)
}

// Deps wires the server to the core components. Publisher and Gatherer are
// optional.
type Deps struct {
	Personas     *persona.Store
	Orchestrator *orchestrator.Orchestrator
	Publisher    DraftPublisher
	Gatherer     prometheus.Gatherer
	Logger       *logger.Logger
	CORSOrigins  []string
}

type Server struct {
	personas  *persona.Store
	orch      *orchestrator.Orchestrator
	publisher DraftPublisher
	gatherer  prometheus.Gatherer
	log       *logger.Logger
	origins   []string
}

func New(deps Deps) (*Server, error) {
	if deps.Personas == nil {
		return nil, errors.New("persona store required")
	}
	if deps.Orchestrator == nil {
		return nil, errors.New("orchestrator required")
	}
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		personas:  deps.Personas,
		orch:      deps.Orchestrator,
		publisher: deps.Publisher,
		gatherer:  deps.Gatherer,
		log:       log.With("component", "server"),
		origins:   deps.CORSOrigins,
	}, nil
}

func (s *Server) Routes() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.log))
	r.Use(corsMiddleware(s.origins))

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	if s.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	{
		api.GET("/platforms", s.handlePlatforms)

		api.GET("/personas", s.handlePersonaList)
		api.POST("/personas", s.handlePersonaCreate)
		api.PUT("/personas/:id", s.handlePersonaUpdate)
		api.DELETE("/personas/:id", s.handlePersonaDelete)

		api.POST("/generate", s.handleGenerate)
		api.GET("/results", s.handleResults)
		api.GET("/results/events", s.handleResultEvents)
		api.GET("/results/:id/html", s.handleResultHTML)
		api.POST("/results/:id/publish", s.handleResultPublish)
	}
	return r
}
