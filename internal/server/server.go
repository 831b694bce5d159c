package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/oryx-ai/conductor/internal/config"
	"github.com/oryx-ai/conductor/internal/core/ports"
	"github.com/oryx-ai/conductor/internal/core/services"
	"github.com/oryx-ai/conductor/internal/server/middleware"
	"github.com/oryx-ai/conductor/internal/store"
)

// Deps bundles everything the HTTP surface needs. Speech is optional; when
// nil the speech endpoints are not mounted.
type Deps struct {
	Router     *services.Router
	Classifier *services.Classifier
	Registry   *services.Registry
	Scopes     *services.ScopeManager
	Repo       store.Repository
	Speech     ports.SpeechService
	Version    string
}

type Server struct {
	engine *gin.Engine
	config *config.Config
	logger *zap.Logger
	deps   Deps
}

func New(cfg *config.Config, logger *zap.Logger, deps Deps) *Server {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(middleware.Recovery(logger))
	engine.Use(middleware.Logger(logger))
	engine.Use(middleware.Tracing("conductor"))

	s := &Server{
		engine: engine,
		config: cfg,
		logger: logger,
		deps:   deps,
	}

	s.setupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}
