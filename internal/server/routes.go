package server

import (
	"github.com/oryx-ai/conductor/internal/server/middleware"
	"github.com/oryx-ai/conductor/internal/server/validator"
	v1 "github.com/oryx-ai/conductor/internal/server/v1"
)

func (s *Server) setupRoutes() {
	s.engine.Use(middleware.ErrorHandler(s.logger))

	limiter := middleware.NewRateLimiter(s.config.RateLimit.RequestsPerSecond, s.config.RateLimit.Burst, s.logger)
	s.engine.Use(limiter.Middleware())

	val := validator.New()

	healthHandler := v1.NewHealthHandler(s.deps.Version)
	s.engine.GET("/health", healthHandler.Health)

	api := s.engine.Group("/v1")
	api.Use(middleware.Auth(s.config.Server.APIKeys))
	{
		routeHandler := v1.NewRouteHandler(s.deps.Router, s.deps.Scopes, val)
		api.POST("/route", routeHandler.Route)
		api.POST("/route/stream", routeHandler.RouteStream)

		scopeHandler := v1.NewScopeHandler(s.deps.Scopes, val)
		api.POST("/scopes", scopeHandler.Create)
		api.GET("/scopes", scopeHandler.List)
		api.GET("/scopes/:id", scopeHandler.Get)
		api.PATCH("/scopes/:id", scopeHandler.Update)
		api.DELETE("/scopes/:id", scopeHandler.Delete)

		ruleHandler := v1.NewRuleHandler(s.deps.Classifier, s.deps.Repo.Rules(), val)
		api.POST("/rules", ruleHandler.Create)
		api.GET("/rules", ruleHandler.List)
		api.PUT("/rules/:id", ruleHandler.Update)
		api.DELETE("/rules/:id", ruleHandler.Delete)

		providerHandler := v1.NewProviderHandler(s.deps.Registry, s.deps.Repo.Providers(), val)
		api.GET("/providers", providerHandler.List)
		api.GET("/providers/:id", providerHandler.Get)
		api.POST("/providers", providerHandler.Register)
		api.PATCH("/providers/:id", providerHandler.Update)
		api.PUT("/providers/:id/key", providerHandler.SetKey)
		api.POST("/providers/:id/key/validate", providerHandler.ValidateKey)
		api.PUT("/providers/:id/enabled", providerHandler.SetEnabled)

		usageHandler := v1.NewUsageHandler(s.deps.Repo.Usage())
		api.GET("/usage/recent", usageHandler.Recent)
		api.GET("/usage/daily", usageHandler.Daily)

		if s.deps.Speech != nil {
			speechHandler := v1.NewSpeechHandler(s.deps.Speech, s.deps.Router, s.deps.Scopes, val)
			api.POST("/speech/transcribe", speechHandler.Transcribe)
			api.POST("/speech/route", speechHandler.TranscribeAndRoute)
			api.POST("/speech/synthesize", speechHandler.Synthesize)
		}
	}
}
