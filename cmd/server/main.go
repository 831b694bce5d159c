package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	root "github.com/oryx-ai/conductor/cmd"
	"github.com/oryx-ai/conductor/internal/analytics"
	"github.com/oryx-ai/conductor/internal/config"
	"github.com/oryx-ai/conductor/internal/core/domain"
	"github.com/oryx-ai/conductor/internal/core/ports"
	"github.com/oryx-ai/conductor/internal/core/services"
	"github.com/oryx-ai/conductor/internal/logger"
	"github.com/oryx-ai/conductor/internal/platform/otel"
	"github.com/oryx-ai/conductor/internal/provider"
	"github.com/oryx-ai/conductor/internal/server"
	speechopenai "github.com/oryx-ai/conductor/internal/speech/openai"
	"github.com/oryx-ai/conductor/internal/store"
	"github.com/oryx-ai/conductor/internal/store/cache"
	"github.com/oryx-ai/conductor/internal/store/cache/memory"
	"github.com/oryx-ai/conductor/internal/store/cache/redis"
	"github.com/oryx-ai/conductor/internal/store/sqlite"

	// Vendor adapters register themselves with the provider factory.
	_ "github.com/oryx-ai/conductor/internal/provider/anthropic"
	_ "github.com/oryx-ai/conductor/internal/provider/google"
	_ "github.com/oryx-ai/conductor/internal/provider/ollama"
	_ "github.com/oryx-ai/conductor/internal/provider/openai"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Initialize("development")
		logger.Fatal("failed to load config", zap.Error(err))
	}

	log := logger.Initialize(cfg.Server.Env)
	defer logger.Sync()

	root.CheckForUpdates()

	shutdownTracer, err := otel.InitTracer("conductor", log, os.Stdout)
	if err != nil {
		log.Fatal("failed to init tracer", zap.Error(err))
	}

	repo, err := sqlite.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	defer func() {
		_ = repo.Close()
	}()

	var analysisCache cache.CacheService
	if cfg.Redis.Enabled {
		analysisCache, err = redis.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn("redis unavailable, falling back to in-memory cache", zap.Error(err))
			analysisCache = memory.NewMemoryCache()
		}
	} else {
		analysisCache = memory.NewMemoryCache()
	}

	registry := services.NewRegistry(log)
	registerProviders(cfg, repo, registry, log)

	classifier, err := services.NewClassifier(loadRules(repo, log), registry, log)
	if err != nil {
		log.Fatal("failed to build classifier", zap.Error(err))
	}

	ctx := context.Background()
	scopes, err := services.NewScopeManager(ctx, repo, log)
	if err != nil {
		log.Fatal("failed to hydrate scopes", zap.Error(err))
	}

	usage := analytics.NewIngestor(repo.Usage(), log)
	usage.Start()

	router := services.NewRouter(classifier, registry, usage, analysisCache, services.RouterConfig{
		DefaultProvider:  cfg.Router.DefaultProvider,
		AttemptTimeout:   cfg.Router.AttemptTimeout,
		AnalysisCacheTTL: cfg.Router.AnalysisCacheTTL,
	}, log)

	srv := server.New(cfg, log, server.Deps{
		Router:     router,
		Classifier: classifier,
		Registry:   registry,
		Scopes:     scopes,
		Repo:       repo,
		Speech:     speechService(cfg),
		Version:    root.AppVersion,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	usage.Stop()
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Error("tracer shutdown failed", zap.Error(err))
	}
}

// registerProviders merges config-file providers with stored ones. Stored
// records win on id collision; they carry operator edits made at runtime.
func registerProviders(cfg *config.Config, repo store.Repository, registry *services.Registry, log *zap.Logger) {
	configs := make(map[string]domain.ProviderConfig)
	for _, p := range cfg.Providers {
		configs[p.ID] = p
	}

	records, err := repo.Providers().List(context.Background())
	if err != nil {
		log.Warn("failed to load stored providers", zap.Error(err))
	}
	for _, rec := range records {
		pc, err := rec.ToDomain()
		if err != nil {
			log.Warn("skipping malformed provider record", zap.String("id", rec.ID), zap.Error(err))
			continue
		}
		// A stored credential wins over the config file. Records
		// written without one inherit the config-file key.
		if existing, ok := configs[pc.ID]; ok && pc.Credential == "" {
			pc.Credential = existing.Credential
		}
		configs[pc.ID] = pc
	}

	for _, pc := range configs {
		adapter, err := provider.New(pc)
		if err != nil {
			log.Warn("failed to create provider adapter",
				zap.String("id", pc.ID), zap.String("type", pc.Type), zap.Error(err))
			continue
		}
		if err := registry.Register(pc, adapter); err != nil {
			log.Warn("failed to register provider", zap.String("id", pc.ID), zap.Error(err))
			continue
		}
		log.Info("registered provider", zap.String("id", pc.ID), zap.String("type", pc.Type))
	}
}

// loadRules prefers stored classification rules, falling back to the
// built-in defaults when the table is empty.
func loadRules(repo store.Repository, log *zap.Logger) []domain.ClassificationRule {
	records, err := repo.Rules().List(context.Background())
	if err != nil {
		log.Warn("failed to load stored rules, using defaults", zap.Error(err))
		return services.DefaultRules()
	}
	if len(records) == 0 {
		return services.DefaultRules()
	}

	rules := make([]domain.ClassificationRule, 0, len(records))
	for _, rec := range records {
		rule, err := rec.ToDomain()
		if err != nil {
			log.Warn("skipping malformed rule record", zap.String("id", rec.ID), zap.Error(err))
			continue
		}
		rules = append(rules, rule)
	}
	return rules
}

// speechService wires the speech collaborator off the first openai-typed
// provider config; without one the speech endpoints stay unmounted.
func speechService(cfg *config.Config) ports.SpeechService {
	for _, p := range cfg.Providers {
		if p.Type == "openai" && p.Credential != "" {
			return speechopenai.NewService(p)
		}
	}
	return nil
}
