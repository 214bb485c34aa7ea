package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/querydesk/querydesk/internal/api"
	"github.com/querydesk/querydesk/internal/auth"
	"github.com/querydesk/querydesk/internal/config"
	"github.com/querydesk/querydesk/internal/exec"
	"github.com/querydesk/querydesk/internal/export"
	"github.com/querydesk/querydesk/internal/history"
	"github.com/querydesk/querydesk/internal/nl2sql"
	"github.com/querydesk/querydesk/internal/observability"
	"github.com/querydesk/querydesk/internal/orchestrator"
	"github.com/querydesk/querydesk/internal/safety"
	"github.com/querydesk/querydesk/internal/schema"
	"github.com/querydesk/querydesk/internal/store"
	s3store "github.com/querydesk/querydesk/internal/storage/s3"
)

func main() {
	// A local .env is optional; real deployments set the environment
	// directly.
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv("querydesk-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	dialect, err := store.ParseDialect(cfg.Store.Dialect)
	if err != nil {
		logger.Error("invalid store dialect", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, store.Config{
		Dialect:         dialect,
		DSN:             cfg.Store.DSN,
		MaxOpenConns:    cfg.Store.MaxOpenConns,
		MaxIdleConns:    cfg.Store.MaxIdleConns,
		ConnMaxIdleTime: cfg.Store.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to open store", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	introspector := schema.NewIntrospector(db, dialect, cfg.Schema.SampleRows, logger)
	if err := introspector.Refresh(ctx); err != nil {
		logger.Error("initial schema introspection failed", slog.Any("error", err))
		os.Exit(1)
	}

	var translator nl2sql.Translator
	if cfg.AI.TranslateEnabled {
		openAITranslator, err := nl2sql.NewOpenAITranslator(nl2sql.OpenAIConfig{
			BaseURL:      cfg.AI.BaseURL,
			APIKey:       cfg.AI.APIKey,
			Model:        cfg.AI.Model,
			Temperature:  cfg.AI.Temperature,
			Timeout:      cfg.AI.Timeout,
			MaxSQLLength: cfg.AI.MaxSQLLength,
		})
		if err != nil {
			logger.Error("failed to initialize model translator", slog.Any("error", err))
			os.Exit(1)
		}
		translator = openAITranslator
	}

	generator := nl2sql.NewGenerator(translator, logger)
	validator := safety.NewValidator(cfg.Safety.ChecksEnabled)
	executor := exec.NewExecutor(db, dialect, logger)
	historyStore := history.NewStore(db, dialect, logger)
	orch := orchestrator.New(generator, validator, executor, historyStore, introspector, logger)

	deps := api.Dependencies{
		Logger:       logger,
		Orchestrator: orch,
		History:      historyStore,
		Readiness: api.CombineReadinessChecks(
			api.CheckStoreDSN(cfg),
			api.CheckSchemaLoaded(orch),
			func(ctx context.Context) error { return db.PingContext(ctx) },
		),
		DependencyTimeout: time.Second,
	}

	if cfg.Archive.Enabled {
		objectStore, err := s3store.New(ctx, s3store.Config{
			Endpoint:         cfg.Archive.Endpoint,
			Region:           cfg.Archive.Region,
			Bucket:           cfg.Archive.Bucket,
			AccessKeyID:      cfg.Archive.AccessKeyID,
			SecretAccessKey:  cfg.Archive.SecretAccessKey,
			UseSSL:           cfg.Archive.UseSSL,
			Prefix:           cfg.Archive.Prefix,
			AutoCreateBucket: true,
		})
		if err != nil {
			logger.Error("failed to initialize archive store", slog.Any("error", err))
			os.Exit(1)
		}
		deps.Archiver = export.NewArchiver(objectStore, logger)
	}

	if cfg.Auth.Required {
		keyValidator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, keyValidator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
