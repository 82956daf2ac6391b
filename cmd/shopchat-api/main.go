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

	"github.com/shopchat/shopchat/internal/api"
	"github.com/shopchat/shopchat/internal/archive"
	"github.com/shopchat/shopchat/internal/auth"
	"github.com/shopchat/shopchat/internal/config"
	"github.com/shopchat/shopchat/internal/nl2sql"
	"github.com/shopchat/shopchat/internal/observability"
	"github.com/shopchat/shopchat/internal/pipeline"
	"github.com/shopchat/shopchat/internal/query"
	duckdbengine "github.com/shopchat/shopchat/internal/query/duckdb"
	postgresengine "github.com/shopchat/shopchat/internal/query/postgres"
	"github.com/shopchat/shopchat/internal/schema"
	"github.com/shopchat/shopchat/internal/session"
	"github.com/shopchat/shopchat/internal/sqlcheck"
	s3store "github.com/shopchat/shopchat/internal/storage/s3"
)

func main() {
	cfg, err := config.LoadFromEnv("shopchat-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	var engine query.Engine
	switch cfg.Database.Driver {
	case "postgres":
		engine, err = postgresengine.Open(context.Background(), postgresengine.Config{
			DSN:             cfg.Database.DSN,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
	default:
		engine, err = duckdbengine.Open(cfg.Database.Path)
	}
	if err != nil {
		logger.Error("failed to open retail database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = engine.Close() }()

	var translator nl2sql.Translator = nl2sql.Disabled{}
	if cfg.AI.Enabled {
		translator, err = nl2sql.NewOpenAITranslator(nl2sql.OpenAIConfig{
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			Timeout:     cfg.AI.Timeout,
		})
		if err != nil {
			logger.Error("failed to initialize translator", slog.Any("error", err))
			os.Exit(1)
		}
	}

	catalog := schema.NewRetailCatalog()
	validator := sqlcheck.New(catalog.TableNames())
	sessions := session.NewStore(
		cfg.Session.MaxEntries,
		cfg.Session.TokenBudget,
		session.WithEvictionObserver(observability.ObserveContextEviction),
	)

	chatPipeline, err := pipeline.New(pipeline.Config{
		Translator:   translator,
		Validator:    validator,
		Engine:       engine,
		Schema:       catalog,
		RowLimit:     cfg.Query.RowLimit,
		QueryTimeout: cfg.Query.Timeout,
		Logger:       logger,
	})
	if err != nil {
		logger.Error("failed to build pipeline", slog.Any("error", err))
		os.Exit(1)
	}

	var archiver api.TranscriptArchiver
	if cfg.Archive.Enabled {
		objectStore, err := s3store.New(context.Background(), s3store.Config{
			Endpoint:         cfg.Archive.Endpoint,
			Region:           cfg.Archive.Region,
			Bucket:           cfg.Archive.Bucket,
			AccessKeyID:      cfg.Archive.AccessKeyID,
			SecretAccessKey:  cfg.Archive.SecretAccessKey,
			UseSSL:           cfg.Archive.UseSSL,
			Prefix:           cfg.Archive.Prefix,
			AutoCreateBucket: cfg.Archive.AutoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize archive store", slog.Any("error", err))
			os.Exit(1)
		}
		archiver, err = archive.NewArchiver(objectStore)
		if err != nil {
			logger.Error("failed to initialize archiver", slog.Any("error", err))
			os.Exit(1)
		}
	}

	deps := api.Dependencies{
		Logger:    logger,
		Pipeline:  chatPipeline,
		Sessions:  sessions,
		Validator: validator,
		Schema:    catalog,
		Archiver:  archiver,
		Readiness: api.CombineReadinessChecks(
			api.CheckEngine(engine),
			api.CheckArchiveConfig(cfg),
		),
		DependencyTimeout: time.Second,
	}
	if cfg.Auth.Required {
		authValidator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, authValidator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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
