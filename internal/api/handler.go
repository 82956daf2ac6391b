package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shopchat/shopchat/internal/config"
	"github.com/shopchat/shopchat/internal/observability"
	"github.com/shopchat/shopchat/internal/pipeline"
	"github.com/shopchat/shopchat/internal/query"
	"github.com/shopchat/shopchat/internal/schema"
	"github.com/shopchat/shopchat/internal/session"
	"github.com/shopchat/shopchat/internal/sqlcheck"
)

type ReadinessCheck func(ctx context.Context) error

// ChatPipeline is the single-turn entry point the chat endpoint calls.
type ChatPipeline interface {
	ProcessQuery(ctx context.Context, manager *session.Manager, userQuery string) pipeline.Response
}

// TranscriptArchiver persists a session ledger to durable storage.
type TranscriptArchiver interface {
	ArchiveSession(ctx context.Context, sessionID string, entries []session.Entry) (string, int64, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	Pipeline          ChatPipeline
	Sessions          *session.Store
	Validator         *sqlcheck.Validator
	Schema            *schema.Catalog
	Archiver          TranscriptArchiver
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	protected := http.NewServeMux()
	protected.HandleFunc("POST /v1/chat", func(w http.ResponseWriter, r *http.Request) {
		handleChat(deps, w, r)
	})
	protected.HandleFunc("POST /v1/sql/validate", func(w http.ResponseWriter, r *http.Request) {
		handleValidateSQL(deps, w, r)
	})
	protected.HandleFunc("GET /v1/schema", func(w http.ResponseWriter, r *http.Request) {
		handleSchema(deps, w, r)
	})
	protected.HandleFunc("GET /v1/context", func(w http.ResponseWriter, r *http.Request) {
		handleContextSummary(deps, w, r)
	})
	protected.HandleFunc("GET /v1/context/history", func(w http.ResponseWriter, r *http.Request) {
		handleContextHistory(deps, w, r)
	})
	protected.HandleFunc("DELETE /v1/context", func(w http.ResponseWriter, r *http.Request) {
		handleContextClear(deps, w, r)
	})
	protected.HandleFunc("POST /v1/context/archive", func(w http.ResponseWriter, r *http.Request) {
		handleContextArchive(deps, w, r)
	})

	var protectedHandler http.Handler = protected
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			protectedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false, nil)
			})
		} else {
			protectedHandler = deps.AuthMiddleware(protectedHandler)
		}
	}
	mux.Handle("POST /v1/chat", protectedHandler)
	mux.Handle("POST /v1/sql/validate", protectedHandler)
	mux.Handle("GET /v1/schema", protectedHandler)
	mux.Handle("GET /v1/context", protectedHandler)
	mux.Handle("GET /v1/context/history", protectedHandler)
	mux.Handle("DELETE /v1/context", protectedHandler)
	mux.Handle("POST /v1/context/archive", protectedHandler)

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

// CheckEngine reports readiness of the retail database connection.
func CheckEngine(engine query.Engine) ReadinessCheck {
	return func(ctx context.Context) error {
		if engine == nil {
			return errors.New("query engine is not configured")
		}
		return engine.Ping(ctx)
	}
}

func CheckArchiveConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if !cfg.Archive.Enabled {
			return nil
		}
		if cfg.Archive.Endpoint == "" {
			return errors.New("archive endpoint is not configured")
		}
		if cfg.Archive.Bucket == "" {
			return errors.New("archive bucket is not configured")
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
