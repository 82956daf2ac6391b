// Package pipeline orchestrates one conversation turn: generate SQL from
// the question, validate it, execute it, format the result, and record
// the outcome into the session ledger.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopchat/shopchat/internal/format"
	"github.com/shopchat/shopchat/internal/nl2sql"
	"github.com/shopchat/shopchat/internal/observability"
	"github.com/shopchat/shopchat/internal/query"
	"github.com/shopchat/shopchat/internal/schema"
	"github.com/shopchat/shopchat/internal/session"
	"github.com/shopchat/shopchat/internal/sqlcheck"
)

// Stage names used in logs and metrics.
const (
	StageGenerate = "generate"
	StageValidate = "validate"
	StageExecute  = "execute"
	StageFormat   = "format"
)

// State accumulates across the stages of a single turn. Fields are only
// ever added, never rewritten by a later stage.
type State struct {
	UserQuery       string
	SQLQuery        string
	Verdict         sqlcheck.Verdict
	Execution       *query.Result
	FormattedResult string
	ErrorMessage    string
}

// Response is the per-turn result handed back to the transport layer.
type Response struct {
	Success         bool            `json:"success"`
	UserQuery       string          `json:"user_query"`
	SQLQuery        string          `json:"sql_query,omitempty"`
	FormattedResult string          `json:"formatted_result,omitempty"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	ContextSummary  session.Summary `json:"context_summary"`
	ContextWarning  string          `json:"context_warning,omitempty"`
}

type Config struct {
	Translator   nl2sql.Translator
	Validator    *sqlcheck.Validator
	Engine       query.Engine
	Schema       schema.Provider
	RowLimit     int
	QueryTimeout time.Duration
	Logger       *slog.Logger
}

type Pipeline struct {
	translator   nl2sql.Translator
	validator    *sqlcheck.Validator
	engine       query.Engine
	schema       schema.Provider
	rowLimit     int
	queryTimeout time.Duration
	logger       *slog.Logger
}

func New(cfg Config) (*Pipeline, error) {
	if cfg.Translator == nil {
		return nil, fmt.Errorf("translator is required")
	}
	if cfg.Validator == nil {
		return nil, fmt.Errorf("validator is required")
	}
	if cfg.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if cfg.Schema == nil {
		return nil, fmt.Errorf("schema provider is required")
	}
	if cfg.RowLimit < 1 {
		return nil, fmt.Errorf("row limit must be >= 1")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		translator:   cfg.Translator,
		validator:    cfg.Validator,
		engine:       cfg.Engine,
		schema:       cfg.Schema,
		rowLimit:     cfg.RowLimit,
		queryTimeout: cfg.QueryTimeout,
		logger:       logger,
	}, nil
}

// ProcessQuery runs one turn end to end. It never panics and always
// records exactly one entry into the session ledger, whatever happens in
// the stages.
func (p *Pipeline) ProcessQuery(ctx context.Context, manager *session.Manager, userQuery string) Response {
	state := p.run(ctx, manager, userQuery)

	succeeded := state.Execution != nil && state.ErrorMessage == ""
	summary := ""
	if succeeded {
		summary = format.Summary(*state.Execution)
	} else if state.ErrorMessage != "" {
		summary = "Error: " + state.ErrorMessage
	}
	tokenCost := len(strings.Fields(userQuery)) + len(strings.Fields(state.SQLQuery))
	manager.Record(userQuery, state.SQLQuery, succeeded, summary, tokenCost)

	outcome := "failure"
	if succeeded {
		outcome = "success"
	}
	observability.ObserveTurn(outcome)

	return Response{
		Success:         succeeded,
		UserQuery:       userQuery,
		SQLQuery:        state.SQLQuery,
		FormattedResult: state.FormattedResult,
		ErrorMessage:    state.ErrorMessage,
		ContextSummary:  manager.Summary(),
		ContextWarning:  manager.Warning(),
	}
}

func (p *Pipeline) run(ctx context.Context, manager *session.Manager, userQuery string) (state State) {
	defer func() {
		if r := recover(); r != nil {
			state.ErrorMessage = fmt.Sprintf("workflow error: %v", r)
			p.logger.Error("pipeline panic recovered", "panic", r)
		}
	}()

	state.UserQuery = userQuery
	p.generate(ctx, manager, &state)
	p.validate(&state)

	// Execution is gated on a clean validation verdict.
	if state.Verdict.Valid && state.ErrorMessage == "" {
		p.execute(ctx, &state)
		p.formatResult(&state)
	}
	return state
}

func (p *Pipeline) generate(ctx context.Context, manager *session.Manager, state *State) {
	defer observeStage(StageGenerate, time.Now())

	result, err := p.translator.Translate(ctx, nl2sql.Request{
		Schema:   p.schema.Describe(),
		Context:  manager.ContextForGeneration(),
		Question: state.UserQuery,
	})
	if err != nil {
		state.ErrorMessage = fmt.Sprintf("Text-to-SQL conversion failed: %v", err)
		p.logger.Error("sql generation failed", "error", err)
		return
	}
	state.SQLQuery = result.SQL
	p.logger.Info("sql generated", "model", result.Model, "sql", result.SQL)
}

func (p *Pipeline) validate(state *State) {
	defer observeStage(StageValidate, time.Now())

	if state.ErrorMessage != "" {
		return
	}
	if strings.TrimSpace(state.SQLQuery) == "" {
		state.ErrorMessage = "No SQL query to validate"
		return
	}

	state.Verdict = p.validator.Validate(state.SQLQuery)
	if !state.Verdict.Valid {
		state.ErrorMessage = "SQL validation failed: " + state.Verdict.Reason
		observability.ObserveValidationRejection(state.Verdict.Check)
		p.logger.Warn("sql rejected", "check", state.Verdict.Check, "reason", state.Verdict.Reason)
	}
}

func (p *Pipeline) execute(ctx context.Context, state *State) {
	defer observeStage(StageExecute, time.Now())

	if p.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.queryTimeout)
		defer cancel()
	}

	result, err := p.engine.Execute(ctx, query.Request{SQL: state.SQLQuery, RowLimit: p.rowLimit})
	if err != nil {
		state.ErrorMessage = fmt.Sprintf("Query execution failed: %v", err)
		p.logger.Error("sql execution failed", "error", err)
		return
	}
	if result.Truncated {
		observability.ObserveRowTruncation()
	}
	state.Execution = &result
	p.logger.Info("sql executed", "rows", result.RowCount, "truncated", result.Truncated, "duration", result.Duration)
}

func (p *Pipeline) formatResult(state *State) {
	defer observeStage(StageFormat, time.Now())

	if state.Execution != nil {
		state.FormattedResult = format.Success(*state.Execution)
		return
	}
	if state.ErrorMessage != "" {
		state.FormattedResult = format.Failure(state.ErrorMessage)
	}
}

func observeStage(stage string, start time.Time) {
	observability.ObserveStageDuration(stage, time.Since(start))
}
