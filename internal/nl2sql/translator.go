// Package nl2sql turns natural-language retail questions into candidate
// SQL via an OpenAI-compatible chat-completions endpoint.
package nl2sql

import (
	"context"
	"errors"
	"strings"

	"github.com/shopchat/shopchat/internal/session"
)

type Request struct {
	Schema   string                    `json:"schema"`
	Context  session.GenerationContext `json:"context"`
	Question string                    `json:"question"`
}

type Result struct {
	SQL      string `json:"sql"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type Translator interface {
	Translate(ctx context.Context, req Request) (Result, error)
}

// ErrDisabled is returned when SQL generation is turned off by
// configuration.
var ErrDisabled = errors.New("sql generation is disabled")

// Disabled stands in for a real translator when no AI backend is
// configured. Every turn fails at the generation stage.
type Disabled struct{}

func (Disabled) Translate(context.Context, Request) (Result, error) {
	return Result{}, ErrDisabled
}

// CleanSQL normalizes raw model output into something the validator can
// inspect: code fences and "SQL:"/"Query:" labels removed, whitespace
// collapsed, terminating semicolon guaranteed. Validation relies on this
// shape, so the cleanup always runs before the verdict.
func CleanSQL(raw string) string {
	cleaned := strings.ReplaceAll(raw, "```sql", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.ReplaceAll(cleaned, "SQL:", "")
	cleaned = strings.ReplaceAll(cleaned, "Query:", "")

	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if cleaned == "" {
		return ""
	}
	if !strings.HasSuffix(cleaned, ";") {
		cleaned += ";"
	}
	return cleaned
}
