// Package session keeps the rolling conversation context for one chat
// session: an append-only, count- and token-bounded ledger of past turns.
package session

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Entry is one completed turn. Entries are immutable once recorded and
// leave the ledger only through eviction or Clear.
type Entry struct {
	Timestamp     time.Time `json:"timestamp"`
	UserQuery     string    `json:"user_query"`
	SQLQuery      string    `json:"sql_query,omitempty"`
	Succeeded     bool      `json:"succeeded"`
	ResultSummary string    `json:"result_summary"`
	TokenCost     int       `json:"token_cost"`
}

// PreviousQuery is the slice of an entry handed to SQL generation so the
// model can resolve references against prior successful SQL.
type PreviousQuery struct {
	UserQuery string `json:"user_query"`
	SQLQuery  string `json:"sql_query"`
	Timestamp string `json:"timestamp"`
}

type GenerationContext struct {
	PreviousQueries []PreviousQuery `json:"previous_queries"`
	TotalTurns      int             `json:"total_turns"`
	WindowUsage     string          `json:"window_usage"`
}

type Summary struct {
	TotalTurns      int    `json:"total_turns"`
	SuccessfulTurns int    `json:"successful_turns"`
	FailedTurns     int    `json:"failed_turns"`
	WindowCapacity  int    `json:"window_capacity"`
	WindowUsage     int    `json:"window_usage"`
	TokenUsage      int    `json:"token_usage"`
	TokenBudget     int    `json:"token_budget"`
	WindowFull      bool   `json:"is_window_full"`
	TokenPressure   bool   `json:"is_token_pressure"`
}

// recentQueryLimit caps how many prior turns are surfaced to generation.
const recentQueryLimit = 5

// tokenSoftFactor is the fraction of the token budget the eviction loop
// drains the ledger down to.
const tokenSoftFactor = 0.8

// EvictionObserver is notified once per evicted entry with the cause,
// "entry_cap" or "token_budget".
type EvictionObserver func(cause string)

// Manager owns one session's ledger. Record and the window maintenance
// that follows it form a single critical section; all methods are safe
// for concurrent use, though callers are expected to serialize turns.
type Manager struct {
	mu          sync.Mutex
	entries     []Entry
	totalTokens int
	maxEntries  int
	tokenBudget int
	now         func() time.Time
	onEviction  EvictionObserver
}

type Option func(*Manager)

// WithClock overrides the timestamp source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithEvictionObserver(observer EvictionObserver) Option {
	return func(m *Manager) { m.onEviction = observer }
}

func NewManager(maxEntries, tokenBudget int, opts ...Option) *Manager {
	m := &Manager{
		maxEntries:  maxEntries,
		tokenBudget: tokenBudget,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Record appends a completed turn and then enforces the window bounds:
// first the hard entry cap, then the soft token threshold. The newest
// entry is never evicted by the token phase, so the session always
// retains at least its latest turn.
func (m *Manager) Record(userQuery, sqlQuery string, succeeded bool, resultSummary string, tokenCost int) {
	if tokenCost < 0 {
		tokenCost = 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries, Entry{
		Timestamp:     m.now(),
		UserQuery:     userQuery,
		SQLQuery:      sqlQuery,
		Succeeded:     succeeded,
		ResultSummary: resultSummary,
		TokenCost:     tokenCost,
	})
	m.totalTokens += tokenCost

	for len(m.entries) > m.maxEntries {
		m.evictOldest("entry_cap")
	}
	threshold := float64(m.tokenBudget) * tokenSoftFactor
	for float64(m.totalTokens) > threshold && len(m.entries) > 1 {
		m.evictOldest("token_budget")
	}
}

func (m *Manager) evictOldest(cause string) {
	evicted := m.entries[0]
	m.entries = m.entries[1:]
	m.totalTokens -= evicted.TokenCost
	if m.onEviction != nil {
		m.onEviction(cause)
	}
}

// ContextForGeneration returns the most recent successful turns that
// produced SQL, oldest first, capped at five.
func (m *Manager) ContextForGeneration() GenerationContext {
	m.mu.Lock()
	defer m.mu.Unlock()

	recent := make([]PreviousQuery, 0, recentQueryLimit)
	start := len(m.entries) - recentQueryLimit
	if start < 0 {
		start = 0
	}
	for _, entry := range m.entries[start:] {
		if !entry.Succeeded || entry.SQLQuery == "" {
			continue
		}
		recent = append(recent, PreviousQuery{
			UserQuery: entry.UserQuery,
			SQLQuery:  entry.SQLQuery,
			Timestamp: entry.Timestamp.Format(time.RFC3339),
		})
	}

	return GenerationContext{
		PreviousQueries: recent,
		TotalTurns:      len(m.entries),
		WindowUsage:     fmt.Sprintf("%d/%d", len(m.entries), m.maxEntries),
	}
}

func (m *Manager) Summary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	successful := 0
	for _, entry := range m.entries {
		if entry.Succeeded {
			successful++
		}
	}

	return Summary{
		TotalTurns:      len(m.entries),
		SuccessfulTurns: successful,
		FailedTurns:     len(m.entries) - successful,
		WindowCapacity:  m.maxEntries,
		WindowUsage:     len(m.entries),
		TokenUsage:      m.totalTokens,
		TokenBudget:     m.tokenBudget,
		WindowFull:      len(m.entries) >= m.maxEntries,
		TokenPressure:   float64(m.totalTokens) > float64(m.tokenBudget)*tokenSoftFactor,
	}
}

// Clear empties the ledger. Safe to call repeatedly.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	m.totalTokens = 0
}

// Export serializes the full ledger as indented JSON with RFC3339
// timestamps. Read-only.
func (m *Manager) Export() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.entries
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal conversation history: %w", err)
	}
	return data, nil
}

// Entries returns a snapshot copy of the ledger, oldest first.
func (m *Manager) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Warning composes a human-readable message when the window or token
// budget is under pressure; empty when neither flag fires.
func (m *Manager) Warning() string {
	summary := m.Summary()

	var parts []string
	if summary.WindowFull {
		parts = append(parts, fmt.Sprintf(
			"Context window is full (%d/%d). Older conversations will be removed.",
			summary.WindowUsage, summary.WindowCapacity,
		))
	}
	if summary.TokenPressure {
		parts = append(parts, fmt.Sprintf(
			"Token limit is near (%d/%d). Context may be truncated.",
			summary.TokenUsage, summary.TokenBudget,
		))
	}
	if len(parts) == 0 {
		return ""
	}
	if len(parts) == 2 {
		return parts[0] + " " + parts[1]
	}
	return parts[0]
}
