package session

import (
	"sort"
	"strings"
	"sync"
)

// DefaultSessionID is used when a caller does not name a session.
const DefaultSessionID = "default"

// Store hands out one Manager per session ID. Sessions are independent
// ledgers; nothing is shared between them.
type Store struct {
	mu          sync.Mutex
	sessions    map[string]*Manager
	maxEntries  int
	tokenBudget int
	opts        []Option
}

func NewStore(maxEntries, tokenBudget int, opts ...Option) *Store {
	return &Store{
		sessions:    map[string]*Manager{},
		maxEntries:  maxEntries,
		tokenBudget: tokenBudget,
		opts:        opts,
	}
}

// Get returns the session's manager, creating it on first use. Empty or
// blank IDs map to the default session.
func (s *Store) Get(sessionID string) *Manager {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = DefaultSessionID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	manager, ok := s.sessions[sessionID]
	if !ok {
		manager = NewManager(s.maxEntries, s.tokenBudget, s.opts...)
		s.sessions[sessionID] = manager
	}
	return manager
}

// SessionIDs lists known sessions in lexical order.
func (s *Store) SessionIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
