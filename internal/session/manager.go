package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Manager hands out one Session per user and drops sessions left idle.
type Manager struct {
	deps Deps

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(deps Deps) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Manager{
		deps:     deps,
		sessions: make(map[string]*Session),
	}
}

// Get returns the user's session, loading a new one on first use.
func (m *Manager) Get(ctx context.Context, userID string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	m.mu.Unlock()
	if ok {
		return s, nil
	}

	s = New(userID, m.deps)
	if err := s.Load(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[userID]; ok {
		return existing, nil
	}
	m.sessions[userID] = s
	return s, nil
}

// Drop forgets the user's session. The next Get starts fresh.
func (m *Manager) Drop(userID string) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()

	if ok {
		s.Wait()
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops sessions unused for longer than idle and returns how many.
func (m *Manager) Sweep(idle time.Duration) int {
	cutoff := m.deps.Clock().Add(-idle)

	m.mu.Lock()
	var stale []*Session
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Wait()
	}
	if len(stale) > 0 {
		m.deps.Logger.Debug("swept idle sessions", "count", len(stale))
	}
	return len(stale)
}

// Run sweeps every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(idle)
		}
	}
}

// Wait blocks until every session's background work has finished.
func (m *Manager) Wait() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.Wait()
	}
}
