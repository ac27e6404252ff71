package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionManager owns the live chat sessions. Sessions idle for longer than
// idleTimeout are dropped; a zero timeout keeps them until deleted.
type SessionManager struct {
	initializer *Initializer
	idleTimeout time.Duration
	logger      zerolog.Logger
	now         func() time.Time

	mu       sync.RWMutex
	sessions map[string]*ChatSession
}

func NewSessionManager(initializer *Initializer, idleTimeout time.Duration, logger zerolog.Logger) *SessionManager {
	return &SessionManager{
		initializer: initializer,
		idleTimeout: idleTimeout,
		logger:      logger,
		now:         time.Now,
		sessions:    make(map[string]*ChatSession),
	}
}

// Create starts a new session with freshly loaded memory.
func (m *SessionManager) Create(ctx context.Context) (*ChatSession, MemoryStatus, error) {
	m.Sweep()

	id, err := gonanoid.New()
	if err != nil {
		return nil, MemoryStatus{}, fmt.Errorf("failed to generate session id: %w", err)
	}

	session, status := m.initializer.Start(ctx, id)

	m.mu.Lock()
	m.sessions[id] = session
	m.mu.Unlock()

	return session, status, nil
}

func (m *SessionManager) Get(id string) (*ChatSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return session, nil
}

func (m *SessionManager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(m.sessions, id)
	return nil
}

func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes idle sessions and returns how many were dropped.
func (m *SessionManager) Sweep() int {
	if m.idleTimeout <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.idleTimeout)

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, session := range m.sessions {
		if session.LastUsed().Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Info().
			Int("removed", removed).
			Int("remaining", len(m.sessions)).
			Msg("idle sessions dropped")
	}
	return removed
}

// Run sweeps on every tick until ctx is done.
func (m *SessionManager) Run(ctx context.Context, interval time.Duration) {
	if m.idleTimeout <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
