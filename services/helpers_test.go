package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"soyeon/models"
)

var testSpeakers = models.Speakers{User: "Brian", Assistant: "Soyeon"}

// fakeModel answers "echo: <message>" and remembers the history it saw.
type fakeModel struct {
	mu      sync.Mutex
	err     error
	calls   int
	history [][]models.Turn
}

func (m *fakeModel) Name() string { return "fake/echo" }

func (m *fakeModel) Reply(_ context.Context, history []models.Turn, message string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	seen := make([]models.Turn, len(history))
	copy(seen, history)
	m.history = append(m.history, seen)
	if m.err != nil {
		return "", m.err
	}
	return "echo: " + message, nil
}

// flakyStore fails the operations it is told to.
type flakyStore struct {
	MemoryStore
	failAppend bool
	failRecent bool
}

func (s *flakyStore) Append(ctx context.Context, turn models.Turn) error {
	if s.failAppend {
		return storeError("append", errors.New("quota exceeded"))
	}
	return s.MemoryStore.Append(ctx, turn)
}

func (s *flakyStore) Recent(ctx context.Context, limit int) ([]models.Turn, error) {
	if s.failRecent {
		return nil, storeError("recent", errors.New("network down"))
	}
	return s.MemoryStore.Recent(ctx, limit)
}

func seedTurns(n int) []models.Turn {
	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	turns := make([]models.Turn, n)
	for i := range turns {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		turns[i] = models.Turn{
			ID:        fmt.Sprintf("t%d", i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Role:      role,
			Content:   fmt.Sprintf("turn %d", i),
		}
	}
	return turns
}
