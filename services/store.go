package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"soyeon/config"
	"soyeon/models"
)

// ErrStoreUnavailable wraps every failure of the conversation memory store.
var ErrStoreUnavailable = errors.New("memory store unavailable")

// TurnStore is the append-only conversation memory.
type TurnStore interface {
	// Append writes one turn at the end of the store.
	Append(ctx context.Context, turn models.Turn) error
	// Recent returns at most limit turns, oldest first, in append order.
	Recent(ctx context.Context, limit int) ([]models.Turn, error)
	Close() error
}

// NewTurnStore opens the backend named in the configuration.
func NewTurnStore(ctx context.Context, cfg *config.Config) (TurnStore, error) {
	var (
		store TurnStore
		err   error
	)
	switch cfg.Store.Backend {
	case "sheets":
		store, err = openStore(NewSheetsStoreFromCredentials(ctx, cfg.Store, cfg.Speakers))
	case "dynamodb":
		store, err = openStore(NewDynamoDBStore(ctx, cfg.Store.DynamoDB, cfg.Store.MemoryName, cfg.Speakers))
	case "postgres":
		store, err = openStore(NewPostgresStore(ctx, cfg.Store.Postgres.DSN, cfg.Speakers))
	case "sqlite":
		store, err = openStore(NewSQLiteStore(ctx, cfg.Store.SQLite.Path, cfg.Speakers))
	case "memory":
		store = NewMemoryStore()
	default:
		err = fmt.Errorf("unsupported store backend: %q", cfg.Store.Backend)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

// openStore keeps a failed constructor from leaking a typed nil.
func openStore[S TurnStore](store S, err error) (TurnStore, error) {
	if err != nil {
		return nil, err
	}
	return store, nil
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

// MemoryStore keeps turns in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	turns []models.Turn
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, turn models.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, turn)
	return nil
}

func (s *MemoryStore) Recent(_ context.Context, limit int) ([]models.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lastN(s.turns, limit), nil
}

func (s *MemoryStore) Close() error { return nil }

// DisabledStore stands in when the configured backend could not be opened.
type DisabledStore struct {
	Reason error
}

func (s DisabledStore) Append(context.Context, models.Turn) error {
	return storeError("append", s.reason())
}

func (s DisabledStore) Recent(context.Context, int) ([]models.Turn, error) {
	return nil, storeError("recent", s.reason())
}

func (s DisabledStore) Close() error { return nil }

func (s DisabledStore) reason() error {
	if s.Reason == nil {
		return errors.New("store disabled")
	}
	return s.Reason
}

// lastN returns a copy of the trailing limit entries of turns.
func lastN(turns []models.Turn, limit int) []models.Turn {
	if limit <= 0 || len(turns) == 0 {
		return []models.Turn{}
	}
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]models.Turn, len(turns))
	copy(out, turns)
	return out
}

func reverseTurns(turns []models.Turn) {
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
}
