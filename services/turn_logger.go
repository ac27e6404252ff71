package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"soyeon/models"
)

var ErrInvalidRole = errors.New("invalid role")

// TurnLogger appends every user message and model reply to the store.
// A failed append is reported to the caller and logged, never retried.
type TurnLogger struct {
	store  TurnStore
	logger zerolog.Logger
	now    func() time.Time
}

func NewTurnLogger(store TurnStore, logger zerolog.Logger) *TurnLogger {
	return &TurnLogger{store: store, logger: logger, now: time.Now}
}

// Record stamps and appends one turn. The returned error, if any, wraps
// ErrStoreUnavailable or ErrInvalidRole; callers are expected to carry on
// without it.
func (l *TurnLogger) Record(ctx context.Context, role models.Role, text string) (models.Turn, error) {
	if !role.Valid() {
		return models.Turn{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	turn := models.Turn{
		ID:        uuid.New().String(),
		Timestamp: l.now(),
		Role:      role,
		Content:   text,
	}

	if err := l.store.Append(ctx, turn); err != nil {
		l.logger.Warn().
			Err(err).
			Str("role", string(role)).
			Msg("turn not persisted")
		return turn, err
	}
	return turn, nil
}
