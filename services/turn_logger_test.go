package services

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soyeon/models"
)

func TestTurnLogger_RecordAppendsTimestampedTurn(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	logger := NewTurnLogger(store, zerolog.Nop())
	fixed := time.Date(2025, 2, 14, 20, 0, 0, 0, time.UTC)
	logger.now = func() time.Time { return fixed }

	turn, err := logger.Record(ctx, models.RoleUser, "hello")
	require.NoError(t, err)
	assert.NotEmpty(t, turn.ID)
	assert.Equal(t, fixed, turn.Timestamp)

	recent, err := store.Recent(ctx, 20)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, turn, recent[0])
}

func TestTurnLogger_RecordThenRecentIsMostRecent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for _, turn := range seedTurns(25) {
		require.NoError(t, store.Append(ctx, turn))
	}

	turn, err := NewTurnLogger(store, zerolog.Nop()).Record(ctx, models.RoleAssistant, "latest")
	require.NoError(t, err)

	recent, err := store.Recent(ctx, 20)
	require.NoError(t, err)
	require.Len(t, recent, 20)
	assert.Equal(t, turn, recent[len(recent)-1])
}

func TestTurnLogger_AppendFailureIsReportedNotRaised(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	store := &flakyStore{failAppend: true}

	var err error
	assert.NotPanics(t, func() {
		_, err = NewTurnLogger(store, log).Record(context.Background(), models.RoleUser, "lost")
	})
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Contains(t, buf.String(), "turn not persisted")
	assert.Contains(t, buf.String(), `"level":"warn"`)
}

func TestTurnLogger_RejectsUnknownRole(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := NewTurnLogger(store, zerolog.Nop()).Record(ctx, models.Role("model"), "wrong role")
	assert.ErrorIs(t, err, ErrInvalidRole)

	recent, err := store.Recent(ctx, 20)
	require.NoError(t, err)
	assert.Empty(t, recent)
}
