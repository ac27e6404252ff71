package services

import (
	"context"

	"github.com/rs/zerolog"

	"soyeon/models"
)

// PersonaSettings are the fixed texts a session is seeded with.
type PersonaSettings struct {
	File            string
	Preamble        string
	Fallback        string
	Acknowledgement string
	Greeting        string
}

// MemoryStatus reports how the recent-memory fetch went at session start.
type MemoryStatus struct {
	Loaded bool  `json:"loaded"`
	Turns  int   `json:"turns"`
	Err    error `json:"-"`
}

// BuildContext returns persona (user), acknowledgement (assistant), then the
// recent turns in the order given.
func BuildContext(persona, acknowledgement string, recent []models.Turn) []models.Turn {
	history := make([]models.Turn, 0, len(recent)+2)
	history = append(history,
		models.NewTurn(models.RoleUser, persona),
		models.NewTurn(models.RoleAssistant, acknowledgement),
	)
	return append(history, recent...)
}

// Initializer opens chat sessions seeded with the persona and recent memory.
type Initializer struct {
	store   TurnStore
	persona PersonaSettings
	limit   int
	logger  zerolog.Logger
}

func NewInitializer(store TurnStore, persona PersonaSettings, limit int, logger zerolog.Logger) *Initializer {
	return &Initializer{store: store, persona: persona, limit: limit, logger: logger}
}

// Start fetches the recent memory once and opens a session. A failed fetch
// is returned in MemoryStatus and the session starts with the persona pair only.
func (i *Initializer) Start(ctx context.Context, id string) (*ChatSession, MemoryStatus) {
	persona := LoadPersona(i.persona.File, i.persona.Preamble, i.persona.Fallback)

	var status MemoryStatus
	recent, err := i.store.Recent(ctx, i.limit)
	if err != nil {
		i.logger.Warn().Err(err).Str("session", id).Msg("recent memory not loaded")
		status.Err = err
		recent = nil
	} else {
		status.Loaded = true
		status.Turns = len(recent)
	}

	session := NewChatSession(id, BuildContext(persona, i.persona.Acknowledgement, recent))
	if i.persona.Greeting != "" {
		session.addDisplay(models.RoleAssistant, i.persona.Greeting)
	}

	i.logger.Info().
		Str("session", id).
		Bool("memoryLoaded", status.Loaded).
		Int("memoryTurns", status.Turns).
		Msg("session started")

	return session, status
}
