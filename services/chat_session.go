package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"soyeon/models"
)

// ChatSession is the per-visitor conversation state: the seeded model
// history and the transcript shown on the page. Sends are serialised.
type ChatSession struct {
	ID        string
	CreatedAt time.Time

	lastUsed atomic.Int64 // unix nanos, read without mu

	mu      sync.Mutex
	history []models.Turn
	display []models.DisplayMessage
}

func NewChatSession(id string, history []models.Turn) *ChatSession {
	session := &ChatSession{
		ID:        id,
		CreatedAt: time.Now(),
		history:   history,
	}
	session.lastUsed.Store(session.CreatedAt.UnixNano())
	return session
}

// LastUsed is when the session was last sent to or read.
func (s *ChatSession) LastUsed() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

func (s *ChatSession) touch() time.Time {
	now := time.Now()
	s.lastUsed.Store(now.UnixNano())
	return now
}

// Send asks the model for a reply. History only grows when the model answers.
func (s *ChatSession) Send(ctx context.Context, model ChatModel, message string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.display = append(s.display, models.DisplayMessage{
		Role: models.RoleUser, Content: message, Timestamp: s.touch(),
	})

	reply, err := model.Reply(ctx, s.history, message)
	if err != nil {
		return "", err
	}

	s.history = append(s.history,
		models.NewTurn(models.RoleUser, message),
		models.NewTurn(models.RoleAssistant, reply),
	)
	s.display = append(s.display, models.DisplayMessage{
		Role: models.RoleAssistant, Content: reply, Timestamp: time.Now(),
	})
	return reply, nil
}

// History returns a copy of the model history.
func (s *ChatSession) History() []models.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Turn, len(s.history))
	copy(out, s.history)
	return out
}

// Messages returns a copy of the displayed transcript.
func (s *ChatSession) Messages() []models.DisplayMessage {
	s.touch()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.DisplayMessage, len(s.display))
	copy(out, s.display)
	return out
}

func (s *ChatSession) addDisplay(role models.Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.display = append(s.display, models.DisplayMessage{
		Role: role, Content: content, Timestamp: time.Now(),
	})
}
