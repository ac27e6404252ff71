package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"soyeon/models"
)

// Exchange is the outcome of one user message. Store and model outcomes are
// reported separately: a reply can exist without having been persisted.
type Exchange struct {
	Reply      string    `json:"reply"`
	Timestamp  time.Time `json:"timestamp"`
	UserSaved  bool      `json:"user_saved"`
	ReplySaved bool      `json:"reply_saved"`
}

// ChatService runs the user message → log → model → log sequence.
type ChatService struct {
	model   ChatModel
	turns   *TurnLogger
	timeout time.Duration
	logger  zerolog.Logger
}

func NewChatService(model ChatModel, turns *TurnLogger, timeout time.Duration, logger zerolog.Logger) *ChatService {
	return &ChatService{model: model, turns: turns, timeout: timeout, logger: logger}
}

func (c *ChatService) Model() ChatModel {
	return c.model
}

// Exchange records the user message, asks the model and records the reply.
// Only a model failure is returned as an error (wrapping ErrModelUnavailable).
func (c *ChatService) Exchange(ctx context.Context, session *ChatSession, message string) (*Exchange, error) {
	_, userErr := c.turns.Record(ctx, models.RoleUser, message)

	modelCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		modelCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	reply, err := session.Send(modelCtx, c.model, message)
	if err != nil {
		c.logger.Error().
			Err(err).
			Str("session", session.ID).
			Str("model", c.model.Name()).
			Msg("model reply failed")
		return &Exchange{UserSaved: userErr == nil}, err
	}

	turn, replyErr := c.turns.Record(ctx, models.RoleAssistant, reply)

	return &Exchange{
		Reply:      reply,
		Timestamp:  turn.Timestamp,
		UserSaved:  userErr == nil,
		ReplySaved: replyErr == nil,
	}, nil
}
