package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"soyeon/services"
	"soyeon/web"
)

const maxMemoryLimit = 200

type ChatController struct {
	sessions     *services.SessionManager
	chat         *services.ChatService
	store        services.TurnStore
	memoryLimit  int
	errorMessage string
	logger       zerolog.Logger
	upgrader     websocket.Upgrader
}

type ChatControllerConfig struct {
	Sessions     *services.SessionManager
	Chat         *services.ChatService
	Store        services.TurnStore
	MemoryLimit  int
	ErrorMessage string // shown inline when the model fails
	Logger       zerolog.Logger
}

type messageRequest struct {
	Message string `json:"message" binding:"required"`
}

func NewChatController(cfg ChatControllerConfig) *ChatController {
	return &ChatController{
		sessions:     cfg.Sessions,
		chat:         cfg.Chat,
		store:        cfg.Store,
		memoryLimit:  cfg.MemoryLimit,
		errorMessage: cfg.ErrorMessage,
		logger:       cfg.Logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *ChatController) Index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", web.Index)
}

func (h *ChatController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"model":    h.chat.Model().Name(),
		"sessions": h.sessions.Len(),
	})
}

// CreateSession starts a session seeded with the persona and recent memory.
func (h *ChatController) CreateSession(c *gin.Context) {
	session, status, err := h.sessions.Create(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	memory := gin.H{"loaded": status.Loaded, "turns": status.Turns}
	if status.Err != nil {
		memory["error"] = status.Err.Error()
	}

	c.JSON(http.StatusCreated, gin.H{
		"session_id": session.ID,
		"messages":   session.Messages(),
		"memory":     memory,
	})
}

func (h *ChatController) DeleteSession(c *gin.Context) {
	if err := h.sessions.Delete(c.Param("id")); err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ChatController) GetMessages(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": session.Messages()})
}

func (h *ChatController) PostMessage(c *gin.Context) {
	var request messageRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	session, ok := h.session(c)
	if !ok {
		return
	}

	exchange, err := h.chat.Exchange(c.Request.Context(), session, request.Message)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":  h.errorMessage,
			"detail": err.Error(),
			"saved":  exchange.UserSaved,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reply":       exchange.Reply,
		"timestamp":   exchange.Timestamp.Format(time.RFC3339),
		"saved":       exchange.UserSaved && exchange.ReplySaved,
		"user_saved":  exchange.UserSaved,
		"reply_saved": exchange.ReplySaved,
	})
}

type socketFrame struct {
	Type      string `json:"type"` // reply, error
	Reply     string `json:"reply,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Saved     bool   `json:"saved"`
}

// ChatSocket serves the same exchange over a websocket, one frame per message.
func (h *ChatController) ChatSocket(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to upgrade connection")
		return
	}
	defer conn.Close()

	for {
		var request messageRequest
		if err := conn.ReadJSON(&request); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn().Err(err).Str("session", session.ID).Msg("websocket closed")
			}
			return
		}
		if request.Message == "" {
			if err := conn.WriteJSON(socketFrame{Type: "error", Error: "message is required"}); err != nil {
				return
			}
			continue
		}

		frame := socketFrame{Type: "reply"}
		exchange, err := h.chat.Exchange(c.Request.Context(), session, request.Message)
		if err != nil {
			frame = socketFrame{Type: "error", Error: h.errorMessage, Saved: exchange.UserSaved}
		} else {
			frame.Reply = exchange.Reply
			frame.Timestamp = exchange.Timestamp.Format(time.RFC3339)
			frame.Saved = exchange.UserSaved && exchange.ReplySaved
		}

		if err := conn.WriteJSON(frame); err != nil {
			h.logger.Warn().Err(err).Str("session", session.ID).Msg("failed to write frame")
			return
		}
	}
}

// GetMemory returns the most recent stored turns.
func (h *ChatController) GetMemory(c *gin.Context) {
	limit := h.memoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > maxMemoryLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 0 and 200"})
			return
		}
		limit = n
	}

	turns, err := h.store.Recent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to fetch memory")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "memory store unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"turns": turns})
}

func (h *ChatController) session(c *gin.Context) (*services.ChatSession, bool) {
	session, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return nil, false
	}
	return session, true
}
