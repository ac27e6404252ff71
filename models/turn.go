package models

import (
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one stored conversation entry. Turns are append-only.
type Turn struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
}

func NewTurn(role Role, content string) Turn {
	return Turn{Role: role, Content: content}
}

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}
