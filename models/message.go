package models

import "time"

// DisplayMessage is what the chat page renders. The greeting bubble lives
// here but never reaches the store.
type DisplayMessage struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Speakers maps roles to the labels written in the store's role column.
type Speakers struct {
	User      string `json:"user" mapstructure:"user"`
	Assistant string `json:"assistant" mapstructure:"assistant"`
}

func (s Speakers) Label(role Role) string {
	if role == RoleUser {
		return s.User
	}
	return s.Assistant
}

// RoleOf maps a stored label back to a role. Anything that is not the user
// label is treated as the assistant.
func (s Speakers) RoleOf(label string) Role {
	if label == s.User {
		return RoleUser
	}
	return RoleAssistant
}
