package models

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one message of the rolling conversation.
type ConversationTurn struct {
	Role    Role
	Content string
	Time    time.Time
}

// Author is the display name used in exports.
func (t ConversationTurn) Author() string {
	if t.Role == RoleUser {
		return "You"
	}
	return "Code Companion"
}
