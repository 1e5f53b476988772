package models

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of the chat completion message list.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
