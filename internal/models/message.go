package models

// Role identifies the author of a log entry
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry of the chat log.
// Entries are never mutated after creation, except the assistant placeholder
// which is overwritten once when its response arrives.
type Message struct {
	ID   int    `json:"id"`
	Role Role   `json:"role"`
	Text string `json:"text"`
	// Failed marks a placeholder settled with a degraded text
	Failed bool `json:"failed,omitempty"`
}
