package entity

import "time"

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationEntry is one turn of the question/answer history. Entries are
// append-only; a user entry and its answering assistant entry are always
// appended as an adjacent pair.
type ConversationEntry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// BackendKind selects the AI provider.
type BackendKind string

const (
	BackendLocal BackendKind = "local"
	BackendCloud BackendKind = "cloud"
)

// BackendConfig is the caller-supplied backend selection. APIKey is required
// for the cloud kind only.
type BackendConfig struct {
	Kind   BackendKind `json:"kind"`
	APIKey string      `json:"api_key,omitempty"`
}
