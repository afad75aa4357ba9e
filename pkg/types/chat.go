package types

import "time"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged unit of conversation text. Messages are values;
// once appended to a conversation they are never modified or reordered.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// GenParams are the generation knobs sent with every completion request.
type GenParams struct {
	Temperature float64
	MaxTokens   int
}
