package model

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is one turn from the client. Messages carries the prior
// conversation as the client saw it; Message is the new user input.
type ChatRequest struct {
	Message   string        `json:"message"`
	Messages  []ChatMessage `json:"messages"`
	SessionID string        `json:"session_id"`
	Timestamp float64       `json:"timestamp"`
}

// ChatLog is one persisted exchange. Partial marks transcripts cut short by
// a client disconnect.
type ChatLog struct {
	ID               int64   `json:"id"`
	SessionID        string  `json:"session_id"`
	UserMessage      string  `json:"user_message"`
	AssistantMessage string  `json:"assistant_message"`
	Partial          bool    `json:"partial"`
	Timestamp        float64 `json:"timestamp"`
	CreatedAt        int64   `json:"created_at"`
}
