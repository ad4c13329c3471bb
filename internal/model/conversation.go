package model

import "time"

// MessageRole is who authored a message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Message is one turn in a conversation.
type Message struct {
	ID               string            `json:"id"`
	ConversationID   string            `json:"conversation_id"`
	Role             MessageRole       `json:"role"`
	Content          string            `json:"content"`
	Timestamp        time.Time         `json:"timestamp"`
	MentalModelsUsed []string          `json:"mental_models_used,omitempty"`
	SourcesCited     []string          `json:"sources_cited,omitempty"`
	ContextUsed      map[string]string `json:"context_used,omitempty"`
}

// Conversation is a session with the advisor.
type Conversation struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	Title          string     `json:"title,omitempty"`
	SessionMood    string     `json:"session_mood,omitempty"`
	SessionContext string     `json:"session_context,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	Messages       []Message  `json:"messages,omitempty"`
}
