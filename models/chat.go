package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is one prior message passed to the retrieval orchestrator
// as ephemeral context. Ordering is chronological and caller-supplied.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatSession groups a sequence of question/answer messages, optionally
// scoped to one document.
type ChatSession struct {
	ID         uuid.UUID  `json:"id"`
	Username   string     `json:"username"`
	Title      string     `json:"title"`
	DocumentID *uuid.UUID `json:"document_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ChatMessage is a single stored message within a session. Meta carries the
// assistant's answer metadata (referenced clauses, risk, confidence).
type ChatMessage struct {
	ID        int64                  `json:"id"`
	SessionID uuid.UUID              `json:"session_id"`
	Role      string                 `json:"role"`
	Content   string                 `json:"content"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}
