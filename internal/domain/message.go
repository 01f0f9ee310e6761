package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Message is an immutable audit record of one turn's user or assistant
// content, kept for UI replay. The only permitted mutation after creation
// is attaching a late-arriving image-analysis payload.
type Message struct {
	ID         uuid.UUID   `json:"id"`
	SessionID  uuid.UUID   `json:"session_id"`
	Role       MessageRole `json:"role"`
	TurnNumber int         `json:"turn_number"`
	Content    string      `json:"content"`

	// First tool call of the turn, kept for UI rendering
	ToolName  string          `json:"tool_name,omitempty"`
	ToolInput json.RawMessage `json:"tool_input,omitempty"`

	ImageAnalysis json.RawMessage `json:"image_analysis,omitempty"`

	// Token counts, assistant messages only
	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// MessageRepository defines the interface for message storage
type MessageRepository interface {
	Create(ctx context.Context, message *Message) error
	ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]Message, error)
	CountBySession(ctx context.Context, sessionID uuid.UUID) (int, error)
	AttachImageAnalysis(ctx context.Context, id uuid.UUID, analysis json.RawMessage) error
}
