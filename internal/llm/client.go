package llm

import (
	"context"

	"github.com/briefly-app/briefly/internal/domain"
)

// SystemSegment is one part of the two-part system prompt. Cacheable
// segments are identical across turns and eligible for provider-side
// prompt caching.
type SystemSegment struct {
	Text      string
	Cacheable bool
}

// ToolSchema describes one tool offered to the model (JSON Schema format)
type ToolSchema struct {
	Name        string
	Description string
	Parameters  map[string]any
	Required    []string
}

// StopReason reports why the model stopped generating
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopToolUse   StopReason = "tool_use"
	StopMaxTokens StopReason = "max_tokens"
	StopRefusal   StopReason = "refusal"
)

// Usage records token consumption for one call
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Request is the unified model-call request
type Request struct {
	System          []SystemSegment
	Messages        []domain.TurnEntry
	Model           string
	Tools           []ToolSchema
	MaxOutputTokens int
}

// Response is the unified model-call result
type Response struct {
	Content    []domain.ContentBlock
	StopReason StopReason
	Usage      Usage
}

// Client is the model-call collaborator. Implementations own transport
// timeouts; a timeout surfaces as an ordinary call failure.
type Client interface {
	Call(ctx context.Context, req Request) (*Response, error)
}

// Summarizer condenses a flattened transcript document into a running
// summary. Implemented by the light-tier model through the main Client and,
// optionally, by a Gemini-backed collaborator.
type Summarizer interface {
	Summarize(ctx context.Context, doc string) (string, error)
}
