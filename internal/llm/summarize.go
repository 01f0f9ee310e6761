package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/briefly-app/briefly/internal/domain"
)

// SummarizeInstruction is the fixed instruction sent with every
// compression call, regardless of which collaborator performs it.
const SummarizeInstruction = `Condense the interview transcript below into a running summary. Preserve, under these headings:
- Decisions: every decision made, with its rationale
- Confirmed requirements: constraints the user stated, kept verbatim
- Open threads: topics deferred, with the reason they were deferred
- Conflicts: contradictions raised, marked resolved or unresolved
- Communication style: the user's style, in one word

Discard pleasantries and question/answer pairs that are fully resolved and already reflected in a decision or requirement. Output only the summary.`

// ClientSummarizer summarizes through the main model-call client using a
// dedicated lightweight model.
type ClientSummarizer struct {
	Client Client
	Model  string
}

// Summarize sends the fixed instruction plus the flattened transcript and
// returns the concatenated text content of the response.
func (s *ClientSummarizer) Summarize(ctx context.Context, doc string) (string, error) {
	resp, err := s.Client.Call(ctx, Request{
		Model:           s.Model,
		MaxOutputTokens: 2048,
		Messages: []domain.TurnEntry{{
			Role:    domain.RoleUser,
			Content: []domain.ContentBlock{domain.TextBlock(SummarizeInstruction + "\n\nTranscript:\n" + doc)},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("summarize call failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == domain.BlockText {
			sb.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
