package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/briefly-app/briefly/internal/llm"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Summarizer implements llm.Summarizer on Gemini. Used as the compression
// collaborator when a Gemini key is configured; the main interview turns
// never route here.
type Summarizer struct {
	apiKey string
	model  string
}

// NewSummarizer creates a Gemini-backed summarizer
func NewSummarizer(apiKey, model string) *Summarizer {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &Summarizer{apiKey: apiKey, model: model}
}

// Summarize condenses the flattened transcript with the fixed instruction
func (s *Summarizer) Summarize(ctx context.Context, doc string) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(s.apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(s.model)
	var temperature float32 = 0.0
	model.Temperature = &temperature

	resp, err := model.GenerateContent(ctx, genai.Text(llm.SummarizeInstruction+"\n\nTranscript:\n"+doc))
	if err != nil {
		return "", fmt.Errorf("gemini generation error: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
