package interview

import (
	"context"
	"strings"

	"github.com/briefly-app/briefly/internal/domain"
	"github.com/briefly-app/briefly/internal/llm"
	"github.com/rs/zerolog/log"
)

// Compressor periodically condenses the transcript into a running summary
// to bound context growth. Compression failure is never fatal: the session
// is left exactly as it was.
type Compressor struct {
	summarizer llm.Summarizer
	every      int // fires when turns_used is a positive multiple of this
	keepRecent int // transcript entries preserved after compression
}

// NewCompressor creates a compressor. every defaults to 8 and keepRecent
// to 4 when zero.
func NewCompressor(summarizer llm.Summarizer, every, keepRecent int) *Compressor {
	if every <= 0 {
		every = 8
	}
	if keepRecent <= 0 {
		keepRecent = 4
	}
	return &Compressor{summarizer: summarizer, every: every, keepRecent: keepRecent}
}

// Due reports whether compression fires for the turn about to be
// processed. Evaluated on turns_used before that turn's own increment.
func (c *Compressor) Due(turnsUsed int) bool {
	return turnsUsed > 0 && turnsUsed%c.every == 0
}

// Compress summarizes the session's transcript and, on success, replaces
// compressed_context and truncates the transcript to its most recent
// entries. On any failure the session is left unchanged.
func (c *Compressor) Compress(ctx context.Context, sess *domain.InterviewSession) {
	doc := Flatten(sess.Transcript)
	if sess.CompressedContext != nil && *sess.CompressedContext != "" {
		doc = "Earlier summary:\n" + *sess.CompressedContext + "\n\n" + doc
	}

	summary, err := c.summarizer.Summarize(ctx, doc)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sess.ID.String()).Msg("transcript compression failed, skipping")
		return
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		log.Warn().Str("session_id", sess.ID.String()).Msg("transcript compression returned empty summary, skipping")
		return
	}

	sess.CompressedContext = &summary
	if len(sess.Transcript) > c.keepRecent {
		kept := make(domain.Transcript, c.keepRecent)
		copy(kept, sess.Transcript[len(sess.Transcript)-c.keepRecent:])
		sess.Transcript = kept
	}
}

// Flatten joins the transcript's text and the user's tool-result answers
// into one speaker-prefixed document for the summarizer.
func Flatten(transcript domain.Transcript) string {
	var sb strings.Builder
	for _, entry := range transcript {
		for _, block := range entry.Content {
			var text string
			switch block.Type {
			case domain.BlockText:
				text = block.Text
			case domain.BlockToolResult:
				if entry.Role == domain.RoleUser {
					text = block.ToolResult
				}
			}
			if text == "" {
				continue
			}
			sb.WriteString(string(entry.Role))
			sb.WriteString(": ")
			sb.WriteString(text)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
