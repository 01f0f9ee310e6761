package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Handoff is a request, raised by the assistant, to transfer the interview
// to a different participant. A handoff is pending from token issue until
// acceptance or token expiry; at most one pending handoff may exist per
// session.
type Handoff struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`

	Reason             string   `json:"reason"`
	Summary            string   `json:"summary"`
	SuggestedQuestions []string `json:"suggested_questions,omitempty"`
	SuggestedRole      string   `json:"suggested_role,omitempty"`

	// InviteTokenHash is the SHA-256 of the invite token; the plaintext
	// token leaves the system exactly once, in the creation response.
	InviteTokenHash string    `json:"-"`
	TokenExpiresAt  time.Time `json:"token_expires_at"`

	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	AcceptedBy string     `json:"accepted_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Pending reports whether the handoff still blocks new handoffs: token
// issued, not yet accepted, not yet expired.
func (h *Handoff) Pending(now time.Time) bool {
	return h.AcceptedAt == nil && now.Before(h.TokenExpiresAt)
}

// HandoffRepository defines the interface for handoff storage.
// Create must reject a second pending handoff for the same session with
// ErrHandoffPending.
type HandoffRepository interface {
	Create(ctx context.Context, handoff *Handoff) error
	Get(ctx context.Context, id uuid.UUID) (*Handoff, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*Handoff, error)
	LatestAccepted(ctx context.Context, sessionID uuid.UUID) (*Handoff, error)
	Update(ctx context.Context, handoff *Handoff) error
}
