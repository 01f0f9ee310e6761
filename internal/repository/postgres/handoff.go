package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/briefly-app/briefly/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// HandoffRepository implements domain.HandoffRepository
type HandoffRepository struct {
	db DBTX
}

// NewHandoffRepository creates a new handoff repository
func NewHandoffRepository(db DBTX) *HandoffRepository {
	return &HandoffRepository{db: db}
}

const handoffColumns = `
	id, session_id, reason, summary, suggested_questions, suggested_role,
	invite_token_hash, token_expires_at, accepted_at, accepted_by, created_at
`

// Create inserts a handoff after verifying the session has no other
// pending one. The pending check runs inside the caller's transaction,
// so the session row lock held by the turn makes it race-free.
func (r *HandoffRepository) Create(ctx context.Context, handoff *domain.Handoff) error {
	var pending int
	query := `
		SELECT COUNT(*) FROM handoffs
		WHERE session_id = $1 AND accepted_at IS NULL AND token_expires_at > $2
	`
	if err := r.db.QueryRow(ctx, query, handoff.SessionID, time.Now()).Scan(&pending); err != nil {
		return fmt.Errorf("failed to check pending handoffs: %w", err)
	}
	if pending > 0 {
		return domain.ErrHandoffPending
	}

	insert := `
		INSERT INTO handoffs (` + handoffColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.Exec(ctx, insert,
		handoff.ID,
		handoff.SessionID,
		handoff.Reason,
		handoff.Summary,
		handoff.SuggestedQuestions,
		handoff.SuggestedRole,
		handoff.InviteTokenHash,
		handoff.TokenExpiresAt,
		handoff.AcceptedAt,
		handoff.AcceptedBy,
		handoff.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create handoff: %w", err)
	}
	return nil
}

func (r *HandoffRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Handoff, error) {
	query := `SELECT ` + handoffColumns + ` FROM handoffs WHERE id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

func (r *HandoffRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Handoff, error) {
	query := `SELECT ` + handoffColumns + ` FROM handoffs WHERE invite_token_hash = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, tokenHash))
}

// LatestAccepted returns the most recently accepted handoff of a session,
// or ErrNotFound when none was ever accepted.
func (r *HandoffRepository) LatestAccepted(ctx context.Context, sessionID uuid.UUID) (*domain.Handoff, error) {
	query := `
		SELECT ` + handoffColumns + ` FROM handoffs
		WHERE session_id = $1 AND accepted_at IS NOT NULL
		ORDER BY accepted_at DESC
		LIMIT 1
	`
	return r.scanOne(r.db.QueryRow(ctx, query, sessionID))
}

func (r *HandoffRepository) Update(ctx context.Context, handoff *domain.Handoff) error {
	query := `
		UPDATE handoffs
		SET accepted_at = $1, accepted_by = $2
		WHERE id = $3
	`
	_, err := r.db.Exec(ctx, query, handoff.AcceptedAt, handoff.AcceptedBy, handoff.ID)
	if err != nil {
		return fmt.Errorf("failed to update handoff: %w", err)
	}
	return nil
}

func (r *HandoffRepository) scanOne(row pgx.Row) (*domain.Handoff, error) {
	var h domain.Handoff
	if err := row.Scan(
		&h.ID,
		&h.SessionID,
		&h.Reason,
		&h.Summary,
		&h.SuggestedQuestions,
		&h.SuggestedRole,
		&h.InviteTokenHash,
		&h.TokenExpiresAt,
		&h.AcceptedAt,
		&h.AcceptedBy,
		&h.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get handoff: %w", err)
	}
	return &h, nil
}
