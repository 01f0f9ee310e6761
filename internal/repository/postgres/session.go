package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/briefly-app/briefly/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SessionRepository implements domain.SessionRepository
type SessionRepository struct {
	db DBTX
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `
	id, project_id, version, turn_budget, turns_used, phase,
	transcript, compressed_context, client_brief, team_spec, status,
	total_input_tokens, total_output_tokens, created_at, updated_at
`

func (r *SessionRepository) Create(ctx context.Context, session *domain.InterviewSession) error {
	transcript, brief, spec, err := marshalSessionPayloads(session)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO interview_sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = r.db.Exec(ctx, query,
		session.ID,
		session.ProjectID,
		session.Version,
		session.TurnBudget,
		session.TurnsUsed,
		session.Phase,
		transcript,
		session.CompressedContext,
		brief,
		spec,
		session.Status,
		session.TotalInputTokens,
		session.TotalOutputTokens,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id uuid.UUID) (*domain.InterviewSession, error) {
	return r.get(ctx, id, "")
}

// GetForUpdate loads the session under FOR UPDATE, blocking any other
// in-flight turn on the same session until the transaction ends.
func (r *SessionRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.InterviewSession, error) {
	return r.get(ctx, id, "FOR UPDATE")
}

func (r *SessionRepository) get(ctx context.Context, id uuid.UUID, suffix string) (*domain.InterviewSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM interview_sessions WHERE id = $1 ` + suffix

	row := r.db.QueryRow(ctx, query, id)
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

func (r *SessionRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]domain.InterviewSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM interview_sessions WHERE project_id = $1 ORDER BY version DESC`

	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.InterviewSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *session)
	}
	return sessions, nil
}

func (r *SessionRepository) Update(ctx context.Context, session *domain.InterviewSession) error {
	transcript, brief, spec, err := marshalSessionPayloads(session)
	if err != nil {
		return err
	}

	query := `
		UPDATE interview_sessions
		SET turns_used = $1, phase = $2, transcript = $3, compressed_context = $4,
		    client_brief = $5, team_spec = $6, status = $7,
		    total_input_tokens = $8, total_output_tokens = $9, updated_at = $10
		WHERE id = $11
	`
	_, err = r.db.Exec(ctx, query,
		session.TurnsUsed,
		session.Phase,
		transcript,
		session.CompressedContext,
		brief,
		spec,
		session.Status,
		session.TotalInputTokens,
		session.TotalOutputTokens,
		session.UpdatedAt,
		session.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

// NextVersion returns the next per-project session version
func (r *SessionRepository) NextVersion(ctx context.Context, projectID uuid.UUID) (int, error) {
	var version int
	query := `SELECT COALESCE(MAX(version), 0) + 1 FROM interview_sessions WHERE project_id = $1`
	if err := r.db.QueryRow(ctx, query, projectID).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to compute next session version: %w", err)
	}
	return version, nil
}

func marshalSessionPayloads(session *domain.InterviewSession) (transcript, brief, spec []byte, err error) {
	transcript, err = json.Marshal(session.Transcript)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal transcript: %w", err)
	}
	if session.ClientBrief != nil {
		brief, err = json.Marshal(session.ClientBrief)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal client brief: %w", err)
		}
	}
	if session.TeamSpec != nil {
		spec, err = json.Marshal(session.TeamSpec)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal team spec: %w", err)
		}
	}
	return transcript, brief, spec, nil
}

func scanSession(row pgx.Row) (*domain.InterviewSession, error) {
	var s domain.InterviewSession
	var transcript, brief, spec []byte

	if err := row.Scan(
		&s.ID,
		&s.ProjectID,
		&s.Version,
		&s.TurnBudget,
		&s.TurnsUsed,
		&s.Phase,
		&transcript,
		&s.CompressedContext,
		&brief,
		&spec,
		&s.Status,
		&s.TotalInputTokens,
		&s.TotalOutputTokens,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if len(transcript) > 0 {
		if err := json.Unmarshal(transcript, &s.Transcript); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
		}
	}
	if len(brief) > 0 {
		s.ClientBrief = &domain.ClientBrief{}
		if err := json.Unmarshal(brief, s.ClientBrief); err != nil {
			return nil, fmt.Errorf("failed to unmarshal client brief: %w", err)
		}
	}
	if len(spec) > 0 {
		s.TeamSpec = &domain.TeamSpec{}
		if err := json.Unmarshal(spec, s.TeamSpec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal team spec: %w", err)
		}
	}
	return &s, nil
}
