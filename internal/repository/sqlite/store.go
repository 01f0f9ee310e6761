// Package sqlite provides a single-file store for single-binary and local
// development deployments. It implements the same domain interfaces as the
// postgres package; writes are serialized with immediate transactions, so
// the single-writer-per-session guarantee holds without row locks.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/briefly-app/briefly/internal/domain"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	briefing TEXT NOT NULL DEFAULT '',
	context_json TEXT NOT NULL DEFAULT '{}',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS interview_sessions (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL REFERENCES projects(id),
	version INTEGER NOT NULL,
	turn_budget INTEGER NOT NULL,
	turns_used INTEGER NOT NULL DEFAULT 0,
	phase TEXT NOT NULL,
	transcript TEXT NOT NULL DEFAULT '[]',
	compressed_context TEXT,
	client_brief TEXT,
	team_spec TEXT,
	status TEXT NOT NULL,
	total_input_tokens INTEGER NOT NULL DEFAULT 0,
	total_output_tokens INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	UNIQUE (project_id, version)
);

CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES interview_sessions(id),
	role TEXT NOT NULL,
	turn_number INTEGER NOT NULL,
	content TEXT NOT NULL DEFAULT '',
	tool_name TEXT NOT NULL DEFAULT '',
	tool_input TEXT,
	image_analysis TEXT,
	input_tokens INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, created_at);

CREATE TABLE IF NOT EXISTS handoffs (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES interview_sessions(id),
	reason TEXT NOT NULL,
	summary TEXT NOT NULL,
	suggested_questions TEXT NOT NULL DEFAULT '[]',
	suggested_role TEXT NOT NULL DEFAULT '',
	invite_token_hash TEXT NOT NULL,
	token_expires_at TIMESTAMP NOT NULL,
	accepted_at TIMESTAMP,
	accepted_by TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_handoffs_session ON handoffs(session_id);
`

// dbtx is the subset of database/sql shared by *sql.DB and *sql.Tx
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store owns the sqlite database and hands out repositories
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_txlock=immediate&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// sqlite allows a single writer; keep the pool honest about it
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply sqlite schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error { return s.db.Close() }

// Ping verifies database connectivity
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Repositories returns non-transactional repositories for read paths
func (s *Store) Repositories() domain.Repositories {
	return repos(s.db)
}

// Do implements domain.UnitOfWork. BEGIN IMMEDIATE takes the write lock
// up front, so concurrent turns serialize at transaction start.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin sqlite transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, repos(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sqlite transaction: %w", err)
	}
	return nil
}

func repos(db dbtx) domain.Repositories {
	return domain.Repositories{
		Sessions: &sessionRepo{db: db},
		Messages: &messageRepo{db: db},
		Handoffs: &handoffRepo{db: db},
		Projects: &projectRepo{db: db},
	}
}

// jsonCol marshals v for storage, mapping nil-able payloads to NULL
func jsonCol(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal json column: %w", err)
	}
	return string(b), nil
}

// ── sessions ────────────────────────────────────────────────────────────

type sessionRepo struct {
	db dbtx
}

const sessionCols = `id, project_id, version, turn_budget, turns_used, phase,
	transcript, compressed_context, client_brief, team_spec, status,
	total_input_tokens, total_output_tokens, created_at, updated_at`

func (r *sessionRepo) Create(ctx context.Context, s *domain.InterviewSession) error {
	transcript, err := jsonCol(s.Transcript)
	if err != nil {
		return err
	}
	var brief, spec any
	if s.ClientBrief != nil {
		if brief, err = jsonCol(s.ClientBrief); err != nil {
			return err
		}
	}
	if s.TeamSpec != nil {
		if spec, err = jsonCol(s.TeamSpec); err != nil {
			return err
		}
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO interview_sessions (`+sessionCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID.String(), s.ProjectID.String(), s.Version, s.TurnBudget, s.TurnsUsed, s.Phase,
		transcript, s.CompressedContext, brief, spec, s.Status,
		s.TotalInputTokens, s.TotalOutputTokens, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *sessionRepo) Get(ctx context.Context, id uuid.UUID) (*domain.InterviewSession, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionCols+` FROM interview_sessions WHERE id = ?`, id.String())
	return scanSession(row)
}

// GetForUpdate is identical to Get: sqlite's transaction already holds
// the database write lock.
func (r *sessionRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.InterviewSession, error) {
	return r.Get(ctx, id)
}

func (r *sessionRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]domain.InterviewSession, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionCols+` FROM interview_sessions WHERE project_id = ? ORDER BY version DESC`,
		projectID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.InterviewSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

func (r *sessionRepo) Update(ctx context.Context, s *domain.InterviewSession) error {
	transcript, err := jsonCol(s.Transcript)
	if err != nil {
		return err
	}
	var brief, spec any
	if s.ClientBrief != nil {
		if brief, err = jsonCol(s.ClientBrief); err != nil {
			return err
		}
	}
	if s.TeamSpec != nil {
		if spec, err = jsonCol(s.TeamSpec); err != nil {
			return err
		}
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE interview_sessions
		SET turns_used = ?, phase = ?, transcript = ?, compressed_context = ?,
		    client_brief = ?, team_spec = ?, status = ?,
		    total_input_tokens = ?, total_output_tokens = ?, updated_at = ?
		WHERE id = ?`,
		s.TurnsUsed, s.Phase, transcript, s.CompressedContext,
		brief, spec, s.Status,
		s.TotalInputTokens, s.TotalOutputTokens, s.UpdatedAt, s.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

func (r *sessionRepo) NextVersion(ctx context.Context, projectID uuid.UUID) (int, error) {
	var version int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM interview_sessions WHERE project_id = ?`,
		projectID.String()).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to compute next session version: %w", err)
	}
	return version, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.InterviewSession, error) {
	var s domain.InterviewSession
	var id, projectID, transcript string
	var brief, spec sql.NullString

	err := row.Scan(
		&id, &projectID, &s.Version, &s.TurnBudget, &s.TurnsUsed, &s.Phase,
		&transcript, &s.CompressedContext, &brief, &spec, &s.Status,
		&s.TotalInputTokens, &s.TotalOutputTokens, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	if s.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid session id: %w", err)
	}
	if s.ProjectID, err = uuid.Parse(projectID); err != nil {
		return nil, fmt.Errorf("invalid project id: %w", err)
	}
	if err := json.Unmarshal([]byte(transcript), &s.Transcript); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
	}
	if brief.Valid {
		s.ClientBrief = &domain.ClientBrief{}
		if err := json.Unmarshal([]byte(brief.String), s.ClientBrief); err != nil {
			return nil, fmt.Errorf("failed to unmarshal client brief: %w", err)
		}
	}
	if spec.Valid {
		s.TeamSpec = &domain.TeamSpec{}
		if err := json.Unmarshal([]byte(spec.String), s.TeamSpec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal team spec: %w", err)
		}
	}
	return &s, nil
}

// ── messages ────────────────────────────────────────────────────────────

type messageRepo struct {
	db dbtx
}

func (r *messageRepo) Create(ctx context.Context, m *domain.Message) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, session_id, role, turn_number, content, tool_name, tool_input, image_analysis, input_tokens, output_tokens, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID.String(), m.SessionID.String(), m.Role, m.TurnNumber, m.Content,
		m.ToolName, nullRaw(m.ToolInput), nullRaw(m.ImageAnalysis),
		m.InputTokens, m.OutputTokens, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func nullRaw(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func (r *messageRepo) ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, role, turn_number, content, tool_name, tool_input, image_analysis, input_tokens, output_tokens, created_at
		FROM messages WHERE session_id = ?
		ORDER BY created_at ASC, turn_number ASC
		LIMIT ?`, sessionID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		var id, sid string
		var toolInput, imageAnalysis sql.NullString
		if err := rows.Scan(&id, &sid, &m.Role, &m.TurnNumber, &m.Content,
			&m.ToolName, &toolInput, &imageAnalysis,
			&m.InputTokens, &m.OutputTokens, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if m.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid message id: %w", err)
		}
		if m.SessionID, err = uuid.Parse(sid); err != nil {
			return nil, fmt.Errorf("invalid session id: %w", err)
		}
		if toolInput.Valid {
			m.ToolInput = json.RawMessage(toolInput.String)
		}
		if imageAnalysis.Valid {
			m.ImageAnalysis = json.RawMessage(imageAnalysis.String)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *messageRepo) CountBySession(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE session_id = ?`, sessionID.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

func (r *messageRepo) AttachImageAnalysis(ctx context.Context, id uuid.UUID, analysis json.RawMessage) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE messages SET image_analysis = ? WHERE id = ?`, nullRaw(analysis), id.String())
	if err != nil {
		return fmt.Errorf("failed to attach image analysis: %w", err)
	}
	return nil
}

// ── handoffs ────────────────────────────────────────────────────────────

type handoffRepo struct {
	db dbtx
}

const handoffCols = `id, session_id, reason, summary, suggested_questions, suggested_role,
	invite_token_hash, token_expires_at, accepted_at, accepted_by, created_at`

func (r *handoffRepo) Create(ctx context.Context, h *domain.Handoff) error {
	var pending int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM handoffs
		WHERE session_id = ? AND accepted_at IS NULL AND token_expires_at > ?`,
		h.SessionID.String(), time.Now()).Scan(&pending)
	if err != nil {
		return fmt.Errorf("failed to check pending handoffs: %w", err)
	}
	if pending > 0 {
		return domain.ErrHandoffPending
	}

	questions, err := jsonCol(h.SuggestedQuestions)
	if err != nil {
		return err
	}
	if questions == nil {
		questions = "[]"
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO handoffs (`+handoffCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID.String(), h.SessionID.String(), h.Reason, h.Summary, questions,
		h.SuggestedRole, h.InviteTokenHash, h.TokenExpiresAt,
		h.AcceptedAt, h.AcceptedBy, h.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create handoff: %w", err)
	}
	return nil
}

func (r *handoffRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Handoff, error) {
	return scanHandoff(r.db.QueryRowContext(ctx,
		`SELECT `+handoffCols+` FROM handoffs WHERE id = ?`, id.String()))
}

func (r *handoffRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Handoff, error) {
	return scanHandoff(r.db.QueryRowContext(ctx,
		`SELECT `+handoffCols+` FROM handoffs WHERE invite_token_hash = ?`, tokenHash))
}

func (r *handoffRepo) LatestAccepted(ctx context.Context, sessionID uuid.UUID) (*domain.Handoff, error) {
	return scanHandoff(r.db.QueryRowContext(ctx, `
		SELECT `+handoffCols+` FROM handoffs
		WHERE session_id = ? AND accepted_at IS NOT NULL
		ORDER BY accepted_at DESC LIMIT 1`, sessionID.String()))
}

func (r *handoffRepo) Update(ctx context.Context, h *domain.Handoff) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE handoffs SET accepted_at = ?, accepted_by = ? WHERE id = ?`,
		h.AcceptedAt, h.AcceptedBy, h.ID.String())
	if err != nil {
		return fmt.Errorf("failed to update handoff: %w", err)
	}
	return nil
}

func scanHandoff(row rowScanner) (*domain.Handoff, error) {
	var h domain.Handoff
	var id, sid, questions string
	err := row.Scan(&id, &sid, &h.Reason, &h.Summary, &questions,
		&h.SuggestedRole, &h.InviteTokenHash, &h.TokenExpiresAt,
		&h.AcceptedAt, &h.AcceptedBy, &h.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan handoff: %w", err)
	}
	if h.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid handoff id: %w", err)
	}
	if h.SessionID, err = uuid.Parse(sid); err != nil {
		return nil, fmt.Errorf("invalid session id: %w", err)
	}
	if err := json.Unmarshal([]byte(questions), &h.SuggestedQuestions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal suggested questions: %w", err)
	}
	return &h, nil
}

// ── projects ────────────────────────────────────────────────────────────

type projectRepo struct {
	db dbtx
}

// projectContext bundles the structured context fields into one JSON
// column; sqlite has no array type.
type projectContext struct {
	TechStack   []string `json:"tech_stack,omitempty"`
	Audience    string   `json:"audience,omitempty"`
	Constraints []string `json:"constraints,omitempty"`
	Decisions   []string `json:"decisions,omitempty"`
	OpenThreads []string `json:"open_threads,omitempty"`
}

func (r *projectRepo) Create(ctx context.Context, p *domain.Project) error {
	contextJSON, err := jsonCol(projectContext{
		TechStack: p.TechStack, Audience: p.Audience, Constraints: p.Constraints,
		Decisions: p.Decisions, OpenThreads: p.OpenThreads,
	})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, briefing, context_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID.String(), p.Name, p.Briefing, contextJSON, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

func (r *projectRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	var p domain.Project
	var pid, contextJSON string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, briefing, context_json, created_at, updated_at
		FROM projects WHERE id = ?`, id.String()).
		Scan(&pid, &p.Name, &p.Briefing, &contextJSON, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	if p.ID, err = uuid.Parse(pid); err != nil {
		return nil, fmt.Errorf("invalid project id: %w", err)
	}
	var c projectContext
	if err := json.Unmarshal([]byte(contextJSON), &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal project context: %w", err)
	}
	p.TechStack, p.Audience, p.Constraints = c.TechStack, c.Audience, c.Constraints
	p.Decisions, p.OpenThreads = c.Decisions, c.OpenThreads
	return &p, nil
}

func (r *projectRepo) Update(ctx context.Context, p *domain.Project) error {
	contextJSON, err := jsonCol(projectContext{
		TechStack: p.TechStack, Audience: p.Audience, Constraints: p.Constraints,
		Decisions: p.Decisions, OpenThreads: p.OpenThreads,
	})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE projects SET name = ?, briefing = ?, context_json = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.Briefing, contextJSON, p.UpdatedAt, p.ID.String())
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	return nil
}
