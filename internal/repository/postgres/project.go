package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/briefly-app/briefly/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProjectRepository implements domain.ProjectRepository
type ProjectRepository struct {
	db DBTX
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db DBTX) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	query := `
		INSERT INTO projects (id, name, briefing, tech_stack, audience, constraints, decisions, open_threads, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		project.ID,
		project.Name,
		project.Briefing,
		project.TechStack,
		project.Audience,
		project.Constraints,
		project.Decisions,
		project.OpenThreads,
		project.CreatedAt,
		project.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

func (r *ProjectRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	query := `
		SELECT id, name, briefing, tech_stack, audience, constraints, decisions, open_threads, created_at, updated_at
		FROM projects
		WHERE id = $1
	`
	var p domain.Project
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Briefing,
		&p.TechStack,
		&p.Audience,
		&p.Constraints,
		&p.Decisions,
		&p.OpenThreads,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &p, nil
}

func (r *ProjectRepository) Update(ctx context.Context, project *domain.Project) error {
	query := `
		UPDATE projects
		SET name = $1, briefing = $2, tech_stack = $3, audience = $4,
		    constraints = $5, decisions = $6, open_threads = $7, updated_at = $8
		WHERE id = $9
	`
	_, err := r.db.Exec(ctx, query,
		project.Name,
		project.Briefing,
		project.TechStack,
		project.Audience,
		project.Constraints,
		project.Decisions,
		project.OpenThreads,
		project.UpdatedAt,
		project.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	return nil
}
