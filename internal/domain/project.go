package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Project owns interview sessions and carries the context the interviewer
// is briefed with on every turn.
type Project struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Briefing string    `json:"briefing"`

	// Accumulated structured context, folded into the dynamic prompt
	TechStack   []string `json:"tech_stack,omitempty"`
	Audience    string   `json:"audience,omitempty"`
	Constraints []string `json:"constraints,omitempty"`
	Decisions   []string `json:"decisions,omitempty"`
	OpenThreads []string `json:"open_threads,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Participant identifies who is answering the interview right now
type Participant struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// ProjectRepository defines the interface for project storage
type ProjectRepository interface {
	Create(ctx context.Context, project *Project) error
	Get(ctx context.Context, id uuid.UUID) (*Project, error)
	Update(ctx context.Context, project *Project) error
}
