package service

import (
	"context"
	"time"

	"github.com/briefly-app/briefly/internal/domain"
	"github.com/google/uuid"
)

// ProjectService manages the projects that own interview sessions
type ProjectService struct {
	uow domain.UnitOfWork
}

// NewProjectService creates the project service
func NewProjectService(uow domain.UnitOfWork) *ProjectService {
	return &ProjectService{uow: uow}
}

// CreateProjectInput carries the fields a caller may set at creation
type CreateProjectInput struct {
	Name        string
	Briefing    string
	TechStack   []string
	Audience    string
	Constraints []string
}

// Create creates a new project
func (s *ProjectService) Create(ctx context.Context, in CreateProjectInput) (*domain.Project, error) {
	now := time.Now()
	project := &domain.Project{
		ID:          uuid.New(),
		Name:        in.Name,
		Briefing:    in.Briefing,
		TechStack:   in.TechStack,
		Audience:    in.Audience,
		Constraints: in.Constraints,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.uow.Do(ctx, func(ctx context.Context, repos domain.Repositories) error {
		return repos.Projects.Create(ctx, project)
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// Get fetches a project by id
func (s *ProjectService) Get(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	var project *domain.Project
	err := s.uow.Do(ctx, func(ctx context.Context, repos domain.Repositories) error {
		var err error
		project, err = repos.Projects.Get(ctx, id)
		return err
	})
	return project, err
}

// Update persists changes to the project's context fields
func (s *ProjectService) Update(ctx context.Context, project *domain.Project) error {
	project.UpdatedAt = time.Now()
	return s.uow.Do(ctx, func(ctx context.Context, repos domain.Repositories) error {
		return repos.Projects.Update(ctx, project)
	})
}
