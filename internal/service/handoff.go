package service

import (
	"context"
	"errors"
	"time"

	"github.com/briefly-app/briefly/internal/domain"
	"github.com/briefly-app/briefly/internal/security"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// HandoffService resolves invite tokens and records acceptance
type HandoffService struct {
	uow domain.UnitOfWork
}

// NewHandoffService creates the handoff service
func NewHandoffService(uow domain.UnitOfWork) *HandoffService {
	return &HandoffService{uow: uow}
}

// AcceptedHandoff is the outcome of redeeming an invite token. ProjectID
// identifies the project the joining participant now has access to.
type AcceptedHandoff struct {
	Handoff   *domain.Handoff
	ProjectID uuid.UUID
}

// Accept redeems an invite token for the named participant. A token can be
// redeemed once, before its expiry; afterwards the session's prompts brief
// the model on the takeover.
func (s *HandoffService) Accept(ctx context.Context, token string, participant domain.Participant) (*AcceptedHandoff, error) {
	if !security.ValidInviteToken(token) {
		return nil, domain.ErrInvalidToken
	}
	hash := security.HashInviteToken(token)

	var handoff *domain.Handoff
	var projectID uuid.UUID
	err := s.uow.Do(ctx, func(ctx context.Context, repos domain.Repositories) error {
		var err error
		handoff, err = repos.Handoffs.GetByTokenHash(ctx, hash)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrInvalidToken
			}
			return err
		}
		if handoff.AcceptedAt != nil {
			return domain.ErrHandoffAccepted
		}
		now := time.Now()
		if !now.Before(handoff.TokenExpiresAt) {
			return domain.ErrHandoffExpired
		}

		handoff.AcceptedAt = &now
		handoff.AcceptedBy = participant.Name
		if err := repos.Handoffs.Update(ctx, handoff); err != nil {
			return err
		}

		sess, err := repos.Sessions.Get(ctx, handoff.SessionID)
		if err != nil {
			return err
		}
		projectID = sess.ProjectID
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("handoff_id", handoff.ID.String()).
		Str("session_id", handoff.SessionID.String()).
		Str("accepted_by", participant.Name).
		Msg("handoff accepted")
	return &AcceptedHandoff{Handoff: handoff, ProjectID: projectID}, nil
}

// Get fetches a handoff by id
func (s *HandoffService) Get(ctx context.Context, id uuid.UUID) (*domain.Handoff, error) {
	var handoff *domain.Handoff
	err := s.uow.Do(ctx, func(ctx context.Context, repos domain.Repositories) error {
		var err error
		handoff, err = repos.Handoffs.Get(ctx, id)
		return err
	})
	return handoff, err
}
