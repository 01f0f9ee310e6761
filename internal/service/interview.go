package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/briefly-app/briefly/internal/domain"
	"github.com/briefly-app/briefly/internal/interview"
	"github.com/briefly-app/briefly/internal/llm"
	"github.com/briefly-app/briefly/internal/security"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	defaultTurnBudget = 20
	midMaxTokens      = 4096
	// generate turns emit full briefs and specs in one response
	topMaxTokens = 16384
)

// InterviewService owns the turn loop: every state transition of an
// interview session happens inside one unit of work here.
type InterviewService struct {
	uow        domain.UnitOfWork
	client     llm.Client
	compressor *interview.Compressor
	models     interview.Models
	turnBudget int
	handoffTTL time.Duration
}

// NewInterviewService creates the interview service
func NewInterviewService(uow domain.UnitOfWork, client llm.Client, compressor *interview.Compressor, models interview.Models, turnBudget int, handoffTTL time.Duration) *InterviewService {
	if turnBudget <= 0 {
		turnBudget = defaultTurnBudget
	}
	if handoffTTL <= 0 {
		handoffTTL = 72 * time.Hour
	}
	return &InterviewService{
		uow:        uow,
		client:     client,
		compressor: compressor,
		models:     models,
		turnBudget: turnBudget,
		handoffTTL: handoffTTL,
	}
}

// TurnInput is one participant exchange handed to ProcessTurn
type TurnInput struct {
	SessionID   uuid.UUID
	Text        string
	Image       *ImageAttachment
	Participant domain.Participant
}

// ImageAttachment is a base64-encoded image shared by the participant
type ImageAttachment struct {
	Data      string
	MediaType string
}

// PendingTool is a deferred tool call awaiting the participant's answer
// on the next turn.
type PendingTool struct {
	ToolUseID string          `json:"tool_use_id"`
	Name      string          `json:"name"`
	Input     json.RawMessage `json:"input"`
}

// HandoffInvite carries the one-time plaintext invite token out of a turn.
// It is never persisted and never shown again.
type HandoffInvite struct {
	HandoffID uuid.UUID `json:"handoff_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TurnResult is the envelope returned to channel adapters after a turn
type TurnResult struct {
	SessionID  uuid.UUID            `json:"session_id"`
	TurnNumber int                  `json:"turn_number"`
	Content    string               `json:"content,omitempty"`
	Pending    *PendingTool         `json:"pending,omitempty"`
	ModelUsed  string               `json:"model_used"`
	Phase      domain.Phase         `json:"phase"`
	TurnsUsed  int                  `json:"turns_used"`
	TurnBudget int                  `json:"turn_budget"`
	Status     domain.SessionStatus `json:"status"`
	Brief      *domain.ClientBrief  `json:"client_brief,omitempty"`
	Spec       *domain.TeamSpec     `json:"team_spec,omitempty"`
	Handoff    *HandoffInvite       `json:"handoff,omitempty"`
}

// StartSession creates a fresh interview session for a project
func (s *InterviewService) StartSession(ctx context.Context, projectID uuid.UUID) (*domain.InterviewSession, error) {
	var sess *domain.InterviewSession
	err := s.uow.Do(ctx, func(ctx context.Context, repos domain.Repositories) error {
		if _, err := repos.Projects.Get(ctx, projectID); err != nil {
			return err
		}
		version, err := repos.Sessions.NextVersion(ctx, projectID)
		if err != nil {
			return err
		}
		now := time.Now()
		sess = &domain.InterviewSession{
			ID:         uuid.New(),
			ProjectID:  projectID,
			Version:    version,
			TurnBudget: s.turnBudget,
			Phase:      domain.PhaseExplore,
			Transcript: domain.Transcript{},
			Status:     domain.SessionActive,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		return repos.Sessions.Create(ctx, sess)
	})
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("session_id", sess.ID.String()).
		Str("project_id", projectID.String()).
		Int("version", sess.Version).
		Msg("interview session started")
	return sess, nil
}

// GetSession fetches a session by id
func (s *InterviewService) GetSession(ctx context.Context, id uuid.UUID) (*domain.InterviewSession, error) {
	var sess *domain.InterviewSession
	err := s.uow.Do(ctx, func(ctx context.Context, repos domain.Repositories) error {
		var err error
		sess, err = repos.Sessions.Get(ctx, id)
		return err
	})
	return sess, err
}

// ListMessages returns a session's audit messages for UI replay
func (s *InterviewService) ListMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]domain.Message, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	var messages []domain.Message
	err := s.uow.Do(ctx, func(ctx context.Context, repos domain.Repositories) error {
		if _, err := repos.Sessions.Get(ctx, sessionID); err != nil {
			return err
		}
		var err error
		messages, err = repos.Messages.ListBySession(ctx, sessionID, limit)
		return err
	})
	return messages, err
}

// ListSessions lists a project's sessions, newest version first
func (s *InterviewService) ListSessions(ctx context.Context, projectID uuid.UUID) ([]domain.InterviewSession, error) {
	var sessions []domain.InterviewSession
	err := s.uow.Do(ctx, func(ctx context.Context, repos domain.Repositories) error {
		var err error
		sessions, err = repos.Sessions.ListByProject(ctx, projectID)
		return err
	})
	return sessions, err
}

// ProcessTurn runs one full exchange: participant input in, model call,
// tool dispatch, state update. The whole turn commits or rolls back as a
// unit, so a failed model call leaves turns_used and the transcript
// untouched.
func (s *InterviewService) ProcessTurn(ctx context.Context, in TurnInput) (*TurnResult, error) {
	if strings.TrimSpace(in.Text) == "" && in.Image == nil {
		return nil, errors.New("turn input is empty")
	}

	var result *TurnResult
	err := s.uow.Do(ctx, func(ctx context.Context, repos domain.Repositories) error {
		sess, err := repos.Sessions.GetForUpdate(ctx, in.SessionID)
		if err != nil {
			return err
		}
		if sess.Status != domain.SessionActive {
			return domain.ErrSessionCompleted
		}

		project, err := repos.Projects.Get(ctx, sess.ProjectID)
		if err != nil {
			return err
		}

		if s.compressor.Due(sess.TurnsUsed) {
			s.compressor.Compress(ctx, sess)
		}

		sess.Phase = interview.AdvancePhase(sess.Phase, sess.TurnsUsed, sess.TurnBudget)
		model := interview.SelectModel(sess.Phase, in.Text, s.models)

		handoff, err := repos.Handoffs.LatestAccepted(ctx, sess.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		system := interview.BuildSystem(interview.PromptInput{
			Phase:       sess.Phase,
			TurnsUsed:   sess.TurnsUsed,
			TurnBudget:  sess.TurnBudget,
			Project:     project,
			Compressed:  sess.CompressedContext,
			Participant: in.Participant,
			Handoff:     handoff,
		})

		userEntry := buildUserEntry(sess, in)
		sess.Transcript = append(sess.Transcript, userEntry)

		maxTokens := midMaxTokens
		if model == s.models.Top {
			maxTokens = topMaxTokens
		}

		resp, err := s.client.Call(ctx, llm.Request{
			System:          system,
			Messages:        sess.Transcript,
			Model:           model,
			Tools:           interview.Catalog(),
			MaxOutputTokens: maxTokens,
		})
		if err != nil {
			return fmt.Errorf("model call failed: %w", err)
		}
		switch resp.StopReason {
		case llm.StopMaxTokens:
			return domain.NewProviderError(domain.KindMaxOutputExceeded, errors.New("response exceeded the output token limit"))
		case llm.StopRefusal:
			return domain.NewProviderError(domain.KindRefused, errors.New("model refused to respond"))
		}

		assistantEntry := domain.TurnEntry{Role: domain.RoleAssistant, Content: resp.Content}
		sess.Transcript = append(sess.Transcript, assistantEntry)

		turnNumber := sess.TurnsUsed + 1
		now := time.Now()

		userMsg := &domain.Message{
			ID:         uuid.New(),
			SessionID:  sess.ID,
			Role:       domain.RoleUser,
			TurnNumber: turnNumber,
			Content:    in.Text,
			CreatedAt:  now,
		}
		if err := repos.Messages.Create(ctx, userMsg); err != nil {
			return err
		}

		assistantMsg := &domain.Message{
			ID:           uuid.New(),
			SessionID:    sess.ID,
			Role:         domain.RoleAssistant,
			TurnNumber:   turnNumber,
			Content:      strings.Join(assistantEntry.TextBlocks(), "\n"),
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			CreatedAt:    now,
		}
		if uses := assistantEntry.ToolUses(); len(uses) > 0 {
			assistantMsg.ToolName = uses[0].ToolName
			assistantMsg.ToolInput = uses[0].ToolInput
		}
		if err := repos.Messages.Create(ctx, assistantMsg); err != nil {
			return err
		}

		result = &TurnResult{
			SessionID:  sess.ID,
			TurnNumber: turnNumber,
			Content:    strings.Join(assistantEntry.TextBlocks(), "\n"),
			ModelUsed:  model,
		}

		if err := s.dispatchTools(ctx, repos, sess, assistantEntry, assistantMsg.ID, result); err != nil {
			return err
		}

		sess.TurnsUsed++
		sess.TotalInputTokens += resp.Usage.InputTokens
		sess.TotalOutputTokens += resp.Usage.OutputTokens
		if sess.ClientBrief != nil && sess.TeamSpec != nil {
			sess.Status = domain.SessionCompleted
		}
		sess.UpdatedAt = now

		if err := repos.Sessions.Update(ctx, sess); err != nil {
			return err
		}

		result.Phase = sess.Phase
		result.TurnsUsed = sess.TurnsUsed
		result.TurnBudget = sess.TurnBudget
		result.Status = sess.Status
		result.Brief = sess.ClientBrief
		result.Spec = sess.TeamSpec
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", result.SessionID.String()).
		Int("turn", result.TurnNumber).
		Str("model", result.ModelUsed).
		Str("phase", string(result.Phase)).
		Msg("turn processed")
	return result, nil
}

// buildUserEntry assembles the next user transcript entry. Answers to a
// deferred question go in as tool_result blocks referencing the question's
// tool_use id; plain text is used only when nothing is pending.
func buildUserEntry(sess *domain.InterviewSession, in TurnInput) domain.TurnEntry {
	var blocks []domain.ContentBlock
	pending := sess.PendingQuestionUses()
	for _, use := range pending {
		blocks = append(blocks, domain.ToolResultBlock(use.ToolUseID, in.Text, false))
	}
	if len(pending) == 0 && strings.TrimSpace(in.Text) != "" {
		blocks = append(blocks, domain.TextBlock(in.Text))
	}
	if in.Image != nil {
		blocks = append(blocks, domain.ImageBlock(in.Image.Data, in.Image.MediaType))
	}
	return domain.TurnEntry{Role: domain.RoleUser, Content: blocks}
}

// handoffRequest mirrors the request_handoff tool input
type handoffRequest struct {
	Reason             string   `json:"reason"`
	Summary            string   `json:"summary"`
	SuggestedQuestions []string `json:"suggested_questions"`
	SuggestedRole      string   `json:"suggested_role"`
}

// dispatchTools executes the assistant's tool calls. Question tools defer
// their result to the next turn; everything else produces an immediate
// result, and all immediate results are appended as a single user entry so
// the transcript stays in strict user/assistant alternation.
func (s *InterviewService) dispatchTools(ctx context.Context, repos domain.Repositories, sess *domain.InterviewSession, assistant domain.TurnEntry, assistantMsgID uuid.UUID, result *TurnResult) error {
	var results []domain.ContentBlock

	for _, use := range assistant.ToolUses() {
		switch use.ToolName {
		case interview.ToolAskQuestion, interview.ToolAskFreeform:
			// deferred: the participant's next message is the result
			if result.Pending == nil {
				result.Pending = &PendingTool{ToolUseID: use.ToolUseID, Name: use.ToolName, Input: use.ToolInput}
			}

		case interview.ToolAnalyzeImage:
			if err := repos.Messages.AttachImageAnalysis(ctx, assistantMsgID, use.ToolInput); err != nil {
				return err
			}
			results = append(results, domain.ToolResultBlock(use.ToolUseID, "Analysis recorded.", false))

		case interview.ToolGenerateClientBrief:
			var brief domain.ClientBrief
			if err := json.Unmarshal(use.ToolInput, &brief); err != nil {
				results = append(results, domain.ToolResultBlock(use.ToolUseID, "Invalid brief payload: "+err.Error(), true))
				continue
			}
			sess.ClientBrief = &brief
			results = append(results, domain.ToolResultBlock(use.ToolUseID, "Client brief saved.", false))

		case interview.ToolGenerateTeamSpec:
			var spec domain.TeamSpec
			if err := json.Unmarshal(use.ToolInput, &spec); err != nil {
				results = append(results, domain.ToolResultBlock(use.ToolUseID, "Invalid spec payload: "+err.Error(), true))
				continue
			}
			sess.TeamSpec = &spec
			results = append(results, domain.ToolResultBlock(use.ToolUseID, "Team spec saved.", false))

		case interview.ToolRequestHandoff:
			block, err := s.createHandoff(ctx, repos, sess, use, result)
			if err != nil {
				return err
			}
			results = append(results, block)

		default:
			results = append(results, domain.ToolResultBlock(use.ToolUseID, "Unknown tool: "+use.ToolName, true))
		}
	}

	if len(results) > 0 {
		sess.Transcript = append(sess.Transcript, domain.TurnEntry{Role: domain.RoleUser, Content: results})
	}
	return nil
}

func (s *InterviewService) createHandoff(ctx context.Context, repos domain.Repositories, sess *domain.InterviewSession, use domain.ContentBlock, result *TurnResult) (domain.ContentBlock, error) {
	var req handoffRequest
	if err := json.Unmarshal(use.ToolInput, &req); err != nil {
		return domain.ToolResultBlock(use.ToolUseID, "Invalid handoff payload: "+err.Error(), true), nil
	}

	token, hash, err := security.GenerateInviteToken()
	if err != nil {
		return domain.ContentBlock{}, err
	}

	handoff := &domain.Handoff{
		ID:                 uuid.New(),
		SessionID:          sess.ID,
		Reason:             req.Reason,
		Summary:            req.Summary,
		SuggestedQuestions: req.SuggestedQuestions,
		SuggestedRole:      req.SuggestedRole,
		InviteTokenHash:    hash,
		TokenExpiresAt:     time.Now().Add(s.handoffTTL),
		CreatedAt:          time.Now(),
	}
	if err := repos.Handoffs.Create(ctx, handoff); err != nil {
		if errors.Is(err, domain.ErrHandoffPending) {
			return domain.ToolResultBlock(use.ToolUseID, "A handoff is already pending for this session; wait for it to be accepted or expire.", true), nil
		}
		return domain.ContentBlock{}, err
	}

	result.Handoff = &HandoffInvite{
		HandoffID: handoff.ID,
		Token:     token,
		ExpiresAt: handoff.TokenExpiresAt,
	}
	return domain.ToolResultBlock(use.ToolUseID, "Handoff created. An invite link has been issued to the requester.", false), nil
}
