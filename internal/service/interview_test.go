package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/briefly-app/briefly/internal/domain"
	"github.com/briefly-app/briefly/internal/interview"
	"github.com/briefly-app/briefly/internal/llm"
	"github.com/briefly-app/briefly/internal/security"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testModels = interview.Models{Top: "model-top", Mid: "model-mid", Light: "model-light"}

type testEnv struct {
	store      *memStore
	client     *MockLLMClient
	summarizer *MockSummarizer
	svc        *InterviewService
	project    *domain.Project
	session    *domain.InterviewSession
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newMemStore()
	uow := &memUoW{store: store}
	client := new(MockLLMClient)
	summarizer := new(MockSummarizer)
	compressor := interview.NewCompressor(summarizer, 8, 4)
	svc := NewInterviewService(uow, client, compressor, testModels, 20, 72*time.Hour)

	now := time.Now()
	project := &domain.Project{
		ID:        uuid.New(),
		Name:      "Recipe Box",
		Briefing:  "An app for saving family recipes",
		CreatedAt: now,
		UpdatedAt: now,
	}
	store.projects[project.ID] = project

	session := &domain.InterviewSession{
		ID:         uuid.New(),
		ProjectID:  project.ID,
		Version:    1,
		TurnBudget: 20,
		Phase:      domain.PhaseExplore,
		Transcript: domain.Transcript{},
		Status:     domain.SessionActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	store.sessions[session.ID] = session

	return &testEnv{store: store, client: client, summarizer: summarizer, svc: svc, project: project, session: session}
}

func toolUse(id, name string, input any) domain.ContentBlock {
	b, err := json.Marshal(input)
	if err != nil {
		panic(err)
	}
	return domain.ContentBlock{Type: domain.BlockToolUse, ToolUseID: id, ToolName: name, ToolInput: b}
}

func turnInput(env *testEnv, text string) TurnInput {
	return TurnInput{
		SessionID:   env.session.ID,
		Text:        text,
		Participant: domain.Participant{Name: "Sam"},
	}
}

func TestProcessTurn_QuestionDeferred(t *testing.T) {
	env := newTestEnv(t)

	env.client.On("Call", mock.Anything, mock.Anything).Return(&llm.Response{
		Content: []domain.ContentBlock{
			domain.TextBlock("Let's start with the basics."),
			toolUse("q1", interview.ToolAskQuestion, map[string]any{
				"question":       "What kind of app is this?",
				"options":        []string{"Web app", "Mobile app"},
				"allow_freeform": true,
			}),
		},
		StopReason: llm.StopToolUse,
		Usage:      llm.Usage{InputTokens: 100, OutputTokens: 50},
	}, nil)

	result, err := env.svc.ProcessTurn(context.Background(), turnInput(env, "I want to build a recipe app"))
	require.NoError(t, err)

	assert.Equal(t, 1, result.TurnNumber)
	assert.Equal(t, "Let's start with the basics.", result.Content)
	assert.Equal(t, "model-mid", result.ModelUsed)
	require.NotNil(t, result.Pending)
	assert.Equal(t, interview.ToolAskQuestion, result.Pending.Name)
	assert.Equal(t, "q1", result.Pending.ToolUseID)

	sess := env.store.sessions[env.session.ID]
	assert.Equal(t, 1, sess.TurnsUsed)
	assert.Equal(t, 100, sess.TotalInputTokens)
	assert.Equal(t, 50, sess.TotalOutputTokens)
	// no immediate tool results: user entry then assistant entry only
	require.Len(t, sess.Transcript, 2)
	assert.Equal(t, domain.RoleUser, sess.Transcript[0].Role)
	assert.Equal(t, domain.RoleAssistant, sess.Transcript[1].Role)

	// an audit message for each side of the exchange
	assert.Len(t, env.store.messages, 2)
}

func TestProcessTurn_AnswerArrivesAsToolResult(t *testing.T) {
	env := newTestEnv(t)
	env.session.TurnsUsed = 1
	env.session.Transcript = domain.Transcript{
		{Role: domain.RoleUser, Content: []domain.ContentBlock{domain.TextBlock("I want a recipe app")}},
		{Role: domain.RoleAssistant, Content: []domain.ContentBlock{
			toolUse("q1", interview.ToolAskQuestion, map[string]any{"question": "What kind of app?"}),
		}},
	}

	var captured llm.Request
	env.client.On("Call", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		captured = args.Get(1).(llm.Request)
	}).Return(&llm.Response{
		Content:    []domain.ContentBlock{domain.TextBlock("Got it, a web app.")},
		StopReason: llm.StopEndTurn,
	}, nil)

	_, err := env.svc.ProcessTurn(context.Background(), turnInput(env, "Web app"))
	require.NoError(t, err)

	last := captured.Messages[len(captured.Messages)-1]
	assert.Equal(t, domain.RoleUser, last.Role)
	require.Len(t, last.Content, 1)
	assert.Equal(t, domain.BlockToolResult, last.Content[0].Type)
	assert.Equal(t, "q1", last.Content[0].ToolUseID)
	assert.Equal(t, "Web app", last.Content[0].ToolResult)
	assert.False(t, last.Content[0].IsError)
}

func TestProcessTurn_ProviderFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	env.session.TurnsUsed = 3
	env.session.Transcript = domain.Transcript{
		{Role: domain.RoleUser, Content: []domain.ContentBlock{domain.TextBlock("hello")}},
	}

	env.client.On("Call", mock.Anything, mock.Anything).Return(nil,
		domain.NewProviderError(domain.KindOverloaded, errors.New("529")))

	_, err := env.svc.ProcessTurn(context.Background(), turnInput(env, "another message"))
	require.Error(t, err)

	perr, ok := domain.ProviderErrorOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindOverloaded, perr.Kind)

	sess := env.store.sessions[env.session.ID]
	assert.Equal(t, 3, sess.TurnsUsed)
	assert.Len(t, sess.Transcript, 1)
	assert.Empty(t, env.store.messages)
}

func TestProcessTurn_TruncatedResponseRollsBack(t *testing.T) {
	env := newTestEnv(t)

	env.client.On("Call", mock.Anything, mock.Anything).Return(&llm.Response{
		Content:    []domain.ContentBlock{domain.TextBlock("partial")},
		StopReason: llm.StopMaxTokens,
	}, nil)

	_, err := env.svc.ProcessTurn(context.Background(), turnInput(env, "hi"))
	require.Error(t, err)

	perr, ok := domain.ProviderErrorOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindMaxOutputExceeded, perr.Kind)

	sess := env.store.sessions[env.session.ID]
	assert.Equal(t, 0, sess.TurnsUsed)
	assert.Empty(t, sess.Transcript)
}

func TestProcessTurn_DeliverablesBatchedAndComplete(t *testing.T) {
	env := newTestEnv(t)
	env.session.TurnsUsed = 18
	env.session.Phase = domain.PhaseGenerate

	brief := domain.ClientBrief{Title: "Recipe Box", Goal: "Keep family recipes together"}
	spec := domain.TeamSpec{
		Title: "Recipe Box", Goal: "Recipe storage", Approach: "Web app",
		Chunks: []domain.SpecChunk{{Title: "Recipe CRUD", Description: "Create and edit recipes", AcceptanceCriteria: []string{"recipes persist"}}},
	}

	env.client.On("Call", mock.Anything, mock.Anything).Return(&llm.Response{
		Content: []domain.ContentBlock{
			domain.TextBlock("Here are your deliverables."),
			toolUse("b1", interview.ToolGenerateClientBrief, brief),
			toolUse("s1", interview.ToolGenerateTeamSpec, spec),
		},
		StopReason: llm.StopToolUse,
	}, nil)

	result, err := env.svc.ProcessTurn(context.Background(), turnInput(env, "go ahead"))
	require.NoError(t, err)

	assert.Equal(t, "model-top", result.ModelUsed)
	assert.Equal(t, domain.SessionCompleted, result.Status)
	require.NotNil(t, result.Brief)
	require.NotNil(t, result.Spec)
	assert.Equal(t, "Recipe Box", result.Brief.Title)

	sess := env.store.sessions[env.session.ID]
	assert.Equal(t, domain.SessionCompleted, sess.Status)

	// both tool results land in one user entry
	last := sess.Transcript[len(sess.Transcript)-1]
	assert.Equal(t, domain.RoleUser, last.Role)
	require.Len(t, last.Content, 2)
	assert.Equal(t, "b1", last.Content[0].ToolUseID)
	assert.Equal(t, "s1", last.Content[1].ToolUseID)
}

func TestProcessTurn_BriefAloneLeavesSessionActive(t *testing.T) {
	env := newTestEnv(t)
	env.session.TurnsUsed = 17
	env.session.Phase = domain.PhaseGenerate

	brief := domain.ClientBrief{Title: "Recipe Box", Goal: "Keep family recipes together"}
	env.client.On("Call", mock.Anything, mock.Anything).Return(&llm.Response{
		Content: []domain.ContentBlock{
			toolUse("b1", interview.ToolGenerateClientBrief, brief),
		},
		StopReason: llm.StopToolUse,
	}, nil).Once()

	result, err := env.svc.ProcessTurn(context.Background(), turnInput(env, "write the brief first"))
	require.NoError(t, err)
	assert.Equal(t, domain.SessionActive, result.Status)
	require.NotNil(t, result.Brief)
	assert.Nil(t, result.Spec)

	sess := env.store.sessions[env.session.ID]
	assert.Equal(t, domain.SessionActive, sess.Status)
	require.NotNil(t, sess.ClientBrief)
	assert.Nil(t, sess.TeamSpec)

	// the spec arriving on a later turn completes the session
	spec := domain.TeamSpec{
		Title: "Recipe Box", Goal: "Recipe storage", Approach: "Web app",
		Chunks: []domain.SpecChunk{{Title: "Recipe CRUD", Description: "Create and edit recipes", AcceptanceCriteria: []string{"recipes persist"}}},
	}
	env.client.On("Call", mock.Anything, mock.Anything).Return(&llm.Response{
		Content: []domain.ContentBlock{
			toolUse("s1", interview.ToolGenerateTeamSpec, spec),
		},
		StopReason: llm.StopToolUse,
	}, nil).Once()

	result, err = env.svc.ProcessTurn(context.Background(), turnInput(env, "now the spec"))
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCompleted, result.Status)
	require.NotNil(t, result.Spec)

	sess = env.store.sessions[env.session.ID]
	assert.Equal(t, domain.SessionCompleted, sess.Status)
}

func TestProcessTurn_CompletedSessionRejected(t *testing.T) {
	env := newTestEnv(t)
	env.session.Status = domain.SessionCompleted

	_, err := env.svc.ProcessTurn(context.Background(), turnInput(env, "one more thing"))
	assert.ErrorIs(t, err, domain.ErrSessionCompleted)
	env.client.AssertNotCalled(t, "Call")
}

func TestProcessTurn_EmptyInputRejected(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.ProcessTurn(context.Background(), turnInput(env, "   "))
	assert.Error(t, err)
	env.client.AssertNotCalled(t, "Call")
}

func TestProcessTurn_CompressionDue(t *testing.T) {
	env := newTestEnv(t)
	env.session.TurnsUsed = 8
	for i := 0; i < 10; i++ {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		env.session.Transcript = append(env.session.Transcript, domain.TurnEntry{
			Role: role, Content: []domain.ContentBlock{domain.TextBlock("exchange")},
		})
	}

	env.summarizer.On("Summarize", mock.Anything, mock.Anything).Return("running summary", nil)

	var captured llm.Request
	env.client.On("Call", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		captured = args.Get(1).(llm.Request)
	}).Return(&llm.Response{
		Content:    []domain.ContentBlock{domain.TextBlock("ok")},
		StopReason: llm.StopEndTurn,
	}, nil)

	_, err := env.svc.ProcessTurn(context.Background(), turnInput(env, "next"))
	require.NoError(t, err)

	sess := env.store.sessions[env.session.ID]
	require.NotNil(t, sess.CompressedContext)
	assert.Equal(t, "running summary", *sess.CompressedContext)

	// 4 kept entries + this turn's user and assistant entries
	assert.Len(t, sess.Transcript, 6)
	// the compressed summary reaches the model through the dynamic segment
	require.Len(t, captured.System, 2)
	assert.Contains(t, captured.System[1].Text, "running summary")
	// the model sees the truncated transcript plus the new user entry
	assert.Len(t, captured.Messages, 5)
}

func TestProcessTurn_CompressionFailureIsSilent(t *testing.T) {
	env := newTestEnv(t)
	env.session.TurnsUsed = 8
	env.session.Transcript = domain.Transcript{
		{Role: domain.RoleUser, Content: []domain.ContentBlock{domain.TextBlock("hello")}},
	}

	env.summarizer.On("Summarize", mock.Anything, mock.Anything).Return("", errors.New("summarizer down"))
	env.client.On("Call", mock.Anything, mock.Anything).Return(&llm.Response{
		Content:    []domain.ContentBlock{domain.TextBlock("ok")},
		StopReason: llm.StopEndTurn,
	}, nil)

	_, err := env.svc.ProcessTurn(context.Background(), turnInput(env, "next"))
	require.NoError(t, err)

	sess := env.store.sessions[env.session.ID]
	assert.Nil(t, sess.CompressedContext)
	assert.Equal(t, 9, sess.TurnsUsed)
}

func TestProcessTurn_ImageAnalysisAttached(t *testing.T) {
	env := newTestEnv(t)

	analysis := map[string]any{
		"colors":     []string{"#1a1a2e", "#e94560"},
		"typography": "geometric sans",
		"layout":     "single column",
	}
	env.client.On("Call", mock.Anything, mock.Anything).Return(&llm.Response{
		Content: []domain.ContentBlock{
			toolUse("img1", interview.ToolAnalyzeImage, analysis),
			domain.TextBlock("Nice moodboard. Dark theme with a red accent."),
		},
		StopReason: llm.StopToolUse,
	}, nil)

	in := turnInput(env, "here's our moodboard")
	in.Image = &ImageAttachment{Data: "aGVsbG8=", MediaType: "image/png"}

	_, err := env.svc.ProcessTurn(context.Background(), in)
	require.NoError(t, err)

	// the analysis is attached to the assistant message that produced it
	require.Len(t, env.store.messages, 2)
	assert.Empty(t, env.store.messages[0].ImageAnalysis)
	assistantMsg := env.store.messages[1]
	assert.Equal(t, domain.RoleAssistant, assistantMsg.Role)
	require.NotEmpty(t, assistantMsg.ImageAnalysis)

	var got map[string]any
	require.NoError(t, json.Unmarshal(assistantMsg.ImageAnalysis, &got))
	assert.Equal(t, "geometric sans", got["typography"])

	// the image itself rides in the user transcript entry
	sess := env.store.sessions[env.session.ID]
	first := sess.Transcript[0]
	var hasImage bool
	for _, b := range first.Content {
		if b.Type == domain.BlockImage {
			hasImage = true
			assert.Equal(t, "image/png", b.ImageMediaType)
		}
	}
	assert.True(t, hasImage)
}

func TestProcessTurn_HandoffLifecycle(t *testing.T) {
	env := newTestEnv(t)
	uow := &memUoW{store: env.store}
	handoffSvc := NewHandoffService(uow)

	handoffCall := func(id string) *llm.Response {
		return &llm.Response{
			Content: []domain.ContentBlock{
				toolUse(id, interview.ToolRequestHandoff, map[string]any{
					"reason":  "participant cannot answer technical questions",
					"summary": "Recipe app, audience confirmed, stack undecided",
				}),
			},
			StopReason: llm.StopToolUse,
		}
	}

	env.client.On("Call", mock.Anything, mock.Anything).Return(handoffCall("h1"), nil).Once()
	result, err := env.svc.ProcessTurn(context.Background(), turnInput(env, "I don't know, ask our developer"))
	require.NoError(t, err)
	require.NotNil(t, result.Handoff)
	assert.NotEmpty(t, result.Handoff.Token)

	// the stored hash matches what the token hashes to
	stored, err := handoffSvc.Get(context.Background(), result.Handoff.HandoffID)
	require.NoError(t, err)
	assert.Equal(t, security.HashInviteToken(result.Handoff.Token), stored.InviteTokenHash)

	// a second request while one is pending is rejected in-band
	env.client.On("Call", mock.Anything, mock.Anything).Return(handoffCall("h2"), nil).Once()
	result2, err := env.svc.ProcessTurn(context.Background(), turnInput(env, "still stuck"))
	require.NoError(t, err)
	assert.Nil(t, result2.Handoff)

	sess := env.store.sessions[env.session.ID]
	last := sess.Transcript[len(sess.Transcript)-1]
	require.Len(t, last.Content, 1)
	assert.True(t, last.Content[0].IsError)
	assert.Len(t, env.store.handoffs, 1)

	// acceptance clears the way for a future handoff
	accepted, err := handoffSvc.Accept(context.Background(), result.Handoff.Token, domain.Participant{Name: "Dev Dana", Role: "developer"})
	require.NoError(t, err)
	assert.Equal(t, "Dev Dana", accepted.Handoff.AcceptedBy)
	assert.Equal(t, env.project.ID, accepted.ProjectID)

	env.client.On("Call", mock.Anything, mock.Anything).Return(handoffCall("h3"), nil).Once()
	result3, err := env.svc.ProcessTurn(context.Background(), turnInput(env, "actually hand off again"))
	require.NoError(t, err)
	require.NotNil(t, result3.Handoff)
	assert.Len(t, env.store.handoffs, 2)
}

func TestProcessTurn_AcceptedHandoffBriefsPrompt(t *testing.T) {
	env := newTestEnv(t)
	acceptedAt := time.Now().Add(-time.Hour)
	env.store.handoffs[uuid.New()] = &domain.Handoff{
		ID:             uuid.New(),
		SessionID:      env.session.ID,
		Reason:         "needed technical depth",
		Summary:        "Non-technical founder covered goals and audience",
		TokenExpiresAt: time.Now().Add(time.Hour),
		AcceptedAt:     &acceptedAt,
		AcceptedBy:     "Dev Dana",
		CreatedAt:      acceptedAt.Add(-time.Hour),
	}

	var captured llm.Request
	env.client.On("Call", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		captured = args.Get(1).(llm.Request)
	}).Return(&llm.Response{
		Content:    []domain.ContentBlock{domain.TextBlock("Welcome, Dana.")},
		StopReason: llm.StopEndTurn,
	}, nil)

	in := turnInput(env, "hi, taking over")
	in.Participant = domain.Participant{Name: "Dev Dana", Role: "developer"}
	_, err := env.svc.ProcessTurn(context.Background(), in)
	require.NoError(t, err)

	require.Len(t, captured.System, 2)
	assert.Contains(t, captured.System[1].Text, "took over the interview")
	assert.Contains(t, captured.System[1].Text, "needed technical depth")
}

func TestHandoffService_Accept_Errors(t *testing.T) {
	store := newMemStore()
	svc := NewHandoffService(&memUoW{store: store})

	t.Run("malformed token", func(t *testing.T) {
		_, err := svc.Accept(context.Background(), "garbage", domain.Participant{Name: "X"})
		assert.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("unknown token", func(t *testing.T) {
		token, _, err := security.GenerateInviteToken()
		require.NoError(t, err)
		_, err = svc.Accept(context.Background(), token, domain.Participant{Name: "X"})
		assert.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		token, hash, err := security.GenerateInviteToken()
		require.NoError(t, err)
		id := uuid.New()
		store.handoffs[id] = &domain.Handoff{
			ID: id, SessionID: uuid.New(),
			InviteTokenHash: hash,
			TokenExpiresAt:  time.Now().Add(-time.Minute),
		}
		_, err = svc.Accept(context.Background(), token, domain.Participant{Name: "X"})
		assert.ErrorIs(t, err, domain.ErrHandoffExpired)
	})

	t.Run("already accepted", func(t *testing.T) {
		token, hash, err := security.GenerateInviteToken()
		require.NoError(t, err)
		accepted := time.Now().Add(-time.Minute)
		id := uuid.New()
		store.handoffs[id] = &domain.Handoff{
			ID: id, SessionID: uuid.New(),
			InviteTokenHash: hash,
			TokenExpiresAt:  time.Now().Add(time.Hour),
			AcceptedAt:      &accepted,
		}
		_, err = svc.Accept(context.Background(), token, domain.Participant{Name: "X"})
		assert.ErrorIs(t, err, domain.ErrHandoffAccepted)
	})
}

func TestStartSession_Versioning(t *testing.T) {
	env := newTestEnv(t)

	s2, err := env.svc.StartSession(context.Background(), env.project.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, s2.Version)
	assert.Equal(t, domain.PhaseExplore, s2.Phase)
	assert.Equal(t, 20, s2.TurnBudget)
	assert.Equal(t, domain.SessionActive, s2.Status)

	s3, err := env.svc.StartSession(context.Background(), env.project.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, s3.Version)
}

func TestStartSession_UnknownProject(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.StartSession(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
