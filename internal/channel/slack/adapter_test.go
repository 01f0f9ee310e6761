package slack

import (
	"encoding/json"
	"testing"

	"github.com/briefly-app/briefly/internal/domain"
	"github.com/briefly-app/briefly/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func questionResult(sessionID uuid.UUID, input map[string]any) *service.TurnResult {
	b, _ := json.Marshal(input)
	return &service.TurnResult{
		SessionID:  sessionID,
		Content:    "Let's talk platforms.",
		Pending:    &service.PendingTool{ToolUseID: "q1", Name: "ask_question", Input: b},
		Phase:      domain.PhaseExplore,
		TurnsUsed:  3,
		TurnBudget: 20,
	}
}

func TestRenderTurn_Question(t *testing.T) {
	sessionID := uuid.New()
	result := questionResult(sessionID, map[string]any{
		"question":       "Where will people use this?",
		"options":        []string{"Phone", "Laptop", "Both"},
		"allow_freeform": true,
	})

	blocks, err := RenderTurn(result)
	require.NoError(t, err)

	// assistant text, question, buttons, freeform hint, turn context
	require.Len(t, blocks, 5)
	assert.Equal(t, "Let's talk platforms.", blocks[0].Text.Text)
	assert.Equal(t, "Where will people use this?", blocks[1].Text.Text)

	actions := blocks[2]
	require.Equal(t, "actions", actions.Type)
	require.Len(t, actions.Elements, 3)
	assert.Equal(t, "Laptop", actions.Elements[1].Text.Text)
	assert.Equal(t, EncodeAnswerAction(sessionID, 1), actions.Elements[1].ActionID)

	assert.Contains(t, blocks[4].Elements[0].Text.Text, "Turn 3/20")
}

func TestRenderTurn_Deliverables(t *testing.T) {
	result := &service.TurnResult{
		SessionID: uuid.New(),
		Content:   "Here you go.",
		Brief:     &domain.ClientBrief{Title: "Recipe Box"},
		Spec: &domain.TeamSpec{
			Title:  "Recipe Box",
			Chunks: []domain.SpecChunk{{Title: "CRUD"}, {Title: "Sharing"}},
		},
		Status:     domain.SessionCompleted,
		TurnsUsed:  19,
		TurnBudget: 20,
		Phase:      domain.PhaseGenerate,
	}

	blocks, err := RenderTurn(result)
	require.NoError(t, err)
	require.Len(t, blocks, 4)
	assert.Contains(t, blocks[1].Text.Text, "Client brief ready")
	assert.Contains(t, blocks[2].Text.Text, "2 chunks")
}

func TestAnswerActionRoundTrip(t *testing.T) {
	sessionID := uuid.New()
	actionID := EncodeAnswerAction(sessionID, 2)

	gotSession, gotIdx, err := DecodeAnswerAction(actionID)
	require.NoError(t, err)
	assert.Equal(t, sessionID, gotSession)
	assert.Equal(t, 2, gotIdx)
}

func TestDecodeAnswerAction_Invalid(t *testing.T) {
	tests := []string{
		"",
		"other:" + uuid.NewString() + ":1",
		"ans:not-a-uuid:1",
		"ans:" + uuid.NewString() + ":x",
		"ans:" + uuid.NewString(),
	}
	for _, actionID := range tests {
		_, _, err := DecodeAnswerAction(actionID)
		assert.Error(t, err, actionID)
	}
}

func TestResolveAnswer(t *testing.T) {
	input, _ := json.Marshal(map[string]any{
		"question": "Pick one",
		"options":  []string{"Web app", "Mobile app"},
	})
	pending := &service.PendingTool{Name: "ask_question", Input: input}

	answer, err := ResolveAnswer(pending, 0)
	require.NoError(t, err)
	assert.Equal(t, "Web app", answer)

	_, err = ResolveAnswer(pending, 5)
	assert.Error(t, err)

	_, err = ResolveAnswer(nil, 0)
	assert.Error(t, err)

	_, err = ResolveAnswer(&service.PendingTool{Name: "ask_freeform"}, 0)
	assert.Error(t, err)
}
