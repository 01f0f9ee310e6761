package interview

import (
	"testing"
	"time"

	"github.com/briefly-app/briefly/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func basePromptInput() PromptInput {
	return PromptInput{
		Phase:       domain.PhaseExplore,
		TurnsUsed:   3,
		TurnBudget:  20,
		Participant: domain.Participant{Name: "Dana", Role: "founder"},
	}
}

func TestBuildSystem_Segments(t *testing.T) {
	segments := BuildSystem(basePromptInput())
	require.Len(t, segments, 2)

	assert.True(t, segments[0].Cacheable)
	assert.False(t, segments[1].Cacheable)

	// The static segment is byte-identical across turns and sessions
	other := basePromptInput()
	other.TurnsUsed = 17
	other.Phase = domain.PhaseGenerate
	assert.Equal(t, segments[0].Text, BuildSystem(other)[0].Text)
	assert.NotEqual(t, segments[1].Text, BuildSystem(other)[1].Text)
}

func TestBuildSystem_Dynamic(t *testing.T) {
	t.Run("turn budget line", func(t *testing.T) {
		dynamic := BuildSystem(basePromptInput())[1].Text
		assert.Contains(t, dynamic, "Turn 4 of 20.")
		assert.Contains(t, dynamic, "Explore broadly")
	})

	t.Run("project context folded in", func(t *testing.T) {
		in := basePromptInput()
		in.Project = &domain.Project{
			Name:        "Petsy",
			Briefing:    "A marketplace for pet sitters.",
			TechStack:   []string{"Rails", "Postgres"},
			Audience:    "pet owners in cities",
			Constraints: []string{"launch before summer"},
			OpenThreads: []string{"payments provider undecided"},
		}
		dynamic := BuildSystem(in)[1].Text
		assert.Contains(t, dynamic, "A marketplace for pet sitters.")
		assert.Contains(t, dynamic, "- Rails")
		assert.Contains(t, dynamic, "Audience: pet owners in cities")
		assert.Contains(t, dynamic, "- payments provider undecided")
	})

	t.Run("compressed context omitted when absent", func(t *testing.T) {
		dynamic := BuildSystem(basePromptInput())[1].Text
		assert.NotContains(t, dynamic, "summarized")

		in := basePromptInput()
		summary := "User wants a mobile-first MVP."
		in.Compressed = &summary
		dynamic = BuildSystem(in)[1].Text
		assert.Contains(t, dynamic, "User wants a mobile-first MVP.")
	})

	t.Run("participant line", func(t *testing.T) {
		dynamic := BuildSystem(basePromptInput())[1].Text
		assert.Contains(t, dynamic, "You are talking to Dana (founder).")
	})

	t.Run("accepted handoff briefing supersedes plain participant line", func(t *testing.T) {
		in := basePromptInput()
		in.Participant = domain.Participant{Name: "Sam", Role: "CTO"}
		accepted := time.Now()
		in.Handoff = &domain.Handoff{
			Reason:             "budget questions need technical authority",
			Summary:            "Dana settled goal and audience; infra cost is open.",
			SuggestedQuestions: []string{"What is the hosting budget?"},
			AcceptedAt:         &accepted,
		}
		dynamic := BuildSystem(in)[1].Text
		assert.Contains(t, dynamic, "Sam (CTO), who took over the interview.")
		assert.Contains(t, dynamic, "budget questions need technical authority")
		assert.Contains(t, dynamic, "Dana settled goal and audience")
		assert.Contains(t, dynamic, "- What is the hosting budget?")
	})
}
