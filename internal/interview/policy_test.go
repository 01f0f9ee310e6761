package interview

import (
	"strings"
	"testing"

	"github.com/briefly-app/briefly/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestComputePhase(t *testing.T) {
	tests := []struct {
		name      string
		turnsUsed int
		budget    int
		want      domain.Phase
	}{
		{"start", 0, 20, domain.PhaseExplore},
		{"half budget is still explore", 10, 20, domain.PhaseExplore},
		{"just past half", 11, 20, domain.PhaseNarrow},
		{"seventy percent", 14, 20, domain.PhaseNarrow},
		{"past seventy", 15, 20, domain.PhaseConverge},
		{"eighty-five percent", 17, 20, domain.PhaseConverge},
		{"past eighty-five", 18, 20, domain.PhaseGenerate},
		{"over budget", 25, 20, domain.PhaseGenerate},
		{"zero budget", 0, 0, domain.PhaseGenerate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputePhase(tt.turnsUsed, tt.budget))
		})
	}
}

func TestAdvancePhase_Monotonic(t *testing.T) {
	// Phase never decreases, even if turns_used were reset
	got := AdvancePhase(domain.PhaseConverge, 0, 20)
	assert.Equal(t, domain.PhaseConverge, got)

	got = AdvancePhase(domain.PhaseExplore, 18, 20)
	assert.Equal(t, domain.PhaseGenerate, got)

	// A full simulated session never steps backwards
	phase := domain.PhaseExplore
	prev := phase.Index()
	for turns := 0; turns < 25; turns++ {
		phase = AdvancePhase(phase, turns, 20)
		assert.GreaterOrEqual(t, phase.Index(), prev, "turn %d", turns)
		prev = phase.Index()
	}
}

func TestSelectModel(t *testing.T) {
	m := Models{Top: "model-top", Mid: "model-mid", Light: "model-light"}

	t.Run("generate phase always uses top tier", func(t *testing.T) {
		assert.Equal(t, "model-top", SelectModel(domain.PhaseGenerate, "ok", m))
	})

	t.Run("short plain message uses mid tier", func(t *testing.T) {
		assert.Equal(t, "model-mid", SelectModel(domain.PhaseExplore, "Web app", m))
	})

	t.Run("long message with multiple questions uses top tier", func(t *testing.T) {
		msg := strings.Repeat("We have a lot of context to share here. ", 15) + "Should we go native? Or hybrid?"
		assert.Greater(t, len(msg), 500)
		assert.Equal(t, "model-top", SelectModel(domain.PhaseExplore, msg, m))
	})

	t.Run("long message with one question stays mid tier", func(t *testing.T) {
		msg := strings.Repeat("Background detail. ", 30) + "Should we go native?"
		assert.Equal(t, "model-mid", SelectModel(domain.PhaseExplore, msg, m))
	})

	t.Run("tradeoff signal phrases use top tier", func(t *testing.T) {
		for _, msg := range []string{
			"what's the tradeoff here",
			"list the pros and cons",
			"can you compare these",
			"which is better for us",
			"What are the options?",
			"The trade-off seems unclear",
		} {
			assert.Equal(t, "model-top", SelectModel(domain.PhaseNarrow, msg, m), msg)
		}
	})
}

func TestGuidance(t *testing.T) {
	t.Run("buckets", func(t *testing.T) {
		assert.Contains(t, Guidance(0, 20), "Explore broadly")
		assert.Contains(t, Guidance(12, 20), "Begin narrowing")
		assert.Contains(t, Guidance(16, 20), "Converge")
		assert.Contains(t, Guidance(18, 20), "Generate now")
	})

	t.Run("final turn overrides bucket", func(t *testing.T) {
		assert.Contains(t, Guidance(19, 20), "final turn")
	})
}
