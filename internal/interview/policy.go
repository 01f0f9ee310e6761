package interview

import (
	"strings"

	"github.com/briefly-app/briefly/internal/domain"
)

// Models holds the three capability tiers. Light is reserved for
// compression and never selected for a main turn.
type Models struct {
	Top   string
	Mid   string
	Light string
}

// tradeoffSignals are phrases that indicate the user is weighing options
// and deserves the top-tier model.
var tradeoffSignals = []string{
	"tradeoff",
	"trade-off",
	"pros and cons",
	"compare",
	"which is better",
	"what are the options",
}

// ComputePhase maps budget consumption to a phase. Boundaries are
// inclusive: exactly half the budget spent is still explore.
func ComputePhase(turnsUsed, turnBudget int) domain.Phase {
	if turnBudget <= 0 {
		return domain.PhaseGenerate
	}
	pct := float64(turnsUsed) / float64(turnBudget)
	switch {
	case pct <= 0.5:
		return domain.PhaseExplore
	case pct <= 0.7:
		return domain.PhaseNarrow
	case pct <= 0.85:
		return domain.PhaseConverge
	default:
		return domain.PhaseGenerate
	}
}

// AdvancePhase applies the monotonicity rule: the session phase is the
// later of its current phase and the computed one.
func AdvancePhase(current domain.Phase, turnsUsed, turnBudget int) domain.Phase {
	computed := ComputePhase(turnsUsed, turnBudget)
	if computed.Index() > current.Index() {
		return computed
	}
	return current
}

// Guidance returns the urgency line folded verbatim into the dynamic
// prompt for the turn about to be processed.
func Guidance(turnsUsed, turnBudget int) string {
	if turnsUsed+1 >= turnBudget {
		return "This is the final turn. Wrap up: generate the brief and spec from what you have."
	}
	if turnBudget <= 0 {
		return "Generate now: produce the brief and spec from what you have."
	}
	pct := float64(turnsUsed) / float64(turnBudget)
	switch {
	case pct <= 0.5:
		return "Explore broadly. Map the idea's shape before committing to details."
	case pct <= 0.7:
		return "Begin narrowing. Prioritize the questions whose answers change the spec most."
	case pct <= 0.85:
		return "Converge. Close open threads and confirm scope; stop opening new topics."
	default:
		return "Generate now: produce the brief and spec from what you have."
	}
}

// SelectModel picks the model for the main turn. Deterministic:
// generate phase or a complex message gets the top tier, everything else
// the mid tier.
func SelectModel(phase domain.Phase, userText string, m Models) string {
	if phase == domain.PhaseGenerate {
		return m.Top
	}
	if len(userText) > 500 && strings.Count(userText, "?") >= 2 {
		return m.Top
	}
	lower := strings.ToLower(userText)
	for _, signal := range tradeoffSignals {
		if strings.Contains(lower, signal) {
			return m.Top
		}
	}
	return m.Mid
}

// PhaseInstructions returns the phase-specific interviewer instructions
// for the dynamic prompt segment.
func PhaseInstructions(phase domain.Phase) string {
	switch phase {
	case domain.PhaseNarrow:
		return "Phase: narrow. Pick the two or three dimensions that matter most and drill into them. Park everything else explicitly as an open thread."
	case domain.PhaseConverge:
		return "Phase: converge. Resolve remaining ambiguity, confirm constraints back to the user, and start shaping the deliverables in your head. Ask only questions that unblock the brief or spec."
	case domain.PhaseGenerate:
		return "Phase: generate. Stop interviewing. Produce the client brief and team spec with generate_client_brief and generate_team_spec, flagging unknowns as open questions instead of asking more."
	default:
		return "Phase: explore. Understand what the user is actually trying to achieve and for whom. Breadth over depth; do not lock in technical choices yet."
	}
}
