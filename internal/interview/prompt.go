package interview

import (
	"fmt"
	"strings"

	"github.com/briefly-app/briefly/internal/domain"
	"github.com/briefly-app/briefly/internal/llm"
)

// staticPrompt is identical across all turns and sessions, which makes it
// eligible for provider-side prompt caching. Keep per-turn material out of
// it.
const staticPrompt = `You are Briefly, a product discovery interviewer. You turn an unstructured product idea into two deliverables: a plain-language client brief and a technical team spec broken into delivery chunks.

Voice: warm, direct, concrete. No filler, no restating the user's answer back at them, no consultant jargon.

Interview method:
- One question per turn. Never stack questions in a single message.
- Prefer ask_question with 2-4 options. Structured choices get faster, more honest answers than open prompts. Use ask_freeform only when you genuinely cannot enumerate the answer space.
- Auto-detect depth from the user's vocabulary. If they say "Postgres" and "webhook", skip the basics; if they say "the app should remember things", stay away from technical terms entirely.
- Follow the thread that changes the deliverables most. Park interesting tangents as open threads instead of chasing them.
- Anti-patterns to avoid: auditing (long checklists of unrelated questions), tour-guiding (walking through your methodology aloud), premature architecture (locking technical choices while the goal is still fuzzy), and question laundering (re-asking something already answered).

Tool usage:
- ask_question / ask_freeform end your turn; the user's answer arrives as the tool result on the next turn.
- analyze_image: whenever the user shares an image, extract colors, typography and layout at minimum, plus components and mood when visible, before asking anything about it.
- generate_client_brief: plain language throughout, one idea per section, no implementation detail. The reader is the person who had the idea.
- generate_team_spec: chunks must be independently deliverable, each with testable acceptance criteria; name dependencies between chunks explicitly; put anything unresolved into open_questions rather than guessing.
- request_handoff: when the current participant repeatedly cannot answer a line of questioning, hand off instead of grinding.`

// PromptInput is everything the assembler reads. Assembling a prompt never
// mutates session state.
type PromptInput struct {
	Phase       domain.Phase
	TurnsUsed   int
	TurnBudget  int
	Project     *domain.Project
	Compressed  *string
	Participant domain.Participant
	// Accepted handoff whose context supersedes the raw participant
	Handoff *domain.Handoff
}

// BuildSystem produces the two system segments: the static cacheable
// instructions and the per-turn dynamic context.
func BuildSystem(in PromptInput) []llm.SystemSegment {
	return []llm.SystemSegment{
		{Text: staticPrompt, Cacheable: true},
		{Text: buildDynamic(in)},
	}
}

func buildDynamic(in PromptInput) string {
	var sb strings.Builder

	sb.WriteString(PhaseInstructions(in.Phase))
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Turn %d of %d. %s\n", in.TurnsUsed+1, in.TurnBudget, Guidance(in.TurnsUsed, in.TurnBudget))

	if in.Project != nil {
		sb.WriteString("\nProject context:\n")
		if in.Project.Briefing != "" {
			sb.WriteString(in.Project.Briefing + "\n")
		}
		writeList(&sb, "Tech stack", in.Project.TechStack)
		if in.Project.Audience != "" {
			fmt.Fprintf(&sb, "Audience: %s\n", in.Project.Audience)
		}
		writeList(&sb, "Constraints", in.Project.Constraints)
		writeList(&sb, "Decisions so far", in.Project.Decisions)
		writeList(&sb, "Open threads", in.Project.OpenThreads)
	}

	if in.Compressed != nil && *in.Compressed != "" {
		sb.WriteString("\nEarlier conversation, summarized:\n")
		sb.WriteString(*in.Compressed)
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	if in.Handoff != nil {
		fmt.Fprintf(&sb, "You are now talking to %s", in.Participant.Name)
		if in.Participant.Role != "" {
			fmt.Fprintf(&sb, " (%s)", in.Participant.Role)
		}
		sb.WriteString(", who took over the interview.\n")
		fmt.Fprintf(&sb, "Handoff reason: %s\n", in.Handoff.Reason)
		fmt.Fprintf(&sb, "Briefing from the previous exchange: %s\n", in.Handoff.Summary)
		writeList(&sb, "Suggested questions for them", in.Handoff.SuggestedQuestions)
	} else {
		fmt.Fprintf(&sb, "You are talking to %s", in.Participant.Name)
		if in.Participant.Role != "" {
			fmt.Fprintf(&sb, " (%s)", in.Participant.Role)
		}
		sb.WriteString(".\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}

func writeList(sb *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "%s:\n", label)
	for _, item := range items {
		fmt.Fprintf(sb, "- %s\n", item)
	}
}
