package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Phase is one of the four ordered interview stages. The ordering matters:
// a session's phase never moves backwards.
type Phase string

const (
	PhaseExplore  Phase = "explore"
	PhaseNarrow   Phase = "narrow"
	PhaseConverge Phase = "converge"
	PhaseGenerate Phase = "generate"
)

var phaseOrder = map[Phase]int{
	PhaseExplore:  0,
	PhaseNarrow:   1,
	PhaseConverge: 2,
	PhaseGenerate: 3,
}

// Index returns the position of the phase in the fixed ordering.
// Unknown phases sort before explore.
func (p Phase) Index() int {
	if i, ok := phaseOrder[p]; ok {
		return i
	}
	return -1
}

// SessionStatus represents the lifecycle state of an interview session
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
)

// InterviewSession is one interview attempt for a project. Mutated only by
// the turn orchestrator, under an exclusive per-session lock.
type InterviewSession struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`
	Version   int       `json:"version"`

	TurnBudget int   `json:"turn_budget"`
	TurnsUsed  int   `json:"turns_used"`
	Phase      Phase `json:"phase"`

	Transcript        Transcript `json:"transcript"`
	CompressedContext *string    `json:"compressed_context,omitempty"`

	ClientBrief *ClientBrief `json:"client_brief,omitempty"`
	TeamSpec    *TeamSpec    `json:"team_spec,omitempty"`

	Status SessionStatus `json:"status"`

	TotalInputTokens  int `json:"total_input_tokens"`
	TotalOutputTokens int `json:"total_output_tokens"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LastEntry returns the most recent transcript entry, or nil when empty
func (s *InterviewSession) LastEntry() *TurnEntry {
	if len(s.Transcript) == 0 {
		return nil
	}
	return &s.Transcript[len(s.Transcript)-1]
}

// PendingQuestionUses returns the ask_question/ask_freeform tool_use blocks
// of the last assistant entry that are still awaiting a tool_result.
func (s *InterviewSession) PendingQuestionUses() []ContentBlock {
	last := s.LastEntry()
	if last == nil || last.Role != RoleAssistant {
		return nil
	}
	var pending []ContentBlock
	for _, use := range last.ToolUses() {
		if use.ToolName == "ask_question" || use.ToolName == "ask_freeform" {
			pending = append(pending, use)
		}
	}
	return pending
}

// ClientBrief is the plain-language deliverable of an interview
type ClientBrief struct {
	Title            string         `json:"title"`
	Goal             string         `json:"goal"`
	Sections         []BriefSection `json:"sections"`
	VisualReferences []string       `json:"visual_references,omitempty"`
}

// BriefSection is one titled section of a client brief
type BriefSection struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// TeamSpec is the technical deliverable, broken into delivery chunks
type TeamSpec struct {
	Title         string            `json:"title"`
	Goal          string            `json:"goal"`
	Approach      string            `json:"approach"`
	Chunks        []SpecChunk       `json:"chunks"`
	TechNotes     string            `json:"tech_notes,omitempty"`
	DesignTokens  map[string]string `json:"design_tokens,omitempty"`
	OpenQuestions []string          `json:"open_questions,omitempty"`
}

// SpecChunk is one independently deliverable piece of a team spec
type SpecChunk struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	AcceptanceCriteria []string `json:"acceptance_criteria"`
	Dependencies       []string `json:"dependencies,omitempty"`
	HasUI              bool     `json:"has_ui,omitempty"`
}

// SessionRepository defines the interface for session storage.
// GetForUpdate must acquire an exclusive lock on the session that is held
// until the surrounding unit of work commits or rolls back.
type SessionRepository interface {
	Create(ctx context.Context, session *InterviewSession) error
	Get(ctx context.Context, id uuid.UUID) (*InterviewSession, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*InterviewSession, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]InterviewSession, error)
	Update(ctx context.Context, session *InterviewSession) error
	NextVersion(ctx context.Context, projectID uuid.UUID) (int, error)
}
