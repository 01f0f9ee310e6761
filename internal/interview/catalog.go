// Package interview holds the pure building blocks of the turn loop:
// the tool catalog, the phase and budget policy, the prompt assembler and
// the history compressor.
package interview

import "github.com/briefly-app/briefly/internal/llm"

// Tool names the model may invoke. Anything else is answered with an
// error tool-result so the model can self-correct.
const (
	ToolAskQuestion         = "ask_question"
	ToolAskFreeform         = "ask_freeform"
	ToolAnalyzeImage        = "analyze_image"
	ToolGenerateClientBrief = "generate_client_brief"
	ToolGenerateTeamSpec    = "generate_team_spec"
	ToolRequestHandoff      = "request_handoff"
)

// CatalogVersion is bumped whenever a schema changes, independently of the
// orchestrator, so older sessions keep a stable tool set.
const CatalogVersion = "2024-06"

// Catalog returns the fixed tool schemas passed to every model call.
// Pure data, no side effects.
func Catalog() []llm.ToolSchema {
	return []llm.ToolSchema{
		{
			Name:        ToolAskQuestion,
			Description: "Ask the stakeholder one structured question with 2-4 predefined options. Prefer this over ask_freeform whenever options can usefully bound the answer space. The user may still answer freeform when allow_freeform is true.",
			Parameters: map[string]any{
				"question": map[string]any{
					"type":        "string",
					"description": "One clear, specific question",
				},
				"options": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"minItems":    2,
					"maxItems":    4,
					"description": "2-4 mutually distinct answer options",
				},
				"allow_freeform": map[string]any{
					"type":        "boolean",
					"description": "Whether a custom typed answer is also acceptable",
				},
				"context": map[string]any{
					"type":        "string",
					"description": "One sentence on why this question matters now",
				},
			},
			Required: []string{"question", "options", "allow_freeform"},
		},
		{
			Name:        ToolAskFreeform,
			Description: "Ask one open-ended question. Use only when predefined options cannot usefully bound the answer space, e.g. naming, vision statements, or domain specifics you cannot enumerate.",
			Parameters: map[string]any{
				"question": map[string]any{
					"type":        "string",
					"description": "One clear, open-ended question",
				},
				"context": map[string]any{
					"type":        "string",
					"description": "One sentence on why this question matters now",
				},
				"hint": map[string]any{
					"type":        "string",
					"description": "Optional example of the kind of answer expected",
				},
			},
			Required: []string{"question"},
		},
		{
			Name:        ToolAnalyzeImage,
			Description: "Record a structured analysis of an image the stakeholder shared (a reference site, a sketch, a screenshot). Extract everything reusable for the brief and spec.",
			Parameters: map[string]any{
				"analysis": map[string]any{
					"type":        "object",
					"description": "Structured extraction from the image",
					"properties": map[string]any{
						"colors":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						"typography": map[string]any{"type": "string"},
						"layout":     map[string]any{"type": "string"},
						"components": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						"mood":       map[string]any{"type": "string"},
					},
					"required": []string{"colors", "typography", "layout"},
				},
				"summary": map[string]any{
					"type":        "string",
					"description": "Two or three sentences the stakeholder will see",
				},
			},
			Required: []string{"analysis", "summary"},
		},
		{
			Name:        ToolGenerateClientBrief,
			Description: "Produce the plain-language client brief. Call once, when the project goal, audience and scope are firmly established. Write for a non-technical reader.",
			Parameters: map[string]any{
				"title": map[string]any{"type": "string"},
				"goal":  map[string]any{"type": "string"},
				"sections": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"heading": map[string]any{"type": "string"},
							"body":    map[string]any{"type": "string"},
						},
						"required": []string{"heading", "body"},
					},
				},
				"visual_references": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
				},
			},
			Required: []string{"title", "goal", "sections"},
		},
		{
			Name:        ToolGenerateTeamSpec,
			Description: "Produce the technical team spec, broken into independently deliverable chunks with acceptance criteria. Call once, after or together with generate_client_brief.",
			Parameters: map[string]any{
				"title":    map[string]any{"type": "string"},
				"goal":     map[string]any{"type": "string"},
				"approach": map[string]any{"type": "string"},
				"chunks": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"title":               map[string]any{"type": "string"},
							"description":         map[string]any{"type": "string"},
							"acceptance_criteria": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
							"dependencies":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
							"has_ui":              map[string]any{"type": "boolean"},
						},
						"required": []string{"title", "description", "acceptance_criteria"},
					},
				},
				"tech_notes": map[string]any{"type": "string"},
				"design_tokens": map[string]any{
					"type":                 "object",
					"additionalProperties": map[string]any{"type": "string"},
				},
				"open_questions": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
				},
			},
			Required: []string{"title", "goal", "approach", "chunks"},
		},
		{
			Name:        ToolRequestHandoff,
			Description: "Request that the interview continue with a different participant, e.g. when answers need someone with technical, design or budget authority the current participant lacks.",
			Parameters: map[string]any{
				"reason": map[string]any{
					"type":        "string",
					"description": "Why the current participant cannot answer",
				},
				"summary": map[string]any{
					"type":        "string",
					"description": "Briefing for the incoming participant",
				},
				"suggested_questions": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Questions the incoming participant should expect",
				},
				"suggested_role": map[string]any{
					"type":        "string",
					"description": "Role the incoming participant should ideally hold",
				},
			},
			Required: []string{"reason", "summary", "suggested_questions"},
		},
	}
}

// KnownTool reports whether name is in the catalog
func KnownTool(name string) bool {
	switch name {
	case ToolAskQuestion, ToolAskFreeform, ToolAnalyzeImage,
		ToolGenerateClientBrief, ToolGenerateTeamSpec, ToolRequestHandoff:
		return true
	}
	return false
}
