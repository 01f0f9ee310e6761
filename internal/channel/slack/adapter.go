// Package slack renders turn results into Slack Block Kit payloads and
// resolves interactive replies back into turn input. It is a pure
// translation layer: no Slack API calls happen here.
package slack

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/briefly-app/briefly/internal/service"
	"github.com/google/uuid"
)

const answerActionPrefix = "ans"

// Block is one Slack Block Kit block
type Block struct {
	Type     string    `json:"type"`
	Text     *Text     `json:"text,omitempty"`
	Elements []Element `json:"elements,omitempty"`
}

// Text is a Block Kit text object
type Text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Element is a Block Kit interactive element
type Element struct {
	Type     string `json:"type"`
	Text     *Text  `json:"text,omitempty"`
	ActionID string `json:"action_id,omitempty"`
	Value    string `json:"value,omitempty"`
}

// questionInput mirrors the ask_question tool input
type questionInput struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	AllowFreeform bool     `json:"allow_freeform"`
}

// RenderTurn converts a turn result into Block Kit blocks. A pending
// question becomes the question text plus one button per option; free-form
// answers arrive as ordinary channel messages, so no input block is needed.
func RenderTurn(result *service.TurnResult) ([]Block, error) {
	var blocks []Block

	if result.Content != "" {
		blocks = append(blocks, Block{
			Type: "section",
			Text: &Text{Type: "mrkdwn", Text: result.Content},
		})
	}

	if result.Pending != nil {
		pendingBlocks, err := renderPending(result)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, pendingBlocks...)
	}

	if result.Brief != nil {
		blocks = append(blocks, Block{
			Type: "section",
			Text: &Text{Type: "mrkdwn", Text: fmt.Sprintf("*Client brief ready:* %s", result.Brief.Title)},
		})
	}
	if result.Spec != nil {
		blocks = append(blocks, Block{
			Type: "section",
			Text: &Text{Type: "mrkdwn", Text: fmt.Sprintf("*Team spec ready:* %s (%d chunks)", result.Spec.Title, len(result.Spec.Chunks))},
		})
	}
	if result.Handoff != nil {
		blocks = append(blocks, Block{
			Type: "section",
			Text: &Text{Type: "mrkdwn", Text: "A handoff was requested. Share the invite link with the next participant."},
		})
	}

	blocks = append(blocks, contextBlock(result))
	return blocks, nil
}

func renderPending(result *service.TurnResult) ([]Block, error) {
	switch result.Pending.Name {
	case "ask_question":
		var q questionInput
		if err := json.Unmarshal(result.Pending.Input, &q); err != nil {
			return nil, fmt.Errorf("failed to decode question input: %w", err)
		}
		blocks := []Block{{
			Type: "section",
			Text: &Text{Type: "mrkdwn", Text: q.Question},
		}}
		var buttons []Element
		for i, option := range q.Options {
			buttons = append(buttons, Element{
				Type:     "button",
				Text:     &Text{Type: "plain_text", Text: option},
				ActionID: EncodeAnswerAction(result.SessionID, i),
				Value:    option,
			})
		}
		blocks = append(blocks, Block{Type: "actions", Elements: buttons})
		if q.AllowFreeform {
			blocks = append(blocks, Block{
				Type: "context",
				Elements: []Element{{
					Type: "mrkdwn",
					Text: &Text{Type: "mrkdwn", Text: "Or just type your own answer."},
				}},
			})
		}
		return blocks, nil

	case "ask_freeform":
		var q struct {
			Question string `json:"question"`
		}
		if err := json.Unmarshal(result.Pending.Input, &q); err != nil {
			return nil, fmt.Errorf("failed to decode question input: %w", err)
		}
		return []Block{{
			Type: "section",
			Text: &Text{Type: "mrkdwn", Text: q.Question},
		}}, nil

	default:
		return nil, fmt.Errorf("unrenderable pending tool: %s", result.Pending.Name)
	}
}

func contextBlock(result *service.TurnResult) Block {
	return Block{
		Type: "context",
		Elements: []Element{{
			Type: "mrkdwn",
			Text: &Text{Type: "mrkdwn", Text: fmt.Sprintf("Turn %d/%d · %s", result.TurnsUsed, result.TurnBudget, result.Phase)},
		}},
	}
}

// EncodeAnswerAction builds the action id carried by an option button
func EncodeAnswerAction(sessionID uuid.UUID, optionIndex int) string {
	return fmt.Sprintf("%s:%s:%d", answerActionPrefix, sessionID, optionIndex)
}

// DecodeAnswerAction parses a button click's action id back into the
// session and option index it belongs to.
func DecodeAnswerAction(actionID string) (uuid.UUID, int, error) {
	parts := strings.Split(actionID, ":")
	if len(parts) != 3 || parts[0] != answerActionPrefix {
		return uuid.Nil, 0, fmt.Errorf("not an answer action: %s", actionID)
	}
	sessionID, err := uuid.Parse(parts[1])
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("invalid session id in action: %w", err)
	}
	idx, err := strconv.Atoi(parts[2])
	if err != nil || idx < 0 {
		return uuid.Nil, 0, fmt.Errorf("invalid option index in action: %s", parts[2])
	}
	return sessionID, idx, nil
}

// ResolveAnswer maps a decoded option index back to the option text of the
// pending question, which becomes the turn's input text.
func ResolveAnswer(pending *service.PendingTool, optionIndex int) (string, error) {
	if pending == nil || pending.Name != "ask_question" {
		return "", fmt.Errorf("no structured question is pending")
	}
	var q questionInput
	if err := json.Unmarshal(pending.Input, &q); err != nil {
		return "", fmt.Errorf("failed to decode question input: %w", err)
	}
	if optionIndex >= len(q.Options) {
		return "", fmt.Errorf("option index %d out of range", optionIndex)
	}
	return q.Options[optionIndex], nil
}
