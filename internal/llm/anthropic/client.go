package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/briefly-app/briefly/internal/domain"
	"github.com/briefly-app/briefly/internal/llm"
)

// Client implements llm.Client against the Anthropic Messages API
type Client struct {
	apiKey  string
	client  *http.Client
	baseURL string
}

// NewClient creates a new Anthropic client
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 120 * time.Second},
		baseURL: "https://api.anthropic.com/v1",
	}
}

type apiSystemBlock struct {
	Type         string           `json:"type"`
	Text         string           `json:"text"`
	CacheControl *apiCacheControl `json:"cache_control,omitempty"`
}

type apiCacheControl struct {
	Type string `json:"type"`
}

type apiTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type apiContentBlock struct {
	Type string `json:"type"`

	Text string `json:"text,omitempty"`

	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`

	Source *apiImageSource `json:"source,omitempty"`
}

type apiImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type apiMessage struct {
	Role    string            `json:"role"`
	Content []apiContentBlock `json:"content"`
}

type apiRequest struct {
	Model     string           `json:"model"`
	MaxTokens int              `json:"max_tokens"`
	System    []apiSystemBlock `json:"system,omitempty"`
	Messages  []apiMessage     `json:"messages"`
	Tools     []apiTool        `json:"tools,omitempty"`
}

type apiResponse struct {
	Content    []apiContentBlock `json:"content"`
	StopReason string            `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Call performs one blocking Messages request
func (c *Client) Call(ctx context.Context, req llm.Request) (*llm.Response, error) {
	apiReq := apiRequest{
		Model:     req.Model,
		MaxTokens: req.MaxOutputTokens,
		System:    encodeSystem(req.System),
		Messages:  encodeMessages(req.Messages),
		Tools:     encodeTools(req.Tools),
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, domain.NewProviderError(domain.KindProviderError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, resp.Body)
	}

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, domain.NewProviderError(domain.KindProviderError, fmt.Errorf("failed to decode response: %w", err))
	}

	return &llm.Response{
		Content:    decodeContent(apiResp.Content),
		StopReason: decodeStopReason(apiResp.StopReason),
		Usage: llm.Usage{
			InputTokens:  apiResp.Usage.InputTokens,
			OutputTokens: apiResp.Usage.OutputTokens,
		},
	}, nil
}

// classifyStatus maps HTTP failures onto the provider error taxonomy
func classifyStatus(status int, body io.Reader) error {
	var detail apiError
	msg := ""
	if err := json.NewDecoder(body).Decode(&detail); err == nil {
		msg = detail.Error.Message
	}
	err := fmt.Errorf("anthropic returned status %d: %s", status, msg)

	switch {
	case status == http.StatusTooManyRequests:
		return domain.NewProviderError(domain.KindRateLimited, err)
	case status == 529 || status == http.StatusServiceUnavailable:
		return domain.NewProviderError(domain.KindOverloaded, err)
	default:
		return domain.NewProviderError(domain.KindProviderError, err)
	}
}

func encodeSystem(segments []llm.SystemSegment) []apiSystemBlock {
	blocks := make([]apiSystemBlock, 0, len(segments))
	for _, seg := range segments {
		block := apiSystemBlock{Type: "text", Text: seg.Text}
		if seg.Cacheable {
			block.CacheControl = &apiCacheControl{Type: "ephemeral"}
		}
		blocks = append(blocks, block)
	}
	return blocks
}

func encodeTools(tools []llm.ToolSchema) []apiTool {
	out := make([]apiTool, 0, len(tools))
	for _, t := range tools {
		out = append(out, apiTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: map[string]any{
				"type":       "object",
				"properties": t.Parameters,
				"required":   t.Required,
			},
		})
	}
	return out
}

func encodeMessages(entries []domain.TurnEntry) []apiMessage {
	msgs := make([]apiMessage, 0, len(entries))
	for _, entry := range entries {
		msg := apiMessage{Role: string(entry.Role)}
		for _, block := range entry.Content {
			msg.Content = append(msg.Content, encodeBlock(block))
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

func encodeBlock(block domain.ContentBlock) apiContentBlock {
	switch block.Type {
	case domain.BlockToolUse:
		return apiContentBlock{
			Type:  "tool_use",
			ID:    block.ToolUseID,
			Name:  block.ToolName,
			Input: block.ToolInput,
		}
	case domain.BlockToolResult:
		return apiContentBlock{
			Type:      "tool_result",
			ToolUseID: block.ToolUseID,
			Content:   block.ToolResult,
			IsError:   block.IsError,
		}
	case domain.BlockImage:
		return apiContentBlock{
			Type: "image",
			Source: &apiImageSource{
				Type:      "base64",
				MediaType: block.ImageMediaType,
				Data:      block.ImageData,
			},
		}
	default:
		return apiContentBlock{Type: "text", Text: block.Text}
	}
}

func decodeContent(blocks []apiContentBlock) []domain.ContentBlock {
	out := make([]domain.ContentBlock, 0, len(blocks))
	for _, b := range blocks {
		switch b.Type {
		case "tool_use":
			out = append(out, domain.ContentBlock{
				Type:      domain.BlockToolUse,
				ToolUseID: b.ID,
				ToolName:  b.Name,
				ToolInput: b.Input,
			})
		case "text":
			out = append(out, domain.TextBlock(b.Text))
		}
	}
	return out
}

func decodeStopReason(reason string) llm.StopReason {
	switch reason {
	case "tool_use":
		return llm.StopToolUse
	case "max_tokens":
		return llm.StopMaxTokens
	case "refusal":
		return llm.StopRefusal
	default:
		return llm.StopEndTurn
	}
}
