package domain

import "encoding/json"

// MessageRole represents the sender of a transcript entry or message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// BlockType discriminates the content block union
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
	BlockImage      BlockType = "image"
)

// ContentBlock is one block within a transcript entry. Exactly the fields
// for its Type are set; the rest stay zero and are omitted on the wire.
type ContentBlock struct {
	Type BlockType `json:"type"`

	// BlockText
	Text string `json:"text,omitempty"`

	// BlockToolUse
	ToolUseID string          `json:"tool_use_id,omitempty"`
	ToolName  string          `json:"tool_name,omitempty"`
	ToolInput json.RawMessage `json:"tool_input,omitempty"`

	// BlockToolResult (ToolUseID references the tool_use being answered)
	ToolResult string `json:"tool_result,omitempty"`
	IsError    bool   `json:"is_error,omitempty"`

	// BlockImage
	ImageData      string `json:"image_data,omitempty"`
	ImageMediaType string `json:"image_media_type,omitempty"`
}

// TextBlock builds a text content block
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

// ToolResultBlock builds a tool_result block answering the given tool_use id
func ToolResultBlock(toolUseID, result string, isError bool) ContentBlock {
	return ContentBlock{
		Type:       BlockToolResult,
		ToolUseID:  toolUseID,
		ToolResult: result,
		IsError:    isError,
	}
}

// ImageBlock builds an image block from base64 data and a MIME type
func ImageBlock(data, mediaType string) ContentBlock {
	return ContentBlock{Type: BlockImage, ImageData: data, ImageMediaType: mediaType}
}

// TurnEntry is one entry in a session transcript
type TurnEntry struct {
	Role    MessageRole    `json:"role"`
	Content []ContentBlock `json:"content"`
}

// Transcript is the ordered, replayable conversation history
type Transcript []TurnEntry

// TextBlocks returns the concatenated text of every text block in the entry
func (e TurnEntry) TextBlocks() []string {
	var texts []string
	for _, b := range e.Content {
		if b.Type == BlockText && b.Text != "" {
			texts = append(texts, b.Text)
		}
	}
	return texts
}

// ToolUses returns the tool_use blocks of the entry, in order
func (e TurnEntry) ToolUses() []ContentBlock {
	var uses []ContentBlock
	for _, b := range e.Content {
		if b.Type == BlockToolUse {
			uses = append(uses, b)
		}
	}
	return uses
}
