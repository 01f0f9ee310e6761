package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/briefly-app/briefly/internal/domain"
	"github.com/google/uuid"
)

// MessageRepository implements domain.MessageRepository
type MessageRepository struct {
	db DBTX
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts a new message
func (r *MessageRepository) Create(ctx context.Context, message *domain.Message) error {
	query := `
		INSERT INTO messages (id, session_id, role, turn_number, content, tool_name, tool_input, image_analysis, input_tokens, output_tokens, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.Exec(ctx, query,
		message.ID,
		message.SessionID,
		message.Role,
		message.TurnNumber,
		message.Content,
		message.ToolName,
		[]byte(message.ToolInput),
		[]byte(message.ImageAnalysis),
		message.InputTokens,
		message.OutputTokens,
		message.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *MessageRepository) ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]domain.Message, error) {
	query := `
		SELECT id, session_id, role, turn_number, content, tool_name, tool_input, image_analysis, input_tokens, output_tokens, created_at
		FROM messages
		WHERE session_id = $1
		ORDER BY created_at ASC, turn_number ASC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		var toolInput, imageAnalysis []byte
		if err := rows.Scan(
			&m.ID,
			&m.SessionID,
			&m.Role,
			&m.TurnNumber,
			&m.Content,
			&m.ToolName,
			&toolInput,
			&imageAnalysis,
			&m.InputTokens,
			&m.OutputTokens,
			&m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.ToolInput = json.RawMessage(toolInput)
		m.ImageAnalysis = json.RawMessage(imageAnalysis)
		messages = append(messages, m)
	}
	return messages, nil
}

func (r *MessageRepository) CountBySession(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM messages WHERE session_id = $1`
	if err := r.db.QueryRow(ctx, query, sessionID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

// AttachImageAnalysis sets the image-analysis payload on an existing
// message. The only mutation messages support after creation.
func (r *MessageRepository) AttachImageAnalysis(ctx context.Context, id uuid.UUID, analysis json.RawMessage) error {
	query := `UPDATE messages SET image_analysis = $1 WHERE id = $2`
	_, err := r.db.Exec(ctx, query, []byte(analysis), id)
	if err != nil {
		return fmt.Errorf("failed to attach image analysis: %w", err)
	}
	return nil
}
