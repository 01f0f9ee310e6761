package handler

import (
	"encoding/json"
	"net/http"

	"github.com/briefly-app/briefly/internal/api/middleware"
	"github.com/briefly-app/briefly/internal/api/response"
	"github.com/briefly-app/briefly/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// TurnHandler handles turn processing
type TurnHandler struct {
	interviewService *service.InterviewService
}

// NewTurnHandler creates a new turn handler
func NewTurnHandler(interviewService *service.InterviewService) *TurnHandler {
	return &TurnHandler{interviewService: interviewService}
}

type turnRequest struct {
	Text  string        `json:"text" validate:"max=20000"`
	Image *imagePayload `json:"image,omitempty"`
}

type imagePayload struct {
	Data      string `json:"data" validate:"required,base64"`
	MediaType string `json:"media_type" validate:"required,oneof=image/png image/jpeg image/gif image/webp"`
}

// Process runs one interview turn
func (h *TurnHandler) Process(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		response.BadRequest(w, "invalid session ID")
		return
	}

	participant, ok := middleware.GetParticipant(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	if req.Text == "" && req.Image == nil {
		response.BadRequest(w, "turn needs text or an image")
		return
	}

	in := service.TurnInput{
		SessionID:   sessionID,
		Text:        req.Text,
		Participant: participant,
	}
	if req.Image != nil {
		in.Image = &service.ImageAttachment{
			Data:      req.Image.Data,
			MediaType: req.Image.MediaType,
		}
	}

	result, err := h.interviewService.ProcessTurn(r.Context(), in)
	if err != nil {
		response.DomainError(w, err)
		return
	}

	response.OK(w, result)
}
