package handler

import (
	"net/http"
	"strconv"

	"github.com/briefly-app/briefly/internal/api/middleware"
	"github.com/briefly-app/briefly/internal/api/response"
	"github.com/briefly-app/briefly/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// SessionHandler handles interview session endpoints
type SessionHandler struct {
	interviewService *service.InterviewService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(interviewService *service.InterviewService) *SessionHandler {
	return &SessionHandler{interviewService: interviewService}
}

// Create starts a new interview session for the project
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	projectID, ok := middleware.GetProjectID(r.Context())
	if !ok {
		response.BadRequest(w, "missing project ID")
		return
	}

	session, err := h.interviewService.StartSession(r.Context(), projectID)
	if err != nil {
		response.DomainError(w, err)
		return
	}

	response.Created(w, session)
}

// List returns the project's sessions, newest first
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID, ok := middleware.GetProjectID(r.Context())
	if !ok {
		response.BadRequest(w, "missing project ID")
		return
	}

	sessions, err := h.interviewService.ListSessions(r.Context(), projectID)
	if err != nil {
		response.DomainError(w, err)
		return
	}

	response.OK(w, sessions)
}

// Messages returns the session's audit messages for UI replay
func (h *SessionHandler) Messages(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		response.BadRequest(w, "invalid session ID")
		return
	}

	limit := 200
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			limit = v
		}
	}

	messages, err := h.interviewService.ListMessages(r.Context(), sessionID, limit)
	if err != nil {
		response.DomainError(w, err)
		return
	}

	response.OK(w, messages)
}

// Get returns a single session with its transcript and deliverables
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		response.BadRequest(w, "invalid session ID")
		return
	}

	session, err := h.interviewService.GetSession(r.Context(), sessionID)
	if err != nil {
		response.DomainError(w, err)
		return
	}

	response.OK(w, session)
}
