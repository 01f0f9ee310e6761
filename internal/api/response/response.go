package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/briefly-app/briefly/internal/domain"
)

// Response represents a standard API response
type Response struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
	Error   any  `json:"error,omitempty"`
}

// JSON sends a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := Response{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	json.NewEncoder(w).Encode(resp)
}

// Error sends an error response
func Error(w http.ResponseWriter, status int, message any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := Response{
		Success: false,
		Error:   message,
	}

	json.NewEncoder(w).Encode(resp)
}

// Created sends a 201 Created response with data
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// OK sends a 200 OK response with data
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// BadRequest sends a 400 Bad Request response
func BadRequest(w http.ResponseWriter, message any) {
	Error(w, http.StatusBadRequest, message)
}

// Unauthorized sends a 401 Unauthorized response
func Unauthorized(w http.ResponseWriter, message any) {
	Error(w, http.StatusUnauthorized, message)
}

// NotFound sends a 404 Not Found response
func NotFound(w http.ResponseWriter, message any) {
	Error(w, http.StatusNotFound, message)
}

// InternalError sends a 500 Internal Server Error response
func InternalError(w http.ResponseWriter, message any) {
	Error(w, http.StatusInternalServerError, message)
}

// DomainError maps domain errors onto HTTP statuses. Provider failures
// carry their kind so clients can distinguish retryable conditions.
func DomainError(w http.ResponseWriter, err error) {
	if perr, ok := domain.ProviderErrorOf(err); ok {
		status := http.StatusBadGateway
		switch perr.Kind {
		case domain.KindRateLimited, domain.KindOverloaded:
			status = http.StatusServiceUnavailable
		case domain.KindMaxOutputExceeded, domain.KindRefused:
			status = http.StatusUnprocessableEntity
		}
		Error(w, status, map[string]string{
			"kind":    string(perr.Kind),
			"message": perr.Error(),
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		NotFound(w, "not found")
	case errors.Is(err, domain.ErrSessionCompleted):
		Error(w, http.StatusConflict, "session is already completed")
	case errors.Is(err, domain.ErrHandoffPending):
		Error(w, http.StatusConflict, "a handoff is already pending")
	case errors.Is(err, domain.ErrInvalidToken):
		Unauthorized(w, "invalid invite token")
	case errors.Is(err, domain.ErrHandoffExpired):
		Error(w, http.StatusGone, "invite token has expired")
	case errors.Is(err, domain.ErrHandoffAccepted):
		Error(w, http.StatusConflict, "handoff was already accepted")
	default:
		InternalError(w, err.Error())
	}
}
