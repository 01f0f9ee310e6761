package handler

import (
	"encoding/json"
	"net/http"

	"github.com/briefly-app/briefly/internal/api/response"
	"github.com/briefly-app/briefly/internal/domain"
	"github.com/briefly-app/briefly/internal/security"
	"github.com/briefly-app/briefly/internal/service"
	"github.com/google/uuid"
)

// HandoffHandler handles handoff acceptance
type HandoffHandler struct {
	handoffService *service.HandoffService
	jwtManager     *security.JWTManager
}

// NewHandoffHandler creates a new handoff handler
func NewHandoffHandler(handoffService *service.HandoffService, jwtManager *security.JWTManager) *HandoffHandler {
	return &HandoffHandler{handoffService: handoffService, jwtManager: jwtManager}
}

type acceptHandoffRequest struct {
	Token string `json:"token" validate:"required"`
	Name  string `json:"name" validate:"required,min=1,max=200"`
	Role  string `json:"role" validate:"max=200"`
}

type acceptHandoffResponse struct {
	Handoff     *domain.Handoff `json:"handoff"`
	AccessToken string          `json:"access_token"`
	ExpiresIn   int64           `json:"expires_in"`
}

// Accept redeems a handoff invite token and mints an access token scoped to
// the session's project, so the joining participant can continue the
// interview. Public: the invited participant has no JWT yet; the invite
// token itself is the credential.
func (h *HandoffHandler) Accept(w http.ResponseWriter, r *http.Request) {
	var req acceptHandoffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	accepted, err := h.handoffService.Accept(r.Context(), req.Token, domain.Participant{
		Name: req.Name,
		Role: req.Role,
	})
	if err != nil {
		response.DomainError(w, err)
		return
	}

	accessToken, err := h.jwtManager.GenerateAccessToken(req.Name, req.Role, []uuid.UUID{accepted.ProjectID})
	if err != nil {
		response.InternalError(w, "failed to generate access token")
		return
	}

	response.OK(w, acceptHandoffResponse{
		Handoff:     accepted.Handoff,
		AccessToken: accessToken,
		ExpiresIn:   int64(h.jwtManager.AccessTokenTTL().Seconds()),
	})
}
