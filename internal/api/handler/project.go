package handler

import (
	"encoding/json"
	"net/http"

	"github.com/briefly-app/briefly/internal/api/middleware"
	"github.com/briefly-app/briefly/internal/api/response"
	"github.com/briefly-app/briefly/internal/service"
)

// ProjectHandler handles project endpoints
type ProjectHandler struct {
	projectService *service.ProjectService
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(projectService *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

type createProjectRequest struct {
	Name        string   `json:"name" validate:"required,min=1,max=200"`
	Briefing    string   `json:"briefing" validate:"max=10000"`
	TechStack   []string `json:"tech_stack"`
	Audience    string   `json:"audience"`
	Constraints []string `json:"constraints"`
}

// Create handles project creation
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	project, err := h.projectService.Create(r.Context(), service.CreateProjectInput{
		Name:        req.Name,
		Briefing:    req.Briefing,
		TechStack:   req.TechStack,
		Audience:    req.Audience,
		Constraints: req.Constraints,
	})
	if err != nil {
		response.DomainError(w, err)
		return
	}

	response.Created(w, project)
}

// Get handles getting a project by ID
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	projectID, ok := middleware.GetProjectID(r.Context())
	if !ok {
		response.BadRequest(w, "missing project ID")
		return
	}

	project, err := h.projectService.Get(r.Context(), projectID)
	if err != nil {
		response.DomainError(w, err)
		return
	}

	response.OK(w, project)
}
