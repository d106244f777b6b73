package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/skillmatrix/skillmatrix-backend/internal/propagation/service"
	"github.com/skillmatrix/skillmatrix-backend/pkg/errors"
	"github.com/skillmatrix/skillmatrix-backend/pkg/httputil"
	"github.com/skillmatrix/skillmatrix-backend/pkg/logger"
)

// PropagationHandler handles role template and employee competency
// assignment endpoints
type PropagationHandler struct {
	service *service.PropagationService
	logger  *logger.Logger
}

// NewPropagationHandler creates a new propagation handler
func NewPropagationHandler(svc *service.PropagationService, log *logger.Logger) *PropagationHandler {
	return &PropagationHandler{
		service: svc,
		logger:  log,
	}
}

// Routes mounts the propagation routes. The role template routes share
// the /roles subtree with the role CRUD handler, so they register flat
// and reuse its {id} parameter name.
func (h *PropagationHandler) Routes(r chi.Router) {
	r.Get("/roles/{id}/competencies", h.RoleCompetencies)
	r.Post("/roles/{id}/competencies", h.AssignToRole)
	r.Delete("/roles/{id}/competencies", h.RemoveFromRole)
	r.Put("/roles/{id}/competencies/scores", h.UpdateRoleScores)

	r.Route("/assign-employees/{employeeNumber}/competencies", func(r chi.Router) {
		r.Get("/", h.EmployeeCompetencies)
		r.Post("/", h.AssignToEmployee)
		r.Delete("/", h.RemoveFromEmployee)
		r.Put("/scores", h.UpdateEmployeeScores)
	})
}

func roleIDParam(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		return 0, errors.BadRequest("invalid role id")
	}
	return id, nil
}

// CompetencyCodesRequest carries the codes for bulk assignment operations
type CompetencyCodesRequest struct {
	CompetencyCodes []string `json:"competency_codes" validate:"required,min=1"`
}

// RoleScoresRequest carries template score updates
type RoleScoresRequest struct {
	Updates []service.CompetencyScoreUpdate `json:"updates" validate:"required,min=1,dive"`
}

// EmployeeScoresRequest carries per-employee score updates
type EmployeeScoresRequest struct {
	Updates []service.EmployeeScoreUpdate `json:"updates" validate:"required,min=1,dive"`
}

// RoleCompetencies lists a role's template with required scores
func (h *PropagationHandler) RoleCompetencies(w http.ResponseWriter, r *http.Request) {
	roleID, err := roleIDParam(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	rows, err := h.service.RoleCompetencies(r.Context(), roleID)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, rows)
}

// AssignToRole adds competencies to a role's template
func (h *PropagationHandler) AssignToRole(w http.ResponseWriter, r *http.Request) {
	roleID, err := roleIDParam(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req CompetencyCodesRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	assigned, err := h.service.AssignCompetenciesToRole(r.Context(), roleID, req.CompetencyCodes)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, assigned)
}

// RemoveFromRole removes competencies from a role's template
func (h *PropagationHandler) RemoveFromRole(w http.ResponseWriter, r *http.Request) {
	roleID, err := roleIDParam(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req CompetencyCodesRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	removed, err := h.service.RemoveCompetenciesFromRole(r.Context(), roleID, req.CompetencyCodes)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, removed)
}

// UpdateRoleScores updates template required scores with cascade
func (h *PropagationHandler) UpdateRoleScores(w http.ResponseWriter, r *http.Request) {
	roleID, err := roleIDParam(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req RoleScoresRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	updated, err := h.service.UpdateRoleCompetencyScores(r.Context(), roleID, req.Updates)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]int{"updated": updated})
}

// EmployeeCompetencies lists an employee's competency rows
func (h *PropagationHandler) EmployeeCompetencies(w http.ResponseWriter, r *http.Request) {
	employeeNumber := chi.URLParam(r, "employeeNumber")

	rows, err := h.service.EmployeeCompetencies(r.Context(), employeeNumber)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, rows)
}

// AssignToEmployee adds competencies directly to an employee
func (h *PropagationHandler) AssignToEmployee(w http.ResponseWriter, r *http.Request) {
	employeeNumber := chi.URLParam(r, "employeeNumber")

	var req CompetencyCodesRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	assigned, err := h.service.AssignCompetenciesToEmployee(r.Context(), employeeNumber, req.CompetencyCodes)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, assigned)
}

// RemoveFromEmployee removes competencies directly from an employee
func (h *PropagationHandler) RemoveFromEmployee(w http.ResponseWriter, r *http.Request) {
	employeeNumber := chi.URLParam(r, "employeeNumber")

	var req CompetencyCodesRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	removed, err := h.service.RemoveCompetenciesFromEmployee(r.Context(), employeeNumber, req.CompetencyCodes)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, removed)
}

// UpdateEmployeeScores updates per-employee required scores
func (h *PropagationHandler) UpdateEmployeeScores(w http.ResponseWriter, r *http.Request) {
	employeeNumber := chi.URLParam(r, "employeeNumber")

	var req EmployeeScoresRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	updated, err := h.service.UpdateEmployeeCompetencyScores(r.Context(), employeeNumber, req.Updates)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]int{"updated": updated})
}
