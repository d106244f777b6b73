package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/skillmatrix/skillmatrix-backend/internal/org/service"
	"github.com/skillmatrix/skillmatrix-backend/pkg/httputil"
	"github.com/skillmatrix/skillmatrix-backend/pkg/logger"
)

// DepartmentHandler handles department and department-role endpoints
type DepartmentHandler struct {
	service *service.OrgService
	logger  *logger.Logger
}

// NewDepartmentHandler creates a new department handler
func NewDepartmentHandler(svc *service.OrgService, log *logger.Logger) *DepartmentHandler {
	return &DepartmentHandler{
		service: svc,
		logger:  log,
	}
}

// Routes mounts the department routes
func (h *DepartmentHandler) Routes(r chi.Router) {
	r.Route("/departments", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)

		r.Get("/{id}/roles", h.RoleIDs)
		r.Get("/{id}/roles/details", h.Roles)
		r.Post("/{id}/roles", h.AssignRoles)
		r.Delete("/{id}/roles", h.RemoveRoles)
	})
	r.Post("/department-roles", h.AssignRole)
}

// List lists all departments
func (h *DepartmentHandler) List(w http.ResponseWriter, r *http.Request) {
	departments, err := h.service.ListDepartments(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, departments)
}

// Get gets a department by id
func (h *DepartmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	department, err := h.service.GetDepartment(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, department)
}

// Create creates a department
func (h *DepartmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.DepartmentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	department, err := h.service.CreateDepartment(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, department)
}

// Update updates a department
func (h *DepartmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req service.DepartmentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	department, err := h.service.UpdateDepartment(r.Context(), id, &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, department)
}

// Delete deletes a department
func (h *DepartmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.DeleteDepartment(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

// RoleIDs lists the role ids linked to a department
func (h *DepartmentHandler) RoleIDs(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	ids, err := h.service.DepartmentRoleIDs(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, ids)
}

// Roles lists the roles linked to a department
func (h *DepartmentHandler) Roles(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	roles, err := h.service.DepartmentRoles(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, roles)
}

// RoleIDsRequest carries the role ids for bulk link operations
type RoleIDsRequest struct {
	RoleIDs []int `json:"role_ids" validate:"required,min=1"`
}

// AssignRoles links the given roles to a department
func (h *DepartmentHandler) AssignRoles(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req RoleIDsRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	created, err := h.service.AssignRolesToDepartment(r.Context(), id, req.RoleIDs)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]int{"assigned": created})
}

// RemoveRoles removes the given role links from a department
func (h *DepartmentHandler) RemoveRoles(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req RoleIDsRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	removed, err := h.service.RemoveRolesFromDepartment(r.Context(), id, req.RoleIDs)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// AssignRoleRequest links a single role to a department
type AssignRoleRequest struct {
	DepartmentID int `json:"department_id" validate:"required"`
	RoleID       int `json:"role_id" validate:"required"`
}

// AssignRole links a single role to a department
func (h *DepartmentHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	var req AssignRoleRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	link, err := h.service.AssignRoleToDepartment(r.Context(), req.DepartmentID, req.RoleID)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, link)
}
