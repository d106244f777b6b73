package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/skillmatrix/skillmatrix-backend/internal/org/service"
	"github.com/skillmatrix/skillmatrix-backend/pkg/httputil"
	"github.com/skillmatrix/skillmatrix-backend/pkg/logger"
)

// RoleHandler handles role endpoints
type RoleHandler struct {
	service *service.OrgService
	logger  *logger.Logger
}

// NewRoleHandler creates a new role handler
func NewRoleHandler(svc *service.OrgService, log *logger.Logger) *RoleHandler {
	return &RoleHandler{
		service: svc,
		logger:  log,
	}
}

// Routes mounts the role routes. The /roles subtree is shared with the
// template assignment handler, so routes register flat on the parent
// router instead of mounting a subrouter.
func (h *RoleHandler) Routes(r chi.Router) {
	r.Get("/roles", h.List)
	r.Post("/roles", h.Create)
	r.Get("/roles/{id}", h.Get)
	r.Put("/roles/{id}", h.Update)
	r.Delete("/roles/{id}", h.Delete)
}

// List lists roles with their department names
func (h *RoleHandler) List(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, roles)
}

// Get gets a role by id
func (h *RoleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, role)
}

// Create creates a role
func (h *RoleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.RoleRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	role, err := h.service.CreateRole(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, role)
}

// Update updates a role
func (h *RoleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req service.RoleRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	role, err := h.service.UpdateRole(r.Context(), id, &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, role)
}

// Delete deletes a role
func (h *RoleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.DeleteRole(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}
