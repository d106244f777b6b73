package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/skillmatrix/skillmatrix-backend/internal/org/service"
	"github.com/skillmatrix/skillmatrix-backend/pkg/errors"
	"github.com/skillmatrix/skillmatrix-backend/pkg/httputil"
	"github.com/skillmatrix/skillmatrix-backend/pkg/logger"
)

// DivisionHandler handles business division endpoints
type DivisionHandler struct {
	service *service.OrgService
	logger  *logger.Logger
}

// NewDivisionHandler creates a new division handler
func NewDivisionHandler(svc *service.OrgService, log *logger.Logger) *DivisionHandler {
	return &DivisionHandler{
		service: svc,
		logger:  log,
	}
}

// Routes mounts the business division routes
func (h *DivisionHandler) Routes(r chi.Router) {
	r.Route("/business-divisions", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

func idParam(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		return 0, errors.BadRequest("invalid id")
	}
	return id, nil
}

// List lists all business divisions
func (h *DivisionHandler) List(w http.ResponseWriter, r *http.Request) {
	divisions, err := h.service.ListDivisions(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, divisions)
}

// Get gets a business division by id
func (h *DivisionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	division, err := h.service.GetDivision(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, division)
}

// Create creates a business division
func (h *DivisionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.DivisionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	division, err := h.service.CreateDivision(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, division)
}

// Update renames a business division
func (h *DivisionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req service.DivisionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	division, err := h.service.UpdateDivision(r.Context(), id, &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, division)
}

// Delete deletes a business division
func (h *DivisionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.DeleteDivision(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}
