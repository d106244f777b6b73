package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/skillmatrix/skillmatrix-backend/internal/catalog/service"
	"github.com/skillmatrix/skillmatrix-backend/pkg/httputil"
	"github.com/skillmatrix/skillmatrix-backend/pkg/logger"
)

// CompetencyHandler handles competency catalog endpoints
type CompetencyHandler struct {
	service *service.CatalogService
	logger  *logger.Logger
}

// NewCompetencyHandler creates a new competency handler
func NewCompetencyHandler(svc *service.CatalogService, log *logger.Logger) *CompetencyHandler {
	return &CompetencyHandler{
		service: svc,
		logger:  log,
	}
}

// Routes mounts the catalog routes
func (h *CompetencyHandler) Routes(r chi.Router) {
	r.Route("/competencies", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{code}", h.Get)
		r.Put("/{code}", h.Update)
		r.Delete("/{code}", h.Delete)
	})
}

// List lists all competencies
func (h *CompetencyHandler) List(w http.ResponseWriter, r *http.Request) {
	competencies, err := h.service.List(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, competencies)
}

// Get gets a competency by code
func (h *CompetencyHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	competency, err := h.service.Get(r.Context(), code)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, competency)
}

// Create creates a new competency
func (h *CompetencyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateCompetencyRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	competency, err := h.service.Create(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, competency)
}

// Update updates a competency
func (h *CompetencyHandler) Update(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	var req service.UpdateCompetencyRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	competency, err := h.service.Update(r.Context(), code, &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, competency)
}

// Delete deletes a competency
func (h *CompetencyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	if err := h.service.Delete(r.Context(), code); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}
