package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/skillmatrix/skillmatrix-backend/internal/reporting/service"
	"github.com/skillmatrix/skillmatrix-backend/pkg/errors"
	"github.com/skillmatrix/skillmatrix-backend/pkg/httputil"
	"github.com/skillmatrix/skillmatrix-backend/pkg/logger"
)

// ReportingHandler handles the reporting endpoints
type ReportingHandler struct {
	service *service.ReportingService
	logger  *logger.Logger
}

// NewReportingHandler creates a new reporting handler
func NewReportingHandler(svc *service.ReportingService, log *logger.Logger) *ReportingHandler {
	return &ReportingHandler{
		service: svc,
		logger:  log,
	}
}

// Routes mounts the reporting routes
func (h *ReportingHandler) Routes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/competency-gaps", h.GapDistributions)
		r.Get("/employee-competencies", h.EvaluatedDetails)
		r.Get("/competencies/{competencyCode}/employees", h.CompetencyEmployees)
		r.Get("/departments/{id}/performance", h.DepartmentPerformance)
		r.Get("/managers/{employeeNumber}/performance", h.ManagerPerformance)
		r.Get("/competency-performance", h.OverallPerformance)
	})
}

// GapDistributions returns per-competency gap buckets
func (h *ReportingHandler) GapDistributions(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.GapDistributions(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, rows)
}

// EvaluatedDetails returns every evaluated employee-competency row
func (h *ReportingHandler) EvaluatedDetails(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.EvaluatedDetails(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, rows)
}

// CompetencyEmployees returns every holder of one competency
func (h *ReportingHandler) CompetencyEmployees(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "competencyCode")

	rows, err := h.service.CompetencyEmployees(r.Context(), code)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, rows)
}

// DepartmentPerformance returns one department's ranked performance
func (h *ReportingHandler) DepartmentPerformance(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, errors.BadRequest("invalid id"))
		return
	}

	report, err := h.service.DepartmentPerformance(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, report)
}

// ManagerPerformance returns the ranked performance of one manager's team
func (h *ReportingHandler) ManagerPerformance(w http.ResponseWriter, r *http.Request) {
	managerNumber := chi.URLParam(r, "employeeNumber")

	report, err := h.service.ManagerPerformance(r.Context(), managerNumber)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, report)
}

// OverallPerformance returns the organization-wide competency ranking
func (h *ReportingHandler) OverallPerformance(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.OverallPerformance(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, rows)
}
