package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/skillmatrix/skillmatrix-backend/internal/org/service"
	"github.com/skillmatrix/skillmatrix-backend/pkg/errors"
	"github.com/skillmatrix/skillmatrix-backend/pkg/httputil"
	"github.com/skillmatrix/skillmatrix-backend/pkg/logger"
)

// JobHandler handles job code endpoints
type JobHandler struct {
	service *service.JobService
	logger  *logger.Logger
}

// NewJobHandler creates a new job handler
func NewJobHandler(svc *service.JobService, log *logger.Logger) *JobHandler {
	return &JobHandler{
		service: svc,
		logger:  log,
	}
}

// Routes mounts the job routes
func (h *JobHandler) Routes(r chi.Router) {
	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Delete("/", h.Delete)
		r.Get("/summary", h.Summary)
		r.Get("/by-role/{roleCode}/{jobName}", h.ListByRoleAndName)
		r.Put("/deactivate", h.Deactivate)
		r.Put("/activate", h.Activate)
	})
	r.Get("/available-job-codes/{roleCode}", h.AvailableCodes)
}

// Create bulk-creates job codes
func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateJobsRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	count, err := h.service.CreateJobs(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, map[string]interface{}{
		"created":  count,
		"job_name": req.JobName,
	})
}

// Summary returns the jobs summary
func (h *JobHandler) Summary(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.Summary(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]interface{}{"jobs_by_name": rows})
}

// AvailableCodes lists the free job codes of a role for an employee
func (h *JobHandler) AvailableCodes(w http.ResponseWriter, r *http.Request) {
	roleCode := chi.URLParam(r, "roleCode")
	employeeNumber := r.URL.Query().Get("employee_number")
	if employeeNumber == "" {
		httputil.Error(w, errors.BadRequest("employee_number query parameter is required"))
		return
	}

	codes, err := h.service.AvailableCodes(r.Context(), roleCode, employeeNumber)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, codes)
}

// ListByRoleAndName lists jobs for a role + job name pool
func (h *JobHandler) ListByRoleAndName(w http.ResponseWriter, r *http.Request) {
	roleCode := chi.URLParam(r, "roleCode")
	jobName := chi.URLParam(r, "jobName")

	jobs, err := h.service.ListByRoleAndName(r.Context(), roleCode, jobName)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, jobs)
}

// Delete removes the last N job codes of a pool
func (h *JobHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req service.DeleteJobsRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	deleted, err := h.service.DeleteJobs(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}

// Deactivate marks job codes inactive
func (h *JobHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	var req service.JobStatusRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	updated, err := h.service.DeactivateJobs(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]interface{}{"updated": updated, "status": "deactivated"})
}

// Activate marks job codes active
func (h *JobHandler) Activate(w http.ResponseWriter, r *http.Request) {
	var req service.JobStatusRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	updated, err := h.service.ActivateJobs(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]interface{}{"updated": updated, "status": "activated"})
}
