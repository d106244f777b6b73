package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/skillmatrix/skillmatrix-backend/internal/evaluation/service"
	"github.com/skillmatrix/skillmatrix-backend/pkg/httputil"
	"github.com/skillmatrix/skillmatrix-backend/pkg/logger"
)

// EvaluationHandler handles evaluation workflow endpoints
type EvaluationHandler struct {
	service *service.EvaluationService
	logger  *logger.Logger
}

// NewEvaluationHandler creates a new evaluation handler
func NewEvaluationHandler(svc *service.EvaluationService, log *logger.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		service: svc,
		logger:  log,
	}
}

// Routes mounts the evaluation routes
func (h *EvaluationHandler) Routes(r chi.Router) {
	r.Patch("/employees/evaluation-status", h.Dispatch)
	r.Post("/evaluations/{employeeNumber}", h.Submit)
}

// DispatchRequest selects the employees to send into an evaluation cycle
type DispatchRequest struct {
	EmployeeNumbers []string `json:"employee_numbers" validate:"required,min=1"`
}

// SubmitRequest carries an evaluator's scores for one employee
type SubmitRequest struct {
	Scores []service.ScoreSubmission `json:"scores" validate:"required,min=1,dive"`
}

// Dispatch marks employees pending and notifies their managers
func (h *EvaluationHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var req DispatchRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.service.Dispatch(r.Context(), req.EmployeeNumbers)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}

// Submit records scores and marks the employee evaluated
func (h *EvaluationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	employeeNumber := chi.URLParam(r, "employeeNumber")

	var req SubmitRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.service.Submit(r.Context(), employeeNumber, req.Scores)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}
