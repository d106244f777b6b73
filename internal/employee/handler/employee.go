package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/skillmatrix/skillmatrix-backend/internal/employee/service"
	"github.com/skillmatrix/skillmatrix-backend/pkg/httputil"
	"github.com/skillmatrix/skillmatrix-backend/pkg/logger"
)

// EmployeeHandler handles employee registry endpoints
type EmployeeHandler struct {
	service *service.EmployeeService
	logger  *logger.Logger
}

// NewEmployeeHandler creates a new employee handler
func NewEmployeeHandler(svc *service.EmployeeService, log *logger.Logger) *EmployeeHandler {
	return &EmployeeHandler{
		service: svc,
		logger:  log,
	}
}

// Routes mounts the employee routes. The /employees subtree is shared
// with the evaluation and ingestion handlers, so routes register flat
// on the parent router instead of mounting a subrouter.
func (h *EmployeeHandler) Routes(r chi.Router) {
	r.Get("/employees", h.List)
	r.Post("/employees", h.Create)
	r.Get("/employees/{employeeNumber}", h.Get)
	r.Put("/employees/{employeeNumber}", h.Update)
	r.Delete("/employees/{employeeNumber}", h.Delete)
	r.Get("/employees/{employeeNumber}/details", h.Details)
	r.Get("/employees/{employeeNumber}/score-summary", h.ScoreStats)

	r.Get("/manager/employees", h.Team)
	r.Get("/managers", h.Managers)
	r.Get("/myscores/employee-details", h.MyDetails)
	r.Put("/users/role", h.SetUserRole)
}

// List lists all employees
func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	employees, err := h.service.List(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, employees)
}

// Get gets an employee by number
func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	employeeNumber := chi.URLParam(r, "employeeNumber")

	employee, err := h.service.Get(r.Context(), employeeNumber)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, employee)
}

// Create creates an employee
func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.EmployeeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	employee, err := h.service.Create(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, employee)
}

// Update updates an employee
func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	employeeNumber := chi.URLParam(r, "employeeNumber")

	var req service.EmployeeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	employee, err := h.service.Update(r.Context(), employeeNumber, &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, employee)
}

// Delete deletes an employee
func (h *EmployeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	employeeNumber := chi.URLParam(r, "employeeNumber")

	if err := h.service.Delete(r.Context(), employeeNumber); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

// Team lists the caller's direct reports
func (h *EmployeeHandler) Team(w http.ResponseWriter, r *http.Request) {
	employees, err := h.service.Team(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, employees)
}

// Managers lists the manager directory
func (h *EmployeeHandler) Managers(w http.ResponseWriter, r *http.Request) {
	managers, err := h.service.Managers(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, managers)
}

// Details returns the full detail view for an employee
func (h *EmployeeHandler) Details(w http.ResponseWriter, r *http.Request) {
	employeeNumber := chi.URLParam(r, "employeeNumber")

	details, err := h.service.Details(r.Context(), employeeNumber)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, details)
}

// MyDetails returns the caller's own detail view
func (h *EmployeeHandler) MyDetails(w http.ResponseWriter, r *http.Request) {
	details, err := h.service.MyDetails(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, details)
}

// ScoreStats returns an employee's score summary
func (h *EmployeeHandler) ScoreStats(w http.ResponseWriter, r *http.Request) {
	employeeNumber := chi.URLParam(r, "employeeNumber")

	summary, err := h.service.ScoreStats(r.Context(), employeeNumber)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, summary)
}

// SetUserRole sets a user's access-control role
func (h *EmployeeHandler) SetUserRole(w http.ResponseWriter, r *http.Request) {
	var req service.SetUserRoleRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	user, err := h.service.SetUserRole(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, user)
}
