package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/skillmatrix/skillmatrix-backend/internal/employee/repository"
	orgrepo "github.com/skillmatrix/skillmatrix-backend/internal/org/repository"
	"github.com/skillmatrix/skillmatrix-backend/pkg/database"
	"github.com/skillmatrix/skillmatrix-backend/pkg/errors"
	"github.com/skillmatrix/skillmatrix-backend/pkg/logger"
	"github.com/skillmatrix/skillmatrix-backend/pkg/principal"
)

// CompetencySeeder materializes an employee's competency rows from their
// role template. Implemented by the propagation engine.
type CompetencySeeder interface {
	SeedEmployee(ctx context.Context, tx *sqlx.Tx, employeeNumber string, roleID int) error
	ReseedEmployee(ctx context.Context, tx *sqlx.Tx, employeeNumber string, roleID int) error
}

// EmployeeService handles employee registry business logic
type EmployeeService struct {
	db           *database.DB
	employeeRepo *repository.EmployeeRepository
	userRepo     *repository.UserRepository
	deptRepo     *orgrepo.DepartmentRepository
	roleRepo     *orgrepo.RoleRepository
	deptRoleRepo *orgrepo.DepartmentRoleRepository
	seeder       CompetencySeeder
	logger       *logger.Logger
}

// NewEmployeeService creates a new employee service
func NewEmployeeService(
	db *database.DB,
	employeeRepo *repository.EmployeeRepository,
	userRepo *repository.UserRepository,
	deptRepo *orgrepo.DepartmentRepository,
	roleRepo *orgrepo.RoleRepository,
	deptRoleRepo *orgrepo.DepartmentRoleRepository,
	seeder CompetencySeeder,
	log *logger.Logger,
) *EmployeeService {
	return &EmployeeService{
		db:           db,
		employeeRepo: employeeRepo,
		userRepo:     userRepo,
		deptRepo:     deptRepo,
		roleRepo:     roleRepo,
		deptRoleRepo: deptRoleRepo,
		seeder:       seeder,
		logger:       log,
	}
}

// EmployeeRequest represents a create/update employee request
type EmployeeRequest struct {
	EmployeeNumber string  `json:"employee_number" validate:"required"`
	EmployeeName   string  `json:"employee_name" validate:"required"`
	JobCode        *string `json:"job_code"`
	ReportingTo    *string `json:"reporting_to"`
	RoleID         int     `json:"role_id" validate:"required"`
	DepartmentID   int     `json:"department_id" validate:"required"`
}

// validateOrgAssignment checks department, role, their link and the
// reporting manager.
func (s *EmployeeService) validateOrgAssignment(ctx context.Context, req *EmployeeRequest) error {
	if _, err := s.deptRepo.GetByID(ctx, req.DepartmentID); err != nil {
		return err
	}
	if _, err := s.roleRepo.GetByID(ctx, req.RoleID); err != nil {
		return err
	}

	linked, err := s.deptRoleRepo.Exists(ctx, req.DepartmentID, req.RoleID)
	if err != nil {
		return err
	}
	if !linked {
		return errors.PreconditionFailed("this role is not available for the selected department")
	}

	if req.ReportingTo != nil && *req.ReportingTo != "" {
		if _, err := s.employeeRepo.GetManagedManager(ctx, *req.ReportingTo); err != nil {
			return err
		}
	}
	return nil
}

// Create creates an employee, seeds their competencies from the role
// template and provisions their login account.
func (s *EmployeeService) Create(ctx context.Context, req *EmployeeRequest) (*repository.Employee, error) {
	if _, err := principal.Require(ctx, principal.RoleAdmin, principal.RoleHR); err != nil {
		return nil, err
	}

	if err := s.validateOrgAssignment(ctx, req); err != nil {
		return nil, err
	}

	employee := &repository.Employee{
		EmployeeNumber: strings.TrimSpace(req.EmployeeNumber),
		EmployeeName:   strings.TrimSpace(req.EmployeeName),
		JobCode:        req.JobCode,
		ReportingTo:    req.ReportingTo,
		RoleID:         req.RoleID,
		DepartmentID:   req.DepartmentID,
	}

	// The initial password is the employee number; the account starts
	// with the Employee role.
	hashed, err := bcrypt.GenerateFromPassword([]byte(employee.EmployeeNumber), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Internal("failed to hash password")
	}

	err = s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.employeeRepo.WithTx(tx).Create(ctx, employee); err != nil {
			return err
		}
		if err := s.seeder.SeedEmployee(ctx, tx, employee.EmployeeNumber, employee.RoleID); err != nil {
			return err
		}

		user := &repository.User{
			EmployeeNumber: &employee.EmployeeNumber,
			Email:          fmt.Sprintf("%s@company.com", employee.EmployeeNumber),
			HashedPassword: string(hashed),
			Role:           string(principal.RoleEmployee),
		}
		return s.userRepo.WithTx(tx).Create(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("employee_number", employee.EmployeeNumber).Msg("employee created")
	return employee, nil
}

// Get gets an employee with their job name
func (s *EmployeeService) Get(ctx context.Context, employeeNumber string) (*repository.EmployeeWithJob, error) {
	if _, err := principal.Current(ctx); err != nil {
		return nil, err
	}
	return s.employeeRepo.GetWithJob(ctx, employeeNumber)
}

// List lists all employees
func (s *EmployeeService) List(ctx context.Context) ([]*repository.EmployeeWithJob, error) {
	if _, err := principal.Current(ctx); err != nil {
		return nil, err
	}
	return s.employeeRepo.List(ctx)
}

// Team lists the caller's direct reports
func (s *EmployeeService) Team(ctx context.Context) ([]*repository.EmployeeWithJob, error) {
	p, err := principal.Current(ctx)
	if err != nil {
		return nil, err
	}
	return s.employeeRepo.ListByManager(ctx, p.EmployeeNumber)
}

// Managers lists the manager directory
func (s *EmployeeService) Managers(ctx context.Context) ([]*repository.Manager, error) {
	if _, err := principal.Require(ctx, principal.RoleAdmin, principal.RoleHR); err != nil {
		return nil, err
	}
	return s.employeeRepo.Managers(ctx)
}

// Update updates an employee. A role change discards the employee's
// competency rows and reseeds them from the new role's template.
func (s *EmployeeService) Update(ctx context.Context, employeeNumber string, req *EmployeeRequest) (*repository.Employee, error) {
	if _, err := principal.Require(ctx, principal.RoleAdmin, principal.RoleHR); err != nil {
		return nil, err
	}

	current, err := s.employeeRepo.GetByNumber(ctx, employeeNumber)
	if err != nil {
		return nil, err
	}

	if err := s.validateOrgAssignment(ctx, req); err != nil {
		return nil, err
	}

	if req.ReportingTo != nil && *req.ReportingTo != "" {
		cycle, err := s.employeeRepo.WouldCreateReportingCycle(ctx, employeeNumber, *req.ReportingTo)
		if err != nil {
			return nil, err
		}
		if cycle {
			return nil, errors.BadRequest("reporting line would form a cycle")
		}
	}

	roleChanged := req.RoleID != current.RoleID

	employee := &repository.Employee{
		EmployeeNumber: employeeNumber,
		EmployeeName:   strings.TrimSpace(req.EmployeeName),
		JobCode:        req.JobCode,
		ReportingTo:    req.ReportingTo,
		RoleID:         req.RoleID,
		DepartmentID:   req.DepartmentID,
	}

	err = s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.employeeRepo.WithTx(tx).Update(ctx, employee); err != nil {
			return err
		}
		if roleChanged {
			// Historical scores are intentionally discarded with the
			// old role's rows.
			return s.seeder.ReseedEmployee(ctx, tx, employeeNumber, req.RoleID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("employee_number", employeeNumber).
		Bool("role_changed", roleChanged).
		Msg("employee updated")
	return employee, nil
}

// Delete deletes an employee. Blocked while anyone reports to them.
func (s *EmployeeService) Delete(ctx context.Context, employeeNumber string) error {
	if _, err := principal.Require(ctx, principal.RoleAdmin, principal.RoleHR); err != nil {
		return err
	}

	if _, err := s.employeeRepo.GetByNumber(ctx, employeeNumber); err != nil {
		return err
	}

	reports, err := s.employeeRepo.DirectReportCount(ctx, employeeNumber)
	if err != nil {
		return err
	}
	if reports > 0 {
		return errors.PreconditionFailed("cannot delete employee who has direct reports")
	}

	return s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		return s.employeeRepo.WithTx(tx).Delete(ctx, employeeNumber)
	})
}

// SetUserRoleRequest sets the access-control role of an employee's user
// account.
type SetUserRoleRequest struct {
	EmployeeNumber string `json:"employee_number" validate:"required"`
	Role           string `json:"role" validate:"required,oneof=ADMIN HR Manager HOD Employee"`
}

// SetUserRole sets a user's access-control role
func (s *EmployeeService) SetUserRole(ctx context.Context, req *SetUserRoleRequest) (*repository.User, error) {
	if _, err := principal.Require(ctx, principal.RoleAdmin, principal.RoleHR); err != nil {
		return nil, err
	}

	if err := s.userRepo.SetRole(ctx, req.EmployeeNumber, req.Role); err != nil {
		return nil, err
	}
	return s.userRepo.GetByEmployeeNumber(ctx, req.EmployeeNumber)
}

// EmployeeInfo is the header block of an employee detail view
type EmployeeInfo struct {
	EmployeeNumber        string                      `json:"employee_number"`
	EmployeeName          string                      `json:"employee_name"`
	JobCode               *string                     `json:"job_code,omitempty"`
	JobName               *string                     `json:"job_name,omitempty"`
	ReportingEmployeeName *string                     `json:"reporting_employee_name,omitempty"`
	Department            *string                     `json:"department,omitempty"`
	Role                  *string                     `json:"role,omitempty"`
	RoleCode              *string                     `json:"role_code,omitempty"`
	RoleCategory          *string                     `json:"role_category,omitempty"`
	EvaluationStatus      repository.EvaluationStatus `json:"evaluation_status"`
	SentToEvaluationBy    *string                     `json:"sent_to_evaluation_by,omitempty"`
	EvaluationBy          *string                     `json:"evaluation_by,omitempty"`
	LastEvaluatedDate     *time.Time                  `json:"last_evaluated_date,omitempty"`
}

// EmployeeDetails is the full employee detail view with competencies
// split by classification.
type EmployeeDetails struct {
	Employee               EmployeeInfo                   `json:"employee"`
	FunctionalCompetencies []*repository.CompetencyDetail `json:"functional_competencies"`
	BehavioralCompetencies []*repository.CompetencyDetail `json:"behavioral_competencies"`
}

// Details returns the full detail view for an employee
func (s *EmployeeService) Details(ctx context.Context, employeeNumber string) (*EmployeeDetails, error) {
	if _, err := principal.Current(ctx); err != nil {
		return nil, err
	}

	employee, err := s.employeeRepo.GetWithJob(ctx, employeeNumber)
	if err != nil {
		return nil, err
	}

	info := EmployeeInfo{
		EmployeeNumber:     employee.EmployeeNumber,
		EmployeeName:       employee.EmployeeName,
		JobCode:            employee.JobCode,
		JobName:            employee.JobName,
		EvaluationStatus:   employee.EvaluationStatus,
		SentToEvaluationBy: employee.SentToEvaluationBy,
		EvaluationBy:       employee.EvaluationBy,
		LastEvaluatedDate:  employee.LastEvaluatedDate,
	}

	if employee.ReportingTo != nil && *employee.ReportingTo != "" {
		if manager, err := s.employeeRepo.GetByNumber(ctx, *employee.ReportingTo); err == nil {
			info.ReportingEmployeeName = &manager.EmployeeName
		}
	}
	if dept, err := s.deptRepo.GetByID(ctx, employee.DepartmentID); err == nil {
		info.Department = &dept.Name
	}
	if role, err := s.roleRepo.GetByID(ctx, employee.RoleID); err == nil {
		info.Role = &role.RoleName
		info.RoleCode = &role.RoleCode
		info.RoleCategory = &role.RoleCategory
	}

	functional, err := s.employeeRepo.CompetencyDetails(ctx, employeeNumber, "Functional")
	if err != nil {
		return nil, err
	}
	behavioral, err := s.employeeRepo.CompetencyDetails(ctx, employeeNumber, "Behavioral")
	if err != nil {
		return nil, err
	}

	return &EmployeeDetails{
		Employee:               info,
		FunctionalCompetencies: functional,
		BehavioralCompetencies: behavioral,
	}, nil
}

// MyDetails returns the caller's own detail view
func (s *EmployeeService) MyDetails(ctx context.Context) (*EmployeeDetails, error) {
	p, err := principal.Current(ctx)
	if err != nil {
		return nil, err
	}
	return s.Details(ctx, p.EmployeeNumber)
}

// ScoreSummary is a per-employee score aggregate
type ScoreSummary struct {
	EmployeeNumber         string  `json:"employee_number"`
	TotalCompetencies      int     `json:"total_competencies"`
	AverageFulfillmentRate float64 `json:"average_fulfillment_rate_percentage"`
	TotalRequiredScore     int     `json:"total_required_score"`
	TotalActualScore       int     `json:"total_actual_score"`
}

// ScoreStats aggregates an employee's competency scores. NotFound when
// the employee has no competency rows.
func (s *EmployeeService) ScoreStats(ctx context.Context, employeeNumber string) (*ScoreSummary, error) {
	if _, err := principal.Current(ctx); err != nil {
		return nil, err
	}

	stats, err := s.employeeRepo.ScoreStats(ctx, employeeNumber)
	if err != nil {
		return nil, err
	}
	if stats.TotalCompetencies == 0 {
		return nil, errors.NotFoundMsg("employee competency records not found")
	}

	rate := float64(stats.FulfilledCount) / float64(stats.TotalCompetencies) * 100

	return &ScoreSummary{
		EmployeeNumber:         employeeNumber,
		TotalCompetencies:      stats.TotalCompetencies,
		AverageFulfillmentRate: math.Round(rate*100) / 100,
		TotalRequiredScore:     stats.TotalRequiredScore,
		TotalActualScore:       stats.TotalActualScore,
	}, nil
}
