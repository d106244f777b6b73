package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/skillmatrix/skillmatrix-backend/internal/reserved"
	"github.com/skillmatrix/skillmatrix-backend/pkg/database"
	"github.com/skillmatrix/skillmatrix-backend/pkg/errors"
)

// Employee represents an employee record
type Employee struct {
	EmployeeNumber     string           `db:"employee_number" json:"employee_number"`
	EmployeeName       string           `db:"employee_name" json:"employee_name"`
	JobCode            *string          `db:"job_code" json:"job_code,omitempty"`
	ReportingTo        *string          `db:"reporting_to" json:"reporting_to,omitempty"`
	RoleID             int              `db:"role_id" json:"role_id"`
	DepartmentID       int              `db:"department_id" json:"department_id"`
	SentToEvaluationBy *string          `db:"sent_to_evaluation_by" json:"sent_to_evaluation_by,omitempty"`
	EvaluationStatus   EvaluationStatus `db:"evaluation_status" json:"evaluation_status"`
	EvaluationBy       *string          `db:"evaluation_by" json:"evaluation_by,omitempty"`
	LastEvaluatedDate  *time.Time       `db:"last_evaluated_date" json:"last_evaluated_date,omitempty"`
}

// EmployeeWithJob is an employee listing row joined with the job name
type EmployeeWithJob struct {
	Employee
	JobName *string `db:"job_name" json:"job_name,omitempty"`
}

// Manager is a manager directory entry
type Manager struct {
	EmployeeNumber string `db:"employee_number" json:"employee_number"`
	EmployeeName   string `db:"employee_name" json:"employee_name"`
}

// CompetencyDetail is one competency row of an employee detail view
type CompetencyDetail struct {
	CompetencyCode        string `db:"competency_code" json:"competency_code"`
	CompetencyName        string `db:"competency_name" json:"competency_name"`
	CompetencyDescription string `db:"competency_description" json:"competency_description"`
	RequiredScore         int    `db:"required_score" json:"required_score"`
	ActualScore           int    `db:"actual_score" json:"actual_score"`
	Gap                   int    `db:"gap" json:"gap"`
}

const employeeColumns = `employee_number, employee_name, job_code, reporting_to, role_id,
	department_id, sent_to_evaluation_by, evaluation_status, evaluation_by, last_evaluated_date`

// EmployeeRepository handles employee persistence
type EmployeeRepository struct {
	db database.Queryer
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(db *database.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// WithTx returns a copy of the repository bound to the transaction
func (r *EmployeeRepository) WithTx(tx *sqlx.Tx) *EmployeeRepository {
	return &EmployeeRepository{db: tx}
}

// Create inserts a new employee
func (r *EmployeeRepository) Create(ctx context.Context, e *Employee) error {
	query := `
		INSERT INTO employees (employee_number, employee_name, job_code, reporting_to, role_id, department_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		e.EmployeeNumber, e.EmployeeName, e.JobCode, e.ReportingTo, e.RoleID, e.DepartmentID,
	)
	if err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// GetByNumber gets an employee by employee number
func (r *EmployeeRepository) GetByNumber(ctx context.Context, employeeNumber string) (*Employee, error) {
	var e Employee
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE employee_number = $1`
	err := r.db.GetContext(ctx, &e, query, employeeNumber)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("employee")
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetWithJob gets an employee joined with the job name
func (r *EmployeeRepository) GetWithJob(ctx context.Context, employeeNumber string) (*EmployeeWithJob, error) {
	var e EmployeeWithJob
	query := `
		SELECT e.employee_number, e.employee_name, e.job_code, e.reporting_to, e.role_id,
		       e.department_id, e.sent_to_evaluation_by, e.evaluation_status, e.evaluation_by,
		       e.last_evaluated_date, rj.job_name
		FROM employees e
		LEFT JOIN role_job rj ON rj.job_code = e.job_code
		WHERE e.employee_number = $1
	`
	err := r.db.GetContext(ctx, &e, query, employeeNumber)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("employee")
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// List lists all employees with job names, excluding the reserved root
func (r *EmployeeRepository) List(ctx context.Context) ([]*EmployeeWithJob, error) {
	var employees []*EmployeeWithJob
	query := `
		SELECT e.employee_number, e.employee_name, e.job_code, e.reporting_to, e.role_id,
		       e.department_id, e.sent_to_evaluation_by, e.evaluation_status, e.evaluation_by,
		       e.last_evaluated_date, rj.job_name
		FROM employees e
		LEFT JOIN role_job rj ON rj.job_code = e.job_code
		WHERE e.employee_number != $1
		ORDER BY e.employee_number
	`
	if err := r.db.SelectContext(ctx, &employees, query, reserved.RootEmployeeNumber); err != nil {
		return nil, err
	}
	return employees, nil
}

// ListByManager lists the direct reports of a manager with job names,
// excluding the reserved root.
func (r *EmployeeRepository) ListByManager(ctx context.Context, managerNumber string) ([]*EmployeeWithJob, error) {
	var employees []*EmployeeWithJob
	query := `
		SELECT e.employee_number, e.employee_name, e.job_code, e.reporting_to, e.role_id,
		       e.department_id, e.sent_to_evaluation_by, e.evaluation_status, e.evaluation_by,
		       e.last_evaluated_date, rj.job_name
		FROM employees e
		LEFT JOIN role_job rj ON rj.job_code = e.job_code
		WHERE e.reporting_to = $1 AND e.employee_number != $2
		ORDER BY e.employee_number
	`
	if err := r.db.SelectContext(ctx, &employees, query, managerNumber, reserved.RootEmployeeNumber); err != nil {
		return nil, err
	}
	return employees, nil
}

// Managers lists employees whose user account carries the Manager role,
// excluding the reserved root.
func (r *EmployeeRepository) Managers(ctx context.Context) ([]*Manager, error) {
	var managers []*Manager
	query := `
		SELECT e.employee_number, e.employee_name
		FROM employees e
		JOIN users u ON u.employee_number = e.employee_number
		WHERE u.role = 'Manager' AND e.employee_number != $1
		ORDER BY e.employee_name
	`
	if err := r.db.SelectContext(ctx, &managers, query, reserved.RootEmployeeNumber); err != nil {
		return nil, err
	}
	return managers, nil
}

// GetManagedManager gets an employee only if their user account carries
// the Manager role. Used to validate reporting lines.
func (r *EmployeeRepository) GetManagedManager(ctx context.Context, employeeNumber string) (*Employee, error) {
	var e Employee
	query := `
		SELECT e.employee_number, e.employee_name, e.job_code, e.reporting_to, e.role_id,
		       e.department_id, e.sent_to_evaluation_by, e.evaluation_status, e.evaluation_by,
		       e.last_evaluated_date
		FROM employees e
		JOIN users u ON u.employee_number = e.employee_number
		WHERE e.employee_number = $1 AND u.role = 'Manager'
	`
	err := r.db.GetContext(ctx, &e, query, employeeNumber)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundMsg("reporting manager not found or not a manager")
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Update updates an employee's registry fields. Evaluation fields are
// owned by the evaluation workflow and left untouched.
func (r *EmployeeRepository) Update(ctx context.Context, e *Employee) error {
	query := `
		UPDATE employees
		SET employee_name = $2, job_code = $3, reporting_to = $4, role_id = $5, department_id = $6
		WHERE employee_number = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		e.EmployeeNumber, e.EmployeeName, e.JobCode, e.ReportingTo, e.RoleID, e.DepartmentID,
	)
	if err != nil {
		return database.MapPQError(err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("employee")
	}
	return nil
}

// Delete deletes an employee together with their user account and
// competency rows.
func (r *EmployeeRepository) Delete(ctx context.Context, employeeNumber string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE employee_number = $1`, employeeNumber); err != nil {
		return database.MapPQError(err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM employee_competencies WHERE employee_number = $1`, employeeNumber); err != nil {
		return database.MapPQError(err)
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM employees WHERE employee_number = $1`, employeeNumber)
	if err != nil {
		return database.MapPQError(err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("employee")
	}
	return nil
}

// DirectReportCount counts the direct reports of an employee
func (r *EmployeeRepository) DirectReportCount(ctx context.Context, employeeNumber string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM employees WHERE reporting_to = $1`
	if err := r.db.GetContext(ctx, &count, query, employeeNumber); err != nil {
		return 0, err
	}
	return count, nil
}

// JobCodeHeldByOther reports whether another employee already holds the
// given job code.
func (r *EmployeeRepository) JobCodeHeldByOther(ctx context.Context, jobCode, employeeNumber string) (bool, error) {
	var held bool
	query := `SELECT EXISTS (SELECT 1 FROM employees WHERE job_code = $1 AND employee_number <> $2)`
	if err := r.db.GetContext(ctx, &held, query, jobCode, employeeNumber); err != nil {
		return false, err
	}
	return held, nil
}

// WouldCreateReportingCycle reports whether setting managerNumber as the
// manager of employeeNumber would close a reporting loop.
func (r *EmployeeRepository) WouldCreateReportingCycle(ctx context.Context, employeeNumber, managerNumber string) (bool, error) {
	if employeeNumber == managerNumber {
		return true, nil
	}

	var cycle bool
	query := `
		WITH RECURSIVE chain AS (
			SELECT employee_number, reporting_to
			FROM employees
			WHERE employee_number = $2
			UNION ALL
			SELECT e.employee_number, e.reporting_to
			FROM employees e
			JOIN chain c ON e.employee_number = c.reporting_to
		)
		SELECT EXISTS (SELECT 1 FROM chain WHERE reporting_to = $1)
	`
	if err := r.db.GetContext(ctx, &cycle, query, employeeNumber, managerNumber); err != nil {
		return false, err
	}
	return cycle, nil
}

// CompetencyDetails lists an employee's competencies of one
// classification with the per-row gap.
func (r *EmployeeRepository) CompetencyDetails(ctx context.Context, employeeNumber, classification string) ([]*CompetencyDetail, error) {
	var details []*CompetencyDetail
	query := `
		SELECT c.competency_code, c.competency_name, c.competency_description,
		       ec.required_score, ec.actual_score,
		       ec.required_score - ec.actual_score AS gap
		FROM competencies c
		JOIN employee_competencies ec ON ec.competency_code = c.competency_code
		WHERE ec.employee_number = $1 AND c.competency_description = $2
		ORDER BY c.competency_code
	`
	if err := r.db.SelectContext(ctx, &details, query, employeeNumber, classification); err != nil {
		return nil, err
	}
	return details, nil
}

// ScoreStats aggregates an employee's competency scores
type ScoreStats struct {
	TotalCompetencies  int `db:"total_competencies"`
	TotalRequiredScore int `db:"total_required_score"`
	TotalActualScore   int `db:"total_actual_score"`
	FulfilledCount     int `db:"fulfilled_count"`
}

// ScoreStats sums an employee's required and actual scores and counts
// fulfilled competencies (actual >= required).
func (r *EmployeeRepository) ScoreStats(ctx context.Context, employeeNumber string) (*ScoreStats, error) {
	var stats ScoreStats
	query := `
		SELECT COUNT(*) AS total_competencies,
		       COALESCE(SUM(required_score), 0) AS total_required_score,
		       COALESCE(SUM(actual_score), 0) AS total_actual_score,
		       COUNT(*) FILTER (WHERE actual_score >= required_score) AS fulfilled_count
		FROM employee_competencies
		WHERE employee_number = $1
	`
	if err := r.db.GetContext(ctx, &stats, query, employeeNumber); err != nil {
		return nil, err
	}
	return &stats, nil
}
