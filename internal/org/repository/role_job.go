package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/skillmatrix/skillmatrix-backend/internal/reserved"
	"github.com/skillmatrix/skillmatrix-backend/pkg/database"
	"github.com/skillmatrix/skillmatrix-backend/pkg/errors"
)

// RoleJob represents a job code carved out for a role
type RoleJob struct {
	JobCode   string `db:"job_code" json:"job_code"`
	JobName   string `db:"job_name" json:"job_name"`
	RoleCode  string `db:"role_code" json:"role_code"`
	JobStatus bool   `db:"job_status" json:"job_status"`
}

// JobSummaryRow is one row of the jobs summary grouped by department,
// role and job name.
type JobSummaryRow struct {
	DepartmentName string `db:"department_name" json:"department_name"`
	RoleCode       string `db:"role_code" json:"role_code"`
	RoleName       string `db:"role_name" json:"role_name"`
	RoleCategory   string `db:"role_category" json:"role_category"`
	JobName        string `db:"job_name" json:"job_name"`
	Count          int    `db:"count" json:"count"`
	LastCode       string `db:"last_code" json:"last_code"`
}

// AvailableJobCode is a job code free for assignment
type AvailableJobCode struct {
	JobCode string `db:"job_code" json:"job_code"`
	JobName string `db:"job_name" json:"job_name"`
}

// RoleJobRepository handles job code persistence
type RoleJobRepository struct {
	db database.Queryer
}

// NewRoleJobRepository creates a new role job repository
func NewRoleJobRepository(db *database.DB) *RoleJobRepository {
	return &RoleJobRepository{db: db}
}

// WithTx returns a copy of the repository bound to the transaction
func (r *RoleJobRepository) WithTx(tx *sqlx.Tx) *RoleJobRepository {
	return &RoleJobRepository{db: tx}
}

// Create inserts a single job code
func (r *RoleJobRepository) Create(ctx context.Context, job *RoleJob) error {
	query := `
		INSERT INTO role_job (job_code, job_name, role_code, job_status)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.ExecContext(ctx, query, job.JobCode, job.JobName, job.RoleCode, job.JobStatus)
	if err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// GetByCode gets a job by code
func (r *RoleJobRepository) GetByCode(ctx context.Context, jobCode string) (*RoleJob, error) {
	var job RoleJob
	query := `SELECT job_code, job_name, role_code, job_status FROM role_job WHERE job_code = $1`
	err := r.db.GetContext(ctx, &job, query, jobCode)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("job")
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// ListByRoleAndName lists jobs for a role code and job name
func (r *RoleJobRepository) ListByRoleAndName(ctx context.Context, roleCode, jobName string) ([]*RoleJob, error) {
	var jobs []*RoleJob
	query := `
		SELECT job_code, job_name, role_code, job_status
		FROM role_job
		WHERE role_code = $1 AND job_name = $2
		ORDER BY job_code
	`
	if err := r.db.SelectContext(ctx, &jobs, query, roleCode, jobName); err != nil {
		return nil, err
	}
	return jobs, nil
}

// Summary groups jobs by department, role and job name, excluding the
// reserved job code, largest pools first.
func (r *RoleJobRepository) Summary(ctx context.Context) ([]*JobSummaryRow, error) {
	var rows []*JobSummaryRow
	query := `
		SELECT d.name AS department_name, r.role_code, r.role_name, r.role_category,
		       rj.job_name, COUNT(rj.job_code) AS count, MAX(rj.job_code) AS last_code
		FROM role_job rj
		JOIN roles r ON r.role_code = rj.role_code
		JOIN department_roles dr ON dr.role_id = r.id
		JOIN departments d ON d.id = dr.department_id
		WHERE rj.job_code != $1
		GROUP BY d.name, r.role_code, r.role_name, r.role_category, rj.job_name
		ORDER BY count DESC
	`
	if err := r.db.SelectContext(ctx, &rows, query, reserved.JobCode); err != nil {
		return nil, err
	}
	return rows, nil
}

// AvailableCodes lists the active job codes of a role not held by any
// employee other than the given one.
func (r *RoleJobRepository) AvailableCodes(ctx context.Context, roleCode, employeeNumber string) ([]*AvailableJobCode, error) {
	var codes []*AvailableJobCode
	query := `
		SELECT rj.job_code, rj.job_name
		FROM role_job rj
		WHERE rj.role_code = $1
		  AND rj.job_status = TRUE
		  AND rj.job_code NOT IN (
			SELECT e.job_code FROM employees e
			WHERE e.job_code IS NOT NULL AND e.employee_number != $2
		  )
		ORDER BY rj.job_name, rj.job_code
	`
	if err := r.db.SelectContext(ctx, &codes, query, roleCode, employeeNumber); err != nil {
		return nil, err
	}
	return codes, nil
}

// LastCodes returns the highest job codes for a role and job name, newest
// first, limited to n.
func (r *RoleJobRepository) LastCodes(ctx context.Context, roleCode, jobName string, n int) ([]string, error) {
	var codes []string
	query := `
		SELECT job_code FROM role_job
		WHERE role_code = $1 AND job_name = $2
		ORDER BY job_code DESC
		LIMIT $3
	`
	if err := r.db.SelectContext(ctx, &codes, query, roleCode, jobName, n); err != nil {
		return nil, err
	}
	return codes, nil
}

// AssignedEmployees returns the job codes among the given set currently
// held by employees.
func (r *RoleJobRepository) AssignedEmployees(ctx context.Context, jobCodes []string) ([]string, error) {
	if len(jobCodes) == 0 {
		return []string{}, nil
	}
	var held []string
	query := `SELECT DISTINCT job_code FROM employees WHERE job_code = ANY($1)`
	if err := r.db.SelectContext(ctx, &held, query, pq.Array(jobCodes)); err != nil {
		return nil, err
	}
	return held, nil
}

// DeleteCodes deletes the given job codes
func (r *RoleJobRepository) DeleteCodes(ctx context.Context, jobCodes []string) (int, error) {
	if len(jobCodes) == 0 {
		return 0, nil
	}
	query := `DELETE FROM role_job WHERE job_code = ANY($1)`
	result, err := r.db.ExecContext(ctx, query, pq.Array(jobCodes))
	if err != nil {
		return 0, database.MapPQError(err)
	}
	affected, _ := result.RowsAffected()
	return int(affected), nil
}

// SetStatus sets job_status for the given codes and returns the number
// updated.
func (r *RoleJobRepository) SetStatus(ctx context.Context, jobCodes []string, active bool) (int, error) {
	if len(jobCodes) == 0 {
		return 0, nil
	}
	query := `UPDATE role_job SET job_status = $2 WHERE job_code = ANY($1)`
	result, err := r.db.ExecContext(ctx, query, pq.Array(jobCodes), active)
	if err != nil {
		return 0, database.MapPQError(err)
	}
	affected, _ := result.RowsAffected()
	return int(affected), nil
}
