package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/skillmatrix/skillmatrix-backend/pkg/database"
)

// EmployeeCompetency is one materialized employee competency row
type EmployeeCompetency struct {
	ID             int    `db:"employee_competencies_id" json:"id"`
	EmployeeNumber string `db:"employee_number" json:"employee_number"`
	CompetencyCode string `db:"competency_code" json:"competency_code"`
	RequiredScore  int    `db:"required_score" json:"required_score"`
	ActualScore    int    `db:"actual_score" json:"actual_score"`
}

// EmployeeCompetencyRepository handles employee competency persistence
type EmployeeCompetencyRepository struct {
	db database.Queryer
}

// NewEmployeeCompetencyRepository creates a new employee competency
// repository
func NewEmployeeCompetencyRepository(db *database.DB) *EmployeeCompetencyRepository {
	return &EmployeeCompetencyRepository{db: db}
}

// WithTx returns a copy of the repository bound to the transaction
func (r *EmployeeCompetencyRepository) WithTx(tx *sqlx.Tx) *EmployeeCompetencyRepository {
	return &EmployeeCompetencyRepository{db: tx}
}

// Codes lists an employee's competency codes
func (r *EmployeeCompetencyRepository) Codes(ctx context.Context, employeeNumber string) ([]string, error) {
	var codes []string
	query := `SELECT competency_code FROM employee_competencies WHERE employee_number = $1 ORDER BY competency_code`
	if err := r.db.SelectContext(ctx, &codes, query, employeeNumber); err != nil {
		return nil, err
	}
	return codes, nil
}

// List lists an employee's competency rows
func (r *EmployeeCompetencyRepository) List(ctx context.Context, employeeNumber string) ([]*EmployeeCompetency, error) {
	var rows []*EmployeeCompetency
	query := `
		SELECT employee_competencies_id, employee_number, competency_code, required_score, actual_score
		FROM employee_competencies
		WHERE employee_number = $1
		ORDER BY competency_code
	`
	if err := r.db.SelectContext(ctx, &rows, query, employeeNumber); err != nil {
		return nil, err
	}
	return rows, nil
}

// Insert adds a competency row for an employee
func (r *EmployeeCompetencyRepository) Insert(ctx context.Context, ec *EmployeeCompetency) error {
	query := `
		INSERT INTO employee_competencies (employee_number, competency_code, required_score, actual_score)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.ExecContext(ctx, query, ec.EmployeeNumber, ec.CompetencyCode, ec.RequiredScore, ec.ActualScore); err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// SeedFromRole inserts the rows of the role's template the employee does
// not have yet, with actual score 0.
func (r *EmployeeCompetencyRepository) SeedFromRole(ctx context.Context, employeeNumber string, roleID int) error {
	query := `
		INSERT INTO employee_competencies (employee_number, competency_code, required_score, actual_score)
		SELECT $1, rc.competency_code, rc.role_competency_required_score, 0
		FROM role_competencies rc
		WHERE rc.role_id = $2
		  AND NOT EXISTS (
			SELECT 1 FROM employee_competencies ec
			WHERE ec.employee_number = $1 AND ec.competency_code = rc.competency_code
		  )
	`
	if _, err := r.db.ExecContext(ctx, query, employeeNumber, roleID); err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// SeedCodeForRoleEmployees inserts the pair (employee, code) for every
// employee of the role missing it.
func (r *EmployeeCompetencyRepository) SeedCodeForRoleEmployees(ctx context.Context, roleID int, code string, requiredScore int) error {
	query := `
		INSERT INTO employee_competencies (employee_number, competency_code, required_score, actual_score)
		SELECT e.employee_number, $2, $3, 0
		FROM employees e
		WHERE e.role_id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM employee_competencies ec
			WHERE ec.employee_number = e.employee_number AND ec.competency_code = $2
		  )
	`
	if _, err := r.db.ExecContext(ctx, query, roleID, code, requiredScore); err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// DeleteAll removes every competency row of an employee
func (r *EmployeeCompetencyRepository) DeleteAll(ctx context.Context, employeeNumber string) error {
	query := `DELETE FROM employee_competencies WHERE employee_number = $1`
	if _, err := r.db.ExecContext(ctx, query, employeeNumber); err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// DeleteCodes removes the given codes from an employee and returns the
// number removed.
func (r *EmployeeCompetencyRepository) DeleteCodes(ctx context.Context, employeeNumber string, codes []string) (int, error) {
	if len(codes) == 0 {
		return 0, nil
	}
	query := `DELETE FROM employee_competencies WHERE employee_number = $1 AND competency_code = ANY($2)`
	result, err := r.db.ExecContext(ctx, query, employeeNumber, pq.Array(codes))
	if err != nil {
		return 0, database.MapPQError(err)
	}
	affected, _ := result.RowsAffected()
	return int(affected), nil
}

// DeleteCodesForRoleEmployees removes the given codes from every employee
// of the role.
func (r *EmployeeCompetencyRepository) DeleteCodesForRoleEmployees(ctx context.Context, roleID int, codes []string) error {
	if len(codes) == 0 {
		return nil
	}
	query := `
		DELETE FROM employee_competencies
		WHERE competency_code = ANY($2)
		  AND employee_number IN (SELECT employee_number FROM employees WHERE role_id = $1)
	`
	if _, err := r.db.ExecContext(ctx, query, roleID, pq.Array(codes)); err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// UpdateRequiredScore updates the required score of one employee pair and
// returns whether a row matched.
func (r *EmployeeCompetencyRepository) UpdateRequiredScore(ctx context.Context, employeeNumber, code string, requiredScore int) (bool, error) {
	query := `
		UPDATE employee_competencies
		SET required_score = $3
		WHERE employee_number = $1 AND competency_code = $2
	`
	result, err := r.db.ExecContext(ctx, query, employeeNumber, code, requiredScore)
	if err != nil {
		return false, database.MapPQError(err)
	}
	affected, _ := result.RowsAffected()
	return affected > 0, nil
}

// CascadeRequiredScoreForRole pushes a template score change into the
// rows of every employee of the role.
func (r *EmployeeCompetencyRepository) CascadeRequiredScoreForRole(ctx context.Context, roleID int, code string, requiredScore int) error {
	query := `
		UPDATE employee_competencies
		SET required_score = $3
		WHERE competency_code = $2
		  AND employee_number IN (SELECT employee_number FROM employees WHERE role_id = $1)
	`
	if _, err := r.db.ExecContext(ctx, query, roleID, code, requiredScore); err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// UpdateActualScore overwrites the actual score of one employee pair and
// returns whether a row matched. Rows are never created here.
func (r *EmployeeCompetencyRepository) UpdateActualScore(ctx context.Context, employeeNumber, code string, actualScore int) (bool, error) {
	query := `
		UPDATE employee_competencies
		SET actual_score = $3
		WHERE employee_number = $1 AND competency_code = $2
	`
	result, err := r.db.ExecContext(ctx, query, employeeNumber, code, actualScore)
	if err != nil {
		return false, database.MapPQError(err)
	}
	affected, _ := result.RowsAffected()
	return affected > 0, nil
}
