package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	emprepo "github.com/skillmatrix/skillmatrix-backend/internal/employee/repository"
	"github.com/skillmatrix/skillmatrix-backend/pkg/database"
)

// EvaluationRepository handles the evaluation workflow fields of the
// employee table.
type EvaluationRepository struct {
	db database.Queryer
}

// NewEvaluationRepository creates a new evaluation repository
func NewEvaluationRepository(db *database.DB) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

// WithTx returns a copy of the repository bound to the transaction
func (r *EvaluationRepository) WithTx(tx *sqlx.Tx) *EvaluationRepository {
	return &EvaluationRepository{db: tx}
}

// MarkDispatched sets the given employees to pending and records who
// dispatched them. Returns the employee numbers that matched.
func (r *EvaluationRepository) MarkDispatched(ctx context.Context, employeeNumbers []string, dispatchedBy string) ([]string, error) {
	if len(employeeNumbers) == 0 {
		return []string{}, nil
	}
	var matched []string
	query := `
		UPDATE employees
		SET evaluation_status = $2, sent_to_evaluation_by = $3
		WHERE employee_number = ANY($1)
		RETURNING employee_number
	`
	err := r.db.SelectContext(ctx, &matched, query,
		pq.Array(employeeNumbers), string(emprepo.EvaluationPending), dispatchedBy,
	)
	if err != nil {
		return nil, database.MapPQError(err)
	}
	return matched, nil
}

// DistinctManagers returns the distinct reporting managers of the given
// employees.
func (r *EvaluationRepository) DistinctManagers(ctx context.Context, employeeNumbers []string) ([]string, error) {
	if len(employeeNumbers) == 0 {
		return []string{}, nil
	}
	var managers []string
	query := `
		SELECT DISTINCT reporting_to
		FROM employees
		WHERE employee_number = ANY($1) AND reporting_to IS NOT NULL
		ORDER BY reporting_to
	`
	if err := r.db.SelectContext(ctx, &managers, query, pq.Array(employeeNumbers)); err != nil {
		return nil, err
	}
	return managers, nil
}

// MarkEvaluated sets an employee to evaluated with the evaluator's name
// and the evaluation date.
func (r *EvaluationRepository) MarkEvaluated(ctx context.Context, employeeNumber, evaluatorName string, evaluatedAt time.Time) error {
	query := `
		UPDATE employees
		SET evaluation_status = $2, evaluation_by = $3, last_evaluated_date = $4
		WHERE employee_number = $1
	`
	_, err := r.db.ExecContext(ctx, query,
		employeeNumber, string(emprepo.EvaluationEvaluated), evaluatorName, evaluatedAt,
	)
	if err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// PendingReportCount counts the direct reports of a manager still
// awaiting evaluation.
func (r *EvaluationRepository) PendingReportCount(ctx context.Context, managerNumber string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM employees WHERE reporting_to = $1 AND evaluation_status = $2`
	if err := r.db.GetContext(ctx, &count, query, managerNumber, string(emprepo.EvaluationPending)); err != nil {
		return 0, err
	}
	return count, nil
}
