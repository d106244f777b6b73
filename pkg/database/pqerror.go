package database

import (
	"strings"

	"github.com/lib/pq"
	"github.com/skillmatrix/skillmatrix-backend/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError with a meaningful
// message. Returns nil if the error is not a pq.Error. Mutating operations
// run this after their own validation so an unexpected constraint violation
// surfaces as a recoverable failure instead of crashing the handler.
func MapPQError(err error) *errors.AppError {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return nil
	}

	switch pqErr.Code {
	// Unique constraint violation (23505)
	case "23505":
		return errors.Conflict(uniqueConstraintMessage(pqErr))

	// Foreign key violation (23503)
	case "23503":
		return errors.BadRequest("referenced record does not exist")

	// Not null violation (23502)
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	// Check constraint violation (23514)
	case "23514":
		return errors.BadRequest("data validation failed: " + pqErr.Constraint)

	default:
		return nil
	}
}

func uniqueConstraintMessage(pqErr *pq.Error) string {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "employee_number"):
		return "an employee with this employee number already exists"
	case strings.Contains(constraint, "competency_code"):
		return "a competency with this code already exists"
	case strings.Contains(constraint, "job_code"):
		return "a job with this code already exists"
	case strings.Contains(constraint, "role_code"), strings.Contains(constraint, "role_name"):
		return "a role with this code or name already exists"
	case strings.Contains(constraint, "email"):
		return "a user with this email already exists"
	default:
		return "a record with these values already exists"
	}
}
