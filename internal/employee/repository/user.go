package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/skillmatrix/skillmatrix-backend/pkg/database"
	"github.com/skillmatrix/skillmatrix-backend/pkg/errors"
)

// User represents a login account tied to an employee
type User struct {
	ID             int     `db:"id" json:"id"`
	EmployeeNumber *string `db:"employee_number" json:"employee_number,omitempty"`
	Email          string  `db:"email" json:"email"`
	HashedPassword string  `db:"hashed_password" json:"-"`
	Role           string  `db:"role" json:"role"`
}

// UserRepository handles user account persistence
type UserRepository struct {
	db database.Queryer
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a copy of the repository bound to the transaction
func (r *UserRepository) WithTx(tx *sqlx.Tx) *UserRepository {
	return &UserRepository{db: tx}
}

// Create inserts a new user account
func (r *UserRepository) Create(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (employee_number, email, hashed_password, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := r.db.QueryRowxContext(ctx, query, u.EmployeeNumber, u.Email, u.HashedPassword, u.Role).Scan(&u.ID)
	if err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// GetByEmployeeNumber gets a user by employee number
func (r *UserRepository) GetByEmployeeNumber(ctx context.Context, employeeNumber string) (*User, error) {
	var u User
	query := `SELECT id, employee_number, email, hashed_password, role FROM users WHERE employee_number = $1`
	err := r.db.GetContext(ctx, &u, query, employeeNumber)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("user")
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SetRole sets the access-control role of a user account
func (r *UserRepository) SetRole(ctx context.Context, employeeNumber, role string) error {
	query := `UPDATE users SET role = $2 WHERE employee_number = $1`
	result, err := r.db.ExecContext(ctx, query, employeeNumber, role)
	if err != nil {
		return database.MapPQError(err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("user")
	}
	return nil
}

// EmailsByEmployeeNumbers resolves the emails of the given employees
func (r *UserRepository) EmailsByEmployeeNumbers(ctx context.Context, employeeNumbers []string) ([]string, error) {
	if len(employeeNumbers) == 0 {
		return []string{}, nil
	}
	var emails []string
	query := `SELECT email FROM users WHERE employee_number = ANY($1) ORDER BY email`
	if err := r.db.SelectContext(ctx, &emails, query, pq.Array(employeeNumbers)); err != nil {
		return nil, err
	}
	return emails, nil
}
