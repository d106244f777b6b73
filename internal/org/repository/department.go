package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/skillmatrix/skillmatrix-backend/internal/reserved"
	"github.com/skillmatrix/skillmatrix-backend/pkg/database"
	"github.com/skillmatrix/skillmatrix-backend/pkg/errors"
)

// Department represents a department within a business division
type Department struct {
	ID                 int    `db:"id" json:"id"`
	Name               string `db:"name" json:"name"`
	BusinessDivisionID *int   `db:"business_division_id" json:"business_division_id,omitempty"`
}

// DepartmentRepository handles department persistence
type DepartmentRepository struct {
	db database.Queryer
}

// NewDepartmentRepository creates a new department repository
func NewDepartmentRepository(db *database.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

// WithTx returns a copy of the repository bound to the transaction
func (r *DepartmentRepository) WithTx(tx *sqlx.Tx) *DepartmentRepository {
	return &DepartmentRepository{db: tx}
}

// Create inserts a new department
func (r *DepartmentRepository) Create(ctx context.Context, d *Department) error {
	query := `INSERT INTO departments (name, business_division_id) VALUES ($1, $2) RETURNING id`
	err := r.db.QueryRowxContext(ctx, query, d.Name, d.BusinessDivisionID).Scan(&d.ID)
	if err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// GetByID gets a department by id
func (r *DepartmentRepository) GetByID(ctx context.Context, id int) (*Department, error) {
	var d Department
	query := `SELECT id, name, business_division_id FROM departments WHERE id = $1`
	err := r.db.GetContext(ctx, &d, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("department")
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetByName gets a department by name
func (r *DepartmentRepository) GetByName(ctx context.Context, name string) (*Department, error) {
	var d Department
	query := `SELECT id, name, business_division_id FROM departments WHERE name = $1`
	err := r.db.GetContext(ctx, &d, query, name)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("department")
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// List lists all departments, hiding the reserved org unit
func (r *DepartmentRepository) List(ctx context.Context) ([]*Department, error) {
	var departments []*Department
	query := `SELECT id, name, business_division_id FROM departments WHERE id != $1 ORDER BY name`
	if err := r.db.SelectContext(ctx, &departments, query, reserved.OrgUnitID); err != nil {
		return nil, err
	}
	return departments, nil
}

// Update updates a department
func (r *DepartmentRepository) Update(ctx context.Context, d *Department) error {
	query := `UPDATE departments SET name = $2, business_division_id = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, d.ID, d.Name, d.BusinessDivisionID)
	if err != nil {
		return database.MapPQError(err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("department")
	}
	return nil
}

// Delete deletes a department
func (r *DepartmentRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM departments WHERE id = $1`, id)
	if err != nil {
		return database.MapPQError(err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("department")
	}
	return nil
}

// EmployeeRefCount counts employees assigned to the department
func (r *DepartmentRepository) EmployeeRefCount(ctx context.Context, id int) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM employees WHERE department_id = $1`
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, err
	}
	return count, nil
}

// RoleLinkRefCount counts department-role links referencing the department
func (r *DepartmentRepository) RoleLinkRefCount(ctx context.Context, id int) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM department_roles WHERE department_id = $1`
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, err
	}
	return count, nil
}
