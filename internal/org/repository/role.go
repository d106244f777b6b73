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

// Role represents a job role. AssignedCompCount is derived from the role's
// competency template and maintained by the propagation engine.
type Role struct {
	ID                int    `db:"id" json:"id"`
	RoleCode          string `db:"role_code" json:"role_code"`
	RoleName          string `db:"role_name" json:"role_name"`
	RoleCategory      string `db:"role_category" json:"role_category"`
	AssignedCompCount int    `db:"assigned_comp_count" json:"assigned_comp_count"`
}

// RoleWithDepartments is a role listing row joined with the departments it
// is available in.
type RoleWithDepartments struct {
	Role
	DepartmentNames pq.StringArray `db:"department_names" json:"department_names"`
}

// RoleRepository handles role persistence
type RoleRepository struct {
	db database.Queryer
}

// NewRoleRepository creates a new role repository
func NewRoleRepository(db *database.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// WithTx returns a copy of the repository bound to the transaction
func (r *RoleRepository) WithTx(tx *sqlx.Tx) *RoleRepository {
	return &RoleRepository{db: tx}
}

// Create inserts a new role
func (r *RoleRepository) Create(ctx context.Context, role *Role) error {
	query := `
		INSERT INTO roles (role_code, role_name, role_category, assigned_comp_count)
		VALUES ($1, $2, $3, 0)
		RETURNING id
	`
	err := r.db.QueryRowxContext(ctx, query, role.RoleCode, role.RoleName, role.RoleCategory).Scan(&role.ID)
	if err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// GetByID gets a role by id
func (r *RoleRepository) GetByID(ctx context.Context, id int) (*Role, error) {
	var role Role
	query := `SELECT id, role_code, role_name, role_category, assigned_comp_count FROM roles WHERE id = $1`
	err := r.db.GetContext(ctx, &role, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("role")
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// GetByCode gets a role by role code
func (r *RoleRepository) GetByCode(ctx context.Context, code string) (*Role, error) {
	var role Role
	query := `SELECT id, role_code, role_name, role_category, assigned_comp_count FROM roles WHERE role_code = $1`
	err := r.db.GetContext(ctx, &role, query, code)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("role")
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// List lists roles with their department names, hiding the reserved role
func (r *RoleRepository) List(ctx context.Context) ([]*RoleWithDepartments, error) {
	var roles []*RoleWithDepartments
	query := `
		SELECT r.id, r.role_code, r.role_name, r.role_category, r.assigned_comp_count,
		       COALESCE(ARRAY_AGG(d.name ORDER BY d.name) FILTER (WHERE d.name IS NOT NULL), '{}') AS department_names
		FROM roles r
		LEFT JOIN department_roles dr ON dr.role_id = r.id
		LEFT JOIN departments d ON d.id = dr.department_id
		WHERE r.id != $1
		GROUP BY r.id, r.role_code, r.role_name, r.role_category, r.assigned_comp_count
		ORDER BY r.role_code
	`
	if err := r.db.SelectContext(ctx, &roles, query, reserved.OrgUnitID); err != nil {
		return nil, err
	}
	return roles, nil
}

// CodeOrNameInUse reports whether another role already uses the code or
// name. excludeID skips the role being updated; pass 0 on create.
func (r *RoleRepository) CodeOrNameInUse(ctx context.Context, code, name string, excludeID int) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM roles WHERE (role_code = $1 OR role_name = $2) AND id != $3`
	if err := r.db.GetContext(ctx, &count, query, code, name, excludeID); err != nil {
		return false, err
	}
	return count > 0, nil
}

// Update updates a role's code, name and category
func (r *RoleRepository) Update(ctx context.Context, role *Role) error {
	query := `UPDATE roles SET role_code = $2, role_name = $3, role_category = $4 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, role.ID, role.RoleCode, role.RoleName, role.RoleCategory)
	if err != nil {
		return database.MapPQError(err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("role")
	}
	return nil
}

// Delete deletes a role and its department links
func (r *RoleRepository) Delete(ctx context.Context, id int) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM department_roles WHERE role_id = $1`, id); err != nil {
		return database.MapPQError(err)
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return database.MapPQError(err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("role")
	}
	return nil
}

// EmployeeRefCount counts employees assigned to the role
func (r *RoleRepository) EmployeeRefCount(ctx context.Context, id int) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM employees WHERE role_id = $1`
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, err
	}
	return count, nil
}

// JobRefCount counts job codes carved out for the role
func (r *RoleRepository) JobRefCount(ctx context.Context, roleCode string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM role_job WHERE role_code = $1`
	if err := r.db.GetContext(ctx, &count, query, roleCode); err != nil {
		return 0, err
	}
	return count, nil
}
