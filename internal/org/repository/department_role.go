package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/skillmatrix/skillmatrix-backend/pkg/database"
)

// DepartmentRole links a role to a department it is available in
type DepartmentRole struct {
	ID           int `db:"id" json:"id"`
	DepartmentID int `db:"department_id" json:"department_id"`
	RoleID       int `db:"role_id" json:"role_id"`
}

// DepartmentRoleRepository handles department-role link persistence
type DepartmentRoleRepository struct {
	db database.Queryer
}

// NewDepartmentRoleRepository creates a new department-role repository
func NewDepartmentRoleRepository(db *database.DB) *DepartmentRoleRepository {
	return &DepartmentRoleRepository{db: db}
}

// WithTx returns a copy of the repository bound to the transaction
func (r *DepartmentRoleRepository) WithTx(tx *sqlx.Tx) *DepartmentRoleRepository {
	return &DepartmentRoleRepository{db: tx}
}

// Create inserts a single department-role link
func (r *DepartmentRoleRepository) Create(ctx context.Context, link *DepartmentRole) error {
	query := `INSERT INTO department_roles (department_id, role_id) VALUES ($1, $2) RETURNING id`
	err := r.db.QueryRowxContext(ctx, query, link.DepartmentID, link.RoleID).Scan(&link.ID)
	if err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// Exists reports whether the department-role link exists
func (r *DepartmentRoleRepository) Exists(ctx context.Context, departmentID, roleID int) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM department_roles WHERE department_id = $1 AND role_id = $2`
	if err := r.db.GetContext(ctx, &count, query, departmentID, roleID); err != nil {
		return false, err
	}
	return count > 0, nil
}

// RoleIDs lists the role ids linked to a department
func (r *DepartmentRoleRepository) RoleIDs(ctx context.Context, departmentID int) ([]int, error) {
	var ids []int
	query := `
		SELECT r.id
		FROM roles r
		JOIN department_roles dr ON dr.role_id = r.id
		WHERE dr.department_id = $1
		ORDER BY r.id
	`
	if err := r.db.SelectContext(ctx, &ids, query, departmentID); err != nil {
		return nil, err
	}
	return ids, nil
}

// Roles lists the roles linked to a department
func (r *DepartmentRoleRepository) Roles(ctx context.Context, departmentID int) ([]*Role, error) {
	var roles []*Role
	query := `
		SELECT r.id, r.role_code, r.role_name, r.role_category, r.assigned_comp_count
		FROM roles r
		JOIN department_roles dr ON dr.role_id = r.id
		WHERE dr.department_id = $1
		ORDER BY r.role_code
	`
	if err := r.db.SelectContext(ctx, &roles, query, departmentID); err != nil {
		return nil, err
	}
	return roles, nil
}

// LinkedRoleIDs returns the subset of roleIDs already linked to the
// department.
func (r *DepartmentRoleRepository) LinkedRoleIDs(ctx context.Context, departmentID int, roleIDs []int) ([]int, error) {
	if len(roleIDs) == 0 {
		return []int{}, nil
	}
	var ids []int
	query := `SELECT role_id FROM department_roles WHERE department_id = $1 AND role_id = ANY($2)`
	if err := r.db.SelectContext(ctx, &ids, query, departmentID, pq.Array(roleIDs)); err != nil {
		return nil, err
	}
	return ids, nil
}

// ExistingRoleIDs returns the subset of roleIDs present in the roles table
func (r *DepartmentRoleRepository) ExistingRoleIDs(ctx context.Context, roleIDs []int) ([]int, error) {
	if len(roleIDs) == 0 {
		return []int{}, nil
	}
	var ids []int
	query := `SELECT id FROM roles WHERE id = ANY($1)`
	if err := r.db.SelectContext(ctx, &ids, query, pq.Array(roleIDs)); err != nil {
		return nil, err
	}
	return ids, nil
}

// RemoveLinks deletes the given role links from a department and returns
// the number removed.
func (r *DepartmentRoleRepository) RemoveLinks(ctx context.Context, departmentID int, roleIDs []int) (int, error) {
	if len(roleIDs) == 0 {
		return 0, nil
	}
	query := `DELETE FROM department_roles WHERE department_id = $1 AND role_id = ANY($2)`
	result, err := r.db.ExecContext(ctx, query, departmentID, pq.Array(roleIDs))
	if err != nil {
		return 0, database.MapPQError(err)
	}
	affected, _ := result.RowsAffected()
	return int(affected), nil
}
