package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/skillmatrix/skillmatrix-backend/pkg/database"
)

// RoleCompetency is one row of a role's competency template
type RoleCompetency struct {
	ID             int    `db:"id" json:"id"`
	RoleID         int    `db:"role_id" json:"role_id"`
	CompetencyCode string `db:"competency_code" json:"competency_code"`
	RequiredScore  int    `db:"role_competency_required_score" json:"role_competency_required_score"`
}

// RoleCompetencyRepository handles role competency template persistence
type RoleCompetencyRepository struct {
	db database.Queryer
}

// NewRoleCompetencyRepository creates a new role competency repository
func NewRoleCompetencyRepository(db *database.DB) *RoleCompetencyRepository {
	return &RoleCompetencyRepository{db: db}
}

// WithTx returns a copy of the repository bound to the transaction
func (r *RoleCompetencyRepository) WithTx(tx *sqlx.Tx) *RoleCompetencyRepository {
	return &RoleCompetencyRepository{db: tx}
}

// Codes lists the competency codes in a role's template
func (r *RoleCompetencyRepository) Codes(ctx context.Context, roleID int) ([]string, error) {
	var codes []string
	query := `SELECT competency_code FROM role_competencies WHERE role_id = $1 ORDER BY competency_code`
	if err := r.db.SelectContext(ctx, &codes, query, roleID); err != nil {
		return nil, err
	}
	return codes, nil
}

// ListDetailed lists a role's template with required scores
func (r *RoleCompetencyRepository) ListDetailed(ctx context.Context, roleID int) ([]*RoleCompetency, error) {
	var rows []*RoleCompetency
	query := `
		SELECT id, role_id, competency_code, role_competency_required_score
		FROM role_competencies
		WHERE role_id = $1
		ORDER BY competency_code
	`
	if err := r.db.SelectContext(ctx, &rows, query, roleID); err != nil {
		return nil, err
	}
	return rows, nil
}

// Insert adds a competency to a role's template
func (r *RoleCompetencyRepository) Insert(ctx context.Context, roleID int, code string, requiredScore int) error {
	query := `
		INSERT INTO role_competencies (role_id, competency_code, role_competency_required_score)
		VALUES ($1, $2, $3)
	`
	if _, err := r.db.ExecContext(ctx, query, roleID, code, requiredScore); err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// DeleteCodes removes competencies from a role's template and returns the
// number removed.
func (r *RoleCompetencyRepository) DeleteCodes(ctx context.Context, roleID int, codes []string) (int, error) {
	if len(codes) == 0 {
		return 0, nil
	}
	query := `DELETE FROM role_competencies WHERE role_id = $1 AND competency_code = ANY($2)`
	result, err := r.db.ExecContext(ctx, query, roleID, pq.Array(codes))
	if err != nil {
		return 0, database.MapPQError(err)
	}
	affected, _ := result.RowsAffected()
	return int(affected), nil
}

// UpdateScore updates the required score of one template row and returns
// whether a row matched.
func (r *RoleCompetencyRepository) UpdateScore(ctx context.Context, roleID int, code string, requiredScore int) (bool, error) {
	query := `
		UPDATE role_competencies
		SET role_competency_required_score = $3
		WHERE role_id = $1 AND competency_code = $2
	`
	result, err := r.db.ExecContext(ctx, query, roleID, code, requiredScore)
	if err != nil {
		return false, database.MapPQError(err)
	}
	affected, _ := result.RowsAffected()
	return affected > 0, nil
}

// RecountAssigned refreshes the role's derived assigned_comp_count from
// its template.
func (r *RoleCompetencyRepository) RecountAssigned(ctx context.Context, roleID int) error {
	query := `
		UPDATE roles
		SET assigned_comp_count = (SELECT COUNT(*) FROM role_competencies WHERE role_id = $1)
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, roleID); err != nil {
		return database.MapPQError(err)
	}
	return nil
}
