package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/skillmatrix/skillmatrix-backend/pkg/database"
	"github.com/skillmatrix/skillmatrix-backend/pkg/errors"
)

// Competency represents a catalog entry. Description carries the
// classification ("Functional" or "Behavioral").
type Competency struct {
	Code        string `db:"competency_code" json:"competency_code"`
	Name        string `db:"competency_name" json:"competency_name"`
	Description string `db:"competency_description" json:"competency_description"`
}

// CompetencyRepository handles competency persistence
type CompetencyRepository struct {
	db database.Queryer
}

// NewCompetencyRepository creates a new competency repository
func NewCompetencyRepository(db *database.DB) *CompetencyRepository {
	return &CompetencyRepository{db: db}
}

// WithTx returns a copy of the repository bound to the transaction
func (r *CompetencyRepository) WithTx(tx *sqlx.Tx) *CompetencyRepository {
	return &CompetencyRepository{db: tx}
}

// Create inserts a new competency
func (r *CompetencyRepository) Create(ctx context.Context, c *Competency) error {
	query := `
		INSERT INTO competencies (competency_code, competency_name, competency_description)
		VALUES ($1, $2, $3)
	`
	_, err := r.db.ExecContext(ctx, query, c.Code, c.Name, c.Description)
	if err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// GetByCode gets a competency by code
func (r *CompetencyRepository) GetByCode(ctx context.Context, code string) (*Competency, error) {
	var c Competency
	query := `
		SELECT competency_code, competency_name, competency_description
		FROM competencies
		WHERE competency_code = $1
	`
	err := r.db.GetContext(ctx, &c, query, code)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("competency")
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List lists all competencies ordered by code
func (r *CompetencyRepository) List(ctx context.Context) ([]*Competency, error) {
	var competencies []*Competency
	query := `
		SELECT competency_code, competency_name, competency_description
		FROM competencies
		ORDER BY competency_code
	`
	if err := r.db.SelectContext(ctx, &competencies, query); err != nil {
		return nil, err
	}
	return competencies, nil
}

// ExistingCodes returns the subset of the given codes that exist in the
// catalog.
func (r *CompetencyRepository) ExistingCodes(ctx context.Context, codes []string) ([]string, error) {
	if len(codes) == 0 {
		return []string{}, nil
	}
	var existing []string
	query := `SELECT competency_code FROM competencies WHERE competency_code = ANY($1)`
	if err := r.db.SelectContext(ctx, &existing, query, pq.Array(codes)); err != nil {
		return nil, err
	}
	return existing, nil
}

// Update updates a competency's name and description
func (r *CompetencyRepository) Update(ctx context.Context, c *Competency) error {
	query := `
		UPDATE competencies
		SET competency_name = $2, competency_description = $3
		WHERE competency_code = $1
	`
	result, err := r.db.ExecContext(ctx, query, c.Code, c.Name, c.Description)
	if err != nil {
		return database.MapPQError(err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("competency")
	}
	return nil
}

// Delete deletes a competency
func (r *CompetencyRepository) Delete(ctx context.Context, code string) error {
	query := `DELETE FROM competencies WHERE competency_code = $1`
	result, err := r.db.ExecContext(ctx, query, code)
	if err != nil {
		return database.MapPQError(err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("competency")
	}
	return nil
}

// EmployeeRefCount counts employee competency rows referencing the code.
// Deletion is blocked while this is non-zero.
func (r *CompetencyRepository) EmployeeRefCount(ctx context.Context, code string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM employee_competencies WHERE competency_code = $1`
	if err := r.db.GetContext(ctx, &count, query, code); err != nil {
		return 0, err
	}
	return count, nil
}
