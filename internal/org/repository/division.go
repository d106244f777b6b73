package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/skillmatrix/skillmatrix-backend/pkg/database"
	"github.com/skillmatrix/skillmatrix-backend/pkg/errors"
)

// BusinessDivision represents a top-level org grouping
type BusinessDivision struct {
	ID   int    `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// DivisionRepository handles business division persistence
type DivisionRepository struct {
	db database.Queryer
}

// NewDivisionRepository creates a new division repository
func NewDivisionRepository(db *database.DB) *DivisionRepository {
	return &DivisionRepository{db: db}
}

// WithTx returns a copy of the repository bound to the transaction
func (r *DivisionRepository) WithTx(tx *sqlx.Tx) *DivisionRepository {
	return &DivisionRepository{db: tx}
}

// Create inserts a new business division
func (r *DivisionRepository) Create(ctx context.Context, d *BusinessDivision) error {
	query := `INSERT INTO business_division (name) VALUES ($1) RETURNING id`
	err := r.db.QueryRowxContext(ctx, query, d.Name).Scan(&d.ID)
	if err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// GetByID gets a business division by id
func (r *DivisionRepository) GetByID(ctx context.Context, id int) (*BusinessDivision, error) {
	var d BusinessDivision
	query := `SELECT id, name FROM business_division WHERE id = $1`
	err := r.db.GetContext(ctx, &d, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("business division")
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetByName gets a business division by name
func (r *DivisionRepository) GetByName(ctx context.Context, name string) (*BusinessDivision, error) {
	var d BusinessDivision
	query := `SELECT id, name FROM business_division WHERE name = $1`
	err := r.db.GetContext(ctx, &d, query, name)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("business division")
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// List lists all business divisions
func (r *DivisionRepository) List(ctx context.Context) ([]*BusinessDivision, error) {
	var divisions []*BusinessDivision
	query := `SELECT id, name FROM business_division ORDER BY name`
	if err := r.db.SelectContext(ctx, &divisions, query); err != nil {
		return nil, err
	}
	return divisions, nil
}

// Update updates a business division's name
func (r *DivisionRepository) Update(ctx context.Context, d *BusinessDivision) error {
	query := `UPDATE business_division SET name = $2 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, d.ID, d.Name)
	if err != nil {
		return database.MapPQError(err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("business division")
	}
	return nil
}

// Delete deletes a business division
func (r *DivisionRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM business_division WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return database.MapPQError(err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("business division")
	}
	return nil
}

// DepartmentRefCount counts departments referencing the division
func (r *DivisionRepository) DepartmentRefCount(ctx context.Context, id int) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM departments WHERE business_division_id = $1`
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, err
	}
	return count, nil
}
