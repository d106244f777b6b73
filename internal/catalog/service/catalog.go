package service

import (
	"context"

	"github.com/skillmatrix/skillmatrix-backend/internal/catalog/repository"
	"github.com/skillmatrix/skillmatrix-backend/pkg/errors"
	"github.com/skillmatrix/skillmatrix-backend/pkg/logger"
	"github.com/skillmatrix/skillmatrix-backend/pkg/principal"
)

// CatalogService handles competency catalog business logic
type CatalogService struct {
	repo   *repository.CompetencyRepository
	logger *logger.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(repo *repository.CompetencyRepository, log *logger.Logger) *CatalogService {
	return &CatalogService{
		repo:   repo,
		logger: log,
	}
}

// CreateCompetencyRequest represents a create competency request
type CreateCompetencyRequest struct {
	Code        string `json:"competency_code" validate:"required"`
	Name        string `json:"competency_name" validate:"required"`
	Description string `json:"competency_description" validate:"required,oneof=Functional Behavioral"`
}

// UpdateCompetencyRequest represents an update competency request
type UpdateCompetencyRequest struct {
	Name        string `json:"competency_name" validate:"required"`
	Description string `json:"competency_description" validate:"required,oneof=Functional Behavioral"`
}

// Create creates a new catalog entry
func (s *CatalogService) Create(ctx context.Context, req *CreateCompetencyRequest) (*repository.Competency, error) {
	if _, err := principal.Require(ctx, principal.RoleAdmin, principal.RoleHR); err != nil {
		return nil, err
	}

	existing, _ := s.repo.GetByCode(ctx, req.Code)
	if existing != nil {
		return nil, errors.Conflict("competency code already exists")
	}

	c := &repository.Competency{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info().Str("competency_code", c.Code).Msg("competency created")
	return c, nil
}

// Get gets a competency by code
func (s *CatalogService) Get(ctx context.Context, code string) (*repository.Competency, error) {
	if _, err := principal.Current(ctx); err != nil {
		return nil, err
	}
	return s.repo.GetByCode(ctx, code)
}

// List lists all catalog entries
func (s *CatalogService) List(ctx context.Context) ([]*repository.Competency, error) {
	if _, err := principal.Current(ctx); err != nil {
		return nil, err
	}
	return s.repo.List(ctx)
}

// Update updates a competency's name and description
func (s *CatalogService) Update(ctx context.Context, code string, req *UpdateCompetencyRequest) (*repository.Competency, error) {
	if _, err := principal.Require(ctx, principal.RoleAdmin, principal.RoleHR); err != nil {
		return nil, err
	}

	c := &repository.Competency{
		Code:        code,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info().Str("competency_code", code).Msg("competency updated")
	return c, nil
}

// Delete deletes a competency. Blocked while any employee still carries
// the code.
func (s *CatalogService) Delete(ctx context.Context, code string) error {
	if _, err := principal.Require(ctx, principal.RoleAdmin, principal.RoleHR); err != nil {
		return err
	}

	refs, err := s.repo.EmployeeRefCount(ctx, code)
	if err != nil {
		return err
	}
	if refs > 0 {
		return errors.PreconditionFailed("competency is assigned to employees and cannot be deleted")
	}

	if err := s.repo.Delete(ctx, code); err != nil {
		return err
	}

	s.logger.Info().Str("competency_code", code).Msg("competency deleted")
	return nil
}
