package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	catalogrepo "github.com/skillmatrix/skillmatrix-backend/internal/catalog/repository"
	emprepo "github.com/skillmatrix/skillmatrix-backend/internal/employee/repository"
	orgrepo "github.com/skillmatrix/skillmatrix-backend/internal/org/repository"
	"github.com/skillmatrix/skillmatrix-backend/internal/propagation/repository"
	"github.com/skillmatrix/skillmatrix-backend/pkg/database"
	"github.com/skillmatrix/skillmatrix-backend/pkg/errors"
	"github.com/skillmatrix/skillmatrix-backend/pkg/logger"
	"github.com/skillmatrix/skillmatrix-backend/pkg/principal"
)

// DefaultRequiredScore is the required score given to newly templated and
// newly seeded competencies.
const DefaultRequiredScore = 3

// PropagationService owns the role competency templates and the
// propagation of template changes into employee competency rows.
type PropagationService struct {
	db             *database.DB
	roleCompRepo   *repository.RoleCompetencyRepository
	empCompRepo    *repository.EmployeeCompetencyRepository
	competencyRepo *catalogrepo.CompetencyRepository
	roleRepo       *orgrepo.RoleRepository
	employeeRepo   *emprepo.EmployeeRepository
	logger         *logger.Logger
}

// NewPropagationService creates a new propagation service
func NewPropagationService(
	db *database.DB,
	roleCompRepo *repository.RoleCompetencyRepository,
	empCompRepo *repository.EmployeeCompetencyRepository,
	competencyRepo *catalogrepo.CompetencyRepository,
	roleRepo *orgrepo.RoleRepository,
	employeeRepo *emprepo.EmployeeRepository,
	log *logger.Logger,
) *PropagationService {
	return &PropagationService{
		db:             db,
		roleCompRepo:   roleCompRepo,
		empCompRepo:    empCompRepo,
		competencyRepo: competencyRepo,
		roleRepo:       roleRepo,
		employeeRepo:   employeeRepo,
		logger:         log,
	}
}

// SeedEmployee materializes the role template for a new employee or role
// assignment, skipping pairs that already exist.
func (s *PropagationService) SeedEmployee(ctx context.Context, tx *sqlx.Tx, employeeNumber string, roleID int) error {
	return s.empCompRepo.WithTx(tx).SeedFromRole(ctx, employeeNumber, roleID)
}

// ReseedEmployee discards an employee's competency rows and re-seeds them
// from the role template. Used on role change.
func (s *PropagationService) ReseedEmployee(ctx context.Context, tx *sqlx.Tx, employeeNumber string, roleID int) error {
	repo := s.empCompRepo.WithTx(tx)
	if err := repo.DeleteAll(ctx, employeeNumber); err != nil {
		return err
	}
	return repo.SeedFromRole(ctx, employeeNumber, roleID)
}

// CompetencyScoreUpdate is one template score change
type CompetencyScoreUpdate struct {
	CompetencyCode string `json:"competency_code" validate:"required"`
	RequiredScore  int    `json:"role_competency_required_score" validate:"required,gte=1,lte=4"`
}

// AssignCompetenciesToRole adds codes to a role's template with the
// default required score, refreshes the derived count and seeds the pair
// for every current employee of the role. Returns the newly assigned
// codes; codes already templated are skipped.
func (s *PropagationService) AssignCompetenciesToRole(ctx context.Context, roleID int, codes []string) ([]string, error) {
	if _, err := principal.Require(ctx, principal.RoleAdmin, principal.RoleHR); err != nil {
		return nil, err
	}

	if _, err := s.roleRepo.GetByID(ctx, roleID); err != nil {
		return nil, err
	}

	existing, err := s.roleCompRepo.Codes(ctx, roleID)
	if err != nil {
		return nil, err
	}
	newCodes := subtract(codes, existing)
	if len(newCodes) == 0 {
		return []string{}, nil
	}

	known, err := s.competencyRepo.ExistingCodes(ctx, newCodes)
	if err != nil {
		return nil, err
	}
	if missing := subtract(newCodes, known); len(missing) > 0 {
		return nil, errors.NotFoundMsg(fmt.Sprintf("competencies not found: %v", missing))
	}

	err = s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		roleComp := s.roleCompRepo.WithTx(tx)
		empComp := s.empCompRepo.WithTx(tx)

		for _, code := range newCodes {
			if err := roleComp.Insert(ctx, roleID, code, DefaultRequiredScore); err != nil {
				return err
			}
		}
		if err := roleComp.RecountAssigned(ctx, roleID); err != nil {
			return err
		}
		for _, code := range newCodes {
			if err := empComp.SeedCodeForRoleEmployees(ctx, roleID, code, DefaultRequiredScore); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int("role_id", roleID).
		Int("assigned", len(newCodes)).
		Msg("competencies assigned to role")
	return newCodes, nil
}

// RemoveCompetenciesFromRole removes codes from a role's template,
// refreshes the derived count and deletes the matching rows of the role's
// employees. NotFound when nothing matched.
func (s *PropagationService) RemoveCompetenciesFromRole(ctx context.Context, roleID int, codes []string) ([]string, error) {
	if _, err := principal.Require(ctx, principal.RoleAdmin, principal.RoleHR); err != nil {
		return nil, err
	}

	if _, err := s.roleRepo.GetByID(ctx, roleID); err != nil {
		return nil, err
	}

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		roleComp := s.roleCompRepo.WithTx(tx)

		deleted, err := roleComp.DeleteCodes(ctx, roleID, codes)
		if err != nil {
			return err
		}
		if deleted == 0 {
			return errors.NotFoundMsg("no matching competency assignments found")
		}
		if err := roleComp.RecountAssigned(ctx, roleID); err != nil {
			return err
		}
		return s.empCompRepo.WithTx(tx).DeleteCodesForRoleEmployees(ctx, roleID, codes)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int("role_id", roleID).
		Int("removed", len(codes)).
		Msg("competencies removed from role")
	return codes, nil
}

// RoleCompetencies lists a role's template with required scores
func (s *PropagationService) RoleCompetencies(ctx context.Context, roleID int) ([]*repository.RoleCompetency, error) {
	if _, err := principal.Current(ctx); err != nil {
		return nil, err
	}
	if _, err := s.roleRepo.GetByID(ctx, roleID); err != nil {
		return nil, err
	}
	return s.roleCompRepo.ListDetailed(ctx, roleID)
}

// UpdateRoleCompetencyScores updates template required scores and
// unconditionally cascades each matched change into the rows of the
// role's employees. NotFound when no code matched the template.
func (s *PropagationService) UpdateRoleCompetencyScores(ctx context.Context, roleID int, updates []CompetencyScoreUpdate) (int, error) {
	if _, err := principal.Require(ctx, principal.RoleAdmin, principal.RoleHR); err != nil {
		return 0, err
	}

	if _, err := s.roleRepo.GetByID(ctx, roleID); err != nil {
		return 0, err
	}

	updated := 0
	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		roleComp := s.roleCompRepo.WithTx(tx)
		empComp := s.empCompRepo.WithTx(tx)

		for _, update := range updates {
			matched, err := roleComp.UpdateScore(ctx, roleID, update.CompetencyCode, update.RequiredScore)
			if err != nil {
				return err
			}
			if !matched {
				continue
			}
			updated++
			if err := empComp.CascadeRequiredScoreForRole(ctx, roleID, update.CompetencyCode, update.RequiredScore); err != nil {
				return err
			}
		}

		if updated == 0 {
			return errors.NotFoundMsg("no matching competencies found for this role")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// AssignCompetenciesToEmployee adds codes directly to one employee with
// the default required score, skipping pairs that already exist. Returns
// the newly assigned codes.
func (s *PropagationService) AssignCompetenciesToEmployee(ctx context.Context, employeeNumber string, codes []string) ([]string, error) {
	if _, err := principal.Require(ctx, principal.RoleAdmin, principal.RoleHR); err != nil {
		return nil, err
	}

	if _, err := s.employeeRepo.GetByNumber(ctx, employeeNumber); err != nil {
		return nil, err
	}

	existing, err := s.empCompRepo.Codes(ctx, employeeNumber)
	if err != nil {
		return nil, err
	}
	newCodes := subtract(codes, existing)
	if len(newCodes) == 0 {
		return []string{}, nil
	}

	known, err := s.competencyRepo.ExistingCodes(ctx, newCodes)
	if err != nil {
		return nil, err
	}
	if missing := subtract(newCodes, known); len(missing) > 0 {
		return nil, errors.NotFoundMsg(fmt.Sprintf("competencies not found: %v", missing))
	}

	err = s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		repo := s.empCompRepo.WithTx(tx)
		for _, code := range newCodes {
			ec := &repository.EmployeeCompetency{
				EmployeeNumber: employeeNumber,
				CompetencyCode: code,
				RequiredScore:  DefaultRequiredScore,
				ActualScore:    0,
			}
			if err := repo.Insert(ctx, ec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return newCodes, nil
}

// RemoveCompetenciesFromEmployee removes codes directly from one
// employee. NotFound when nothing matched.
func (s *PropagationService) RemoveCompetenciesFromEmployee(ctx context.Context, employeeNumber string, codes []string) ([]string, error) {
	if _, err := principal.Require(ctx, principal.RoleAdmin, principal.RoleHR); err != nil {
		return nil, err
	}

	if _, err := s.employeeRepo.GetByNumber(ctx, employeeNumber); err != nil {
		return nil, err
	}

	deleted, err := s.empCompRepo.DeleteCodes(ctx, employeeNumber, codes)
	if err != nil {
		return nil, err
	}
	if deleted == 0 {
		return nil, errors.NotFoundMsg("no matching competencies found")
	}
	return codes, nil
}

// EmployeeScoreUpdate is one per-employee required score change
type EmployeeScoreUpdate struct {
	CompetencyCode string `json:"competency_code" validate:"required"`
	RequiredScore  int    `json:"required_score" validate:"required,gte=1,lte=4"`
}

// UpdateEmployeeCompetencyScores updates per-employee required scores.
// NotFound when no pair matched.
func (s *PropagationService) UpdateEmployeeCompetencyScores(ctx context.Context, employeeNumber string, updates []EmployeeScoreUpdate) (int, error) {
	if _, err := principal.Require(ctx, principal.RoleAdmin, principal.RoleHR); err != nil {
		return 0, err
	}

	if _, err := s.employeeRepo.GetByNumber(ctx, employeeNumber); err != nil {
		return 0, err
	}

	updated := 0
	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		repo := s.empCompRepo.WithTx(tx)
		for _, update := range updates {
			matched, err := repo.UpdateRequiredScore(ctx, employeeNumber, update.CompetencyCode, update.RequiredScore)
			if err != nil {
				return err
			}
			if matched {
				updated++
			}
		}
		if updated == 0 {
			return errors.NotFoundMsg("no matching competencies found")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// EmployeeCompetencies lists an employee's competency rows
func (s *PropagationService) EmployeeCompetencies(ctx context.Context, employeeNumber string) ([]*repository.EmployeeCompetency, error) {
	if _, err := principal.Current(ctx); err != nil {
		return nil, err
	}
	if _, err := s.employeeRepo.GetByNumber(ctx, employeeNumber); err != nil {
		return nil, err
	}
	return s.empCompRepo.List(ctx, employeeNumber)
}

// subtract returns the members of a not present in b, preserving a's
// order.
func subtract(a, b []string) []string {
	bSet := make(map[string]bool, len(b))
	for _, s := range b {
		bSet[s] = true
	}
	var out []string
	for _, s := range a {
		if !bSet[s] {
			out = append(out, s)
		}
	}
	return out
}
