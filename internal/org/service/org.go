package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/skillmatrix/skillmatrix-backend/internal/org/repository"
	"github.com/skillmatrix/skillmatrix-backend/pkg/database"
	"github.com/skillmatrix/skillmatrix-backend/pkg/errors"
	"github.com/skillmatrix/skillmatrix-backend/pkg/logger"
	"github.com/skillmatrix/skillmatrix-backend/pkg/principal"
)

// OrgService handles org structure business logic: business divisions,
// departments, roles and the links between them.
type OrgService struct {
	db           *database.DB
	divisionRepo *repository.DivisionRepository
	deptRepo     *repository.DepartmentRepository
	roleRepo     *repository.RoleRepository
	deptRoleRepo *repository.DepartmentRoleRepository
	logger       *logger.Logger
}

// NewOrgService creates a new org service
func NewOrgService(
	db *database.DB,
	divisionRepo *repository.DivisionRepository,
	deptRepo *repository.DepartmentRepository,
	roleRepo *repository.RoleRepository,
	deptRoleRepo *repository.DepartmentRoleRepository,
	log *logger.Logger,
) *OrgService {
	return &OrgService{
		db:           db,
		divisionRepo: divisionRepo,
		deptRepo:     deptRepo,
		roleRepo:     roleRepo,
		deptRoleRepo: deptRoleRepo,
		logger:       log,
	}
}

// DivisionRequest represents a create/update business division request
type DivisionRequest struct {
	Name string `json:"name" validate:"required"`
}

// DepartmentRequest represents a create/update department request
type DepartmentRequest struct {
	Name               string `json:"name" validate:"required"`
	BusinessDivisionID *int   `json:"business_division_id"`
}

// RoleRequest represents a create/update role request. DepartmentID is
// honored on create only: the new role is linked to that department.
type RoleRequest struct {
	RoleCode     string `json:"role_code" validate:"required"`
	RoleName     string `json:"role_name" validate:"required"`
	RoleCategory string `json:"role_category" validate:"required"`
	DepartmentID *int   `json:"department_id"`
}

// Business divisions

// CreateDivision creates a business division
func (s *OrgService) CreateDivision(ctx context.Context, req *DivisionRequest) (*repository.BusinessDivision, error) {
	if _, err := principal.Require(ctx, principal.RoleAdmin, principal.RoleHR); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	existing, _ := s.divisionRepo.GetByName(ctx, name)
	if existing != nil {
		return nil, errors.Conflict("business division already exists")
	}

	d := &repository.BusinessDivision{Name: name}
	if err := s.divisionRepo.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// GetDivision gets a business division by id
func (s *OrgService) GetDivision(ctx context.Context, id int) (*repository.BusinessDivision, error) {
	if _, err := principal.Current(ctx); err != nil {
		return nil, err
	}
	return s.divisionRepo.GetByID(ctx, id)
}

// ListDivisions lists all business divisions
func (s *OrgService) ListDivisions(ctx context.Context) ([]*repository.BusinessDivision, error) {
	if _, err := principal.Current(ctx); err != nil {
		return nil, err
	}
	return s.divisionRepo.List(ctx)
}

// UpdateDivision renames a business division
func (s *OrgService) UpdateDivision(ctx context.Context, id int, req *DivisionRequest) (*repository.BusinessDivision, error) {
	if _, err := principal.Require(ctx, principal.RoleAdmin, principal.RoleHR); err != nil {
		return nil, err
	}

	d := &repository.BusinessDivision{ID: id, Name: strings.TrimSpace(req.Name)}
	if err := s.divisionRepo.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// DeleteDivision deletes a business division. Blocked while departments
// still reference it.
func (s *OrgService) DeleteDivision(ctx context.Context, id int) error {
	if _, err := principal.Require(ctx, principal.RoleAdmin, principal.RoleHR); err != nil {
		return err
	}

	refs, err := s.divisionRepo.DepartmentRefCount(ctx, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return errors.PreconditionFailed("departments are still assigned to this business division")
	}
	return s.divisionRepo.Delete(ctx, id)
}

// Departments

// CreateDepartment creates a department
func (s *OrgService) CreateDepartment(ctx context.Context, req *DepartmentRequest) (*repository.Department, error) {
	if _, err := principal.Require(ctx, principal.RoleAdmin, principal.RoleHR); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	existing, _ := s.deptRepo.GetByName(ctx, name)
	if existing != nil {
		return nil, errors.Conflict("department already exists")
	}

	d := &repository.Department{Name: name, BusinessDivisionID: req.BusinessDivisionID}
	if err := s.deptRepo.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// GetDepartment gets a department by id
func (s *OrgService) GetDepartment(ctx context.Context, id int) (*repository.Department, error) {
	if _, err := principal.Current(ctx); err != nil {
		return nil, err
	}
	return s.deptRepo.GetByID(ctx, id)
}

// ListDepartments lists all departments, hiding the reserved org unit
func (s *OrgService) ListDepartments(ctx context.Context) ([]*repository.Department, error) {
	if _, err := principal.Current(ctx); err != nil {
		return nil, err
	}
	return s.deptRepo.List(ctx)
}

// UpdateDepartment updates a department. The business division, when set,
// must exist.
func (s *OrgService) UpdateDepartment(ctx context.Context, id int, req *DepartmentRequest) (*repository.Department, error) {
	if _, err := principal.Require(ctx, principal.RoleAdmin, principal.RoleHR); err != nil {
		return nil, err
	}

	current, err := s.deptRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.BusinessDivisionID != nil {
		if _, err := s.divisionRepo.GetByID(ctx, *req.BusinessDivisionID); err != nil {
			return nil, err
		}
	}

	name := strings.TrimSpace(req.Name)
	if name != current.Name {
		existing, _ := s.deptRepo.GetByName(ctx, name)
		if existing != nil {
			return nil, errors.Conflict("department name already exists")
		}
	}

	d := &repository.Department{ID: id, Name: name, BusinessDivisionID: req.BusinessDivisionID}
	if err := s.deptRepo.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// DeleteDepartment deletes a department. Blocked while employees or role
// links still reference it.
func (s *OrgService) DeleteDepartment(ctx context.Context, id int) error {
	if _, err := principal.Require(ctx, principal.RoleAdmin, principal.RoleHR); err != nil {
		return err
	}

	if _, err := s.deptRepo.GetByID(ctx, id); err != nil {
		return err
	}

	employees, err := s.deptRepo.EmployeeRefCount(ctx, id)
	if err != nil {
		return err
	}
	if employees > 0 {
		return errors.PreconditionFailed("employees are still assigned to this department")
	}

	links, err := s.deptRepo.RoleLinkRefCount(ctx, id)
	if err != nil {
		return err
	}
	if links > 0 {
		return errors.PreconditionFailed("roles are still assigned to this department")
	}

	return s.deptRepo.Delete(ctx, id)
}

// Roles

// CreateRole creates a role, optionally linking it to a department
func (s *OrgService) CreateRole(ctx context.Context, req *RoleRequest) (*repository.Role, error) {
	if _, err := principal.Require(ctx, principal.RoleAdmin, principal.RoleHR); err != nil {
		return nil, err
	}

	code := strings.TrimSpace(req.RoleCode)
	name := strings.TrimSpace(req.RoleName)

	inUse, err := s.roleRepo.CodeOrNameInUse(ctx, code, name, 0)
	if err != nil {
		return nil, err
	}
	if inUse {
		return nil, errors.Conflict("role code or name already exists")
	}

	if req.DepartmentID != nil {
		if _, err := s.deptRepo.GetByID(ctx, *req.DepartmentID); err != nil {
			return nil, err
		}
	}

	role := &repository.Role{
		RoleCode:     code,
		RoleName:     name,
		RoleCategory: strings.TrimSpace(req.RoleCategory),
	}

	err = s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.roleRepo.WithTx(tx).Create(ctx, role); err != nil {
			return err
		}
		if req.DepartmentID != nil {
			link := &repository.DepartmentRole{DepartmentID: *req.DepartmentID, RoleID: role.ID}
			if err := s.deptRoleRepo.WithTx(tx).Create(ctx, link); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("role_code", role.RoleCode).Msg("role created")
	return role, nil
}

// GetRole gets a role by id
func (s *OrgService) GetRole(ctx context.Context, id int) (*repository.Role, error) {
	if _, err := principal.Current(ctx); err != nil {
		return nil, err
	}
	return s.roleRepo.GetByID(ctx, id)
}

// ListRoles lists roles with their department names
func (s *OrgService) ListRoles(ctx context.Context) ([]*repository.RoleWithDepartments, error) {
	if _, err := principal.Current(ctx); err != nil {
		return nil, err
	}
	return s.roleRepo.List(ctx)
}

// UpdateRole updates a role's code, name and category
func (s *OrgService) UpdateRole(ctx context.Context, id int, req *RoleRequest) (*repository.Role, error) {
	if _, err := principal.Require(ctx, principal.RoleAdmin, principal.RoleHR); err != nil {
		return nil, err
	}

	role, err := s.roleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	code := strings.TrimSpace(req.RoleCode)
	name := strings.TrimSpace(req.RoleName)

	inUse, err := s.roleRepo.CodeOrNameInUse(ctx, code, name, id)
	if err != nil {
		return nil, err
	}
	if inUse {
		return nil, errors.Conflict("role name or code is already in use by another role")
	}

	role.RoleCode = code
	role.RoleName = name
	role.RoleCategory = strings.TrimSpace(req.RoleCategory)

	if err := s.roleRepo.Update(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// DeleteRole deletes a role. Blocked while employees or job codes still
// reference it; department links are removed with it.
func (s *OrgService) DeleteRole(ctx context.Context, id int) error {
	if _, err := principal.Require(ctx, principal.RoleAdmin, principal.RoleHR); err != nil {
		return err
	}

	role, err := s.roleRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	employees, err := s.roleRepo.EmployeeRefCount(ctx, id)
	if err != nil {
		return err
	}
	if employees > 0 {
		return errors.PreconditionFailed("employees are still assigned to this role")
	}

	jobs, err := s.roleRepo.JobRefCount(ctx, role.RoleCode)
	if err != nil {
		return err
	}
	if jobs > 0 {
		return errors.PreconditionFailed("jobs are still assigned to this role")
	}

	return s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		return s.roleRepo.WithTx(tx).Delete(ctx, id)
	})
}

// Department-role links

// DepartmentRoleIDs lists the role ids linked to a department
func (s *OrgService) DepartmentRoleIDs(ctx context.Context, departmentID int) ([]int, error) {
	if _, err := principal.Current(ctx); err != nil {
		return nil, err
	}
	return s.deptRoleRepo.RoleIDs(ctx, departmentID)
}

// DepartmentRoles lists the roles linked to a department
func (s *OrgService) DepartmentRoles(ctx context.Context, departmentID int) ([]*repository.Role, error) {
	if _, err := principal.Current(ctx); err != nil {
		return nil, err
	}
	return s.deptRoleRepo.Roles(ctx, departmentID)
}

// AssignRolesToDepartment links the given roles to a department, skipping
// links that already exist. Returns the number of new links.
func (s *OrgService) AssignRolesToDepartment(ctx context.Context, departmentID int, roleIDs []int) (int, error) {
	if _, err := principal.Require(ctx, principal.RoleAdmin, principal.RoleHR); err != nil {
		return 0, err
	}

	if _, err := s.deptRepo.GetByID(ctx, departmentID); err != nil {
		return 0, err
	}

	existing, err := s.deptRoleRepo.ExistingRoleIDs(ctx, roleIDs)
	if err != nil {
		return 0, err
	}
	if missing := missingIDs(roleIDs, existing); len(missing) > 0 {
		return 0, errors.NotFoundMsg(fmt.Sprintf("the following roles don't exist: %v", missing))
	}

	linked, err := s.deptRoleRepo.LinkedRoleIDs(ctx, departmentID, roleIDs)
	if err != nil {
		return 0, err
	}
	linkedSet := make(map[int]bool, len(linked))
	for _, id := range linked {
		linkedSet[id] = true
	}

	created := 0
	err = s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		repo := s.deptRoleRepo.WithTx(tx)
		for _, roleID := range roleIDs {
			if linkedSet[roleID] {
				continue
			}
			link := &repository.DepartmentRole{DepartmentID: departmentID, RoleID: roleID}
			if err := repo.Create(ctx, link); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return created, nil
}

// RemoveRolesFromDepartment removes the given role links from a
// department. Returns the number removed.
func (s *OrgService) RemoveRolesFromDepartment(ctx context.Context, departmentID int, roleIDs []int) (int, error) {
	if _, err := principal.Require(ctx, principal.RoleAdmin, principal.RoleHR); err != nil {
		return 0, err
	}

	if _, err := s.deptRepo.GetByID(ctx, departmentID); err != nil {
		return 0, err
	}

	return s.deptRoleRepo.RemoveLinks(ctx, departmentID, roleIDs)
}

// AssignRoleToDepartment links a single role to a department. Conflict
// when the link already exists.
func (s *OrgService) AssignRoleToDepartment(ctx context.Context, departmentID, roleID int) (*repository.DepartmentRole, error) {
	if _, err := principal.Require(ctx, principal.RoleAdmin, principal.RoleHR); err != nil {
		return nil, err
	}

	if _, err := s.deptRepo.GetByID(ctx, departmentID); err != nil {
		return nil, err
	}
	if _, err := s.roleRepo.GetByID(ctx, roleID); err != nil {
		return nil, err
	}

	exists, err := s.deptRoleRepo.Exists(ctx, departmentID, roleID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.Conflict("this role is already assigned to this department")
	}

	link := &repository.DepartmentRole{DepartmentID: departmentID, RoleID: roleID}
	if err := s.deptRoleRepo.Create(ctx, link); err != nil {
		return nil, err
	}
	return link, nil
}

func missingIDs(requested, existing []int) []int {
	existingSet := make(map[int]bool, len(existing))
	for _, id := range existing {
		existingSet[id] = true
	}
	var missing []int
	for _, id := range requested {
		if !existingSet[id] {
			missing = append(missing, id)
		}
	}
	return missing
}
