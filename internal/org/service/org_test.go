package service_test

import (
	"context"
	"testing"

	"github.com/skillmatrix/skillmatrix-backend/internal/org/repository"
	"github.com/skillmatrix/skillmatrix-backend/internal/org/service"
	"github.com/skillmatrix/skillmatrix-backend/pkg/errors"
	"github.com/skillmatrix/skillmatrix-backend/pkg/logger"
	"github.com/skillmatrix/skillmatrix-backend/pkg/principal"
	"github.com/skillmatrix/skillmatrix-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hrContext() context.Context {
	return principal.WithPrincipal(context.Background(), &principal.Principal{
		EmployeeNumber: "200000001",
		Role:           principal.RoleHR,
	})
}

func newService(mockDB *testutil.MockDB) *service.OrgService {
	return service.NewOrgService(
		mockDB.DB,
		repository.NewDivisionRepository(mockDB.DB),
		repository.NewDepartmentRepository(mockDB.DB),
		repository.NewRoleRepository(mockDB.DB),
		repository.NewDepartmentRoleRepository(mockDB.DB),
		logger.Discard(),
	)
}

func TestOrgService_CreateDivision(t *testing.T) {
	t.Run("trims the name and creates", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		mockDB.ExpectQuery("SELECT id, name FROM business_division WHERE name = $1").
			WithArgs("Operations").
			WillReturnRows(testutil.MockRows("id", "name"))
		mockDB.ExpectQuery("INSERT INTO business_division").
			WithArgs("Operations").
			WillReturnRows(testutil.MockRows("id").AddRow(3))

		svc := newService(mockDB)
		d, err := svc.CreateDivision(hrContext(), &service.DivisionRequest{Name: "  Operations  "})
		require.NoError(t, err)
		assert.Equal(t, 3, d.ID)
		assert.Equal(t, "Operations", d.Name)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("rejects a duplicate name", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		mockDB.ExpectQuery("SELECT id, name FROM business_division WHERE name = $1").
			WithArgs("Operations").
			WillReturnRows(testutil.MockRows("id", "name").AddRow(3, "Operations"))

		svc := newService(mockDB)
		_, err := svc.CreateDivision(hrContext(), &service.DivisionRequest{Name: "Operations"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrConflict))
	})
}

func TestOrgService_DeleteDepartment(t *testing.T) {
	t.Run("blocked while employees remain", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		mockDB.ExpectQuery("FROM departments WHERE id = $1").
			WillReturnRows(testutil.MockRows("id", "name", "business_division_id").AddRow(5, "Assembly", 1))
		mockDB.ExpectQuery("SELECT COUNT(*) FROM employees WHERE department_id = $1").
			WillReturnRows(testutil.MockRows("count").AddRow(12))

		svc := newService(mockDB)
		err := svc.DeleteDepartment(hrContext(), 5)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrPreconditionFailed))
		assert.Contains(t, err.Error(), "employees are still assigned")
	})

	t.Run("deletes an empty unlinked department", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		mockDB.ExpectQuery("FROM departments WHERE id = $1").
			WillReturnRows(testutil.MockRows("id", "name", "business_division_id").AddRow(5, "Assembly", 1))
		mockDB.ExpectQuery("SELECT COUNT(*) FROM employees WHERE department_id = $1").
			WillReturnRows(testutil.MockRows("count").AddRow(0))
		mockDB.ExpectQuery("SELECT COUNT(*) FROM department_roles WHERE department_id = $1").
			WillReturnRows(testutil.MockRows("count").AddRow(0))
		mockDB.ExpectExec("DELETE FROM departments").WillReturnResult(testutil.Result(1))

		svc := newService(mockDB)
		require.NoError(t, svc.DeleteDepartment(hrContext(), 5))
		mockDB.ExpectationsWereMet(t)
	})
}

func TestOrgService_DeleteRole(t *testing.T) {
	t.Run("blocked while job codes reference the role", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		mockDB.ExpectQuery("FROM roles WHERE id = $1").
			WillReturnRows(testutil.MockRows("id", "role_code", "role_name", "role_category", "assigned_comp_count").
				AddRow(10, "R010", "Technician", "Operations", 2))
		mockDB.ExpectQuery("SELECT COUNT(*) FROM employees WHERE role_id = $1").
			WillReturnRows(testutil.MockRows("count").AddRow(0))
		mockDB.ExpectQuery("SELECT COUNT(*) FROM role_job WHERE role_code = $1").
			WillReturnRows(testutil.MockRows("count").AddRow(3))

		svc := newService(mockDB)
		err := svc.DeleteRole(hrContext(), 10)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrPreconditionFailed))
	})
}

func TestOrgService_AssignRolesToDepartment(t *testing.T) {
	t.Run("skips existing links and counts new ones", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		mockDB.ExpectQuery("FROM departments WHERE id = $1").
			WillReturnRows(testutil.MockRows("id", "name", "business_division_id").AddRow(5, "Assembly", 1))
		mockDB.ExpectQuery("SELECT id FROM roles WHERE id = ANY($1)").
			WillReturnRows(testutil.MockRows("id").AddRow(10).AddRow(11))
		mockDB.ExpectQuery("SELECT role_id FROM department_roles").
			WillReturnRows(testutil.MockRows("role_id").AddRow(10))

		mockDB.ExpectBegin()
		mockDB.ExpectQuery("INSERT INTO department_roles").
			WillReturnRows(testutil.MockRows("id").AddRow(7))
		mockDB.ExpectCommit()

		svc := newService(mockDB)
		created, err := svc.AssignRolesToDepartment(hrContext(), 5, []int{10, 11})
		require.NoError(t, err)
		assert.Equal(t, 1, created)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("unknown role ids are rejected before writing", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		mockDB.ExpectQuery("FROM departments WHERE id = $1").
			WillReturnRows(testutil.MockRows("id", "name", "business_division_id").AddRow(5, "Assembly", 1))
		mockDB.ExpectQuery("SELECT id FROM roles WHERE id = ANY($1)").
			WillReturnRows(testutil.MockRows("id").AddRow(10))

		svc := newService(mockDB)
		_, err := svc.AssignRolesToDepartment(hrContext(), 5, []int{10, 99})
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
		assert.Contains(t, err.Error(), "99")
		mockDB.ExpectationsWereMet(t)
	})
}
