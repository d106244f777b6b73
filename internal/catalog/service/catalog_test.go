package service_test

import (
	"context"
	"testing"

	"github.com/skillmatrix/skillmatrix-backend/internal/catalog/repository"
	"github.com/skillmatrix/skillmatrix-backend/internal/catalog/service"
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

func employeeContext() context.Context {
	return principal.WithPrincipal(context.Background(), &principal.Principal{
		EmployeeNumber: "200000002",
		Role:           principal.RoleEmployee,
	})
}

func newService(mockDB *testutil.MockDB) *service.CatalogService {
	repo := repository.NewCompetencyRepository(mockDB.DB)
	return service.NewCatalogService(repo, logger.Discard())
}

func TestCatalogService_Create(t *testing.T) {
	t.Run("creates a new competency", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		mockDB.ExpectQuery("SELECT competency_code, competency_name, competency_description").
			WithArgs("C100").
			WillReturnRows(testutil.MockRows("competency_code", "competency_name", "competency_description"))
		mockDB.ExpectExec("INSERT INTO competencies").
			WithArgs("C100", "Welding", "Functional").
			WillReturnResult(testutil.Result(1))

		svc := newService(mockDB)
		c, err := svc.Create(hrContext(), &service.CreateCompetencyRequest{
			Code:        "C100",
			Name:        "Welding",
			Description: "Functional",
		})
		require.NoError(t, err)
		assert.Equal(t, "C100", c.Code)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("rejects a duplicate code", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		mockDB.ExpectQuery("SELECT competency_code, competency_name, competency_description").
			WithArgs("C100").
			WillReturnRows(testutil.MockRows("competency_code", "competency_name", "competency_description").
				AddRow("C100", "Welding", "Functional"))

		svc := newService(mockDB)
		_, err := svc.Create(hrContext(), &service.CreateCompetencyRequest{
			Code:        "C100",
			Name:        "Welding",
			Description: "Functional",
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrConflict))
	})

	t.Run("denies non-HR callers", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		svc := newService(mockDB)
		_, err := svc.Create(employeeContext(), &service.CreateCompetencyRequest{
			Code:        "C100",
			Name:        "Welding",
			Description: "Functional",
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrForbidden))
		assert.Contains(t, err.Error(), "no access")
	})
}

func TestCatalogService_Delete(t *testing.T) {
	t.Run("deletes an unreferenced competency", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		mockDB.ExpectQuery("SELECT COUNT(*) FROM employee_competencies").
			WithArgs("C100").
			WillReturnRows(testutil.MockRows("count").AddRow(0))
		mockDB.ExpectExec("DELETE FROM competencies").
			WithArgs("C100").
			WillReturnResult(testutil.Result(1))

		svc := newService(mockDB)
		require.NoError(t, svc.Delete(hrContext(), "C100"))
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("blocks deletion while employees carry the code", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		mockDB.ExpectQuery("SELECT COUNT(*) FROM employee_competencies").
			WithArgs("C100").
			WillReturnRows(testutil.MockRows("count").AddRow(7))

		svc := newService(mockDB)
		err := svc.Delete(hrContext(), "C100")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrPreconditionFailed))
	})
}

func TestCatalogService_Get(t *testing.T) {
	t.Run("any authenticated caller can read", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		mockDB.ExpectQuery("SELECT competency_code, competency_name, competency_description").
			WithArgs("C200").
			WillReturnRows(testutil.MockRows("competency_code", "competency_name", "competency_description").
				AddRow("C200", "Teamwork", "Behavioral"))

		svc := newService(mockDB)
		c, err := svc.Get(employeeContext(), "C200")
		require.NoError(t, err)
		assert.Equal(t, "Teamwork", c.Name)
	})

	t.Run("unknown code is a not found error", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		mockDB.ExpectQuery("SELECT competency_code, competency_name, competency_description").
			WithArgs("C999").
			WillReturnRows(testutil.MockRows("competency_code", "competency_name", "competency_description"))

		svc := newService(mockDB)
		_, err := svc.Get(employeeContext(), "C999")
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("anonymous callers are rejected", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		svc := newService(mockDB)
		_, err := svc.Get(context.Background(), "C200")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrForbidden))
	})
}
