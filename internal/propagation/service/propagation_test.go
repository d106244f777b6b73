package service_test

import (
	"context"
	"testing"

	catalogrepo "github.com/skillmatrix/skillmatrix-backend/internal/catalog/repository"
	emprepo "github.com/skillmatrix/skillmatrix-backend/internal/employee/repository"
	orgrepo "github.com/skillmatrix/skillmatrix-backend/internal/org/repository"
	"github.com/skillmatrix/skillmatrix-backend/internal/propagation/repository"
	"github.com/skillmatrix/skillmatrix-backend/internal/propagation/service"
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

func newService(mockDB *testutil.MockDB) *service.PropagationService {
	return service.NewPropagationService(
		mockDB.DB,
		repository.NewRoleCompetencyRepository(mockDB.DB),
		repository.NewEmployeeCompetencyRepository(mockDB.DB),
		catalogrepo.NewCompetencyRepository(mockDB.DB),
		orgrepo.NewRoleRepository(mockDB.DB),
		emprepo.NewEmployeeRepository(mockDB.DB),
		logger.Discard(),
	)
}

func expectRole(mockDB *testutil.MockDB, roleID int) {
	mockDB.ExpectQuery("SELECT id, role_code, role_name, role_category, assigned_comp_count FROM roles").
		WillReturnRows(testutil.MockRows("id", "role_code", "role_name", "role_category", "assigned_comp_count").
			AddRow(roleID, "R010", "Technician", "Operations", 2))
}

func TestPropagationService_AssignCompetenciesToRole(t *testing.T) {
	t.Run("assigns new codes and seeds role employees", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		expectRole(mockDB, 10)
		mockDB.ExpectQuery("SELECT competency_code FROM role_competencies").
			WillReturnRows(testutil.MockRows("competency_code").AddRow("C001"))
		mockDB.ExpectQuery("SELECT competency_code FROM competencies").
			WillReturnRows(testutil.MockRows("competency_code").AddRow("C002").AddRow("C003"))

		mockDB.ExpectBegin()
		mockDB.ExpectExec("INSERT INTO role_competencies").WillReturnResult(testutil.Result(1))
		mockDB.ExpectExec("INSERT INTO role_competencies").WillReturnResult(testutil.Result(1))
		mockDB.ExpectExec("UPDATE roles").WillReturnResult(testutil.Result(1))
		mockDB.ExpectExec("INSERT INTO employee_competencies").WillReturnResult(testutil.Result(3))
		mockDB.ExpectExec("INSERT INTO employee_competencies").WillReturnResult(testutil.Result(3))
		mockDB.ExpectCommit()

		svc := newService(mockDB)
		assigned, err := svc.AssignCompetenciesToRole(hrContext(), 10, []string{"C001", "C002", "C003"})
		require.NoError(t, err)
		assert.Equal(t, []string{"C002", "C003"}, assigned)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("all codes already templated is a no-op", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		expectRole(mockDB, 10)
		mockDB.ExpectQuery("SELECT competency_code FROM role_competencies").
			WillReturnRows(testutil.MockRows("competency_code").AddRow("C001").AddRow("C002"))

		svc := newService(mockDB)
		assigned, err := svc.AssignCompetenciesToRole(hrContext(), 10, []string{"C001", "C002"})
		require.NoError(t, err)
		assert.Empty(t, assigned)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("unknown codes are rejected before writing", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		expectRole(mockDB, 10)
		mockDB.ExpectQuery("SELECT competency_code FROM role_competencies").
			WillReturnRows(testutil.MockRows("competency_code"))
		mockDB.ExpectQuery("SELECT competency_code FROM competencies").
			WillReturnRows(testutil.MockRows("competency_code").AddRow("C001"))

		svc := newService(mockDB)
		_, err := svc.AssignCompetenciesToRole(hrContext(), 10, []string{"C001", "C404"})
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
		assert.Contains(t, err.Error(), "C404")
		mockDB.ExpectationsWereMet(t)
	})
}

func TestPropagationService_RemoveCompetenciesFromRole(t *testing.T) {
	t.Run("removes template rows and employee rows together", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		expectRole(mockDB, 10)
		mockDB.ExpectBegin()
		mockDB.ExpectExec("DELETE FROM role_competencies").WillReturnResult(testutil.Result(2))
		mockDB.ExpectExec("UPDATE roles").WillReturnResult(testutil.Result(1))
		mockDB.ExpectExec("DELETE FROM employee_competencies").WillReturnResult(testutil.Result(6))
		mockDB.ExpectCommit()

		svc := newService(mockDB)
		removed, err := svc.RemoveCompetenciesFromRole(hrContext(), 10, []string{"C001", "C002"})
		require.NoError(t, err)
		assert.Equal(t, []string{"C001", "C002"}, removed)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("rolls back when nothing matched", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		expectRole(mockDB, 10)
		mockDB.ExpectBegin()
		mockDB.ExpectExec("DELETE FROM role_competencies").WillReturnResult(testutil.Result(0))
		mockDB.ExpectRollback()

		svc := newService(mockDB)
		_, err := svc.RemoveCompetenciesFromRole(hrContext(), 10, []string{"C404"})
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
		mockDB.ExpectationsWereMet(t)
	})
}

func TestPropagationService_UpdateRoleCompetencyScores(t *testing.T) {
	t.Run("cascades matched updates into employee rows", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		expectRole(mockDB, 10)
		mockDB.ExpectBegin()
		mockDB.ExpectExec("UPDATE role_competencies").WillReturnResult(testutil.Result(1))
		mockDB.ExpectExec("UPDATE employee_competencies").WillReturnResult(testutil.Result(4))
		mockDB.ExpectExec("UPDATE role_competencies").WillReturnResult(testutil.Result(0))
		mockDB.ExpectCommit()

		svc := newService(mockDB)
		updated, err := svc.UpdateRoleCompetencyScores(hrContext(), 10, []service.CompetencyScoreUpdate{
			{CompetencyCode: "C001", RequiredScore: 4},
			{CompetencyCode: "C404", RequiredScore: 2},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, updated)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("no matching template rows is not found", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		expectRole(mockDB, 10)
		mockDB.ExpectBegin()
		mockDB.ExpectExec("UPDATE role_competencies").WillReturnResult(testutil.Result(0))
		mockDB.ExpectRollback()

		svc := newService(mockDB)
		_, err := svc.UpdateRoleCompetencyScores(hrContext(), 10, []service.CompetencyScoreUpdate{
			{CompetencyCode: "C404", RequiredScore: 2},
		})
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
		mockDB.ExpectationsWereMet(t)
	})
}

func TestPropagationService_EmployeeAssignments(t *testing.T) {
	employeeCols := []string{
		"employee_number", "employee_name", "job_code", "reporting_to", "role_id",
		"department_id", "sent_to_evaluation_by", "evaluation_status", "evaluation_by", "last_evaluated_date",
	}

	expectEmployee := func(mockDB *testutil.MockDB) {
		mockDB.ExpectQuery("FROM employees WHERE employee_number = $1").
			WillReturnRows(testutil.MockRows(employeeCols...).
				AddRow("300000001", "Dana Fischer", "J0001", "300000009", 10, 5, nil, nil, nil, nil))
	}

	t.Run("assigns new codes directly to the employee", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		expectEmployee(mockDB)
		mockDB.ExpectQuery("SELECT competency_code FROM employee_competencies").
			WillReturnRows(testutil.MockRows("competency_code"))
		mockDB.ExpectQuery("SELECT competency_code FROM competencies").
			WillReturnRows(testutil.MockRows("competency_code").AddRow("C001"))

		mockDB.ExpectBegin()
		mockDB.ExpectExec("INSERT INTO employee_competencies").WillReturnResult(testutil.Result(1))
		mockDB.ExpectCommit()

		svc := newService(mockDB)
		assigned, err := svc.AssignCompetenciesToEmployee(hrContext(), "300000001", []string{"C001"})
		require.NoError(t, err)
		assert.Equal(t, []string{"C001"}, assigned)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("removal of unassigned codes is not found", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		expectEmployee(mockDB)
		mockDB.ExpectExec("DELETE FROM employee_competencies").WillReturnResult(testutil.Result(0))

		svc := newService(mockDB)
		_, err := svc.RemoveCompetenciesFromEmployee(hrContext(), "300000001", []string{"C404"})
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
		mockDB.ExpectationsWereMet(t)
	})
}
