package service_test

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/skillmatrix/skillmatrix-backend/internal/employee/repository"
	"github.com/skillmatrix/skillmatrix-backend/internal/employee/service"
	orgrepo "github.com/skillmatrix/skillmatrix-backend/internal/org/repository"
	"github.com/skillmatrix/skillmatrix-backend/pkg/errors"
	"github.com/skillmatrix/skillmatrix-backend/pkg/logger"
	"github.com/skillmatrix/skillmatrix-backend/pkg/principal"
	"github.com/skillmatrix/skillmatrix-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var employeeCols = []string{
	"employee_number", "employee_name", "job_code", "reporting_to", "role_id",
	"department_id", "sent_to_evaluation_by", "evaluation_status", "evaluation_by", "last_evaluated_date",
}

// stubSeeder records template seeding calls without touching the database
type stubSeeder struct {
	seeded   []string
	reseeded []string
}

func (s *stubSeeder) SeedEmployee(ctx context.Context, tx *sqlx.Tx, employeeNumber string, roleID int) error {
	s.seeded = append(s.seeded, employeeNumber)
	return nil
}

func (s *stubSeeder) ReseedEmployee(ctx context.Context, tx *sqlx.Tx, employeeNumber string, roleID int) error {
	s.reseeded = append(s.reseeded, employeeNumber)
	return nil
}

func hrContext() context.Context {
	return principal.WithPrincipal(context.Background(), &principal.Principal{
		EmployeeNumber: "200000001",
		Role:           principal.RoleHR,
	})
}

func newService(mockDB *testutil.MockDB, seeder service.CompetencySeeder) *service.EmployeeService {
	return service.NewEmployeeService(
		mockDB.DB,
		repository.NewEmployeeRepository(mockDB.DB),
		repository.NewUserRepository(mockDB.DB),
		orgrepo.NewDepartmentRepository(mockDB.DB),
		orgrepo.NewRoleRepository(mockDB.DB),
		orgrepo.NewDepartmentRoleRepository(mockDB.DB),
		seeder,
		logger.Discard(),
	)
}

func expectOrgAssignment(mockDB *testutil.MockDB, linked bool) {
	mockDB.ExpectQuery("FROM departments WHERE id = $1").
		WillReturnRows(testutil.MockRows("id", "name", "business_division_id").AddRow(5, "Assembly", 1))
	mockDB.ExpectQuery("FROM roles WHERE id = $1").
		WillReturnRows(testutil.MockRows("id", "role_code", "role_name", "role_category", "assigned_comp_count").
			AddRow(10, "R010", "Technician", "Operations", 2))
	linkCount := 0
	if linked {
		linkCount = 1
	}
	mockDB.ExpectQuery("SELECT COUNT(*) FROM department_roles WHERE department_id = $1 AND role_id = $2").
		WillReturnRows(testutil.MockRows("count").AddRow(linkCount))
}

func expectManagedManager(mockDB *testutil.MockDB, number, name string) {
	mockDB.ExpectQuery("u.role = 'Manager'").
		WillReturnRows(testutil.MockRows(employeeCols...).
			AddRow(number, name, "J0009", "100000000", 10, 5, nil, nil, nil, nil))
}

func TestEmployeeService_Create(t *testing.T) {
	manager := "300000009"

	t.Run("creates the employee with seeded competencies and account", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()
		seeder := &stubSeeder{}

		expectOrgAssignment(mockDB, true)
		expectManagedManager(mockDB, manager, "Milo Brandt")

		mockDB.ExpectBegin()
		mockDB.ExpectExec("INSERT INTO employees").WillReturnResult(testutil.Result(1))
		mockDB.ExpectQuery("INSERT INTO users").
			WillReturnRows(testutil.MockRows("id").AddRow(42))
		mockDB.ExpectCommit()

		svc := newService(mockDB, seeder)
		e, err := svc.Create(hrContext(), &service.EmployeeRequest{
			EmployeeNumber: "300000001",
			EmployeeName:   "Dana Fischer",
			ReportingTo:    &manager,
			RoleID:         10,
			DepartmentID:   5,
		})
		require.NoError(t, err)
		assert.Equal(t, "300000001", e.EmployeeNumber)
		assert.Equal(t, []string{"300000001"}, seeder.seeded)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("rejects a role the department does not carry", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()
		seeder := &stubSeeder{}

		expectOrgAssignment(mockDB, false)

		svc := newService(mockDB, seeder)
		_, err := svc.Create(hrContext(), &service.EmployeeRequest{
			EmployeeNumber: "300000001",
			EmployeeName:   "Dana Fischer",
			RoleID:         10,
			DepartmentID:   5,
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrPreconditionFailed))
		assert.Empty(t, seeder.seeded)
	})
}

func TestEmployeeService_Update(t *testing.T) {
	manager := "300000009"

	t.Run("role change reseeds the competency rows", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()
		seeder := &stubSeeder{}

		mockDB.ExpectQuery("FROM employees WHERE employee_number = $1").
			WillReturnRows(testutil.MockRows(employeeCols...).
				AddRow("300000001", "Dana Fischer", "J0001", manager, 11, 5, nil, nil, nil, nil))
		expectOrgAssignment(mockDB, true)
		expectManagedManager(mockDB, manager, "Milo Brandt")
		mockDB.ExpectQuery("WITH RECURSIVE chain").
			WillReturnRows(testutil.MockRows("exists").AddRow(false))

		mockDB.ExpectBegin()
		mockDB.ExpectExec("UPDATE employees").WillReturnResult(testutil.Result(1))
		mockDB.ExpectCommit()

		svc := newService(mockDB, seeder)
		e, err := svc.Update(hrContext(), "300000001", &service.EmployeeRequest{
			EmployeeNumber: "300000001",
			EmployeeName:   "Dana Fischer",
			ReportingTo:    &manager,
			RoleID:         10,
			DepartmentID:   5,
		})
		require.NoError(t, err)
		assert.Equal(t, 10, e.RoleID)
		assert.Equal(t, []string{"300000001"}, seeder.reseeded)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("same role leaves the competency rows alone", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()
		seeder := &stubSeeder{}

		mockDB.ExpectQuery("FROM employees WHERE employee_number = $1").
			WillReturnRows(testutil.MockRows(employeeCols...).
				AddRow("300000001", "Dana Fischer", "J0001", manager, 10, 5, nil, nil, nil, nil))
		expectOrgAssignment(mockDB, true)
		expectManagedManager(mockDB, manager, "Milo Brandt")
		mockDB.ExpectQuery("WITH RECURSIVE chain").
			WillReturnRows(testutil.MockRows("exists").AddRow(false))

		mockDB.ExpectBegin()
		mockDB.ExpectExec("UPDATE employees").WillReturnResult(testutil.Result(1))
		mockDB.ExpectCommit()

		svc := newService(mockDB, seeder)
		_, err := svc.Update(hrContext(), "300000001", &service.EmployeeRequest{
			EmployeeNumber: "300000001",
			EmployeeName:   "Dana Fischer",
			ReportingTo:    &manager,
			RoleID:         10,
			DepartmentID:   5,
		})
		require.NoError(t, err)
		assert.Empty(t, seeder.reseeded)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("rejects a reporting line that closes a loop", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()
		seeder := &stubSeeder{}

		mockDB.ExpectQuery("FROM employees WHERE employee_number = $1").
			WillReturnRows(testutil.MockRows(employeeCols...).
				AddRow("300000001", "Dana Fischer", "J0001", manager, 10, 5, nil, nil, nil, nil))
		expectOrgAssignment(mockDB, true)
		expectManagedManager(mockDB, manager, "Milo Brandt")
		mockDB.ExpectQuery("WITH RECURSIVE chain").
			WillReturnRows(testutil.MockRows("exists").AddRow(true))

		svc := newService(mockDB, seeder)
		_, err := svc.Update(hrContext(), "300000001", &service.EmployeeRequest{
			EmployeeNumber: "300000001",
			EmployeeName:   "Dana Fischer",
			ReportingTo:    &manager,
			RoleID:         10,
			DepartmentID:   5,
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrBadRequest))
		assert.Contains(t, err.Error(), "cycle")
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("self-reporting is rejected without a query", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()
		seeder := &stubSeeder{}

		self := "300000001"
		mockDB.ExpectQuery("FROM employees WHERE employee_number = $1").
			WillReturnRows(testutil.MockRows(employeeCols...).
				AddRow(self, "Dana Fischer", "J0001", manager, 10, 5, nil, nil, nil, nil))
		expectOrgAssignment(mockDB, true)
		expectManagedManager(mockDB, self, "Dana Fischer")

		svc := newService(mockDB, seeder)
		_, err := svc.Update(hrContext(), self, &service.EmployeeRequest{
			EmployeeNumber: self,
			EmployeeName:   "Dana Fischer",
			ReportingTo:    &self,
			RoleID:         10,
			DepartmentID:   5,
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrBadRequest))
	})
}

func TestEmployeeService_Delete(t *testing.T) {
	t.Run("blocked while direct reports remain", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		mockDB.ExpectQuery("FROM employees WHERE employee_number = $1").
			WillReturnRows(testutil.MockRows(employeeCols...).
				AddRow("300000009", "Milo Brandt", "J0009", "100000000", 10, 5, nil, nil, nil, nil))
		mockDB.ExpectQuery("SELECT COUNT(*) FROM employees WHERE reporting_to = $1").
			WillReturnRows(testutil.MockRows("count").AddRow(4))

		svc := newService(mockDB, &stubSeeder{})
		err := svc.Delete(hrContext(), "300000009")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrPreconditionFailed))
	})

	t.Run("deletes the employee with account and competency rows", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		mockDB.ExpectQuery("FROM employees WHERE employee_number = $1").
			WillReturnRows(testutil.MockRows(employeeCols...).
				AddRow("300000001", "Dana Fischer", "J0001", "300000009", 10, 5, nil, nil, nil, nil))
		mockDB.ExpectQuery("SELECT COUNT(*) FROM employees WHERE reporting_to = $1").
			WillReturnRows(testutil.MockRows("count").AddRow(0))

		mockDB.ExpectBegin()
		mockDB.ExpectExec("DELETE FROM users").WillReturnResult(testutil.Result(1))
		mockDB.ExpectExec("DELETE FROM employee_competencies").WillReturnResult(testutil.Result(5))
		mockDB.ExpectExec("DELETE FROM employees").WillReturnResult(testutil.Result(1))
		mockDB.ExpectCommit()

		svc := newService(mockDB, &stubSeeder{})
		require.NoError(t, svc.Delete(hrContext(), "300000001"))
		mockDB.ExpectationsWereMet(t)
	})
}

func TestEmployeeService_ScoreStats(t *testing.T) {
	t.Run("rounds the fulfillment rate", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		mockDB.ExpectQuery("FROM employee_competencies").
			WillReturnRows(testutil.MockRows("total_competencies", "total_required_score", "total_actual_score", "fulfilled_count").
				AddRow(3, 9, 7, 2))

		svc := newService(mockDB, &stubSeeder{})
		summary, err := svc.ScoreStats(hrContext(), "300000001")
		require.NoError(t, err)
		assert.Equal(t, 3, summary.TotalCompetencies)
		assert.Equal(t, 66.67, summary.AverageFulfillmentRate)
	})

	t.Run("no competency rows is a not found error", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		mockDB.ExpectQuery("FROM employee_competencies").
			WillReturnRows(testutil.MockRows("total_competencies", "total_required_score", "total_actual_score", "fulfilled_count").
				AddRow(0, 0, 0, 0))

		svc := newService(mockDB, &stubSeeder{})
		_, err := svc.ScoreStats(hrContext(), "300000001")
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})
}
