package service_test

import (
	"context"
	"testing"

	emprepo "github.com/skillmatrix/skillmatrix-backend/internal/employee/repository"
	"github.com/skillmatrix/skillmatrix-backend/internal/evaluation/repository"
	"github.com/skillmatrix/skillmatrix-backend/internal/evaluation/service"
	proprepo "github.com/skillmatrix/skillmatrix-backend/internal/propagation/repository"
	"github.com/skillmatrix/skillmatrix-backend/pkg/errors"
	"github.com/skillmatrix/skillmatrix-backend/pkg/logger"
	"github.com/skillmatrix/skillmatrix-backend/pkg/messaging"
	"github.com/skillmatrix/skillmatrix-backend/pkg/principal"
	"github.com/skillmatrix/skillmatrix-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var employeeCols = []string{
	"employee_number", "employee_name", "job_code", "reporting_to", "role_id",
	"department_id", "sent_to_evaluation_by", "evaluation_status", "evaluation_by", "last_evaluated_date",
}

func hrContext(employeeNumber string) context.Context {
	return principal.WithPrincipal(context.Background(), &principal.Principal{
		EmployeeNumber: employeeNumber,
		Role:           principal.RoleHR,
	})
}

func managerContext(employeeNumber string) context.Context {
	return principal.WithPrincipal(context.Background(), &principal.Principal{
		EmployeeNumber: employeeNumber,
		Role:           principal.RoleManager,
	})
}

func newService(mockDB *testutil.MockDB, notifier service.Notifier) *service.EvaluationService {
	return service.NewEvaluationService(
		mockDB.DB,
		repository.NewEvaluationRepository(mockDB.DB),
		emprepo.NewEmployeeRepository(mockDB.DB),
		emprepo.NewUserRepository(mockDB.DB),
		proprepo.NewEmployeeCompetencyRepository(mockDB.DB),
		notifier,
		logger.Discard(),
	)
}

func expectEmployeeLookup(mockDB *testutil.MockDB, number, name string) {
	mockDB.ExpectQuery("FROM employees WHERE employee_number = $1").
		WillReturnRows(testutil.MockRows(employeeCols...).
			AddRow(number, name, "J0001", "300000009", 10, 5, nil, nil, nil, nil))
}

func TestEvaluationService_Dispatch(t *testing.T) {
	t.Run("marks employees pending and notifies their managers", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()
		notifier := testutil.NewMockNotifier()

		// Actor name lookup
		expectEmployeeLookup(mockDB, "200000001", "Harriet Lang")

		mockDB.ExpectBegin()
		mockDB.ExpectQuery("UPDATE employees").
			WillReturnRows(testutil.MockRows("employee_number").AddRow("300000001").AddRow("300000002"))
		mockDB.ExpectCommit()

		mockDB.ExpectQuery("SELECT DISTINCT reporting_to").
			WillReturnRows(testutil.MockRows("reporting_to").AddRow("300000009"))
		mockDB.ExpectQuery("SELECT email FROM users").
			WillReturnRows(testutil.MockRows("email").AddRow("300000009@company.com"))

		svc := newService(mockDB, notifier)
		result, err := svc.Dispatch(hrContext("200000001"), []string{"300000001", "300000002"})
		require.NoError(t, err)
		assert.Equal(t, []string{"300000001", "300000002"}, result.Updated)
		assert.Equal(t, []string{"300000009@company.com"}, result.Notified)

		notifier.AssertEventPublished(t, messaging.EventEvaluationDispatched)
		event := notifier.Events[0].Payload.(*messaging.EvaluationDispatchedEvent)
		assert.Equal(t, "finish your teams competency evaluation", event.Subject)
		assert.Equal(t, "Harriet Lang", event.DispatchedBy)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("no matching employees rolls back without notifying", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()
		notifier := testutil.NewMockNotifier()

		expectEmployeeLookup(mockDB, "200000001", "Harriet Lang")

		mockDB.ExpectBegin()
		mockDB.ExpectQuery("UPDATE employees").
			WillReturnRows(testutil.MockRows("employee_number"))
		mockDB.ExpectRollback()

		svc := newService(mockDB, notifier)
		_, err := svc.Dispatch(hrContext("200000001"), []string{"999999999"})
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
		assert.Contains(t, err.Error(), "no employees found")

		notifier.AssertNoEventsPublished(t)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("denies manager callers", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()
		notifier := testutil.NewMockNotifier()

		svc := newService(mockDB, notifier)
		_, err := svc.Dispatch(managerContext("300000009"), []string{"300000001"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrForbidden))
	})
}

func TestEvaluationService_Submit(t *testing.T) {
	t.Run("applies known scores and marks the employee evaluated", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()
		notifier := testutil.NewMockNotifier()

		// Employee then evaluator lookups
		expectEmployeeLookup(mockDB, "300000001", "Dana Fischer")
		expectEmployeeLookup(mockDB, "300000009", "Milo Brandt")

		mockDB.ExpectBegin()
		mockDB.ExpectExec("UPDATE employee_competencies").WillReturnResult(testutil.Result(1))
		mockDB.ExpectExec("UPDATE employee_competencies").WillReturnResult(testutil.Result(0))
		mockDB.ExpectExec("UPDATE employees").WillReturnResult(testutil.Result(1))
		mockDB.ExpectCommit()

		// One direct report still pending: no completion event
		mockDB.ExpectQuery("SELECT COUNT(*) FROM employees").
			WillReturnRows(testutil.MockRows("count").AddRow(1))

		svc := newService(mockDB, notifier)
		result, err := svc.Submit(managerContext("300000009"), "300000001", []service.ScoreSubmission{
			{CompetencyCode: "C001", ActualScore: 3},
			{CompetencyCode: "C404", ActualScore: 2},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Applied)
		assert.Equal(t, 1, result.Skipped)
		assert.False(t, result.TeamCompleted)

		notifier.AssertNoEventsPublished(t)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("publishes a completion event when the team is done", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()
		notifier := testutil.NewMockNotifier()

		expectEmployeeLookup(mockDB, "300000001", "Dana Fischer")
		expectEmployeeLookup(mockDB, "300000009", "Milo Brandt")

		mockDB.ExpectBegin()
		mockDB.ExpectExec("UPDATE employee_competencies").WillReturnResult(testutil.Result(1))
		mockDB.ExpectExec("UPDATE employees").WillReturnResult(testutil.Result(1))
		mockDB.ExpectCommit()

		mockDB.ExpectQuery("SELECT COUNT(*) FROM employees").
			WillReturnRows(testutil.MockRows("count").AddRow(0))
		mockDB.ExpectQuery("SELECT email FROM users").
			WillReturnRows(testutil.MockRows("email").AddRow("300000009@company.com"))

		svc := newService(mockDB, notifier)
		result, err := svc.Submit(managerContext("300000009"), "300000001", []service.ScoreSubmission{
			{CompetencyCode: "C001", ActualScore: 4},
		})
		require.NoError(t, err)
		assert.True(t, result.TeamCompleted)

		notifier.AssertEventPublished(t, messaging.EventTeamEvaluated)
		event := notifier.Events[0].Payload.(*messaging.TeamEvaluatedEvent)
		assert.Equal(t, "Milo Brandt", event.ManagerName)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("empty scores payload is a bad request", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()
		notifier := testutil.NewMockNotifier()

		svc := newService(mockDB, notifier)
		_, err := svc.Submit(managerContext("300000009"), "300000001", nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrBadRequest))
	})
}
