package service_test

import (
	"context"
	"encoding/json"
	"testing"

	emprepo "github.com/skillmatrix/skillmatrix-backend/internal/employee/repository"
	orgrepo "github.com/skillmatrix/skillmatrix-backend/internal/org/repository"
	"github.com/skillmatrix/skillmatrix-backend/internal/reporting/repository"
	"github.com/skillmatrix/skillmatrix-backend/internal/reporting/service"
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
		EmployeeNumber: "300000001",
		Role:           principal.RoleEmployee,
	})
}

func newService(mockDB *testutil.MockDB) *service.ReportingService {
	return service.NewReportingService(
		repository.NewReportingRepository(mockDB.DB),
		orgrepo.NewDepartmentRepository(mockDB.DB),
		emprepo.NewEmployeeRepository(mockDB.DB),
		logger.Discard(),
	)
}

var aggregateCols = []string{
	"competency_code", "competency_name", "description",
	"avg_required", "avg_actual", "evaluations", "meeting_required",
}

func TestReportingService_DepartmentPerformance(t *testing.T) {
	t.Run("ranks competencies by average score", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		mockDB.ExpectQuery("SELECT id, name, business_division_id FROM departments").
			WillReturnRows(testutil.MockRows("id", "name", "business_division_id").AddRow(5, "Assembly", 1))
		mockDB.ExpectQuery("FROM competencies c").
			WillReturnRows(testutil.MockRows(aggregateCols...).
				AddRow("C001", "Welding", "Functional", 3.0, 2.25, 4, 2).
				AddRow("C002", "Teamwork", "Behavioral", 3.5, 3.125, 8, 6))

		svc := newService(mockDB)
		report, err := svc.DepartmentPerformance(hrContext(), 5)
		require.NoError(t, err)

		assert.Equal(t, "Assembly", report.Name)
		require.Len(t, report.Competencies, 2)

		// Best average score first
		assert.Equal(t, 1, report.Competencies[0].Rank)
		assert.Equal(t, "C002", report.Competencies[0].CompetencyCode)
		assert.Equal(t, 3.13, report.Competencies[0].AverageScore)
		assert.Equal(t, 75.0, report.Competencies[0].FulfillmentRate)

		assert.Equal(t, 2, report.Competencies[1].Rank)
		assert.Equal(t, 50.0, report.Competencies[1].FulfillmentRate)

		// Overall summary averages the per-competency figures
		assert.Equal(t, 2.69, report.OverallAverageScore)
		assert.Equal(t, 62.5, report.OverallFulfillmentRate)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("empty department yields a zeroed summary", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		mockDB.ExpectQuery("SELECT id, name, business_division_id FROM departments").
			WillReturnRows(testutil.MockRows("id", "name", "business_division_id").AddRow(6, "Logistics", 1))
		mockDB.ExpectQuery("FROM competencies c").
			WillReturnRows(testutil.MockRows(aggregateCols...))

		svc := newService(mockDB)
		report, err := svc.DepartmentPerformance(hrContext(), 6)
		require.NoError(t, err)
		assert.Zero(t, report.OverallAverageScore)
		assert.Zero(t, report.OverallFulfillmentRate)
		assert.Empty(t, report.Competencies)
	})

	t.Run("denies non-HR callers", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		svc := newService(mockDB)
		_, err := svc.DepartmentPerformance(employeeContext(), 5)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrForbidden))
	})
}

func TestReportingService_OverallPerformance(t *testing.T) {
	t.Run("ranks by fulfillment rate with average score tiebreak", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		mockDB.ExpectQuery("FROM competencies c").
			WillReturnRows(testutil.MockRows(aggregateCols...).
				AddRow("C001", "Welding", "Functional", 3.0, 2.0, 4, 2).
				AddRow("C002", "Teamwork", "Behavioral", 3.0, 2.5, 4, 2).
				AddRow("C003", "Safety", "Functional", 3.0, 2.8, 5, 4))

		svc := newService(mockDB)
		rows, err := svc.OverallPerformance(hrContext())
		require.NoError(t, err)
		require.Len(t, rows, 3)

		// C003: 80% fulfillment. C001 and C002 tie at 50%, broken by
		// average score.
		assert.Equal(t, "C003", rows[0].CompetencyCode)
		assert.Equal(t, 1, rows[0].Rank)
		assert.Equal(t, "C002", rows[1].CompetencyCode)
		assert.Equal(t, "C001", rows[2].CompetencyCode)

		assert.Equal(t, 0.2, rows[0].PerformanceGap)
		assert.Equal(t, 1.0, rows[2].PerformanceGap)
		mockDB.ExpectationsWereMet(t)
	})
}

func TestReportingService_CompetencyEmployees(t *testing.T) {
	t.Run("unevaluated holders render dash markers", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		mockDB.ExpectQuery("FROM employee_competencies ec").
			WillReturnRows(testutil.MockRows("employee_number", "employee_name", "required_score", "actual_score", "evaluated").
				AddRow("300000001", "Dana Fischer", 3, 2, true).
				AddRow("300000002", "Jon Alvarez", 3, 0, false))

		svc := newService(mockDB)
		rows, err := svc.CompetencyEmployees(employeeContext(), "C001")
		require.NoError(t, err)
		require.Len(t, rows, 2)

		data, err := json.Marshal(rows[0])
		require.NoError(t, err)
		assert.Contains(t, string(data), `"actual_score":2`)
		assert.Contains(t, string(data), `"gap":1`)

		data, err = json.Marshal(rows[1])
		require.NoError(t, err)
		assert.Contains(t, string(data), `"actual_score":"-"`)
		assert.Contains(t, string(data), `"gap":"-"`)
		mockDB.ExpectationsWereMet(t)
	})
}

func TestReportingService_GapDistributions(t *testing.T) {
	t.Run("returns gap buckets to any authenticated caller", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		mockDB.ExpectQuery("FROM competencies c").
			WillReturnRows(testutil.MockRows(
				"competency_code", "competency_name", "classification",
				"gap1", "gap2", "gap3", "gap4", "total_gap_employees",
			).AddRow("C001", "Welding", "Functional", 3, 1, 0, 0, 4))

		svc := newService(mockDB)
		rows, err := svc.GapDistributions(employeeContext())
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, 4, rows[0].TotalGapEmployees)
	})

	t.Run("anonymous callers are rejected", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		svc := newService(mockDB)
		_, err := svc.GapDistributions(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrForbidden))
	})
}
