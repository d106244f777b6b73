package repository

import (
	"context"

	emprepo "github.com/skillmatrix/skillmatrix-backend/internal/employee/repository"
	"github.com/skillmatrix/skillmatrix-backend/pkg/database"
)

// GapDistribution buckets evaluated employees of one competency by the
// size of their score gap.
type GapDistribution struct {
	CompetencyCode    string `db:"competency_code" json:"competency_code"`
	CompetencyName    string `db:"competency_name" json:"competency_name"`
	Classification    string `db:"classification" json:"classification"`
	Gap1              int    `db:"gap1" json:"gap1"`
	Gap2              int    `db:"gap2" json:"gap2"`
	Gap3              int    `db:"gap3" json:"gap3"`
	Gap4              int    `db:"gap4" json:"gap4"`
	TotalGapEmployees int    `db:"total_gap_employees" json:"total_gap_employees"`
}

// EvaluatedDetail is one evaluated employee-competency row with the gap
// already computed.
type EvaluatedDetail struct {
	EmployeeNumber        string `db:"employee_number" json:"employee_number"`
	EmployeeName          string `db:"employee_name" json:"employee_name"`
	CompetencyCode        string `db:"competency_code" json:"competency_code"`
	CompetencyName        string `db:"competency_name" json:"competency_name"`
	CompetencyDescription string `db:"competency_description" json:"competency_description"`
	RequiredScore         int    `db:"required_score" json:"required_score"`
	ActualScore           int    `db:"actual_score" json:"actual_score"`
	Gap                   int    `db:"gap" json:"gap"`
}

// CompetencyEmployeeRow is one holder of a competency, evaluated or not
type CompetencyEmployeeRow struct {
	EmployeeNumber string `db:"employee_number"`
	EmployeeName   string `db:"employee_name"`
	RequiredScore  int    `db:"required_score"`
	ActualScore    int    `db:"actual_score"`
	Evaluated      bool   `db:"evaluated"`
}

// CompetencyAggregate is the per-competency score aggregate over a set
// of employees.
type CompetencyAggregate struct {
	CompetencyCode  string  `db:"competency_code"`
	CompetencyName  string  `db:"competency_name"`
	Description     string  `db:"description"`
	AvgRequired     float64 `db:"avg_required"`
	AvgActual       float64 `db:"avg_actual"`
	Evaluations     int     `db:"evaluations"`
	MeetingRequired int     `db:"meeting_required"`
}

// ReportingRepository runs the read-only aggregate queries behind the
// reporting endpoints.
type ReportingRepository struct {
	db database.Queryer
}

// NewReportingRepository creates a new reporting repository
func NewReportingRepository(db *database.DB) *ReportingRepository {
	return &ReportingRepository{db: db}
}

// GapDistributions buckets every competency's evaluated holders by gap
// size, worst-covered competencies first. Competencies nobody holds
// still appear with zero counts.
func (r *ReportingRepository) GapDistributions(ctx context.Context) ([]*GapDistribution, error) {
	var rows []*GapDistribution
	query := `
		SELECT c.competency_code,
		       c.competency_name,
		       c.competency_description AS classification,
		       COUNT(*) FILTER (WHERE e.evaluation_status = $1 AND ec.required_score - ec.actual_score = 1) AS gap1,
		       COUNT(*) FILTER (WHERE e.evaluation_status = $1 AND ec.required_score - ec.actual_score = 2) AS gap2,
		       COUNT(*) FILTER (WHERE e.evaluation_status = $1 AND ec.required_score - ec.actual_score = 3) AS gap3,
		       COUNT(*) FILTER (WHERE e.evaluation_status = $1 AND ec.required_score - ec.actual_score = 4) AS gap4,
		       COUNT(*) FILTER (WHERE e.evaluation_status = $1 AND ec.required_score - ec.actual_score BETWEEN 1 AND 4) AS total_gap_employees
		FROM competencies c
		LEFT JOIN employee_competencies ec ON ec.competency_code = c.competency_code
		LEFT JOIN employees e ON e.employee_number = ec.employee_number
		GROUP BY c.competency_code, c.competency_name, c.competency_description
		ORDER BY total_gap_employees DESC, c.competency_code
	`
	if err := r.db.SelectContext(ctx, &rows, query, string(emprepo.EvaluationEvaluated)); err != nil {
		return nil, err
	}
	return rows, nil
}

// EvaluatedDetails lists every evaluated employee-competency row ordered
// by employee number.
func (r *ReportingRepository) EvaluatedDetails(ctx context.Context) ([]*EvaluatedDetail, error) {
	var rows []*EvaluatedDetail
	query := `
		SELECT e.employee_number,
		       e.employee_name,
		       c.competency_code,
		       c.competency_name,
		       c.competency_description,
		       ec.required_score,
		       ec.actual_score,
		       ec.required_score - ec.actual_score AS gap
		FROM employee_competencies ec
		JOIN employees e ON e.employee_number = ec.employee_number
		JOIN competencies c ON c.competency_code = ec.competency_code
		WHERE e.evaluation_status = $1
		ORDER BY e.employee_number, c.competency_code
	`
	if err := r.db.SelectContext(ctx, &rows, query, string(emprepo.EvaluationEvaluated)); err != nil {
		return nil, err
	}
	return rows, nil
}

// CompetencyEmployees lists every holder of one competency, evaluated
// holders first ordered by ascending gap, unevaluated holders after.
func (r *ReportingRepository) CompetencyEmployees(ctx context.Context, competencyCode string) ([]*CompetencyEmployeeRow, error) {
	var rows []*CompetencyEmployeeRow
	query := `
		SELECT ec.employee_number,
		       e.employee_name,
		       ec.required_score,
		       ec.actual_score,
		       COALESCE(e.evaluation_status = $2, FALSE) AS evaluated
		FROM employee_competencies ec
		JOIN employees e ON e.employee_number = ec.employee_number
		WHERE ec.competency_code = $1
		ORDER BY evaluated DESC, ec.required_score - ec.actual_score, ec.employee_number
	`
	if err := r.db.SelectContext(ctx, &rows, query, competencyCode, string(emprepo.EvaluationEvaluated)); err != nil {
		return nil, err
	}
	return rows, nil
}

const competencyAggregateQuery = `
	SELECT c.competency_code,
	       c.competency_name,
	       c.competency_description AS description,
	       AVG(ec.required_score) AS avg_required,
	       AVG(ec.actual_score) AS avg_actual,
	       COUNT(ec.employee_competencies_id) AS evaluations,
	       COUNT(*) FILTER (WHERE ec.actual_score >= ec.required_score) AS meeting_required
	FROM competencies c
	JOIN employee_competencies ec ON ec.competency_code = c.competency_code
	JOIN employees e ON e.employee_number = ec.employee_number
`

// DepartmentAggregates computes per-competency score aggregates over one
// department's employees.
func (r *ReportingRepository) DepartmentAggregates(ctx context.Context, departmentID int) ([]*CompetencyAggregate, error) {
	var rows []*CompetencyAggregate
	query := competencyAggregateQuery + `
	WHERE e.department_id = $1
	GROUP BY c.competency_code, c.competency_name, c.competency_description
	`
	if err := r.db.SelectContext(ctx, &rows, query, departmentID); err != nil {
		return nil, err
	}
	return rows, nil
}

// ManagerAggregates computes per-competency score aggregates over one
// manager's direct reports.
func (r *ReportingRepository) ManagerAggregates(ctx context.Context, managerNumber string) ([]*CompetencyAggregate, error) {
	var rows []*CompetencyAggregate
	query := competencyAggregateQuery + `
	WHERE e.reporting_to = $1
	GROUP BY c.competency_code, c.competency_name, c.competency_description
	`
	if err := r.db.SelectContext(ctx, &rows, query, managerNumber); err != nil {
		return nil, err
	}
	return rows, nil
}

// OverallAggregates computes per-competency score aggregates across the
// whole organization.
func (r *ReportingRepository) OverallAggregates(ctx context.Context) ([]*CompetencyAggregate, error) {
	var rows []*CompetencyAggregate
	query := competencyAggregateQuery + `
	GROUP BY c.competency_code, c.competency_name, c.competency_description
	`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	return rows, nil
}
