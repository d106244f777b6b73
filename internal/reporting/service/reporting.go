package service

import (
	"context"
	"encoding/json"
	"math"
	"sort"

	emprepo "github.com/skillmatrix/skillmatrix-backend/internal/employee/repository"
	orgrepo "github.com/skillmatrix/skillmatrix-backend/internal/org/repository"
	"github.com/skillmatrix/skillmatrix-backend/internal/reporting/repository"
	"github.com/skillmatrix/skillmatrix-backend/pkg/logger"
	"github.com/skillmatrix/skillmatrix-backend/pkg/principal"
)

// ReportingService serves the read-only gap and performance reports
type ReportingService struct {
	repo         *repository.ReportingRepository
	deptRepo     *orgrepo.DepartmentRepository
	employeeRepo *emprepo.EmployeeRepository
	logger       *logger.Logger
}

// NewReportingService creates a new reporting service
func NewReportingService(
	repo *repository.ReportingRepository,
	deptRepo *orgrepo.DepartmentRepository,
	employeeRepo *emprepo.EmployeeRepository,
	log *logger.Logger,
) *ReportingService {
	return &ReportingService{
		repo:         repo,
		deptRepo:     deptRepo,
		employeeRepo: employeeRepo,
		logger:       log,
	}
}

// GapDistributions buckets every competency's evaluated holders by gap
// size, worst-covered first.
func (s *ReportingService) GapDistributions(ctx context.Context) ([]*repository.GapDistribution, error) {
	if _, err := principal.Current(ctx); err != nil {
		return nil, err
	}
	return s.repo.GapDistributions(ctx)
}

// EvaluatedDetails lists every evaluated employee-competency row
func (s *ReportingService) EvaluatedDetails(ctx context.Context) ([]*repository.EvaluatedDetail, error) {
	if _, err := principal.Current(ctx); err != nil {
		return nil, err
	}
	return s.repo.EvaluatedDetails(ctx)
}

// OptionalScore marshals as its numeric value for evaluated employees
// and as "-" otherwise.
type OptionalScore struct {
	Value int
	Valid bool
}

// MarshalJSON implements json.Marshaler
func (s OptionalScore) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return json.Marshal("-")
	}
	return json.Marshal(s.Value)
}

// CompetencyEmployee is one holder of a competency. Actual score and gap
// render as "-" until the employee has been evaluated.
type CompetencyEmployee struct {
	EmployeeNumber string        `json:"employee_number"`
	EmployeeName   string        `json:"employee_name"`
	RequiredScore  int           `json:"required_score"`
	ActualScore    OptionalScore `json:"actual_score"`
	Gap            OptionalScore `json:"gap"`
}

// CompetencyEmployees lists every holder of one competency, evaluated
// holders first ordered by ascending gap.
func (s *ReportingService) CompetencyEmployees(ctx context.Context, competencyCode string) ([]*CompetencyEmployee, error) {
	if _, err := principal.Current(ctx); err != nil {
		return nil, err
	}

	rows, err := s.repo.CompetencyEmployees(ctx, competencyCode)
	if err != nil {
		return nil, err
	}

	result := make([]*CompetencyEmployee, 0, len(rows))
	for _, row := range rows {
		ce := &CompetencyEmployee{
			EmployeeNumber: row.EmployeeNumber,
			EmployeeName:   row.EmployeeName,
			RequiredScore:  row.RequiredScore,
		}
		if row.Evaluated {
			ce.ActualScore = OptionalScore{Value: row.ActualScore, Valid: true}
			ce.Gap = OptionalScore{Value: row.RequiredScore - row.ActualScore, Valid: true}
		}
		result = append(result, ce)
	}
	return result, nil
}

// RankedCompetency is one competency's aggregate within a scoped
// performance report, ranked best to worst.
type RankedCompetency struct {
	Rank                     int     `json:"rank"`
	CompetencyCode           string  `json:"competency_code"`
	CompetencyName           string  `json:"competency_name"`
	Description              string  `json:"description"`
	AverageRequiredScore     float64 `json:"average_required_score"`
	AverageScore             float64 `json:"average_score"`
	FulfillmentRate          float64 `json:"fulfillment_rate"`
	EmployeesEvaluated       int     `json:"employees_evaluated"`
	EmployeesMeetingRequired int     `json:"employees_meeting_required"`
}

// ScopedPerformance is a department's or manager's performance report
type ScopedPerformance struct {
	Scope                  string              `json:"scope"`
	Name                   string              `json:"name"`
	OverallAverageScore    float64             `json:"overall_average_score"`
	OverallFulfillmentRate float64             `json:"overall_fulfillment_rate"`
	Competencies           []*RankedCompetency `json:"competencies"`
}

// DepartmentPerformance ranks one department's competencies by average
// score with an overall summary.
func (s *ReportingService) DepartmentPerformance(ctx context.Context, departmentID int) (*ScopedPerformance, error) {
	if _, err := principal.Require(ctx, principal.RoleAdmin, principal.RoleHR); err != nil {
		return nil, err
	}

	dept, err := s.deptRepo.GetByID(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	aggregates, err := s.repo.DepartmentAggregates(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	return scopedPerformance("department", dept.Name, aggregates), nil
}

// ManagerPerformance ranks the competencies of one manager's direct
// reports by average score with an overall summary.
func (s *ReportingService) ManagerPerformance(ctx context.Context, managerNumber string) (*ScopedPerformance, error) {
	if _, err := principal.Require(ctx, principal.RoleAdmin, principal.RoleHR); err != nil {
		return nil, err
	}

	manager, err := s.employeeRepo.GetByNumber(ctx, managerNumber)
	if err != nil {
		return nil, err
	}
	aggregates, err := s.repo.ManagerAggregates(ctx, managerNumber)
	if err != nil {
		return nil, err
	}
	return scopedPerformance("manager", manager.EmployeeName, aggregates), nil
}

func scopedPerformance(scope, name string, aggregates []*repository.CompetencyAggregate) *ScopedPerformance {
	competencies := rankByAverageScore(aggregates)

	var avgScore, avgFulfillment float64
	if len(competencies) > 0 {
		for _, c := range competencies {
			avgScore += c.AverageScore
			avgFulfillment += c.FulfillmentRate
		}
		avgScore /= float64(len(competencies))
		avgFulfillment /= float64(len(competencies))
	}

	return &ScopedPerformance{
		Scope:                  scope,
		Name:                   name,
		OverallAverageScore:    round2(avgScore),
		OverallFulfillmentRate: round2(avgFulfillment),
		Competencies:           competencies,
	}
}

func rankByAverageScore(aggregates []*repository.CompetencyAggregate) []*RankedCompetency {
	competencies := make([]*RankedCompetency, 0, len(aggregates))
	for _, agg := range aggregates {
		competencies = append(competencies, &RankedCompetency{
			CompetencyCode:           agg.CompetencyCode,
			CompetencyName:           agg.CompetencyName,
			Description:              agg.Description,
			AverageRequiredScore:     round2(agg.AvgRequired),
			AverageScore:             round2(agg.AvgActual),
			FulfillmentRate:          round2(fulfillmentRate(agg)),
			EmployeesEvaluated:       agg.Evaluations,
			EmployeesMeetingRequired: agg.MeetingRequired,
		})
	}

	sort.SliceStable(competencies, func(i, j int) bool {
		return competencies[i].AverageScore > competencies[j].AverageScore
	})
	for i, c := range competencies {
		c.Rank = i + 1
	}
	return competencies
}

// OverallCompetencyPerformance is one competency's organization-wide
// aggregate, ranked by fulfillment rate then average score.
type OverallCompetencyPerformance struct {
	Rank                     int     `json:"rank"`
	CompetencyCode           string  `json:"competency_code"`
	CompetencyName           string  `json:"competency_name"`
	Description              string  `json:"description"`
	AverageRequiredScore     float64 `json:"average_required_score"`
	AverageScore             float64 `json:"average_score"`
	FulfillmentRate          float64 `json:"fulfillment_rate"`
	TotalEvaluations         int     `json:"total_evaluations"`
	EmployeesMeetingRequired int     `json:"employees_meeting_required"`
	PerformanceGap           float64 `json:"performance_gap"`
}

// OverallPerformance ranks every competency across the organization by
// fulfillment rate, breaking ties on average score.
func (s *ReportingService) OverallPerformance(ctx context.Context) ([]*OverallCompetencyPerformance, error) {
	if _, err := principal.Require(ctx, principal.RoleAdmin, principal.RoleHR); err != nil {
		return nil, err
	}

	aggregates, err := s.repo.OverallAggregates(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*OverallCompetencyPerformance, 0, len(aggregates))
	for _, agg := range aggregates {
		result = append(result, &OverallCompetencyPerformance{
			CompetencyCode:           agg.CompetencyCode,
			CompetencyName:           agg.CompetencyName,
			Description:              agg.Description,
			AverageRequiredScore:     round2(agg.AvgRequired),
			AverageScore:             round2(agg.AvgActual),
			FulfillmentRate:          round2(fulfillmentRate(agg)),
			TotalEvaluations:         agg.Evaluations,
			EmployeesMeetingRequired: agg.MeetingRequired,
			PerformanceGap:           round2(agg.AvgRequired - agg.AvgActual),
		})
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].FulfillmentRate != result[j].FulfillmentRate {
			return result[i].FulfillmentRate > result[j].FulfillmentRate
		}
		return result[i].AverageScore > result[j].AverageScore
	})
	for i, c := range result {
		c.Rank = i + 1
	}
	return result, nil
}

func fulfillmentRate(agg *repository.CompetencyAggregate) float64 {
	if agg.Evaluations == 0 {
		return 0
	}
	return float64(agg.MeetingRequired) / float64(agg.Evaluations) * 100
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
