package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	catrepo "github.com/skillmatrix/skillmatrix-backend/internal/catalog/repository"
	emprepo "github.com/skillmatrix/skillmatrix-backend/internal/employee/repository"
	orgrepo "github.com/skillmatrix/skillmatrix-backend/internal/org/repository"
	proprepo "github.com/skillmatrix/skillmatrix-backend/internal/propagation/repository"
	"github.com/skillmatrix/skillmatrix-backend/internal/reserved"
	"github.com/skillmatrix/skillmatrix-backend/pkg/database"
	"github.com/skillmatrix/skillmatrix-backend/pkg/errors"
	"github.com/skillmatrix/skillmatrix-backend/pkg/logger"
	"github.com/skillmatrix/skillmatrix-backend/pkg/principal"
)

// Record statuses
const (
	StatusCreated = "Created"
	StatusUpdated = "Updated"
	StatusFailed  = "failed"
)

// CompetencyScore is one competency requirement in an ingestion record
type CompetencyScore struct {
	Code  string `json:"code" validate:"required"`
	Score int    `json:"score" validate:"min=0,max=4"`
}

// EmployeeRecord is one already-parsed employee row of a bulk upload
type EmployeeRecord struct {
	EmployeeNumber  string            `json:"employee_number" validate:"required"`
	EmployeeName    string            `json:"employee_name" validate:"required"`
	JobCode         string            `json:"job_code" validate:"required"`
	ReportingNumber string            `json:"reporting_number" validate:"required"`
	RoleCode        string            `json:"role_code" validate:"required"`
	Department      string            `json:"department" validate:"required"`
	Competencies    []CompetencyScore `json:"competencies" validate:"required,min=1,dive"`
}

// RecordResult is the outcome of one ingested record
type RecordResult struct {
	EmployeeNumber string  `json:"employee_number"`
	EmployeeName   string  `json:"employee_name"`
	Status         string  `json:"status"`
	FailureReason  *string `json:"failure_reason"`
}

// BatchSummary counts the outcomes of a batch
type BatchSummary struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// BatchResult is the full outcome of a bulk ingestion call
type BatchResult struct {
	Summary   BatchSummary    `json:"summary"`
	Processed []*RecordResult `json:"processed_employees"`
}

// IngestionService loads parsed employee records into the registry. Each
// record commits on its own so one bad row never sinks its siblings.
type IngestionService struct {
	db             *database.DB
	employeeRepo   *emprepo.EmployeeRepository
	userRepo       *emprepo.UserRepository
	deptRepo       *orgrepo.DepartmentRepository
	roleRepo       *orgrepo.RoleRepository
	jobRepo        *orgrepo.RoleJobRepository
	competencyRepo *catrepo.CompetencyRepository
	empCompRepo    *proprepo.EmployeeCompetencyRepository
	logger         *logger.Logger
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(
	db *database.DB,
	employeeRepo *emprepo.EmployeeRepository,
	userRepo *emprepo.UserRepository,
	deptRepo *orgrepo.DepartmentRepository,
	roleRepo *orgrepo.RoleRepository,
	jobRepo *orgrepo.RoleJobRepository,
	competencyRepo *catrepo.CompetencyRepository,
	empCompRepo *proprepo.EmployeeCompetencyRepository,
	log *logger.Logger,
) *IngestionService {
	return &IngestionService{
		db:             db,
		employeeRepo:   employeeRepo,
		userRepo:       userRepo,
		deptRepo:       deptRepo,
		roleRepo:       roleRepo,
		jobRepo:        jobRepo,
		competencyRepo: competencyRepo,
		empCompRepo:    empCompRepo,
		logger:         log,
	}
}

// Ingest processes a batch of parsed employee records. Records fail
// independently; the batch itself always succeeds.
func (s *IngestionService) Ingest(ctx context.Context, records []EmployeeRecord) (*BatchResult, error) {
	if _, err := principal.Require(ctx, principal.RoleAdmin, principal.RoleHR); err != nil {
		return nil, err
	}

	result := &BatchResult{Processed: make([]*RecordResult, 0, len(records))}
	for i := range records {
		rr := s.processRecord(ctx, &records[i])
		result.Processed = append(result.Processed, rr)
		result.Summary.Total++
		if rr.Status == StatusFailed {
			result.Summary.Failed++
		} else {
			result.Summary.Processed++
		}
	}

	s.logger.Info().
		Int("total", result.Summary.Total).
		Int("processed", result.Summary.Processed).
		Int("failed", result.Summary.Failed).
		Msg("bulk ingestion finished")

	return result, nil
}

func (s *IngestionService) processRecord(ctx context.Context, rec *EmployeeRecord) *RecordResult {
	result := &RecordResult{
		EmployeeNumber: rec.EmployeeNumber,
		EmployeeName:   rec.EmployeeName,
		Status:         StatusFailed,
	}

	fail := func(reason string) *RecordResult {
		result.FailureReason = &reason
		return result
	}

	dept, err := s.deptRepo.GetByName(ctx, rec.Department)
	if err != nil {
		if errors.IsNotFound(err) {
			return fail(fmt.Sprintf("Department '%s' does not exist", rec.Department))
		}
		return fail(err.Error())
	}

	role, err := s.roleRepo.GetByCode(ctx, rec.RoleCode)
	if err != nil {
		if errors.IsNotFound(err) {
			return fail(fmt.Sprintf("Role '%s' does not exist", rec.RoleCode))
		}
		return fail(err.Error())
	}

	job, err := s.jobRepo.GetByCode(ctx, rec.JobCode)
	if err != nil && !errors.IsNotFound(err) {
		return fail(err.Error())
	}
	if err != nil || !job.JobStatus {
		return fail(fmt.Sprintf("Job code '%s' does not exist", rec.JobCode))
	}

	held, err := s.employeeRepo.JobCodeHeldByOther(ctx, rec.JobCode, rec.EmployeeNumber)
	if err != nil {
		return fail(err.Error())
	}
	if held {
		return fail(fmt.Sprintf("Job code '%s' is already assigned to another employee", rec.JobCode))
	}

	codes := make([]string, 0, len(rec.Competencies))
	for _, c := range rec.Competencies {
		codes = append(codes, c.Code)
	}
	existing, err := s.competencyRepo.ExistingCodes(ctx, codes)
	if err != nil {
		return fail(err.Error())
	}
	known := make(map[string]bool, len(existing))
	for _, code := range existing {
		known[code] = true
	}
	for _, code := range codes {
		if !known[code] {
			return fail(fmt.Sprintf("Competency '%s' does not exist", code))
		}
	}

	status, err := s.upsertEmployee(ctx, rec, dept.ID, role.ID)
	if err != nil {
		return fail(err.Error())
	}
	result.Status = status
	result.FailureReason = nil
	return result
}

// upsertEmployee writes one record inside its own transaction: the
// placeholder manager if needed, the employee row, the login accounts
// and the merged competency rows.
func (s *IngestionService) upsertEmployee(ctx context.Context, rec *EmployeeRecord, departmentID, roleID int) (string, error) {
	existing, err := s.employeeRepo.GetByNumber(ctx, rec.EmployeeNumber)
	if err != nil && !errors.IsNotFound(err) {
		return "", err
	}

	status := StatusCreated
	if existing != nil {
		status = StatusUpdated
	}

	err = s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		employeeRepo := s.employeeRepo.WithTx(tx)
		userRepo := s.userRepo.WithTx(tx)

		if err := s.ensureReportingTarget(ctx, tx, rec.ReportingNumber); err != nil {
			return err
		}

		employee := &emprepo.Employee{
			EmployeeNumber: rec.EmployeeNumber,
			EmployeeName:   rec.EmployeeName,
			JobCode:        &rec.JobCode,
			ReportingTo:    &rec.ReportingNumber,
			RoleID:         roleID,
			DepartmentID:   departmentID,
		}
		if existing == nil {
			if err := employeeRepo.Create(ctx, employee); err != nil {
				return err
			}
		} else {
			if err := employeeRepo.Update(ctx, employee); err != nil {
				return err
			}
		}

		// The reporting target gained a direct report, so its account
		// must carry the Manager role.
		if err := ensureUserRole(ctx, userRepo, rec.ReportingNumber, string(principal.RoleManager)); err != nil {
			return err
		}

		reports, err := employeeRepo.DirectReportCount(ctx, rec.EmployeeNumber)
		if err != nil {
			return err
		}
		ownRole := string(principal.RoleEmployee)
		if reports > 0 {
			ownRole = string(principal.RoleManager)
		}
		if err := ensureUserRole(ctx, userRepo, rec.EmployeeNumber, ownRole); err != nil {
			return err
		}

		return s.mergeCompetencies(ctx, tx, rec)
	})
	if err != nil {
		return "", err
	}
	return status, nil
}

// ensureReportingTarget creates a placeholder employee under the
// reserved root for an unknown reporting number, plus its Manager
// account.
func (s *IngestionService) ensureReportingTarget(ctx context.Context, tx *sqlx.Tx, reportingNumber string) error {
	employeeRepo := s.employeeRepo.WithTx(tx)

	_, err := employeeRepo.GetByNumber(ctx, reportingNumber)
	if err == nil {
		return nil
	}
	if !errors.IsNotFound(err) {
		return err
	}

	jobCode := reserved.JobCode
	root := reserved.RootEmployeeNumber
	placeholder := &emprepo.Employee{
		EmployeeNumber: reportingNumber,
		EmployeeName:   fmt.Sprintf("Manager %s", reportingNumber),
		JobCode:        &jobCode,
		ReportingTo:    &root,
		RoleID:         reserved.OrgUnitID,
		DepartmentID:   reserved.OrgUnitID,
	}
	if err := employeeRepo.Create(ctx, placeholder); err != nil {
		return err
	}
	return ensureUserRole(ctx, s.userRepo.WithTx(tx), reportingNumber, string(principal.RoleManager))
}

// mergeCompetencies refreshes the employee's competency rows from the
// record: required scores are updated, new codes inserted with actual
// score 0, and nothing is ever deleted.
func (s *IngestionService) mergeCompetencies(ctx context.Context, tx *sqlx.Tx, rec *EmployeeRecord) error {
	empCompRepo := s.empCompRepo.WithTx(tx)

	rows, err := empCompRepo.List(ctx, rec.EmployeeNumber)
	if err != nil {
		return err
	}
	current := make(map[string]*proprepo.EmployeeCompetency, len(rows))
	for _, row := range rows {
		current[row.CompetencyCode] = row
	}

	for _, comp := range rec.Competencies {
		if row, ok := current[comp.Code]; ok {
			if row.RequiredScore != comp.Score {
				if _, err := empCompRepo.UpdateRequiredScore(ctx, rec.EmployeeNumber, comp.Code, comp.Score); err != nil {
					return err
				}
			}
			continue
		}
		err := empCompRepo.Insert(ctx, &proprepo.EmployeeCompetency{
			EmployeeNumber: rec.EmployeeNumber,
			CompetencyCode: comp.Code,
			RequiredScore:  comp.Score,
			ActualScore:    0,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// ensureUserRole creates the login account with the given role when it
// is missing, and switches the role when it differs. The initial
// password is the employee number.
func ensureUserRole(ctx context.Context, userRepo *emprepo.UserRepository, employeeNumber, role string) error {
	user, err := userRepo.GetByEmployeeNumber(ctx, employeeNumber)
	if err == nil {
		if user.Role != role {
			return userRepo.SetRole(ctx, employeeNumber, role)
		}
		return nil
	}
	if !errors.IsNotFound(err) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(employeeNumber), bcrypt.DefaultCost)
	if err != nil {
		return errors.Internal("failed to hash password")
	}
	number := employeeNumber
	return userRepo.Create(ctx, &emprepo.User{
		EmployeeNumber: &number,
		Email:          fmt.Sprintf("%s@company.com", employeeNumber),
		HashedPassword: string(hashed),
		Role:           role,
	})
}
