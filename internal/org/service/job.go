package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/skillmatrix/skillmatrix-backend/internal/org/repository"
	"github.com/skillmatrix/skillmatrix-backend/pkg/database"
	"github.com/skillmatrix/skillmatrix-backend/pkg/errors"
	"github.com/skillmatrix/skillmatrix-backend/pkg/logger"
	"github.com/skillmatrix/skillmatrix-backend/pkg/principal"
)

// JobService handles job code business logic
type JobService struct {
	db       *database.DB
	jobRepo  *repository.RoleJobRepository
	roleRepo *repository.RoleRepository
	logger   *logger.Logger
}

// NewJobService creates a new job service
func NewJobService(
	db *database.DB,
	jobRepo *repository.RoleJobRepository,
	roleRepo *repository.RoleRepository,
	log *logger.Logger,
) *JobService {
	return &JobService{
		db:       db,
		jobRepo:  jobRepo,
		roleRepo: roleRepo,
		logger:   log,
	}
}

// CreateJobsRequest represents a bulk job code creation request. Codes are
// formed as prefix + zero-padded serial, e.g. ENG0001.
type CreateJobsRequest struct {
	Prefix   string `json:"prefix" validate:"required"`
	JobName  string `json:"job_name" validate:"required"`
	RoleCode string `json:"role_code" validate:"required"`
	Start    int    `json:"start" validate:"gte=0"`
	Count    int    `json:"count" validate:"required,gte=1"`
}

// DeleteJobsRequest represents a request to delete the last N job codes
// of a role + job name pool.
type DeleteJobsRequest struct {
	RoleCode string `json:"role_code" validate:"required"`
	JobName  string `json:"job_name" validate:"required"`
	Count    int    `json:"count" validate:"required,gte=1"`
}

// JobStatusRequest carries the job codes to activate or deactivate
type JobStatusRequest struct {
	JobCodes []string `json:"job_codes" validate:"required,min=1"`
}

// CreateJobs bulk-creates job codes for a role
func (s *JobService) CreateJobs(ctx context.Context, req *CreateJobsRequest) (int, error) {
	if _, err := principal.Require(ctx, principal.RoleAdmin, principal.RoleHR); err != nil {
		return 0, err
	}

	if _, err := s.roleRepo.GetByCode(ctx, req.RoleCode); err != nil {
		return 0, err
	}

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		repo := s.jobRepo.WithTx(tx)
		for i := req.Start; i < req.Start+req.Count; i++ {
			job := &repository.RoleJob{
				JobCode:   fmt.Sprintf("%s%04d", req.Prefix, i),
				JobName:   req.JobName,
				RoleCode:  req.RoleCode,
				JobStatus: true,
			}
			if err := repo.Create(ctx, job); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info().
		Str("role_code", req.RoleCode).
		Str("job_name", req.JobName).
		Int("count", req.Count).
		Msg("job codes created")
	return req.Count, nil
}

// Summary returns the jobs summary grouped by department, role and job
// name.
func (s *JobService) Summary(ctx context.Context) ([]*repository.JobSummaryRow, error) {
	if _, err := principal.Current(ctx); err != nil {
		return nil, err
	}
	return s.jobRepo.Summary(ctx)
}

// AvailableCodes lists the job codes of a role free for the given
// employee: active and not held by anyone else.
func (s *JobService) AvailableCodes(ctx context.Context, roleCode, employeeNumber string) ([]*repository.AvailableJobCode, error) {
	if _, err := principal.Current(ctx); err != nil {
		return nil, err
	}
	return s.jobRepo.AvailableCodes(ctx, roleCode, employeeNumber)
}

// ListByRoleAndName lists the jobs of a role + job name pool
func (s *JobService) ListByRoleAndName(ctx context.Context, roleCode, jobName string) ([]*repository.RoleJob, error) {
	if _, err := principal.Current(ctx); err != nil {
		return nil, err
	}

	jobs, err := s.jobRepo.ListByRoleAndName(ctx, roleCode, jobName)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, errors.NotFoundMsg("no jobs found for this role code")
	}
	return jobs, nil
}

// DeleteJobs removes the last N job codes of a role + job name pool.
// Blocked while any of them is held by an employee.
func (s *JobService) DeleteJobs(ctx context.Context, req *DeleteJobsRequest) (int, error) {
	if _, err := principal.Require(ctx, principal.RoleAdmin, principal.RoleHR); err != nil {
		return 0, err
	}

	codes, err := s.jobRepo.LastCodes(ctx, req.RoleCode, req.JobName, req.Count)
	if err != nil {
		return 0, err
	}
	if len(codes) == 0 {
		return 0, errors.NotFoundMsg("no jobs found to delete")
	}

	held, err := s.jobRepo.AssignedEmployees(ctx, codes)
	if err != nil {
		return 0, err
	}
	if len(held) > 0 {
		return 0, errors.PreconditionFailed("employees are still assigned to these jobs")
	}

	var deleted int
	err = s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		deleted, err = s.jobRepo.WithTx(tx).DeleteCodes(ctx, codes)
		return err
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// DeactivateJobs marks job codes inactive. Blocked while any of them is
// held by an employee.
func (s *JobService) DeactivateJobs(ctx context.Context, req *JobStatusRequest) (int, error) {
	if _, err := principal.Require(ctx, principal.RoleAdmin, principal.RoleHR); err != nil {
		return 0, err
	}

	held, err := s.jobRepo.AssignedEmployees(ctx, req.JobCodes)
	if err != nil {
		return 0, err
	}
	if len(held) > 0 {
		return 0, errors.PreconditionFailed(fmt.Sprintf("cannot deactivate job, code %s is assigned to an employee", held[0]))
	}

	return s.jobRepo.SetStatus(ctx, req.JobCodes, false)
}

// ActivateJobs marks job codes active again
func (s *JobService) ActivateJobs(ctx context.Context, req *JobStatusRequest) (int, error) {
	if _, err := principal.Require(ctx, principal.RoleAdmin, principal.RoleHR); err != nil {
		return 0, err
	}
	return s.jobRepo.SetStatus(ctx, req.JobCodes, true)
}
