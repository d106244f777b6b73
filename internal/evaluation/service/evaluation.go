package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	emprepo "github.com/skillmatrix/skillmatrix-backend/internal/employee/repository"
	"github.com/skillmatrix/skillmatrix-backend/internal/evaluation/repository"
	proprepo "github.com/skillmatrix/skillmatrix-backend/internal/propagation/repository"
	"github.com/skillmatrix/skillmatrix-backend/pkg/database"
	"github.com/skillmatrix/skillmatrix-backend/pkg/errors"
	"github.com/skillmatrix/skillmatrix-backend/pkg/logger"
	"github.com/skillmatrix/skillmatrix-backend/pkg/messaging"
	"github.com/skillmatrix/skillmatrix-backend/pkg/principal"
)

// Notifier publishes workflow events. Satisfied by messaging.Publisher.
type Notifier interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// EvaluationService drives the evaluation workflow: HR dispatches
// employees into a cycle, their managers submit scores back.
type EvaluationService struct {
	db           *database.DB
	evalRepo     *repository.EvaluationRepository
	employeeRepo *emprepo.EmployeeRepository
	userRepo     *emprepo.UserRepository
	empCompRepo  *proprepo.EmployeeCompetencyRepository
	notifier     Notifier
	logger       *logger.Logger
}

// NewEvaluationService creates a new evaluation service
func NewEvaluationService(
	db *database.DB,
	evalRepo *repository.EvaluationRepository,
	employeeRepo *emprepo.EmployeeRepository,
	userRepo *emprepo.UserRepository,
	empCompRepo *proprepo.EmployeeCompetencyRepository,
	notifier Notifier,
	log *logger.Logger,
) *EvaluationService {
	return &EvaluationService{
		db:           db,
		evalRepo:     evalRepo,
		employeeRepo: employeeRepo,
		userRepo:     userRepo,
		empCompRepo:  empCompRepo,
		notifier:     notifier,
		logger:       log,
	}
}

// DispatchResult summarizes a dispatch call
type DispatchResult struct {
	Updated  []string `json:"updated"`
	Notified []string `json:"notified"`
}

// Dispatch marks the given employees as pending evaluation and notifies
// their reporting managers.
func (s *EvaluationService) Dispatch(ctx context.Context, employeeNumbers []string) (*DispatchResult, error) {
	p, err := principal.Require(ctx, principal.RoleAdmin, principal.RoleHR)
	if err != nil {
		return nil, err
	}

	dispatchedBy := "No name"
	if actor, err := s.employeeRepo.GetByNumber(ctx, p.EmployeeNumber); err == nil {
		dispatchedBy = actor.EmployeeName
	}

	var matched []string
	err = s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		matched, err = s.evalRepo.WithTx(tx).MarkDispatched(ctx, employeeNumbers, dispatchedBy)
		if err != nil {
			return err
		}
		if len(matched) == 0 {
			return errors.NotFoundMsg("no employees found")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	managers, err := s.evalRepo.DistinctManagers(ctx, matched)
	if err != nil {
		return nil, err
	}
	emails, err := s.userRepo.EmailsByEmployeeNumbers(ctx, managers)
	if err != nil {
		return nil, err
	}

	if len(emails) > 0 {
		event := &messaging.EvaluationDispatchedEvent{
			Recipients:      emails,
			Subject:         "finish your teams competency evaluation",
			EmployeeNumbers: matched,
			DispatchedBy:    dispatchedBy,
		}
		if err := s.notifier.Publish(ctx, messaging.EventEvaluationDispatched, event); err != nil {
			// The status change already committed; a lost notification is
			// recoverable by re-dispatching.
			s.logger.Error().Err(err).Msg("failed to publish evaluation dispatch event")
		}
	}

	s.logger.Info().
		Int("employees", len(matched)).
		Int("managers_notified", len(emails)).
		Str("dispatched_by", dispatchedBy).
		Msg("evaluation cycle dispatched")

	return &DispatchResult{Updated: matched, Notified: emails}, nil
}

// ScoreSubmission is one scored competency in an evaluation
type ScoreSubmission struct {
	CompetencyCode string `json:"competency_code" validate:"required"`
	ActualScore    int    `json:"actual_score" validate:"min=0,max=4"`
}

// SubmitResult summarizes a submitted evaluation
type SubmitResult struct {
	EmployeeNumber string `json:"employee_number"`
	Applied        int    `json:"applied"`
	Skipped        int    `json:"skipped"`
	TeamCompleted  bool   `json:"team_completed"`
}

// Submit records an evaluator's scores for one employee and marks the
// employee evaluated. Scores for competencies the employee does not hold
// are skipped, never created.
func (s *EvaluationService) Submit(ctx context.Context, employeeNumber string, scores []ScoreSubmission) (*SubmitResult, error) {
	p, err := principal.Require(ctx, principal.RoleAdmin, principal.RoleHOD, principal.RoleManager)
	if err != nil {
		return nil, err
	}
	if len(scores) == 0 {
		return nil, errors.BadRequest("invalid evaluation data format")
	}

	if _, err := s.employeeRepo.GetByNumber(ctx, employeeNumber); err != nil {
		return nil, err
	}
	evaluator, err := s.employeeRepo.GetByNumber(ctx, p.EmployeeNumber)
	if err != nil {
		return nil, errors.NotFoundMsg("evaluator record not found")
	}

	result := &SubmitResult{EmployeeNumber: employeeNumber}
	err = s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		empCompRepo := s.empCompRepo.WithTx(tx)
		for _, sc := range scores {
			matched, err := empCompRepo.UpdateActualScore(ctx, employeeNumber, sc.CompetencyCode, sc.ActualScore)
			if err != nil {
				return err
			}
			if matched {
				result.Applied++
			} else {
				result.Skipped++
			}
		}
		return s.evalRepo.WithTx(tx).MarkEvaluated(ctx, employeeNumber, evaluator.EmployeeName, time.Now().UTC())
	})
	if err != nil {
		return nil, err
	}

	pending, err := s.evalRepo.PendingReportCount(ctx, evaluator.EmployeeNumber)
	if err != nil {
		return nil, err
	}
	if pending == 0 {
		result.TeamCompleted = true
		s.notifyTeamCompleted(ctx, evaluator)
	}

	s.logger.Info().
		Str("employee_number", employeeNumber).
		Str("evaluated_by", evaluator.EmployeeName).
		Int("applied", result.Applied).
		Int("skipped", result.Skipped).
		Msg("evaluation submitted")

	return result, nil
}

func (s *EvaluationService) notifyTeamCompleted(ctx context.Context, evaluator *emprepo.Employee) {
	emails, err := s.userRepo.EmailsByEmployeeNumbers(ctx, []string{evaluator.EmployeeNumber})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to resolve evaluator email")
		return
	}
	event := &messaging.TeamEvaluatedEvent{
		Recipients:    emails,
		Subject:       "all team evaluations completed",
		ManagerNumber: evaluator.EmployeeNumber,
		ManagerName:   evaluator.EmployeeName,
	}
	if err := s.notifier.Publish(ctx, messaging.EventTeamEvaluated, event); err != nil {
		s.logger.Error().Err(err).Msg("failed to publish team evaluated event")
	}
}
