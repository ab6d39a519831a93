package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang-covid-sentiment/internal/entity"
	"golang-covid-sentiment/internal/pipeline/dto"
	"golang-covid-sentiment/internal/pipeline/repository"
	"golang-covid-sentiment/internal/pipeline/strategy"
	"golang-covid-sentiment/pkg/logger"
	"golang-covid-sentiment/pkg/telegram"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// RunService executes pipeline runs step by step and keeps their history.
type RunService interface {
	// Queue records a new queued run and returns it without executing it.
	Queue(ctx context.Context, trigger string, steps []entity.RunStep) (*entity.PipelineRun, error)
	// Run executes req. A request without a run id records a new run first.
	Run(ctx context.Context, req dto.RunRequest) (*entity.PipelineRun, error)
	// MarkFailed closes a run that could not be handed to a worker.
	MarkFailed(ctx context.Context, run *entity.PipelineRun, cause error) error
	GetRun(ctx context.Context, runID string) (*entity.PipelineRun, error)
	ListRuns(ctx context.Context, limit int) ([]entity.PipelineRun, error)
}

// NewRunService creates a new RunService.
func NewRunService(
	runRepo repository.PipelineRunRepository,
	notifier telegram.Notifier,
	log *logger.Logger,
	strategies []strategy.RunStepStrategy,
) RunService {
	strategyMap := make(map[entity.RunStep]strategy.RunStepStrategy)
	for _, s := range strategies {
		strategyMap[s.GetType()] = s
	}
	if notifier == nil {
		notifier = telegram.NewNopNotifier()
	}
	return &runService{
		runRepo:    runRepo,
		notifier:   notifier,
		logger:     log,
		strategies: strategyMap,
	}
}

type runService struct {
	runRepo    repository.PipelineRunRepository
	notifier   telegram.Notifier
	logger     *logger.Logger
	strategies map[entity.RunStep]strategy.RunStepStrategy
}

func (s *runService) Queue(ctx context.Context, trigger string, steps []entity.RunStep) (*entity.PipelineRun, error) {
	steps, err := s.validateSteps(steps)
	if err != nil {
		return nil, err
	}
	run := &entity.PipelineRun{
		RunID:     uuid.NewString(),
		Trigger:   trigger,
		Status:    entity.RunStatusQueued,
		StartedAt: time.Now(),
	}
	if err := s.setReport(run, dto.RunReport{RunID: run.RunID, Trigger: trigger, Steps: steps}); err != nil {
		return nil, err
	}
	if err := s.runRepo.Create(ctx, run); err != nil {
		s.logger.Error("Failed to create pipeline run", logger.ErrorField(err), logger.StringField("trigger", trigger))
		return nil, fmt.Errorf("failed to create pipeline run: %w", err)
	}
	return run, nil
}

func (s *runService) Run(ctx context.Context, req dto.RunRequest) (*entity.PipelineRun, error) {
	var (
		run *entity.PipelineRun
		err error
	)
	if req.RunID == "" {
		run, err = s.Queue(ctx, req.Trigger, req.Steps)
	} else {
		run, err = s.runRepo.FindByRunID(ctx, req.RunID)
	}
	if err != nil {
		return nil, err
	}

	steps, err := s.validateSteps(req.Steps)
	if err != nil {
		// Only a resumed run can get here; it must not stay queued.
		if errMark := s.MarkFailed(context.WithoutCancel(ctx), run, err); errMark != nil {
			return run, multierr.Append(err, errMark)
		}
		return run, err
	}
	report := dto.RunReport{RunID: run.RunID, Trigger: run.Trigger, Steps: steps}

	run.Status = entity.RunStatusRunning
	run.StartedAt = time.Now()
	if err := s.runRepo.Update(ctx, run); err != nil {
		s.logger.Error("Failed to mark pipeline run as running", logger.ErrorField(err), logger.StringField("run_id", run.RunID))
	}
	s.logger.Info("Pipeline run started", logger.StringField("run_id", run.RunID), logger.StringField("trigger", run.Trigger))

	var runErr error
	for _, step := range steps {
		s.logger.Info("Executing step", logger.StringField("run_id", run.RunID), logger.StringField("step", string(step)))
		if runErr = s.strategies[step].Execute(ctx, &report); runErr != nil {
			runErr = fmt.Errorf("step %s: %w", step, runErr)
			break
		}
	}

	if runErr != nil {
		s.logger.Error("Pipeline run failed", logger.ErrorField(runErr), logger.StringField("run_id", run.RunID))
		run.Status = entity.RunStatusFailed
		run.ErrorMessage = sql.NullString{String: runErr.Error(), Valid: true}
	} else {
		s.logger.Info("Pipeline run completed", logger.StringField("run_id", run.RunID))
		run.Status = entity.RunStatusCompleted
	}
	run.CompletedAt = sql.NullTime{Time: time.Now(), Valid: true}
	if err := s.setReport(run, report); err != nil {
		s.logger.Error("Failed to encode run report", logger.ErrorField(err), logger.StringField("run_id", run.RunID))
	}

	// The caller's context may already be done; the history row must still be written.
	updateCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.runRepo.Update(updateCtx, run); err != nil {
		s.logger.Error("Failed to update pipeline run", logger.ErrorField(err), logger.StringField("run_id", run.RunID))
	}

	if err := telegram.SendAll(s.notifier, telegram.FormatRunSummary(report, run.Status, run.ErrorMessage.String)); err != nil {
		s.logger.Error("Failed to send run summary", logger.ErrorField(err), logger.StringField("run_id", run.RunID))
	}
	return run, runErr
}

func (s *runService) MarkFailed(ctx context.Context, run *entity.PipelineRun, cause error) error {
	run.Status = entity.RunStatusFailed
	run.ErrorMessage = sql.NullString{String: cause.Error(), Valid: true}
	run.CompletedAt = sql.NullTime{Time: time.Now(), Valid: true}
	if err := s.runRepo.Update(ctx, run); err != nil {
		s.logger.Error("Failed to update pipeline run", logger.ErrorField(err), logger.StringField("run_id", run.RunID))
		return fmt.Errorf("failed to update pipeline run: %w", err)
	}
	return nil
}

func (s *runService) GetRun(ctx context.Context, runID string) (*entity.PipelineRun, error) {
	run, err := s.runRepo.FindByRunID(ctx, runID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	return run, err
}

func (s *runService) ListRuns(ctx context.Context, limit int) ([]entity.PipelineRun, error) {
	return s.runRepo.FindRecent(ctx, limit)
}

var (
	// ErrRunNotFound is returned when a run id is unknown.
	ErrRunNotFound = errors.New("pipeline run not found")
	// ErrUnknownStep is returned for a step no strategy handles.
	ErrUnknownStep = errors.New("no strategy found for step")
)

func (s *runService) validateSteps(steps []entity.RunStep) ([]entity.RunStep, error) {
	if len(steps) == 0 {
		steps = entity.DefaultRunSteps
	}
	for _, step := range steps {
		if _, ok := s.strategies[step]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownStep, step)
		}
	}
	return steps, nil
}

func (s *runService) setReport(run *entity.PipelineRun, report dto.RunReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal run report: %w", err)
	}
	run.Report = data
	return nil
}
