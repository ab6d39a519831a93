package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang-covid-sentiment/internal/entity"
	"golang-covid-sentiment/pkg/common"
	"golang-covid-sentiment/pkg/logger"

	"github.com/robfig/cron/v3"
)

// SchedulerService enqueues a full pipeline run on a cron schedule. A tick is skipped while the
// previously scheduled run is still queued or running.
type SchedulerService interface {
	// Start blocks until ctx is done.
	Start(ctx context.Context) error
	// NextRun reports when the schedule fires next after t.
	NextRun(t time.Time) time.Time
}

// NewSchedulerService creates a new scheduler service for the given cron expression.
func NewSchedulerService(queue RunQueue, runService RunService, expression string, log *logger.Logger) (SchedulerService, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cron expression %q: %w", expression, err)
	}
	return &schedulerService{
		queue:      queue,
		runService: runService,
		expression: expression,
		schedule:   schedule,
		logger:     log,
	}, nil
}

type schedulerService struct {
	queue      RunQueue
	runService RunService
	expression string
	schedule   cron.Schedule
	logger     *logger.Logger

	// lastRunID is only touched by the cron job, which never overlaps itself.
	lastRunID string
}

func (s *schedulerService) Start(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(s.schedule, cron.FuncJob(func() { s.enqueue(ctx) }))
	c.Start()
	s.logger.Info("Scheduler started",
		logger.StringField("cron", s.expression),
		logger.Field("next_run", s.NextRun(time.Now())),
	)

	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("Scheduler service stopping")
	return nil
}

func (s *schedulerService) NextRun(t time.Time) time.Time {
	return s.schedule.Next(t)
}

func (s *schedulerService) enqueue(ctx context.Context) {
	if active, err := s.lastRunActive(ctx); err != nil {
		s.logger.Warn("Failed to check previous scheduled run", logger.ErrorField(err), logger.StringField("run_id", s.lastRunID))
	} else if active {
		s.logger.Info("Skip scheduled run, previous run still in progress", logger.StringField("run_id", s.lastRunID))
		return
	}

	run, err := s.queue.Enqueue(ctx, common.RunTriggerSchedule, nil)
	if err != nil {
		s.logger.Error("Failed to enqueue scheduled run", logger.ErrorField(err))
		return
	}
	s.lastRunID = run.RunID
	s.logger.Info("Scheduled run enqueued", logger.StringField("run_id", run.RunID))
}

func (s *schedulerService) lastRunActive(ctx context.Context) (bool, error) {
	if s.lastRunID == "" {
		return false, nil
	}
	run, err := s.runService.GetRun(ctx, s.lastRunID)
	if errors.Is(err, ErrRunNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return run.Status == entity.RunStatusQueued || run.Status == entity.RunStatusRunning, nil
}
