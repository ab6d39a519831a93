package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang-covid-sentiment/internal/entity"
	"golang-covid-sentiment/internal/pipeline/dto"
	"golang-covid-sentiment/pkg/common"
	"golang-covid-sentiment/pkg/logger"
	"golang-covid-sentiment/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// RunQueue hands pipeline runs to whatever executes them.
type RunQueue interface {
	// Enqueue records a queued run and schedules it. The returned run is in the queued state.
	Enqueue(ctx context.Context, trigger string, steps []entity.RunStep) (*entity.PipelineRun, error)
	// Close waits for runs started by this queue in the current process.
	Close()
}

// NewRedisRunQueue creates a RunQueue that publishes run requests on the pipeline runs stream.
func NewRedisRunQueue(runService RunService, redisClient *redis.Client, maxLen int64, log *logger.Logger) RunQueue {
	return &redisRunQueue{
		runService:  runService,
		redisClient: redisClient,
		maxLen:      maxLen,
		logger:      log,
	}
}

type redisRunQueue struct {
	runService  RunService
	redisClient *redis.Client
	maxLen      int64
	logger      *logger.Logger
}

func (q *redisRunQueue) Enqueue(ctx context.Context, trigger string, steps []entity.RunStep) (*entity.PipelineRun, error) {
	run, err := q.runService.Queue(ctx, trigger, steps)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(dto.RunRequest{RunID: run.RunID, Trigger: run.Trigger, Steps: steps})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run request: %w", err)
	}

	if err := q.redisClient.XAdd(ctx, &redis.XAddArgs{
		Stream: common.RedisStreamPipelineRuns,
		Values: map[string]interface{}{"payload": payload},
		MaxLen: q.maxLen,
		Approx: true,
	}).Err(); err != nil {
		q.logger.Error("Failed to enqueue run", logger.ErrorField(err), logger.StringField("run_id", run.RunID))
		if errInner := q.runService.MarkFailed(ctx, run, err); errInner != nil {
			q.logger.Error("Failed to mark run as failed", logger.ErrorField(errInner), logger.StringField("run_id", run.RunID))
		}
		return nil, fmt.Errorf("failed to enqueue run: %w", err)
	}

	q.logger.Info("Run published successfully", logger.StringField("run_id", run.RunID), logger.StringField("trigger", trigger))
	return run, nil
}

func (q *redisRunQueue) Close() {}

// NewLocalRunQueue creates a RunQueue that executes runs in background goroutines of this process.
func NewLocalRunQueue(runService RunService, timeout time.Duration, log *logger.Logger) RunQueue {
	return &localRunQueue{
		runService: runService,
		timeout:    timeout,
		logger:     log,
	}
}

type localRunQueue struct {
	runService RunService
	timeout    time.Duration
	logger     *logger.Logger
	wg         sync.WaitGroup
}

func (q *localRunQueue) Enqueue(ctx context.Context, trigger string, steps []entity.RunStep) (*entity.PipelineRun, error) {
	run, err := q.runService.Queue(ctx, trigger, steps)
	if err != nil {
		return nil, err
	}
	queued := *run
	req := dto.RunRequest{RunID: run.RunID, Trigger: run.Trigger, Steps: steps}

	q.wg.Add(1)
	utils.GoSafe(func() {
		defer q.wg.Done()
		runCtx, cancel := context.WithTimeout(context.Background(), q.timeout)
		defer cancel()
		if _, err := q.runService.Run(runCtx, req); err != nil {
			q.logger.Warn("Background run finished with error", logger.ErrorField(err), logger.StringField("run_id", req.RunID))
		}
	})
	return &queued, nil
}

func (q *localRunQueue) Close() {
	q.wg.Wait()
}

// RunStreamProcessor executes run requests read from the pipeline runs stream.
type RunStreamProcessor interface {
	// EnsureGroup creates the stream and its consumer group when missing.
	EnsureGroup(ctx context.Context) error
	// ProcessNext waits briefly for one request and executes it.
	ProcessNext(ctx context.Context)
}

// NewRunStreamProcessor creates a new RunStreamProcessor.
func NewRunStreamProcessor(redisClient *redis.Client, runService RunService, timeout time.Duration, log *logger.Logger) RunStreamProcessor {
	return &runStreamProcessor{
		redisClient: redisClient,
		runService:  runService,
		timeout:     timeout,
		logger:      log,
	}
}

type runStreamProcessor struct {
	redisClient *redis.Client
	runService  RunService
	timeout     time.Duration
	logger      *logger.Logger
}

func (p *runStreamProcessor) EnsureGroup(ctx context.Context) error {
	err := p.redisClient.XGroupCreateMkStream(ctx, common.RedisStreamPipelineRuns, common.RedisStreamGroup, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

func (p *runStreamProcessor) ProcessNext(ctx context.Context) {
	streams, err := p.redisClient.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    common.RedisStreamGroup,
		Consumer: common.RedisStreamConsumer,
		Streams:  []string{common.RedisStreamPipelineRuns, ">"},
		Count:    1,
		Block:    2 * time.Second,
	}).Result()
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, redis.Nil) {
			return
		}
		p.logger.Error("Failed to read from stream", logger.ErrorField(err))
		return
	}
	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return
	}

	message := streams[0].Messages[0]
	defer p.ack(message.ID)

	data, ok := message.Values["payload"].(string)
	if !ok {
		p.logger.Error("field 'payload' not found or not a string in stream message", logger.StringField("message_id", message.ID))
		return
	}
	var req dto.RunRequest
	if err := json.Unmarshal([]byte(data), &req); err != nil {
		p.logger.Error("Failed to unmarshal run request", logger.ErrorField(err), logger.StringField("message_id", message.ID))
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if _, err := p.runService.Run(runCtx, req); err != nil {
		p.logger.Warn("Run finished with error", logger.ErrorField(err), logger.StringField("run_id", req.RunID))
	}
}

// ack runs on a fresh context so a message is acknowledged even after shutdown began.
func (p *runStreamProcessor) ack(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.redisClient.XAck(ctx, common.RedisStreamPipelineRuns, common.RedisStreamGroup, id).Err(); err != nil {
		p.logger.Error("Failed to acknowledge message", logger.ErrorField(err), logger.StringField("message_id", id))
	}
}
