package consumer

import (
	"context"
	"sync"

	"golang-covid-sentiment/internal/pipeline/service"
	"golang-covid-sentiment/pkg/common"
	"golang-covid-sentiment/pkg/logger"
	"golang-covid-sentiment/pkg/utils"
)

// RedisConsumer executes pipeline runs published on the Redis stream.
type RedisConsumer struct {
	processor service.RunStreamProcessor
	logger    *logger.Logger
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewRedisConsumer creates a new RedisConsumer.
func NewRedisConsumer(processor service.RunStreamProcessor, log *logger.Logger) *RedisConsumer {
	return &RedisConsumer{
		processor: processor,
		logger:    log,
		stopChan:  make(chan struct{}),
	}
}

// Start creates the consumer group when needed and begins the processing loop.
func (c *RedisConsumer) Start(ctx context.Context) error {
	if err := c.processor.EnsureGroup(ctx); err != nil {
		return err
	}
	c.logger.Info("Redis consumer started", logger.StringField("stream", common.RedisStreamPipelineRuns))
	c.RegisterStreamHandler(ctx, c.processor.ProcessNext, common.RedisStreamPipelineRuns)
	return nil
}

// RegisterStreamHandler calls fn in a loop until ctx is done or the consumer stops. fn is
// expected to block briefly while the stream is empty.
func (c *RedisConsumer) RegisterStreamHandler(ctx context.Context, fn func(ctx context.Context), streamName string) {
	c.logger.Info("Registering stream handler", logger.StringField("stream", streamName))
	c.wg.Add(1)
	utils.GoSafe(func() {
		defer c.wg.Done()
		for {
			select {
			case <-ctx.Done():
				c.logger.Info("Redis consumer stopping due to context cancellation")
				return
			case <-c.stopChan:
				c.logger.Info("Redis consumer stopping")
				return
			default:
				fn(ctx)
			}
		}
	})
}

// Stop gracefully shuts down the consumer, waiting for the run in progress.
func (c *RedisConsumer) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
	c.wg.Wait()
	c.logger.Info("Redis consumer stopped")
}
