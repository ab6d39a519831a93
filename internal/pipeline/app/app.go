// Package app wires the pipeline's repositories and services from configuration.
package app

import (
	"context"
	"fmt"

	"golang-covid-sentiment/internal/pipeline/config"
	"golang-covid-sentiment/internal/pipeline/repository"
	"golang-covid-sentiment/internal/pipeline/service"
	"golang-covid-sentiment/internal/pipeline/strategy"
	"golang-covid-sentiment/pkg/logger"
	"golang-covid-sentiment/pkg/postgres"
	"golang-covid-sentiment/pkg/redis"
	"golang-covid-sentiment/pkg/telegram"

	"google.golang.org/genai"
)

// App holds the wired services of one process.
type App struct {
	Config *config.Config
	Logger *logger.Logger

	DB    *postgres.DB
	Redis *redis.Client

	Pipeline  service.PipelineService
	Explore   service.ExploreService
	Articles  service.ArticleQueryService
	Runs      service.RunService
	Queue     service.RunQueue
	Processor service.RunStreamProcessor
}

// New connects the configured backends and builds every service. Postgres and Redis are
// optional; without them run history is kept in memory and runs execute in process.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: log}

	if cfg.Database.Enabled {
		db, err := postgres.NewDB(postgres.Config{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			DBName:          cfg.Database.DBName,
			SSLMode:         cfg.Database.SSLMode,
			TimeZone:        cfg.Database.TimeZone,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			LogLevel:        cfg.Database.LogLevel,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		a.DB = db
	}

	if cfg.Redis.Enabled {
		client, err := redis.NewClient(redis.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		a.Redis = client
	}

	scorer, err := a.newScorer(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	var (
		articleRepo repository.ArticleRepository
		runRepo     repository.PipelineRunRepository
	)
	if a.DB != nil {
		articleRepo = repository.NewArticleRepository(a.DB.DB)
		runRepo = repository.NewPipelineRunRepository(a.DB.DB)
	} else {
		runRepo = repository.NewMemoryPipelineRunRepository()
	}

	pipeline, err := service.NewPipelineService(
		cfg,
		log,
		service.NewArticleBuilder(nil, log),
		repository.NewNewsCrawlerRepository(cfg, log),
		scorer,
		repository.NewArticleCSVRepository(log),
		articleRepo,
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Pipeline = pipeline
	a.Explore = service.NewExploreService(pipeline, log)
	a.Articles = service.NewArticleQueryService(articleRepo, pipeline, cfg.Pipeline.AnalyzedPath, log)

	notifier := telegram.NewNopNotifier()
	if cfg.Telegram.Enabled {
		notifier, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize telegram notifier: %w", err)
		}
	}

	strategies := []strategy.RunStepStrategy{
		strategy.NewCrawlStrategy(cfg, log, repository.NewFeedRepository(cfg, log), pipeline),
		strategy.NewAnalyzeStrategy(cfg, log, pipeline),
	}
	a.Runs = service.NewRunService(runRepo, notifier, log, strategies)

	if a.Redis != nil {
		a.Queue = service.NewRedisRunQueue(a.Runs, a.Redis.Client, cfg.Redis.StreamMaxLen, log)
		a.Processor = service.NewRunStreamProcessor(a.Redis.Client, a.Runs, cfg.Schedule.Timeout, log)
	} else {
		a.Queue = service.NewLocalRunQueue(a.Runs, cfg.Schedule.Timeout, log)
	}
	return a, nil
}

func (a *App) newScorer(ctx context.Context) (repository.SentimentRepository, error) {
	var scorer repository.SentimentRepository
	switch a.Config.Scorer.Provider {
	case "vader":
		scorer = repository.NewVaderSentimentRepository()
	case "gemini":
		genAiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  a.Config.Gemini.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Gemini AI client: %w", err)
		}
		scorer, err = repository.NewGeminiSentimentRepository(a.Config, a.Logger, genAiClient)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("invalid scorer provider %q", a.Config.Scorer.Provider)
	}

	if a.Config.Scorer.CacheTTL <= 0 {
		return scorer, nil
	}
	scoreCache := repository.NewMemoryScoreCacheRepository(a.Config.Scorer.CacheTTL)
	if a.Redis != nil {
		scoreCache = repository.NewRedisScoreCacheRepository(a.Redis.Client, a.Config.Scorer.CacheTTL)
	}
	return repository.NewCachedSentimentRepository(a.Config.Scorer.Provider, scorer, scoreCache, a.Logger), nil
}

// Close waits for in-process runs and releases the backends.
func (a *App) Close() {
	if a.Queue != nil {
		a.Queue.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("Failed to close redis", logger.ErrorField(err))
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
