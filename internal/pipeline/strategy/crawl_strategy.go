package strategy

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang-covid-sentiment/internal/entity"
	"golang-covid-sentiment/internal/pipeline/config"
	"golang-covid-sentiment/internal/pipeline/dto"
	"golang-covid-sentiment/internal/pipeline/repository"
	"golang-covid-sentiment/pkg/logger"
)

// CrawlStrategy collects links from the links file and the configured feed searches, crawls
// them and writes the cleaned dataset.
type CrawlStrategy struct {
	cfg      *config.Config
	logger   *logger.Logger
	feedRepo repository.FeedRepository
	pipeline DatasetPipeline
}

// NewCrawlStrategy creates a new instance of CrawlStrategy. feedRepo may be nil.
func NewCrawlStrategy(cfg *config.Config, log *logger.Logger, feedRepo repository.FeedRepository, pipeline DatasetPipeline) *CrawlStrategy {
	return &CrawlStrategy{
		cfg:      cfg,
		logger:   log,
		feedRepo: feedRepo,
		pipeline: pipeline,
	}
}

// GetType returns the step this strategy handles.
func (s *CrawlStrategy) GetType() entity.RunStep {
	return entity.RunStepCrawl
}

func (s *CrawlStrategy) Execute(ctx context.Context, report *dto.RunReport) error {
	links, err := s.collectLinks(ctx)
	if err != nil {
		return err
	}
	if len(links) == 0 {
		return fmt.Errorf("no links to crawl: set pipeline.links_path or crawler.feed_queries")
	}

	result, err := s.pipeline.CreateDataset(ctx, links, s.cfg.Pipeline.DatasetPath)
	report.Crawl = result.Crawl
	report.Articles = result.Articles
	report.OutputPath = result.OutputPath
	if err != nil {
		s.logger.Error("Failed to create dataset", logger.ErrorField(err), logger.StringField("path", s.cfg.Pipeline.DatasetPath))
		return fmt.Errorf("failed to create dataset: %w", err)
	}
	return nil
}

func (s *CrawlStrategy) collectLinks(ctx context.Context) ([]string, error) {
	var links []string
	if path := s.cfg.Pipeline.LinksPath; path != "" {
		fileLinks, err := repository.ReadLinksFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			s.logger.Warn("Links file not found, relying on feeds", logger.StringField("path", path))
		case err != nil:
			return nil, err
		default:
			links = append(links, fileLinks...)
		}
	}

	if s.feedRepo != nil && len(s.cfg.Crawler.FeedQueries) > 0 {
		feedLinks, err := s.feedRepo.DiscoverLinks(ctx, s.cfg.Crawler.FeedQueries)
		if err != nil {
			s.logger.Warn("Some feed queries failed", logger.ErrorField(err))
		}
		links = append(links, feedLinks...)
	}
	return links, nil
}
