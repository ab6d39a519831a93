package strategy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang-covid-sentiment/internal/entity"
	"golang-covid-sentiment/internal/pipeline/config"
	"golang-covid-sentiment/internal/pipeline/dto"
	"golang-covid-sentiment/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePipeline struct {
	links      []string
	createErr  error
	analyzeErr error
	analyzed   [2]string
}

func (p *fakePipeline) CreateDataset(_ context.Context, links []string, path string) (dto.RunReport, error) {
	p.links = links
	return dto.RunReport{Crawl: dto.CrawlReport{Requested: len(links), Crawled: len(links)}, Articles: len(links), OutputPath: path}, p.createErr
}

func (p *fakePipeline) AnalyzeDataset(_ context.Context, inPath, outPath string) (dto.RunReport, error) {
	p.analyzed = [2]string{inPath, outPath}
	return dto.RunReport{Articles: 5, Sentiment: dto.SentimentReport{Scored: 4, Skipped: 1}, OutputPath: outPath}, p.analyzeErr
}

type fakeFeed struct {
	links []string
	err   error
}

func (f *fakeFeed) DiscoverLinks(context.Context, []string) ([]string, error) {
	return f.links, f.err
}

func strategyConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		Pipeline: config.Pipeline{
			LinksPath:    filepath.Join(dir, "links.txt"),
			DatasetPath:  filepath.Join(dir, "dataset.csv"),
			AnalyzedPath: filepath.Join(dir, "analyzed.csv"),
		},
		Crawler: config.Crawler{FeedQueries: []string{"covid vaccine"}},
	}
}

func TestCrawlStrategyCombinesLinkSources(t *testing.T) {
	cfg := strategyConfig(t)
	require.NoError(t, os.WriteFile(cfg.Pipeline.LinksPath, []byte("# seed\nhttps://a.example.com/1\n\nhttps://a.example.com/2\n"), 0o644))
	pipeline := &fakePipeline{}
	feed := &fakeFeed{links: []string{"https://b.example.com/3"}, err: errors.New("one query failed")}
	s := NewCrawlStrategy(cfg, logger.NewNop(), feed, pipeline)

	var report dto.RunReport
	require.NoError(t, s.Execute(context.Background(), &report))
	assert.Equal(t, entity.RunStepCrawl, s.GetType())
	assert.Equal(t, []string{"https://a.example.com/1", "https://a.example.com/2", "https://b.example.com/3"}, pipeline.links)
	assert.Equal(t, 3, report.Crawl.Crawled)
	assert.Equal(t, cfg.Pipeline.DatasetPath, report.OutputPath)
}

func TestCrawlStrategyWithoutLinks(t *testing.T) {
	cfg := strategyConfig(t)
	cfg.Crawler.FeedQueries = nil
	s := NewCrawlStrategy(cfg, logger.NewNop(), nil, &fakePipeline{})

	err := s.Execute(context.Background(), &dto.RunReport{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no links to crawl")
}

func TestCrawlStrategyPropagatesDatasetFailure(t *testing.T) {
	cfg := strategyConfig(t)
	pipeline := &fakePipeline{createErr: errors.New("disk full")}
	s := NewCrawlStrategy(cfg, logger.NewNop(), &fakeFeed{links: []string{"https://b.example.com/3"}}, pipeline)

	var report dto.RunReport
	err := s.Execute(context.Background(), &report)
	require.Error(t, err)
	assert.Equal(t, 1, report.Crawl.Requested)
}

func TestAnalyzeStrategy(t *testing.T) {
	cfg := strategyConfig(t)
	pipeline := &fakePipeline{}
	s := NewAnalyzeStrategy(cfg, logger.NewNop(), pipeline)

	var report dto.RunReport
	require.NoError(t, s.Execute(context.Background(), &report))
	assert.Equal(t, entity.RunStepAnalyze, s.GetType())
	assert.Equal(t, [2]string{cfg.Pipeline.DatasetPath, cfg.Pipeline.AnalyzedPath}, pipeline.analyzed)
	assert.Equal(t, 4, report.Sentiment.Scored)
	assert.Equal(t, 5, report.Articles)

	pipeline.analyzeErr = errors.New("table missing")
	require.Error(t, s.Execute(context.Background(), &report))
}
