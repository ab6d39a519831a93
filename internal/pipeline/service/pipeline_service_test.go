package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"golang-covid-sentiment/internal/entity"
	"golang-covid-sentiment/internal/pipeline/config"
	"golang-covid-sentiment/internal/pipeline/dto"
	"golang-covid-sentiment/internal/pipeline/repository"
	"golang-covid-sentiment/pkg/logger"
	"golang-covid-sentiment/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

type stubCrawler struct {
	raws map[string]dto.RawArticle
	err  error
}

func (c *stubCrawler) Crawl(context.Context, []string) (map[string]dto.RawArticle, error) {
	return c.raws, c.err
}

type stubScorer struct {
	scores map[string]float64
	fail   map[string]bool
}

func (s *stubScorer) ScorePolarity(_ context.Context, text string) (float64, error) {
	if s.fail[text] {
		return 0, errors.New("scorer unavailable")
	}
	if v, ok := s.scores[text]; ok {
		return v, nil
	}
	return 0.1, nil
}

type stubArticleRepo struct {
	mu       sync.Mutex
	upserted []entity.Article
	articles []entity.Article
}

func (r *stubArticleRepo) Upsert(_ context.Context, articles []entity.Article) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserted = append(r.upserted, articles...)
	return nil
}

func (r *stubArticleRepo) FindByKey(_ context.Context, key string) (*entity.Article, error) {
	for _, a := range r.articles {
		if a.Key == key {
			return &a, nil
		}
	}
	return nil, &entity.NotFoundError{Key: key}
}

func (r *stubArticleRepo) FindAll(_ context.Context, keyword string) ([]entity.Article, error) {
	return FilterByKeyword(r.articles, keyword), nil
}

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		Pipeline: config.Pipeline{
			KeyPolicy:        "title",
			ScoreConcurrency: 2,
			DatasetPath:      filepath.Join(dir, "dataset.csv"),
			AnalyzedPath:     filepath.Join(dir, "analyzed.csv"),
			ChartDir:         filepath.Join(dir, "charts"),
		},
	}
}

func newTestPipeline(t *testing.T, cfg *config.Config, crawler repository.NewsCrawlerRepository, scorer repository.SentimentRepository, repo repository.ArticleRepository) PipelineService {
	log := logger.NewNop()
	svc, err := NewPipelineService(cfg, log, NewArticleBuilder(nil, log), crawler, scorer, repository.NewArticleCSVRepository(log), repo)
	require.NoError(t, err)
	return svc
}

func TestNewPipelineServiceRejectsUnknownKeyPolicy(t *testing.T) {
	cfg := testConfig(t)
	cfg.Pipeline.KeyPolicy = "url"
	_, err := NewPipelineService(cfg, logger.NewNop(), nil, nil, nil, nil, nil)
	require.Error(t, err)
}

func TestBuildStoreLaterURLWinsOnSharedTitle(t *testing.T) {
	svc := newTestPipeline(t, testConfig(t), nil, nil, nil)

	st := svc.BuildStore(map[string]dto.RawArticle{
		"https://b.example.com/story": {Title: "Border reopens", MainText: "Second version."},
		"https://a.example.com/story": {Title: "Border reopens", MainText: "First version."},
		"https://c.example.com/other": {Title: "Masks return", MainText: "Masks are back."},
	})

	require.Equal(t, 2, st.Len())
	got, err := st.Get("Border reopens")
	require.NoError(t, err)
	assert.Equal(t, "Second version.", got.MainText)
	assert.Equal(t, "https://b.example.com/story", got.URL)
	assert.Equal(t, "b.example.com", got.SourceDomain)
	assert.False(t, got.Scored())
}

func TestCrawlReportsFailuresWithoutFailing(t *testing.T) {
	crawler := &stubCrawler{
		raws: map[string]dto.RawArticle{
			"https://news.example.com/a": {Title: "Vaccine rollout", MainText: "Doses arrive."},
		},
		err: multierr.Combine(
			&repository.LinkError{URL: "https://blocked.example.com/x", Err: repository.ErrBlacklistedDomain},
			&repository.LinkError{URL: "https://news.example.com/private", Err: repository.ErrDisallowedByRobots},
			&repository.LinkError{URL: "https://down.example.com/y", Err: errors.New("status code: 503")},
		),
	}
	svc := newTestPipeline(t, testConfig(t), crawler, nil, nil)

	st, report, err := svc.Crawl(context.Background(), []string{"a", "b", "c", "d"})
	require.NoError(t, err)
	assert.Equal(t, 1, st.Len())
	assert.Equal(t, 4, report.Requested)
	assert.Equal(t, 1, report.Crawled)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, []string{"https://down.example.com/y"}, report.FailedLinks)
	assert.Len(t, report.Errors, 3)
}

func TestCrawlCancelled(t *testing.T) {
	svc := newTestPipeline(t, testConfig(t), &stubCrawler{}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := svc.Crawl(ctx, []string{"https://news.example.com/a"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestCreateThenAnalyzeDataset(t *testing.T) {
	cfg := testConfig(t)
	crawler := &stubCrawler{raws: map[string]dto.RawArticle{
		"https://news.example.com/good": {
			Title:       "Vaccines arrive",
			DatePublish: "2021-02-01T09:30:00Z",
			Authors:     []string{"Jane Doe"},
			MainText:    "Article content Photo by Bob Article content Great news today. Click here to subscribe.",
		},
		"https://news.example.com/bad": {
			Title:       "Mask mandate",
			DatePublish: "2021-03-01 10:00:00",
			MainText:    "Mandate extended again.",
		},
		"https://news.example.com/empty": {
			Title: "Photo gallery",
		},
		"https://news.example.com/broken": {
			Title:    "Border closure",
			MainText: "Border stays shut.",
		},
	}}
	scorer := &stubScorer{
		scores: map[string]float64{"Great news today.": 0.6, "Mandate extended again.": -0.2},
		fail:   map[string]bool{"Border stays shut.": true},
	}
	repo := &stubArticleRepo{}
	svc := newTestPipeline(t, cfg, crawler, scorer, repo)
	ctx := context.Background()

	created, err := svc.CreateDataset(ctx, []string{"ignored"}, cfg.Pipeline.DatasetPath)
	require.NoError(t, err)
	assert.Equal(t, 4, created.Articles)
	assert.Equal(t, cfg.Pipeline.DatasetPath, created.OutputPath)
	assert.FileExists(t, cfg.Pipeline.DatasetPath)

	analyzed, err := svc.AnalyzeDataset(ctx, cfg.Pipeline.DatasetPath, cfg.Pipeline.AnalyzedPath)
	require.NoError(t, err)
	assert.Equal(t, 4, analyzed.Articles)
	assert.Equal(t, 2, analyzed.Sentiment.Scored)
	assert.Equal(t, 1, analyzed.Sentiment.Skipped)
	assert.Equal(t, 1, analyzed.Sentiment.Failed)

	st, err := svc.Load(ctx, cfg.Pipeline.AnalyzedPath)
	require.NoError(t, err)
	good, err := st.Get("Vaccines arrive")
	require.NoError(t, err)
	assert.Equal(t, "Great news today.", good.MainText)
	require.True(t, good.Scored())
	assert.InDelta(t, 0.6, good.Polarity(), 1e-9)
	assert.Equal(t, time.Date(2021, 2, 1, 9, 30, 0, 0, time.UTC), good.DatePublished)
	assert.Equal(t, []string{"Jane Doe"}, []string(good.Authors))

	bad, err := st.Get("Mask mandate")
	require.NoError(t, err)
	assert.InDelta(t, -0.2, bad.Polarity(), 1e-9)

	for _, title := range []string{"Photo gallery", "Border closure"} {
		a, err := st.Get(title)
		require.NoError(t, err)
		assert.False(t, a.Scored(), title)
	}

	// Both saves went to the database too.
	assert.Len(t, repo.upserted, 8)
}

type cancellingScorer struct {
	cancel context.CancelFunc
}

func (s *cancellingScorer) ScorePolarity(context.Context, string) (float64, error) {
	s.cancel()
	return 0.3, nil
}

func TestAnalyzeDatasetCancelledDoesNotSave(t *testing.T) {
	cfg := testConfig(t)
	cfg.Pipeline.ScoreConcurrency = 1
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc := newTestPipeline(t, cfg, &stubCrawler{raws: map[string]dto.RawArticle{
		"https://news.example.com/a": {Title: "A", MainText: "Something happened."},
		"https://news.example.com/b": {Title: "B", MainText: "Something else happened."},
	}}, &cancellingScorer{cancel: cancel}, nil)
	_, err := svc.CreateDataset(ctx, nil, cfg.Pipeline.DatasetPath)
	require.NoError(t, err)

	report, err := svc.AnalyzeDataset(ctx, cfg.Pipeline.DatasetPath, cfg.Pipeline.AnalyzedPath)
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, report.Sentiment.Cancelled)
	assert.Equal(t, 1, report.Sentiment.Scored)
	_, statErr := os.Stat(cfg.Pipeline.AnalyzedPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestLoadMissingTable(t *testing.T) {
	svc := newTestPipeline(t, testConfig(t), nil, nil, nil)

	_, err := svc.Load(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	var persistErr *entity.PersistenceError
	require.ErrorAs(t, err, &persistErr)
}

func TestLoadKeepsTableScores(t *testing.T) {
	cfg := testConfig(t)
	log := logger.NewNop()
	table := repository.NewArticleCSVRepository(log)
	zero := 0.0
	require.NoError(t, table.Write(context.Background(), cfg.Pipeline.AnalyzedPath, []entity.Article{
		{Title: "Neutral", MainText: "Nothing to report.", DatePublished: utils.SentinelDate, AverageSentencePolarity: &zero},
		{Title: "Unscored", MainText: "Not yet.", DatePublished: utils.SentinelDate},
	}))
	svc := newTestPipeline(t, cfg, nil, nil, nil)

	st, err := svc.Load(context.Background(), cfg.Pipeline.AnalyzedPath)
	require.NoError(t, err)
	neutral, err := st.Get("Neutral")
	require.NoError(t, err)
	assert.True(t, neutral.Scored())
	assert.Zero(t, neutral.Polarity())
	unscored, err := st.Get("Unscored")
	require.NoError(t, err)
	assert.False(t, unscored.Scored())
}
