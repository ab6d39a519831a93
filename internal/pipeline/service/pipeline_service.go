package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang-covid-sentiment/internal/pipeline/config"
	"golang-covid-sentiment/internal/pipeline/dto"
	"golang-covid-sentiment/internal/pipeline/repository"
	"golang-covid-sentiment/internal/pipeline/store"
	"golang-covid-sentiment/pkg/logger"

	"go.uber.org/multierr"
)

// PipelineService runs raw records through cleaning, scoring and persistence.
type PipelineService interface {
	BuildStore(raws map[string]dto.RawArticle) *store.ArticleStore
	Crawl(ctx context.Context, links []string) (*store.ArticleStore, dto.CrawlReport, error)
	Load(ctx context.Context, path string) (*store.ArticleStore, error)
	Score(ctx context.Context, articles *store.ArticleStore) (dto.SentimentReport, error)
	Save(ctx context.Context, articles *store.ArticleStore, path string) error
	CreateDataset(ctx context.Context, links []string, path string) (dto.RunReport, error)
	AnalyzeDataset(ctx context.Context, inPath, outPath string) (dto.RunReport, error)
}

// NewPipelineService creates a new PipelineService. articleRepo may be nil when no database
// is configured.
func NewPipelineService(
	cfg *config.Config,
	log *logger.Logger,
	builder *ArticleBuilder,
	crawler repository.NewsCrawlerRepository,
	scorer repository.SentimentRepository,
	table repository.ArticleTableRepository,
	articleRepo repository.ArticleRepository,
) (PipelineService, error) {
	keyFunc, err := store.KeyFuncFor(cfg.Pipeline.KeyPolicy)
	if err != nil {
		return nil, err
	}
	if builder == nil {
		builder = NewArticleBuilder(nil, log)
	}
	return &pipelineService{
		cfg:         cfg,
		logger:      log,
		builder:     builder,
		keyFunc:     keyFunc,
		crawler:     crawler,
		scorer:      scorer,
		table:       table,
		articleRepo: articleRepo,
	}, nil
}

type pipelineService struct {
	cfg         *config.Config
	logger      *logger.Logger
	builder     *ArticleBuilder
	keyFunc     store.KeyFunc
	crawler     repository.NewsCrawlerRepository
	scorer      repository.SentimentRepository
	table       repository.ArticleTableRepository
	articleRepo repository.ArticleRepository
}

func (s *pipelineService) newStore() *store.ArticleStore {
	return store.New(store.WithKeyFunc(s.keyFunc), store.WithLogger(s.logger))
}

// BuildStore cleans every raw record and adds it to a new store. Records are added in URL
// order, so when two records share a key the later URL wins.
func (s *pipelineService) BuildStore(raws map[string]dto.RawArticle) *store.ArticleStore {
	urls := make([]string, 0, len(raws))
	for u := range raws {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	st := s.newStore()
	for _, u := range urls {
		raw := raws[u]
		if raw.URL == "" {
			raw.URL = u
		}
		st.Add(s.builder.Build(raw))
	}
	return st
}

// Crawl fetches links and builds a store from the pages that could be extracted. Per-link
// failures are reported, not returned; the error is non-nil only when the crawl was cancelled.
func (s *pipelineService) Crawl(ctx context.Context, links []string) (*store.ArticleStore, dto.CrawlReport, error) {
	report := dto.CrawlReport{
		Requested:   len(links),
		FailedLinks: []string{},
		Errors:      []string{},
	}

	raws, err := s.crawler.Crawl(ctx, links)
	for _, e := range multierr.Errors(err) {
		var linkErr *repository.LinkError
		if errors.As(e, &linkErr) {
			if errors.Is(linkErr, repository.ErrBlacklistedDomain) || errors.Is(linkErr, repository.ErrDisallowedByRobots) {
				report.Skipped++
			} else {
				report.FailedLinks = append(report.FailedLinks, linkErr.URL)
			}
		}
		report.Errors = append(report.Errors, e.Error())
	}
	report.Crawled = len(raws)

	st := s.BuildStore(raws)
	s.logger.Info("Built article store from crawl",
		logger.IntField("requested", report.Requested),
		logger.IntField("crawled", report.Crawled),
		logger.IntField("articles", st.Len()),
	)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return st, report, fmt.Errorf("crawl cancelled: %w", ctxErr)
	}
	return st, report, nil
}

// Load reads a table into a new store. Scores present in the table are kept; later rows
// overwrite earlier rows with the same key.
func (s *pipelineService) Load(ctx context.Context, path string) (*store.ArticleStore, error) {
	rows, err := s.table.Read(ctx, path)
	if err != nil {
		s.logger.Error("Failed to load article table", logger.ErrorField(err), logger.StringField("path", path))
		return nil, err
	}

	st := s.newStore()
	for _, row := range rows {
		article := s.builder.Build(row)
		if row.Polarity != nil {
			article.SetPolarity(*row.Polarity)
		}
		st.Add(article)
	}
	return st, nil
}

func (s *pipelineService) Score(ctx context.Context, articles *store.ArticleStore) (dto.SentimentReport, error) {
	return articles.RunSentiment(ctx, s.scorer, s.cfg.Pipeline.ScoreConcurrency)
}

// Save writes the store to path and, when a database is configured, upserts it there too.
func (s *pipelineService) Save(ctx context.Context, articles *store.ArticleStore, path string) error {
	all := articles.All()
	if err := s.table.Write(ctx, path, all); err != nil {
		s.logger.Error("Failed to write article table", logger.ErrorField(err), logger.StringField("path", path))
		return err
	}
	if s.articleRepo != nil {
		if err := s.articleRepo.Upsert(ctx, all); err != nil {
			s.logger.Error("Failed to upsert articles", logger.ErrorField(err))
			return err
		}
	}
	return nil
}

// CreateDataset crawls links, cleans the pages and writes them, unscored, to path.
func (s *pipelineService) CreateDataset(ctx context.Context, links []string, path string) (dto.RunReport, error) {
	start := time.Now()
	st, crawlReport, err := s.Crawl(ctx, links)
	report := dto.RunReport{Crawl: crawlReport, Articles: st.Len(), OutputPath: path}
	if err != nil {
		return report, err
	}
	if err := s.Save(ctx, st, path); err != nil {
		return report, err
	}
	s.logger.Info("Dataset created",
		logger.StringField("path", path),
		logger.IntField("articles", st.Len()),
		logger.DurationField("duration", time.Since(start)),
	)
	return report, nil
}

// AnalyzeDataset loads inPath, scores every article and writes the result to outPath. Scoring
// failures of single articles do not fail the run; they are listed in the report.
func (s *pipelineService) AnalyzeDataset(ctx context.Context, inPath, outPath string) (dto.RunReport, error) {
	report := dto.RunReport{OutputPath: outPath}
	st, err := s.Load(ctx, inPath)
	if err != nil {
		return report, err
	}
	report.Articles = st.Len()

	sentiment, err := s.Score(ctx, st)
	report.Sentiment = sentiment
	if err != nil && sentiment.Cancelled {
		return report, err
	}

	if err := s.Save(ctx, st, outPath); err != nil {
		return report, err
	}
	return report, nil
}
