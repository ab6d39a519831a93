// Package store keeps cleaned articles in memory for the duration of a pipeline run.
package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"golang-covid-sentiment/internal/entity"
	"golang-covid-sentiment/internal/pipeline/dto"
	"golang-covid-sentiment/pkg/logger"
	"golang-covid-sentiment/pkg/utils"

	"go.uber.org/multierr"
)

// Scorer computes the mean sentence polarity of a text.
type Scorer interface {
	ScorePolarity(ctx context.Context, text string) (float64, error)
}

// ArticleStore is a keyed collection of articles. It only grows; there is no delete.
type ArticleStore struct {
	mu       sync.RWMutex
	articles map[string]entity.Article
	keyFunc  KeyFunc
	logger   *logger.Logger
}

// Option configures an ArticleStore.
type Option func(*ArticleStore)

// WithKeyFunc sets the key policy. The default keys by title.
func WithKeyFunc(fn KeyFunc) Option {
	return func(s *ArticleStore) {
		if fn != nil {
			s.keyFunc = fn
		}
	}
}

// WithLogger sets the logger used for scoring warnings.
func WithLogger(log *logger.Logger) Option {
	return func(s *ArticleStore) {
		if log != nil {
			s.logger = log
		}
	}
}

// New creates an empty ArticleStore.
func New(opts ...Option) *ArticleStore {
	s := &ArticleStore{
		articles: make(map[string]entity.Article),
		keyFunc:  KeyByTitle,
		logger:   logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add inserts the article, overwriting any article with the same key, and returns the key.
func (s *ArticleStore) Add(article entity.Article) string {
	key := s.keyFunc(article)
	article = article.Clone()
	article.Key = key

	s.mu.Lock()
	s.articles[key] = article
	s.mu.Unlock()
	return key
}

// Get returns a copy of the article stored under key.
func (s *ArticleStore) Get(key string) (entity.Article, error) {
	s.mu.RLock()
	article, ok := s.articles[key]
	s.mu.RUnlock()
	if !ok {
		return entity.Article{}, &entity.NotFoundError{Key: key}
	}
	return article.Clone(), nil
}

// Keys returns a snapshot of the current keys in no particular order.
func (s *ArticleStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.articles))
	for k := range s.articles {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of stored articles.
func (s *ArticleStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.articles)
}

// All returns copies of every article ordered by publish date, then key.
func (s *ArticleStore) All() []entity.Article {
	s.mu.RLock()
	out := make([]entity.Article, 0, len(s.articles))
	for _, a := range s.articles {
		out = append(out, a.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].DatePublished.Equal(out[j].DatePublished) {
			return out[i].DatePublished.Before(out[j].DatePublished)
		}
		return out[i].Key < out[j].Key
	})
	return out
}

type scoreJob struct {
	key  string
	text string
}

// RunSentiment scores the main text of every article with scorer, using up to concurrency
// workers. Articles with an empty body are skipped and stay unscored. A failure on one article
// is logged and reported without aborting the others; the returned error aggregates them.
// Cancellation is honoured between articles.
func (s *ArticleStore) RunSentiment(ctx context.Context, scorer Scorer, concurrency int) (dto.SentimentReport, error) {
	start := time.Now()
	if concurrency <= 0 {
		concurrency = 1
	}

	var (
		jobs   []scoreJob
		report dto.SentimentReport
	)
	s.mu.RLock()
	for key, a := range s.articles {
		report.Total++
		if strings.TrimSpace(a.MainText) == "" {
			report.Skipped++
			continue
		}
		jobs = append(jobs, scoreJob{key: key, text: a.MainText})
	}
	s.mu.RUnlock()
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].key < jobs[j].key })

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		errs      error
		semaphore = make(chan struct{}, concurrency)
	)

	for _, job := range jobs {
		if !utils.ShouldContinue(ctx, s.logger) {
			report.Cancelled = true
			break
		}
		select {
		case semaphore <- struct{}{}:
			if ctx.Err() != nil {
				<-semaphore
				report.Cancelled = true
			}
		case <-ctx.Done():
			report.Cancelled = true
		}
		if report.Cancelled {
			break
		}

		wg.Add(1)
		j := job
		utils.GoSafe(func() {
			defer wg.Done()
			defer func() { <-semaphore }()

			polarity, err := scoreOne(ctx, scorer, j.text)
			if err == nil {
				err = s.setPolarity(j.key, j.text, polarity)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				scoringErr := &entity.ScoringError{Key: j.key, Err: err}
				s.logger.Warn("Failed to score article, leaving it unscored",
					logger.StringField("key", j.key),
					logger.ErrorField(err),
				)
				report.Failed++
				report.Failures = append(report.Failures, dto.ScoreFailure{Key: j.key, Error: err.Error()})
				errs = multierr.Append(errs, scoringErr)
				return
			}
			report.Scored++
		})
	}
	wg.Wait()

	if report.Cancelled {
		errs = multierr.Append(errs, fmt.Errorf("sentiment run cancelled: %w", ctx.Err()))
	}
	report.Duration = time.Since(start)

	s.logger.Info("Sentiment run finished",
		logger.IntField("total", report.Total),
		logger.IntField("scored", report.Scored),
		logger.IntField("skipped", report.Skipped),
		logger.IntField("failed", report.Failed),
		logger.Field("cancelled", report.Cancelled),
	)
	return report, errs
}

// scoreOne shields the batch from a panicking scorer.
func scoreOne(ctx context.Context, scorer Scorer, text string) (polarity float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scorer panicked: %v", r)
		}
	}()
	polarity, err = scorer.ScorePolarity(ctx, text)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(polarity) || polarity < -1 || polarity > 1 {
		return 0, fmt.Errorf("polarity %f out of range [-1, 1]", polarity)
	}
	return polarity, nil
}

func (s *ArticleStore) setPolarity(key, scoredText string, polarity float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	article, ok := s.articles[key]
	if !ok {
		return &entity.NotFoundError{Key: key}
	}
	if article.MainText != scoredText {
		return fmt.Errorf("article %q changed while it was being scored", key)
	}
	article.SetPolarity(polarity)
	s.articles[key] = article
	return nil
}
