package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang-covid-sentiment/internal/entity"
	"golang-covid-sentiment/pkg/chart"
	"golang-covid-sentiment/pkg/logger"

	"github.com/google/renameio/v2"
)

const chartTitle = "Article Polarity over Time"

// FilterByKeyword keeps the articles whose body contains keyword, or whose URL contains the
// keyword lowercased with spaces removed. The body match is case-sensitive. An empty keyword
// keeps every article.
func FilterByKeyword(articles []entity.Article, keyword string) []entity.Article {
	if keyword == "" {
		return articles
	}
	urlKeyword := strings.ReplaceAll(strings.ToLower(keyword), " ", "")
	out := make([]entity.Article, 0, len(articles))
	for _, a := range articles {
		if strings.Contains(a.MainText, keyword) || strings.Contains(strings.ToLower(a.URL), urlKeyword) {
			out = append(out, a)
		}
	}
	return out
}

// ChartTitle returns the chart title for keyword.
func ChartTitle(keyword string) string {
	if keyword == "" {
		return chartTitle
	}
	return fmt.Sprintf("%s: Filtered for '%s'", chartTitle, keyword)
}

// ExploreService filters analyzed articles and renders their polarity charts.
type ExploreService interface {
	LoadArticles(ctx context.Context, path string) ([]entity.Article, error)
	RenderChart(w io.Writer, articles []entity.Article, keyword string) ([]entity.Article, error)
	WriteChart(dir string, articles []entity.Article, keyword string) (string, []entity.Article, error)
}

// NewExploreService creates a new ExploreService.
func NewExploreService(pipeline PipelineService, log *logger.Logger) ExploreService {
	return &exploreService{pipeline: pipeline, logger: log}
}

type exploreService struct {
	pipeline PipelineService
	logger   *logger.Logger
}

// LoadArticles loads an analyzed table in publish date order.
func (s *exploreService) LoadArticles(ctx context.Context, path string) ([]entity.Article, error) {
	st, err := s.pipeline.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	return st.All(), nil
}

// RenderChart filters articles by keyword and writes the scatter page to w. Unscored articles
// match the filter but are not plotted. It returns the matching articles.
func (s *exploreService) RenderChart(w io.Writer, articles []entity.Article, keyword string) ([]entity.Article, error) {
	matches := FilterByKeyword(articles, keyword)
	points := make([]chart.Point, 0, len(matches))
	for _, a := range matches {
		if !a.Scored() {
			continue
		}
		points = append(points, chart.Point{
			Title:    a.Title,
			URL:      a.URL,
			Date:     a.DatePublished,
			Polarity: a.Polarity(),
		})
	}
	if err := chart.RenderScatter(w, ChartTitle(keyword), points); err != nil {
		s.logger.Error("Failed to render chart", logger.ErrorField(err), logger.StringField("keyword", keyword))
		return nil, err
	}
	return matches, nil
}

// WriteChart renders the chart for keyword into dir and returns the file path.
func (s *exploreService) WriteChart(dir string, articles []entity.Article, keyword string) (string, []entity.Article, error) {
	var buf bytes.Buffer
	matches, err := s.RenderChart(&buf, articles, keyword)
	if err != nil {
		return "", nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, &entity.PersistenceError{Op: "create chart directory", Path: dir, Err: err}
	}
	path := filepath.Join(dir, ChartFileName(keyword))
	if err := renameio.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", nil, &entity.PersistenceError{Op: "write chart", Path: path, Err: err}
	}
	s.logger.Info("Chart written",
		logger.StringField("path", path),
		logger.StringField("keyword", keyword),
		logger.IntField("matches", len(matches)),
	)
	return path, matches, nil
}

var unsafeFileChars = regexp.MustCompile(`[^a-z0-9]+`)

// ChartFileName returns a file name for the keyword's chart.
func ChartFileName(keyword string) string {
	slug := strings.Trim(unsafeFileChars.ReplaceAllString(strings.ToLower(keyword), "-"), "-")
	if slug == "" {
		slug = "all"
	}
	return "polarity-" + slug + ".html"
}
