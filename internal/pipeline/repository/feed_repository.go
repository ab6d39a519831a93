package repository

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"golang-covid-sentiment/internal/pipeline/config"
	"golang-covid-sentiment/pkg/logger"
	"golang-covid-sentiment/pkg/utils"

	"github.com/mmcdole/gofeed"
	"go.uber.org/multierr"
)

const defaultFeedLocale = "hl=en-CA&gl=CA&ceid=CA:en"

// FeedRepository discovers article links from news search feeds.
type FeedRepository interface {
	DiscoverLinks(ctx context.Context, queries []string) ([]string, error)
}

// NewFeedRepository creates a new instance of FeedRepository.
func NewFeedRepository(cfg *config.Config, log *logger.Logger) FeedRepository {
	return &feedRepository{
		cfg:    cfg,
		logger: log,
		parser: gofeed.NewParser(),
	}
}

type feedRepository struct {
	cfg    *config.Config
	logger *logger.Logger
	parser *gofeed.Parser
}

// DiscoverLinks runs each query against the feed search endpoint and returns the newest
// links first, at most MaxFeedItems per query, without duplicates. A failing query is logged
// and reported in the aggregated error; links from the other queries are still returned.
func (r *feedRepository) DiscoverLinks(ctx context.Context, queries []string) ([]string, error) {
	var (
		links []string
		errs  error
		seen  = make(map[string]bool)
	)

	for _, query := range queries {
		if !utils.ShouldContinue(ctx, r.logger) {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		if query == "" {
			continue
		}

		feedURL := r.searchURL(query)
		r.logger.Info("Processing RSS feed", logger.StringField("url", feedURL))
		feed, err := r.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			r.logger.Error("Failed to parse RSS feed", logger.ErrorField(err), logger.StringField("query", query))
			errs = multierr.Append(errs, fmt.Errorf("failed to parse feed for %q: %w", query, err))
			continue
		}

		items := feed.Items
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].PublishedParsed == nil || items[j].PublishedParsed == nil {
				return items[j].PublishedParsed == nil && items[i].PublishedParsed != nil
			}
			return items[i].PublishedParsed.After(*items[j].PublishedParsed)
		})

		count := 0
		for _, item := range items {
			if r.cfg.Crawler.MaxFeedItems > 0 && count >= r.cfg.Crawler.MaxFeedItems {
				break
			}
			if item.Link == "" || seen[item.Link] {
				continue
			}
			seen[item.Link] = true
			links = append(links, item.Link)
			count++
		}
		r.logger.Info("Discovered links", logger.StringField("query", query), logger.IntField("count", count))
	}
	return links, errs
}

func (r *feedRepository) searchURL(query string) string {
	return fmt.Sprintf("%s?q=%s&%s", r.cfg.Crawler.FeedBaseURL, url.QueryEscape(query), defaultFeedLocale)
}
