package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang-covid-sentiment/internal/pipeline/config"
	"golang-covid-sentiment/internal/pipeline/dto"
	"golang-covid-sentiment/pkg/logger"
	"golang-covid-sentiment/pkg/utils"

	"github.com/PuerkitoBio/goquery"
	"github.com/PuerkitoBio/purell"
	"github.com/go-resty/resty/v2"
	"github.com/mauidude/go-readability"
	"github.com/patrickmn/go-cache"
	"github.com/temoto/robotstxt"
	"go.uber.org/multierr"
	"golang.org/x/time/rate"
)

const urlNormalizationFlags = purell.FlagsSafe | purell.FlagRemoveFragment | purell.FlagRemoveDuplicateSlashes

// LinkError records why a single link could not be crawled.
type LinkError struct {
	URL string
	Err error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("failed to crawl %s: %v", e.URL, e.Err)
}

func (e *LinkError) Unwrap() error {
	return e.Err
}

// ErrDisallowedByRobots is returned when robots.txt forbids fetching a link.
var ErrDisallowedByRobots = errors.New("disallowed by robots.txt")

// ErrBlacklistedDomain is returned for links on a configured blacklisted domain.
var ErrBlacklistedDomain = errors.New("blacklisted domain")

// NewsCrawlerRepository downloads news pages and extracts raw article records.
type NewsCrawlerRepository interface {
	// Crawl returns the extracted records keyed by normalized URL. Per-link failures are
	// aggregated into the returned error (each a *LinkError); the map holds every success.
	Crawl(ctx context.Context, urls []string) (map[string]dto.RawArticle, error)
}

// NewNewsCrawlerRepository creates a new instance of NewsCrawlerRepository.
func NewNewsCrawlerRepository(cfg *config.Config, log *logger.Logger) NewsCrawlerRepository {
	client := resty.New().
		SetTimeout(cfg.Crawler.Timeout).
		SetRetryCount(cfg.Crawler.RetryCount).
		SetRetryWaitTime(time.Second).
		SetHeader("User-Agent", cfg.Crawler.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "en-US,en;q=0.5").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		})

	rps := cfg.Crawler.RequestsPerSecond
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	maxConcurrent := cfg.Crawler.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	return &newsCrawlerRepository{
		client:        client,
		cfg:           cfg,
		logger:        log,
		limit:         limit,
		maxConcurrent: maxConcurrent,
		limiters:      make(map[string]*rate.Limiter),
		robotsCache:   cache.New(time.Hour, 2*time.Hour),
	}
}

type newsCrawlerRepository struct {
	client        *resty.Client
	cfg           *config.Config
	logger        *logger.Logger
	limit         rate.Limit
	maxConcurrent int

	limitersMu sync.Mutex
	limiters   map[string]*rate.Limiter

	robotsCache *cache.Cache
}

func (r *newsCrawlerRepository) Crawl(ctx context.Context, urls []string) (map[string]dto.RawArticle, error) {
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		errs      error
		results   = make(map[string]dto.RawArticle)
		semaphore = make(chan struct{}, r.maxConcurrent)
		seen      = make(map[string]bool)
	)

	for _, raw := range urls {
		if !utils.ShouldContinue(ctx, r.logger) {
			errs = multierr.Append(errs, fmt.Errorf("crawl cancelled: %w", ctx.Err()))
			break
		}

		link, err := NormalizeLink(raw)
		if err != nil {
			r.logger.Warn("Skip invalid link", logger.StringField("url", raw), logger.ErrorField(err))
			errs = multierr.Append(errs, &LinkError{URL: raw, Err: err})
			continue
		}
		if seen[link] {
			continue
		}
		seen[link] = true

		wg.Add(1)
		utils.GoSafe(func() {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			article, err := r.crawlOne(ctx, link)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				r.logger.Error("Failed to crawl article", logger.ErrorField(err), logger.StringField("url", link))
				errs = multierr.Append(errs, &LinkError{URL: link, Err: err})
				return
			}
			results[link] = article
		})
	}
	wg.Wait()

	r.logger.Info("Crawl finished",
		logger.IntField("requested", len(urls)),
		logger.IntField("crawled", len(results)),
		logger.IntField("failed", len(multierr.Errors(errs))),
	)
	return results, errs
}

func (r *newsCrawlerRepository) crawlOne(ctx context.Context, link string) (dto.RawArticle, error) {
	parsed, err := url.Parse(link)
	if err != nil {
		return dto.RawArticle{}, fmt.Errorf("failed to parse url: %w", err)
	}
	host := parsed.Hostname()

	if utils.ContainsString(r.cfg.Crawler.BlackListedDomains, host) {
		r.logger.Warn("Skip news from blacklisted domain", logger.StringField("domain", host))
		return dto.RawArticle{}, ErrBlacklistedDomain
	}

	if r.cfg.Crawler.RespectRobots {
		allowed, err := r.allowedByRobots(ctx, parsed)
		if err != nil {
			r.logger.Warn("Failed to read robots.txt, crawling anyway", logger.ErrorField(err), logger.StringField("host", host))
		} else if !allowed {
			return dto.RawArticle{}, ErrDisallowedByRobots
		}
	}

	if err := r.hostLimiter(host).Wait(ctx); err != nil {
		return dto.RawArticle{}, fmt.Errorf("failed to wait for rate limit: %w", err)
	}

	resp, err := r.client.R().SetContext(ctx).Get(link)
	if err != nil {
		return dto.RawArticle{}, fmt.Errorf("failed to fetch article: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return dto.RawArticle{}, fmt.Errorf("failed to fetch article, status code: %d", resp.StatusCode())
	}

	article, err := ExtractArticle(resp.Body())
	if err != nil {
		return dto.RawArticle{}, err
	}
	article.URL = link
	if article.SourceDomain == "" {
		article.SourceDomain = host
	}
	return article, nil
}

func (r *newsCrawlerRepository) hostLimiter(host string) *rate.Limiter {
	r.limitersMu.Lock()
	defer r.limitersMu.Unlock()
	l, ok := r.limiters[host]
	if !ok {
		l = rate.NewLimiter(r.limit, 1)
		r.limiters[host] = l
	}
	return l
}

func (r *newsCrawlerRepository) allowedByRobots(ctx context.Context, target *url.URL) (bool, error) {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", target.Scheme, target.Host)

	var data *robotstxt.RobotsData
	if cached, ok := r.robotsCache.Get(robotsURL); ok {
		data = cached.(*robotstxt.RobotsData)
	} else {
		resp, err := r.client.R().SetContext(ctx).Get(robotsURL)
		if err != nil {
			return true, fmt.Errorf("failed to fetch robots.txt: %w", err)
		}
		data, err = robotstxt.FromStatusAndBytes(resp.StatusCode(), resp.Body())
		if err != nil {
			return true, fmt.Errorf("failed to parse robots.txt: %w", err)
		}
		r.robotsCache.Set(robotsURL, data, cache.DefaultExpiration)
	}

	path := target.EscapedPath()
	if path == "" {
		path = "/"
	}
	return data.TestAgent(path, r.cfg.Crawler.UserAgent), nil
}

// NormalizeLink canonicalizes a link so the same article is not crawled twice.
func NormalizeLink(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty link")
	}
	link, err := purell.NormalizeURLString(raw, urlNormalizationFlags)
	if err != nil {
		return "", fmt.Errorf("failed to normalize link: %w", err)
	}
	parsed, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("failed to parse link: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	return link, nil
}

// ExtractArticle pulls the article metadata and readable body out of an HTML page.
func ExtractArticle(body []byte) (dto.RawArticle, error) {
	page, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return dto.RawArticle{}, fmt.Errorf("failed to parse page: %w", err)
	}

	article := dto.RawArticle{
		Title: firstNonEmpty(
			metaContent(page, `meta[property="og:title"]`),
			metaContent(page, `meta[name="twitter:title"]`),
			strings.TrimSpace(page.Find("title").First().Text()),
			strings.TrimSpace(page.Find("h1").First().Text()),
		),
		Description: firstNonEmpty(
			metaContent(page, `meta[property="og:description"]`),
			metaContent(page, `meta[name="description"]`),
		),
		DatePublish: firstNonEmpty(
			metaContent(page, `meta[property="article:published_time"]`),
			metaContent(page, `meta[name="pubdate"]`),
			metaContent(page, `meta[name="date"]`),
			attr(page, "time[datetime]", "datetime"),
		),
		Authors: authors(page),
	}
	article.Title = utils.CleanToValidUTF8(article.Title)
	article.Description = utils.CleanToValidUTF8(article.Description)

	doc, err := readability.NewDocument(string(body))
	if err != nil {
		return dto.RawArticle{}, fmt.Errorf("failed to parse news content: %w", err)
	}
	content, err := goquery.NewDocumentFromReader(strings.NewReader(doc.Content()))
	if err != nil {
		return dto.RawArticle{}, fmt.Errorf("failed to parse news content: %w", err)
	}

	text := strings.TrimSpace(content.Text())
	text = strings.NewReplacer("\t", "", "\r", "", "\f", "").Replace(text)
	article.MainText = utils.CleanToValidUTF8(text)
	return article, nil
}

func authors(page *goquery.Document) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		out = append(out, name)
	}
	page.Find(`meta[name="author"], meta[property="article:author"]`).Each(func(_ int, s *goquery.Selection) {
		content, _ := s.Attr("content")
		for _, name := range strings.Split(content, ",") {
			add(name)
		}
	})
	if len(out) == 0 {
		page.Find(`[rel="author"]`).Each(func(_ int, s *goquery.Selection) {
			add(s.Text())
		})
	}
	return out
}

func metaContent(page *goquery.Document, selector string) string {
	return attr(page, selector, "content")
}

func attr(page *goquery.Document, selector, name string) string {
	value, _ := page.Find(selector).First().Attr(name)
	return strings.TrimSpace(value)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
