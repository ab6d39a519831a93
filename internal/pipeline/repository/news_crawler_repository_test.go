package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang-covid-sentiment/internal/pipeline/config"
	"golang-covid-sentiment/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

const articlePage = `<!DOCTYPE html>
<html>
<head>
  <title>Fallback title</title>
  <meta property="og:title" content="Province extends mask mandate">
  <meta name="description" content="The order now runs through spring.">
  <meta name="author" content="Jane Doe, John Roe">
  <meta property="article:published_time" content="2021-02-03T10:20:30Z">
</head>
<body>
  <nav><a href="/">Home</a> <a href="/news">News</a></nav>
  <article>
    <h1>Province extends mask mandate</h1>
    <p>The provincial government announced on Wednesday that the indoor mask mandate will remain in place through the spring, citing rising case counts in several regions.</p>
    <p>Health officials said the measure has helped slow transmission in schools and workplaces, and that it will be reviewed again once vaccination rates increase further.</p>
    <p>Business groups expressed frustration with the extension, while hospital staff welcomed the decision as a necessary step to protect capacity during the third wave.</p>
  </article>
</body>
</html>`

func testCrawlerConfig() *config.Config {
	return &config.Config{
		Crawler: config.Crawler{
			UserAgent:     "covid-sentiment-test",
			Timeout:       5 * time.Second,
			MaxConcurrent: 2,
			RespectRobots: true,
		},
	}
}

func newNewsServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
	})
	mux.HandleFunc("/news/mask-mandate", func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, articlePage)
	})
	mux.HandleFunc("/private/secret", func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, articlePage)
	})
	mux.HandleFunc("/news/gone", func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCrawlExtractsArticles(t *testing.T) {
	var hits atomic.Int32
	srv := newNewsServer(t, &hits)
	repo := NewNewsCrawlerRepository(testCrawlerConfig(), logger.NewNop())

	link := srv.URL + "/news/mask-mandate"
	results, err := repo.Crawl(context.Background(), []string{link, link + "#comments", "  "})

	require.Len(t, multierr.Errors(err), 1, "only the blank link fails")
	require.Len(t, results, 1)
	assert.EqualValues(t, 1, hits.Load(), "duplicate links are fetched once")

	key, nerr := NormalizeLink(link)
	require.NoError(t, nerr)
	article, ok := results[key]
	require.True(t, ok)

	assert.Equal(t, "Province extends mask mandate", article.Title)
	assert.Equal(t, "The order now runs through spring.", article.Description)
	assert.Equal(t, []string{"Jane Doe", "John Roe"}, article.Authors)
	assert.Equal(t, "2021-02-03T10:20:30Z", article.DatePublish)
	assert.Equal(t, "127.0.0.1", article.SourceDomain)
	assert.Equal(t, key, article.URL)
	assert.Contains(t, article.MainText, "indoor mask mandate will remain in place")
	assert.Contains(t, article.MainText, "third wave")
}

func TestCrawlIsolatesFailures(t *testing.T) {
	var hits atomic.Int32
	srv := newNewsServer(t, &hits)
	repo := NewNewsCrawlerRepository(testCrawlerConfig(), logger.NewNop())

	results, err := repo.Crawl(context.Background(), []string{
		srv.URL + "/news/mask-mandate",
		srv.URL + "/private/secret",
		srv.URL + "/news/gone",
	})

	assert.Len(t, results, 1)
	errs := multierr.Errors(err)
	require.Len(t, errs, 2)
	assert.True(t, errors.Is(err, ErrDisallowedByRobots))

	var linkErr *LinkError
	for _, e := range errs {
		require.True(t, errors.As(e, &linkErr))
		assert.True(t, strings.HasPrefix(linkErr.URL, srv.URL))
	}
	assert.EqualValues(t, 1, hits.Load(), "robots.txt disallowed page is never fetched")
}

func TestCrawlSkipsBlacklistedDomains(t *testing.T) {
	var hits atomic.Int32
	srv := newNewsServer(t, &hits)
	cfg := testCrawlerConfig()
	cfg.Crawler.BlackListedDomains = []string{"127.0.0.1"}

	results, err := NewNewsCrawlerRepository(cfg, logger.NewNop()).Crawl(context.Background(), []string{srv.URL + "/news/mask-mandate"})
	assert.Empty(t, results)
	assert.True(t, errors.Is(err, ErrBlacklistedDomain))
	assert.Zero(t, hits.Load())
}

func TestCrawlCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := NewNewsCrawlerRepository(testCrawlerConfig(), logger.NewNop()).Crawl(ctx, []string{"https://example.com/a"})
	assert.Empty(t, results)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractArticleFallbacks(t *testing.T) {
	page := `<html><head><title>Only a title</title></head><body>
<p class="byline"><a rel="author" href="/a">Sam Writer</a></p>
<time datetime="2021-06-01 08:00:00">June 1</time>
<div><p>Border closure rules changed again this week as the federal government reviewed travel data from across the country and its partners.</p></div>
</body></html>`

	article, err := ExtractArticle([]byte(page))
	require.NoError(t, err)
	assert.Equal(t, "Only a title", article.Title)
	assert.Empty(t, article.Description)
	assert.Equal(t, []string{"Sam Writer"}, article.Authors)
	assert.Equal(t, "2021-06-01 08:00:00", article.DatePublish)
	assert.Contains(t, article.MainText, "Border closure rules changed")
}

func TestNormalizeLink(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "HTTPS://WWW.CBC.CA/news/a#top", want: "https://www.cbc.ca/news/a"},
		{in: "http://example.com:80/a", want: "http://example.com/a"},
		{in: " https://example.com/a ", want: "https://example.com/a"},
		{in: "", wantErr: true},
		{in: "ftp://example.com/a", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeLink(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadLinks(t *testing.T) {
	links, err := ReadLinks(strings.NewReader("https://a.example/1\n\n# comment\n  https://b.example/2  \n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example/1", "https://b.example/2"}, links)
}

func TestReadLinksFileMissing(t *testing.T) {
	_, err := ReadLinksFile("does-not-exist.txt")
	require.Error(t, err)
}
