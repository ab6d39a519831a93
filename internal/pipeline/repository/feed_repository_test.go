package repository

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang-covid-sentiment/internal/pipeline/config"
	"golang-covid-sentiment/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>search</title>
<item><title>Old</title><link>https://news.example/old</link><pubDate>Mon, 01 Mar 2021 10:00:00 GMT</pubDate></item>
<item><title>New</title><link>https://news.example/new</link><pubDate>Wed, 03 Mar 2021 10:00:00 GMT</pubDate></item>
<item><title>Middle</title><link>https://news.example/middle</link><pubDate>Tue, 02 Mar 2021 10:00:00 GMT</pubDate></item>
</channel></rss>`

func TestDiscoverLinks(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query().Get("q"))
		if r.URL.Query().Get("q") == "broken" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, searchFeed)
	}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{Crawler: config.Crawler{FeedBaseURL: srv.URL, MaxFeedItems: 2}}
	repo := NewFeedRepository(cfg, logger.NewNop())

	links, err := repo.DiscoverLinks(context.Background(), []string{"covid mask mandate", "broken", "covid vaccine"})
	require.Error(t, err, "the broken query is reported")
	assert.Equal(t, []string{"https://news.example/new", "https://news.example/middle", "https://news.example/old"}, links, "later queries only add unseen links")
	assert.Equal(t, []string{"covid mask mandate", "broken", "covid vaccine"}, queries)
}
