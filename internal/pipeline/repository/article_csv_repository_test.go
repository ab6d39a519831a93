package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang-covid-sentiment/internal/entity"
	"golang-covid-sentiment/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func polarity(v float64) *float64 { return &v }

func TestArticleCSVRoundTrip(t *testing.T) {
	repo := NewArticleCSVRepository(logger.NewNop())
	path := filepath.Join(t.TempDir(), "out", "analyzed.csv")
	date := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)

	articles := []entity.Article{
		{
			Title:                   "Vaccine rollout expands",
			URL:                     "https://www.cbc.ca/news/vaccine",
			SourceDomain:            "www.cbc.ca",
			Description:             "More clinics, \"finally\".",
			Authors:                 []string{"Jane Doe", "O'Brien"},
			DatePublished:           date,
			AverageSentencePolarity: polarity(0.123456789),
			MainText:                "Line one, with a comma.\nLine two.",
		},
		{
			Title:         "Unscored story",
			DatePublished: date,
		},
		{
			Title:                   "Neutral story",
			DatePublished:           date,
			AverageSentencePolarity: polarity(0),
		},
	}
	require.NoError(t, repo.Write(context.Background(), path, articles))

	rows, err := repo.Read(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	first := rows[0]
	assert.Equal(t, articles[0].Title, first.Title)
	assert.Equal(t, articles[0].URL, first.URL)
	assert.Equal(t, articles[0].SourceDomain, first.SourceDomain)
	assert.Equal(t, articles[0].Description, first.Description)
	assert.Equal(t, articles[0].MainText, first.MainText)
	assert.Equal(t, "2021-03-04 05:06:07", first.DatePublish)
	assert.Equal(t, []string{"Jane Doe", "O'Brien"}, entity.ParseAuthors(first.AuthorsRaw))
	require.NotNil(t, first.Polarity)
	assert.InDelta(t, 0.123456789, *first.Polarity, 1e-9)

	assert.Nil(t, rows[1].Polarity, "unscored stays unscored")
	require.NotNil(t, rows[2].Polarity, "a computed 0.0 stays scored")
	assert.Equal(t, 0.0, *rows[2].Polarity)
}

func TestArticleCSVHeader(t *testing.T) {
	repo := NewArticleCSVRepository(logger.NewNop())
	path := filepath.Join(t.TempDir(), "dataset.csv")
	require.NoError(t, repo.Write(context.Background(), path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "title,url,source_domain,description,authors,date_publish,average_sentence_polarity,maintext\n", string(data))
}

func TestArticleCSVReadLegacyRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.csv")
	content := "\ufefftitle,url,source_domain,description,authors,date_publish,average_sentence_polarity,maintext\n" +
		"A,u,d,desc,['X'],2020-05-01 00:00:00,0.0,body\n" +
		"B,u,d,desc,[],2020-05-01 00:00:00,not-a-number,body\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rows, err := NewArticleCSVRepository(logger.NewNop()).Read(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.NotNil(t, rows[0].Polarity)
	assert.Equal(t, 0.0, *rows[0].Polarity)
	assert.Nil(t, rows[1].Polarity)
}

func TestArticleCSVReadErrors(t *testing.T) {
	repo := NewArticleCSVRepository(logger.NewNop())
	dir := t.TempDir()

	_, err := repo.Read(context.Background(), filepath.Join(dir, "missing.csv"))
	var perr *entity.PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("title,url\nA,B\n"), 0o644))
	_, err = repo.Read(context.Background(), bad)
	require.True(t, errors.As(err, &perr))
	assert.Contains(t, err.Error(), "missing columns")
}

func TestArticleCSVWriteReplacesAtomically(t *testing.T) {
	repo := NewArticleCSVRepository(logger.NewNop())
	dir := t.TempDir()
	path := filepath.Join(dir, "dataset.csv")

	require.NoError(t, repo.Write(context.Background(), path, []entity.Article{{Title: "old"}}))
	require.NoError(t, repo.Write(context.Background(), path, []entity.Article{{Title: "new"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "new")
	assert.NotContains(t, string(data), "old")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")
}

func TestArticleCSVWriteCancelledKeepsOldFile(t *testing.T) {
	repo := NewArticleCSVRepository(logger.NewNop())
	dir := t.TempDir()
	path := filepath.Join(dir, "dataset.csv")
	require.NoError(t, repo.Write(context.Background(), path, []entity.Article{{Title: "old"}}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := repo.Write(ctx, path, []entity.Article{{Title: "new"}})
	require.ErrorIs(t, err, context.Canceled)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "old"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
