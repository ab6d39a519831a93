package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang-covid-sentiment/internal/entity"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubScorer struct {
	mu     sync.Mutex
	calls  []string
	scores map[string]float64
	fail   map[string]error
	panics map[string]bool
}

func (s *stubScorer) ScorePolarity(_ context.Context, text string) (float64, error) {
	s.mu.Lock()
	s.calls = append(s.calls, text)
	s.mu.Unlock()
	if s.panics[text] {
		panic("scorer exploded")
	}
	if err, ok := s.fail[text]; ok {
		return 0, err
	}
	if v, ok := s.scores[text]; ok {
		return v, nil
	}
	return 0.25, nil
}

func article(title, body string) entity.Article {
	return entity.Article{
		Title:         title,
		MainText:      body,
		Authors:       []string{"Jane Doe"},
		SourceDomain:  "example.com",
		URL:           "https://example.com/" + strings.ToLower(title),
		DatePublished: time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestAddGetRoundTrip(t *testing.T) {
	s := New()
	a := article("Masks", "Masks work.")

	key := s.Add(a)
	require.Equal(t, "Masks", key)

	got, err := s.Get(key)
	require.NoError(t, err)

	a.Key = key
	if diff := cmp.Diff(a, got); diff != "" {
		t.Fatalf("article mismatch (-want +got):\n%s", diff)
	}
}

func TestGetUnknownKey(t *testing.T) {
	s := New()
	_, err := s.Get("missing")

	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrArticleNotFound)
	var nf *entity.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "missing", nf.Key)
}

func TestAddOverwritesSameTitle(t *testing.T) {
	s := New()
	s.Add(article("Same", "first body"))
	s.Add(article("Same", "second body"))

	assert.Len(t, s.Keys(), 1)
	got, err := s.Get("Same")
	require.NoError(t, err)
	assert.Equal(t, "second body", got.MainText)
}

func TestIdentityKeyPolicyKeepsSameTitledArticles(t *testing.T) {
	s := New(WithKeyFunc(KeyByIdentity))
	a := article("Same", "first body")
	b := article("Same", "second body")
	b.SourceDomain = "other.org"

	s.Add(a)
	s.Add(b)

	assert.Equal(t, 2, s.Len())
	keys := s.Keys()
	sort.Strings(keys)
	assert.Equal(t, []string{
		"Same|example.com|2021-03-01 12:00:00",
		"Same|other.org|2021-03-01 12:00:00",
	}, keys)
}

func TestKeyFuncFor(t *testing.T) {
	fn, err := KeyFuncFor("")
	require.NoError(t, err)
	assert.Equal(t, "T", fn(entity.Article{Title: "T"}))

	fn, err = KeyFuncFor("Identity")
	require.NoError(t, err)
	assert.Equal(t, "T|d|2000-01-01 00:00:00", fn(entity.Article{
		Title:         "T",
		SourceDomain:  "d",
		DatePublished: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
	}))

	_, err = KeyFuncFor("author")
	assert.Error(t, err)
}

func TestGetReturnsCopy(t *testing.T) {
	s := New()
	s.Add(article("T", "body"))

	got, err := s.Get("T")
	require.NoError(t, err)
	got.Authors[0] = "Mallory"
	got.MainText = "changed"

	again, err := s.Get("T")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", again.Authors[0])
	assert.Equal(t, "body", again.MainText)
}

func TestAllOrderedByDate(t *testing.T) {
	s := New()
	late := article("Late", "b")
	late.DatePublished = late.DatePublished.Add(48 * time.Hour)
	s.Add(late)
	s.Add(article("Early", "a"))

	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, "Early", all[0].Title)
	assert.Equal(t, "Late", all[1].Title)
}

func TestRunSentiment(t *testing.T) {
	s := New()
	s.Add(article("Good", "Great news."))
	s.Add(article("Bad", "Terrible news."))
	s.Add(article("Empty", ""))
	s.Add(article("Blank", "   "))

	scorer := &stubScorer{scores: map[string]float64{"Great news.": 0.6, "Terrible news.": -0.4}}
	report, err := s.RunSentiment(context.Background(), scorer, 1)
	require.NoError(t, err)

	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 2, report.Scored)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 0, report.Failed)
	assert.False(t, report.Cancelled)
	assert.Len(t, scorer.calls, 2)

	good, _ := s.Get("Good")
	assert.InDelta(t, 0.6, good.Polarity(), 1e-9)
	bad, _ := s.Get("Bad")
	assert.InDelta(t, -0.4, bad.Polarity(), 1e-9)

	empty, _ := s.Get("Empty")
	assert.False(t, empty.Scored())
	assert.Equal(t, 0.0, empty.Polarity())
}

func TestRunSentimentIsolatesFailures(t *testing.T) {
	s := New()
	s.Add(article("A", "alpha"))
	s.Add(article("B", "bravo"))
	s.Add(article("C", "charlie"))
	s.Add(article("D", "delta"))
	s.Add(article("E", "echo"))

	boom := errors.New("service unavailable")
	scorer := &stubScorer{
		scores: map[string]float64{"alpha": 0.1, "charlie": 0.3, "echo": 2},
		fail:   map[string]error{"bravo": boom},
		panics: map[string]bool{"delta": true},
	}

	report, err := s.RunSentiment(context.Background(), scorer, 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	var scoringErr *entity.ScoringError
	require.ErrorAs(t, err, &scoringErr)

	assert.Equal(t, 2, report.Scored)
	assert.Equal(t, 3, report.Failed)
	failed := make([]string, 0, len(report.Failures))
	for _, f := range report.Failures {
		failed = append(failed, f.Key)
	}
	sort.Strings(failed)
	assert.Equal(t, []string{"B", "D", "E"}, failed)

	a, _ := s.Get("A")
	assert.InDelta(t, 0.1, a.Polarity(), 1e-9)
	c, _ := s.Get("C")
	assert.InDelta(t, 0.3, c.Polarity(), 1e-9)
	for _, key := range failed {
		got, _ := s.Get(key)
		assert.False(t, got.Scored(), key)
	}
}

type blockingScorer struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (b *blockingScorer) ScorePolarity(ctx context.Context, _ string) (float64, error) {
	if b.calls.Add(1) == 1 {
		close(b.started)
		<-b.release
	}
	return 0.5, nil
}

func TestRunSentimentCancelsBetweenArticles(t *testing.T) {
	s := New()
	for _, title := range []string{"A", "B", "C", "D"} {
		s.Add(article(title, "text "+title))
	}

	ctx, cancel := context.WithCancel(context.Background())
	scorer := &blockingScorer{started: make(chan struct{}), release: make(chan struct{})}

	done := make(chan struct{})
	var report struct {
		scored    int
		cancelled bool
		err       error
	}
	go func() {
		defer close(done)
		r, err := s.RunSentiment(ctx, scorer, 1)
		report.scored, report.cancelled, report.err = r.Scored, r.Cancelled, err
	}()

	<-scorer.started
	cancel()
	close(scorer.release)
	<-done

	assert.True(t, report.cancelled)
	assert.ErrorIs(t, report.err, context.Canceled)
	assert.Equal(t, 1, report.scored)

	scored := 0
	for _, a := range s.All() {
		if a.Scored() {
			scored++
			assert.InDelta(t, 0.5, a.Polarity(), 1e-9)
		}
	}
	assert.Equal(t, 1, scored)
}

func TestRunSentimentConcurrentWorkers(t *testing.T) {
	s := New()
	for i := 0; i < 50; i++ {
		s.Add(article(string(rune('A'+i%26))+strings.Repeat("x", i), "body"))
	}

	report, err := s.RunSentiment(context.Background(), &stubScorer{}, 8)
	require.NoError(t, err)
	assert.Equal(t, 50, report.Scored)
	for _, a := range s.All() {
		assert.True(t, a.Scored())
	}
}
