package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/clipperhouse/uax29/v2/sentences"
)

// ErrNoSentences is returned when a text splits into no sentences, so no mean exists.
var ErrNoSentences = errors.New("text has no sentences")

// SentimentRepository computes the average sentence polarity of a text, in [-1, 1].
type SentimentRepository interface {
	ScorePolarity(ctx context.Context, text string) (float64, error)
}

// SplitSentences splits text on Unicode sentence boundaries, dropping blank segments.
func SplitSentences(text string) []string {
	var out []string
	iter := sentences.FromString(text)
	for iter.Next() {
		s := strings.TrimSpace(iter.Value())
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func clamp(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
