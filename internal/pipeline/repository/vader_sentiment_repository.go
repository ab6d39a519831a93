package repository

import (
	"context"

	"github.com/jonreiter/govader"
)

// NewVaderSentimentRepository scores texts with the VADER lexicon. The analyzer is read-only
// after construction, so one instance is shared by all workers.
func NewVaderSentimentRepository() SentimentRepository {
	return &vaderSentimentRepository{
		analyzer: govader.NewSentimentIntensityAnalyzer(),
	}
}

type vaderSentimentRepository struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// ScorePolarity returns the mean VADER compound score over the sentences of text.
func (r *vaderSentimentRepository) ScorePolarity(ctx context.Context, text string) (float64, error) {
	parts := SplitSentences(text)
	if len(parts) == 0 {
		return 0, ErrNoSentences
	}

	scores := make([]float64, 0, len(parts))
	for _, sentence := range parts {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		scores = append(scores, r.analyzer.PolarityScores(sentence).Compound)
	}
	return clamp(mean(scores)), nil
}
