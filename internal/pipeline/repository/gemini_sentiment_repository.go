package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"golang-covid-sentiment/internal/pipeline/config"
	"golang-covid-sentiment/pkg/logger"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const geminiSentencesPerRequest = 40

type generateFunc func(ctx context.Context, prompt string) (string, error)

type polarityResponse struct {
	Polarities []float64 `json:"polarities"`
}

// geminiSentimentRepository is an implementation of SentimentRepository that uses the Google Gemini API.
type geminiSentimentRepository struct {
	logger         *logger.Logger
	requestLimiter *rate.Limiter
	generate       generateFunc
}

// NewGeminiSentimentRepository creates a new instance of geminiSentimentRepository.
func NewGeminiSentimentRepository(cfg *config.Config, log *logger.Logger, genAiClient *genai.Client) (SentimentRepository, error) {
	if genAiClient == nil {
		return nil, fmt.Errorf("gemini client is required")
	}
	model := cfg.Gemini.Model
	generate := func(ctx context.Context, prompt string) (string, error) {
		resp, err := genAiClient.Models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			Temperature:      genai.Ptr[float32](0),
		})
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	}
	return newGeminiSentimentRepository(cfg.Gemini.MaxRequestPerMinute, log, generate), nil
}

func newGeminiSentimentRepository(maxRequestPerMinute int, log *logger.Logger, generate generateFunc) *geminiSentimentRepository {
	limit := rate.Inf
	if maxRequestPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(maxRequestPerMinute))
	}
	return &geminiSentimentRepository{
		logger:         log,
		requestLimiter: rate.NewLimiter(limit, 1),
		generate:       generate,
	}
}

// ScorePolarity asks the model to score every sentence and returns the mean.
func (r *geminiSentimentRepository) ScorePolarity(ctx context.Context, text string) (float64, error) {
	parts := SplitSentences(text)
	if len(parts) == 0 {
		return 0, ErrNoSentences
	}

	scores := make([]float64, 0, len(parts))
	for start := 0; start < len(parts); start += geminiSentencesPerRequest {
		end := start + geminiSentencesPerRequest
		if end > len(parts) {
			end = len(parts)
		}
		batch, err := r.scoreBatch(ctx, parts[start:end])
		if err != nil {
			return 0, err
		}
		scores = append(scores, batch...)
	}
	return clamp(mean(scores)), nil
}

func (r *geminiSentimentRepository) scoreBatch(ctx context.Context, batch []string) ([]float64, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request limit: %w", err)
	}

	raw, err := r.generate(ctx, BuildSentencePolarityPrompt(batch))
	if err != nil {
		r.logger.Error("Failed to send request to Gemini API", logger.ErrorField(err), logger.IntField("sentences", len(batch)))
		return nil, fmt.Errorf("failed to send request to Gemini API: %w", err)
	}

	rawJSON := strings.Trim(strings.TrimSpace(raw), "`json\n`")
	var resp polarityResponse
	if err := json.Unmarshal([]byte(rawJSON), &resp); err != nil {
		r.logger.Error("Failed to unmarshal polarity response from Gemini response", logger.ErrorField(err), logger.StringField("response", rawJSON))
		return nil, fmt.Errorf("failed to unmarshal polarity response from Gemini response: %w", err)
	}
	if len(resp.Polarities) != len(batch) {
		return nil, fmt.Errorf("gemini returned %d polarities for %d sentences", len(resp.Polarities), len(batch))
	}
	for i, p := range resp.Polarities {
		if math.IsNaN(p) || p < -1 || p > 1 {
			return nil, fmt.Errorf("gemini polarity %f for sentence %d out of range", p, i+1)
		}
	}
	return resp.Polarities, nil
}
