package strategy

import (
	"context"
	"fmt"

	"golang-covid-sentiment/internal/entity"
	"golang-covid-sentiment/internal/pipeline/config"
	"golang-covid-sentiment/internal/pipeline/dto"
	"golang-covid-sentiment/pkg/logger"
)

// AnalyzeStrategy scores the dataset and writes the analyzed table.
type AnalyzeStrategy struct {
	cfg      *config.Config
	logger   *logger.Logger
	pipeline DatasetPipeline
}

// NewAnalyzeStrategy creates a new instance of AnalyzeStrategy.
func NewAnalyzeStrategy(cfg *config.Config, log *logger.Logger, pipeline DatasetPipeline) *AnalyzeStrategy {
	return &AnalyzeStrategy{cfg: cfg, logger: log, pipeline: pipeline}
}

func (s *AnalyzeStrategy) GetType() entity.RunStep {
	return entity.RunStepAnalyze
}

func (s *AnalyzeStrategy) Execute(ctx context.Context, report *dto.RunReport) error {
	result, err := s.pipeline.AnalyzeDataset(ctx, s.cfg.Pipeline.DatasetPath, s.cfg.Pipeline.AnalyzedPath)
	report.Sentiment = result.Sentiment
	report.Articles = result.Articles
	report.OutputPath = result.OutputPath
	if err != nil {
		s.logger.Error("Failed to analyze dataset", logger.ErrorField(err), logger.StringField("path", s.cfg.Pipeline.DatasetPath))
		return fmt.Errorf("failed to analyze dataset: %w", err)
	}
	return nil
}
