package strategy

import (
	"context"

	"golang-covid-sentiment/internal/entity"
	"golang-covid-sentiment/internal/pipeline/dto"
)

// RunStepStrategy executes one step of a pipeline run and records its outcome in report.
type RunStepStrategy interface {
	Execute(ctx context.Context, report *dto.RunReport) error
	GetType() entity.RunStep
}

// DatasetPipeline is the part of the pipeline the run steps drive.
type DatasetPipeline interface {
	CreateDataset(ctx context.Context, links []string, path string) (dto.RunReport, error)
	AnalyzeDataset(ctx context.Context, inPath, outPath string) (dto.RunReport, error)
}
