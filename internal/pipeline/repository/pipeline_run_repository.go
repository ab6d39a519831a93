package repository

import (
	"context"
	"errors"
	"fmt"

	"golang-covid-sentiment/internal/entity"

	"gorm.io/gorm"
)

// PipelineRunRepository defines the interface for pipeline run history.
type PipelineRunRepository interface {
	Create(ctx context.Context, run *entity.PipelineRun) error
	Update(ctx context.Context, run *entity.PipelineRun) error
	FindByRunID(ctx context.Context, runID string) (*entity.PipelineRun, error)
	FindRecent(ctx context.Context, limit int) ([]entity.PipelineRun, error)
}

// NewPipelineRunRepository creates a new GORM-based pipeline run repository.
func NewPipelineRunRepository(db *gorm.DB) PipelineRunRepository {
	return &pipelineRunRepository{db: db}
}

type pipelineRunRepository struct {
	db *gorm.DB
}

// Create creates a new pipeline run record.
func (r *pipelineRunRepository) Create(ctx context.Context, run *entity.PipelineRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// Update saves every field of the run.
func (r *pipelineRunRepository) Update(ctx context.Context, run *entity.PipelineRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

func (r *pipelineRunRepository) FindByRunID(ctx context.Context, runID string) (*entity.PipelineRun, error) {
	var run entity.PipelineRun
	err := r.db.WithContext(ctx).Where("run_id = ?", runID).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("pipeline run %s: %w", runID, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find pipeline run: %w", err)
	}
	return &run, nil
}

// FindRecent retrieves the latest runs, newest first.
func (r *pipelineRunRepository) FindRecent(ctx context.Context, limit int) ([]entity.PipelineRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []entity.PipelineRun
	if err := r.db.WithContext(ctx).Order("started_at desc").Limit(limit).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
