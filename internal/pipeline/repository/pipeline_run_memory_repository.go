package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang-covid-sentiment/internal/entity"

	"gorm.io/gorm"
)

// NewMemoryPipelineRunRepository keeps run history in process, for deployments without a database.
func NewMemoryPipelineRunRepository() PipelineRunRepository {
	return &memoryPipelineRunRepository{runs: make(map[string]entity.PipelineRun)}
}

type memoryPipelineRunRepository struct {
	mu     sync.RWMutex
	nextID uint
	runs   map[string]entity.PipelineRun
}

func (r *memoryPipelineRunRepository) Create(_ context.Context, run *entity.PipelineRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[run.RunID]; ok {
		return fmt.Errorf("pipeline run %s already exists", run.RunID)
	}
	r.nextID++
	run.ID = r.nextID
	r.runs[run.RunID] = *run
	return nil
}

func (r *memoryPipelineRunRepository) Update(_ context.Context, run *entity.PipelineRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[run.RunID]; !ok {
		return fmt.Errorf("pipeline run %s: %w", run.RunID, gorm.ErrRecordNotFound)
	}
	r.runs[run.RunID] = *run
	return nil
}

func (r *memoryPipelineRunRepository) FindByRunID(_ context.Context, runID string) (*entity.PipelineRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[runID]
	if !ok {
		return nil, fmt.Errorf("pipeline run %s: %w", runID, gorm.ErrRecordNotFound)
	}
	return &run, nil
}

func (r *memoryPipelineRunRepository) FindRecent(_ context.Context, limit int) ([]entity.PipelineRun, error) {
	if limit <= 0 {
		limit = 20
	}
	r.mu.RLock()
	runs := make([]entity.PipelineRun, 0, len(r.runs))
	for _, run := range r.runs {
		runs = append(runs, run)
	}
	r.mu.RUnlock()

	sort.Slice(runs, func(i, j int) bool { return runs[i].ID > runs[j].ID })
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
