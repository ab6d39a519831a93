package dto

import (
	"encoding/json"
	"time"

	"golang-covid-sentiment/internal/entity"
)

// CreateRunRequest is the body of a run trigger. Empty steps run crawl then analyze.
type CreateRunRequest struct {
	Steps []entity.RunStep `json:"steps"`
}

// RunResponse is the API representation of a pipeline run.
type RunResponse struct {
	RunID        string           `json:"run_id"`
	Trigger      string           `json:"trigger"`
	Status       entity.RunStatus `json:"status"`
	Report       json.RawMessage  `json:"report,omitempty" swaggertype:"object"`
	ErrorMessage string           `json:"error_message,omitempty"`
	StartedAt    time.Time        `json:"started_at"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
}

// NewRunResponse converts a run row.
func NewRunResponse(run entity.PipelineRun) RunResponse {
	resp := RunResponse{
		RunID:        run.RunID,
		Trigger:      run.Trigger,
		Status:       run.Status,
		ErrorMessage: run.ErrorMessage.String,
		StartedAt:    run.StartedAt,
	}
	if len(run.Report) > 0 {
		resp.Report = json.RawMessage(run.Report)
	}
	if run.CompletedAt.Valid {
		completed := run.CompletedAt.Time
		resp.CompletedAt = &completed
	}
	return resp
}

// NewArticleResponse converts an article. The body is included only when withText is set.
func NewArticleResponse(a entity.Article, withText bool) ArticleResponse {
	resp := ArticleResponse{
		Key:                     a.Key,
		Title:                   a.Title,
		URL:                     a.URL,
		SourceDomain:            a.SourceDomain,
		Description:             a.Description,
		Authors:                 []string(a.Authors),
		DatePublished:           a.DatePublished,
		AverageSentencePolarity: a.AverageSentencePolarity,
		Scored:                  a.Scored(),
	}
	if resp.Authors == nil {
		resp.Authors = []string{}
	}
	if withText {
		resp.MainText = a.MainText
	}
	return resp
}
