package dto

import (
	"time"

	"golang-covid-sentiment/internal/entity"
)

// ScoreFailure describes one article the scorer could not handle.
type ScoreFailure struct {
	Key   string `json:"key"`
	Error string `json:"error"`
}

// SentimentReport summarizes a RunSentiment pass over a store.
type SentimentReport struct {
	Total     int            `json:"total"`
	Scored    int            `json:"scored"`
	Skipped   int            `json:"skipped"`
	Failed    int            `json:"failed"`
	Cancelled bool           `json:"cancelled"`
	Failures  []ScoreFailure `json:"failures"`
	Duration  time.Duration  `json:"duration"`
}

// CrawlReport summarizes a crawl.
type CrawlReport struct {
	Requested   int      `json:"requested"`
	Crawled     int      `json:"crawled"`
	Skipped     int      `json:"skipped"`
	FailedLinks []string `json:"failed_links"`
	Errors      []string `json:"errors"`
}

// RunReport is stored as the JSON report of a pipeline run.
type RunReport struct {
	RunID      string           `json:"run_id"`
	Trigger    string           `json:"trigger"`
	Steps      []entity.RunStep `json:"steps"`
	Crawl      CrawlReport      `json:"crawl"`
	Sentiment  SentimentReport  `json:"sentiment"`
	Articles   int              `json:"articles"`
	OutputPath string           `json:"output_path"`
}

// RunRequest asks a worker to execute a pipeline run.
type RunRequest struct {
	RunID   string           `json:"run_id"`
	Trigger string           `json:"trigger"`
	Steps   []entity.RunStep `json:"steps"`
}
