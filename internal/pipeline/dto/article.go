package dto

import "time"

// RawArticle is a record as supplied by the crawler or the tabular loader. Any field may be empty.
type RawArticle struct {
	Title        string
	DatePublish  string
	Authors      []string
	AuthorsRaw   string
	MainText     string
	SourceDomain string
	URL          string
	Description  string

	// Polarity carries a score already present in a loaded table; nil when unscored.
	Polarity *float64
}

// ArticleResponse is the API representation of an article.
type ArticleResponse struct {
	Key                     string    `json:"key"`
	Title                   string    `json:"title"`
	URL                     string    `json:"url"`
	SourceDomain            string    `json:"source_domain"`
	Description             string    `json:"description"`
	Authors                 []string  `json:"authors"`
	DatePublished           time.Time `json:"date_published"`
	AverageSentencePolarity *float64  `json:"average_sentence_polarity"`
	Scored                  bool      `json:"scored"`
	MainText                string    `json:"main_text,omitempty"`
}

// ErrorResponse represents a generic error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}
