package entity

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// Article represents one news article or opinion piece after cleaning.
type Article struct {
	ID            uint           `gorm:"primaryKey" json:"-"`
	Key           string         `gorm:"uniqueIndex;not null" json:"-"`
	Title         string         `gorm:"type:text;not null" json:"title"`
	DatePublished time.Time      `gorm:"not null" json:"date_published"`
	Authors       pq.StringArray `gorm:"type:text[]" json:"authors"`
	MainText      string         `gorm:"type:text;not null" json:"main_text"`
	SourceDomain  string         `gorm:"type:varchar(255);not null" json:"source_domain"`
	URL           string         `gorm:"type:text;not null" json:"url"`
	Description   string         `gorm:"type:text;not null" json:"description"`

	// AverageSentencePolarity is nil until the article has been scored.
	AverageSentencePolarity *float64  `json:"average_sentence_polarity"`
	CreatedAt               time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt               time.Time `gorm:"autoUpdateTime" json:"-"`
}

// TableName specifies the table name for the Article model.
func (Article) TableName() string {
	return "articles"
}

// Scored reports whether a polarity has been computed.
func (a Article) Scored() bool {
	return a.AverageSentencePolarity != nil
}

// Polarity returns the computed polarity, or 0.0 when unscored.
func (a Article) Polarity() float64 {
	if a.AverageSentencePolarity == nil {
		return 0
	}
	return *a.AverageSentencePolarity
}

// SetPolarity records a computed polarity, clamped to [-1, 1].
func (a *Article) SetPolarity(v float64) {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	a.AverageSentencePolarity = &v
}

// Clone returns a deep copy so callers cannot mutate shared slices or pointers.
func (a Article) Clone() Article {
	out := a
	if a.Authors != nil {
		out.Authors = append(pq.StringArray(nil), a.Authors...)
	}
	if a.AverageSentencePolarity != nil {
		v := *a.AverageSentencePolarity
		out.AverageSentencePolarity = &v
	}
	return out
}

// ParseAuthors turns a raw author cell into a list. It accepts the list form written by
// FormatAuthors (['A', "B"]), a JSON-like list, or a single bare name.
func ParseAuthors(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}
	if !strings.HasPrefix(raw, "[") || !strings.HasSuffix(raw, "]") {
		return []string{raw}
	}

	inner := raw[1 : len(raw)-1]
	authors := []string{}
	var (
		current strings.Builder
		quote   rune
	)
	flush := func() {
		name := strings.TrimSpace(current.String())
		if name != "" {
			authors = append(authors, name)
		}
		current.Reset()
	}
	for _, r := range inner {
		switch {
		case quote != 0 && r == quote:
			quote = 0
		case quote == 0 && (r == '\'' || r == '"'):
			quote = r
		case quote == 0 && r == ',':
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return authors
}

// FormatAuthors renders authors as a single list cell, e.g. ['Jane Doe', 'John Roe'].
func FormatAuthors(authors []string) string {
	quoted := make([]string, 0, len(authors))
	for _, a := range authors {
		if strings.Contains(a, "'") {
			quoted = append(quoted, `"`+a+`"`)
			continue
		}
		quoted = append(quoted, "'"+a+"'")
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
