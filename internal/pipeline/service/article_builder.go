package service

import (
	"net/url"
	"strings"

	"golang-covid-sentiment/internal/entity"
	"golang-covid-sentiment/internal/pipeline/dto"
	"golang-covid-sentiment/pkg/logger"
	"golang-covid-sentiment/pkg/textclean"
	"golang-covid-sentiment/pkg/utils"
)

// ArticleBuilder turns raw crawler or table records into cleaned articles.
type ArticleBuilder struct {
	stripper   *textclean.Stripper
	normalizer *textclean.Normalizer
	logger     *logger.Logger
}

// NewArticleBuilder creates an ArticleBuilder. A nil stripper uses the default denylist.
func NewArticleBuilder(stripper *textclean.Stripper, log *logger.Logger) *ArticleBuilder {
	if stripper == nil {
		stripper = textclean.NewStripper(textclean.Denylist, nil)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &ArticleBuilder{
		stripper:   stripper,
		normalizer: textclean.NewNormalizer(textclean.DefaultSubstitutions),
		logger:     log,
	}
}

// Build cleans raw into an unscored Article. It never fails: an unparsable publish date is
// logged and replaced by utils.SentinelDate.
func (b *ArticleBuilder) Build(raw dto.RawArticle) entity.Article {
	article, parseErr := buildArticle(raw, b.stripper, b.normalizer)
	if parseErr != nil {
		b.logger.Warn("Using sentinel publish date",
			logger.StringField("title", article.Title),
			logger.StringField("url", article.URL),
			logger.ErrorField(parseErr),
		)
	}
	return article
}

var defaultBuilder = NewArticleBuilder(nil, nil)

// ArticleFromRaw cleans raw with the default denylist and normalization table.
func ArticleFromRaw(raw dto.RawArticle) entity.Article {
	return defaultBuilder.Build(raw)
}

func buildArticle(raw dto.RawArticle, stripper *textclean.Stripper, normalizer *textclean.Normalizer) (entity.Article, error) {
	article := entity.Article{
		Title:        normalizer.Normalize(raw.Title),
		Description:  normalizer.Normalize(raw.Description),
		MainText:     stripper.Strip(raw.MainText, raw.Title, raw.Description),
		URL:          normalizer.Normalize(strings.TrimSpace(raw.URL)),
		SourceDomain: normalizer.Normalize(strings.TrimSpace(raw.SourceDomain)),
		Authors:      normalizeAuthors(raw, normalizer),
	}
	if article.SourceDomain == "" {
		article.SourceDomain = hostOf(article.URL)
	}

	date, err := utils.ParseDate(raw.DatePublish)
	if err != nil {
		article.DatePublished = utils.SentinelDate
		if strings.TrimSpace(raw.DatePublish) == "" {
			return article, nil
		}
		return article, &entity.ParseError{Field: "date_publish", Value: raw.DatePublish, Err: err}
	}
	article.DatePublished = date.UTC()
	return article, nil
}

func normalizeAuthors(raw dto.RawArticle, normalizer *textclean.Normalizer) []string {
	names := raw.Authors
	if names == nil {
		names = entity.ParseAuthors(raw.AuthorsRaw)
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(normalizer.Normalize(n))
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}

func hostOf(link string) string {
	if link == "" {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
