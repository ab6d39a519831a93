package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang-covid-sentiment/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ArticleRepository defines the interface for interacting with stored articles.
type ArticleRepository interface {
	Upsert(ctx context.Context, articles []entity.Article) error
	FindByKey(ctx context.Context, key string) (*entity.Article, error)
	FindAll(ctx context.Context, keyword string) ([]entity.Article, error)
}

// NewArticleRepository creates a new GORM-based article repository.
func NewArticleRepository(db *gorm.DB) ArticleRepository {
	return &articleRepository{db: db}
}

type articleRepository struct {
	db *gorm.DB
}

// Upsert inserts the articles, overwriting rows that share a key.
func (r *articleRepository) Upsert(ctx context.Context, articles []entity.Article) error {
	if len(articles) == 0 {
		return nil
	}
	rows := make([]entity.Article, len(articles))
	for i, a := range articles {
		rows[i] = a.Clone()
		rows[i].ID = 0
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "date_published", "authors", "main_text", "source_domain",
			"url", "description", "average_sentence_polarity", "updated_at",
		}),
	}).CreateInBatches(rows, 100).Error
	if err != nil {
		return &entity.PersistenceError{Op: "upsert articles", Err: err}
	}
	return nil
}

// FindByKey retrieves an article by its store key.
func (r *articleRepository) FindByKey(ctx context.Context, key string) (*entity.Article, error) {
	var article entity.Article
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&article).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &entity.NotFoundError{Key: key}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find article: %w", err)
	}
	return &article, nil
}

// FindAll retrieves the articles matching keyword, ordered by publish date. The match mirrors
// the in-memory filter: body contains the keyword, or the URL contains it lowercased without spaces.
func (r *articleRepository) FindAll(ctx context.Context, keyword string) ([]entity.Article, error) {
	var articles []entity.Article
	q := r.db.WithContext(ctx).Order("date_published asc, key asc")
	if keyword != "" {
		urlKeyword := strings.ReplaceAll(strings.ToLower(keyword), " ", "")
		q = q.Where("strpos(main_text, ?) > 0 OR strpos(lower(url), ?) > 0", keyword, urlKeyword)
	}
	if err := q.Find(&articles).Error; err != nil {
		return nil, fmt.Errorf("failed to find articles: %w", err)
	}
	return articles, nil
}
