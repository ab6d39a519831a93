package service

import (
	"context"

	"golang-covid-sentiment/internal/entity"
	"golang-covid-sentiment/internal/pipeline/repository"
	"golang-covid-sentiment/pkg/logger"
)

// ArticleQueryService answers read queries over analyzed articles.
type ArticleQueryService interface {
	List(ctx context.Context, keyword string) ([]entity.Article, error)
	Get(ctx context.Context, key string) (*entity.Article, error)
}

// NewArticleQueryService creates an ArticleQueryService. When articleRepo is nil the analyzed
// table at path is read on every query.
func NewArticleQueryService(articleRepo repository.ArticleRepository, pipeline PipelineService, path string, log *logger.Logger) ArticleQueryService {
	return &articleQueryService{
		articleRepo: articleRepo,
		pipeline:    pipeline,
		path:        path,
		logger:      log,
	}
}

type articleQueryService struct {
	articleRepo repository.ArticleRepository
	pipeline    PipelineService
	path        string
	logger      *logger.Logger
}

func (s *articleQueryService) List(ctx context.Context, keyword string) ([]entity.Article, error) {
	if s.articleRepo != nil {
		return s.articleRepo.FindAll(ctx, keyword)
	}
	st, err := s.pipeline.Load(ctx, s.path)
	if err != nil {
		return nil, err
	}
	return FilterByKeyword(st.All(), keyword), nil
}

func (s *articleQueryService) Get(ctx context.Context, key string) (*entity.Article, error) {
	if s.articleRepo != nil {
		return s.articleRepo.FindByKey(ctx, key)
	}
	st, err := s.pipeline.Load(ctx, s.path)
	if err != nil {
		return nil, err
	}
	article, err := st.Get(key)
	if err != nil {
		s.logger.Debug("Article lookup missed", logger.StringField("key", key))
		return nil, err
	}
	return &article, nil
}
