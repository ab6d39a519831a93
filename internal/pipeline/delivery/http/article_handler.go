package http

import (
	"errors"
	"net/http"
	"net/url"

	"golang-covid-sentiment/internal/entity"
	"golang-covid-sentiment/internal/pipeline/dto"
	"golang-covid-sentiment/internal/pipeline/service"
	"golang-covid-sentiment/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ArticleHandler handles HTTP requests for analyzed articles.
type ArticleHandler struct {
	articleService service.ArticleQueryService
	logger         *logger.Logger
}

// NewArticleHandler creates a new ArticleHandler.
func NewArticleHandler(articleService service.ArticleQueryService, logger *logger.Logger) *ArticleHandler {
	return &ArticleHandler{articleService: articleService, logger: logger}
}

// RegisterRoutes registers the article routes to the Echo group.
func (h *ArticleHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.ListArticles)
	g.GET("/:title", h.GetArticle)
}

// ListArticles godoc
// @Summary List analyzed articles
// @Description List analyzed articles in publish date order, optionally filtered by keyword
// @Tags articles
// @Produce  json
// @Param   keyword  query    string false  "Keyword matched against the body (case-sensitive) or the URL"
// @Success 200 {array} dto.ArticleResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /articles [get]
func (h *ArticleHandler) ListArticles(c echo.Context) error {
	keyword := c.QueryParam("keyword")
	articles, err := h.articleService.List(c.Request().Context(), keyword)
	if err != nil {
		h.logger.Error("Failed to list articles", logger.ErrorField(err), logger.StringField("keyword", keyword))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list articles"})
	}

	resp := make([]dto.ArticleResponse, 0, len(articles))
	for _, a := range articles {
		resp = append(resp, dto.NewArticleResponse(a, false))
	}
	return c.JSON(http.StatusOK, resp)
}

// GetArticle godoc
// @Summary Get an article
// @Description Get a single analyzed article, including its cleaned body, by its key
// @Tags articles
// @Produce  json
// @Param   title  path    string true  "Article key (the title under the default key policy)"
// @Success 200 {object} dto.ArticleResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /articles/{title} [get]
func (h *ArticleHandler) GetArticle(c echo.Context) error {
	key := c.Param("title")
	if unescaped, err := url.PathUnescape(key); err == nil {
		key = unescaped
	}
	article, err := h.articleService.Get(c.Request().Context(), key)
	if errors.Is(err, entity.ErrArticleNotFound) {
		return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
	}
	if err != nil {
		h.logger.Error("Failed to get article", logger.ErrorField(err), logger.StringField("key", key))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get article"})
	}
	return c.JSON(http.StatusOK, dto.NewArticleResponse(*article, true))
}
