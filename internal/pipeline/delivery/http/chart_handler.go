package http

import (
	"bytes"
	"net/http"
	"strconv"

	"golang-covid-sentiment/internal/pipeline/dto"
	"golang-covid-sentiment/internal/pipeline/service"
	"golang-covid-sentiment/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ChartHandler serves polarity charts.
type ChartHandler struct {
	articleService service.ArticleQueryService
	exploreService service.ExploreService
	logger         *logger.Logger
}

// NewChartHandler creates a new ChartHandler.
func NewChartHandler(articleService service.ArticleQueryService, exploreService service.ExploreService, logger *logger.Logger) *ChartHandler {
	return &ChartHandler{articleService: articleService, exploreService: exploreService, logger: logger}
}

// RegisterRoutes registers the chart route to the Echo group.
func (h *ChartHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetChart)
}

// GetChart godoc
// @Summary Polarity chart
// @Description Render an HTML scatter of average sentence polarity against publish date
// @Tags charts
// @Produce  html
// @Param   keyword  query    string false  "Keyword filter"
// @Success 200 {string} string "HTML page"
// @Failure 500 {object} dto.ErrorResponse
// @Router /chart [get]
func (h *ChartHandler) GetChart(c echo.Context) error {
	keyword := c.QueryParam("keyword")
	articles, err := h.articleService.List(c.Request().Context(), "")
	if err != nil {
		h.logger.Error("Failed to load articles for chart", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to load articles"})
	}

	var buf bytes.Buffer
	matches, err := h.exploreService.RenderChart(&buf, articles, keyword)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to render chart"})
	}
	c.Response().Header().Set("X-Matched-Articles", strconv.Itoa(len(matches)))
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}
