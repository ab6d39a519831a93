package http

import (
	"golang-covid-sentiment/internal/pipeline/service"
	"golang-covid-sentiment/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	swagger "github.com/swaggo/echo-swagger"
)

// Services groups what the HTTP API reads from and triggers.
type Services struct {
	Articles service.ArticleQueryService
	Explore  service.ExploreService
	Runs     service.RunService
	Queue    service.RunQueue
}

// NewRouter builds the Echo server with every API route registered under /api/v1.
func NewRouter(svc Services, log *logger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	apiV1 := e.Group("/api/v1")
	NewArticleHandler(svc.Articles, log).RegisterRoutes(apiV1.Group("/articles"))
	NewChartHandler(svc.Articles, svc.Explore, log).RegisterRoutes(apiV1.Group("/chart"))
	NewRunHandler(svc.Runs, svc.Queue, log).RegisterRoutes(apiV1.Group("/runs"))

	e.GET("/swagger/*", swagger.WrapHandler)
	return e
}
