package config

import (
	"time"

	"golang-covid-sentiment/pkg/config"
)

// Pipeline holds the cleaning/scoring pipeline configuration.
type Pipeline struct {
	// KeyPolicy selects the store key: "title" (default) or "identity".
	KeyPolicy        string `mapstructure:"key_policy"`
	ScoreConcurrency int    `mapstructure:"score_concurrency"`
	LinksPath        string `mapstructure:"links_path"`
	DatasetPath      string `mapstructure:"dataset_path"`
	AnalyzedPath     string `mapstructure:"analyzed_path"`
	ChartDir         string `mapstructure:"chart_dir"`
}

// Crawler holds the article crawler configuration.
type Crawler struct {
	UserAgent          string        `mapstructure:"user_agent"`
	Timeout            time.Duration `mapstructure:"timeout"`
	RetryCount         int           `mapstructure:"retry_count"`
	MaxConcurrent      int           `mapstructure:"max_concurrent"`
	RequestsPerSecond  float64       `mapstructure:"requests_per_second"`
	RespectRobots      bool          `mapstructure:"respect_robots"`
	BlackListedDomains []string      `mapstructure:"blacklisted_domains"`
	FeedQueries        []string      `mapstructure:"feed_queries"`
	FeedBaseURL        string        `mapstructure:"feed_base_url"`
	MaxFeedItems       int           `mapstructure:"max_feed_items"`
}

// Scorer holds the sentence scorer configuration.
type Scorer struct {
	// Provider is "vader" (default) or "gemini".
	Provider string        `mapstructure:"provider"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// Gemini holds the configuration for the Gemini API.
type Gemini struct {
	APIKey              string `mapstructure:"api_key"`
	Model               string `mapstructure:"model"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
}

// Telegram holds configuration for the Telegram notifier.
type Telegram struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// Schedule holds the periodic crawl configuration.
type Schedule struct {
	Enabled bool          `mapstructure:"enabled"`
	Cron    string        `mapstructure:"cron"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Config holds the full configuration for the pipeline binaries.
type Config struct {
	App      config.App      `mapstructure:"app"`
	Logger   config.Logger   `mapstructure:"logger"`
	Database config.Database `mapstructure:"database"`
	Redis    config.Redis    `mapstructure:"redis"`
	API      config.API      `mapstructure:"api"`
	Pipeline Pipeline        `mapstructure:"pipeline"`
	Crawler  Crawler         `mapstructure:"crawler"`
	Scorer   Scorer          `mapstructure:"scorer"`
	Gemini   Gemini          `mapstructure:"gemini"`
	Telegram Telegram        `mapstructure:"telegram"`
	Schedule Schedule        `mapstructure:"schedule"`
}

// Load loads the pipeline configuration from the given path and fills in defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Pipeline.KeyPolicy == "" {
		c.Pipeline.KeyPolicy = "title"
	}
	if c.Pipeline.ScoreConcurrency <= 0 {
		c.Pipeline.ScoreConcurrency = 1
	}
	if c.Pipeline.DatasetPath == "" {
		c.Pipeline.DatasetPath = "data/dataset.csv"
	}
	if c.Pipeline.AnalyzedPath == "" {
		c.Pipeline.AnalyzedPath = "data/analyzed_articles.csv"
	}
	if c.Pipeline.ChartDir == "" {
		c.Pipeline.ChartDir = "charts"
	}
	if c.Crawler.UserAgent == "" {
		c.Crawler.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	}
	if c.Crawler.Timeout <= 0 {
		c.Crawler.Timeout = 30 * time.Second
	}
	if c.Crawler.MaxConcurrent <= 0 {
		c.Crawler.MaxConcurrent = 4
	}
	if c.Crawler.RequestsPerSecond <= 0 {
		c.Crawler.RequestsPerSecond = 1
	}
	if c.Crawler.FeedBaseURL == "" {
		c.Crawler.FeedBaseURL = "https://news.google.com/rss/search"
	}
	if c.Crawler.MaxFeedItems <= 0 {
		c.Crawler.MaxFeedItems = 20
	}
	if c.Scorer.Provider == "" {
		c.Scorer.Provider = "vader"
	}
	if c.Gemini.MaxRequestPerMinute <= 0 {
		c.Gemini.MaxRequestPerMinute = 15
	}
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = "0 6 * * *"
	}
	if c.Redis.StreamMaxLen <= 0 {
		c.Redis.StreamMaxLen = 1000
	}
	if c.Schedule.Timeout <= 0 {
		c.Schedule.Timeout = 30 * time.Minute
	}
}
