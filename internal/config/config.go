// Package config loads and validates crawler and indexer configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment override, e.g.
// ATCODER_SEARCH_DATABASE_DSN.
const EnvPrefix = "ATCODER_SEARCH"

// Staging providers.
const (
	StagingLocal  = "local"
	StagingMemory = "memory"
	StagingGCS    = "gcs"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Database   DatabaseConfig   `mapstructure:"database"`
	AtCoder    AtCoderConfig    `mapstructure:"atcoder"`
	Aggregator AggregatorConfig `mapstructure:"aggregator"`
	Crawler    CrawlerConfig    `mapstructure:"crawler"`
	Search     SearchConfig     `mapstructure:"search"`
	Index      IndexConfig      `mapstructure:"index"`
	Staging    StagingConfig    `mapstructure:"staging"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// DatabaseConfig controls the shared Postgres pool.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// AtCoderConfig describes the contest site and the account used to log in.
type AtCoderConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	Username          string        `mapstructure:"username"`
	Password          string        `mapstructure:"password"`
	UserAgent         string        `mapstructure:"user_agent"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

// AggregatorConfig points at the companion JSON API.
type AggregatorConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// CrawlConfig tunes one entity crawler.
type CrawlConfig struct {
	// Interval is the delay between consecutive remote requests.
	Interval time.Duration `mapstructure:"interval"`
	// Retry is the number of extra attempts per page.
	Retry int `mapstructure:"retry"`
	// Backoff is the wait before a retry. It must exceed Interval.
	Backoff   time.Duration `mapstructure:"backoff"`
	ChunkSize int           `mapstructure:"chunk_size"`
}

// CrawlerConfig holds one CrawlConfig per entity.
type CrawlerConfig struct {
	Contest    CrawlConfig `mapstructure:"contest"`
	Difficulty CrawlConfig `mapstructure:"difficulty"`
	Problem    CrawlConfig `mapstructure:"problem"`
	Submission CrawlConfig `mapstructure:"submission"`
	User       CrawlConfig `mapstructure:"user"`
}

// SearchConfig locates the search engine and the core of every indexed
// entity.
type SearchConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Cores   SearchCores   `mapstructure:"cores"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SearchCores names one core per document type. Each core is truncated and
// committed on its own.
type SearchCores struct {
	Problem    string `mapstructure:"problem"`
	User       string `mapstructure:"user"`
	Submission string `mapstructure:"submission"`
}

// Core returns the core that indexes entity.
func (c SearchConfig) Core(entity string) (string, error) {
	var core string
	switch entity {
	case "problem":
		core = c.Cores.Problem
	case "user":
		core = c.Cores.User
	case "submission":
		core = c.Cores.Submission
	default:
		return "", fmt.Errorf("no search core for entity %q", entity)
	}
	if core == "" {
		return "", fmt.Errorf("search.cores.%s is required", entity)
	}
	return core, nil
}

// IndexConfig tunes the transform -> batch -> publish pipeline.
type IndexConfig struct {
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
	Concurrency   int           `mapstructure:"concurrency"`
	Optimize      bool          `mapstructure:"optimize"`
}

// StagingConfig selects where serialized batches are kept between the
// generate and upload phases.
type StagingConfig struct {
	Provider string `mapstructure:"provider"`
	Dir      string `mapstructure:"dir"`
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
}

// NotifyConfig enables run-finished notifications when Topic is set.
type NotifyConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// MetricsConfig enables the metrics listener when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load builds a Config from an optional .env file, an optional config file
// and the environment. Environment values win over the file.
func Load(path string) (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// loadDotEnv exports the variables in path without overriding the ones
// already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")

	// Keys without a real default are still registered so AutomaticEnv
	// reaches them during Unmarshal.
	for _, key := range []string{
		"database.dsn", "atcoder.username", "atcoder.password",
		"staging.bucket", "notify.project_id", "notify.topic", "metrics.addr",
	} {
		v.SetDefault(key, "")
	}

	v.SetDefault("database.max_conns", 8)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", time.Hour)

	v.SetDefault("atcoder.base_url", "https://atcoder.jp")
	v.SetDefault("atcoder.user_agent", "atcoder-search-crawler/0.1")
	v.SetDefault("atcoder.timeout", 30*time.Second)
	v.SetDefault("atcoder.requests_per_second", 1.0)
	v.SetDefault("aggregator.base_url", "https://kenkoooo.com/atcoder")

	for _, entity := range []string{"contest", "difficulty", "problem", "user"} {
		v.SetDefault("crawler."+entity+".interval", time.Second)
		v.SetDefault("crawler."+entity+".retry", 0)
		v.SetDefault("crawler."+entity+".backoff", 0)
		v.SetDefault("crawler."+entity+".chunk_size", 1000)
	}
	v.SetDefault("crawler.submission.interval", 3*time.Second)
	v.SetDefault("crawler.submission.retry", 3)
	v.SetDefault("crawler.submission.backoff", time.Minute)
	v.SetDefault("crawler.submission.chunk_size", 1000)

	v.SetDefault("search.base_url", "http://localhost:8983")
	v.SetDefault("search.cores.problem", "problems")
	v.SetDefault("search.cores.user", "users")
	v.SetDefault("search.cores.submission", "submissions")
	v.SetDefault("search.timeout", time.Minute)

	v.SetDefault("index.batch_size", 1000)
	v.SetDefault("index.flush_interval", time.Second)
	v.SetDefault("index.concurrency", 8)
	v.SetDefault("index.optimize", true)

	v.SetDefault("staging.provider", StagingLocal)
	v.SetDefault("staging.dir", "staging")
	v.SetDefault("staging.prefix", "batches")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Database.MaxConns <= 0 {
		return fmt.Errorf("database.max_conns must be > 0")
	}
	if c.AtCoder.RequestsPerSecond <= 0 {
		return fmt.Errorf("atcoder.requests_per_second must be > 0")
	}
	crawls := map[string]CrawlConfig{
		"contest":    c.Crawler.Contest,
		"difficulty": c.Crawler.Difficulty,
		"problem":    c.Crawler.Problem,
		"submission": c.Crawler.Submission,
		"user":       c.Crawler.User,
	}
	for name, cc := range crawls {
		if err := cc.validate("crawler." + name); err != nil {
			return err
		}
	}
	if err := c.Search.validate(); err != nil {
		return err
	}
	if c.Index.BatchSize <= 0 {
		return fmt.Errorf("index.batch_size must be > 0")
	}
	if c.Index.Concurrency <= 0 {
		return fmt.Errorf("index.concurrency must be > 0")
	}
	if c.Index.FlushInterval <= 0 {
		return fmt.Errorf("index.flush_interval must be > 0")
	}
	switch c.Staging.Provider {
	case StagingLocal:
		if c.Staging.Dir == "" {
			return fmt.Errorf("staging.dir is required for the local provider")
		}
	case StagingGCS:
		if c.Staging.Bucket == "" {
			return fmt.Errorf("staging.bucket is required for the gcs provider")
		}
	case StagingMemory:
	default:
		return fmt.Errorf("unknown staging.provider %q", c.Staging.Provider)
	}
	if c.Notify.Topic != "" && c.Notify.ProjectID == "" {
		return fmt.Errorf("notify.project_id must be set when notify.topic is set")
	}
	return nil
}

func (c SearchConfig) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("search.base_url is required")
	}
	seen := make(map[string]string, 3)
	for _, entity := range []string{"problem", "user", "submission"} {
		core, err := c.Core(entity)
		if err != nil {
			return err
		}
		if other, ok := seen[core]; ok {
			return fmt.Errorf("search.cores.%s and search.cores.%s share core %q", other, entity, core)
		}
		seen[core] = entity
	}
	return nil
}

func (c CrawlConfig) validate(key string) error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%s.chunk_size must be > 0", key)
	}
	if c.Interval < 0 {
		return fmt.Errorf("%s.interval must be >= 0", key)
	}
	if c.Retry < 0 {
		return fmt.Errorf("%s.retry must be >= 0", key)
	}
	if c.Retry > 0 && c.Backoff <= c.Interval {
		return fmt.Errorf("%s.backoff (%s) must be longer than interval (%s)", key, c.Backoff, c.Interval)
	}
	return nil
}
