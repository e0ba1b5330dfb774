package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone  = "UTC"
	configPathEnv    = "NEWS_HARVESTER_CONFIG"
	databaseDSNEnv   = "DATABASE_DSN"
	ingestCronEnv    = "INGEST_CRON"
	logLevelEnv      = "LOG_LEVEL"
	defaultIngestMax = 20
)

// Config holds high-level settings required across the application.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Scraper   ScraperConfig   `yaml:"scraper"`
	Thumbnail ThumbnailConfig `yaml:"thumbnail"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DatabaseConfig describes Postgres connection details. An empty DSN keeps
// the application on in-memory repositories.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// SchedulerConfig defines when ingestion and the thumbnail queue run.
type SchedulerConfig struct {
	IngestCron        string         `yaml:"ingestCron"`
	ThumbnailInterval time.Duration  `yaml:"thumbnailInterval"`
	Timezone          string         `yaml:"timezone"`
	location          *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// ScraperConfig bounds the web adapters.
type ScraperConfig struct {
	MaxArticles  int           `yaml:"maxArticles"`
	ParseWorkers int           `yaml:"parseWorkers"`
	Timeout      time.Duration `yaml:"timeout"`
	Retries      int           `yaml:"retries"`
}

// ThumbnailConfig bounds the backfill queue.
type ThumbnailConfig struct {
	BatchSize   int           `yaml:"batchSize"`
	MaxAttempts int           `yaml:"maxAttempts"`
	RetryDelay  time.Duration `yaml:"retryDelay"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(ingestCronEnv); v != "" {
		c.Scheduler.IngestCron = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Scheduler.IngestCron != "" {
		base.Scheduler.IngestCron = override.Scheduler.IngestCron
	}
	if override.Scheduler.ThumbnailInterval > 0 {
		base.Scheduler.ThumbnailInterval = override.Scheduler.ThumbnailInterval
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Scraper.MaxArticles > 0 {
		base.Scraper.MaxArticles = override.Scraper.MaxArticles
	}
	if override.Scraper.ParseWorkers > 0 {
		base.Scraper.ParseWorkers = override.Scraper.ParseWorkers
	}
	if override.Scraper.Timeout > 0 {
		base.Scraper.Timeout = override.Scraper.Timeout
	}
	if override.Scraper.Retries > 0 {
		base.Scraper.Retries = override.Scraper.Retries
	}

	if override.Thumbnail.BatchSize > 0 {
		base.Thumbnail.BatchSize = override.Thumbnail.BatchSize
	}
	if override.Thumbnail.MaxAttempts > 0 {
		base.Thumbnail.MaxAttempts = override.Thumbnail.MaxAttempts
	}
	if override.Thumbnail.RetryDelay > 0 {
		base.Thumbnail.RetryDelay = override.Thumbnail.RetryDelay
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Database: DatabaseConfig{DSN: ""},
		Scheduler: SchedulerConfig{
			IngestCron:        "0 * * * *",
			ThumbnailInterval: 15 * time.Second,
			Timezone:          defaultTimezone,
			location:          tz,
		},
		Scraper: ScraperConfig{
			MaxArticles:  defaultIngestMax,
			ParseWorkers: 4,
			Timeout:      20 * time.Second,
			Retries:      2,
		},
		Thumbnail: ThumbnailConfig{
			BatchSize:   10,
			MaxAttempts: 3,
			RetryDelay:  30 * time.Minute,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}
