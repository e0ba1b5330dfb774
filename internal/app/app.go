package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"NewsHarvester/internal/config"
	"NewsHarvester/internal/dedupe"
	"NewsHarvester/internal/feed"
	"NewsHarvester/internal/infrastructure/scheduler"
	"NewsHarvester/internal/infrastructure/storage"
	"NewsHarvester/internal/logging"
	"NewsHarvester/internal/ports"
	"NewsHarvester/internal/scraper"
	"NewsHarvester/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// Application wires configuration to repositories, adapters, and the
// recurring jobs.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	db        *sql.DB
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
}

// New builds a runnable application instance. With an empty database DSN
// every repository stays in memory, which keeps local runs and tests free
// of external services.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	var (
		db       *sql.DB
		articles ports.ArticleRepository
		sources  ports.FeedSourceRepository
		tasks    ports.ThumbnailTaskRepository
	)
	if cfg.Database.DSN != "" {
		opened, err := storage.Open(cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		db = opened
		articles = storage.NewPostgresArticleRepository(db)
		sources = storage.NewPostgresFeedSourceRepository(db)
		tasks = storage.NewPostgresThumbnailTaskRepository(db)
	} else {
		baseLogger.Info("no database DSN configured, using in-memory storage")
		articles = storage.NewMemoryArticleRepository()
		sources = storage.NewMemoryFeedSourceRepository()
		tasks = storage.NewMemoryThumbnailTaskRepository()
	}

	httpClient := &http.Client{Timeout: cfg.Scraper.Timeout}
	client := scraper.NewClient(httpClient, cfg.Scraper.Retries, baseLogger.With("component", "scraper.client"))

	generic := scraper.NewGenericAdapter(client, cfg.Scraper.MaxArticles, cfg.Scraper.ParseWorkers,
		baseLogger.With("component", "scraper.generic"))
	chain := scraper.NewChain(generic, baseLogger.With("component", "scraper.chain"),
		scraper.NewTechCrunchAdapter(client, cfg.Scraper.MaxArticles, cfg.Scraper.ParseWorkers,
			baseLogger.With("component", "scraper.techcrunch")),
		scraper.NewSERoundtableAdapter(client, cfg.Scraper.MaxArticles, cfg.Scraper.ParseWorkers,
			baseLogger.With("component", "scraper.seroundtable")),
		scraper.NewMusicAllyAdapter(client, cfg.Scraper.MaxArticles, cfg.Scraper.ParseWorkers,
			baseLogger.With("component", "scraper.musically")),
		scraper.NewAieraAdapter(client, cfg.Scraper.MaxArticles, cfg.Scraper.ParseWorkers,
			baseLogger.With("component", "scraper.aiera")),
	)

	fetcher := feed.NewFetcher(httpClient, sources, baseLogger.With("component", "feed"))
	engine := dedupe.NewEngine(articles, baseLogger.With("component", "dedupe"))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Feeds:    fetcher,
		Web:      chain,
		Dedupe:   engine,
		Articles: articles,
		Tasks:    tasks,
		Logger:   baseLogger.With("component", "pipeline"),
	})

	queue := usecase.NewThumbnailQueue(tasks, articles, chain,
		cfg.Thumbnail.BatchSize, cfg.Thumbnail.MaxAttempts, cfg.Thumbnail.RetryDelay,
		baseLogger.With("component", "thumbnails"))

	sched := usecase.NewScheduler(scheduler.NewCronScheduler(), pipeline, queue, sources,
		cfg.Scheduler.IngestCron, cfg.Scheduler.ThumbnailInterval,
		baseLogger.With("component", "scheduler"))

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		db:        db,
		pipeline:  pipeline,
		scheduler: sched,
	}, nil
}

// Run starts the recurring jobs and blocks until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("news harvester started",
		"ingest_cron", a.cfg.Scheduler.IngestCron,
		"thumbnail_interval", a.cfg.Scheduler.ThumbnailInterval)

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.scheduler.Stop(stopCtx); err != nil {
		a.logger.Warn("scheduler stop timed out", "error", err)
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("database close failed", "error", err)
		}
	}
	a.logger.Info("news harvester stopped")
	return nil
}

// Pipeline exposes the ingest orchestrator for one-shot invocations.
func (a *Application) Pipeline() *usecase.Pipeline {
	return a.pipeline
}
