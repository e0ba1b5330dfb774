package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"NewsHarvester/internal/ports"
)

// Scheduler wires the cron driver to the two recurring jobs: full
// ingestion on a cron expression and the thumbnail queue on a short fixed
// interval. The jobs themselves stay plain methods so they remain testable
// without wall-clock timing.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	queue    *ThumbnailQueue
	sources  ports.FeedSourceRepository
	logger   *slog.Logger

	ingestSpec        string
	thumbnailInterval time.Duration
}

// NewScheduler returns a helper to start/stop the recurring jobs.
func NewScheduler(
	driver ports.Scheduler,
	pipeline *Pipeline,
	queue *ThumbnailQueue,
	sources ports.FeedSourceRepository,
	ingestSpec string,
	thumbnailInterval time.Duration,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		driver:            driver,
		pipeline:          pipeline,
		queue:             queue,
		sources:           sources,
		logger:            logger,
		ingestSpec:        ingestSpec,
		thumbnailInterval: thumbnailInterval,
	}
}

// Start registers both jobs with the driver and starts it.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	if s.pipeline != nil && s.sources != nil && s.ingestSpec != "" {
		if err := s.driver.Add(s.ingestSpec, func() { s.runIngest(ctx) }); err != nil {
			return fmt.Errorf("register ingest job: %w", err)
		}
	}

	if s.queue != nil && s.thumbnailInterval > 0 {
		spec := fmt.Sprintf("@every %s", s.thumbnailInterval)
		if err := s.driver.Add(spec, func() { s.queue.ProcessReadyBatch(ctx) }); err != nil {
			return fmt.Errorf("register thumbnail job: %w", err)
		}
	}

	s.driver.Start()
	return nil
}

// Stop tears down the underlying driver.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}

func (s *Scheduler) runIngest(ctx context.Context) {
	sources, err := s.sources.FindAll(ctx)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("load feed sources failed", "error", err)
		}
		return
	}

	saved := s.pipeline.IngestAll(ctx, sources)
	if s.logger != nil {
		s.logger.Info("scheduled ingest done", "sources", len(sources), "saved", len(saved))
	}
}
