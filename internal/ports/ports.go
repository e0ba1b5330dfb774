package ports

import (
	"context"
	"errors"
	"time"

	"NewsHarvester/internal/domain"
)

// ErrTaskNotClaimable reports that MarkRunning lost the race for a task:
// another tick already moved it out of the eligible status set.
var ErrTaskNotClaimable = errors.New("thumbnail task is not claimable")

// ArticleRepository persists articles and serves the dedupe lookbacks.
type ArticleRepository interface {
	SaveAll(ctx context.Context, articles []domain.Article) ([]domain.Article, error)
	FindByID(ctx context.Context, id int64) (*domain.Article, error)
	FindAllSourceURLs(ctx context.Context) ([]string, error)
	FindRecentTitlesBySource(ctx context.Context, sourceName string, limit int) ([]string, error)
	UpdateThumbnail(ctx context.Context, id int64, thumbnailURL string) error
}

// FeedSourceRepository owns the feed registry; the pipeline only reads
// sources and writes back conditional-GET validators.
type FeedSourceRepository interface {
	FindAll(ctx context.Context) ([]domain.FeedSource, error)
	Save(ctx context.Context, source domain.FeedSource) (domain.FeedSource, error)
	UpdateCacheHeaders(ctx context.Context, id int64, etag, lastModified string) error
}

// ThumbnailTaskRepository persists backfill tasks.
//
// FindReady selects the processable tasks in id order: every WAITING task,
// plus FAILED tasks whose NextRetryAt is set and not after due. A FAILED
// task without a retry time is terminal and never returned.
//
// MarkRunning is the atomic pick step: in one guarded write it moves a
// WAITING or FAILED task with fewer than maxAttempts attempts to RUNNING
// and increments Attempts, returning the claimed row. A task already
// RUNNING, SUCCESS, at the attempt cap, or missing yields
// ErrTaskNotClaimable so concurrent ticks never process the same task
// twice and the cap holds even under racing claims.
type ThumbnailTaskRepository interface {
	SaveAll(ctx context.Context, tasks []domain.ThumbnailTask) ([]domain.ThumbnailTask, error)
	Save(ctx context.Context, task domain.ThumbnailTask) (domain.ThumbnailTask, error)
	FindByID(ctx context.Context, id int64) (*domain.ThumbnailTask, error)
	FindReady(ctx context.Context, due time.Time, limit int) ([]domain.ThumbnailTask, error)
	MarkRunning(ctx context.Context, id int64, maxAttempts int) (domain.ThumbnailTask, error)
}

// Scheduler drives recurring jobs; Core stays timer-free and only exposes
// process-one-batch operations for it to call.
type Scheduler interface {
	Add(spec string, job func()) error
	Start()
	Stop(ctx context.Context) error
}
