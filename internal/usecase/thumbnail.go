package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/ports"
)

const (
	defaultBatchSize   = 10
	defaultMaxAttempts = 3
	defaultRetryDelay  = 30 * time.Minute
)

// ThumbnailResolver resolves a lead image for one article URL; the site
// adapter chain satisfies this.
type ThumbnailResolver interface {
	FetchThumbnailURL(ctx context.Context, articleURL string) (string, error)
}

// ThumbnailQueue drains the durable thumbnail backfill tasks. It owns every
// task mutation: WAITING/FAILED tasks are claimed atomically (status to
// RUNNING, attempts incremented in one repository write), resolved through
// the adapter chain, and finished as SUCCESS or retryable FAILED. A task
// that exhausts its attempts becomes terminal FAILED and is never selected
// again.
type ThumbnailQueue struct {
	tasks    ports.ThumbnailTaskRepository
	articles ports.ArticleRepository
	resolver ThumbnailResolver
	logger   *slog.Logger

	batchSize   int
	maxAttempts int
	retryDelay  time.Duration
}

// NewThumbnailQueue builds the queue processor; zero-valued limits fall
// back to the defaults (10 per batch, 3 attempts, 30 minute backoff).
func NewThumbnailQueue(
	tasks ports.ThumbnailTaskRepository,
	articles ports.ArticleRepository,
	resolver ThumbnailResolver,
	batchSize, maxAttempts int,
	retryDelay time.Duration,
	logger *slog.Logger,
) *ThumbnailQueue {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	return &ThumbnailQueue{
		tasks:       tasks,
		articles:    articles,
		resolver:    resolver,
		logger:      logger,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
	}
}

// ProcessReadyBatch picks up to batchSize due tasks (WAITING, or FAILED
// with an elapsed nextRetryAt) in id order and processes them one at a
// time. Each task's failure is isolated; the batch always runs to the end.
func (q *ThumbnailQueue) ProcessReadyBatch(ctx context.Context) {
	ready, err := q.tasks.FindReady(ctx, time.Now().UTC(), q.batchSize)
	if err != nil {
		q.warn("load ready tasks failed", "error", err)
		return
	}

	for _, task := range ready {
		if err := q.ProcessTask(ctx, task.ID); err != nil {
			q.warn("task processing failed", "task", task.ID, "error", err)
		}
	}
}

// ProcessTask runs the state machine for a single task. Re-entrant and
// idempotent: SUCCESS tasks are skipped, a lost claim race is a no-op, and
// an article that already gained a thumbnail short-circuits to SUCCESS.
func (q *ThumbnailQueue) ProcessTask(ctx context.Context, taskID int64) error {
	task, err := q.tasks.FindByID(ctx, taskID)
	if err != nil {
		return err
	}
	if task == nil || task.Status == domain.TaskSuccess {
		return nil
	}

	// attempts exhausted: park the task terminally, clearing the retry
	// timestamp so it stops matching the ready query
	if task.Attempts >= q.maxAttempts {
		if task.Status != domain.TaskFailed || task.NextRetryAt != nil {
			task.Status = domain.TaskFailed
			task.NextRetryAt = nil
			task.UpdatedAt = time.Now().UTC()
			if _, err := q.tasks.Save(ctx, *task); err != nil {
				return err
			}
		}
		q.debug("task exhausted", "task", task.ID, "attempts", task.Attempts)
		return nil
	}

	claimed, err := q.tasks.MarkRunning(ctx, task.ID, q.maxAttempts)
	if errors.Is(err, ports.ErrTaskNotClaimable) {
		// another tick got here first
		return nil
	}
	if err != nil {
		return err
	}

	article, err := q.articles.FindByID(ctx, claimed.ArticleID)
	if err != nil || article == nil {
		return q.fail(ctx, claimed, "article_not_found")
	}

	if article.ThumbnailURL != "" {
		return q.succeed(ctx, claimed)
	}

	articleURL := claimed.ArticleURL
	if strings.TrimSpace(articleURL) == "" {
		articleURL = article.SourceURL
	}
	if strings.TrimSpace(articleURL) == "" {
		return q.fail(ctx, claimed, "missing_article_url")
	}

	image, err := q.resolver.FetchThumbnailURL(ctx, articleURL)
	if err != nil {
		return q.fail(ctx, claimed, "fetch_failed")
	}
	if strings.TrimSpace(image) == "" {
		return q.fail(ctx, claimed, "thumbnail_not_found")
	}

	if err := q.articles.UpdateThumbnail(ctx, article.ID, strings.TrimSpace(image)); err != nil {
		return q.fail(ctx, claimed, "article_update_failed")
	}

	q.debug("thumbnail resolved", "task", claimed.ID, "article", article.ID)
	return q.succeed(ctx, claimed)
}

func (q *ThumbnailQueue) succeed(ctx context.Context, task domain.ThumbnailTask) error {
	task.Status = domain.TaskSuccess
	task.LastError = ""
	task.NextRetryAt = nil
	task.UpdatedAt = time.Now().UTC()
	_, err := q.tasks.Save(ctx, task)
	return err
}

func (q *ThumbnailQueue) fail(ctx context.Context, task domain.ThumbnailTask, cause string) error {
	retryAt := time.Now().UTC().Add(q.retryDelay)
	task.Status = domain.TaskFailed
	task.LastError = cause
	task.NextRetryAt = &retryAt
	task.UpdatedAt = time.Now().UTC()
	_, err := q.tasks.Save(ctx, task)
	return err
}

func (q *ThumbnailQueue) debug(msg string, args ...interface{}) {
	if q.logger != nil {
		q.logger.Debug(msg, args...)
	}
}

func (q *ThumbnailQueue) warn(msg string, args ...interface{}) {
	if q.logger != nil {
		q.logger.Warn(msg, args...)
	}
}
