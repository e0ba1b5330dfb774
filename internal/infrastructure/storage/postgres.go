package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/ports"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Open connects to Postgres and verifies the connection.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// PostgresArticleRepository persists articles into Postgres.
type PostgresArticleRepository struct {
	db *sql.DB
}

var _ ports.ArticleRepository = (*PostgresArticleRepository)(nil)

// NewPostgresArticleRepository wires a sql.DB implementation.
func NewPostgresArticleRepository(db *sql.DB) *PostgresArticleRepository {
	return &PostgresArticleRepository{db: db}
}

// SaveAll inserts the batch and returns it with generated ids.
func (r *PostgresArticleRepository) SaveAll(ctx context.Context, articles []domain.Article) ([]domain.Article, error) {
	saved := make([]domain.Article, 0, len(articles))
	for _, article := range articles {
		query, args, err := psql.Insert("news_articles").
			Columns("title", "source_url", "source_name", "published_at", "scraped_at",
				"summary", "tags", "thumbnail_url", "raw_content", "category").
			Values(article.Title, article.SourceURL, article.SourceName, article.PublishedAt,
				article.ScrapedAt, article.Summary, article.Tags, article.ThumbnailURL,
				article.RawContent, article.Category).
			Suffix("RETURNING id").
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("build insert: %w", err)
		}
		if err := r.db.QueryRowContext(ctx, query, args...).Scan(&article.ID); err != nil {
			return nil, fmt.Errorf("insert article %s: %w", article.SourceURL, err)
		}
		saved = append(saved, article)
	}
	return saved, nil
}

// FindByID returns nil without error when the article does not exist.
func (r *PostgresArticleRepository) FindByID(ctx context.Context, id int64) (*domain.Article, error) {
	query, args, err := psql.Select("id", "title", "source_url", "source_name", "published_at",
		"scraped_at", "summary", "tags", "thumbnail_url", "raw_content", "category").
		From("news_articles").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var article domain.Article
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&article.ID, &article.Title, &article.SourceURL, &article.SourceName,
		&article.PublishedAt, &article.ScrapedAt, &article.Summary, &article.Tags,
		&article.ThumbnailURL, &article.RawContent, &article.Category)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select article %d: %w", id, err)
	}
	return &article, nil
}

// FindAllSourceURLs loads the exact-match dedupe key set.
func (r *PostgresArticleRepository) FindAllSourceURLs(ctx context.Context) ([]string, error) {
	query, args, err := psql.Select("source_url").From("news_articles").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query source urls: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan source url: %w", err)
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

// FindRecentTitlesBySource returns the newest titles first, capped at limit.
func (r *PostgresArticleRepository) FindRecentTitlesBySource(ctx context.Context, sourceName string, limit int) ([]string, error) {
	query, args, err := psql.Select("title").
		From("news_articles").
		Where(sq.Eq{"source_name": sourceName}).
		OrderBy("id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}

// UpdateThumbnail sets the resolved lead image on an article.
func (r *PostgresArticleRepository) UpdateThumbnail(ctx context.Context, id int64, thumbnailURL string) error {
	query, args, err := psql.Update("news_articles").
		Set("thumbnail_url", thumbnailURL).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update thumbnail %d: %w", id, err)
	}
	return nil
}

// PostgresFeedSourceRepository persists the feed registry.
type PostgresFeedSourceRepository struct {
	db *sql.DB
}

var _ ports.FeedSourceRepository = (*PostgresFeedSourceRepository)(nil)

// NewPostgresFeedSourceRepository wires a sql.DB implementation.
func NewPostgresFeedSourceRepository(db *sql.DB) *PostgresFeedSourceRepository {
	return &PostgresFeedSourceRepository{db: db}
}

// FindAll loads every registered source.
func (r *PostgresFeedSourceRepository) FindAll(ctx context.Context) ([]domain.FeedSource, error) {
	query, args, err := psql.Select("id", "name", "url", "source_type", "enabled", "category",
		"etag", "last_modified", "created_at", "updated_at").
		From("feed_sources").
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query feed sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.FeedSource
	for rows.Next() {
		var s domain.FeedSource
		var sourceType string
		if err := rows.Scan(&s.ID, &s.Name, &s.URL, &sourceType, &s.Enabled, &s.Category,
			&s.ETag, &s.LastModified, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan feed source: %w", err)
		}
		s.SourceType = domain.SourceType(sourceType)
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// Save inserts a new source or updates an existing one by id.
func (r *PostgresFeedSourceRepository) Save(ctx context.Context, source domain.FeedSource) (domain.FeedSource, error) {
	now := time.Now().UTC()
	source.UpdatedAt = now

	if source.ID == 0 {
		source.CreatedAt = now
		query, args, err := psql.Insert("feed_sources").
			Columns("name", "url", "source_type", "enabled", "category",
				"etag", "last_modified", "created_at", "updated_at").
			Values(source.Name, source.URL, string(source.SourceType), source.Enabled,
				source.Category, source.ETag, source.LastModified, source.CreatedAt, source.UpdatedAt).
			Suffix("RETURNING id").
			ToSql()
		if err != nil {
			return source, fmt.Errorf("build insert: %w", err)
		}
		if err := r.db.QueryRowContext(ctx, query, args...).Scan(&source.ID); err != nil {
			return source, fmt.Errorf("insert feed source %s: %w", source.URL, err)
		}
		return source, nil
	}

	query, args, err := psql.Update("feed_sources").
		Set("name", source.Name).
		Set("url", source.URL).
		Set("source_type", string(source.SourceType)).
		Set("enabled", source.Enabled).
		Set("category", source.Category).
		Set("etag", source.ETag).
		Set("last_modified", source.LastModified).
		Set("updated_at", source.UpdatedAt).
		Where(sq.Eq{"id": source.ID}).
		ToSql()
	if err != nil {
		return source, fmt.Errorf("build update: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return source, fmt.Errorf("update feed source %d: %w", source.ID, err)
	}
	return source, nil
}

// UpdateCacheHeaders writes back conditional-GET validators after a
// successful RSS fetch.
func (r *PostgresFeedSourceRepository) UpdateCacheHeaders(ctx context.Context, id int64, etag, lastModified string) error {
	query, args, err := psql.Update("feed_sources").
		Set("etag", etag).
		Set("last_modified", lastModified).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update cache headers %d: %w", id, err)
	}
	return nil
}

// PostgresThumbnailTaskRepository persists backfill tasks.
type PostgresThumbnailTaskRepository struct {
	db *sql.DB
}

var _ ports.ThumbnailTaskRepository = (*PostgresThumbnailTaskRepository)(nil)

// NewPostgresThumbnailTaskRepository wires a sql.DB implementation.
func NewPostgresThumbnailTaskRepository(db *sql.DB) *PostgresThumbnailTaskRepository {
	return &PostgresThumbnailTaskRepository{db: db}
}

// SaveAll inserts the batch and returns it with generated ids.
func (r *PostgresThumbnailTaskRepository) SaveAll(ctx context.Context, tasks []domain.ThumbnailTask) ([]domain.ThumbnailTask, error) {
	saved := make([]domain.ThumbnailTask, 0, len(tasks))
	for _, task := range tasks {
		query, args, err := psql.Insert("thumbnail_tasks").
			Columns("article_id", "article_url", "status", "attempts", "next_retry_at",
				"last_error", "created_at", "updated_at").
			Values(task.ArticleID, task.ArticleURL, string(task.Status), task.Attempts,
				task.NextRetryAt, nullIfEmpty(task.LastError), task.CreatedAt, task.UpdatedAt).
			Suffix("RETURNING id").
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("build insert: %w", err)
		}
		if err := r.db.QueryRowContext(ctx, query, args...).Scan(&task.ID); err != nil {
			return nil, fmt.Errorf("insert task for article %d: %w", task.ArticleID, err)
		}
		saved = append(saved, task)
	}
	return saved, nil
}

// Save updates an existing task row.
func (r *PostgresThumbnailTaskRepository) Save(ctx context.Context, task domain.ThumbnailTask) (domain.ThumbnailTask, error) {
	query, args, err := psql.Update("thumbnail_tasks").
		Set("status", string(task.Status)).
		Set("attempts", task.Attempts).
		Set("next_retry_at", task.NextRetryAt).
		Set("last_error", nullIfEmpty(task.LastError)).
		Set("updated_at", task.UpdatedAt).
		Where(sq.Eq{"id": task.ID}).
		ToSql()
	if err != nil {
		return task, fmt.Errorf("build update: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return task, fmt.Errorf("update task %d: %w", task.ID, err)
	}
	return task, nil
}

// FindByID returns nil without error when the task does not exist.
func (r *PostgresThumbnailTaskRepository) FindByID(ctx context.Context, id int64) (*domain.ThumbnailTask, error) {
	query, args, err := taskSelect().Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	task, err := scanTask(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select task %d: %w", id, err)
	}
	return &task, nil
}

// FindReady selects WAITING tasks and FAILED tasks whose retry time has
// elapsed, id-ascending for FIFO fairness. Terminal FAILED rows carry a
// NULL next_retry_at and never match.
func (r *PostgresThumbnailTaskRepository) FindReady(ctx context.Context, due time.Time, limit int) ([]domain.ThumbnailTask, error) {
	query, args, err := taskSelect().
		Where(sq.Or{
			sq.Eq{"status": string(domain.TaskWaiting)},
			sq.And{
				sq.Eq{"status": string(domain.TaskFailed)},
				sq.LtOrEq{"next_retry_at": due},
			},
		}).
		OrderBy("id ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ready tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.ThumbnailTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// MarkRunning claims a task in one guarded write: only WAITING or FAILED
// rows below the attempt cap transition, and the attempt counter moves in
// the same statement, so a racing tick finds the row RUNNING (or capped)
// and backs off.
func (r *PostgresThumbnailTaskRepository) MarkRunning(ctx context.Context, id int64, maxAttempts int) (domain.ThumbnailTask, error) {
	query, args, err := psql.Update("thumbnail_tasks").
		Set("status", string(domain.TaskRunning)).
		Set("attempts", sq.Expr("attempts + 1")).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"status": []string{string(domain.TaskWaiting), string(domain.TaskFailed)}}).
		Where(sq.Lt{"attempts": maxAttempts}).
		Suffix("RETURNING id, article_id, article_url, status, attempts, next_retry_at, last_error, created_at, updated_at").
		ToSql()
	if err != nil {
		return domain.ThumbnailTask{}, fmt.Errorf("build update: %w", err)
	}

	task, err := scanTask(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ThumbnailTask{}, ports.ErrTaskNotClaimable
	}
	if err != nil {
		return domain.ThumbnailTask{}, fmt.Errorf("claim task %d: %w", id, err)
	}
	return task, nil
}

func taskSelect() sq.SelectBuilder {
	return psql.Select("id", "article_id", "article_url", "status", "attempts",
		"next_retry_at", "last_error", "created_at", "updated_at").
		From("thumbnail_tasks")
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (domain.ThumbnailTask, error) {
	var (
		task        domain.ThumbnailTask
		status      string
		nextRetryAt sql.NullTime
		lastError   sql.NullString
	)
	err := row.Scan(&task.ID, &task.ArticleID, &task.ArticleURL, &status, &task.Attempts,
		&nextRetryAt, &lastError, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return task, err
	}
	task.Status = domain.TaskStatus(status)
	if nextRetryAt.Valid {
		t := nextRetryAt.Time
		task.NextRetryAt = &t
	}
	task.LastError = lastError.String
	return task, nil
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}
