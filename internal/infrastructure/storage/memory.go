package storage

import (
	"context"
	"sync"
	"time"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/ports"
)

// In-memory repositories keep the application runnable without a database
// and double as test fixtures. Claim semantics match the Postgres
// implementation: MarkRunning only moves WAITING/FAILED tasks.

// MemoryArticleRepository stores articles in insertion order.
type MemoryArticleRepository struct {
	mu     sync.Mutex
	items  map[int64]domain.Article
	order  []int64
	nextID int64
}

var _ ports.ArticleRepository = (*MemoryArticleRepository)(nil)

// NewMemoryArticleRepository builds an empty repository.
func NewMemoryArticleRepository() *MemoryArticleRepository {
	return &MemoryArticleRepository{items: make(map[int64]domain.Article)}
}

// SaveAll assigns ids and stores the batch.
func (m *MemoryArticleRepository) SaveAll(_ context.Context, articles []domain.Article) ([]domain.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	saved := make([]domain.Article, 0, len(articles))
	for _, article := range articles {
		if article.ID == 0 {
			m.nextID++
			article.ID = m.nextID
		}
		if _, exists := m.items[article.ID]; !exists {
			m.order = append(m.order, article.ID)
		}
		m.items[article.ID] = article
		saved = append(saved, article)
	}
	return saved, nil
}

// FindByID returns nil when the article is absent.
func (m *MemoryArticleRepository) FindByID(_ context.Context, id int64) (*domain.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	article, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	return &article, nil
}

// FindAllSourceURLs lists every stored dedupe key.
func (m *MemoryArticleRepository) FindAllSourceURLs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	urls := make([]string, 0, len(m.order))
	for _, id := range m.order {
		urls = append(urls, m.items[id].SourceURL)
	}
	return urls, nil
}

// FindRecentTitlesBySource returns newest-first titles for one source.
func (m *MemoryArticleRepository) FindRecentTitlesBySource(_ context.Context, sourceName string, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var titles []string
	for i := len(m.order) - 1; i >= 0 && len(titles) < limit; i-- {
		article := m.items[m.order[i]]
		if article.SourceName == sourceName {
			titles = append(titles, article.Title)
		}
	}
	return titles, nil
}

// UpdateThumbnail sets the lead image on a stored article.
func (m *MemoryArticleRepository) UpdateThumbnail(_ context.Context, id int64, thumbnailURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	article, ok := m.items[id]
	if !ok {
		return nil
	}
	article.ThumbnailURL = thumbnailURL
	m.items[id] = article
	return nil
}

// MemoryFeedSourceRepository stores the feed registry.
type MemoryFeedSourceRepository struct {
	mu     sync.Mutex
	items  map[int64]domain.FeedSource
	nextID int64
}

var _ ports.FeedSourceRepository = (*MemoryFeedSourceRepository)(nil)

// NewMemoryFeedSourceRepository builds an empty repository.
func NewMemoryFeedSourceRepository() *MemoryFeedSourceRepository {
	return &MemoryFeedSourceRepository{items: make(map[int64]domain.FeedSource)}
}

// FindAll lists registered feed sources in id order.
func (m *MemoryFeedSourceRepository) FindAll(_ context.Context) ([]domain.FeedSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sources := make([]domain.FeedSource, 0, len(m.items))
	for id := int64(1); id <= m.nextID; id++ {
		if source, ok := m.items[id]; ok {
			sources = append(sources, source)
		}
	}
	return sources, nil
}

// Save stores a feed source, assigning an id when missing.
func (m *MemoryFeedSourceRepository) Save(_ context.Context, source domain.FeedSource) (domain.FeedSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	if source.ID == 0 {
		m.nextID++
		source.ID = m.nextID
		source.CreatedAt = now
	}
	source.UpdatedAt = now
	m.items[source.ID] = source
	return source, nil
}

// UpdateCacheHeaders writes conditional-GET validators back to a source.
func (m *MemoryFeedSourceRepository) UpdateCacheHeaders(_ context.Context, id int64, etag, lastModified string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	source, ok := m.items[id]
	if !ok {
		return nil
	}
	source.ETag = etag
	source.LastModified = lastModified
	source.UpdatedAt = time.Now().UTC()
	m.items[id] = source
	return nil
}

// MemoryThumbnailTaskRepository stores backfill tasks in insertion order.
type MemoryThumbnailTaskRepository struct {
	mu     sync.Mutex
	items  map[int64]domain.ThumbnailTask
	order  []int64
	nextID int64
}

var _ ports.ThumbnailTaskRepository = (*MemoryThumbnailTaskRepository)(nil)

// NewMemoryThumbnailTaskRepository builds an empty repository.
func NewMemoryThumbnailTaskRepository() *MemoryThumbnailTaskRepository {
	return &MemoryThumbnailTaskRepository{items: make(map[int64]domain.ThumbnailTask)}
}

// SaveAll assigns ids and stores the batch.
func (m *MemoryThumbnailTaskRepository) SaveAll(_ context.Context, tasks []domain.ThumbnailTask) ([]domain.ThumbnailTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	saved := make([]domain.ThumbnailTask, 0, len(tasks))
	for _, task := range tasks {
		saved = append(saved, m.store(task))
	}
	return saved, nil
}

// Save stores a single task.
func (m *MemoryThumbnailTaskRepository) Save(_ context.Context, task domain.ThumbnailTask) (domain.ThumbnailTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store(task), nil
}

func (m *MemoryThumbnailTaskRepository) store(task domain.ThumbnailTask) domain.ThumbnailTask {
	if task.ID == 0 {
		m.nextID++
		task.ID = m.nextID
	}
	if _, exists := m.items[task.ID]; !exists {
		m.order = append(m.order, task.ID)
	}
	m.items[task.ID] = task
	return task
}

// FindByID returns nil when the task is absent.
func (m *MemoryThumbnailTaskRepository) FindByID(_ context.Context, id int64) (*domain.ThumbnailTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	return &task, nil
}

// FindReady mirrors the Postgres ready-task query: WAITING tasks, plus
// FAILED tasks with an elapsed retry time, id-ascending, capped at limit.
func (m *MemoryThumbnailTaskRepository) FindReady(_ context.Context, due time.Time, limit int) ([]domain.ThumbnailTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ready []domain.ThumbnailTask
	for _, id := range m.order {
		task := m.items[id]
		switch task.Status {
		case domain.TaskWaiting:
		case domain.TaskFailed:
			if task.NextRetryAt == nil || task.NextRetryAt.After(due) {
				continue
			}
		default:
			continue
		}
		ready = append(ready, task)
		if len(ready) >= limit {
			break
		}
	}
	return ready, nil
}

// MarkRunning claims a WAITING/FAILED task below the attempt cap under
// the repository lock.
func (m *MemoryThumbnailTaskRepository) MarkRunning(_ context.Context, id int64, maxAttempts int) (domain.ThumbnailTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.items[id]
	if !ok {
		return domain.ThumbnailTask{}, ports.ErrTaskNotClaimable
	}
	if task.Status != domain.TaskWaiting && task.Status != domain.TaskFailed {
		return domain.ThumbnailTask{}, ports.ErrTaskNotClaimable
	}
	if task.Attempts >= maxAttempts {
		return domain.ThumbnailTask{}, ports.ErrTaskNotClaimable
	}
	task.Status = domain.TaskRunning
	task.Attempts++
	task.UpdatedAt = time.Now().UTC()
	m.items[id] = task
	return task, nil
}
