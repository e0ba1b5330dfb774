package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/ports"
)

// FeedFetcher pulls and normalizes one RSS source.
type FeedFetcher interface {
	Fetch(ctx context.Context, source domain.FeedSource) ([]domain.Article, error)
}

// WebScraper scrapes one WEB source through the site adapter chain.
type WebScraper interface {
	ParseOnly(ctx context.Context, siteURL, sourceName string) ([]domain.Article, error)
}

// Deduper filters a candidate batch against persisted history.
type Deduper interface {
	FilterNew(ctx context.Context, candidates []domain.Article) ([]domain.Article, error)
}

// PipelineDeps wires all collaborators into the ingest orchestrator.
type PipelineDeps struct {
	Feeds    FeedFetcher
	Web      WebScraper
	Dedupe   Deduper
	Articles ports.ArticleRepository
	Tasks    ports.ThumbnailTaskRepository
	Logger   *slog.Logger
}

// Pipeline implements the ingestion workflow: dispatch by source type,
// dedupe, persist, and enqueue thumbnail backfill for survivors without
// article art.
type Pipeline struct {
	feeds    FeedFetcher
	web      WebScraper
	dedupe   Deduper
	articles ports.ArticleRepository
	tasks    ports.ThumbnailTaskRepository
	logger   *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		feeds:    deps.Feeds,
		web:      deps.Web,
		dedupe:   deps.Dedupe,
		articles: deps.Articles,
		tasks:    deps.Tasks,
		logger:   deps.Logger,
	}
}

// IngestFeed fetches, dedupes, and persists one source. Disabled sources
// and unknown source types yield an empty batch without error.
func (p *Pipeline) IngestFeed(ctx context.Context, source domain.FeedSource) ([]domain.Article, error) {
	parsed, err := p.fetchSource(ctx, source)
	if err != nil {
		return nil, err
	}
	return p.commit(ctx, parsed)
}

// IngestAll fans out one fetch per enabled source, merges every successful
// result, and runs the merged batch through dedupe exactly once, so the
// same wire story syndicated by several sources collapses. A failing source is
// logged and contributes nothing; it never aborts the run.
func (p *Pipeline) IngestAll(ctx context.Context, sources []domain.FeedSource) []domain.Article {
	var (
		wg      sync.WaitGroup
		results = make([][]domain.Article, len(sources))
	)

	for i, source := range sources {
		if !source.Enabled {
			continue
		}
		wg.Add(1)
		go func(idx int, source domain.FeedSource) {
			defer wg.Done()
			parsed, err := p.fetchSource(ctx, source)
			if err != nil {
				p.warn("source fetch failed", "source", source.Name, "url", source.URL, "error", err)
				return
			}
			results[idx] = parsed
		}(i, source)
	}
	wg.Wait()

	var candidates []domain.Article
	for _, batch := range results {
		candidates = append(candidates, batch...)
	}

	saved, err := p.commit(ctx, candidates)
	if err != nil {
		p.warn("batch commit failed", "candidates", len(candidates), "error", err)
		return []domain.Article{}
	}
	return saved
}

// IngestFeedAsync runs IngestFeed in the background; the outcome is only
// logged. Used when a freshly registered source should start filling
// without blocking the registration path.
func (p *Pipeline) IngestFeedAsync(source domain.FeedSource) {
	go func() {
		saved, err := p.IngestFeed(context.Background(), source)
		if err != nil {
			p.warn("async ingest failed", "source", source.Name, "url", source.URL, "error", err)
			return
		}
		p.info("async ingest done", "source", source.Name, "saved", len(saved))
	}()
}

func (p *Pipeline) fetchSource(ctx context.Context, source domain.FeedSource) ([]domain.Article, error) {
	if !source.Enabled {
		return []domain.Article{}, nil
	}

	switch source.SourceType {
	case domain.SourceTypeRSS:
		if p.feeds == nil {
			return []domain.Article{}, nil
		}
		parsed, err := p.feeds.Fetch(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("rss %s: %w", source.Name, err)
		}
		return parsed, nil
	case domain.SourceTypeWeb:
		if p.web == nil {
			return []domain.Article{}, nil
		}
		parsed, err := p.web.ParseOnly(ctx, source.URL, source.Name)
		if err != nil {
			return nil, fmt.Errorf("web %s: %w", source.Name, err)
		}
		for i := range parsed {
			if parsed[i].Category == "" {
				parsed[i].Category = source.Category
			}
		}
		return parsed, nil
	default:
		return []domain.Article{}, nil
	}
}

// commit runs dedupe, persists survivors, and creates WAITING thumbnail
// tasks for every saved article still missing a thumbnail.
func (p *Pipeline) commit(ctx context.Context, candidates []domain.Article) ([]domain.Article, error) {
	fresh, err := p.dedupe.FilterNew(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("dedupe: %w", err)
	}
	p.debug("dedupe", "candidates", len(candidates), "fresh", len(fresh))
	if len(fresh) == 0 {
		return []domain.Article{}, nil
	}

	saved, err := p.articles.SaveAll(ctx, fresh)
	if err != nil {
		return nil, fmt.Errorf("persist articles: %w", err)
	}

	now := time.Now().UTC()
	var tasks []domain.ThumbnailTask
	for _, article := range saved {
		if article.ThumbnailURL != "" {
			continue
		}
		tasks = append(tasks, domain.ThumbnailTask{
			ArticleID:  article.ID,
			ArticleURL: article.SourceURL,
			Status:     domain.TaskWaiting,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}
	if len(tasks) > 0 {
		if _, err := p.tasks.SaveAll(ctx, tasks); err != nil {
			return nil, fmt.Errorf("enqueue thumbnail tasks: %w", err)
		}
		p.debug("thumbnail tasks created", "count", len(tasks))
	}

	return saved, nil
}

func (p *Pipeline) debug(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *Pipeline) info(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
