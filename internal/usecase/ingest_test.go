package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"NewsHarvester/internal/dedupe"
	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/infrastructure/storage"
)

type stubFeeds struct {
	byName map[string][]domain.Article
	errFor map[string]error
}

func (s *stubFeeds) Fetch(_ context.Context, source domain.FeedSource) ([]domain.Article, error) {
	if err := s.errFor[source.Name]; err != nil {
		return nil, err
	}
	return s.byName[source.Name], nil
}

type stubWeb struct {
	articles []domain.Article
	err      error
}

func (s *stubWeb) ParseOnly(context.Context, string, string) ([]domain.Article, error) {
	return s.articles, s.err
}

type passthroughDedupe struct{}

func (passthroughDedupe) FilterNew(_ context.Context, candidates []domain.Article) ([]domain.Article, error) {
	return candidates, nil
}

func newTestPipeline(feeds FeedFetcher, web WebScraper, dedup Deduper) (*Pipeline, *storage.MemoryArticleRepository, *storage.MemoryThumbnailTaskRepository) {
	articles := storage.NewMemoryArticleRepository()
	tasks := storage.NewMemoryThumbnailTaskRepository()
	if dedup == nil {
		dedup = passthroughDedupe{}
	}
	pipeline := NewPipeline(PipelineDeps{
		Feeds:    feeds,
		Web:      web,
		Dedupe:   dedup,
		Articles: articles,
		Tasks:    tasks,
	})
	return pipeline, articles, tasks
}

func TestIngestFeedPersistsAndEnqueues(t *testing.T) {
	t.Parallel()

	feeds := &stubFeeds{byName: map[string][]domain.Article{
		"example": {
			{Title: "With art", SourceURL: "https://example.com/a", SourceName: "example",
				ThumbnailURL: "https://example.com/a.jpg"},
			{Title: "Without art", SourceURL: "https://example.com/b", SourceName: "example"},
		},
	}}
	pipeline, articles, tasks := newTestPipeline(feeds, nil, nil)

	ctx := context.Background()
	saved, err := pipeline.IngestFeed(ctx, domain.FeedSource{
		Name: "example", URL: "https://example.com/rss",
		SourceType: domain.SourceTypeRSS, Enabled: true,
	})
	if err != nil {
		t.Fatalf("IngestFeed error: %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("expected 2 saved, got %d", len(saved))
	}
	for _, article := range saved {
		if article.ID == 0 {
			t.Fatalf("saved article missing id: %+v", article)
		}
	}

	urls, err := articles.FindAllSourceURLs(ctx)
	if err != nil {
		t.Fatalf("FindAllSourceURLs: %v", err)
	}
	if len(urls) != 2 {
		t.Fatalf("expected 2 persisted articles, got %d", len(urls))
	}

	// only the article without a thumbnail gets a backfill task
	ready, err := tasks.FindReady(ctx, time.Now().UTC(), 10)
	if err != nil {
		t.Fatalf("FindReady: %v", err)
	}
	if len(ready) != 1 {
		t.Fatalf("expected 1 waiting task, got %d", len(ready))
	}
	task := ready[0]
	if task.ArticleURL != "https://example.com/b" {
		t.Fatalf("unexpected task url: %s", task.ArticleURL)
	}
	if task.Attempts != 0 || task.Status != domain.TaskWaiting {
		t.Fatalf("unexpected task state: %+v", task)
	}
}

func TestIngestFeedSkipsDisabledSource(t *testing.T) {
	t.Parallel()

	feeds := &stubFeeds{errFor: map[string]error{"example": errors.New("must not be called")}}
	pipeline, _, _ := newTestPipeline(feeds, nil, nil)

	saved, err := pipeline.IngestFeed(context.Background(), domain.FeedSource{
		Name: "example", SourceType: domain.SourceTypeRSS, Enabled: false,
	})
	if err != nil {
		t.Fatalf("IngestFeed error: %v", err)
	}
	if len(saved) != 0 {
		t.Fatalf("disabled source must yield empty batch, got %d", len(saved))
	}
}

func TestIngestFeedUnknownSourceType(t *testing.T) {
	t.Parallel()

	pipeline, _, _ := newTestPipeline(&stubFeeds{}, &stubWeb{}, nil)

	saved, err := pipeline.IngestFeed(context.Background(), domain.FeedSource{
		Name: "example", SourceType: "API", Enabled: true,
	})
	if err != nil {
		t.Fatalf("IngestFeed error: %v", err)
	}
	if len(saved) != 0 {
		t.Fatalf("unknown source type must yield empty batch, got %d", len(saved))
	}
}

func TestIngestFeedStampsWebCategory(t *testing.T) {
	t.Parallel()

	web := &stubWeb{articles: []domain.Article{
		{Title: "Scraped story", SourceURL: "https://site.example/news/a", SourceName: "site"},
	}}
	pipeline, _, _ := newTestPipeline(nil, web, nil)

	saved, err := pipeline.IngestFeed(context.Background(), domain.FeedSource{
		Name: "site", URL: "https://site.example",
		SourceType: domain.SourceTypeWeb, Enabled: true, Category: "music",
	})
	if err != nil {
		t.Fatalf("IngestFeed error: %v", err)
	}
	if len(saved) != 1 {
		t.Fatalf("expected 1 saved, got %d", len(saved))
	}
	if saved[0].Category != "music" {
		t.Fatalf("expected source category stamped, got %q", saved[0].Category)
	}
}

func TestIngestAllIsolatesFailingSources(t *testing.T) {
	t.Parallel()

	feeds := &stubFeeds{
		byName: map[string][]domain.Article{
			"good": {{Title: "Survivor", SourceURL: "https://good.example/a", SourceName: "good"}},
		},
		errFor: map[string]error{"bad": errors.New("connection refused")},
	}
	pipeline, _, _ := newTestPipeline(feeds, nil, nil)

	saved := pipeline.IngestAll(context.Background(), []domain.FeedSource{
		{Name: "bad", SourceType: domain.SourceTypeRSS, Enabled: true},
		{Name: "good", SourceType: domain.SourceTypeRSS, Enabled: true},
		{Name: "off", SourceType: domain.SourceTypeRSS, Enabled: false},
	})
	if len(saved) != 1 {
		t.Fatalf("expected 1 saved, got %d", len(saved))
	}
	if saved[0].SourceURL != "https://good.example/a" {
		t.Fatalf("unexpected survivor: %s", saved[0].SourceURL)
	}
}

func TestIngestAllDedupesAcrossSources(t *testing.T) {
	t.Parallel()

	// the same syndicated story reaches us through two feeds
	feeds := &stubFeeds{byName: map[string][]domain.Article{
		"one": {{Title: "Shared wire story", SourceURL: "https://wire.example/story", SourceName: "one"}},
		"two": {{Title: "Shared wire story", SourceURL: "https://wire.example/story", SourceName: "two"}},
	}}

	articles := storage.NewMemoryArticleRepository()
	tasks := storage.NewMemoryThumbnailTaskRepository()
	pipeline := NewPipeline(PipelineDeps{
		Feeds:    feeds,
		Dedupe:   dedupe.NewEngine(articles, nil),
		Articles: articles,
		Tasks:    tasks,
	})

	saved := pipeline.IngestAll(context.Background(), []domain.FeedSource{
		{Name: "one", SourceType: domain.SourceTypeRSS, Enabled: true},
		{Name: "two", SourceType: domain.SourceTypeRSS, Enabled: true},
	})
	if len(saved) != 1 {
		t.Fatalf("expected the shared story saved once, got %d", len(saved))
	}
}
