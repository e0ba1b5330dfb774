package usecase

import (
	"context"
	"testing"
	"time"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/infrastructure/storage"
)

type fakeDriver struct {
	specs   []string
	jobs    []func()
	started bool
	stopped bool
}

func (f *fakeDriver) Add(spec string, job func()) error {
	f.specs = append(f.specs, spec)
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakeDriver) Start() { f.started = true }

func (f *fakeDriver) Stop(context.Context) error {
	f.stopped = true
	return nil
}

func TestSchedulerRegistersBothJobs(t *testing.T) {
	t.Parallel()

	articles := storage.NewMemoryArticleRepository()
	tasks := storage.NewMemoryThumbnailTaskRepository()
	sources := storage.NewMemoryFeedSourceRepository()

	feeds := &stubFeeds{byName: map[string][]domain.Article{
		"example": {{Title: "Scheduled story", SourceURL: "https://example.com/a", SourceName: "example"}},
	}}
	pipeline := NewPipeline(PipelineDeps{
		Feeds:    feeds,
		Dedupe:   passthroughDedupe{},
		Articles: articles,
		Tasks:    tasks,
	})
	queue := NewThumbnailQueue(tasks, articles, &stubResolver{}, 10, 3, time.Minute, nil)

	ctx := context.Background()
	if _, err := sources.Save(ctx, domain.FeedSource{
		Name: "example", URL: "https://example.com/rss",
		SourceType: domain.SourceTypeRSS, Enabled: true,
	}); err != nil {
		t.Fatalf("seed source: %v", err)
	}

	driver := &fakeDriver{}
	sched := NewScheduler(driver, pipeline, queue, sources, "0 * * * *", 15*time.Second, nil)

	if err := sched.Start(ctx); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if !driver.started {
		t.Fatalf("driver not started")
	}
	if len(driver.specs) != 2 {
		t.Fatalf("expected 2 registered jobs, got %d", len(driver.specs))
	}
	if driver.specs[0] != "0 * * * *" {
		t.Fatalf("unexpected ingest spec: %s", driver.specs[0])
	}
	if driver.specs[1] != "@every 15s" {
		t.Fatalf("unexpected thumbnail spec: %s", driver.specs[1])
	}

	// firing the ingest job runs the full pipeline against the registry
	driver.jobs[0]()
	urls, err := articles.FindAllSourceURLs(ctx)
	if err != nil {
		t.Fatalf("FindAllSourceURLs: %v", err)
	}
	if len(urls) != 1 || urls[0] != "https://example.com/a" {
		t.Fatalf("ingest job did not persist the story: %v", urls)
	}

	if err := sched.Stop(ctx); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
	if !driver.stopped {
		t.Fatalf("driver not stopped")
	}
}
