package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/ports"
)

func TestMemoryArticleRecentTitles(t *testing.T) {
	t.Parallel()

	repo := NewMemoryArticleRepository()
	ctx := context.Background()

	if _, err := repo.SaveAll(ctx, []domain.Article{
		{Title: "oldest", SourceName: "a", SourceURL: "https://a.example/1"},
		{Title: "other source", SourceName: "b", SourceURL: "https://b.example/1"},
		{Title: "middle", SourceName: "a", SourceURL: "https://a.example/2"},
		{Title: "newest", SourceName: "a", SourceURL: "https://a.example/3"},
	}); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}

	titles, err := repo.FindRecentTitlesBySource(ctx, "a", 2)
	if err != nil {
		t.Fatalf("FindRecentTitlesBySource: %v", err)
	}
	if len(titles) != 2 || titles[0] != "newest" || titles[1] != "middle" {
		t.Fatalf("expected newest-first window, got %v", titles)
	}
}

func TestMemoryTaskMarkRunningGuards(t *testing.T) {
	t.Parallel()

	repo := NewMemoryThumbnailTaskRepository()
	ctx := context.Background()

	task, err := repo.Save(ctx, domain.ThumbnailTask{ArticleID: 1, Status: domain.TaskWaiting})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	claimed, err := repo.MarkRunning(ctx, task.ID, 3)
	if err != nil {
		t.Fatalf("MarkRunning: %v", err)
	}
	if claimed.Status != domain.TaskRunning || claimed.Attempts != 1 {
		t.Fatalf("unexpected claimed state: %+v", claimed)
	}

	// second claim loses the race
	if _, err := repo.MarkRunning(ctx, task.ID, 3); !errors.Is(err, ports.ErrTaskNotClaimable) {
		t.Fatalf("expected ErrTaskNotClaimable, got %v", err)
	}

	if _, err := repo.MarkRunning(ctx, 12345, 3); !errors.Is(err, ports.ErrTaskNotClaimable) {
		t.Fatalf("missing task must not be claimable, got %v", err)
	}
}

func TestMemoryTaskMarkRunningEnforcesAttemptCap(t *testing.T) {
	t.Parallel()

	repo := NewMemoryThumbnailTaskRepository()
	ctx := context.Background()

	task, err := repo.Save(ctx, domain.ThumbnailTask{
		ArticleID: 1, Status: domain.TaskFailed, Attempts: 3,
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	// the claim itself refuses capped tasks, so a racing tick that read a
	// stale attempt count can never push attempts past the maximum
	if _, err := repo.MarkRunning(ctx, task.ID, 3); !errors.Is(err, ports.ErrTaskNotClaimable) {
		t.Fatalf("capped task must not be claimable, got %v", err)
	}
	reloaded, err := repo.FindByID(ctx, task.ID)
	if err != nil || reloaded == nil {
		t.Fatalf("reload task: %v", err)
	}
	if reloaded.Attempts != 3 || reloaded.Status != domain.TaskFailed {
		t.Fatalf("refused claim must leave the task untouched: %+v", reloaded)
	}
}

func TestMemoryTaskFindReadySelection(t *testing.T) {
	t.Parallel()

	repo := NewMemoryThumbnailTaskRepository()
	ctx := context.Background()

	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	seed := []domain.ThumbnailTask{
		{ArticleID: 1, Status: domain.TaskWaiting},
		{ArticleID: 2, Status: domain.TaskFailed, NextRetryAt: &past},
		{ArticleID: 3, Status: domain.TaskFailed, NextRetryAt: &future},
		{ArticleID: 4, Status: domain.TaskFailed}, // terminal: no retry time
		{ArticleID: 5, Status: domain.TaskRunning},
		{ArticleID: 6, Status: domain.TaskSuccess},
	}
	if _, err := repo.SaveAll(ctx, seed); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}

	ready, err := repo.FindReady(ctx, now, 10)
	if err != nil {
		t.Fatalf("FindReady: %v", err)
	}
	if len(ready) != 2 {
		t.Fatalf("expected 2 ready tasks, got %d", len(ready))
	}
	if ready[0].ArticleID != 1 || ready[1].ArticleID != 2 {
		t.Fatalf("unexpected selection order: %+v", ready)
	}

	capped, err := repo.FindReady(ctx, now, 1)
	if err != nil {
		t.Fatalf("FindReady: %v", err)
	}
	if len(capped) != 1 || capped[0].ArticleID != 1 {
		t.Fatalf("limit not honored: %+v", capped)
	}
}

func TestMemoryFeedSourceCacheHeaders(t *testing.T) {
	t.Parallel()

	repo := NewMemoryFeedSourceRepository()
	ctx := context.Background()

	source, err := repo.Save(ctx, domain.FeedSource{
		Name: "example", URL: "https://example.com/rss",
		SourceType: domain.SourceTypeRSS, Enabled: true,
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if source.ID == 0 {
		t.Fatalf("expected an assigned id")
	}

	if err := repo.UpdateCacheHeaders(ctx, source.ID, `"v1"`, "Mon, 02 Jan 2006 15:04:05 GMT"); err != nil {
		t.Fatalf("UpdateCacheHeaders: %v", err)
	}

	all, err := repo.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 source, got %d", len(all))
	}
	if all[0].ETag != `"v1"` || all[0].LastModified != "Mon, 02 Jan 2006 15:04:05 GMT" {
		t.Fatalf("validators not stored: %+v", all[0])
	}
}
