package dedupe

import (
	"context"
	"testing"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/infrastructure/storage"
)

func TestTokenizeTitle(t *testing.T) {
	t.Parallel()

	tokens := tokenizeTitle("Google's Search Update: What Changed?!")
	want := []string{"google", "s", "search", "update", "what", "changed"}
	if len(tokens) != len(want) {
		t.Fatalf("expected %d tokens, got %d (%v)", len(want), len(tokens), tokens)
	}
	for _, w := range want {
		if _, ok := tokens[w]; !ok {
			t.Fatalf("missing token %q in %v", w, tokens)
		}
	}
}

func TestJaccard(t *testing.T) {
	t.Parallel()

	a := tokenizeTitle("one two three four")
	b := tokenizeTitle("one two three five")
	got := jaccard(a, b)
	if got != 0.6 {
		t.Fatalf("expected 0.6, got %v", got)
	}

	if jaccard(a, a) != 1.0 {
		t.Fatalf("identical sets must score 1.0")
	}
	if jaccard(a, map[string]struct{}{}) != 0 {
		t.Fatalf("empty set must score 0")
	}
}

func TestFilterNewEmptyInput(t *testing.T) {
	t.Parallel()

	engine := NewEngine(storage.NewMemoryArticleRepository(), nil)
	out, err := engine.FilterNew(context.Background(), nil)
	if err != nil {
		t.Fatalf("FilterNew error: %v", err)
	}
	if out == nil || len(out) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", out)
	}
}

func TestFilterNewDropsExactURLDuplicates(t *testing.T) {
	t.Parallel()

	repo := storage.NewMemoryArticleRepository()
	ctx := context.Background()
	if _, err := repo.SaveAll(ctx, []domain.Article{
		{Title: "Existing story", SourceURL: "https://example.com/a", SourceName: "example"},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	engine := NewEngine(repo, nil)
	out, err := engine.FilterNew(ctx, []domain.Article{
		{Title: "Existing story reposted", SourceURL: "https://example.com/a", SourceName: "example"},
		{Title: "A completely different story", SourceURL: "https://example.com/b", SourceName: "example"},
	})
	if err != nil {
		t.Fatalf("FilterNew error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 survivor, got %d", len(out))
	}
	if out[0].SourceURL != "https://example.com/b" {
		t.Fatalf("unexpected survivor: %s", out[0].SourceURL)
	}
}

func TestFilterNewDropsNearDuplicateTitles(t *testing.T) {
	t.Parallel()

	repo := storage.NewMemoryArticleRepository()
	ctx := context.Background()
	if _, err := repo.SaveAll(ctx, []domain.Article{
		{
			Title:      "google updates its search ranking systems ahead of the march core rollout",
			SourceURL:  "https://example.com/orig",
			SourceName: "example",
		},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	engine := NewEngine(repo, nil)
	out, err := engine.FilterNew(ctx, []domain.Article{
		{
			// same 12 tokens plus one extra: 12/13 > 0.9
			Title:      "google updates its search ranking systems ahead of the march core rollout today",
			SourceURL:  "https://other.com/copy",
			SourceName: "example",
		},
		{
			Title:      "apple unveils a new desktop chip",
			SourceURL:  "https://example.com/chip",
			SourceName: "example",
		},
	})
	if err != nil {
		t.Fatalf("FilterNew error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 survivor, got %d", len(out))
	}
	if out[0].SourceURL != "https://example.com/chip" {
		t.Fatalf("unexpected survivor: %s", out[0].SourceURL)
	}
}

func TestFilterNewTitleMatchIsPerSource(t *testing.T) {
	t.Parallel()

	repo := storage.NewMemoryArticleRepository()
	ctx := context.Background()
	if _, err := repo.SaveAll(ctx, []domain.Article{
		{
			Title:      "google updates its search ranking systems ahead of the march core rollout",
			SourceURL:  "https://example.com/orig",
			SourceName: "example",
		},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	engine := NewEngine(repo, nil)
	out, err := engine.FilterNew(ctx, []domain.Article{
		{
			Title:      "google updates its search ranking systems ahead of the march core rollout",
			SourceURL:  "https://mirror.com/story",
			SourceName: "mirror",
		},
	})
	if err != nil {
		t.Fatalf("FilterNew error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("identical title from another source must pass, got %d survivors", len(out))
	}
}

func TestFilterNewDropsDuplicatesWithinBatch(t *testing.T) {
	t.Parallel()

	engine := NewEngine(storage.NewMemoryArticleRepository(), nil)
	out, err := engine.FilterNew(context.Background(), []domain.Article{
		{
			Title:      "openai ships a new reasoning model with longer context windows",
			SourceURL:  "https://example.com/one",
			SourceName: "example",
		},
		{
			Title:      "openai ships a new reasoning model with longer context windows",
			SourceURL:  "https://example.com/two",
			SourceName: "example",
		},
		{
			Title:      "unrelated market report",
			SourceURL:  "https://example.com/one",
			SourceName: "example",
		},
	})
	if err != nil {
		t.Fatalf("FilterNew error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 survivor, got %d", len(out))
	}
	if out[0].SourceURL != "https://example.com/one" {
		t.Fatalf("expected first candidate to win, got %s", out[0].SourceURL)
	}
}

func TestFilterNewIsIdempotentAfterPersisting(t *testing.T) {
	t.Parallel()

	repo := storage.NewMemoryArticleRepository()
	engine := NewEngine(repo, nil)
	ctx := context.Background()

	batch := []domain.Article{
		{Title: "first story about databases", SourceURL: "https://example.com/1", SourceName: "example"},
		{Title: "second story about networking", SourceURL: "https://example.com/2", SourceName: "example"},
		{Title: "third story, no url", SourceName: "example"},
	}

	fresh, err := engine.FilterNew(ctx, batch)
	if err != nil {
		t.Fatalf("first FilterNew: %v", err)
	}
	if len(fresh) != 3 {
		t.Fatalf("expected all candidates fresh, got %d", len(fresh))
	}
	if _, err := repo.SaveAll(ctx, fresh); err != nil {
		t.Fatalf("persist survivors: %v", err)
	}

	// identical batch against the now-persisted state yields nothing
	rerun, err := engine.FilterNew(ctx, batch)
	if err != nil {
		t.Fatalf("second FilterNew: %v", err)
	}
	if len(rerun) != 0 {
		t.Fatalf("rerun must be empty, got %d survivors", len(rerun))
	}
}

func TestFilterNewPreservesInputOrder(t *testing.T) {
	t.Parallel()

	engine := NewEngine(storage.NewMemoryArticleRepository(), nil)
	out, err := engine.FilterNew(context.Background(), []domain.Article{
		{Title: "first story about databases", SourceURL: "https://example.com/1", SourceName: "example"},
		{Title: "second story about networking", SourceURL: "https://example.com/2", SourceName: "example"},
		{Title: "third story about compilers", SourceURL: "https://example.com/3", SourceName: "example"},
	})
	if err != nil {
		t.Fatalf("FilterNew error: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 survivors, got %d", len(out))
	}
	for i, want := range []string{"https://example.com/1", "https://example.com/2", "https://example.com/3"} {
		if out[i].SourceURL != want {
			t.Fatalf("order broken at %d: %s", i, out[i].SourceURL)
		}
	}
}
