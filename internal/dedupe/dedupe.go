package dedupe

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/ports"
)

const (
	// titleLookback bounds how much per-source history is compared against;
	// dedupe is a recent-window guarantee, not a global one.
	titleLookback = 500
	// similarityThreshold is the Jaccard score at which two titles from the
	// same source count as the same story.
	similarityThreshold = 0.9
)

var punctExpr = regexp.MustCompile(`[[:punct:]]+`)

// Engine filters candidate batches against persisted history using exact
// source-URL matching plus fuzzy title matching per source.
type Engine struct {
	articles ports.ArticleRepository
	logger   *slog.Logger
}

// NewEngine wires the article repository the lookbacks are loaded from.
func NewEngine(articles ports.ArticleRepository, logger *slog.Logger) *Engine {
	return &Engine{articles: articles, logger: logger}
}

// FilterNew returns the candidates that are neither exact-URL duplicates of
// persisted articles nor near-duplicates (title Jaccard >= 0.9) of recent
// titles from the same source. Accepted candidates join the in-memory
// history immediately, so duplicates inside the batch itself are dropped
// too. Output preserves input order and is always a subset of the input.
func (e *Engine) FilterNew(ctx context.Context, candidates []domain.Article) ([]domain.Article, error) {
	if len(candidates) == 0 {
		return []domain.Article{}, nil
	}

	existingURLs := make(map[string]struct{})
	urls, err := e.articles.FindAllSourceURLs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load source urls: %w", err)
	}
	for _, u := range urls {
		existingURLs[u] = struct{}{}
	}

	tokensBySource, err := e.loadTitleHistory(ctx, candidates)
	if err != nil {
		return nil, err
	}

	result := make([]domain.Article, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.SourceURL != "" {
			if _, dup := existingURLs[candidate.SourceURL]; dup {
				continue
			}
		}

		source := candidate.SourceName
		tokens := tokenizeTitle(candidate.Title)
		if len(tokens) > 0 && similarToAny(tokens, tokensBySource[source]) {
			continue
		}

		result = append(result, candidate)
		if candidate.SourceURL != "" {
			existingURLs[candidate.SourceURL] = struct{}{}
		}
		if len(tokens) > 0 {
			tokensBySource[source] = append(tokensBySource[source], tokens)
		}
	}

	e.debug("dedupe done", "in", len(candidates), "out", len(result))
	return result, nil
}

// loadTitleHistory loads the recent-title token sets once per distinct
// source in the batch, bounding storage round-trips for the whole run.
func (e *Engine) loadTitleHistory(ctx context.Context, candidates []domain.Article) (map[string][]map[string]struct{}, error) {
	sources := make(map[string]struct{})
	for _, candidate := range candidates {
		if candidate.SourceName != "" {
			sources[candidate.SourceName] = struct{}{}
		}
	}

	tokensBySource := make(map[string][]map[string]struct{}, len(sources))
	for source := range sources {
		titles, err := e.articles.FindRecentTitlesBySource(ctx, source, titleLookback)
		if err != nil {
			return nil, fmt.Errorf("load titles for %s: %w", source, err)
		}
		tokenSets := make([]map[string]struct{}, 0, len(titles))
		for _, title := range titles {
			if tokens := tokenizeTitle(title); len(tokens) > 0 {
				tokenSets = append(tokenSets, tokens)
			}
		}
		tokensBySource[source] = tokenSets
	}
	return tokensBySource, nil
}

func similarToAny(tokens map[string]struct{}, history []map[string]struct{}) bool {
	for _, other := range history {
		if jaccard(tokens, other) >= similarityThreshold {
			return true
		}
	}
	return false
}

// jaccard computes |intersection| / |union| of two token sets.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for token := range a {
		if _, ok := b[token]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// tokenizeTitle case-folds, strips punctuation, and splits on whitespace.
func tokenizeTitle(title string) map[string]struct{} {
	normalized := strings.ToLower(title)
	normalized = punctExpr.ReplaceAllString(normalized, " ")

	tokens := make(map[string]struct{})
	for _, part := range strings.Fields(normalized) {
		tokens[part] = struct{}{}
	}
	return tokens
}

func (e *Engine) debug(msg string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}
