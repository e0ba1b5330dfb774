package scraper

import (
	"context"
	"log/slog"

	"NewsHarvester/internal/domain"
)

// Adapter is a per-site scraping strategy. PreviewOnly stays on the
// homepage; ParseOnly may fetch individual article pages. FetchThumbnailURL
// resolves a standalone lead image for one article link and backs the
// asynchronous thumbnail queue.
type Adapter interface {
	Supports(siteURL string) bool
	PreviewOnly(ctx context.Context, siteURL, sourceName string) ([]domain.Article, error)
	ParseOnly(ctx context.Context, siteURL, sourceName string) ([]domain.Article, error)
	FetchThumbnailURL(ctx context.Context, articleURL string) (string, error)
}

// Chain holds adapters in priority order. Resolve walks the list and picks
// the first adapter whose predicate matches; the generic adapter passed to
// NewChain is appended last and matches every URL, so Resolve never comes
// up empty.
type Chain struct {
	adapters []Adapter
	logger   *slog.Logger
}

// NewChain orders site adapters ahead of the generic fallback.
func NewChain(generic *GenericAdapter, logger *slog.Logger, sites ...Adapter) *Chain {
	adapters := make([]Adapter, 0, len(sites)+1)
	adapters = append(adapters, sites...)
	adapters = append(adapters, generic)
	return &Chain{adapters: adapters, logger: logger}
}

// Resolve returns the highest-priority adapter supporting the URL.
func (c *Chain) Resolve(siteURL string) Adapter {
	for _, adapter := range c.adapters {
		if adapter.Supports(siteURL) {
			return adapter
		}
	}
	// unreachable as long as the chain was built through NewChain
	return c.adapters[len(c.adapters)-1]
}

// ParseOnly dispatches a full scrape to the matching adapter.
func (c *Chain) ParseOnly(ctx context.Context, siteURL, sourceName string) ([]domain.Article, error) {
	adapter := c.Resolve(siteURL)
	if c.logger != nil {
		c.logger.Debug("adapter selected", "url", siteURL, "adapter", adapterName(adapter))
	}
	return adapter.ParseOnly(ctx, siteURL, sourceName)
}

// PreviewOnly dispatches a homepage-only scrape to the matching adapter.
func (c *Chain) PreviewOnly(ctx context.Context, siteURL, sourceName string) ([]domain.Article, error) {
	adapter := c.Resolve(siteURL)
	if c.logger != nil {
		c.logger.Debug("adapter selected", "url", siteURL, "adapter", adapterName(adapter))
	}
	return adapter.PreviewOnly(ctx, siteURL, sourceName)
}

// FetchThumbnailURL resolves a lead image through the matching adapter.
func (c *Chain) FetchThumbnailURL(ctx context.Context, articleURL string) (string, error) {
	return c.Resolve(articleURL).FetchThumbnailURL(ctx, articleURL)
}

type named interface {
	Name() string
}

func adapterName(a Adapter) string {
	if n, ok := a.(named); ok {
		return n.Name()
	}
	return "generic"
}
