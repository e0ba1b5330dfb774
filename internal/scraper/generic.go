package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsHarvester/internal/domain"
)

const (
	defaultMaxArticles  = 20
	defaultParseWorkers = 4
	webSummaryLimit     = 160
	webContentLimit     = 4000
)

// PageParser turns one fetched article page into an article. Returning nil
// drops the page (usually: no usable title); it is not an error.
type PageParser func(doc *goquery.Document, pageURL, sourceName string) *domain.Article

// GenericAdapter is the catch-all strategy: homepage link heuristics plus
// per-page metadata extraction. Site adapters embed it and replace only the
// pieces their markup needs.
type GenericAdapter struct {
	client      *Client
	maxArticles int
	workers     int
	logger      *slog.Logger
	parsePage   PageParser
}

// NewGenericAdapter builds the fallback adapter. Zero-valued limits fall
// back to the defaults (20 articles, 4 parse workers).
func NewGenericAdapter(client *Client, maxArticles, workers int, logger *slog.Logger) *GenericAdapter {
	if maxArticles <= 0 {
		maxArticles = defaultMaxArticles
	}
	if workers <= 0 {
		workers = defaultParseWorkers
	}
	return &GenericAdapter{
		client:      client,
		maxArticles: maxArticles,
		workers:     workers,
		logger:      logger,
		parsePage:   parseArticlePage,
	}
}

// Supports always matches; the chain orders this adapter last.
func (g *GenericAdapter) Supports(string) bool {
	return true
}

// Name identifies the adapter in logs.
func (g *GenericAdapter) Name() string {
	return "generic"
}

// PreviewOnly extracts lightweight previews from homepage anchors without
// visiting any article page.
func (g *GenericAdapter) PreviewOnly(ctx context.Context, siteURL, sourceName string) ([]domain.Article, error) {
	home, err := g.client.FetchDocument(ctx, siteURL)
	if err != nil {
		return nil, fmt.Errorf("fetch home %s: %w", siteURL, err)
	}

	base := documentBase(home, siteURL)
	host := hostOf(siteURL)
	now := time.Now().UTC().Format(time.RFC3339)

	seen := make(map[string]struct{})
	previews := make([]domain.Article, 0, g.maxArticles)

	home.Find(articleLinkSelector).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		if !ok {
			return true
		}
		abs := absoluteURL(base, href)
		if abs == "" {
			return true
		}
		if i := strings.IndexByte(abs, '#'); i >= 0 {
			abs = abs[:i]
		}
		if abs == siteURL || abs == siteURL+"/" || !isLikelyArticleURL(abs, host) {
			return true
		}
		if _, dup := seen[abs]; dup {
			return true
		}
		seen[abs] = struct{}{}

		previews = append(previews, domain.Article{
			Title:      strings.TrimSpace(a.Text()),
			SourceURL:  abs,
			SourceName: sourceName,
			ScrapedAt:  now,
		})
		return len(previews) < g.maxArticles
	})

	g.debug("preview items", "site", siteURL, "count", len(previews))
	return previews, nil
}

// ParseOnly fetches the homepage, extracts candidate article links, and
// parses each candidate page through a bounded worker pool. A failing or
// titleless page is skipped, never fatal; output keeps homepage link order.
func (g *GenericAdapter) ParseOnly(ctx context.Context, siteURL, sourceName string) ([]domain.Article, error) {
	home, err := g.client.FetchDocument(ctx, siteURL)
	if err != nil {
		return nil, fmt.Errorf("fetch home %s: %w", siteURL, err)
	}

	links := extractArticleLinks(home, siteURL, g.maxArticles)
	g.debug("links found", "site", siteURL, "count", len(links))

	var (
		wg      sync.WaitGroup
		sem     = make(chan struct{}, g.workers)
		results = make([]*domain.Article, len(links))
	)

	for i, link := range links {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, link string) {
			defer wg.Done()
			defer func() { <-sem }()

			article, err := g.parseArticle(ctx, link, sourceName)
			if err != nil {
				g.debug("parse error", "url", link, "error", err)
				return
			}
			if article == nil {
				g.debug("skip article (no title)", "url", link)
				return
			}
			results[idx] = article
		}(i, link)
	}
	wg.Wait()

	articles := make([]domain.Article, 0, len(links))
	for _, article := range results {
		if article != nil {
			articles = append(articles, *article)
		}
	}

	g.debug("articles parsed", "site", siteURL, "count", len(articles))
	return articles, nil
}

func (g *GenericAdapter) parseArticle(ctx context.Context, pageURL, sourceName string) (*domain.Article, error) {
	doc, err := g.client.FetchDocument(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return g.parsePage(doc, pageURL, sourceName), nil
}

// parseArticlePage is the default per-page extraction: embedded structured
// article data first, then Open Graph / Twitter meta tags, then visible
// headings. Thumbnails are deliberately left unresolved here; the backfill
// queue owns lead-image fetching.
func parseArticlePage(doc *goquery.Document, pageURL, sourceName string) *domain.Article {
	jsonLD := findArticleJSONLD(doc)

	title := firstNonBlank(
		jsonLDString(jsonLD, "headline"),
		metaContent(doc, "property", "og:title"),
		metaContent(doc, "name", "twitter:title"),
		doc.Find("title").First().Text(),
		doc.Find("h1").First().Text(),
	)
	if strings.TrimSpace(title) == "" {
		return nil
	}

	description := firstNonBlank(
		jsonLDString(jsonLD, "description"),
		metaContent(doc, "name", "description"),
		metaContent(doc, "property", "og:description"),
	)
	publishedAt := firstNonBlank(
		jsonLDString(jsonLD, "datePublished"),
		metaContent(doc, "property", "article:published_time"),
		doc.Find("time[datetime]").First().AttrOr("datetime", ""),
	)

	now := time.Now().UTC().Format(time.RFC3339)
	article := &domain.Article{
		Title:       strings.TrimSpace(title),
		SourceURL:   pageURL,
		SourceName:  sourceName,
		PublishedAt: normalizeDate(publishedAt, now),
		ScrapedAt:   now,
	}

	if strings.TrimSpace(description) != "" {
		article.Summary = trimTo(description, webSummaryLimit)
	} else if body := doc.Find("article").First().Text(); strings.TrimSpace(body) != "" {
		article.Summary = trimTo(body, webSummaryLimit)
	}

	if keywords := metaContent(doc, "name", "keywords"); keywords != "" {
		article.Tags = keywords
	}

	return article
}

// FetchThumbnailURL is the default lead-image strategy: og:image, then
// twitter:image, then the first in-content image (widest srcset candidate).
func (g *GenericAdapter) FetchThumbnailURL(ctx context.Context, articleURL string) (string, error) {
	doc, err := g.client.FetchDocument(ctx, articleURL)
	if err != nil {
		return "", err
	}
	return defaultThumbnail(doc), nil
}

func defaultThumbnail(doc *goquery.Document) string {
	if og := metaContent(doc, "property", "og:image"); og != "" {
		return og
	}
	if tw := metaContent(doc, "name", "twitter:image"); tw != "" {
		return tw
	}
	img := doc.Find("article img, .article img").First()
	if img.Length() > 0 {
		return bestImageSrc(img, doc.Url)
	}
	return ""
}

func (g *GenericAdapter) debug(msg string, args ...interface{}) {
	if g.logger != nil {
		g.logger.Debug(msg, args...)
	}
}
