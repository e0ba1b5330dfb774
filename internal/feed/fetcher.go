package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/ports"
)

const (
	maxFeedBytes     = 5 << 20
	summaryLimit     = 200
	requestTimeout   = 20 * time.Second
	fetcherUserAgent = "Mozilla/5.0 (compatible; NewsHarvester/1.0)"
)

// Some feeds ship a DOCTYPE declaration that strict XML parsers refuse.
var doctypeExpr = regexp.MustCompile(`(?is)<!DOCTYPE[^>]*>`)

// Fetcher retrieves and parses RSS/Atom feeds with conditional-GET support.
// A 304 response short-circuits to an empty batch; on 200 the new
// ETag/Last-Modified validators are written back to the feed source record.
type Fetcher struct {
	client  *http.Client
	parser  *gofeed.Parser
	sources ports.FeedSourceRepository
	logger  *slog.Logger
}

// NewFetcher wires an HTTP client and the feed source registry. The
// registry may be nil; validators are then simply not persisted.
func NewFetcher(client *http.Client, sources ports.FeedSourceRepository, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	return &Fetcher{
		client:  client,
		parser:  gofeed.NewParser(),
		sources: sources,
		logger:  logger,
	}
}

// Fetch downloads and normalizes one RSS source. An unchanged feed (HTTP
// 304 against the cached validators) yields an empty batch and no writes.
func (f *Fetcher) Fetch(ctx context.Context, source domain.FeedSource) ([]domain.Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", fetcherUserAgent)
	if source.ETag != "" {
		req.Header.Set("If-None-Match", source.ETag)
	}
	if source.LastModified != "" {
		req.Header.Set("If-Modified-Since", source.LastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", source.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		f.debug("feed not modified", "url", source.URL)
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed %s: unexpected status %s", source.URL, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("read feed %s: %w", source.URL, err)
	}

	f.storeValidators(ctx, source, resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"))

	xml := doctypeExpr.ReplaceAllString(string(body), "")
	parsed, err := f.parser.ParseString(xml)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", source.URL, err)
	}

	f.debug("feed entries", "url", source.URL, "count", len(parsed.Items))

	articles := make([]domain.Article, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		articles = append(articles, f.normalizeEntry(parsed, item, source))
	}
	return articles, nil
}

// storeValidators persists fresh cache headers; failures only cost the next
// fetch a full download, so they are logged and swallowed.
func (f *Fetcher) storeValidators(ctx context.Context, source domain.FeedSource, etag, lastModified string) {
	if f.sources == nil || source.ID == 0 {
		return
	}
	if etag == "" && lastModified == "" {
		return
	}
	if etag == source.ETag && lastModified == source.LastModified {
		return
	}
	if err := f.sources.UpdateCacheHeaders(ctx, source.ID, etag, lastModified); err != nil {
		f.warn("store cache headers failed", "url", source.URL, "error", err)
	}
}

func (f *Fetcher) normalizeEntry(parsed *gofeed.Feed, item *gofeed.Item, source domain.FeedSource) domain.Article {
	now := time.Now().UTC()

	article := domain.Article{
		Title:      strings.TrimSpace(item.Title),
		SourceURL:  item.Link,
		SourceName: source.Name,
		ScrapedAt:  now.Format(time.RFC3339),
		Category:   source.Category,
	}

	switch {
	case item.PublishedParsed != nil:
		article.PublishedAt = item.PublishedParsed.UTC().Format(time.RFC3339)
	case item.UpdatedParsed != nil:
		article.PublishedAt = item.UpdatedParsed.UTC().Format(time.RFC3339)
	default:
		article.PublishedAt = now.Format(time.RFC3339)
	}

	if len(item.Categories) > 0 {
		article.Tags = strings.Join(item.Categories, ",")
	}

	var imgFromDescription string
	if item.Description != "" {
		article.RawContent = item.Description
		article.Summary, imgFromDescription = digestDescription(item.Description)
	}

	thumbnail := ""
	for _, enclosure := range item.Enclosures {
		if enclosure != nil && strings.HasPrefix(enclosure.Type, "image/") {
			thumbnail = enclosure.URL
			break
		}
	}
	if thumbnail == "" {
		thumbnail = imgFromDescription
	}
	if thumbnail == "" && parsed.Image != nil {
		thumbnail = parsed.Image.URL
	}
	if thumbnail != "" && !isGenericBranding(source.URL, thumbnail) {
		article.ThumbnailURL = thumbnail
	}

	return article
}

// digestDescription strips markup from the entry description to build a
// short summary and picks the first embedded image as thumbnail candidate.
func digestDescription(descriptionHTML string) (summary, firstImage string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(descriptionHTML))
	if err != nil {
		return truncateRunes(descriptionHTML, summaryLimit), ""
	}

	if img := doc.Find("img").First(); img.Length() > 0 {
		firstImage = strings.TrimSpace(img.AttrOr("src", ""))
	}

	text := strings.TrimSpace(doc.Text())
	summary = truncateRunes(text, summaryLimit)
	return summary, firstImage
}

func truncateRunes(text string, limit int) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit]) + "..."
}

// isGenericBranding rejects thumbnails that are site chrome rather than
// article art: logos, favicons, and known per-source branding assets.
func isGenericBranding(feedURL, thumbnailURL string) bool {
	lower := strings.ToLower(thumbnailURL)
	if strings.Contains(lower, "logo") || strings.Contains(lower, "favicon") || strings.Contains(lower, "icon") {
		return true
	}
	if strings.Contains(strings.ToLower(feedURL), "techcrunch.com") && strings.Contains(lower, "tc-logo") {
		return true
	}
	return false
}

func (f *Fetcher) debug(msg string, args ...interface{}) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}

func (f *Fetcher) warn(msg string, args ...interface{}) {
	if f.logger != nil {
		f.logger.Warn(msg, args...)
	}
}
