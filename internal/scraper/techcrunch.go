package scraper

import (
	"context"
	"log/slog"
	"strings"
)

// TechCrunchAdapter handles techcrunch.com. The default extraction works for
// its article pages, but the best lead image lives in the structured data
// (thumbnailUrl/image) rather than og:image, which often carries branding.
type TechCrunchAdapter struct {
	*GenericAdapter
}

// NewTechCrunchAdapter builds the techcrunch.com strategy.
func NewTechCrunchAdapter(client *Client, maxArticles, workers int, logger *slog.Logger) *TechCrunchAdapter {
	return &TechCrunchAdapter{
		GenericAdapter: NewGenericAdapter(client, maxArticles, workers, logger),
	}
}

// Supports matches techcrunch.com and its subdomains.
func (t *TechCrunchAdapter) Supports(siteURL string) bool {
	host := hostOf(siteURL)
	return host != "" && strings.HasSuffix(normalizeHost(host), "techcrunch.com")
}

// Name identifies the adapter in logs.
func (t *TechCrunchAdapter) Name() string {
	return "techcrunch"
}

// FetchThumbnailURL prefers JSON-LD thumbnailUrl/image over meta tags.
func (t *TechCrunchAdapter) FetchThumbnailURL(ctx context.Context, articleURL string) (string, error) {
	doc, err := t.client.FetchDocument(ctx, articleURL)
	if err != nil {
		return "", err
	}

	jsonLD := findArticleJSONLD(doc)
	image := firstNonBlank(
		jsonLDString(jsonLD, "thumbnailUrl"),
		jsonLDImage(jsonLD),
		metaContent(doc, "property", "og:image"),
		metaContent(doc, "name", "twitter:image"),
	)
	if strings.TrimSpace(image) != "" {
		return strings.TrimSpace(image), nil
	}
	return defaultThumbnail(doc), nil
}
