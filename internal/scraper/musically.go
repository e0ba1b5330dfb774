package scraper

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsHarvester/internal/domain"
)

// MusicAllyAdapter handles musically.com (WordPress markup: entry-title,
// entry-content, rel=tag links, .post-thumbnail lead image).
type MusicAllyAdapter struct {
	*GenericAdapter
}

// NewMusicAllyAdapter builds the musically.com strategy.
func NewMusicAllyAdapter(client *Client, maxArticles, workers int, logger *slog.Logger) *MusicAllyAdapter {
	generic := NewGenericAdapter(client, maxArticles, workers, logger)
	generic.parsePage = parseMusicAllyPage
	return &MusicAllyAdapter{GenericAdapter: generic}
}

// Supports matches musically.com and its subdomains.
func (m *MusicAllyAdapter) Supports(siteURL string) bool {
	host := hostOf(siteURL)
	return host != "" && strings.HasSuffix(normalizeHost(host), "musically.com")
}

// Name identifies the adapter in logs.
func (m *MusicAllyAdapter) Name() string {
	return "musically"
}

func parseMusicAllyPage(doc *goquery.Document, pageURL, sourceName string) *domain.Article {
	title := firstNonBlank(
		metaContent(doc, "property", "og:title"),
		metaContent(doc, "name", "twitter:title"),
		doc.Find("title").First().Text(),
		doc.Find("h1.entry-title").First().Text(),
		doc.Find("h1").First().Text(),
	)
	if strings.TrimSpace(title) == "" {
		return nil
	}

	description := firstNonBlank(
		metaContent(doc, "name", "description"),
		metaContent(doc, "property", "og:description"),
	)
	publishedAt := firstNonBlank(
		metaContent(doc, "property", "article:published_time"),
		doc.Find("time.entry-date.published[datetime]").First().AttrOr("datetime", ""),
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
	} else if firstP := doc.Find(".entry-content p").First().Text(); strings.TrimSpace(firstP) != "" {
		article.Summary = trimTo(firstP, webSummaryLimit)
	}

	var tags []string
	doc.Find(".entry-footer .tags-links a[rel='tag']").Each(func(_ int, tag *goquery.Selection) {
		if t := strings.TrimSpace(tag.Text()); t != "" {
			tags = append(tags, t)
		}
	})
	if len(tags) > 0 {
		article.Tags = strings.Join(tags, ",")
	}

	if content := doc.Find(".entry-content").First(); content.Length() > 0 {
		content.Find("section, aside, nav, form, .widget, script, style").Remove()
		article.RawContent = trimTo(harvestText(content), webContentLimit)
	}

	if img := doc.Find(".post-thumbnail img, .entry-content img").First(); img.Length() > 0 {
		article.ThumbnailURL = bestImageSrc(img, doc.Url)
	}

	return article
}

// FetchThumbnailURL prefers the featured image over meta tags.
func (m *MusicAllyAdapter) FetchThumbnailURL(ctx context.Context, articleURL string) (string, error) {
	doc, err := m.client.FetchDocument(ctx, articleURL)
	if err != nil {
		return "", err
	}
	if img := doc.Find(".post-thumbnail img").First(); img.Length() > 0 {
		if best := bestImageSrc(img, doc.Url); best != "" {
			return best, nil
		}
	}
	return defaultThumbnail(doc), nil
}
