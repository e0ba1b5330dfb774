package scraper

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsHarvester/internal/domain"
)

// SERoundtableAdapter handles seroundtable.com, whose pages carry no usable
// JSON-LD: title sits in the h1, the body under .post-body, and tags in the
// news_keywords meta.
type SERoundtableAdapter struct {
	*GenericAdapter
}

// NewSERoundtableAdapter builds the seroundtable.com strategy.
func NewSERoundtableAdapter(client *Client, maxArticles, workers int, logger *slog.Logger) *SERoundtableAdapter {
	generic := NewGenericAdapter(client, maxArticles, workers, logger)
	generic.parsePage = parseSERoundtablePage
	return &SERoundtableAdapter{GenericAdapter: generic}
}

// Supports matches seroundtable.com and its subdomains.
func (s *SERoundtableAdapter) Supports(siteURL string) bool {
	host := hostOf(siteURL)
	return host != "" && strings.HasSuffix(normalizeHost(host), "seroundtable.com")
}

// Name identifies the adapter in logs.
func (s *SERoundtableAdapter) Name() string {
	return "seroundtable"
}

func parseSERoundtablePage(doc *goquery.Document, pageURL, sourceName string) *domain.Article {
	title := firstNonBlank(
		doc.Find("h1").First().Text(),
		metaContent(doc, "property", "og:title"),
		metaContent(doc, "name", "twitter:title"),
		doc.Find("title").First().Text(),
	)
	if strings.TrimSpace(title) == "" {
		return nil
	}

	description := firstNonBlank(
		metaContent(doc, "name", "description"),
		metaContent(doc, "property", "og:description"),
	)
	publishedAt := firstNonBlank(
		metaContent(doc, "name", "article:published_time"),
		metaContent(doc, "property", "article:published_time"),
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
	}

	if content := doc.Find(".post-body").First(); content.Length() > 0 {
		content.Find("script, style, iframe, .disqus_thread").Remove()
		article.RawContent = trimTo(harvestText(content), webContentLimit)
	}

	if keywords := metaContent(doc, "name", "news_keywords"); keywords != "" {
		var tags []string
		for _, part := range strings.Split(keywords, ",") {
			if t := strings.TrimSpace(part); t != "" {
				tags = append(tags, t)
			}
		}
		article.Tags = strings.Join(tags, ",")
	}

	if img := firstNonBlank(
		metaContent(doc, "property", "og:image"),
		metaContent(doc, "name", "twitter:image"),
	); img != "" {
		article.ThumbnailURL = strings.TrimSpace(img)
	}

	return article
}

// FetchThumbnailURL keeps the og:image-first behavior for backfill.
func (s *SERoundtableAdapter) FetchThumbnailURL(ctx context.Context, articleURL string) (string, error) {
	doc, err := s.client.FetchDocument(ctx, articleURL)
	if err != nil {
		return "", err
	}
	if og := metaContent(doc, "property", "og:image"); og != "" {
		return og, nil
	}
	return defaultThumbnail(doc), nil
}

// harvestText walks block-level nodes and joins their visible text with
// newlines, skipping empty nodes.
func harvestText(content *goquery.Selection) string {
	var sb strings.Builder
	content.Find("h1,h2,h3,h4,h5,h6,p,li,blockquote").Each(func(_ int, node *goquery.Selection) {
		text := strings.TrimSpace(node.Text())
		if text == "" {
			return
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(text)
	})
	return sb.String()
}
