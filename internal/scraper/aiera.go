package scraper

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsHarvester/internal/domain"
)

// AieraAdapter handles aiera.com.cn. Its homepage cards already carry
// title, lead image, and publish time, so a full scrape never visits the
// article pages: ParseOnly is the homepage-card parse. Body content is left
// for later enrichment.
type AieraAdapter struct {
	*GenericAdapter
}

// NewAieraAdapter builds the aiera.com.cn strategy.
func NewAieraAdapter(client *Client, maxArticles, workers int, logger *slog.Logger) *AieraAdapter {
	return &AieraAdapter{
		GenericAdapter: NewGenericAdapter(client, maxArticles, workers, logger),
	}
}

// Supports matches aiera.com.cn and its subdomains.
func (a *AieraAdapter) Supports(siteURL string) bool {
	host := hostOf(siteURL)
	return host != "" && strings.HasSuffix(normalizeHost(host), "aiera.com.cn")
}

// Name identifies the adapter in logs.
func (a *AieraAdapter) Name() string {
	return "aiera"
}

// PreviewOnly parses the homepage entry cards: linked title, card image,
// and the card's datetime attribute.
func (a *AieraAdapter) PreviewOnly(ctx context.Context, siteURL, sourceName string) ([]domain.Article, error) {
	home, err := a.client.FetchDocument(ctx, siteURL)
	if err != nil {
		return nil, err
	}

	base := documentBase(home, siteURL)
	now := time.Now().UTC().Format(time.RFC3339)

	articles := make([]domain.Article, 0, a.maxArticles)
	home.Find(".entries article.entry-card").EachWithBreak(func(_ int, card *goquery.Selection) bool {
		titleLink := card.Find("h2.entry-title a").First()
		if titleLink.Length() == 0 {
			return true
		}
		title := strings.TrimSpace(titleLink.Text())
		pageURL := absoluteURL(base, titleLink.AttrOr("href", ""))
		if title == "" || pageURL == "" {
			return true
		}

		article := domain.Article{
			Title:       title,
			SourceURL:   pageURL,
			SourceName:  sourceName,
			PublishedAt: normalizeDate(card.Find("time.ct-meta-element-date[datetime]").First().AttrOr("datetime", ""), now),
			ScrapedAt:   now,
		}
		if img := card.Find(".ct-media-container img").First(); img.Length() > 0 {
			article.ThumbnailURL = bestImageSrc(img, base)
		}

		articles = append(articles, article)
		return len(articles) < a.maxArticles
	})

	a.debug("preview items", "site", siteURL, "count", len(articles))
	return articles, nil
}

// ParseOnly returns the homepage previews directly; the cards are rich
// enough that per-article fetches would only add load.
func (a *AieraAdapter) ParseOnly(ctx context.Context, siteURL, sourceName string) ([]domain.Article, error) {
	return a.PreviewOnly(ctx, siteURL, sourceName)
}

// FetchThumbnailURL checks the featured-image containers before the
// default meta-tag strategy.
func (a *AieraAdapter) FetchThumbnailURL(ctx context.Context, articleURL string) (string, error) {
	doc, err := a.client.FetchDocument(ctx, articleURL)
	if err != nil {
		return "", err
	}
	if img := doc.Find(".post-thumbnail img, .featured-image img, .entry-content img").First(); img.Length() > 0 {
		if best := bestImageSrc(img, doc.Url); best != "" {
			return best, nil
		}
	}
	return defaultThumbnail(doc), nil
}
