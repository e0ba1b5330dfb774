package scraper

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Selector shared by link extraction and previews: anchors inside article
// cards and headings, plus common article path hints.
const articleLinkSelector = "article a[href], h2 a[href], h3 a[href], h4 a[href], " +
	"a[href*='/article/'], a[href*='/posts/'], a[href*='/post/'], a[href*='/news/'], a[href*='/p/']"

var spaceExpr = regexp.MustCompile(`\s+`)

// extractArticleLinks pulls likely article URLs out of a homepage document,
// deduplicated and capped at max, in document order.
func extractArticleLinks(doc *goquery.Document, siteURL string, max int) []string {
	base := documentBase(doc, siteURL)
	host := hostOf(siteURL)

	seen := make(map[string]struct{})
	links := make([]string, 0, max)

	doc.Find(articleLinkSelector).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		if !ok {
			return true
		}
		abs := absoluteURL(base, href)
		if abs == "" {
			return true
		}
		// fragments produce duplicate entries for the same page
		if i := strings.IndexByte(abs, '#'); i >= 0 {
			abs = abs[:i]
		}
		if abs == siteURL || abs == siteURL+"/" {
			return true
		}
		if !isLikelyArticleURL(abs, host) {
			return true
		}
		if _, dup := seen[abs]; dup {
			return true
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
		return len(links) < max
	})

	return links
}

// isLikelyArticleURL rejects asset downloads, index-style paths, and
// off-host links.
func isLikelyArticleURL(candidate, host string) bool {
	lower := strings.ToLower(candidate)
	for _, ext := range []string{".jpg", ".png", ".gif", ".pdf"} {
		if strings.HasSuffix(lower, ext) {
			return false
		}
	}
	for _, path := range []string{"/tag/", "/category/", "/author/", "/login", "/signup"} {
		if strings.Contains(lower, path) {
			return false
		}
	}
	if host != "" {
		candidateHost := hostOf(candidate)
		if candidateHost == "" {
			return false
		}
		return normalizeHost(candidateHost) == normalizeHost(host)
	}
	return true
}

func documentBase(doc *goquery.Document, siteURL string) *url.URL {
	if doc.Url != nil {
		return doc.Url
	}
	base, err := url.Parse(siteURL)
	if err != nil {
		return nil
	}
	return base
}

func absoluteURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		if ref.IsAbs() {
			return ref.String()
		}
		return ""
	}
	return base.ResolveReference(ref).String()
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Host
}

func normalizeHost(host string) string {
	return strings.TrimPrefix(host, "www.")
}

// metaContent reads the content attribute of a meta tag, e.g.
// metaContent(doc, "property", "og:image").
func metaContent(doc *goquery.Document, attr, value string) string {
	sel := doc.Find(fmt.Sprintf("meta[%s='%s']", attr, value)).First()
	content, _ := sel.Attr("content")
	return strings.TrimSpace(content)
}

// findArticleJSONLD scans ld+json script blocks for the first node typed as
// an article (NewsArticle, Article, Report), descending into arrays and
// @graph containers. Broken JSON-LD blocks are skipped.
func findArticleJSONLD(doc *goquery.Document) map[string]interface{} {
	var found map[string]interface{}
	doc.Find("script[type='application/ld+json']").EachWithBreak(func(_ int, script *goquery.Selection) bool {
		raw := strings.TrimSpace(script.Text())
		if raw == "" {
			return true
		}
		var node interface{}
		if err := json.Unmarshal([]byte(raw), &node); err != nil {
			return true
		}
		if article := findArticleNode(node); article != nil {
			found = article
			return false
		}
		return true
	})
	return found
}

func findArticleNode(node interface{}) map[string]interface{} {
	switch typed := node.(type) {
	case []interface{}:
		for _, child := range typed {
			if found := findArticleNode(child); found != nil {
				return found
			}
		}
	case map[string]interface{}:
		if isArticleType(typed["@type"]) {
			return typed
		}
		if graph, ok := typed["@graph"]; ok {
			if found := findArticleNode(graph); found != nil {
				return found
			}
		}
	}
	return nil
}

func isArticleType(value interface{}) bool {
	var typeText string
	switch typed := value.(type) {
	case string:
		typeText = typed
	case []interface{}:
		if len(typed) > 0 {
			typeText, _ = typed[0].(string)
		}
	}
	return strings.Contains(typeText, "NewsArticle") ||
		strings.Contains(typeText, "Article") ||
		strings.Contains(typeText, "Report")
}

// jsonLDString reads a scalar field, unwrapping one-element arrays.
func jsonLDString(node map[string]interface{}, field string) string {
	if node == nil {
		return ""
	}
	switch value := node[field].(type) {
	case string:
		return strings.TrimSpace(value)
	case []interface{}:
		if len(value) > 0 {
			if s, ok := value[0].(string); ok {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// jsonLDImage reads the image field in its common shapes: bare string,
// array of strings, or ImageObject with a url key.
func jsonLDImage(node map[string]interface{}) string {
	if node == nil {
		return ""
	}
	switch value := node["image"].(type) {
	case string:
		return strings.TrimSpace(value)
	case []interface{}:
		if len(value) > 0 {
			if s, ok := value[0].(string); ok {
				return strings.TrimSpace(s)
			}
		}
	case map[string]interface{}:
		if s, ok := value["url"].(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// bestImageSrc prefers the widest srcset candidate over the plain src.
func bestImageSrc(img *goquery.Selection, base *url.URL) string {
	if img == nil || img.Length() == 0 {
		return ""
	}
	if srcset, ok := img.Attr("srcset"); ok {
		if best := pickBestFromSrcset(srcset); best != "" {
			if abs := absoluteURL(base, best); abs != "" {
				return abs
			}
			return best
		}
	}
	src, _ := img.Attr("src")
	if abs := absoluteURL(base, src); abs != "" {
		return abs
	}
	return strings.TrimSpace(src)
}

// pickBestFromSrcset returns the URL with the largest width descriptor.
func pickBestFromSrcset(srcset string) string {
	bestWidth := -1
	bestURL := ""
	for _, part := range strings.Split(srcset, ",") {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		segs := strings.Fields(item)
		width := 0
		if len(segs) > 1 && strings.HasSuffix(segs[1], "w") {
			width, _ = strconv.Atoi(strings.TrimSuffix(segs[1], "w"))
		}
		if width >= bestWidth {
			bestWidth = width
			bestURL = segs[0]
		}
	}
	return bestURL
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// trimTo collapses whitespace and truncates to max runes.
func trimTo(text string, max int) string {
	trimmed := strings.TrimSpace(spaceExpr.ReplaceAllString(text, " "))
	runes := []rune(trimmed)
	if len(runes) > max {
		return string(runes[:max])
	}
	return trimmed
}

// normalizeDate coerces common timestamp formats into RFC 3339; anything
// unparseable falls back to the provided default.
func normalizeDate(input, fallback string) string {
	value := strings.TrimSpace(input)
	if value == "" {
		return fallback
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC().Format(time.RFC3339)
		}
	}
	return fallback
}
