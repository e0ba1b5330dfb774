package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	// Browser-like identity; bare library user agents get blocked outright
	// on several of the covered sites.
	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	referrer       = "https://www.google.com/"
	acceptLanguage = "zh-CN,zh;q=0.9,en;q=0.8"

	defaultTimeout = 20 * time.Second
	defaultRetries = 2
	retryBaseDelay = 500 * time.Millisecond
)

// Client fetches and parses HTML pages with a bounded retry budget.
type Client struct {
	httpClient *http.Client
	retries    int
	logger     *slog.Logger
}

// NewClient wires an HTTP client; a nil client gets the default timeout.
func NewClient(httpClient *http.Client, retries int, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if retries < 0 {
		retries = defaultRetries
	}
	return &Client{httpClient: httpClient, retries: retries, logger: logger}
}

// FetchDocument downloads a page and parses it. Failed attempts are retried
// with a linear backoff (delay grows with the attempt number) before the
// last error is surfaced.
func (c *Client) FetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			time.Sleep(retryBaseDelay * time.Duration(attempt))
		}

		start := time.Now()
		doc, err := c.fetchOnce(ctx, pageURL)
		if err == nil {
			c.debug("fetch ok", "url", pageURL, "cost", time.Since(start))
			return doc, nil
		}

		lastErr = err
		c.debug("fetch failed", "url", pageURL,
			"attempt", fmt.Sprintf("%d/%d", attempt+1, c.retries+1), "error", err)
	}
	return nil, lastErr
}

func (c *Client) fetchOnce(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", referrer)
	req.Header.Set("Accept-Language", acceptLanguage)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if parsed := resp.Request.URL; parsed != nil {
		doc.Url = parsed
	}

	return doc, nil
}

func (c *Client) debug(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
