package domain

import "time"

// SourceType distinguishes how a feed source is ingested.
type SourceType string

const (
	SourceTypeRSS SourceType = "RSS"
	SourceTypeWeb SourceType = "WEB"
)

// FeedSource is a registered upstream to pull articles from. ETag and
// LastModified cache the validators of the last successful RSS fetch.
type FeedSource struct {
	ID           int64
	Name         string
	URL          string
	SourceType   SourceType
	Enabled      bool
	Category     string
	ETag         string
	LastModified string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Article is the canonical shape every source is normalized into.
// PublishedAt and ScrapedAt are RFC 3339 strings; ThumbnailURL and
// RawContent may be empty. SourceURL is the dedupe key.
type Article struct {
	ID           int64
	Title        string
	SourceURL    string
	SourceName   string
	PublishedAt  string
	ScrapedAt    string
	Summary      string
	Tags         string
	ThumbnailURL string
	RawContent   string
	Category     string
}

// TaskStatus enumerates thumbnail task states.
type TaskStatus string

const (
	TaskWaiting TaskStatus = "WAITING"
	TaskRunning TaskStatus = "RUNNING"
	TaskSuccess TaskStatus = "SUCCESS"
	TaskFailed  TaskStatus = "FAILED"
)

// ThumbnailTask tracks asynchronous thumbnail resolution for one article.
// ArticleID is a soft reference: the article may be deleted independently,
// so ArticleURL keeps a copy of the URL to scrape.
type ThumbnailTask struct {
	ID          int64
	ArticleID   int64
	ArticleURL  string
	Status      TaskStatus
	Attempts    int
	NextRetryAt *time.Time
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
