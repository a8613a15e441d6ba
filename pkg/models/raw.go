package models

import (
	"strings"
	"time"
)

// RawWork is a catalog API item before normalization.
type RawWork struct {
	ContentID    string         `json:"content_id"`
	Title        string         `json:"title"`
	Actresses    []string       `json:"actresses"`
	Maker        string         `json:"maker,omitempty"`
	Label        string         `json:"label,omitempty"`
	Genres       []string       `json:"genres"`
	Series       string         `json:"series,omitempty"`
	ReleaseDate  string         `json:"release_date,omitempty"`
	Images       []ArticleImage `json:"images"`
	CanonicalURL string         `json:"canonical_url"`
	AffiliateURL string         `json:"affiliate_url,omitempty"`
	EmbedHTML    string         `json:"embed_html,omitempty"`
	// EmbedRejected is set when the fetcher probed the player and found a miss;
	// the normalizer must not rebuild the embed in that case.
	EmbedRejected bool      `json:"embed_rejected,omitempty"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// RawFeedItem is one RSS/Atom entry.
type RawFeedItem struct {
	Slug        string     `json:"slug"`
	FeedTitle   string     `json:"feed_title"`
	GUID        string     `json:"guid"`
	Title       string     `json:"title"`
	Link        string     `json:"link"`
	Summary     string     `json:"summary"`
	ImageURL    string     `json:"image_url,omitempty"`
	Categories  []string   `json:"categories,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	FetchedAt   time.Time  `json:"fetched_at"`
}

// RawTopic is internally generated text (daily topics, rankings, summaries).
type RawTopic struct {
	Slug      string         `json:"slug"`
	Title     string         `json:"title"`
	Summary   string         `json:"summary"`
	Body      []string       `json:"body"` // already "label: value" lines
	SourceURL string         `json:"source_url"`
	Images    []ArticleImage `json:"images,omitempty"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// SheetRow is one spreadsheet row keyed by its (trimmed) header cell.
type SheetRow map[string]string

// Get returns the trimmed cell value for key, or "".
func (r SheetRow) Get(key string) string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r[key])
}
