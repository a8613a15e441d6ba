package scraper

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"avinfo/internal/config"
	"avinfo/internal/httpclient"
	"avinfo/internal/logger"
	"avinfo/pkg/models"
)

// RSSSource reads every configured feed and merges the entries by slug.
type RSSSource struct {
	agg *Aggregator[models.RawFeedItem]
}

func NewRSSSource(cfg config.RSSConfig, client *httpclient.Client, log *logger.Logger) *RSSSource {
	sources := make([]Source[models.RawFeedItem], 0, len(cfg.FeedURLs))
	for _, u := range cfg.FeedURLs {
		sources = append(sources, &feedSource{url: u, maxItems: cfg.MaxItems, client: client, now: time.Now})
	}
	key := func(it models.RawFeedItem) string { return it.Slug }
	return &RSSSource{agg: NewAggregator(log, key, sources...)}
}

func (s *RSSSource) Name() string { return "rss" }

// Fetch returns an empty list when no feeds are configured. It fails only
// when every feed failed.
func (s *RSSSource) Fetch(ctx context.Context) ([]models.RawFeedItem, error) {
	if len(s.agg.Sources) == 0 {
		s.agg.Log.Info("no rss feeds configured, skipping")
		return []models.RawFeedItem{}, nil
	}
	return s.agg.FetchAndMerge(ctx)
}

type feedSource struct {
	url      string
	maxItems int
	client   *httpclient.Client
	now      func() time.Time
}

func (f *feedSource) Name() string { return f.url }

func (f *feedSource) FetchAll(ctx context.Context) ([]models.RawFeedItem, error) {
	resp, err := f.client.Get(ctx, f.url)
	if err != nil {
		return nil, err
	}
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	fetchedAt := f.now()
	out := make([]models.RawFeedItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		if f.maxItems > 0 && len(out) >= f.maxItems {
			break
		}
		key := strings.TrimSpace(it.Link)
		if key == "" {
			key = strings.TrimSpace(it.GUID)
		}
		if key == "" {
			continue
		}

		html := it.Description
		if html == "" {
			html = it.Content
		}
		text, img := flattenHTML(html)
		if img == "" {
			img = itemImage(it)
		}

		out = append(out, models.RawFeedItem{
			Slug:        FeedSlug(key),
			FeedTitle:   strings.TrimSpace(feed.Title),
			GUID:        it.GUID,
			Title:       strings.TrimSpace(it.Title),
			Link:        strings.TrimSpace(it.Link),
			Summary:     text,
			ImageURL:    img,
			Categories:  it.Categories,
			PublishedAt: itemTime(it),
			FetchedAt:   fetchedAt,
		})
	}
	return out, nil
}

// FeedSlug is "rss-" plus 16 hex chars of a name-based UUID over key, so the
// same entry maps to the same slug on every run.
func FeedSlug(key string) string {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(key))
	return "rss-" + strings.ReplaceAll(id.String(), "-", "")[:16]
}

// flattenHTML returns the whitespace-collapsed text of fragment and the src
// of its first image.
func flattenHTML(fragment string) (string, string) {
	if strings.TrimSpace(fragment) == "" {
		return "", ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " "), ""
	}
	src, _ := doc.Find("img").First().Attr("src")
	return strings.Join(strings.Fields(doc.Text()), " "), strings.TrimSpace(src)
}

func itemImage(it *gofeed.Item) string {
	if it.Image != nil && it.Image.URL != "" {
		return it.Image.URL
	}
	for _, enc := range it.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return ""
}

func itemTime(it *gofeed.Item) *time.Time {
	if it.PublishedParsed != nil {
		return it.PublishedParsed
	}
	return it.UpdatedParsed
}
