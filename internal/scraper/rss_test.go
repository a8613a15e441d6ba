package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avinfo/internal/config"
	"avinfo/internal/httpclient"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Example News</title>
  <item>
    <title>新作特集</title>
    <link>https://news.example/posts/1</link>
    <guid>post-1</guid>
    <category>特集</category>
    <pubDate>Wed, 01 May 2024 09:00:00 +0900</pubDate>
    <description><![CDATA[<p>本日配信の<b>注目</b>作品</p><img src="https://news.example/img/1.jpg">]]></description>
  </item>
  <item>
    <title>Second</title>
    <link>https://news.example/posts/2</link>
    <description>plain text</description>
  </item>
  <item>
    <title>Third</title>
    <link>https://news.example/posts/3</link>
  </item>
</channel>
</rss>`

func feedServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/feed":
			w.Header().Set("Content-Type", "application/rss+xml")
			_, _ = w.Write([]byte(sampleFeed))
		case "/broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRSSSource_Fetch(t *testing.T) {
	t.Parallel()

	srv := feedServer(t)
	cfg := config.RSSConfig{FeedURLs: []string{srv.URL + "/broken", srv.URL + "/feed", srv.URL + "/feed"}, MaxItems: 2}
	src := NewRSSSource(cfg, httpclient.New(testPolicy()), nil)

	items, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2, "max items per feed, duplicates merged by slug")

	first := items[0]
	assert.Equal(t, FeedSlug("https://news.example/posts/1"), first.Slug)
	assert.Equal(t, "Example News", first.FeedTitle)
	assert.Equal(t, "新作特集", first.Title)
	assert.Equal(t, "本日配信の注目作品", first.Summary)
	assert.Equal(t, "https://news.example/img/1.jpg", first.ImageURL)
	assert.Equal(t, []string{"特集"}, first.Categories)
	require.NotNil(t, first.PublishedAt)
	assert.Equal(t, 2024, first.PublishedAt.Year())

	assert.Equal(t, "plain text", items[1].Summary)
	assert.Nil(t, items[1].PublishedAt)
}

func TestRSSSource_Fetch_AllFeedsFail(t *testing.T) {
	t.Parallel()

	srv := feedServer(t)
	cfg := config.RSSConfig{FeedURLs: []string{srv.URL + "/broken", srv.URL + "/missing"}, MaxItems: 5}
	_, err := NewRSSSource(cfg, httpclient.New(testPolicy()), nil).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 sources failed")
}

func TestRSSSource_Fetch_NoFeeds(t *testing.T) {
	t.Parallel()

	items, err := NewRSSSource(config.RSSConfig{MaxItems: 5}, httpclient.New(testPolicy()), nil).Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestFeedSlug(t *testing.T) {
	t.Parallel()

	slug := FeedSlug("https://news.example/posts/1")
	assert.Regexp(t, regexp.MustCompile(`^rss-[0-9a-f]{16}$`), slug)
	assert.Equal(t, slug, FeedSlug("https://news.example/posts/1"))
	assert.NotEqual(t, slug, FeedSlug("https://news.example/posts/2"))
}

func TestFlattenHTML(t *testing.T) {
	t.Parallel()

	text, img := flattenHTML(`<div>Hello <br/> <a href="#">world</a></div><img src=" /a.png "><img src="/b.png">`)
	assert.Equal(t, "Hello world", text)
	assert.Equal(t, "/a.png", img)

	text, img = flattenHTML("  ")
	assert.Empty(t, text)
	assert.Empty(t, img)
}
