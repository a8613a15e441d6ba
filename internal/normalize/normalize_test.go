package normalize

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avinfo/internal/config"
	"avinfo/internal/placeholder"
	"avinfo/pkg/models"
)

var fixedNow = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func newTestNormalizer(cfg Config) *Normalizer {
	return New(cfg, placeholder.New(config.Default().Patterns),
		WithClock(func() time.Time { return fixedNow }),
		WithIDFunc(func() string { return "id-1" }),
	)
}

func defaultCfg() Config {
	return Config{LinkAffiliateID: "aff-990", EmbedAffiliateID: "emb-001", EmbedSize: "1280_720"}
}

func rawWork() models.RawWork {
	return models.RawWork{
		ContentID:    "abc00123",
		Title:        "新人デビュー作品",
		Actresses:    []string{"Yua Mikami", "三上 悠亜"},
		Maker:        "S1",
		Genres:       []string{"単体作品", "ハイビジョン"},
		ReleaseDate:  "2026-03-30 10:00:00",
		CanonicalURL: "https://www.dmm.co.jp/digital/videoa/-/detail/=/cid=abc00123/",
	}
}

func TestWork_NoImagesGivesEmptySlice(t *testing.T) {
	t.Parallel()

	a := newTestNormalizer(defaultCfg()).Work(rawWork(), fixedNow)
	require.NotNil(t, a)
	require.NotNil(t, a.Images)
	assert.Empty(t, a.Images)
}

func TestWork_Fields(t *testing.T) {
	t.Parallel()

	raw := rawWork()
	raw.Images = []models.ArticleImage{
		{URL: "https://pics.dmm.co.jp/now_printing.jpg", Alt: "x"},
		{URL: "https://pics.dmm.co.jp/digital/video/abc00123/abc00123pl.jpg", Alt: "cover"},
	}
	a := newTestNormalizer(defaultCfg()).Work(raw, fixedNow)
	require.NotNil(t, a)

	assert.Equal(t, "ABC00123", a.Slug)
	assert.Equal(t, models.TypeWork, a.Type)
	assert.Equal(t, "id-1", a.ID)
	assert.Equal(t, "新人デビュー作品 の作品情報。", a.Summary)
	assert.Equal(t, []string{"yua-mikami", "三上-悠亜"}, a.RelatedActresses)
	assert.Equal(t, []string{}, a.RelatedWorks)
	assert.Len(t, a.Images, 1)
	assert.Equal(t, fixedNow, a.PublishedAt)
	assert.Equal(t, strings.Join([]string{
		"作品番号: ABC00123",
		"出演: Yua Mikami / 三上 悠亜",
		"メーカー: S1",
		"ジャンル: 単体作品 / ハイビジョン",
		"配信日: 2026-03-30 10:00:00",
		"概要: 新人デビュー作品",
	}, "\n"), a.Body)
	assert.Contains(t, a.AffiliateURL, "aff_id=aff-990")
	assert.Contains(t, a.EmbedHTML, "affi_id=emb-001/cid=abc00123/size=1280_720/")
}

func TestWork_OmitsAbsentFacts(t *testing.T) {
	t.Parallel()

	raw := rawWork()
	raw.Actresses = nil
	raw.Maker = ""
	raw.Genres = nil
	raw.ReleaseDate = ""
	a := newTestNormalizer(defaultCfg()).Work(raw, fixedNow)
	require.NotNil(t, a)
	assert.Equal(t, "作品番号: ABC00123\n概要: 新人デビュー作品", a.Body)
	assert.Equal(t, []string{}, a.RelatedActresses)
}

func TestWork_Rejections(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(defaultCfg())
	noID := rawWork()
	noID.ContentID = ""
	assert.Nil(t, n.Work(noID, fixedNow))

	noURL := rawWork()
	noURL.CanonicalURL = ""
	assert.Nil(t, n.Work(noURL, fixedNow))

	bare := newTestNormalizer(Config{})
	assert.Nil(t, bare.Work(rawWork(), fixedNow), "no affiliate id and no embed")
}

func TestWork_EmbedRejectedKeepsAffiliate(t *testing.T) {
	t.Parallel()

	raw := rawWork()
	raw.EmbedRejected = true
	a := newTestNormalizer(defaultCfg()).Work(raw, fixedNow)
	require.NotNil(t, a)
	assert.Empty(t, a.EmbedHTML)
	assert.NotEmpty(t, a.AffiliateURL)

	onlyEmbed := Config{EmbedAffiliateID: "emb"}
	raw.AffiliateURL = ""
	assert.Nil(t, newTestNormalizer(onlyEmbed).Work(raw, fixedNow))
}

func TestAffiliateURL(t *testing.T) {
	t.Parallel()

	canonical := "https://www.dmm.co.jp/digital/videoa/-/detail/=/cid=abc00123/"
	tests := []struct {
		name string
		cfg  Config
		in   string
		want string
	}{
		{
			name: "default aff_id",
			cfg:  Config{LinkAffiliateID: "aff-990"},
			in:   canonical,
			want: canonical + "?aff_id=aff-990",
		},
		{
			name: "existing aff_id kept",
			cfg:  Config{LinkAffiliateID: "aff-990"},
			in:   canonical + "?aff_id=other",
			want: canonical + "?aff_id=other",
		},
		{
			name: "template",
			cfg:  Config{LinkAffiliateID: "aff-990", URLTemplate: "https://al.example/?lurl={encoded_url}&af_id={affiliate_id}"},
			in:   "https://x.example/a?b=1",
			want: "https://al.example/?lurl=https%3A%2F%2Fx.example%2Fa%3Fb%3D1&af_id=aff-990",
		},
		{
			name: "utm wins over template",
			cfg:  Config{LinkAffiliateID: "aff-990", LinkStyle: "utm", URLTemplate: "{url}"},
			in:   "https://x.example/a",
			want: "https://x.example/a?utm_campaign=affiliate_search_link&utm_content=link&utm_medium=dmm_affiliate&utm_source=aff-990&utm_term=fanza.co.jp",
		},
		{
			name: "no affiliate id",
			cfg:  Config{},
			in:   canonical,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, newTestNormalizer(tt.cfg).AffiliateURL(tt.in))
		})
	}
}

func TestEmbedURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://www.dmm.co.jp/litevideo/-/part/=/affi_id=a/cid=abc00123/size=720_480/", EmbedURL("a", " ABC00123 ", "720_480"))
	assert.Empty(t, EmbedURL("", "abc", ""))
	assert.Empty(t, EmbedHTML(""))
}

func TestTopicAndFeed(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(defaultCfg())
	assert.Nil(t, n.Topic(models.RawTopic{Title: "x", SourceURL: "internal://x"}, fixedNow))

	topic := n.Topic(models.RawTopic{
		Slug:      "topic-20260401-newcomer",
		Title:     "今日の新人特集",
		Body:      []string{"テーマ: 新人", "", "注目: 3件"},
		SourceURL: "internal://topics/topic-20260401-newcomer",
	}, fixedNow)
	require.NotNil(t, topic)
	assert.Equal(t, models.TypeTopic, topic.Type)
	assert.Equal(t, "テーマ: 新人\n注目: 3件", topic.Body)
	assert.Equal(t, "今日の新人特集", topic.Summary)
	assert.NotNil(t, topic.Images)

	published := time.Date(2026, 3, 31, 8, 0, 0, 0, time.UTC)
	feed := n.Feed(models.RawFeedItem{
		Slug:        "rss-0123456789abcdef",
		FeedTitle:   "News",
		Title:       "Headline",
		Link:        "https://news.example/1",
		Summary:     "Body text",
		ImageURL:    "https://news.example/1.jpg",
		PublishedAt: &published,
	}, fixedNow)
	require.NotNil(t, feed)
	assert.Equal(t, published, feed.PublishedAt)
	assert.Equal(t, "https://news.example/1", feed.SourceURL)
	assert.Equal(t, []models.ArticleImage{{URL: "https://news.example/1.jpg", Alt: "Headline"}}, feed.Images)
	assert.Contains(t, feed.Body, "配信元: News")

	noDate := n.Feed(models.RawFeedItem{Slug: "rss-1", Link: "https://news.example/2"}, fixedNow)
	require.NotNil(t, noDate)
	assert.Equal(t, fixedNow, noDate.PublishedAt)
	assert.Nil(t, n.Feed(models.RawFeedItem{Slug: "rss-2"}, fixedNow))
}
