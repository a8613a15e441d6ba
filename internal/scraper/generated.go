package scraper

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"avinfo/internal/tagging"
	"avinfo/pkg/models"
)

const (
	generatedSourcePrefix = "internal://topics/"
	trendPool             = 50
	trendTop              = 5
)

// LatestReader is the store read the generated topics need.
type LatestReader interface {
	LatestByType(ctx context.Context, typ models.ArticleType, limit int) ([]models.Article, error)
}

// GeneratedSource produces topic text from the tag vocabulary and from what
// is already stored. Every slug embeds the day, so reruns overwrite.
type GeneratedSource struct {
	store       LatestReader
	perRun      int
	rankingSize int
}

func NewGeneratedSource(store LatestReader, perRun, rankingSize int) *GeneratedSource {
	return &GeneratedSource{store: store, perRun: perRun, rankingSize: rankingSize}
}

// Daily rotates over the vocabulary by day of year, perRun themes per day.
func (g *GeneratedSource) Daily(now time.Time) []models.RawTopic {
	vocab := tagging.Vocabulary()
	out := []models.RawTopic{}
	if g.perRun <= 0 || len(vocab) == 0 {
		return out
	}
	n := min(g.perRun, len(vocab))
	start := now.YearDay() % len(vocab)
	for i := 0; i < n; i++ {
		tag := vocab[(start+i)%len(vocab)]
		label := tagging.Label(tag)
		slug := fmt.Sprintf("topic-%s-%s", now.Format("20060102"), tag)
		out = append(out, models.RawTopic{
			Slug:    slug,
			Title:   fmt.Sprintf("今日の注目テーマ: %s (%s)", label, now.Format("1/2")),
			Summary: tagging.Summary(tag),
			Body: []string{
				"テーマ: " + label,
				"キーワード: " + strings.Join(tagging.Keywords(tag), " / "),
				"解説: " + tagging.Summary(tag),
			},
			SourceURL: generatedSourcePrefix + slug,
			FetchedAt: now,
		})
	}
	return out
}

// Rankings builds the new-release and maker rankings over the latest works.
// An empty store yields no topics.
func (g *GeneratedSource) Rankings(ctx context.Context, now time.Time) ([]models.RawTopic, error) {
	works, err := g.store.LatestByType(ctx, models.TypeWork, max(g.rankingSize, trendPool))
	if err != nil {
		return nil, fmt.Errorf("load works for rankings: %w", err)
	}
	out := []models.RawTopic{}
	if len(works) == 0 {
		return out, nil
	}
	day := now.Format("20060102")
	date := now.Format("2006/01/02")

	top := works[:min(g.rankingSize, len(works))]
	lines := make([]string, 0, len(top))
	for i, w := range top {
		lines = append(lines, fmt.Sprintf("%d位: %s", i+1, w.Title))
	}
	slug := "ranking-new-" + day
	out = append(out, models.RawTopic{
		Slug:      slug,
		Title:     fmt.Sprintf("新作ランキング (%s)", date),
		Summary:   fmt.Sprintf("最新の注目作品%d本をランキング形式で紹介します。", len(top)),
		Body:      lines,
		SourceURL: generatedSourcePrefix + slug,
		Images:    firstImage(top),
		FetchedAt: now,
	})

	makers := countFacts(works, func(a models.Article) []string {
		m, _ := tagging.SplitMeta(tagging.ExtractMetaTags(a.Body))
		return m
	})
	if len(makers) > 0 {
		makers = makers[:min(g.rankingSize, len(makers))]
		lines := make([]string, 0, len(makers))
		for i, c := range makers {
			lines = append(lines, fmt.Sprintf("%d位: %s (%d件)", i+1, c.name, c.count))
		}
		slug := "ranking-maker-" + day
		out = append(out, models.RawTopic{
			Slug:      slug,
			Title:     fmt.Sprintf("メーカー別ランキング (%s)", date),
			Summary:   "最新作品の本数が多いメーカーをまとめました。",
			Body:      lines,
			SourceURL: generatedSourcePrefix + slug,
			FetchedAt: now,
		})
	}
	return out, nil
}

// Summaries writes one trend digest: the most frequent genres and
// performers among the latest works.
func (g *GeneratedSource) Summaries(ctx context.Context, now time.Time) ([]models.RawTopic, error) {
	works, err := g.store.LatestByType(ctx, models.TypeWork, trendPool)
	if err != nil {
		return nil, fmt.Errorf("load works for summary: %w", err)
	}
	out := []models.RawTopic{}
	if len(works) == 0 {
		return out, nil
	}

	genres := countFacts(works, func(a models.Article) []string {
		_, gs := tagging.SplitMeta(tagging.ExtractMetaTags(a.Body))
		return gs
	})
	performers := countFacts(works, func(a models.Article) []string {
		return bodyValues(a.Body, "出演")
	})

	var body []string
	if line := trendLine(genres); line != "" {
		body = append(body, "注目ジャンル: "+line)
	}
	if line := trendLine(performers); line != "" {
		body = append(body, "注目出演者: "+line)
	}
	body = append(body, fmt.Sprintf("集計対象: 最新%d作品", len(works)))

	slug := "summary-" + now.Format("20060102")
	out = append(out, models.RawTopic{
		Slug:      slug,
		Title:     fmt.Sprintf("最新作品のトレンドまとめ (%s)", now.Format("2006/01/02")),
		Summary:   "直近の新作から人気のジャンルと出演者の傾向をまとめました。",
		Body:      body,
		SourceURL: generatedSourcePrefix + slug,
		Images:    firstImage(works),
		FetchedAt: now,
	})
	return out, nil
}

type factCount struct {
	name  string
	count int
}

// countFacts tallies facts over works, most frequent first, ties by name.
func countFacts(works []models.Article, facts func(models.Article) []string) []factCount {
	counts := map[string]int{}
	for _, w := range works {
		for _, f := range facts(w) {
			if f = strings.TrimSpace(f); f != "" {
				counts[f]++
			}
		}
	}
	out := make([]factCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, factCount{name: name, count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].name < out[j].name
	})
	return out
}

func trendLine(counts []factCount) string {
	counts = counts[:min(trendTop, len(counts))]
	parts := make([]string, 0, len(counts))
	for i, c := range counts {
		parts = append(parts, fmt.Sprintf("%d. %s (%d件)", i+1, c.name, c.count))
	}
	return strings.Join(parts, " / ")
}

// bodyValues splits the "label: A / B" line of body.
func bodyValues(body, label string) []string {
	prefix := label + ":"
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, prefix) {
			return strings.Split(strings.TrimPrefix(line, prefix), "/")
		}
	}
	return nil
}

func firstImage(works []models.Article) []models.ArticleImage {
	for _, w := range works {
		if len(w.Images) > 0 {
			return []models.ArticleImage{w.Images[0]}
		}
	}
	return nil
}
