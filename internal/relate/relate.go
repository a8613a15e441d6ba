// Package relate discovers related works and performers for a freshly
// normalized article before it is stored.
package relate

import (
	"context"
	"fmt"
	"strings"

	"avinfo/internal/tagging"
	"avinfo/pkg/models"
	"avinfo/pkg/utils"
)

const (
	perPerformer      = 4
	performerCap      = 8
	metaPool          = 80
	metaCap           = 4
	topicPool         = 20
	topicWorksCap     = 6
	topicPerformerCap = 6
	explainedTags     = 2
)

// Reader is the read side of the article store the linker needs.
type Reader interface {
	FindByPerformer(ctx context.Context, performerSlug string, limit int) ([]models.Article, error)
	LatestByType(ctx context.Context, typ models.ArticleType, limit int) ([]models.Article, error)
}

// PickRelated returns up to limit slugs from pool, never self. With tags,
// candidates whose title contains one of the tags' keywords are preferred;
// if none match, the whole pool is used.
func PickRelated(pool []models.Article, tags []string, limit int, self string) []string {
	out := []string{}
	if limit <= 0 {
		return out
	}

	candidates := pool
	if len(tags) > 0 {
		var keywords []string
		for _, tag := range tags {
			keywords = append(keywords, tagging.Keywords(tag)...)
		}
		var filtered []models.Article
		for _, a := range pool {
			if a.Slug != self && containsAny(a.Title, keywords) {
				filtered = append(filtered, a)
			}
		}
		if len(filtered) > 0 {
			candidates = filtered
		}
	}

	seen := make(map[string]bool, limit)
	for _, a := range candidates {
		if len(out) == limit {
			break
		}
		if a.Slug == "" || a.Slug == self || seen[a.Slug] {
			continue
		}
		seen[a.Slug] = true
		out = append(out, a.Slug)
	}
	return out
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

type Linker struct {
	store Reader
}

func NewLinker(store Reader) *Linker {
	return &Linker{store: store}
}

// LinkWork fills RelatedWorks for a catalog work: works sharing a performer
// (capped at 8) followed by works whose body carries every maker/genre fact
// of this one (capped at 4).
func (l *Linker) LinkWork(ctx context.Context, a *models.Article) error {
	var byPerformer []string
	for _, performer := range a.RelatedActresses {
		works, err := l.store.FindByPerformer(ctx, performer, perPerformer)
		if err != nil {
			return fmt.Errorf("find works by performer %s: %w", performer, err)
		}
		for _, w := range works {
			if w.Slug != a.Slug {
				byPerformer = append(byPerformer, w.Slug)
			}
		}
	}
	byPerformer = utils.UniqueStrings(byPerformer)
	if len(byPerformer) > performerCap {
		byPerformer = byPerformer[:performerCap]
	}

	var byMeta []string
	facts := metaFacts(a.Body)
	if len(facts) > 0 {
		latest, err := l.store.LatestByType(ctx, models.TypeWork, metaPool)
		if err != nil {
			return fmt.Errorf("latest works: %w", err)
		}
		for _, w := range latest {
			if len(byMeta) == metaCap {
				break
			}
			if w.Slug != a.Slug && containsAll(w.Body, facts) {
				byMeta = append(byMeta, w.Slug)
			}
		}
	}

	a.RelatedWorks = utils.UniqueStrings(append(byPerformer, byMeta...))
	return nil
}

func metaFacts(body string) []string {
	meta := tagging.ExtractMetaTags(body)
	makers, genres := tagging.SplitMeta(meta)
	return append(makers, genres...)
}

func containsAll(s string, facts []string) bool {
	for _, f := range facts {
		if !strings.Contains(s, f) {
			return false
		}
	}
	return true
}

// LinkTopic relates a topic to recent works by tag and appends a short tag
// explanation block to its body.
func (l *Linker) LinkTopic(ctx context.Context, a *models.Article) error {
	latest, err := l.store.LatestByType(ctx, models.TypeWork, topicPool)
	if err != nil {
		return fmt.Errorf("latest works: %w", err)
	}

	tags := tagging.ExtractTags(a.Title + " " + a.Summary)
	related := PickRelated(latest, tags, topicWorksCap, a.Slug)

	picked := make(map[string]bool, len(related))
	for _, s := range related {
		picked[s] = true
	}
	var performers []string
	for _, w := range latest {
		if picked[w.Slug] {
			performers = append(performers, w.RelatedActresses...)
		}
	}
	performers = utils.UniqueStrings(performers)
	if len(performers) > topicPerformerCap {
		performers = performers[:topicPerformerCap]
	}

	a.RelatedWorks = related
	a.RelatedActresses = performers
	a.Body = AppendTagSummary(a.Body, tags)
	return nil
}

// AppendTagSummary adds a "タグ解説" block for the first two tags.
func AppendTagSummary(body string, tags []string) string {
	if len(tags) == 0 {
		return body
	}
	if len(tags) > explainedTags {
		tags = tags[:explainedTags]
	}
	lines := make([]string, 0, len(tags))
	for _, tag := range tags {
		lines = append(lines, fmt.Sprintf("- #%s: %s", tagging.Label(tag), tagging.Summary(tag)))
	}
	return body + "\n\nタグ解説:\n" + strings.Join(lines, "\n")
}
