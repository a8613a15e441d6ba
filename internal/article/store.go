// Package article persists normalized articles: insert-or-overwrite by slug
// with a fallback overwrite by source URL, the read queries the pipelines
// need, and the aggregate stats refresh.
package article

import (
	"context"
	"errors"
	"strings"
	"time"

	"avinfo/internal/tagging"
	"avinfo/pkg/models"
)

// ErrNoRowsUpdated is returned when the source_url fallback matched nothing.
var ErrNoRowsUpdated = errors.New("fallback update matched no rows")

type Status string

const (
	StatusCreated Status = "created"
	StatusUpdated Status = "updated"
)

// ConflictKey names the key the write converged on.
type ConflictKey string

const (
	ConflictSlug      ConflictKey = "slug"
	ConflictSourceURL ConflictKey = "source_url"
)

type UpsertResult struct {
	Status   Status
	Conflict ConflictKey
}

// Store is implemented by the sqlite Repo and the postgres PGRepo.
type Store interface {
	Upsert(ctx context.Context, a *models.Article) (UpsertResult, error)
	KnownSlugs(ctx context.Context, typ models.ArticleType, limit int) (KnownSet, error)
	FindByPerformer(ctx context.Context, performerSlug string, limit int) ([]models.Article, error)
	LatestByType(ctx context.Context, typ models.ArticleType, limit int) ([]models.Article, error)
	LatestByTypePage(ctx context.Context, typ models.ArticleType, page, perPage int) ([]models.Article, int, error)
	GetBySlug(ctx context.Context, slug string) (*models.Article, error)
	All(ctx context.Context) ([]models.Article, error)
	RefreshSiteStats(ctx context.Context) error
	RefreshPerformerStats(ctx context.Context) error
}

// KnownSet is an immutable snapshot of natural keys, compared upper-cased.
type KnownSet map[string]struct{}

func NewKnownSet(keys []string) KnownSet {
	s := make(KnownSet, len(keys))
	for _, k := range keys {
		if k = strings.ToUpper(strings.TrimSpace(k)); k != "" {
			s[k] = struct{}{}
		}
	}
	return s
}

func (s KnownSet) Has(key string) bool {
	_, ok := s[strings.ToUpper(strings.TrimSpace(key))]
	return ok
}

func (s KnownSet) Len() int { return len(s) }

// derived holds the columns computed from the article text.
type derived struct {
	Tags   []string
	Genres []string
	Makers []string
}

func derive(a *models.Article) derived {
	makers, genres := tagging.SplitMeta(tagging.ExtractMetaTags(a.Body))
	return derived{
		Tags:   tagging.ExtractTags(a.Title + "\n" + a.Summary + "\n" + a.Body),
		Genres: genres,
		Makers: makers,
	}
}

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

func pageBounds(page, perPage int) (limit, offset int) {
	if perPage <= 0 || perPage > maxPerPage {
		perPage = defaultPerPage
	}
	if page < 1 {
		page = 1
	}
	return perPage, (page - 1) * perPage
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
