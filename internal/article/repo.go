package article

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/mattn/go-sqlite3"

	"avinfo/pkg/models"
)

// Repo is the sqlite-backed Store.
type Repo struct {
	DB  *sql.DB
	now func() time.Time
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db, now: time.Now}
}

const selectColumns = `id, type, slug, title, summary, body, images, source_url, affiliate_url,
	embed_html, related_works, related_actresses, published_at, fetched_at`

// Upsert writes a by slug. When another row already owns a's source URL
// the write falls back to overwriting that row instead.
func (r *Repo) Upsert(ctx context.Context, a *models.Article) (UpsertResult, error) {
	vals, err := r.values(a)
	if err != nil {
		return UpsertResult{}, err
	}

	var returnedID string
	err = r.DB.QueryRowContext(ctx, `
		INSERT INTO articles (
			id, type, slug, title, summary, body, images, source_url, affiliate_url, embed_html,
			related_works, related_actresses, tags, meta_genres, meta_makers,
			published_at, fetched_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			type = excluded.type,
			title = excluded.title,
			summary = excluded.summary,
			body = excluded.body,
			images = excluded.images,
			source_url = excluded.source_url,
			affiliate_url = excluded.affiliate_url,
			embed_html = excluded.embed_html,
			related_works = excluded.related_works,
			related_actresses = excluded.related_actresses,
			tags = excluded.tags,
			meta_genres = excluded.meta_genres,
			meta_makers = excluded.meta_makers,
			published_at = excluded.published_at,
			fetched_at = excluded.fetched_at,
			updated_at = excluded.updated_at
		RETURNING id
	`, append([]any{a.ID}, vals...)...).Scan(&returnedID)

	if err == nil {
		if returnedID == a.ID {
			return UpsertResult{Status: StatusCreated, Conflict: ConflictSlug}, nil
		}
		return UpsertResult{Status: StatusUpdated, Conflict: ConflictSlug}, nil
	}
	if !isUniqueViolation(err) {
		return UpsertResult{}, fmt.Errorf("upsert %s: %w", a.Slug, err)
	}

	res, err := r.DB.ExecContext(ctx, `
		UPDATE articles SET
			type = ?, slug = ?, title = ?, summary = ?, body = ?, images = ?, source_url = ?,
			affiliate_url = ?, embed_html = ?, related_works = ?, related_actresses = ?,
			tags = ?, meta_genres = ?, meta_makers = ?, published_at = ?, fetched_at = ?, updated_at = ?
		WHERE source_url = ?
	`, append(vals, a.SourceURL)...)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("fallback update %s: %w", a.SourceURL, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return UpsertResult{}, fmt.Errorf("fallback rows affected: %w", err)
	}
	if n == 0 {
		return UpsertResult{}, fmt.Errorf("%s: %w", a.SourceURL, ErrNoRowsUpdated)
	}
	return UpsertResult{Status: StatusUpdated, Conflict: ConflictSourceURL}, nil
}

// values returns every written column except id, in insert order.
func (r *Repo) values(a *models.Article) ([]any, error) {
	d := derive(a)
	jsonCols := []any{orEmpty(a.Images), orEmpty(a.RelatedWorks), orEmpty(a.RelatedActresses),
		orEmpty(d.Tags), orEmpty(d.Genres), orEmpty(d.Makers)}
	encoded := make([]string, len(jsonCols))
	for i, v := range jsonCols {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", a.Slug, err)
		}
		encoded[i] = string(b)
	}

	return []any{
		string(a.Type), a.Slug, a.Title, a.Summary, a.Body, encoded[0], a.SourceURL,
		nullable(a.AffiliateURL), nullable(a.EmbedHTML), encoded[1], encoded[2],
		encoded[3], encoded[4], encoded[5],
		formatTime(a.PublishedAt), formatTime(a.FetchedAt), formatTime(r.now()),
	}, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

func (r *Repo) KnownSlugs(ctx context.Context, typ models.ArticleType, limit int) (KnownSet, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT slug FROM articles WHERE type = ? ORDER BY published_at DESC LIMIT ?
	`, string(typ), limit)
	if err != nil {
		return nil, fmt.Errorf("known slugs query: %w", err)
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("known slugs scan: %w", err)
		}
		slugs = append(slugs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return NewKnownSet(slugs), nil
}

func (r *Repo) FindByPerformer(ctx context.Context, performerSlug string, limit int) ([]models.Article, error) {
	return r.list(ctx, `
		SELECT `+selectColumns+` FROM articles
		WHERE type = 'work'
		  AND EXISTS (SELECT 1 FROM json_each(articles.related_actresses) WHERE json_each.value = ?)
		ORDER BY published_at DESC
		LIMIT ?
	`, performerSlug, limit)
}

func (r *Repo) LatestByType(ctx context.Context, typ models.ArticleType, limit int) ([]models.Article, error) {
	return r.list(ctx, `
		SELECT `+selectColumns+` FROM articles WHERE type = ? ORDER BY published_at DESC LIMIT ?
	`, string(typ), limit)
}

// LatestByTypePage returns one page (1-based) and the total row count.
// An empty typ matches every type.
func (r *Repo) LatestByTypePage(ctx context.Context, typ models.ArticleType, page, perPage int) ([]models.Article, int, error) {
	limit, offset := pageBounds(page, perPage)

	var total int
	if err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM articles WHERE (? = '' OR type = ?)
	`, string(typ), string(typ)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count scan: %w", err)
	}

	items, err := r.list(ctx, `
		SELECT `+selectColumns+` FROM articles
		WHERE (? = '' OR type = ?)
		ORDER BY published_at DESC
		LIMIT ? OFFSET ?
	`, string(typ), string(typ), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// GetBySlug returns nil, nil when the slug is unknown.
func (r *Repo) GetBySlug(ctx context.Context, slug string) (*models.Article, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM articles WHERE slug = ?`, slug)
	a, err := scanArticle(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan getBySlug: %w", err)
	}
	return a, nil
}

func (r *Repo) All(ctx context.Context) ([]models.Article, error) {
	return r.list(ctx, `SELECT `+selectColumns+` FROM articles ORDER BY published_at ASC, slug ASC`)
}

func (r *Repo) list(ctx context.Context, query string, args ...any) ([]models.Article, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	out := []models.Article{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArticle(s scanner) (*models.Article, error) {
	var (
		a                      models.Article
		typ                    string
		imagesJSON             string
		affiliateURL, embed    sql.NullString
		worksJSON, actressJSON string
		publishedAt, fetchedAt string
	)
	if err := s.Scan(
		&a.ID, &typ, &a.Slug, &a.Title, &a.Summary, &a.Body, &imagesJSON, &a.SourceURL,
		&affiliateURL, &embed, &worksJSON, &actressJSON, &publishedAt, &fetchedAt,
	); err != nil {
		return nil, err
	}

	a.Type = models.ArticleType(typ)
	a.AffiliateURL = affiliateURL.String
	a.EmbedHTML = embed.String
	a.PublishedAt = parseTime(publishedAt)
	a.FetchedAt = parseTime(fetchedAt)

	_ = json.Unmarshal([]byte(imagesJSON), &a.Images)
	_ = json.Unmarshal([]byte(worksJSON), &a.RelatedWorks)
	_ = json.Unmarshal([]byte(actressJSON), &a.RelatedActresses)
	a.Images = orEmpty(a.Images)
	a.RelatedWorks = orEmpty(a.RelatedWorks)
	a.RelatedActresses = orEmpty(a.RelatedActresses)
	return &a, nil
}

// RefreshPerformerStats rebuilds actress_stats only.
func (r *Repo) RefreshPerformerStats(ctx context.Context) error {
	return r.refresh(ctx, statsQueries[:1])
}

// RefreshSiteStats rebuilds every aggregate table.
func (r *Repo) RefreshSiteStats(ctx context.Context) error {
	return r.refresh(ctx, statsQueries)
}

type statsQuery struct {
	table  string
	insert string
}

var statsQueries = []statsQuery{
	{"actress_stats", `
		INSERT INTO actress_stats (slug, work_count, latest_published_at, updated_at)
		SELECT j.value, COUNT(*), MAX(a.published_at), ?
		FROM articles a, json_each(a.related_actresses) j
		WHERE a.type = 'work'
		GROUP BY j.value`},
	{"genre_stats", `
		INSERT INTO genre_stats (name, work_count, latest_published_at, updated_at)
		SELECT j.value, COUNT(*), MAX(a.published_at), ?
		FROM articles a, json_each(a.meta_genres) j
		WHERE a.type = 'work'
		GROUP BY j.value`},
	{"maker_stats", `
		INSERT INTO maker_stats (name, work_count, latest_published_at, updated_at)
		SELECT j.value, COUNT(*), MAX(a.published_at), ?
		FROM articles a, json_each(a.meta_makers) j
		WHERE a.type = 'work'
		GROUP BY j.value`},
	{"tag_stats", `
		INSERT INTO tag_stats (tag, article_count, latest_published_at, updated_at)
		SELECT j.value, COUNT(*), MAX(a.published_at), ?
		FROM articles a, json_each(a.tags) j
		GROUP BY j.value`},
}

func (r *Repo) refresh(ctx context.Context, queries []statsQuery) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin stats refresh: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stamp := formatTime(r.now())
	for _, q := range queries {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+q.table); err != nil {
			return fmt.Errorf("clear %s: %w", q.table, err)
		}
		if _, err := tx.ExecContext(ctx, q.insert, stamp); err != nil {
			return fmt.Errorf("rebuild %s: %w", q.table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit stats refresh: %w", err)
	}
	return nil
}
