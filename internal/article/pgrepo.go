package article

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"avinfo/pkg/models"
)

// PGRepo is the postgres-backed Store. Stats live in materialized views.
type PGRepo struct {
	pool *pgxpool.Pool
}

func NewPGRepo(pool *pgxpool.Pool) *PGRepo {
	return &PGRepo{pool: pool}
}

const pgSelectColumns = `id::text, type, slug, title, summary, body, images, source_url,
	COALESCE(affiliate_url, ''), COALESCE(embed_html, ''), related_works, related_actresses,
	published_at, fetched_at`

func (r *PGRepo) Upsert(ctx context.Context, a *models.Article) (UpsertResult, error) {
	vals, err := pgValues(a)
	if err != nil {
		return UpsertResult{}, err
	}

	var inserted bool
	err = r.pool.QueryRow(ctx, `
		INSERT INTO articles (
			id, type, slug, title, summary, body, images, source_url, affiliate_url, embed_html,
			related_works, related_actresses, tags, meta_genres, meta_makers, published_at, fetched_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, NULLIF($9, ''), NULLIF($10, ''),
			$11::jsonb, $12::jsonb, $13::jsonb, $14::jsonb, $15::jsonb, $16, $17)
		ON CONFLICT (slug) DO UPDATE SET
			type = EXCLUDED.type,
			title = EXCLUDED.title,
			summary = EXCLUDED.summary,
			body = EXCLUDED.body,
			images = EXCLUDED.images,
			source_url = EXCLUDED.source_url,
			affiliate_url = EXCLUDED.affiliate_url,
			embed_html = EXCLUDED.embed_html,
			related_works = EXCLUDED.related_works,
			related_actresses = EXCLUDED.related_actresses,
			tags = EXCLUDED.tags,
			meta_genres = EXCLUDED.meta_genres,
			meta_makers = EXCLUDED.meta_makers,
			published_at = EXCLUDED.published_at,
			fetched_at = EXCLUDED.fetched_at,
			updated_at = now()
		RETURNING (xmax = 0)
	`, append([]any{a.ID}, vals...)...).Scan(&inserted)

	if err == nil {
		if inserted {
			return UpsertResult{Status: StatusCreated, Conflict: ConflictSlug}, nil
		}
		return UpsertResult{Status: StatusUpdated, Conflict: ConflictSlug}, nil
	}
	if !isPGUniqueViolation(err) {
		return UpsertResult{}, fmt.Errorf("upsert %s: %w", a.Slug, err)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE articles SET
			type = $1, slug = $2, title = $3, summary = $4, body = $5, images = $6::jsonb,
			source_url = $7, affiliate_url = NULLIF($8, ''), embed_html = NULLIF($9, ''),
			related_works = $10::jsonb, related_actresses = $11::jsonb, tags = $12::jsonb,
			meta_genres = $13::jsonb, meta_makers = $14::jsonb, published_at = $15, fetched_at = $16,
			updated_at = now()
		WHERE source_url = $17
	`, append(vals, a.SourceURL)...)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("fallback update %s: %w", a.SourceURL, err)
	}
	if tag.RowsAffected() == 0 {
		return UpsertResult{}, fmt.Errorf("%s: %w", a.SourceURL, ErrNoRowsUpdated)
	}
	return UpsertResult{Status: StatusUpdated, Conflict: ConflictSourceURL}, nil
}

func pgValues(a *models.Article) ([]any, error) {
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
		a.AffiliateURL, a.EmbedHTML, encoded[1], encoded[2], encoded[3], encoded[4], encoded[5],
		a.PublishedAt.UTC(), a.FetchedAt.UTC(),
	}, nil
}

func isPGUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *PGRepo) KnownSlugs(ctx context.Context, typ models.ArticleType, limit int) (KnownSet, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT slug FROM articles WHERE type = $1 ORDER BY published_at DESC LIMIT $2
	`, string(typ), limit)
	if err != nil {
		return nil, fmt.Errorf("known slugs query: %w", err)
	}
	slugs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("known slugs scan: %w", err)
	}
	return NewKnownSet(slugs), nil
}

func (r *PGRepo) FindByPerformer(ctx context.Context, performerSlug string, limit int) ([]models.Article, error) {
	return r.list(ctx, `
		SELECT `+pgSelectColumns+` FROM articles
		WHERE type = 'work' AND related_actresses @> jsonb_build_array($1::text)
		ORDER BY published_at DESC
		LIMIT $2
	`, performerSlug, limit)
}

func (r *PGRepo) LatestByType(ctx context.Context, typ models.ArticleType, limit int) ([]models.Article, error) {
	return r.list(ctx, `
		SELECT `+pgSelectColumns+` FROM articles WHERE type = $1 ORDER BY published_at DESC LIMIT $2
	`, string(typ), limit)
}

func (r *PGRepo) LatestByTypePage(ctx context.Context, typ models.ArticleType, page, perPage int) ([]models.Article, int, error) {
	limit, offset := pageBounds(page, perPage)

	var total int
	if err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM articles WHERE ($1 = '' OR type = $1)
	`, string(typ)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count scan: %w", err)
	}
	items, err := r.list(ctx, `
		SELECT `+pgSelectColumns+` FROM articles
		WHERE ($1 = '' OR type = $1)
		ORDER BY published_at DESC
		LIMIT $2 OFFSET $3
	`, string(typ), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *PGRepo) GetBySlug(ctx context.Context, slug string) (*models.Article, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+pgSelectColumns+` FROM articles WHERE slug = $1`, slug)
	a, err := scanPGArticle(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan getBySlug: %w", err)
	}
	return a, nil
}

func (r *PGRepo) All(ctx context.Context) ([]models.Article, error) {
	return r.list(ctx, `SELECT `+pgSelectColumns+` FROM articles ORDER BY published_at ASC, slug ASC`)
}

func (r *PGRepo) list(ctx context.Context, query string, args ...any) ([]models.Article, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	out := []models.Article{}
	for rows.Next() {
		a, err := scanPGArticle(rows)
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

func scanPGArticle(row pgx.Row) (*models.Article, error) {
	var (
		a                        models.Article
		typ                      string
		images, works, actresses []byte
		publishedAt, fetchedAt   time.Time
	)
	if err := row.Scan(
		&a.ID, &typ, &a.Slug, &a.Title, &a.Summary, &a.Body, &images, &a.SourceURL,
		&a.AffiliateURL, &a.EmbedHTML, &works, &actresses, &publishedAt, &fetchedAt,
	); err != nil {
		return nil, err
	}
	a.Type = models.ArticleType(typ)
	a.PublishedAt = publishedAt
	a.FetchedAt = fetchedAt
	_ = json.Unmarshal(images, &a.Images)
	_ = json.Unmarshal(works, &a.RelatedWorks)
	_ = json.Unmarshal(actresses, &a.RelatedActresses)
	a.Images = orEmpty(a.Images)
	a.RelatedWorks = orEmpty(a.RelatedWorks)
	a.RelatedActresses = orEmpty(a.RelatedActresses)
	return &a, nil
}

var pgStatsViews = []string{"actress_stats", "genre_stats", "maker_stats", "tag_stats"}

func (r *PGRepo) RefreshSiteStats(ctx context.Context) error {
	return r.refresh(ctx, pgStatsViews)
}

func (r *PGRepo) RefreshPerformerStats(ctx context.Context) error {
	return r.refresh(ctx, pgStatsViews[:1])
}

func (r *PGRepo) refresh(ctx context.Context, views []string) error {
	for _, v := range views {
		if _, err := r.pool.Exec(ctx, `REFRESH MATERIALIZED VIEW CONCURRENTLY `+v); err != nil {
			return fmt.Errorf("refresh %s: %w", v, err)
		}
	}
	return nil
}
