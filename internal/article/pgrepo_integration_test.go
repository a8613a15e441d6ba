//go:build integration

package article

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avinfo/pkg/database"
	"avinfo/pkg/models"
)

// newTestPGRepo connects to PG_DSN and removes every row the test wrote
// (slugs and source URLs carry a per-test suffix).
func newTestPGRepo(t *testing.T) (*PGRepo, *pgxpool.Pool, string) {
	t.Helper()
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}
	ctx := context.Background()
	pool, err := database.OpenPG(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, database.MigratePG(ctx, pool))

	suffix := "-" + uuid.NewString()[:8]
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM articles WHERE slug LIKE '%' || $1`, suffix)
		pool.Close()
	})
	return NewPGRepo(pool), pool, suffix
}

func pgArticle(slug, source string) *models.Article {
	return testArticle(uuid.NewString(), slug, source)
}

func countPGRows(t *testing.T, pool *pgxpool.Pool, suffix string) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM articles WHERE slug LIKE '%' || $1`, suffix).Scan(&n))
	return n
}

func TestPGUpsert_Idempotent(t *testing.T) {
	r, pool, sfx := newTestPGRepo(t)
	ctx := context.Background()

	first := pgArticle("ABC-001"+sfx, "https://src.example/1"+sfx)
	res, err := r.Upsert(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, UpsertResult{Status: StatusCreated, Conflict: ConflictSlug}, res)

	second := pgArticle("ABC-001"+sfx, "https://src.example/1"+sfx)
	second.Title = "updated title"
	res, err = r.Upsert(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, UpsertResult{Status: StatusUpdated, Conflict: ConflictSlug}, res)

	assert.Equal(t, 1, countPGRows(t, pool, sfx))
	got, err := r.GetBySlug(ctx, "ABC-001"+sfx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "updated title", got.Title)
	assert.Equal(t, first.ID, got.ID, "id survives overwrite")
	assert.Equal(t, []string{"yua-mikami"}, got.RelatedActresses)
}

func TestPGUpsert_FallbackToSourceURL(t *testing.T) {
	r, pool, sfx := newTestPGRepo(t)
	ctx := context.Background()
	source := "https://src.example/x" + sfx

	first := pgArticle("A"+sfx, source)
	_, err := r.Upsert(ctx, first)
	require.NoError(t, err)

	res, err := r.Upsert(ctx, pgArticle("B"+sfx, source))
	require.NoError(t, err)
	assert.Equal(t, UpsertResult{Status: StatusUpdated, Conflict: ConflictSourceURL}, res)

	assert.Equal(t, 1, countPGRows(t, pool, sfx))
	got, err := r.GetBySlug(ctx, "B"+sfx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first.ID, got.ID)
}

func TestPGUpsert_FallbackAlsoConflicting(t *testing.T) {
	r, _, sfx := newTestPGRepo(t)
	ctx := context.Background()

	_, err := r.Upsert(ctx, pgArticle("A"+sfx, "https://src.example/a"+sfx))
	require.NoError(t, err)
	_, err = r.Upsert(ctx, pgArticle("B"+sfx, "https://src.example/b"+sfx))
	require.NoError(t, err)

	_, err = r.Upsert(ctx, pgArticle("B"+sfx, "https://src.example/a"+sfx))
	require.Error(t, err)
}

func TestPGReadsAndRefresh(t *testing.T) {
	r, _, sfx := newTestPGRepo(t)
	ctx := context.Background()

	_, err := r.Upsert(ctx, pgArticle("W1"+sfx, "https://src.example/w1"+sfx))
	require.NoError(t, err)

	known, err := r.KnownSlugs(ctx, models.TypeWork, 5000)
	require.NoError(t, err)
	assert.True(t, known.Has("W1"+sfx))

	works, err := r.FindByPerformer(ctx, "yua-mikami", 50)
	require.NoError(t, err)
	var slugs []string
	for _, w := range works {
		slugs = append(slugs, w.Slug)
	}
	assert.Contains(t, slugs, "W1"+sfx)

	require.NoError(t, r.RefreshSiteStats(ctx))
	require.NoError(t, r.RefreshPerformerStats(ctx))
}
