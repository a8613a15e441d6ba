package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avinfo/internal/article"
	"avinfo/internal/config"
	"avinfo/internal/normalize"
	"avinfo/internal/placeholder"
	"avinfo/internal/relate"
	"avinfo/internal/schedule"
	"avinfo/internal/scraper"
	"avinfo/pkg/database"
	"avinfo/pkg/models"
)

var runTime = time.Date(2026, 4, 2, 6, 0, 0, 0, time.UTC)

type catalogStub struct {
	works []models.RawWork
	err   error
	query scraper.CatalogQuery
}

func (s *catalogStub) Fetch(_ context.Context, q scraper.CatalogQuery) ([]models.RawWork, error) {
	s.query = q
	return s.works, s.err
}

type sheetStub struct {
	rows []models.SheetRow
	err  error
}

func (s sheetStub) Fetch(context.Context) ([]models.SheetRow, error) { return s.rows, s.err }

type feedStub struct {
	items []models.RawFeedItem
	err   error
}

func (s feedStub) Fetch(context.Context) ([]models.RawFeedItem, error) { return s.items, s.err }

func newDeps(t *testing.T) (Deps, *article.Repo) {
	t.Helper()
	db, err := database.Open(database.DefaultConfig(filepath.Join(t.TempDir(), "ingest.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))
	repo := article.NewRepo(db)

	cfg := config.Default()
	cfg.Catalog.AffiliateID = "aff-990"
	norm := normalize.New(normalize.ConfigFrom(cfg.Catalog), placeholder.New(cfg.Patterns),
		normalize.WithClock(func() time.Time { return runTime }))

	return Deps{
		Catalog:       cfg.Catalog,
		Store:         repo,
		Normalizer:    norm,
		Linker:        relate.NewLinker(repo),
		Window:        schedule.Window{StartHour: 9, EndHour: 23, Location: time.UTC},
		CatalogSource: &catalogStub{},
		SheetSource:   sheetStub{},
		FeedSource:    feedStub{},
		Generated:     scraper.NewGeneratedSource(repo, 2, 5),
		Now:           func() time.Time { return runTime },
	}, repo
}

func rawWork(cid string, performers ...string) models.RawWork {
	return models.RawWork{
		ContentID:    cid,
		Title:        "新人デビュー " + cid,
		Actresses:    performers,
		Maker:        "S1",
		Genres:       []string{"単体"},
		CanonicalURL: "https://video.example/" + cid + "/",
		Images:       []models.ArticleImage{},
	}
}

func TestPipelines_Modes(t *testing.T) {
	t.Parallel()

	d, _ := newDeps(t)
	var names []string
	for _, p := range Pipelines(ModeNormal, d) {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"catalog", "sheet", "summaries", "daily_topics", "rankings", "rss"}, names)

	archive := Pipelines(ModeArchive, d)
	require.Len(t, archive, 1)
	assert.Equal(t, "catalog_archive", archive[0].Name)
}

func TestCatalogPipeline(t *testing.T) {
	t.Parallel()

	d, repo := newDeps(t)
	ctx := context.Background()
	_, err := repo.Upsert(ctx, &models.Article{
		ID: "seed", Type: models.TypeWork, Slug: "OLD00001", Title: "old", SourceURL: "https://video.example/old/",
		Body: "出演: Alice", RelatedActresses: []string{"alice"}, PublishedAt: runTime.Add(-time.Hour), FetchedAt: runTime,
	})
	require.NoError(t, err)

	stub := &catalogStub{works: []models.RawWork{
		rawWork("abc00001", "Alice"),
		rawWork("abc00002"),
		{ContentID: "bad00003"},
	}}
	d.CatalogSource = stub

	stats, err := Pipelines(ModeNormal, d)[0].Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{"fetched": 3, "created": 2, "skipped": 1}, stats)

	assert.True(t, stub.query.Known.Has("old00001"), "snapshot passed to the fetcher")
	assert.Equal(t, 1, stub.query.OffsetStart)

	first, err := repo.GetBySlug(ctx, "ABC00001")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, []string{"OLD00001"}, first.RelatedWorks)
	assert.Equal(t, time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC), first.PublishedAt.UTC())

	second, err := repo.GetBySlug(ctx, "ABC00002")
	require.NoError(t, err)
	assert.True(t, second.PublishedAt.After(first.PublishedAt))

	stats, err = Pipelines(ModeNormal, d)[0].Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats["updated"], "rerun overwrites in place")
}

func TestCatalogPipeline_FetchError(t *testing.T) {
	t.Parallel()

	d, _ := newDeps(t)
	d.CatalogSource = &catalogStub{err: errors.New("HTTP 503")}
	_, err := Pipelines(ModeArchive, d)[0].Run(context.Background())
	require.EqualError(t, err, "HTTP 503")
}

func TestSheetPipeline(t *testing.T) {
	t.Parallel()

	d, repo := newDeps(t)
	d.SheetSource = sheetStub{rows: []models.SheetRow{
		{"slug": "mgs-1", "title": "Sheet work", "affiliate_url": "https://al.example/1", "published_at": "2026/4/1"},
		{"slug": "", "title": "no slug"},
		{"slug": "mgs-2", "title": "no link"},
	}}

	stats, err := Pipelines(ModeNormal, d)[1].Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{"fetched": 3, "created": 1, "skipped": 2}, stats)

	a, err := repo.GetBySlug(context.Background(), "mgs-1")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "https://al.example/1", a.SourceURL)
}

func TestGeneratedPipelines(t *testing.T) {
	t.Parallel()

	d, repo := newDeps(t)
	ctx := context.Background()
	pipelines := Pipelines(ModeNormal, d)

	stats, err := pipelines[3].Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats["created"])

	stats, err = pipelines[4].Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{"fetched": 0}, stats, "no works stored yet")

	topics, err := repo.LatestByType(ctx, models.TypeTopic, 10)
	require.NoError(t, err)
	require.Len(t, topics, 2)
	assert.Contains(t, topics[0].Body, "タグ解説:")
}

func TestFeedPipeline(t *testing.T) {
	t.Parallel()

	d, repo := newDeps(t)
	published := time.Date(2026, 4, 1, 20, 0, 0, 0, time.UTC)
	d.FeedSource = feedStub{items: []models.RawFeedItem{
		{Slug: "rss-0123456789abcdef", Title: "特集 記事", Link: "https://news.example/1", PublishedAt: &published},
		{Slug: "rss-fedcba9876543210", Title: "No timestamp", Link: "https://news.example/2"},
	}}

	stats, err := Pipelines(ModeNormal, d)[5].Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats["created"])

	a, err := repo.GetBySlug(context.Background(), "rss-0123456789abcdef")
	require.NoError(t, err)
	assert.True(t, a.PublishedAt.Equal(published))

	b, err := repo.GetBySlug(context.Background(), "rss-fedcba9876543210")
	require.NoError(t, err)
	assert.Equal(t, 16, b.PublishedAt.UTC().Hour(), "second of two slots in a 9-23 window")
}

// failingStore fails every Upsert from call number failFrom on.
type failingStore struct {
	article.Store
	failFrom int
	calls    int
}

func (s *failingStore) Upsert(ctx context.Context, a *models.Article) (article.UpsertResult, error) {
	s.calls++
	if s.calls >= s.failFrom {
		return article.UpsertResult{}, errors.New("disk full")
	}
	return s.Store.Upsert(ctx, a)
}

func TestPersist_UpsertErrorFailsPipeline(t *testing.T) {
	t.Parallel()

	d, repo := newDeps(t)
	store := &failingStore{Store: repo, failFrom: 2}
	d.Store = store
	d.SheetSource = sheetStub{rows: []models.SheetRow{
		{"slug": "mgs-1", "title": "t1", "affiliate_url": "https://al.example/1"},
		{"slug": "mgs-2", "title": "t2", "affiliate_url": "https://al.example/2"},
		{"slug": "mgs-3", "title": "t3", "affiliate_url": "https://al.example/3"},
	}}

	report := New([]Pipeline{SheetPipeline(d)}).Run(context.Background())

	require.Len(t, report.Outcomes, 1)
	oc := report.Outcomes[0]
	require.Error(t, oc.Err)
	assert.EqualError(t, oc.Err, "upsert mgs-2: disk full")
	assert.Equal(t, Stats{"fetched": 3, "created": 1, "failed": 1}, oc.Stats)
	assert.Equal(t, AllFailed, report.Status)
	assert.Equal(t, 1, report.ExitCode())
	assert.Equal(t, 2, store.calls, "stops at the first failed write")

	missing, err := repo.GetBySlug(context.Background(), "mgs-3")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

type brokenReader struct{}

func (brokenReader) FindByPerformer(context.Context, string, int) ([]models.Article, error) {
	return nil, errors.New("performer lookup down")
}

func (brokenReader) LatestByType(context.Context, models.ArticleType, int) ([]models.Article, error) {
	return nil, errors.New("latest lookup down")
}

func TestPersist_LinkErrorFailsPipeline(t *testing.T) {
	t.Parallel()

	d, repo := newDeps(t)
	d.Linker = relate.NewLinker(brokenReader{})
	d.FeedSource = feedStub{items: []models.RawFeedItem{
		{Slug: "rss-0123456789abcdef", Title: "特集", Link: "https://news.example/1"},
	}}

	stats, err := Pipelines(ModeNormal, d)[5].Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "link rss-0123456789abcdef: ")
	assert.Equal(t, 1, stats["failed"])

	a, err := repo.GetBySlug(context.Background(), "rss-0123456789abcdef")
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestSheetPipeline_Standalone(t *testing.T) {
	t.Parallel()

	d, repo := newDeps(t)
	d.SheetSource = sheetStub{rows: []models.SheetRow{
		{"slug": "mgs-9", "title": "Imported", "embed_html": "<iframe></iframe>"},
	}}

	report := New([]Pipeline{SheetPipeline(d)}).Run(context.Background())
	assert.Equal(t, AllSucceeded, report.Status)

	a, err := repo.GetBySlug(context.Background(), "mgs-9")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "mgs://mgs-9", a.SourceURL)
}
