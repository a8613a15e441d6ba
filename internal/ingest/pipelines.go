package ingest

import (
	"context"
	"fmt"
	"time"

	"avinfo/internal/article"
	"avinfo/internal/config"
	"avinfo/internal/logger"
	"avinfo/internal/normalize"
	"avinfo/internal/relate"
	"avinfo/internal/schedule"
	"avinfo/internal/scraper"
	"avinfo/pkg/models"
)

// knownLimit bounds the known-slug snapshot read before a catalog run.
const knownLimit = 5000

type Mode string

const (
	ModeNormal  Mode = "normal"
	ModeArchive Mode = "archive"
)

type CatalogFetcher interface {
	Fetch(ctx context.Context, q scraper.CatalogQuery) ([]models.RawWork, error)
}

type SheetFetcher interface {
	Fetch(ctx context.Context) ([]models.SheetRow, error)
}

type FeedFetcher interface {
	Fetch(ctx context.Context) ([]models.RawFeedItem, error)
}

type TopicGenerator interface {
	Daily(now time.Time) []models.RawTopic
	Rankings(ctx context.Context, now time.Time) ([]models.RawTopic, error)
	Summaries(ctx context.Context, now time.Time) ([]models.RawTopic, error)
}

// Deps is everything the pipelines are wired from.
type Deps struct {
	Catalog    config.CatalogConfig
	Store      article.Store
	Normalizer *normalize.Normalizer
	Linker     *relate.Linker
	Window     schedule.Window

	CatalogSource CatalogFetcher
	SheetSource   SheetFetcher
	FeedSource    FeedFetcher
	Generated     TopicGenerator

	Log *logger.Logger
	Now func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d Deps) log() *logger.Logger {
	if d.Log != nil {
		return d.Log
	}
	return logger.Nop()
}

// Pipelines returns the pipeline set for mode. Archive mode runs only the
// catalog with the archive paging parameters.
func Pipelines(mode Mode, d Deps) []Pipeline {
	if mode == ModeArchive {
		return []Pipeline{{Name: "catalog_archive", Run: d.catalogRun(scraper.ArchiveQuery)}}
	}
	return []Pipeline{
		{Name: "catalog", Run: d.catalogRun(scraper.NormalQuery)},
		SheetPipeline(d),
		{Name: "summaries", Run: d.generatedRun(d.Generated.Summaries)},
		{Name: "daily_topics", Run: d.generatedRun(func(_ context.Context, now time.Time) ([]models.RawTopic, error) {
			return d.Generated.Daily(now), nil
		})},
		{Name: "rankings", Run: d.generatedRun(d.Generated.Rankings)},
		{Name: "rss", Run: d.feedRun},
	}
}

// SheetPipeline is the sheet pipeline on its own, for one-off CSV imports.
func SheetPipeline(d Deps) Pipeline {
	return Pipeline{Name: "sheet", Run: d.sheetRun}
}

func (d Deps) catalogRun(query func(config.CatalogConfig, scraper.KnownKeys) scraper.CatalogQuery) func(context.Context) (Stats, error) {
	return func(ctx context.Context) (Stats, error) {
		known, err := d.Store.KnownSlugs(ctx, models.TypeWork, knownLimit)
		if err != nil {
			return nil, fmt.Errorf("load known slugs: %w", err)
		}
		works, err := d.CatalogSource.Fetch(ctx, query(d.Catalog, known))
		if err != nil {
			return nil, err
		}

		stats := Stats{"fetched": len(works)}
		slots := d.Window.Batch(d.now(), len(works))
		articles := make([]*models.Article, 0, len(works))
		for i, raw := range works {
			a := d.Normalizer.Work(raw, slots.Slot(i))
			if a == nil {
				stats.Inc("skipped")
				continue
			}
			articles = append(articles, a)
		}
		return stats, d.persist(ctx, articles, d.Linker.LinkWork, stats)
	}
}

func (d Deps) sheetRun(ctx context.Context) (Stats, error) {
	rows, err := d.SheetSource.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	stats := Stats{"fetched": len(rows)}
	articles := make([]*models.Article, 0, len(rows))
	for _, row := range rows {
		a := d.Normalizer.Sheet(row)
		if a == nil {
			stats.Inc("skipped")
			continue
		}
		articles = append(articles, a)
	}
	return stats, d.persist(ctx, articles, nil, stats)
}

func (d Deps) generatedRun(gen func(context.Context, time.Time) ([]models.RawTopic, error)) func(context.Context) (Stats, error) {
	return func(ctx context.Context) (Stats, error) {
		now := d.now()
		topics, err := gen(ctx, now)
		if err != nil {
			return nil, err
		}
		stats := Stats{"fetched": len(topics)}
		slots := d.Window.Batch(now, len(topics))
		articles := make([]*models.Article, 0, len(topics))
		for i, raw := range topics {
			a := d.Normalizer.Topic(raw, slots.Slot(i))
			if a == nil {
				stats.Inc("skipped")
				continue
			}
			articles = append(articles, a)
		}
		return stats, d.persist(ctx, articles, d.Linker.LinkTopic, stats)
	}
}

func (d Deps) feedRun(ctx context.Context) (Stats, error) {
	items, err := d.FeedSource.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	stats := Stats{"fetched": len(items)}
	slots := d.Window.Batch(d.now(), len(items))
	articles := make([]*models.Article, 0, len(items))
	for i, item := range items {
		a := d.Normalizer.Feed(item, slots.Slot(i))
		if a == nil {
			stats.Inc("skipped")
			continue
		}
		articles = append(articles, a)
	}
	return stats, d.persist(ctx, articles, d.Linker.LinkTopic, stats)
}

// persist links and upserts articles one at a time. The first link or upsert
// error aborts the pipeline; Stats keeps the tally up to that point.
func (d Deps) persist(ctx context.Context, articles []*models.Article, link func(context.Context, *models.Article) error, stats Stats) error {
	log := d.log()
	for _, a := range articles {
		if err := ctx.Err(); err != nil {
			return err
		}
		if link != nil {
			if err := link(ctx, a); err != nil {
				stats.Inc("failed")
				return fmt.Errorf("link %s: %w", a.Slug, err)
			}
		}
		res, err := d.Store.Upsert(ctx, a)
		if err != nil {
			stats.Inc("failed")
			return fmt.Errorf("upsert %s: %w", a.Slug, err)
		}
		stats.Inc(string(res.Status))
		if res.Conflict == article.ConflictSourceURL {
			log.Info("upsert converged on source url", "slug", a.Slug, "source_url", a.SourceURL)
		}
	}
	return nil
}
