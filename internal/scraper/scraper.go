// Package scraper holds the source fetchers. Each fetcher maps its own
// remote format into one of the raw record types in pkg/models; nothing here
// touches the store.
package scraper

import (
	"context"
	"errors"
	"fmt"

	"avinfo/internal/logger"
)

// Source is implemented by each remote source (feed, sheet, API page).
type Source[T any] interface {
	Name() string
	FetchAll(ctx context.Context) ([]T, error)
}

// Aggregator calls several sources of the same record type and merges them
// into one list, dropping records whose key was already seen.
type Aggregator[T any] struct {
	Sources []Source[T]
	Key     func(T) string
	Log     *logger.Logger
}

func NewAggregator[T any](log *logger.Logger, key func(T) string, sources ...Source[T]) *Aggregator[T] {
	if log == nil {
		log = logger.Nop()
	}
	return &Aggregator[T]{Sources: sources, Key: key, Log: log}
}

// FetchAndMerge keeps going past a broken source. It only fails when every
// source failed.
func (a *Aggregator[T]) FetchAndMerge(ctx context.Context) ([]T, error) {
	seen := make(map[string]bool)
	out := make([]T, 0)
	var errs []error

	for _, src := range a.Sources {
		a.Log.Debug("fetching source", "source", src.Name())
		items, err := src.FetchAll(ctx)
		if err != nil {
			a.Log.Warn("source failed", "source", src.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}
		for _, item := range items {
			key := a.Key(item)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, item)
		}
	}

	if len(a.Sources) > 0 && len(errs) == len(a.Sources) {
		return nil, fmt.Errorf("all %d sources failed: %w", len(errs), errors.Join(errs...))
	}
	return out, nil
}
