package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	name  string
	items []string
	err   error
}

func (s staticSource) Name() string { return s.name }

func (s staticSource) FetchAll(context.Context) ([]string, error) { return s.items, s.err }

func identity(s string) string { return s }

func TestAggregator_FetchAndMerge(t *testing.T) {
	t.Parallel()

	agg := NewAggregator[string](nil, identity,
		staticSource{name: "a", items: []string{"x", "y"}},
		staticSource{name: "broken", err: errors.New("boom")},
		staticSource{name: "b", items: []string{"y", "z", ""}},
	)
	got, err := agg.FetchAndMerge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z"}, got)
}

func TestAggregator_AllFailed(t *testing.T) {
	t.Parallel()

	agg := NewAggregator[string](nil, identity,
		staticSource{name: "a", err: errors.New("first")},
		staticSource{name: "b", err: errors.New("second")},
	)
	_, err := agg.FetchAndMerge(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a: first")
	assert.Contains(t, err.Error(), "b: second")
}

func TestAggregator_NoSources(t *testing.T) {
	t.Parallel()

	got, err := NewAggregator[string](nil, identity).FetchAndMerge(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}
