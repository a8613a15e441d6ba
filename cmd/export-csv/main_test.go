package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avinfo/internal/article"
	"avinfo/internal/config"
	"avinfo/pkg/models"
)

func TestExport(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	storeCfg := config.StoreConfig{Driver: "sqlite", Path: filepath.Join(dir, "export.db")}

	backend, err := article.Open(ctx, storeCfg)
	require.NoError(t, err)
	now := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	_, err = backend.Store.Upsert(ctx, &models.Article{
		ID: "1", Type: models.TypeWork, Slug: "ABC00001", Title: "t", SourceURL: "https://video.example/1/",
		PublishedAt: now, FetchedAt: now,
	})
	require.NoError(t, err)
	backend.Close()

	out := filepath.Join(dir, "out", "articles.csv")
	n, err := export(ctx, storeCfg, out)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "slug,type,title,"))
	assert.True(t, strings.HasPrefix(lines[1], "ABC00001,work,t,"))
}
