package article

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avinfo/internal/config"
	"avinfo/pkg/models"
)

func TestOpen_SQLite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "open.db")
	b, err := Open(ctx, config.StoreConfig{Driver: "sqlite", Path: path})
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, "sqlite", b.Driver)
	assert.Equal(t, path, b.Where)
	require.NoError(t, b.Ping(ctx))

	latest, err := b.Store.LatestByType(ctx, models.TypeWork, 5)
	require.NoError(t, err)
	assert.Empty(t, latest)
}

func TestOpen_UnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), config.StoreConfig{Driver: "mysql"})
	require.EqualError(t, err, `unknown store driver "mysql"`)
}
