package normalize

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avinfo/pkg/models"
)

func TestWriteSheetCSV_FeedsBackThroughSheet(t *testing.T) {
	t.Parallel()

	published := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	stored := models.Article{
		Type:             models.TypeWork,
		Slug:             "ABC00001",
		Title:            "Title, with comma",
		Summary:          "summary",
		Body:             "出演: Alice\nメーカー: S1",
		SourceURL:        "https://video.example/abc00001/",
		AffiliateURL:     "https://al.example/?lurl=x",
		RelatedActresses: []string{"alice"},
		Images:           []models.ArticleImage{{URL: "https://img.example/a.jpg", Alt: "a"}},
		PublishedAt:      published,
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSheetCSV(&buf, []models.Article{stored}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, SheetColumns(), records[0])
	assert.Equal(t, `["alice"]`, records[1][8])

	row := models.SheetRow{}
	for i, col := range records[0] {
		row[col] = records[1][i]
	}
	a := newTestNormalizer(defaultCfg()).Sheet(row)
	require.NotNil(t, a)
	assert.Equal(t, stored.Slug, a.Slug)
	assert.Equal(t, stored.Title, a.Title)
	assert.Equal(t, stored.Body, a.Body)
	assert.Equal(t, stored.SourceURL, a.SourceURL)
	assert.Equal(t, []string{"alice"}, a.RelatedActresses)
	assert.Equal(t, "https://img.example/a.jpg", a.Images[0].URL)
	assert.True(t, a.PublishedAt.Equal(published))
}

func TestSheetRecord_EmptyLists(t *testing.T) {
	t.Parallel()

	rec := SheetRecord(models.Article{Slug: "x"})
	assert.Len(t, rec, len(SheetColumns()))
	assert.Equal(t, "[]", rec[8])
}
