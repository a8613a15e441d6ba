package normalize

import (
	"encoding/csv"
	"io"
	"time"

	"github.com/goccy/go-json"

	"avinfo/pkg/models"
)

// SheetRecord lays a stored article out in SheetColumns order, so an export
// can be fed back through Sheet.
func SheetRecord(a models.Article) []string {
	performers, _ := json.Marshal(orEmptyStrings(a.RelatedActresses))
	rec := []string{
		a.Slug,
		string(a.Type),
		a.Title,
		a.Summary,
		a.Body,
		a.SourceURL,
		a.AffiliateURL,
		a.EmbedHTML,
		string(performers),
		a.PublishedAt.UTC().Format(time.RFC3339),
	}
	for i := 0; i < MaxSheetImages; i++ {
		u := ""
		if i < len(a.Images) {
			u = a.Images[i].URL
		}
		rec = append(rec, u)
	}
	return rec
}

// WriteSheetCSV writes the header row and one record per article.
func WriteSheetCSV(w io.Writer, articles []models.Article) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SheetColumns()); err != nil {
		return err
	}
	for _, a := range articles {
		if err := cw.Write(SheetRecord(a)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func orEmptyStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
