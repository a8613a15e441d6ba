// Package mirror keeps an offline copy of stored works in the affiliate
// catalog's item shape and serves it over the same ItemList paging, so the
// catalog source can run against a local endpoint.
package mirror

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"avinfo/pkg/models"
)

const dateLayout = "2006-01-02 15:04:05"

type Named struct {
	Name string `json:"name"`
}

type ItemInfo struct {
	Actress []Named `json:"actress,omitempty"`
	Maker   []Named `json:"maker,omitempty"`
	Label   []Named `json:"label,omitempty"`
	Series  []Named `json:"series,omitempty"`
	Genre   []Named `json:"genre,omitempty"`
}

type ImageURL struct {
	Large string `json:"large,omitempty"`
	List  string `json:"list,omitempty"`
}

// Item matches one element of result.items in the catalog response.
type Item struct {
	ContentID    string   `json:"content_id"`
	Title        string   `json:"title"`
	URL          string   `json:"URL"`
	AffiliateURL string   `json:"affiliateURL,omitempty"`
	Date         string   `json:"date"`
	ImageURL     ImageURL `json:"imageURL"`
	ItemInfo     ItemInfo `json:"iteminfo"`
}

// FromArticle rebuilds a catalog item from a stored work. Performer and
// maker names come back from the body's label lines.
func FromArticle(a models.Article) Item {
	date := strings.TrimSpace(bodyLine(a.Body, "配信日"))
	if date == "" {
		date = a.PublishedAt.Format(dateLayout)
	}
	item := Item{
		ContentID:    strings.ToLower(a.Slug),
		Title:        a.Title,
		URL:          a.SourceURL,
		AffiliateURL: a.AffiliateURL,
		Date:         date,
		ItemInfo: ItemInfo{
			Actress: named(splitValues(bodyLine(a.Body, "出演"))),
			Maker:   named(splitValues(bodyLine(a.Body, "メーカー"))),
			Label:   named(splitValues(bodyLine(a.Body, "レーベル"))),
			Series:  named(splitValues(bodyLine(a.Body, "シリーズ"))),
			Genre:   named(splitValues(bodyLine(a.Body, "ジャンル"))),
		},
	}
	if len(a.Images) > 0 {
		item.ImageURL = ImageURL{Large: a.Images[0].URL, List: a.Images[0].URL}
	}
	return item
}

// FromArticles converts works and drops every other article type.
func FromArticles(articles []models.Article) []Item {
	out := make([]Item, 0, len(articles))
	for _, a := range articles {
		if a.Type != models.TypeWork {
			continue
		}
		out = append(out, FromArticle(a))
	}
	return out
}

func Save(path string, items []Item) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func Load(path string) ([]Item, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mirror: %w", err)
	}
	var items []Item
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("mirror is not valid JSON: %w", err)
	}
	return items, nil
}

func bodyLine(body, label string) string {
	prefix := label + ":"
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimPrefix(line, prefix)
		}
	}
	return ""
}

func splitValues(s string) []string {
	var out []string
	for _, v := range strings.Split(s, "/") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func named(values []string) []Named {
	if len(values) == 0 {
		return nil
	}
	out := make([]Named, len(values))
	for i, v := range values {
		out[i] = Named{Name: v}
	}
	return out
}

// sortKey orders items newest first by their catalog date.
func sortKey(it Item) time.Time {
	t, err := time.Parse(dateLayout, it.Date)
	if err != nil {
		return time.Time{}
	}
	return t
}
