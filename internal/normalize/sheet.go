package normalize

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"avinfo/pkg/models"
	"avinfo/pkg/utils"
)

// Sheet column names; the first row of the sheet carries them.
const (
	ColSlug             = "slug"
	ColType             = "type"
	ColTitle            = "title"
	ColSummary          = "summary"
	ColBody             = "body"
	ColSourceURL        = "source_url"
	ColAffiliateURL     = "affiliate_url"
	ColEmbedHTML        = "embed_html"
	ColRelatedActresses = "related_actresses"
	ColPublishedAt      = "published_at"
	MaxSheetImages      = 10
)

// SheetColumns is the full header in export order.
func SheetColumns() []string {
	cols := []string{ColSlug, ColType, ColTitle, ColSummary, ColBody, ColSourceURL,
		ColAffiliateURL, ColEmbedHTML, ColRelatedActresses, ColPublishedAt}
	for i := 1; i <= MaxSheetImages; i++ {
		cols = append(cols, ImageColumn(i))
	}
	return cols
}

func ImageColumn(i int) string { return fmt.Sprintf("image_%d", i) }

var jst = time.FixedZone("JST", 9*60*60)

var plainDate = regexp.MustCompile(`^(\d{4})[/-](\d{1,2})[/-](\d{1,2})$`)

// Sheet normalizes a spreadsheet row. Rows without a slug, or without both
// an affiliate link and embed markup, are dropped.
func (n *Normalizer) Sheet(row models.SheetRow) *models.Article {
	slug := row.Get(ColSlug)
	if slug == "" {
		return nil
	}
	affiliate := row.Get(ColAffiliateURL)
	embed := row.Get(ColEmbedHTML)
	if affiliate == "" && embed == "" {
		return nil
	}

	title := row.Get(ColTitle)
	source := row.Get(ColSourceURL)
	if source == "" {
		source = affiliate
	}
	if source == "" {
		source = "mgs://" + slug
	}
	typ := models.ArticleType(row.Get(ColType))
	if !typ.Valid() {
		typ = models.TypeWork
	}
	summary := row.Get(ColSummary)
	if summary == "" {
		summary = title + " の作品情報。"
	}
	body := row.Get(ColBody)
	if body == "" {
		body = title
	}

	alt := title
	if alt == "" {
		alt = "image"
	}
	var images []models.ArticleImage
	for i := 1; i <= MaxSheetImages; i++ {
		if u := row.Get(ImageColumn(i)); u != "" {
			images = append(images, models.ArticleImage{URL: u, Alt: alt})
		}
	}

	performers := []string{}
	for _, name := range ParseList(row.Get(ColRelatedActresses)) {
		performers = append(performers, utils.Slugify(name))
	}

	now := n.now()
	return &models.Article{
		ID:               n.newID(),
		Type:             typ,
		Slug:             slug,
		Title:            title,
		Summary:          summary,
		Body:             body,
		Images:           n.cleanImages(images, alt),
		SourceURL:        source,
		AffiliateURL:     affiliate,
		EmbedHTML:        embed,
		RelatedWorks:     []string{},
		RelatedActresses: utils.UniqueStrings(performers),
		PublishedAt:      ParsePublishedAt(row.Get(ColPublishedAt), now),
		FetchedAt:        now,
	}
}

// ParsePublishedAt accepts a spreadsheet date serial, a plain yyyy/m/d (or
// yyyy-m-d) date taken as JST midnight, or RFC3339. Anything else yields now.
func ParsePublishedAt(value string, now time.Time) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return now
	}
	if m := plainDate.FindStringSubmatch(value); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		return time.Date(y, time.Month(mo), d, 0, 0, 0, 0, jst)
	}
	if serial, err := strconv.ParseFloat(value, 64); err == nil && !math.IsInf(serial, 0) && !math.IsNaN(serial) {
		return SerialToTime(serial)
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return now
}

// SerialToTime converts a spreadsheet day serial (days since 1899-12-30) to UTC.
func SerialToTime(serial float64) time.Time {
	ms := math.Round((serial - 25569) * 86400 * 1000)
	return time.UnixMilli(int64(ms)).UTC()
}

// ParseList reads a list cell: a JSON array, or comma/newline separated values.
func ParseList(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return []string{}
	}
	if strings.HasPrefix(value, "[") {
		var items []any
		if err := json.Unmarshal([]byte(value), &items); err != nil {
			return []string{}
		}
		out := make([]string, 0, len(items))
		for _, it := range items {
			if s := strings.TrimSpace(fmt.Sprint(it)); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	fields := strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == '\n' })
	return nonEmpty(fields)
}
