package normalize

import (
	"strings"
	"time"

	"avinfo/pkg/models"
	"avinfo/pkg/utils"
)

// Work normalizes a catalog item. It returns nil when the content id or
// canonical URL is missing, or when neither an affiliate link nor an embed
// can be produced.
func (n *Normalizer) Work(raw models.RawWork, publishedAt time.Time) *models.Article {
	contentID := strings.TrimSpace(raw.ContentID)
	canonical := strings.TrimSpace(raw.CanonicalURL)
	if contentID == "" || canonical == "" {
		return nil
	}

	affiliate := strings.TrimSpace(raw.AffiliateURL)
	if affiliate == "" {
		affiliate = n.AffiliateURL(canonical)
	}
	embed := strings.TrimSpace(raw.EmbedHTML)
	if embed == "" && !raw.EmbedRejected {
		embed = n.embedFor(contentID)
	}
	if affiliate == "" && embed == "" {
		return nil
	}

	code := strings.ToUpper(contentID)
	var body bodyLines
	body.add("作品番号", code)
	body.add("出演", strings.Join(nonEmpty(raw.Actresses), " / "))
	body.add("メーカー", raw.Maker)
	body.add("レーベル", raw.Label)
	body.add("シリーズ", raw.Series)
	body.add("ジャンル", strings.Join(nonEmpty(raw.Genres), " / "))
	body.add("配信日", raw.ReleaseDate)
	body.add("概要", utils.LimitText(raw.Title, 120))

	performers := make([]string, 0, len(raw.Actresses))
	for _, name := range raw.Actresses {
		performers = append(performers, utils.Slugify(name))
	}

	fetchedAt := raw.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = n.now()
	}

	return &models.Article{
		ID:               n.newID(),
		Type:             models.TypeWork,
		Slug:             code,
		Title:            raw.Title,
		Summary:          utils.LimitText(raw.Title+" の作品情報。", 140),
		Body:             body.String(),
		Images:           n.cleanImages(raw.Images, raw.Title),
		SourceURL:        canonical,
		AffiliateURL:     affiliate,
		EmbedHTML:        embed,
		RelatedWorks:     []string{},
		RelatedActresses: utils.UniqueStrings(performers),
		PublishedAt:      publishedAt,
		FetchedAt:        fetchedAt,
	}
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
