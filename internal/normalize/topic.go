package normalize

import (
	"strings"
	"time"

	"avinfo/pkg/models"
	"avinfo/pkg/utils"
)

// Topic normalizes generated text. Slug and source URL are required.
func (n *Normalizer) Topic(raw models.RawTopic, publishedAt time.Time) *models.Article {
	slug := strings.TrimSpace(raw.Slug)
	source := strings.TrimSpace(raw.SourceURL)
	if slug == "" || source == "" {
		return nil
	}

	var body bodyLines
	for _, line := range raw.Body {
		if line = strings.TrimSpace(line); line != "" {
			body = append(body, line)
		}
	}
	summary := strings.TrimSpace(raw.Summary)
	if summary == "" {
		summary = raw.Title
	}
	fetchedAt := raw.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = n.now()
	}

	return &models.Article{
		ID:               n.newID(),
		Type:             models.TypeTopic,
		Slug:             slug,
		Title:            raw.Title,
		Summary:          utils.LimitText(summary, 140),
		Body:             body.String(),
		Images:           n.cleanImages(raw.Images, raw.Title),
		SourceURL:        source,
		RelatedWorks:     []string{},
		RelatedActresses: []string{},
		PublishedAt:      publishedAt,
		FetchedAt:        fetchedAt,
	}
}

// Feed normalizes an RSS entry into a topic. The entry's own timestamp is
// used when present, otherwise fallback.
func (n *Normalizer) Feed(item models.RawFeedItem, fallback time.Time) *models.Article {
	slug := strings.TrimSpace(item.Slug)
	link := strings.TrimSpace(item.Link)
	if slug == "" || link == "" {
		return nil
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = item.FeedTitle
	}
	var body bodyLines
	body.add("配信元", item.FeedTitle)
	body.add("カテゴリ", strings.Join(nonEmpty(item.Categories), " / "))
	body.add("概要", utils.LimitText(item.Summary, 200))
	body.add("元記事", link)

	summary := utils.LimitText(item.Summary, 140)
	if summary == "" {
		summary = utils.LimitText(title, 140)
	}
	publishedAt := fallback
	if item.PublishedAt != nil && !item.PublishedAt.IsZero() {
		publishedAt = *item.PublishedAt
	}
	fetchedAt := item.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = n.now()
	}

	var images []models.ArticleImage
	if item.ImageURL != "" {
		images = append(images, models.ArticleImage{URL: item.ImageURL, Alt: title})
	}

	return &models.Article{
		ID:               n.newID(),
		Type:             models.TypeTopic,
		Slug:             slug,
		Title:            title,
		Summary:          summary,
		Body:             body.String(),
		Images:           n.cleanImages(images, title),
		SourceURL:        link,
		RelatedWorks:     []string{},
		RelatedActresses: []string{},
		PublishedAt:      publishedAt,
		FetchedAt:        fetchedAt,
	}
}
