package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"avinfo/internal/config"
	"avinfo/internal/httpclient"
	"avinfo/internal/logger"
	"avinfo/internal/normalize"
	"avinfo/internal/placeholder"
	"avinfo/pkg/models"
)

// MaxWorkImages caps the images kept per catalog item.
const MaxWorkImages = 5

// KnownKeys is the immutable snapshot of natural keys already stored.
type KnownKeys interface {
	Has(key string) bool
}

// CatalogQuery is one pagination run against the ItemList API.
type CatalogQuery struct {
	Known       KnownKeys
	TargetNew   int
	OffsetStart int // 1-based
	MaxPages    int
}

// NormalQuery is the default run: newest items, stop at the configured target.
func NormalQuery(cfg config.CatalogConfig, known KnownKeys) CatalogQuery {
	return CatalogQuery{Known: known, TargetNew: cfg.TargetNew, OffsetStart: 1, MaxPages: cfg.MaxPages}
}

// ArchiveQuery walks further back in the catalog.
func ArchiveQuery(cfg config.CatalogConfig, known KnownKeys) CatalogQuery {
	return CatalogQuery{
		Known:       known,
		TargetNew:   cfg.ArchiveTargetNew(),
		OffsetStart: cfg.ArchiveOffsetStart,
		MaxPages:    cfg.ArchivePages,
	}
}

// CatalogSource fetches items from the affiliate catalog API.
type CatalogSource struct {
	cfg      config.CatalogConfig
	client   *httpclient.Client
	prober   *Prober
	detector *placeholder.Detector
	log      *logger.Logger
	now      func() time.Time
}

func NewCatalogSource(cfg config.CatalogConfig, client *httpclient.Client, detector *placeholder.Detector, log *logger.Logger) *CatalogSource {
	if log == nil {
		log = logger.Nop()
	}
	return &CatalogSource{
		cfg:      cfg,
		client:   client,
		prober:   NewProber(client, detector, log),
		detector: detector,
		log:      log,
		now:      time.Now,
	}
}

func (s *CatalogSource) Name() string { return "catalog" }

// Fetch pages through the API until q.TargetNew new items are collected,
// q.MaxPages pages were read, or the API runs dry. Missing credentials are
// not an error: the source is skipped.
func (s *CatalogSource) Fetch(ctx context.Context, q CatalogQuery) ([]models.RawWork, error) {
	out := []models.RawWork{}
	if s.cfg.APIID == "" || s.cfg.AffiliateID == "" {
		s.log.Warn("catalog credentials missing, skipping fetch")
		return out, nil
	}
	if q.OffsetStart < 1 {
		q.OffsetStart = 1
	}

	accepted := make(map[string]bool)
	var skippedKnown, skippedVariant, skippedPlaceholder int

	for page := 0; page < q.MaxPages && len(out) < q.TargetNew; page++ {
		offset := q.OffsetStart + page*s.cfg.PageSize
		items, err := s.fetchPage(ctx, offset)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			break
		}

		for _, item := range items {
			raw := s.parseItem(item)
			key := strings.ToUpper(raw.ContentID)
			if key == "" || raw.CanonicalURL == "" {
				continue
			}
			if (q.Known != nil && q.Known.Has(key)) || accepted[key] {
				skippedKnown++
				continue
			}
			if s.isSkippedVariant(raw) {
				skippedVariant++
				continue
			}

			ok, err := s.selectImages(ctx, item, &raw)
			if err != nil {
				return nil, err
			}
			if !ok {
				skippedPlaceholder++
				continue
			}
			if s.cfg.ValidateEmbed {
				s.checkEmbed(ctx, &raw)
			}

			accepted[key] = true
			out = append(out, raw)
			if len(out) >= q.TargetNew {
				break
			}
		}

		if len(items) < s.cfg.PageSize {
			break
		}
	}

	s.log.Info("catalog fetch done",
		"new", len(out), "skipped_known", skippedKnown,
		"skipped_variant", skippedVariant, "skipped_placeholder", skippedPlaceholder)
	return out, nil
}

func (s *CatalogSource) fetchPage(ctx context.Context, offset int) ([]gjson.Result, error) {
	u, err := url.Parse(s.cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("catalog: bad endpoint: %w", err)
	}
	q := u.Query()
	q.Set("api_id", s.cfg.APIID)
	q.Set("affiliate_id", s.cfg.AffiliateID)
	q.Set("site", s.cfg.Site)
	q.Set("service", s.cfg.Service)
	q.Set("floor", s.cfg.Floor)
	q.Set("sort", s.cfg.Sort)
	q.Set("hits", strconv.Itoa(s.cfg.PageSize))
	q.Set("offset", strconv.Itoa(offset))
	q.Set("output", "json")
	u.RawQuery = q.Encode()

	resp, err := s.client.Get(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("catalog: request offset %d: %w", offset, err)
	}
	if !gjson.ValidBytes(resp.Body) {
		return nil, fmt.Errorf("catalog: decode offset %d: invalid JSON", offset)
	}

	result := gjson.GetBytes(resp.Body, "result")
	if st := result.Get("status"); st.Exists() && st.Int() != 200 {
		return nil, fmt.Errorf("catalog: API status %s: %s", st.String(), result.Get("message").String())
	}
	return result.Get("items").Array(), nil
}

func (s *CatalogSource) parseItem(item gjson.Result) models.RawWork {
	cid := firstString(item, "content_id", "product_id")
	info := item.Get("iteminfo")
	return models.RawWork{
		ContentID:    cid,
		Title:        strings.TrimSpace(item.Get("title").String()),
		Actresses:    names(info.Get("actress")),
		Maker:        firstName(info.Get("maker")),
		Label:        firstName(info.Get("label")),
		Genres:       names(info.Get("genre")),
		Series:       firstName(info.Get("series")),
		ReleaseDate:  strings.TrimSpace(item.Get("date").String()),
		CanonicalURL: firstString(item, "URL", "URLS.pc"),
		AffiliateURL: firstString(item, "affiliateURL", "URLS.affiliate"),
		Images:       []models.ArticleImage{},
		FetchedAt:    s.now(),
	}
}

func (s *CatalogSource) isSkippedVariant(raw models.RawWork) bool {
	if !s.cfg.SkipVR {
		return false
	}
	haystack := append([]string{raw.ContentID}, raw.Genres...)
	for _, p := range s.cfg.SkipPatterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		for _, h := range haystack {
			if strings.Contains(strings.ToLower(h), p) {
				return true
			}
		}
	}
	return false
}

// selectImages fills raw.Images. It reports false when the API offered
// images and every one of them was a placeholder.
func (s *CatalogSource) selectImages(ctx context.Context, item gjson.Result, raw *models.RawWork) (bool, error) {
	var candidates []string
	for _, path := range []string{"imageURL.large", "imageURL.list", "imageURL.small", "sampleImageURL"} {
		collectURLs(item.Get(path), &candidates)
	}
	thumbs := s.detector.FilterURLs(candidates)
	if len(candidates) > 0 && len(thumbs) == 0 {
		return false, nil
	}

	var urls []string
	if pkg := s.packageURL(raw.ContentID); pkg != "" && len(thumbs) > 0 {
		keep := true
		if s.cfg.ValidateThumbnails {
			exists, err := s.prober.ImageExists(ctx, pkg)
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			if err != nil {
				s.log.Debug("thumbnail probe failed, using API images", "content_id", raw.ContentID, "error", err)
			}
			keep = err == nil && exists
		}
		if keep {
			urls = append(urls, pkg)
		}
	}
	urls = s.detector.FilterURLs(append(urls, thumbs...))
	if len(urls) > MaxWorkImages {
		urls = urls[:MaxWorkImages]
	}

	raw.Images = make([]models.ArticleImage, 0, len(urls))
	for i, u := range urls {
		raw.Images = append(raw.Images, models.ArticleImage{URL: u, Alt: fmt.Sprintf("%s %d", raw.Title, i+1)})
	}
	return true, nil
}

// packageURL is the high-resolution package image built from the template.
func (s *CatalogSource) packageURL(contentID string) string {
	if s.cfg.ImageTemplate == "" || contentID == "" {
		return ""
	}
	return strings.ReplaceAll(s.cfg.ImageTemplate, "{cid}", strings.ToLower(contentID))
}

// checkEmbed probes the player page. A miss drops the embed but keeps the
// record; a probe error leaves the decision to the normalizer.
func (s *CatalogSource) checkEmbed(ctx context.Context, raw *models.RawWork) {
	src := normalize.EmbedURL(s.cfg.EmbedID(), raw.ContentID, s.cfg.EmbedSize)
	if src == "" {
		return
	}
	exists, err := s.prober.PageExists(ctx, src)
	if err != nil {
		s.log.Debug("embed probe failed", "content_id", raw.ContentID, "error", err)
		return
	}
	if !exists {
		raw.EmbedRejected = true
		return
	}
	raw.EmbedHTML = normalize.EmbedHTML(src)
}

func firstString(r gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := strings.TrimSpace(r.Get(p).String()); v != "" {
			return v
		}
	}
	return ""
}

func names(list gjson.Result) []string {
	out := []string{}
	for _, v := range list.Array() {
		if name := strings.TrimSpace(v.Get("name").String()); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func firstName(list gjson.Result) string {
	if n := names(list); len(n) > 0 {
		return n[0]
	}
	return ""
}

// collectURLs walks nested objects and arrays, appending every string leaf.
func collectURLs(r gjson.Result, dst *[]string) {
	switch {
	case !r.Exists():
	case r.IsObject() || r.IsArray():
		r.ForEach(func(_, v gjson.Result) bool {
			collectURLs(v, dst)
			return true
		})
	case r.Type == gjson.String:
		if v := strings.TrimSpace(r.String()); v != "" {
			*dst = append(*dst, v)
		}
	}
}
