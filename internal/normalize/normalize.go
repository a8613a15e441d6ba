// Package normalize maps source-shaped raw records onto models.Article.
// Every function here is pure apart from the injected clock and id source;
// a nil result means the record is dropped, not that something failed.
package normalize

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"avinfo/internal/config"
	"avinfo/internal/placeholder"
	"avinfo/pkg/models"
)

// Config is the subset of catalog settings the normalizers need.
type Config struct {
	LinkAffiliateID  string
	EmbedAffiliateID string
	LinkStyle        string
	URLTemplate      string
	EmbedSize        string
}

func ConfigFrom(c config.CatalogConfig) Config {
	return Config{
		LinkAffiliateID:  c.LinkID(),
		EmbedAffiliateID: c.EmbedID(),
		LinkStyle:        c.LinkStyle,
		URLTemplate:      c.URLTemplate,
		EmbedSize:        c.EmbedSize,
	}
}

type Normalizer struct {
	cfg      Config
	detector *placeholder.Detector
	now      func() time.Time
	newID    func() string
}

type Option func(*Normalizer)

func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) { n.now = now }
}

func WithIDFunc(fn func() string) Option {
	return func(n *Normalizer) { n.newID = fn }
}

func New(cfg Config, detector *placeholder.Detector, opts ...Option) *Normalizer {
	n := &Normalizer{
		cfg:      cfg,
		detector: detector,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// cleanImages drops placeholder and duplicate URLs. The result is never nil.
func (n *Normalizer) cleanImages(in []models.ArticleImage, alt string) []models.ArticleImage {
	out := make([]models.ArticleImage, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, img := range in {
		u := strings.TrimSpace(img.URL)
		if u == "" || seen[u] || n.detector.IsPlaceholderURL(u) {
			continue
		}
		seen[u] = true
		if img.Alt == "" {
			img.Alt = alt
		}
		img.URL = u
		out = append(out, img)
	}
	return out
}

// bodyLines joins "label: value" facts, skipping empty values.
type bodyLines []string

func (b *bodyLines) add(label, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*b = append(*b, label+": "+value)
	}
}

func (b bodyLines) String() string { return strings.Join(b, "\n") }
