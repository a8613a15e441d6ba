package models

import "time"

// ArticleType is the closed set of record kinds stored in the articles table.
type ArticleType string

const (
	TypeWork    ArticleType = "work"
	TypeActress ArticleType = "actress"
	TypeTopic   ArticleType = "topic"
)

// Valid reports whether t is one of the known article types.
func (t ArticleType) Valid() bool {
	switch t {
	case TypeWork, TypeActress, TypeTopic:
		return true
	}
	return false
}

type ArticleImage struct {
	URL string `json:"url"`
	Alt string `json:"alt"`
}

// Article is the normalized, internal form of every ingested item.
//
// All sources are mapped into this structure first (see internal/normalize),
// enriched with relations, then written to the store from this representation.
type Article struct {
	ID               string         `json:"id"`                      // uuid, generated at normalization
	Type             ArticleType    `json:"type"`                    // work | actress | topic
	Slug             string         `json:"slug"`                    // natural key, primary dedup key
	Title            string         `json:"title"`                   //
	Summary          string         `json:"summary"`                 //
	Body             string         `json:"body"`                    // "label: value" lines
	Images           []ArticleImage `json:"images"`                  // never nil once normalized
	SourceURL        string         `json:"source_url"`              // origin identity, fallback dedup key
	AffiliateURL     string         `json:"affiliate_url,omitempty"` //
	EmbedHTML        string         `json:"embed_html,omitempty"`    // raw player markup
	RelatedWorks     []string       `json:"related_works"`           // slugs, capped, never self
	RelatedActresses []string       `json:"related_actresses"`       // performer slugs
	PublishedAt      time.Time      `json:"published_at"`
	FetchedAt        time.Time      `json:"fetched_at"`
}
