// Package config builds the single, validated configuration value that the
// ingest job and the read API are wired from. Nothing below cmd/ reads the
// environment directly.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Catalog  CatalogConfig  `koanf:"catalog"`
	Fetch    FetchConfig    `koanf:"fetch"`
	Publish  PublishConfig  `koanf:"publish"`
	Sheet    SheetConfig    `koanf:"sheet"`
	RSS      RSSConfig      `koanf:"rss"`
	Topics   TopicsConfig   `koanf:"topics"`
	Notify   NotifyConfig   `koanf:"notify"`
	Stats    StatsConfig    `koanf:"stats"`
	Store    StoreConfig    `koanf:"store"`
	Log      LogConfig      `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	API      APIConfig      `koanf:"api"`
	Patterns PatternsConfig `koanf:"patterns"`
}

// CatalogConfig drives the affiliate catalog fetcher and the work normalizer.
type CatalogConfig struct {
	APIID            string `koanf:"api_id"`
	AffiliateID      string `koanf:"affiliate_id"`
	LinkAffiliateID  string `koanf:"link_affiliate_id"`
	EmbedAffiliateID string `koanf:"embed_affiliate_id"`
	Endpoint         string `koanf:"endpoint" validate:"required,url"`
	Site             string `koanf:"site"`
	Service          string `koanf:"service"`
	Floor            string `koanf:"floor"`
	Sort             string `koanf:"sort"`

	TargetNew int `koanf:"target_new" validate:"min=1"`
	PageSize  int `koanf:"page_size" validate:"min=1,max=100"`
	MaxPages  int `koanf:"max_pages" validate:"min=1"`

	ArchiveOffsetStart int `koanf:"archive_offset_start" validate:"min=1"`
	ArchivePages       int `koanf:"archive_pages" validate:"min=1"`
	// ArchiveTarget of 0 falls back to TargetNew.
	ArchiveTarget int `koanf:"archive_target" validate:"min=0"`

	SkipVR             bool     `koanf:"skip_vr"`
	SkipPatterns       []string `koanf:"skip_patterns"`
	ValidateEmbed      bool     `koanf:"validate_embed"`
	ValidateThumbnails bool     `koanf:"validate_thumbnails"`
	EmbedSize          string   `koanf:"embed_size"`
	LinkStyle          string   `koanf:"link_style" validate:"omitempty,oneof=utm template default"`
	URLTemplate        string   `koanf:"url_template"`
	ImageTemplate      string   `koanf:"image_template"`
}

type FetchConfig struct {
	Retries   int     `koanf:"retries" validate:"min=0,max=10"`
	TimeoutMs int     `koanf:"timeout_ms" validate:"min=1"`
	BackoffMs int     `koanf:"backoff_ms" validate:"min=0"`
	RPS       float64 `koanf:"rps" validate:"min=0"`
}

func (f FetchConfig) Timeout() time.Duration { return time.Duration(f.TimeoutMs) * time.Millisecond }
func (f FetchConfig) Backoff() time.Duration { return time.Duration(f.BackoffMs) * time.Millisecond }

type PublishConfig struct {
	WindowStart int    `koanf:"window_start" validate:"min=0,max=24"`
	WindowEnd   int    `koanf:"window_end" validate:"min=0,max=24"`
	Timezone    string `koanf:"timezone"`
}

// Location resolves Timezone, defaulting to the process local zone.
func (p PublishConfig) Location() (*time.Location, error) {
	if p.Timezone == "" || strings.EqualFold(p.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(p.Timezone)
}

type SheetConfig struct {
	SpreadsheetID      string `koanf:"spreadsheet_id"`
	SheetName          string `koanf:"sheet_name"`
	ServiceAccountJSON string `koanf:"service_account_json"`
	ServiceAccountFile string `koanf:"service_account_file"`
	CSVPath            string `koanf:"csv_path"`
}

type RSSConfig struct {
	FeedURLs []string `koanf:"feed_urls" validate:"dive,url"`
	MaxItems int      `koanf:"max_items" validate:"min=1"`
}

type TopicsConfig struct {
	PerRun      int `koanf:"per_run" validate:"min=0"`
	RankingSize int `koanf:"ranking_size" validate:"min=1"`
}

type NotifyConfig struct {
	WebhookURL string `koanf:"webhook_url" validate:"omitempty,url"`
}

type StatsConfig struct {
	Refresh bool `koanf:"refresh"`
}

type StoreConfig struct {
	Driver string `koanf:"driver" validate:"oneof=sqlite postgres"`
	Path   string `koanf:"path"`
	PGDSN  string `koanf:"pg_dsn" validate:"required_if=Driver postgres"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Dir    string `koanf:"dir"`
}

type MetricsConfig struct {
	PushgatewayURL string `koanf:"pushgateway_url" validate:"omitempty,url"`
}

type APIConfig struct {
	Addr string `koanf:"addr"`
}

// PatternsConfig holds the brittle third-party markers used by the miss
// predicate in internal/placeholder.
type PatternsConfig struct {
	Placeholder []string `koanf:"placeholder"`
	Miss        []string `koanf:"miss"`
}

// Validate checks struct constraints plus the cross-field rules validator
// tags cannot express.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return err
	}
	if _, err := c.Publish.Location(); err != nil {
		return fmt.Errorf("publish.timezone: %w", err)
	}
	if c.Catalog.LinkStyle == "template" && c.Catalog.URLTemplate == "" {
		return fmt.Errorf("catalog.url_template is required when catalog.link_style=template")
	}
	return nil
}

// ArchiveTargetNew is the archive-mode target, falling back to TargetNew.
func (c CatalogConfig) ArchiveTargetNew() int {
	if c.ArchiveTarget > 0 {
		return c.ArchiveTarget
	}
	return c.TargetNew
}

// LinkID is the affiliate id injected into outbound links.
func (c CatalogConfig) LinkID() string {
	if c.LinkAffiliateID != "" {
		return c.LinkAffiliateID
	}
	return c.AffiliateID
}

// EmbedID is the affiliate id used for the player embed.
func (c CatalogConfig) EmbedID() string {
	if c.EmbedAffiliateID != "" {
		return c.EmbedAffiliateID
	}
	return c.LinkID()
}
