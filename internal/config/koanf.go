package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where a YAML config file is looked up, first hit wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/avinfo/config.yaml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			Endpoint:           "https://api.dmm.com/affiliate/v3/ItemList",
			Site:               "FANZA",
			Service:            "digital",
			Floor:              "videoa",
			Sort:               "date",
			TargetNew:          3,
			PageSize:           20,
			MaxPages:           5,
			ArchiveOffsetStart: 1,
			ArchivePages:       5,
			SkipVR:             true,
			SkipPatterns:       []string{"vr"},
			EmbedSize:          "1280_720",
			ImageTemplate:      "https://pics.dmm.co.jp/digital/video/{cid}/{cid}pl.jpg",
		},
		Fetch: FetchConfig{
			Retries:   2,
			TimeoutMs: 8000,
			BackoffMs: 800,
		},
		Publish: PublishConfig{
			WindowStart: 9,
			WindowEnd:   23,
			Timezone:    "Local",
		},
		Sheet: SheetConfig{
			SheetName: "embeds",
		},
		RSS: RSSConfig{
			MaxItems: 10,
		},
		Topics: TopicsConfig{
			PerRun:      3,
			RankingSize: 10,
		},
		Stats: StatsConfig{Refresh: true},
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   "data/avinfo.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Dir:    "logs",
		},
		API: APIConfig{Addr: ":8080"},
		Patterns: PatternsConfig{
			Placeholder: []string{"now_printing", "nowprinting", "noimage", "no_image"},
			Miss: []string{
				"指定されたページが見つかりません",
				"お探しのページは見つかりません",
				"404 Not Found",
				"Page not found",
			},
		},
	}
}

// Default returns the built-in defaults; useful in tests.
func Default() *Config {
	return defaultConfig()
}

// Load layers defaults, an optional YAML file and environment variables
// (highest priority), then validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"catalog.skip_patterns",
	"rss.feed_urls",
	"patterns.placeholder",
	"patterns.miss",
}

// processSliceFields splits comma separated env values for slice keys.
// Values that came from YAML are already slices and are left alone.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		strVal, ok := val.(string)
		if !ok {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"dmm_api_id":                     "catalog.api_id",
	"dmm_affiliate_id":               "catalog.affiliate_id",
	"dmm_link_affiliate_id":          "catalog.link_affiliate_id",
	"dmm_embed_affiliate_id":         "catalog.embed_affiliate_id",
	"dmm_endpoint":                   "catalog.endpoint",
	"dmm_site":                       "catalog.site",
	"dmm_service":                    "catalog.service",
	"dmm_floor":                      "catalog.floor",
	"dmm_sort":                       "catalog.sort",
	"dmm_hits_per_run":               "catalog.target_new",
	"dmm_page_size":                  "catalog.page_size",
	"dmm_max_pages":                  "catalog.max_pages",
	"dmm_archive_offset_start":       "catalog.archive_offset_start",
	"dmm_archive_pages":              "catalog.archive_pages",
	"dmm_archive_target":             "catalog.archive_target",
	"dmm_skip_vr":                    "catalog.skip_vr",
	"dmm_skip_patterns":              "catalog.skip_patterns",
	"dmm_validate_embed":             "catalog.validate_embed",
	"dmm_validate_thumbnails":        "catalog.validate_thumbnails",
	"dmm_embed_size":                 "catalog.embed_size",
	"dmm_affiliate_link_style":       "catalog.link_style",
	"dmm_new_affiliate_url_template": "catalog.url_template",
	"dmm_image_template":             "catalog.image_template",

	"fetch_retries":    "fetch.retries",
	"fetch_timeout_ms": "fetch.timeout_ms",
	"fetch_backoff_ms": "fetch.backoff_ms",
	"request_rps":      "fetch.rps",

	"publish_window_start": "publish.window_start",
	"publish_window_end":   "publish.window_end",
	"publish_timezone":     "publish.timezone",

	"gsheets_spreadsheet_id":      "sheet.spreadsheet_id",
	"gsheets_sheet_name":          "sheet.sheet_name",
	"google_service_account_json": "sheet.service_account_json",
	"google_service_account_file": "sheet.service_account_file",
	"sheet_csv_path":              "sheet.csv_path",

	"rss_feed_urls": "rss.feed_urls",
	"rss_max_items": "rss.max_items",

	"topics_per_run": "topics.per_run",
	"ranking_size":   "topics.ranking_size",

	"notify_webhook_url":    "notify.webhook_url",
	"refresh_actress_stats": "stats.refresh",

	"store_driver":   "store.driver",
	"avinfo_db_path": "store.path",
	"pg_dsn":         "store.pg_dsn",

	"log_level":  "log.level",
	"log_format": "log.format",
	"log_dir":    "log.dir",

	"metrics_pushgateway_url": "metrics.pushgateway_url",
	"api_addr":                "api.addr",

	"placeholder_patterns": "patterns.placeholder",
	"miss_patterns":        "patterns.miss",
}

// envTransformFunc maps a known environment variable to its koanf path.
// Unknown variables map to "" and are dropped by the provider.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
