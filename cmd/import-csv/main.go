// Command import-csv loads a sheet-shaped CSV (as written by export-csv)
// through the sheet normalizer into the article store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"avinfo/internal/article"
	"avinfo/internal/config"
	"avinfo/internal/httpclient"
	"avinfo/internal/ingest"
	"avinfo/internal/logger"
	"avinfo/internal/normalize"
	"avinfo/internal/placeholder"
	"avinfo/internal/scraper"
)

func main() {
	in := flag.String("in", "data/articles.csv", "input CSV path")
	flag.Parse()

	code, err := run(*in)
	if err != nil {
		fmt.Fprintln(os.Stderr, "import-csv:", err)
		os.Exit(1)
	}
	os.Exit(code)
}

func run(path string) (int, error) {
	cfg, err := config.Load()
	if err != nil {
		return 1, err
	}
	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Name: "import"})
	if err != nil {
		return 1, err
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	backend, err := article.Open(ctx, cfg.Store)
	if err != nil {
		return 1, err
	}
	defer backend.Close()

	sheetCfg := config.SheetConfig{CSVPath: path}
	deps := ingest.Deps{
		Store:       backend.Store,
		Normalizer:  normalize.New(normalize.ConfigFrom(cfg.Catalog), placeholder.New(cfg.Patterns)),
		SheetSource: scraper.NewSheetSource(sheetCfg, httpclient.PolicyFromConfig(cfg.Fetch), log),
		Log:         log,
	}

	report := ingest.New([]ingest.Pipeline{ingest.SheetPipeline(deps)}, ingest.WithLogger(log)).Run(ctx)
	fmt.Println(report.Message)
	return report.ExitCode(), nil
}
