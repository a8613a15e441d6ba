package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"avinfo/internal/article"
	"avinfo/internal/config"
	"avinfo/internal/mirror"
	"avinfo/pkg/models"
)

func main() {
	var (
		outPath = flag.String("out", "data/mirror.json", "output JSON path")
		limit   = flag.Int("limit", 200, "how many works to export")
	)
	flag.Parse()

	if err := run(*outPath, *limit); err != nil {
		fmt.Fprintln(os.Stderr, "export-mirror:", err)
		os.Exit(1)
	}
}

func run(outPath string, limit int) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	backend, err := article.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer backend.Close()

	works, err := backend.Store.LatestByType(ctx, models.TypeWork, limit)
	if err != nil {
		return fmt.Errorf("load works: %w", err)
	}
	items := mirror.FromArticles(works)
	if err := mirror.Save(outPath, items); err != nil {
		return fmt.Errorf("write mirror: %w", err)
	}

	fmt.Printf("exported %d works to %s\n", len(items), outPath)
	return nil
}
