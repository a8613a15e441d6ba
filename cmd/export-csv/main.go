// Command export-csv dumps the article store in the spreadsheet layout, so
// the file can be edited and fed back through the sheet source's CSV path.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"avinfo/internal/article"
	"avinfo/internal/config"
	"avinfo/internal/normalize"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "export-csv:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "export-csv",
		Short:        "Export stored articles as sheet-shaped CSV",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, _ := cmd.Flags().GetString("out")
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			n, err := export(ctx, cfg.Store, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d articles to %s\n", n, out)
			return nil
		},
	}
	cmd.Flags().String("out", filepath.Join("data", "articles.csv"), "output CSV path")
	return cmd
}

func export(ctx context.Context, storeCfg config.StoreConfig, outPath string) (int, error) {
	backend, err := article.Open(ctx, storeCfg)
	if err != nil {
		return 0, err
	}
	defer backend.Close()

	articles, err := backend.Store.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("load articles: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return 0, err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if err := normalize.WriteSheetCSV(f, articles); err != nil {
		return 0, fmt.Errorf("write csv: %w", err)
	}
	return len(articles), f.Close()
}
