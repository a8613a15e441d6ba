// Command ingest runs one collection pass: every configured source is
// fetched, normalized, linked and upserted, then the operator is notified of
// any failure and the derived stats are refreshed.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"avinfo/internal/article"
	"avinfo/internal/config"
	"avinfo/internal/httpclient"
	"avinfo/internal/ingest"
	"avinfo/internal/logger"
	"avinfo/internal/normalize"
	"avinfo/internal/notify"
	"avinfo/internal/placeholder"
	"avinfo/internal/relate"
	"avinfo/internal/schedule"
	"avinfo/internal/scraper"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], run)
	stop()
	os.Exit(code)
}

// execute parses args and hands the selected mode to runFn. Flag errors
// exit 2; otherwise the exit code is runFn's.
func execute(ctx context.Context, args []string, runFn func(context.Context, ingest.Mode) int) int {
	code := 0
	root := &cobra.Command{
		Use:           "ingest",
		Short:         "Collect catalog, sheet, feed and generated topics into the article store",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode, err := modeFromFlags(cmd)
			if err != nil {
				return err
			}
			code = runFn(cmd.Context(), mode)
			return nil
		},
	}
	root.Flags().String("mode", string(ingest.ModeNormal), "run mode: normal or archive")
	root.Flags().Bool("archive", false, "shorthand for --mode archive")
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "ingest:", err)
		return 2
	}
	return code
}

func modeFromFlags(cmd *cobra.Command) (ingest.Mode, error) {
	if archive, _ := cmd.Flags().GetBool("archive"); archive {
		return ingest.ModeArchive, nil
	}
	raw, _ := cmd.Flags().GetString("mode")
	switch mode := ingest.Mode(raw); mode {
	case ingest.ModeNormal, ingest.ModeArchive:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want normal or archive)", raw)
	}
}

func run(ctx context.Context, mode ingest.Mode) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 1
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Dir: cfg.Log.Dir, Name: "ingest"})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		return 1
	}
	defer log.Sync()
	log = log.With("mode", string(mode))

	policy := httpclient.PolicyFromConfig(cfg.Fetch)
	client := httpclient.New(policy, httpclient.WithRateLimit(cfg.Fetch.RPS), httpclient.WithLogger(log))
	notifier := notify.NewWebhook(cfg.Notify.WebhookURL, client, log)

	fatal := func(stage string, err error) int {
		log.Error("ingest setup failed", "stage", stage, "error", err)
		notifier.Notify(ctx, fmt.Sprintf("Ingest aborted during %s: %v", stage, err))
		return 1
	}

	loc, err := cfg.Publish.Location()
	if err != nil {
		return fatal("timezone", err)
	}

	backend, err := article.Open(ctx, cfg.Store)
	if err != nil {
		return fatal("store", err)
	}
	defer backend.Close()
	log.Info("store ready", "driver", backend.Driver, "where", backend.Where)

	store := backend.Store
	detector := placeholder.New(cfg.Patterns)

	deps := ingest.Deps{
		Catalog:    cfg.Catalog,
		Store:      store,
		Normalizer: normalize.New(normalize.ConfigFrom(cfg.Catalog), detector),
		Linker:     relate.NewLinker(store),
		Window:     schedule.Window{StartHour: cfg.Publish.WindowStart, EndHour: cfg.Publish.WindowEnd, Location: loc},

		CatalogSource: scraper.NewCatalogSource(cfg.Catalog, client, detector, log.With("source", "catalog")),
		SheetSource:   scraper.NewSheetSource(cfg.Sheet, policy, log.With("source", "sheet")),
		FeedSource:    scraper.NewRSSSource(cfg.RSS, client, log.With("source", "rss")),
		Generated:     scraper.NewGeneratedSource(store, cfg.Topics.PerRun, cfg.Topics.RankingSize),

		Log: log,
		Now: time.Now,
	}

	metrics := ingest.NewMetrics()
	opts := []ingest.Option{
		ingest.WithNotifier(notifier),
		ingest.WithMetrics(metrics),
		ingest.WithLogger(log),
	}
	if cfg.Stats.Refresh {
		opts = append(opts, ingest.WithRefreshers(ingest.StatsCascade(store)...))
	}

	report := ingest.New(ingest.Pipelines(mode, deps), opts...).Run(ctx)

	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := metrics.Push(pushCtx, cfg.Metrics.PushgatewayURL); err != nil {
		log.Warn("metrics push failed", "error", err)
	}

	fmt.Println(report.Message)
	return report.ExitCode()
}
