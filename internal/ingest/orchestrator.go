// Package ingest runs every source pipeline to completion, aggregates the
// outcomes into one run status, notifies, and refreshes the aggregate stats.
package ingest

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"avinfo/internal/logger"
	"avinfo/internal/notify"
)

// Stats is a pipeline's tally, e.g. fetched/created/updated/skipped/failed.
type Stats map[string]int

func (s Stats) Inc(key string) { s[key]++ }

// Pipeline is one independent source run.
type Pipeline struct {
	Name string
	Run  func(ctx context.Context) (Stats, error)
}

type Outcome struct {
	Name  string
	Stats Stats
	Err   error
}

func (o Outcome) OK() bool { return o.Err == nil }

type Status int

const (
	AllSucceeded Status = iota
	PartialFailure
	AllFailed
)

func (s Status) String() string {
	switch s {
	case AllSucceeded:
		return "ok"
	case PartialFailure:
		return "partial"
	default:
		return "failed"
	}
}

type Report struct {
	Outcomes  []Outcome
	Duration  time.Duration
	Status    Status
	Succeeded int
	// Refreshed is true when the stats cascade was attempted.
	Refreshed bool
	Message   string
}

// ExitCode is 1 only when no pipeline succeeded.
func (r Report) ExitCode() int {
	if r.Status == AllFailed {
		return 1
	}
	return 0
}

type Orchestrator struct {
	pipelines  []Pipeline
	notifier   notify.Notifier
	refreshers []Refresher
	metrics    *Metrics
	log        *logger.Logger
	now        func() time.Time
}

type Option func(*Orchestrator)

func WithNotifier(n notify.Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithRefreshers sets the stats cascade. Leave it unset to skip refreshing.
func WithRefreshers(rs ...Refresher) Option {
	return func(o *Orchestrator) { o.refreshers = rs }
}

func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithLogger(l *logger.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func New(pipelines []Pipeline, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		pipelines: pipelines,
		notifier:  notify.Nop{},
		log:       logger.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run starts every pipeline concurrently and waits for all of them; one
// pipeline failing never cancels another.
func (o *Orchestrator) Run(ctx context.Context) Report {
	start := o.now()
	outcomes := make([]Outcome, len(o.pipelines))

	var g errgroup.Group
	for i, p := range o.pipelines {
		g.Go(func() error {
			outcomes[i] = o.runOne(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Outcomes: outcomes, Duration: o.now().Sub(start)}
	for _, oc := range outcomes {
		if oc.OK() {
			report.Succeeded++
		}
	}
	switch {
	case report.Succeeded == 0:
		report.Status = AllFailed
	case report.Succeeded < len(outcomes):
		report.Status = PartialFailure
	default:
		report.Status = AllSucceeded
	}
	report.Message = FormatReport(report)

	switch report.Status {
	case AllFailed:
		o.log.Error("ingest finished with no successful pipelines", "duration", report.Duration)
		o.notifier.Notify(ctx, report.Message)
	case PartialFailure:
		o.log.Warn("ingest finished with partial failures",
			"succeeded", report.Succeeded, "total", len(outcomes), "duration", report.Duration)
		o.notifier.Notify(ctx, report.Message)
		report.Refreshed = o.refresh(ctx)
	default:
		o.log.Info("ingest finished", "pipelines", len(outcomes), "duration", report.Duration)
		report.Refreshed = o.refresh(ctx)
	}

	if o.metrics != nil {
		o.metrics.ObserveRun(report)
	}
	return report
}

func (o *Orchestrator) runOne(ctx context.Context, p Pipeline) (oc Outcome) {
	oc.Name = p.Name
	start := o.now()
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("pipeline panicked", "pipeline", p.Name, "panic", r, "stack", string(debug.Stack()))
			oc.Stats = nil
			oc.Err = fmt.Errorf("panic: %v", r)
		}
		if oc.Err != nil {
			o.log.Warn("pipeline failed", "pipeline", p.Name, "error", oc.Err)
		} else {
			o.log.Info("pipeline done", "pipeline", p.Name, "stats", oc.Stats)
		}
		if o.metrics != nil {
			o.metrics.ObservePipeline(oc, o.now().Sub(start))
		}
	}()
	oc.Stats, oc.Err = p.Run(ctx)
	return oc
}

// refresh reports whether the cascade was attempted.
func (o *Orchestrator) refresh(ctx context.Context) bool {
	if len(o.refreshers) == 0 {
		return false
	}
	RunCascade(ctx, o.refreshers, o.log)
	return true
}

// FormatReport renders the notification text: headline, duration and
// success count, then one line per pipeline.
func FormatReport(r Report) string {
	var b strings.Builder
	switch r.Status {
	case AllFailed:
		b.WriteString("Ingest finished: no successful fetchers")
	case PartialFailure:
		b.WriteString("Ingest finished with partial failures")
	default:
		b.WriteString("Ingest finished successfully")
	}
	fmt.Fprintf(&b, "\nDuration: %.1fs | Success: %d/%d", r.Duration.Seconds(), r.Succeeded, len(r.Outcomes))
	for _, oc := range r.Outcomes {
		if oc.OK() {
			if oc.Stats == nil {
				oc.Stats = Stats{}
			}
			stats, _ := json.Marshal(oc.Stats)
			fmt.Fprintf(&b, "\n%s: ok %s", oc.Name, stats)
			continue
		}
		fmt.Fprintf(&b, "\n%s: failed %s", oc.Name, oneLine(oc.Err))
	}
	return b.String()
}

// oneLine keeps a joined error on its outcome line.
func oneLine(err error) string {
	return strings.ReplaceAll(strings.TrimSpace(err.Error()), "\n", "; ")
}
