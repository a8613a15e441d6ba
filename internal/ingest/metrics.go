package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const pushJob = "avinfo_ingest"

// Metrics lives on its own registry: one ingest run is one push.
type Metrics struct {
	Registry *prometheus.Registry

	Records          *prometheus.CounterVec
	PipelineRuns     *prometheus.CounterVec
	PipelineDuration *prometheus.GaugeVec
	RunDuration      prometheus.Gauge
	RunStatus        *prometheus.GaugeVec
	LastRun          prometheus.Gauge
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		Records: f.NewCounterVec(prometheus.CounterOpts{
			Name: "avinfo_ingest_records_total",
			Help: "Records handled per pipeline, by outcome (fetched, created, updated, skipped, failed)",
		}, []string{"pipeline", "outcome"}),
		PipelineRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "avinfo_ingest_pipeline_runs_total",
			Help: "Pipeline runs by final status",
		}, []string{"pipeline", "status"}),
		PipelineDuration: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "avinfo_ingest_pipeline_duration_seconds",
			Help: "Wall time of the last run of each pipeline",
		}, []string{"pipeline"}),
		RunDuration: f.NewGauge(prometheus.GaugeOpts{
			Name: "avinfo_ingest_run_duration_seconds",
			Help: "Wall time of the last ingest run",
		}),
		RunStatus: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "avinfo_ingest_run_status",
			Help: "1 for the status of the last run, 0 otherwise",
		}, []string{"status"}),
		LastRun: f.NewGauge(prometheus.GaugeOpts{
			Name: "avinfo_ingest_last_run_timestamp_seconds",
			Help: "Unix time the last ingest run finished",
		}),
	}
}

func (m *Metrics) ObservePipeline(oc Outcome, d time.Duration) {
	status := "ok"
	if !oc.OK() {
		status = "failed"
	}
	m.PipelineRuns.WithLabelValues(oc.Name, status).Inc()
	m.PipelineDuration.WithLabelValues(oc.Name).Set(d.Seconds())
	for outcome, n := range oc.Stats {
		m.Records.WithLabelValues(oc.Name, outcome).Add(float64(n))
	}
}

func (m *Metrics) ObserveRun(r Report) {
	m.RunDuration.Set(r.Duration.Seconds())
	for _, s := range []Status{AllSucceeded, PartialFailure, AllFailed} {
		v := 0.0
		if s == r.Status {
			v = 1
		}
		m.RunStatus.WithLabelValues(s.String()).Set(v)
	}
	m.LastRun.SetToCurrentTime()
}

// Push sends the registry to a Pushgateway. An empty url is a no-op.
func (m *Metrics) Push(ctx context.Context, url string) error {
	if url == "" {
		return nil
	}
	if err := push.New(url, pushJob).Gatherer(m.Registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
