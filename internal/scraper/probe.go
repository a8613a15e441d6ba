package scraper

import (
	"context"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"avinfo/internal/httpclient"
	"avinfo/internal/logger"
	"avinfo/internal/placeholder"
)

// probeStatuses come back as responses so the miss predicate can judge them.
var probeStatuses = []int{
	http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound,
	http.StatusMethodNotAllowed, http.StatusGone,
}

// Prober checks whether a thumbnail or player page really exists. Calls go
// through a circuit breaker so a dead asset host stops costing a full retry
// cycle per item.
type Prober struct {
	client   *httpclient.Client
	detector *placeholder.Detector
	cb       *gobreaker.CircuitBreaker[*httpclient.Response]
	log      *logger.Logger
}

func NewProber(client *httpclient.Client, detector *placeholder.Detector, log *logger.Logger) *Prober {
	if log == nil {
		log = logger.Nop()
	}
	cb := gobreaker.NewCircuitBreaker[*httpclient.Response](gobreaker.Settings{
		Name:        "asset-probe",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("probe breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &Prober{client: client, detector: detector, cb: cb, log: log}
}

// ImageExists sends HEAD, retrying as GET when the host rejects HEAD.
func (p *Prober) ImageExists(ctx context.Context, url string) (bool, error) {
	resp, err := p.cb.Execute(func() (*httpclient.Response, error) {
		resp, err := p.client.Head(ctx, url, httpclient.AllowStatus(probeStatuses...))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusMethodNotAllowed {
			return p.client.Get(ctx, url, httpclient.AllowStatus(probeStatuses...))
		}
		return resp, nil
	})
	if err != nil {
		return false, err
	}
	return !p.detector.IsMiss(resp.StatusCode, resp.FinalURL, resp.Body), nil
}

// PageExists fetches url with GET so the body can be checked for a
// not-found page served with 200.
func (p *Prober) PageExists(ctx context.Context, url string) (bool, error) {
	resp, err := p.cb.Execute(func() (*httpclient.Response, error) {
		return p.client.Get(ctx, url, httpclient.AllowStatus(probeStatuses...))
	})
	if err != nil {
		return false, err
	}
	return !p.detector.IsMiss(resp.StatusCode, resp.FinalURL, resp.Body), nil
}
