package ingest

import (
	"context"

	"avinfo/internal/logger"
)

// Refresher rebuilds one level of derived stats.
type Refresher struct {
	Name    string
	Refresh func(ctx context.Context) error
}

// StatsRefresher is the part of the article store that owns derived stats.
type StatsRefresher interface {
	RefreshSiteStats(ctx context.Context) error
	RefreshPerformerStats(ctx context.Context) error
}

// StatsCascade tries the full site refresh first and falls back to the
// performer-only refresh.
func StatsCascade(s StatsRefresher) []Refresher {
	return []Refresher{
		{Name: "site_stats", Refresh: s.RefreshSiteStats},
		{Name: "performer_stats", Refresh: s.RefreshPerformerStats},
	}
}

// RunCascade stops at the first refresher that succeeds. Failures are only
// logged and it reports whether any step succeeded.
func RunCascade(ctx context.Context, rs []Refresher, log *logger.Logger) bool {
	for _, r := range rs {
		if err := r.Refresh(ctx); err != nil {
			log.Warn("stats refresh failed", "refresher", r.Name, "error", err)
			continue
		}
		log.Info("stats refreshed", "refresher", r.Name)
		return true
	}
	if len(rs) > 0 {
		log.Error("every stats refresh failed")
	}
	return false
}
