// Package placeholder holds the one predicate that decides whether a remote
// asset is real or a "now printing" / not-found stand-in. The patterns are
// third-party markup and change without notice, so they come from config.
package placeholder

import (
	"bytes"
	"net/http"
	"strings"

	"avinfo/internal/config"
)

type Detector struct {
	urlPatterns  []string
	bodyPatterns [][]byte
}

func New(cfg config.PatternsConfig) *Detector {
	d := &Detector{}
	for _, p := range cfg.Placeholder {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			d.urlPatterns = append(d.urlPatterns, p)
		}
	}
	for _, p := range cfg.Miss {
		if p = strings.TrimSpace(p); p != "" {
			d.bodyPatterns = append(d.bodyPatterns, []byte(p))
		}
	}
	return d
}

// IsPlaceholderURL reports whether url points at a known placeholder asset.
func (d *Detector) IsPlaceholderURL(url string) bool {
	if url == "" {
		return true
	}
	lower := strings.ToLower(url)
	for _, p := range d.urlPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// IsMiss reports whether a probe response means "does not exist": an error
// status, a redirect onto a placeholder asset, or a not-found page served
// with 200.
func (d *Detector) IsMiss(status int, finalURL string, body []byte) bool {
	if status >= http.StatusBadRequest {
		return true
	}
	if finalURL != "" && d.IsPlaceholderURL(finalURL) {
		return true
	}
	for _, p := range d.bodyPatterns {
		if bytes.Contains(body, p) {
			return true
		}
	}
	return false
}

// FilterURLs drops empty, duplicate and placeholder URLs, keeping order.
func (d *Detector) FilterURLs(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] || d.IsPlaceholderURL(u) {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
