package normalize

import (
	"fmt"
	"net/url"
	"strings"
)

const embedBase = "https://www.dmm.co.jp/litevideo/-/part/=/affi_id=%s/cid=%s/size=%s/"

// AffiliateURL builds the monetization link for canonical. The first
// matching style wins: utm tracking params, the URL template, then a plain
// aff_id parameter. It returns "" when no affiliate id is configured.
func (n *Normalizer) AffiliateURL(canonical string) string {
	canonical = strings.TrimSpace(canonical)
	id := n.cfg.LinkAffiliateID
	if canonical == "" || id == "" {
		return ""
	}

	if n.cfg.LinkStyle == "utm" {
		return withParams(canonical, [][2]string{
			{"utm_medium", "dmm_affiliate"},
			{"utm_source", id},
			{"utm_term", "fanza.co.jp"},
			{"utm_campaign", "affiliate_search_link"},
			{"utm_content", "link"},
		}, true)
	}

	if tmpl := n.cfg.URLTemplate; tmpl != "" {
		r := strings.NewReplacer(
			"{encoded_url}", url.QueryEscape(canonical),
			"{url}", canonical,
			"{affiliate_id}", id,
		)
		return r.Replace(tmpl)
	}

	return withParams(canonical, [][2]string{{"aff_id", id}}, false)
}

// withParams sets params on raw. Unless overwrite is set, existing keys win.
func withParams(raw string, params [][2]string, overwrite bool) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		parts := make([]string, 0, len(params))
		for _, p := range params {
			parts = append(parts, p[0]+"="+url.QueryEscape(p[1]))
		}
		sep := "?"
		if strings.Contains(raw, "?") {
			sep = "&"
		}
		return raw + sep + strings.Join(parts, "&")
	}
	q := u.Query()
	for _, p := range params {
		if overwrite || !q.Has(p[0]) {
			q.Set(p[0], p[1])
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// EmbedURL is the player URL for a content id.
func EmbedURL(affiliateID, contentID, size string) string {
	cid := strings.ToLower(strings.TrimSpace(contentID))
	if affiliateID == "" || cid == "" {
		return ""
	}
	if size == "" {
		size = "1280_720"
	}
	return fmt.Sprintf(embedBase, affiliateID, cid, size)
}

// EmbedHTML wraps a player URL in the responsive iframe snippet.
func EmbedHTML(src string) string {
	if src == "" {
		return ""
	}
	return `<div style="width:100%; padding-top: 75%; position:relative;">` +
		`<iframe width="100%" height="100%" max-width="1280px" style="position: absolute; top: 0; left: 0;" src="` +
		src + `" scrolling="no" frameborder="0" allowfullscreen></iframe></div>`
}

func (n *Normalizer) embedFor(contentID string) string {
	return EmbedHTML(EmbedURL(n.cfg.EmbedAffiliateID, contentID, n.cfg.EmbedSize))
}
