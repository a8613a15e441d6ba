// Package tagging maps free text onto the closed tag vocabulary and reads
// maker/genre meta-tags out of structured "label: value" bodies.
package tagging

import (
	"net/url"
	"strings"
)

const (
	MakerPrefix = "maker:"
	GenrePrefix = "genre:"

	makerLine = "メーカー:"
	genreLine = "ジャンル:"

	defaultLabel   = "タグ"
	defaultSummary = "関連作品やトピックをまとめたタグです。"
)

// ExtractTags returns every vocabulary tag with a keyword occurring in text.
func ExtractTags(text string) []string {
	tags := []string{}
	if text == "" {
		return tags
	}
	for _, def := range vocabulary {
		for _, kw := range def.keywords {
			if strings.Contains(text, kw) {
				tags = append(tags, def.id)
				break
			}
		}
	}
	return tags
}

// ExtractMetaTags scans body lines for maker and genre facts. A genre line
// holding "A / B" yields genre:A and genre:B.
func ExtractMetaTags(body string) []string {
	tags := []string{}
	for _, line := range strings.Split(body, "\n") {
		switch {
		case strings.HasPrefix(line, makerLine):
			if maker := strings.TrimSpace(strings.TrimPrefix(line, makerLine)); maker != "" {
				tags = append(tags, MakerPrefix+maker)
			}
		case strings.HasPrefix(line, genreLine):
			for _, g := range strings.Split(strings.TrimPrefix(line, genreLine), "/") {
				if g = strings.TrimSpace(g); g != "" {
					tags = append(tags, GenrePrefix+g)
				}
			}
		}
	}
	return tags
}

// SplitMeta separates meta-tags into maker and genre values.
func SplitMeta(meta []string) (makers, genres []string) {
	makers, genres = []string{}, []string{}
	for _, t := range meta {
		switch {
		case strings.HasPrefix(t, MakerPrefix):
			makers = append(makers, strings.TrimPrefix(t, MakerPrefix))
		case strings.HasPrefix(t, GenrePrefix):
			genres = append(genres, strings.TrimPrefix(t, GenrePrefix))
		}
	}
	return makers, genres
}

// NormalizeTag decodes a URL-escaped tag and strips a leading '#'.
func NormalizeTag(tag string) string {
	value := strings.TrimSpace(tag)
	if value == "" {
		return ""
	}
	if decoded, err := url.PathUnescape(value); err == nil {
		value = decoded
	}
	value = strings.TrimPrefix(value, "#")
	return strings.TrimSpace(value)
}

func Label(tag string) string {
	n := NormalizeTag(tag)
	if n == "" {
		return defaultLabel
	}
	if v, ok := metaValue(n); ok {
		return v
	}
	if def, ok := byID[n]; ok {
		return def.label
	}
	return n
}

func Summary(tag string) string {
	if def, ok := byID[NormalizeTag(tag)]; ok {
		return def.summary
	}
	return defaultSummary
}

// Keywords returns the match keywords for a tag; a meta-tag's keyword is its value.
func Keywords(tag string) []string {
	n := NormalizeTag(tag)
	if v, ok := metaValue(n); ok {
		return []string{v}
	}
	if def, ok := byID[n]; ok {
		return append([]string(nil), def.keywords...)
	}
	return []string{}
}

// Vocabulary lists the tag ids in order.
func Vocabulary() []string {
	ids := make([]string, len(vocabulary))
	for i, def := range vocabulary {
		ids[i] = def.id
	}
	return ids
}

func metaValue(tag string) (string, bool) {
	for _, p := range []string{MakerPrefix, GenrePrefix} {
		if strings.HasPrefix(tag, p) {
			return strings.TrimPrefix(tag, p), true
		}
	}
	return "", false
}
