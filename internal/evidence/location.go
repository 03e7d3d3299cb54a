package evidence

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/clinic-intel/internal/model"
)

const maxLocationLineLen = 120

var (
	reCityState = regexp.MustCompile(`\b([A-Z][A-Za-z]+(?:\s+[A-Z][A-Za-z]+)*)\s*,\s*([A-Z]{2}|[A-Za-z][A-Za-z ]+)\b`)
	// reProviderToken marks staff-listing lines, which are skipped.
	reProviderToken = regexp.MustCompile(`(?i)\b(Dr\.?|MD|DO|PhD|PsyD|NP|PA\-C|PA|RN|LCSW|LMFT|LPC|CNM|FNP|DNP|APRN|ARNP|BCBA|MSW|FRCS|FRCP|FACC)\b`)
	reCounty        = regexp.MustCompile(`\bCounty\b`)
)

// StructuredLocations reads "City, ST" pairs from JSON-LD address objects.
func StructuredLocations(pages []model.PagePayload) []string {
	var out []string
	for _, p := range pages {
		if !p.HasStructuredData() {
			continue
		}
		for _, addr := range addressObjects(p.StructuredData["address"]) {
			city := firstNonEmpty(addr, "addressLocality", "locality")
			region := firstNonEmpty(addr, "addressRegion", "region")
			if city == "" || region == "" {
				continue
			}
			if st, ok := NormalizeRegion(region); ok {
				out = append(out, city+", "+st)
			}
		}
	}
	return out
}

// TextLocations matches "City, ST" and "City, State" on short lines that do
// not look like staff listings. County names are dropped.
func TextLocations(pages []model.PagePayload) []string {
	var out []string
	for _, p := range pages {
		for _, line := range strings.Split(p.Text, "\n") {
			s := strings.TrimSpace(line)
			if s == "" || utf8.RuneCountInString(s) > maxLocationLineLen {
				continue
			}
			if reProviderToken.MatchString(s) {
				continue
			}
			for _, m := range reCityState.FindAllStringSubmatch(s, -1) {
				city := strings.TrimSpace(m[1])
				region := strings.TrimSpace(m[2])
				st, ok := textRegion(region)
				if !ok || reCounty.MatchString(city) {
					continue
				}
				out = append(out, city+", "+st)
			}
		}
	}
	return out
}

func textRegion(region string) (string, bool) {
	if len(region) == 2 {
		return strings.ToUpper(region), true
	}
	return NormalizeRegion(region)
}

// addressObjects accepts a single address object or a list of them.
func addressObjects(v any) []map[string]any {
	switch val := v.(type) {
	case map[string]any:
		return []map[string]any{val}
	case []any:
		var out []map[string]any
		for _, item := range val {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

// firstNonEmpty returns the first key with a non-empty scalar value.
func firstNonEmpty(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := obj[k]
		if !ok || v == nil {
			continue
		}
		var s string
		switch val := v.(type) {
		case string:
			s = val
		case float64, bool:
			s = fmt.Sprint(val)
		default:
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}
