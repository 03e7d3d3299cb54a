package scrape

import (
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"golang.org/x/net/publicsuffix"
)

// priorityTerms orders path terms by topical relevance, most relevant first.
var priorityTerms = []string{
	"about", "about-us", "our-team", "team", "meet-the-team", "leadership",
	"providers", "our-providers", "provider", "physicians", "our-physicians",
	"meet-our-physicians", "doctors", "clinicians", "care-team", "medical-staff",
	"contact", "contact-us", "locations", "location", "directions", "map",
	"address", "hours", "services", "specialties", "treatments", "offices",
}

// disallowedExtensions are asset suffixes that never hold clinic text.
var disallowedExtensions = []string{
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".zip", ".rar",
	".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp",
	".mp4", ".mov", ".avi", ".mp3", ".wav",
	".css", ".js", ".json",
}

// IsInScope reports whether candidate may be crawled from seed. Hostless
// candidates count as same-domain; a leading "www." is ignored on both sides.
func IsInScope(candidate, seed string) bool {
	if candidate == "" {
		return false
	}
	lower := strings.ToLower(candidate)
	if strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "tel:") {
		return false
	}

	u, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https":
	default:
		return false
	}

	if u.Host != "" {
		s, err := url.Parse(seed)
		if err != nil {
			return false
		}
		if stripWWW(u.Host) != stripWWW(s.Host) {
			return false
		}
	}

	p := strings.ToLower(u.Path)
	for _, ext := range disallowedExtensions {
		if strings.HasSuffix(p, ext) {
			return false
		}
	}
	return true
}

// RelevanceScore scores a URL by the earliest priority term found in its path.
// Unmatched URLs score 0.
func RelevanceScore(rawURL string) int {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0
	}
	p := strings.ToLower(u.Path)
	for i, term := range priorityTerms {
		if strings.Contains(p, "/"+term) || strings.HasSuffix(p, term) {
			return len(priorityTerms) - i
		}
	}
	return 0
}

// RankLinks deduplicates urls (first occurrence wins) and orders them by
// descending relevance, keeping discovery order among equal scores.
func RankLinks(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return RelevanceScore(out[i]) > RelevanceScore(out[j])
	})
	return out
}

// NormalizeSeed trims a seed, adds https:// when no http(s) scheme is present,
// and canonicalizes it.
func NormalizeSeed(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", eris.New("scrape: empty seed url")
	}
	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		raw = "https://" + raw
	}
	canon, ok := CanonicalURL(raw)
	if !ok {
		return "", eris.Errorf("scrape: invalid seed url %q", raw)
	}
	return canon, nil
}

// CanonicalURL strips the fragment and maps an empty path to "/". It is the
// key used for visited-set bookkeeping.
func CanonicalURL(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	}
	return u.String(), true
}

// SiteKey returns the registrable domain of a URL, falling back to its host.
func SiteKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	host := strings.ToLower(u.Hostname())
	if etld1, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return etld1
	}
	return host
}

// Scope restricts link following to a seed's origin and applies optional
// exclude globs such as "/blog/*".
type Scope struct {
	seed     string
	scheme   string
	host     string
	excludes []string
}

// NewScope builds a Scope for a canonical seed URL.
func NewScope(seed string, excludePaths []string) (*Scope, error) {
	u, err := url.Parse(seed)
	if err != nil || u.Host == "" {
		return nil, eris.Errorf("scrape: invalid scope seed %q", seed)
	}
	excludes := make([]string, 0, len(excludePaths))
	for _, p := range excludePaths {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			excludes = append(excludes, p)
		}
	}
	return &Scope{
		seed:     seed,
		scheme:   strings.ToLower(u.Scheme),
		host:     strings.ToLower(u.Host),
		excludes: excludes,
	}, nil
}

// Allows reports whether an absolute link may be enqueued.
func (s *Scope) Allows(link string) bool {
	if !IsInScope(link, s.seed) {
		return false
	}
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	if strings.ToLower(u.Scheme) != s.scheme || strings.ToLower(u.Host) != s.host {
		return false
	}
	return !s.excluded(strings.ToLower(u.Path))
}

func (s *Scope) excluded(p string) bool {
	for _, pattern := range s.excludes {
		if globMatch(pattern, p) {
			return true
		}
	}
	return false
}

// globMatch matches p against pattern with path.Match. A trailing "/*"
// also covers the directory itself and any depth below it.
func globMatch(pattern, p string) bool {
	if ok, _ := path.Match(pattern, p); ok {
		return true
	}
	dir, found := strings.CutSuffix(pattern, "/*")
	if !found {
		return false
	}
	return p == dir || strings.HasPrefix(p, dir+"/")
}

// extractLinks resolves every a[href] in doc against base and returns the
// canonical absolute targets in document order.
func extractLinks(doc *goquery.Document, base *url.URL) []string {
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		lower := strings.ToLower(href)
		if strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "tel:") || strings.HasPrefix(lower, "javascript:") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		if abs, ok := CanonicalURL(base.ResolveReference(ref).String()); ok {
			links = append(links, abs)
		}
	})
	return links
}

func stripWWW(host string) string {
	host = strings.ToLower(host)
	return strings.TrimPrefix(host, "www.")
}
