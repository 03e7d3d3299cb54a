package evidence

import (
	"regexp"
	"strings"
)

// stateToAbbr maps lowercase US state names to their postal codes.
var stateToAbbr = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR",
	"california": "CA", "colorado": "CO", "connecticut": "CT", "delaware": "DE",
	"florida": "FL", "georgia": "GA", "hawaii": "HI", "idaho": "ID",
	"illinois": "IL", "indiana": "IN", "iowa": "IA", "kansas": "KS",
	"kentucky": "KY", "louisiana": "LA", "maine": "ME", "maryland": "MD",
	"massachusetts": "MA", "michigan": "MI", "minnesota": "MN", "mississippi": "MS",
	"missouri": "MO", "montana": "MT", "nebraska": "NE", "nevada": "NV",
	"new hampshire": "NH", "new jersey": "NJ", "new mexico": "NM", "new york": "NY",
	"north carolina": "NC", "north dakota": "ND", "ohio": "OH", "oklahoma": "OK",
	"oregon": "OR", "pennsylvania": "PA", "rhode island": "RI", "south carolina": "SC",
	"south dakota": "SD", "tennessee": "TN", "texas": "TX", "utah": "UT",
	"vermont": "VT", "virginia": "VA", "washington": "WA", "west virginia": "WV",
	"wisconsin": "WI", "wyoming": "WY", "district of columbia": "DC",
}

// reParenCode matches the "California (CA)" form.
var reParenCode = regexp.MustCompile(`[A-Za-z ]+?\s*\((\w{2})\)`)

// NormalizeRegion maps a region to a two-letter code. It accepts a
// two-letter code, a full US state name, or "Name (XX)". ok is false for
// anything else.
func NormalizeRegion(region string) (string, bool) {
	r := strings.TrimSpace(region)
	if r == "" {
		return "", false
	}
	if len(r) == 2 && isAlpha(r) {
		return strings.ToUpper(r), true
	}
	if abbr, ok := stateToAbbr[strings.ToLower(r)]; ok {
		return abbr, true
	}
	if m := reParenCode.FindStringSubmatch(r); m != nil {
		return strings.ToUpper(m[1]), true
	}
	return "", false
}

func isAlpha(s string) bool {
	for _, c := range s {
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}
