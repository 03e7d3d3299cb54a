// Package normalize canonicalizes oracle-proposed field values using the
// evidence bundle. The oracle stays the primary source; these rules only
// bucket or disambiguate when a safe pattern is present.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/clinic-intel/internal/model"
)

// Size labels.
const (
	SoloPractice       = "Solo Practice (1 provider)"
	SmallGroupRange    = "Small Group Practice (2-10 providers)"
	MediumGroupRange   = "Medium Group Practice (11-20 providers)"
	LargeGroupRange    = "Large Group Practice (21+ providers)"
	HospitalSystem     = "Hospital System (21+ providers)"
	GroupPracticeVague = "Group Practice (unknown)"
)

// maxJoinedLocations bounds the joined location string.
const maxJoinedLocations = 5

var (
	reRange      = regexp.MustCompile(`(\d{1,3})\s*-\s*(\d{1,3})`)
	reRawCitySt  = regexp.MustCompile(`\b[A-Z][A-Za-z]+(?:\s+[A-Z][A-Za-z]+)*\s*,\s*[A-Z]{2}\b`)
	unknownSizes = map[string]bool{"unknown": true, "not specified": true, "n/a": true, "": true}
)

// sizeKeywords are applied in order; the first match wins.
var sizeKeywords = []struct {
	re    *regexp.Regexp
	label string
}{
	{regexp.MustCompile(`(?i)\bsolo\b|\b1\b`), SoloPractice},
	{regexp.MustCompile(`(?i)hospital|medical center|health system|system`), HospitalSystem},
	{regexp.MustCompile(`(?i)small`), SmallGroupRange},
	{regexp.MustCompile(`(?i)medium`), MediumGroupRange},
	{regexp.MustCompile(`(?i)large`), LargeGroupRange},
	{regexp.MustCompile(`(?i)group`), GroupPracticeVague},
}

// Size buckets a clinic size. Exact headcount evidence wins, then a numeric
// range in the raw value, then keywords. Unrecognized raw values pass through.
func Size(raw string, ev model.EvidenceBundle) string {
	raw = strings.TrimSpace(raw)

	if n, ok := ev.BestCount(); ok {
		return CountLabel(n)
	}

	if m := reRange.FindStringSubmatch(raw); m != nil {
		high, _ := strconv.Atoi(m[2])
		return RangeLabel(high)
	}

	for _, kw := range sizeKeywords {
		if kw.re.MatchString(raw) {
			return kw.label
		}
	}

	if unknownSizes[strings.ToLower(raw)] {
		return model.Unknown
	}
	return raw
}

// CountLabel labels an exact provider count.
func CountLabel(n int) string {
	switch {
	case n <= 1:
		return SoloPractice
	case n <= 10:
		return fmt.Sprintf("Small Group Practice (%d providers)", n)
	case n <= 20:
		return fmt.Sprintf("Medium Group Practice (%d providers)", n)
	default:
		return fmt.Sprintf("Large Group Practice (%d providers)", n)
	}
}

// RangeLabel buckets a range by its upper bound.
func RangeLabel(high int) string {
	switch {
	case high <= 10:
		return SmallGroupRange
	case high <= 20:
		return MediumGroupRange
	default:
		return LargeGroupRange
	}
}

// Location prefers structured locations, then text locations, joining up to
// five. With no candidates, a raw "City, ST" value is kept.
func Location(raw string, ev model.EvidenceBundle) string {
	raw = strings.TrimSpace(raw)

	locs := ev.Locations()
	if len(locs) > 0 {
		var ordered []string
		seen := make(map[string]bool, len(locs))
		for _, l := range locs {
			if seen[l] {
				continue
			}
			seen[l] = true
			ordered = append(ordered, l)
		}
		return strings.Join(ordered[:min(len(ordered), maxJoinedLocations)], "; ")
	}

	if reRawCitySt.MatchString(raw) {
		return raw
	}
	return model.Unknown
}

// Record applies the location and size rules to an oracle record. Specialty
// and modalities are left as the oracle returned them.
func Record(rec model.ExtractionRecord, ev model.EvidenceBundle) model.ExtractionRecord {
	rec.Location = Location(rec.Location, ev)
	rec.ClinicSize = Size(rec.ClinicSize, ev)
	return rec.WithDefaults()
}
