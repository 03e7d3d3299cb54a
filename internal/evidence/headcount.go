package evidence

import (
	"math"
	"regexp"
	"strconv"

	"github.com/sells-group/clinic-intel/internal/model"
)

const (
	minHeadcount = 1
	maxHeadcount = 500
)

// headcountPatterns capture a provider count from staffing phrases.
var headcountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bteam of\s+(\d{1,3})\b`),
	regexp.MustCompile(`(?i)\b(\d{1,3})\s*\+\s*(?:providers?|clinicians?|physicians?|doctors?|therapists?)\b`),
	regexp.MustCompile(`(?i)\b(\d{1,3})\s+(?:providers?|clinicians?|physicians?|doctors?|therapists?|practitioners?)\b`),
}

// structuredCountKeys are JSON-LD keys that may hold a staff count.
var structuredCountKeys = []string{"numberOfEmployees", "employeeCount", "employees", "staffCount"}

var reNonDigit = regexp.MustCompile(`[^0-9]`)

// PhrasingCount returns the largest headcount stated in page text or in
// structured staff-count fields, or nil when none is in range.
func PhrasingCount(pages []model.PagePayload) *int {
	best := -1
	for _, p := range pages {
		for _, re := range headcountPatterns {
			for _, m := range re.FindAllStringSubmatch(p.Text, -1) {
				if n, err := strconv.Atoi(m[1]); err == nil && inRange(n) {
					best = max(best, n)
				}
			}
		}
		for _, n := range structuredPageCounts(p.StructuredData) {
			best = max(best, n)
		}
	}
	if best < 0 {
		return nil
	}
	return &best
}

// StructuredCounts returns the distinct in-range staff counts found in
// structured data, in first-seen order.
func StructuredCounts(pages []model.PagePayload) []int {
	var out []int
	seen := make(map[int]bool)
	for _, p := range pages {
		for _, n := range structuredPageCounts(p.StructuredData) {
			if seen[n] {
				continue
			}
			seen[n] = true
			out = append(out, n)
			if len(out) >= model.MaxNumericCounts {
				return out
			}
		}
	}
	return out
}

func structuredPageCounts(data model.StructuredData) []int {
	if data == nil {
		return nil
	}
	var out []int
	for _, key := range structuredCountKeys {
		if n, ok := countValue(data[key]); ok {
			out = append(out, n)
		}
	}
	return out
}

// countValue reads a whole JSON number or the digits of a string.
func countValue(v any) (int, bool) {
	switch val := v.(type) {
	case float64:
		if val != math.Trunc(val) || !inRange(int(val)) {
			return 0, false
		}
		return int(val), true
	case string:
		digits := reNonDigit.ReplaceAllString(val, "")
		if digits == "" || len(digits) > 6 {
			return 0, false
		}
		n, err := strconv.Atoi(digits)
		if err != nil || !inRange(n) {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func inRange(n int) bool {
	return n >= minHeadcount && n <= maxHeadcount
}
