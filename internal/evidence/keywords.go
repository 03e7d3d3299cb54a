package evidence

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/clinic-intel/internal/model"
)

const (
	maxSpecialtyLineLen = 140
	maxModalityLineLen  = 160
)

var specialtyKeywords = []string{
	"psychiatry", "psychology", "psychotherapy", "sleep medicine", "cardiology", "podiatry",
	"neurology", "orthopedics", "oncology", "pediatrics", "obstetrics", "gynecology",
	"primary care", "internal medicine", "dermatology", "gastroenterology", "urology",
	"endocrinology", "rheumatology", "nephrology", "pulmonology", "otolaryngology",
	"ophthalmology", "dentistry", "behavioral health", "mental health",
}

var modalityKeywords = []string{
	// Behavioral health
	"CBT", "CBT-I", "DBT", "EMDR", "ACT", "ERP", "exposure therapy", "mindfulness",
	"medication management", "group therapy", "family therapy", "couples therapy", "IOP", "PHP",
	"neuropsychological testing", "autism evaluation", "ABA", "biofeedback",
	// Sleep
	"Polysomnogram", "PSG", "MSLT", "MWT", "CPAP", "BiPAP", "Inspire", "dental appliance",
	// Procedures
	"ablation", "catheterization", "stent", "arthroscopy", "laser therapy", "orthotics",
}

// structuredSpecialtyKeys are checked in order; the first non-empty wins.
var structuredSpecialtyKeys = []string{"medicalSpecialty", "specialty", "department"}

var (
	reSpecialty = keywordPattern(specialtyKeywords, false)
	reModality  = keywordPattern(modalityKeywords, true)
	reWordOnly  = regexp.MustCompile(`^[A-Za-z\-]+$`)
)

// keywordPattern builds a case-insensitive alternation. With bounded set,
// purely alphabetic keywords are wrapped in word boundaries.
func keywordPattern(keywords []string, bounded bool) *regexp.Regexp {
	parts := make([]string, len(keywords))
	for i, kw := range keywords {
		q := regexp.QuoteMeta(kw)
		if bounded && reWordOnly.MatchString(kw) {
			q = `\b` + q + `\b`
		}
		parts[i] = q
	}
	return regexp.MustCompile(`(?i)` + strings.Join(parts, "|"))
}

// StructuredSpecialties returns specialty values from JSON-LD
// medicalSpecialty, specialty or department fields, as given.
func StructuredSpecialties(pages []model.PagePayload) []string {
	var out []string
	for _, p := range pages {
		if !p.HasStructuredData() {
			continue
		}
		for _, key := range structuredSpecialtyKeys {
			vals := stringValues(p.StructuredData[key])
			if len(vals) == 0 {
				continue
			}
			out = append(out, vals...)
			break
		}
	}
	return dedupe(out, model.MaxSpecialtyCandidates)
}

// TextSpecialties returns lower-cased specialty keywords found on short lines.
func TextSpecialties(pages []model.PagePayload) []string {
	return scanKeywords(pages, reSpecialty, maxSpecialtyLineLen, model.MaxSpecialtyCandidates, strings.ToLower)
}

// Modalities returns treatment keywords found on short lines, keeping the
// casing of the first occurrence.
func Modalities(pages []model.PagePayload) []string {
	return scanKeywords(pages, reModality, maxModalityLineLen, model.MaxModalityCandidates, nil)
}

func scanKeywords(pages []model.PagePayload, re *regexp.Regexp, maxLineLen, limit int, transform func(string) string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, p := range pages {
		for _, line := range strings.Split(p.Text, "\n") {
			s := strings.TrimSpace(line)
			if s == "" || utf8.RuneCountInString(s) > maxLineLen {
				continue
			}
			for _, m := range re.FindAllString(s, -1) {
				if transform != nil {
					m = transform(m)
				}
				key := strings.ToUpper(m)
				if seen[key] {
					continue
				}
				seen[key] = true
				out = append(out, m)
				if len(out) >= limit {
					return out
				}
			}
		}
	}
	return out
}

// stringValues accepts a string or a list, keeping non-empty string items.
func stringValues(v any) []string {
	switch val := v.(type) {
	case string:
		if s := strings.TrimSpace(val); s != "" {
			return []string{s}
		}
	case []any:
		var out []string
		for _, item := range val {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	}
	return nil
}
