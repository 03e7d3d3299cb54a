package evidence

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/clinic-intel/internal/model"
)

// maxNameLineLen skips long lines, which are mostly prose.
const maxNameLineLen = 140

// credentialPattern lists the clinical and licensure suffixes accepted after
// a name. DO is excluded; osteopaths are matched through the "Dr." form.
const credentialPattern = `MD|MBBS|MBChB|FRCS|FRCP|FACC|PhD|PsyD|EdD|NP|DNP|FNP|PMHNP|APRN|ARNP|CNM|` +
	`PA-C|PA|LCSW|LMSW|MSW|LICSW|LMFT|MFT|LPC|LPCC|LCPC|LMHC|BCBA|LBA|RN|BSN|MSN`

var (
	reNameCredential = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+){1,2})(?:,|\s)\s*(` + credentialPattern + `)\b`)
	reDoctorName     = regexp.MustCompile(`\bDr\.?\s+[A-Z][a-z]+(?:\s+[A-Z][a-z]+){0,2}\b`)
	reDoctorPrefix   = regexp.MustCompile(`^(?i:dr)\.?\s+`)
)

// ProviderNames scans short text lines for provider-like names. It returns
// the names in first-seen spelling (capped) and the count of distinct names
// (capped at 500), or nil when no name was found. A "Dr." prefix does not
// make a name distinct.
func ProviderNames(pages []model.PagePayload) ([]string, *int) {
	var names []string
	seen := make(map[string]bool)

	add := func(name string) {
		name = strings.TrimSpace(name)
		key := nameKey(name)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		if len(names) < model.MaxProviderNames {
			names = append(names, name)
		}
	}

	for _, p := range pages {
		for _, line := range strings.Split(p.Text, "\n") {
			s := strings.TrimSpace(line)
			if s == "" || utf8.RuneCountInString(s) > maxNameLineLen {
				continue
			}
			for _, m := range reNameCredential.FindAllStringSubmatch(s, -1) {
				add(m[1])
			}
			for _, m := range reDoctorName.FindAllString(s, -1) {
				add(m)
			}
		}
	}

	if len(seen) == 0 {
		return names, nil
	}
	count := min(len(seen), maxHeadcount)
	return names, &count
}

func nameKey(name string) string {
	return strings.ToLower(reDoctorPrefix.ReplaceAllString(name, ""))
}
