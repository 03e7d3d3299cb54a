// Package evidence derives heuristic candidate facts about a clinic from
// its crawled pages. Nothing here fails: missing data yields empty lists
// and nil counts.
package evidence

import (
	"strings"

	"github.com/sells-group/clinic-intel/internal/model"
)

// Build computes the full evidence bundle for a page set.
func Build(pages []model.PagePayload) model.EvidenceBundle {
	names, named := ProviderNames(pages)
	return model.EvidenceBundle{
		LocationsStructured:   dedupe(StructuredLocations(pages), model.MaxLocationCandidates),
		LocationsText:         dedupe(TextLocations(pages), model.MaxLocationCandidates),
		ExactCount:            PhrasingCount(pages),
		NamedProviderCount:    named,
		StructuredCounts:      StructuredCounts(pages),
		ProviderNames:         nonNil(names),
		SpecialtiesStructured: nonNil(StructuredSpecialties(pages)),
		SpecialtiesText:       nonNil(TextSpecialties(pages)),
		Modalities:            nonNil(Modalities(pages)),
	}
}

// dedupe removes case-insensitive duplicates, keeping first-seen order and
// at most limit items.
func dedupe(items []string, limit int) []string {
	out := make([]string, 0, min(len(items), limit))
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		key := strings.ToLower(it)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, it)
		if len(out) >= limit {
			break
		}
	}
	return out
}

// nonNil keeps empty lists serializing as [] rather than null.
func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
