package model

// Caps applied to the evidence lists.
const (
	MaxLocationCandidates  = 10
	MaxNumericCounts       = 10
	MaxProviderNames       = 40
	MaxSpecialtyCandidates = 20
	MaxModalityCandidates  = 30
)

// EvidenceBundle holds the heuristic candidate facts derived from a page set.
// Every list preserves first-seen order and is deduplicated case-insensitively.
type EvidenceBundle struct {
	LocationsStructured   []string `json:"candidate_locations_jsonld"`
	LocationsText         []string `json:"candidate_locations_text"`
	ExactCount            *int     `json:"exact_count_from_text"`
	NamedProviderCount    *int     `json:"provider_name_count"`
	StructuredCounts      []int    `json:"jsonld_numeric_counts"`
	ProviderNames         []string `json:"provider_name_candidates"`
	SpecialtiesStructured []string `json:"candidate_specialties_jsonld"`
	SpecialtiesText       []string `json:"candidate_specialties_text"`
	Modalities            []string `json:"candidate_modalities_text"`
}

// BestCount returns the larger of the phrasing and named-entity headcounts.
func (e EvidenceBundle) BestCount() (int, bool) {
	switch {
	case e.ExactCount != nil && e.NamedProviderCount != nil:
		return max(*e.ExactCount, *e.NamedProviderCount), true
	case e.ExactCount != nil:
		return *e.ExactCount, true
	case e.NamedProviderCount != nil:
		return *e.NamedProviderCount, true
	}
	return 0, false
}

// Locations returns structured locations when present, otherwise text ones.
func (e EvidenceBundle) Locations() []string {
	if len(e.LocationsStructured) > 0 {
		return e.LocationsStructured
	}
	return e.LocationsText
}

// Empty reports whether no signal of any kind was found.
func (e EvidenceBundle) Empty() bool {
	return len(e.LocationsStructured) == 0 &&
		len(e.LocationsText) == 0 &&
		e.ExactCount == nil &&
		e.NamedProviderCount == nil &&
		len(e.StructuredCounts) == 0 &&
		len(e.ProviderNames) == 0 &&
		len(e.SpecialtiesStructured) == 0 &&
		len(e.SpecialtiesText) == 0 &&
		len(e.Modalities) == 0
}
