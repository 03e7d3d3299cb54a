package model

import "strings"

// Unknown is the sentinel value for an unresolved field.
const Unknown = "unknown"

// Field names as they appear in output records.
const (
	FieldSpecialty  = "specialty"
	FieldModalities = "modalities"
	FieldLocation   = "location"
	FieldClinicSize = "clinic_size"
)

// AllFields lists the record fields in output order.
var AllFields = []string{FieldSpecialty, FieldModalities, FieldLocation, FieldClinicSize}

// ExtractionRecord holds the four canonical clinic fields. Records are
// values: later escalation steps replace them rather than mutate them.
type ExtractionRecord struct {
	Specialty  string `json:"specialty" yaml:"specialty"`
	Modalities string `json:"modalities" yaml:"modalities"`
	Location   string `json:"location" yaml:"location"`
	ClinicSize string `json:"clinic_size" yaml:"clinic_size"`
}

// UnknownRecord returns a record with every field set to Unknown.
func UnknownRecord() ExtractionRecord {
	return ExtractionRecord{
		Specialty:  Unknown,
		Modalities: Unknown,
		Location:   Unknown,
		ClinicSize: Unknown,
	}
}

// WithDefaults fills empty fields with Unknown.
func (r ExtractionRecord) WithDefaults() ExtractionRecord {
	for _, p := range []*string{&r.Specialty, &r.Modalities, &r.Location, &r.ClinicSize} {
		if strings.TrimSpace(*p) == "" {
			*p = Unknown
		}
	}
	return r
}

// Get returns the value for a field name.
func (r ExtractionRecord) Get(field string) string {
	switch field {
	case FieldSpecialty:
		return r.Specialty
	case FieldModalities:
		return r.Modalities
	case FieldLocation:
		return r.Location
	case FieldClinicSize:
		return r.ClinicSize
	}
	return ""
}

// Unresolved returns the fields that are empty or "unknown" after trimming,
// compared case-insensitively.
func (r ExtractionRecord) Unresolved() []string {
	var out []string
	for _, f := range AllFields {
		if IsUnresolved(r.Get(f)) {
			out = append(out, f)
		}
	}
	return out
}

// Resolved reports whether every field carries a value.
func (r ExtractionRecord) Resolved() bool {
	return len(r.Unresolved()) == 0
}

// IsUnresolved reports whether a single field value counts as unknown.
func IsUnresolved(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "" || v == Unknown
}

// ClinicResult is the per-seed output row.
type ClinicResult struct {
	URL        string           `json:"url" yaml:"url"`
	ClinicInfo ExtractionRecord `json:"clinic_info" yaml:"clinic_info"`
}
