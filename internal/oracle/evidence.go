package oracle

import (
	"context"
	"strings"

	"github.com/sells-group/clinic-intel/internal/model"
	"github.com/sells-group/clinic-intel/internal/normalize"
)

// maxOfflineSpecialties bounds the specialty list the offline oracle joins.
const maxOfflineSpecialties = 3

// EvidenceOracle answers from the evidence bundle alone. It needs no
// credentials and never fails, which makes it useful for dry runs.
type EvidenceOracle struct{}

// NewEvidenceOracle returns the offline oracle.
func NewEvidenceOracle() *EvidenceOracle { return &EvidenceOracle{} }

// Name implements Oracle.
func (*EvidenceOracle) Name() string { return ProviderEvidence }

// Extract implements Oracle.
func (*EvidenceOracle) Extract(ctx context.Context, _ []model.PagePayload, ev model.EvidenceBundle) (model.ExtractionRecord, error) {
	if err := ctx.Err(); err != nil {
		return model.ExtractionRecord{}, failure(ctx, ProviderEvidence, err)
	}
	if ev.Empty() {
		return model.UnknownRecord(), nil
	}

	specialties := ev.SpecialtiesStructured
	if len(specialties) == 0 {
		specialties = ev.SpecialtiesText
	}

	rec := model.ExtractionRecord{
		Specialty:  strings.Join(specialties[:min(len(specialties), maxOfflineSpecialties)], ", "),
		Modalities: strings.Join(ev.Modalities, ", "),
		Location:   normalize.Location("", ev),
		ClinicSize: normalize.Size("", ev),
	}
	return rec.WithDefaults(), nil
}
