package engine

import (
	"strings"

	"github.com/cloudbun/floatbox/pkg/schema"
)

// FieldConflict records a disagreement between the roster and a satellite
// for one field. The roster side always wins; satellite data is never
// written back.
type FieldConflict struct {
	Field          string `json:"field"`
	SoTValue       string `json:"sotValue"`
	SatelliteValue string `json:"satelliteValue"`
	Resolution     string `json:"resolution"`
}

// ResolutionSoTWins is the only resolution the engine emits.
const ResolutionSoTWins = "sot_wins"

// DetectConflicts compares the fields both record shapes carry. Today that
// is displayName only; the satellite wire shape has no department or
// manager, so those stay out of the comparison.
func DetectConflicts(sot *schema.SoTRecord, sat schema.SatelliteRecord) []FieldConflict {
	var conflicts []FieldConflict

	if sot.DisplayName != "" && sat.DisplayName != "" &&
		!strings.EqualFold(strings.TrimSpace(sot.DisplayName), strings.TrimSpace(sat.DisplayName)) {
		conflicts = append(conflicts, FieldConflict{
			Field:          "displayName",
			SoTValue:       sot.DisplayName,
			SatelliteValue: sat.DisplayName,
			Resolution:     ResolutionSoTWins,
		})
	}

	return conflicts
}
