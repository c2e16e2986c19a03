package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/cloudbun/floatbox/pkg/engine"
)

func exportFixture() *MasterReport {
	return &MasterReport{
		AllEntries: []MasterReportEntry{
			{
				CanonicalID:      "alice@acme.com",
				EmployeeID:       "E1",
				DisplayName:      "Alice Smith",
				Email:            "alice@acme.com",
				Department:       "Eng",
				EmploymentStatus: "active",
				System:           "okta",
				Role:             "Engineer",
				LastLogin:        "2025-01-01",
				AccountStatus:    "active",
				MatchType:        engine.MatchExactEmail,
				RiskLevel:        engine.RiskInfo,
				RiskScore:        0,
				Conflicts: []engine.FieldConflict{{
					Field:          "displayName",
					SoTValue:       "Alice Smith",
					SatelliteValue: "Alice Smyth",
					Resolution:     engine.ResolutionSoTWins,
				}},
				SourceFile: "okta",
				SourceRow:  2,
			},
			{
				CanonicalID:      "bob@acme.com",
				EmployeeID:       "E2",
				DisplayName:      "Bob Jones",
				Email:            "bob@acme.com",
				EmploymentStatus: "terminated",
				System:           "okta",
				Role:             "Engineer",
				AccountStatus:    "active",
				MatchType:        engine.MatchExactEmail,
				RiskLevel:        engine.RiskCritical,
				RiskScore:        100,
				SourceFile:       "okta",
				SourceRow:        1,
			},
			{
				DisplayName:   "Ghost",
				Email:         "ghost@ext.com",
				System:        "aws",
				MatchType:     engine.MatchOrphan,
				RiskLevel:     engine.RiskHigh,
				RiskScore:     80,
				SourceFile:    "aws",
				SourceRow:     3,
			},
		},
	}
}

// The CSV export is a stable contract: riskiest rows first, fixed column
// set. Golden file pins the exact bytes.
func TestExportCSVGolden(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	require.NoError(t, ExportCSV(exportFixture(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "report_csv", data)
}

func TestExportJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, ExportJSON(exportFixture(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded MasterReport
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.AllEntries, 3)
	require.Equal(t, "bob@acme.com", decoded.AllEntries[1].CanonicalID)
}
