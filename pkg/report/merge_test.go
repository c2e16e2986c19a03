package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cloudbun/floatbox/pkg/engine"
	"github.com/cloudbun/floatbox/pkg/policy"
	"github.com/cloudbun/floatbox/pkg/schema"
)

var processingTS = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

func testIndex() *engine.SoTIndex {
	mk := func(email, id, name, status string) *schema.SoTRecord {
		return &schema.SoTRecord{
			CanonicalID:      email,
			EmployeeID:       id,
			DisplayName:      name,
			NormalizedName:   schema.NormalizeName(name),
			Email:            email,
			EmploymentStatus: status,
		}
	}
	return engine.BuildSoTIndex([]*schema.SoTRecord{
		mk("alice@acme.com", "E1", "Alice Smith", "active"),
		mk("bob@acme.com", "E2", "Bob Jones", "terminated"),
		mk("carol@acme.com", "E3", "Carol White", "active"),
	})
}

func testJoins(t *testing.T, idx *engine.SoTIndex) []*engine.JoinResult {
	t.Helper()
	okta := engine.JoinAgainstSoT(idx, []schema.SatelliteRecord{
		{Email: "alice@acme.com", Role: "Engineer", AccountStatus: "active", LastLogin: "2025-01-01", SourceFile: "okta", SourceRow: 1},
		{Email: "bob@acme.com", AccountStatus: "active", SourceFile: "okta", SourceRow: 2},
	})
	aws := engine.JoinAgainstSoT(idx, []schema.SatelliteRecord{
		{Email: "ghost@ext.com", DisplayName: "Ghost", SourceFile: "aws", SourceRow: 1},
	})
	return []*engine.JoinResult{okta, aws}
}

func TestMergeResults(t *testing.T) {
	idx := testIndex()
	report := MergeResults(idx, testJoins(t, idx), MergeOptions{ProcessingTimestamp: processingTS})

	require.Equal(t, 2, report.TotalMatched)
	require.Equal(t, 1, report.TotalOrphans)
	require.Equal(t, 1, report.TotalNoAccess, "carol has no satellite presence")
	require.Equal(t, 3, report.TotalUsers)

	// Users are sorted by canonical id.
	require.Equal(t, "alice@acme.com", report.Users[0].CanonicalID)
	require.Equal(t, "bob@acme.com", report.Users[1].CanonicalID)
	require.Equal(t, "carol@acme.com", report.Users[2].CanonicalID)

	require.Equal(t, engine.RiskInfo, report.Users[0].MaxRiskLevel)
	require.Equal(t, engine.RiskCritical, report.Users[1].MaxRiskLevel)
	require.Equal(t, 100, report.Users[1].MaxRiskScore)

	carol := report.Users[2].Entries[0]
	require.Equal(t, engine.MatchNoAccess, carol.MatchType)
	require.Equal(t, engine.RiskInfo, carol.RiskLevel)

	require.Len(t, report.OrphanEntries, 1)
	require.Equal(t, engine.RiskHigh, report.OrphanEntries[0].RiskLevel)
	require.Equal(t, "aws", report.OrphanEntries[0].System)

	require.Equal(t, RiskSummary{Critical: 1, High: 1, Info: 2}, report.RiskSummary)
}

func TestMergeResultsAppliesPolicies(t *testing.T) {
	rules := []policy.Rule{
		{ID: "okta_terminated_known", Condition: "email == 'bob@acme.com' && system == 'okta'", Action: policy.ActionSuppress},
		{ID: "aws_orphans_critical", Condition: "matchType == 'orphan' && system == 'aws'", Action: policy.ActionEscalate, Level: "CRITICAL"},
	}
	eng, err := policy.NewEngine()
	require.NoError(t, err)
	require.NoError(t, eng.Compile(rules))

	idx := testIndex()
	report := MergeResults(idx, testJoins(t, idx), MergeOptions{
		ProcessingTimestamp: processingTS,
		Policies:            eng,
	})

	var bob *MasterReportEntry
	for i := range report.AllEntries {
		if report.AllEntries[i].Email == "bob@acme.com" {
			bob = &report.AllEntries[i]
		}
	}
	require.NotNil(t, bob)
	require.Equal(t, engine.RiskInfo, bob.RiskLevel, "suppression downgrades to INFO")
	require.Equal(t, 0, bob.RiskScore)
	require.Equal(t, []string{"okta_terminated_known"}, bob.PolicyFlags)

	orphan := report.OrphanEntries[0]
	require.Equal(t, engine.RiskCritical, orphan.RiskLevel, "escalation raises the orphan")
	require.Equal(t, 100, orphan.RiskScore)
	require.Equal(t, []string{"aws_orphans_critical"}, orphan.PolicyFlags)

	require.Equal(t, RiskSummary{Critical: 1, Info: 3}, report.RiskSummary)
}

func TestMergeResultsConflictsCarried(t *testing.T) {
	idx := testIndex()
	jr := engine.JoinAgainstSoT(idx, []schema.SatelliteRecord{
		{Email: "alice@acme.com", DisplayName: "Alice Smyth", SourceFile: "sap", SourceRow: 1},
	})

	report := MergeResults(idx, []*engine.JoinResult{jr}, MergeOptions{ProcessingTimestamp: processingTS})

	var alice *MasterReportEntry
	for i := range report.AllEntries {
		if report.AllEntries[i].MatchType == engine.MatchExactEmail {
			alice = &report.AllEntries[i]
		}
	}
	require.NotNil(t, alice)
	require.Len(t, alice.Conflicts, 1)
	require.Equal(t, "displayName", alice.Conflicts[0].Field)
	require.Equal(t, "sot_wins", alice.Conflicts[0].Resolution)
}
