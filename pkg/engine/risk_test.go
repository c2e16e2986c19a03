package engine

import (
	"testing"
	"time"

	"github.com/cloudbun/floatbox/pkg/schema"
)

// processingTS is 2025-02-01T00:00:00Z in millis.
var processingTS = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

func score(t *testing.T, sot *schema.SoTRecord, sat schema.SatelliteRecord, matchType string) (RiskLevel, int) {
	t.Helper()
	return ScoreRisk(sot, sat, matchType, processingTS, 0, nil)
}

func TestScoreRiskCleanMatch(t *testing.T) {
	level, s := score(t,
		sot("alice@acme.com", "E1", "Alice Smith", "active"),
		schema.SatelliteRecord{Role: "Engineer", AccountStatus: "active", LastLogin: "2025-01-01"},
		MatchExactEmail)
	if level != RiskInfo || s != 0 {
		t.Errorf("clean match = %s/%d, want INFO/0", level, s)
	}
}

func TestScoreRiskOrphanShortCircuits(t *testing.T) {
	// Even privileged+dormant attributes cannot raise an orphan past HIGH.
	level, s := score(t, nil,
		schema.SatelliteRecord{Role: "global_admin", LastLogin: "2019-01-01", AccountStatus: "active"},
		MatchOrphan)
	if level != RiskHigh || s != 80 {
		t.Errorf("orphan = %s/%d, want HIGH/80", level, s)
	}
}

func TestScoreRiskTerminatedActiveAccess(t *testing.T) {
	for _, status := range []string{"active", "enabled", ""} {
		level, s := score(t,
			sot("bob@acme.com", "E2", "Bob", "terminated"),
			schema.SatelliteRecord{AccountStatus: status},
			MatchExactEmail)
		if level != RiskCritical || s != 100 {
			t.Errorf("terminated + %q = %s/%d, want CRITICAL/100", status, level, s)
		}
	}
}

func TestScoreRiskTerminatedDisabledAccess(t *testing.T) {
	level, _ := score(t,
		sot("bob@acme.com", "E2", "Bob", "terminated"),
		schema.SatelliteRecord{AccountStatus: "disabled"},
		MatchExactEmail)
	if level == RiskCritical {
		t.Errorf("terminated with disabled access must not be CRITICAL")
	}
}

func TestScoreRiskPrivilegedAndDormant(t *testing.T) {
	level, s := score(t,
		sot("a@acme.com", "E1", "A", "active"),
		schema.SatelliteRecord{Role: "Domain_Admin", LastLogin: "2024-01-01"},
		MatchExactEmail)
	if level != RiskHigh || s != 80 {
		t.Errorf("privileged+dormant = %s/%d, want HIGH/80", level, s)
	}
}

func TestScoreRiskDormantAlone(t *testing.T) {
	level, s := score(t,
		sot("a@acme.com", "E1", "A", "active"),
		schema.SatelliteRecord{Role: "Engineer", LastLogin: "2024-01-01"},
		MatchExactEmail)
	if level != RiskMedium || s != 50 {
		t.Errorf("dormant = %s/%d, want MEDIUM/50", level, s)
	}
}

func TestScoreRiskPrivilegedAlone(t *testing.T) {
	level, s := score(t,
		sot("a@acme.com", "E1", "A", "active"),
		schema.SatelliteRecord{Entitlement: "s3:root-access", LastLogin: "2025-01-30"},
		MatchExactEmail)
	if level != RiskMedium || s != 50 {
		t.Errorf("privileged = %s/%d, want MEDIUM/50", level, s)
	}
}

func TestScoreRiskContractorPrivileged(t *testing.T) {
	level, s := score(t,
		sot("c@acme.com", "E9", "C", "contractor"),
		schema.SatelliteRecord{Role: "owner", LastLogin: "2025-01-30"},
		MatchExactEmail)
	if level != RiskMedium || s != 50 {
		t.Errorf("contractor+privileged = %s/%d, want MEDIUM/50", level, s)
	}
}

func TestScoreRiskFuzzyAmbiguous(t *testing.T) {
	level, s := score(t,
		sot("a@acme.com", "E1", "A", "active"),
		schema.SatelliteRecord{Role: "Engineer", LastLogin: "2025-01-30"},
		MatchFuzzyAmbiguous)
	if level != RiskLow || s != 20 {
		t.Errorf("fuzzy_ambiguous = %s/%d, want LOW/20", level, s)
	}
}

func TestScoreRiskAmbiguousDoesNotMaskDormancy(t *testing.T) {
	level, s := score(t,
		sot("a@acme.com", "E1", "A", "active"),
		schema.SatelliteRecord{LastLogin: "2024-01-01"},
		MatchFuzzyAmbiguous)
	if level != RiskMedium || s != 50 {
		t.Errorf("dormant ambiguous = %s/%d, want MEDIUM/50", level, s)
	}
}

func TestScoreRiskUnparseableDateNotDormant(t *testing.T) {
	level, s := score(t,
		sot("a@acme.com", "E1", "A", "active"),
		schema.SatelliteRecord{LastLogin: "three weeks ago"},
		MatchExactEmail)
	if level != RiskInfo || s != 0 {
		t.Errorf("unparseable login = %s/%d, want INFO/0", level, s)
	}
}

func TestScoreRiskDateFormats(t *testing.T) {
	// All of these are older than the 90-day cutoff before 2025-02-01.
	stamps := []string{
		"2024-01-15T10:30:00Z",
		"2024-01-15T10:30:00",
		"2024-01-15 10:30:00",
		"2024-01-15",
		"01/15/2024",
		"1/15/2024",
		"Jan 15, 2024",
		"January 15, 2024",
		"15-Jan-2024",
	}
	for _, stamp := range stamps {
		level, _ := score(t,
			sot("a@acme.com", "E1", "A", "active"),
			schema.SatelliteRecord{LastLogin: stamp},
			MatchExactEmail)
		if level != RiskMedium {
			t.Errorf("stamp %q should be dormant, got %s", stamp, level)
		}
	}
}

func TestScoreRiskCustomKeywordsAndThreshold(t *testing.T) {
	sat := schema.SatelliteRecord{Role: "wizard", LastLogin: "2025-01-20"}

	level, _ := ScoreRisk(sot("a@acme.com", "E1", "A", "active"), sat, MatchExactEmail, processingTS, 7, []string{"wizard"})
	if level != RiskHigh {
		t.Errorf("custom keyword + 7-day threshold should be HIGH, got %s", level)
	}
}
