package engine

import (
	"strings"
	"time"

	"github.com/cloudbun/floatbox/pkg/schema"
)

// RiskLevel is the severity of a finding.
type RiskLevel string

const (
	RiskCritical RiskLevel = "CRITICAL"
	RiskHigh     RiskLevel = "HIGH"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskLow      RiskLevel = "LOW"
	RiskInfo     RiskLevel = "INFO"
)

// Scores per level.
const (
	ScoreCritical = 100
	ScoreHigh     = 80
	ScoreMedium   = 50
	ScoreLow      = 20
	ScoreInfo     = 0
)

// DefaultDormancyDays is how long without a login counts as dormant.
const DefaultDormancyDays = 90

// DefaultPrivilegedKeywords flag a role or entitlement as privileged when
// any of them appears as a case-insensitive substring.
var DefaultPrivilegedKeywords = []string{
	"admin",
	"root",
	"superuser",
	"owner",
	"global_admin",
	"domain_admin",
	"system",
	"privileged",
}

// lastLoginFormats are tried in order when parsing satellite login stamps.
var lastLoginFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"02-Jan-2006",
}

// ScoreRisk evaluates the rule table for one finding and returns the
// highest applicable level and score. Orphans and terminated-with-access
// short-circuit; the remaining rules all get evaluated.
//
//	orphan                               HIGH     80
//	terminated + active/enabled access   CRITICAL 100
//	privileged + dormant                 HIGH     80
//	dormant                              MEDIUM   50
//	privileged                           MEDIUM   50
//	contractor + privileged              MEDIUM   50
//	fuzzy_ambiguous                      LOW      20
//	otherwise                            INFO     0
func ScoreRisk(
	sot *schema.SoTRecord,
	sat schema.SatelliteRecord,
	matchType string,
	processingTimestamp int64,
	dormancyDays int,
	privilegedKeywords []string,
) (RiskLevel, int) {
	if len(privilegedKeywords) == 0 {
		privilegedKeywords = DefaultPrivilegedKeywords
	}
	if dormancyDays <= 0 {
		dormancyDays = DefaultDormancyDays
	}

	if matchType == MatchOrphan {
		return RiskHigh, ScoreHigh
	}

	if sot != nil && strings.ToLower(sot.EmploymentStatus) == "terminated" {
		switch strings.ToLower(sat.AccountStatus) {
		case "active", "enabled", "":
			return RiskCritical, ScoreCritical
		}
	}

	level, score := RiskInfo, ScoreInfo
	raise := func(l RiskLevel, s int) {
		if s > score {
			level, score = l, s
		}
	}

	privileged := isPrivileged(sat.Role, sat.Entitlement, privilegedKeywords)
	dormant := isDormant(sat.LastLogin, processingTimestamp, dormancyDays)

	if privileged && dormant {
		raise(RiskHigh, ScoreHigh)
	} else {
		if dormant {
			raise(RiskMedium, ScoreMedium)
		}
		if privileged {
			raise(RiskMedium, ScoreMedium)
		}
	}

	if sot != nil && strings.ToLower(sot.EmploymentStatus) == "contractor" && privileged {
		raise(RiskMedium, ScoreMedium)
	}

	if matchType == MatchFuzzyAmbiguous {
		raise(RiskLow, ScoreLow)
	}

	return level, score
}

func isPrivileged(role, entitlement string, keywords []string) bool {
	roleLower := strings.ToLower(role)
	entLower := strings.ToLower(entitlement)
	for _, kw := range keywords {
		kwLower := strings.ToLower(kw)
		if strings.Contains(roleLower, kwLower) || strings.Contains(entLower, kwLower) {
			return true
		}
	}
	return false
}

// isDormant parses the login stamp against the known formats. A stamp that
// parses under none of them is not dormant; guessing would flood the
// review with false positives.
func isDormant(lastLogin string, processingTimestamp int64, dormancyDays int) bool {
	if lastLogin == "" {
		return false
	}

	var loginTime time.Time
	parsed := false
	for _, format := range lastLoginFormats {
		if t, err := time.Parse(format, lastLogin); err == nil {
			loginTime = t
			parsed = true
			break
		}
	}
	if !parsed {
		return false
	}

	cutoff := time.UnixMilli(processingTimestamp).AddDate(0, 0, -dormancyDays)
	return loginTime.Before(cutoff)
}
