// Package report compiles per-file join results into the master UAR
// report and exports it. This is the caller side of the engine boundary:
// the engine emits one JoinResult per satellite file, the report layer
// merges them, scores risk, and applies review policies.
package report

import (
	"sort"

	"github.com/cloudbun/floatbox/pkg/engine"
	"github.com/cloudbun/floatbox/pkg/policy"
	"github.com/cloudbun/floatbox/pkg/schema"
)

// MasterReportEntry is one user-system combination in the final report.
type MasterReportEntry struct {
	CanonicalID      string                 `json:"canonicalId"`
	EmployeeID       string                 `json:"employeeId"`
	DisplayName      string                 `json:"displayName"`
	Email            string                 `json:"email"`
	Department       string                 `json:"department"`
	Manager          string                 `json:"manager"`
	EmploymentStatus string                 `json:"employmentStatus"`
	System           string                 `json:"system"`
	Role             string                 `json:"role"`
	Entitlement      string                 `json:"entitlement"`
	LastLogin        string                 `json:"lastLogin"`
	AccountStatus    string                 `json:"accountStatus"`
	MatchType        string                 `json:"matchType"`
	RiskLevel        engine.RiskLevel       `json:"riskLevel"`
	RiskScore        int                    `json:"riskScore"`
	Conflicts        []engine.FieldConflict `json:"conflicts,omitempty"`
	PolicyFlags      []string               `json:"policyFlags,omitempty"`
	SourceFile       string                 `json:"sourceFile"`
	SourceRow        int                    `json:"sourceRow"`
}

// UserSummary groups all entries of one canonical user.
type UserSummary struct {
	CanonicalID  string              `json:"canonicalId"`
	DisplayName  string              `json:"displayName"`
	Email        string              `json:"email"`
	MaxRiskLevel engine.RiskLevel    `json:"maxRiskLevel"`
	MaxRiskScore int                 `json:"maxRiskScore"`
	Entries      []MasterReportEntry `json:"entries"`
}

// RiskSummary counts findings per level.
type RiskSummary struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Info     int `json:"info"`
}

// MasterReport is the compiled review.
type MasterReport struct {
	Users         []UserSummary       `json:"users"`
	OrphanEntries []MasterReportEntry `json:"orphanEntries"`
	AllEntries    []MasterReportEntry `json:"allEntries"`
	TotalUsers    int                 `json:"totalUsers"`
	TotalMatched  int                 `json:"totalMatched"`
	TotalOrphans  int                 `json:"totalOrphans"`
	TotalNoAccess int                 `json:"totalNoAccess"`
	RiskSummary   RiskSummary         `json:"riskSummary"`
}

// MergeOptions parameterizes the merge.
type MergeOptions struct {
	ProcessingTimestamp int64
	DormancyDays        int            // 0 means the engine default
	PrivilegedKeywords  []string       // nil means the engine default
	Policies            *policy.Engine // nil means no review policies
}

// MergeResults compiles the join results of every satellite system into
// one report: per-entry risk scoring, policy adjustment, per-user
// grouping with max risk, and no_access entries for roster users absent
// from every satellite. Users are ordered by canonical id so repeated
// runs produce identical reports.
func MergeResults(index *engine.SoTIndex, results []*engine.JoinResult, opts MergeOptions) *MasterReport {
	report := &MasterReport{
		Users:         make([]UserSummary, 0),
		OrphanEntries: make([]MasterReportEntry, 0),
		AllEntries:    make([]MasterReportEntry, 0),
	}

	seenAccess := make(map[string]bool)
	byUser := make(map[string][]MasterReportEntry)

	for _, jr := range results {
		for _, m := range jr.Matched {
			entry := matchedEntry(m, opts)
			applyPolicies(&entry, opts.Policies)

			report.AllEntries = append(report.AllEntries, entry)
			report.TotalMatched++
			seenAccess[m.SoT.CanonicalID] = true
			byUser[m.SoT.CanonicalID] = append(byUser[m.SoT.CanonicalID], entry)
			report.RiskSummary.add(entry.RiskLevel)
		}

		for _, o := range jr.Orphans {
			entry := orphanEntry(o, opts)
			applyPolicies(&entry, opts.Policies)

			report.OrphanEntries = append(report.OrphanEntries, entry)
			report.AllEntries = append(report.AllEntries, entry)
			report.TotalOrphans++
			report.RiskSummary.add(entry.RiskLevel)
		}
	}

	// Roster users with no satellite presence at all.
	seenNoAccess := make(map[string]bool)
	for _, rec := range index.Records() {
		if seenAccess[rec.CanonicalID] || seenNoAccess[rec.CanonicalID] {
			continue
		}
		seenNoAccess[rec.CanonicalID] = true

		entry := noAccessEntry(rec)
		applyPolicies(&entry, opts.Policies)

		report.AllEntries = append(report.AllEntries, entry)
		report.TotalNoAccess++
		byUser[rec.CanonicalID] = append(byUser[rec.CanonicalID], entry)
		report.RiskSummary.add(entry.RiskLevel)
	}

	ids := make([]string, 0, len(byUser))
	for id := range byUser {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		entries := byUser[id]
		summary := UserSummary{CanonicalID: id, Entries: entries, MaxRiskLevel: engine.RiskInfo}
		for _, e := range entries {
			if e.RiskScore > summary.MaxRiskScore {
				summary.MaxRiskScore = e.RiskScore
				summary.MaxRiskLevel = e.RiskLevel
			}
			if summary.DisplayName == "" {
				summary.DisplayName = e.DisplayName
			}
			if summary.Email == "" {
				summary.Email = e.Email
			}
		}
		report.Users = append(report.Users, summary)
	}
	report.TotalUsers = len(report.Users)

	return report
}

func matchedEntry(m engine.MatchedRecord, opts MergeOptions) MasterReportEntry {
	level, score := engine.ScoreRisk(m.SoT, m.Satellite, m.MatchType,
		opts.ProcessingTimestamp, opts.DormancyDays, opts.PrivilegedKeywords)

	return MasterReportEntry{
		CanonicalID:      m.SoT.CanonicalID,
		EmployeeID:       m.SoT.EmployeeID,
		DisplayName:      m.SoT.DisplayName,
		Email:            m.SoT.Email,
		Department:       m.SoT.Department,
		Manager:          m.SoT.Manager,
		EmploymentStatus: m.SoT.EmploymentStatus,
		System:           m.Satellite.SourceFile,
		Role:             m.Satellite.Role,
		Entitlement:      m.Satellite.Entitlement,
		LastLogin:        m.Satellite.LastLogin,
		AccountStatus:    m.Satellite.AccountStatus,
		MatchType:        m.MatchType,
		RiskLevel:        level,
		RiskScore:        score,
		Conflicts:        m.Conflicts,
		SourceFile:       m.Satellite.SourceFile,
		SourceRow:        m.Satellite.SourceRow,
	}
}

func orphanEntry(o engine.OrphanRecord, opts MergeOptions) MasterReportEntry {
	level, score := engine.ScoreRisk(nil, o.Satellite, engine.MatchOrphan,
		opts.ProcessingTimestamp, opts.DormancyDays, opts.PrivilegedKeywords)

	return MasterReportEntry{
		DisplayName:   o.Satellite.DisplayName,
		Email:         o.Satellite.Email,
		System:        o.Satellite.SourceFile,
		Role:          o.Satellite.Role,
		Entitlement:   o.Satellite.Entitlement,
		LastLogin:     o.Satellite.LastLogin,
		AccountStatus: o.Satellite.AccountStatus,
		MatchType:     engine.MatchOrphan,
		RiskLevel:     level,
		RiskScore:     score,
		SourceFile:    o.Satellite.SourceFile,
		SourceRow:     o.Satellite.SourceRow,
	}
}

func noAccessEntry(rec *schema.SoTRecord) MasterReportEntry {
	return MasterReportEntry{
		CanonicalID:      rec.CanonicalID,
		EmployeeID:       rec.EmployeeID,
		DisplayName:      rec.DisplayName,
		Email:            rec.Email,
		Department:       rec.Department,
		Manager:          rec.Manager,
		EmploymentStatus: rec.EmploymentStatus,
		MatchType:        engine.MatchNoAccess,
		RiskLevel:        engine.RiskInfo,
		RiskScore:        engine.ScoreInfo,
	}
}

// applyPolicies runs review rules over one entry, in rule order.
// Escalation raises the effective level; suppression drops it to INFO;
// both record the rule id on the entry.
func applyPolicies(entry *MasterReportEntry, eng *policy.Engine) {
	if eng == nil {
		return
	}

	matches := eng.Evaluate(policy.Finding{
		System:           entry.System,
		MatchType:        entry.MatchType,
		RiskLevel:        string(entry.RiskLevel),
		RiskScore:        entry.RiskScore,
		EmploymentStatus: entry.EmploymentStatus,
		AccountStatus:    entry.AccountStatus,
		Role:             entry.Role,
		Entitlement:      entry.Entitlement,
		Email:            entry.Email,
		Department:       entry.Department,
	})

	for _, r := range matches {
		switch r.Action {
		case policy.ActionEscalate:
			if s := scoreForLevel(engine.RiskLevel(r.Level)); s > entry.RiskScore {
				entry.RiskLevel = engine.RiskLevel(r.Level)
				entry.RiskScore = s
			}
		case policy.ActionSuppress:
			entry.RiskLevel = engine.RiskInfo
			entry.RiskScore = engine.ScoreInfo
		}
		entry.PolicyFlags = append(entry.PolicyFlags, r.ID)
	}
}

func scoreForLevel(level engine.RiskLevel) int {
	switch level {
	case engine.RiskCritical:
		return engine.ScoreCritical
	case engine.RiskHigh:
		return engine.ScoreHigh
	case engine.RiskMedium:
		return engine.ScoreMedium
	case engine.RiskLow:
		return engine.ScoreLow
	}
	return engine.ScoreInfo
}

func (s *RiskSummary) add(level engine.RiskLevel) {
	switch level {
	case engine.RiskCritical:
		s.Critical++
	case engine.RiskHigh:
		s.High++
	case engine.RiskMedium:
		s.Medium++
	case engine.RiskLow:
		s.Low++
	case engine.RiskInfo:
		s.Info++
	}
}
