package engine

import (
	"sort"
	"strings"

	"github.com/cloudbun/floatbox/pkg/parser"
	"github.com/cloudbun/floatbox/pkg/schema"
)

// Match-type tags. These strings are part of the wire contract.
const (
	MatchExactEmail     = "exact_email"
	MatchExactID        = "exact_id"
	MatchFuzzyName      = "fuzzy_name"
	MatchFuzzyAmbiguous = "fuzzy_ambiguous"
	MatchOrphan         = "orphan"
	MatchNoAccess       = "no_access"
)

// Fuzzy matching parameters.
const (
	fuzzyMatchThreshold = 0.85
	fuzzyAmbiguityGap   = 0.10
	maxFuzzyCandidates  = 10
)

// JoinResult is the per-satellite-file outcome.
type JoinResult struct {
	Matched  []MatchedRecord  `json:"matched"`
	Orphans  []OrphanRecord   `json:"orphans"`
	Stats    JoinStats        `json:"stats"`
	Warnings []parser.Warning `json:"warnings,omitempty"`
}

// MatchedRecord ties a satellite row to a SoT record.
type MatchedRecord struct {
	SoT       *schema.SoTRecord      `json:"sot"`
	Satellite schema.SatelliteRecord `json:"satellite"`
	MatchType string                 `json:"matchType"`
	Conflicts []FieldConflict        `json:"conflicts"`
}

// OrphanRecord is a satellite row with no SoT match on any cascade level.
type OrphanRecord struct {
	Satellite        schema.SatelliteRecord `json:"satellite"`
	AttemptedMatches []string               `json:"attemptedMatches"`
}

// JoinStats counts join outcomes.
type JoinStats struct {
	TotalProcessed int `json:"totalProcessed"`
	ExactEmail     int `json:"exactEmail"`
	ExactID        int `json:"exactId"`
	FuzzyName      int `json:"fuzzyName"`
	Ambiguous      int `json:"ambiguous"`
	Orphans        int `json:"orphans"`
}

// JoinAgainstSoT classifies each satellite record via the matching cascade,
// short-circuiting at the first success:
//  1. exact email
//  2. exact employee id (the satellite user id doubles as the candidate;
//     HRIS systems that also act as IdPs are caught this way)
//  3. fuzzy normalized-name match
//  4. orphan
func JoinAgainstSoT(index *SoTIndex, satellites []schema.SatelliteRecord) *JoinResult {
	result := &JoinResult{
		Matched: make([]MatchedRecord, 0, len(satellites)),
		Orphans: make([]OrphanRecord, 0),
	}

	for _, sat := range satellites {
		var attempted []string

		if sat.Email != "" {
			emailKey := strings.ToLower(sat.Email)
			attempted = append(attempted, "email:"+emailKey)
			if rec, ok := index.ByEmail[emailKey]; ok {
				result.append(rec, sat, MatchExactEmail)
				continue
			}
		}

		if sat.UserID != "" {
			attempted = append(attempted, "employeeId:"+sat.UserID)
			if rec, ok := index.ByEmployeeID[sat.UserID]; ok {
				result.append(rec, sat, MatchExactID)
				continue
			}
		}

		if sat.DisplayName != "" {
			norm := schema.NormalizeName(sat.DisplayName)
			attempted = append(attempted, "name:"+norm)
			if rec, matchType, ok := index.fuzzyByName(norm); ok {
				result.append(rec, sat, matchType)
				continue
			}
		}

		result.Orphans = append(result.Orphans, OrphanRecord{
			Satellite:        sat,
			AttemptedMatches: attempted,
		})
		result.Stats.Orphans++
		result.Stats.TotalProcessed++
	}

	return result
}

func (r *JoinResult) append(rec *schema.SoTRecord, sat schema.SatelliteRecord, matchType string) {
	r.Matched = append(r.Matched, MatchedRecord{
		SoT:       rec,
		Satellite: sat,
		MatchType: matchType,
		Conflicts: DetectConflicts(rec, sat),
	})
	switch matchType {
	case MatchExactEmail:
		r.Stats.ExactEmail++
	case MatchExactID:
		r.Stats.ExactID++
	case MatchFuzzyName:
		r.Stats.FuzzyName++
	case MatchFuzzyAmbiguous:
		r.Stats.Ambiguous++
	}
	r.Stats.TotalProcessed++
}

type scoredCandidate struct {
	record *schema.SoTRecord
	score  float64
}

// fuzzyByName resolves a normalized satellite name against the name index.
// An exact key hit is decided within its candidate list; a miss falls back
// to a broad scan over every indexed name.
func (idx *SoTIndex) fuzzyByName(norm string) (*schema.SoTRecord, string, bool) {
	candidates, ok := idx.ByName[norm]
	if !ok || len(candidates) == 0 {
		return idx.fuzzyBroadSearch(norm)
	}

	// Oversized lists are flagged ambiguous without scoring; the first
	// candidate in insertion order stands in.
	if len(candidates) > maxFuzzyCandidates {
		return candidates[0], MatchFuzzyAmbiguous, true
	}

	if len(candidates) == 1 {
		if similarity(norm, candidates[0].NormalizedName) >= fuzzyMatchThreshold {
			return candidates[0], MatchFuzzyName, true
		}
		// A failed single-candidate hit does not broaden.
		return nil, "", false
	}

	scored := make([]scoredCandidate, len(candidates))
	for i, c := range candidates {
		scored[i] = scoredCandidate{record: c, score: similarity(norm, c.NormalizedName)}
	}
	return decide(scored)
}

// fuzzyBroadSearch scores the query against every distinct normalized name
// in the index. Keys are visited in sorted order so ties resolve the same
// way on every run and every rehydrated copy of the index.
func (idx *SoTIndex) fuzzyBroadSearch(norm string) (*schema.SoTRecord, string, bool) {
	if norm == "" {
		return nil, "", false
	}

	names := make([]string, 0, len(idx.ByName))
	for name := range idx.ByName {
		names = append(names, name)
	}
	sort.Strings(names)

	var hits []scoredCandidate
	for _, name := range names {
		score := similarity(norm, name)
		if score < fuzzyMatchThreshold {
			continue
		}
		for _, c := range idx.ByName[name] {
			hits = append(hits, scoredCandidate{record: c, score: score})
		}
	}

	if len(hits) == 0 {
		return nil, "", false
	}
	if len(hits) == 1 {
		return hits[0].record, MatchFuzzyName, true
	}
	return decide(hits)
}

// decide sorts scored candidates and applies the threshold and ambiguity
// gap. The sort is stable so equal scores keep candidate insertion order.
func decide(scored []scoredCandidate) (*schema.SoTRecord, string, bool) {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	if scored[0].score < fuzzyMatchThreshold {
		return nil, "", false
	}
	if scored[0].score-scored[1].score >= fuzzyAmbiguityGap {
		return scored[0].record, MatchFuzzyName, true
	}
	return scored[0].record, MatchFuzzyAmbiguous, true
}
