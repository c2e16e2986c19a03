package schema

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	middleInitialRe = regexp.MustCompile(`\b[a-z]\.?\s`)
	spaceRunRe      = regexp.MustCompile(`\s+`)
	adminHeaderRe   = regexp.MustCompile(`(?i)admin`)
)

// Trailing name suffixes stripped during normalization.
var nameSuffixes = []string{"jr", "sr", "ii", "iii", "iv", "v", "phd", "md", "dds", "esq", "cpa"}

// NormalizeName produces the comparison key for a display name. The steps
// run in a fixed order and the result is idempotent:
//  1. Lowercase and trim.
//  2. Strip diacritics (NFD decompose, drop combining marks).
//  3. Strip trailing suffixes (jr, sr, ii, ... preceded by space or comma),
//     repeated until none remain.
//  4. Remove middle initials (single letter, optional period).
//  5. Collapse whitespace runs.
//  6. Swap a single-comma "Last, First" into "first last".
func NormalizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	if s == "" {
		return s
	}

	s = stripDiacritics(s)

	for stripped := true; stripped; {
		stripped = false
		for _, suffix := range nameSuffixes {
			if t := strings.TrimSuffix(s, " "+suffix); t != s {
				s, stripped = t, true
			}
			if t := strings.TrimSuffix(s, ","+suffix); t != s {
				s, stripped = t, true
			}
		}
	}

	s = middleInitialRe.ReplaceAllString(s, "")
	s = spaceRunRe.ReplaceAllString(s, " ")

	if strings.Count(s, ",") == 1 {
		parts := strings.SplitN(s, ",", 2)
		first := strings.TrimSpace(parts[1])
		last := strings.TrimSpace(parts[0])
		if first != "" && last != "" {
			s = first + " " + last
		}
	}

	return strings.TrimSpace(s)
}

// stripDiacritics removes accent marks: NFD decomposition splits 'é' into
// 'e' plus a combining mark, and combining marks (Mn) are dropped.
func stripDiacritics(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// collectAdminValues gathers values of every column whose header matches
// /admin/i: nonempty values only, sorted by header name, joined by "; ".
func collectAdminValues(headers []string, fields []string) string {
	type hv struct{ header, value string }
	var picked []hv
	for i, h := range headers {
		if !adminHeaderRe.MatchString(h) {
			continue
		}
		if v := strings.TrimSpace(fields[i]); v != "" {
			picked = append(picked, hv{h, v})
		}
	}
	sort.SliceStable(picked, func(i, j int) bool { return picked[i].header < picked[j].header })

	vals := make([]string, len(picked))
	for i, p := range picked {
		vals[i] = p.value
	}
	return strings.Join(vals, "; ")
}

// NormalizeSoT builds canonical SoT records from a parsed table. A record
// whose email and employee id are both empty still gets produced; it is
// unreachable by keyed lookups but can participate in name matching.
func NormalizeSoT(headers []string, rows [][]string, columnMapSpec string) []*SoTRecord {
	mapping := ParseColumnMapping(columnMapSpec)
	result := make([]*SoTRecord, 0, len(rows))

	for _, fields := range rows {
		mapped := mapping.Apply(headers, fields)

		email := strings.ToLower(strings.TrimSpace(mapped["email"]))
		employeeID := strings.TrimSpace(mapped["employeeId"])
		displayName := strings.TrimSpace(mapped["displayName"])

		canonicalID := email
		if canonicalID == "" {
			canonicalID = employeeID
		}

		result = append(result, &SoTRecord{
			CanonicalID:      canonicalID,
			EmployeeID:       employeeID,
			DisplayName:      displayName,
			NormalizedName:   NormalizeName(displayName),
			Email:            email,
			Department:       strings.TrimSpace(mapped["department"]),
			Manager:          strings.TrimSpace(mapped["manager"]),
			EmploymentStatus: strings.ToLower(strings.TrimSpace(mapped["employmentStatus"])),
			AdminInfo:        collectAdminValues(headers, fields),
		})
	}

	return result
}

// NormalizeSatellite builds satellite records from a parsed table.
// SourceRow is 1-indexed over the surviving data rows.
func NormalizeSatellite(headers []string, rows [][]string, systemName, columnMapSpec string) []SatelliteRecord {
	mapping := ParseColumnMapping(columnMapSpec)
	result := make([]SatelliteRecord, 0, len(rows))

	for i, fields := range rows {
		mapped := mapping.Apply(headers, fields)

		// Admin columns fold into the role so privilege detection sees them.
		role := strings.TrimSpace(mapped["role"])
		if adminVals := collectAdminValues(headers, fields); adminVals != "" {
			if role != "" {
				role = role + "; " + adminVals
			} else {
				role = adminVals
			}
		}

		result = append(result, SatelliteRecord{
			Email:         strings.ToLower(strings.TrimSpace(mapped["email"])),
			UserID:        strings.TrimSpace(mapped["userId"]),
			DisplayName:   strings.TrimSpace(mapped["displayName"]),
			Role:          role,
			Entitlement:   strings.TrimSpace(mapped["entitlement"]),
			LastLogin:     strings.TrimSpace(mapped["lastLogin"]),
			AccountStatus: strings.ToLower(strings.TrimSpace(mapped["accountStatus"])),
			SourceFile:    systemName,
			SourceRow:     i + 1,
		})
	}

	return result
}
