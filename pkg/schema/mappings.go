package schema

import (
	"encoding/json"
	"strings"
)

// headerMappings maps normalized header names to canonical field names.
// These are the aliases seen across HRIS, IdP, and cloud IAM exports.
var headerMappings = map[string]string{
	// Email
	"email":             "email",
	"emailaddress":      "email",
	"email_address":     "email",
	"mail":              "email",
	"userprincipalname": "email",
	"upn":               "email",

	// User ID
	"userid":          "userId",
	"user_id":         "userId",
	"username":        "userId",
	"user_name":       "userId",
	"samaccountname":  "userId",
	"login":           "userId",
	"uid":             "userId",
	"account":         "userId",
	"accountname":     "userId",
	"employeeid":      "employeeId",
	"employee_id":     "employeeId",
	"emp_id":          "employeeId",
	"personnelnumber": "employeeId",

	// Display Name
	"displayname":  "displayName",
	"display_name": "displayName",
	"fullname":     "displayName",
	"full_name":    "displayName",
	"name":         "displayName",
	"cn":           "displayName",

	// Department
	"department":         "department",
	"dept":               "department",
	"division":           "department",
	"org":                "department",
	"organizationalunit": "department",
	"ou":                 "department",

	// Manager
	"manager":      "manager",
	"managername":  "manager",
	"manager_name": "manager",
	"supervisor":   "manager",
	"reportsto":    "manager",

	// Status
	"status":           "accountStatus",
	"accountstatus":    "accountStatus",
	"enabled":          "accountStatus",
	"active":           "accountStatus",
	"employmentstatus": "employmentStatus",
	"empstatus":        "employmentStatus",

	// Role / Entitlement
	"role":        "role",
	"rolename":    "role",
	"role_name":   "role",
	"group":       "role",
	"groupname":   "role",
	"memberof":    "role",
	"entitlement": "entitlement",
	"permission":  "entitlement",
	"access":      "entitlement",
	"accesslevel": "entitlement",
	"privilege":   "entitlement",

	// Last Login
	"lastlogin":          "lastLogin",
	"last_login":         "lastLogin",
	"lastlogon":          "lastLogin",
	"lastlogontimestamp": "lastLogin",
	"lastsignin":         "lastLogin",
	"last_sign_in":       "lastLogin",
	"lastactivity":       "lastLogin",
}

// substringMappings is the fallback for headers with no exact alias.
// Order matters: most specific substrings come first.
var substringMappings = []struct {
	Substring string
	Target    string
}{
	{"email", "email"},
	{"mail", "email"},
	{"upn", "email"},
	{"employeeid", "employeeId"},
	{"empid", "employeeId"},
	{"userid", "userId"},
	{"username", "userId"},
	{"login", "userId"},
	{"displayname", "displayName"},
	{"fullname", "displayName"},
	{"name", "displayName"},
	{"department", "department"},
	{"dept", "department"},
	{"division", "department"},
	{"manager", "manager"},
	{"supervisor", "manager"},
	{"reportsto", "manager"},
	{"employmentstatus", "employmentStatus"},
	{"empstatus", "employmentStatus"},
	{"accountstatus", "accountStatus"},
	{"status", "accountStatus"},
	{"enabled", "accountStatus"},
	{"entitlement", "entitlement"},
	{"permission", "entitlement"},
	{"privilege", "entitlement"},
	{"accesslevel", "entitlement"},
	{"role", "role"},
	{"group", "role"},
	{"memberof", "role"},
	{"lastlogin", "lastLogin"},
	{"lastlogon", "lastLogin"},
	{"lastsignin", "lastLogin"},
	{"lastactivity", "lastLogin"},
}

// InferMappings derives a sourceHeader -> canonicalField map from a header
// vector. Headers are visited in CSV order and each canonical target is
// assigned at most once, so the outcome is deterministic:
//  1. Lowercase, strip whitespace/underscores/hyphens.
//  2. Exact match against the alias table.
//  3. Substring match, most specific first.
//  4. Otherwise the header stays unmapped.
func InferMappings(headers []string) map[string]string {
	result := make(map[string]string, len(headers))
	used := make(map[string]bool)

	for _, header := range headers {
		normalized := normalizeHeader(header)

		if target, ok := headerMappings[normalized]; ok && !used[target] {
			result[header] = target
			used[target] = true
			continue
		}

		for _, sm := range substringMappings {
			if strings.Contains(normalized, sm.Substring) && !used[sm.Target] {
				result[header] = sm.Target
				used[sm.Target] = true
				break
			}
		}
	}

	return result
}

func normalizeHeader(header string) string {
	s := strings.ToLower(strings.TrimSpace(header))
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "_", "")
	s = strings.ReplaceAll(s, "-", "")
	return s
}

// ParseColumnMapping decodes a column-map spec string (JSON). An empty or
// malformed spec yields an empty mapping, which means header inference.
func ParseColumnMapping(spec string) *ColumnMapping {
	mapping := &ColumnMapping{Direct: make(map[string]string)}
	if spec == "" {
		return mapping
	}
	if err := json.Unmarshal([]byte(spec), mapping); err != nil {
		return &ColumnMapping{Direct: make(map[string]string)}
	}
	if mapping.Direct == nil {
		mapping.Direct = make(map[string]string)
	}
	return mapping
}

// empty reports whether the mapping carries no user transforms.
func (m *ColumnMapping) empty() bool {
	return m == nil || (len(m.Direct) == 0 && len(m.Concat) == 0)
}

// Apply resolves one row to a canonicalField -> value map. A nonempty user
// mapping is applied verbatim (direct entries in column order, so a direct
// map that assigns two sources to one target resolves last-write-wins);
// otherwise the inferred mapping is used.
func (m *ColumnMapping) Apply(headers []string, fields []string) map[string]string {
	result := make(map[string]string)

	if m.empty() {
		inferred := InferMappings(headers)
		for i, h := range headers {
			if target, ok := inferred[h]; ok {
				result[target] = fields[i]
			}
		}
		return result
	}

	for i, h := range headers {
		if target, ok := m.Direct[h]; ok {
			result[target] = fields[i]
		}
	}

	byHeader := make(map[string]string, len(headers))
	for i, h := range headers {
		if _, seen := byHeader[h]; !seen {
			byHeader[h] = fields[i]
		}
	}
	for _, ct := range m.Concat {
		parts := make([]string, 0, len(ct.SourceColumns))
		for _, col := range ct.SourceColumns {
			if val, ok := byHeader[col]; ok && val != "" {
				parts = append(parts, val)
			}
		}
		if len(parts) > 0 {
			result[ct.TargetField] = strings.Join(parts, ct.Separator)
		}
	}

	return result
}
