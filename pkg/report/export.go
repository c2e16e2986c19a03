package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
)

var csvHeader = []string{
	"CanonicalID",
	"EmployeeID",
	"DisplayName",
	"Email",
	"Department",
	"Manager",
	"EmploymentStatus",
	"System",
	"Role",
	"Entitlement",
	"LastLogin",
	"AccountStatus",
	"MatchType",
	"RiskLevel",
	"RiskScore",
	"Conflicts",
	"PolicyFlags",
	"SourceRow",
}

// ExportCSV writes the report rows to a CSV file, riskiest first. The sort
// is stable, so equal scores keep merge order.
func ExportCSV(report *MasterReport, path string) error {
	rows := sortedEntries(report)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(csvHeader); err != nil {
		return err
	}

	for _, e := range rows {
		conflicts := make([]string, len(e.Conflicts))
		for i, c := range e.Conflicts {
			conflicts[i] = fmt.Sprintf("%s: %s", c.Field, c.Resolution)
		}

		record := []string{
			e.CanonicalID,
			e.EmployeeID,
			e.DisplayName,
			e.Email,
			e.Department,
			e.Manager,
			e.EmploymentStatus,
			e.System,
			e.Role,
			e.Entitlement,
			e.LastLogin,
			e.AccountStatus,
			e.MatchType,
			string(e.RiskLevel),
			fmt.Sprintf("%d", e.RiskScore),
			strings.Join(conflicts, "; "),
			strings.Join(e.PolicyFlags, "; "),
			fmt.Sprintf("%d", e.SourceRow),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	slog.Debug("CSV report written", "path", path, "rows", len(rows))
	return nil
}

// ExportJSON writes the full report structure as indented JSON.
func ExportJSON(report *MasterReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	slog.Debug("JSON report written", "path", path)
	return nil
}

func sortedEntries(report *MasterReport) []MasterReportEntry {
	rows := make([]MasterReportEntry, len(report.AllEntries))
	copy(rows, report.AllEntries)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].RiskScore > rows[j].RiskScore
	})
	return rows
}
