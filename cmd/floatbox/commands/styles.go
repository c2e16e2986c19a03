package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cloudbun/floatbox/pkg/report"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	criticalStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	highStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	mediumStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	lowStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("111"))
	infoStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	successStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
)

func renderSummary(rep *report.MasterReport) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("User Access Review"))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "  Users:     %d\n", rep.TotalUsers)
	fmt.Fprintf(&b, "  Matched:   %d\n", rep.TotalMatched)
	fmt.Fprintf(&b, "  Orphans:   %d\n", rep.TotalOrphans)
	fmt.Fprintf(&b, "  No access: %d\n", rep.TotalNoAccess)
	b.WriteString("\n")

	fmt.Fprintf(&b, "  %s %d\n", criticalStyle.Render("CRITICAL"), rep.RiskSummary.Critical)
	fmt.Fprintf(&b, "  %s     %d\n", highStyle.Render("HIGH"), rep.RiskSummary.High)
	fmt.Fprintf(&b, "  %s   %d\n", mediumStyle.Render("MEDIUM"), rep.RiskSummary.Medium)
	fmt.Fprintf(&b, "  %s      %d\n", lowStyle.Render("LOW"), rep.RiskSummary.Low)
	fmt.Fprintf(&b, "  %s     %d\n", infoStyle.Render("INFO"), rep.RiskSummary.Info)

	return b.String()
}
