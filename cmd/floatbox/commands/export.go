package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cloudbun/floatbox/pkg/report"
)

var ExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Run a review and export the master report (CSV, JSON)",
	Long: `Run the full review pipeline and write the merged report to disk.

Default output directory: ./floatbox-out/`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rep, err := runReview(cmd.Context())
		if err != nil {
			return err
		}

		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		csvPath := filepath.Join(cfg.OutputDir, "uar_report.csv")
		jsonPath := filepath.Join(cfg.OutputDir, "uar_report.json")

		switch cfg.Format {
		case "csv":
			if err := report.ExportCSV(rep, csvPath); err != nil {
				return err
			}
		case "json":
			if err := report.ExportJSON(rep, jsonPath); err != nil {
				return err
			}
		case "all":
			if err := report.ExportCSV(rep, csvPath); err != nil {
				return err
			}
			if err := report.ExportJSON(rep, jsonPath); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown format %q, want csv, json, or all", cfg.Format)
		}

		fmt.Println(renderSummary(rep))
		fmt.Println(successStyle.Render("Report written to " + cfg.OutputDir))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ExportCmd)
	addReviewFlags(ExportCmd)
}
