package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/franz/tilekeeper/internal/repair"
	"github.com/franz/tilekeeper/internal/report"
	"github.com/franz/tilekeeper/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a migration report",
	Long: `Generate a migration report in Markdown format.

The report includes:
- Migration status per language
- Group and tile counts per language and game mode
- Audit and integrity issues
- Event counts and top errors (with --event-log)

The report is saved to <artifacts>/reports/<timestamp>/summary.md`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().String("out", "", "Output directory for report (default: <artifacts>/reports/<timestamp>)")
	reportCmd.Flags().String("event-log", "", "Path to event log file (optional)")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	util.InfoLog("=== Generating Migration Report ===")
	util.InfoLog("Database: %s", a.dbPath)

	eventLogPath, _ := cmd.Flags().GetString("event-log")

	util.InfoLog("Analyzing data...")
	summary, err := report.GenerateSummaryReport(a.store, eventLogPath)
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	summary.DatabasePath = a.dbPath
	if info, err := os.Stat(a.dbPath); err == nil {
		summary.DatabaseSize = info.Size()
	}
	summary.Status = statusInfo(ctx, a)

	r := a.repairer()
	audit, err := r.Audit()
	if err != nil {
		return fmt.Errorf("audit failed: %w", err)
	}
	if audit.TilesMissingGroupID > 0 {
		summary.Issues = append(summary.Issues, fmt.Sprintf("%d tiles have no group id", audit.TilesMissingGroupID))
	}
	if audit.OrphanedTiles > 0 {
		summary.Issues = append(summary.Issues, fmt.Sprintf("%d tiles point at a missing group", audit.OrphanedTiles))
	}
	for _, m := range audit.InconsistentMappings {
		summary.Issues = append(summary.Issues, fmt.Sprintf("%s (%s/%s) links to %d groups", m.GroupName, m.Locale, m.GameMode, len(m.GroupIDs)))
	}
	integrity, err := r.ValidateIntegrity()
	if err != nil {
		return fmt.Errorf("integrity validation failed: %w", err)
	}
	for _, issue := range integrity.Issues {
		if issue.Kind == repair.IssueOrphanedGroup {
			summary.Issues = append(summary.Issues, issue.Message)
		}
	}
	for _, locale := range summary.Status.MigratedLanguages {
		rep, err := a.service.VerifyMigrationIntegrity(locale, "")
		if err == nil && rep.Corrupted {
			summary.Issues = append(summary.Issues, fmt.Sprintf("%s is marked migrated but %v has no content", locale, rep.EmptyModes))
		}
	}

	outputDir, _ := cmd.Flags().GetString("out")
	if outputDir == "" {
		timestamp := time.Now().Format("20060102-150405")
		outputDir = filepath.Join(viper.GetString("artifacts"), "reports", timestamp)
	}
	outputPath := filepath.Join(outputDir, "summary.md")

	util.InfoLog("Writing report to: %s", outputPath)
	if err := report.WriteMarkdownReport(summary, outputPath); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	util.SuccessLog("Report generated successfully!")
	util.InfoLog("")
	util.InfoLog("Summary:")
	util.InfoLog("  Groups: %d (%d bundled, %d user)", summary.TotalGroups, summary.DefaultGroups, summary.UserGroups)
	util.InfoLog("  Tiles: %d (%d custom)", summary.TotalTiles, summary.CustomTiles)
	if len(summary.Issues) > 0 {
		util.WarnLog("  Issues: %d", len(summary.Issues))
	}

	return nil
}
