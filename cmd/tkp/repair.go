package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/franz/tilekeeper/internal/repair"
	"github.com/franz/tilekeeper/internal/util"
	"github.com/spf13/cobra"
)

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Audit and repair the links between tiles and groups",
	Long: `Audit and repair group links.

Steps, in order:
1. Audit: count tiles with and without a group id (skip with --skip-audit)
2. Re-key bundled groups to their deterministic ids
3. Backfill the group id of tiles missing one, in batches
4. Validate that every tile points at an existing group

With --dry-run nothing is written and the counts show what would change.`,
	RunE: runRepair,
}

func init() {
	rootCmd.AddCommand(repairCmd)

	repairCmd.Flags().Bool("dry-run", false, "Report what would change without writing")
	repairCmd.Flags().Bool("skip-audit", false, "Skip the initial audit")
	repairCmd.Flags().Int("batch-size", repair.DefaultBatchSize, "Tiles per backfill batch")
	repairCmd.Flags().Bool("dedupe", true, "Remove duplicate groups before repairing")
	repairCmd.Flags().Bool("json", false, "Print the full result as JSON")
}

func runRepair(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	skipAudit, _ := cmd.Flags().GetBool("skip-audit")
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	dedupe, _ := cmd.Flags().GetBool("dedupe")
	asJSON, _ := cmd.Flags().GetBool("json")

	a, err := openApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if dryRun {
		util.InfoLog("DRY RUN: nothing will be written")
	}

	if dedupe && !dryRun {
		if _, err := a.service.Importer().CleanupDuplicateGroups(ctx); err != nil {
			return fmt.Errorf("duplicate cleanup failed: %w", err)
		}
	}

	res, err := a.repairer().RunFull(ctx, repair.Options{
		DryRun:    dryRun,
		BatchSize: batchSize,
		SkipAudit: skipAudit,
	})
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	if res.Audit != nil {
		util.InfoLog("=== Audit ===")
		util.InfoLog("  Groups: %d", res.Audit.TotalGroups)
		util.InfoLog("  Tiles: %d (%d linked, %d missing group id)",
			res.Audit.TotalTiles, res.Audit.TilesWithGroupID, res.Audit.TilesMissingGroupID)
		if res.Audit.OrphanedTiles > 0 {
			util.WarnLog("  Orphaned tiles: %d", res.Audit.OrphanedTiles)
		}
		for _, m := range res.Audit.InconsistentMappings {
			util.WarnLog("  %s (%s/%s) links to %d groups", m.GroupName, m.Locale, m.GameMode, len(m.GroupIDs))
		}
		util.InfoLog("")
	}

	util.InfoLog("=== Bundled Group IDs ===")
	util.InfoLog("  Re-keyed: %d", res.DefaultIDs.Migrated)
	if res.DefaultIDs.Skipped > 0 {
		util.InfoLog("  Skipped: %d", res.DefaultIDs.Skipped)
	}
	for _, e := range res.DefaultIDs.Errors {
		util.ErrorLog("  %s", e)
	}

	util.InfoLog("")
	util.InfoLog("=== Tile Backfill ===")
	util.InfoLog("  Processed: %d in %d batches", res.Backfill.Processed, res.Backfill.BatchesRun)
	util.InfoLog("  Linked: %d", res.Backfill.Migrated)
	if res.Backfill.Orphaned > 0 {
		util.WarnLog("  Orphaned: %d", res.Backfill.Orphaned)
	}
	if res.Backfill.SkippedCount > 0 {
		util.WarnLog("  Still missing a group id: %d", res.Backfill.SkippedCount)
	}
	for _, e := range res.Backfill.Errors {
		util.ErrorLog("  %s", e)
	}

	util.InfoLog("")
	if res.Integrity.IsValid {
		util.SuccessLog("Integrity check passed")
		return nil
	}
	util.WarnLog("Integrity issues: %d", len(res.Integrity.Issues))
	for _, issue := range res.Integrity.Issues {
		util.DebugLog("  [%s] %s", issue.Kind, issue.Message)
	}
	if !util.IsQuiet() {
		util.InfoLog("Run with --verbose to list them")
	}
	return nil
}
