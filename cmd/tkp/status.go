package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/franz/tilekeeper/internal/report"
	"github.com/franz/tilekeeper/internal/util"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status and verify it against the store",
	Long: `Show the recorded migration status and check it against the store.

For every available language this reports whether it is marked migrated and
how many groups and tiles each game mode holds. A language marked migrated
with an empty game mode is reported as corrupted; --fix clears its mark so
the next 'tkp migrate' imports it again.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().Bool("json", false, "Print the raw status snapshot as JSON")
	statusCmd.Flags().Bool("fix", false, "Reset languages whose recorded status does not match the store")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	asJSON, _ := cmd.Flags().GetBool("json")
	fix, _ := cmd.Flags().GetBool("fix")

	a, err := openApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	snap := a.service.GetMigrationStatus()
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	info := statusInfo(ctx, a)

	util.InfoLog("=== Migration Status ===")
	util.InfoLog("Content version: %s", snap.CurrentVersion)
	util.InfoLog("Current language: %s", a.locale())
	if info.Completed {
		util.SuccessLog("All languages migrated %s", humanize.Time(info.CompletedAt))
	} else {
		util.InfoLog("Migration not complete")
	}
	if len(info.MigratedLanguages) > 0 {
		util.InfoLog("Migrated: %s", strings.Join(info.MigratedLanguages, ", "))
	}
	if len(info.PendingLanguages) > 0 {
		util.InfoLog("Pending: %s", strings.Join(info.PendingLanguages, ", "))
	}
	if snap.MainLock {
		util.WarnLog("Main migration lock is held")
	}
	if snap.BackgroundLock {
		util.WarnLog("Background migration lock is held")
	}
	for _, l := range snap.LanguageLocks {
		util.WarnLog("Language lock held: %s", l)
	}

	util.InfoLog("")
	util.InfoLog("=== Store ===")
	corrupted := 0
	for _, locale := range a.discovery.AvailableLocales(ctx) {
		rep, err := a.service.VerifyMigrationIntegrity(locale, "")
		if err != nil {
			return fmt.Errorf("failed to verify %s: %w", locale, err)
		}
		for _, m := range rep.Modes {
			util.InfoLog("  %-4s %-8s %6s groups %8s tiles", locale, m.GameMode,
				humanize.Comma(int64(m.Groups)), humanize.Comma(int64(m.Tiles)))
		}
		if rep.Corrupted {
			corrupted++
			util.WarnLog("  %s is marked migrated but %s has no content", locale, strings.Join(rep.EmptyModes, ", "))
		}
	}

	if corrupted == 0 {
		return nil
	}
	if !fix {
		util.WarnLog("Run 'tkp status --fix' to reset the affected languages")
		return nil
	}
	fixed := a.service.FixMigrationStatusCorruption(ctx)
	util.SuccessLog("Reset: %s", strings.Join(fixed, ", "))
	return nil
}

// statusInfo collects the migration status shown by status and report
func statusInfo(ctx context.Context, a *app) report.StatusInfo {
	snap := a.service.GetMigrationStatus()

	info := report.StatusInfo{
		Version:    snap.CurrentVersion,
		Completed:  snap.MigrationCompleted,
		InProgress: snap.MainLock || len(snap.LanguageLocks) > 0,
	}
	if snap.Main != nil && snap.Main.CompletedAt > 0 {
		info.CompletedAt = time.UnixMilli(snap.Main.CompletedAt)
	}
	info.BackgroundInProgress = a.status.IsBackgroundMigrationInProgress()

	for _, locale := range a.discovery.AvailableLocales(ctx) {
		if a.service.IsCurrentLanguageMigrationCompleted(locale) {
			info.MigratedLanguages = append(info.MigratedLanguages, locale)
		} else {
			info.PendingLanguages = append(info.PendingLanguages, locale)
		}
	}
	return info
}
