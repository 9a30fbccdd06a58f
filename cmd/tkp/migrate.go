package main

import (
	"fmt"
	"os"
	"time"

	"github.com/franz/tilekeeper/internal/migration"
	"github.com/franz/tilekeeper/internal/repair"
	"github.com/franz/tilekeeper/internal/util"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Import bundled content into the local store",
	Long: `Migrate bundled action content into the local store.

The current language is migrated first. The remaining languages are then
migrated in the foreground with a progress bar, unless --current-only is set.

Each language is recorded as soon as it completes, so an interrupted run
resumes where it stopped. Afterwards duplicate groups are cleaned up and
group links are repaired (disable with --no-auto-repair).`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().Bool("force", false, "Clear all status and content before migrating")
	migrateCmd.Flags().Bool("current-only", false, "Migrate only the current language")
	migrateCmd.Flags().Bool("no-auto-repair", false, "Skip duplicate cleanup and group-id repair")

	viper.BindPFlag("no-auto-repair", migrateCmd.Flags().Lookup("no-auto-repair"))
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	force, _ := cmd.Flags().GetBool("force")
	currentOnly, _ := cmd.Flags().GetBool("current-only")

	var bar *progressbar.ProgressBar
	opts := &migration.Options{
		Progress: func(p migration.Progress) {
			if p.Err != nil {
				util.WarnLog("  %s/%s: %v", p.Locale, p.GameMode, p.Err)
			} else {
				util.DebugLog("  %s/%s: %d groups, %d tiles", p.Locale, p.GameMode, p.Groups, p.Tiles)
			}
			if bar != nil && p.Background {
				bar.Describe(fmt.Sprintf("Migrating %s", p.Locale))
				bar.Add(1)
			}
		},
	}

	a, err := openApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.events.Path() != "" {
		util.InfoLog("Event log: %s", a.events.Path())
	}

	if force {
		if err := a.service.ForceFreshMigration(ctx); err != nil {
			return err
		}
	}

	locale := a.locale()
	start := time.Now()

	// The bar exists before any migration starts so queued background
	// work only ever sees its final value.
	if !currentOnly && util.IsTerminal(os.Stdout.Fd()) && !util.IsQuiet() {
		total := 0
		for _, l := range a.discovery.AvailableLocales(ctx) {
			if l != locale && !a.service.IsCurrentLanguageMigrationCompleted(l) {
				total += len(a.discovery.AvailableGameModes(l))
			}
		}
		bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription("Migrating"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("bundles"),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}

	util.InfoLog("=== Migrating %s ===", locale)
	if !a.service.RunMigrationIfNeeded(ctx) {
		return fmt.Errorf("migration of %s failed", locale)
	}
	if a.service.IsCurrentLanguageMigrationCompleted(locale) {
		util.SuccessLog("%s migrated", locale)
	} else {
		util.WarnLog("No content for %s", locale)
	}

	if currentOnly {
		a.service.Close()
	} else {
		util.InfoLog("")
		util.InfoLog("=== Migrating remaining languages ===")

		// Queued background work picks up right after the queue delay;
		// whatever it left behind is finished here.
		if !a.service.WaitForBackground(ctx) {
			util.WarnLog("Background migration in another process did not finish in time")
		}
		remaining := a.service.MigrateRemainingLanguages(ctx, locale)
		if bar != nil {
			bar.Finish()
		}
		if len(remaining) > 0 {
			util.InfoLog("Migrated: %v", remaining)
		}
	}

	if util.GetAutoRepair() {
		util.InfoLog("")
		util.InfoLog("=== Repair ===")

		removed, err := a.service.Importer().CleanupDuplicateGroups(ctx)
		if err != nil {
			util.WarnLog("Duplicate cleanup failed: %v", err)
		} else if removed > 0 {
			util.InfoLog("  Duplicate groups removed: %d", removed)
		}

		res, err := a.repairer().RunFull(ctx, repair.Options{SkipAudit: true})
		if err != nil {
			util.WarnLog("Repair failed: %v", err)
		} else {
			util.InfoLog("  Default groups re-keyed: %d", res.DefaultIDs.Migrated)
			util.InfoLog("  Tiles linked: %d", res.Backfill.Migrated)
			if !res.Integrity.IsValid {
				util.WarnLog("  Integrity issues: %d (run 'tkp repair' for details)", len(res.Integrity.Issues))
			}
		}
	}

	util.InfoLog("")
	snap := a.service.GetMigrationStatus()
	if snap.MigrationCompleted {
		util.SuccessLog("Migration complete in %v", time.Since(start).Round(time.Millisecond))
	} else {
		util.SuccessLog("Migration finished in %v (other languages pending)", time.Since(start).Round(time.Millisecond))
	}

	return nil
}
