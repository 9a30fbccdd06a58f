package main

import (
	"github.com/franz/tilekeeper/internal/util"
	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear migration status",
	Long: `Clear every migration status and lock record.

Content already in the store is kept, so the next 'tkp migrate' only imports
what is missing. With --all every group and tile is deleted as well.`,
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().Bool("all", false, "Also delete all groups and tiles")
}

func runReset(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")

	a, err := openApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if all {
		if err := a.service.ForceFreshMigration(cmd.Context()); err != nil {
			return err
		}
		util.SuccessLog("Status and content cleared")
		return nil
	}

	if !a.service.ResetMigrationStatus() {
		util.WarnLog("Some status records could not be removed")
	}
	return nil
}
