package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/franz/tilekeeper/internal/transfer"
	"github.com/franz/tilekeeper/internal/util"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export [group...]",
	Short: "Export user-created groups",
	Long: `Export user-created groups of the current language.

With no arguments every user group of one game mode (--game-mode, default
local) is exported. Naming groups exports only those. User tiles added to
bundled groups are exported as custom tiles. The file records its game mode
and imports back into it.

The clean v2.0 JSON format is the default; --legacy writes the old text
format, which cannot carry custom tiles.`,
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import groups from an export file",
	Long: `Import groups from a clean v2.0 JSON or legacy text export.

The format is detected from the content. Use "-" to read from stdin.

--strategy decides what happens to a group whose name already exists:
  skip       keep the existing group (default)
  overwrite  replace the group and its user tiles; bundled groups are
             never replaced and the import is renamed instead
  rename     import under <name>_imported`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List user-created groups that can be exported",
	RunE:  runGroups,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(groupsCmd)

	exportCmd.Flags().StringP("out", "o", "", "Output file (default: stdout)")
	exportCmd.Flags().String("game-mode", "", "Game mode to export (default: local)")
	exportCmd.Flags().Bool("legacy", false, "Write the legacy text format")

	importCmd.Flags().String("strategy", string(transfer.StrategySkip), "Merge strategy: skip, overwrite or rename")
	importCmd.Flags().String("game-mode", "", "Target game mode (default: the file's, then local)")

	groupsCmd.Flags().String("game-mode", "", "Only list groups of this game mode")
}

func runExport(cmd *cobra.Command, args []string) error {
	out, _ := cmd.Flags().GetString("out")
	legacy, _ := cmd.Flags().GetBool("legacy")
	mode, err := gameModeFlag(cmd)
	if err != nil {
		return err
	}

	a, err := openApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := transfer.ExportOptions{
		Locale:   a.locale(),
		GameMode: mode,
		Scope:    transfer.ScopeAll,
	}
	switch len(args) {
	case 0:
	case 1:
		opts.Scope, opts.Groups = transfer.ScopeGroup, args
	default:
		opts.Scope, opts.Groups = transfer.ScopeGroups, args
	}

	tr := a.transfer()
	var data []byte
	if legacy {
		text, err := tr.ExportLegacy(opts)
		if err != nil {
			return err
		}
		data = []byte(text)
	} else {
		if data, err = tr.ExportCleanJSON(opts); err != nil {
			return err
		}
	}

	if out == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	util.SuccessLog("Exported to %s (%s)", out, humanize.Bytes(uint64(len(data))))
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	strategyName, _ := cmd.Flags().GetString("strategy")
	mode, err := gameModeFlag(cmd)
	if err != nil {
		return err
	}

	strategy, err := transfer.ParseStrategy(strategyName)
	if err != nil {
		return err
	}

	var data []byte
	if args[0] == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to read import file: %w", err)
	}

	a, err := openApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	res := a.transfer().AutoImportData(cmd.Context(), data, transfer.ImportOptions{
		Strategy: strategy,
		Locale:   a.locale(),
		GameMode: mode,
	})

	for _, w := range res.Warnings {
		util.WarnLog("%s", w)
	}
	for _, e := range res.Errors {
		util.ErrorLog("%s", e)
	}
	util.InfoLog("Imported %d groups, %d tiles", res.ImportedGroups, res.ImportedTiles)

	if !res.Success {
		return fmt.Errorf("import finished with %d errors", len(res.Errors))
	}
	util.SuccessLog("Import complete")
	return nil
}

func runGroups(cmd *cobra.Command, args []string) error {
	mode, err := gameModeFlag(cmd)
	if err != nil {
		return err
	}

	a, err := openApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	locale := a.locale()
	groups, err := a.transfer().AvailableGroupsForExport(locale, mode)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		util.InfoLog("No user groups for %s", locale)
		return nil
	}

	fmt.Printf("%-24s %-24s %-8s %s\n", "NAME", "LABEL", "MODE", "TILES")
	for _, g := range groups {
		fmt.Printf("%-24s %-24s %-8s %s\n", g.Name, g.Label, g.GameMode, humanize.Comma(int64(g.TileCount)))
	}
	return nil
}
