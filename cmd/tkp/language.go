package main

import (
	"fmt"
	"slices"

	"github.com/franz/tilekeeper/internal/content"
	"github.com/franz/tilekeeper/internal/util"
	"github.com/spf13/cobra"
)

var languageCmd = &cobra.Command{
	Use:   "language [code]",
	Short: "Show or switch the preferred language",
	Long: `Show the active language, or store a new preferred language.

Switching makes sure the new language is migrated before returning, the
way a language change at runtime does. --lang and the 'language' config key
still take precedence over the stored preference.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLanguage,
}

func init() {
	rootCmd.AddCommand(languageCmd)
}

func runLanguage(cmd *cobra.Command, args []string) error {
	a, err := openApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 0 {
		current := a.locale()
		available := a.discovery.AvailableLocales(cmd.Context())
		fmt.Printf("Current:   %s\n", current)
		fmt.Printf("Supported: %v\n", a.catalog.Languages)
		fmt.Printf("Content:   %v\n", available)
		if !slices.Contains(available, current) {
			util.WarnLog("No content is available for %s", current)
		}
		return nil
	}

	lang, ok := content.MatchLanguage(a.catalog, args[0])
	if !ok {
		return fmt.Errorf("unsupported language %q: %w", args[0], util.ErrInvalidConfig)
	}
	if !a.discovery.Language().SetPreference(lang) {
		return fmt.Errorf("failed to store language preference")
	}
	util.SuccessLog("Preferred language set to %s", lang)

	if len(a.discovery.AvailableGameModes(lang)) == 0 {
		util.WarnLog("No content is available for %s", lang)
		return nil
	}
	if !a.service.EnsureLanguageMigrated(cmd.Context(), lang) {
		return fmt.Errorf("migration of %s failed", lang)
	}
	util.SuccessLog("%s migrated", lang)
	return nil
}
