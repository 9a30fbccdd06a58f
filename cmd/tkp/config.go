package main

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/franz/tilekeeper/internal/content"
	"github.com/franz/tilekeeper/internal/report"
	"github.com/franz/tilekeeper/internal/status"
	"github.com/franz/tilekeeper/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// GetConfigString retrieves a string config value with proper precedence:
// 1. Command-line flag (if set)
// 2. Environment variable (TKP_*)
// 3. Config file
// 4. Default value
func GetConfigString(key string, defaultValue string) string {
	val := viper.GetString(key)
	if val == "" {
		return defaultValue
	}
	return val
}

// GetConfigStringSlice retrieves a list config value. Comma separated
// strings (as set through the environment) are split.
func GetConfigStringSlice(key string) []string {
	return util.SplitList(viper.GetStringSlice(key))
}

// catalogFromConfig builds the language and game mode catalog
func catalogFromConfig() content.Catalog {
	return content.Catalog{
		Languages:       GetConfigStringSlice("languages"),
		GameModes:       GetConfigStringSlice("game_modes"),
		DefaultLanguage: viper.GetString("default_language"),
	}.WithDefaults()
}

// gameModeFlag returns the --game-mode flag of cmd. An empty value is
// allowed; anything else must be a configured game mode.
func gameModeFlag(cmd *cobra.Command) (string, error) {
	mode, _ := cmd.Flags().GetString("game-mode")
	if mode != "" && !catalogFromConfig().SupportsGameMode(mode) {
		return "", fmt.Errorf("unknown game mode %q: %w", mode, util.ErrInvalidConfig)
	}
	return mode, nil
}

// contentVersion is the version migration status is recorded under
func contentVersion() string {
	return GetConfigString("content_version", status.DefaultVersion)
}

// contentFS returns the configured content directory, or the bundled content
func contentFS() (fs.FS, error) {
	dir := viper.GetString("content")
	if dir == "" {
		return content.Bundled(), nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("content directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content directory %s is not a directory", dir)
	}
	return os.DirFS(dir), nil
}

// applyLogFlags sets the console log level from --verbose and --quiet
func applyLogFlags() {
	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))
}

// eventLogLevel maps the console flags to the event log threshold
func eventLogLevel() report.EventLevel {
	if lvl := viper.GetString("event_level"); lvl != "" {
		return report.ParseLevel(lvl)
	}
	switch {
	case viper.GetBool("quiet"):
		return report.LevelWarning
	case viper.GetBool("verbose"):
		return report.LevelDebug
	}
	return report.LevelInfo
}
