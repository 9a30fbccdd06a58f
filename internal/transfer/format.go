// Package transfer exports user-created groups and imports them back, in the
// clean v2.0 JSON format or the legacy text format, with a merge strategy
// for groups that already exist.
package transfer

import (
	"fmt"
	"strings"

	"github.com/franz/tilekeeper/internal/util"
)

// FormatVersion is the version written to and expected in clean exports
const FormatVersion = "2.0.0"

// RenameSuffix is appended to group names imported with StrategyRename
const RenameSuffix = "_imported"

// Fixed user-facing messages
const (
	MsgInvalidJSON    = "Invalid JSON format"
	MsgMissingFields  = "Invalid export format: missing version, groups or customTiles"
	MsgOutdatedFormat = "This file uses an outdated export format that is no longer supported. Please export your data again and import the new file."
	MsgLegacyImported = "Imported using legacy format. Consider exporting again to migrate to the v2.0 format."
)

// CleanGroup is one exported group. Intensities lists the intensity labels
// in order; Actions maps each label to its action strings.
type CleanGroup struct {
	Label       string              `json:"label"`
	Type        string              `json:"type"`
	Intensities []string            `json:"intensities"`
	Actions     map[string][]string `json:"actions"`
}

// CleanExport is the clean v2.0 document. CustomTiles holds user tiles
// added to bundled groups, keyed by group name then intensity value.
// GameMode names the game mode the document was exported from; files
// written before it was recorded import into DefaultGameMode.
type CleanExport struct {
	Version     string                         `json:"version"`
	Locale      string                         `json:"locale"`
	GameMode    string                         `json:"gameMode,omitempty"`
	Groups      map[string]CleanGroup          `json:"groups"`
	CustomTiles map[string]map[string][]string `json:"customTiles"`
}

// Strategy decides what happens to an imported group whose name exists
type Strategy string

const (
	StrategySkip      Strategy = "skip"
	StrategyOverwrite Strategy = "overwrite"
	StrategyRename    Strategy = "rename"
)

// ParseStrategy validates a strategy name. Empty means skip.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return StrategySkip, nil
	case StrategySkip, StrategyOverwrite, StrategyRename:
		return st, nil
	}
	return "", fmt.Errorf("unknown merge strategy %q: %w", s, util.ErrInvalidConfig)
}

// ImportResult is the structured outcome shown to the user. Success means
// no errors; a partial import has non-zero counts alongside errors.
type ImportResult struct {
	Success        bool     `json:"success"`
	ImportedGroups int      `json:"importedGroups"`
	ImportedTiles  int      `json:"importedTiles"`
	Errors         []string `json:"errors"`
	Warnings       []string `json:"warnings"`
}

func (r *ImportResult) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ImportResult) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *ImportResult) finish() *ImportResult {
	if r.Errors == nil {
		r.Errors = []string{}
	}
	if r.Warnings == nil {
		r.Warnings = []string{}
	}
	r.Success = len(r.Errors) == 0
	return r
}

func failed(msg string) *ImportResult {
	r := &ImportResult{}
	r.errorf("%s", msg)
	return r.finish()
}
