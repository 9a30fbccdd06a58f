package migration

import (
	"context"

	"github.com/franz/tilekeeper/internal/store"
	"github.com/franz/tilekeeper/internal/util"
)

// ModeIntegrity is the store content of one (locale, gameMode)
type ModeIntegrity struct {
	GameMode string `json:"gameMode"`
	Groups   int    `json:"groups"`
	Tiles    int    `json:"tiles"`
}

// IntegrityReport compares the recorded status of a language with the
// content actually in the store
type IntegrityReport struct {
	Locale         string          `json:"locale"`
	MarkedComplete bool            `json:"markedComplete"`
	Modes          []ModeIntegrity `json:"modes"`
	EmptyModes     []string        `json:"emptyModes,omitempty"`
	Corrupted      bool            `json:"corrupted"`
}

// VerifyMigrationIntegrity reports whether locale is marked migrated while
// one of its game modes (or gameMode only, when given) has no groups in the
// store
func (s *Service) VerifyMigrationIntegrity(locale, gameMode string) (*IntegrityReport, error) {
	modes := []string{gameMode}
	if gameMode == "" {
		modes = s.content.AvailableGameModes(locale)
	}

	rep := &IntegrityReport{
		Locale:         locale,
		MarkedComplete: s.status.IsCurrentLanguageMigrationCompleted(locale),
	}
	for _, mode := range modes {
		groups, err := s.store.CountGroups(locale, mode)
		if err != nil {
			return nil, err
		}
		tiles, err := s.store.CountTiles(store.TileFilter{Locale: locale, GameMode: mode})
		if err != nil {
			return nil, err
		}
		rep.Modes = append(rep.Modes, ModeIntegrity{GameMode: mode, Groups: groups, Tiles: tiles})
		if groups == 0 {
			rep.EmptyModes = append(rep.EmptyModes, mode)
		}
	}

	rep.Corrupted = rep.MarkedComplete && len(rep.EmptyModes) > 0
	return rep, nil
}

// FixMigrationStatusCorruption clears the completion mark of every
// language whose content is missing from the store, so the next run
// migrates it again. Returns the languages reset.
func (s *Service) FixMigrationStatusCorruption(ctx context.Context) []string {
	var fixed []string
	for _, locale := range s.content.AvailableLocales(ctx) {
		rep, err := s.VerifyMigrationIntegrity(locale, "")
		if err != nil {
			util.LogError("verify migration integrity of "+locale, err)
			continue
		}
		if !rep.Corrupted {
			continue
		}
		util.WarnLog("%s is marked migrated but %v has no content, resetting", locale, rep.EmptyModes)
		if s.status.UnmarkLanguageMigrated(locale) {
			fixed = append(fixed, locale)
		}
	}
	return fixed
}
