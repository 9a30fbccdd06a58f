// Package importer turns bundled content into groups and tiles in the local
// store. Imports are idempotent: groups already present by (name, locale,
// gameMode) are skipped and tiles already present by (group, intensity,
// action) are filtered out.
package importer

import (
	"context"
	"fmt"

	"github.com/franz/tilekeeper/internal/content"
	"github.com/franz/tilekeeper/internal/groupid"
	"github.com/franz/tilekeeper/internal/report"
	"github.com/franz/tilekeeper/internal/store"
	"github.com/franz/tilekeeper/internal/util"
)

// DefaultType is the group type used when a bundle entry has none
const DefaultType = "action"

// DefaultTag is attached to every tile imported from bundled content
const DefaultTag = "default"

// Importer writes bundled content into the relational store
type Importer struct {
	store   *store.Store
	content *content.Discovery
	events  *report.EventLogger
}

// New creates an Importer. events may be nil.
func New(st *store.Store, discovery *content.Discovery, events *report.EventLogger) *Importer {
	return &Importer{store: st, content: discovery, events: events}
}

// ActionFile is the group and tile drafts derived from one bundled group
type ActionFile struct {
	Group *store.Group
	Tiles []*store.Tile
}

// Result counts what an import pass actually wrote
type Result struct {
	Groups  int
	Tiles   int
	Skipped int
}

// Add accumulates other into r
func (r *Result) Add(other Result) {
	r.Groups += other.Groups
	r.Tiles += other.Tiles
	r.Skipped += other.Skipped
}

// BuildActionFile loads groupName from the (locale, gameMode) bundle and
// derives its group and tile drafts. The group id is deterministic.
func (im *Importer) BuildActionFile(groupName, locale, gameMode string) (*ActionFile, error) {
	entry, err := im.content.LoadGroup(locale, gameMode, groupName)
	if err != nil {
		return nil, err
	}

	label := entry.Label
	if label == "" {
		label = groupName
	}
	groupType := entry.Type
	if groupType == "" {
		groupType = DefaultType
	}

	group := &store.Group{
		ID:          groupid.Deterministic(groupName, locale, gameMode),
		Name:        groupName,
		Label:       label,
		Type:        groupType,
		Intensities: make([]store.Intensity, 0, len(entry.Levels)),
		IsDefault:   true,
		Locale:      locale,
		GameMode:    gameMode,
	}

	tiles := make([]*store.Tile, 0, entry.TileCount())
	for i, level := range entry.Levels {
		value := i + 1
		group.Intensities = append(group.Intensities, store.Intensity{
			ID:        fmt.Sprintf("%s-%d", groupName, value),
			Label:     level.Label,
			Value:     value,
			IsDefault: true,
		})
		for _, action := range level.Actions {
			tiles = append(tiles, &store.Tile{
				GroupName: groupName,
				GroupID:   group.ID,
				Intensity: value,
				Action:    action,
				Tags:      []string{DefaultTag},
				IsEnabled: true,
				IsCustom:  false,
				Locale:    locale,
				GameMode:  gameMode,
			})
		}
	}

	return &ActionFile{Group: group, Tiles: tiles}, nil
}

// ImportActionFile is BuildActionFile with failures logged and reported as nil
func (im *Importer) ImportActionFile(groupName, locale, gameMode string) *ActionFile {
	what := fmt.Sprintf("import action file %s (%s/%s)", groupName, locale, gameMode)
	return util.SafeValue[*ActionFile](what, nil, func() (*ActionFile, error) {
		return im.BuildActionFile(groupName, locale, gameMode)
	})
}

// ImportGroupsForLocaleAndGameMode imports every bundled group of
// (locale, gameMode) that is not already in the store. Each group is
// written in its own transaction, so a failure leaves earlier groups intact
// and the next run resumes from the first missing group.
func (im *Importer) ImportGroupsForLocaleAndGameMode(ctx context.Context, locale, gameMode string) (Result, error) {
	var total Result

	names, err := im.content.ActionGroupNames(locale, gameMode)
	if err != nil {
		return total, fmt.Errorf("failed to list groups for %s/%s: %w", locale, gameMode, err)
	}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		existing, err := im.store.FindGroupByName(name, locale, gameMode)
		if err != nil {
			return total, err
		}
		if existing != nil {
			total.Skipped++
			im.events.LogSkip(locale, gameMode, name, "already imported")
			continue
		}

		file := im.ImportActionFile(name, locale, gameMode)
		if file == nil {
			total.Skipped++
			im.events.LogSkip(locale, gameMode, name, "content not loadable")
			continue
		}

		res, err := im.writeActionFile(ctx, file)
		if err != nil {
			im.events.LogError(report.EventImport, fmt.Sprintf("%s/%s/%s", locale, gameMode, name), err)
			return total, fmt.Errorf("failed to import group %s: %w", name, err)
		}
		total.Add(res)

		if res.Groups > 0 || res.Tiles > 0 {
			util.DebugLog("Imported %s (%s/%s): %d tiles", name, locale, gameMode, res.Tiles)
			im.events.LogImport(locale, gameMode, file.Group.ID, name, res.Tiles)
		}
	}

	return total, nil
}

// writeActionFile inserts the group and its missing tiles in one transaction.
// A conflicting group insert means another writer got there first; its tiles
// are still reconciled.
func (im *Importer) writeActionFile(ctx context.Context, file *ActionFile) (Result, error) {
	var res Result

	err := im.store.Transaction(ctx, func(tx *store.Tx) error {
		res = Result{}

		existing, err := tx.FindGroupByName(file.Group.Name, file.Group.Locale, file.Group.GameMode)
		if err != nil {
			return err
		}
		if existing != nil && existing.ID != file.Group.ID {
			res.Skipped++
			return nil
		}

		if existing == nil {
			group := *file.Group
			if err := tx.InsertGroup(&group); err != nil {
				if !store.IsConflict(err) {
					return err
				}
				util.DebugLog("Group %s already exists, keeping it", file.Group.ID)
			} else {
				res.Groups++
			}
		}

		have, err := tx.TileKeys(file.Group.ID)
		if err != nil {
			return err
		}

		var missing []*store.Tile
		for _, tile := range file.Tiles {
			key := tile.Key()
			if have[key] {
				continue
			}
			have[key] = true
			draft := *tile
			missing = append(missing, &draft)
		}

		n, err := tx.InsertTiles(missing)
		if err != nil {
			return err
		}
		res.Tiles = n
		return nil
	})

	return res, err
}
