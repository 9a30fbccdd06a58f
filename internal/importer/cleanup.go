package importer

import (
	"context"
	"fmt"

	"github.com/franz/tilekeeper/internal/groupid"
	"github.com/franz/tilekeeper/internal/store"
	"github.com/franz/tilekeeper/internal/util"
)

// CleanupDuplicateGroups removes duplicate group rows in every
// (locale, gameMode) of the catalog. Returns the number of rows removed.
func (im *Importer) CleanupDuplicateGroups(ctx context.Context) (int, error) {
	catalog := im.content.Catalog()

	removed := 0
	for _, locale := range catalog.Languages {
		for _, mode := range catalog.GameModes {
			n, err := im.CleanupDuplicateGroupsFor(ctx, locale, mode)
			if err != nil {
				return removed, err
			}
			removed += n
		}
	}
	if removed > 0 {
		util.InfoLog("Removed %d duplicate groups", removed)
	}
	return removed, nil
}

// CleanupDuplicateGroupsFor removes duplicate group rows of one
// (locale, gameMode). Within a set of groups sharing a name and origin, the
// row carrying the deterministic id survives, otherwise the oldest. Tiles of
// removed rows move to the survivor and then tiles duplicated by the move
// are dropped.
func (im *Importer) CleanupDuplicateGroupsFor(ctx context.Context, locale, gameMode string) (int, error) {
	type dupKey struct {
		name      string
		isDefault bool
	}

	removed := 0
	err := im.store.Transaction(ctx, func(tx *store.Tx) error {
		removed = 0

		groups, err := tx.FindGroups(store.GroupFilter{Locale: locale, GameMode: gameMode})
		if err != nil {
			return err
		}

		sets := make(map[dupKey][]*store.Group)
		var order []dupKey
		for _, g := range groups {
			k := dupKey{g.Name, g.IsDefault}
			if _, seen := sets[k]; !seen {
				order = append(order, k)
			}
			sets[k] = append(sets[k], g)
		}

		for _, k := range order {
			set := sets[k]
			if len(set) < 2 {
				continue
			}

			survivor := pickSurvivor(set, locale, gameMode)
			var removedIDs []string
			for _, g := range set {
				if g.ID == survivor.ID {
					continue
				}
				if _, err := tx.RepointTiles(g.ID, survivor.ID); err != nil {
					return err
				}
				if err := tx.DeleteGroup(g.ID); err != nil {
					return err
				}
				removedIDs = append(removedIDs, g.ID)
			}

			if _, err := dedupeTiles(tx, survivor.ID); err != nil {
				return err
			}

			removed += len(removedIDs)
			im.events.LogDuplicate(locale, gameMode, k.name, survivor.ID, removedIDs)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to clean duplicates in %s/%s: %w", locale, gameMode, err)
	}
	return removed, nil
}

func pickSurvivor(set []*store.Group, locale, gameMode string) *store.Group {
	for _, g := range set {
		if g.IsDefault && g.ID == groupid.Deterministic(g.Name, locale, gameMode) {
			return g
		}
	}
	return set[0] // oldest
}

// dedupeTiles deletes all but the first tile of each (intensity, action) in a group
func dedupeTiles(tx *store.Tx, groupID string) (int64, error) {
	tiles, err := tx.FindTiles(store.TileFilter{GroupID: groupID})
	if err != nil {
		return 0, err
	}

	seen := make(map[store.TileKey]bool, len(tiles))
	var extra []int64
	for _, tile := range tiles {
		if seen[tile.Key()] {
			extra = append(extra, tile.ID)
			continue
		}
		seen[tile.Key()] = true
	}
	return tx.DeleteTiles(extra)
}
