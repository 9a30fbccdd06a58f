package repair

import (
	"context"
	"fmt"

	"github.com/franz/tilekeeper/internal/groupid"
	"github.com/franz/tilekeeper/internal/store"
	"github.com/franz/tilekeeper/internal/util"
)

// DefaultBatchSize bounds the tiles updated per transaction
const DefaultBatchSize = 100

// Options control a repair run
type Options struct {
	DryRun    bool // compute and report, write nothing
	BatchSize int  // tiles per transaction (default DefaultBatchSize)
	SkipAudit bool // RunFull only: skip the initial audit
}

// DefaultIDResult reports the default-group re-keying pass
type DefaultIDResult struct {
	Migrated int      `json:"migrated"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// MigrateDefaultGroupIDs re-keys every default group whose id is not its
// deterministic id. Each re-key updates the group id and its tiles in one
// transaction. Groups whose target id is already taken are skipped. A
// failure on one group is recorded and the pass continues.
func (r *Repairer) MigrateDefaultGroupIDs(ctx context.Context) (*DefaultIDResult, error) {
	return r.migrateDefaultGroupIDs(ctx, false)
}

func (r *Repairer) migrateDefaultGroupIDs(ctx context.Context, dryRun bool) (*DefaultIDResult, error) {
	groups, err := r.store.FindGroups(store.GroupFilter{IsDefault: store.Bool(true)})
	if err != nil {
		return nil, err
	}

	res := &DefaultIDResult{}
	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		expected := groupid.Deterministic(g.Name, g.Locale, g.GameMode)
		if g.ID == expected {
			continue
		}

		var moved int64
		skipped := false
		err := r.store.Transaction(ctx, func(tx *store.Tx) error {
			skipped = false
			taken, err := tx.GetGroup(expected)
			if err != nil {
				return err
			}
			if taken != nil {
				skipped = true
				return nil
			}
			if dryRun {
				n, err := tx.CountTiles(store.TileFilter{GroupID: g.ID})
				moved = int64(n)
				return err
			}
			moved, err = tx.RekeyGroup(g.ID, expected)
			return err
		})

		switch {
		case err != nil:
			msg := fmt.Sprintf("group %s (%s): %v", g.ID, g.Name, err)
			util.WarnLog("Failed to re-key default group: %s", msg)
			res.Errors = append(res.Errors, msg)
		case skipped:
			util.DebugLog("Skipping re-key of %s: %s already exists", g.ID, expected)
			res.Skipped++
		default:
			res.Migrated++
			if !dryRun {
				r.events.LogRepair("rekey", expected, "from "+g.ID, int(moved))
			}
		}
	}

	return res, nil
}

// BackfillResult reports the tile group_id backfill pass
type BackfillResult struct {
	DryRun       bool     `json:"dryRun"`
	Processed    int      `json:"processed"`
	Migrated     int      `json:"migrated"`
	Orphaned     int      `json:"orphaned"`
	ErrorCount   int      `json:"errorCount"`
	Errors       []string `json:"errors,omitempty"`
	SkippedCount int      `json:"skippedCount"`
	BatchesRun   int      `json:"batches"`
}

// MigrateGroupIDs backfills group_id on every tile missing one, in batches
// of opts.BatchSize. Default tiles (not custom) resolve to their
// deterministic id; custom tiles resolve through ResolveGroupID and count as
// orphaned when nothing matches. After a real run the store is re-audited
// and tiles still missing a group_id are reported as SkippedCount.
func (r *Repairer) MigrateGroupIDs(ctx context.Context, opts Options) (*BackfillResult, error) {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	type resolveKey struct {
		name, locale, mode string
		isDefault          bool
	}
	cache := make(map[resolveKey]string)

	res := &BackfillResult{DryRun: opts.DryRun}
	var afterID int64
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		batch, err := r.store.FindTiles(store.TileFilter{MissingGroupID: true, AfterID: afterID, Limit: batchSize})
		if err != nil {
			return res, err
		}
		if len(batch) == 0 {
			break
		}
		afterID = batch[len(batch)-1].ID
		res.BatchesRun++

		updates := make(map[int64]string, len(batch))
		for _, tile := range batch {
			res.Processed++
			k := resolveKey{tile.GroupName, tile.Locale, tile.GameMode, !tile.IsCustom}
			id, ok := cache[k]
			if !ok {
				id, err = r.ResolveGroupID(k.name, k.locale, k.mode, k.isDefault)
				if err != nil {
					res.ErrorCount++
					res.Errors = append(res.Errors, fmt.Sprintf("tile %d: %v", tile.ID, err))
					continue
				}
				cache[k] = id
			}
			if id == "" {
				res.Orphaned++
				continue
			}
			updates[tile.ID] = id
		}

		if opts.DryRun {
			res.Migrated += len(updates)
			continue
		}

		err = r.store.Transaction(ctx, func(tx *store.Tx) error {
			for _, tile := range batch {
				id, ok := updates[tile.ID]
				if !ok {
					continue
				}
				if err := tx.UpdateTileGroupID(tile.ID, id); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			res.ErrorCount += len(updates)
			res.Errors = append(res.Errors, fmt.Sprintf("batch after tile %d: %v", batch[0].ID-1, err))
			continue
		}
		res.Migrated += len(updates)
	}

	if !opts.DryRun {
		audit, err := r.Audit()
		if err != nil {
			return res, err
		}
		res.SkippedCount = audit.TilesMissingGroupID
		r.events.LogRepair("backfill", "", fmt.Sprintf("%d orphaned", res.Orphaned), res.Migrated)
	}

	return res, nil
}
