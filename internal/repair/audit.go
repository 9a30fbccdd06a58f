// Package repair keeps the relational link between tiles and groups
// consistent: it audits group_id usage, re-keys default groups to their
// deterministic ids, backfills missing tile group_ids and validates the
// result.
package repair

import (
	"sort"

	"github.com/franz/tilekeeper/internal/report"
	"github.com/franz/tilekeeper/internal/store"
)

// Repairer runs group-id diagnostics and repairs against a store
type Repairer struct {
	store  *store.Store
	events *report.EventLogger
}

// New creates a Repairer. events may be nil.
func New(st *store.Store, events *report.EventLogger) *Repairer {
	return &Repairer{store: st, events: events}
}

// Mapping is a group name (within one locale and game mode) whose tiles
// point at more than one group id
type Mapping struct {
	GroupName string   `json:"groupName"`
	Locale    string   `json:"locale"`
	GameMode  string   `json:"gameMode"`
	GroupIDs  []string `json:"groupIds"`
}

// AuditResult summarizes group_id usage
type AuditResult struct {
	TotalGroups          int       `json:"totalGroups"`
	TotalTiles           int       `json:"totalTiles"`
	TilesWithGroupID     int       `json:"tilesWithGroupId"`
	TilesMissingGroupID  int       `json:"tilesMissingGroupId"`
	OrphanedTiles        int       `json:"orphanedTiles"`
	InconsistentMappings []Mapping `json:"inconsistentMappings,omitempty"`
}

// Audit scans all groups and tiles. It never writes.
func (r *Repairer) Audit() (*AuditResult, error) {
	groups, err := r.store.ListGroups()
	if err != nil {
		return nil, err
	}
	tiles, err := r.store.ListTiles()
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(groups))
	for _, g := range groups {
		known[g.ID] = true
	}

	type mappingKey struct{ name, locale, mode string }
	ids := make(map[mappingKey]map[string]bool)

	res := &AuditResult{TotalGroups: len(groups), TotalTiles: len(tiles)}
	for _, tile := range tiles {
		if tile.GroupID == "" {
			res.TilesMissingGroupID++
			continue
		}
		res.TilesWithGroupID++
		if !known[tile.GroupID] {
			res.OrphanedTiles++
		}

		k := mappingKey{tile.GroupName, tile.Locale, tile.GameMode}
		if ids[k] == nil {
			ids[k] = make(map[string]bool)
		}
		ids[k][tile.GroupID] = true
	}

	for k, set := range ids {
		if len(set) < 2 {
			continue
		}
		m := Mapping{GroupName: k.name, Locale: k.locale, GameMode: k.mode}
		for id := range set {
			m.GroupIDs = append(m.GroupIDs, id)
		}
		sort.Strings(m.GroupIDs)
		res.InconsistentMappings = append(res.InconsistentMappings, m)
	}
	sort.Slice(res.InconsistentMappings, func(i, j int) bool {
		a, b := res.InconsistentMappings[i], res.InconsistentMappings[j]
		if a.GroupName != b.GroupName {
			return a.GroupName < b.GroupName
		}
		if a.Locale != b.Locale {
			return a.Locale < b.Locale
		}
		return a.GameMode < b.GameMode
	})

	return res, nil
}
