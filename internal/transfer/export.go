package transfer

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strconv"

	"github.com/franz/tilekeeper/internal/store"
	"github.com/franz/tilekeeper/internal/util"
)

// Scope selects which groups an export contains
type Scope string

const (
	ScopeAll    Scope = "all"
	ScopeGroup  Scope = "group"
	ScopeGroups Scope = "groups"
)

// ExportOptions select the exported content
type ExportOptions struct {
	Locale   string
	GameMode string   // default DefaultGameMode
	Scope    Scope    // default ScopeAll
	Groups   []string // group names for ScopeGroup (first only) and ScopeGroups
}

// ExportCleanData builds a clean v2.0 document of the selected user groups
// of one game mode. Bundled groups are never exported; user tiles added to them go to
// CustomTiles.
func (t *Transfer) ExportCleanData(opts ExportOptions) (*CleanExport, error) {
	doc, err := t.collect(opts)
	if err != nil {
		return nil, err
	}
	t.events.LogExport(opts.Locale, "clean", len(doc.Groups))
	return doc, nil
}

func (t *Transfer) collect(opts ExportOptions) (*CleanExport, error) {
	names, err := scopeNames(opts)
	if err != nil {
		return nil, err
	}

	mode := opts.GameMode
	if mode == "" {
		mode = DefaultGameMode
	}

	groups, err := t.store.FindGroups(store.GroupFilter{Locale: opts.Locale, GameMode: mode})
	if err != nil {
		return nil, err
	}

	doc := &CleanExport{
		Version:     FormatVersion,
		Locale:      opts.Locale,
		GameMode:    mode,
		Groups:      make(map[string]CleanGroup),
		CustomTiles: make(map[string]map[string][]string),
	}

	for _, g := range groups {
		if names != nil && !slices.Contains(names, g.Name) {
			continue
		}

		tiles, err := t.store.FindTiles(store.TileFilter{GroupID: g.ID})
		if err != nil {
			return nil, err
		}

		if g.IsDefault {
			custom := customTiles(tiles)
			if len(custom) > 0 {
				doc.CustomTiles[g.Name] = custom
			}
			continue
		}
		if _, dup := doc.Groups[g.Name]; dup {
			util.WarnLog("Group name %q is used by several groups, exporting the first", g.Name)
			continue
		}
		doc.Groups[g.Name] = cleanGroup(g, tiles)
	}

	if names != nil {
		for _, n := range names {
			_, user := doc.Groups[n]
			_, custom := doc.CustomTiles[n]
			if !user && !custom {
				return nil, fmt.Errorf("group %q: %w", n, util.ErrNotFound)
			}
		}
	}

	return doc, nil
}

// ExportCleanJSON is ExportCleanData encoded as indented JSON
func (t *Transfer) ExportCleanJSON(opts ExportOptions) ([]byte, error) {
	doc, err := t.ExportCleanData(opts)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}
	return append(data, '\n'), nil
}

func scopeNames(opts ExportOptions) ([]string, error) {
	switch opts.Scope {
	case "", ScopeAll:
		return nil, nil
	case ScopeGroup:
		if len(opts.Groups) == 0 {
			return nil, fmt.Errorf("%w: group scope needs a group name", util.ErrValidation)
		}
		return opts.Groups[:1], nil
	case ScopeGroups:
		if len(opts.Groups) == 0 {
			return nil, fmt.Errorf("%w: groups scope needs at least one group name", util.ErrValidation)
		}
		return opts.Groups, nil
	}
	return nil, fmt.Errorf("unknown export scope %q: %w", opts.Scope, util.ErrInvalidConfig)
}

func cleanGroup(g *store.Group, tiles []*store.Tile) CleanGroup {
	intensities := slices.Clone(g.Intensities)
	sort.SliceStable(intensities, func(i, j int) bool { return intensities[i].Value < intensities[j].Value })

	out := CleanGroup{
		Label:       g.Label,
		Type:        g.Type,
		Intensities: make([]string, 0, len(intensities)),
		Actions:     make(map[string][]string, len(intensities)),
	}
	for _, in := range intensities {
		out.Intensities = append(out.Intensities, in.Label)
		out.Actions[in.Label] = []string{}
	}
	for _, tile := range tiles {
		in := g.IntensityByValue(tile.Intensity)
		if in == nil {
			continue
		}
		out.Actions[in.Label] = append(out.Actions[in.Label], tile.Action)
	}
	return out
}

func customTiles(tiles []*store.Tile) map[string][]string {
	out := make(map[string][]string)
	for _, tile := range tiles {
		if !tile.IsCustom {
			continue
		}
		key := strconv.Itoa(tile.Intensity)
		out[key] = append(out[key], tile.Action)
	}
	return out
}
