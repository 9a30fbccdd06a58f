package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strconv"

	"github.com/franz/tilekeeper/internal/store"
	"github.com/tidwall/gjson"
)

// ImportOptions control an import
type ImportOptions struct {
	Strategy Strategy // default StrategySkip
	Locale   string   // target locale; defaults to the document's locale
	GameMode string   // target game mode; defaults to the document's, then DefaultGameMode
}

// CustomTag marks tiles created by an import
const CustomTag = "custom"

// ImportCleanData imports a clean v2.0 document. Groups are processed in
// name order, each in its own transaction; a group that fails validation or
// storage is reported in Errors and the rest continue.
func (t *Transfer) ImportCleanData(ctx context.Context, data []byte, opts ImportOptions) *ImportResult {
	if !gjson.ValidBytes(data) {
		return failed(MsgInvalidJSON)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() || !root.Get("version").Exists() || !root.Get("groups").Exists() || !root.Get("customTiles").Exists() {
		return failed(MsgMissingFields)
	}

	var doc CleanExport
	if err := json.Unmarshal(data, &doc); err != nil {
		return failed(fmt.Sprintf("%s: %v", MsgMissingFields, err))
	}

	res := &ImportResult{}
	if doc.Version != FormatVersion {
		res.warnf("Version mismatch: expected %s, got %s", FormatVersion, doc.Version)
	}

	locale := opts.Locale
	if locale == "" {
		locale = doc.Locale
	}
	if locale == "" {
		res.errorf("No target locale: the file names none and none was given")
		return res.finish()
	}
	mode := opts.GameMode
	if mode == "" {
		mode = doc.GameMode
	}
	if mode == "" {
		mode = DefaultGameMode
	}
	strategy := opts.Strategy
	if strategy == "" {
		strategy = StrategySkip
	}

	names := make([]string, 0, len(doc.Groups))
	for name := range doc.Groups {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if ctx.Err() != nil {
			res.errorf("Import cancelled: %v", ctx.Err())
			break
		}
		t.importGroup(ctx, name, doc.Groups[name], locale, mode, strategy, res)
	}

	t.importCustomTiles(ctx, doc.CustomTiles, locale, mode, res)
	return res.finish()
}

func (t *Transfer) importGroup(ctx context.Context, name string, cg CleanGroup, locale, mode string, strategy Strategy, res *ImportResult) {
	existing, err := t.store.FindGroupByName(name, locale, mode)
	if err != nil {
		res.errorf("Group %q: %v", name, err)
		return
	}

	target := name
	if existing != nil {
		if strategy == StrategyOverwrite && existing.IsDefault {
			res.warnf("Group %q is bundled content and cannot be overwritten", name)
			strategy = StrategyRename
		}
		switch strategy {
		case StrategyOverwrite:
			res.warnf("Group %q already exists, overwriting", name)
		case StrategyRename:
			target, err = t.freeName(name+RenameSuffix, locale, mode)
			if err != nil {
				res.errorf("Group %q: %v", name, err)
				return
			}
			res.warnf("Group %q already exists, imported as %q", name, target)
			existing = nil
		default:
			res.warnf("Group %q already exists, skipped", name)
			t.events.LogTransfer(name, string(StrategySkip), 0, nil)
			return
		}
	}

	group, actions := buildGroup(target, cg, locale, mode)
	if err := t.validator.ValidateGroup(group, actions); err != nil {
		res.errorf("Group %q: %v", name, err)
		t.events.LogTransfer(name, string(strategy), 0, err)
		return
	}

	var tiles int
	err = t.store.Transaction(ctx, func(tx *store.Tx) error {
		tiles = 0
		g := *group

		if existing != nil {
			g.ID = existing.ID
			g.IsDefault = existing.IsDefault
			g.CreatedAt = existing.CreatedAt
			if err := tx.UpdateGroup(&g); err != nil {
				return err
			}
			if err := deleteCustomTiles(tx, g.ID); err != nil {
				return err
			}
		} else {
			g.ID = t.newID()
			if err := tx.InsertGroup(&g); err != nil {
				return err
			}
		}

		n, err := insertActions(tx, &g, actions)
		tiles = n
		return err
	})
	if err != nil {
		res.errorf("Group %q: %v", name, err)
		t.events.LogTransfer(name, string(strategy), 0, err)
		return
	}

	res.ImportedGroups++
	res.ImportedTiles += tiles
	t.events.LogTransfer(target, string(strategy), tiles, nil)
}

func (t *Transfer) importCustomTiles(ctx context.Context, custom map[string]map[string][]string, locale, mode string, res *ImportResult) {
	names := make([]string, 0, len(custom))
	for name := range custom {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		groups, err := t.store.FindGroups(store.GroupFilter{Name: name, Locale: locale, GameMode: mode, IsDefault: store.Bool(true)})
		if err != nil {
			res.errorf("Custom tiles of %q: %v", name, err)
			continue
		}
		if len(groups) == 0 {
			res.warnf("Custom tiles of unknown group %q skipped", name)
			continue
		}
		group := groups[0]

		actions := make(map[int][]string)
		valid := true
		for key, list := range custom[name] {
			value, err := strconv.Atoi(key)
			if err != nil || group.IntensityByValue(value) == nil {
				res.errorf("Custom tiles of %q: unknown intensity %q", name, key)
				valid = false
				break
			}
			actions[value] = list
		}
		if !valid {
			continue
		}

		var n int
		err = t.store.Transaction(ctx, func(tx *store.Tx) error {
			var err error
			n, err = insertActions(tx, group, actions)
			return err
		})
		if err != nil {
			res.errorf("Custom tiles of %q: %v", name, err)
			continue
		}
		res.ImportedTiles += n
	}
}

// buildGroup converts an exported group into a group draft and its actions
// keyed by intensity value. Action labels missing from the intensity list
// are appended as extra intensities.
func buildGroup(name string, cg CleanGroup, locale, mode string) (*store.Group, map[int][]string) {
	label := cg.Label
	if label == "" {
		label = name
	}
	groupType := cg.Type
	if groupType == "" {
		groupType = "action"
	}

	labels := append([]string{}, cg.Intensities...)
	var extra []string
	for l := range cg.Actions {
		if !slices.Contains(labels, l) {
			extra = append(extra, l)
		}
	}
	sort.Strings(extra)
	labels = append(labels, extra...)

	g := &store.Group{
		Name:     name,
		Label:    label,
		Type:     groupType,
		Locale:   locale,
		GameMode: mode,
	}
	actions := make(map[int][]string)
	for i, l := range labels {
		value := i + 1
		g.Intensities = append(g.Intensities, store.Intensity{
			ID:    fmt.Sprintf("%s-%d", name, value),
			Label: l,
			Value: value,
		})
		if list := cg.Actions[l]; len(list) > 0 {
			actions[value] = list
		}
	}
	return g, actions
}

// insertActions inserts custom tiles for actions not already in the group
func insertActions(tx *store.Tx, g *store.Group, actions map[int][]string) (int, error) {
	have, err := tx.TileKeys(g.ID)
	if err != nil {
		return 0, err
	}

	values := make([]int, 0, len(actions))
	for v := range actions {
		values = append(values, v)
	}
	sort.Ints(values)

	var drafts []*store.Tile
	for _, v := range values {
		for _, action := range actions[v] {
			key := store.TileKey{GroupID: g.ID, Intensity: v, Action: action}
			if have[key] {
				continue
			}
			have[key] = true
			drafts = append(drafts, &store.Tile{
				GroupName: g.Name,
				GroupID:   g.ID,
				Intensity: v,
				Action:    action,
				Tags:      []string{CustomTag},
				IsEnabled: true,
				IsCustom:  true,
				Locale:    g.Locale,
				GameMode:  g.GameMode,
			})
		}
	}
	return tx.InsertTiles(drafts)
}

func deleteCustomTiles(tx *store.Tx, groupID string) error {
	tiles, err := tx.FindTiles(store.TileFilter{GroupID: groupID})
	if err != nil {
		return err
	}
	var ids []int64
	for _, tile := range tiles {
		if tile.IsCustom {
			ids = append(ids, tile.ID)
		}
	}
	_, err = tx.DeleteTiles(ids)
	return err
}

// freeName returns base, or base_N for the first N >= 2 not taken
func (t *Transfer) freeName(base, locale, mode string) (string, error) {
	candidate := base
	for i := 2; ; i++ {
		g, err := t.store.FindGroupByName(candidate, locale, mode)
		if err != nil {
			return "", err
		}
		if g == nil {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s_%d", base, i)
	}
}
