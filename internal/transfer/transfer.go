package transfer

import (
	"context"
	"sort"
	"strings"

	"github.com/franz/tilekeeper/internal/report"
	"github.com/franz/tilekeeper/internal/store"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// DefaultGameMode is used when an import names no target game mode
const DefaultGameMode = "local"

// Transfer imports and exports user content
type Transfer struct {
	store     *store.Store
	validator Validator
	events    *report.EventLogger
	newID     func() string
}

// New creates a Transfer. A nil validator uses RuleValidator; events may be nil.
func New(st *store.Store, validator Validator, events *report.EventLogger) *Transfer {
	if validator == nil {
		validator = RuleValidator{}
	}
	return &Transfer{
		store:     st,
		validator: validator,
		events:    events,
		newID:     uuid.NewString,
	}
}

// ExportableGroup is one row of the export selection list
type ExportableGroup struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Label     string `json:"label"`
	GameMode  string `json:"gameMode"`
	TileCount int    `json:"tileCount"`
}

// AvailableGroupsForExport lists user groups of locale (and gameMode, when
// given) with their live tile counts, sorted by name
func (t *Transfer) AvailableGroupsForExport(locale, gameMode string) ([]ExportableGroup, error) {
	groups, err := t.store.FindGroups(store.GroupFilter{Locale: locale, GameMode: gameMode, IsDefault: store.Bool(false)})
	if err != nil {
		return nil, err
	}
	counts, err := t.store.CountTilesByGroup()
	if err != nil {
		return nil, err
	}

	out := make([]ExportableGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, ExportableGroup{
			ID:        g.ID,
			Name:      g.Name,
			Label:     g.Label,
			GameMode:  g.GameMode,
			TileCount: counts[g.ID],
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].GameMode < out[j].GameMode
	})
	return out, nil
}

// AutoImportData detects the format of data and imports it. A JSON object
// with a "groups" key is clean v2.0; one with only "customGroups" is the
// retired enhanced format and is rejected; anything else is read as the
// legacy text format.
func (t *Transfer) AutoImportData(ctx context.Context, data []byte, opts ImportOptions) *ImportResult {
	trimmed := strings.TrimSpace(string(data))

	if strings.HasPrefix(trimmed, "{") && gjson.Valid(trimmed) {
		doc := gjson.Parse(trimmed)
		switch {
		case doc.Get("groups").Exists():
			return t.ImportCleanData(ctx, []byte(trimmed), opts)
		case doc.Get("customGroups").Exists():
			return failed(MsgOutdatedFormat)
		}
		return t.ImportCleanData(ctx, []byte(trimmed), opts)
	}

	res := t.ImportLegacy(ctx, trimmed, opts)
	res.Warnings = append(res.Warnings, MsgLegacyImported)
	return res
}
