package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/franz/tilekeeper/internal/util"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "test-store.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleGroup(id, name string) *Group {
	return &Group{
		ID:    id,
		Name:  name,
		Label: "Sample " + name,
		Type:  "action",
		Intensities: []Intensity{
			{ID: name + "-1", Label: "mild", Value: 1, IsDefault: true},
			{ID: name + "-2", Label: "spicy", Value: 2, IsDefault: true},
		},
		IsDefault: true,
		Locale:    "en",
		GameMode:  "online",
	}
}

func TestStoreOpenAndMigrate(t *testing.T) {
	store := openTestStore(t)

	version, err := store.getSchemaVersion()
	if err != nil {
		t.Fatalf("failed to get schema version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("expected schema version %d, got %d", currentSchemaVersion, version)
	}

	tables := []string{"groups", "tiles", "schema_version"}
	for _, table := range tables {
		var count int
		err := store.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if err != nil {
			t.Fatalf("failed to query table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("expected table %s to exist", table)
		}
	}

	v2Indexes := []string{"idx_tiles_dedupe", "idx_tiles_group_name"}
	for _, index := range v2Indexes {
		var count int
		err := store.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", index).Scan(&count)
		if err != nil {
			t.Fatalf("failed to query index %s: %v", index, err)
		}
		if count != 1 {
			t.Errorf("expected index %s to exist (schema v2)", index)
		}
	}
}

func TestReopenKeepsSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	var rows int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&rows); err != nil {
		t.Fatalf("count versions: %v", err)
	}
	if rows != currentSchemaVersion {
		t.Errorf("expected %d schema_version rows, got %d", currentSchemaVersion, rows)
	}
}

func TestGroupInsertAndRetrieve(t *testing.T) {
	store := openTestStore(t)

	group := sampleGroup("default_en_online_alcohol_0000abcd", "alcohol")
	if err := store.InsertGroup(group); err != nil {
		t.Fatalf("failed to insert group: %v", err)
	}

	retrieved, err := store.GetGroup(group.ID)
	if err != nil {
		t.Fatalf("failed to retrieve group: %v", err)
	}
	if retrieved == nil {
		t.Fatal("expected to retrieve group, got nil")
	}
	if retrieved.Name != "alcohol" || retrieved.Locale != "en" || retrieved.GameMode != "online" {
		t.Errorf("unexpected group: %+v", retrieved)
	}
	if !retrieved.IsDefault {
		t.Error("expected IsDefault to be true")
	}
	if len(retrieved.Intensities) != 2 || retrieved.Intensities[1].Label != "spicy" {
		t.Errorf("unexpected intensities: %+v", retrieved.Intensities)
	}
	if retrieved.IntensityByValue(2) == nil || retrieved.IntensityByLabel("mild") == nil {
		t.Error("expected intensity lookups to succeed")
	}

	missing, err := store.GetGroup("nope")
	if err != nil {
		t.Fatalf("GetGroup(missing) error: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing group")
	}
}

func TestInsertGroupConflictIsTyped(t *testing.T) {
	store := openTestStore(t)

	if err := store.InsertGroup(sampleGroup("dup-id", "alcohol")); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	err := store.InsertGroup(sampleGroup("dup-id", "alcohol"))
	if err == nil {
		t.Fatal("expected conflict on duplicate id")
	}
	if !IsConflict(err) {
		t.Errorf("expected conflict error, got %v", err)
	}
}

func TestInsertGroupRequiresID(t *testing.T) {
	store := openTestStore(t)

	err := store.InsertGroup(sampleGroup("", "alcohol"))
	if !errors.Is(err, util.ErrValidation) {
		t.Errorf("expected validation error for empty id, got %v", err)
	}
}

func TestFindGroupsFilters(t *testing.T) {
	store := openTestStore(t)

	a := sampleGroup("a", "alcohol")
	b := sampleGroup("b", "alcohol")
	b.Locale = "fr"
	c := sampleGroup("c", "dares")
	c.IsDefault = false

	for _, g := range []*Group{a, b, c} {
		if err := store.InsertGroup(g); err != nil {
			t.Fatalf("insert %s: %v", g.ID, err)
		}
	}

	tests := []struct {
		name   string
		filter GroupFilter
		want   int
	}{
		{"all", GroupFilter{}, 3},
		{"by name", GroupFilter{Name: "alcohol"}, 2},
		{"by name and locale", GroupFilter{Name: "alcohol", Locale: "en"}, 1},
		{"custom only", GroupFilter{IsDefault: Bool(false)}, 1},
		{"default in en", GroupFilter{Locale: "en", IsDefault: Bool(true)}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups, err := store.FindGroups(tt.filter)
			if err != nil {
				t.Fatalf("FindGroups: %v", err)
			}
			if len(groups) != tt.want {
				t.Errorf("expected %d groups, got %d", tt.want, len(groups))
			}
		})
	}

	found, err := store.FindGroupByName("dares", "en", "online")
	if err != nil || found == nil || found.ID != "c" {
		t.Errorf("FindGroupByName: got %+v, %v", found, err)
	}
}

func TestUpdateGroup(t *testing.T) {
	clock := util.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	store, err := OpenWithOptions(filepath.Join(t.TempDir(), "update.db"), &OpenOptions{Clock: clock})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	g := sampleGroup("g1", "alcohol")
	if err := store.InsertGroup(g); err != nil {
		t.Fatalf("insert: %v", err)
	}

	clock.Advance(time.Hour)
	g.Label = "Drinks"
	if err := store.UpdateGroup(g); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, _ := store.GetGroup("g1")
	if got.Label != "Drinks" {
		t.Errorf("expected label Drinks, got %q", got.Label)
	}
	if !got.UpdatedAt.After(got.CreatedAt) {
		t.Error("expected UpdatedAt to move forward")
	}

	missing := sampleGroup("missing", "x")
	if err := store.UpdateGroup(missing); !IsNotFound(err) {
		t.Errorf("expected not found updating missing group, got %v", err)
	}
}

func TestTileInsertAndQueries(t *testing.T) {
	store := openTestStore(t)

	tiles := []*Tile{
		{GroupName: "alcohol", GroupID: "g1", Intensity: 1, Action: "sip", Tags: []string{"default"}, IsEnabled: true, Locale: "en", GameMode: "online"},
		{GroupName: "alcohol", GroupID: "g1", Intensity: 2, Action: "shot", IsEnabled: true, Locale: "en", GameMode: "online"},
		{GroupName: "alcohol", Intensity: 1, Action: "legacy", IsEnabled: true, IsCustom: true, Locale: "en", GameMode: "online"},
	}

	n, err := store.InsertTiles(tiles)
	if err != nil {
		t.Fatalf("InsertTiles: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 inserted, got %d", n)
	}
	for _, tile := range tiles {
		if tile.ID == 0 {
			t.Error("expected tile ID to be set after insert")
		}
	}

	missing, err := store.FindTiles(TileFilter{MissingGroupID: true})
	if err != nil {
		t.Fatalf("FindTiles missing: %v", err)
	}
	if len(missing) != 1 || missing[0].Action != "legacy" || !missing[0].IsCustom {
		t.Errorf("unexpected missing tiles: %+v", missing)
	}

	keys, err := store.TileKeys("g1")
	if err != nil {
		t.Fatalf("TileKeys: %v", err)
	}
	if !keys[TileKey{GroupID: "g1", Intensity: 2, Action: "shot"}] {
		t.Error("expected shot key to be present")
	}

	if err := store.UpdateTileGroupID(missing[0].ID, "g1"); err != nil {
		t.Fatalf("UpdateTileGroupID: %v", err)
	}
	count, err := store.CountTiles(TileFilter{GroupID: "g1"})
	if err != nil || count != 3 {
		t.Errorf("expected 3 tiles in g1, got %d (%v)", count, err)
	}

	byGroup, err := store.CountTilesByGroup()
	if err != nil || byGroup["g1"] != 3 {
		t.Errorf("CountTilesByGroup: %v %v", byGroup, err)
	}

	page, err := store.FindTiles(TileFilter{AfterID: tiles[0].ID, Limit: 1})
	if err != nil || len(page) != 1 || page[0].ID != tiles[1].ID {
		t.Errorf("unexpected page: %+v %v", page, err)
	}

	first, err := store.FindTiles(TileFilter{Limit: 1})
	if err != nil || len(first) != 1 || first[0].ID != tiles[0].ID || len(first[0].Tags) != 1 || first[0].Tags[0] != "default" {
		t.Errorf("first tile: %+v %v", first, err)
	}
}

func TestRekeyGroupInTransaction(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.InsertGroup(sampleGroup("old", "alcohol")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	store.InsertTiles([]*Tile{
		{GroupName: "alcohol", GroupID: "old", Intensity: 1, Action: "a"},
		{GroupName: "alcohol", GroupID: "old", Intensity: 2, Action: "b"},
	})

	var moved int64
	err := store.Transaction(ctx, func(tx *Tx) error {
		var err error
		moved, err = tx.RekeyGroup("old", "new")
		return err
	})
	if err != nil {
		t.Fatalf("rekey: %v", err)
	}
	if moved != 2 {
		t.Errorf("expected 2 tiles moved, got %d", moved)
	}

	if g, _ := store.GetGroup("old"); g != nil {
		t.Error("old id should be gone")
	}
	if g, _ := store.GetGroup("new"); g == nil {
		t.Error("new id should exist")
	}
}

func TestTransactionRollsBackOnError(t *testing.T) {
	store := openTestStore(t)

	sentinel := errors.New("abort")
	err := store.Transaction(context.Background(), func(tx *Tx) error {
		if err := tx.InsertGroup(sampleGroup("rolled-back", "x")); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}

	if g, _ := store.GetGroup("rolled-back"); g != nil {
		t.Error("expected insert to be rolled back")
	}
}

func TestClear(t *testing.T) {
	store := openTestStore(t)

	store.InsertGroup(sampleGroup("g", "alcohol"))
	store.InsertTile(&Tile{GroupID: "g", Intensity: 1, Action: "x"})

	if err := store.Clear(context.Background()); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	groups, _ := store.CountGroups("", "")
	tiles, _ := store.CountTiles(TileFilter{})
	if groups != 0 || tiles != 0 {
		t.Errorf("expected empty store, got %d groups %d tiles", groups, tiles)
	}
}

func TestCheckIntegrityAndVersion(t *testing.T) {
	store := openTestStore(t)

	if err := store.CheckIntegrity(); err != nil {
		t.Errorf("integrity check failed: %v", err)
	}
	if SQLiteVersion() == "" {
		t.Error("expected SQLite version")
	}
}
