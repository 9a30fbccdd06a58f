package importer

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/franz/tilekeeper/internal/content"
	"github.com/franz/tilekeeper/internal/groupid"
	"github.com/franz/tilekeeper/internal/store"
	"github.com/franz/tilekeeper/internal/util"
)

func testContent() fstest.MapFS {
	return fstest.MapFS{
		"en/local.json": {Data: []byte(`{
			"alcohol": {
				"label": "Alcohol",
				"type": "drink",
				"actions": {
					"mild": ["Sip", "Toast"],
					"strong": ["Shot"]
				}
			},
			"dares": {"actions": {"easy": ["Sing"], "hard": ["Dance", "Sing"]}}
		}`)},
		"en/online.json": {Data: []byte(`{"alcohol": {"actions": {"mild": ["Sip online"]}}}`)},
	}
}

func setupImporter(t *testing.T) (*Importer, *store.Store, *util.ManualClock) {
	t.Helper()
	clock := util.NewManualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	st, err := store.OpenWithOptions(filepath.Join(t.TempDir(), "test.db"), &store.OpenOptions{Clock: clock})
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	catalog := content.Catalog{Languages: []string{"en", "fr"}, GameModes: []string{"local", "online"}}
	discovery := content.NewDiscovery(testContent(), catalog, nil)
	return New(st, discovery, nil), st, clock
}

func TestBuildActionFile(t *testing.T) {
	im, _, _ := setupImporter(t)

	file, err := im.BuildActionFile("alcohol", "en", "local")
	if err != nil {
		t.Fatalf("BuildActionFile: %v", err)
	}

	g := file.Group
	if g.ID != groupid.Deterministic("alcohol", "en", "local") {
		t.Errorf("expected deterministic id, got %s", g.ID)
	}
	if g.Label != "Alcohol" || g.Type != "drink" || !g.IsDefault {
		t.Errorf("unexpected group fields: %+v", g)
	}

	want := []store.Intensity{
		{ID: "alcohol-1", Label: "mild", Value: 1, IsDefault: true},
		{ID: "alcohol-2", Label: "strong", Value: 2, IsDefault: true},
	}
	if len(g.Intensities) != len(want) {
		t.Fatalf("expected %d intensities, got %d", len(want), len(g.Intensities))
	}
	for i := range want {
		if g.Intensities[i] != want[i] {
			t.Errorf("intensity %d: got %+v, want %+v", i, g.Intensities[i], want[i])
		}
	}

	if len(file.Tiles) != 3 {
		t.Fatalf("expected 3 tiles, got %d", len(file.Tiles))
	}
	for _, tile := range file.Tiles {
		if tile.GroupID != g.ID || tile.IsCustom || !tile.IsEnabled {
			t.Errorf("unexpected tile: %+v", tile)
		}
		if len(tile.Tags) != 1 || tile.Tags[0] != DefaultTag {
			t.Errorf("expected default tag, got %v", tile.Tags)
		}
	}
	if file.Tiles[2].Action != "Shot" || file.Tiles[2].Intensity != 2 {
		t.Errorf("unexpected last tile: %+v", file.Tiles[2])
	}
}

func TestBuildActionFileFallbacks(t *testing.T) {
	im, _, _ := setupImporter(t)

	file, err := im.BuildActionFile("dares", "en", "local")
	if err != nil {
		t.Fatalf("BuildActionFile: %v", err)
	}
	if file.Group.Label != "dares" {
		t.Errorf("expected label fallback to name, got %s", file.Group.Label)
	}
	if file.Group.Type != DefaultType {
		t.Errorf("expected type fallback %s, got %s", DefaultType, file.Group.Type)
	}
}

func TestImportActionFileMissingGroup(t *testing.T) {
	im, _, _ := setupImporter(t)

	if file := im.ImportActionFile("nope", "en", "local"); file != nil {
		t.Errorf("expected nil for missing group, got %+v", file)
	}
	if file := im.ImportActionFile("alcohol", "fr", "local"); file != nil {
		t.Errorf("expected nil for missing bundle, got %+v", file)
	}
}

func TestImportGroupsIsIdempotent(t *testing.T) {
	im, st, _ := setupImporter(t)
	ctx := context.Background()

	first, err := im.ImportGroupsForLocaleAndGameMode(ctx, "en", "local")
	if err != nil {
		t.Fatalf("first import: %v", err)
	}
	if first.Groups != 2 {
		t.Errorf("expected 2 groups, got %d", first.Groups)
	}
	// dares has "Sing" at two different intensities, both are distinct tiles
	if first.Tiles != 6 {
		t.Errorf("expected 6 tiles, got %d", first.Tiles)
	}

	second, err := im.ImportGroupsForLocaleAndGameMode(ctx, "en", "local")
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if second.Groups != 0 || second.Tiles != 0 {
		t.Errorf("second run should import nothing, got %+v", second)
	}
	if second.Skipped != 2 {
		t.Errorf("expected 2 skipped, got %d", second.Skipped)
	}

	count, _ := st.CountTiles(store.TileFilter{Locale: "en", GameMode: "local"})
	if count != 6 {
		t.Errorf("expected 6 tiles in store, got %d", count)
	}
}

func TestImportGroupsKeepsModesApart(t *testing.T) {
	im, st, _ := setupImporter(t)
	ctx := context.Background()

	im.ImportGroupsForLocaleAndGameMode(ctx, "en", "local")
	res, err := im.ImportGroupsForLocaleAndGameMode(ctx, "en", "online")
	if err != nil {
		t.Fatalf("import online: %v", err)
	}
	if res.Groups != 1 || res.Tiles != 1 {
		t.Errorf("expected 1 group/1 tile for online, got %+v", res)
	}

	online, _ := st.FindGroupByName("alcohol", "en", "online")
	local, _ := st.FindGroupByName("alcohol", "en", "local")
	if online == nil || local == nil || online.ID == local.ID {
		t.Fatalf("expected distinct groups per mode, got %v / %v", online, local)
	}
}

func TestImportGroupsToleratesConflictingInsert(t *testing.T) {
	im, st, _ := setupImporter(t)
	ctx := context.Background()

	// A row already holds the deterministic id under another name
	id := groupid.Deterministic("alcohol", "en", "online")
	if err := st.InsertGroup(&store.Group{ID: id, Name: "alcohol-legacy", IsDefault: true, Locale: "en", GameMode: "online"}); err != nil {
		t.Fatalf("seed group: %v", err)
	}

	res, err := im.ImportGroupsForLocaleAndGameMode(ctx, "en", "online")
	if err != nil {
		t.Fatalf("conflicting insert should be swallowed: %v", err)
	}
	if res.Groups != 0 || res.Tiles != 1 {
		t.Errorf("expected 0 groups and 1 tile, got %+v", res)
	}
}

func TestImportGroupsMissingBundle(t *testing.T) {
	im, _, _ := setupImporter(t)

	if _, err := im.ImportGroupsForLocaleAndGameMode(context.Background(), "fr", "local"); err == nil {
		t.Error("expected error for missing bundle")
	}
}

func TestImportGroupsCancelled(t *testing.T) {
	im, _, _ := setupImporter(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := im.ImportGroupsForLocaleAndGameMode(ctx, "en", "local"); err == nil {
		t.Error("expected context error")
	}
}
