package importer

import (
	"context"
	"testing"
	"time"

	"github.com/franz/tilekeeper/internal/groupid"
	"github.com/franz/tilekeeper/internal/store"
)

func TestCleanupDuplicateGroupsFor(t *testing.T) {
	im, st, clock := setupImporter(t)
	ctx := context.Background()

	canonical := groupid.Deterministic("alcohol", "en", "local")

	// Older legacy copy, then the canonical row
	legacy := &store.Group{ID: "legacy-alcohol", Name: "alcohol", IsDefault: true, Locale: "en", GameMode: "local"}
	if err := st.InsertGroup(legacy); err != nil {
		t.Fatalf("insert legacy: %v", err)
	}
	clock.Advance(time.Second)
	if err := st.InsertGroup(&store.Group{ID: canonical, Name: "alcohol", IsDefault: true, Locale: "en", GameMode: "local"}); err != nil {
		t.Fatalf("insert canonical: %v", err)
	}

	tiles := []*store.Tile{
		{GroupName: "alcohol", GroupID: canonical, Intensity: 1, Action: "Sip", Locale: "en", GameMode: "local"},
		{GroupName: "alcohol", GroupID: "legacy-alcohol", Intensity: 1, Action: "Sip", Locale: "en", GameMode: "local"},
		{GroupName: "alcohol", GroupID: "legacy-alcohol", Intensity: 2, Action: "Shot", Locale: "en", GameMode: "local"},
	}
	if _, err := st.InsertTiles(tiles); err != nil {
		t.Fatalf("insert tiles: %v", err)
	}

	removed, err := im.CleanupDuplicateGroupsFor(ctx, "en", "local")
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed group, got %d", removed)
	}

	if g, _ := st.GetGroup("legacy-alcohol"); g != nil {
		t.Error("legacy row should be removed")
	}
	if g, _ := st.GetGroup(canonical); g == nil {
		t.Error("canonical row should survive even though it is newer")
	}

	remaining, _ := st.FindTiles(store.TileFilter{GroupID: canonical})
	if len(remaining) != 2 {
		t.Errorf("expected 2 tiles after repoint and dedupe, got %d", len(remaining))
	}
	if n, _ := st.CountTiles(store.TileFilter{GroupID: "legacy-alcohol"}); n != 0 {
		t.Errorf("expected no tiles left on removed row, got %d", n)
	}
}

func TestCleanupKeepsOldestWithoutCanonical(t *testing.T) {
	im, st, clock := setupImporter(t)

	for _, id := range []string{"first", "second", "third"} {
		if err := st.InsertGroup(&store.Group{ID: id, Name: "party", Locale: "en", GameMode: "online"}); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
		clock.Advance(time.Second)
	}
	// Same name but different origin is not a duplicate
	if err := st.InsertGroup(&store.Group{ID: "default-party", Name: "party", IsDefault: true, Locale: "en", GameMode: "online"}); err != nil {
		t.Fatalf("insert default: %v", err)
	}

	removed, err := im.CleanupDuplicateGroups(context.Background())
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}

	groups, _ := st.FindGroups(store.GroupFilter{Name: "party"})
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups left, got %d", len(groups))
	}
	if groups[0].ID != "first" {
		t.Errorf("expected oldest row to survive, got %s", groups[0].ID)
	}
}

func TestCleanupAfterImportIsNoop(t *testing.T) {
	im, _, _ := setupImporter(t)
	ctx := context.Background()

	im.ImportGroupsForLocaleAndGameMode(ctx, "en", "local")
	removed, err := im.CleanupDuplicateGroups(ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 0 {
		t.Errorf("expected nothing removed, got %d", removed)
	}
}
