package content

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"testing/fstest"

	"github.com/franz/tilekeeper/internal/util"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"en/local.json": {Data: []byte(`{
			"truths": {"label": "Truths", "actions": {"mild": ["a"]}},
			"alcohol": {"label": "Alcohol", "actions": {"mild": ["b"], "strong": ["c"]}},
			"broken": {"label": "Broken"}
		}`)},
		"en/online.json": {Data: []byte(`{"alcohol": {"actions": {"mild": ["x"]}}}`)},
		"fr/local.json":  {Data: []byte(`{"alcool": {"actions": {"doux": ["y"]}}}`)},
		"zh/local.json":  {Data: []byte(`not json`)},
	}
}

func TestManifestFromDir(t *testing.T) {
	m, err := LoadManifest(testFS())
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if len(m.Bundles) != 4 {
		t.Fatalf("expected 4 bundles, got %d", len(m.Bundles))
	}
	if p, ok := m.Lookup("en", "online"); !ok || p != "en/online.json" {
		t.Errorf("Lookup(en, online) = %s, %v", p, ok)
	}
	if modes := m.GameModes("en"); !reflect.DeepEqual(modes, []string{"local", "online"}) {
		t.Errorf("unexpected en modes: %v", modes)
	}
}

func TestManifestFileTakesPrecedence(t *testing.T) {
	fsys := testFS()
	fsys[ManifestFile] = &fstest.MapFile{Data: []byte(`
version: 1
bundles:
  - locale: en
    game_mode: local
    path: en/local.json
`)}

	d := NewDiscovery(fsys, DefaultCatalog(), nil)
	if modes := d.AvailableGameModes("en"); !reflect.DeepEqual(modes, []string{"local"}) {
		t.Errorf("expected only local from manifest, got %v", modes)
	}
}

func TestAvailableGameModesFollowsManifest(t *testing.T) {
	fsys := testFS()
	fsys["en/party.json"] = &fstest.MapFile{Data: []byte(`{"dance": {"actions": {"easy": ["z"]}}}`)}
	fsys[ManifestFile] = &fstest.MapFile{Data: []byte(`
version: 1
bundles:
  - locale: en
    game_mode: online
    path: en/online.json
  - locale: en
    game_mode: party
    path: en/party.json
  - locale: en
    game_mode: local
    path: en/local.json
  - locale: en
    game_mode: local
    path: en/local.json
`)}

	d := NewDiscovery(fsys, DefaultCatalog(), nil)
	if modes := d.AvailableGameModes("en"); !reflect.DeepEqual(modes, []string{"online", "local"}) {
		t.Errorf("expected catalog modes in manifest order, got %v", modes)
	}
}

func TestParseManifestValidatesEntries(t *testing.T) {
	_, err := ParseManifest([]byte("bundles:\n  - locale: en\n"))
	if err == nil {
		t.Error("expected error for incomplete manifest entry")
	}
}

func TestAvailableLocalesSkipsMissingAndBroken(t *testing.T) {
	d := NewDiscovery(testFS(), DefaultCatalog(), nil)

	got := d.AvailableLocales(context.Background())
	want := []string{"en", "fr"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AvailableLocales() = %v, want %v", got, want)
	}
}

func TestActionGroupNamesSortedAndVerified(t *testing.T) {
	d := NewDiscovery(testFS(), DefaultCatalog(), nil)

	names, err := d.ActionGroupNames("en", "local")
	if err != nil {
		t.Fatalf("ActionGroupNames: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"alcohol", "truths"}) {
		t.Errorf("unexpected names: %v", names)
	}

	if _, err := d.ActionGroupNames("es", "local"); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected not found for missing bundle, got %v", err)
	}
}

func TestLoadGroup(t *testing.T) {
	d := NewDiscovery(testFS(), DefaultCatalog(), nil)

	entry, err := d.LoadGroup("en", "local", "alcohol")
	if err != nil {
		t.Fatalf("LoadGroup: %v", err)
	}
	if len(entry.Levels) != 2 {
		t.Errorf("expected 2 levels, got %d", len(entry.Levels))
	}

	if _, err := d.LoadGroup("en", "local", "broken"); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected not found for malformed group, got %v", err)
	}
}

func TestReloadPicksUpNewContent(t *testing.T) {
	fsys := testFS()
	d := NewDiscovery(fsys, DefaultCatalog(), nil)

	if modes := d.AvailableGameModes("es"); len(modes) != 0 {
		t.Fatalf("expected no es content, got %v", modes)
	}

	fsys["es/local.json"] = &fstest.MapFile{Data: []byte(`{"retos": {"actions": {"suave": ["z"]}}}`)}
	d.Reload()

	if modes := d.AvailableGameModes("es"); !reflect.DeepEqual(modes, []string{"local"}) {
		t.Errorf("expected es/local after reload, got %v", modes)
	}
}

func TestBundledContent(t *testing.T) {
	d := NewDiscovery(Bundled(), DefaultCatalog(), nil)

	got := d.AvailableLocales(context.Background())
	want := []string{"en", "es", "fr"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("bundled locales = %v, want %v", got, want)
	}

	for _, locale := range want {
		for _, mode := range d.AvailableGameModes(locale) {
			bundle, err := d.LoadBundle(locale, mode)
			if err != nil {
				t.Errorf("LoadBundle(%s, %s): %v", locale, mode, err)
				continue
			}
			if len(bundle.Invalid) != 0 {
				t.Errorf("%s/%s has invalid entries: %v", locale, mode, bundle.Invalid)
			}
		}
	}
}
