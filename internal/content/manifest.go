package content

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ManifestFile is the manifest file name at the root of a content source
const ManifestFile = "manifest.yaml"

// ManifestEntry points at the bundle of one (locale, gameMode)
type ManifestEntry struct {
	Locale   string `yaml:"locale"`
	GameMode string `yaml:"game_mode"`
	Path     string `yaml:"path"`
}

// Manifest lists the bundles a content source provides
type Manifest struct {
	Version int             `yaml:"version"`
	Bundles []ManifestEntry `yaml:"bundles"`
}

// Lookup returns the bundle path for (locale, gameMode)
func (m *Manifest) Lookup(locale, gameMode string) (string, bool) {
	for _, b := range m.Bundles {
		if b.Locale == locale && b.GameMode == gameMode {
			return b.Path, true
		}
	}
	return "", false
}

// GameModes returns the game modes listed for locale, in manifest order
func (m *Manifest) GameModes(locale string) []string {
	var modes []string
	for _, b := range m.Bundles {
		if b.Locale == locale {
			modes = append(modes, b.GameMode)
		}
	}
	return modes
}

// ParseManifest decodes manifest YAML
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	for i, b := range m.Bundles {
		if b.Locale == "" || b.GameMode == "" || b.Path == "" {
			return nil, fmt.Errorf("manifest entry %d: locale, game_mode and path are required", i)
		}
	}
	return &m, nil
}

// LoadManifest reads manifest.yaml from fsys. When the file is absent the
// manifest is derived from a directory listing of <locale>/<gameMode>.json.
func LoadManifest(fsys fs.FS) (*Manifest, error) {
	data, err := fs.ReadFile(fsys, ManifestFile)
	if err == nil {
		return ParseManifest(data)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ManifestFromDir(fsys)
}

// ManifestFromDir builds a manifest from the <locale>/<gameMode>.json layout
func ManifestFromDir(fsys fs.FS) (*Manifest, error) {
	matches, err := fs.Glob(fsys, "*/*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list bundles: %w", err)
	}
	sort.Strings(matches)

	m := &Manifest{Version: 1}
	for _, match := range matches {
		locale := path.Dir(match)
		gameMode := strings.TrimSuffix(path.Base(match), ".json")
		m.Bundles = append(m.Bundles, ManifestEntry{Locale: locale, GameMode: gameMode, Path: match})
	}
	return m, nil
}
