package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"sort"
	"sync"

	"github.com/franz/tilekeeper/internal/util"
	"golang.org/x/sync/errgroup"
)

// checkConcurrency bounds parallel bundle checks
const checkConcurrency = 4

// Discovery answers what content exists in a content source
type Discovery struct {
	fsys     fs.FS
	catalog  Catalog
	language *LanguageResolver

	mu       sync.Mutex
	manifest *Manifest
	bundles  map[string]*Bundle
}

// NewDiscovery creates a Discovery over fsys. resolver may be nil, in which
// case the catalog default is the current language.
func NewDiscovery(fsys fs.FS, catalog Catalog, resolver *LanguageResolver) *Discovery {
	catalog = catalog.WithDefaults()
	if resolver == nil {
		resolver = &LanguageResolver{}
	}
	resolver.Catalog = catalog
	return &Discovery{
		fsys:     fsys,
		catalog:  catalog,
		language: resolver,
		bundles:  make(map[string]*Bundle),
	}
}

// Catalog returns the configured languages and game modes
func (d *Discovery) Catalog() Catalog {
	return d.catalog
}

// Language returns the resolver used for CurrentLanguage
func (d *Discovery) Language() *LanguageResolver {
	return d.language
}

// CurrentLanguage returns the active, supported language
func (d *Discovery) CurrentLanguage() string {
	return d.language.CurrentLanguage()
}

// Reload drops the cached manifest and bundles so the next call re-reads
// the content source
func (d *Discovery) Reload() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.manifest = nil
	d.bundles = make(map[string]*Bundle)
}

// Manifest returns the (cached) manifest of the content source
func (d *Discovery) Manifest() (*Manifest, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.manifest != nil {
		return d.manifest, nil
	}
	m, err := LoadManifest(d.fsys)
	if err != nil {
		return nil, err
	}
	d.manifest = m
	return m, nil
}

// LoadBundle loads and parses the bundle of (locale, gameMode).
// Returns an error wrapping util.ErrNotFound when no bundle exists.
func (d *Discovery) LoadBundle(locale, gameMode string) (*Bundle, error) {
	m, err := d.Manifest()
	if err != nil {
		return nil, err
	}

	path, ok := m.Lookup(locale, gameMode)
	if !ok {
		return nil, fmt.Errorf("bundle %s/%s: %w", locale, gameMode, util.ErrNotFound)
	}

	d.mu.Lock()
	cached := d.bundles[path]
	d.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	data, err := fs.ReadFile(d.fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("bundle %s: %w", path, util.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read bundle %s: %w", path, err)
	}

	bundle, err := ParseBundle(path, data)
	if err != nil {
		return nil, err
	}
	bundle.Locale = locale
	bundle.GameMode = gameMode

	for _, invalid := range bundle.Invalid {
		util.WarnLog("Skipping malformed content: %v", invalid)
	}

	d.mu.Lock()
	d.bundles[path] = bundle
	d.mu.Unlock()

	return bundle, nil
}

// LoadGroup returns one group entry of a bundle
func (d *Discovery) LoadGroup(locale, gameMode, name string) (*GroupEntry, error) {
	bundle, err := d.LoadBundle(locale, gameMode)
	if err != nil {
		return nil, err
	}
	entry := bundle.Group(name)
	if entry == nil {
		return nil, fmt.Errorf("group %q in %s/%s: %w", name, locale, gameMode, util.ErrNotFound)
	}
	return entry, nil
}

// AvailableLocales checks every catalog language and returns those with at
// least one loadable bundle, in catalog order
func (d *Discovery) AvailableLocales(ctx context.Context) []string {
	found := make([]bool, len(d.catalog.Languages))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(checkConcurrency)
	for i, lang := range d.catalog.Languages {
		i, lang := i, lang
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			found[i] = len(d.AvailableGameModes(lang)) > 0
			return nil
		})
	}
	_ = g.Wait()

	var locales []string
	for i, ok := range found {
		if ok {
			locales = append(locales, d.catalog.Languages[i])
		}
	}
	return locales
}

// AvailableGameModes returns the catalog game modes whose bundle loads for
// locale, in manifest order
func (d *Discovery) AvailableGameModes(locale string) []string {
	m, err := d.Manifest()
	if err != nil {
		util.DebugLog("No content manifest: %v", err)
		return nil
	}

	var modes []string
	for _, mode := range m.GameModes(locale) {
		if !d.catalog.SupportsGameMode(mode) || slices.Contains(modes, mode) {
			continue
		}
		if _, err := d.LoadBundle(locale, mode); err != nil {
			util.DebugLog("No %s/%s content: %v", locale, mode, err)
			continue
		}
		modes = append(modes, mode)
	}
	return modes
}

// ActionGroupNames returns the sorted names of every loadable group in the
// (locale, gameMode) bundle
func (d *Discovery) ActionGroupNames(locale, gameMode string) ([]string, error) {
	bundle, err := d.LoadBundle(locale, gameMode)
	if err != nil {
		return nil, err
	}
	names := bundle.Names()
	sort.Strings(names)
	return names, nil
}
