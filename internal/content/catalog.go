// Package content discovers the bundled action content that can be imported
// into the local store: which languages and game modes exist, which groups a
// bundle holds, and which language is active.
package content

import "slices"

// Game modes
const (
	GameModeLocal  = "local"
	GameModeOnline = "online"
)

// Catalog is the configured set of languages and game modes. It is passed to
// every component instead of being hardcoded.
type Catalog struct {
	Languages       []string
	GameModes       []string
	DefaultLanguage string
}

// DefaultCatalog returns the stock configuration
func DefaultCatalog() Catalog {
	return Catalog{
		Languages:       []string{"en", "es", "fr", "zh", "hi"},
		GameModes:       []string{GameModeLocal, GameModeOnline},
		DefaultLanguage: "en",
	}
}

// SupportsLanguage reports whether lang is in the catalog
func (c Catalog) SupportsLanguage(lang string) bool {
	return slices.Contains(c.Languages, lang)
}

// SupportsGameMode reports whether mode is in the catalog
func (c Catalog) SupportsGameMode(mode string) bool {
	return slices.Contains(c.GameModes, mode)
}

// Default returns the default language, falling back to the first listed
// language and finally "en"
func (c Catalog) Default() string {
	if c.DefaultLanguage != "" {
		return c.DefaultLanguage
	}
	if len(c.Languages) > 0 {
		return c.Languages[0]
	}
	return "en"
}

// WithDefaults fills empty fields from DefaultCatalog
func (c Catalog) WithDefaults() Catalog {
	def := DefaultCatalog()
	if len(c.Languages) == 0 {
		c.Languages = def.Languages
	}
	if len(c.GameModes) == 0 {
		c.GameModes = def.GameModes
	}
	if c.DefaultLanguage == "" || !c.SupportsLanguage(c.DefaultLanguage) {
		c.DefaultLanguage = c.Languages[0]
	}
	return c
}
