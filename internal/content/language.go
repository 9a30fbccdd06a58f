package content

import (
	"os"
	"strings"

	"github.com/franz/tilekeeper/internal/kv"
	"golang.org/x/text/language"
)

// PreferenceKey is the KV key holding the user's persisted language choice
const PreferenceKey = "language"

// LanguageResolver picks the active language through an ordered fallback
// chain: explicit choice, configured language, persisted preference,
// environment locale, catalog default.
type LanguageResolver struct {
	Catalog    Catalog
	Explicit   string              // e.g. --lang flag
	Configured string              // config file value
	Prefs      *kv.Store           // persisted preference (may be nil)
	Getenv     func(string) string // defaults to os.Getenv
}

// CurrentLanguage returns a supported language code. It never fails.
func (r *LanguageResolver) CurrentLanguage() string {
	catalog := r.Catalog.WithDefaults()

	candidates := []string{r.Explicit, r.Configured}
	if r.Prefs != nil {
		if pref, ok := r.Prefs.GetItem(PreferenceKey); ok {
			candidates = append(candidates, pref)
		}
	}
	candidates = append(candidates, r.environmentLocales()...)

	for _, c := range candidates {
		if lang, ok := MatchLanguage(catalog, c); ok {
			return lang
		}
	}
	return catalog.Default()
}

// SetPreference persists lang as the preferred language if it is supported
func (r *LanguageResolver) SetPreference(lang string) bool {
	catalog := r.Catalog.WithDefaults()
	matched, ok := MatchLanguage(catalog, lang)
	if !ok || r.Prefs == nil {
		return false
	}
	return r.Prefs.SetItem(PreferenceKey, matched)
}

func (r *LanguageResolver) environmentLocales() []string {
	getenv := r.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	var out []string
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := getenv(key); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// MatchLanguage maps a raw locale string ("fr", "fr-CA", "fr_FR.UTF-8") to a
// catalog language. POSIX "C" locales never match.
func MatchLanguage(catalog Catalog, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexAny(raw, ".@"); i >= 0 {
		raw = raw[:i]
	}
	raw = strings.ReplaceAll(raw, "_", "-")
	if raw == "" || raw == "C" || raw == "POSIX" {
		return "", false
	}

	tag, err := language.Parse(raw)
	if err != nil {
		return "", false
	}

	var (
		supported []language.Tag
		codes     []string
	)
	for _, l := range catalog.Languages {
		t, err := language.Parse(l)
		if err != nil {
			continue
		}
		supported = append(supported, t)
		codes = append(codes, l)
	}
	if len(supported) == 0 {
		return "", false
	}

	base, _ := tag.Base()
	for i, s := range supported {
		if sb, _ := s.Base(); sb == base {
			return codes[i], true
		}
	}

	_, idx, confidence := language.NewMatcher(supported).Match(tag)
	if confidence < language.High {
		return "", false
	}
	return codes[idx], true
}
