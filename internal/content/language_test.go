package content

import (
	"testing"

	"github.com/franz/tilekeeper/internal/kv"
)

func envFrom(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestMatchLanguage(t *testing.T) {
	catalog := DefaultCatalog()

	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{"en", "en", true},
		{"fr-CA", "fr", true},
		{"es_MX.UTF-8", "es", true},
		{"zh-Hant-TW", "zh", true},
		{"hi_IN", "hi", true},
		{"de-DE", "", false},
		{"C", "", false},
		{"POSIX", "", false},
		{"", "", false},
		{"not a locale!", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := MatchLanguage(catalog, tt.raw)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("MatchLanguage(%q) = %q, %v; want %q, %v", tt.raw, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestCurrentLanguageFallbackChain(t *testing.T) {
	prefs := kv.NewMemory()
	prefs.SetItem(PreferenceKey, "es")

	tests := []struct {
		name     string
		resolver LanguageResolver
		want     string
	}{
		{
			name:     "explicit wins",
			resolver: LanguageResolver{Explicit: "fr", Configured: "es", Prefs: prefs},
			want:     "fr",
		},
		{
			name:     "unsupported explicit falls through to configured",
			resolver: LanguageResolver{Explicit: "de", Configured: "hi", Prefs: prefs},
			want:     "hi",
		},
		{
			name:     "persisted preference",
			resolver: LanguageResolver{Prefs: prefs, Getenv: envFrom(map[string]string{"LANG": "fr_FR.UTF-8"})},
			want:     "es",
		},
		{
			name:     "environment locale",
			resolver: LanguageResolver{Getenv: envFrom(map[string]string{"LC_ALL": "C", "LANG": "fr_FR.UTF-8"})},
			want:     "fr",
		},
		{
			name:     "default when nothing matches",
			resolver: LanguageResolver{Getenv: envFrom(map[string]string{"LANG": "de_DE.UTF-8"})},
			want:     "en",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.resolver.CurrentLanguage(); got != tt.want {
				t.Errorf("CurrentLanguage() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSetPreference(t *testing.T) {
	prefs := kv.NewMemory()
	r := &LanguageResolver{Prefs: prefs, Getenv: envFrom(nil)}

	if r.SetPreference("klingon") {
		t.Error("expected unsupported language to be rejected")
	}
	if !r.SetPreference("fr-BE") {
		t.Fatal("expected fr-BE to be accepted")
	}
	if got := r.CurrentLanguage(); got != "fr" {
		t.Errorf("expected fr after preference, got %s", got)
	}
}
