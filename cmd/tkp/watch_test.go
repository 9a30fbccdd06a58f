package main

import (
	"path/filepath"
	"slices"
	"testing"

	"github.com/franz/tilekeeper/internal/content"
)

func TestChangedLocales(t *testing.T) {
	root := filepath.Join("srv", "content")
	catalog := content.Catalog{Languages: []string{"en", "fr", "es"}}

	tests := []struct {
		name  string
		paths []string
		want  []string
	}{
		{"bundle file", []string{filepath.Join(root, "fr", "local.json")}, []string{"fr"}},
		{"deduplicated", []string{filepath.Join(root, "en", "local.json"), filepath.Join(root, "en", "online.json")}, []string{"en"}},
		{"manifest", []string{filepath.Join(root, "manifest.yaml")}, []string{"en", "fr", "es"}},
		{"unknown language", []string{filepath.Join(root, "de", "local.json")}, nil},
		{"top level file", []string{filepath.Join(root, "README.md")}, nil},
		{"outside root", []string{filepath.Join("srv", "other", "en", "local.json")}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := changedLocales(root, tt.paths, catalog)
			if !slices.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
