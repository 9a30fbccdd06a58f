package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/franz/tilekeeper/internal/content"
	"github.com/franz/tilekeeper/internal/util"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-migrate languages whose content files change",
	Long: `Watch the content directory and re-migrate changed languages.

When a bundle file changes, the migration status of its language is reset
and the language is migrated again. A changed manifest affects every
language. Requires --content; bundled content never changes.

Stop with Ctrl+C.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().Duration("debounce", 500*time.Millisecond, "Quiet period before changes are applied")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	debounce, _ := cmd.Flags().GetDuration("debounce")

	root := viper.GetString("content")
	if root == "" {
		return fmt.Errorf("watch needs a content directory (use --content or set in config)")
	}

	a, err := openApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watchTree(watcher, root); err != nil {
		return err
	}
	util.InfoLog("Watching %s", root)

	pending := make(map[string]bool)
	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			util.InfoLog("Stopped watching")
			return nil

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			util.WarnLog("Watch error: %v", err)

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := watcher.Add(ev.Name); err != nil {
						util.WarnLog("Cannot watch %s: %v", ev.Name, err)
					}
				}
			}
			if ev.Has(fsnotify.Chmod) {
				continue
			}
			for _, locale := range changedLocales(root, []string{ev.Name}, a.catalog) {
				pending[locale] = true
			}
			if len(pending) > 0 {
				timer.Reset(debounce)
			}

		case <-timer.C:
			locales := make([]string, 0, len(pending))
			for l := range pending {
				locales = append(locales, l)
			}
			slices.Sort(locales)
			clear(pending)

			a.discovery.Reload()
			for _, locale := range locales {
				util.InfoLog("Content of %s changed, migrating again", locale)
				a.status.UnmarkLanguageMigrated(locale)
				if a.service.EnsureLanguageMigrated(ctx, locale) {
					util.SuccessLog("%s migrated", locale)
				} else {
					util.WarnLog("%s could not be migrated", locale)
				}
			}
		}
	}
}

// watchTree adds root and every directory below it
func watchTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// changedLocales maps changed file paths below root to catalog languages.
// A manifest change affects every language; other files count for the
// language named by their first path element ("fr/local.json").
func changedLocales(root string, paths []string, catalog content.Catalog) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(l string) {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}

	for _, p := range paths {
		rel, err := filepath.Rel(root, p)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		rel = filepath.ToSlash(rel)

		if rel == content.ManifestFile {
			for _, l := range catalog.Languages {
				add(l)
			}
			continue
		}

		first, _, nested := strings.Cut(rel, "/")
		if !nested {
			continue
		}
		if catalog.SupportsLanguage(first) {
			add(first)
		}
	}
	return out
}
