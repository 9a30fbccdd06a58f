package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/franz/tilekeeper/internal/content"
	"github.com/franz/tilekeeper/internal/kv"
	"github.com/franz/tilekeeper/internal/status"
	"github.com/franz/tilekeeper/internal/store"
	"github.com/franz/tilekeeper/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on the environment and configuration",
	Long: `Run diagnostic checks to ensure tkp can operate correctly.

This command checks:
- SQLite version
- Content database accessibility and integrity
- Migration status file
- Database location (network mounts)
- Content source (manifest and available languages)
- Artifacts directory permissions
- Disk space availability

Use this command to troubleshoot issues before running a migration.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type checkResult struct {
	name    string
	message string
	error   bool
	warning bool
}

func runDoctor(cmd *cobra.Command, args []string) error {
	applyLogFlags()

	util.InfoLog("=== Tilekeeper Doctor - System Diagnostics ===")
	util.InfoLog("")

	results := []checkResult{}

	results = append(results, checkSQLite())

	dbPath := viper.GetString("db")
	results = append(results, checkDatabase(dbPath))
	results = append(results, checkStatusStore(viper.GetString("kv")))
	results = append(results, checkStorageLocation(dbPath, "database"))

	label := "bundled"
	if dir := viper.GetString("content"); dir != "" {
		label = dir
	}
	fsys, err := contentFS()
	if err != nil {
		results = append(results, checkResult{name: "Content", error: true, message: err.Error()})
	} else {
		results = append(results, checkContent(cmd.Context(), fsys, label, catalogFromConfig()))
	}

	artifacts := viper.GetString("artifacts")
	if artifacts != "" {
		results = append(results, checkArtifactsDirectory(artifacts))
		results = append(results, checkDiskSpace(artifacts, "artifacts"))
	}

	util.InfoLog("")
	util.InfoLog("=== Diagnostic Results ===")
	util.InfoLog("")

	hasErrors := false
	hasWarnings := false

	for _, r := range results {
		symbol := "✓"
		if r.error {
			symbol = "✗"
			hasErrors = true
		} else if r.warning {
			symbol = "⚠"
			hasWarnings = true
		}

		line := fmt.Sprintf("[%s] %s", symbol, r.name)
		if r.message != "" {
			line += fmt.Sprintf(": %s", r.message)
		}

		if r.error {
			util.ErrorLog("%s", line)
		} else if r.warning {
			util.WarnLog("%s", line)
		} else {
			util.SuccessLog("%s", line)
		}
	}

	util.InfoLog("")
	if hasErrors {
		util.ErrorLog("Some critical checks failed. Please resolve errors before running tkp.")
		return fmt.Errorf("system diagnostics failed")
	} else if hasWarnings {
		util.WarnLog("Some checks produced warnings. Review them before proceeding.")
	} else {
		util.SuccessLog("All checks passed! System is ready for tkp operations.")
	}

	return nil
}

// checkSQLite verifies SQLite version
func checkSQLite() checkResult {
	// modernc.org/sqlite is compiled in
	version := store.SQLiteVersion()
	if version == "" {
		return checkResult{
			name:    "SQLite",
			error:   true,
			message: "unable to determine version",
		}
	}

	return checkResult{
		name:    "SQLite",
		message: fmt.Sprintf("version %s (built-in)", version),
	}
}

// checkDatabase verifies database file accessibility
func checkDatabase(dbPath string) checkResult {
	if dbPath == "" {
		return checkResult{
			name:    "Database",
			warning: true,
			message: "no database path specified (use --db flag or config)",
		}
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return checkResult{
				name:    "Database",
				message: fmt.Sprintf("%s (will be created on first run)", dbPath),
			}
		}
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", dbPath, err),
		}
	}

	if !info.Mode().IsRegular() {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("%s is not a regular file", dbPath),
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("cannot open %s: %v", dbPath, err),
		}
	}
	defer db.Close()

	if err := db.CheckIntegrity(); err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("integrity check failed: %v", err),
		}
	}

	groups, _ := db.CountGroups("", "")
	tiles, _ := db.CountTiles(store.TileFilter{})

	return checkResult{
		name: "Database",
		message: fmt.Sprintf("%s (%s, %s groups, %s tiles)", dbPath, humanize.Bytes(uint64(info.Size())),
			humanize.Comma(int64(groups)), humanize.Comma(int64(tiles))),
	}
}

// checkStatusStore verifies the migration status file and reports which
// status records it holds
func checkStatusStore(path string) checkResult {
	if path == "" {
		return checkResult{
			name:    "Status store",
			warning: true,
			message: "no status path specified (use --kv flag or config)",
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return checkResult{
			name:    "Status store",
			message: fmt.Sprintf("%s (will be created on first run)", path),
		}
	}

	s, err := kv.OpenBolt(path)
	if err != nil {
		return checkResult{
			name:    "Status store",
			error:   true,
			message: fmt.Sprintf("cannot open %s: %v (is another tkp running?)", path, err),
		}
	}
	defer s.Close()

	present := 0
	keys := s.Keys()
	for _, k := range status.AllKeys {
		for _, have := range keys {
			if have == k {
				present++
				break
			}
		}
	}

	return checkResult{
		name:    "Status store",
		message: fmt.Sprintf("%s (%d of %d status records)", path, present, len(status.AllKeys)),
	}
}

// checkContent verifies the content source has a readable manifest and at
// least one language with content
func checkContent(ctx context.Context, fsys fs.FS, label string, catalog content.Catalog) checkResult {
	d := content.NewDiscovery(fsys, catalog, nil)

	if _, err := d.Manifest(); err != nil {
		return checkResult{
			name:    "Content",
			error:   true,
			message: fmt.Sprintf("%s: cannot read manifest: %v", label, err),
		}
	}

	available := d.AvailableLocales(ctx)
	if len(available) == 0 {
		return checkResult{
			name:    "Content",
			error:   true,
			message: fmt.Sprintf("%s: no language has loadable content", label),
		}
	}

	var missing []string
	for _, lang := range d.Catalog().Languages {
		found := false
		for _, a := range available {
			if a == lang {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, lang)
		}
	}

	msg := fmt.Sprintf("%s (%s)", label, strings.Join(available, ", "))
	if len(missing) > 0 {
		return checkResult{
			name:    "Content",
			warning: true,
			message: fmt.Sprintf("%s; no content for %s", msg, strings.Join(missing, ", ")),
		}
	}
	return checkResult{name: "Content", message: msg}
}

// checkStorageLocation warns when path is on a network filesystem, where
// database file locks are unreliable
func checkStorageLocation(path, label string) checkResult {
	name := fmt.Sprintf("Storage (%s)", label)
	if path == "" {
		return checkResult{name: name, warning: true, message: "no path configured"}
	}

	dir := path
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		dir = filepath.Dir(path)
	}

	mount := util.DetectMount(dir)
	if mount == nil {
		return checkResult{name: name, message: "mount table unavailable, assuming local disk"}
	}
	if mount.IsNetwork {
		return checkResult{
			name:    name,
			warning: true,
			message: fmt.Sprintf("%s is on a %s network mount (%s); file locking may be unreliable", path, mount.FSType, mount.MountPoint),
		}
	}
	return checkResult{name: name, message: fmt.Sprintf("%s (%s)", mount.MountPoint, mount.FSType)}
}

// checkArtifactsDirectory verifies the artifacts directory is writable
func checkArtifactsDirectory(path string) checkResult {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(path, 0755); err != nil {
				return checkResult{
					name:    "Artifacts directory",
					error:   true,
					message: fmt.Sprintf("cannot create %s: %v", path, err),
				}
			}
			return checkResult{
				name:    "Artifacts directory",
				message: fmt.Sprintf("%s (created)", path),
			}
		}
		return checkResult{
			name:    "Artifacts directory",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", path, err),
		}
	}

	if !info.IsDir() {
		return checkResult{
			name:    "Artifacts directory",
			error:   true,
			message: fmt.Sprintf("%s is not a directory", path),
		}
	}

	testFile := filepath.Join(path, ".tkp_write_test")
	f, err := os.Create(testFile)
	if err != nil {
		return checkResult{
			name:    "Artifacts directory",
			error:   true,
			message: fmt.Sprintf("cannot write to %s: %v", path, err),
		}
	}
	f.Close()
	os.Remove(testFile)

	return checkResult{
		name:    "Artifacts directory",
		message: fmt.Sprintf("%s (writable)", path),
	}
}

// checkDiskSpace verifies available disk space
func checkDiskSpace(path string, label string) checkResult {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return checkResult{
			name:    fmt.Sprintf("Disk space (%s)", label),
			warning: true,
			message: fmt.Sprintf("cannot determine disk space: %v", err),
		}
	}

	availBytes := stat.Bavail * uint64(stat.Bsize)
	totalBytes := stat.Blocks * uint64(stat.Bsize)
	usedBytes := totalBytes - (stat.Bfree * uint64(stat.Bsize))
	usedPercent := float64(usedBytes) / float64(totalBytes) * 100

	// The store is small; warn only when the disk is nearly full
	warning := false
	warningMsg := ""
	if availBytes < 100*humanize.MByte {
		warning = true
		warningMsg = " (low space!)"
	} else if usedPercent > 95 {
		warning = true
		warningMsg = " (>95% used)"
	}

	return checkResult{
		name:    fmt.Sprintf("Disk space (%s)", label),
		warning: warning,
		message: fmt.Sprintf("%s available%s", humanize.Bytes(availBytes), warningMsg),
	}
}
