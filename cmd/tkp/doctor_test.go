package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/franz/tilekeeper/internal/content"
	"github.com/franz/tilekeeper/internal/kv"
	"github.com/franz/tilekeeper/internal/status"
	"github.com/franz/tilekeeper/internal/store"
)

func TestCheckSQLite(t *testing.T) {
	result := checkSQLite()

	if result.error {
		t.Errorf("SQLite check failed: %s", result.message)
	}

	if result.message == "" {
		t.Error("expected version information in message")
	}
}

func TestCheckDatabase_NonExistent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nonexistent.db")

	result := checkDatabase(dbPath)

	// Should not error - database will be created on first run
	if result.error {
		t.Errorf("non-existent database check should not error: %s", result.message)
	}
	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Error("check must not create the database")
	}
}

func TestCheckDatabase_Existing(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	group := &store.Group{ID: "g1", Name: "dares", Label: "Dares", Locale: "en", GameMode: "local"}
	if err := db.InsertGroup(group); err != nil {
		t.Fatalf("failed to insert test group: %v", err)
	}
	db.Close()

	result := checkDatabase(dbPath)

	if result.error {
		t.Errorf("database check failed: %s", result.message)
	}
	if !strings.Contains(result.message, "1 groups") {
		t.Errorf("expected group count in message, got %q", result.message)
	}
}

func TestCheckDatabase_Empty(t *testing.T) {
	result := checkDatabase("")

	if !result.warning {
		t.Error("expected warning for empty database path")
	}
}

func TestCheckDatabase_Directory(t *testing.T) {
	result := checkDatabase(t.TempDir())

	if !result.error {
		t.Error("expected error when database path is a directory")
	}
}

func TestCheckStatusStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.db")

	if result := checkStatusStore(path); result.error {
		t.Errorf("missing status store should not error: %s", result.message)
	}

	s, err := kv.OpenBolt(path)
	if err != nil {
		t.Fatalf("failed to create status store: %v", err)
	}
	s.SetItem(status.MigrationKey, `{"version":"2.0.0","completed":true}`)
	s.Close()

	result := checkStatusStore(path)
	if result.error {
		t.Errorf("status store check failed: %s", result.message)
	}
	if !strings.Contains(result.message, "1 of") {
		t.Errorf("expected one status record, got %q", result.message)
	}
}

func TestCheckContent(t *testing.T) {
	catalog := content.Catalog{Languages: []string{"en", "fr"}, GameModes: []string{"local"}}
	ctx := context.Background()

	full := fstest.MapFS{
		"en/local.json": {Data: []byte(`{"dares": {"actions": {"easy": ["Sing"]}}}`)},
		"fr/local.json": {Data: []byte(`{"dares": {"actions": {"easy": ["Chanter"]}}}`)},
	}
	if result := checkContent(ctx, full, "test", catalog); result.error || result.warning {
		t.Errorf("expected clean result, got %+v", result)
	}

	partial := fstest.MapFS{
		"en/local.json": {Data: []byte(`{"dares": {"actions": {"easy": ["Sing"]}}}`)},
	}
	result := checkContent(ctx, partial, "test", catalog)
	if !result.warning || !strings.Contains(result.message, "fr") {
		t.Errorf("expected warning naming fr, got %+v", result)
	}

	if result := checkContent(ctx, fstest.MapFS{}, "test", catalog); !result.error {
		t.Errorf("expected error for empty content, got %+v", result)
	}
}

func TestCheckArtifactsDirectory_Create(t *testing.T) {
	newDir := filepath.Join(t.TempDir(), "artifacts")

	result := checkArtifactsDirectory(newDir)

	if result.error {
		t.Errorf("artifacts directory check failed: %s", result.message)
	}
	if _, err := os.Stat(newDir); os.IsNotExist(err) {
		t.Error("expected directory to be created")
	}
}

func TestCheckArtifactsDirectory_File(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(filePath, []byte("test"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	result := checkArtifactsDirectory(filePath)

	if !result.error {
		t.Error("expected error when path is a file, not a directory")
	}
}

func TestCheckDiskSpace(t *testing.T) {
	result := checkDiskSpace(t.TempDir(), "test")

	if result.error {
		t.Errorf("disk space check failed: %s", result.message)
	}
	if result.message == "" {
		t.Error("expected message with disk space info")
	}
}

func TestCheckDiskSpace_NonExistent(t *testing.T) {
	result := checkDiskSpace("/nonexistent/path", "test")

	if !result.warning {
		t.Error("expected warning for non-existent path")
	}
}

func TestCheckStorageLocation(t *testing.T) {
	result := checkStorageLocation(filepath.Join(t.TempDir(), "tiles.db"), "database")

	// Temp dirs may live on any filesystem; only errors are wrong
	if result.error {
		t.Errorf("storage check should never error: %s", result.message)
	}

	if result := checkStorageLocation("", "database"); !result.warning {
		t.Error("expected warning for empty path")
	}
}
