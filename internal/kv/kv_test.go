package kv

import (
	"errors"
	"path/filepath"
	"testing"
)

type lockRecord struct {
	InProgress bool  `json:"inProgress"`
	StartedAt  int64 `json:"startedAt"`
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemory()

	if _, ok := s.GetItem("missing"); ok {
		t.Error("expected missing key to be absent")
	}

	if !s.SetJSON("lock", lockRecord{InProgress: true, StartedAt: 42}) {
		t.Fatal("SetJSON failed")
	}

	got := GetJSON[lockRecord](s, "lock")
	if got == nil {
		t.Fatal("expected record, got nil")
	}
	if !got.InProgress || got.StartedAt != 42 {
		t.Errorf("unexpected record: %+v", got)
	}

	if !s.RemoveItem("lock") {
		t.Fatal("RemoveItem failed")
	}
	if GetJSON[lockRecord](s, "lock") != nil {
		t.Error("expected record to be removed")
	}
}

func TestMalformedJSONDegradesToNil(t *testing.T) {
	s := NewMemory()
	s.SetItem("broken", "{not json")

	if got := GetJSON[lockRecord](s, "broken"); got != nil {
		t.Errorf("expected nil for malformed JSON, got %+v", got)
	}
}

func TestBackendFailureDegrades(t *testing.T) {
	backend := NewMemoryBackend()
	s := New(backend)
	s.SetItem("key", "value")

	backend.FailWith(errors.New("quota exceeded"))

	if _, ok := s.GetItem("key"); ok {
		t.Error("expected read to fail softly")
	}
	if s.SetItem("key", "other") {
		t.Error("expected write to report failure")
	}
	if s.RemoveItem("key") {
		t.Error("expected remove to report failure")
	}
	if s.Keys() != nil {
		t.Error("expected nil keys on failure")
	}

	backend.FailWith(nil)
	if v, ok := s.GetItem("key"); !ok || v != "value" {
		t.Errorf("expected original value after recovery, got %q %v", v, ok)
	}
}

func TestNilStoreIsSafe(t *testing.T) {
	var s *Store
	if _, ok := s.GetItem("x"); ok {
		t.Error("nil store should not return values")
	}
	if s.SetItem("x", "y") {
		t.Error("nil store should not accept writes")
	}
	if err := s.Close(); err != nil {
		t.Errorf("nil store close: %v", err)
	}
}

func TestBoltStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.db")

	s, err := OpenBolt(path)
	if err != nil {
		t.Fatalf("OpenBolt failed: %v", err)
	}
	s.SetItem("a", "1")
	s.SetJSON("b", lockRecord{StartedAt: 7})
	if err := s.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	s, err = OpenBolt(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	if v, ok := s.GetItem("a"); !ok || v != "1" {
		t.Errorf("expected a=1 after reopen, got %q %v", v, ok)
	}
	rec := GetJSON[lockRecord](s, "b")
	if rec == nil || rec.StartedAt != 7 {
		t.Errorf("expected b.startedAt=7, got %+v", rec)
	}

	keys := s.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("unexpected keys: %v", keys)
	}
}

func TestOpenBoltRequiresPath(t *testing.T) {
	if _, err := OpenBolt("  "); err == nil {
		t.Error("expected error for empty path")
	}
}
