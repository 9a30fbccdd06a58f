package status

import (
	"slices"

	"github.com/franz/tilekeeper/internal/kv"
	"github.com/franz/tilekeeper/internal/util"
)

// Manager exposes migration-state predicates and mutators over the
// key/value store
type Manager struct {
	kv      *kv.Store
	clock   util.Clock
	locks   *LockManager
	version string
}

// NewManager creates a Manager stamping records with version. A nil clock
// uses the system clock; an empty version uses DefaultVersion.
func NewManager(store *kv.Store, clock util.Clock, version string) *Manager {
	if clock == nil {
		clock = util.SystemClock{}
	}
	if version == "" {
		version = DefaultVersion
	}
	return &Manager{
		kv:      store,
		clock:   clock,
		locks:   NewLockManager(store, clock),
		version: version,
	}
}

// Version returns the current content/schema version
func (m *Manager) Version() string {
	return m.version
}

// Locks returns the lock manager sharing this Manager's store and clock
func (m *Manager) Locks() *LockManager {
	return m.locks
}

// IsMigrationInProgress reports whether the main migration lock is held
func (m *Manager) IsMigrationInProgress() bool {
	return m.locks.Held(LockMain)
}

// SetMigrationInProgress writes or clears the main migration lock
func (m *Manager) SetMigrationInProgress(inProgress bool) bool {
	return m.locks.Set(LockMain, inProgress)
}

// IsLanguageMigrationInProgress reports whether locale's migration lock is held
func (m *Manager) IsLanguageMigrationInProgress(locale string) bool {
	return m.locks.Held(LockLanguage(locale))
}

// SetLanguageMigrationInProgress adds or removes locale from the
// per-language lock set
func (m *Manager) SetLanguageMigrationInProgress(locale string, inProgress bool) bool {
	return m.locks.Set(LockLanguage(locale), inProgress)
}

// IsBackgroundMigrationInProgress reports whether the background lock is held
func (m *Manager) IsBackgroundMigrationInProgress() bool {
	return m.locks.Held(LockBackground)
}

// MarkBackgroundMigrationInProgress sets the background lock and records the
// start or end of the pass in the background ledger
func (m *Manager) MarkBackgroundMigrationInProgress(inProgress bool) bool {
	bg := m.backgroundStatus()
	now := util.UnixMilli(m.clock)
	bg.InProgress = inProgress
	if inProgress {
		bg.StartedAt = now
		bg.CompletedAt = 0
	} else {
		bg.CompletedAt = now
	}
	if !m.kv.SetJSON(BackgroundMigrationKey, bg) {
		return false
	}
	return m.locks.Set(LockBackground, inProgress)
}

// MarkMigrationComplete sets the global completion marker
func (m *Manager) MarkMigrationComplete() bool {
	return m.kv.SetJSON(MigrationKey, MainStatus{
		Version:     m.version,
		Completed:   true,
		CompletedAt: util.UnixMilli(m.clock),
	})
}

// MarkLanguageMigrated adds locale to the completed set and drops it from
// the per-language lock set. Marking twice is a no-op.
func (m *Manager) MarkLanguageMigrated(locale string) bool {
	bg := m.backgroundStatus()
	if !bg.HasLanguage(locale) {
		bg.CompletedLanguages = append(bg.CompletedLanguages, locale)
	}
	if !m.kv.SetJSON(BackgroundMigrationKey, bg) {
		return false
	}
	if m.locks.Held(LockLanguage(locale)) {
		m.locks.Release(LockLanguage(locale))
	}
	return true
}

// UnmarkLanguageMigrated removes locale from the completed set and clears
// the global marker, which can no longer be true
func (m *Manager) UnmarkLanguageMigrated(locale string) bool {
	bg := kv.GetJSON[BackgroundStatus](m.kv, BackgroundMigrationKey)
	if bg == nil || !bg.HasLanguage(locale) {
		return true
	}
	bg.CompletedLanguages = slices.DeleteFunc(bg.CompletedLanguages, func(l string) bool { return l == locale })
	if !m.kv.SetJSON(BackgroundMigrationKey, bg) {
		return false
	}
	return m.kv.RemoveItem(MigrationKey)
}

// IsMigrationCompleted reports whether the global marker is set at the
// current version
func (m *Manager) IsMigrationCompleted() bool {
	main := kv.GetJSON[MainStatus](m.kv, MigrationKey)
	return main != nil && main.Completed && main.Version == m.version
}

// IsCurrentLanguageMigrationCompleted reports whether locale is in the
// per-language ledger at the current version. The ledger is authoritative:
// a completed global marker without a ledger entry does not count.
func (m *Manager) IsCurrentLanguageMigrationCompleted(locale string) bool {
	bg := kv.GetJSON[BackgroundStatus](m.kv, BackgroundMigrationKey)
	if bg == nil || bg.Version != m.version {
		return false
	}
	return bg.HasLanguage(locale)
}

// AllLanguagesMigrated reports whether every locale in languages is in the ledger
func (m *Manager) AllLanguagesMigrated(languages []string) bool {
	for _, l := range languages {
		if !m.IsCurrentLanguageMigrationCompleted(l) {
			return false
		}
	}
	return len(languages) > 0
}

// Snapshot is a read-only view of all migration state
type Snapshot struct {
	CurrentVersion     string            `json:"currentVersion"`
	Main               *MainStatus       `json:"main,omitempty"`
	Background         *BackgroundStatus `json:"background,omitempty"`
	MainLock           bool              `json:"mainLock"`
	LanguageLocks      []string          `json:"languageLocks,omitempty"`
	BackgroundLock     bool              `json:"backgroundLock"`
	MigrationCompleted bool              `json:"migrationCompleted"`
}

// GetMigrationStatus returns a snapshot of every status record
func (m *Manager) GetMigrationStatus() Snapshot {
	return Snapshot{
		CurrentVersion:     m.version,
		Main:               kv.GetJSON[MainStatus](m.kv, MigrationKey),
		Background:         kv.GetJSON[BackgroundStatus](m.kv, BackgroundMigrationKey),
		MainLock:           m.locks.Held(LockMain),
		LanguageLocks:      m.locks.HeldLanguages(),
		BackgroundLock:     m.locks.Held(LockBackground),
		MigrationCompleted: m.IsMigrationCompleted(),
	}
}

// ResetMigrationStatus clears every status and lock record
func (m *Manager) ResetMigrationStatus() bool {
	ok := true
	for _, key := range []string{MigrationKey, BackgroundMigrationKey} {
		if !m.kv.RemoveItem(key) {
			ok = false
		}
	}
	m.locks.Clear()
	util.InfoLog("Migration status reset")
	return ok
}

// backgroundStatus returns the ledger at the current version. A ledger from
// another version is discarded.
func (m *Manager) backgroundStatus() *BackgroundStatus {
	bg := kv.GetJSON[BackgroundStatus](m.kv, BackgroundMigrationKey)
	if bg == nil || bg.Version != m.version {
		return &BackgroundStatus{Version: m.version, CompletedLanguages: []string{}}
	}
	return bg
}
