package status

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/franz/tilekeeper/internal/kv"
	"github.com/franz/tilekeeper/internal/util"
)

// Lock names
const (
	LockMain       = "main"
	LockBackground = "background"

	languageLockPrefix = "language:"
)

// LockLanguage returns the lock name guarding the migration of locale
func LockLanguage(locale string) string {
	return languageLockPrefix + locale
}

// LockManager implements advisory locks as records in the key/value store.
// Records older than their stale timeout are treated as abandoned and
// removed on the next read. Holders in this process wake waiters through a
// channel registry; holders in other processes are observed by polling.
type LockManager struct {
	kv    *kv.Store
	clock util.Clock
	poll  time.Duration

	mu      sync.Mutex
	waiters map[string][]chan struct{}
}

// NewLockManager creates a LockManager. A nil clock uses the system clock.
func NewLockManager(store *kv.Store, clock util.Clock) *LockManager {
	if clock == nil {
		clock = util.SystemClock{}
	}
	return &LockManager{
		kv:      store,
		clock:   clock,
		poll:    PollInterval,
		waiters: make(map[string][]chan struct{}),
	}
}

// SetPollInterval changes how often Wait re-reads the store
func (m *LockManager) SetPollInterval(d time.Duration) {
	if d > 0 {
		m.poll = d
	}
}

// Held reports whether the named lock is held. A stale record is removed
// and reported as not held.
func (m *LockManager) Held(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.heldLocked(name)
}

// TryAcquire takes the named lock if it is free and reports whether it did
func (m *LockManager) TryAcquire(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.heldLocked(name) {
		return false
	}
	return m.setLocked(name, true)
}

// Set writes or clears the named lock regardless of its current state
func (m *LockManager) Set(name string, held bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setLocked(name, held)
}

// Release clears the named lock and wakes its waiters
func (m *LockManager) Release(name string) {
	m.Set(name, false)
}

// HeldLanguages returns the locales whose per-language lock is held
func (m *LockManager) HeldLanguages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.languageRecordLocked()
	if rec == nil {
		return nil
	}
	return slices.Clone(rec.Locales)
}

// Wait blocks until the named lock is released, timeout elapses or ctx is
// done. It returns true when the lock was observed free. Giving up is
// logged as a warning; the caller proceeds either way.
func (m *LockManager) Wait(ctx context.Context, name string, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(m.poll)
	defer ticker.Stop()

	for {
		m.mu.Lock()
		if !m.heldLocked(name) {
			m.mu.Unlock()
			return true
		}
		ch := make(chan struct{})
		m.waiters[name] = append(m.waiters[name], ch)
		m.mu.Unlock()

		select {
		case <-ch:
		case <-ticker.C:
			m.dropWaiter(name, ch)
		case <-deadline.C:
			m.dropWaiter(name, ch)
			util.WarnLog("Timed out after %v waiting for %s migration lock", timeout, name)
			return false
		case <-ctx.Done():
			m.dropWaiter(name, ch)
			return false
		}
	}
}

// Clear removes every lock record and wakes all waiters
func (m *LockManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kv.RemoveItem(MigrationInProgressKey)
	m.kv.RemoveItem(CurrentLanguageMigrationKey)
	m.kv.RemoveItem(BackgroundMigrationInProgressKey)
	m.notifyAllLocked()
}

func (m *LockManager) heldLocked(name string) bool {
	switch {
	case name == LockMain:
		return m.flagHeldLocked(name, MigrationInProgressKey, StaleLockTimeout)
	case name == LockBackground:
		return m.flagHeldLocked(name, BackgroundMigrationInProgressKey, BackgroundStaleLockTimeout)
	case strings.HasPrefix(name, languageLockPrefix):
		rec := m.languageRecordLocked()
		return rec != nil && slices.Contains(rec.Locales, strings.TrimPrefix(name, languageLockPrefix))
	}
	return false
}

func (m *LockManager) flagHeldLocked(name, key string, stale time.Duration) bool {
	rec := kv.GetJSON[flagLock](m.kv, key)
	if rec == nil || !rec.InProgress {
		return false
	}
	if m.isStale(rec.StartedAt, stale) {
		util.WarnLog("Clearing stale %s migration lock (started %s)", name, time.UnixMilli(rec.StartedAt).Format(time.RFC3339))
		m.kv.RemoveItem(key)
		m.notifyLocked(name)
		return false
	}
	return true
}

// languageRecordLocked returns the per-language lock record, clearing it
// when stale
func (m *LockManager) languageRecordLocked() *setLock {
	rec := kv.GetJSON[setLock](m.kv, CurrentLanguageMigrationKey)
	if rec == nil || len(rec.Locales) == 0 {
		return nil
	}
	if m.isStale(rec.StartedAt, StaleLockTimeout) {
		util.WarnLog("Clearing stale language migration lock for %s", strings.Join(rec.Locales, ", "))
		m.kv.RemoveItem(CurrentLanguageMigrationKey)
		for _, l := range rec.Locales {
			m.notifyLocked(LockLanguage(l))
		}
		return nil
	}
	return rec
}

func (m *LockManager) setLocked(name string, held bool) bool {
	now := util.UnixMilli(m.clock)

	switch {
	case name == LockMain || name == LockBackground:
		key := MigrationInProgressKey
		if name == LockBackground {
			key = BackgroundMigrationInProgressKey
		}
		if held {
			return m.kv.SetJSON(key, flagLock{InProgress: true, StartedAt: now})
		}
		ok := m.kv.RemoveItem(key)
		m.notifyLocked(name)
		return ok

	case strings.HasPrefix(name, languageLockPrefix):
		locale := strings.TrimPrefix(name, languageLockPrefix)
		rec := m.languageRecordLocked()
		if rec == nil {
			rec = &setLock{}
		}
		if held {
			if !slices.Contains(rec.Locales, locale) {
				rec.Locales = append(rec.Locales, locale)
			}
			rec.StartedAt = now
			return m.kv.SetJSON(CurrentLanguageMigrationKey, rec)
		}
		rec.Locales = slices.DeleteFunc(rec.Locales, func(l string) bool { return l == locale })
		defer m.notifyLocked(name)
		if len(rec.Locales) == 0 {
			return m.kv.RemoveItem(CurrentLanguageMigrationKey)
		}
		return m.kv.SetJSON(CurrentLanguageMigrationKey, rec)
	}

	util.WarnLog("Unknown lock %q", name)
	return false
}

func (m *LockManager) isStale(startedAt int64, timeout time.Duration) bool {
	age := m.clock.Now().Sub(time.UnixMilli(startedAt))
	return age > timeout
}

func (m *LockManager) notifyLocked(name string) {
	for _, ch := range m.waiters[name] {
		close(ch)
	}
	delete(m.waiters, name)
}

func (m *LockManager) notifyAllLocked() {
	for name := range m.waiters {
		m.notifyLocked(name)
	}
}

func (m *LockManager) dropWaiter(name string, ch chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.waiters[name]
	for i, c := range list {
		if c == ch {
			m.waiters[name] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(m.waiters[name]) == 0 {
		delete(m.waiters, name)
	}
}
