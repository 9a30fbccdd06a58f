// Package status tracks migration progress in the key/value store: completion
// markers for the whole migration and for each language, and the advisory
// locks that keep concurrent migrations from running the same work twice.
package status

import "time"

// Key/value store keys
const (
	MigrationKey                     = "MIGRATION_KEY"
	BackgroundMigrationKey           = "BACKGROUND_MIGRATION_KEY"
	MigrationInProgressKey           = "MIGRATION_IN_PROGRESS_KEY"
	CurrentLanguageMigrationKey      = "CURRENT_LANGUAGE_MIGRATION_KEY"
	BackgroundMigrationInProgressKey = "BACKGROUND_MIGRATION_IN_PROGRESS_KEY"
)

// AllKeys lists every key owned by this package
var AllKeys = []string{
	MigrationKey,
	BackgroundMigrationKey,
	MigrationInProgressKey,
	CurrentLanguageMigrationKey,
	BackgroundMigrationInProgressKey,
}

// Timeouts
const (
	MigrationTimeout              = 30 * time.Second
	BackgroundMigrationTimeout    = 10 * time.Minute
	StaleLockTimeout              = 5 * time.Minute
	BackgroundStaleLockTimeout    = 10 * time.Minute
	BackgroundMigrationDelay      = 10 * time.Millisecond
	QueueBackgroundMigrationDelay = 1 * time.Second
	PollInterval                  = 50 * time.Millisecond
)

// DefaultVersion is the content/schema version stamped on status records
// when none is configured
const DefaultVersion = "2.0.0"

// MainStatus is the global "everything migrated" marker
type MainStatus struct {
	Version     string `json:"version"`
	Completed   bool   `json:"completed"`
	CompletedAt int64  `json:"completedAt"`
}

// BackgroundStatus is the per-language completion ledger
type BackgroundStatus struct {
	Version            string   `json:"version"`
	CompletedLanguages []string `json:"completedLanguages"`
	InProgress         bool     `json:"inProgress"`
	StartedAt          int64    `json:"startedAt,omitempty"`
	CompletedAt        int64    `json:"completedAt,omitempty"`
}

// HasLanguage reports whether locale is in the completed set
func (b *BackgroundStatus) HasLanguage(locale string) bool {
	if b == nil {
		return false
	}
	for _, l := range b.CompletedLanguages {
		if l == locale {
			return true
		}
	}
	return false
}

// flagLock is the record of the main and background locks
type flagLock struct {
	InProgress bool  `json:"inProgress"`
	StartedAt  int64 `json:"startedAt"`
}

// setLock is the record of the per-language lock: the set of locales whose
// migration is in flight
type setLock struct {
	Locales   []string `json:"locales"`
	StartedAt int64    `json:"startedAt"`
}
