// Package migration sequences content import: it migrates the active
// language synchronously, queues the remaining languages in the background
// and exposes status, reset and integrity operations.
//
// Migration is an enhancement, not a hard dependency. Every entry point
// logs failures and reports them as false or an empty result; nothing here
// should stop the caller from continuing with whatever content exists.
package migration

import (
	"context"
	"sync"
	"time"

	"github.com/franz/tilekeeper/internal/content"
	"github.com/franz/tilekeeper/internal/importer"
	"github.com/franz/tilekeeper/internal/report"
	"github.com/franz/tilekeeper/internal/status"
	"github.com/franz/tilekeeper/internal/store"
)

// Options tunes timeouts and hooks. Zero values use the status package
// defaults.
type Options struct {
	MigrationTimeout           time.Duration // wait for an in-flight main or language migration
	BackgroundMigrationTimeout time.Duration // wait for an in-flight background migration
	BackgroundDelay            time.Duration // pause between game modes in background passes
	QueueDelay                 time.Duration // delay before queued background work starts
	PollInterval               time.Duration // lock polling granularity
	Progress                   func(Progress)
}

func (o *Options) withDefaults() Options {
	var out Options
	if o != nil {
		out = *o
	}
	if out.MigrationTimeout <= 0 {
		out.MigrationTimeout = status.MigrationTimeout
	}
	if out.BackgroundMigrationTimeout <= 0 {
		out.BackgroundMigrationTimeout = status.BackgroundMigrationTimeout
	}
	if out.BackgroundDelay <= 0 {
		out.BackgroundDelay = status.BackgroundMigrationDelay
	}
	if out.QueueDelay <= 0 {
		out.QueueDelay = status.QueueBackgroundMigrationDelay
	}
	if out.PollInterval <= 0 {
		out.PollInterval = status.PollInterval
	}
	return out
}

// Progress is reported after each (locale, gameMode) import
type Progress struct {
	Locale     string
	GameMode   string
	Background bool
	Groups     int
	Tiles      int
	Err        error
}

// Service is the migration entry point
type Service struct {
	store    *store.Store
	status   *status.Manager
	versions *status.VersionManager
	content  *content.Discovery
	importer *importer.Importer
	events   *report.EventLogger
	opts     Options

	bgCtx    context.Context
	bgCancel context.CancelFunc
	wg       sync.WaitGroup
}

// New creates a Service. events and opts may be nil.
func New(st *store.Store, statusMgr *status.Manager, discovery *content.Discovery, events *report.EventLogger, opts *Options) *Service {
	o := opts.withDefaults()
	statusMgr.Locks().SetPollInterval(o.PollInterval)

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		store:    st,
		status:   statusMgr,
		versions: status.NewVersionManager(statusMgr),
		content:  discovery,
		importer: importer.New(st, discovery, events),
		events:   events,
		opts:     o,
		bgCtx:    ctx,
		bgCancel: cancel,
	}
}

// Importer returns the importer used by the service
func (s *Service) Importer() *importer.Importer {
	return s.importer
}

// Status returns the status manager used by the service
func (s *Service) Status() *status.Manager {
	return s.status
}

// Wait blocks until queued background work has finished
func (s *Service) Wait() {
	s.wg.Wait()
}

// Close cancels queued background work and waits for it to stop
func (s *Service) Close() {
	s.bgCancel()
	s.wg.Wait()
}

// IsMigrationCompleted reports whether every language has been migrated at
// the current version
func (s *Service) IsMigrationCompleted() bool {
	return s.status.IsMigrationCompleted()
}

// IsCurrentLanguageMigrationCompleted reports whether locale has been migrated
func (s *Service) IsCurrentLanguageMigrationCompleted(locale string) bool {
	return s.status.IsCurrentLanguageMigrationCompleted(locale)
}

// GetMigrationStatus returns a snapshot of the migration status records
func (s *Service) GetMigrationStatus() status.Snapshot {
	return s.status.GetMigrationStatus()
}

// ResetMigrationStatus clears every status and lock record. Content in the
// store is kept; the next run re-imports only what is missing.
func (s *Service) ResetMigrationStatus() bool {
	return s.status.ResetMigrationStatus()
}

// CheckAndHandleVersionChange wipes migration status recorded under an
// older content version
func (s *Service) CheckAndHandleVersionChange() status.VersionChange {
	return s.versions.CheckAndHandleVersionChange()
}

func (s *Service) progress(p Progress) {
	if s.opts.Progress != nil {
		s.opts.Progress(p)
	}
}
