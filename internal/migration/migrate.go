package migration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/franz/tilekeeper/internal/importer"
	"github.com/franz/tilekeeper/internal/status"
	"github.com/franz/tilekeeper/internal/util"
)

// errNoContent is returned when a locale has no loadable bundle
var errNoContent = errors.New("no content available")

// RunMigrationIfNeeded migrates the current language unless it already is,
// then queues the other languages. A current language without content is
// skipped without being marked. When another caller holds the main
// lock it waits for that caller (up to the migration timeout) and reports
// whatever completion state it then finds.
func (s *Service) RunMigrationIfNeeded(ctx context.Context) bool {
	return util.SafeValue("run migration", false, func() (bool, error) {
		s.CheckAndHandleVersionChange()

		locale := s.content.CurrentLanguage()
		if s.status.IsCurrentLanguageMigrationCompleted(locale) {
			util.DebugLog("Language %s already migrated", locale)
			return true, nil
		}

		locks := s.status.Locks()
		if !locks.TryAcquire(status.LockMain) {
			util.InfoLog("Migration already in progress, waiting")
			if !locks.Wait(ctx, status.LockMain, s.opts.MigrationTimeout) {
				s.events.LogLock(status.LockMain, "wait timed out")
			}
			return s.status.IsCurrentLanguageMigrationCompleted(locale), nil
		}
		defer locks.Release(status.LockMain)

		if len(s.content.AvailableGameModes(locale)) == 0 {
			util.InfoLog("No content for %s, migrating the other languages", locale)
			s.QueueBackgroundMigration(locale)
			return true, nil
		}

		ok := s.MigrateCurrentLanguage(ctx, locale)
		s.QueueBackgroundMigration(locale)
		return ok, nil
	})
}

// MigrateCurrentLanguage imports every game mode of locale ("" means the
// current language) and marks it migrated. A failing game mode does not
// stop the others; the language is marked migrated when at least one game
// mode imported cleanly.
func (s *Service) MigrateCurrentLanguage(ctx context.Context, locale string) bool {
	if locale == "" {
		locale = s.content.CurrentLanguage()
	}

	return util.SafeValue("migrate language "+locale, false, func() (bool, error) {
		if s.status.IsCurrentLanguageMigrationCompleted(locale) {
			return true, nil
		}

		locks := s.status.Locks()
		lock := status.LockLanguage(locale)
		if !locks.TryAcquire(lock) {
			util.InfoLog("Migration of %s already in progress, waiting", locale)
			if !locks.Wait(ctx, lock, s.opts.MigrationTimeout) {
				s.events.LogLock(lock, "wait timed out")
			}
			return s.status.IsCurrentLanguageMigrationCompleted(locale), nil
		}
		defer locks.Release(lock)

		if err := s.migrateLanguage(ctx, locale, false); err != nil {
			return false, err
		}
		return true, nil
	})
}

// MigrateRemainingLanguages migrates every available language except
// exclude that is not migrated yet. It is a no-op when a background pass
// already runs. Each language is marked as soon as it completes, so an
// interrupted pass keeps its progress. Returns the languages migrated.
func (s *Service) MigrateRemainingLanguages(ctx context.Context, exclude string) []string {
	locks := s.status.Locks()
	if !locks.TryAcquire(status.LockBackground) {
		util.DebugLog("Background migration already running")
		return nil
	}
	s.status.MarkBackgroundMigrationInProgress(true)
	defer s.status.MarkBackgroundMigrationInProgress(false)

	available := s.content.AvailableLocales(ctx)

	var migrated []string
	for _, locale := range available {
		if ctx.Err() != nil {
			break
		}
		if locale == exclude || s.status.IsCurrentLanguageMigrationCompleted(locale) {
			continue
		}

		lock := status.LockLanguage(locale)
		if !locks.TryAcquire(lock) {
			util.DebugLog("Skipping %s: migration in progress elsewhere", locale)
			continue
		}
		err := util.LogError("background migration of "+locale, s.migrateLanguage(ctx, locale, true))
		locks.Release(lock)
		if err == nil {
			migrated = append(migrated, locale)
		}
	}

	if s.status.AllLanguagesMigrated(available) && !s.status.IsMigrationCompleted() {
		s.status.MarkMigrationComplete()
		util.SuccessLog("All languages migrated")
	}
	return migrated
}

// QueueBackgroundMigration schedules MigrateRemainingLanguages after the
// queue delay on its own goroutine. It never runs on the caller's stack.
func (s *Service) QueueBackgroundMigration(exclude string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(s.opts.QueueDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-s.bgCtx.Done():
			return
		}

		util.Safe("background migration", func() error {
			s.MigrateRemainingLanguages(s.bgCtx, exclude)
			return nil
		})
	}()
}

// WaitForBackground waits for queued work in this process and for a
// background pass held by another process, up to the background timeout
func (s *Service) WaitForBackground(ctx context.Context) bool {
	s.Wait()
	return s.status.Locks().Wait(ctx, status.LockBackground, s.opts.BackgroundMigrationTimeout)
}

// EnsureLanguageMigrated makes sure locale is migrated, for a language
// switch at runtime. Failures are logged and reported as false.
func (s *Service) EnsureLanguageMigrated(ctx context.Context, locale string) bool {
	if s.status.IsCurrentLanguageMigrationCompleted(locale) {
		return true
	}
	if s.status.IsLanguageMigrationInProgress(locale) {
		s.status.Locks().Wait(ctx, status.LockLanguage(locale), s.opts.MigrationTimeout)
		if s.status.IsCurrentLanguageMigrationCompleted(locale) {
			return true
		}
	}
	return s.MigrateCurrentLanguage(ctx, locale)
}

// ForceFreshMigration clears all migration status and every group and tile
func (s *Service) ForceFreshMigration(ctx context.Context) error {
	util.WarnLog("Forcing fresh migration: clearing status and all content")
	s.status.ResetMigrationStatus()
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear store: %w", err)
	}
	return nil
}

// migrateLanguage imports every game mode of locale, cleans duplicates and
// marks the language migrated. The caller holds the language lock.
func (s *Service) migrateLanguage(ctx context.Context, locale string, background bool) error {
	start := time.Now()

	modes := s.content.AvailableGameModes(locale)
	if len(modes) == 0 {
		s.events.LogMigrate(locale, 0, 0, time.Since(start), errNoContent)
		return fmt.Errorf("%s: %w", locale, errNoContent)
	}

	var (
		total    importer.Result
		failures int
	)
	for i, mode := range modes {
		if background && i > 0 {
			if err := sleep(ctx, s.opts.BackgroundDelay); err != nil {
				return err
			}
		}

		res, err := s.importer.ImportGroupsForLocaleAndGameMode(ctx, locale, mode)
		if err != nil {
			failures++
			util.WarnLog("Import of %s/%s failed: %v", locale, mode, err)
		}
		total.Add(res)

		if _, err := s.importer.CleanupDuplicateGroupsFor(ctx, locale, mode); err != nil {
			util.WarnLog("Duplicate cleanup of %s/%s failed: %v", locale, mode, err)
		}

		s.progress(Progress{Locale: locale, GameMode: mode, Background: background, Groups: res.Groups, Tiles: res.Tiles, Err: err})
	}

	if failures == len(modes) {
		err := fmt.Errorf("every game mode of %s failed to import", locale)
		s.events.LogMigrate(locale, total.Groups, total.Tiles, time.Since(start), err)
		return err
	}

	s.status.MarkLanguageMigrated(locale)
	s.events.LogMigrate(locale, total.Groups, total.Tiles, time.Since(start), nil)
	util.InfoLog("Migrated %s: %d groups, %d tiles", locale, total.Groups, total.Tiles)
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
