package main

import (
	"fmt"

	"github.com/franz/tilekeeper/internal/content"
	"github.com/franz/tilekeeper/internal/kv"
	"github.com/franz/tilekeeper/internal/migration"
	"github.com/franz/tilekeeper/internal/repair"
	"github.com/franz/tilekeeper/internal/report"
	"github.com/franz/tilekeeper/internal/status"
	"github.com/franz/tilekeeper/internal/store"
	"github.com/franz/tilekeeper/internal/transfer"
	"github.com/franz/tilekeeper/internal/util"
	"github.com/spf13/viper"
)

// app holds the components a command works with
type app struct {
	dbPath    string
	catalog   content.Catalog
	store     *store.Store
	kv        *kv.Store
	status    *status.Manager
	discovery *content.Discovery
	events    *report.EventLogger
	service   *migration.Service
}

// openApp opens both databases, the event log and the content source.
// opts may be nil.
func openApp(opts *migration.Options) (*app, error) {
	applyLogFlags()

	a := &app{
		dbPath:  viper.GetString("db"),
		catalog: catalogFromConfig(),
	}

	fsys, err := contentFS()
	if err != nil {
		return nil, err
	}

	util.DebugLog("Opening database: %s", a.dbPath)
	if a.store, err = store.Open(a.dbPath); err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if a.kv, err = kv.OpenBolt(viper.GetString("kv")); err != nil {
		a.store.Close()
		return nil, err
	}

	a.events, err = report.NewEventLogger(viper.GetString("artifacts"), eventLogLevel())
	if err != nil {
		util.WarnLog("Failed to create event logger: %v", err)
		a.events = report.NullLogger()
	}

	resolver := &content.LanguageResolver{
		Explicit:   viper.GetString("lang"),
		Configured: viper.GetString("language"),
		Prefs:      a.kv,
	}
	a.discovery = content.NewDiscovery(fsys, a.catalog, resolver)
	a.status = status.NewManager(a.kv, util.SystemClock{}, contentVersion())
	a.service = migration.New(a.store, a.status, a.discovery, a.events, opts)

	return a, nil
}

func (a *app) repairer() *repair.Repairer {
	return repair.New(a.store, a.events)
}

func (a *app) transfer() *transfer.Transfer {
	return transfer.New(a.store, nil, a.events)
}

// locale returns --lang or the detected language
func (a *app) locale() string {
	return a.discovery.CurrentLanguage()
}

// Close stops background work and releases every resource
func (a *app) Close() {
	a.service.Close()
	a.events.Close()
	a.kv.Close()
	a.store.Close()
}
