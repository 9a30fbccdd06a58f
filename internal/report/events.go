package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	EventMigrate   EventType = "migrate"
	EventImport    EventType = "import"
	EventSkip      EventType = "skip"
	EventDuplicate EventType = "duplicate"
	EventRepair    EventType = "repair"
	EventExport    EventType = "export"
	EventTransfer  EventType = "transfer"
	EventLock      EventType = "lock"
	EventError     EventType = "error"
)

// EventLevel represents the severity level
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

// levelPriority maps event levels to numeric priorities for comparison
var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// ParseLevel maps a level name to an EventLevel, defaulting to info
func ParseLevel(s string) EventLevel {
	level := EventLevel(s)
	if _, ok := levelPriority[level]; ok {
		return level
	}
	return LevelInfo
}

// Event represents a single audit event
type Event struct {
	Timestamp time.Time         `json:"ts"`
	Level     EventLevel        `json:"level"`
	Event     EventType         `json:"event"`
	Locale    string            `json:"locale,omitempty"`
	GameMode  string            `json:"game_mode,omitempty"`
	GroupID   string            `json:"group_id,omitempty"`
	GroupName string            `json:"group_name,omitempty"`
	Action    string            `json:"action,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Count     int               `json:"count,omitempty"`
	Duration  int64             `json:"duration_ms,omitempty"` // in milliseconds
	Error     string            `json:"error,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// EventLogger writes events to a JSONL file
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	minLevel EventLevel
}

// NewEventLogger creates a new event logger with a minimum log level
// minLevel determines which events are written (e.g., LevelInfo skips LevelDebug)
func NewEventLogger(outputDir string, minLevel EventLevel) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("events-%s.jsonl", timestamp)
	path := filepath.Join(outputDir, filename)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		minLevel: minLevel,
	}, nil
}

// Log writes an event to the JSONL file
func (l *EventLogger) Log(event *Event) error {
	if l == nil || l.file == nil {
		return nil // Silently ignore if logger not initialized
	}

	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	return nil
}

// LogMigrate logs the outcome of migrating one language
func (l *EventLogger) LogMigrate(locale string, groups, tiles int, duration time.Duration, err error) error {
	level := LevelInfo
	errMsg := ""
	if err != nil {
		level = LevelError
		errMsg = err.Error()
	}

	return l.Log(&Event{
		Level:    level,
		Event:    EventMigrate,
		Locale:   locale,
		Count:    groups,
		Duration: duration.Milliseconds(),
		Error:    errMsg,
		Extra: map[string]string{
			"tiles": fmt.Sprintf("%d", tiles),
		},
	})
}

// LogImport logs a group imported from bundled content
func (l *EventLogger) LogImport(locale, gameMode, groupID, groupName string, tiles int) error {
	return l.Log(&Event{
		Level:     LevelInfo,
		Event:     EventImport,
		Locale:    locale,
		GameMode:  gameMode,
		GroupID:   groupID,
		GroupName: groupName,
		Count:     tiles,
	})
}

// LogSkip logs a group that was not imported
func (l *EventLogger) LogSkip(locale, gameMode, groupName, reason string) error {
	return l.Log(&Event{
		Level:     LevelDebug,
		Event:     EventSkip,
		Locale:    locale,
		GameMode:  gameMode,
		GroupName: groupName,
		Reason:    reason,
	})
}

// LogDuplicate logs removal of duplicate groups sharing one name
func (l *EventLogger) LogDuplicate(locale, gameMode, groupName, keptID string, removedIDs []string) error {
	return l.Log(&Event{
		Level:     LevelWarning,
		Event:     EventDuplicate,
		Locale:    locale,
		GameMode:  gameMode,
		GroupID:   keptID,
		GroupName: groupName,
		Count:     len(removedIDs),
	})
}

// LogRepair logs one group-id repair action (rekey, backfill, ...)
func (l *EventLogger) LogRepair(action, groupID, reason string, count int) error {
	return l.Log(&Event{
		Level:   LevelInfo,
		Event:   EventRepair,
		GroupID: groupID,
		Action:  action,
		Reason:  reason,
		Count:   count,
	})
}

// LogExport logs an export of user content
func (l *EventLogger) LogExport(locale, format string, groups int) error {
	return l.Log(&Event{
		Level:  LevelInfo,
		Event:  EventExport,
		Locale: locale,
		Action: format,
		Count:  groups,
	})
}

// LogTransfer logs an imported user group and the merge strategy applied
func (l *EventLogger) LogTransfer(groupName, strategy string, tiles int, err error) error {
	level := LevelInfo
	errMsg := ""
	if err != nil {
		level = LevelError
		errMsg = err.Error()
	}

	return l.Log(&Event{
		Level:     level,
		Event:     EventTransfer,
		GroupName: groupName,
		Action:    strategy,
		Count:     tiles,
		Error:     errMsg,
	})
}

// LogLock logs a lock wait that gave up or a stale lock being cleared
func (l *EventLogger) LogLock(lock, reason string) error {
	return l.Log(&Event{
		Level:  LevelWarning,
		Event:  EventLock,
		Action: lock,
		Reason: reason,
	})
}

// LogError logs an error event
func (l *EventLogger) LogError(event EventType, target string, err error) error {
	return l.Log(&Event{
		Level:  LevelError,
		Event:  event,
		Reason: target,
		Error:  err.Error(),
	})
}

// Close closes the event log file
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}

// Path returns the path to the event log file
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// NullLogger returns a no-op event logger
func NullLogger() *EventLogger {
	return nil
}
