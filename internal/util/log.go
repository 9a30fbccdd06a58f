package util

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

const (
	colorGray   = "\033[90m"
	colorCyan   = "\033[36m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorReset  = "\033[0m"
)

var (
	logMu           sync.Mutex
	currentLogLevel           = LevelInfo
	useColors                 = IsTerminal(os.Stderr.Fd())
	logOutput       io.Writer = os.Stderr
)

// SetLogLevel sets the minimum log level to display
func SetLogLevel(level LogLevel) {
	logMu.Lock()
	defer logMu.Unlock()
	currentLogLevel = level
}

// SetVerbose enables verbose (debug) logging
func SetVerbose(verbose bool) {
	if verbose {
		SetLogLevel(LevelDebug)
	}
}

// SetQuiet enables quiet mode (errors only)
func SetQuiet(quiet bool) {
	if quiet {
		SetLogLevel(LevelError)
	}
}

// IsQuiet reports whether only errors are being printed
func IsQuiet() bool {
	logMu.Lock()
	defer logMu.Unlock()
	return currentLogLevel >= LevelError
}

// SetColors enables or disables colored output
func SetColors(enabled bool) {
	logMu.Lock()
	defer logMu.Unlock()
	useColors = enabled
}

// SetOutput redirects log output. Passing nil restores stderr.
func SetOutput(w io.Writer) {
	logMu.Lock()
	defer logMu.Unlock()
	if w == nil {
		w = os.Stderr
	}
	logOutput = w
}

func logf(level LogLevel, tag, color, format string, args ...interface{}) {
	logMu.Lock()
	defer logMu.Unlock()

	if currentLogLevel > level {
		return
	}

	ts := time.Now().Format("15:04:05")
	if useColors {
		ts = color + ts + colorReset
	}
	fmt.Fprintf(logOutput, "%s %s %s\n", ts, tag, fmt.Sprintf(format, args...))
}

// DebugLog logs debug messages
func DebugLog(format string, args ...interface{}) {
	logf(LevelDebug, "[DEBUG]", colorGray, format, args...)
}

// InfoLog logs informational messages
func InfoLog(format string, args ...interface{}) {
	logf(LevelInfo, "[INFO] ", colorCyan, format, args...)
}

// WarnLog logs warning messages
func WarnLog(format string, args ...interface{}) {
	logf(LevelWarn, "[WARN] ", colorYellow, format, args...)
}

// ErrorLog logs error messages
func ErrorLog(format string, args ...interface{}) {
	logf(LevelError, "[ERROR]", colorRed, format, args...)
}

// SuccessLog logs success messages (always shown unless quiet)
func SuccessLog(format string, args ...interface{}) {
	logf(LevelInfo, "[OK]   ", colorGreen, format, args...)
}
