package report

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/franz/tilekeeper/internal/store"
	"github.com/tidwall/gjson"
)

// SummaryReport is a point-in-time view of the content store and its
// migration state
type SummaryReport struct {
	GeneratedAt time.Time

	// Migration state, filled in by the caller
	Status StatusInfo

	// Store statistics
	TotalGroups         int
	DefaultGroups       int
	UserGroups          int
	TotalTiles          int
	CustomTiles         int
	TilesMissingGroupID int
	Scopes              []ScopeSummary

	// Problems found by audit and integrity checks, filled in by the caller
	Issues []string

	// Event log statistics
	EventCounts map[string]int
	TopErrors   []ErrorSummary

	// Metadata
	DatabasePath string
	DatabaseSize int64
	EventLogPath string
}

// StatusInfo is the migration status shown in a report
type StatusInfo struct {
	Version              string
	Completed            bool
	CompletedAt          time.Time
	InProgress           bool
	BackgroundInProgress bool
	MigratedLanguages    []string
	PendingLanguages     []string
}

// ScopeSummary counts content for one locale and game mode
type ScopeSummary struct {
	Locale        string
	GameMode      string
	DefaultGroups int
	UserGroups    int
	Tiles         int
	CustomTiles   int
}

// ErrorSummary represents an error with its count
type ErrorSummary struct {
	Error string
	Count int
}

// GenerateSummaryReport collects store statistics and, when eventLogPath is
// set, event log statistics
func GenerateSummaryReport(db *store.Store, eventLogPath string) (*SummaryReport, error) {
	report := &SummaryReport{
		GeneratedAt:  time.Now(),
		EventLogPath: eventLogPath,
		Scopes:       make([]ScopeSummary, 0),
		TopErrors:    make([]ErrorSummary, 0),
		EventCounts:  make(map[string]int),
	}

	groups, err := db.ListGroups()
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	tiles, err := db.ListTiles()
	if err != nil {
		return nil, fmt.Errorf("failed to list tiles: %w", err)
	}

	type scopeKey struct{ locale, mode string }
	scopes := make(map[scopeKey]*ScopeSummary)
	scope := func(locale, mode string) *ScopeSummary {
		k := scopeKey{locale, mode}
		s, ok := scopes[k]
		if !ok {
			s = &ScopeSummary{Locale: locale, GameMode: mode}
			scopes[k] = s
		}
		return s
	}

	for _, g := range groups {
		report.TotalGroups++
		s := scope(g.Locale, g.GameMode)
		if g.IsDefault {
			report.DefaultGroups++
			s.DefaultGroups++
		} else {
			report.UserGroups++
			s.UserGroups++
		}
	}
	for _, t := range tiles {
		report.TotalTiles++
		s := scope(t.Locale, t.GameMode)
		s.Tiles++
		if t.IsCustom {
			report.CustomTiles++
			s.CustomTiles++
		}
		if t.GroupID == "" {
			report.TilesMissingGroupID++
		}
	}

	for _, s := range scopes {
		report.Scopes = append(report.Scopes, *s)
	}
	sort.Slice(report.Scopes, func(i, j int) bool {
		if report.Scopes[i].Locale != report.Scopes[j].Locale {
			return report.Scopes[i].Locale < report.Scopes[j].Locale
		}
		return report.Scopes[i].GameMode < report.Scopes[j].GameMode
	})

	if eventLogPath != "" {
		counts, top, err := gatherEventStats(eventLogPath, 10)
		if err != nil {
			return nil, err
		}
		report.EventCounts = counts
		report.TopErrors = top
	}

	return report, nil
}

// gatherEventStats counts events by type and the most common errors
func gatherEventStats(path string, limit int) (map[string]int, []ErrorSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open event log: %w", err)
	}
	defer f.Close()

	counts := make(map[string]int)
	errorCounts := make(map[string]int)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !gjson.Valid(line) {
			continue
		}
		fields := gjson.GetMany(line, "event", "error")
		if name := fields[0].String(); name != "" {
			counts[name]++
		}
		if msg := fields[1].String(); msg != "" {
			errorCounts[msg]++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read event log: %w", err)
	}

	errors := make([]ErrorSummary, 0, len(errorCounts))
	for msg, count := range errorCounts {
		errors = append(errors, ErrorSummary{Error: msg, Count: count})
	}
	sort.Slice(errors, func(i, j int) bool {
		if errors[i].Count != errors[j].Count {
			return errors[i].Count > errors[j].Count
		}
		return errors[i].Error < errors[j].Error
	})
	if len(errors) > limit {
		errors = errors[:limit]
	}

	return counts, errors, nil
}

// WriteMarkdownReport writes the summary report as Markdown
func WriteMarkdownReport(report *SummaryReport, outputPath string) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := os.WriteFile(outputPath, []byte(RenderMarkdown(report)), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// RenderMarkdown renders the summary report as Markdown
func RenderMarkdown(report *SummaryReport) string {
	var md strings.Builder

	md.WriteString("# Tilekeeper - Migration Report\n\n")
	md.WriteString(fmt.Sprintf("**Generated:** %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05")))

	if report.DatabasePath != "" {
		md.WriteString(fmt.Sprintf("**Database:** `%s`", report.DatabasePath))
		if report.DatabaseSize > 0 {
			md.WriteString(fmt.Sprintf(" (%s)", humanize.Bytes(uint64(report.DatabaseSize))))
		}
		md.WriteString("\n\n")
	}
	if report.EventLogPath != "" {
		md.WriteString(fmt.Sprintf("**Event Log:** `%s`\n\n", report.EventLogPath))
	}

	md.WriteString("---\n\n")

	// Migration
	st := report.Status
	md.WriteString("## Migration\n\n")
	md.WriteString("| Metric | Value |\n")
	md.WriteString("|--------|-------|\n")
	if st.Version != "" {
		md.WriteString(fmt.Sprintf("| Version | %s |\n", st.Version))
	}
	if st.Completed {
		md.WriteString(fmt.Sprintf("| Completed | yes (%s) |\n", humanize.RelTime(st.CompletedAt, report.GeneratedAt, "ago", "from now")))
	} else {
		md.WriteString("| Completed | no |\n")
	}
	if st.InProgress {
		md.WriteString("| In Progress | yes |\n")
	}
	if st.BackgroundInProgress {
		md.WriteString("| Background Migration | running |\n")
	}
	md.WriteString(fmt.Sprintf("| Migrated Languages | %s |\n", listOrNone(st.MigratedLanguages)))
	if len(st.PendingLanguages) > 0 {
		md.WriteString(fmt.Sprintf("| Pending Languages | %s |\n", strings.Join(st.PendingLanguages, ", ")))
	}
	md.WriteString("\n")

	// Overview
	md.WriteString("## Content\n\n")
	md.WriteString("| Metric | Value |\n")
	md.WriteString("|--------|-------|\n")
	md.WriteString(fmt.Sprintf("| Groups | %s |\n", humanize.Comma(int64(report.TotalGroups))))
	md.WriteString(fmt.Sprintf("| Bundled Groups | %s |\n", humanize.Comma(int64(report.DefaultGroups))))
	md.WriteString(fmt.Sprintf("| User Groups | %s |\n", humanize.Comma(int64(report.UserGroups))))
	md.WriteString(fmt.Sprintf("| Tiles | %s |\n", humanize.Comma(int64(report.TotalTiles))))
	md.WriteString(fmt.Sprintf("| Custom Tiles | %s |\n", humanize.Comma(int64(report.CustomTiles))))
	if report.TilesMissingGroupID > 0 {
		md.WriteString(fmt.Sprintf("| Tiles Missing Group ID | %s |\n", humanize.Comma(int64(report.TilesMissingGroupID))))
	}
	md.WriteString("\n")

	if len(report.Scopes) > 0 {
		md.WriteString("## By Language\n\n")
		md.WriteString("| Locale | Game Mode | Bundled Groups | User Groups | Tiles | Custom Tiles |\n")
		md.WriteString("|--------|-----------|----------------|-------------|-------|--------------|\n")
		for _, s := range report.Scopes {
			md.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %d | %d |\n",
				s.Locale, s.GameMode, s.DefaultGroups, s.UserGroups, s.Tiles, s.CustomTiles))
		}
		md.WriteString("\n")
	}

	if len(report.Issues) > 0 {
		md.WriteString("## Issues\n\n")
		for _, issue := range report.Issues {
			md.WriteString(fmt.Sprintf("- %s\n", issue))
		}
		md.WriteString("\n")
	}

	if len(report.EventCounts) > 0 {
		names := make([]string, 0, len(report.EventCounts))
		for name := range report.EventCounts {
			names = append(names, name)
		}
		sort.Strings(names)

		md.WriteString("## Events\n\n")
		md.WriteString("| Event | Count |\n")
		md.WriteString("|-------|-------|\n")
		for _, name := range names {
			md.WriteString(fmt.Sprintf("| %s | %d |\n", name, report.EventCounts[name]))
		}
		md.WriteString("\n")
	}

	if len(report.TopErrors) > 0 {
		md.WriteString("## Top Errors\n\n")
		md.WriteString("| Count | Error |\n")
		md.WriteString("|-------|-------|\n")
		for _, err := range report.TopErrors {
			md.WriteString(fmt.Sprintf("| %d | %s |\n", err.Count, truncate(err.Error, 120)))
		}
		md.WriteString("\n")
	}

	md.WriteString("---\n\n")
	md.WriteString("*Generated by tkp*\n")

	return md.String()
}

func listOrNone(list []string) string {
	if len(list) == 0 {
		return "none"
	}
	return strings.Join(list, ", ")
}

// truncate shortens s to maxLen, keeping its start and end
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	start := maxLen/2 - 2
	end := len(s) - (maxLen/2 - 2)
	return s[:start] + "..." + s[end:]
}
