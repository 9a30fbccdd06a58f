package transfer

import (
	"bufio"
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Legacy text format:
//
//	## <groupName>
//	# <intensityLabel>
//	<action line>
//
// Blank lines are ignored. A repeated group header continues that group.

// ExportLegacy writes the selected user groups in the legacy text format.
// Custom tiles of bundled groups have no legacy representation and are left
// out.
func (t *Transfer) ExportLegacy(opts ExportOptions) (string, error) {
	doc, err := t.collect(opts)
	if err != nil {
		return "", err
	}

	names := make([]string, 0, len(doc.Groups))
	for name := range doc.Groups {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteString("\n")
		}
		g := doc.Groups[name]
		fmt.Fprintf(&b, "## %s\n", name)
		for _, label := range g.Intensities {
			fmt.Fprintf(&b, "# %s\n", label)
			for _, action := range g.Actions[label] {
				b.WriteString(action)
				b.WriteString("\n")
			}
		}
	}

	t.events.LogExport(opts.Locale, "legacy", len(names))
	return b.String(), nil
}

// ImportLegacy imports text in the legacy format. Groups are processed in
// file order.
func (t *Transfer) ImportLegacy(ctx context.Context, text string, opts ImportOptions) *ImportResult {
	res := &ImportResult{}

	order, groups, problems := ParseLegacy(text)
	res.Errors = append(res.Errors, problems...)
	if len(order) == 0 {
		if len(problems) == 0 {
			res.errorf("No groups found in legacy data")
		}
		return res.finish()
	}

	locale := opts.Locale
	if locale == "" {
		res.errorf("No target locale given for legacy import")
		return res.finish()
	}
	mode := opts.GameMode
	if mode == "" {
		mode = DefaultGameMode
	}
	strategy := opts.Strategy
	if strategy == "" {
		strategy = StrategySkip
	}

	for _, name := range order {
		if ctx.Err() != nil {
			res.errorf("Import cancelled: %v", ctx.Err())
			break
		}
		t.importGroup(ctx, name, groups[name], locale, mode, strategy, res)
	}
	return res.finish()
}

// ParseLegacy parses the legacy text format. It returns the group names in
// file order, the groups, and one message per malformed line.
func ParseLegacy(text string) ([]string, map[string]CleanGroup, []string) {
	var (
		order    []string
		problems []string
		current  string
		level    string
	)
	groups := make(map[string]CleanGroup)

	scanner := bufio.NewScanner(strings.NewReader(text))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue

		case strings.HasPrefix(line, "##"):
			name := strings.TrimSpace(strings.TrimPrefix(line, "##"))
			if name == "" {
				problems = append(problems, fmt.Sprintf("line %d: empty group name", lineNo))
				current = ""
				continue
			}
			if _, ok := groups[name]; !ok {
				order = append(order, name)
				groups[name] = CleanGroup{Label: name, Actions: make(map[string][]string)}
			}
			current, level = name, ""

		case strings.HasPrefix(line, "#"):
			label := strings.TrimSpace(strings.TrimPrefix(line, "#"))
			if current == "" {
				problems = append(problems, fmt.Sprintf("line %d: intensity %q outside of a group", lineNo, label))
				continue
			}
			if label == "" {
				problems = append(problems, fmt.Sprintf("line %d: empty intensity label", lineNo))
				level = ""
				continue
			}
			g := groups[current]
			if !slices.Contains(g.Intensities, label) {
				g.Intensities = append(g.Intensities, label)
				groups[current] = g
			}
			level = label

		default:
			if current == "" || level == "" {
				problems = append(problems, fmt.Sprintf("line %d: action outside of a group intensity", lineNo))
				continue
			}
			groups[current].Actions[level] = append(groups[current].Actions[level], line)
		}
	}
	if err := scanner.Err(); err != nil {
		problems = append(problems, fmt.Sprintf("failed to read legacy data: %v", err))
	}

	return order, groups, problems
}
