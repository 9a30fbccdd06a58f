package content

import (
	"fmt"

	"github.com/franz/tilekeeper/internal/util"
	"github.com/tidwall/gjson"
)

// Level is one intensity level of a bundled group, in file order
type Level struct {
	Label   string
	Actions []string
}

// GroupEntry is one group of a bundle
type GroupEntry struct {
	Name   string
	Label  string
	Type   string
	Levels []Level
}

// TileCount returns the number of action strings across all levels
func (g *GroupEntry) TileCount() int {
	n := 0
	for _, l := range g.Levels {
		n += len(l.Actions)
	}
	return n
}

// Bundle is the parsed content of one (locale, gameMode) file. Entries keep
// the file's key order. Entries that failed validation are listed in
// Invalid and left out of Groups.
type Bundle struct {
	Locale   string
	GameMode string
	Groups   []*GroupEntry
	Invalid  []*BundleError
}

// Group returns the entry named name, or nil
func (b *Bundle) Group(name string) *GroupEntry {
	for _, g := range b.Groups {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// Names returns the valid group names in file order
func (b *Bundle) Names() []string {
	names := make([]string, len(b.Groups))
	for i, g := range b.Groups {
		names[i] = g.Name
	}
	return names
}

// BundleError describes malformed bundle content
type BundleError struct {
	Path   string
	Group  string
	Reason string
}

func (e *BundleError) Error() string {
	switch {
	case e.Group != "":
		return fmt.Sprintf("bundle %s: group %q: %s", e.Path, e.Group, e.Reason)
	default:
		return fmt.Sprintf("bundle %s: %s", e.Path, e.Reason)
	}
}

func (e *BundleError) Unwrap() error {
	return util.ErrInvalidFormat
}

// ParseBundle parses bundle JSON of the shape
//
//	{"<group>": {"label": str, "type": str, "actions": {"<level>": [str, ...]}}}
//
// A document that is not a JSON object fails as a whole; individual bad
// entries are collected in Bundle.Invalid.
func ParseBundle(path string, data []byte) (*Bundle, error) {
	if !gjson.ValidBytes(data) {
		return nil, &BundleError{Path: path, Reason: "invalid JSON"}
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, &BundleError{Path: path, Reason: "top level must be an object of groups"}
	}

	bundle := &Bundle{}
	root.ForEach(func(key, value gjson.Result) bool {
		entry, err := parseGroupEntry(path, key.String(), value)
		if err != nil {
			bundle.Invalid = append(bundle.Invalid, err)
			return true
		}
		bundle.Groups = append(bundle.Groups, entry)
		return true
	})

	return bundle, nil
}

func parseGroupEntry(path, name string, value gjson.Result) (*GroupEntry, *BundleError) {
	fail := func(reason string) (*GroupEntry, *BundleError) {
		return nil, &BundleError{Path: path, Group: name, Reason: reason}
	}

	if name == "" {
		return fail("empty group name")
	}
	if !value.IsObject() {
		return fail("entry must be an object")
	}

	actions := value.Get("actions")
	if !actions.Exists() || !actions.IsObject() {
		return fail("missing actions object")
	}

	entry := &GroupEntry{
		Name:  name,
		Label: value.Get("label").String(),
		Type:  value.Get("type").String(),
	}

	var bad *BundleError
	actions.ForEach(func(level, list gjson.Result) bool {
		if !list.IsArray() {
			_, bad = fail(fmt.Sprintf("level %q must be an array of strings", level.String()))
			return false
		}
		l := Level{Label: level.String()}
		for _, item := range list.Array() {
			if item.Type != gjson.String {
				_, bad = fail(fmt.Sprintf("level %q contains a non-string action", level.String()))
				return false
			}
			l.Actions = append(l.Actions, item.String())
		}
		entry.Levels = append(entry.Levels, l)
		return true
	})
	if bad != nil {
		return nil, bad
	}

	if len(entry.Levels) == 0 {
		return fail("actions object has no levels")
	}

	return entry, nil
}
