package transfer

import (
	"fmt"
	"strings"

	"github.com/franz/tilekeeper/internal/store"
	"github.com/franz/tilekeeper/internal/util"
)

// Validator checks a group and its actions (keyed by intensity value)
// before it is written
type Validator interface {
	ValidateGroup(g *store.Group, actions map[int][]string) error
}

// RuleValidator is the default Validator
type RuleValidator struct {
	MaxNameLength   int // default 64
	MaxActionLength int // default 500
}

// ValidateGroup enforces name, label, intensity and action rules
func (v RuleValidator) ValidateGroup(g *store.Group, actions map[int][]string) error {
	maxName := v.MaxNameLength
	if maxName <= 0 {
		maxName = 64
	}
	maxAction := v.MaxActionLength
	if maxAction <= 0 {
		maxAction = 500
	}

	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", util.ErrValidation, fmt.Sprintf(format, args...))
	}

	name := strings.TrimSpace(g.Name)
	switch {
	case name == "":
		return fail("group name is required")
	case len(name) > maxName:
		return fail("group name longer than %d characters", maxName)
	case strings.TrimSpace(g.Label) == "":
		return fail("group label is required")
	case len(g.Intensities) == 0:
		return fail("group needs at least one intensity")
	}

	values := make(map[int]bool, len(g.Intensities))
	for _, in := range g.Intensities {
		if strings.TrimSpace(in.Label) == "" {
			return fail("intensity %d has no label", in.Value)
		}
		if values[in.Value] {
			return fail("duplicate intensity value %d", in.Value)
		}
		values[in.Value] = true
	}

	for value, list := range actions {
		if !values[value] {
			return fail("actions reference unknown intensity %d", value)
		}
		for _, a := range list {
			if strings.TrimSpace(a) == "" {
				return fail("empty action at intensity %d", value)
			}
			if len(a) > maxAction {
				return fail("action longer than %d characters", maxAction)
			}
		}
	}
	return nil
}
