package repair

import (
	"github.com/franz/tilekeeper/internal/groupid"
	"github.com/franz/tilekeeper/internal/store"
)

// groupFinder is satisfied by *store.Store and *store.Tx
type groupFinder interface {
	FindGroups(f store.GroupFilter) ([]*store.Group, error)
}

// ResolveGroupID returns the group id a tile of (groupName, locale,
// gameMode) should link to. Default content always resolves to its
// deterministic id, whether or not that group exists yet. User content is
// looked up with progressively looser matches; "" means no group matched.
func (r *Repairer) ResolveGroupID(groupName, locale, gameMode string, isDefault bool) (string, error) {
	return resolveGroupID(r.store, groupName, locale, gameMode, isDefault)
}

func resolveGroupID(q groupFinder, groupName, locale, gameMode string, isDefault bool) (string, error) {
	if isDefault {
		return groupid.Deterministic(groupName, locale, gameMode), nil
	}

	exact, err := q.FindGroups(store.GroupFilter{Name: groupName, Locale: locale, GameMode: gameMode})
	if err != nil {
		return "", err
	}
	if len(exact) > 0 {
		return exact[0].ID, nil
	}

	byLocale, err := q.FindGroups(store.GroupFilter{Name: groupName, Locale: locale})
	if err != nil {
		return "", err
	}
	if len(byLocale) > 0 {
		return byLocale[0].ID, nil
	}

	byName, err := q.FindGroups(store.GroupFilter{Name: groupName})
	if err != nil {
		return "", err
	}
	switch len(byName) {
	case 0:
		return "", nil
	case 1:
		return byName[0].ID, nil
	}
	for _, g := range byName {
		if g.Locale == locale || g.GameMode == gameMode {
			return g.ID, nil
		}
	}
	return byName[0].ID, nil
}
