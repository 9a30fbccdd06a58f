package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/franz/tilekeeper/internal/util"
)

const groupColumns = `id, name, label, type, intensities_json, is_default,
	locale, game_mode, created_at, updated_at`

// InsertGroup inserts a new group. Returns a util.ErrConflict-wrapped error
// when a group with the same id already exists.
func (t *tables) InsertGroup(g *Group) error {
	if strings.TrimSpace(g.ID) == "" {
		return fmt.Errorf("insert group %q: %w: id is required", g.Name, util.ErrValidation)
	}

	now := t.clock.Now()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	if g.UpdatedAt.IsZero() {
		g.UpdatedAt = now
	}

	intensities, err := json.Marshal(normalizeIntensities(g.Intensities))
	if err != nil {
		return fmt.Errorf("failed to encode intensities: %w", err)
	}

	_, err = t.q.Exec(`
		INSERT INTO groups (`+groupColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, g.ID, g.Name, g.Label, g.Type, string(intensities), boolToInt(g.IsDefault),
		g.Locale, g.GameMode, g.CreatedAt.UnixMilli(), g.UpdatedAt.UnixMilli())

	return wrapError("insert group "+g.ID, err)
}

// UpdateGroup overwrites the mutable fields of the group with g.ID
func (t *tables) UpdateGroup(g *Group) error {
	g.UpdatedAt = t.clock.Now()

	intensities, err := json.Marshal(normalizeIntensities(g.Intensities))
	if err != nil {
		return fmt.Errorf("failed to encode intensities: %w", err)
	}

	result, err := t.q.Exec(`
		UPDATE groups
		SET name = ?, label = ?, type = ?, intensities_json = ?, is_default = ?,
		    locale = ?, game_mode = ?, updated_at = ?
		WHERE id = ?
	`, g.Name, g.Label, g.Type, string(intensities), boolToInt(g.IsDefault),
		g.Locale, g.GameMode, g.UpdatedAt.UnixMilli(), g.ID)
	if err != nil {
		return wrapError("update group "+g.ID, err)
	}

	return requireRow(result, "group "+g.ID)
}

// GetGroup retrieves a group by id. Returns nil, nil when absent.
func (t *tables) GetGroup(id string) (*Group, error) {
	row := t.q.QueryRow(`SELECT `+groupColumns+` FROM groups WHERE id = ?`, id)
	g, err := scanGroup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return g, nil
}

// FindGroups returns groups matching the filter, oldest first
func (t *tables) FindGroups(f GroupFilter) ([]*Group, error) {
	var (
		where []string
		args  []any
	)
	if f.Name != "" {
		where = append(where, "name = ?")
		args = append(args, f.Name)
	}
	if f.Locale != "" {
		where = append(where, "locale = ?")
		args = append(args, f.Locale)
	}
	if f.GameMode != "" {
		where = append(where, "game_mode = ?")
		args = append(args, f.GameMode)
	}
	if f.IsDefault != nil {
		where = append(where, "is_default = ?")
		args = append(args, boolToInt(*f.IsDefault))
	}

	query := `SELECT ` + groupColumns + ` FROM groups`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := t.q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	var groups []*Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// ListGroups returns every group
func (t *tables) ListGroups() ([]*Group, error) {
	return t.FindGroups(GroupFilter{})
}

// FindGroupByName returns the first group with an exact (name, locale,
// gameMode) match, or nil, nil
func (t *tables) FindGroupByName(name, locale, gameMode string) (*Group, error) {
	groups, err := t.FindGroups(GroupFilter{Name: name, Locale: locale, GameMode: gameMode})
	if err != nil || len(groups) == 0 {
		return nil, err
	}
	return groups[0], nil
}

// DeleteGroup removes a group row. Tiles are left untouched.
func (t *tables) DeleteGroup(id string) error {
	_, err := t.q.Exec(`DELETE FROM groups WHERE id = ?`, id)
	return wrapError("delete group "+id, err)
}

// RekeyGroup changes a group's id and re-points every tile referencing the
// old id. Run inside a transaction so both updates land together.
// Returns the number of tiles re-pointed.
func (t *tables) RekeyGroup(oldID, newID string) (int64, error) {
	if strings.TrimSpace(newID) == "" {
		return 0, fmt.Errorf("rekey group %s: %w: new id is required", oldID, util.ErrValidation)
	}

	result, err := t.q.Exec(`UPDATE groups SET id = ?, updated_at = ? WHERE id = ?`,
		newID, t.clock.Now().UnixMilli(), oldID)
	if err != nil {
		return 0, wrapError("rekey group "+oldID, err)
	}
	if err := requireRow(result, "group "+oldID); err != nil {
		return 0, err
	}

	return t.RepointTiles(oldID, newID)
}

// CountGroups returns the number of groups in a (locale, gameMode) scope.
// Empty arguments widen the scope.
func (t *tables) CountGroups(locale, gameMode string) (int, error) {
	var count int
	err := t.q.QueryRow(`
		SELECT COUNT(*) FROM groups
		WHERE (? = '' OR locale = ?) AND (? = '' OR game_mode = ?)
	`, locale, locale, gameMode, gameMode).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count groups: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGroup(row rowScanner) (*Group, error) {
	var (
		g           Group
		intensities string
		isDefault   int
		createdAt   int64
		updatedAt   int64
	)
	err := row.Scan(&g.ID, &g.Name, &g.Label, &g.Type, &intensities, &isDefault,
		&g.Locale, &g.GameMode, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if intensities != "" {
		if err := json.Unmarshal([]byte(intensities), &g.Intensities); err != nil {
			return nil, fmt.Errorf("group %s has malformed intensities: %w", g.ID, err)
		}
	}
	g.IsDefault = isDefault == 1
	g.CreatedAt = time.UnixMilli(createdAt)
	g.UpdatedAt = time.UnixMilli(updatedAt)
	return &g, nil
}

func normalizeIntensities(in []Intensity) []Intensity {
	if in == nil {
		return []Intensity{}
	}
	return in
}

func requireRow(result sql.Result, what string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, util.ErrNotFound)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
