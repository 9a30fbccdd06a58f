package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const tileColumns = `id, group_name, COALESCE(group_id, ''), intensity, action, tags_json,
	is_enabled, is_custom, locale, game_mode, created_at`

// InsertTile inserts a single tile and sets its ID
func (t *tables) InsertTile(tile *Tile) error {
	_, err := t.InsertTiles([]*Tile{tile})
	return err
}

// InsertTiles bulk-inserts tiles and sets their IDs. Returns the number inserted.
func (t *tables) InsertTiles(tiles []*Tile) (int, error) {
	if len(tiles) == 0 {
		return 0, nil
	}

	stmt, err := t.q.Prepare(`
		INSERT INTO tiles (group_name, group_id, intensity, action, tags_json,
		                   is_enabled, is_custom, locale, game_mode, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare tile insert: %w", err)
	}
	defer stmt.Close()

	now := t.clock.Now()
	inserted := 0
	for _, tile := range tiles {
		if tile.CreatedAt.IsZero() {
			tile.CreatedAt = now
		}
		tags := tile.Tags
		if tags == nil {
			tags = []string{}
		}
		tagsJSON, err := json.Marshal(tags)
		if err != nil {
			return inserted, fmt.Errorf("failed to encode tags: %w", err)
		}

		result, err := stmt.Exec(tile.GroupName, nullableString(tile.GroupID), tile.Intensity,
			tile.Action, string(tagsJSON), boolToInt(tile.IsEnabled), boolToInt(tile.IsCustom),
			tile.Locale, tile.GameMode, tile.CreatedAt.UnixMilli())
		if err != nil {
			return inserted, wrapError("insert tile", err)
		}
		if id, err := result.LastInsertId(); err == nil {
			tile.ID = id
		}
		inserted++
	}

	return inserted, nil
}

// FindTiles returns tiles matching the filter ordered by id
func (t *tables) FindTiles(f TileFilter) ([]*Tile, error) {
	where, args := tileWhere(f)

	query := `SELECT ` + tileColumns + ` FROM tiles`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := t.q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tiles: %w", err)
	}
	defer rows.Close()

	var tiles []*Tile
	for rows.Next() {
		tile, err := scanTile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tile: %w", err)
		}
		tiles = append(tiles, tile)
	}
	return tiles, rows.Err()
}

// ListTiles returns every tile
func (t *tables) ListTiles() ([]*Tile, error) {
	return t.FindTiles(TileFilter{})
}

// CountTiles returns the number of tiles matching the filter (Limit ignored)
func (t *tables) CountTiles(f TileFilter) (int, error) {
	f.Limit = 0
	where, args := tileWhere(f)

	query := `SELECT COUNT(*) FROM tiles`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	var count int
	if err := t.q.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tiles: %w", err)
	}
	return count, nil
}

// CountTilesByGroup returns tile counts keyed by group_id
func (t *tables) CountTilesByGroup() (map[string]int, error) {
	rows, err := t.q.Query(`
		SELECT group_id, COUNT(*) FROM tiles
		WHERE group_id IS NOT NULL AND group_id <> ''
		GROUP BY group_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count tiles by group: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			id    string
			count int
		)
		if err := rows.Scan(&id, &count); err != nil {
			return nil, err
		}
		counts[id] = count
	}
	return counts, rows.Err()
}

// TileKeys returns the content keys of every tile in a group, for the
// duplicate check before bulk inserts
func (t *tables) TileKeys(groupID string) (map[TileKey]bool, error) {
	rows, err := t.q.Query(`SELECT intensity, action FROM tiles WHERE group_id = ?`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tile keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[TileKey]bool)
	for rows.Next() {
		k := TileKey{GroupID: groupID}
		if err := rows.Scan(&k.Intensity, &k.Action); err != nil {
			return nil, err
		}
		keys[k] = true
	}
	return keys, rows.Err()
}

// UpdateTileGroupID sets the relational group link of a tile
func (t *tables) UpdateTileGroupID(id int64, groupID string) error {
	result, err := t.q.Exec(`UPDATE tiles SET group_id = ? WHERE id = ?`, nullableString(groupID), id)
	if err != nil {
		return wrapError(fmt.Sprintf("update tile %d", id), err)
	}
	return requireRow(result, fmt.Sprintf("tile %d", id))
}

// RepointTiles moves every tile from oldID to newID. Returns tiles updated.
func (t *tables) RepointTiles(oldID, newID string) (int64, error) {
	result, err := t.q.Exec(`UPDATE tiles SET group_id = ? WHERE group_id = ?`, newID, oldID)
	if err != nil {
		return 0, wrapError("repoint tiles from "+oldID, err)
	}
	return result.RowsAffected()
}

// DeleteTiles removes tiles by id. Returns the number removed.
func (t *tables) DeleteTiles(ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	result, err := t.q.Exec(`DELETE FROM tiles WHERE id IN (`+strings.Join(placeholders, ",")+`)`, args...)
	if err != nil {
		return 0, wrapError("delete tiles", err)
	}
	return result.RowsAffected()
}

func tileWhere(f TileFilter) ([]string, []any) {
	var (
		where []string
		args  []any
	)
	if f.GroupID != "" {
		where = append(where, "group_id = ?")
		args = append(args, f.GroupID)
	}
	if f.GroupName != "" {
		where = append(where, "group_name = ?")
		args = append(args, f.GroupName)
	}
	if f.Locale != "" {
		where = append(where, "locale = ?")
		args = append(args, f.Locale)
	}
	if f.GameMode != "" {
		where = append(where, "game_mode = ?")
		args = append(args, f.GameMode)
	}
	if f.MissingGroupID {
		where = append(where, "(group_id IS NULL OR group_id = '')")
	}
	if f.AfterID > 0 {
		where = append(where, "id > ?")
		args = append(args, f.AfterID)
	}
	return where, args
}

func scanTile(row rowScanner) (*Tile, error) {
	var (
		tile      Tile
		tagsJSON  string
		isEnabled int
		isCustom  int
		createdAt int64
	)
	err := row.Scan(&tile.ID, &tile.GroupName, &tile.GroupID, &tile.Intensity, &tile.Action,
		&tagsJSON, &isEnabled, &isCustom, &tile.Locale, &tile.GameMode, &createdAt)
	if err != nil {
		return nil, err
	}

	if tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &tile.Tags); err != nil {
			return nil, fmt.Errorf("tile %d has malformed tags: %w", tile.ID, err)
		}
	}
	tile.IsEnabled = isEnabled == 1
	tile.IsCustom = isCustom == 1
	tile.CreatedAt = time.UnixMilli(createdAt)
	return &tile, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
