package store

// Schema v1 - groups and tiles
const schemaV1 = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Action groups. Default groups carry a deterministic id derived from
-- (locale, game_mode, name); user groups carry a generated id.
CREATE TABLE IF NOT EXISTS groups (
  id TEXT PRIMARY KEY NOT NULL CHECK (id <> ''),
  name TEXT NOT NULL,
  label TEXT NOT NULL DEFAULT '',
  type TEXT NOT NULL DEFAULT 'action',
  intensities_json TEXT NOT NULL DEFAULT '[]',
  is_default INTEGER NOT NULL DEFAULT 0,
  locale TEXT NOT NULL DEFAULT '',
  game_mode TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);

-- Not unique: legacy data may hold duplicate names, cleaned up by the importer
CREATE INDEX IF NOT EXISTS idx_groups_name_scope ON groups(name, locale, game_mode);
CREATE INDEX IF NOT EXISTS idx_groups_default ON groups(is_default);

-- Tiles (one action string at one intensity of one group)
CREATE TABLE IF NOT EXISTS tiles (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  group_name TEXT NOT NULL DEFAULT '',
  group_id TEXT,
  intensity INTEGER NOT NULL,
  action TEXT NOT NULL,
  tags_json TEXT NOT NULL DEFAULT '[]',
  is_enabled INTEGER NOT NULL DEFAULT 1,
  is_custom INTEGER NOT NULL DEFAULT 0,
  locale TEXT NOT NULL DEFAULT '',
  game_mode TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tiles_group_id ON tiles(group_id);
CREATE INDEX IF NOT EXISTS idx_tiles_scope ON tiles(locale, game_mode);
`

// Schema v2 - lookup indexes for the tile dedupe check and group-id backfill
const schemaV2 = `
CREATE INDEX IF NOT EXISTS idx_tiles_dedupe ON tiles(group_id, intensity, action);
CREATE INDEX IF NOT EXISTS idx_tiles_group_name ON tiles(group_name, locale, game_mode);
`
