package store

import "time"

// Intensity is one ordered level of a group. Value is the 1-based ordinal
// and is unique within its group.
type Intensity struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Value     int    `json:"value"`
	IsDefault bool   `json:"isDefault"`
}

// Group is a named set of actions at several intensities
type Group struct {
	ID          string
	Name        string
	Label       string
	Type        string
	Intensities []Intensity
	IsDefault   bool
	Locale      string
	GameMode    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IntensityByLabel returns the intensity with the given label, or nil
func (g *Group) IntensityByLabel(label string) *Intensity {
	for i := range g.Intensities {
		if g.Intensities[i].Label == label {
			return &g.Intensities[i]
		}
	}
	return nil
}

// IntensityByValue returns the intensity with the given value, or nil
func (g *Group) IntensityByValue(value int) *Intensity {
	for i := range g.Intensities {
		if g.Intensities[i].Value == value {
			return &g.Intensities[i]
		}
	}
	return nil
}

// Tile is one action string at one intensity of a group.
// GroupName is the legacy human-readable link kept for display; GroupID is
// the authoritative relational link.
type Tile struct {
	ID        int64
	GroupName string
	GroupID   string
	Intensity int
	Action    string
	Tags      []string
	IsEnabled bool
	IsCustom  bool
	Locale    string
	GameMode  string
	CreatedAt time.Time
}

// TileKey identifies a tile by content for duplicate detection
type TileKey struct {
	GroupID   string
	Intensity int
	Action    string
}

// Key returns the tile's content key
func (t *Tile) Key() TileKey {
	return TileKey{GroupID: t.GroupID, Intensity: t.Intensity, Action: t.Action}
}

// GroupFilter narrows group queries. Empty fields match everything.
type GroupFilter struct {
	Name      string
	Locale    string
	GameMode  string
	IsDefault *bool
}

// TileFilter narrows tile queries. Empty fields match everything.
type TileFilter struct {
	GroupID        string
	GroupName      string
	Locale         string
	GameMode       string
	MissingGroupID bool  // only tiles with NULL or empty group_id
	AfterID        int64 // keyset pagination: only tiles with id > AfterID
	Limit          int
}

// Bool returns a pointer to b, for GroupFilter.IsDefault
func Bool(b bool) *bool {
	return &b
}
