package repair

import (
	"context"
	"fmt"
)

// Issue kinds
const (
	IssueMissingGroupID = "missing_group_id"
	IssueInvalidGroupID = "invalid_group_id"
	IssueOrphanedGroup  = "orphaned_group"
)

// Issue is one integrity problem
type Issue struct {
	Kind    string `json:"kind"`
	TileID  int64  `json:"tileId,omitempty"`
	GroupID string `json:"groupId,omitempty"`
	Message string `json:"message"`
}

// IntegrityResult is the outcome of ValidateIntegrity
type IntegrityResult struct {
	IsValid bool    `json:"isValid"`
	Issues  []Issue `json:"issues,omitempty"`
}

// ValidateIntegrity checks that every tile links to an existing group and
// flags user groups no tile references
func (r *Repairer) ValidateIntegrity() (*IntegrityResult, error) {
	groups, err := r.store.ListGroups()
	if err != nil {
		return nil, err
	}
	tiles, err := r.store.ListTiles()
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(groups))
	for _, g := range groups {
		known[g.ID] = true
	}

	res := &IntegrityResult{}
	referenced := make(map[string]bool)
	for _, tile := range tiles {
		switch {
		case tile.GroupID == "":
			res.Issues = append(res.Issues, Issue{
				Kind:    IssueMissingGroupID,
				TileID:  tile.ID,
				Message: fmt.Sprintf("tile %d (%s) has no group_id", tile.ID, tile.GroupName),
			})
		case !known[tile.GroupID]:
			res.Issues = append(res.Issues, Issue{
				Kind:    IssueInvalidGroupID,
				TileID:  tile.ID,
				GroupID: tile.GroupID,
				Message: fmt.Sprintf("tile %d points at missing group %s", tile.ID, tile.GroupID),
			})
		default:
			referenced[tile.GroupID] = true
		}
	}

	for _, g := range groups {
		if g.IsDefault || referenced[g.ID] {
			continue
		}
		res.Issues = append(res.Issues, Issue{
			Kind:    IssueOrphanedGroup,
			GroupID: g.ID,
			Message: fmt.Sprintf("group %s (%s) has no tiles", g.ID, g.Name),
		})
	}

	res.IsValid = len(res.Issues) == 0
	return res, nil
}

// FullResult holds the result of every RunFull step
type FullResult struct {
	Audit      *AuditResult     `json:"audit,omitempty"`
	DefaultIDs *DefaultIDResult `json:"defaultIds"`
	Backfill   *BackfillResult  `json:"backfill"`
	Integrity  *IntegrityResult `json:"integrity"`
}

// RunFull runs audit, default-group re-keying, tile backfill and integrity
// validation in that order. Default groups must carry canonical ids before
// tiles are backfilled or tiles would link to stale ids.
func (r *Repairer) RunFull(ctx context.Context, opts Options) (*FullResult, error) {
	res := &FullResult{}
	var err error

	if !opts.SkipAudit {
		if res.Audit, err = r.Audit(); err != nil {
			return res, fmt.Errorf("audit failed: %w", err)
		}
	}

	if res.DefaultIDs, err = r.migrateDefaultGroupIDs(ctx, opts.DryRun); err != nil {
		return res, fmt.Errorf("default group re-key failed: %w", err)
	}

	if res.Backfill, err = r.MigrateGroupIDs(ctx, opts); err != nil {
		return res, fmt.Errorf("group id backfill failed: %w", err)
	}

	if res.Integrity, err = r.ValidateIntegrity(); err != nil {
		return res, fmt.Errorf("integrity validation failed: %w", err)
	}

	return res, nil
}
