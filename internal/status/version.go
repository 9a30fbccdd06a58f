package status

import (
	"github.com/franz/tilekeeper/internal/kv"
	"github.com/franz/tilekeeper/internal/util"
)

// VersionChange is the outcome of a version check
type VersionChange struct {
	VersionChanged bool   `json:"versionChanged"`
	OldVersion     string `json:"oldVersion,omitempty"`
}

// VersionManager invalidates migration state recorded under an older
// content/schema version
type VersionManager struct {
	status *Manager
}

// NewVersionManager creates a VersionManager over status
func NewVersionManager(status *Manager) *VersionManager {
	return &VersionManager{status: status}
}

// CheckAndHandleVersionChange compares the stored main status version with
// the current one. On mismatch every migration key is wiped so all
// languages migrate again.
func (v *VersionManager) CheckAndHandleVersionChange() VersionChange {
	main := kv.GetJSON[MainStatus](v.status.kv, MigrationKey)
	if main == nil || main.Version == v.status.version {
		return VersionChange{}
	}

	util.InfoLog("Content version changed from %s to %s, resetting migration status", main.Version, v.status.version)
	v.status.ResetMigrationStatus()
	return VersionChange{VersionChanged: true, OldVersion: main.Version}
}
