package util

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// networkFSTypes are mount types on which SQLite and bbolt file locking
// cannot be trusted
var networkFSTypes = []string{"nfs", "cifs", "smb", "ncpfs", "fuse.sshfs", "fuse.rclone", "9p"}

// MountInfo describes the filesystem a path lives on
type MountInfo struct {
	MountPoint string
	FSType     string
	IsNetwork  bool
}

// DetectMount returns the mount holding path, read from /proc/mounts.
// Returns nil when the mount table is unavailable (non-Linux).
func DetectMount(path string) *MountInfo {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil
	}
	f, err := os.Open("/proc/mounts")
	if err != nil {
		return nil
	}
	defer f.Close()

	mounts, err := parseMounts(f)
	if err != nil {
		return nil
	}
	return mountFor(abs, mounts)
}

// parseMounts reads mount point to filesystem type pairs in /proc/mounts
// format: device mountpoint fstype options dump pass
func parseMounts(r io.Reader) (map[string]string, error) {
	mounts := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		mounts[fields[1]] = fields[2]
	}
	return mounts, scanner.Err()
}

// mountFor picks the longest mount point containing path
func mountFor(path string, mounts map[string]string) *MountInfo {
	var best *MountInfo
	for point, fsType := range mounts {
		if !within(path, point) {
			continue
		}
		if best != nil && len(point) <= len(best.MountPoint) {
			continue
		}
		best = &MountInfo{MountPoint: point, FSType: fsType, IsNetwork: isNetworkFS(fsType)}
	}
	return best
}

func within(path, mountPoint string) bool {
	if mountPoint == "/" || path == mountPoint {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(mountPoint, "/")+"/")
}

func isNetworkFS(fsType string) bool {
	fsType = strings.ToLower(fsType)
	for _, n := range networkFSTypes {
		if strings.HasPrefix(fsType, n) {
			return true
		}
	}
	return false
}
