package util

import (
	"strings"
	"testing"
)

const procMounts = `sysfs /sys sysfs rw,nosuid 0 0
/dev/sda1 / ext4 rw,relatime 0 0
server:/export /mnt/share nfs4 rw,vers=4.2 0 0
//nas/games /mnt/share/games cifs rw 0 0
/dev/sdb1 /mnt/sharedisk ext4 rw 0 0
broken line
`

func TestMountFor(t *testing.T) {
	mounts, err := parseMounts(strings.NewReader(procMounts))
	if err != nil {
		t.Fatalf("parseMounts: %v", err)
	}
	if len(mounts) != 5 {
		t.Fatalf("expected 5 mounts, got %d", len(mounts))
	}

	tests := []struct {
		path    string
		point   string
		network bool
	}{
		{"/home/user/tiles.db", "/", false},
		{"/mnt/share/tiles.db", "/mnt/share", true},
		{"/mnt/share/games/tiles.db", "/mnt/share/games", true},
		{"/mnt/sharedisk/tiles.db", "/mnt/sharedisk", false},
		{"/mnt/share", "/mnt/share", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			info := mountFor(tt.path, mounts)
			if info == nil {
				t.Fatal("expected a mount")
			}
			if info.MountPoint != tt.point || info.IsNetwork != tt.network {
				t.Errorf("got %+v, want mount %s network=%v", info, tt.point, tt.network)
			}
		})
	}
}
