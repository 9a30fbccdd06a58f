package util

import (
	"strings"

	"github.com/spf13/viper"
)

// GetAutoRepair returns whether duplicate cleanup and group-id repair run
// automatically after a migration pass.
// Auto-repair can be disabled with --no-auto-repair
func GetAutoRepair() bool {
	return !viper.GetBool("no-auto-repair")
}

// SplitList splits a comma separated config value, trimming blanks and
// dropping empty entries. Viper returns env values as a single string.
func SplitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
