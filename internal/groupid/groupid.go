// Package groupid derives the deterministic identifiers of bundled (default)
// action groups.
//
// The id is a wire-format contract: every device that imports the same
// bundled group must compute the same id without coordination, so the hash
// below must stay byte-identical across implementations. It is the classic
// 32-bit rolling hash (h = h*31 + c) over the UTF-16 code units of
// "default-{locale}-{gameMode}-{groupName}", printed as 8 lowercase hex
// digits, and the full id is truncated to MaxLength UTF-16 code units.
package groupid

import (
	"fmt"
	"strings"
	"unicode/utf16"
)

const (
	// Prefix marks deterministic ids of default content
	Prefix = "default_"

	// MaxLength is the maximum length of a deterministic id in UTF-16 code units
	MaxLength = 50
)

// Hash returns the 32-bit rolling hash of s as 8 hex digits
func Hash(s string) string {
	var h uint32
	for _, unit := range utf16.Encode([]rune(s)) {
		h = h*31 + uint32(unit)
	}
	return fmt.Sprintf("%08x", h)
}

// Deterministic returns the id of the default group (locale, gameMode, groupName)
func Deterministic(groupName, locale, gameMode string) string {
	hash := Hash(fmt.Sprintf("default-%s-%s-%s", locale, gameMode, groupName))
	id := fmt.Sprintf("%s%s_%s_%s_%s", Prefix, locale, gameMode, groupName, hash)
	return truncate(id, MaxLength)
}

// IsDeterministic reports whether id has the shape of a default-group id
func IsDeterministic(id string) bool {
	return strings.HasPrefix(id, Prefix)
}

// truncate cuts s to at most n UTF-16 code units. A surrogate pair split
// by the cut decodes to U+FFFD, the way a lone surrogate is stored as UTF-8.
func truncate(s string, n int) string {
	units := utf16.Encode([]rune(s))
	if len(units) <= n {
		return s
	}
	return string(utf16.Decode(units[:n]))
}
