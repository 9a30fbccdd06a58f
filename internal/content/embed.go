package content

import (
	"embed"
	"io/fs"
)

//go:embed bundled
var bundledFS embed.FS

// Bundled returns the content set compiled into the binary
func Bundled() fs.FS {
	sub, err := fs.Sub(bundledFS, "bundled")
	if err != nil {
		panic(err)
	}
	return sub
}
