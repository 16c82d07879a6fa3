// Package file holds small path helpers shared by the CLI commands.
package file

import (
	"path/filepath"
	"strings"
)

// ReplaceExt swaps the last extension of path for ext, adding the dot when
// missing. A leading dot (".hidden") is part of the name, not an extension.
// ext may be compound, e.g. ".bilingual.srt".
func ReplaceExt(path, ext string) string {
	if path == "" {
		return path
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	dir, name := filepath.Split(path)
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	return filepath.Join(dir, name+ext)
}
