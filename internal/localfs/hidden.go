// Package localfs holds small helpers shared by code that walks output trees.
package localfs

import (
	"path/filepath"
	"strings"
)

// IsHidden reports whether the base name of path is a dot file or
// directory. "." and ".." are not hidden.
func IsHidden(path string) bool {
	return IsHiddenName(filepath.Base(path))
}

// IsHiddenName is IsHidden for a bare file name.
func IsHiddenName(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return strings.HasPrefix(name, ".")
}
