// Package diskspace provides a pre-flight check for free space on the
// filesystem that will receive downloads.
package diskspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// InsufficientSpaceError indicates that there is not enough disk space available.
type InsufficientSpaceError struct {
	Path           string
	RequiredBytes  int64
	AvailableBytes int64
}

func (e *InsufficientSpaceError) Error() string {
	requiredMB := float64(e.RequiredBytes) / (1024 * 1024)
	availableMB := float64(e.AvailableBytes) / (1024 * 1024)
	return fmt.Sprintf("insufficient disk space for %s: need %.2f MB, have %.2f MB available",
		e.Path, requiredMB, availableMB)
}

// CheckAvailableSpace checks if there is sufficient disk space available under
// targetDir for requiredBytes plus the safety margin (0.15 = 15% extra).
// targetDir need not exist yet; its nearest existing ancestor is checked.
//
// When free space cannot be determined (network or virtual filesystems)
// the check passes and the operation is left to fail naturally.
func CheckAvailableSpace(targetDir string, requiredBytes int64, safetyMargin float64) error {
	if requiredBytes <= 0 {
		return nil
	}

	available, ok := availableBytes(existingAncestor(targetDir))
	if !ok {
		return nil
	}

	requiredWithMargin := int64(float64(requiredBytes) * (1 + safetyMargin))
	if available < requiredWithMargin {
		return &InsufficientSpaceError{
			Path:           targetDir,
			RequiredBytes:  requiredWithMargin,
			AvailableBytes: available,
		}
	}
	return nil
}

// GetAvailableSpace returns the available space in bytes for the filesystem
// containing path. Returns 0 if unable to determine.
func GetAvailableSpace(path string) int64 {
	available, ok := availableBytes(existingAncestor(path))
	if !ok {
		return 0
	}
	return available
}

// IsInsufficientSpaceError checks if an error is an InsufficientSpaceError
func IsInsufficientSpaceError(err error) bool {
	var target *InsufficientSpaceError
	return errors.As(err, &target)
}

// existingAncestor walks up from path until it finds something that exists
func existingAncestor(path string) string {
	dir := filepath.Clean(path)
	for {
		if _, err := os.Stat(dir); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
