// Package sanitize cleans values read from CSV input and names returned by
// the API before they reach the filesystem.
//
// It handles:
//   - Invisible Unicode characters (zero-width spaces, BOM, etc.)
//   - Characters that are illegal in Windows, macOS or Linux filenames
//   - Filenames longer than the filesystem limit (extension preserved)
package sanitize

import (
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// invalidFilenameChars are replaced with '_' in filenames
const invalidFilenameChars = `<>:"/\|?*`

// removeInvisibleChars removes zero-width and other invisible Unicode characters
func removeInvisibleChars(s string) string {
	invisibleChars := []string{
		"\u200B", // Zero-width space
		"\u200C", // Zero-width non-joiner
		"\u200D", // Zero-width joiner
		"\uFEFF", // Zero-width no-break space (BOM)
		"\u00AD", // Soft hyphen
		"\u2060", // Word joiner
		"\u180E", // Mongolian vowel separator
	}

	for _, char := range invisibleChars {
		s = strings.ReplaceAll(s, char, "")
	}

	return s
}

// SanitizeField sanitizes a general CSV field
func SanitizeField(field string) string {
	if field == "" {
		return field
	}

	// Remove invisible characters
	field = removeInvisibleChars(field)

	// Trim whitespace
	return strings.TrimSpace(field)
}

// SanitizeFilename makes name safe to use as a single path component.
// Illegal characters and control characters become '_', invisible
// characters are dropped, and the result is truncated to maxLen bytes on a
// rune boundary while keeping the extension. Returns "" for names that are
// empty after cleaning so callers can substitute a default.
func SanitizeFilename(name string, maxLen int) string {
	name = strings.TrimSpace(removeInvisibleChars(name))
	if name == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r == utf8.RuneError:
			b.WriteRune('_')
		case r < 0x20 || r == 0x7f:
			b.WriteRune('_')
		case strings.ContainsRune(invalidFilenameChars, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	name = b.String()

	// "." and ".." would resolve to directories
	if strings.Trim(name, ".") == "" {
		name = strings.ReplaceAll(name, ".", "_")
	}

	if maxLen > 0 && len(name) > maxLen {
		name = truncateKeepExt(name, maxLen)
	}
	return name
}

// truncateKeepExt shortens name to at most maxLen bytes. The extension is
// kept when it fits in less than half the budget.
func truncateKeepExt(name string, maxLen int) string {
	ext := filepath.Ext(name)
	if ext == name || len(ext) >= maxLen/2 {
		ext = ""
	}
	base := strings.TrimSuffix(name, ext)
	return truncateBytes(base, maxLen-len(ext)) + ext
}

// truncateBytes cuts s to at most n bytes without splitting a rune
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
