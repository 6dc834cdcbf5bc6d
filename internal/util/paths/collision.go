// Package paths builds collision-safe local filenames for downloaded attachments.
package paths

import (
	"strconv"
	"strings"

	"github.com/sfextract/sf-attachments/internal/constants"
	"github.com/sfextract/sf-attachments/internal/util/sanitize"
)

// minNameBudget keeps some of the original name even for very long parent ids
const minNameBudget = 32

// ResolveName returns the local filename for one attachment and records it
// in used, the set of names already assigned under parentID.
//
// The short form "{parent}_{name}" is used when it is free; otherwise the
// attachment id is inserted: "{parent}_{attachmentId}_{name}". Attachment ids
// are unique, so the long form never collides. Names are compared
// case-insensitively so the result is safe on case-folding filesystems.
//
// Example: two files named "a.pdf" under parent "P" with ids X1, X2 become:
//   - P_a.pdf
//   - P_X2_a.pdf
func ResolveName(parentID, attachmentID, rawName string, used map[string]struct{}) string {
	name, _ := resolveName(parentID, attachmentID, rawName, used)
	return name
}

func resolveName(parentID, attachmentID, rawName string, used map[string]struct{}) (string, bool) {
	if parentID == "" {
		parentID = constants.DefaultParentID
	}

	// Budget the name so the long form stays within the filesystem limit
	budget := max(constants.MaxFilenameLength-len(parentID)-len(attachmentID)-2, minNameBudget)
	name := sanitize.SanitizeFilename(rawName, budget)
	if name == "" {
		name = constants.DefaultAttachmentName
	}
	parent := sanitize.SanitizeFilename(parentID, 0)

	candidate := parent + "_" + name
	key := strings.ToLower(candidate)
	if _, taken := used[key]; !taken {
		used[key] = struct{}{}
		return candidate, false
	}

	id := sanitize.SanitizeFilename(attachmentID, 0)
	candidate = parent + "_" + id + "_" + name
	for n := 2; ; n++ {
		key = strings.ToLower(candidate)
		if _, taken := used[key]; !taken {
			used[key] = struct{}{}
			return candidate, true
		}
		candidate = parent + "_" + id + "_" + strconv.Itoa(n) + "_" + name
	}
}

// NameRegistry tracks assigned names per parent id within one merged
// metadata set. Not safe for concurrent use; merging is single-threaded.
type NameRegistry struct {
	used       map[string]map[string]struct{}
	collisions int
}

// NewNameRegistry returns an empty registry.
func NewNameRegistry() *NameRegistry {
	return &NameRegistry{used: make(map[string]map[string]struct{})}
}

// Resolve assigns a filename for the attachment, scoped to its parent.
func (r *NameRegistry) Resolve(parentID, attachmentID, rawName string) string {
	if parentID == "" {
		parentID = constants.DefaultParentID
	}
	set, ok := r.used[parentID]
	if !ok {
		set = make(map[string]struct{})
		r.used[parentID] = set
	}

	name, collided := resolveName(parentID, attachmentID, rawName, set)
	if collided {
		r.collisions++
	}
	return name
}

// Collisions returns how many names needed the disambiguated form.
func (r *NameRegistry) Collisions() int {
	return r.collisions
}
