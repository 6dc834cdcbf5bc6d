// Package metadata merges per-batch attachment query results and persists
// the merged set as a CSV artifact.
package metadata

import (
	"github.com/sfextract/sf-attachments/internal/models"
	"github.com/sfextract/sf-attachments/internal/util/paths"
)

// Entry is one merged attachment with its resolved local filename.
type Entry struct {
	Record     models.AttachmentRecord
	FileName   string
	BatchIndex int // batch that first produced the record
}

// Merged is the deduplicated, filename-resolved attachment set for one source.
// It is populated by a single goroutine and must not be mutated during download.
type Merged struct {
	Source string

	entries    []Entry
	seen       map[string]struct{}
	names      *paths.NameRegistry
	duplicates int
}

// NewMerged returns an empty merged set for the named source.
func NewMerged(source string) *Merged {
	return &Merged{
		Source: source,
		seen:   make(map[string]struct{}),
		names:  paths.NewNameRegistry(),
	}
}

// MergeBatch appends the records of one batch result in order. A record whose
// id is already present is discarded so the first-seen version wins. Each new
// record gets its filename resolved against the names already used for its
// parent. Returns the number of records added.
func (m *Merged) MergeBatch(batchIndex int, rows []models.AttachmentRecord) int {
	added := 0
	for _, r := range rows {
		if r.ID == "" {
			continue
		}
		if _, dup := m.seen[r.ID]; dup {
			m.duplicates++
			continue
		}
		m.seen[r.ID] = struct{}{}
		m.entries = append(m.entries, Entry{
			Record:     r,
			FileName:   m.names.Resolve(r.ParentID, r.ID, r.Name),
			BatchIndex: batchIndex,
		})
		added++
	}
	return added
}

// Entries returns a copy of the merged entries in merge order.
func (m *Merged) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Len returns the number of unique records merged so far.
func (m *Merged) Len() int {
	return len(m.entries)
}

// Duplicates returns how many records were discarded as already seen.
func (m *Merged) Duplicates() int {
	return m.duplicates
}

// Collisions returns how many records needed a disambiguated filename.
func (m *Merged) Collisions() int {
	return m.names.Collisions()
}

// TotalBytes returns the sum of BodyLength over all merged records.
func (m *Merged) TotalBytes() int64 {
	var n int64
	for _, e := range m.entries {
		n += e.Record.Size
	}
	return n
}
