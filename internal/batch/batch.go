// Package batch splits record identifiers into bounded query batches.
package batch

import (
	"fmt"

	"github.com/sfextract/sf-attachments/internal/models"
)

// Split deduplicates ids (first occurrence wins, empty ids dropped) and
// partitions the result into consecutive groups of at most maxSize.
// The concatenation of the returned batches equals the deduplicated input.
func Split(ids []string, maxSize int) ([][]string, error) {
	if maxSize < 1 {
		return nil, &models.ConfigurationError{
			Field:   "batch_size",
			Message: fmt.Sprintf("must be at least 1, got %d", maxSize),
		}
	}

	unique := Dedup(ids)
	batches := make([][]string, 0, (len(unique)+maxSize-1)/maxSize)
	for start := 0; start < len(unique); start += maxSize {
		end := min(start+maxSize, len(unique))
		batches = append(batches, unique[start:end:end])
	}
	return batches, nil
}

// Dedup returns ids with empty values and repeats removed, preserving
// first-occurrence order.
func Dedup(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Count returns the number of batches Split would produce for n unique ids.
func Count(n, maxSize int) int {
	if n <= 0 || maxSize < 1 {
		return 0
	}
	return (n + maxSize - 1) / maxSize
}
