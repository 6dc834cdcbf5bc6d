package query

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sfextract/sf-attachments/internal/config"
	"github.com/sfextract/sf-attachments/internal/models"
)

var (
	idPattern     = regexp.MustCompile(`^[a-zA-Z0-9]{15}$|^[a-zA-Z0-9]{18}$`)
	prefixPattern = regexp.MustCompile(`^[a-zA-Z0-9]{3}$`)
)

// ParentIDFilter keeps attachments whose ParentId matches an exact id or
// starts with one of the 3-character object prefixes.
type ParentIDFilter struct {
	Prefixes []string
	ExactIDs []string
	Strategy string // config.FilterStrategyLocal or config.FilterStrategySOQL
}

// ParseFilter builds a filter from configuration values. It returns nil when
// no prefixes or ids are given. Malformed ids and prefixes are kept but
// reported as warnings; an unknown strategy is an error.
func ParseFilter(prefixes, ids []string, strategy string) (*ParentIDFilter, []string, error) {
	f := &ParentIDFilter{
		Prefixes: cleanList(prefixes),
		ExactIDs: cleanList(ids),
		Strategy: strings.ToLower(strings.TrimSpace(strategy)),
	}
	if f.Strategy == "" {
		f.Strategy = config.FilterStrategyLocal
	}
	if f.Strategy != config.FilterStrategyLocal && f.Strategy != config.FilterStrategySOQL {
		return nil, nil, &models.ConfigurationError{
			Field:   "filter_strategy",
			Message: fmt.Sprintf("invalid filter strategy %q, must be local or soql", strategy),
		}
	}
	if !f.HasFilters() {
		return nil, nil, nil
	}
	return f, f.Validate(), nil
}

// Validate returns warnings for malformed values.
func (f *ParentIDFilter) Validate() []string {
	var warnings []string
	for _, p := range f.Prefixes {
		if !prefixPattern.MatchString(p) {
			warnings = append(warnings, fmt.Sprintf("invalid ParentId prefix %q: expected 3 alphanumeric characters", p))
		}
	}
	for _, id := range f.ExactIDs {
		if !idPattern.MatchString(id) {
			warnings = append(warnings, fmt.Sprintf("invalid ParentId %q: expected 15 or 18 alphanumeric characters", id))
		}
	}
	if f.Strategy == config.FilterStrategySOQL && len(f.Prefixes) > 0 {
		warnings = append(warnings, "soql strategy ignores prefixes; use the local strategy for prefix filtering")
	}
	return warnings
}

// HasFilters reports whether any criteria are set. Safe on nil.
func (f *ParentIDFilter) HasFilters() bool {
	return f != nil && (len(f.Prefixes) > 0 || len(f.ExactIDs) > 0)
}

// WhereClause returns the server-side clause for the soql strategy, or ""
// when filtering happens locally.
func (f *ParentIDFilter) WhereClause() string {
	if !f.HasFilters() || f.Strategy != config.FilterStrategySOQL || len(f.ExactIDs) == 0 {
		return ""
	}
	return ParentIDsWhere(f.ExactIDs)
}

// FiltersLocally reports whether Apply does any work.
func (f *ParentIDFilter) FiltersLocally() bool {
	return f.HasFilters() && f.Strategy == config.FilterStrategyLocal
}

// Matches reports whether parentID satisfies the filter. An 18-character id
// matches its 15-character form and vice versa.
func (f *ParentIDFilter) Matches(parentID string) bool {
	parentID = strings.TrimSpace(parentID)
	if parentID == "" {
		return false
	}
	for _, id := range f.ExactIDs {
		if sameID(id, parentID) {
			return true
		}
	}
	if len(parentID) >= 3 {
		prefix := parentID[:3]
		for _, p := range f.Prefixes {
			if p == prefix {
				return true
			}
		}
	}
	return false
}

// Apply returns the records that pass the filter, preserving order. Records
// without a ParentId never match. Without local filtering the input is
// returned unchanged.
func (f *ParentIDFilter) Apply(records []models.AttachmentRecord) []models.AttachmentRecord {
	if !f.FiltersLocally() {
		return records
	}
	out := make([]models.AttachmentRecord, 0, len(records))
	for _, r := range records {
		if f.Matches(r.ParentID) {
			out = append(out, r)
		}
	}
	return out
}

func (f *ParentIDFilter) String() string {
	if f == nil {
		return "none"
	}
	var parts []string
	if len(f.Prefixes) > 0 {
		parts = append(parts, "prefixes="+strings.Join(f.Prefixes, ","))
	}
	if len(f.ExactIDs) > 0 {
		preview := f.ExactIDs
		suffix := ""
		if len(preview) > 3 {
			suffix = fmt.Sprintf(" (+%d more)", len(preview)-3)
			preview = preview[:3]
		}
		parts = append(parts, "exact_ids="+strings.Join(preview, ",")+suffix)
	}
	parts = append(parts, "strategy="+f.Strategy)
	return strings.Join(parts, " ")
}

// sameID compares ids, treating an 18-character id as equal to its
// 15-character case-sensitive prefix.
func sameID(a, b string) bool {
	if a == b {
		return true
	}
	if len(a) == 18 && len(b) == 15 {
		return a[:15] == b
	}
	if len(a) == 15 && len(b) == 18 {
		return b[:15] == a
	}
	return false
}

func cleanList(in []string) []string {
	var out []string
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
