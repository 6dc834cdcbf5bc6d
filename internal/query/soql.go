// Package query builds Attachment SOQL statements, filters results by
// ParentId and pages through large result sets.
package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sfextract/sf-attachments/internal/constants"
)

// ErrTooLong is wrapped by errors for statements the platform rejects (or
// would reject) because of their length.
var ErrTooLong = errors.New("query too long")

// MaxQueryLength is the longest statement sent to the platform.
const MaxQueryLength = constants.MaxQueryLength

// AttachmentFields are selected by every Attachment query.
var AttachmentFields = []string{
	"Id",
	"Name",
	"ContentType",
	"BodyLength",
	"ParentId",
	"CreatedDate",
	"LastModifiedDate",
	"Description",
}

// BuildAttachmentQuery returns the Attachment SELECT with an optional WHERE
// clause (including the keyword), ordered by parent then newest first.
// limit and offset are omitted when zero.
func BuildAttachmentQuery(where string, limit, offset int) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(AttachmentFields, ", "))
	b.WriteString(" FROM Attachment ")
	if where = strings.TrimSpace(where); where != "" {
		b.WriteString(where)
		b.WriteByte(' ')
	}
	b.WriteString("ORDER BY ParentId, CreatedDate DESC")
	if limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", limit)
	}
	if offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", offset)
	}
	return b.String()
}

// ParentIDsWhere returns "WHERE ParentId IN ('a','b')" for ids.
func ParentIDsWhere(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = "'" + EscapeString(id) + "'"
	}
	return "WHERE ParentId IN (" + strings.Join(quoted, ",") + ")"
}

// BuildParentIDQuery returns the metadata query for one batch of parent ids.
// Statements over MaxQueryLength are refused with ErrTooLong before any
// request is made.
func BuildParentIDQuery(ids []string) (string, error) {
	if len(ids) == 0 {
		return "", errors.New("no parent ids")
	}
	soql := BuildAttachmentQuery(ParentIDsWhere(ids), 0, 0)
	if len(soql) > MaxQueryLength {
		return "", fmt.Errorf("%w: %d characters for %d ids (limit %d)", ErrTooLong, len(soql), len(ids), MaxQueryLength)
	}
	return soql, nil
}

// EscapeString escapes a value for use inside a single-quoted SOQL literal.
func EscapeString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// IsTooLongMessage reports whether a platform error message complains about
// statement length.
func IsTooLongMessage(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "query length exceeded") ||
		strings.Contains(m, "string too long") ||
		strings.Contains(m, "query is too long")
}
