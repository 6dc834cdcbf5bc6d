package query

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestBuildAttachmentQuery(t *testing.T) {
	tests := []struct {
		name   string
		where  string
		limit  int
		offset int
		want   string
	}{
		{
			name: "no clauses",
			want: "SELECT Id, Name, ContentType, BodyLength, ParentId, CreatedDate, LastModifiedDate, Description FROM Attachment ORDER BY ParentId, CreatedDate DESC",
		},
		{
			name:   "where limit offset",
			where:  "WHERE ParentId IN ('001A')",
			limit:  100,
			offset: 200,
			want:   "SELECT Id, Name, ContentType, BodyLength, ParentId, CreatedDate, LastModifiedDate, Description FROM Attachment WHERE ParentId IN ('001A') ORDER BY ParentId, CreatedDate DESC LIMIT 100 OFFSET 200",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildAttachmentQuery(tt.where, tt.limit, tt.offset); got != tt.want {
				t.Errorf("BuildAttachmentQuery() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestParentIDsWhereEscapes(t *testing.T) {
	got := ParentIDsWhere([]string{"001A", "o'brien", `back\slash`})
	want := `WHERE ParentId IN ('001A','o\'brien','back\\slash')`
	if got != want {
		t.Errorf("ParentIDsWhere() = %s, want %s", got, want)
	}
}

func TestBuildParentIDQueryLength(t *testing.T) {
	small := []string{"001000000000001AAA", "001000000000002AAA"}
	if _, err := BuildParentIDQuery(small); err != nil {
		t.Fatalf("BuildParentIDQuery() error = %v", err)
	}

	// 18-char id plus quotes and comma is 21 bytes; 1000 ids overflow 20000.
	var big []string
	for i := 0; i < 1000; i++ {
		big = append(big, fmt.Sprintf("001%015d", i))
	}
	_, err := BuildParentIDQuery(big)
	if !errors.Is(err, ErrTooLong) {
		t.Errorf("expected ErrTooLong, got %v", err)
	}

	if _, err := BuildParentIDQuery(nil); err == nil {
		t.Error("expected error for empty batch")
	}
}

func TestIsTooLongMessage(t *testing.T) {
	for _, msg := range []string{"Query length exceeded", "STRING_TOO_LONG: string too long", "the query is too long"} {
		if !IsTooLongMessage(msg) {
			t.Errorf("IsTooLongMessage(%q) = false", msg)
		}
	}
	if IsTooLongMessage("MALFORMED_QUERY: unexpected token") {
		t.Error("unrelated message flagged as too long")
	}
	if strings.Contains(BuildAttachmentQuery("", 0, 0), "LIMIT") {
		t.Error("zero limit must be omitted")
	}
}
