package query

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sfextract/sf-attachments/internal/models"
)

// fakePager serves total rows; parents alternate between two prefixes.
type fakePager struct {
	total   int
	calls   []int // offsets requested
	wheres  []string
	failAt  int // offset that fails, -1 for never
	failErr error
}

func (p *fakePager) QueryPage(ctx context.Context, where string, limit, offset int) ([]models.AttachmentRecord, error) {
	p.calls = append(p.calls, offset)
	p.wheres = append(p.wheres, where)
	if p.failErr != nil && offset == p.failAt {
		return nil, p.failErr
	}
	var out []models.AttachmentRecord
	for i := offset; i < offset+limit && i < p.total; i++ {
		parent := "001000000000000"
		if i%2 == 1 {
			parent = "aBo000000000000"
		}
		out = append(out, rec(fmt.Sprintf("R%04d", i), parent))
	}
	return out, nil
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		opts      PaginateOptions
		wantCount int
		wantCalls int
	}{
		{
			name:      "exact trims",
			total:     1000,
			opts:      PaginateOptions{Target: 250, PageSize: 100, Mode: "exact"},
			wantCount: 250,
			wantCalls: 3,
		},
		{
			name:      "minimum keeps last page",
			total:     1000,
			opts:      PaginateOptions{Target: 250, PageSize: 100, Mode: "minimum"},
			wantCount: 300,
			wantCalls: 3,
		},
		{
			name:      "runs out before target",
			total:     120,
			opts:      PaginateOptions{Target: 500, PageSize: 100},
			wantCount: 120,
			wantCalls: 2,
		},
		{
			name:      "exact page boundary ends on empty page",
			total:     200,
			opts:      PaginateOptions{Target: 500, PageSize: 100},
			wantCount: 200,
			wantCalls: 3,
		},
		{
			name:  "local filter keeps paging",
			total: 1000,
			opts: PaginateOptions{Target: 150, PageSize: 100, Mode: "exact",
				Filter: &ParentIDFilter{Prefixes: []string{"aBo"}, Strategy: "local"}},
			wantCount: 150,
			wantCalls: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pager := &fakePager{total: tt.total}
			got, err := Paginate(context.Background(), pager, tt.opts)
			if err != nil {
				t.Fatalf("Paginate() error = %v", err)
			}
			if len(got) != tt.wantCount {
				t.Errorf("got %d records, want %d", len(got), tt.wantCount)
			}
			if len(pager.calls) != tt.wantCalls {
				t.Errorf("made %d calls %v, want %d", len(pager.calls), pager.calls, tt.wantCalls)
			}
		})
	}
}

func TestPaginateOffsetLimit(t *testing.T) {
	pager := &fakePager{total: 100000}
	opts := PaginateOptions{
		Target:   5000,
		PageSize: 500,
		Filter:   &ParentIDFilter{Prefixes: []string{"zzz"}, Strategy: "local"},
	}
	_, err := Paginate(context.Background(), pager, opts)
	if !errors.Is(err, ErrOffsetLimit) {
		t.Fatalf("expected ErrOffsetLimit, got %v", err)
	}
	for _, off := range pager.calls {
		if off > MaxOffset {
			t.Errorf("requested offset %d beyond limit", off)
		}
	}
}

func TestPaginatePassesWhereClause(t *testing.T) {
	pager := &fakePager{total: 10}
	f := &ParentIDFilter{ExactIDs: []string{"001000000000000"}, Strategy: "soql"}
	if _, err := Paginate(context.Background(), pager, PaginateOptions{Target: 5, PageSize: 5, Filter: f}); err != nil {
		t.Fatal(err)
	}
	if pager.wheres[0] != "WHERE ParentId IN ('001000000000000')" {
		t.Errorf("where = %q", pager.wheres[0])
	}
}

func TestPaginateErrors(t *testing.T) {
	if _, err := Paginate(context.Background(), &fakePager{}, PaginateOptions{Target: 0, PageSize: 10}); !models.IsConfigurationError(err) {
		t.Errorf("zero target: %v", err)
	}

	boom := &models.FatalTransportError{Op: "query", Err: errors.New("invalid session")}
	pager := &fakePager{total: 1000, failAt: 100, failErr: boom}
	_, err := Paginate(context.Background(), pager, PaginateOptions{Target: 500, PageSize: 100})
	if !models.IsFatal(err) {
		t.Errorf("expected wrapped fatal error, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Paginate(ctx, &fakePager{total: 10}, PaginateOptions{Target: 5, PageSize: 5}); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled: %v", err)
	}
}
