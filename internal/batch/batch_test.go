package batch

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/sfextract/sf-attachments/internal/models"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name    string
		ids     []string
		maxSize int
		want    [][]string
	}{
		{
			name:    "dedup happens before batching",
			ids:     []string{"p1", "p2", "p1"},
			maxSize: 2,
			want:    [][]string{{"p1", "p2"}},
		},
		{
			name:    "exact multiple",
			ids:     []string{"a", "b", "c", "d"},
			maxSize: 2,
			want:    [][]string{{"a", "b"}, {"c", "d"}},
		},
		{
			name:    "remainder batch",
			ids:     []string{"a", "b", "c", "d", "e"},
			maxSize: 2,
			want:    [][]string{{"a", "b"}, {"c", "d"}, {"e"}},
		},
		{
			name:    "size one",
			ids:     []string{"a", "b"},
			maxSize: 1,
			want:    [][]string{{"a"}, {"b"}},
		},
		{
			name:    "empty ids dropped",
			ids:     []string{"", "a", "", "b"},
			maxSize: 10,
			want:    [][]string{{"a", "b"}},
		},
		{
			name:    "empty input",
			ids:     nil,
			maxSize: 3,
			want:    [][]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Split(tt.ids, tt.maxSize)
			if err != nil {
				t.Fatalf("Split() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSplit_InvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		_, err := Split([]string{"a"}, size)
		if !models.IsConfigurationError(err) {
			t.Errorf("Split(maxSize=%d) error = %v, want ConfigurationError", size, err)
		}
	}
}

func TestSplit_Properties(t *testing.T) {
	// 250 ids with every tenth one repeated
	var ids []string
	for i := 0; i < 250; i++ {
		ids = append(ids, fmt.Sprintf("id%03d", i))
		if i%10 == 0 {
			ids = append(ids, fmt.Sprintf("id%03d", i/2))
		}
	}
	unique := Dedup(ids)

	for _, size := range []int{1, 7, 100, 1000} {
		batches, err := Split(ids, size)
		if err != nil {
			t.Fatalf("Split() error = %v", err)
		}
		if len(batches) != Count(len(unique), size) {
			t.Errorf("size %d: got %d batches, want %d", size, len(batches), Count(len(unique), size))
		}

		var flat []string
		for _, b := range batches {
			if len(b) == 0 || len(b) > size {
				t.Errorf("size %d: batch has %d ids", size, len(b))
			}
			flat = append(flat, b...)
		}
		if !reflect.DeepEqual(flat, unique) {
			t.Errorf("size %d: concatenated batches differ from deduplicated input", size)
		}
	}
}

func TestSplit_BatchesDoNotAlias(t *testing.T) {
	batches, _ := Split([]string{"a", "b", "c"}, 2)
	batches[0] = append(batches[0], "x")
	if batches[1][0] != "c" {
		t.Errorf("appending to first batch overwrote second batch: %v", batches[1])
	}
}
