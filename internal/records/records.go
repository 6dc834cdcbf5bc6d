// Package records discovers CSV record sources and extracts their ids.
package records

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/sfextract/sf-attachments/internal/models"
	"github.com/sfextract/sf-attachments/internal/util/sanitize"
)

// IDColumn is the required header in every record source.
const IDColumn = "Id"

// Source is one CSV file of parent records. Name is the file name without
// extension and names the source's output directory.
type Source struct {
	Name string
	Path string
}

// Discover returns the *.csv files directly inside dir, sorted by file name.
func Discover(fs afero.Fs, dir string) ([]Source, error) {
	info, err := fs.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &models.InvalidInputError{Source: dir, Reason: "records directory not found"}
		}
		return nil, &models.InvalidInputError{Source: dir, Reason: "cannot access records directory", Err: err}
	}
	if !info.IsDir() {
		return nil, &models.InvalidInputError{Source: dir, Reason: "path is not a directory"}
	}

	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, &models.InvalidInputError{Source: dir, Reason: "cannot list records directory", Err: err}
	}

	var sources []Source
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		sources = append(sources, Source{
			Name: strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())),
			Path: filepath.Join(dir, e.Name()),
		})
	}
	if len(sources) == 0 {
		return nil, &models.InvalidInputError{Source: dir, Reason: "no CSV files found"}
	}

	sort.Slice(sources, func(i, j int) bool {
		return filepath.Base(sources[i].Path) < filepath.Base(sources[j].Path)
	})
	return sources, nil
}

// ReadIDs returns the non-empty values of the Id column in file order.
// Duplicates are kept; batching removes them. A missing Id column or an
// empty file is an InvalidInputError.
func (s Source) ReadIDs(fs afero.Fs) ([]string, error) {
	file, err := fs.Open(s.Path)
	if err != nil {
		return nil, &models.InvalidInputError{Source: s.Name, Reason: "cannot open file", Err: err}
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &models.InvalidInputError{Source: s.Name, Reason: "file is empty or has no header"}
	}
	if err != nil {
		return nil, &models.InvalidInputError{Source: s.Name, Reason: "failed to read header", Err: err}
	}

	col := -1
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
		header[i] = h
		if h == IDColumn {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, &models.InvalidInputError{
			Source: s.Name,
			Reason: fmt.Sprintf("missing required column: %s (found: %s)", IDColumn, strings.Join(header, ", ")),
		}
	}

	var ids []string
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &models.InvalidInputError{Source: s.Name, Reason: fmt.Sprintf("failed to read row %d", line), Err: err}
		}
		if col >= len(row) {
			continue
		}
		if id := sanitize.SanitizeField(row[col]); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
