package metadata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/sfextract/sf-attachments/internal/constants"
	"github.com/sfextract/sf-attachments/internal/models"
	"github.com/sfextract/sf-attachments/internal/util/sanitize"
)

// Columns of the persisted metadata artifact. The first six match the
// Attachment fields; FileName records the resolved local name.
var Columns = []string{"Id", "Name", "ParentId", "ContentType", "BodyLength", "CreatedDate", "FileName"}

// maxNameAttempts bounds the search for a free artifact name
const maxNameAttempts = 1000

// Finalize writes the merged set to dir as attachments_<timestamp>_merged.csv
// and returns the path. An existing artifact is never overwritten: a numeric
// suffix is added when the timestamped name is taken.
func Finalize(fs afero.Fs, dir string, m *Merged, now time.Time) (string, error) {
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create metadata directory: %w", err)
	}

	base := fmt.Sprintf("attachments_%s_merged", now.Format(constants.MetadataTimestampFormat))

	var (
		file afero.File
		path string
		err  error
	)
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		name := base + ".csv"
		if attempt > 0 {
			name = fmt.Sprintf("%s_%d.csv", base, attempt)
		}
		path = filepath.Join(dir, name)

		file, err = fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			break
		}
		if !errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("failed to create metadata file: %w", err)
		}
	}
	if file == nil {
		return "", fmt.Errorf("failed to find a free metadata file name in %s", dir)
	}

	if err := writeEntries(file, m.Entries()); err != nil {
		file.Close()
		return "", fmt.Errorf("failed to write metadata file: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close metadata file: %w", err)
	}
	return path, nil
}

func writeEntries(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, e := range entries {
		r := e.Record
		row := []string{r.ID, r.Name, r.ParentID, r.ContentType, r.BodyLength(), r.CreatedDate(), e.FileName}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reads attachment metadata from a CSV with at least Id and Name
// columns. ParentId, ContentType, BodyLength and CreatedDate are optional.
// Structural problems are reported as *models.InvalidInputError.
func ReadCSV(fs afero.Fs, path string) ([]models.AttachmentRecord, error) {
	file, err := fs.Open(path)
	if err != nil {
		return nil, &models.InvalidInputError{Source: path, Reason: "cannot open metadata CSV", Err: err}
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &models.InvalidInputError{Source: path, Reason: "CSV file is empty or has no header row"}
	}
	if err != nil {
		return nil, &models.InvalidInputError{Source: path, Reason: "failed to read header", Err: err}
	}

	// Parse header
	headerMap := make(map[string]int)
	for i, col := range header {
		headerMap[strings.ToLower(sanitize.SanitizeField(col))] = i
	}

	// Required columns
	for _, col := range []string{"id", "name"} {
		if _, ok := headerMap[col]; !ok {
			return nil, &models.InvalidInputError{
				Source: path,
				Reason: fmt.Sprintf("missing required column: %s (found: %s)", col, strings.Join(header, ", ")),
			}
		}
	}

	var records []models.AttachmentRecord
	for row := 2; ; row++ {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &models.InvalidInputError{Source: path, Reason: fmt.Sprintf("row %d", row), Err: err}
		}

		getCol := func(name string) string {
			if idx, ok := headerMap[name]; ok && idx < len(fields) {
				return sanitize.SanitizeField(fields[idx])
			}
			return ""
		}

		rec := models.AttachmentRecord{
			ID:          getCol("id"),
			Name:        getCol("name"),
			ParentID:    getCol("parentid"),
			ContentType: getCol("contenttype"),
		}
		if rec.ID == "" {
			continue
		}
		if v := getCol("bodylength"); v != "" {
			size, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, &models.InvalidInputError{Source: path, Reason: fmt.Sprintf("row %d: invalid BodyLength: %s", row, v)}
			}
			rec.Size = size
		}
		if v := getCol("createddate"); v != "" {
			created, err := models.ParseCreatedDate(v)
			if err != nil {
				return nil, &models.InvalidInputError{Source: path, Reason: fmt.Sprintf("row %d: invalid CreatedDate: %s", row, v)}
			}
			rec.CreatedAt = created
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, &models.InvalidInputError{Source: path, Reason: "CSV has header but no data rows"}
	}
	return records, nil
}
