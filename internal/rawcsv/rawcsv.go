// Package rawcsv reads bank CSV exports into raw, uninterpreted records.
// It is the only file-reading code; no business logic lives here.
package rawcsv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/splitledger/splitledger/internal/model"
)

// FileInfo describes one CSV export found under the input directory.
type FileInfo struct {
	Name  string
	Path  string
	Owner string // subdirectory name the file was found under
}

// Scan walks <root>/<owner>/*.csv and returns the exports in a stable order.
// Files directly under root have no owner and are skipped.
func Scan(root string) ([]FileInfo, error) {
	owners, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading input dir: %w", err)
	}

	var files []FileInfo
	for _, o := range owners {
		if !o.IsDir() {
			continue
		}
		dir := filepath.Join(root, o.Name())
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
				continue
			}
			files = append(files, FileInfo{
				Name:  e.Name(),
				Path:  filepath.Join(dir, e.Name()),
				Owner: o.Name(),
			})
		}
	}
	return files, nil
}

// ReadFile loads one CSV export: header row plus all records, untyped.
func ReadFile(info FileInfo) (model.RawFile, error) {
	f, err := os.Open(info.Path)
	if err != nil {
		return model.RawFile{}, fmt.Errorf("opening %s: %w", info.Path, err)
	}
	defer f.Close()
	return Read(f, info.Name, info.Owner)
}

// Read parses CSV content into a RawFile. Ragged rows are tolerated; schema
// transformation deals with short rows per-cell.
func Read(r io.Reader, name, owner string) (model.RawFile, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return model.RawFile{}, fmt.Errorf("reading %s: %w", name, err)
	}
	if len(records) == 0 {
		return model.RawFile{}, fmt.Errorf("%s: empty file", name)
	}

	return model.RawFile{
		Name:    name,
		Owner:   owner,
		Headers: records[0],
		Rows:    records[1:],
	}, nil
}
