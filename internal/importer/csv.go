// Package importer adds publications from a maintainer's CSV export to the
// catalog file.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Required CSV columns.
const (
	ColTitle  = "Title"
	ColAuthor = "First Author"
	ColYear   = "Publication Year"
	ColDOI    = "DOI"
)

// RequiredColumns lists the header names a CSV must carry.
var RequiredColumns = []string{ColTitle, ColAuthor, ColYear, ColDOI}

// ErrMissingColumns is returned when the header lacks a required column.
var ErrMissingColumns = errors.New("missing required columns")

// Row is one publication line of the CSV.
type Row struct {
	Line   int    `json:"line"` // 1-based data row number, header excluded
	Title  string `json:"title"`
	Author string `json:"author"`
	Year   string `json:"year"`
	DOI    string `json:"doi"`
}

// Complete reports whether the row has the fields needed to import it.
func (r Row) Complete() bool {
	return r.Title != "" && r.DOI != ""
}

// ReadCSVFile reads rows from the CSV file at path.
func ReadCSVFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening CSV: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV reads rows from r. Columns are located by header name, so extra
// columns and any column order are accepted. Values are trimmed; pandas-style
// "nan" cells count as empty.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: empty file", ErrMissingColumns)
		}
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s (found: %s)", ErrMissingColumns,
			strings.Join(missing, ", "), strings.Join(header, ", "))
	}

	var rows []Row
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("reading CSV row %d: %w", line, err)
		}
		get := func(col string) string {
			i := idx[col]
			if i >= len(rec) {
				return ""
			}
			v := strings.TrimSpace(rec[i])
			if strings.EqualFold(v, "nan") {
				return ""
			}
			return v
		}
		rows = append(rows, Row{
			Line:   line,
			Title:  get(ColTitle),
			Author: get(ColAuthor),
			Year:   get(ColYear),
			DOI:    get(ColDOI),
		})
	}
	return rows, nil
}
