// Package source reads schedule spreadsheets into header-keyed rows.
package source

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// UnnamedPrefix names header cells that are blank, followed by their
// 0-based column index ("Unnamed: 5").
const UnnamedPrefix = "Unnamed: "

var ErrUnsupported = errors.New("unsupported input format")

// Row is one data row of a Table.
type Row struct {
	// Number is 1-based and excludes the header row.
	Number int
	cells  map[string]string
}

// NewRow builds a Row from column name/value pairs.
func NewRow(number int, cells map[string]string) Row {
	return Row{Number: number, cells: cells}
}

// Get returns the cell for column and whether the column exists at all.
// A column that exists but is empty in this row returns ("", true).
func (r Row) Get(column string) (string, bool) {
	v, ok := r.cells[column]
	return v, ok
}

// Table is a header plus its data rows.
type Table struct {
	Header []string
	Rows   []Row
}

// Has reports whether column is part of the header.
func (t Table) Has(column string) bool {
	for _, h := range t.Header {
		if h == column {
			return true
		}
	}
	return false
}

// FirstUnnamed returns the first blank header column, if any.
func (t Table) FirstUnnamed() (string, bool) {
	for _, h := range t.Header {
		if strings.HasPrefix(h, UnnamedPrefix) {
			return h, true
		}
	}
	return "", false
}

// ReadFile reads an .xlsx/.xlsm workbook (first sheet) or a .csv file.
// A missing file yields an error wrapping fs.ErrNotExist.
func ReadFile(path string) (Table, error) {
	if _, err := os.Stat(path); err != nil {
		return Table{}, fmt.Errorf("source: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readWorkbook(path)
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return Table{}, fmt.Errorf("source: %w", err)
		}
		defer f.Close()
		return ReadCSV(f)
	default:
		return Table{}, fmt.Errorf("source: %w: %q", ErrUnsupported, filepath.Ext(path))
	}
}

func readWorkbook(path string) (Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("source: open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Table{}, errors.New("source: workbook has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return Table{}, fmt.Errorf("source: read sheet %q: %w", sheets[0], err)
	}
	return fromRecords(records), nil
}

// ReadCSV reads comma-separated records; the first record is the header.
func ReadCSV(r io.Reader) (Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Table{}, fmt.Errorf("source: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("source: parse csv: %w", err)
	}
	return fromRecords(records), nil
}

func fromRecords(records [][]string) Table {
	var t Table
	if len(records) == 0 {
		return t
	}

	// Workbook rows lose trailing empty cells, so a blank last header cell
	// only shows up through the widest row.
	width := 0
	for _, rec := range records {
		width = max(width, len(rec))
	}

	t.Header = make([]string, width)
	for i := range t.Header {
		h := ""
		if i < len(records[0]) {
			h = strings.TrimSpace(records[0][i])
		}
		if h == "" {
			h = UnnamedPrefix + strconv.Itoa(i)
		}
		t.Header[i] = h
	}

	for n, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		cells := make(map[string]string, len(t.Header))
		for i, h := range t.Header {
			if _, dup := cells[h]; dup {
				continue
			}
			if i < len(rec) {
				cells[h] = rec[i]
			} else {
				cells[h] = ""
			}
		}
		t.Rows = append(t.Rows, Row{Number: n + 1, cells: cells})
	}
	return t
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
