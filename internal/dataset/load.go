package dataset

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

// LoadOptions controls how a source table is read and mapped onto a Dataset.
type LoadOptions struct {
	// Columns selects the analyzed columns in order; the last one is the response.
	// Empty means every column of the table.
	Columns []string
	// MaxRows limits rows read; 0 means unlimited.
	MaxRows int
	// Delimiter for CSV. If 0, picked from the file extension.
	Delimiter rune
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// XLSX sheet selection; SheetIndex is 1-based and used when SheetName is empty.
	SheetName  string
	SheetIndex int
}

// DefaultLoadOptions returns reasonable defaults for loading a dataset.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{MaxRows: 100000, SheetIndex: 1}
}

// table is the raw string form of a source file before column mapping.
type table struct {
	header  []string
	records [][]string
	// total counts data rows seen, including those skipped by MaxRows.
	total int
}

// tableReader reads one source format into a raw table.
type tableReader interface {
	CanRead(path string) bool
	Read(path string, opt LoadOptions) (*table, error)
}

var readers []tableReader

func register(r tableReader) {
	readers = append(readers, r)
}

func init() {
	// CSV accepts anything, so it goes last.
	register(xlsxReader{})
	register(csvReader{})
}

// Load reads the file at path, selects the configured columns and returns the Dataset.
func Load(path string, opt LoadOptions) (*Dataset, error) {
	for _, r := range readers {
		if !r.CanRead(path) {
			continue
		}
		t, err := r.Read(path, opt)
		if err != nil {
			return nil, err
		}
		ds, err := fromTable(filepath.Base(path), t, opt)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		return ds, nil
	}
	return nil, fmt.Errorf("no reader for %s", path)
}

// FromRecords maps an in-memory header and records onto a Dataset using the
// same column rules as Load.
func FromRecords(name string, header []string, records [][]string, opt LoadOptions) (*Dataset, error) {
	maxRows := opt.MaxRows
	if maxRows <= 0 {
		maxRows = math.MaxInt
	}
	t := &table{header: header, total: len(records)}
	if len(records) > maxRows {
		records = records[:maxRows]
	}
	t.records = records
	return fromTable(name, t, opt)
}

func fromTable(name string, t *table, opt LoadOptions) (*Dataset, error) {
	if len(t.header) == 0 {
		return nil, fmt.Errorf("no columns found; please enter columns to be considered")
	}
	idx, names, err := selectColumns(t.header, opt.Columns)
	if err != nil {
		return nil, err
	}
	dimIdx := idx[:len(idx)-1]
	respIdx := idx[len(idx)-1]
	rows := make([]Row, 0, len(t.records))
	for i, rec := range t.records {
		dims := make([]string, len(dimIdx))
		for k, j := range dimIdx {
			v := cell(rec, j)
			if v == "" {
				return nil, fmt.Errorf("row %d: missing value for dimension %s", i+1, names[k])
			}
			dims[k] = v
		}
		raw := cell(rec, respIdx)
		if raw == "" {
			return nil, fmt.Errorf("row %d: missing value for response %s", i+1, names[len(names)-1])
		}
		x, ok := parseNumeric(raw, opt)
		if !ok {
			return nil, fmt.Errorf("row %d: %s value %q is not numeric", i+1, names[len(names)-1], raw)
		}
		rows = append(rows, Row{Index: i, Dimensions: dims, Response: x})
	}
	ds, err := New(name, names[:len(names)-1], names[len(names)-1], rows)
	if err != nil {
		return nil, err
	}
	if len(t.records) < t.total {
		ds.Warnings = append(ds.Warnings, fmt.Sprintf("processed only %d/%d rows due to MaxRows", len(t.records), t.total))
	}
	return ds, nil
}

// selectColumns resolves requested names against the header. Names on both sides
// have their whitespace removed and are matched case-insensitively.
func selectColumns(header, requested []string) ([]int, []string, error) {
	clean := make([]string, len(header))
	byName := make(map[string]int, len(header))
	for i, h := range header {
		clean[i] = StripSpaces(h)
		key := strings.ToLower(clean[i])
		if _, dup := byName[key]; !dup {
			byName[key] = i
		}
	}
	if len(requested) == 0 {
		idx := make([]int, len(header))
		for i := range idx {
			idx[i] = i
		}
		return idx, clean, nil
	}
	idx := make([]int, 0, len(requested))
	names := make([]string, 0, len(requested))
	for _, name := range requested {
		want := StripSpaces(name)
		if want == "" {
			continue
		}
		i, ok := byName[strings.ToLower(want)]
		if !ok {
			return nil, nil, fmt.Errorf("column %q not found.\nAvailable columns: %s", name, strings.Join(clean, ", "))
		}
		idx = append(idx, i)
		names = append(names, clean[i])
	}
	if len(idx) == 0 {
		return nil, nil, fmt.Errorf("no columns selected; please enter columns to be considered")
	}
	return idx, names, nil
}

// StripSpaces removes every whitespace character from a column name.
func StripSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func cell(rec []string, j int) string {
	if j >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[j])
}
