package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

type csvReader struct{}

func (csvReader) CanRead(string) bool { return true }

// Read reads a delimited text file. Short records are padded to the header width.
func (csvReader) Read(path string, opt LoadOptions) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	return readDelimited(f, delim, opt.MaxRows)
}

func readDelimited(src io.Reader, delim rune, maxRows int) (*table, error) {
	r := csv.NewReader(src)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &table{}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if maxRows <= 0 {
		maxRows = math.MaxInt
	}
	t := &table{header: header}
	ncol := len(header)
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", t.total+1, err)
		}
		t.total++
		if len(t.records) >= maxRows {
			continue
		}
		if len(rec) < ncol {
			tmp := make([]string, ncol)
			copy(tmp, rec)
			rec = tmp
		}
		t.records = append(t.records, rec)
	}
	return t, nil
}
