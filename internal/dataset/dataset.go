package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Row is a single observation: its categorical dimension values in column order
// and the numeric response.
type Row struct {
	// Index is the 0-based position of the row in the source table.
	Index      int
	Dimensions []string
	Response   float64
}

// Dataset is the normalized input table consumed by the detection pipeline.
// It is treated as immutable once constructed.
type Dataset struct {
	Name       string
	Dimensions []string // dimension column names, in key order
	Response   string   // response column name
	Rows       []Row
	Warnings   []string
	// LogScaled reports whether the response holds natural logarithms of the source values.
	LogScaled bool
}

// New validates rows against the column layout and returns a Dataset.
// Every row must carry exactly one value per dimension column and a finite response.
func New(name string, dimensions []string, response string, rows []Row) (*Dataset, error) {
	if strings.TrimSpace(response) == "" {
		return nil, fmt.Errorf("response column name is empty")
	}
	for _, r := range rows {
		if len(r.Dimensions) != len(dimensions) {
			return nil, fmt.Errorf("row %d: has %d dimension values, want %d", r.Index+1, len(r.Dimensions), len(dimensions))
		}
		if math.IsNaN(r.Response) || math.IsInf(r.Response, 0) {
			return nil, fmt.Errorf("row %d: response %v is not finite", r.Index+1, r.Response)
		}
	}
	return &Dataset{
		Name:       name,
		Dimensions: append([]string(nil), dimensions...),
		Response:   response,
		Rows:       rows,
	}, nil
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.Rows) }

// Responses returns the response column in row order.
func (d *Dataset) Responses() []float64 {
	out := make([]float64, len(d.Rows))
	for i, r := range d.Rows {
		out[i] = r.Response
	}
	return out
}

// LogTransform returns a copy of the dataset with every response replaced by its
// natural logarithm. A non-positive response has no finite logarithm and is rejected.
func (d *Dataset) LogTransform() (*Dataset, error) {
	rows := make([]Row, len(d.Rows))
	for i, r := range d.Rows {
		if r.Response <= 0 {
			return nil, fmt.Errorf("row %d: cannot log-normalize non-positive %s %v", r.Index+1, d.Response, r.Response)
		}
		rows[i] = Row{Index: r.Index, Dimensions: r.Dimensions, Response: math.Log(r.Response)}
	}
	out := *d
	out.Rows = rows
	out.Warnings = append([]string(nil), d.Warnings...)
	out.LogScaled = true
	return &out, nil
}

// Key is a value-equality grouping key over an ordered tuple of dimension values.
// Keys built from equal tuples compare equal with ==; a single value and a
// one-element tuple produce the same key.
type Key string

// KeyOf builds the key for the given ordered values. Each part is length-prefixed
// so that no two distinct tuples share an encoding.
func KeyOf(values ...string) Key {
	var b strings.Builder
	for _, v := range values {
		b.WriteString(strconv.Itoa(len(v)))
		b.WriteByte(':')
		b.WriteString(v)
	}
	return Key(b.String())
}

// Parts decodes the key back into its ordered values.
func (k Key) Parts() []string {
	s := string(k)
	var out []string
	for len(s) > 0 {
		colon := strings.IndexByte(s, ':')
		if colon < 0 {
			break
		}
		n, err := strconv.Atoi(s[:colon])
		if err != nil || colon+1+n > len(s) {
			break
		}
		out = append(out, s[colon+1:colon+1+n])
		s = s[colon+1+n:]
	}
	return out
}

// String renders the key as a readable tuple, e.g. "(A, Food)".
func (k Key) String() string {
	return "(" + strings.Join(k.Parts(), ", ") + ")"
}
