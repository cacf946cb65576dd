package render

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/exval-cli/internal/dataset"
	"github.com/KaramelBytes/exval-cli/internal/exceptional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func sampleResult() *exceptional.Result {
	rows := []exceptional.AnnotatedRow{
		{Row: dataset.Row{Index: 0, Dimensions: []string{"A", "Food"}, Response: 12}, Expected: 13, InExp: ptr(13), Residual: 11.0354},
		{Row: dataset.Row{Index: 1, Dimensions: []string{"B", "Home"}, Response: 1}, Expected: 1.25, InExp: ptr(1.5), Residual: 0.8887},
		{Row: dataset.Row{Index: 2, Dimensions: []string{"C", "Home|Garden"}, Response: 40}, Expected: 40, InExp: ptr(40), Residual: 37.0319},
	}
	return &exceptional.Result{
		RunID:       "run-1",
		Dataset:     "sales.csv",
		Dimensions:  []string{"Branch", "Productline"},
		Response:    "Total",
		Threshold:   2.576,
		Formula:     exceptional.FormulaLiteral,
		SD:          13.477,
		Rows:        rows,
		Exceptional: []exceptional.AnnotatedRow{rows[0], rows[2]},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"": FormatTable, "TABLE": FormatTable, "html": FormatHTML, "csv": FormatCSV,
		"md": FormatMarkdown, "markdown": FormatMarkdown, "json": FormatJSON,
	} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("png")
	require.Error(t, err)
	assert.Equal(t, "md", FormatMarkdown.Extension())
	assert.Equal(t, "txt", FormatTable.Extension())
}

func TestHeader(t *testing.T) {
	res := sampleResult()
	assert.Equal(t, []string{"#", "Branch", "Productline", "Total", "Expected", "InExp", "Residual"}, Header(res))
	res.LogScaled = true
	assert.Contains(t, Header(res), "log(Total)")
}

func TestWrite_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleResult(), Options{Format: FormatTable}))
	out := buf.String()
	assert.Contains(t, out, "Branch")
	assert.Contains(t, out, "11.0354")
	assert.Contains(t, out, "37.0319")
	assert.NotContains(t, out, "0.8887")
	assert.Contains(t, out, "Found 2 exceptional values with a threshold of 2.576.")
}

func TestWrite_AllRows(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleResult(), Options{Format: FormatMarkdown, All: true}))
	assert.Contains(t, buf.String(), "0.8887")
}

func TestWrite_CSVKeepsFullPrecision(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleResult(), Options{Format: FormatCSV}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "#,Branch,Productline,Total,Expected,InExp,Residual", lines[0])
	assert.Equal(t, "0,A,Food,12,13,13,11.0354", lines[1])
}

func TestWrite_HTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleResult(), Options{Format: FormatHTML}))
	out := buf.String()
	assert.Contains(t, out, "<table")
	assert.Contains(t, out, "</table>")
	assert.Contains(t, out, "Productline")
	assert.Contains(t, out, "Home|Garden")
}

func TestWrite_JSON(t *testing.T) {
	res := sampleResult()
	res.Rows[1].InExp = nil
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, res, Options{Format: FormatJSON, All: true}))

	var got jsonReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, 3, got.Total)
	assert.Equal(t, 2, got.Count)
	require.Len(t, got.Rows, 3)
	assert.Nil(t, got.Rows[1].InExp)
	require.NotNil(t, got.Rows[0].InExp)
	assert.Equal(t, 13.0, *got.Rows[0].InExp)
	assert.NotContains(t, buf.String(), `"in_exp": null`)
}

func TestWrite_Deterministic(t *testing.T) {
	for _, f := range []Format{FormatTable, FormatHTML, FormatCSV, FormatMarkdown, FormatJSON} {
		var a, b bytes.Buffer
		require.NoError(t, Write(&a, sampleResult(), Options{Format: f}))
		require.NoError(t, Write(&b, sampleResult(), Options{Format: f}))
		assert.Equal(t, a.String(), b.String(), string(f))
	}
}

func TestWrite_EmptySelection(t *testing.T) {
	res := sampleResult()
	res.Exceptional = []exceptional.AnnotatedRow{}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, res, Options{Format: FormatCSV}))
	assert.Equal(t, "#,Branch,Productline,Total,Expected,InExp,Residual", strings.TrimSpace(buf.String()))
}

func TestPlot(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "residuals.png")
	require.NoError(t, Plot(p, sampleResult()))
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	require.Greater(t, len(b), 8)
	assert.Equal(t, []byte("\x89PNG"), b[:4])

	svg := filepath.Join(dir, "residuals.svg")
	require.NoError(t, Plot(svg, sampleResult()))
	b, err = os.ReadFile(svg)
	require.NoError(t, err)
	assert.Contains(t, string(b), "<svg")

	require.Error(t, Plot(filepath.Join(dir, "r.txt"), sampleResult()))
	require.Error(t, Plot(filepath.Join(dir, "r.png"), &exceptional.Result{}))
}
