package dataset

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var salesRows = []string{
	"Invoice ID,Branch,Product line,Payment,Total",
	"750-67-8428,A,Health and beauty,Ewallet,548.9715",
	"226-31-3081,C,Electronic accessories,Cash,80.22",
	"631-41-3108,A,Home and lifestyle,Credit card,340.5255",
	"123-19-1176,A,Health and beauty,Ewallet,489.048",
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadCSV_SelectsAndStripsColumns(t *testing.T) {
	p := writeFile(t, "supermarket_sales.csv", strings.Join(salesRows, "\n"))
	opt := DefaultLoadOptions()
	opt.Columns = []string{"Branch", "Product line", "Payment", "Total"}

	ds, err := Load(p, opt)
	require.NoError(t, err)
	assert.Equal(t, "supermarket_sales.csv", ds.Name)
	assert.Equal(t, []string{"Branch", "Productline", "Payment"}, ds.Dimensions)
	assert.Equal(t, "Total", ds.Response)
	require.Len(t, ds.Rows, 4)
	assert.Equal(t, Row{Index: 1, Dimensions: []string{"C", "Electronic accessories", "Cash"}, Response: 80.22}, ds.Rows[1])
	assert.Empty(t, ds.Warnings)
}

func TestLoadCSV_MatchesStrippedCaseInsensitiveNames(t *testing.T) {
	p := writeFile(t, "s.csv", strings.Join(salesRows, "\n"))
	opt := DefaultLoadOptions()
	opt.Columns = []string{"productline", " Total "}

	ds, err := Load(p, opt)
	require.NoError(t, err)
	assert.Equal(t, []string{"Productline"}, ds.Dimensions)
	assert.Equal(t, "Total", ds.Response)
}

func TestLoadCSV_AllColumnsWhenNoneRequested(t *testing.T) {
	p := writeFile(t, "s.csv", "X,Y,Value\na,p,1\nb,q,2\n")
	ds, err := Load(p, DefaultLoadOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y"}, ds.Dimensions)
	assert.Equal(t, "Value", ds.Response)
}

func TestLoadCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		columns []string
		wantErr string
	}{
		{"unknown column", "X,V\na,1\n", []string{"Z", "V"}, `column "Z" not found`},
		{"non numeric response", "X,V\na,1\nb,abc\n", nil, `row 2: V value "abc" is not numeric`},
		{"missing response", "X,V\na,\n", nil, "row 1: missing value for response V"},
		{"missing dimension", "X,V\n,3\n", nil, "row 1: missing value for dimension X"},
		{"empty file", "", nil, "no columns found"},
		{"blank selection", "X,V\na,1\n", []string{" "}, "no columns selected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeFile(t, "e.csv", tt.content)
			opt := DefaultLoadOptions()
			opt.Columns = tt.columns
			_, err := Load(p, opt)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadCSV_MaxRowsAndLocale(t *testing.T) {
	content := "Region;Amount\nN;1.000,5\nS;2.000,25\nE;3,5\n"
	p := writeFile(t, "eu.csv", content)
	opt := DefaultLoadOptions()
	opt.Delimiter = ';'
	opt.DecimalSeparator = ','
	opt.ThousandsSeparator = '.'
	opt.MaxRows = 2

	ds, err := Load(p, opt)
	require.NoError(t, err)
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, 1000.5, ds.Rows[0].Response)
	assert.Equal(t, 2000.25, ds.Rows[1].Response)
	assert.Equal(t, []string{"processed only 2/3 rows due to MaxRows"}, ds.Warnings)
}

func TestLoadTSV_SniffsDelimiter(t *testing.T) {
	p := writeFile(t, "d.tsv", "X\tV\na\t1.5\nb\t2\n")
	ds, err := Load(p, DefaultLoadOptions())
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2}, ds.Responses())
}

func TestFromRecords(t *testing.T) {
	opt := DefaultLoadOptions()
	opt.MaxRows = 1
	ds, err := FromRecords("mem", []string{"X", "V"}, [][]string{{"a", "10"}, {"b", "20"}}, opt)
	require.NoError(t, err)
	assert.Len(t, ds.Rows, 1)
	assert.Len(t, ds.Warnings, 1)
}

func TestParseNumeric(t *testing.T) {
	tests := []struct {
		in   string
		opt  LoadOptions
		want float64
		ok   bool
	}{
		{"12.5%", LoadOptions{}, 12.5, true},
		{"1.234,5", LoadOptions{}, 1234.5, true},
		{"1,234.5", LoadOptions{}, 1234.5, true},
		{"0,5", LoadOptions{}, 0.5, true},
		{"1e3", LoadOptions{}, 1000, true},
		{"1 000,5", LoadOptions{DecimalSeparator: ',', ThousandsSeparator: ' '}, 1000.5, true},
		{"alpha", LoadOptions{}, 0, false},
	}
	for _, tt := range tests {
		got, ok := parseNumeric(tt.in, tt.opt)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.InDelta(t, tt.want, got, 1e-9, tt.in)
		}
	}
}

// writeXLSX builds a minimal two-sheet workbook; "Data" is the second sheet and
// uses shared strings, inline strings and numbers.
func writeXLSX(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "sales.xlsx")
	f, err := os.Create(p)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	files := map[string]string{
		"xl/workbook.xml": `<?xml version="1.0" encoding="UTF-8"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<sheets><sheet name="Notes" sheetId="1" r:id="rId1"/><sheet name="Data" sheetId="2" r:id="rId2"/></sheets></workbook>`,
		"xl/_rels/workbook.xml.rels": `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="worksheet" Target="worksheets/sheet1.xml"/>
<Relationship Id="rId2" Type="worksheet" Target="/xl/worksheets/sheet2.xml"/></Relationships>`,
		"xl/sharedStrings.xml": `<?xml version="1.0" encoding="UTF-8"?>
<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
<si><t>Branch</t></si><si><r><t>Product </t></r><r><t>line</t></r></si><si><t>Total</t></si><si><t>A</t></si><si><t>Food</t></si></sst>`,
		"xl/worksheets/sheet1.xml": `<?xml version="1.0" encoding="UTF-8"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData>
<row r="1"><c r="A1" t="inlineStr"><is><t>just notes</t></is></c></row></sheetData></worksheet>`,
		"xl/worksheets/sheet2.xml": `<?xml version="1.0" encoding="UTF-8"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData>
<row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1" t="s"><v>1</v></c><c r="C1" t="s"><v>2</v></c></row>
<row r="2"><c r="A2" t="s"><v>3</v></c><c r="B2" t="s"><v>4</v></c><c r="C2"><v>10.5</v></c></row>
<row r="3"><c r="A3" t="inlineStr"><is><t>B</t></is></c><c r="B3" t="s"><v>4</v></c><c r="C3"><v>20</v></c></row>
</sheetData></worksheet>`,
	}
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return p
}

func TestLoadXLSX_SheetSelection(t *testing.T) {
	p := writeXLSX(t)

	byName := DefaultLoadOptions()
	byName.SheetName = "data"
	ds, err := Load(p, byName)
	require.NoError(t, err)
	assert.Equal(t, []string{"Branch", "Productline"}, ds.Dimensions)
	assert.Equal(t, "Total", ds.Response)
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, []string{"B", "Food"}, ds.Rows[1].Dimensions)
	assert.Equal(t, []float64{10.5, 20}, ds.Responses())

	byIndex := DefaultLoadOptions()
	byIndex.SheetIndex = 2
	ds2, err := Load(p, byIndex)
	require.NoError(t, err)
	assert.Equal(t, ds.Rows, ds2.Rows)

	missing := DefaultLoadOptions()
	missing.SheetName = "Nope"
	_, err = Load(p, missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Available sheets: Notes, Data")
}

func TestNormalizeRelPath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/xl/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"xl/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, normalizeRelPath(tt.input))
	}
}

func TestColIndexFromRef(t *testing.T) {
	assert.Equal(t, 0, colIndexFromRef("A1"))
	assert.Equal(t, 2, colIndexFromRef("C12"))
	assert.Equal(t, 26, colIndexFromRef("AA3"))
	assert.Equal(t, 1, colIndexFromRef("b7"))
}
