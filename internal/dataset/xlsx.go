package dataset

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
)

type xlsxReader struct{}

func (xlsxReader) CanRead(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".xlsx")
}

// Read extracts rows from the selected sheet of a .xlsx workbook.
// With no sheet name and SheetIndex <= 0 the first sheet is used; SheetIndex is 1-based.
func (xlsxReader) Read(path string, opt LoadOptions) (*table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read xlsx: %w", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	sheets := parseWorkbook(readZipFile(zr, "xl/workbook.xml"))
	rels := parseRelationships(readZipFile(zr, "xl/_rels/workbook.xml.rels"))
	target, err := resolveSheet(sheets, rels, opt.SheetName, opt.SheetIndex)
	if err != nil {
		return nil, fmt.Errorf("%w in workbook '%s'", err, filepath.Base(path))
	}
	sheetXML := readZipFile(zr, target)
	if sheetXML == nil {
		return nil, fmt.Errorf("sheet %s missing from workbook '%s'", target, filepath.Base(path))
	}
	shared := parseSharedStrings(readZipFile(zr, "xl/sharedStrings.xml"))

	rows, err := parseSheetRows(sheetXML, shared)
	if err != nil {
		return nil, fmt.Errorf("parse sheet %s: %w", target, err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return &table{}, nil
	}
	header := rows[0]
	maxRows := opt.MaxRows
	if maxRows <= 0 {
		maxRows = math.MaxInt
	}
	t := &table{header: header}
	ncol := len(header)
	for _, row := range rows[1:] {
		t.total++
		if len(t.records) >= maxRows {
			continue
		}
		if len(row) < ncol {
			tmp := make([]string, ncol)
			copy(tmp, row)
			row = tmp
		}
		t.records = append(t.records, row)
	}
	return t, nil
}

func resolveSheet(sheets []wbSheet, rels map[string]string, sheetName string, sheetIndex int) (string, error) {
	if sheetName != "" {
		for _, s := range sheets {
			if strings.EqualFold(s.Name, sheetName) {
				if rel, ok := rels[s.RID]; ok {
					return normalizeRelPath(rel), nil
				}
				break
			}
		}
		available := make([]string, len(sheets))
		for i, s := range sheets {
			available[i] = s.Name
		}
		return "", fmt.Errorf("sheet '%s' not found.\nAvailable sheets: %s", sheetName, strings.Join(available, ", "))
	}
	idx := sheetIndex
	if idx <= 0 {
		idx = 1
	}
	// find sheet with sheetId == idx, otherwise guess by worksheets/sheetN.xml
	for _, s := range sheets {
		if s.SheetID == idx {
			if rel, ok := rels[s.RID]; ok {
				return normalizeRelPath(rel), nil
			}
			break
		}
	}
	return fmt.Sprintf("xl/worksheets/sheet%d.xml", idx), nil
}

type workbookXML struct {
	Sheets []wbSheet `xml:"sheets>sheet"`
}

type wbSheet struct {
	Name    string `xml:"name,attr"`
	SheetID int    `xml:"sheetId,attr"`
	RID     string `xml:"id,attr"` // r:id
}

type relationshipsXML struct {
	Items []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

type sharedStringsXML struct {
	Items []struct {
		T    string `xml:"t"`
		Runs []struct {
			T string `xml:"t"`
		} `xml:"r"`
	} `xml:"si"`
}

type worksheetXML struct {
	Rows []struct {
		Cells []struct {
			Ref    string `xml:"r,attr"`
			Type   string `xml:"t,attr"`
			V      string `xml:"v"`
			Inline struct {
				T string `xml:"t"`
			} `xml:"is"`
		} `xml:"c"`
	} `xml:"sheetData>row"`
}

// parseWorkbook lists the sheets declared in xl/workbook.xml.
func parseWorkbook(data []byte) []wbSheet {
	var wb workbookXML
	if len(data) == 0 || xml.Unmarshal(data, &wb) != nil {
		return nil
	}
	return wb.Sheets
}

// parseRelationships maps relationship ids to their targets.
func parseRelationships(data []byte) map[string]string {
	out := map[string]string{}
	var rels relationshipsXML
	if len(data) == 0 || xml.Unmarshal(data, &rels) != nil {
		return out
	}
	for _, r := range rels.Items {
		if r.ID != "" && r.Target != "" {
			out[r.ID] = r.Target
		}
	}
	return out
}

// parseSharedStrings flattens the shared string table, joining rich-text runs.
func parseSharedStrings(data []byte) []string {
	var sst sharedStringsXML
	if len(data) == 0 || xml.Unmarshal(data, &sst) != nil {
		return nil
	}
	out := make([]string, len(sst.Items))
	for i, si := range sst.Items {
		var b strings.Builder
		b.WriteString(si.T)
		for _, r := range si.Runs {
			b.WriteString(r.T)
		}
		out[i] = b.String()
	}
	return out
}

// parseSheetRows returns the sheet's rows as strings, placing each cell at the
// column given by its reference. Cells without a reference follow the previous one.
func parseSheetRows(data []byte, shared []string) ([][]string, error) {
	var ws worksheetXML
	if err := xml.Unmarshal(data, &ws); err != nil {
		return nil, err
	}
	out := make([][]string, 0, len(ws.Rows))
	for _, row := range ws.Rows {
		var cur []string
		next := 0
		for _, c := range row.Cells {
			col := next
			if c.Ref != "" {
				col = colIndexFromRef(c.Ref)
			}
			next = col + 1
			var val string
			switch c.Type {
			case "s":
				if i := atoiSafe(c.V); i >= 0 && i < len(shared) {
					val = shared[i]
				}
			case "inlineStr":
				val = c.Inline.T
			default:
				val = c.V
			}
			if len(cur) <= col {
				tmp := make([]string, col+1)
				copy(tmp, cur)
				cur = tmp
			}
			cur[col] = val
		}
		out = append(out, cur)
	}
	return out, nil
}

func readZipFile(zr *zip.Reader, name string) []byte {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		if err != nil {
			return nil
		}
		return b
	}
	return nil
}

// colIndexFromRef converts a cell reference like "C12" to a 0-based column index.
func colIndexFromRef(ref string) int {
	idx := 0
	for i := 0; i < len(ref); i++ {
		c := ref[i]
		switch {
		case c >= 'A' && c <= 'Z':
			idx = idx*26 + int(c-'A'+1)
		case c >= 'a' && c <= 'z':
			idx = idx*26 + int(c-'a'+1)
		default:
			return idx - 1
		}
	}
	return idx - 1
}

func atoiSafe(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// normalizeRelPath converts a relationship target into its ZIP entry name.
// Targets may be absolute ("/xl/worksheets/sheet1.xml") or relative to xl/.
func normalizeRelPath(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(rel, "xl/") {
		return rel
	}
	return "xl/" + rel
}
