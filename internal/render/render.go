package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/KaramelBytes/exval-cli/internal/exceptional"
	"github.com/KaramelBytes/exval-cli/internal/utils"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Format is an output representation of a detection result.
type Format string

const (
	FormatTable    Format = "table"
	FormatHTML     Format = "html"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat maps a flag or config value onto a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table":
		return FormatTable, nil
	case "html":
		return FormatHTML, nil
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported format: %s (use table|html|csv|markdown|json)", s)
	}
}

// Extension returns the conventional file extension for f, without the dot.
func (f Format) Extension() string {
	switch f {
	case FormatHTML:
		return "html"
	case FormatCSV:
		return "csv"
	case FormatMarkdown:
		return "md"
	case FormatJSON:
		return "json"
	default:
		return "txt"
	}
}

// Options controls rendering.
type Options struct {
	Format Format
	// All renders every annotated row instead of only the exceptional ones.
	All bool
}

// Write renders res to w. Identical results render identically, except for the
// run id carried by the JSON form.
func Write(w io.Writer, res *exceptional.Result, opt Options) error {
	rows := res.Exceptional
	if opt.All {
		rows = res.Rows
	}
	if opt.Format == FormatJSON {
		return writeJSON(w, res, rows)
	}
	t := newTable(res, rows, opt.Format == FormatCSV)
	var out string
	switch opt.Format {
	case FormatHTML:
		out = t.RenderHTML()
	case FormatCSV:
		out = t.RenderCSV()
	case FormatMarkdown:
		out = t.RenderMarkdown()
	case FormatTable, "":
		t.SetCaption("%s", Summary(res))
		out = t.Render()
	default:
		return fmt.Errorf("unsupported format: %s", opt.Format)
	}
	if _, err := io.WriteString(w, out+"\n"); err != nil {
		return fmt.Errorf("write %s: %w", opt.Format, err)
	}
	return nil
}

// Summary is the one-line description of a selection.
func Summary(res *exceptional.Result) string {
	return fmt.Sprintf("Found %d exceptional values with a threshold of %s.", len(res.Exceptional), formatFloat(res.Threshold, -1))
}

// Header returns the column titles shared by every tabular format.
func Header(res *exceptional.Result) []string {
	h := make([]string, 0, len(res.Dimensions)+5)
	h = append(h, "#")
	h = append(h, res.Dimensions...)
	resp := res.Response
	if res.LogScaled {
		resp = "log(" + resp + ")"
	}
	return append(h, resp, "Expected", "InExp", "Residual")
}

func newTable(res *exceptional.Result, rows []exceptional.AnnotatedRow, fullPrecision bool) table.Writer {
	prec := 4
	if fullPrecision {
		prec = -1
	}
	header := Header(res)
	t := table.NewWriter()
	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	t.SetStyle(style)
	hr := make(table.Row, len(header))
	for i, h := range header {
		hr[i] = h
	}
	t.AppendHeader(hr)
	for _, r := range rows {
		row := make(table.Row, 0, len(header))
		row = append(row, r.Index)
		for _, d := range r.Dimensions {
			row = append(row, d)
		}
		inExp := ""
		if r.InExp != nil {
			inExp = formatFloat(*r.InExp, prec)
		}
		row = append(row, formatFloat(r.Response, prec), formatFloat(r.Expected, prec), inExp, formatFloat(r.Residual, prec))
		t.AppendRow(row)
	}
	numeric := []int{1}
	for i := len(header) - 3; i <= len(header); i++ {
		numeric = append(numeric, i)
	}
	cfgs := make([]table.ColumnConfig, 0, len(numeric))
	for _, n := range numeric {
		cfgs = append(cfgs, table.ColumnConfig{Number: n, Align: text.AlignRight})
	}
	t.SetColumnConfigs(cfgs)
	return t
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

type jsonReport struct {
	RunID      string    `json:"run_id"`
	Dataset    string    `json:"dataset"`
	Dimensions []string  `json:"dimensions"`
	Response   string    `json:"response"`
	LogScaled  bool      `json:"log_scaled"`
	Threshold  float64   `json:"threshold"`
	Formula    string    `json:"formula"`
	SD         float64   `json:"sd"`
	Total      int       `json:"total_rows"`
	Count      int       `json:"exceptional_count"`
	Rows       []jsonRow `json:"rows"`
	Warnings   []string  `json:"warnings,omitempty"`
}

type jsonRow struct {
	Index      int      `json:"index"`
	Dimensions []string `json:"dimensions"`
	Response   float64  `json:"response"`
	Expected   float64  `json:"expected"`
	InExp      *float64 `json:"in_exp,omitempty"`
	Residual   float64  `json:"residual"`
}

func writeJSON(w io.Writer, res *exceptional.Result, rows []exceptional.AnnotatedRow) error {
	rep := jsonReport{
		RunID:      res.RunID,
		Dataset:    res.Dataset,
		Dimensions: res.Dimensions,
		Response:   res.Response,
		LogScaled:  res.LogScaled,
		Threshold:  res.Threshold,
		Formula:    string(res.Formula),
		SD:         res.SD,
		Total:      len(res.Rows),
		Count:      len(res.Exceptional),
		Rows:       make([]jsonRow, 0, len(rows)),
		Warnings:   res.Warnings,
	}
	for _, r := range rows {
		rep.Rows = append(rep.Rows, jsonRow{
			Index:      r.Index,
			Dimensions: r.Dimensions,
			Response:   r.Response,
			Expected:   r.Expected,
			InExp:      r.InExp,
			Residual:   r.Residual,
		})
	}
	b, err := utils.PrettyJSON(rep)
	if err != nil {
		return err
	}
	if _, err := w.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}
