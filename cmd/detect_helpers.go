package cmd

import (
	"fmt"
	"strings"

	cfgpkg "github.com/KaramelBytes/exval-cli/internal/config"
	"github.com/KaramelBytes/exval-cli/internal/dataset"
	"github.com/KaramelBytes/exval-cli/internal/exceptional"
	"github.com/KaramelBytes/exval-cli/internal/render"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// detectFlags holds the flags shared by detect and detect-batch.
type detectFlags struct {
	columns       []string
	threshold     float64
	normalize     bool
	formula       string
	noMainEffects bool
	all           bool
	format        string
	delimiter     string
	decimal       string
	thousands     string
	maxRows       int
	sheetName     string
	sheetIndex    int
}

func (f *detectFlags) register(fs *pflag.FlagSet) {
	fs.StringSliceVarP(&f.columns, "columns", "c", nil, "columns to analyze in order; the last one is the response (default: all columns)")
	fs.Float64Var(&f.threshold, "threshold", exceptional.DefaultThreshold, "flag rows whose residual is strictly above threshold or below -threshold")
	fs.BoolVar(&f.normalize, "normalize", true, "take the natural log of the response before analysis")
	fs.StringVar(&f.formula, "formula", "literal", "residual formula: literal (response - baseline/sd) | standardized ((response - baseline)/sd)")
	fs.BoolVar(&f.noMainEffects, "no-main-effects", false, "skip main effects; residuals use the combination mean only")
	fs.BoolVar(&f.all, "all", false, "render every annotated row, not only the exceptional ones")
	fs.StringVar(&f.format, "format", "table", "output format: table|html|csv|markdown|json")
	fs.StringVar(&f.delimiter, "delimiter", "", "CSV delimiter: ','|';'|'tab' (default by extension)")
	fs.StringVar(&f.decimal, "decimal", "", "decimal separator: '.'|'comma' (auto-detect if omitted)")
	fs.StringVar(&f.thousands, "thousands", "", "thousands separator: ','|'.'|'space' (auto-detect if omitted)")
	fs.IntVar(&f.maxRows, "max-rows", 100000, "maximum rows to process (0 = unlimited)")
	fs.StringVar(&f.sheetName, "sheet-name", "", "XLSX: sheet name to analyze")
	fs.IntVar(&f.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
}

// resetFlags restores defaults so repeated Execute calls in one process start clean.
func resetFlags(fs *pflag.FlagSet) {
	fs.VisitAll(func(fl *pflag.Flag) {
		if sv, ok := fl.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = fl.Value.Set(fl.DefValue)
		}
		fl.Changed = false
	})
}

// detection is a fully resolved set of options for one run.
type detection struct {
	load      dataset.LoadOptions
	pipeline  exceptional.Options
	normalize bool
	render    render.Options
}

// resolve merges flags over the config: explicitly set flags win, then config values.
func (f *detectFlags) resolve(cmd *cobra.Command, c *cfgpkg.Global) (*detection, error) {
	changed := cmd.Flags().Changed
	d := &detection{load: dataset.DefaultLoadOptions(), pipeline: exceptional.DefaultOptions()}

	d.load.Columns = c.Columns
	if changed("columns") {
		d.load.Columns = f.columns
	}
	d.load.MaxRows = c.MaxRows
	if changed("max-rows") {
		if f.maxRows < 0 {
			return nil, fmt.Errorf("invalid --max-rows: %d", f.maxRows)
		}
		d.load.MaxRows = f.maxRows
	}
	delim := c.Delimiter
	if changed("delimiter") {
		delim = f.delimiter
	}
	r, err := parseDelimiter(delim)
	if err != nil {
		return nil, err
	}
	d.load.Delimiter = r
	if d.load.DecimalSeparator, err = parseDecimal(f.decimal); err != nil {
		return nil, err
	}
	if d.load.ThousandsSeparator, err = parseThousands(f.thousands); err != nil {
		return nil, err
	}
	d.load.SheetName = f.sheetName
	if f.sheetIndex > 0 {
		d.load.SheetIndex = f.sheetIndex
	}

	d.pipeline.Threshold = c.Threshold
	if changed("threshold") {
		d.pipeline.Threshold = f.threshold
	}
	formula := c.Formula
	if changed("formula") {
		formula = f.formula
	}
	if d.pipeline.Formula, err = exceptional.ParseFormula(strings.ToLower(strings.TrimSpace(formula))); err != nil {
		return nil, err
	}
	d.pipeline.MainEffects = c.MainEffects
	if changed("no-main-effects") {
		d.pipeline.MainEffects = !f.noMainEffects
	}
	d.pipeline.Logger = logger

	d.normalize = c.Normalize
	if changed("normalize") {
		d.normalize = f.normalize
	}

	format := c.Format
	if changed("format") {
		format = f.format
	}
	if d.render.Format, err = render.ParseFormat(format); err != nil {
		return nil, err
	}
	d.render.All = f.all
	return d, nil
}

// run loads path and detects its exceptional values.
func (d *detection) run(path string) (*exceptional.Result, error) {
	ds, err := dataset.Load(path, d.load)
	if err != nil {
		return nil, err
	}
	if d.normalize {
		logged, err := ds.LogTransform()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ds.Name, err)
		}
		ds = logged
	}
	return exceptional.Run(ds, d.pipeline)
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case ",":
		return ',', nil
	case "\t", "tab":
		return '\t', nil
	case ";":
		return ';', nil
	case "|":
		return '|', nil
	default:
		return 0, fmt.Errorf("unsupported --delimiter: %s", s)
	}
}

func parseDecimal(s string) (rune, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case ",", "comma":
		return ',', nil
	case ".", "dot":
		return '.', nil
	case "":
		return 0, nil
	default:
		return 0, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", s)
	}
}

func parseThousands(s string) (rune, error) {
	switch strings.ToLower(s) {
	case ",":
		return ',', nil
	case ".":
		return '.', nil
	case "space", " ":
		return ' ', nil
	case "":
		return 0, nil
	default:
		return 0, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", s)
	}
}
