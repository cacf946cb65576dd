package exceptional

import (
	"log/slog"

	"github.com/KaramelBytes/exval-cli/internal/dataset"
	"github.com/google/uuid"
)

// DefaultThreshold is the two-tailed ~99% cutoff under a normal approximation.
const DefaultThreshold = 2.576

// Options controls a detection run.
type Options struct {
	// Threshold is the residual magnitude a row must exceed to be selected.
	Threshold float64
	Formula   Formula
	// MainEffects enables the single-dimension comparison stage. When false,
	// InExp stays absent and residuals fall back to Expected.
	MainEffects bool
	// Logger receives stage progress (debug) and the selection summary (info).
	// Nil uses slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns the standard detection settings.
func DefaultOptions() Options {
	return Options{
		Threshold:   DefaultThreshold,
		Formula:     FormulaLiteral,
		MainEffects: true,
	}
}

// Result is the outcome of one detection run.
type Result struct {
	RunID      string
	Dataset    string
	Dimensions []string
	Response   string
	LogScaled  bool
	Threshold  float64
	Formula    Formula
	// SD is the sample standard deviation of the response used for residuals.
	SD float64
	// Combinations counts distinct full dimension combinations.
	Combinations int
	// Rows holds every row annotated, in source order.
	Rows []AnnotatedRow
	// Exceptional is the ordered subsequence of Rows beyond the threshold.
	Exceptional []AnnotatedRow
	Warnings    []string
}

// Run executes expected values, main effects, residuals and selection over ds.
// Any stage error aborts the run; no partial result is returned.
func Run(ds *dataset.Dataset, opt Options) (*Result, error) {
	log := opt.Logger
	if log == nil {
		log = slog.Default()
	}
	formula, err := ParseFormula(string(opt.Formula))
	if err != nil {
		return nil, &ConfigurationError{Reason: err.Error()}
	}
	runID := uuid.NewString()
	log = log.With("run", runID, "dataset", ds.Name)

	rows, combos, err := ComputeExpected(ds)
	if err != nil {
		return nil, err
	}
	log.Debug("computed expected values", "rows", len(rows), "combinations", combos.Len())

	if opt.MainEffects {
		var tables []*GroupMeans
		rows, tables, err = ComputeInExp(ds, rows)
		if err != nil {
			return nil, err
		}
		log.Debug("computed main effects", "marginal_dimensions", len(tables))
	} else {
		log.Debug("main effects disabled; residuals use expected values")
	}

	rows, sd, err := ComputeResiduals(ds, rows, formula)
	if err != nil {
		return nil, err
	}
	log.Debug("computed residuals", "sd", sd, "formula", string(formula))

	selected := SelectExceptional(rows, opt.Threshold)
	log.Info("selected exceptional values", "count", len(selected), "threshold", opt.Threshold)

	return &Result{
		RunID:        runID,
		Dataset:      ds.Name,
		Dimensions:   append([]string(nil), ds.Dimensions...),
		Response:     ds.Response,
		LogScaled:    ds.LogScaled,
		Threshold:    opt.Threshold,
		Formula:      formula,
		SD:           sd,
		Combinations: combos.Len(),
		Rows:         rows,
		Exceptional:  selected,
		Warnings:     append([]string(nil), ds.Warnings...),
	}, nil
}
