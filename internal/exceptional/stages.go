package exceptional

import (
	"fmt"
	"math"

	"github.com/KaramelBytes/exval-cli/internal/dataset"
	"gonum.org/v1/gonum/stat"
)

// AnnotatedRow is a dataset row extended with the values derived by each stage.
type AnnotatedRow struct {
	dataset.Row
	// Expected is the mean response of the row's full dimension combination.
	Expected float64
	// InExp is the best single-dimension explanation; nil when the main-effect
	// stage has not produced one for the row.
	InExp    *float64
	Residual float64
}

// Baseline returns the value the residual is measured against: InExp when
// present, Expected otherwise.
func (r AnnotatedRow) Baseline() float64 {
	if r.InExp != nil {
		return *r.InExp
	}
	return r.Expected
}

// Formula selects how the residual is computed from the response and baseline.
type Formula string

const (
	// FormulaLiteral divides only the baseline by sd: response - baseline/sd.
	// This is the historical behavior and the default.
	FormulaLiteral Formula = "literal"
	// FormulaStandardized is the conventional z-score: (response - baseline) / sd.
	FormulaStandardized Formula = "standardized"
)

// ParseFormula maps a config or flag value onto a Formula.
func ParseFormula(s string) (Formula, error) {
	switch Formula(s) {
	case "", FormulaLiteral:
		return FormulaLiteral, nil
	case FormulaStandardized:
		return FormulaStandardized, nil
	default:
		return "", fmt.Errorf("unknown formula %q (use literal or standardized)", s)
	}
}

// ComputeExpected sets Expected for every row to the mean response over the rows
// sharing its exact dimension combination.
func ComputeExpected(ds *dataset.Dataset) ([]AnnotatedRow, *GroupMeans, error) {
	if len(ds.Dimensions) == 0 {
		return nil, nil, &ConfigurationError{Reason: "no dimension columns to group by; select at least one dimension and a response column"}
	}
	means := groupMeans(ds.Rows, combinationKey)
	out := make([]AnnotatedRow, len(ds.Rows))
	for i, r := range ds.Rows {
		k := combinationKey(r)
		m, ok := means.Mean(k)
		if !ok {
			return nil, nil, &KeyMappingError{Stage: "expected values", Row: r.Index, Key: k.String()}
		}
		out[i] = AnnotatedRow{Row: r, Expected: m}
	}
	return out, means, nil
}

// MarginalDimensions returns the positions of the dimensions compared as main
// effects: every dimension except the last one.
func MarginalDimensions(ds *dataset.Dataset) []int {
	if len(ds.Dimensions) < 2 {
		return nil
	}
	idx := make([]int, len(ds.Dimensions)-1)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// ComputeInExp sets InExp for every row to the maximum of its Expected value and
// the single-dimension means of its values on each marginal dimension. rows must
// come from ComputeExpected over the same dataset; they are not modified.
func ComputeInExp(ds *dataset.Dataset, rows []AnnotatedRow) ([]AnnotatedRow, []*GroupMeans, error) {
	marginal := MarginalDimensions(ds)
	tables := make([]*GroupMeans, len(marginal))
	for i, d := range marginal {
		tables[i] = groupMeans(ds.Rows, dimensionKey(d))
	}
	out := make([]AnnotatedRow, len(rows))
	for i, r := range rows {
		best := r.Expected
		for j, d := range marginal {
			k := dimensionKey(d)(r.Row)
			m, ok := tables[j].Mean(k)
			if !ok {
				return nil, nil, &KeyMappingError{Stage: "main effects of " + ds.Dimensions[d], Row: r.Index, Key: k.String()}
			}
			best = math.Max(best, m)
		}
		v := best
		r.InExp = &v
		out[i] = r
	}
	return out, tables, nil
}

// StandardDeviation returns the sample standard deviation (n-1 divisor) of the
// dataset's response column. Fewer than two rows, or a zero or non-finite
// result, is a NumericError.
func StandardDeviation(ds *dataset.Dataset) (float64, error) {
	n := ds.Len()
	if n < 2 {
		return 0, &NumericError{Op: "standard deviation", Reason: fmt.Sprintf("need at least 2 rows, have %d", n)}
	}
	sd := stat.StdDev(ds.Responses(), nil)
	if math.IsNaN(sd) || math.IsInf(sd, 0) {
		return 0, &NumericError{Op: "standard deviation", Reason: fmt.Sprintf("%s has undefined spread", ds.Response)}
	}
	if sd == 0 {
		return 0, &NumericError{Op: "standard deviation", Reason: fmt.Sprintf("%s is constant; cannot divide by zero", ds.Response)}
	}
	return sd, nil
}

// ComputeResiduals sets Residual for every row against its Baseline using a
// single dataset-wide standard deviation, which it also returns.
func ComputeResiduals(ds *dataset.Dataset, rows []AnnotatedRow, formula Formula) ([]AnnotatedRow, float64, error) {
	sd, err := StandardDeviation(ds)
	if err != nil {
		return nil, 0, err
	}
	out := make([]AnnotatedRow, len(rows))
	for i, r := range rows {
		switch formula {
		case FormulaStandardized:
			r.Residual = (r.Response - r.Baseline()) / sd
		default:
			r.Residual = r.Response - r.Baseline()/sd
		}
		out[i] = r
	}
	return out, sd, nil
}

// SelectExceptional returns, in input order, the rows whose residual lies
// strictly beyond ±threshold. The result is never nil.
func SelectExceptional(rows []AnnotatedRow, threshold float64) []AnnotatedRow {
	out := make([]AnnotatedRow, 0)
	for _, r := range rows {
		if r.Residual > threshold || r.Residual < -threshold {
			out = append(out, r)
		}
	}
	return out
}
