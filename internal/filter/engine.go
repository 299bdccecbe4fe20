// Package filter infers per-column filter kinds and evaluates filter specs
// against an attribute table.
package filter

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/woozymasta/geocheck/internal/table"
)

// Kind classifies how a column can be filtered.
type Kind string

const (
	// KindNumeric marks columns where every non-null value parses as a
	// finite decimal number.
	KindNumeric Kind = "numeric"
	// KindCategorical marks everything else, including all-null columns.
	KindCategorical Kind = "categorical"
)

// Limits are the tuning knobs that shape inferred filter metadata.
// They affect observable numeric contracts and are therefore configuration,
// not hidden heuristics.
type Limits struct {
	// MaxCategorical suppresses the selector for categorical columns with
	// more distinct values than this. Bounds interactive cost only.
	MaxCategorical int
	// RoundDecimals rounds numeric bounds for stability.
	RoundDecimals int
	// RangeWiden inflates the upper bound when min == max so the range
	// stays non-degenerate.
	RangeWiden float64
}

// DefaultLimits mirror the historical behavior of the checker UI.
func DefaultLimits() Limits {
	return Limits{MaxCategorical: 100, RoundDecimals: 2, RangeWiden: 1}
}

// Range is an inclusive numeric bound.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Spec is one per-column constraint, either a numeric range or a categorical
// selection. An empty Selected slice is a no-op, not "match nothing".
type Spec struct {
	Range    *Range   `json:"range,omitempty"`
	Selected []string `json:"selected,omitempty"`
}

// Specs maps column names to constraints. A column absent from the map is
// unconstrained.
type Specs map[string]Spec

// Result is the outcome of an evaluation: positions into the table's rows,
// in original row order.
type Result struct {
	Indices []int `json:"indices"`
}

// Column is the filter metadata exposed for one table column.
type Column struct {
	Name       string   `json:"name"`
	Kind       Kind     `json:"kind"`
	Filterable bool     `json:"filterable"`
	Range      *Range   `json:"range,omitempty"`
	Values     []string `json:"values,omitempty"`
	Distinct   int      `json:"distinct"`
	Missing    int      `json:"missing"`
}

// InferKind classifies a column. Numeric requires every non-null cell to
// parse as a finite decimal; a column with no values at all is categorical.
func InferKind(tbl *table.Table, column string) Kind {
	sawValue := false
	for _, row := range tbl.Rows {
		v := row.Cells[column]
		if v == nil {
			continue
		}
		sawValue = true
		if _, ok := cellNumber(v); !ok {
			return KindCategorical
		}
	}
	if !sawValue {
		return KindCategorical
	}
	return KindNumeric
}

// Describe computes filter metadata for every column of the table, in column
// order. All-null categorical columns come back with an empty domain and
// Filterable false; they still accept an empty spec as a no-op.
func Describe(tbl *table.Table, limits Limits) []Column {
	columns := make([]Column, 0, len(tbl.Columns))
	for _, name := range tbl.Columns {
		columns = append(columns, describeColumn(tbl, name, limits))
	}
	return columns
}

func describeColumn(tbl *table.Table, name string, limits Limits) Column {
	col := Column{Name: name, Kind: InferKind(tbl, name)}

	seen := make(map[string]bool)
	var domain []string
	minVal, maxVal := math.Inf(1), math.Inf(-1)

	for _, row := range tbl.Rows {
		v := row.Cells[name]
		if v == nil {
			col.Missing++
			continue
		}

		rendered := table.CellString(v)
		if !seen[rendered] {
			seen[rendered] = true
			domain = append(domain, rendered)
		}

		if col.Kind == KindNumeric {
			n, _ := cellNumber(v)
			minVal = math.Min(minVal, n)
			maxVal = math.Max(maxVal, n)
		}
	}

	col.Distinct = len(domain)

	switch col.Kind {
	case KindNumeric:
		lo := roundTo(minVal, limits.RoundDecimals)
		hi := roundTo(maxVal, limits.RoundDecimals)
		if lo == hi {
			hi += limits.RangeWiden
		}
		col.Range = &Range{Min: lo, Max: hi}
		col.Filterable = true
	case KindCategorical:
		if col.Distinct == 0 || col.Distinct > limits.MaxCategorical {
			col.Filterable = false
			return col
		}
		col.Values = domain
		col.Filterable = true
	}

	return col
}

// Evaluate applies the specs as a conjunction over every row and returns the
// matching row positions in original order. Deterministic for a given table
// and spec set.
func Evaluate(tbl *table.Table, specs Specs) Result {
	res := Result{Indices: []int{}}

	for i, row := range tbl.Rows {
		if matches(row, specs) {
			res.Indices = append(res.Indices, i)
		}
	}

	return res
}

func matches(row table.Row, specs Specs) bool {
	for column, spec := range specs {
		v := row.Cells[column]

		if spec.Range != nil {
			// unparseable and null cells never match a numeric range
			n, ok := cellNumber(v)
			if !ok || n < spec.Range.Min || n > spec.Range.Max {
				return false
			}
		}

		if len(spec.Selected) > 0 {
			if v == nil {
				return false
			}
			rendered := table.CellString(v)
			found := false
			for _, want := range spec.Selected {
				if want == rendered {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}

	return true
}

// cellNumber parses a cell as a finite decimal number.
func cellNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	default:
		return 0, false
	}
}

// roundTo rounds v to the given number of decimal places.
func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
