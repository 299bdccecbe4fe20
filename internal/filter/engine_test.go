package filter

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woozymasta/geocheck/internal/table"
)

// makeTable builds a table where each map is one row's cells.
func makeTable(columns []string, rows ...map[string]any) *table.Table {
	tbl := &table.Table{Columns: columns}
	for i, cells := range rows {
		tbl.Rows = append(tbl.Rows, table.Row{Cells: cells, Source: i})
	}
	return tbl
}

func TestInferKind(t *testing.T) {
	tbl := makeTable([]string{"num", "numstr", "mixed", "text", "empty", "boolean"},
		map[string]any{"num": float64(1), "numstr": "1.5", "mixed": float64(2), "text": "a", "boolean": true},
		map[string]any{"num": float64(2.5), "numstr": " 2 ", "mixed": "two", "text": "b"},
		map[string]any{"num": nil, "numstr": nil, "mixed": nil, "text": nil},
	)

	assert.Equal(t, KindNumeric, InferKind(tbl, "num"))
	assert.Equal(t, KindNumeric, InferKind(tbl, "numstr"), "numeric strings count as numeric")
	assert.Equal(t, KindCategorical, InferKind(tbl, "mixed"), "one non-numeric value makes the column categorical")
	assert.Equal(t, KindCategorical, InferKind(tbl, "text"))
	assert.Equal(t, KindCategorical, InferKind(tbl, "empty"), "all-null columns are categorical")
	assert.Equal(t, KindCategorical, InferKind(tbl, "boolean"))
}

func TestDescribeNumericBounds(t *testing.T) {
	tbl := makeTable([]string{"v"},
		map[string]any{"v": float64(1.234)},
		map[string]any{"v": float64(5.678)},
		map[string]any{"v": nil},
	)

	cols := Describe(tbl, DefaultLimits())
	require.Len(t, cols, 1)

	col := cols[0]
	assert.Equal(t, KindNumeric, col.Kind)
	assert.True(t, col.Filterable)
	require.NotNil(t, col.Range)
	assert.Equal(t, 1.23, col.Range.Min)
	assert.Equal(t, 5.68, col.Range.Max)
	assert.Equal(t, 1, col.Missing)
	assert.Equal(t, 2, col.Distinct)
}

func TestDescribeDegenerateRangeWidened(t *testing.T) {
	tbl := makeTable([]string{"v"},
		map[string]any{"v": float64(5)},
		map[string]any{"v": float64(5)},
	)

	cols := Describe(tbl, DefaultLimits())
	require.NotNil(t, cols[0].Range)
	assert.Equal(t, float64(5), cols[0].Range.Min)
	assert.Equal(t, float64(6), cols[0].Range.Max, "upper bound is inflated to keep the range usable")
}

func TestDescribeCategoricalDomainOrder(t *testing.T) {
	tbl := makeTable([]string{"c"},
		map[string]any{"c": "beta"},
		map[string]any{"c": "alpha"},
		map[string]any{"c": "beta"},
		map[string]any{"c": nil},
	)

	cols := Describe(tbl, DefaultLimits())
	col := cols[0]
	assert.Equal(t, KindCategorical, col.Kind)
	assert.True(t, col.Filterable)
	assert.Equal(t, []string{"beta", "alpha"}, col.Values, "first-seen order")
	assert.Equal(t, 1, col.Missing)
}

func TestDescribeCategoricalCapSuppressesSelector(t *testing.T) {
	rows := make([]map[string]any, 0, 101)
	for i := 0; i < 101; i++ {
		rows = append(rows, map[string]any{"c": fmt.Sprintf("v%03d", i)})
	}
	tbl := makeTable([]string{"c"}, rows...)

	cols := Describe(tbl, DefaultLimits())
	col := cols[0]
	assert.False(t, col.Filterable)
	assert.Nil(t, col.Values)
	assert.Equal(t, 101, col.Distinct)
}

func TestDescribeAllNullColumn(t *testing.T) {
	tbl := makeTable([]string{"c"},
		map[string]any{"c": nil},
		map[string]any{},
	)

	cols := Describe(tbl, DefaultLimits())
	col := cols[0]
	assert.Equal(t, KindCategorical, col.Kind)
	assert.False(t, col.Filterable)
	assert.Equal(t, 0, col.Distinct)
	assert.Equal(t, 2, col.Missing)
}

func TestEvaluateNoSpecsKeepsEverything(t *testing.T) {
	tbl := makeTable([]string{"v"},
		map[string]any{"v": float64(1)},
		map[string]any{"v": float64(2)},
		map[string]any{"v": float64(3)},
	)

	res := Evaluate(tbl, Specs{})
	assert.Equal(t, []int{0, 1, 2}, res.Indices)
}

func TestEvaluateNumericRange(t *testing.T) {
	tbl := makeTable([]string{"v"},
		map[string]any{"v": float64(1)},
		map[string]any{"v": "2"},
		map[string]any{"v": "not a number"},
		map[string]any{"v": nil},
		map[string]any{"v": float64(10)},
	)

	res := Evaluate(tbl, Specs{"v": {Range: &Range{Min: 1, Max: 5}}})
	assert.Equal(t, []int{0, 1}, res.Indices, "unparseable and null cells never match a range")
}

func TestEvaluateEmptyCategoricalIsNoOp(t *testing.T) {
	tbl := makeTable([]string{"c"},
		map[string]any{"c": "a"},
		map[string]any{"c": nil},
	)

	res := Evaluate(tbl, Specs{"c": {Selected: []string{}}})
	assert.Equal(t, []int{0, 1}, res.Indices, "empty selection means unconstrained, not match-nothing")
}

func TestEvaluateCategoricalSelection(t *testing.T) {
	tbl := makeTable([]string{"c"},
		map[string]any{"c": "a"},
		map[string]any{"c": "b"},
		map[string]any{"c": float64(1)},
		map[string]any{"c": nil},
	)

	res := Evaluate(tbl, Specs{"c": {Selected: []string{"a", "1"}}})
	assert.Equal(t, []int{0, 2}, res.Indices, "numbers match by canonical rendering; nulls never match")
}

func TestEvaluateConjunction(t *testing.T) {
	tbl := makeTable([]string{"kind", "pop"},
		map[string]any{"kind": "city", "pop": float64(100)},
		map[string]any{"kind": "city", "pop": float64(10)},
		map[string]any{"kind": "village", "pop": float64(100)},
	)

	res := Evaluate(tbl, Specs{
		"kind": {Selected: []string{"city"}},
		"pop":  {Range: &Range{Min: 50, Max: 500}},
	})
	assert.Equal(t, []int{0}, res.Indices)
}

func TestEvaluateIdempotent(t *testing.T) {
	tbl := makeTable([]string{"v"},
		map[string]any{"v": float64(1)},
		map[string]any{"v": float64(2)},
		map[string]any{"v": float64(3)},
	)
	specs := Specs{"v": {Range: &Range{Min: 2, Max: 3}}}

	first := Evaluate(tbl, specs)
	second := Evaluate(tbl, specs)
	assert.Equal(t, first, second)
	assert.LessOrEqual(t, len(first.Indices), len(tbl.Rows))
}

func TestCellNumber(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{float64(1.5), 1.5, true},
		{int(3), 3, true},
		{"  4.25 ", 4.25, true},
		{"abc", 0, false},
		{true, 0, false},
		{nil, 0, false},
	}
	for _, tc := range tests {
		got, ok := cellNumber(tc.in)
		assert.Equal(t, tc.ok, ok, "input %v", tc.in)
		if tc.ok {
			assert.Equal(t, tc.want, got)
		}
	}
}
