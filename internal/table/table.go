// Package table flattens feature collections into row-oriented attribute tables.
package table

import (
	"encoding/json"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/woozymasta/geocheck/internal/geo"
)

// Synthetic columns appended after the property columns. ColWinding keeps its
// historical name; it holds the "exterior ring was clockwise" flag.
const (
	ColWKT       = "geometry_wkt"
	ColWinding   = "is_ccw"
	ColPrecision = "has_excess_precision"
)

// Row is one valid feature flattened into cells. Source is the feature's
// position in the original features array, the join key for projection.
type Row struct {
	Cells  map[string]any `json:"cells"`
	Source int            `json:"source"`
}

// Table is an ordered attribute table. Rows[i] corresponds to the i-th valid
// feature in encounter order; a nil cell is the null marker for a missing,
// null or not-applicable value.
type Table struct {
	Columns []string
	Rows    []Row
}

// Build converts a parsed collection into an attribute table.
//
// The column schema is the first-seen union of property keys across all valid
// features, followed by the three synthetic quality columns. Quality values
// that cannot be computed for a row degrade to nil cells, they never abort
// the build.
func Build(c *geo.Collection, maxFractionDigits int) (*Table, error) {
	if c == nil || len(c.Valid) == 0 {
		return nil, geo.ErrNoValidFeatures
	}

	tbl := &Table{}

	seen := make(map[string]bool)
	for _, f := range c.Valid {
		for _, key := range f.Keys {
			if !seen[key] {
				seen[key] = true
				tbl.Columns = append(tbl.Columns, key)
			}
		}
	}
	tbl.Columns = append(tbl.Columns, ColWKT, ColWinding, ColPrecision)

	for _, f := range c.Valid {
		cells := make(map[string]any, len(f.Properties)+3)
		for key, value := range f.Properties {
			cells[key] = value
		}

		if f.Geometry == nil {
			log.Debug().
				Int("feature", f.Source).
				Msg("Geometry not decodable, quality cells degraded to null")
			cells[ColWKT] = nil
			cells[ColWinding] = nil
			cells[ColPrecision] = nil
		} else {
			cells[ColWKT] = geo.WKT(f.Geometry)
			cells[ColWinding] = flagCell(geo.Winding(f.Geometry))
			cells[ColPrecision] = flagCell(geo.ExcessPrecision(f.Geometry, maxFractionDigits))
		}

		tbl.Rows = append(tbl.Rows, Row{Cells: cells, Source: f.Source})
	}

	return tbl, nil
}

// flagCell converts an optional quality flag into a cell value.
func flagCell(b *bool) any {
	if b == nil {
		return nil
	}
	return *b
}

// CellString renders a cell value in its canonical text form. Numbers use the
// shortest round-trip decimal rendering, so 1 and 1.0 from JSON compare equal.
// The null marker renders as the empty string.
func CellString(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case bool:
		return strconv.FormatBool(c)
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case int:
		return strconv.Itoa(c)
	case int64:
		return strconv.FormatInt(c, 10)
	case json.Number:
		return c.String()
	default:
		// structured property values (arrays, nested objects)
		data, err := json.Marshal(c)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
