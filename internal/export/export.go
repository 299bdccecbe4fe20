// Package export renders filtered results as downloadable artifacts:
// CSV tables and pretty or compact GeoJSON subsets.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/tdewolff/minify/v2"
	mjson "github.com/tdewolff/minify/v2/json"

	"github.com/woozymasta/geocheck/internal/filter"
	"github.com/woozymasta/geocheck/internal/geo"
	"github.com/woozymasta/geocheck/internal/table"
)

var minifier = minify.New()

func init() {
	minifier.AddFunc("application/json", mjson.Minify)
}

// CSV writes the filtered rows as CSV. A nil or empty columns slice means all
// table columns; otherwise only the named columns are emitted, in the given
// order. Null cells render as empty fields.
func CSV(w io.Writer, tbl *table.Table, res filter.Result, columns []string) error {
	if tbl == nil {
		return fmt.Errorf("export: no table")
	}

	if len(columns) == 0 {
		columns = tbl.Columns
	} else {
		known := make(map[string]bool, len(tbl.Columns))
		for _, c := range tbl.Columns {
			known[c] = true
		}
		for _, c := range columns {
			if !known[c] {
				return fmt.Errorf("export: unknown column %q", c)
			}
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}

	record := make([]string, len(columns))
	for _, idx := range res.Indices {
		if idx < 0 || idx >= len(tbl.Rows) {
			continue
		}
		row := tbl.Rows[idx]
		for i, col := range columns {
			record[i] = table.CellString(row.Cells[col])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// GeoJSON projects the filtered rows back onto the original features and
// pretty-prints the subset with two-space indentation. Returns (nil, nil)
// when there is nothing to export.
func GeoJSON(c *geo.Collection, res filter.Result) ([]byte, error) {
	raw := geo.Project(c, res.Indices)
	if raw == nil {
		return nil, nil
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, fmt.Errorf("export: indent: %w", err)
	}

	return buf.Bytes(), nil
}

// CompactGeoJSON is the minified variant of GeoJSON for wire-friendly output.
func CompactGeoJSON(c *geo.Collection, res filter.Result) ([]byte, error) {
	raw := geo.Project(c, res.Indices)
	if raw == nil {
		return nil, nil
	}

	out, err := minifier.Bytes("application/json", raw)
	if err != nil {
		return nil, fmt.Errorf("export: minify: %w", err)
	}

	return out, nil
}
