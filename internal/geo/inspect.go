package geo

import (
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

// Winding reports whether a polygonal geometry was delivered with a clockwise
// exterior ring, i.e. opposite to the CCW-positive convention. For a
// MultiPolygon the flag is true if any part fails the test. Nil means the
// check does not apply: non-areal geometry types, or rings too degenerate to
// orient.
func Winding(g orb.Geometry) *bool {
	switch geom := g.(type) {
	case orb.Polygon:
		return exteriorClockwise(geom)
	case orb.MultiPolygon:
		if len(geom) == 0 {
			return nil
		}
		flagged := false
		for _, p := range geom {
			cw := exteriorClockwise(p)
			if cw == nil {
				return nil
			}
			flagged = flagged || *cw
		}
		return &flagged
	default:
		return nil
	}
}

// exteriorClockwise checks the orientation of a polygon's exterior ring.
// A closed ring needs at least four points.
func exteriorClockwise(p orb.Polygon) *bool {
	if len(p) == 0 || len(p[0]) < 4 {
		return nil
	}
	cw := p[0].Orientation() == orb.CW
	return &cw
}

// ExcessPrecision reports whether any exterior-ring vertex of a polygonal
// geometry carries more than maxDigits fractional decimal digits in its
// canonical decimal rendering. Interior rings are not inspected. Nil means
// not applicable (non-areal geometry, empty polygon) or that a coordinate is
// not a finite number.
func ExcessPrecision(g orb.Geometry, maxDigits int) *bool {
	var rings []orb.Ring

	switch geom := g.(type) {
	case orb.Polygon:
		if len(geom) == 0 {
			return nil
		}
		rings = append(rings, geom[0])
	case orb.MultiPolygon:
		if len(geom) == 0 {
			return nil
		}
		for _, p := range geom {
			if len(p) == 0 {
				return nil
			}
			rings = append(rings, p[0])
		}
	default:
		return nil
	}

	excess := false
	for _, ring := range rings {
		for _, pt := range ring {
			for _, v := range [2]float64{pt[0], pt[1]} {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return nil
				}
				if fractionDigits(v) > maxDigits {
					excess = true
				}
			}
		}
	}

	return &excess
}

// fractionDigits counts the decimal digits after the point in the shortest
// round-trip rendering of v. Plain decimal form, never scientific notation.
func fractionDigits(v float64) int {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return 0
	}
	return len(s) - dot - 1
}

// WKT serializes a geometry as well-known text. Coordinates keep their full
// precision, no truncation.
func WKT(g orb.Geometry) string {
	if g == nil {
		return ""
	}
	return wkt.MarshalString(g)
}
