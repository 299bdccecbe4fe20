package geo

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ccwRing() orb.Ring { return orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}} }
func cwRing() orb.Ring  { return orb.Ring{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}} }

func TestWindingPolygon(t *testing.T) {
	flag := Winding(orb.Polygon{ccwRing()})
	require.NotNil(t, flag)
	assert.False(t, *flag, "CCW exterior ring must not be flagged")

	flag = Winding(orb.Polygon{cwRing()})
	require.NotNil(t, flag)
	assert.True(t, *flag, "CW exterior ring must be flagged")
}

func TestWindingMultiPolygon(t *testing.T) {
	flag := Winding(orb.MultiPolygon{{ccwRing()}, {ccwRing()}})
	require.NotNil(t, flag)
	assert.False(t, *flag)

	// one clockwise part flags the whole geometry
	flag = Winding(orb.MultiPolygon{{ccwRing()}, {cwRing()}})
	require.NotNil(t, flag)
	assert.True(t, *flag)
}

func TestWindingNotApplicable(t *testing.T) {
	assert.Nil(t, Winding(orb.Point{1, 2}))
	assert.Nil(t, Winding(orb.LineString{{0, 0}, {1, 1}}))
	assert.Nil(t, Winding(orb.MultiPoint{{0, 0}}))
}

func TestWindingDegenerate(t *testing.T) {
	assert.Nil(t, Winding(orb.Polygon{}))
	assert.Nil(t, Winding(orb.Polygon{orb.Ring{{0, 0}, {1, 1}, {0, 0}}}))
	assert.Nil(t, Winding(orb.MultiPolygon{}))
	assert.Nil(t, Winding(orb.MultiPolygon{{ccwRing()}, {}}))
}

func TestExcessPrecisionWithinBudget(t *testing.T) {
	p := orb.Polygon{orb.Ring{
		{0.123456, 0}, {1, 0}, {1, 1.000001}, {0.123456, 0},
	}}
	flag := ExcessPrecision(p, 6)
	require.NotNil(t, flag)
	assert.False(t, *flag)
}

func TestExcessPrecisionSingleVertexFlips(t *testing.T) {
	p := orb.Polygon{orb.Ring{
		{0.123456, 0}, {1, 0}, {1, 1.0000001}, {0.123456, 0},
	}}
	flag := ExcessPrecision(p, 6)
	require.NotNil(t, flag)
	assert.True(t, *flag, "a single seventh fractional digit must flip the flag")
}

func TestExcessPrecisionIgnoresInteriorRings(t *testing.T) {
	p := orb.Polygon{
		ccwRing(),
		orb.Ring{{0.1234567, 0.2}, {0.3, 0.2}, {0.3, 0.4}, {0.1234567, 0.2}},
	}
	flag := ExcessPrecision(p, 6)
	require.NotNil(t, flag)
	assert.False(t, *flag, "holes are not inspected")
}

func TestExcessPrecisionMultiPolygon(t *testing.T) {
	mp := orb.MultiPolygon{
		{ccwRing()},
		{orb.Ring{{0.1234567, 0}, {1, 0}, {1, 1}, {0.1234567, 0}}},
	}
	flag := ExcessPrecision(mp, 6)
	require.NotNil(t, flag)
	assert.True(t, *flag)
}

func TestExcessPrecisionNotApplicable(t *testing.T) {
	assert.Nil(t, ExcessPrecision(orb.Point{0.12345678, 0}, 6))
	assert.Nil(t, ExcessPrecision(orb.LineString{{0, 0}, {1, 1}}, 6))
	assert.Nil(t, ExcessPrecision(orb.Polygon{}, 6))
	assert.Nil(t, ExcessPrecision(orb.MultiPolygon{}, 6))
}

func TestExcessPrecisionNonFinite(t *testing.T) {
	p := orb.Polygon{orb.Ring{{math.NaN(), 0}, {1, 0}, {1, 1}, {math.NaN(), 0}}}
	assert.Nil(t, ExcessPrecision(p, 6))

	p = orb.Polygon{orb.Ring{{math.Inf(1), 0}, {1, 0}, {1, 1}, {math.Inf(1), 0}}}
	assert.Nil(t, ExcessPrecision(p, 6))
}

func TestFractionDigits(t *testing.T) {
	tests := []struct {
		value float64
		want  int
	}{
		{100, 0},
		{-3, 0},
		{1.5, 1},
		{0.123456, 6},
		{0.1234567, 7},
		{12.25, 2},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, fractionDigits(tc.value), "value %v", tc.value)
	}
}

func TestWKT(t *testing.T) {
	assert.Equal(t, "", WKT(nil))

	got := WKT(orb.Polygon{ccwRing()})
	assert.Contains(t, got, "POLYGON")
	assert.NotEmpty(t, got)

	assert.Contains(t, WKT(orb.Point{30.5, 50.25}), "POINT")
}
