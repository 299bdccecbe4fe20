// Package geo handles GeoJSON feature collections and geometry quality checks.
package geo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Common errors returned when a document cannot become an attribute table.
var (
	ErrInvalidFormat   = errors.New("geo: not a GeoJSON FeatureCollection")
	ErrNoValidFeatures = errors.New("geo: no features with usable geometry")
)

// Feature is one collection member that carries a usable geometry.
// Raw holds the exact bytes the feature arrived with, so a later projection
// can emit it without re-encoding.
type Feature struct {
	Raw        json.RawMessage
	Properties map[string]any
	Keys       []string // property keys in document order
	Geometry   orb.Geometry
	Source     int // position in the original features array
}

// Collection is an immutable parsed feature collection.
// Features keeps every original member in array order; Valid keeps only the
// members with a non-null structured geometry, in encounter order. The link
// between the two is Valid[i].Source, never positional arithmetic.
type Collection struct {
	Features []json.RawMessage
	Valid    []Feature
}

// Total returns the number of features in the original document.
func (c *Collection) Total() int {
	return len(c.Features)
}

type rawCollection struct {
	Type     string            `json:"type"`
	Features []json.RawMessage `json:"features"`
}

type rawFeature struct {
	Type       string          `json:"type"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties json.RawMessage `json:"properties"`
}

// ParseCollection parses a GeoJSON FeatureCollection document.
//
// The top level must be an object with a features array, otherwise
// ErrInvalidFormat. A feature is valid iff its geometry field is a non-null
// JSON object; invalid members are skipped but their positions are preserved
// through Feature.Source. A geometry object that fails to decode as a known
// geometry type still makes the feature valid, its quality cells just degrade
// to null later. ErrNoValidFeatures when nothing survives.
func ParseCollection(data []byte) (*Collection, error) {
	var doc rawCollection
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if doc.Features == nil {
		return nil, fmt.Errorf("%w: missing features array", ErrInvalidFormat)
	}

	c := &Collection{Features: doc.Features}

	for i, raw := range doc.Features {
		var f rawFeature
		if err := json.Unmarshal(raw, &f); err != nil {
			continue
		}
		if !isObject(f.Geometry) {
			continue
		}

		props, keys := decodeProperties(f.Properties)

		valid := Feature{
			Raw:        raw,
			Properties: props,
			Keys:       keys,
			Source:     i,
		}
		if g, err := geojson.UnmarshalGeometry(f.Geometry); err == nil {
			valid.Geometry = g.Geometry()
		}

		c.Valid = append(c.Valid, valid)
	}

	if len(c.Valid) == 0 {
		return nil, ErrNoValidFeatures
	}

	return c, nil
}

// isObject reports whether raw is a JSON object (not null, not absent).
func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// decodeProperties returns the property bag plus its keys in document order.
// encoding/json maps lose key order, so the order is recovered with a token
// scan over the same bytes.
func decodeProperties(raw json.RawMessage) (map[string]any, []string) {
	if !isObject(raw) {
		return map[string]any{}, nil
	}

	var props map[string]any
	if err := json.Unmarshal(raw, &props); err != nil {
		return map[string]any{}, nil
	}

	return props, objectKeys(raw)
}

// objectKeys lists a JSON object's top-level keys in document order.
func objectKeys(raw json.RawMessage) []string {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil || tok != json.Delim('{') {
		return nil
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return keys
		}
		key, ok := tok.(string)
		if !ok {
			return keys
		}
		keys = append(keys, key)

		if err := skipValue(dec); err != nil {
			return keys
		}
	}

	return keys
}

// skipValue consumes one complete JSON value from the decoder.
func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}

	d, ok := tok.(json.Delim)
	if !ok || (d != '{' && d != '[') {
		return nil
	}

	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}

	return nil
}

// Project assembles a new FeatureCollection containing the selected valid
// features, identified by their positions in the Valid slice. The original
// feature bytes are spliced in unmodified. Returns nil when there is nothing
// to export: a nil collection or an empty selection.
func Project(c *Collection, rows []int) []byte {
	if c == nil || len(rows) == 0 {
		return nil
	}

	var picked []json.RawMessage
	for _, row := range rows {
		if row < 0 || row >= len(c.Valid) {
			continue
		}
		picked = append(picked, c.Features[c.Valid[row].Source])
	}
	if len(picked) == 0 {
		return nil
	}

	var buf bytes.Buffer
	buf.WriteString(`{"type":"FeatureCollection","features":[`)
	for i, raw := range picked {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(raw)
	}
	buf.WriteString(`]}`)

	return buf.Bytes()
}
