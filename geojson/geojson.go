// Copyright 2023 The flatgeobuf (Go) Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package geojson converts decoded FlatGeobuf features into
// github.com/paulmach/orb geometries and geojson.Feature values, for
// callers that want GeoJSON rather than raw FlatBuffers tables.
package geojson

import (
	"bytes"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	flatgeobuf "github.com/flatgeobuf-go/rangereader"
	"github.com/flatgeobuf-go/rangereader/flat"
	"github.com/flatgeobuf-go/rangereader/packedrtree"
)

// ToFeature converts one decoded FlatGeobuf feature into a
// geojson.Feature. schema resolves property column indices to names
// and types; pass the feature itself (it satisfies flat.Schema) when
// its columns are embedded, or a file Header when columns are
// declared once for the whole file. A feature's own embedded columns
// are used whatever schema is passed; a nil schema for a feature
// without embedded columns produces a geometry-only Feature.
func ToFeature(feat *flat.Feature, schema flat.Schema) (*geojson.Feature, error) {
	geom := feat.Geometry(nil)
	if geom == nil {
		return nil, fmt.Errorf("flatgeobuf/geojson: feature has no geometry")
	}
	orbGeom, err := Geometry(geom)
	if err != nil {
		return nil, err
	}

	f := geojson.NewFeature(orbGeom)

	// A feature's own embedded columns, when present, take precedence
	// over the schema argument (normally the file Header's columns),
	// mirroring flat.Feature.StringSchema's column-source precedence.
	propSchema := schema
	if feat.ColumnsLength() > 0 {
		propSchema = feat
	}
	if propSchema == nil || propSchema.ColumnsLength() == 0 {
		return f, nil
	}

	// ReadSchema panics (via flat's internal fmtPanic) on an unrecognized
	// ColumnType rather than returning an error. flat.Safe traps that, so
	// it surfaces here as UnsupportedColumnType; any other decode error
	// it returns normally means the property stream itself is malformed.
	var props []flat.PropValue
	var readErr error
	if panicErr := flat.Safe(func() error {
		props, readErr = flat.NewPropReader(bytes.NewReader(feat.PropertiesBytes())).ReadSchema(propSchema)
		return nil
	}); panicErr != nil {
		return nil, &flatgeobuf.Error{Op: "geojson.ToFeature", Kind: flatgeobuf.UnsupportedColumnType, Err: panicErr}
	}
	if readErr != nil {
		return nil, &flatgeobuf.Error{Op: "geojson.ToFeature", Kind: flatgeobuf.CorruptFeature, Err: readErr}
	}
	for _, p := range props {
		f.Properties[string(p.Col.Name())] = p.Value
	}
	return f, nil
}

// Collect drains a Select/SelectConcurrent iterator into a
// geojson.FeatureCollection. schema is passed through to ToFeature for
// every feature; pass the file Header when features carry no embedded
// columns of their own.
func Collect(seq func(func(*flat.Feature, error) bool), schema flat.Schema) (*geojson.FeatureCollection, error) {
	fc := geojson.NewFeatureCollection()
	var outerErr error
	seq(func(feat *flat.Feature, err error) bool {
		if err != nil {
			outerErr = err
			return false
		}
		f, err := ToFeature(feat, schema)
		if err != nil {
			outerErr = err
			return false
		}
		fc.Append(f)
		return true
	})
	if outerErr != nil {
		return nil, outerErr
	}
	return fc, nil
}

// Geometry converts a single FlatGeobuf geometry table into an orb
// geometry, recursing through Parts for the multi-part and collection
// types.
func Geometry(g *flat.Geometry) (orb.Geometry, error) {
	switch g.Type() {
	case flat.GeometryTypePoint:
		pts := points(g)
		if len(pts) != 1 {
			return nil, fmt.Errorf("flatgeobuf/geojson: Point geometry has %d coordinates, want 1", len(pts))
		}
		return pts[0], nil
	case flat.GeometryTypeMultiPoint:
		return orb.MultiPoint(points(g)), nil
	case flat.GeometryTypeLineString:
		return orb.LineString(points(g)), nil
	case flat.GeometryTypeMultiLineString:
		lines := make(orb.MultiLineString, 0, len(rings(g)))
		for _, r := range rings(g) {
			lines = append(lines, orb.LineString(r))
		}
		return lines, nil
	case flat.GeometryTypePolygon:
		poly := make(orb.Polygon, 0, len(rings(g)))
		for _, r := range rings(g) {
			poly = append(poly, orb.Ring(r))
		}
		return poly, nil
	case flat.GeometryTypeMultiPolygon:
		n := g.PartsLength()
		multi := make(orb.MultiPolygon, 0, n)
		for i := 0; i < n; i++ {
			var part flat.Geometry
			if !g.Parts(&part, i) {
				return nil, fmt.Errorf("flatgeobuf/geojson: MultiPolygon part %d missing", i)
			}
			sub, err := Geometry(&part)
			if err != nil {
				return nil, err
			}
			poly, ok := sub.(orb.Polygon)
			if !ok {
				return nil, fmt.Errorf("flatgeobuf/geojson: MultiPolygon part %d has type %T, want orb.Polygon", i, sub)
			}
			multi = append(multi, poly)
		}
		return multi, nil
	case flat.GeometryTypeGeometryCollection:
		n := g.PartsLength()
		coll := make(orb.Collection, 0, n)
		for i := 0; i < n; i++ {
			var part flat.Geometry
			if !g.Parts(&part, i) {
				return nil, fmt.Errorf("flatgeobuf/geojson: GeometryCollection part %d missing", i)
			}
			sub, err := Geometry(&part)
			if err != nil {
				return nil, err
			}
			coll = append(coll, sub)
		}
		return coll, nil
	default:
		return nil, fmt.Errorf("flatgeobuf/geojson: unsupported geometry type %s", g.Type())
	}
}

// points decodes g's flat Xy vector into orb.Points, ignoring Z/M/T/Tm
// dimensions: GeoJSON output here is always 2D.
func points(g *flat.Geometry) []orb.Point {
	n := g.XyLength()
	pts := make([]orb.Point, 0, n/2)
	for i := 0; i < n; i += 2 {
		pts = append(pts, orb.Point{g.Xy(i), g.Xy(i + 1)})
	}
	return pts
}

// rings splits g's flat Xy vector into one []orb.Point per Ends
// boundary, covering both a Polygon's rings and a MultiLineString's
// parts. A geometry with no Ends is a single ring spanning the whole
// Xy vector.
func rings(g *flat.Geometry) [][]orb.Point {
	pts := points(g)
	numEnds := g.EndsLength()
	if numEnds == 0 {
		return [][]orb.Point{pts}
	}
	out := make([][]orb.Point, 0, numEnds)
	start := 0
	for i := 0; i < numEnds; i++ {
		end := int(g.Ends(i))
		out = append(out, pts[start:end])
		start = end
	}
	return out
}

// Bound converts a packedrtree.Box query rectangle into an orb.Bound,
// the form most orb-based callers already work with.
func Bound(b packedrtree.Box) orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.XMin, b.YMin},
		Max: orb.Point{b.XMax, b.YMax},
	}
}
