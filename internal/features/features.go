// Package features loads the overlay feature layer (e.g. already-developed
// land parcels) from GeoJSON into engine geometries.
package features

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/udmkit/fishnet/internal/model"
	"github.com/udmkit/fishnet/internal/spatial"
)

// Feature is one overlay polygon with its original properties.
type Feature struct {
	Geom  spatial.Geometry
	Attrs map[string]any
}

// Layer is the read-only overlay input to the rasteriser: polygon features
// in a single stated CRS.
type Layer struct {
	CRS      string
	Features []Feature
}

// FromGeoJSON parses a GeoJSON FeatureCollection into a Layer expressed in
// crs. Every geometry is run through validity repair; a feature whose
// geometry cannot be repaired fails the whole load.
func FromGeoJSON(eng spatial.Engine, data []byte, crs string) (Layer, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return Layer{}, fmt.Errorf("features: parse GeoJSON: %w: %v", model.ErrInvalidInput, err)
	}
	return FromCollection(eng, fc, crs)
}

// FromCollection converts an already-parsed FeatureCollection.
func FromCollection(eng spatial.Engine, fc *geojson.FeatureCollection, crs string) (Layer, error) {
	layer := Layer{CRS: crs, Features: make([]Feature, 0, len(fc.Features))}
	for i, f := range fc.Features {
		g, err := GeometryOf(eng, f.Geometry)
		if err != nil {
			return Layer{}, &model.InvalidFeatureGeometryError{Index: i, Cause: err}
		}
		fixed, err := eng.Repair(g)
		if err != nil {
			return Layer{}, &model.InvalidFeatureGeometryError{Index: i, Cause: err}
		}
		layer.Features = append(layer.Features, Feature{
			Geom:  fixed,
			Attrs: f.Properties,
		})
	}
	return layer, nil
}

// Geometries returns the feature geometries in layer order, the shape the
// spatial index is built from.
func (l Layer) Geometries() []spatial.Geometry {
	gs := make([]spatial.Geometry, len(l.Features))
	for i, f := range l.Features {
		gs[i] = f.Geom
	}
	return gs
}

// GeometryOf converts an orb polygonal geometry into an engine geometry.
func GeometryOf(eng spatial.Engine, g orb.Geometry) (spatial.Geometry, error) {
	switch t := g.(type) {
	case orb.Polygon:
		return eng.Polygon(ringsOf(t))
	case orb.MultiPolygon:
		polys := make([][][]model.Point, 0, len(t))
		for _, p := range t {
			polys = append(polys, ringsOf(p))
		}
		return eng.MultiPolygon(polys)
	default:
		return nil, fmt.Errorf("geometry type %T is not polygonal", g)
	}
}

func ringsOf(p orb.Polygon) [][]model.Point {
	rings := make([][]model.Point, 0, len(p))
	for _, r := range p {
		ring := make([]model.Point, 0, len(r))
		for _, pt := range r {
			ring = append(ring, model.Point{X: pt[0], Y: pt[1]})
		}
		rings = append(rings, ring)
	}
	return rings
}
