// Package spatial defines the geometry capability the engine is written
// against. Implementations adapt a concrete computational-geometry library;
// the rest of the engine only sees these interfaces.
package spatial

import (
	"github.com/udmkit/fishnet/internal/model"
)

// Geometry is an opaque polygonal geometry owned by the engine that
// produced it. Geometries from different engines must not be mixed.
type Geometry interface {
	Bounds() model.Bound
}

// Index is a bounding-box spatial index over a fixed set of geometries,
// built once and queried many times. Intersecting returns the positions
// (in the slice the index was built from) of all geometries whose bounding
// boxes overlap b.
type Index interface {
	Intersecting(b model.Bound) []int
}

// Engine provides the planar geometry primitives the pipeline needs:
// construction, overlay, area, validity repair, reprojection and indexing.
type Engine interface {
	// Rect builds an axis-aligned rectangle.
	Rect(b model.Bound) Geometry

	// Polygon builds a polygon from rings (outer ring first, then holes).
	// Rings need not repeat the closing vertex.
	Polygon(rings [][]model.Point) (Geometry, error)

	// MultiPolygon builds a multi-part polygon.
	MultiPolygon(polys [][][]model.Point) (Geometry, error)

	// Area returns the total enclosed area of g, always >= 0.
	Area(g Geometry) float64

	// Intersection computes the overlay intersection of a and b. The
	// result may be empty (zero area) or multi-part.
	Intersection(a, b Geometry) (Geometry, error)

	// Union computes the geometric union of gs. An empty input yields an
	// empty geometry.
	Union(gs []Geometry) (Geometry, error)

	// Repair normalizes an invalid (e.g. self-intersecting) geometry into
	// a topologically valid one, the zero-distance-buffer analogue. It
	// returns an error when no valid geometry can be recovered.
	Repair(g Geometry) (Geometry, error)

	// Reproject transforms g between coordinate reference systems named
	// by identifier (e.g. "EPSG:27700").
	Reproject(g Geometry, fromCRS, toCRS string) (Geometry, error)

	// NewIndex builds a bounding-box index over gs.
	NewIndex(gs []Geometry) Index
}
