// Package ctgeom implements the spatial.Engine capability on top of
// github.com/ctessum/geom.
package ctgeom

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/ctessum/geom/proj"

	"github.com/udmkit/fishnet/internal/model"
	"github.com/udmkit/fishnet/internal/spatial"
)

type Engine struct{}

func New() *Engine { return &Engine{} }

var _ spatial.Engine = (*Engine)(nil)

// geometry wraps a ctessum polygonal geometry. The wrapped value is never
// nil; empty results are represented by an empty geom.Polygon.
type geometry struct {
	p geom.Polygonal
}

func wrap(p geom.Polygonal) geometry {
	if p == nil {
		p = geom.Polygon{}
	}
	return geometry{p: p}
}

func (g geometry) Bounds() model.Bound {
	if isEmpty(g.p) {
		return model.Bound{}
	}
	b := g.p.Bounds()
	return model.Bound{
		Min: model.Point{X: b.Min.X, Y: b.Min.Y},
		Max: model.Point{X: b.Max.X, Y: b.Max.Y},
	}
}

func isEmpty(p geom.Polygonal) bool {
	switch t := p.(type) {
	case geom.Polygon:
		return len(t) == 0
	case geom.MultiPolygon:
		return len(t) == 0
	default:
		return p == nil
	}
}

func (e *Engine) unwrap(g spatial.Geometry) (geom.Polygonal, error) {
	gg, ok := g.(geometry)
	if !ok {
		return nil, fmt.Errorf("ctgeom: geometry of foreign type %T", g)
	}
	return gg.p, nil
}

func (e *Engine) Rect(b model.Bound) spatial.Geometry {
	return wrap(rectPolygon(b))
}

func rectPolygon(b model.Bound) geom.Polygon {
	return geom.Polygon{{
		{X: b.Min.X, Y: b.Min.Y},
		{X: b.Max.X, Y: b.Min.Y},
		{X: b.Max.X, Y: b.Max.Y},
		{X: b.Min.X, Y: b.Max.Y},
	}}
}

func (e *Engine) Polygon(rings [][]model.Point) (spatial.Geometry, error) {
	p, err := toPolygon(rings)
	if err != nil {
		return nil, err
	}
	return wrap(p), nil
}

func (e *Engine) MultiPolygon(polys [][][]model.Point) (spatial.Geometry, error) {
	mp := make(geom.MultiPolygon, 0, len(polys))
	for i, rings := range polys {
		p, err := toPolygon(rings)
		if err != nil {
			return nil, fmt.Errorf("polygon %d: %w", i, err)
		}
		mp = append(mp, p)
	}
	return wrap(mp), nil
}

func toPolygon(rings [][]model.Point) (geom.Polygon, error) {
	if len(rings) == 0 {
		return nil, errors.New("polygon has no rings")
	}
	p := make(geom.Polygon, 0, len(rings))
	for i, ring := range rings {
		r := make([]geom.Point, 0, len(ring))
		for _, pt := range ring {
			r = append(r, geom.Point{X: pt.X, Y: pt.Y})
		}
		// drop an explicitly repeated closing vertex
		if len(r) >= 2 && r[0] == r[len(r)-1] {
			r = r[:len(r)-1]
		}
		if len(r) < 3 {
			return nil, fmt.Errorf("ring %d has %d distinct vertices, need at least 3", i, len(r))
		}
		p = append(p, r)
	}
	return p, nil
}

func (e *Engine) Area(g spatial.Geometry) float64 {
	p, err := e.unwrap(g)
	if err != nil || isEmpty(p) {
		return 0
	}
	a := p.Area()
	if a < 0 {
		a = -a
	}
	return a
}

func (e *Engine) Intersection(a, b spatial.Geometry) (spatial.Geometry, error) {
	pa, err := e.unwrap(a)
	if err != nil {
		return nil, err
	}
	pb, err := e.unwrap(b)
	if err != nil {
		return nil, err
	}
	if isEmpty(pa) || isEmpty(pb) {
		return wrap(nil), nil
	}
	return wrap(pa.Intersection(pb)), nil
}

func (e *Engine) Union(gs []spatial.Geometry) (spatial.Geometry, error) {
	var u geom.Polygonal
	for _, g := range gs {
		p, err := e.unwrap(g)
		if err != nil {
			return nil, err
		}
		if isEmpty(p) {
			continue
		}
		if u == nil {
			u = p
			continue
		}
		u = u.Union(p)
	}
	return wrap(u), nil
}

// Repair runs the geometry through the polygon clipper by intersecting it
// with its own bounding rectangle, which resolves self-intersections and
// ring-orientation problems the same way a zero-distance buffer does.
func (e *Engine) Repair(g spatial.Geometry) (spatial.Geometry, error) {
	p, err := e.unwrap(g)
	if err != nil {
		return nil, err
	}
	if isEmpty(p) {
		return nil, errors.New("ctgeom: cannot repair empty geometry")
	}
	b := p.Bounds()
	if b.Max.X <= b.Min.X || b.Max.Y <= b.Min.Y {
		return nil, errors.New("ctgeom: cannot repair degenerate geometry with empty extent")
	}
	fixed := p.Intersection(rectPolygon(model.Bound{
		Min: model.Point{X: b.Min.X, Y: b.Min.Y},
		Max: model.Point{X: b.Max.X, Y: b.Max.Y},
	}))
	if fixed == nil || isEmpty(fixed) {
		return nil, errors.New("ctgeom: repair yielded no valid geometry")
	}
	return wrap(fixed), nil
}

func (e *Engine) Reproject(g spatial.Geometry, fromCRS, toCRS string) (spatial.Geometry, error) {
	p, err := e.unwrap(g)
	if err != nil {
		return nil, err
	}
	if normalizeCRS(fromCRS) == normalizeCRS(toCRS) {
		return g, nil
	}
	from, err := parseSR(fromCRS)
	if err != nil {
		return nil, err
	}
	to, err := parseSR(toCRS)
	if err != nil {
		return nil, err
	}
	trans, err := from.NewTransform(to)
	if err != nil {
		return nil, fmt.Errorf("ctgeom: transform %s -> %s: %w", fromCRS, toCRS, err)
	}
	out, err := p.Transform(trans)
	if err != nil {
		return nil, fmt.Errorf("ctgeom: reproject %s -> %s: %w", fromCRS, toCRS, err)
	}
	pp, ok := out.(geom.Polygonal)
	if !ok {
		return nil, fmt.Errorf("ctgeom: reprojection produced non-polygonal %T", out)
	}
	return wrap(pp), nil
}

// proj4 definitions for the coordinate reference systems the service
// accepts. EPSG:27700 is the British National Grid the boundary datasets
// are published in.
var proj4ByCRS = map[string]string{
	"EPSG:4326":  "+proj=longlat +datum=WGS84 +no_defs",
	"EPSG:3857":  "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 +x_0=0.0 +y_0=0 +k=1.0 +units=m +nadgrids=@null +no_defs",
	"EPSG:27700": "+proj=tmerc +lat_0=49 +lon_0=-2 +k=0.9996012717 +x_0=400000 +y_0=-100000 +ellps=airy +towgs84=446.448,-125.157,542.06,0.15,0.247,0.842,-20.489 +units=m +no_defs",
}

func normalizeCRS(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func parseSR(crs string) (*proj.SR, error) {
	p4, ok := proj4ByCRS[normalizeCRS(crs)]
	if !ok {
		return nil, fmt.Errorf("ctgeom: unsupported CRS %q", crs)
	}
	sr, err := proj.Parse(p4)
	if err != nil {
		return nil, fmt.Errorf("ctgeom: parse CRS %q: %w", crs, err)
	}
	return sr, nil
}

// indexItem carries a geometry's position in the input slice through the
// r-tree, which stores and returns geom.Geom values.
type indexItem struct {
	geom.Polygonal
	pos int
}

type index struct {
	tree *rtree.Rtree
}

func (e *Engine) NewIndex(gs []spatial.Geometry) spatial.Index {
	tree := rtree.NewTree(25, 50)
	for i, g := range gs {
		p, err := e.unwrap(g)
		if err != nil || isEmpty(p) {
			continue
		}
		tree.Insert(&indexItem{Polygonal: p, pos: i})
	}
	return &index{tree: tree}
}

func (x *index) Intersecting(b model.Bound) []int {
	hits := x.tree.SearchIntersect(&geom.Bounds{
		Min: geom.Point{X: b.Min.X, Y: b.Min.Y},
		Max: geom.Point{X: b.Max.X, Y: b.Max.Y},
	})
	out := make([]int, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.(*indexItem).pos)
	}
	// r-tree traversal order is not stable; keep query results deterministic
	sort.Ints(out)
	return out
}
