package ctgeom

import (
	"math"
	"testing"

	"github.com/udmkit/fishnet/internal/model"
	"github.com/udmkit/fishnet/internal/spatial"
)

func bound(x0, y0, x1, y1 float64) model.Bound {
	return model.Bound{Min: model.Point{X: x0, Y: y0}, Max: model.Point{X: x1, Y: y1}}
}

func TestRect_AreaAndBounds(t *testing.T) {
	e := New()
	r := e.Rect(bound(0, 0, 50, 50))

	if got := e.Area(r); math.Abs(got-2500) > 1e-9 {
		t.Fatalf("Area = %g, want 2500", got)
	}
	b := r.Bounds()
	if b.Min.X != 0 || b.Min.Y != 0 || b.Max.X != 50 || b.Max.Y != 50 {
		t.Fatalf("Bounds = %+v", b)
	}
}

func TestIntersection_OverlappingRects(t *testing.T) {
	e := New()
	a := e.Rect(bound(0, 0, 10, 10))
	b := e.Rect(bound(5, 5, 15, 15))

	got, err := e.Intersection(a, b)
	if err != nil {
		t.Fatalf("Intersection: %v", err)
	}
	if area := e.Area(got); math.Abs(area-25) > 1e-9 {
		t.Fatalf("intersection area = %g, want 25", area)
	}
}

func TestIntersection_Disjoint_IsEmpty(t *testing.T) {
	e := New()
	a := e.Rect(bound(0, 0, 1, 1))
	b := e.Rect(bound(5, 5, 6, 6))

	got, err := e.Intersection(a, b)
	if err != nil {
		t.Fatalf("Intersection: %v", err)
	}
	if area := e.Area(got); area != 0 {
		t.Fatalf("disjoint intersection area = %g, want 0", area)
	}
}

func TestUnion_DisjointRects_SumsAreas(t *testing.T) {
	e := New()
	u, err := e.Union([]spatial.Geometry{
		e.Rect(bound(0, 0, 10, 10)),
		e.Rect(bound(20, 0, 30, 10)),
	})
	if err != nil {
		t.Fatalf("Union: %v", err)
	}
	if area := e.Area(u); math.Abs(area-200) > 1e-9 {
		t.Fatalf("union area = %g, want 200", area)
	}
}

func TestUnion_Empty_IsEmptyGeometry(t *testing.T) {
	e := New()
	u, err := e.Union(nil)
	if err != nil {
		t.Fatalf("Union: %v", err)
	}
	if area := e.Area(u); area != 0 {
		t.Fatalf("empty union area = %g, want 0", area)
	}
}

func TestPolygon_RejectsDegenerateRing(t *testing.T) {
	e := New()
	_, err := e.Polygon([][]model.Point{{{X: 0, Y: 0}, {X: 1, Y: 1}}})
	if err == nil {
		t.Fatalf("expected error for 2-vertex ring")
	}
}

func TestPolygon_DropsClosingVertex(t *testing.T) {
	e := New()
	g, err := e.Polygon([][]model.Point{{
		{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}, {X: 0, Y: 0},
	}})
	if err != nil {
		t.Fatalf("Polygon: %v", err)
	}
	if area := e.Area(g); math.Abs(area-100) > 1e-9 {
		t.Fatalf("area = %g, want 100", area)
	}
}

func TestRepair_SelfIntersectingBowtie(t *testing.T) {
	e := New()
	g, err := e.Polygon([][]model.Point{{
		{X: 0, Y: 0}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 10},
	}})
	if err != nil {
		t.Fatalf("Polygon: %v", err)
	}
	fixed, err := e.Repair(g)
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if area := e.Area(fixed); area <= 0 {
		t.Fatalf("repaired area = %g, want > 0", area)
	}
}

func TestReproject_SameCRS_NoOp(t *testing.T) {
	e := New()
	g := e.Rect(bound(0, 0, 10, 10))
	out, err := e.Reproject(g, "EPSG:27700", "epsg:27700")
	if err != nil {
		t.Fatalf("Reproject: %v", err)
	}
	// geometry wraps a slice-backed polygon, so interface equality would
	// panic; assert the no-op on bounds and area instead
	if out.Bounds() != g.Bounds() {
		t.Fatalf("same-CRS reprojection moved bounds: %v != %v", out.Bounds(), g.Bounds())
	}
	if got, want := e.Area(out), e.Area(g); got != want {
		t.Fatalf("same-CRS reprojection changed area: %g != %g", got, want)
	}
}

func TestReproject_UnsupportedCRS(t *testing.T) {
	e := New()
	g := e.Rect(bound(0, 0, 10, 10))
	if _, err := e.Reproject(g, "EPSG:27700", "EPSG:9999"); err == nil {
		t.Fatalf("expected error for unsupported CRS")
	}
}

func TestIndex_IntersectingReturnsSortedPositions(t *testing.T) {
	e := New()
	gs := []spatial.Geometry{
		e.Rect(bound(0, 0, 10, 10)),
		e.Rect(bound(100, 100, 110, 110)),
		e.Rect(bound(5, 5, 15, 15)),
	}
	idx := e.NewIndex(gs)

	hits := idx.Intersecting(bound(4, 4, 6, 6))
	if len(hits) != 2 || hits[0] != 0 || hits[1] != 2 {
		t.Fatalf("hits = %v, want [0 2]", hits)
	}
	if hits := idx.Intersecting(bound(50, 50, 60, 60)); len(hits) != 0 {
		t.Fatalf("expected no hits, got %v", hits)
	}
}
