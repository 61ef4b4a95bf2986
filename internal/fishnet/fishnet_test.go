package fishnet

import (
	"errors"
	"math"
	"testing"

	"github.com/udmkit/fishnet/internal/model"
	"github.com/udmkit/fishnet/internal/region"
	"github.com/udmkit/fishnet/internal/spatial/ctgeom"
)

func bboxRegion(t *testing.T, x0, y0, x1, y1 float64) region.Region {
	t.Helper()
	eng := ctgeom.New()
	return region.Region{
		CRS: "EPSG:27700",
		Boundary: eng.Rect(model.Bound{
			Min: model.Point{X: x0, Y: y0},
			Max: model.Point{X: x1, Y: y1},
		}),
	}
}

func TestGenerate_TwoByTwo(t *testing.T) {
	eng := ctgeom.New()
	gen := NewGenerator(eng, 0, nil)

	grid, err := gen.Generate(bboxRegion(t, 0, 0, 100, 100), 50)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if grid.Spec.NCols != 2 || grid.Spec.NRows != 2 {
		t.Fatalf("dims = %dx%d, want 2x2", grid.Spec.NCols, grid.Spec.NRows)
	}
	if len(grid.Cells) != 4 {
		t.Fatalf("cells = %d, want 4", len(grid.Cells))
	}

	wantOrigins := []model.Point{
		{X: 0, Y: 0}, {X: 50, Y: 0}, {X: 0, Y: 50}, {X: 50, Y: 50},
	}
	for i, c := range grid.Cells {
		b := c.Geom.Bounds()
		if b.Min != wantOrigins[i] {
			t.Fatalf("cell %d origin = %+v, want %+v", i, b.Min, wantOrigins[i])
		}
		if b.Width() != 50 || b.Height() != 50 {
			t.Fatalf("cell %d size = %gx%g", i, b.Width(), b.Height())
		}
	}
}

func TestGenerate_RowMajorOrder(t *testing.T) {
	eng := ctgeom.New()
	gen := NewGenerator(eng, 0, nil)

	grid, err := gen.Generate(bboxRegion(t, 0, 0, 300, 200), 100)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for i, c := range grid.Cells {
		wantRow := i / grid.Spec.NCols
		wantCol := i % grid.Spec.NCols
		if c.Row != wantRow || c.Col != wantCol {
			t.Fatalf("cell %d = (%d,%d), want (%d,%d)", i, c.Row, c.Col, wantRow, wantCol)
		}
	}
}

func TestGenerate_CoveringProperty(t *testing.T) {
	eng := ctgeom.New()
	gen := NewGenerator(eng, 0, nil)

	cases := []struct {
		w, h, cs float64
	}{
		{100, 100, 50},
		{101, 99, 50},
		{250, 130, 33},
		{10, 10, 3},
	}
	for _, tc := range cases {
		grid, err := gen.Generate(bboxRegion(t, 0, 0, tc.w, tc.h), tc.cs)
		if err != nil {
			t.Fatalf("Generate(%v): %v", tc, err)
		}
		s := grid.Spec
		if float64(s.NCols)*s.CellSize < tc.w {
			t.Fatalf("grid %v does not cover width", tc)
		}
		if float64(s.NCols-1)*s.CellSize >= tc.w {
			t.Fatalf("grid %v has a fully spare column", tc)
		}
		if float64(s.NRows)*s.CellSize < tc.h {
			t.Fatalf("grid %v does not cover height", tc)
		}
		if float64(s.NRows-1)*s.CellSize >= tc.h {
			t.Fatalf("grid %v has a fully spare row", tc)
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	eng := ctgeom.New()
	gen := NewGenerator(eng, 0, nil)

	a, err := gen.Generate(bboxRegion(t, 90000, 10000, 400000, 660000), 10000)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, err := gen.Generate(bboxRegion(t, 90000, 10000, 400000, 660000), 10000)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(a.Cells) != len(b.Cells) {
		t.Fatalf("cell counts differ: %d vs %d", len(a.Cells), len(b.Cells))
	}
	for i := range a.Cells {
		if a.Cells[i].Geom.Bounds() != b.Cells[i].Geom.Bounds() {
			t.Fatalf("cell %d differs between runs", i)
		}
	}
}

func TestGenerate_InvalidCellSize(t *testing.T) {
	eng := ctgeom.New()
	gen := NewGenerator(eng, 0, nil)

	_, err := gen.Generate(bboxRegion(t, 0, 0, 100, 100), 0)
	var cerr *model.InvalidCellSizeError
	if !errors.As(err, &cerr) {
		t.Fatalf("err = %v, want InvalidCellSizeError", err)
	}

	if _, err := gen.Generate(bboxRegion(t, 0, 0, 100, 100), -10); err == nil {
		t.Fatalf("expected error for negative cell size")
	}
}

func TestGenerate_GridTooLarge(t *testing.T) {
	eng := ctgeom.New()
	gen := NewGenerator(eng, 100, nil)

	_, err := gen.Generate(bboxRegion(t, 0, 0, 10000, 10000), 10)
	var gerr *model.GridTooLargeError
	if !errors.As(err, &gerr) {
		t.Fatalf("err = %v, want GridTooLargeError", err)
	}
	if gerr.Limit != 100 {
		t.Fatalf("limit = %d, want 100", gerr.Limit)
	}
	if gerr.NCols != 1000 || gerr.NRows != 1000 {
		t.Fatalf("dims = %dx%d, want 1000x1000", gerr.NCols, gerr.NRows)
	}
}

func TestGenerate_NonFiniteCellSize(t *testing.T) {
	eng := ctgeom.New()
	gen := NewGenerator(eng, 0, nil)

	for _, cs := range []float64{math.NaN(), math.Inf(1)} {
		_, err := gen.Generate(bboxRegion(t, 0, 0, 100, 100), cs)
		var cerr *model.InvalidCellSizeError
		if !errors.As(err, &cerr) {
			t.Fatalf("cell size %g: err = %v, want InvalidCellSizeError", cs, err)
		}
	}
}

func TestGenerate_HugeExtentDoesNotOverflow(t *testing.T) {
	eng := ctgeom.New()
	huge := bboxRegion(t, 0, 0, 1e300, 1e300)

	// with a configured ceiling
	_, err := NewGenerator(eng, 4_000_000, nil).Generate(huge, 10)
	var gerr *model.GridTooLargeError
	if !errors.As(err, &gerr) {
		t.Fatalf("err = %v, want GridTooLargeError", err)
	}
	if gerr.NCols < 0 || gerr.NRows < 0 {
		t.Fatalf("dims overflowed: %dx%d", gerr.NCols, gerr.NRows)
	}

	// even unlimited, the per-dimension cap must hold the line
	_, err = NewGenerator(eng, 0, nil).Generate(huge, 10)
	if !errors.As(err, &gerr) {
		t.Fatalf("unlimited: err = %v, want GridTooLargeError", err)
	}
}
