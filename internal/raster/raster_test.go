package raster

import (
	"context"
	"errors"
	"testing"

	"github.com/udmkit/fishnet/internal/features"
	"github.com/udmkit/fishnet/internal/fishnet"
	"github.com/udmkit/fishnet/internal/model"
	"github.com/udmkit/fishnet/internal/region"
	"github.com/udmkit/fishnet/internal/spatial/ctgeom"
)

func testGrid(t *testing.T, min, max model.Point, cellSize float64) fishnet.Grid {
	t.Helper()
	eng := ctgeom.New()
	reg := region.Region{CRS: "EPSG:27700", Boundary: eng.Rect(model.Bound{Min: min, Max: max})}
	grid, err := fishnet.NewGenerator(eng, 1_000_000, nil).Generate(reg, cellSize)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return grid
}

func rectLayer(crs string, bounds ...model.Bound) features.Layer {
	eng := ctgeom.New()
	l := features.Layer{CRS: crs}
	for _, b := range bounds {
		l.Features = append(l.Features, features.Feature{Geom: eng.Rect(b)})
	}
	return l
}

func includedCells(res model.RasterResult) map[[2]int]bool {
	out := map[[2]int]bool{}
	for _, c := range res.Cells {
		if c.Included {
			out[[2]int{c.Row, c.Col}] = true
		}
	}
	return out
}

func TestClassify_QuarterCoverage(t *testing.T) {
	grid := testGrid(t, model.Point{X: 0, Y: 0}, model.Point{X: 100, Y: 100}, 50)
	layer := rectLayer("EPSG:27700", model.Bound{Min: model.Point{X: 0, Y: 0}, Max: model.Point{X: 50, Y: 50}})

	res, err := New(ctgeom.New(), nil).Classify(context.Background(), grid, layer, Options{Threshold: 0.5})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(res.Cells) != 4 {
		t.Fatalf("cells = %d, want 4", len(res.Cells))
	}
	inc := includedCells(res)
	if len(inc) != 1 || !inc[[2]int{0, 0}] {
		t.Fatalf("included = %v, want only (0,0)", inc)
	}
	if got := res.At(0, 0).Area; got != 2500 {
		t.Fatalf("cell (0,0) area = %g, want 2500", got)
	}
	if got := res.At(1, 1).Area; got != 0 {
		t.Fatalf("cell (1,1) area = %g, want 0", got)
	}
}

func TestClassify_OutputIsRowMajor(t *testing.T) {
	grid := testGrid(t, model.Point{X: 0, Y: 0}, model.Point{X: 150, Y: 100}, 50)
	layer := rectLayer("EPSG:27700")

	res, err := New(ctgeom.New(), nil).Classify(context.Background(), grid, layer, Options{Threshold: 0.5})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	for i, c := range res.Cells {
		if c.Row != i/grid.Spec.NCols || c.Col != i%grid.Spec.NCols {
			t.Fatalf("cell %d is (%d,%d), want (%d,%d)", i, c.Row, c.Col, i/grid.Spec.NCols, i%grid.Spec.NCols)
		}
	}
}

func TestClassify_ExactThresholdIncludes(t *testing.T) {
	grid := testGrid(t, model.Point{X: 0, Y: 0}, model.Point{X: 50, Y: 50}, 50)
	// covers exactly half the single cell
	layer := rectLayer("EPSG:27700", model.Bound{Min: model.Point{X: 0, Y: 0}, Max: model.Point{X: 25, Y: 50}})

	res, err := New(ctgeom.New(), nil).Classify(context.Background(), grid, layer, Options{Threshold: 0.5})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !res.At(0, 0).Included {
		t.Fatal("cell exactly at threshold must be included")
	}
}

func TestClassify_InvertComplementsSelection(t *testing.T) {
	grid := testGrid(t, model.Point{X: 0, Y: 0}, model.Point{X: 100, Y: 100}, 50)
	layer := rectLayer("EPSG:27700", model.Bound{Min: model.Point{X: 0, Y: 0}, Max: model.Point{X: 50, Y: 50}})

	plain, err := New(ctgeom.New(), nil).Classify(context.Background(), grid, layer, Options{Threshold: 0.5})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	inverted, err := New(ctgeom.New(), nil).Classify(context.Background(), grid, layer, Options{Threshold: 0.5, Invert: true})
	if err != nil {
		t.Fatalf("Classify inverted: %v", err)
	}
	for i := range plain.Cells {
		if plain.Cells[i].Included == inverted.Cells[i].Included {
			t.Fatalf("cell %d: invert did not complement inclusion", i)
		}
		if plain.Cells[i].Area != inverted.Cells[i].Area {
			t.Fatalf("cell %d: invert changed area %g -> %g", i, plain.Cells[i].Area, inverted.Cells[i].Area)
		}
	}
}

func TestClassify_OverlappingFeaturesNotDoubleCounted(t *testing.T) {
	grid := testGrid(t, model.Point{X: 0, Y: 0}, model.Point{X: 50, Y: 50}, 50)
	// two identical features covering half the cell; summing without a
	// union would report full coverage
	half := model.Bound{Min: model.Point{X: 0, Y: 0}, Max: model.Point{X: 25, Y: 50}}
	layer := rectLayer("EPSG:27700", half, half)

	res, err := New(ctgeom.New(), nil).Classify(context.Background(), grid, layer, Options{Threshold: 0.6})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got := res.At(0, 0).Area; got != 1250 {
		t.Fatalf("area = %g, want 1250", got)
	}
	if res.At(0, 0).Included {
		t.Fatal("overlap must not be double counted into inclusion")
	}
}

func TestClassify_EmptyLayer(t *testing.T) {
	grid := testGrid(t, model.Point{X: 0, Y: 0}, model.Point{X: 100, Y: 100}, 50)

	res, err := New(ctgeom.New(), nil).Classify(context.Background(), grid, rectLayer("EPSG:27700"), Options{Threshold: 0.5})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	for _, c := range res.Cells {
		if c.Included || c.Area != 0 {
			t.Fatalf("cell (%d,%d): included=%v area=%g with no features", c.Row, c.Col, c.Included, c.Area)
		}
	}
}

func TestClassify_CRSMismatch(t *testing.T) {
	grid := testGrid(t, model.Point{X: 0, Y: 0}, model.Point{X: 100, Y: 100}, 50)
	layer := rectLayer("EPSG:4326", model.Bound{Min: model.Point{X: 0, Y: 0}, Max: model.Point{X: 1, Y: 1}})

	_, err := New(ctgeom.New(), nil).Classify(context.Background(), grid, layer, Options{Threshold: 0.5})
	var mismatch *model.CRSMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("err = %v, want CRSMismatchError", err)
	}
	if mismatch.GridCRS != "EPSG:27700" || mismatch.LayerCRS != "EPSG:4326" {
		t.Fatalf("mismatch = %+v", mismatch)
	}
}

func TestClassify_ThresholdOutOfRange(t *testing.T) {
	grid := testGrid(t, model.Point{X: 0, Y: 0}, model.Point{X: 50, Y: 50}, 50)
	layer := rectLayer("EPSG:27700")

	for _, th := range []float64{0, -0.1, 1.5} {
		if _, err := New(ctgeom.New(), nil).Classify(context.Background(), grid, layer, Options{Threshold: th}); err == nil {
			t.Fatalf("threshold %g accepted", th)
		}
	}
}

func TestClassify_ParallelMatchesSequential(t *testing.T) {
	grid := testGrid(t, model.Point{X: 0, Y: 0}, model.Point{X: 500, Y: 400}, 25)
	layer := rectLayer("EPSG:27700",
		model.Bound{Min: model.Point{X: 10, Y: 10}, Max: model.Point{X: 260, Y: 180}},
		model.Bound{Min: model.Point{X: 200, Y: 150}, Max: model.Point{X: 480, Y: 390}},
	)

	seq, err := New(ctgeom.New(), nil).Classify(context.Background(), grid, layer, Options{Threshold: 0.3})
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}
	par, err := New(ctgeom.New(), nil).Classify(context.Background(), grid, layer, Options{Threshold: 0.3, Workers: 8})
	if err != nil {
		t.Fatalf("parallel: %v", err)
	}
	if len(seq.Cells) != len(par.Cells) {
		t.Fatalf("cell counts differ: %d vs %d", len(seq.Cells), len(par.Cells))
	}
	for i := range seq.Cells {
		if seq.Cells[i] != par.Cells[i] {
			t.Fatalf("cell %d differs: %+v vs %+v", i, seq.Cells[i], par.Cells[i])
		}
	}
}

func TestClassify_CancelledContext(t *testing.T) {
	grid := testGrid(t, model.Point{X: 0, Y: 0}, model.Point{X: 100, Y: 100}, 10)
	layer := rectLayer("EPSG:27700", model.Bound{Min: model.Point{X: 0, Y: 0}, Max: model.Point{X: 100, Y: 100}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(ctgeom.New(), nil).Classify(ctx, grid, layer, Options{Threshold: 0.5, Workers: 4}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
