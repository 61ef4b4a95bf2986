// Package fishnet generates the uniform cell grid covering a region's
// bounding box.
package fishnet

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/udmkit/fishnet/internal/model"
	"github.com/udmkit/fishnet/internal/observability"
	"github.com/udmkit/fishnet/internal/region"
	"github.com/udmkit/fishnet/internal/spatial"
)

// Cell is one rectangle of the fishnet, identified by (Row, Col).
type Cell struct {
	Row, Col int
	Geom     spatial.Geometry
}

// Grid is the generated fishnet. Cells are enumerated row-major: row 0 at
// the origin's y coordinate increasing upward, column 0 at the origin's x
// coordinate increasing rightward. Downstream consumers rely on this order
// to rebuild a 2-D array from the flat sequence.
type Grid struct {
	Spec  model.GridSpec
	CRS   string
	Cells []Cell
}

type Generator struct {
	eng      spatial.Engine
	maxCells int
	logger   *zerolog.Logger
}

func NewGenerator(eng spatial.Engine, maxCells int, logger *zerolog.Logger) *Generator {
	return &Generator{eng: eng, maxCells: maxCells, logger: logger}
}

// Generate builds the covering grid for reg with square cells of side
// cellSize. The grid may overshoot the region's bounding box at the top and
// right edges; cells are never clipped to the boundary here — membership in
// the region's actual shape is decided by the overlay step.
// maxGridDim caps a single grid dimension so the float-to-int conversion in
// CoverGrid can never overflow, independent of the configured cell ceiling.
const maxGridDim = float64(math.MaxInt32)

func (g *Generator) Generate(reg region.Region, cellSize float64) (Grid, error) {
	if cellSize <= 0 || math.IsNaN(cellSize) || math.IsInf(cellSize, 0) {
		return Grid{}, &model.InvalidCellSizeError{CellSize: cellSize}
	}

	// check the float dimensions before converting to int: a pathological
	// extent must surface as too-large, not overflow into negative counts
	b := reg.Bounds()
	cols := math.Ceil(b.Width() / cellSize)
	rows := math.Ceil(b.Height() / cellSize)
	if math.IsNaN(cols) || math.IsNaN(rows) || cols > maxGridDim || rows > maxGridDim ||
		(g.maxCells > 0 && cols*rows > float64(g.maxCells)) {
		return Grid{}, &model.GridTooLargeError{NCols: clampCount(cols), NRows: clampCount(rows), Limit: g.maxCells}
	}

	spec := model.CoverGrid(b, cellSize)

	cells := make([]Cell, 0, spec.Cells())
	for row := 0; row < spec.NRows; row++ {
		for col := 0; col < spec.NCols; col++ {
			// cell corners come from the grid spec by multiplication, not by
			// accumulating offsets, so identical inputs give bit-identical
			// geometries
			cells = append(cells, Cell{
				Row:  row,
				Col:  col,
				Geom: g.eng.Rect(spec.CellBound(row, col)),
			})
		}
	}

	observability.ObserveGridCells(spec.Cells())
	if g.logger != nil {
		g.logger.Info().
			Int("n_rows", spec.NRows).
			Int("n_cols", spec.NCols).
			Float64("cell_size", spec.CellSize).
			Str("crs", reg.CRS).
			Msg("fishnet generated")
	}
	return Grid{Spec: spec, CRS: reg.CRS, Cells: cells}, nil
}

// clampCount converts a float cell count for error reporting. Values beyond
// the dimension cap (including NaN) are pinned to it rather than converted.
func clampCount(v float64) int {
	if !(v >= 0 && v <= maxGridDim) {
		return int(maxGridDim)
	}
	return int(v)
}
