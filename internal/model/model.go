// Package model defines core domain types shared across the engine.
package model

import (
	"fmt"
	"math"
	"regexp"
)

// Point is a planar coordinate in the map units of some CRS.
type Point struct {
	X, Y float64
}

// Bound is an axis-aligned rectangle.
type Bound struct {
	Min, Max Point
}

func (b Bound) Width() float64  { return b.Max.X - b.Min.X }
func (b Bound) Height() float64 { return b.Max.Y - b.Min.Y }

// Empty reports whether the bound has zero or negative extent on either axis.
func (b Bound) Empty() bool {
	return b.Width() <= 0 || b.Height() <= 0
}

// Finite reports whether every corner coordinate is a finite number. NaN and
// infinite coordinates defeat ordered comparisons, so extent checks are only
// meaningful on a finite bound.
func (b Bound) Finite() bool {
	for _, v := range [4]float64{b.Min.X, b.Min.Y, b.Max.X, b.Max.Y} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// String representation matching the wfs/wms bbox format
func (b Bound) String() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", b.Min.X, b.Min.Y, b.Max.X, b.Max.Y)
}

var areaCodePattern = regexp.MustCompile(`^[A-Z][0-9]{8}$`)

// ValidAreaCode reports whether s looks like an administrative area code
// (one uppercase letter followed by eight digits, e.g. E06000001).
func ValidAreaCode(s string) bool {
	return areaCodePattern.MatchString(s)
}

// RegionSpec selects the area of interest: exactly one of BBox or AreaCodes
// must be set. CRS names the coordinate reference system the resolved region
// should be expressed in (e.g. "EPSG:27700").
type RegionSpec struct {
	CRS       string
	BBox      *Bound
	AreaCodes []string
}

func (s RegionSpec) Validate() error {
	if s.CRS == "" {
		return fmt.Errorf("region spec: missing CRS")
	}
	hasBox := s.BBox != nil
	hasCodes := len(s.AreaCodes) > 0
	if hasBox == hasCodes {
		return fmt.Errorf("region spec: exactly one of bbox or area codes is required")
	}
	if hasBox {
		if !s.BBox.Finite() || s.BBox.Min.X >= s.BBox.Max.X || s.BBox.Min.Y >= s.BBox.Max.Y {
			return &InvalidBoundsError{Bound: *s.BBox}
		}
		return nil
	}
	for _, c := range s.AreaCodes {
		if !ValidAreaCode(c) {
			return fmt.Errorf("region spec: malformed area code %q", c)
		}
	}
	return nil
}

// GridSpec is the topology of a fishnet: a covering grid of square cells of
// side CellSize whose lower-left corner is Origin.
type GridSpec struct {
	CellSize float64 `json:"cell_size"`
	Origin   Point   `json:"origin"`
	NCols    int     `json:"n_cols"`
	NRows    int     `json:"n_rows"`
}

// CellBound returns the rectangle of cell (row, col). Row 0 sits at the
// origin's y coordinate, column 0 at the origin's x coordinate.
func (g GridSpec) CellBound(row, col int) Bound {
	x0 := g.Origin.X + float64(col)*g.CellSize
	y0 := g.Origin.Y + float64(row)*g.CellSize
	return Bound{
		Min: Point{X: x0, Y: y0},
		Max: Point{X: x0 + g.CellSize, Y: y0 + g.CellSize},
	}
}

// CellArea is the full area of one cell.
func (g GridSpec) CellArea() float64 { return g.CellSize * g.CellSize }

// Cells is the total cell count of the grid.
func (g GridSpec) Cells() int { return g.NCols * g.NRows }

// CoverGrid computes the grid spec covering b with cells of side cellSize,
// by the ceiling-division rule. The grid may overshoot b at the high edges.
func CoverGrid(b Bound, cellSize float64) GridSpec {
	return GridSpec{
		CellSize: cellSize,
		Origin:   b.Min,
		NCols:    int(math.Ceil(b.Width() / cellSize)),
		NRows:    int(math.Ceil(b.Height() / cellSize)),
	}
}

// ClassifiedCell is the per-cell overlay result. Area is the intersected
// area against the feature layer, in squared map units.
type ClassifiedCell struct {
	Row      int     `json:"row"`
	Col      int     `json:"col"`
	Area     float64 `json:"area"`
	Included bool    `json:"included"`
}

// RasterResult is the complete classified grid, ready for encoding. Cells
// are laid out flat in row-major order: index = row*NCols + col.
type RasterResult struct {
	Spec      GridSpec         `json:"grid"`
	CRS       string           `json:"crs"`
	Threshold float64          `json:"threshold"`
	Invert    bool             `json:"invert"`
	Cells     []ClassifiedCell `json:"cells"`
}

// At returns the classified cell at (row, col).
func (r RasterResult) At(row, col int) ClassifiedCell {
	return r.Cells[row*r.Spec.NCols+col]
}
