package model

import (
	"errors"
	"fmt"
)

// ErrInvalidInput marks errors caused by a malformed request rather than a
// failure inside the engine; callers map it to a client error.
var ErrInvalidInput = errors.New("invalid input")

// InvalidBoundsError reports a bounding box whose min is not strictly below
// its max on both axes.
type InvalidBoundsError struct {
	Bound Bound
}

func (e *InvalidBoundsError) Error() string {
	return fmt.Sprintf("invalid bounds %s: min must be strictly less than max on both axes", e.Bound)
}

// UnknownRegionError reports an administrative area code with no matching
// boundary feature.
type UnknownRegionError struct {
	Code string
}

func (e *UnknownRegionError) Error() string {
	return fmt.Sprintf("unknown region %q: no boundary feature found", e.Code)
}

// EmptyRegionError reports a resolved region whose boundary union is empty
// or has zero area.
type EmptyRegionError struct {
	Codes []string
}

func (e *EmptyRegionError) Error() string {
	return fmt.Sprintf("region resolved from %v is empty or degenerate", e.Codes)
}

// InvalidCellSizeError reports a non-positive fishnet cell size.
type InvalidCellSizeError struct {
	CellSize float64
}

func (e *InvalidCellSizeError) Error() string {
	return fmt.Sprintf("invalid cell size %g: must be > 0", e.CellSize)
}

// GridTooLargeError reports a grid whose cell count exceeds the safety
// ceiling, e.g. a continental bounding box with a sub-metre cell size.
type GridTooLargeError struct {
	NCols, NRows int
	Limit        int
}

func (e *GridTooLargeError) Error() string {
	return fmt.Sprintf("grid of %d x %d = %d cells exceeds limit of %d",
		e.NCols, e.NRows, e.NCols*e.NRows, e.Limit)
}

// CRSMismatchError reports a feature layer supplied in a different
// coordinate reference system than the grid. The layer is never silently
// reprojected.
type CRSMismatchError struct {
	GridCRS  string
	LayerCRS string
}

func (e *CRSMismatchError) Error() string {
	return fmt.Sprintf("feature layer CRS %q does not match grid CRS %q", e.LayerCRS, e.GridCRS)
}

// InvalidFeatureGeometryError reports a feature whose geometry remained
// invalid or empty after repair. Index is the feature's position in the
// layer.
type InvalidFeatureGeometryError struct {
	Index int
	Cause error
}

func (e *InvalidFeatureGeometryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("feature %d: invalid geometry: %v", e.Index, e.Cause)
	}
	return fmt.Sprintf("feature %d: invalid geometry", e.Index)
}

func (e *InvalidFeatureGeometryError) Unwrap() error { return e.Cause }
