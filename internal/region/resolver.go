// Package region resolves a region specification into a single boundary
// geometry in the target coordinate reference system.
package region

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/udmkit/fishnet/internal/boundary"
	"github.com/udmkit/fishnet/internal/features"
	"github.com/udmkit/fishnet/internal/model"
	"github.com/udmkit/fishnet/internal/observability"
	"github.com/udmkit/fishnet/internal/spatial"
)

// Region is the resolved area of interest. Boundary is a single, possibly
// multi-part polygon; its bounding box always has strictly positive width
// and height. Immutable once created.
type Region struct {
	CRS      string
	Boundary spatial.Geometry
}

func (r Region) Bounds() model.Bound { return r.Boundary.Bounds() }

type Resolver struct {
	eng    spatial.Engine
	src    boundary.Source
	logger *zerolog.Logger
}

func NewResolver(eng spatial.Engine, src boundary.Source, logger *zerolog.Logger) *Resolver {
	return &Resolver{eng: eng, src: src, logger: logger}
}

// Resolve produces the Region for spec. For an explicit bounding box the
// boundary is the literal rectangle; for area codes it is the geometric
// union of the repaired, reprojected boundary features. Resolution fails
// before any grid work when a code is unknown.
func (r *Resolver) Resolve(ctx context.Context, spec model.RegionSpec) (Region, error) {
	if err := spec.Validate(); err != nil {
		return Region{}, err
	}

	if spec.BBox != nil {
		return Region{CRS: spec.CRS, Boundary: r.eng.Rect(*spec.BBox)}, nil
	}

	if r.src == nil {
		return Region{}, fmt.Errorf("region: no boundary source configured, area codes cannot be resolved: %w", model.ErrInvalidInput)
	}

	parts := make([]spatial.Geometry, 0, len(spec.AreaCodes))
	for _, code := range spec.AreaCodes {
		doc, err := r.lookup(ctx, code)
		if err != nil {
			return Region{}, err
		}
		g, err := features.GeometryOf(r.eng, doc.Geometry.Geometry())
		if err != nil {
			return Region{}, fmt.Errorf("region: boundary of %q: %w", code, err)
		}
		// repair before union: union of invalid geometries is undefined
		g, err = r.eng.Repair(g)
		if err != nil {
			return Region{}, fmt.Errorf("region: boundary of %q: %w", code, err)
		}
		g, err = r.eng.Reproject(g, doc.CRS, spec.CRS)
		if err != nil {
			return Region{}, fmt.Errorf("region: boundary of %q: %w", code, err)
		}
		parts = append(parts, g)
	}

	union, err := r.eng.Union(parts)
	if err != nil {
		return Region{}, fmt.Errorf("region: union of %d boundaries: %w", len(parts), err)
	}
	if r.eng.Area(union) <= 0 || union.Bounds().Empty() {
		return Region{}, &model.EmptyRegionError{Codes: spec.AreaCodes}
	}

	if r.logger != nil {
		r.logger.Info().
			Strs("codes", spec.AreaCodes).
			Str("crs", spec.CRS).
			Str("bounds", union.Bounds().String()).
			Msg("region resolved")
	}
	return Region{CRS: spec.CRS, Boundary: union}, nil
}

func (r *Resolver) lookup(ctx context.Context, code string) (boundary.Document, error) {
	start := time.Now()
	doc, err := r.src.Lookup(ctx, code)
	observability.ObserveBoundaryLookup("source", time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, boundary.ErrNotFound) {
			return boundary.Document{}, &model.UnknownRegionError{Code: code}
		}
		return boundary.Document{}, fmt.Errorf("region: lookup %q: %w", code, err)
	}
	if doc.Geometry == nil {
		return boundary.Document{}, &model.UnknownRegionError{Code: code}
	}
	return doc, nil
}
