// Package boundary defines the administrative-boundary source consumed by
// the region resolver, plus caching decorators for it.
package boundary

import (
	"context"
	"errors"

	"github.com/paulmach/orb/geojson"
)

// ErrNotFound is returned when no boundary feature exists for a code.
var ErrNotFound = errors.New("boundary: not found")

// Document is one administrative-area boundary as published by the
// boundary service: a polygonal geometry in a stated CRS.
type Document struct {
	Code     string            `json:"code"`
	Name     string            `json:"name,omitempty"`
	CRS      string            `json:"crs"`
	Geometry *geojson.Geometry `json:"geometry"`
}

// Source looks up the boundary for a single administrative-area code.
// Lookups are idempotent and side-effect free from the engine's point of
// view.
type Source interface {
	Lookup(ctx context.Context, code string) (Document, error)
}

// Invalidator drops cached boundary documents, e.g. when the upstream
// dataset is republished.
type Invalidator interface {
	Invalidate(ctx context.Context, codes ...string) error
}
