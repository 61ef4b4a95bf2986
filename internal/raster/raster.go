// Package raster classifies fishnet cells by the fraction of their area
// covered by an overlay feature layer.
package raster

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/udmkit/fishnet/internal/features"
	"github.com/udmkit/fishnet/internal/fishnet"
	"github.com/udmkit/fishnet/internal/model"
	"github.com/udmkit/fishnet/internal/observability"
	"github.com/udmkit/fishnet/internal/spatial"
)

// Options controls one classification run. Threshold is the minimum
// covered fraction of a cell's area, in (0, 1]; the comparison is >= so a
// cell exactly at threshold is included. Invert selects cells below the
// threshold instead. Workers > 1 classifies cells in parallel; the output
// order is unaffected.
type Options struct {
	Threshold float64
	Invert    bool
	Workers   int
}

type Engine struct {
	eng    spatial.Engine
	logger *zerolog.Logger
}

func New(eng spatial.Engine, logger *zerolog.Logger) *Engine {
	return &Engine{eng: eng, logger: logger}
}

// Classify computes the intersected area of every grid cell against the
// layer and emits one ClassifiedCell per grid cell, in the grid's row-major
// order. It performs no I/O and either classifies the whole grid or fails;
// no partial raster is ever returned.
func (e *Engine) Classify(ctx context.Context, grid fishnet.Grid, layer features.Layer, opts Options) (model.RasterResult, error) {
	if !(opts.Threshold > 0 && opts.Threshold <= 1) {
		return model.RasterResult{}, fmt.Errorf("raster: threshold %g must be in (0, 1]", opts.Threshold)
	}
	if layer.CRS != grid.CRS {
		return model.RasterResult{}, &model.CRSMismatchError{GridCRS: grid.CRS, LayerCRS: layer.CRS}
	}

	// one bounding-box index per run, shared read-only by all workers
	geoms := layer.Geometries()
	idx := e.eng.NewIndex(geoms)

	cellArea := grid.Spec.CellArea()
	out := make([]model.ClassifiedCell, len(grid.Cells))

	classify := func(i int) error {
		c := grid.Cells[i]
		area, err := e.intersectedArea(c, geoms, idx)
		if err != nil {
			return fmt.Errorf("raster: cell (%d,%d): %w", c.Row, c.Col, err)
		}
		included := area/cellArea >= opts.Threshold
		if opts.Invert {
			included = !included
		}
		out[i] = model.ClassifiedCell{Row: c.Row, Col: c.Col, Area: area, Included: included}
		return nil
	}

	var err error
	if opts.Workers > 1 {
		err = e.classifyParallel(ctx, len(grid.Cells), opts.Workers, classify)
	} else {
		err = e.classifySequential(ctx, len(grid.Cells), classify)
	}
	if err != nil {
		return model.RasterResult{}, err
	}

	observability.AddCellsClassified(len(out))
	if e.logger != nil {
		included := 0
		for _, c := range out {
			if c.Included {
				included++
			}
		}
		e.logger.Info().
			Int("cells", len(out)).
			Int("included", included).
			Float64("threshold", opts.Threshold).
			Bool("invert", opts.Invert).
			Msg("grid classified")
	}
	return model.RasterResult{
		Spec:      grid.Spec,
		CRS:       grid.CRS,
		Threshold: opts.Threshold,
		Invert:    opts.Invert,
		Cells:     out,
	}, nil
}

// intersectedArea clips every candidate feature to the cell and sums the
// area of their union, so overlapping features are not double counted.
func (e *Engine) intersectedArea(c fishnet.Cell, geoms []spatial.Geometry, idx spatial.Index) (float64, error) {
	candidates := idx.Intersecting(c.Geom.Bounds())
	if len(candidates) == 0 {
		return 0, nil
	}

	clipped := make([]spatial.Geometry, 0, len(candidates))
	for _, fi := range candidates {
		part, err := e.eng.Intersection(c.Geom, geoms[fi])
		if err != nil {
			return 0, fmt.Errorf("feature %d: %w", fi, err)
		}
		if part.Bounds().Empty() {
			continue
		}
		clipped = append(clipped, part)
	}
	switch len(clipped) {
	case 0:
		return 0, nil
	case 1:
		return e.eng.Area(clipped[0]), nil
	}
	u, err := e.eng.Union(clipped)
	if err != nil {
		return 0, err
	}
	return e.eng.Area(u), nil
}

func (e *Engine) classifySequential(ctx context.Context, n int, classify func(int) error) error {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := classify(i); err != nil {
			return err
		}
	}
	return nil
}

// classifyParallel fans cell indices out to a fixed worker pool. Workers
// write results by index, so completion order never disturbs the row-major
// output; the first error cancels the whole run.
func (e *Engine) classifyParallel(ctx context.Context, n, workers int, classify func(int) error) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan int)
	var wg sync.WaitGroup

	var mu sync.Mutex
	var firstErr error
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := classify(i); err != nil {
					fail(err)
					return
				}
			}
		}()
	}

feed:
	for i := 0; i < n; i++ {
		select {
		case jobs <- i:
		case <-runCtx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}
