// Package pipeline orchestrates one rasterisation run from region spec to
// encoded output.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/udmkit/fishnet/internal/config"
	"github.com/udmkit/fishnet/internal/encode"
	"github.com/udmkit/fishnet/internal/features"
	"github.com/udmkit/fishnet/internal/fishnet"
	"github.com/udmkit/fishnet/internal/logger"
	"github.com/udmkit/fishnet/internal/model"
	"github.com/udmkit/fishnet/internal/observability"
	"github.com/udmkit/fishnet/internal/raster"
	"github.com/udmkit/fishnet/internal/region"
	"github.com/udmkit/fishnet/internal/spatial"
)

// Request is everything one run needs. FeatureData is an optional GeoJSON
// FeatureCollection in the grid CRS; when absent the resolved region
// boundary itself is used as the overlay layer, which rasterises the region
// mask.
type Request struct {
	Region      model.RegionSpec
	Params      config.RunParams
	Workers     int
	FeatureData []byte
}

// Summary reports what a completed run produced.
type Summary struct {
	NCols       int
	NRows       int
	Cells       int
	Included    int
	ContentType string
	Duration    time.Duration
}

type Runner struct {
	cfg      config.Config
	eng      spatial.Engine
	resolver *region.Resolver
	logger   *zerolog.Logger
}

func NewRunner(cfg config.Config, eng spatial.Engine, resolver *region.Resolver, log *zerolog.Logger) *Runner {
	return &Runner{cfg: cfg, eng: eng, resolver: resolver, logger: log}
}

// Run resolves the region, generates the fishnet, classifies it against the
// overlay layer and streams the encoded result to w. It either writes a
// complete result or returns an error having written nothing.
func (r *Runner) Run(ctx context.Context, req Request, w io.Writer) (Summary, error) {
	start := time.Now()
	if req.Workers <= 0 {
		req.Workers = r.cfg.RasterWorkers
	}
	runID := logger.NewID()
	ctx = logger.WithRunID(ctx, runID)
	log := r.logger.With().Str("run_id", runID).Logger()

	summary, err := r.run(ctx, req, w, &log)
	summary.Duration = time.Since(start)
	observability.ObserveRun(err, summary.Duration.Seconds())
	if err != nil {
		log.Error().Err(err).Dur("elapsed", summary.Duration).Msg("run failed")
		return summary, err
	}
	log.Info().
		Int("cells", summary.Cells).
		Int("included", summary.Included).
		Str("content_type", summary.ContentType).
		Dur("elapsed", summary.Duration).
		Msg("run complete")
	return summary, nil
}

func (r *Runner) run(ctx context.Context, req Request, w io.Writer, log *zerolog.Logger) (Summary, error) {
	var summary Summary

	if err := req.Params.Validate(r.cfg); err != nil {
		return summary, fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
	}
	enc, err := encode.ForFormat(req.Params.Format, req.Params.NoData)
	if err != nil {
		return summary, fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
	}

	reg, err := r.resolver.Resolve(ctx, req.Region)
	if err != nil {
		return summary, err
	}

	grid, err := fishnet.NewGenerator(r.eng, r.cfg.MaxCells, log).Generate(reg, req.Params.CellSize)
	if err != nil {
		return summary, err
	}
	summary.NCols = grid.Spec.NCols
	summary.NRows = grid.Spec.NRows

	layer, err := r.layerFor(req, reg)
	if err != nil {
		return summary, err
	}

	res, err := raster.New(r.eng, log).Classify(ctx, grid, layer, raster.Options{
		Threshold: req.Params.Threshold,
		Invert:    req.Params.Invert,
		Workers:   req.Workers,
	})
	if err != nil {
		return summary, err
	}
	summary.Cells = len(res.Cells)
	for _, c := range res.Cells {
		if c.Included {
			summary.Included++
		}
	}
	summary.ContentType = enc.ContentType()

	return summary, enc.Encode(w, res)
}

func (r *Runner) layerFor(req Request, reg region.Region) (features.Layer, error) {
	if len(req.FeatureData) > 0 {
		return features.FromGeoJSON(r.eng, req.FeatureData, reg.CRS)
	}
	return features.Layer{
		CRS:      reg.CRS,
		Features: []features.Feature{{Geom: reg.Boundary}},
	}, nil
}
