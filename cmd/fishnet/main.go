// Command fishnet runs one rasterisation from the command line and writes
// the encoded result to a file or stdout.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/udmkit/fishnet/internal/boundary"
	"github.com/udmkit/fishnet/internal/boundary/httpsource"
	"github.com/udmkit/fishnet/internal/boundary/memcache"
	"github.com/udmkit/fishnet/internal/config"
	"github.com/udmkit/fishnet/internal/logger"
	"github.com/udmkit/fishnet/internal/model"
	"github.com/udmkit/fishnet/internal/pipeline"
	"github.com/udmkit/fishnet/internal/region"
	"github.com/udmkit/fishnet/internal/spatial/ctgeom"
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	var (
		bboxFlag      = flag.String("bbox", "", "region bounding box minx,miny,maxx,maxy")
		ladsFlag      = flag.String("lads", "", "comma-separated administrative area codes")
		crsFlag       = flag.String("crs", "", "grid CRS (default from GRID_CRS)")
		cellSizeFlag  = flag.Float64("cellsize", 0, "cell size in map units")
		thresholdFlag = flag.Float64("threshold", 0.5, "minimum covered area fraction, in (0,1]")
		invertFlag    = flag.Bool("invert", false, "select cells below the threshold")
		formatFlag    = flag.String("format", "asciigrid", "output format: geojson|asciigrid|png")
		nodataFlag    = flag.Int("nodata", 0, "raster value for excluded cells")
		workersFlag   = flag.Int("workers", 0, "parallel classification workers (default from RASTER_WORKERS)")
		featuresFlag  = flag.String("features", "", "GeoJSON overlay file (default: rasterise the region mask)")
		outFlag       = flag.String("o", "", "output file (default stdout)")
	)
	flag.Parse()

	cfg := config.FromEnv()
	if *crsFlag != "" {
		cfg.CRS = *crsFlag
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   true,
		Component: "fishnet",
	}, os.Stderr)
	log := &zl

	spec := model.RegionSpec{CRS: cfg.CRS}
	if *bboxFlag != "" {
		b, err := parseBBox(*bboxFlag)
		if err != nil {
			log.Error().Err(err).Msg("invalid -bbox")
			return 2
		}
		spec.BBox = &b
	}
	if *ladsFlag != "" {
		for _, c := range strings.Split(*ladsFlag, ",") {
			if c = strings.TrimSpace(c); c != "" {
				spec.AreaCodes = append(spec.AreaCodes, c)
			}
		}
	}

	var featureData []byte
	if *featuresFlag != "" {
		data, err := os.ReadFile(*featuresFlag)
		if err != nil {
			log.Error().Err(err).Str("path", *featuresFlag).Msg("read features file")
			return 2
		}
		featureData = data
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng := ctgeom.New()
	src, err := boundarySource(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("boundary source setup failed")
		return 1
	}

	runner := pipeline.NewRunner(cfg, eng, region.NewResolver(eng, src, log), log)

	out := os.Stdout
	if *outFlag != "" {
		f, err := os.Create(*outFlag)
		if err != nil {
			log.Error().Err(err).Str("path", *outFlag).Msg("create output file")
			return 1
		}
		defer f.Close()
		out = f
	}

	summary, err := runner.Run(ctx, pipeline.Request{
		Region: spec,
		Params: config.RunParams{
			CellSize:  *cellSizeFlag,
			Threshold: *thresholdFlag,
			Invert:    *invertFlag,
			Format:    *formatFlag,
			NoData:    *nodataFlag,
		},
		Workers:     *workersFlag,
		FeatureData: featureData,
	}, out)
	if err != nil {
		log.Error().Err(err).Msg("run failed")
		return 1
	}

	log.Info().
		Int("n_cols", summary.NCols).
		Int("n_rows", summary.NRows).
		Int("included", summary.Included).
		Dur("elapsed", summary.Duration).
		Msg("done")
	return 0
}

// boundarySource returns nil when no boundary API is configured; bbox-only
// runs never touch it.
func boundarySource(cfg config.Config, log *zerolog.Logger) (boundary.Source, error) {
	if cfg.Boundary.APIURL == "" {
		return nil, nil
	}
	client, err := httpsource.New(httpsource.Config{
		BaseURL:  cfg.Boundary.APIURL,
		Username: cfg.Boundary.Username,
		Password: cfg.Boundary.Password,
		Year:     cfg.Boundary.Year,
		CRS:      cfg.Boundary.SourceCRS,
	}, log, nil)
	if err != nil {
		return nil, err
	}
	return memcache.New(cfg.Boundary.LRUSize, client)
}

func parseBBox(raw string) (model.Bound, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return model.Bound{}, fmt.Errorf("expected minx,miny,maxx,maxy, got %q", raw)
	}
	var vals [4]float64
	for i, p := range parts {
		if _, err := fmt.Sscanf(strings.TrimSpace(p), "%g", &vals[i]); err != nil {
			return model.Bound{}, fmt.Errorf("value %d: %w", i+1, err)
		}
	}
	return model.Bound{
		Min: model.Point{X: vals[0], Y: vals[1]},
		Max: model.Point{X: vals[2], Y: vals[3]},
	}, nil
}
