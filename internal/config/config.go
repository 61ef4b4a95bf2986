// Package config loads service configuration from the environment and
// defines the validated per-run parameter set.
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

type InvalidationCfg struct {
	Enabled bool
	Brokers string
	Topic   string
	GroupID string
}

type BoundaryCfg struct {
	// APIURL is the base URL of the administrative-boundary service.
	APIURL   string
	Username string
	Password string
	// Year selects the boundary dataset vintage.
	Year int
	// SourceCRS is the CRS the boundary service publishes geometries in.
	SourceCRS string

	RedisAddr string
	CacheTTL  time.Duration
	LRUSize   int
	OpTimeout time.Duration
}

type Config struct {
	Addr     string
	LogLevel string

	CRS string

	// MaxCells caps NCols x NRows of a generated fishnet.
	MaxCells int
	// CellSizeMin/Max bound the accepted grid resolution, in map units.
	CellSizeMin float64
	CellSizeMax float64

	RasterWorkers int

	Boundary     BoundaryCfg
	Invalidation InvalidationCfg
}

func FromEnv() Config {
	return Config{
		Addr:     getenv("ADDR", ":8090"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		CRS: getenv("GRID_CRS", "EPSG:27700"),

		MaxCells:    getint("FISHNET_MAX_CELLS", 4_000_000),
		CellSizeMin: getfloat("CELL_SIZE_MIN", 10.0),
		CellSizeMax: getfloat("CELL_SIZE_MAX", 10000.0),

		RasterWorkers: getint("RASTER_WORKERS", 1),

		Boundary: BoundaryCfg{
			APIURL:    getenv("BOUNDARY_API_URL", "http://localhost:8080/api/data"),
			Username:  getenv("BOUNDARY_API_USERNAME", ""),
			Password:  getenv("BOUNDARY_API_PASSWORD", ""),
			Year:      getint("BOUNDARY_YEAR", 2016),
			SourceCRS: getenv("BOUNDARY_SOURCE_CRS", "EPSG:27700"),
			RedisAddr: getenv("REDIS_ADDR", ""),
			CacheTTL:  getduration("BOUNDARY_CACHE_TTL", 24*time.Hour),
			LRUSize:   getint("BOUNDARY_LRU_SIZE", 128),
			OpTimeout: getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),
		},
		Invalidation: InvalidationCfg{
			Enabled: getbool("INVALIDATION_ENABLED", false),
			Brokers: getenv("KAFKA_BROKERS", "localhost:9092"),
			Topic:   getenv("KAFKA_TOPIC", "boundary-updates"),
			GroupID: getenv("KAFKA_GROUP_ID", "fishnet-invalidator"),
		},
	}
}

// RunParams is the full, validated parameter set of one rasterisation run.
// Every value is explicit; there is no process-wide mutable state behind it.
type RunParams struct {
	CellSize  float64
	Threshold float64
	Invert    bool
	Format    string
	// NoData is the raster value written for excluded cells in grid
	// encodings.
	NoData int
}

var knownFormats = map[string]bool{
	"geojson":   true,
	"asciigrid": true,
	"png":       true,
}

// Validate checks ranges at construction time so a malformed run is
// rejected before any geometry work starts.
func (p RunParams) Validate(cfg Config) error {
	if p.CellSize <= 0 || math.IsNaN(p.CellSize) || math.IsInf(p.CellSize, 0) {
		return fmt.Errorf("cell size %g must be a finite number > 0", p.CellSize)
	}
	if p.CellSize < cfg.CellSizeMin || p.CellSize > cfg.CellSizeMax {
		return fmt.Errorf("cell size %g outside accepted range [%g, %g]",
			p.CellSize, cfg.CellSizeMin, cfg.CellSizeMax)
	}
	if !(p.Threshold > 0 && p.Threshold <= 1) {
		return fmt.Errorf("threshold %g must be in (0, 1]", p.Threshold)
	}
	f := strings.ToLower(strings.TrimSpace(p.Format))
	if !knownFormats[f] {
		return fmt.Errorf("unknown output format %q (want geojson|asciigrid|png)", p.Format)
	}
	// 1 marks included cells in grid encodings, so a nodata of 1 would make
	// the two classes indistinguishable
	if p.NoData < -9999 || p.NoData > 0 {
		return fmt.Errorf("nodata value %d must be in [-9999, 0]", p.NoData)
	}
	return nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
