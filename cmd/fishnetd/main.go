package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/udmkit/fishnet/internal/app/server"
	"github.com/udmkit/fishnet/internal/boundary"
	"github.com/udmkit/fishnet/internal/boundary/httpsource"
	"github.com/udmkit/fishnet/internal/boundary/memcache"
	"github.com/udmkit/fishnet/internal/boundary/rediscache"
	"github.com/udmkit/fishnet/internal/config"
	"github.com/udmkit/fishnet/internal/invalidation/kafkaconsumer"
	"github.com/udmkit/fishnet/internal/logger"
	"github.com/udmkit/fishnet/internal/observability"
	"github.com/udmkit/fishnet/internal/pipeline"
	"github.com/udmkit/fishnet/internal/region"
	"github.com/udmkit/fishnet/internal/spatial/ctgeom"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func run() int {
	_ = godotenv.Load()

	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   strings.ToLower(os.Getenv("LOG_CONSOLE")) == "true",
		SampleN:   envInt("LOG_SAMPLE_N", 0),
		Component: "fishnetd",
	}, os.Stdout)
	log := &zl

	observability.ExposeBuildInfo(Version)
	log.Info().
		Str("addr", cfg.Addr).
		Str("version", Version).
		Str("crs", cfg.CRS).
		Str("boundary_api", cfg.Boundary.APIURL).
		Msg("starting fishnetd")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng := ctgeom.New()

	var src boundary.Source
	var inv boundary.Invalidator
	checks := server.Checks{}

	if cfg.Boundary.APIURL != "" {
		client, err := httpSource(cfg, log)
		if err != nil {
			log.Error().Err(err).Msg("boundary source setup failed")
			return 1
		}
		src = client

		if cfg.Boundary.RedisAddr != "" {
			rc, err := rediscache.New(ctx, cfg.Boundary.RedisAddr, src,
				cfg.Boundary.CacheTTL, cfg.Boundary.Year, cfg.Boundary.SourceCRS, log)
			if err != nil {
				log.Error().Err(err).Str("addr", cfg.Boundary.RedisAddr).Msg("redis cache setup failed")
				return 1
			}
			defer func() { _ = rc.Close() }()
			src = rc
			inv = rc
			checks["redis"] = rc.Ping
		}

		mc, err := memcache.New(cfg.Boundary.LRUSize, src)
		if err != nil {
			log.Error().Err(err).Msg("memory cache setup failed")
			return 1
		}
		src = mc
		inv = mc
	} else {
		log.Warn().Msg("no boundary API configured; only bbox regions will resolve")
	}

	resolver := region.NewResolver(eng, src, log)
	runner := pipeline.NewRunner(cfg, eng, resolver, log)

	if cfg.Invalidation.Enabled {
		if inv == nil {
			log.Error().Msg("invalidation enabled but no boundary cache to invalidate")
			return 1
		}
		consumer := kafkaconsumer.New(
			kafkaconsumer.FromService(
				splitCSV(cfg.Invalidation.Brokers),
				cfg.Invalidation.Topic,
				cfg.Invalidation.GroupID,
			), inv, log)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("invalidation consumer exited")
			}
		}()
	}

	if err := server.Run(ctx, cfg, runner, log, checks); err != nil {
		log.Error().Err(err).Msg("server exited with error")
		return 1
	}
	log.Info().Msg("server stopped")
	return 0
}

func httpSource(cfg config.Config, log *zerolog.Logger) (boundary.Source, error) {
	return httpsource.New(httpsource.Config{
		BaseURL:  cfg.Boundary.APIURL,
		Username: cfg.Boundary.Username,
		Password: cfg.Boundary.Password,
		Year:     cfg.Boundary.Year,
		CRS:      cfg.Boundary.SourceCRS,
	}, log, nil)
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
