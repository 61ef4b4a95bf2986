// Package rediscache is a read-through Redis cache over a boundary source,
// so repeated runs against the same administrative areas avoid refetching
// from the remote service.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	maintnotifications "github.com/redis/go-redis/v9/maintnotifications"
	"github.com/rs/zerolog"

	"github.com/udmkit/fishnet/internal/boundary"
	"github.com/udmkit/fishnet/internal/boundary/keys"
	"github.com/udmkit/fishnet/internal/observability"
)

type Option func(*redis.Options)

func WithPoolSize(n int) Option {
	return func(o *redis.Options) { o.PoolSize = n }
}

func WithDialTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.DialTimeout = d }
}

type Cache struct {
	rdb    *redis.Client
	next   boundary.Source
	ttl    time.Duration
	year   int
	crs    string
	logger *zerolog.Logger
}

var (
	_ boundary.Source      = (*Cache)(nil)
	_ boundary.Invalidator = (*Cache)(nil)
)

func New(ctx context.Context, addr string, next boundary.Source, ttl time.Duration, year int, crs string, logger *zerolog.Logger, opts ...Option) (*Cache, error) {
	if addr == "" {
		return nil, errors.New("rediscache: redis address is required")
	}
	if next == nil {
		return nil, errors.New("rediscache: underlying source is required")
	}

	ro := &redis.Options{
		Addr:         addr,
		PoolSize:     16,
		MinIdleConns: 2,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
		MaintNotificationsConfig: &maintnotifications.Config{
			Mode: maintnotifications.ModeDisabled,
		},
	}
	for _, f := range opts {
		f(ro)
	}

	rdb := redis.NewClient(ro)

	start := time.Now()
	err := rdb.Ping(ctx).Err()
	observability.ObserveCacheOp("ping", err, time.Since(start).Seconds())
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("rediscache: redis ping: %w", err)
	}
	return &Cache{rdb: rdb, next: next, ttl: ttl, year: year, crs: crs, logger: logger}, nil
}

func (c *Cache) Lookup(ctx context.Context, code string) (boundary.Document, error) {
	key := keys.Key(code, c.year, c.crs)

	start := time.Now()
	raw, err := c.rdb.Get(ctx, key).Bytes()
	observability.ObserveCacheOp("get", ignoreNil(err), time.Since(start).Seconds())

	switch {
	case err == nil:
		var doc boundary.Document
		if uerr := json.Unmarshal(raw, &doc); uerr == nil {
			observability.IncBoundaryCacheHit("redis")
			return doc, nil
		}
		// treat undecodable entries as misses and overwrite below
		if c.logger != nil {
			c.logger.Warn().Str("key", key).Msg("dropping undecodable boundary cache entry")
		}
	case errors.Is(err, redis.Nil):
		// miss
	default:
		// a cache outage must not fail the run; fall through to the source
		if c.logger != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("boundary cache read failed")
		}
	}
	observability.IncBoundaryCacheMiss("redis")

	doc, err := c.next.Lookup(ctx, code)
	if err != nil {
		return boundary.Document{}, err
	}

	if buf, merr := json.Marshal(doc); merr == nil {
		start = time.Now()
		serr := c.rdb.Set(ctx, key, buf, c.ttl).Err()
		observability.ObserveCacheOp("set", serr, time.Since(start).Seconds())
		if serr != nil && c.logger != nil {
			c.logger.Warn().Err(serr).Str("key", key).Msg("boundary cache write failed")
		}
	}
	return doc, nil
}

// Invalidate drops the cached documents for the given codes.
func (c *Cache) Invalidate(ctx context.Context, codes ...string) error {
	if len(codes) == 0 {
		return nil
	}
	ks := make([]string, 0, len(codes))
	for _, code := range codes {
		ks = append(ks, keys.Key(code, c.year, c.crs))
	}
	start := time.Now()
	err := c.rdb.Del(ctx, ks...).Err()
	observability.ObserveCacheOp("del", err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("rediscache: del %d keys: %w", len(ks), err)
	}
	return nil
}

// Ping reports backend health for readiness probes.
func (c *Cache) Ping(ctx context.Context) error { return c.rdb.Ping(ctx).Err() }

func (c *Cache) Close() error { return c.rdb.Close() }

func ignoreNil(err error) error {
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
