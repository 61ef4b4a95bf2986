// Package memcache is a small in-process LRU layer over a boundary source.
// It sits in front of the Redis cache so a run touching the same handful of
// areas repeatedly never leaves the process.
package memcache

import (
	"context"
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/udmkit/fishnet/internal/boundary"
	"github.com/udmkit/fishnet/internal/observability"
)

type Cache struct {
	lru  *lru.Cache[string, boundary.Document]
	next boundary.Source
}

var (
	_ boundary.Source      = (*Cache)(nil)
	_ boundary.Invalidator = (*Cache)(nil)
)

func New(size int, next boundary.Source) (*Cache, error) {
	if next == nil {
		return nil, errors.New("memcache: underlying source is required")
	}
	if size <= 0 {
		size = 128
	}
	l, err := lru.New[string, boundary.Document](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: l, next: next}, nil
}

func (c *Cache) Lookup(ctx context.Context, code string) (boundary.Document, error) {
	if doc, ok := c.lru.Get(code); ok {
		observability.IncBoundaryCacheHit("lru")
		return doc, nil
	}
	observability.IncBoundaryCacheMiss("lru")

	doc, err := c.next.Lookup(ctx, code)
	if err != nil {
		return boundary.Document{}, err
	}
	c.lru.Add(code, doc)
	return doc, nil
}

func (c *Cache) Invalidate(ctx context.Context, codes ...string) error {
	for _, code := range codes {
		c.lru.Remove(code)
	}
	if inv, ok := c.next.(boundary.Invalidator); ok {
		return inv.Invalidate(ctx, codes...)
	}
	return nil
}
