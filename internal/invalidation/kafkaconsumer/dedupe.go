package kafkaconsumer

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// staleGuard drops replayed or out-of-date events per area code. Evicting a
// boundary twice is harmless but each redundant event costs a cache round
// trip, and consumer-group restarts with the oldest offset replay the whole
// topic.
type staleGuard struct {
	mu  sync.Mutex
	lru *lru.Cache[string, int64]
}

func newStaleGuard(size int) *staleGuard {
	if size <= 0 {
		size = 4096
	}
	c, _ := lru.New[string, int64](size)
	return &staleGuard{lru: c}
}

// freshCodes returns the codes whose event timestamp is newer than the last
// one applied. Timestamps are recorded by commit, after the eviction
// succeeded, so a failed message is retried in full.
func (g *staleGuard) freshCodes(codes []string, tsUnixNano int64) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	fresh := codes[:0:0]
	for _, code := range codes {
		if last, ok := g.lru.Get(code); ok && tsUnixNano <= last {
			continue
		}
		fresh = append(fresh, code)
	}
	return fresh
}

func (g *staleGuard) commit(codes []string, tsUnixNano int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, code := range codes {
		g.lru.Add(code, tsUnixNano)
	}
}
