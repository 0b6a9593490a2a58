package api

import (
	"sync"
	"time"

	"github.com/karlseguin/ccache/v3"
)

// responseCache is a mutex-guarded TTL cache of raw response bodies
// keyed by request path and query.
type responseCache struct {
	c   *ccache.Cache[[]byte]
	mux sync.Mutex
}

func newResponseCache() *responseCache {
	return &responseCache{
		c: ccache.New(
			ccache.Configure[[]byte]().
				MaxSize(1000).
				GetsPerPromote(3).
				ItemsToPrune(10),
		),
	}
}

func (c *responseCache) Fetch(k string, ttl time.Duration, fetch func() ([]byte, error)) (*ccache.Item[[]byte], error) {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.c.Fetch(k, ttl, fetch)
}

func (c *responseCache) Clear() {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.c.Clear()
}
