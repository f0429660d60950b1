// Package dnscache provides a thread-safe, TTL-based cache for A and MX
// lookups with singleflight deduplication for concurrent requests to the
// same name. The finder builds one per request.
package dnscache

import (
	"context"
	"net"
	"sync"
	"time"
)

// Resolver is the lookup backend. *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// Cache is a thread-safe DNS lookup cache.
// Concurrent lookups for the same name and record type are deduplicated:
// only one actual DNS query is performed, and all waiters receive the result.
type Cache struct {
	mu            sync.Mutex
	entries       map[key]*entry
	cacheTTL      time.Duration
	lookupTimeout time.Duration
	resolver      Resolver
}

type key struct {
	kind string
	name string
}

type entry struct {
	mx      []*net.MX
	hosts   []string
	err     error
	expires time.Time
	done    chan struct{} // closed when lookup is complete
}

// New creates a DNS cache over r with the given lookup timeout and cache TTL.
func New(r Resolver, lookupTimeout, cacheTTL time.Duration) *Cache {
	if r == nil {
		r = &net.Resolver{}
	}
	if lookupTimeout <= 0 {
		lookupTimeout = 5 * time.Second
	}
	return &Cache{
		entries:       make(map[key]*entry),
		cacheTTL:      cacheTTL,
		lookupTimeout: lookupTimeout,
		resolver:      r,
	}
}

// LookupMX returns MX records for the domain, using the cache when possible.
func (c *Cache) LookupMX(ctx context.Context, domain string) ([]*net.MX, error) {
	e, err := c.lookup(ctx, key{"mx", domain}, func(ctx context.Context, e *entry) {
		e.mx, e.err = c.resolver.LookupMX(ctx, domain)
	})
	if err != nil {
		return nil, err
	}
	return copyMX(e.mx), e.err
}

// LookupHost returns A records for the host, using the cache when possible.
func (c *Cache) LookupHost(ctx context.Context, host string) ([]string, error) {
	e, err := c.lookup(ctx, key{"a", host}, func(ctx context.Context, e *entry) {
		e.hosts, e.err = c.resolver.LookupHost(ctx, host)
	})
	if err != nil {
		return nil, err
	}
	return append([]string(nil), e.hosts...), e.err
}

// lookup returns the completed entry for k. The returned error is only set
// when ctx ends while waiting on another caller's lookup.
func (c *Cache) lookup(ctx context.Context, k key, fill func(context.Context, *entry)) (*entry, error) {
	c.mu.Lock()

	if e, ok := c.entries[k]; ok {
		select {
		case <-e.done:
			if time.Now().Before(e.expires) {
				c.mu.Unlock()
				return e, nil
			}
			// expired, refresh below
		default:
			c.mu.Unlock()
			select {
			case <-e.done:
				return e, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	e := &entry{done: make(chan struct{})}
	c.entries[k] = e
	c.mu.Unlock()

	lctx, cancel := context.WithTimeout(ctx, c.lookupTimeout)
	defer cancel()

	fill(lctx, e)
	e.expires = time.Now().Add(c.cacheTTL)
	if ctx.Err() != nil {
		// a cancelled caller must not poison the entry for others
		e.expires = time.Now()
	}
	close(e.done)
	return e, nil
}

// Len returns the number of entries in the cache (for diagnostics).
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// copyMX returns a deep copy of MX records to prevent callers from
// mutating cached data (e.g., via sort.Slice).
func copyMX(records []*net.MX) []*net.MX {
	if records == nil {
		return nil
	}
	out := make([]*net.MX, len(records))
	for i, r := range records {
		cp := *r
		out[i] = &cp
	}
	return out
}
