package client

import (
	"context"
	"sync"
	"time"

	"github.com/mcpgate/mcpgate/pkg/tool"
)

// DefaultDiscoveryTTL bounds how long a cached tool listing is served.
const DefaultDiscoveryTTL = 5 * time.Minute

// Discovery caches tool descriptors grouped by domain so repeated
// menu builds don't hit the registry on every agent turn.
type Discovery struct {
	client Client
	ttl    time.Duration

	mu        sync.Mutex
	cached    map[string][]tool.Descriptor
	fetchedAt time.Time
}

// NewDiscovery creates a Discovery over the client. Non-positive ttl
// falls back to DefaultDiscoveryTTL.
func NewDiscovery(client Client, ttl time.Duration) *Discovery {
	if ttl <= 0 {
		ttl = DefaultDiscoveryTTL
	}
	return &Discovery{client: client, ttl: ttl}
}

// ByDomain returns all visible tools grouped by domain, refreshing the
// cache when stale.
func (d *Discovery) ByDomain(ctx context.Context) map[string][]tool.Descriptor {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cached == nil || time.Since(d.fetchedAt) > d.ttl {
		descriptors := d.client.ListTools(ctx, nil, nil)
		grouped := make(map[string][]tool.Descriptor)
		for _, desc := range descriptors {
			domain := tool.DomainOf(desc.Function.Name)
			grouped[domain] = append(grouped[domain], desc)
		}
		d.cached = grouped
		d.fetchedAt = time.Now()
	}

	out := make(map[string][]tool.Descriptor, len(d.cached))
	for domain, descs := range d.cached {
		out[domain] = descs
	}
	return out
}

// Find returns the cached descriptor for a qualified tool name, or
// false if unknown.
func (d *Discovery) Find(ctx context.Context, qualifiedName string) (tool.Descriptor, bool) {
	grouped := d.ByDomain(ctx)
	for _, descs := range grouped[tool.DomainOf(qualifiedName)] {
		if descs.Function.Name == qualifiedName {
			return descs, true
		}
	}
	return tool.Descriptor{}, false
}

// Invalidate drops the cache so the next read refetches.
func (d *Discovery) Invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cached = nil
}
