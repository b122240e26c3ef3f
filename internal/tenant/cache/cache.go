// Package cache provides the time-bounded tenant descriptor cache shared by
// all in-flight requests. Entries carry two expiries: an absolute cap set at
// creation, and a sliding window refreshed on every hit but never extended
// past that cap.
package cache

import (
	"context"
	"sync"
	"time"

	"atrium/internal/tenant/models"
)

// TenantCache is the contract the resolver depends on.
type TenantCache interface {
	Get(ctx context.Context, companyID int64) (*models.Descriptor, bool)
	Set(ctx context.Context, companyID int64, d *models.Descriptor)
	Invalidate(ctx context.Context, companyID int64)
}

type entry struct {
	descriptor *models.Descriptor
	absoluteAt time.Time // hard cap, fixed at creation
	slidingAt  time.Time // refreshed on hit, always <= absoluteAt
}

// Memory is the in-process tenant cache. Safe for concurrent use.
type Memory struct {
	mu          sync.RWMutex
	entries     map[int64]*entry
	absoluteTTL time.Duration
	window      time.Duration
	now         func() time.Time
}

// NewMemory creates a cache with the given absolute TTL and sliding window.
// The window is clamped to the absolute TTL.
func NewMemory(absoluteTTL, window time.Duration) *Memory {
	if window > absoluteTTL {
		window = absoluteTTL
	}
	return &Memory{
		entries:     make(map[int64]*entry),
		absoluteTTL: absoluteTTL,
		window:      window,
		now:         time.Now,
	}
}

// Get returns the cached descriptor if present and unexpired, refreshing the
// sliding window on a hit.
func (c *Memory) Get(_ context.Context, companyID int64) (*models.Descriptor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[companyID]
	if !ok {
		return nil, false
	}

	now := c.now()
	if now.After(e.absoluteAt) || now.After(e.slidingAt) {
		delete(c.entries, companyID)
		return nil, false
	}

	// Extend the sliding window, bounded by the absolute cap.
	next := now.Add(c.window)
	if next.After(e.absoluteAt) {
		next = e.absoluteAt
	}
	e.slidingAt = next

	copied := *e.descriptor
	return &copied, true
}

// Set stores a descriptor with a fresh absolute cap and sliding window.
func (c *Memory) Set(_ context.Context, companyID int64, d *models.Descriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	copied := *d
	c.entries[companyID] = &entry{
		descriptor: &copied,
		absoluteAt: now.Add(c.absoluteTTL),
		slidingAt:  now.Add(c.window),
	}

	c.cleanupExpiredLocked(10)
}

// Invalidate removes the entry for companyID immediately.
func (c *Memory) Invalidate(_ context.Context, companyID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, companyID)
}

// cleanupExpiredLocked removes up to maxCleanup expired entries.
// Must be called with lock held.
func (c *Memory) cleanupExpiredLocked(maxCleanup int) {
	now := c.now()
	cleaned := 0
	for key, e := range c.entries {
		if now.After(e.absoluteAt) || now.After(e.slidingAt) {
			delete(c.entries, key)
			cleaned++
			if cleaned >= maxCleanup {
				break
			}
		}
	}
}
