package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"atrium/internal/tenant/models"
)

// invalidationChannel fans deactivation signals out to every instance so a
// flipped active flag takes effect immediately, not after TTL.
const invalidationChannel = "atrium:tenant:invalidate"

const keyPrefix = "atrium:tenant:"

// Distributed layers a Redis cache behind the in-process one. Local misses
// fall through to Redis before the directory; invalidations are published so
// peer instances drop their local entries too.
type Distributed struct {
	local  *Memory
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewDistributed wraps local with a Redis L2.
func NewDistributed(local *Memory, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *Distributed {
	return &Distributed{local: local, rdb: rdb, ttl: ttl, logger: logger}
}

// Get tries the local cache first, then Redis. A Redis hit repopulates the
// local cache. Redis failures degrade to a miss; the directory remains the
// source of truth.
func (c *Distributed) Get(ctx context.Context, companyID int64) (*models.Descriptor, bool) {
	if d, ok := c.local.Get(ctx, companyID); ok {
		return d, true
	}

	raw, err := c.rdb.Get(ctx, key(companyID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WarnContext(ctx, "tenant cache redis get failed", "company_id", companyID, "error", err)
		}
		return nil, false
	}

	var d cachedDescriptor
	if err := json.Unmarshal(raw, &d); err != nil {
		c.logger.WarnContext(ctx, "tenant cache entry corrupt, dropping", "company_id", companyID, "error", err)
		c.rdb.Del(ctx, key(companyID))
		return nil, false
	}

	desc := d.toDescriptor()
	c.local.Set(ctx, companyID, desc)
	return desc, true
}

// Set stores the descriptor in both layers.
func (c *Distributed) Set(ctx context.Context, companyID int64, d *models.Descriptor) {
	c.local.Set(ctx, companyID, d)

	raw, err := json.Marshal(fromDescriptor(d))
	if err != nil {
		c.logger.WarnContext(ctx, "tenant cache encode failed", "company_id", companyID, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, key(companyID), raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "tenant cache redis set failed", "company_id", companyID, "error", err)
	}
}

// Invalidate drops the entry everywhere and notifies peer instances.
func (c *Distributed) Invalidate(ctx context.Context, companyID int64) {
	c.local.Invalidate(ctx, companyID)
	if err := c.rdb.Del(ctx, key(companyID)).Err(); err != nil {
		c.logger.WarnContext(ctx, "tenant cache redis del failed", "company_id", companyID, "error", err)
	}
	if err := c.rdb.Publish(ctx, invalidationChannel, strconv.FormatInt(companyID, 10)).Err(); err != nil {
		c.logger.WarnContext(ctx, "tenant invalidation publish failed", "company_id", companyID, "error", err)
	}
}

// Listen subscribes to peer invalidations and drops local entries as they
// arrive. Blocks until ctx is cancelled; run it in its own goroutine.
func (c *Distributed) Listen(ctx context.Context) error {
	sub := c.rdb.Subscribe(ctx, invalidationChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("tenant invalidation subscription closed")
			}
			companyID, err := strconv.ParseInt(msg.Payload, 10, 64)
			if err != nil {
				c.logger.WarnContext(ctx, "ignoring malformed invalidation", "payload", msg.Payload)
				continue
			}
			c.local.Invalidate(ctx, companyID)
		}
	}
}

func key(companyID int64) string {
	return keyPrefix + strconv.FormatInt(companyID, 10)
}

// cachedDescriptor is the Redis wire form. The DSN must round-trip here even
// though Descriptor never serializes it publicly; Redis entries live inside
// the trust boundary.
type cachedDescriptor struct {
	CompanyID   int64  `json:"company_id"`
	CompanyName string `json:"company_name"`
	StoreName   string `json:"store_name"`
	DSN         string `json:"dsn"`
	Active      bool   `json:"active"`
}

func fromDescriptor(d *models.Descriptor) cachedDescriptor {
	return cachedDescriptor{
		CompanyID:   d.CompanyID,
		CompanyName: d.CompanyName,
		StoreName:   d.StoreName,
		DSN:         d.DSN,
		Active:      d.Active,
	}
}

func (d cachedDescriptor) toDescriptor() *models.Descriptor {
	return &models.Descriptor{
		CompanyID:   d.CompanyID,
		CompanyName: d.CompanyName,
		StoreName:   d.StoreName,
		DSN:         d.DSN,
		Active:      d.Active,
	}
}
