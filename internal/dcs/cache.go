package dcs

import (
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/fleetgrid/fleetgrid/internal/core/data"
)

const (
	// DefaultLookupTTL bounds how stale a cached device row may get. Device
	// provisioning changes (new rows, active flag flips) become visible
	// within this window.
	DefaultLookupTTL = time.Minute

	lookupCacheSweepInterval = 5 * time.Minute
)

// CachingDeviceLookup wraps a DeviceLookup with an expiring in-memory
// cache. Only hits are cached; a miss always goes back to storage so newly
// provisioned devices are picked up immediately.
type CachingDeviceLookup struct {
	next  DeviceLookup
	cache *cache.Cache
}

// NewCachingDeviceLookup returns a caching wrapper with the given entry
// TTL. A non-positive ttl falls back to DefaultLookupTTL.
func NewCachingDeviceLookup(next DeviceLookup, ttl time.Duration) *CachingDeviceLookup {
	if ttl <= 0 {
		ttl = DefaultLookupTTL
	}
	return &CachingDeviceLookup{
		next:  next,
		cache: cache.New(ttl, lookupCacheSweepInterval),
	}
}

// FindDeviceByUniqueID serves from cache when possible.
func (c *CachingDeviceLookup) FindDeviceByUniqueID(uniqueID string) (*data.Device, error) {
	if v, ok := c.cache.Get(uniqueID); ok {
		return v.(*data.Device), nil
	}
	device, err := c.next.FindDeviceByUniqueID(uniqueID)
	if err != nil {
		return nil, err
	}
	if device != nil {
		c.cache.SetDefault(uniqueID, device)
	}
	return device, nil
}

// Invalidate drops a cached entry, typically after a device row update.
func (c *CachingDeviceLookup) Invalidate(uniqueID string) {
	c.cache.Delete(uniqueID)
}
