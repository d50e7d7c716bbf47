// Package sdpcache holds the most recent SDP offer per sender/target pair
// for a short time.
package sdpcache

import (
	"sync"
	"time"
)

// Offer is a cached session description.
type Offer struct {
	SDP       string
	ExpiresAt time.Time
}

// Expired reports whether the offer is logically dead at now.
func (o Offer) Expired(now time.Time) bool {
	return o.ExpiresAt.Before(now)
}

// Cache is a concurrency-safe, write-and-expire store of offers. Entries
// past their expiry are only physically removed by SweepExpired.
type Cache struct {
	mu      sync.Mutex
	entries map[string]Offer
	now     func() time.Time
}

func New() *Cache {
	return NewWithClock(time.Now)
}

func NewWithClock(now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		entries: make(map[string]Offer),
		now:     now,
	}
}

// OfferKey builds the cache key for an offer from sender to target, where
// target is to if set and groupID otherwise.
func OfferKey(from, to, groupID string) string {
	target := to
	if target == "" {
		target = groupID
	}
	return from + "_" + target
}

// Put stores sdp under key, replacing any previous entry.
func (c *Cache) Put(key, sdp string, ttl time.Duration) Offer {
	o := Offer{SDP: sdp, ExpiresAt: c.now().Add(ttl)}
	c.mu.Lock()
	c.entries[key] = o
	c.mu.Unlock()
	return o
}

// Lookup returns the entry at key if it has not expired at now. Unswept
// expired entries are reported as absent.
func (c *Cache) Lookup(key string, now time.Time) (Offer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.entries[key]
	if !ok || o.Expired(now) {
		return Offer{}, false
	}
	return o, true
}

// SweepExpired removes every entry whose expiry is strictly before now and
// returns how many were removed.
func (c *Cache) SweepExpired(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, o := range c.entries {
		if o.Expired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
