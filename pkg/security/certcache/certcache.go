// Package certcache implements the two TTL-bounded certificate caches the
// validator consults before going to the network: a long-lived cache for
// certificates that have already passed full validation, and a short-lived
// cache for certificates fetched but not yet (or no longer) trusted.
package certcache

import (
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"ndnsec/pkg/helper/log"
	"ndnsec/pkg/ndn"
	"ndnsec/pkg/security/cert"
)

// Default TTLs per the validator's two-tier trust model: a certificate that
// has been fully verified is assumed good for an hour; one fetched during an
// in-flight validation but not yet chained to a trust anchor is assumed good
// for only five minutes, limiting how long a bad actor's unverified cert can
// poison lookups.
const (
	DefaultTrustedTTL   = 1 * time.Hour
	DefaultUntrustedTTL = 5 * time.Minute
)

type entry struct {
	cert      *cert.Certificate
	expiresAt time.Time
}

// Cache holds certificates keyed by their full Name, hashed with xxhash to
// keep the underlying LRU's key type a plain uint64 regardless of name
// length.
type Cache struct {
	trusted   *lruCache[uint64, entry]
	untrusted *lruCache[uint64, entry]

	trustedTTL   time.Duration
	untrustedTTL time.Duration

	logger log.Logger

	purgeTicker *time.Ticker
	purgeStop   chan struct{}
	started     atomic.Bool
	stopped     atomic.Bool
}

// Config controls cache capacity, TTLs and purge cadence.
type Config struct {
	TrustedCapacity   int
	UntrustedCapacity int
	TrustedTTL        time.Duration
	UntrustedTTL      time.Duration
	PurgeInterval     time.Duration
}

// DefaultConfig returns sane defaults for a single validator instance.
func DefaultConfig() Config {
	return Config{
		TrustedCapacity:   4096,
		UntrustedCapacity: 1024,
		TrustedTTL:        DefaultTrustedTTL,
		UntrustedTTL:      DefaultUntrustedTTL,
		PurgeInterval:     time.Minute,
	}
}

// New builds a Cache. Call Start to begin the background purge loop; callers
// that only need synchronous TTL checks (every lookup already verifies
// expiry) may skip Start entirely.
func New(cfg Config, logger log.Logger) *Cache {
	if logger == nil {
		logger = log.NewBasicLogger(log.InfoLevel)
	}
	if cfg.TrustedTTL <= 0 {
		cfg.TrustedTTL = DefaultTrustedTTL
	}
	if cfg.UntrustedTTL <= 0 {
		cfg.UntrustedTTL = DefaultUntrustedTTL
	}
	return &Cache{
		trusted:      newLRUCache[uint64, entry](cfg.TrustedCapacity),
		untrusted:    newLRUCache[uint64, entry](cfg.UntrustedCapacity),
		trustedTTL:   cfg.TrustedTTL,
		untrustedTTL: cfg.UntrustedTTL,
		logger:       logger,
		purgeStop:    make(chan struct{}),
	}
}

func nameKey(n ndn.Name) uint64 {
	return xxhash.Sum64String(n.String())
}

// PutTrusted inserts or refreshes a certificate known to chain to a trust
// anchor.
func (c *Cache) PutTrusted(crt *cert.Certificate) {
	c.trusted.put(nameKey(crt.Name()), entry{cert: crt, expiresAt: time.Now().Add(c.trustedTTL)})
}

// PutUntrusted inserts or refreshes a certificate fetched mid-validation
// whose trust has not yet been established.
func (c *Cache) PutUntrusted(crt *cert.Certificate) {
	c.untrusted.put(nameKey(crt.Name()), entry{cert: crt, expiresAt: time.Now().Add(c.untrustedTTL)})
}

// GetTrusted looks up a certificate by name in the trusted cache, honoring
// TTL expiry.
func (c *Cache) GetTrusted(name ndn.Name) (*cert.Certificate, bool) {
	return lookup(c.trusted, name)
}

// GetUntrusted is GetTrusted for the untrusted pool.
func (c *Cache) GetUntrusted(name ndn.Name) (*cert.Certificate, bool) {
	return lookup(c.untrusted, name)
}

func lookup(pool *lruCache[uint64, entry], name ndn.Name) (*cert.Certificate, bool) {
	key := nameKey(name)
	e, ok := pool.get(key)
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		pool.remove(key)
		return nil, false
	}
	return e.cert, true
}

// PromoteToTrusted moves a certificate out of the untrusted pool into the
// trusted one, e.g. once validation finds it chains to a trust anchor.
func (c *Cache) PromoteToTrusted(crt *cert.Certificate) {
	c.untrusted.remove(nameKey(crt.Name()))
	c.PutTrusted(crt)
}

// Remove drops name from both pools.
func (c *Cache) Remove(name ndn.Name) {
	key := nameKey(name)
	c.trusted.remove(key)
	c.untrusted.remove(key)
}

// Reset empties both pools, used when trust-anchor configuration reloads.
func (c *Cache) Reset() {
	c.trusted.clear()
	c.untrusted.clear()
}

// TrustedSize and UntrustedSize report current occupancy, mainly for tests
// and metrics.
func (c *Cache) TrustedSize() int   { return c.trusted.size() }
func (c *Cache) UntrustedSize() int { return c.untrusted.size() }

// Start launches the periodic purge of expired entries. Safe to call once;
// subsequent calls are no-ops.
func (c *Cache) Start(interval time.Duration) {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}
	c.purgeTicker = time.NewTicker(interval)
	go c.purgeLoop()
}

// Stop halts the purge loop. Safe to call even if Start was never called.
func (c *Cache) Stop() {
	if !c.stopped.CompareAndSwap(false, true) {
		return
	}
	if c.purgeTicker != nil {
		c.purgeTicker.Stop()
	}
	close(c.purgeStop)
}

func (c *Cache) purgeLoop() {
	for {
		select {
		case <-c.purgeStop:
			return
		case <-c.purgeTicker.C:
			c.purgeExpired()
		}
	}
}

func (c *Cache) purgeExpired() {
	now := time.Now()
	var purged int

	var expiredTrusted, expiredUntrusted []uint64
	c.trusted.iterateAll(func(key uint64, e entry) bool {
		if now.After(e.expiresAt) {
			expiredTrusted = append(expiredTrusted, key)
		}
		return true
	})
	for _, key := range expiredTrusted {
		if c.trusted.remove(key) {
			purged++
		}
	}
	c.untrusted.iterateAll(func(key uint64, e entry) bool {
		if now.After(e.expiresAt) {
			expiredUntrusted = append(expiredUntrusted, key)
		}
		return true
	})
	for _, key := range expiredUntrusted {
		if c.untrusted.remove(key) {
			purged++
		}
	}

	if purged > 0 {
		c.logger.WithField("purged", purged).Debug("certificate cache purge")
	}
}
