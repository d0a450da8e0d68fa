// Package replay implements the two replay-protection guards signed
// Interests rely on: the legacy command-Interest guard (timestamp only,
// monotonic per signer) and the modern signed-Interest guard (timestamp
// plus sequence number plus nonce), each with a grace period and a bounded
// record lifetime.
package replay

import (
	"sync"
	"time"

	"ndnsec/pkg/ndn"
)

// DefaultGracePeriod bounds how far a signed Interest's timestamp may drift
// from the guard's local clock before being rejected outright, independent
// of replay state.
const DefaultGracePeriod = 2 * time.Minute

// DefaultRecordLifetime is how long a signer's last-seen state is retained
// after its most recent update before it's evicted as stale.
const DefaultRecordLifetime = 1 * time.Hour

// DefaultMaxRecords caps memory growth from signers that are never cleaned
// up by TTL (e.g. a validator that runs far longer than RecordLifetime).
const DefaultMaxRecords = 10000

// CommandGuard implements the v0.2 command-Interest convention: for each
// signer (keyed by KeyLocator name), the timestamp in every subsequent
// signed Interest must be strictly greater than the last one accepted.
type CommandGuard struct {
	mu          sync.Mutex
	lastSeen    map[string]commandRecord
	gracePeriod time.Duration
	recordTTL   time.Duration
	maxRecords  int
	nowFn       func() time.Time
}

type commandRecord struct {
	lastTimestamp time.Time
	updatedAt     time.Time
}

// NewCommandGuard builds a guard with the given grace period, record
// lifetime and max-record cap. Zero values fall back to the package
// defaults.
func NewCommandGuard(gracePeriod, recordTTL time.Duration, maxRecords int) *CommandGuard {
	if gracePeriod <= 0 {
		gracePeriod = DefaultGracePeriod
	}
	if recordTTL <= 0 {
		recordTTL = DefaultRecordLifetime
	}
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	return &CommandGuard{
		lastSeen:    make(map[string]commandRecord),
		gracePeriod: gracePeriod,
		recordTTL:   recordTTL,
		maxRecords:  maxRecords,
		nowFn:       time.Now,
	}
}

// Check validates timestamp for signer, recording it as the new high-water
// mark on acceptance. Returns false if timestamp is outside the grace
// period of the guard's clock, or is not strictly greater than the last
// timestamp accepted from this signer.
func (g *CommandGuard) Check(signer ndn.Name, timestamp time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.nowFn()
	if timestamp.Before(now.Add(-g.gracePeriod)) || timestamp.After(now.Add(g.gracePeriod)) {
		return false
	}

	key := signer.String()
	if rec, ok := g.lastSeen[key]; ok {
		if !timestamp.After(rec.lastTimestamp) {
			return false
		}
	}

	g.evictStaleLocked(now)
	if len(g.lastSeen) >= g.maxRecords {
		g.evictOldestLocked()
	}
	g.lastSeen[key] = commandRecord{lastTimestamp: timestamp, updatedAt: now}
	return true
}

func (g *CommandGuard) evictStaleLocked(now time.Time) {
	for k, rec := range g.lastSeen {
		if now.Sub(rec.updatedAt) > g.recordTTL {
			delete(g.lastSeen, k)
		}
	}
}

func (g *CommandGuard) evictOldestLocked() {
	var oldestKey string
	var oldestTime time.Time
	first := true
	for k, rec := range g.lastSeen {
		if first || rec.updatedAt.Before(oldestTime) {
			oldestKey, oldestTime = k, rec.updatedAt
			first = false
		}
	}
	if !first {
		delete(g.lastSeen, oldestKey)
	}
}

// Reset forgets all recorded signer state.
func (g *CommandGuard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastSeen = make(map[string]commandRecord)
}

// Size reports how many signers currently have recorded state.
func (g *CommandGuard) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.lastSeen)
}

// SignedInterestGuard implements the v0.3 convention: each signer tracks
// both the last-accepted timestamp and the highest sequence number seen,
// plus a rolling window of recently-seen nonces to catch a replay that
// reuses an old timestamp/seqnum pair that happens to still be "highest".
type SignedInterestGuard struct {
	mu          sync.Mutex
	records     map[string]*signedRecord
	gracePeriod time.Duration
	recordTTL   time.Duration
	maxRecords  int
	nonceWindow int
	nowFn       func() time.Time
}

type signedRecord struct {
	lastTimestamp time.Time
	lastSeqNum    uint64
	haveSeqNum    bool
	nonces        map[string]struct{}
	nonceOrder    []string
	updatedAt     time.Time
}

// NewSignedInterestGuard builds a guard; zero values fall back to package
// defaults. nonceWindow bounds how many recent nonces are remembered per
// signer (zero or negative selects a window of 32; nonce tracking is always
// on).
func NewSignedInterestGuard(gracePeriod, recordTTL time.Duration, maxRecords, nonceWindow int) *SignedInterestGuard {
	if gracePeriod <= 0 {
		gracePeriod = DefaultGracePeriod
	}
	if recordTTL <= 0 {
		recordTTL = DefaultRecordLifetime
	}
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	if nonceWindow <= 0 {
		nonceWindow = 32
	}
	return &SignedInterestGuard{
		records:     make(map[string]*signedRecord),
		gracePeriod: gracePeriod,
		recordTTL:   recordTTL,
		maxRecords:  maxRecords,
		nonceWindow: nonceWindow,
		nowFn:       time.Now,
	}
}

// Check validates (timestamp, seqNum, nonce) for signer. A signed Interest
// passes if its timestamp is within the grace period, its sequence number
// is strictly greater than the last one seen from this signer (or this is
// the first Interest from them), and its nonce has not been seen before
// within the tracked window.
func (g *SignedInterestGuard) Check(signer ndn.Name, timestamp time.Time, seqNum uint64, nonce []byte) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.nowFn()
	if timestamp.Before(now.Add(-g.gracePeriod)) || timestamp.After(now.Add(g.gracePeriod)) {
		return false
	}

	key := signer.String()
	rec, exists := g.records[key]
	if exists {
		if rec.haveSeqNum && seqNum <= rec.lastSeqNum {
			return false
		}
		if _, seen := rec.nonces[string(nonce)]; seen {
			return false
		}
	}

	g.evictStaleLocked(now)
	if !exists && len(g.records) >= g.maxRecords {
		g.evictOldestLocked()
	}

	if !exists {
		rec = &signedRecord{nonces: make(map[string]struct{})}
		g.records[key] = rec
	}
	rec.lastTimestamp = timestamp
	rec.lastSeqNum = seqNum
	rec.haveSeqNum = true
	rec.updatedAt = now
	g.rememberNonceLocked(rec, string(nonce))
	return true
}

func (g *SignedInterestGuard) rememberNonceLocked(rec *signedRecord, nonce string) {
	rec.nonces[nonce] = struct{}{}
	rec.nonceOrder = append(rec.nonceOrder, nonce)
	for len(rec.nonceOrder) > g.nonceWindow {
		oldest := rec.nonceOrder[0]
		rec.nonceOrder = rec.nonceOrder[1:]
		delete(rec.nonces, oldest)
	}
}

func (g *SignedInterestGuard) evictStaleLocked(now time.Time) {
	for k, rec := range g.records {
		if now.Sub(rec.updatedAt) > g.recordTTL {
			delete(g.records, k)
		}
	}
}

func (g *SignedInterestGuard) evictOldestLocked() {
	var oldestKey string
	var oldestTime time.Time
	first := true
	for k, rec := range g.records {
		if first || rec.updatedAt.Before(oldestTime) {
			oldestKey, oldestTime = k, rec.updatedAt
			first = false
		}
	}
	if !first {
		delete(g.records, oldestKey)
	}
}

// Reset forgets all recorded signer state.
func (g *SignedInterestGuard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.records = make(map[string]*signedRecord)
}

// Size reports how many signers currently have recorded state.
func (g *SignedInterestGuard) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.records)
}
