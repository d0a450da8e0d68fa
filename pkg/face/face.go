// Package face defines the minimal Interest/Data exchange surface the
// security and management stacks need from an NDN forwarder connection,
// plus an in-memory implementation for tests and for wiring two in-process
// components (e.g. a fetcher and a local producer) together without a real
// transport.
package face

import (
	"context"
	"sync"

	"ndnsec/pkg/helper/errors"
	"ndnsec/pkg/ndn"
)

// ErrTimeout is returned by Face.Express when no Data or Nack arrives
// before the Interest's lifetime (or the context) expires.
var ErrTimeout = errors.Timeoutf("interest expired without a response")

// NackReason enumerates the handful of reasons a forwarder rejects an
// Interest instead of satisfying or timing it out.
type NackReason uint8

const (
	NackNone NackReason = iota
	NackCongestion
	NackDuplicate
	NackNoRoute
)

// Nack carries a rejected Interest plus the forwarder's reason.
type Nack struct {
	Interest ndn.Interest
	Reason   NackReason
}

func (n *Nack) Error() string { return "nack: " + nackReasonString(n.Reason) }

func nackReasonString(r NackReason) string {
	switch r {
	case NackCongestion:
		return "congestion"
	case NackDuplicate:
		return "duplicate"
	case NackNoRoute:
		return "no-route"
	default:
		return "none"
	}
}

// Handler produces a Data (or returns an error to let the Face translate it
// into a Nack/timeout) for an incoming Interest matching a registered
// prefix.
type Handler func(ctx context.Context, interest ndn.Interest) (*ndn.Data, error)

// Face is the transport-agnostic surface consumed by certfetcher and the
// management dispatcher: express an Interest and wait for exactly one
// response, or register to produce responses for a name prefix.
type Face interface {
	Express(ctx context.Context, interest ndn.Interest) (*ndn.Data, error)
	RegisterPrefix(prefix ndn.Name, handler Handler) error
	UnregisterPrefix(prefix ndn.Name) error
}

// InMemoryFace routes Interests to whichever handler was registered for the
// longest matching prefix, entirely in-process. It is used by unit tests and
// by deployments that colocate producer and consumer in one process.
type InMemoryFace struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	prefixes []ndn.Name
}

// NewInMemoryFace returns an empty in-memory face.
func NewInMemoryFace() *InMemoryFace {
	return &InMemoryFace{handlers: make(map[string]Handler)}
}

// RegisterPrefix adds a producer handler for prefix. Registering the same
// prefix twice replaces the previous handler.
func (f *InMemoryFace) RegisterPrefix(prefix ndn.Name, handler Handler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := prefix.String()
	if _, exists := f.handlers[key]; !exists {
		f.prefixes = append(f.prefixes, prefix)
	}
	f.handlers[key] = handler
	return nil
}

// UnregisterPrefix removes a previously registered handler.
func (f *InMemoryFace) UnregisterPrefix(prefix ndn.Name) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := prefix.String()
	if _, exists := f.handlers[key]; !exists {
		return errors.NotFoundf("no handler registered for prefix %s", prefix)
	}
	delete(f.handlers, key)
	for i, p := range f.prefixes {
		if p.Equal(prefix) {
			f.prefixes = append(f.prefixes[:i], f.prefixes[i+1:]...)
			break
		}
	}
	return nil
}

// Express finds the longest registered prefix matching the Interest's name
// and invokes its handler synchronously. No match behaves like a routing
// failure (ErrTimeout), matching what a real Face sees when no forwarder
// route exists.
func (f *InMemoryFace) Express(ctx context.Context, interest ndn.Interest) (*ndn.Data, error) {
	handler, ok := f.longestMatch(interest.Name)
	if !ok {
		return nil, ErrTimeout
	}
	data, err := handler(ctx, interest)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, ErrTimeout
	}
	return data, nil
}

func (f *InMemoryFace) longestMatch(name ndn.Name) (Handler, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var best ndn.Name
	var bestHandler Handler
	found := false
	for _, p := range f.prefixes {
		if p.IsPrefixOf(name) {
			if !found || p.Len() > best.Len() {
				best = p
				bestHandler = f.handlers[p.String()]
				found = true
			}
		}
	}
	return bestHandler, found
}
