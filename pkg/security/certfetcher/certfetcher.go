// Package certfetcher implements the two certificate-retrieval strategies
// the validator falls back to when a signing certificate isn't already in
// cache: an offline strategy that only ever looks locally, and a
// from-network strategy that expresses Interests over a Face with retry
// logic grounded on the same exponential-backoff shape the rest of this
// codebase's resilience layer uses (loop detection lives in the validator's
// visited set).
package certfetcher

import (
	"context"
	"math"
	"math/rand"
	"time"

	"ndnsec/pkg/face"
	"ndnsec/pkg/helper/errors"
	"ndnsec/pkg/helper/log"
	"ndnsec/pkg/ndn"
	"ndnsec/pkg/security/cert"
)

// Fetcher retrieves the certificate that would satisfy certName, either from
// a local store or over the network.
type Fetcher interface {
	Fetch(ctx context.Context, certName ndn.Name) (*cert.Certificate, error)
}

// LocalStore is the read side of whatever holds certificates an Offline
// fetcher is allowed to see (a cache, an on-disk keychain, ...).
type LocalStore interface {
	Get(certName ndn.Name) (*cert.Certificate, bool)
}

// Offline never touches the network; it is used for trust anchors and for
// validator configurations where "unverifiable signer" should fail fast
// rather than retry.
type Offline struct {
	store LocalStore
}

// NewOffline builds a Fetcher backed only by store.
func NewOffline(store LocalStore) *Offline {
	return &Offline{store: store}
}

// Fetch looks up certName in store, failing immediately if absent.
func (o *Offline) Fetch(ctx context.Context, certName ndn.Name) (*cert.Certificate, error) {
	if c, ok := o.store.Get(certName); ok {
		return c, nil
	}
	return nil, errors.NotFoundf("certificate %s not available offline", certName)
}

// RetryPolicy controls FromNetwork's backoff between attempts. The spec
// calls for three retries; the backoff shape (exponential with jitter) is
// the same one used elsewhere in this codebase for network operations.
type RetryPolicy struct {
	MaxRetries  int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
	Jitter      float64
}

// DefaultRetryPolicy retries three times, matching the spec's fetch budget.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:  3,
		InitialWait: 100 * time.Millisecond,
		MaxWait:     5 * time.Second,
		Multiplier:  2.0,
		Jitter:      0.3,
	}
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	wait := float64(p.InitialWait) * math.Pow(p.Multiplier, float64(attempt))
	if wait > float64(p.MaxWait) {
		wait = float64(p.MaxWait)
	}
	if p.Jitter > 0 {
		jr := wait * p.Jitter
		wait += (rand.Float64() * 2 * jr) - jr
	}
	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}

// FromNetwork expresses an Interest for a certificate name over a Face,
// retrying on timeout/Nack up to MaxRetries times. It keeps no record of
// names fetched earlier; loop detection is done by the validator's
// per-chain visited set.
type FromNetwork struct {
	face   face.Face
	policy RetryPolicy
	logger log.Logger
}

// NewFromNetwork builds a network fetcher over f using policy. A nil policy
// uses DefaultRetryPolicy.
func NewFromNetwork(f face.Face, policy *RetryPolicy, logger log.Logger) *FromNetwork {
	p := DefaultRetryPolicy()
	if policy != nil {
		p = *policy
	}
	if logger == nil {
		logger = log.NewBasicLogger(log.InfoLevel)
	}
	return &FromNetwork{face: f, policy: p, logger: logger}
}

// Fetch expresses an Interest for certName, retrying transient failures
// (timeout, congestion/duplicate Nack) up to MaxRetries times. A
// NackNoRoute is treated as permanent and not retried.
func (n *FromNetwork) Fetch(ctx context.Context, certName ndn.Name) (*cert.Certificate, error) {
	var lastErr error
	for attempt := 0; attempt <= n.policy.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "certificate fetch cancelled")
		default:
		}

		interest := ndn.NewInterest(certName)
		data, err := n.face.Express(ctx, interest)
		if err == nil {
			c, cerr := cert.FromData(*data)
			if cerr != nil {
				return nil, errors.Wrap(cerr, "fetched data is not a valid certificate")
			}
			if attempt > 0 {
				n.logger.WithField("attempt", attempt+1).Debug("certificate fetch succeeded after retry")
			}
			return c, nil
		}
		lastErr = err

		if nack, ok := err.(*face.Nack); ok && nack.Reason == face.NackNoRoute {
			return nil, errors.Wrap(err, "no route to certificate producer")
		}

		if attempt >= n.policy.MaxRetries {
			break
		}

		wait := n.policy.backoff(attempt)
		n.logger.WithField("attempt", attempt+1).WithField("name", certName.String()).Debug("certificate fetch failed, retrying")
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "certificate fetch cancelled while waiting")
		case <-time.After(wait):
		}
	}
	return nil, errors.Wrap(lastErr, "certificate fetch exhausted retries for %s", certName)
}
