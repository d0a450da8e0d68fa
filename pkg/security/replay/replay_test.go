package replay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ndnsec/pkg/ndn"
)

func TestCommandGuardMonotonicTimestamp(t *testing.T) {
	g := NewCommandGuard(time.Minute, time.Hour, 100)
	signer := ndn.ParseName("/alice/KEY/1")
	now := time.Now()

	assert.True(t, g.Check(signer, now))
	assert.False(t, g.Check(signer, now), "equal timestamp must be rejected")
	assert.False(t, g.Check(signer, now.Add(-time.Second)), "earlier timestamp must be rejected")
	assert.True(t, g.Check(signer, now.Add(time.Second)))
}

func TestCommandGuardGracePeriod(t *testing.T) {
	g := NewCommandGuard(time.Second, time.Hour, 100)
	signer := ndn.ParseName("/alice/KEY/1")
	assert.False(t, g.Check(signer, time.Now().Add(-time.Hour)))
	assert.False(t, g.Check(signer, time.Now().Add(time.Hour)))
}

func TestCommandGuardPerSignerIndependence(t *testing.T) {
	g := NewCommandGuard(time.Minute, time.Hour, 100)
	now := time.Now()
	assert.True(t, g.Check(ndn.ParseName("/alice/KEY/1"), now))
	assert.True(t, g.Check(ndn.ParseName("/bob/KEY/1"), now))
	assert.Equal(t, 2, g.Size())
}

func TestCommandGuardMaxRecordsEviction(t *testing.T) {
	g := NewCommandGuard(time.Minute, time.Hour, 2)
	now := time.Now()
	require.True(t, g.Check(ndn.ParseName("/a"), now))
	require.True(t, g.Check(ndn.ParseName("/b"), now.Add(time.Millisecond)))
	require.True(t, g.Check(ndn.ParseName("/c"), now.Add(2*time.Millisecond)))
	assert.LessOrEqual(t, g.Size(), 2)
}

func TestCommandGuardReset(t *testing.T) {
	g := NewCommandGuard(time.Minute, time.Hour, 100)
	signer := ndn.ParseName("/alice/KEY/1")
	now := time.Now()
	require.True(t, g.Check(signer, now))
	g.Reset()
	assert.True(t, g.Check(signer, now), "after reset the same timestamp should be accepted again")
}

func TestSignedInterestGuardSeqNumMustIncrease(t *testing.T) {
	g := NewSignedInterestGuard(time.Minute, time.Hour, 100, 32)
	signer := ndn.ParseName("/alice/KEY/1")
	now := time.Now()

	assert.True(t, g.Check(signer, now, 1, []byte("n1")))
	assert.False(t, g.Check(signer, now, 1, []byte("n2")), "same seqnum must be rejected")
	assert.False(t, g.Check(signer, now, 0, []byte("n3")), "lower seqnum must be rejected")
	assert.True(t, g.Check(signer, now, 2, []byte("n4")))
}

func TestSignedInterestGuardNonceReuse(t *testing.T) {
	g := NewSignedInterestGuard(time.Minute, time.Hour, 100, 32)
	signer := ndn.ParseName("/alice/KEY/1")
	now := time.Now()

	assert.True(t, g.Check(signer, now, 1, []byte("dup")))
	assert.False(t, g.Check(signer, now, 2, []byte("dup")), "reused nonce must be rejected even with higher seqnum")
}

func TestSignedInterestGuardGracePeriod(t *testing.T) {
	g := NewSignedInterestGuard(time.Second, time.Hour, 100, 32)
	signer := ndn.ParseName("/alice/KEY/1")
	assert.False(t, g.Check(signer, time.Now().Add(-time.Hour), 1, []byte("n")))
}

func TestSignedInterestGuardReset(t *testing.T) {
	g := NewSignedInterestGuard(time.Minute, time.Hour, 100, 32)
	signer := ndn.ParseName("/alice/KEY/1")
	now := time.Now()
	require.True(t, g.Check(signer, now, 5, []byte("n")))
	g.Reset()
	assert.True(t, g.Check(signer, now, 0, []byte("n")))
}
