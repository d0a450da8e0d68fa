package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ndnsec/pkg/ndn"
)

func TestAcceptAll(t *testing.T) {
	p := AcceptAll{}
	r := p.CheckPolicy(ndn.ParseName("/a/b"), ndn.KeyLocator{Type: ndn.KeyLocatorDigest})
	assert.Equal(t, DecisionAccept, r.Decision)
}

func TestRejectAll(t *testing.T) {
	p := RejectAll{}
	r := p.CheckPolicy(ndn.ParseName("/a/b"), ndn.KeyLocator{})
	assert.Equal(t, DecisionReject, r.Decision)
	assert.NotEmpty(t, r.Reason)
}

func TestSimpleHierarchyAccepts(t *testing.T) {
	p := SimpleHierarchy{}
	kl := ndn.KeyLocator{Type: ndn.KeyLocatorName, Name: ndn.ParseName("/a/b").Append(ndn.NewKeywordComponent("KEY")).Append(ndn.NewGenericComponent([]byte("1")))}
	r := p.CheckPolicy(ndn.ParseName("/a/b/c/data"), kl)
	assert.Equal(t, DecisionCertRequest, r.Decision)
	assert.True(t, r.CertRequest.Equal(kl.Name))
}

func TestSimpleHierarchyRejectsUnrelatedIdentity(t *testing.T) {
	p := SimpleHierarchy{}
	kl := ndn.KeyLocator{Type: ndn.KeyLocatorName, Name: ndn.ParseName("/other").Append(ndn.NewKeywordComponent("KEY")).Append(ndn.NewGenericComponent([]byte("1")))}
	r := p.CheckPolicy(ndn.ParseName("/a/b/c/data"), kl)
	assert.Equal(t, DecisionReject, r.Decision)
}

func TestSimpleHierarchyRejectsDigestLocator(t *testing.T) {
	p := SimpleHierarchy{}
	r := p.CheckPolicy(ndn.ParseName("/a/b"), ndn.KeyLocator{Type: ndn.KeyLocatorDigest, Digest: []byte("x")})
	assert.Equal(t, DecisionReject, r.Decision)
}

func TestChainFallsThroughToFirstAcceptingPolicy(t *testing.T) {
	kl := ndn.KeyLocator{Type: ndn.KeyLocatorName, Name: ndn.ParseName("/a").Append(ndn.NewKeywordComponent("KEY")).Append(ndn.NewGenericComponent([]byte("1")))}
	c := NewChain(RejectAll{}, SimpleHierarchy{})
	r := c.CheckPolicy(ndn.ParseName("/a/b/data"), kl)
	assert.Equal(t, DecisionCertRequest, r.Decision)
}

func TestChainAllRejectReturnsFirstReason(t *testing.T) {
	c := NewChain(RejectAll{Reason: "first"}, RejectAll{Reason: "second"})
	r := c.CheckPolicy(ndn.ParseName("/a"), ndn.KeyLocator{})
	assert.Equal(t, DecisionReject, r.Decision)
	assert.Equal(t, "first", r.Reason)
}

func TestChainEmpty(t *testing.T) {
	c := NewChain()
	r := c.CheckPolicy(ndn.ParseName("/a"), ndn.KeyLocator{})
	assert.Equal(t, DecisionReject, r.Decision)
}
