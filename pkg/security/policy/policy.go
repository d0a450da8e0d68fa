// Package policy defines the composable validation-policy framework: given
// a packet's name and its signer's KeyLocator, decide whether the signer is
// even eligible to have signed it, independent of whether the signature
// itself cryptographically verifies. Policies chain: an outer policy can
// narrow or delegate to an inner one.
package policy

import "ndnsec/pkg/ndn"

// Decision is the tri-state result checkPolicy produces: accept outright,
// reject outright, or "I can't tell without first fetching and chaining a
// certificate" (CertRequest carries the name to fetch).
type Decision uint8

const (
	DecisionReject Decision = iota
	DecisionAccept
	DecisionCertRequest
)

// Result bundles a Decision with the certificate name to request when the
// decision is DecisionCertRequest, and a human-readable reason when it is
// DecisionReject.
type Result struct {
	Decision    Decision
	CertRequest ndn.Name
	Reason      string
}

func Accept() Result { return Result{Decision: DecisionAccept} }

func Reject(reason string) Result { return Result{Decision: DecisionReject, Reason: reason} }

func RequestCert(name ndn.Name) Result {
	return Result{Decision: DecisionCertRequest, CertRequest: name}
}

// Policy decides whether a KeyLocator is an acceptable signer for a given
// packet name. Implementations do not check the cryptographic signature;
// that is the validator's job once a Policy has said CertRequest or Accept.
type Policy interface {
	CheckPolicy(packetName ndn.Name, keyLocator ndn.KeyLocator) Result
}

// AcceptAll accepts every packet regardless of signer; useful for
// bootstrapping and for the Non-goals-scoped "open" deployments the spec
// permits but doesn't recommend.
type AcceptAll struct{}

func (AcceptAll) CheckPolicy(ndn.Name, ndn.KeyLocator) Result { return Accept() }

// RejectAll is AcceptAll's opposite, mainly useful as a safe default for
// namespaces a configuration forgot to cover.
type RejectAll struct{ Reason string }

func (r RejectAll) CheckPolicy(ndn.Name, ndn.KeyLocator) Result {
	reason := r.Reason
	if reason == "" {
		reason = "no policy rule matched"
	}
	return Reject(reason)
}

// SimpleHierarchy implements the common "signer's identity (the KeyLocator
// name before its KEY component) must be a prefix of the packet name, at
// any depth" convention: a packet named /a/b/c signed by a KeyLocator
// naming /a/b/KEY/... or /a/KEY/... is accepted,
// requesting that certificate; anything else is rejected. It mirrors
// ndn-cxx's HierarchicalValidatorConfig convenience rule.
type SimpleHierarchy struct{}

func (SimpleHierarchy) CheckPolicy(packetName ndn.Name, keyLocator ndn.KeyLocator) Result {
	if keyLocator.Type != ndn.KeyLocatorName {
		return Reject("hierarchical policy requires a Name key locator")
	}
	identity, err := identityFromKeyName(keyLocator.Name)
	if err != nil {
		return Reject(err.Error())
	}
	if !identity.IsPrefixOf(packetName) {
		return Reject("signer identity is not a prefix of the packet name")
	}
	return RequestCert(keyLocator.Name)
}

func identityFromKeyName(keyName ndn.Name) (ndn.Name, error) {
	for i := keyName.Len() - 1; i >= 0; i-- {
		c := keyName.At(i)
		if c.Type == ndn.ComponentKeyword && string(c.Bytes) == "KEY" {
			return keyName.GetPrefix(i), nil
		}
	}
	return ndn.Name{}, errNotAKeyName
}

var errNotAKeyName = policyError("key locator name does not contain a KEY component")

type policyError string

func (e policyError) Error() string { return string(e) }

// Chain tries each inner Policy in order, returning the first non-reject
// result; if all reject, it returns the first rejection's reason.
type Chain struct {
	Inner []Policy
}

func NewChain(inner ...Policy) Chain { return Chain{Inner: inner} }

func (c Chain) CheckPolicy(packetName ndn.Name, keyLocator ndn.KeyLocator) Result {
	var first Result
	for i, p := range c.Inner {
		r := p.CheckPolicy(packetName, keyLocator)
		if i == 0 {
			first = r
		}
		if r.Decision != DecisionReject {
			return r
		}
	}
	if len(c.Inner) == 0 {
		return Reject("empty policy chain")
	}
	return first
}
