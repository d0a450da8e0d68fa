// Package validator orchestrates the full packet-validation pipeline:
// consult policy for whether a signer is eligible, resolve that signer's
// certificate (from cache, then via a fetcher), walk the certificate chain
// up to a trust anchor, and verify every signature along the way. It ties
// together packages ndn, cert, certcache, certfetcher, policy and
// signverify.
package validator

import (
	"context"
	"time"

	"ndnsec/pkg/helper/errors"
	"ndnsec/pkg/metrics"
	"ndnsec/pkg/ndn"
	"ndnsec/pkg/security/cert"
	"ndnsec/pkg/security/certcache"
	"ndnsec/pkg/security/certfetcher"
	"ndnsec/pkg/security/keys"
	"ndnsec/pkg/security/policy"
	"ndnsec/pkg/security/replay"
	"ndnsec/pkg/security/signverify"
	"ndnsec/pkg/security/transform"
)

// ErrorCode enumerates why validation failed, mirroring ndn-cxx's
// ValidationError::Code taxonomy closely enough that operators familiar
// with it will recognize these.
type ErrorCode uint8

const (
	NoError ErrorCode = iota
	InvalidSignature
	NoSignature
	CannotRetrieveCert
	ExpiredCert
	LoopDetected
	MalformedCert
	ExceededDepthLimit
	InvalidKeyLocator
	PolicyError
	ImplementationError
	ReplayDetected
)

func (c ErrorCode) String() string {
	switch c {
	case NoError:
		return "no-error"
	case InvalidSignature:
		return "invalid-signature"
	case NoSignature:
		return "no-signature"
	case CannotRetrieveCert:
		return "cannot-retrieve-cert"
	case ExpiredCert:
		return "expired-cert"
	case LoopDetected:
		return "loop-detected"
	case MalformedCert:
		return "malformed-cert"
	case ExceededDepthLimit:
		return "exceeded-depth-limit"
	case InvalidKeyLocator:
		return "invalid-key-locator"
	case PolicyError:
		return "policy-error"
	case ReplayDetected:
		return "replay-detected"
	default:
		return "implementation-error"
	}
}

// ValidationError is returned by Validate on failure, carrying both the
// machine-readable Code and a free-form Info string for logs.
type ValidationError struct {
	Code ErrorCode
	Info string
}

func (e *ValidationError) Error() string {
	if e.Info == "" {
		return e.Code.String()
	}
	return e.Code.String() + ": " + e.Info
}

func fail(code ErrorCode, format string, args ...interface{}) error {
	return &ValidationError{Code: code, Info: errors.Newf(format, args...).Error()}
}

// DefaultMaxDepth bounds how many certificates a single validation attempt
// will chain through before giving up, protecting against both genuine
// misconfiguration and a maliciously long chain.
const DefaultMaxDepth = 10

// Config controls a Validator's behavior.
type Config struct {
	MaxDepth int
	Codec    ndn.WireCodec

	// CommandGuard and SignedInterestGuard gate ValidateInterest against
	// replayed v0.2 command Interests and v0.3 signed Interests
	// respectively, per spec §4.7/§4.8. A nil guard disables replay
	// checking for that signed-Interest format.
	CommandGuard        *replay.CommandGuard
	SignedInterestGuard *replay.SignedInterestGuard

	// Metrics records replay rejections, if non-nil. A nil Metrics is
	// valid; every Record* method is a no-op on a nil receiver.
	Metrics *metrics.Registry
}

// DefaultConfig returns the default depth limit, the package-provided
// NativeCodec, and replay guards with the package-default grace period,
// record lifetime and capacity.
func DefaultConfig() Config {
	return Config{
		MaxDepth:            DefaultMaxDepth,
		Codec:               ndn.NewNativeCodec(),
		CommandGuard:        replay.NewCommandGuard(0, 0, 0),
		SignedInterestGuard: replay.NewSignedInterestGuard(0, 0, 0, 0),
	}
}

// Validator ties policy, cache, fetcher and the crypto layer together to
// decide whether a Data packet is acceptable.
type Validator struct {
	policy  policy.Policy
	cache   *certcache.Cache
	fetcher certfetcher.Fetcher
	anchors TrustAnchorLookup
	cfg     Config
}

// TrustAnchorLookup resolves a certificate name to a trust anchor
// certificate, if it is one. validatorconfig.TrustAnchorStore implements
// this.
type TrustAnchorLookup interface {
	Get(name ndn.Name) (*cert.Certificate, bool)
}

// New builds a Validator. cfg's zero value is not valid; use DefaultConfig
// as a base.
func New(p policy.Policy, cache *certcache.Cache, fetcher certfetcher.Fetcher, anchors TrustAnchorLookup, cfg Config) *Validator {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if cfg.Codec == nil {
		cfg.Codec = ndn.NewNativeCodec()
	}
	return &Validator{policy: p, cache: cache, fetcher: fetcher, anchors: anchors, cfg: cfg}
}

// Validate checks whether data is acceptable: its signer is authorized by
// policy for data's name, and the certificate chain from the signer up to
// a trust anchor verifies at every step.
func (v *Validator) Validate(ctx context.Context, data ndn.Data) error {
	if data.SignatureInfo.Type == ndn.SignatureTypeNone {
		return fail(NoSignature, "data packet %s carries no signature", data.Name)
	}
	if data.SignatureInfo.Type == ndn.SignatureSha256Digest {
		ok, err := signverify.VerifyDataDigest(data, v.cfg.Codec)
		if err != nil {
			return fail(InvalidSignature, "digest verification error: %v", err)
		}
		if !ok {
			return fail(InvalidSignature, "digest mismatch for %s", data.Name)
		}
		return nil
	}

	kl := data.SignatureInfo.KeyLocator
	if kl == nil || kl.Type != ndn.KeyLocatorName {
		return fail(InvalidKeyLocator, "signed data must carry a Name key locator")
	}

	visited := map[string]bool{}
	return v.validateChain(ctx, data.Name, data.SignatureInfo.Type, data.SignatureValue, func() ([]byte, error) {
		return v.cfg.Codec.SignedPortionOfData(&data)
	}, *kl, visited, 0)
}

// ValidateInterest is Validate's analogue for a signed Interest, accepting
// either the modern v0.3 packet-field convention or the legacy v0.2
// command-Interest convention (timestamp/nonce/SignatureInfo/SignatureValue
// carried as trailing name components). Either way, once the certificate
// chain and signature verify, the Interest must also clear the matching
// replay guard before being accepted.
func (v *Validator) ValidateInterest(ctx context.Context, interest ndn.Interest) error {
	switch interest.FormatTag() {
	case ndn.SignedInterestFormatV03:
		return v.validateInterestV03(ctx, interest)
	case ndn.SignedInterestFormatV02:
		return v.validateInterestV02(ctx, interest)
	default:
		return fail(NoSignature, "interest %s carries no signature fields", interest.Name)
	}
}

func (v *Validator) validateInterestV03(ctx context.Context, interest ndn.Interest) error {
	kl := interest.SignatureInfo.KeyLocator
	if kl == nil || kl.Type != ndn.KeyLocatorName {
		return fail(InvalidKeyLocator, "signed interest must carry a Name key locator")
	}

	visited := map[string]bool{}
	if err := v.validateChain(ctx, interest.Name, interest.SignatureInfo.Type, interest.SignatureValue, func() ([]byte, error) {
		return v.cfg.Codec.SignedPortionOfInterest(&interest)
	}, *kl, visited, 0); err != nil {
		return err
	}

	if v.cfg.SignedInterestGuard != nil {
		var timestamp time.Time
		if interest.SignatureInfo.Time != nil {
			timestamp = *interest.SignatureInfo.Time
		}
		var seqNum uint64
		if interest.SignatureInfo.SeqNum != nil {
			seqNum = *interest.SignatureInfo.SeqNum
		}
		if !v.cfg.SignedInterestGuard.Check(kl.Name, timestamp, seqNum, interest.SignatureInfo.Nonce) {
			v.cfg.Metrics.RecordReplayRejection("signed-interest")
			return fail(ReplayDetected, "replayed or out-of-window signed interest from %s", kl.Name)
		}
	}
	return nil
}

// validateInterestV02 validates the legacy command-Interest convention: the
// Interest's Name carries timestamp, nonce, SignatureInfo and
// SignatureValue as its last four components (see ndn.isV02SignedName). The
// signed portion covers every component except the trailing
// SignatureValue; the packet name policy is checked against is everything
// before the timestamp.
func (v *Validator) validateInterestV02(ctx context.Context, interest ndn.Interest) error {
	n := interest.Name.Len()
	sigInfo, err := v.cfg.Codec.DecodeSignatureInfoComponent(interest.Name.At(-2))
	if err != nil {
		return fail(MalformedCert, "decode v0.2 signature info component: %v", err)
	}
	kl := sigInfo.KeyLocator
	if kl == nil || kl.Type != ndn.KeyLocatorName {
		return fail(InvalidKeyLocator, "signed interest must carry a Name key locator")
	}

	sigValue := interest.Name.At(-1).Bytes
	commandName := interest.Name.GetPrefix(n - 4)
	signedName := interest.Name.GetPrefix(n - 1)

	visited := map[string]bool{}
	if err := v.validateChain(ctx, commandName, sigInfo.Type, sigValue, func() ([]byte, error) {
		return concatNameComponents(signedName, v.cfg.Codec), nil
	}, *kl, visited, 0); err != nil {
		return err
	}

	if v.cfg.CommandGuard != nil {
		timestamp := time.UnixMilli(int64(interest.Name.At(-4).Value)).UTC()
		if !v.cfg.CommandGuard.Check(kl.Name, timestamp) {
			v.cfg.Metrics.RecordReplayRejection("command")
			return fail(ReplayDetected, "replayed or out-of-window command interest from %s", kl.Name)
		}
	}
	return nil
}

// concatNameComponents concatenates codec's wire encoding of each of n's
// components, in order, for the v0.2 convention of signing a subset of a
// name's components rather than a dedicated packet field.
func concatNameComponents(n ndn.Name, codec ndn.WireCodec) []byte {
	var out []byte
	for i := 0; i < n.Len(); i++ {
		out = append(out, codec.EncodeNameComponent(n.At(i))...)
	}
	return out
}

// validateChain is the recursive core: check policy for (packetName, kl),
// resolve kl's certificate (trusted cache -> trust anchor -> untrusted
// cache -> fetch), verify the
// signature over signedPortion with that certificate's public key, then if
// the certificate itself isn't already a trust anchor, recurse to validate
// *its* signer.
func (v *Validator) validateChain(
	ctx context.Context,
	packetName ndn.Name,
	sigType ndn.SignatureType,
	sigValue []byte,
	signedPortion func() ([]byte, error),
	kl ndn.KeyLocator,
	visited map[string]bool,
	depth int,
) error {
	if depth >= v.cfg.MaxDepth {
		return fail(ExceededDepthLimit, "validation depth exceeded %d at %s", v.cfg.MaxDepth, packetName)
	}

	decision := v.policy.CheckPolicy(packetName, kl)
	switch decision.Decision {
	case policy.DecisionReject:
		return fail(PolicyError, "%s", decision.Reason)
	case policy.DecisionAccept:
		return nil
	}

	certName := decision.CertRequest
	key := certName.String()
	if visited[key] {
		return fail(LoopDetected, "certificate %s already visited in this chain", certName)
	}
	visited[key] = true

	signerCert, err := v.resolveCertificate(ctx, certName)
	if err != nil {
		return err
	}
	if !signerCert.IsValid(time.Now()) {
		return fail(ExpiredCert, "certificate %s is outside its validity period", certName)
	}

	pub, err := signerCert.PublicKey()
	if err != nil {
		return fail(MalformedCert, "certificate %s has an unparsable public key: %v", certName, err)
	}

	message, err := signedPortion()
	if err != nil {
		return fail(ImplementationError, "extract signed portion: %v", err)
	}
	ok, err := verifySignature(sigType, pub, message, sigValue)
	if err != nil {
		return fail(InvalidSignature, "verify error: %v", err)
	}
	if !ok {
		return fail(InvalidSignature, "signature over %s does not verify against %s", packetName, certName)
	}

	if _, isAnchor := v.anchorFor(certName); isAnchor {
		v.cache.PromoteToTrusted(signerCert)
		return nil
	}

	v.cache.PutUntrusted(signerCert)

	issuerKL := signerCert.KeyLocator()
	if issuerKL == nil || issuerKL.Type != ndn.KeyLocatorName {
		return fail(InvalidKeyLocator, "certificate %s has no Name key locator for its issuer", certName)
	}

	return v.validateChain(ctx, signerCert.Name(), signerCert.Data().SignatureInfo.Type, signerCert.Data().SignatureValue, func() ([]byte, error) {
		d := signerCert.Data()
		return v.cfg.Codec.SignedPortionOfData(&d)
	}, *issuerKL, visited, depth+1)
}

func (v *Validator) anchorFor(name ndn.Name) (*cert.Certificate, bool) {
	if v.anchors == nil {
		return nil, false
	}
	return v.anchors.Get(name)
}

func (v *Validator) resolveCertificate(ctx context.Context, certName ndn.Name) (*cert.Certificate, error) {
	if c, ok := v.cache.GetTrusted(certName); ok {
		return c, nil
	}
	if anchor, ok := v.anchorFor(certName); ok {
		v.cache.PutTrusted(anchor)
		return anchor, nil
	}
	if c, ok := v.cache.GetUntrusted(certName); ok {
		return c, nil
	}
	if v.fetcher == nil {
		return nil, fail(CannotRetrieveCert, "no fetcher configured for %s", certName)
	}
	c, err := v.fetcher.Fetch(ctx, certName)
	if err != nil {
		return nil, fail(CannotRetrieveCert, "%v", err)
	}
	return c, nil
}

// verifySignature checks signature over message using pub. HMAC signatures
// cannot be verified this way since HMAC has no public half; a certificate
// chain should never terminate in one.
func verifySignature(sigType ndn.SignatureType, pub *keys.PublicKey, message, signature []byte) (bool, error) {
	if sigType == ndn.SignatureHmacWithSha256 {
		return false, errors.InvalidInputf("a certificate cannot carry an HMAC signature")
	}
	digest, err := transform.Digest(transform.Sha256, message)
	if err != nil {
		return false, err
	}
	return pub.Verify(digest, signature)
}
