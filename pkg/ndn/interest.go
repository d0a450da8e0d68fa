package ndn

import "time"

// SignedInterestFormatTag discriminates the two on-wire shapes a signed
// Interest may take. It is attached to validation state (not the Interest
// itself) because the wire codec, not this package, determines which shape
// a decoded Interest used.
type SignedInterestFormatTag uint8

const (
	// SignedInterestFormatNone means the Interest is unsigned.
	SignedInterestFormatNone SignedInterestFormatTag = iota
	// SignedInterestFormatV02 is the legacy command-Interest shape: a
	// timestamp name component followed by SignatureInfo/SignatureValue
	// components.
	SignedInterestFormatV02
	// SignedInterestFormatV03 is the modern shape: InterestSignatureInfo
	// and InterestSignatureValue packet fields.
	SignedInterestFormatV03
)

const defaultInterestLifetime = 4 * time.Second

// Interest is an immutable-identity request: every field below is set at
// construction time; "signing" an Interest produces a new value rather than
// mutating in place.
type Interest struct {
	Name                  Name
	ApplicationParameters []byte
	Nonce                 uint32
	Lifetime              time.Duration

	// v0.3 signed-Interest fields. Populated together; nil SignatureInfo
	// means the Interest is unsigned in the v0.3 sense (it may still be a
	// v0.2 signed Interest encoded into Name).
	SignatureInfo  *SignatureInfo
	SignatureValue []byte
}

// NewInterest builds an unsigned Interest with the default 4s lifetime.
func NewInterest(name Name) Interest {
	return Interest{Name: name, Lifetime: defaultInterestLifetime}
}

// IsSignedV03 reports whether this Interest carries v0.3 signature fields.
func (i Interest) IsSignedV03() bool {
	return i.SignatureInfo != nil
}

// isV02SignedName reports whether name ends in the four fixed-offset
// components the v0.2 (command-Interest) convention appends: timestamp,
// nonce, SignatureInfo-as-component, SignatureValue-as-component.
func isV02SignedName(n Name) bool {
	return n.Len() >= 4 && n.At(-4).Type == ComponentTimestamp
}

// FormatTag determines which signed-Interest shape, if any, this Interest
// uses. Both checks can be true only for maliciously/ambiguously built
// Interests; v0.3 fields take precedence since the codec would not set
// both for a packet it produced itself.
func (i Interest) FormatTag() SignedInterestFormatTag {
	switch {
	case i.IsSignedV03():
		return SignedInterestFormatV03
	case isV02SignedName(i.Name):
		return SignedInterestFormatV02
	default:
		return SignedInterestFormatNone
	}
}

// SignedPortionV02 returns the byte ranges covered by a v0.2 signature: the
// concatenation of all name-component TLVs except the last (SignatureValue).
// The caller supplies already-encoded component bytes (produced by the wire
// codec) because this package does not implement TLV encoding itself.
func SignedPortionV02(encodedComponents [][]byte) []byte {
	if len(encodedComponents) == 0 {
		return nil
	}
	var out []byte
	for _, c := range encodedComponents[:len(encodedComponents)-1] {
		out = append(out, c...)
	}
	return out
}

// KeyLocatorFromSignature extracts the KeyLocator carried by a signed
// Interest's SignatureInfo, regardless of v0.2/v0.3 shape. For v0.2 the
// caller must have already decoded the SignatureInfo-as-component into
// sigInfo; this package does not parse components into SignatureInfo.
func (i Interest) KeyLocatorFromSignature(sigInfo *SignatureInfo) *KeyLocator {
	if sigInfo == nil {
		return nil
	}
	return sigInfo.KeyLocator
}
