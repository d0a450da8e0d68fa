package ndn

import "time"

// ContentType mirrors the small set of NDN content-type values the security
// and management stack cares about.
type ContentType uint8

const (
	ContentTypeBlob ContentType = iota
	ContentTypeLink
	ContentTypeKey
	ContentTypeNack
)

// Data is a response packet: a Name plus content and the signature that
// authenticates it.
type Data struct {
	Name            Name
	ContentType     ContentType
	FreshnessPeriod time.Duration
	Content         []byte
	FinalBlockID    *Component

	SignatureInfo  SignatureInfo
	SignatureValue []byte
}

// NewData builds an unsigned Data packet (zero-value SignatureInfo/Value);
// callers sign it via the signverify package before sending.
func NewData(name Name, content []byte) Data {
	return Data{Name: name, Content: content, ContentType: ContentTypeBlob}
}

// SignedPortion returns the subset of Data fields covered by a signature:
// Name, MetaInfo (ContentType/FreshnessPeriod/FinalBlockId), Content and
// SignatureInfo, in wire order, but excluding SignatureValue. Since the TLV
// codec is out of scope, this package exposes the semantic rule and leaves
// the actual byte-range extraction to whatever WireCodec implementation is
// wired in (see codec.go).
const SignedPortionDescription = "Name || MetaInfo || Content || SignatureInfo (excludes SignatureValue)"
