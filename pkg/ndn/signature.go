package ndn

import "time"

// SignatureType enumerates the signature algorithms recognized by the
// security stack. Sha256Digest is the only "no key" signature type: it
// authenticates integrity but not provenance.
type SignatureType uint8

const (
	SignatureTypeNone SignatureType = iota
	SignatureSha256WithRsa
	SignatureSha256WithEcdsa
	SignatureHmacWithSha256
	SignatureSha256Digest
)

func (t SignatureType) String() string {
	switch t {
	case SignatureSha256WithRsa:
		return "Sha256WithRsa"
	case SignatureSha256WithEcdsa:
		return "Sha256WithEcdsa"
	case SignatureHmacWithSha256:
		return "HmacWithSha256"
	case SignatureSha256Digest:
		return "Sha256Digest"
	default:
		return "None"
	}
}

// KeyLocatorType discriminates the two KeyLocator variants.
type KeyLocatorType uint8

const (
	KeyLocatorNone KeyLocatorType = iota
	KeyLocatorName
	KeyLocatorDigest
)

// KeyLocator identifies the signer either by certificate/key Name or by a
// digest of the raw public key ("KeyDigest"). Every signed Interest MUST
// carry a Name-typed locator; a Digest-typed one fails policy immediately.
type KeyLocator struct {
	Type   KeyLocatorType
	Name   Name
	Digest []byte
}

// ValidityPeriod is the inclusive [NotBefore, NotAfter] window a
// Certificate's SignatureInfo MUST carry.
type ValidityPeriod struct {
	NotBefore time.Time
	NotAfter  time.Time
}

// Covers reports whether t falls within [NotBefore, NotAfter].
func (v ValidityPeriod) Covers(t time.Time) bool {
	return !t.Before(v.NotBefore) && !t.After(v.NotAfter)
}

// CustomTLV preserves an application-defined SignatureInfo sub-element
// (TLV type >= 128) verbatim, without interpreting its content.
type CustomTLV struct {
	Type  uint64
	Value []byte
}

// SignatureInfo accompanies every signed packet. Time/SeqNum/Nonce are only
// meaningful for signed Interests (command-Interest and signed-Interest
// replay guards key off of them).
type SignatureInfo struct {
	Type           SignatureType
	KeyLocator     *KeyLocator
	ValidityPeriod *ValidityPeriod

	Time   *time.Time
	SeqNum *uint64
	Nonce  []byte

	Custom []CustomTLV
}

// AdditionalDescription is an ordered (key, value) mapping embedded in a
// certificate's SignatureInfo custom TLV space (§3).
type AdditionalDescription struct {
	entries []kv
}

type kv struct{ Key, Value string }

// Set appends or updates a key, preserving insertion order for new keys.
func (d *AdditionalDescription) Set(key, value string) {
	for i := range d.entries {
		if d.entries[i].Key == key {
			d.entries[i].Value = value
			return
		}
	}
	d.entries = append(d.entries, kv{key, value})
}

// Get looks up a key.
func (d *AdditionalDescription) Get(key string) (string, bool) {
	for _, e := range d.entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// Entries returns the ordered (key, value) pairs.
func (d *AdditionalDescription) Entries() []struct{ Key, Value string } {
	out := make([]struct{ Key, Value string }, len(d.entries))
	for i, e := range d.entries {
		out[i] = struct{ Key, Value string }{e.Key, e.Value}
	}
	return out
}

// additionalDescriptionTLVType is the custom sub-TLV type used to embed an
// AdditionalDescription inside SignatureInfo's custom TLV space (>= 128).
const additionalDescriptionTLVType = 128

// EncodeAdditionalDescription packs d into a CustomTLV for embedding in a
// SignatureInfo. The encoding is a simple length-prefixed key/value list;
// the real TLV codec is out of scope (see codec.go).
func EncodeAdditionalDescription(d AdditionalDescription) CustomTLV {
	var buf []byte
	for _, e := range d.entries {
		buf = appendLP(buf, []byte(e.Key))
		buf = appendLP(buf, []byte(e.Value))
	}
	return CustomTLV{Type: additionalDescriptionTLVType, Value: buf}
}

// DecodeAdditionalDescription reverses EncodeAdditionalDescription.
func DecodeAdditionalDescription(t CustomTLV) (AdditionalDescription, bool) {
	if t.Type != additionalDescriptionTLVType {
		return AdditionalDescription{}, false
	}
	var d AdditionalDescription
	rest := t.Value
	for len(rest) > 0 {
		key, r1, ok := readLP(rest)
		if !ok {
			return AdditionalDescription{}, false
		}
		val, r2, ok := readLP(r1)
		if !ok {
			return AdditionalDescription{}, false
		}
		d.Set(string(key), string(val))
		rest = r2
	}
	return d, true
}

func appendLP(buf, data []byte) []byte {
	n := len(data)
	buf = append(buf, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	return append(buf, data...)
}

func readLP(buf []byte) ([]byte, []byte, bool) {
	if len(buf) < 4 {
		return nil, nil, false
	}
	n := int(buf[0])<<24 | int(buf[1])<<16 | int(buf[2])<<8 | int(buf[3])
	buf = buf[4:]
	if n < 0 || n > len(buf) {
		return nil, nil, false
	}
	return buf[:n], buf[n:], true
}
