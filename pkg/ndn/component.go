// Package ndn implements the Named Data Networking packet data model: names,
// interests, data packets and their signature fields. The on-the-wire TLV
// codec is treated as an external collaborator (see WireCodec in codec.go);
// this package only fixes the in-memory shapes and the comparison/ordering
// rules that the security stack depends on.
package ndn

import (
	"bytes"
	"fmt"
	"strconv"
)

// ComponentType discriminates the typed name-component variants used by the
// security and management stack. Generic components carry opaque bytes;
// the others carry a big-endian encoded number in addition to their bytes.
type ComponentType uint8

const (
	ComponentGeneric ComponentType = iota
	ComponentVersion
	ComponentSegment
	ComponentTimestamp
	ComponentSequenceNumber
	ComponentKeyword
)

func (t ComponentType) String() string {
	switch t {
	case ComponentGeneric:
		return "generic"
	case ComponentVersion:
		return "version"
	case ComponentSegment:
		return "segment"
	case ComponentTimestamp:
		return "timestamp"
	case ComponentSequenceNumber:
		return "sequence-number"
	case ComponentKeyword:
		return "keyword"
	default:
		return "unknown"
	}
}

// Component is a single opaque name component. Typed components (version,
// segment, timestamp, sequence-number) additionally carry their decoded
// numeric value so callers don't need to re-parse the bytes.
type Component struct {
	Type  ComponentType
	Bytes []byte
	Value uint64 // meaningful when Type != ComponentGeneric
}

// NewGenericComponent builds a generic (opaque-bytes) component.
func NewGenericComponent(b []byte) Component {
	return Component{Type: ComponentGeneric, Bytes: append([]byte(nil), b...)}
}

// NewKeywordComponent builds a keyword component, e.g. "KEY" in the
// certificate naming convention.
func NewKeywordComponent(s string) Component {
	return Component{Type: ComponentKeyword, Bytes: []byte(s)}
}

func numberComponent(t ComponentType, v uint64) Component {
	buf := make([]byte, 8)
	n := 0
	for shift := 56; shift >= 0; shift -= 8 {
		b := byte(v >> uint(shift))
		if n > 0 || b != 0 || shift == 0 {
			buf[n] = b
			n++
		}
	}
	return Component{Type: t, Bytes: append([]byte(nil), buf[:n]...), Value: v}
}

func NewVersionComponent(v uint64) Component        { return numberComponent(ComponentVersion, v) }
func NewSegmentComponent(v uint64) Component         { return numberComponent(ComponentSegment, v) }
func NewTimestampComponent(v uint64) Component       { return numberComponent(ComponentTimestamp, v) }
func NewSequenceNumberComponent(v uint64) Component  { return numberComponent(ComponentSequenceNumber, v) }

// Equal reports whether two components have the same type and bytes.
func (c Component) Equal(o Component) bool {
	return c.Type == o.Type && bytes.Equal(c.Bytes, o.Bytes)
}

// Compare implements NDN canonical component ordering: shorter components
// sort before longer ones; same-length components compare byte-wise.
func (c Component) Compare(o Component) int {
	if len(c.Bytes) != len(o.Bytes) {
		if len(c.Bytes) < len(o.Bytes) {
			return -1
		}
		return 1
	}
	return bytes.Compare(c.Bytes, o.Bytes)
}

// String renders a component the way NDN URIs do: generic components as
// percent-escaped text when printable, typed components with their
// marker prefix (v=, seg=, t=, seq=).
func (c Component) String() string {
	switch c.Type {
	case ComponentVersion:
		return "v=" + strconv.FormatUint(c.Value, 10)
	case ComponentSegment:
		return "seg=" + strconv.FormatUint(c.Value, 10)
	case ComponentTimestamp:
		return "t=" + strconv.FormatUint(c.Value, 10)
	case ComponentSequenceNumber:
		return "seq=" + strconv.FormatUint(c.Value, 10)
	default:
		return escapeComponent(c.Bytes)
	}
}

func escapeComponent(b []byte) string {
	var buf bytes.Buffer
	for _, ch := range b {
		if isUnreserved(ch) {
			buf.WriteByte(ch)
		} else {
			fmt.Fprintf(&buf, "%%%02X", ch)
		}
	}
	return buf.String()
}

func isUnreserved(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	case b == '-' || b == '.' || b == '_' || b == '~':
		return true
	}
	return false
}
