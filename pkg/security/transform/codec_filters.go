package transform

import (
	"encoding/base64"
	"encoding/hex"
)

// Base64Encode encodes its input as base64, optionally inserting a newline
// every 64 output characters (PEM-style wrapping) when WithNewline is set.
type Base64Encode struct {
	baseModule
	withNewline bool
	lineLen     int
	pending     []byte // undecoded input, < 3 bytes, held across Write calls
}

// NewBase64Encode creates an encoder. Pass withNewline=true to wrap output
// at 64 columns, matching the PEM-style certificate file format (§6).
func NewBase64Encode(withNewline bool) *Base64Encode {
	return &Base64Encode{withNewline: withNewline}
}

func (f *Base64Encode) Write(p []byte) (int, error) {
	if f.hasEnded() {
		return 0, errAt(f.index, "write after end")
	}
	consumed := len(p)
	buf := append(f.pending, p...)
	// Encode in 3-byte groups only; hold back any remainder for the next
	// Write or for Finalize via End.
	usable := len(buf) - len(buf)%3
	if usable > 0 {
		out := make([]byte, base64.StdEncoding.EncodedLen(usable))
		base64.StdEncoding.Encode(out, buf[:usable])
		if err := f.emit(out); err != nil {
			return 0, err
		}
	}
	f.pending = append([]byte(nil), buf[usable:]...)
	return consumed, nil
}

func (f *Base64Encode) emit(out []byte) error {
	if !f.withNewline {
		return WriteAll(f.next, out)
	}
	for len(out) > 0 {
		n := f.lineLen
		room := 64 - n
		take := room
		if take > len(out) {
			take = len(out)
		}
		if err := WriteAll(f.next, out[:take]); err != nil {
			return err
		}
		f.lineLen += take
		out = out[take:]
		if f.lineLen == 64 {
			if err := WriteAll(f.next, []byte("\n")); err != nil {
				return err
			}
			f.lineLen = 0
		}
	}
	return nil
}

func (f *Base64Encode) End() error {
	if f.hasEnded() {
		return nil
	}
	if len(f.pending) > 0 {
		out := make([]byte, base64.StdEncoding.EncodedLen(len(f.pending)))
		base64.StdEncoding.Encode(out, f.pending)
		if err := f.emit(out); err != nil {
			return err
		}
		f.pending = nil
	}
	if f.withNewline && f.lineLen > 0 {
		if err := WriteAll(f.next, []byte("\n")); err != nil {
			return err
		}
	}
	f.markEnded()
	return f.next.End()
}

// Base64Decode decodes base64 input, ignoring embedded newlines.
type Base64Decode struct {
	baseModule
	pending []byte
}

func NewBase64Decode() *Base64Decode { return &Base64Decode{} }

func (f *Base64Decode) Write(p []byte) (int, error) {
	if f.hasEnded() {
		return 0, errAt(f.index, "write after end")
	}
	consumed := len(p)
	for _, b := range p {
		if b == '\n' || b == '\r' {
			continue
		}
		f.pending = append(f.pending, b)
	}
	usable := len(f.pending) - len(f.pending)%4
	if usable > 0 {
		out := make([]byte, base64.StdEncoding.DecodedLen(usable))
		n, err := base64.StdEncoding.Decode(out, f.pending[:usable])
		if err != nil {
			return 0, errAt(f.index, "invalid base64: %v", err)
		}
		if err := WriteAll(f.next, out[:n]); err != nil {
			return 0, err
		}
		f.pending = append([]byte(nil), f.pending[usable:]...)
	}
	return consumed, nil
}

func (f *Base64Decode) End() error {
	if f.hasEnded() {
		return nil
	}
	if len(f.pending) > 0 {
		out := make([]byte, base64.StdEncoding.DecodedLen(len(f.pending)))
		n, err := base64.StdEncoding.Decode(out, f.pending)
		if err != nil {
			return errAt(f.index, "invalid base64 at end: %v", err)
		}
		if err := WriteAll(f.next, out[:n]); err != nil {
			return err
		}
		f.pending = nil
	}
	f.markEnded()
	return f.next.End()
}

// HexEncode encodes its input as lower-case hexadecimal.
type HexEncode struct {
	baseModule
}

func NewHexEncode() *HexEncode { return &HexEncode{} }

func (f *HexEncode) Write(p []byte) (int, error) {
	if f.hasEnded() {
		return 0, errAt(f.index, "write after end")
	}
	out := make([]byte, hex.EncodedLen(len(p)))
	hex.Encode(out, p)
	if err := WriteAll(f.next, out); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (f *HexEncode) End() error {
	if f.hasEnded() {
		return nil
	}
	f.markEnded()
	return f.next.End()
}

// HexDecode decodes hexadecimal input. An odd total length is rejected at
// End, since the last nibble can only be known once input is exhausted.
type HexDecode struct {
	baseModule
	pending []byte
}

func NewHexDecode() *HexDecode { return &HexDecode{} }

func (f *HexDecode) Write(p []byte) (int, error) {
	if f.hasEnded() {
		return 0, errAt(f.index, "write after end")
	}
	consumed := len(p)
	f.pending = append(f.pending, p...)
	usable := len(f.pending) - len(f.pending)%2
	if usable > 0 {
		out := make([]byte, hex.DecodedLen(usable))
		n, err := hex.Decode(out, f.pending[:usable])
		if err != nil {
			return 0, errAt(f.index, "invalid hex: %v", err)
		}
		if err := WriteAll(f.next, out[:n]); err != nil {
			return 0, err
		}
		f.pending = append([]byte(nil), f.pending[usable:]...)
	}
	return consumed, nil
}

func (f *HexDecode) End() error {
	if f.hasEnded() {
		return nil
	}
	if len(f.pending) > 0 {
		return errAt(f.index, "odd-length hex input")
	}
	f.markEnded()
	return f.next.End()
}

// StripSpace removes ASCII whitespace (space, tab, CR, LF) from the stream,
// used to normalize PEM-wrapped certificate text before base64 decoding.
type StripSpace struct {
	baseModule
}

func NewStripSpace() *StripSpace { return &StripSpace{} }

func (f *StripSpace) Write(p []byte) (int, error) {
	if f.hasEnded() {
		return 0, errAt(f.index, "write after end")
	}
	out := make([]byte, 0, len(p))
	for _, b := range p {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			out = append(out, b)
		}
	}
	if len(out) > 0 {
		if err := WriteAll(f.next, out); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

func (f *StripSpace) End() error {
	if f.hasEnded() {
		return nil
	}
	f.markEnded()
	return f.next.End()
}
