// Package mgmt holds the types shared between the status-dataset segmenter
// and the management dispatcher: the ControlResponse block both a rejected
// Status Dataset and a completed Control Command carry back to the
// requester, and the signing identity used to produce outgoing Data.
package mgmt

import (
	"bytes"
	"encoding/binary"
	"io"

	"ndnsec/pkg/helper/errors"
	"ndnsec/pkg/ndn"
	"ndnsec/pkg/security/keys"
	"ndnsec/pkg/security/signverify"
)

// ControlResponse is the TLV-101 block carried as the content of a Control
// Command reply, and of a Status Dataset rejection: a numeric status code,
// a human-readable status text, and an optional opaque body.
type ControlResponse struct {
	StatusCode uint32
	StatusText string
	Body       []byte
}

// Encode renders r using the same deterministic length-prefixed shape
// ndn.NativeCodec uses elsewhere in this module; it is not real NDN TLV,
// just a self-consistent stand-in for the out-of-scope wire format.
func (r ControlResponse) Encode() []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, r.StatusCode)
	writeLP(&buf, []byte(r.StatusText))
	writeLP(&buf, r.Body)
	return buf.Bytes()
}

// DecodeControlResponse parses the output of Encode.
func DecodeControlResponse(b []byte) (ControlResponse, error) {
	r := bytes.NewReader(b)
	var r0 ControlResponse
	if err := binary.Read(r, binary.BigEndian, &r0.StatusCode); err != nil {
		return ControlResponse{}, errors.Wrap(err, "read control response status code")
	}
	text, err := readLP(r)
	if err != nil {
		return ControlResponse{}, errors.Wrap(err, "read control response status text")
	}
	r0.StatusText = string(text)
	body, err := readLP(r)
	if err != nil {
		return ControlResponse{}, errors.Wrap(err, "read control response body")
	}
	r0.Body = body
	return r0, nil
}

func writeLP(buf *bytes.Buffer, data []byte) {
	binary.Write(buf, binary.BigEndian, uint32(len(data)))
	buf.Write(data)
}

func readLP(r *bytes.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SigningInfo names the key and certificate a dispatcher or dataset
// segmenter signs its outgoing Data with.
type SigningInfo struct {
	Key      *keys.PrivateKey
	CertName ndn.Name
}

// Sign signs d with the configured key, setting a Name key locator to
// CertName.
func (s SigningInfo) Sign(d ndn.Data) (ndn.Data, error) {
	if s.Key == nil {
		return ndn.Data{}, errors.InvalidInputf("signing info has no key configured")
	}
	d.SignatureInfo.KeyLocator = &ndn.KeyLocator{Type: ndn.KeyLocatorName, Name: s.CertName}
	return signverify.SignData(d, s.Key)
}
