package ndn

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

// WireCodec is the external collaborator this package assumes: it knows how
// to turn Interest/Data values into NDN TLV bytes and back, and how to carve
// out the exact byte range a signature covers. Production deployments wire
// in a real TLV implementation; NativeCodec below is a deterministic
// stand-in used by this module's own tests and by callers that only need
// self-consistent round-tripping (e.g. the in-memory Face in package face).
type WireCodec interface {
	EncodeData(d *Data) ([]byte, error)
	DecodeData(b []byte) (*Data, error)
	SignedPortionOfData(d *Data) ([]byte, error)

	EncodeInterest(i *Interest) ([]byte, error)
	DecodeInterest(b []byte) (*Interest, error)
	// SignedPortionOfInterest returns the v0.3 packet-level signed range
	// (InterestSignatureInfo included, InterestSignatureValue excluded).
	SignedPortionOfInterest(i *Interest) ([]byte, error)

	// EncodeNameComponent serializes a single name component the same way
	// it would appear embedded in a full name, for callers building a
	// signed byte range out of a subset of a name's components (the v0.2
	// signed-Interest convention).
	EncodeNameComponent(c Component) []byte
	// EncodeSignatureInfoComponent serializes a SignatureInfo and wraps it
	// as a generic component, the way the v0.2 convention embeds it as a
	// trailing name component rather than a packet field.
	EncodeSignatureInfoComponent(si SignatureInfo) Component
	// DecodeSignatureInfoComponent reverses EncodeSignatureInfoComponent.
	DecodeSignatureInfoComponent(c Component) (SignatureInfo, error)
}

// NativeCodec is a deterministic, length-prefixed binary codec. It is not
// NDN-TLV-compatible wire format; it exists so the security stack can be
// exercised end-to-end (sign, serialize, transmit over an in-memory Face,
// deserialize, verify) without a third-party TLV dependency.
type NativeCodec struct{}

func NewNativeCodec() *NativeCodec { return &NativeCodec{} }

func putBytes(buf *bytes.Buffer, b []byte) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	buf.Write(lenBuf[:])
	buf.Write(b)
}

func getBytes(r *bytes.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := r.Read(lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	b := make([]byte, n)
	if n > 0 {
		if _, err := r.Read(b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func encodeName(buf *bytes.Buffer, n Name) {
	comps := n.Components()
	var cntBuf [4]byte
	binary.BigEndian.PutUint32(cntBuf[:], uint32(len(comps)))
	buf.Write(cntBuf[:])
	for _, c := range comps {
		buf.WriteByte(byte(c.Type))
		putBytes(buf, c.Bytes)
	}
}

func decodeName(r *bytes.Reader) (Name, error) {
	var cntBuf [4]byte
	if _, err := r.Read(cntBuf[:]); err != nil {
		return Name{}, err
	}
	cnt := binary.BigEndian.Uint32(cntBuf[:])
	comps := make([]Component, 0, cnt)
	for i := uint32(0); i < cnt; i++ {
		typByte, err := r.ReadByte()
		if err != nil {
			return Name{}, err
		}
		b, err := getBytes(r)
		if err != nil {
			return Name{}, err
		}
		comps = append(comps, Component{Type: ComponentType(typByte), Bytes: b})
	}
	return NewName(comps...), nil
}

func encodeSignatureInfo(buf *bytes.Buffer, si SignatureInfo) {
	buf.WriteByte(byte(si.Type))
	if si.KeyLocator != nil {
		buf.WriteByte(1)
		buf.WriteByte(byte(si.KeyLocator.Type))
		encodeName(buf, si.KeyLocator.Name)
		putBytes(buf, si.KeyLocator.Digest)
	} else {
		buf.WriteByte(0)
	}
	if si.ValidityPeriod != nil {
		buf.WriteByte(1)
		putTime(buf, si.ValidityPeriod.NotBefore)
		putTime(buf, si.ValidityPeriod.NotAfter)
	} else {
		buf.WriteByte(0)
	}
	if si.Time != nil {
		buf.WriteByte(1)
		putTime(buf, *si.Time)
	} else {
		buf.WriteByte(0)
	}
	if si.SeqNum != nil {
		buf.WriteByte(1)
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], *si.SeqNum)
		buf.Write(b[:])
	} else {
		buf.WriteByte(0)
	}
	putBytes(buf, si.Nonce)
	var cBuf [4]byte
	binary.BigEndian.PutUint32(cBuf[:], uint32(len(si.Custom)))
	buf.Write(cBuf[:])
	for _, c := range si.Custom {
		var tBuf [8]byte
		binary.BigEndian.PutUint64(tBuf[:], c.Type)
		buf.Write(tBuf[:])
		putBytes(buf, c.Value)
	}
}

func decodeSignatureInfo(r *bytes.Reader) (SignatureInfo, error) {
	var si SignatureInfo
	typByte, err := r.ReadByte()
	if err != nil {
		return si, err
	}
	si.Type = SignatureType(typByte)

	hasLoc, err := r.ReadByte()
	if err != nil {
		return si, err
	}
	if hasLoc == 1 {
		klTypeByte, err := r.ReadByte()
		if err != nil {
			return si, err
		}
		name, err := decodeName(r)
		if err != nil {
			return si, err
		}
		digest, err := getBytes(r)
		if err != nil {
			return si, err
		}
		si.KeyLocator = &KeyLocator{Type: KeyLocatorType(klTypeByte), Name: name, Digest: digest}
	}

	hasVP, err := r.ReadByte()
	if err != nil {
		return si, err
	}
	if hasVP == 1 {
		nb, err := getTime(r)
		if err != nil {
			return si, err
		}
		na, err := getTime(r)
		if err != nil {
			return si, err
		}
		si.ValidityPeriod = &ValidityPeriod{NotBefore: nb, NotAfter: na}
	}

	hasTime, err := r.ReadByte()
	if err != nil {
		return si, err
	}
	if hasTime == 1 {
		t, err := getTime(r)
		if err != nil {
			return si, err
		}
		si.Time = &t
	}

	hasSeq, err := r.ReadByte()
	if err != nil {
		return si, err
	}
	if hasSeq == 1 {
		var b [8]byte
		if _, err := r.Read(b[:]); err != nil {
			return si, err
		}
		seq := binary.BigEndian.Uint64(b[:])
		si.SeqNum = &seq
	}

	nonce, err := getBytes(r)
	if err != nil {
		return si, err
	}
	si.Nonce = nonce

	var cBuf [4]byte
	if _, err := r.Read(cBuf[:]); err != nil {
		return si, err
	}
	cnt := binary.BigEndian.Uint32(cBuf[:])
	si.Custom = make([]CustomTLV, 0, cnt)
	for i := uint32(0); i < cnt; i++ {
		var tBuf [8]byte
		if _, err := r.Read(tBuf[:]); err != nil {
			return si, err
		}
		val, err := getBytes(r)
		if err != nil {
			return si, err
		}
		si.Custom = append(si.Custom, CustomTLV{Type: binary.BigEndian.Uint64(tBuf[:]), Value: val})
	}
	return si, nil
}

func putTime(buf *bytes.Buffer, t time.Time) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(t.UnixMilli()))
	buf.Write(b[:])
}

func getTime(r *bytes.Reader) (time.Time, error) {
	var b [8]byte
	if _, err := r.Read(b[:]); err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(int64(binary.BigEndian.Uint64(b[:]))).UTC(), nil
}

// EncodeData serializes a Data packet.
func (c *NativeCodec) EncodeData(d *Data) ([]byte, error) {
	var buf bytes.Buffer
	signed, err := c.signedPortionOfDataBuf(d)
	if err != nil {
		return nil, err
	}
	buf.Write(signed)
	putBytes(&buf, d.SignatureValue)
	return buf.Bytes(), nil
}

func (c *NativeCodec) signedPortionOfDataBuf(d *Data) ([]byte, error) {
	var buf bytes.Buffer
	encodeName(&buf, d.Name)
	buf.WriteByte(byte(d.ContentType))
	var fp [8]byte
	binary.BigEndian.PutUint64(fp[:], uint64(d.FreshnessPeriod))
	buf.Write(fp[:])
	if d.FinalBlockID != nil {
		buf.WriteByte(1)
		buf.WriteByte(byte(d.FinalBlockID.Type))
		putBytes(&buf, d.FinalBlockID.Bytes)
	} else {
		buf.WriteByte(0)
	}
	putBytes(&buf, d.Content)
	encodeSignatureInfo(&buf, d.SignatureInfo)
	return buf.Bytes(), nil
}

// SignedPortionOfData returns the signed byte range of a Data packet.
func (c *NativeCodec) SignedPortionOfData(d *Data) ([]byte, error) {
	return c.signedPortionOfDataBuf(d)
}

// DecodeData reverses EncodeData.
func (c *NativeCodec) DecodeData(b []byte) (*Data, error) {
	r := bytes.NewReader(b)
	name, err := decodeName(r)
	if err != nil {
		return nil, fmt.Errorf("decode data name: %w", err)
	}
	ctByte, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	var fpBuf [8]byte
	if _, err := r.Read(fpBuf[:]); err != nil {
		return nil, err
	}
	hasFB, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	var fb *Component
	if hasFB == 1 {
		fbType, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		fbBytes, err := getBytes(r)
		if err != nil {
			return nil, err
		}
		fb = &Component{Type: ComponentType(fbType), Bytes: fbBytes}
	}
	content, err := getBytes(r)
	if err != nil {
		return nil, err
	}
	si, err := decodeSignatureInfo(r)
	if err != nil {
		return nil, fmt.Errorf("decode data sig info: %w", err)
	}
	sv, err := getBytes(r)
	if err != nil {
		return nil, err
	}
	return &Data{
		Name:            name,
		ContentType:     ContentType(ctByte),
		FreshnessPeriod: time.Duration(binary.BigEndian.Uint64(fpBuf[:])),
		FinalBlockID:    fb,
		Content:         content,
		SignatureInfo:   si,
		SignatureValue:  sv,
	}, nil
}

// EncodeInterest serializes an Interest, signed or not.
func (c *NativeCodec) EncodeInterest(i *Interest) ([]byte, error) {
	var buf bytes.Buffer
	signed, err := c.signedPortionOfInterestBuf(i)
	if err != nil {
		return nil, err
	}
	buf.Write(signed)
	putBytes(&buf, i.SignatureValue)
	return buf.Bytes(), nil
}

func (c *NativeCodec) signedPortionOfInterestBuf(i *Interest) ([]byte, error) {
	var buf bytes.Buffer
	encodeName(&buf, i.Name)
	putBytes(&buf, i.ApplicationParameters)
	var nonceBuf [4]byte
	binary.BigEndian.PutUint32(nonceBuf[:], i.Nonce)
	buf.Write(nonceBuf[:])
	var lifeBuf [8]byte
	binary.BigEndian.PutUint64(lifeBuf[:], uint64(i.Lifetime))
	buf.Write(lifeBuf[:])
	if i.SignatureInfo != nil {
		buf.WriteByte(1)
		encodeSignatureInfo(&buf, *i.SignatureInfo)
	} else {
		buf.WriteByte(0)
	}
	return buf.Bytes(), nil
}

// SignedPortionOfInterest returns the v0.3 signed byte range, including
// InterestSignatureInfo and excluding InterestSignatureValue.
func (c *NativeCodec) SignedPortionOfInterest(i *Interest) ([]byte, error) {
	return c.signedPortionOfInterestBuf(i)
}

// EncodeNameComponent serializes comp the same way encodeName embeds a
// component in a full name.
func (c *NativeCodec) EncodeNameComponent(comp Component) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(comp.Type))
	putBytes(&buf, comp.Bytes)
	return buf.Bytes()
}

// EncodeSignatureInfoComponent serializes si and wraps it as a generic
// component, for the v0.2 signed-Interest convention of carrying
// SignatureInfo as a trailing name component.
func (c *NativeCodec) EncodeSignatureInfoComponent(si SignatureInfo) Component {
	var buf bytes.Buffer
	encodeSignatureInfo(&buf, si)
	return NewGenericComponent(buf.Bytes())
}

// DecodeSignatureInfoComponent reverses EncodeSignatureInfoComponent.
func (c *NativeCodec) DecodeSignatureInfoComponent(comp Component) (SignatureInfo, error) {
	r := bytes.NewReader(comp.Bytes)
	return decodeSignatureInfo(r)
}

// DecodeInterest reverses EncodeInterest.
func (c *NativeCodec) DecodeInterest(b []byte) (*Interest, error) {
	r := bytes.NewReader(b)
	name, err := decodeName(r)
	if err != nil {
		return nil, err
	}
	params, err := getBytes(r)
	if err != nil {
		return nil, err
	}
	var nonceBuf [4]byte
	if _, err := r.Read(nonceBuf[:]); err != nil {
		return nil, err
	}
	var lifeBuf [8]byte
	if _, err := r.Read(lifeBuf[:]); err != nil {
		return nil, err
	}
	hasSig, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	var sigInfo *SignatureInfo
	if hasSig == 1 {
		si, err := decodeSignatureInfo(r)
		if err != nil {
			return nil, err
		}
		sigInfo = &si
	}
	sv, err := getBytes(r)
	if err != nil {
		return nil, err
	}
	return &Interest{
		Name:                  name,
		ApplicationParameters: params,
		Nonce:                 binary.BigEndian.Uint32(nonceBuf[:]),
		Lifetime:              time.Duration(binary.BigEndian.Uint64(lifeBuf[:])),
		SignatureInfo:         sigInfo,
		SignatureValue:        sv,
	}, nil
}
