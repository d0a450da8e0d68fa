// Package signverify bridges the packet data model in package ndn with the
// key material in package keys, using package transform for the actual
// digest/sign/verify math. It is the one place that knows how to carve a
// signed portion out of a Data or Interest and feed it through a Signer or
// Verifier.
package signverify

import (
	"ndnsec/pkg/helper/errors"
	"ndnsec/pkg/ndn"
	"ndnsec/pkg/security/keys"
	"ndnsec/pkg/security/transform"
)

// defaultCodec is used whenever a caller doesn't supply one; production
// code wires in a real TLV codec, tests use ndn.NativeCodec.
var defaultCodec ndn.WireCodec = ndn.NewNativeCodec()

func signatureTypeForKey(t keys.KeyType) (ndn.SignatureType, error) {
	switch t {
	case keys.KeyTypeRSA:
		return ndn.SignatureSha256WithRsa, nil
	case keys.KeyTypeEC:
		return ndn.SignatureSha256WithEcdsa, nil
	case keys.KeyTypeHMAC:
		return ndn.SignatureHmacWithSha256, nil
	default:
		return ndn.SignatureTypeNone, errors.InvalidInputf("unsupported key type %v for signing", t)
	}
}

// SignData signs a Data packet with priv using the codec's signed-portion
// extraction, setting SignatureInfo.Type to match the key and filling
// SignatureValue. The caller must have already populated every other field
// that participates in the signed portion (Name, ContentType, Content,
// KeyLocator, ValidityPeriod, ...).
func SignData(d ndn.Data, priv *keys.PrivateKey) (ndn.Data, error) {
	return SignDataWithCodec(d, priv, defaultCodec)
}

// SignDataWithCodec is SignData with an explicit WireCodec.
func SignDataWithCodec(d ndn.Data, priv *keys.PrivateKey, codec ndn.WireCodec) (ndn.Data, error) {
	sigType, err := signatureTypeForKey(priv.GetKeyType())
	if err != nil {
		return ndn.Data{}, err
	}
	d.SignatureInfo.Type = sigType

	signed, err := codec.SignedPortionOfData(&d)
	if err != nil {
		return ndn.Data{}, errors.Wrap(err, "extract signed portion")
	}

	sig, err := signOverMessage(priv, signed)
	if err != nil {
		return ndn.Data{}, err
	}
	d.SignatureValue = sig
	return d, nil
}

// VerifyData verifies a Data packet's SignatureValue against pub.
func VerifyData(d ndn.Data, pub *keys.PublicKey) (bool, error) {
	return VerifyDataWithCodec(d, pub, defaultCodec)
}

// VerifyDataWithCodec is VerifyData with an explicit WireCodec.
func VerifyDataWithCodec(d ndn.Data, pub *keys.PublicKey, codec ndn.WireCodec) (bool, error) {
	signed, err := codec.SignedPortionOfData(&d)
	if err != nil {
		return false, errors.Wrap(err, "extract signed portion")
	}
	return verifyOverMessage(d.SignatureInfo.Type, pub, signed, d.SignatureValue)
}

// VerifyDataDigest verifies a Sha256Digest-signed Data packet, which has no
// key at all: the "signature" is simply the SHA-256 digest of the signed
// portion.
func VerifyDataDigest(d ndn.Data, codec ndn.WireCodec) (bool, error) {
	if d.SignatureInfo.Type != ndn.SignatureSha256Digest {
		return false, errors.InvalidInputf("not a Sha256Digest signature")
	}
	signed, err := codec.SignedPortionOfData(&d)
	if err != nil {
		return false, err
	}
	digest, err := transform.Digest(transform.Sha256, signed)
	if err != nil {
		return false, err
	}
	return constantTimeEqual(digest, d.SignatureValue), nil
}

// SignInterestV03 signs an Interest using the packet-level (v0.3)
// InterestSignatureInfo/InterestSignatureValue fields. The caller must set
// Name/ApplicationParameters and a partially-filled SignatureInfo (KeyLocator,
// optionally Time/SeqNum/Nonce for replay protection) before calling.
func SignInterestV03(i ndn.Interest, priv *keys.PrivateKey) (ndn.Interest, error) {
	return SignInterestV03WithCodec(i, priv, defaultCodec)
}

// SignInterestV03WithCodec is SignInterestV03 with an explicit WireCodec.
func SignInterestV03WithCodec(i ndn.Interest, priv *keys.PrivateKey, codec ndn.WireCodec) (ndn.Interest, error) {
	sigType, err := signatureTypeForKey(priv.GetKeyType())
	if err != nil {
		return ndn.Interest{}, err
	}
	if i.SignatureInfo == nil {
		i.SignatureInfo = &ndn.SignatureInfo{}
	}
	i.SignatureInfo.Type = sigType

	signed, err := codec.SignedPortionOfInterest(&i)
	if err != nil {
		return ndn.Interest{}, errors.Wrap(err, "extract signed portion")
	}
	sig, err := signOverMessage(priv, signed)
	if err != nil {
		return ndn.Interest{}, err
	}
	i.SignatureValue = sig
	return i, nil
}

// VerifyInterestV03 verifies a v0.3-signed Interest's SignatureValue.
func VerifyInterestV03(i ndn.Interest, pub *keys.PublicKey) (bool, error) {
	return VerifyInterestV03WithCodec(i, pub, defaultCodec)
}

// VerifyInterestV03WithCodec is VerifyInterestV03 with an explicit WireCodec.
func VerifyInterestV03WithCodec(i ndn.Interest, pub *keys.PublicKey, codec ndn.WireCodec) (bool, error) {
	if !i.IsSignedV03() {
		return false, errors.InvalidInputf("interest carries no v0.3 signature fields")
	}
	signed, err := codec.SignedPortionOfInterest(&i)
	if err != nil {
		return false, errors.Wrap(err, "extract signed portion")
	}
	return verifyOverMessage(i.SignatureInfo.Type, pub, signed, i.SignatureValue)
}

// SignInterestV02 signs an Interest using the legacy (v0.2) command-Interest
// convention: the caller must have already appended a timestamp component
// to i.Name. This appends a nonce component, a SignatureInfo component and
// finally a SignatureValue component, producing the four trailing
// components ndn.Interest.FormatTag recognizes as SignedInterestFormatV02.
func SignInterestV02(i ndn.Interest, priv *keys.PrivateKey, keyLocator ndn.KeyLocator, nonce []byte) (ndn.Interest, error) {
	return SignInterestV02WithCodec(i, priv, keyLocator, nonce, defaultCodec)
}

// SignInterestV02WithCodec is SignInterestV02 with an explicit WireCodec.
func SignInterestV02WithCodec(i ndn.Interest, priv *keys.PrivateKey, keyLocator ndn.KeyLocator, nonce []byte, codec ndn.WireCodec) (ndn.Interest, error) {
	sigType, err := signatureTypeForKey(priv.GetKeyType())
	if err != nil {
		return ndn.Interest{}, err
	}
	locator := keyLocator
	sigInfo := ndn.SignatureInfo{Type: sigType, KeyLocator: &locator}

	i.Name = i.Name.Append(ndn.NewGenericComponent(nonce))
	i.Name = i.Name.Append(codec.EncodeSignatureInfoComponent(sigInfo))

	signed := concatNameComponents(i.Name, codec)
	sig, err := signOverMessage(priv, signed)
	if err != nil {
		return ndn.Interest{}, err
	}
	i.Name = i.Name.Append(ndn.NewGenericComponent(sig))
	return i, nil
}

// VerifyInterestV02 verifies a legacy v0.2 signed Interest, returning the
// SignatureInfo decoded from its trailing name component so callers (the
// validator) can read its KeyLocator without re-parsing the name.
func VerifyInterestV02(i ndn.Interest, pub *keys.PublicKey) (bool, ndn.SignatureInfo, error) {
	return VerifyInterestV02WithCodec(i, pub, defaultCodec)
}

// VerifyInterestV02WithCodec is VerifyInterestV02 with an explicit WireCodec.
func VerifyInterestV02WithCodec(i ndn.Interest, pub *keys.PublicKey, codec ndn.WireCodec) (bool, ndn.SignatureInfo, error) {
	if i.FormatTag() != ndn.SignedInterestFormatV02 {
		return false, ndn.SignatureInfo{}, errors.InvalidInputf("interest carries no v0.2 signature fields")
	}
	n := i.Name.Len()
	sigValueComp := i.Name.At(-1)
	sigInfo, err := codec.DecodeSignatureInfoComponent(i.Name.At(-2))
	if err != nil {
		return false, ndn.SignatureInfo{}, errors.Wrap(err, "decode v0.2 signature info component")
	}

	signed := concatNameComponents(i.Name.GetPrefix(n-1), codec)
	ok, err := verifyOverMessage(sigInfo.Type, pub, signed, sigValueComp.Bytes)
	return ok, sigInfo, err
}

func concatNameComponents(n ndn.Name, codec ndn.WireCodec) []byte {
	var out []byte
	for idx := 0; idx < n.Len(); idx++ {
		out = append(out, codec.EncodeNameComponent(n.At(idx))...)
	}
	return out
}

func signOverMessage(priv *keys.PrivateKey, message []byte) ([]byte, error) {
	switch priv.GetKeyType() {
	case keys.KeyTypeHMAC:
		// HMAC keys sign the message directly (MAC, not digest-then-sign).
		return priv.Sign(message)
	default:
		digest, err := transform.Digest(transform.Sha256, message)
		if err != nil {
			return nil, err
		}
		return priv.Sign(digest)
	}
}

func verifyOverMessage(sigType ndn.SignatureType, pub *keys.PublicKey, message, signature []byte) (bool, error) {
	if sigType == ndn.SignatureHmacWithSha256 {
		return false, errors.InvalidInputf("HMAC verification requires the shared private key, not a PublicKey")
	}
	digest, err := transform.Digest(transform.Sha256, message)
	if err != nil {
		return false, err
	}
	return pub.Verify(digest, signature)
}

// VerifyHMAC verifies an HMAC-signed message (Data or Interest signed
// portion) against the shared symmetric key.
func VerifyHMAC(priv *keys.PrivateKey, message, signature []byte) (bool, error) {
	if priv.GetKeyType() != keys.KeyTypeHMAC {
		return false, errors.InvalidInputf("VerifyHMAC requires an HMAC key")
	}
	expected, err := priv.Sign(message)
	if err != nil {
		return false, err
	}
	return constantTimeEqual(expected, signature), nil
}

func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var v byte
	for i := range a {
		v |= a[i] ^ b[i]
	}
	return v == 0
}
