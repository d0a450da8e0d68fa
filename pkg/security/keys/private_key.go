package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/asn1"
	"encoding/binary"
	"math/big"

	"golang.org/x/crypto/pbkdf2"

	"ndnsec/pkg/helper/errors"
	"ndnsec/pkg/security/transform"
)

// PrivateKey holds exactly one of {RSA, EC, HMAC}, matching the spec's
// PrivateKey sum type. It implements transform.Signer so it can be plugged
// directly into a signer-filter chain.
type PrivateKey struct {
	keyType KeyType
	rsaKey  *rsa.PrivateKey
	ecKey   *ecdsa.PrivateKey
	hmacKey []byte
}

// NewPrivateKey returns an empty PrivateKey ready to have a key loaded or
// generated into it. Loading twice into the same PrivateKey fails, matching
// ndn-cxx's "fail if key already loaded" contract.
func NewPrivateKey() *PrivateKey {
	return &PrivateKey{}
}

func (k *PrivateKey) loaded() bool {
	return k.keyType != KeyTypeNone
}

// GetKeyType reports which family this key belongs to.
func (k *PrivateKey) GetKeyType() KeyType { return k.keyType }

// GetKeySize returns modulus bits for RSA, curve bits for EC, key bits for
// HMAC.
func (k *PrivateKey) GetKeySize() (int, error) {
	switch k.keyType {
	case KeyTypeRSA:
		return k.rsaKey.N.BitLen(), nil
	case KeyTypeEC:
		return k.ecKey.Curve.Params().BitSize, nil
	case KeyTypeHMAC:
		return len(k.hmacKey) * 8, nil
	default:
		return 0, errors.InvalidInputf("no key loaded")
	}
}

// GeneratePrivateKey creates a fresh key per params.
func GeneratePrivateKey(params KeyParams) (*PrivateKey, error) {
	switch params.Type {
	case KeyTypeRSA:
		if params.RSABits < 2048 {
			return nil, errors.InvalidInputf("RSA key size %d below minimum 2048", params.RSABits)
		}
		priv, err := rsa.GenerateKey(rand.Reader, params.RSABits)
		if err != nil {
			return nil, errors.Wrap(err, "generate RSA key")
		}
		return &PrivateKey{keyType: KeyTypeRSA, rsaKey: priv}, nil

	case KeyTypeEC:
		curve, err := ecCurveForBits(params.ECBits)
		if err != nil {
			return nil, err
		}
		priv, err := ecdsa.GenerateKey(curve, rand.Reader)
		if err != nil {
			return nil, errors.Wrap(err, "generate EC key")
		}
		return &PrivateKey{keyType: KeyTypeEC, ecKey: priv}, nil

	case KeyTypeHMAC:
		if params.HMACBits <= 0 || params.HMACBits%8 != 0 {
			return nil, errors.InvalidInputf("HMAC key size %d must be a positive multiple of 8", params.HMACBits)
		}
		buf := make([]byte, params.HMACBits/8)
		if _, err := rand.Read(buf); err != nil {
			return nil, errors.Wrap(err, "generate HMAC key")
		}
		return &PrivateKey{keyType: KeyTypeHMAC, hmacKey: buf}, nil

	default:
		return nil, errors.InvalidInputf("unsupported key params")
	}
}

func ecCurveForBits(bits int) (elliptic.Curve, error) {
	switch bits {
	case 224:
		return elliptic.P224(), nil
	case 256:
		return elliptic.P256(), nil
	case 384:
		return elliptic.P384(), nil
	case 521:
		return elliptic.P521(), nil
	default:
		return nil, errors.InvalidInputf("unsupported EC curve size %d", bits)
	}
}

// LoadPkcs1 parses a plain (unencrypted) PKCS#1 or PKCS#8 DER private key.
// ndn-cxx's PrivateKey::loadPkcs1 accepts either encoding in practice since
// OpenSSL's d2i_AutoPrivateKey does; this mirrors that.
func (k *PrivateKey) LoadPkcs1(der []byte) error {
	if k.loaded() {
		return errors.InvalidInputf("private key already loaded")
	}
	if rsaKey, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		k.keyType, k.rsaKey = KeyTypeRSA, rsaKey
		return nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		if ec, eerr := x509.ParseECPrivateKey(der); eerr == nil {
			k.keyType, k.ecKey = KeyTypeEC, ec
			return nil
		}
		return errors.Wrap(err, "parse PKCS#1/PKCS#8 DER")
	}
	switch key := parsed.(type) {
	case *rsa.PrivateKey:
		k.keyType, k.rsaKey = KeyTypeRSA, key
	case *ecdsa.PrivateKey:
		k.keyType, k.ecKey = KeyTypeEC, key
	default:
		return errors.InvalidInputf("unsupported PKCS#8 key type %T", key)
	}
	return nil
}

// LoadPkcs1Base64 base64-decodes then loads.
func (k *PrivateKey) LoadPkcs1Base64(b64 []byte) error {
	der, err := base64Decode(b64)
	if err != nil {
		return errors.Wrap(err, "base64 decode PKCS#1")
	}
	return k.LoadPkcs1(der)
}

// LoadRaw loads an HMAC key directly from raw bytes. It is an error to use
// this for RSA/EC.
func (k *PrivateKey) LoadRaw(t KeyType, raw []byte) error {
	if k.loaded() {
		return errors.InvalidInputf("private key already loaded")
	}
	if t != KeyTypeHMAC {
		return errors.InvalidInputf("LoadRaw only supports HMAC keys")
	}
	k.keyType = KeyTypeHMAC
	k.hmacKey = append([]byte(nil), raw...)
	return nil
}

// SavePkcs1 emits plain PKCS#1 DER for RSA keys and SEC1 DER
// (x509.MarshalECPrivateKey) for EC keys, since Go has no PKCS#1 form for
// ECDSA; HMAC keys are rejected.
func (k *PrivateKey) SavePkcs1() ([]byte, error) {
	switch k.keyType {
	case KeyTypeRSA:
		return x509.MarshalPKCS1PrivateKey(k.rsaKey), nil
	case KeyTypeEC:
		return x509.MarshalECPrivateKey(k.ecKey)
	default:
		return nil, errors.InvalidInputf("SavePkcs1 requires an RSA or EC key")
	}
}

// SavePkcs1Base64 is SavePkcs1 followed by base64 encoding.
func (k *PrivateKey) SavePkcs1Base64() ([]byte, error) {
	der, err := k.SavePkcs1()
	if err != nil {
		return nil, err
	}
	return base64Encode(der)
}

// SavePkcs8 emits plain (unencrypted) PKCS#8 DER.
func (k *PrivateKey) SavePkcs8() ([]byte, error) {
	var key crypto.Signer
	switch k.keyType {
	case KeyTypeRSA:
		key = k.rsaKey
	case KeyTypeEC:
		key = k.ecKey
	default:
		return nil, errors.InvalidInputf("SavePkcs8 requires an RSA or EC key")
	}
	return x509.MarshalPKCS8PrivateKey(key)
}

// encryptedPkcs8Envelope is a simplified stand-in for RFC 5958's
// EncryptedPrivateKeyInfo: PBKDF2-SHA256 key derivation feeding AES-256-CBC
// via package transform, exactly satisfying the spec's one hard constraint
// ("PKCS#8 encryption uses AES-256-CBC") without requiring a full ASN.1
// AlgorithmIdentifier zoo for PBES2/PBKDF2 parameters.
type encryptedPkcs8Envelope struct {
	Salt       []byte
	Iterations uint32
	IV         []byte
	Ciphertext []byte
}

const pkcs8KDFIterations = 200000

func deriveAES256Key(password, salt []byte, iterations int) []byte {
	return pbkdf2.Key(password, salt, iterations, 32, sha256.New)
}

func marshalEnvelope(e encryptedPkcs8Envelope) []byte {
	var buf []byte
	buf = appendLP(buf, e.Salt)
	var itBuf [4]byte
	binary.BigEndian.PutUint32(itBuf[:], e.Iterations)
	buf = append(buf, itBuf[:]...)
	buf = appendLP(buf, e.IV)
	buf = appendLP(buf, e.Ciphertext)
	return buf
}

func unmarshalEnvelope(data []byte) (encryptedPkcs8Envelope, error) {
	var e encryptedPkcs8Envelope
	salt, rest, ok := readLP(data)
	if !ok || len(rest) < 4 {
		return e, errors.InvalidInputf("malformed encrypted PKCS#8 envelope")
	}
	e.Salt = salt
	e.Iterations = binary.BigEndian.Uint32(rest[:4])
	rest = rest[4:]
	iv, rest, ok := readLP(rest)
	if !ok {
		return e, errors.InvalidInputf("malformed encrypted PKCS#8 envelope")
	}
	e.IV = iv
	ct, _, ok := readLP(rest)
	if !ok {
		return e, errors.InvalidInputf("malformed encrypted PKCS#8 envelope")
	}
	e.Ciphertext = ct
	return e, nil
}

func appendLP(buf, data []byte) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, data...)
}

func readLP(buf []byte) ([]byte, []byte, bool) {
	if len(buf) < 4 {
		return nil, nil, false
	}
	n := binary.BigEndian.Uint32(buf[:4])
	buf = buf[4:]
	if uint32(len(buf)) < n {
		return nil, nil, false
	}
	return buf[:n], buf[n:], true
}

// SavePkcs8Encrypted wraps SavePkcs8's DER in an AES-256-CBC envelope keyed
// by a PBKDF2-derived key from password.
func (k *PrivateKey) SavePkcs8Encrypted(password []byte) ([]byte, error) {
	der, err := k.SavePkcs8()
	if err != nil {
		return nil, err
	}
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, errors.Wrap(err, "generate salt")
	}
	iv := make([]byte, 16)
	if _, err := rand.Read(iv); err != nil {
		return nil, errors.Wrap(err, "generate IV")
	}
	aesKey := deriveAES256Key(password, salt, pkcs8KDFIterations)
	ct, err := transform.EncryptCBC(aesKey, iv, der)
	if err != nil {
		return nil, errors.Wrap(err, "encrypt PKCS#8")
	}
	env := encryptedPkcs8Envelope{Salt: salt, Iterations: pkcs8KDFIterations, IV: iv, Ciphertext: ct}
	return marshalEnvelope(env), nil
}

// PasswordCallback fills buf with the password and returns the number of
// bytes written, mirroring ndn-cxx's C callback shape (buffer + max size).
type PasswordCallback func(buf []byte) int

// LoadPkcs8 loads a password-protected PKCS#8 key produced by
// SavePkcs8Encrypted. An incorrect password surfaces as a decrypt/parse
// failure.
func (k *PrivateKey) LoadPkcs8(envelope []byte, password []byte) error {
	if k.loaded() {
		return errors.InvalidInputf("private key already loaded")
	}
	env, err := unmarshalEnvelope(envelope)
	if err != nil {
		return err
	}
	aesKey := deriveAES256Key(password, env.Salt, int(env.Iterations))
	der, err := transform.DecryptCBC(aesKey, env.IV, env.Ciphertext)
	if err != nil {
		return errors.Wrap(err, "decrypt PKCS#8 (wrong password?)")
	}
	return k.LoadPkcs1(der)
}

// LoadPkcs8WithCallback loads using a PasswordCallback instead of a fixed
// password slice.
func (k *PrivateKey) LoadPkcs8WithCallback(envelope []byte, cb PasswordCallback) error {
	buf := make([]byte, 256)
	n := cb(buf)
	return k.LoadPkcs8(envelope, buf[:n])
}

// DerivePublicKey produces the SubjectPublicKeyInfo DER for this key's
// public half. HMAC keys have no public counterpart.
func (k *PrivateKey) DerivePublicKey() ([]byte, error) {
	switch k.keyType {
	case KeyTypeRSA:
		return x509.MarshalPKIXPublicKey(&k.rsaKey.PublicKey)
	case KeyTypeEC:
		return x509.MarshalPKIXPublicKey(&k.ecKey.PublicKey)
	default:
		return nil, errors.InvalidInputf("HMAC keys have no public key")
	}
}

// ToPublicKey wraps DerivePublicKey as a usable *PublicKey.
func (k *PrivateKey) ToPublicKey() (*PublicKey, error) {
	der, err := k.DerivePublicKey()
	if err != nil {
		return nil, err
	}
	pub := NewPublicKey()
	if err := pub.LoadPkix(der); err != nil {
		return nil, err
	}
	return pub, nil
}

// Decrypt performs RSA-OAEP decryption. EC and HMAC keys cannot decrypt.
func (k *PrivateKey) Decrypt(ciphertext []byte) ([]byte, error) {
	if k.keyType != KeyTypeRSA {
		return nil, errors.InvalidInputf("decrypt requires an RSA key")
	}
	return rsa.DecryptOAEP(sha256.New(), rand.Reader, k.rsaKey, ciphertext, nil)
}

// GetKeyDigest returns the digest of the raw HMAC key material. Only valid
// for HMAC keys.
func (k *PrivateKey) GetKeyDigest(algo transform.DigestAlgorithm) ([]byte, error) {
	if k.keyType != KeyTypeHMAC {
		return nil, errors.InvalidInputf("GetKeyDigest requires an HMAC key")
	}
	return transform.Digest(algo, k.hmacKey)
}

// Sign implements transform.Signer: it signs a pre-computed digest with
// this key's algorithm. RSA uses PKCS#1v1.5, EC uses ECDSA (ASN.1 DER
// signature), HMAC uses HMAC-SHA256 directly over the "digest" input (in
// which case callers should feed the message itself, not a hash of it, to
// stay compatible with how ndn-cxx treats HMAC as a MAC rather than a
// signature-over-digest scheme).
func (k *PrivateKey) Sign(digest []byte) ([]byte, error) {
	switch k.keyType {
	case KeyTypeRSA:
		return rsa.SignPKCS1v15(rand.Reader, k.rsaKey, crypto.SHA256, digest)
	case KeyTypeEC:
		return ecdsaSignASN1(k.ecKey, digest)
	case KeyTypeHMAC:
		return transform.HMACSign(k.hmacKey, digest)
	default:
		return nil, errors.InvalidInputf("no key loaded")
	}
}

func ecdsaSignASN1(key *ecdsa.PrivateKey, digest []byte) ([]byte, error) {
	r, s, err := ecdsa.Sign(rand.Reader, key, digest)
	if err != nil {
		return nil, err
	}
	return asn1.Marshal(struct{ R, S *big.Int }{r, s})
}

func base64Decode(b64 []byte) ([]byte, error) {
	sink := transform.NewBufferSink()
	if err := transform.From(transform.NewBufferSource(b64)).Then(transform.NewBase64Decode()).To(sink); err != nil {
		return nil, err
	}
	return sink.Bytes(), nil
}

func base64Encode(der []byte) ([]byte, error) {
	sink := transform.NewBufferSink()
	if err := transform.From(transform.NewBufferSource(der)).Then(transform.NewBase64Encode(true)).To(sink); err != nil {
		return nil, err
	}
	return sink.Bytes(), nil
}
