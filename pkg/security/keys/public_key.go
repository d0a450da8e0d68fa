package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/asn1"
	"math/big"

	"ndnsec/pkg/helper/errors"
)

// PublicKey mirrors PrivateKey's load/save surface for the public half of
// an RSA or EC key pair, plus RSA-OAEP encryption. It implements
// transform.Verifier.
type PublicKey struct {
	keyType KeyType
	rsaKey  *rsa.PublicKey
	ecKey   *ecdsa.PublicKey
}

func NewPublicKey() *PublicKey { return &PublicKey{} }

func (k *PublicKey) loaded() bool { return k.keyType != KeyTypeNone }

// GetKeyType reports RSA or EC.
func (k *PublicKey) GetKeyType() KeyType { return k.keyType }

// GetKeySize returns modulus bits for RSA or curve bits for EC.
func (k *PublicKey) GetKeySize() (int, error) {
	switch k.keyType {
	case KeyTypeRSA:
		return k.rsaKey.N.BitLen(), nil
	case KeyTypeEC:
		return k.ecKey.Curve.Params().BitSize, nil
	default:
		return 0, errors.InvalidInputf("no key loaded")
	}
}

// LoadPkix loads a SubjectPublicKeyInfo DER blob (the format Certificate
// content carries, per §3).
func (k *PublicKey) LoadPkix(der []byte) error {
	if k.loaded() {
		return errors.InvalidInputf("public key already loaded")
	}
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return errors.Wrap(err, "parse SubjectPublicKeyInfo")
	}
	switch key := pub.(type) {
	case *rsa.PublicKey:
		k.keyType, k.rsaKey = KeyTypeRSA, key
	case *ecdsa.PublicKey:
		k.keyType, k.ecKey = KeyTypeEC, key
	default:
		return errors.InvalidInputf("unsupported public key type %T", key)
	}
	return nil
}

// LoadPkixBase64 base64-decodes then loads.
func (k *PublicKey) LoadPkixBase64(b64 []byte) error {
	der, err := base64Decode(b64)
	if err != nil {
		return errors.Wrap(err, "base64 decode public key")
	}
	return k.LoadPkix(der)
}

// SavePkix emits SubjectPublicKeyInfo DER.
func (k *PublicKey) SavePkix() ([]byte, error) {
	switch k.keyType {
	case KeyTypeRSA:
		return x509.MarshalPKIXPublicKey(k.rsaKey)
	case KeyTypeEC:
		return x509.MarshalPKIXPublicKey(k.ecKey)
	default:
		return nil, errors.InvalidInputf("no key loaded")
	}
}

// SavePkixBase64 is SavePkix then base64, wrapped at 64 columns (§6).
func (k *PublicKey) SavePkixBase64() ([]byte, error) {
	der, err := k.SavePkix()
	if err != nil {
		return nil, err
	}
	return base64Encode(der)
}

// Encrypt performs RSA-OAEP encryption. EC keys cannot encrypt.
func (k *PublicKey) Encrypt(plaintext []byte) ([]byte, error) {
	if k.keyType != KeyTypeRSA {
		return nil, errors.InvalidInputf("encrypt requires an RSA key")
	}
	return rsa.EncryptOAEP(sha256.New(), rand.Reader, k.rsaKey, plaintext, nil)
}

// Verify implements transform.Verifier: check a signature over a
// pre-computed digest.
func (k *PublicKey) Verify(digest, signature []byte) (bool, error) {
	switch k.keyType {
	case KeyTypeRSA:
		err := rsa.VerifyPKCS1v15(k.rsaKey, crypto.SHA256, digest, signature)
		return err == nil, nil
	case KeyTypeEC:
		var sig struct{ R, S *big.Int }
		if _, err := asn1.Unmarshal(signature, &sig); err != nil {
			return false, nil
		}
		return ecdsa.Verify(k.ecKey, digest, sig.R, sig.S), nil
	default:
		return false, errors.InvalidInputf("no key loaded")
	}
}
