// Package keys implements the private/public key abstractions used by the
// signing and validation stacks: PKCS#1/PKCS#8 load and save (plain and
// password-encrypted), public-key derivation, RSA-OAEP encrypt/decrypt, and
// key generation for RSA, EC and HMAC. The actual digest/signature/cipher
// math is delegated to package transform so both subsystems share one
// crypto pipeline, per the design.
package keys

// KeyType identifies which asymmetric/symmetric family a key belongs to.
type KeyType uint8

const (
	KeyTypeNone KeyType = iota
	KeyTypeRSA
	KeyTypeEC
	KeyTypeHMAC
)

func (t KeyType) String() string {
	switch t {
	case KeyTypeRSA:
		return "RSA"
	case KeyTypeEC:
		return "EC"
	case KeyTypeHMAC:
		return "HMAC"
	default:
		return "None"
	}
}

// KeyParams is the sum type accepted by GeneratePrivateKey: exactly one of
// RSA/EC/HMAC describes the key to create.
type KeyParams struct {
	Type KeyType

	// RSA: modulus size in bits, must be >= 2048.
	RSABits int

	// EC: curve size in bits, must be one of 224/256/384/521. Keys are
	// always generated against a named curve, never a specified curve.
	ECBits int

	// HMAC: key size in bits, must be > 0 and a multiple of 8.
	HMACBits int
}

func RSAParams(bits int) KeyParams  { return KeyParams{Type: KeyTypeRSA, RSABits: bits} }
func ECParams(bits int) KeyParams   { return KeyParams{Type: KeyTypeEC, ECBits: bits} }
func HMACParams(bits int) KeyParams { return KeyParams{Type: KeyTypeHMAC, HMACBits: bits} }
