package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ndnsec/pkg/security/transform"
)

func TestRSAGenerateSignVerifyRoundTrip(t *testing.T) {
	priv, err := GeneratePrivateKey(RSAParams(2048))
	require.NoError(t, err)

	pub, err := priv.ToPublicKey()
	require.NoError(t, err)

	digest, err := transform.Digest(transform.Sha256, []byte("hello NDN"))
	require.NoError(t, err)

	sig, err := priv.Sign(digest)
	require.NoError(t, err)

	ok, err := pub.Verify(digest, sig)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = pub.Verify(digest, append(append([]byte{}, sig...), 0xFF))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestECGenerateSignVerifyRoundTrip(t *testing.T) {
	for _, bits := range []int{224, 256, 384, 521} {
		priv, err := GeneratePrivateKey(ECParams(bits))
		require.NoError(t, err)
		pub, err := priv.ToPublicKey()
		require.NoError(t, err)

		digest, err := transform.Digest(transform.Sha256, []byte("hello NDN"))
		require.NoError(t, err)
		sig, err := priv.Sign(digest)
		require.NoError(t, err)
		ok, err := pub.Verify(digest, sig)
		require.NoError(t, err)
		assert.True(t, ok, "curve bits=%d", bits)
	}
}

func TestRSAMinimumKeySizeEnforced(t *testing.T) {
	_, err := GeneratePrivateKey(RSAParams(1024))
	require.Error(t, err)
}

func TestUnsupportedECCurveRejected(t *testing.T) {
	_, err := GeneratePrivateKey(ECParams(512))
	require.Error(t, err)
}

func TestHMACGenerateSignVerify(t *testing.T) {
	priv, err := GeneratePrivateKey(HMACParams(256))
	require.NoError(t, err)
	assert.Equal(t, KeyTypeHMAC, priv.GetKeyType())

	sig, err := priv.Sign([]byte("message"))
	require.NoError(t, err)

	expected, err := transform.HMACSign(priv.hmacKey, []byte("message"))
	require.NoError(t, err)
	assert.Equal(t, expected, sig)

	_, err = priv.DerivePublicKey()
	require.Error(t, err, "HMAC keys have no public half")
}

func TestHMACKeySizeMustBeMultipleOfEight(t *testing.T) {
	_, err := GeneratePrivateKey(HMACParams(10))
	require.Error(t, err)
}

func TestPkcs1RoundTrip(t *testing.T) {
	priv, err := GeneratePrivateKey(RSAParams(2048))
	require.NoError(t, err)

	der, err := priv.SavePkcs1()
	require.NoError(t, err)

	reloaded := NewPrivateKey()
	require.NoError(t, reloaded.LoadPkcs1(der))
	assert.Equal(t, KeyTypeRSA, reloaded.GetKeyType())

	// Loading twice into the same key must fail.
	require.Error(t, reloaded.LoadPkcs1(der))
}

func TestPkcs8EncryptedRoundTrip(t *testing.T) {
	priv, err := GeneratePrivateKey(RSAParams(2048))
	require.NoError(t, err)

	password := []byte("correct horse battery staple")
	envelope, err := priv.SavePkcs8Encrypted(password)
	require.NoError(t, err)

	reloaded := NewPrivateKey()
	require.NoError(t, reloaded.LoadPkcs8(envelope, password))
	assert.Equal(t, KeyTypeRSA, reloaded.GetKeyType())

	wrongKey := NewPrivateKey()
	err = wrongKey.LoadPkcs8(envelope, []byte("wrong password"))
	require.Error(t, err)
}

func TestRSAOAEPEncryptDecrypt(t *testing.T) {
	priv, err := GeneratePrivateKey(RSAParams(2048))
	require.NoError(t, err)
	pub, err := priv.ToPublicKey()
	require.NoError(t, err)

	plaintext := []byte("top secret dataset contents")
	ct, err := pub.Encrypt(plaintext)
	require.NoError(t, err)

	pt, err := priv.Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, plaintext, pt)
}

func TestECCannotEncryptOrDecrypt(t *testing.T) {
	priv, err := GeneratePrivateKey(ECParams(256))
	require.NoError(t, err)
	_, err = priv.Decrypt([]byte("x"))
	require.Error(t, err)

	pub, err := priv.ToPublicKey()
	require.NoError(t, err)
	_, err = pub.Encrypt([]byte("x"))
	require.Error(t, err)
}
