package signverify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ndnsec/pkg/ndn"
	"ndnsec/pkg/security/keys"
	"ndnsec/pkg/security/transform"
)

func TestSignVerifyDataRSA(t *testing.T) {
	priv, err := keys.GeneratePrivateKey(keys.RSAParams(2048))
	require.NoError(t, err)
	pub, err := priv.ToPublicKey()
	require.NoError(t, err)

	d := ndn.NewData(ndn.ParseName("/a/b/c"), []byte("payload"))
	signed, err := SignData(d, priv)
	require.NoError(t, err)
	assert.Equal(t, ndn.SignatureSha256WithRsa, signed.SignatureInfo.Type)
	assert.NotEmpty(t, signed.SignatureValue)

	ok, err := VerifyData(signed, pub)
	require.NoError(t, err)
	assert.True(t, ok)

	signed.Content = []byte("tampered")
	ok, err = VerifyData(signed, pub)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSignVerifyDataEC(t *testing.T) {
	priv, err := keys.GeneratePrivateKey(keys.ECParams(256))
	require.NoError(t, err)
	pub, err := priv.ToPublicKey()
	require.NoError(t, err)

	d := ndn.NewData(ndn.ParseName("/a/b/c"), []byte("payload"))
	signed, err := SignData(d, priv)
	require.NoError(t, err)

	ok, err := VerifyData(signed, pub)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSignVerifyInterestV03(t *testing.T) {
	priv, err := keys.GeneratePrivateKey(keys.ECParams(256))
	require.NoError(t, err)
	pub, err := priv.ToPublicKey()
	require.NoError(t, err)

	i := ndn.NewInterest(ndn.ParseName("/mgmt/control/cmd"))
	i.SignatureInfo = &ndn.SignatureInfo{
		KeyLocator: &ndn.KeyLocator{Type: ndn.KeyLocatorName, Name: ndn.ParseName("/a/KEY/1")},
	}
	signed, err := SignInterestV03(i, priv)
	require.NoError(t, err)
	assert.True(t, signed.IsSignedV03())

	ok, err := VerifyInterestV03(signed, pub)
	require.NoError(t, err)
	assert.True(t, ok)

	signed.Nonce++
	ok, err = VerifyInterestV03(signed, pub)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHMACSignVerify(t *testing.T) {
	priv, err := keys.GeneratePrivateKey(keys.HMACParams(256))
	require.NoError(t, err)

	d := ndn.NewData(ndn.ParseName("/a/b"), []byte("payload"))
	codec := ndn.NewNativeCodec()
	sigType, err := signatureTypeForKey(priv.GetKeyType())
	require.NoError(t, err)
	d.SignatureInfo.Type = sigType
	signed, err := codec.SignedPortionOfData(&d)
	require.NoError(t, err)
	mac, err := signOverMessage(priv, signed)
	require.NoError(t, err)

	ok, err := VerifyHMAC(priv, signed, mac)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyHMAC(priv, append(signed, 0x00), mac)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyDataDigest(t *testing.T) {
	d := ndn.NewData(ndn.ParseName("/a/b"), []byte("payload"))
	d.SignatureInfo.Type = ndn.SignatureSha256Digest
	codec := ndn.NewNativeCodec()
	signed, err := codec.SignedPortionOfData(&d)
	require.NoError(t, err)
	digest, err := transform.Digest(transform.Sha256, signed)
	require.NoError(t, err)
	d.SignatureValue = digest

	ok, err := VerifyDataDigest(d, codec)
	require.NoError(t, err)
	assert.True(t, ok)
}
