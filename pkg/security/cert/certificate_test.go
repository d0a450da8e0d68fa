package cert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ndnsec/pkg/ndn"
	"ndnsec/pkg/security/keys"
	"ndnsec/pkg/security/signverify"
)

func makeSelfSignedCert(t *testing.T, identity string) (*Certificate, *keys.PrivateKey) {
	t.Helper()
	priv, err := keys.GeneratePrivateKey(keys.ECParams(256))
	require.NoError(t, err)
	pub, err := priv.ToPublicKey()
	require.NoError(t, err)
	pubDER, err := pub.SavePkix()
	require.NoError(t, err)

	keyName := ndn.ParseName(identity).
		Append(ndn.NewKeywordComponent("KEY")).
		Append(ndn.NewGenericComponent([]byte("keyid-1")))
	certName := keyName.
		Append(ndn.NewGenericComponent([]byte("self"))).
		Append(ndn.NewVersionComponent(1))

	data := ndn.NewData(certName, pubDER)
	data.ContentType = ndn.ContentTypeKey
	data.SignatureInfo = ndn.SignatureInfo{
		Type: ndn.SignatureSha256WithEcdsa,
		KeyLocator: &ndn.KeyLocator{
			Type: ndn.KeyLocatorName,
			Name: keyName,
		},
		ValidityPeriod: &ndn.ValidityPeriod{
			NotBefore: time.Now().Add(-time.Hour),
			NotAfter:  time.Now().Add(time.Hour),
		},
	}

	signed, err := signverify.SignData(data, priv)
	require.NoError(t, err)

	c, err := FromData(signed)
	require.NoError(t, err)
	return c, priv
}

func TestFromDataRejectsMissingKeyComponent(t *testing.T) {
	name := ndn.ParseName("/no/key/component/here")
	data := ndn.NewData(name, []byte("x"))
	data.ContentType = ndn.ContentTypeKey
	data.SignatureInfo.ValidityPeriod = &ndn.ValidityPeriod{NotAfter: time.Now().Add(time.Hour)}
	_, err := FromData(data)
	require.Error(t, err)
}

func TestFromDataRejectsMissingValidityPeriod(t *testing.T) {
	name := ndn.ParseName("/Security/Test").
		Append(ndn.NewKeywordComponent("KEY")).
		Append(ndn.NewGenericComponent([]byte("k1"))).
		Append(ndn.NewGenericComponent([]byte("self"))).
		Append(ndn.NewVersionComponent(1))
	data := ndn.NewData(name, []byte("x"))
	data.ContentType = ndn.ContentTypeKey
	_, err := FromData(data)
	require.Error(t, err)
}

func TestFromDataRejectsWrongContentType(t *testing.T) {
	name := ndn.ParseName("/Security/Test").
		Append(ndn.NewKeywordComponent("KEY")).
		Append(ndn.NewGenericComponent([]byte("k1"))).
		Append(ndn.NewGenericComponent([]byte("self"))).
		Append(ndn.NewVersionComponent(1))
	data := ndn.NewData(name, []byte("x"))
	data.SignatureInfo.ValidityPeriod = &ndn.ValidityPeriod{NotAfter: time.Now().Add(time.Hour)}
	_, err := FromData(data)
	require.Error(t, err)
}

func TestGetKeyNameAndIdentity(t *testing.T) {
	c, _ := makeSelfSignedCert(t, "/Security/ValidatorFixture")
	assert.Equal(t, "/Security/ValidatorFixture/KEY/keyid-1", c.GetKeyName().String())
	assert.Equal(t, "/Security/ValidatorFixture", c.GetIdentity().String())
}

func TestExtractHelpersMatchMethods(t *testing.T) {
	c, _ := makeSelfSignedCert(t, "/Security/ValidatorFixture")
	keyName, err := ExtractKeyNameFromCertName(c.Name())
	require.NoError(t, err)
	assert.True(t, keyName.Equal(c.GetKeyName()))

	identity, err := ExtractIdentityFromCertName(c.Name())
	require.NoError(t, err)
	assert.True(t, identity.Equal(c.GetIdentity()))
}

func TestIsValid(t *testing.T) {
	c, _ := makeSelfSignedCert(t, "/Security/ValidatorFixture")
	assert.True(t, c.IsValid(time.Now()))
	assert.False(t, c.IsValid(time.Now().Add(24*time.Hour)))
	assert.False(t, c.IsValid(time.Now().Add(-24*time.Hour)))
}

func TestIsSelfSigned(t *testing.T) {
	c, _ := makeSelfSignedCert(t, "/Security/ValidatorFixture")
	assert.True(t, c.IsSelfSigned())
}

func TestPublicKeyRoundTrip(t *testing.T) {
	c, priv := makeSelfSignedCert(t, "/Security/ValidatorFixture")
	pub, err := c.PublicKey()
	require.NoError(t, err)
	assert.Equal(t, keys.KeyTypeEC, pub.GetKeyType())

	wantPub, err := priv.ToPublicKey()
	require.NoError(t, err)
	wantDER, err := wantPub.SavePkix()
	require.NoError(t, err)
	gotDER, err := pub.SavePkix()
	require.NoError(t, err)
	assert.Equal(t, wantDER, gotDER)
}

func TestPrintDoesNotPanic(t *testing.T) {
	c, _ := makeSelfSignedCert(t, "/Security/ValidatorFixture")
	s := c.Print()
	assert.Contains(t, s, c.Name().String())
	assert.Contains(t, s, "Self-signed: true")
}
