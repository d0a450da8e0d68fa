package validatorconfig

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ndnsec/pkg/ndn"
	"ndnsec/pkg/security/keys"
	"ndnsec/pkg/security/policy"
	"ndnsec/pkg/security/signverify"
)

// selfSignedCertBytes builds a minimal self-signed certificate and returns
// its NativeCodec-encoded wire bytes, for exercising the file/base64 trust
// anchor loading paths.
func selfSignedCertBytes(t *testing.T) []byte {
	t.Helper()
	priv, err := keys.GeneratePrivateKey(keys.ECParams(256))
	require.NoError(t, err)
	pub, err := priv.ToPublicKey()
	require.NoError(t, err)
	der, err := pub.SavePkix()
	require.NoError(t, err)

	certName := ndn.ParseName("/anchor").Append(ndn.NewKeywordComponent("KEY")).Append(ndn.NewGenericComponent([]byte("k1"))).
		Append(ndn.NewGenericComponent([]byte("self"))).Append(ndn.NewVersionComponent(1))
	data := ndn.NewData(certName, der)
	data.ContentType = ndn.ContentTypeKey
	data.SignatureInfo = ndn.SignatureInfo{
		KeyLocator:     &ndn.KeyLocator{Type: ndn.KeyLocatorName, Name: certName},
		ValidityPeriod: &ndn.ValidityPeriod{NotBefore: time.Now().Add(-time.Hour), NotAfter: time.Now().Add(time.Hour)},
	}
	signed, err := signverify.SignData(data, priv)
	require.NoError(t, err)

	encoded, err := ndn.NewNativeCodec().EncodeData(&signed)
	require.NoError(t, err)
	return encoded
}

func TestCompileHierarchicalRule(t *testing.T) {
	f := &File{
		Rules: []RuleSpec{
			{
				ID:      "data-rule",
				Filter:  FilterSpec{Type: "name", Prefix: "/a/b"},
				Checker: CheckerSpec{Type: "hierarchical"},
			},
		},
	}
	p, _, stop, err := Compile(f, nil)
	require.NoError(t, err)
	defer stop()

	kl := ndn.KeyLocator{Type: ndn.KeyLocatorName, Name: ndn.ParseName("/a/b").Append(ndn.NewKeywordComponent("KEY")).Append(ndn.NewGenericComponent([]byte("1")))}
	r := p.CheckPolicy(ndn.ParseName("/a/b/c/data"), kl)
	assert.Equal(t, policy.DecisionCertRequest, r.Decision)
}

func TestCompileFilterNonMatchFallsThrough(t *testing.T) {
	f := &File{
		Rules: []RuleSpec{
			{ID: "r1", Filter: FilterSpec{Type: "name", Prefix: "/unrelated"}, Checker: CheckerSpec{Type: "hierarchical"}},
		},
	}
	p, _, stop, err := Compile(f, nil)
	require.NoError(t, err)
	defer stop()

	kl := ndn.KeyLocator{Type: ndn.KeyLocatorName, Name: ndn.ParseName("/a/KEY/1")}
	r := p.CheckPolicy(ndn.ParseName("/a/b/data"), kl)
	assert.Equal(t, policy.DecisionReject, r.Decision)
}

func TestCompileNameRelationChecker(t *testing.T) {
	f := &File{
		Rules: []RuleSpec{
			{
				ID:      "r1",
				Filter:  FilterSpec{Type: "name", Prefix: "/site"},
				Checker: CheckerSpec{Type: "name-relation", Name: "/site/KEY", Relation: "is-prefix-of"},
			},
		},
	}
	p, _, stop, err := Compile(f, nil)
	require.NoError(t, err)
	defer stop()

	kl := ndn.KeyLocator{Type: ndn.KeyLocatorName, Name: ndn.ParseName("/site/KEY/admin/1")}
	r := p.CheckPolicy(ndn.ParseName("/site/page"), kl)
	assert.Equal(t, policy.DecisionCertRequest, r.Decision)

	badKL := ndn.KeyLocator{Type: ndn.KeyLocatorName, Name: ndn.ParseName("/other/KEY/1")}
	r2 := p.CheckPolicy(ndn.ParseName("/site/page"), badKL)
	assert.Equal(t, policy.DecisionReject, r2.Decision)
}

func TestCompileHyperRelationChecker(t *testing.T) {
	f := &File{
		Rules: []RuleSpec{
			{
				ID:     "r1",
				Filter: FilterSpec{Type: "regex", Regex: `^/device/.+/status$`},
				Checker: CheckerSpec{
					Type:         "hyper-relation",
					PacketRegex:  `^/device/([^/]+)/status$`,
					SignerExpand: "/device/$1/KEY/1",
				},
			},
		},
	}
	p, _, stop, err := Compile(f, nil)
	require.NoError(t, err)
	defer stop()

	kl := ndn.KeyLocator{Type: ndn.KeyLocatorName, Name: ndn.ParseName("/device/sensor7/KEY/1")}
	r := p.CheckPolicy(ndn.ParseName("/device/sensor7/status"), kl)
	assert.Equal(t, policy.DecisionCertRequest, r.Decision)

	wrongKL := ndn.KeyLocator{Type: ndn.KeyLocatorName, Name: ndn.ParseName("/device/other/KEY/1")}
	r2 := p.CheckPolicy(ndn.ParseName("/device/sensor7/status"), wrongKL)
	assert.Equal(t, policy.DecisionReject, r2.Decision)
}

func TestAnyTrustAnchorBypass(t *testing.T) {
	f := &File{TrustAnchors: []TrustAnchorSpec{{Type: "any"}}}
	p, store, stop, err := Compile(f, nil)
	require.NoError(t, err)
	defer stop()
	assert.True(t, store.AnyMode())

	kl := ndn.KeyLocator{Type: ndn.KeyLocatorName, Name: ndn.ParseName("/anyone/KEY/1")}
	r := p.CheckPolicy(ndn.ParseName("/anyone/content/1"), kl)
	assert.Equal(t, policy.DecisionAccept, r.Decision)
}

func TestFileTrustAnchorLoadsCertificate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anchor.ndncert")
	require.NoError(t, os.WriteFile(path, selfSignedCertBytes(t), 0o644))

	f := &File{TrustAnchors: []TrustAnchorSpec{{Type: "file", Path: path}}}
	_, store, stop, err := Compile(f, nil)
	require.NoError(t, err)
	defer stop()
	assert.Equal(t, 1, store.Len())
}

func TestBase64TrustAnchorLoadsCertificate(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(selfSignedCertBytes(t))

	f := &File{TrustAnchors: []TrustAnchorSpec{{Type: "base64", Base64: encoded}}}
	_, store, stop, err := Compile(f, nil)
	require.NoError(t, err)
	defer stop()
	assert.Equal(t, 1, store.Len())
}

func TestFileTrustAnchorMissingFileFails(t *testing.T) {
	f := &File{TrustAnchors: []TrustAnchorSpec{{Type: "file", Path: filepath.Join(t.TempDir(), "missing.ndncert")}}}
	_, _, _, err := Compile(f, nil)
	require.Error(t, err)
}

func TestUnknownFilterTypeFails(t *testing.T) {
	f := &File{Rules: []RuleSpec{{ID: "r1", Filter: FilterSpec{Type: "bogus"}, Checker: CheckerSpec{Type: "hierarchical"}}}}
	_, _, _, err := Compile(f, nil)
	require.Error(t, err)
}
