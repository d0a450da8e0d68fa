// Package cert implements the NDN Certificate model: a Data packet whose
// Name obeys the <identity>/KEY/<keyId>/<issuerId>/<version> convention,
// content-type Key, and a mandatory ValidityPeriod.
package cert

import (
	"fmt"
	"time"

	"ndnsec/pkg/helper/errors"
	"ndnsec/pkg/ndn"
	"ndnsec/pkg/security/keys"
)

const keyComponentOffset = -4 // offset of the literal "KEY" component from the end

// Certificate wraps an ndn.Data that has been validated to follow the
// certificate naming convention, matching §3's invariants:
//   - Name length >= 4 and the component at offset -4 is the literal "KEY".
//   - ContentType == Key.
//   - SignatureInfo carries a ValidityPeriod.
type Certificate struct {
	data ndn.Data
}

// FromData validates data against the certificate naming convention and
// wraps it. It is the only way to obtain a Certificate, so every
// Certificate in the system is known-valid by construction.
func FromData(data ndn.Data) (*Certificate, error) {
	if err := validateCertificateName(data.Name); err != nil {
		return nil, err
	}
	if data.ContentType != ndn.ContentTypeKey {
		return nil, errors.InvalidInputf("certificate content-type must be Key, got %v", data.ContentType)
	}
	if data.SignatureInfo.ValidityPeriod == nil {
		return nil, errors.InvalidInputf("certificate is missing a ValidityPeriod")
	}
	return &Certificate{data: data}, nil
}

func validateCertificateName(name ndn.Name) error {
	if name.Len() < 4 {
		return errors.InvalidInputf("certificate name %q has fewer than 4 components", name)
	}
	keyComp := name.At(keyComponentOffset)
	if keyComp.Type != ndn.ComponentKeyword || string(keyComp.Bytes) != "KEY" {
		return errors.InvalidInputf("certificate name %q is missing the KEY component at offset -4", name)
	}
	return nil
}

// ExtractIdentityFromCertName returns the prefix of a certificate name
// before the "KEY" component. Fails if name does not follow the
// convention.
func ExtractIdentityFromCertName(name ndn.Name) (ndn.Name, error) {
	if err := validateCertificateName(name); err != nil {
		return ndn.Name{}, err
	}
	return name.GetPrefix(keyComponentOffset), nil
}

// ExtractKeyNameFromCertName returns the prefix through the keyId
// component (i.e. name.GetPrefix(-2)).
func ExtractKeyNameFromCertName(name ndn.Name) (ndn.Name, error) {
	if err := validateCertificateName(name); err != nil {
		return ndn.Name{}, err
	}
	return name.GetPrefix(-2), nil
}

// Name returns the certificate's full name.
func (c *Certificate) Name() ndn.Name { return c.data.Name }

// Data returns the underlying Data packet.
func (c *Certificate) Data() ndn.Data { return c.data }

// GetKeyName returns the prefix through keyId: <identity>/KEY/<keyId>.
func (c *Certificate) GetKeyName() ndn.Name {
	n, err := ExtractKeyNameFromCertName(c.data.Name)
	if err != nil {
		// Unreachable: FromData already validated the name.
		panic(err)
	}
	return n
}

// GetIdentity returns the prefix before KEY.
func (c *Certificate) GetIdentity() ndn.Name {
	n, err := ExtractIdentityFromCertName(c.data.Name)
	if err != nil {
		panic(err)
	}
	return n
}

// ValidityPeriod returns the certificate's [notBefore, notAfter] window.
func (c *Certificate) ValidityPeriod() ndn.ValidityPeriod {
	return *c.data.SignatureInfo.ValidityPeriod
}

// IsValid reports whether now falls within the validity period.
func (c *Certificate) IsValid(now time.Time) bool {
	return c.ValidityPeriod().Covers(now)
}

// PublicKeyBytes returns the raw SubjectPublicKeyInfo DER carried as
// content.
func (c *Certificate) PublicKeyBytes() []byte { return c.data.Content }

// PublicKey parses the embedded SubjectPublicKeyInfo.
func (c *Certificate) PublicKey() (*keys.PublicKey, error) {
	pub := keys.NewPublicKey()
	if err := pub.LoadPkix(c.data.Content); err != nil {
		return nil, errors.Wrap(err, "parse certificate public key")
	}
	return pub, nil
}

// KeyLocator returns the issuer's key locator, or nil if unsigned.
func (c *Certificate) KeyLocator() *ndn.KeyLocator {
	return c.data.SignatureInfo.KeyLocator
}

// AdditionalDescription extracts the embedded description TLV, if present.
func (c *Certificate) AdditionalDescription() (ndn.AdditionalDescription, bool) {
	for _, t := range c.data.SignatureInfo.Custom {
		if d, ok := ndn.DecodeAdditionalDescription(t); ok {
			return d, true
		}
	}
	return ndn.AdditionalDescription{}, false
}

// IsSelfSigned reports whether the key-locator name equals this
// certificate's own key name.
func (c *Certificate) IsSelfSigned() bool {
	kl := c.KeyLocator()
	return kl != nil && kl.Type == ndn.KeyLocatorName && kl.Name.Equal(c.GetKeyName())
}

// Print renders a human-readable dump: name, additional-description (if
// present), public-key type/size, validity window, signature-type,
// key-locator, and whether self-signed.
func (c *Certificate) Print() string {
	s := fmt.Sprintf("Certificate name: %s\n", c.Name())
	if desc, ok := c.AdditionalDescription(); ok {
		s += "Additional description:\n"
		for _, e := range desc.Entries() {
			s += fmt.Sprintf("  %s: %s\n", e.Key, e.Value)
		}
	}
	if pub, err := c.PublicKey(); err == nil {
		bits, _ := pub.GetKeySize()
		s += fmt.Sprintf("Public key: %s (%d bits)\n", pub.GetKeyType(), bits)
	}
	vp := c.ValidityPeriod()
	s += fmt.Sprintf("Validity: %s - %s\n", vp.NotBefore.Format(time.RFC3339), vp.NotAfter.Format(time.RFC3339))
	s += fmt.Sprintf("Signature type: %s\n", c.data.SignatureInfo.Type)
	if kl := c.KeyLocator(); kl != nil && kl.Type == ndn.KeyLocatorName {
		s += fmt.Sprintf("Key locator: %s\n", kl.Name)
	}
	s += fmt.Sprintf("Self-signed: %v\n", c.IsSelfSigned())
	return s
}
