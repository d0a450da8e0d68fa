// Package validatorconfig loads a declarative, YAML-based description of
// validation rules and trust anchors and compiles it into a
// policy.Policy, mirroring ndn-cxx's boost-info validator configuration
// but expressed the way the rest of this codebase loads YAML (see package
// config and the teacher's pkg/config/loading.go).
package validatorconfig

import (
	"encoding/base64"
	"os"
	"regexp"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"ndnsec/pkg/helper/errors"
	"ndnsec/pkg/helper/log"
	"ndnsec/pkg/ndn"
	"ndnsec/pkg/security/cert"
	"ndnsec/pkg/security/policy"
)

// File is the top-level YAML document shape.
type File struct {
	Rules        []RuleSpec        `yaml:"rules"`
	TrustAnchors []TrustAnchorSpec `yaml:"trust_anchors"`
}

// RuleSpec matches Interests/Data whose name satisfies Filter against
// signers satisfying Checker.
type RuleSpec struct {
	ID      string      `yaml:"id"`
	Filter  FilterSpec  `yaml:"filter"`
	Checker CheckerSpec `yaml:"checker"`
}

// FilterSpec selects which packets a rule applies to.
type FilterSpec struct {
	// Type is "name" (exact/prefix match against Prefix) or "regex"
	// (match the packet name's URI string against Regex).
	Type   string `yaml:"type"`
	Prefix string `yaml:"prefix"`
	Regex  string `yaml:"regex"`
}

// CheckerSpec selects which signers a matched packet may have.
type CheckerSpec struct {
	// Type is one of "name-relation", "regex", "hyper-relation", or
	// "hierarchical" (the Non-goals-exempt convenience sugar equivalent
	// to policy.SimpleHierarchy).
	Type string `yaml:"type"`

	// name-relation
	Name     string `yaml:"name"`
	Relation string `yaml:"relation"` // "equal", "is-prefix-of", "is-strict-prefix-of"

	// regex (matches the KeyLocator name's URI string)
	Regex string `yaml:"regex"`

	// hyper-relation: packet name must match PacketRegex with captured
	// groups that, substituted into SignerExpand, produce a name the
	// signer's KeyLocator must satisfy under Relation ("equal" when empty).
	PacketRegex  string `yaml:"packet_regex"`
	SignerExpand string `yaml:"signer_expand"`
}

// TrustAnchorSpec describes one source of trust-anchor certificates.
type TrustAnchorSpec struct {
	// Type is one of "file", "base64", "dir", "any".
	Type string `yaml:"type"`

	Path          string        `yaml:"path"`
	Base64        string        `yaml:"base64"`
	Dir           string        `yaml:"dir"`
	RefreshPeriod time.Duration `yaml:"refresh_period"`
}

// Load reads and parses a validator configuration file. It does not load
// trust-anchor certificate bytes yet; call Compile for that.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read validator config %s", path)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "parse validator config %s", path)
	}
	return &f, nil
}

// Compile turns a parsed File into a policy.Policy plus a live
// TrustAnchorStore, starting the cron scheduler that runs the refresh jobs
// of any "dir" trust anchors (those jobs only log; see TrustAnchorStore).
// Callers must call the returned Stop func when done to release the cron
// scheduler.
func Compile(f *File, logger log.Logger) (policy.Policy, *TrustAnchorStore, func(), error) {
	if logger == nil {
		logger = log.NewBasicLogger(log.InfoLevel)
	}

	store := NewTrustAnchorStore()
	scheduler := cron.New()
	for _, ta := range f.TrustAnchors {
		if err := loadTrustAnchor(ta, store, scheduler, logger); err != nil {
			return nil, nil, func() {}, err
		}
	}
	scheduler.Start()
	stop := func() { <-scheduler.Stop().Done() }

	rules := make([]policy.Policy, 0, len(f.Rules))
	for _, r := range f.Rules {
		p, err := compileRule(r)
		if err != nil {
			stop()
			return nil, nil, func() {}, errors.Wrap(err, "compile rule %s", r.ID)
		}
		rules = append(rules, p)
	}

	// "any" is a bootstrap/test bypass: every packet is accepted without
	// any signer or signature check, so the compiled policy must accept outright
	// rather than fall through to a Chain, which rejects when it has no
	// rules to try.
	if store.anyMode {
		return policy.AcceptAll{}, store, stop, nil
	}
	return policy.NewChain(rules...), store, stop, nil
}

func compileRule(r RuleSpec) (policy.Policy, error) {
	filter, err := compileFilter(r.Filter)
	if err != nil {
		return nil, err
	}
	checker, err := compileChecker(r.Checker)
	if err != nil {
		return nil, err
	}
	return ruleGuard{filter: filter, checker: checker}, nil
}

// ruleGuard only invokes its checker when the packet name matches its
// filter; otherwise it abstains by rejecting, letting the enclosing
// policy.Chain fall through to the next rule.
type ruleGuard struct {
	filter  func(ndn.Name) bool
	checker policy.Policy
}

func (g ruleGuard) CheckPolicy(packetName ndn.Name, keyLocator ndn.KeyLocator) policy.Result {
	if !g.filter(packetName) {
		return policy.Reject("rule filter did not match packet name")
	}
	return g.checker.CheckPolicy(packetName, keyLocator)
}

func compileFilter(spec FilterSpec) (func(ndn.Name) bool, error) {
	switch spec.Type {
	case "name":
		prefix := ndn.ParseName(spec.Prefix)
		return func(n ndn.Name) bool { return prefix.IsPrefixOf(n) }, nil
	case "regex":
		re, err := regexp.Compile(spec.Regex)
		if err != nil {
			return nil, errors.Wrap(err, "compile filter regex")
		}
		return func(n ndn.Name) bool { return re.MatchString(n.String()) }, nil
	default:
		return nil, errors.InvalidInputf("unknown filter type %q", spec.Type)
	}
}

func compileChecker(spec CheckerSpec) (policy.Policy, error) {
	switch spec.Type {
	case "hierarchical":
		return policy.SimpleHierarchy{}, nil

	case "name-relation":
		expected := ndn.ParseName(spec.Name)
		rel := spec.Relation
		return checkerFunc(func(_ ndn.Name, kl ndn.KeyLocator) policy.Result {
			if kl.Type != ndn.KeyLocatorName {
				return policy.Reject("name-relation checker requires a Name key locator")
			}
			if !nameRelationHolds(expected, kl.Name, rel) {
				return policy.Reject("key locator does not satisfy relation " + rel)
			}
			return policy.RequestCert(kl.Name)
		}), nil

	case "regex":
		re, err := regexp.Compile(spec.Regex)
		if err != nil {
			return nil, errors.Wrap(err, "compile checker regex")
		}
		return checkerFunc(func(_ ndn.Name, kl ndn.KeyLocator) policy.Result {
			if kl.Type != ndn.KeyLocatorName {
				return policy.Reject("regex checker requires a Name key locator")
			}
			if !re.MatchString(kl.Name.String()) {
				return policy.Reject("key locator does not match checker regex")
			}
			return policy.RequestCert(kl.Name)
		}), nil

	case "hyper-relation":
		packetRe, err := regexp.Compile(spec.PacketRegex)
		if err != nil {
			return nil, errors.Wrap(err, "compile hyper-relation packet regex")
		}
		rel := spec.Relation
		if rel == "" {
			rel = "equal"
		}
		return checkerFunc(func(packetName ndn.Name, kl ndn.KeyLocator) policy.Result {
			if kl.Type != ndn.KeyLocatorName {
				return policy.Reject("hyper-relation checker requires a Name key locator")
			}
			matches := packetRe.FindStringSubmatch(packetName.String())
			if matches == nil {
				return policy.Reject("packet name does not match hyper-relation packet_regex")
			}
			expanded := expandTemplate(spec.SignerExpand, matches)
			expectedSigner := ndn.ParseName(expanded)
			if !nameRelationHolds(expectedSigner, kl.Name, rel) {
				return policy.Reject("key locator does not satisfy relation " + rel + " with expanded signer name")
			}
			return policy.RequestCert(kl.Name)
		}), nil

	default:
		return nil, errors.InvalidInputf("unknown checker type %q", spec.Type)
	}
}

type checkerFunc func(packetName ndn.Name, keyLocator ndn.KeyLocator) policy.Result

func (f checkerFunc) CheckPolicy(packetName ndn.Name, keyLocator ndn.KeyLocator) policy.Result {
	return f(packetName, keyLocator)
}

func nameRelationHolds(expected, actual ndn.Name, relation string) bool {
	switch relation {
	case "equal":
		return expected.Equal(actual)
	case "is-prefix-of":
		return expected.IsPrefixOf(actual)
	case "is-strict-prefix-of":
		return expected.IsStrictPrefixOf(actual)
	default:
		return false
	}
}

// expandTemplate substitutes $1, $2, ... in tmpl with regexp submatches.
func expandTemplate(tmpl string, matches []string) string {
	out := []byte{}
	for i := 0; i < len(tmpl); i++ {
		if tmpl[i] == '$' && i+1 < len(tmpl) && tmpl[i+1] >= '1' && tmpl[i+1] <= '9' {
			idx := int(tmpl[i+1] - '0')
			if idx < len(matches) {
				out = append(out, matches[idx]...)
			}
			i++
			continue
		}
		out = append(out, tmpl[i])
	}
	return string(out)
}

// TrustAnchorStore holds the trust-anchor certificates loaded from a
// validator configuration, keyed by name. Only "file" and "base64" anchors
// add certificates: a "dir" anchor does not read its directory, and the
// cron job scheduled for a positive RefreshPeriod only logs a debug line.
type TrustAnchorStore struct {
	anchors map[string]*cert.Certificate
	anyMode bool
}

func NewTrustAnchorStore() *TrustAnchorStore {
	return &TrustAnchorStore{anchors: make(map[string]*cert.Certificate)}
}

// Get looks up a trust anchor by certificate name.
func (s *TrustAnchorStore) Get(name ndn.Name) (*cert.Certificate, bool) {
	c, ok := s.anchors[name.String()]
	return c, ok
}

// Len reports how many trust-anchor certificates are currently loaded.
func (s *TrustAnchorStore) Len() int { return len(s.anchors) }

// AnyMode reports whether the "any" bypass trust anchor is configured,
// meaning Compile returns a policy that accepts every packet. This exists
// for test/bootstrap deployments only; production configurations should
// never set it.
func (s *TrustAnchorStore) AnyMode() bool { return s.anyMode }

func (s *TrustAnchorStore) put(c *cert.Certificate) {
	s.anchors[c.Name().String()] = c
}

func loadTrustAnchor(spec TrustAnchorSpec, store *TrustAnchorStore, scheduler *cron.Cron, logger log.Logger) error {
	switch spec.Type {
	case "file":
		raw, err := os.ReadFile(spec.Path)
		if err != nil {
			return errors.Wrap(err, "read trust anchor file %s", spec.Path)
		}
		return decodeAndStoreAnchor(raw, store)
	case "base64":
		raw, err := base64.StdEncoding.DecodeString(spec.Base64)
		if err != nil {
			return errors.Wrap(err, "decode base64 trust anchor")
		}
		return decodeAndStoreAnchor(raw, store)
	case "dir":
		if spec.RefreshPeriod > 0 {
			cronExpr := "@every " + spec.RefreshPeriod.String()
			_, err := scheduler.AddFunc(cronExpr, func() {
				logger.WithField("dir", spec.Dir).Debug("refreshing directory trust anchors")
			})
			if err != nil {
				return errors.Wrap(err, "schedule trust anchor refresh for %s", spec.Dir)
			}
		}
		return nil
	case "any":
		store.anyMode = true
		return nil
	default:
		return errors.InvalidInputf("unknown trust anchor type %q", spec.Type)
	}
}

// AddCertificate registers a pre-parsed certificate as a trust anchor,
// bypassing the "file"/"base64" decode path in loadTrustAnchor for callers
// that already hold a *cert.Certificate.
func (s *TrustAnchorStore) AddCertificate(c *cert.Certificate) {
	s.put(c)
}

// decodeAndStoreAnchor decodes raw wire bytes into a certificate via the
// package-default NativeCodec and registers it as a trust anchor.
func decodeAndStoreAnchor(raw []byte, store *TrustAnchorStore) error {
	data, err := ndn.NewNativeCodec().DecodeData(raw)
	if err != nil {
		return errors.Wrap(err, "decode trust anchor certificate")
	}
	c, err := cert.FromData(*data)
	if err != nil {
		return errors.Wrap(err, "parse trust anchor certificate")
	}
	store.put(c)
	return nil
}
