// Package config loads the YAML document that describes how to assemble a
// validator and a management dispatcher for one deployment: this node's
// identity, its cache and fetcher tuning, the dispatcher's top prefix and
// storage capacity, and whether to register Prometheus collectors.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ndnsec/pkg/helper/errors"
	"ndnsec/pkg/ndn"
	"ndnsec/pkg/security/certcache"
	"ndnsec/pkg/security/certfetcher"
	"ndnsec/pkg/security/keys"
)

// Config is the top-level application configuration document.
type Config struct {
	LogLevel   string           `yaml:"log_level"`
	Identity   IdentityConfig   `yaml:"identity"`
	Validator  ValidatorConfig  `yaml:"validator"`
	Cache      CacheConfig      `yaml:"cache"`
	Fetcher    FetcherConfig    `yaml:"fetcher"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// IdentityConfig names this node's own identity and the key it signs with.
type IdentityConfig struct {
	Name    string `yaml:"name"`
	KeyType string `yaml:"key_type"` // "rsa", "ec", "hmac"
	KeySize int    `yaml:"key_size"`
}

// KeyParams translates the YAML key type/size pair into keys.KeyParams.
func (i IdentityConfig) KeyParams() (keys.KeyParams, error) {
	switch strings.ToLower(i.KeyType) {
	case "", "ec":
		size := i.KeySize
		if size == 0 {
			size = 256
		}
		return keys.ECParams(size), nil
	case "rsa":
		size := i.KeySize
		if size == 0 {
			size = 2048
		}
		return keys.RSAParams(size), nil
	case "hmac":
		size := i.KeySize
		if size == 0 {
			size = 256
		}
		return keys.HMACParams(size), nil
	default:
		return keys.KeyParams{}, errors.InvalidInputf("unknown identity key_type %q", i.KeyType)
	}
}

// ValidatorConfig points at a validator-config document either inline or on
// disk; at most one of Inline/Path may be set. Validate rejects setting
// both, and leaving both empty is accepted.
type ValidatorConfig struct {
	Path   string `yaml:"path"`
	Inline string `yaml:"inline"`
}

// CacheConfig maps onto certcache.Config.
type CacheConfig struct {
	TrustedCapacity   int           `yaml:"trusted_capacity"`
	UntrustedCapacity int           `yaml:"untrusted_capacity"`
	TrustedTTL        time.Duration `yaml:"trusted_ttl"`
	UntrustedTTL      time.Duration `yaml:"untrusted_ttl"`
}

// CertCacheConfig converts to certcache.Config, falling back to
// certcache.DefaultConfig for any zero field.
func (c CacheConfig) CertCacheConfig() certcache.Config {
	def := certcache.DefaultConfig()
	cfg := certcache.Config{
		TrustedCapacity:   c.TrustedCapacity,
		UntrustedCapacity: c.UntrustedCapacity,
		TrustedTTL:        c.TrustedTTL,
		UntrustedTTL:      c.UntrustedTTL,
	}
	if cfg.TrustedCapacity <= 0 {
		cfg.TrustedCapacity = def.TrustedCapacity
	}
	if cfg.UntrustedCapacity <= 0 {
		cfg.UntrustedCapacity = def.UntrustedCapacity
	}
	if cfg.TrustedTTL <= 0 {
		cfg.TrustedTTL = def.TrustedTTL
	}
	if cfg.UntrustedTTL <= 0 {
		cfg.UntrustedTTL = def.UntrustedTTL
	}
	return cfg
}

// FetcherConfig controls certificate-fetch retry behavior.
type FetcherConfig struct {
	OfflineOnly bool          `yaml:"offline_only"`
	MaxRetries  int           `yaml:"max_retries"`
	InitialWait time.Duration `yaml:"initial_wait"`
	MaxWait     time.Duration `yaml:"max_wait"`
}

// RetryPolicy converts to certfetcher.RetryPolicy, falling back to
// certfetcher.DefaultRetryPolicy for any zero field.
func (f FetcherConfig) RetryPolicy() certfetcher.RetryPolicy {
	def := certfetcher.DefaultRetryPolicy()
	p := def
	if f.MaxRetries > 0 {
		p.MaxRetries = f.MaxRetries
	}
	if f.InitialWait > 0 {
		p.InitialWait = f.InitialWait
	}
	if f.MaxWait > 0 {
		p.MaxWait = f.MaxWait
	}
	return p
}

// DispatcherConfig controls the management dispatcher's top prefix and
// retransmission-store sizing.
type DispatcherConfig struct {
	TopPrefix   string `yaml:"top_prefix"`
	IMSCapacity int    `yaml:"ims_capacity"`
}

// TopPrefixName parses TopPrefix, returning an error only if it is empty;
// ParseName accepts any other string.
func (d DispatcherConfig) TopPrefixName() (ndn.Name, error) {
	if d.TopPrefix == "" {
		return ndn.Name{}, errors.InvalidInputf("dispatcher.top_prefix must be set")
	}
	return ndn.ParseName(d.TopPrefix), nil
}

// Capacity returns the configured in-memory-store capacity, defaulting to
// DefaultStorageCapacity-sized zero meaning "let the dispatcher pick its
// own default".
func (d DispatcherConfig) Capacity() int {
	if d.IMSCapacity <= 0 {
		return 0
	}
	return d.IMSCapacity
}

// MetricsConfig controls whether a Prometheus registry is built at all.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// NewDefaultConfig returns the configuration a deployment gets before any
// file or environment overrides are applied.
func NewDefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Identity: IdentityConfig{
			Name:    "/ndnsec/default-identity",
			KeyType: "ec",
			KeySize: 256,
		},
		Cache: CacheConfig{
			TrustedCapacity:   certcache.DefaultConfig().TrustedCapacity,
			UntrustedCapacity: certcache.DefaultConfig().UntrustedCapacity,
			TrustedTTL:        certcache.DefaultTrustedTTL,
			UntrustedTTL:      certcache.DefaultUntrustedTTL,
		},
		Fetcher: FetcherConfig{
			MaxRetries:  certfetcher.DefaultRetryPolicy().MaxRetries,
			InitialWait: certfetcher.DefaultRetryPolicy().InitialWait,
			MaxWait:     certfetcher.DefaultRetryPolicy().MaxWait,
		},
		Dispatcher: DispatcherConfig{
			TopPrefix:   "/ndnsec/mgmt",
			IMSCapacity: 256,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// LoadFromFile loads configuration starting from defaults, overlaying a
// YAML file (if configPath is non-empty) and then environment variables,
// and finally validating the result. This mirrors the teacher's
// defaults-then-file-then-env layering.
func LoadFromFile(configPath string) (*Config, error) {
	cfg := NewDefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.NotFoundf("configuration file not found: %s", configPath)
			}
			return nil, errors.Wrap(err, "read configuration file %s", configPath)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "parse configuration file %s", configPath)
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromEnv overlays NDNSEC_* environment variables onto cfg.
func loadFromEnv(cfg *Config) error {
	if v, ok := os.LookupEnv("NDNSEC_LOG_LEVEL"); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := os.LookupEnv("NDNSEC_IDENTITY_NAME"); ok && v != "" {
		cfg.Identity.Name = v
	}
	if v, ok := os.LookupEnv("NDNSEC_IDENTITY_KEY_TYPE"); ok && v != "" {
		cfg.Identity.KeyType = v
	}
	if v, ok := os.LookupEnv("NDNSEC_IDENTITY_KEY_SIZE"); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Identity.KeySize = n
		}
	}
	if v, ok := os.LookupEnv("NDNSEC_VALIDATOR_PATH"); ok && v != "" {
		cfg.Validator.Path = v
	}
	if v, ok := os.LookupEnv("NDNSEC_DISPATCHER_TOP_PREFIX"); ok && v != "" {
		cfg.Dispatcher.TopPrefix = v
	}
	if v, ok := os.LookupEnv("NDNSEC_DISPATCHER_IMS_CAPACITY"); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Dispatcher.IMSCapacity = n
		}
	}
	if v, ok := os.LookupEnv("NDNSEC_FETCHER_OFFLINE_ONLY"); ok {
		cfg.Fetcher.OfflineOnly = strings.ToLower(v) == "true" || v == "1"
	}
	if v, ok := os.LookupEnv("NDNSEC_METRICS_ENABLED"); ok {
		cfg.Metrics.Enabled = strings.ToLower(v) == "true" || v == "1"
	}
	return nil
}

// Validate checks that the loaded configuration is internally consistent.
func (c *Config) Validate() error {
	level := strings.ToLower(c.LogLevel)
	switch level {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return errors.InvalidInputf("invalid log level: %s", c.LogLevel)
	}

	if c.Identity.Name == "" {
		return errors.InvalidInputf("identity.name must be set")
	}
	if _, err := c.Identity.KeyParams(); err != nil {
		return err
	}

	if c.Validator.Path != "" && c.Validator.Inline != "" {
		return errors.InvalidInputf("validator.path and validator.inline are mutually exclusive")
	}

	if c.Cache.TrustedCapacity < 0 || c.Cache.UntrustedCapacity < 0 {
		return errors.InvalidInputf("cache capacities must be non-negative")
	}

	if c.Fetcher.MaxRetries < 0 {
		return errors.InvalidInputf("fetcher.max_retries must be non-negative")
	}

	if c.Dispatcher.TopPrefix == "" {
		return errors.InvalidInputf("dispatcher.top_prefix must be set")
	}
	if c.Dispatcher.IMSCapacity < 0 {
		return errors.InvalidInputf("dispatcher.ims_capacity must be non-negative")
	}

	return nil
}
