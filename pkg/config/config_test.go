package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ndnsec/pkg/helper/errors"
	"ndnsec/pkg/security/certcache"
)

func TestNewDefaultConfigValidates(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFileMissingPathIsNotFound(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestLoadFromFileEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := LoadFromFile("")
	require.NoError(t, err)
	assert.Equal(t, NewDefaultConfig().Dispatcher.TopPrefix, cfg.Dispatcher.TopPrefix)
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
log_level: debug
identity:
  name: /example/node
  key_type: rsa
  key_size: 2048
dispatcher:
  top_prefix: /example/mgmt
  ims_capacity: 64
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/example/node", cfg.Identity.Name)
	assert.Equal(t, "/example/mgmt", cfg.Dispatcher.TopPrefix)
	assert.Equal(t, 64, cfg.Dispatcher.IMSCapacity)
}

func TestLoadFromFileInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: [valid"), 0o644))

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestLoadFromFileEnvOverride(t *testing.T) {
	t.Setenv("NDNSEC_LOG_LEVEL", "warn")
	t.Setenv("NDNSEC_DISPATCHER_TOP_PREFIX", "/env/mgmt")

	cfg, err := LoadFromFile("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "/env/mgmt", cfg.Dispatcher.TopPrefix)
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.LogLevel = "verbose"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsConflictingValidatorSource(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Validator.Path = "/tmp/rules.yaml"
	cfg.Validator.Inline = "rules: []"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsEmptyTopPrefix(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Dispatcher.TopPrefix = ""
	assert.Error(t, cfg.Validate())
}

func TestIdentityKeyParamsUnknownType(t *testing.T) {
	id := IdentityConfig{KeyType: "quantum"}
	_, err := id.KeyParams()
	assert.Error(t, err)
}

func TestCertCacheConfigFallsBackToDefaults(t *testing.T) {
	cc := CacheConfig{}.CertCacheConfig()
	assert.Equal(t, certcache.DefaultConfig().TrustedCapacity, cc.TrustedCapacity)
}
