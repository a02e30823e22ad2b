package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siteops/pkg/config"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func TestLoadConfigMissingBase(t *testing.T) {
	cfg, err := config.LoadConfig("local", t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, cfg)
}

func TestLoadConfigMergesEnvironment(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
relay:
  endpoint: https://relay.example/submit
  website: base-site
server:
  port: "8080"
`)
	writeFile(t, dir, "production.yaml", `
relay:
  website: prod-site
`)

	cfg, err := config.LoadConfig("production", dir)
	require.NoError(t, err)

	var out struct {
		Relay  config.RelayConfig  `yaml:"relay"`
		Server config.ServerConfig `yaml:"server"`
	}
	require.NoError(t, config.Decode(cfg, &out))
	assert.Equal(t, "https://relay.example/submit", out.Relay.Endpoint)
	assert.Equal(t, "prod-site", out.Relay.Website)
	assert.Equal(t, "8080", out.Server.Port)
}

func TestLoadConfigSubstitutesSecrets(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
backend:
  url: https://project.supabase.co
  service_key: ${SERVICE_KEY}
`)
	writeFile(t, dir, "secrets.env", "# comment\nSERVICE_KEY=\"s3cret\"\n")

	cfg, err := config.LoadConfig("local", dir)
	require.NoError(t, err)

	var out struct {
		Backend config.BackendConfig `yaml:"backend"`
	}
	require.NoError(t, config.Decode(cfg, &out))
	assert.Equal(t, "s3cret", out.Backend.ServiceKey)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "relay: [unterminated")

	_, err := config.LoadConfig("local", dir)
	assert.ErrorContains(t, err, "failed to load base.yaml")
}

func TestLoadConfigResolvesSystemEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
backend:
  url: ${SITEOPS_TEST_URL}
  service_key: ${SITEOPS_TEST_UNSET}
`)
	t.Setenv("SITEOPS_TEST_URL", "https://env.supabase.co")
	t.Setenv("SITEOPS_TEST_UNSET", "")

	cfg, err := config.LoadConfig("local", dir)
	require.NoError(t, err)

	var out struct {
		Backend config.BackendConfig `yaml:"backend"`
	}
	require.NoError(t, config.Decode(cfg, &out))
	assert.Equal(t, "https://env.supabase.co", out.Backend.URL)
	assert.Empty(t, out.Backend.ServiceKey)
	assert.Error(t, out.Backend.Validate())
}
