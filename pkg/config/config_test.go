package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tualatrix/openclaw/pkg/bridge"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, bridge.DefaultPort, cfg.Gateway.LocalPort)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NotEmpty(t, cfg.Storage.Path)
	require.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	t.Run("MissingFileYieldsDefaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		assert.Equal(t, bridge.DefaultPort, cfg.Gateway.LocalPort)
	})

	t.Run("FileValuesOverrideDefaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		data := `
node:
  displayName: My Desktop
discovery:
  tailnetDomain: example.ts.net
gateway:
  localPort: 12345
  remote:
    password: remote-secret
  auth:
    password: local-secret
log:
  level: debug
`
		require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "My Desktop", cfg.Node.DisplayName)
		assert.Equal(t, "example.ts.net", cfg.Discovery.TailnetDomain)
		assert.Equal(t, 12345, cfg.Gateway.LocalPort)
		assert.Equal(t, "remote-secret", cfg.Gateway.Remote.Password)
		assert.Equal(t, "local-secret", cfg.Gateway.Auth.Password)
		assert.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("InvalidYAMLFails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("gateway: ["), 0o644))

		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("InvalidPortFails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("gateway:\n  localPort: 70000\n"), 0o644))

		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("UnknownLogLevelFails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("log:\n  level: loud\n"), 0o644))

		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestDomains(t *testing.T) {
	cfg := Default()
	assert.Equal(t, []string{bridge.DefaultDomain}, cfg.Domains())

	cfg.Discovery.TailnetDomain = " example.ts.net "
	assert.Equal(t, []string{bridge.DefaultDomain, "example.ts.net"}, cfg.Domains())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvGatewayPassword, "  env-pass  ")
	t.Setenv(EnvGatewayToken, "env-tok")

	assert.Equal(t, "env-pass", PasswordOverride())
	assert.Equal(t, "env-tok", TokenOverride())
}
