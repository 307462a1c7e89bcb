package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, defaultRPCAddress, cfg.RPCAddress)
	require.Equal(t, uint64(defaultAdminDelay), cfg.AdminDelay)
	require.Equal(t, filepath.Join(dir, "owner.key"), cfg.OwnerKeyPath)
	require.True(t, cfg.MetricsEnabled)

	// The default file must be readable on the second load.
	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.RPCAddress, again.RPCAddress)
}

func TestLoadExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
RPCAddress = "0.0.0.0:9000"
DataDir = "/var/lib/stakevault"
AdminDelay = 120
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9000", cfg.RPCAddress)
	require.Equal(t, "/var/lib/stakevault", cfg.DataDir)
	require.Equal(t, uint64(120), cfg.AdminDelay)
	require.Equal(t, "stakevault", cfg.ServiceName)
}

func TestValidateRejectsBadModuleAddress(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
RPCAddress = "127.0.0.1:8661"
DataDir = "./data"
ModuleAddress = "not-a-bech32-address"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}
