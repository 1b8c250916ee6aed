package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ulordchain/ucwallet/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, config.DefaultProvider, cfg.Provider)
	assert.False(t, cfg.POA)
	assert.Equal(t, uint64(6_800_000), cfg.GasLimit)
	assert.Equal(t, uint64(2_000_000_000), cfg.GasPrice)
	assert.Equal(t, uint64(6_700_000), cfg.DeployGasLimit)
	assert.Equal(t, uint64(25_000_000_000), cfg.DeployGasPrice)
	assert.Equal(t, 3*time.Minute, cfg.ReceiptTimeout)
	assert.Equal(t, 5*time.Minute, cfg.DeployTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.SettleDelay)
	assert.Equal(t, "solc", cfg.Compiler)
	assert.Equal(t, config.DefaultUDFSHost, cfg.UDFSHost)
	assert.Equal(t, config.DefaultUDFSPort, cfg.UDFSPort)
	assert.Equal(t, filepath.Join(dir, "ucwallet.log"), cfg.LogFile)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.ActivationFailureEvents)
}

func TestLoadCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "ucwallet")
	_, err := config.Load(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestDerivedPaths(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.Dir())
	assert.Equal(t, filepath.Join(dir, "artifacts"), cfg.ArtifactsDir())
	assert.Equal(t, filepath.Join(dir, "contractAddresses.json"), cfg.AddressesFile())
	assert.Equal(t, filepath.Join(dir, "keystore"), cfg.KeystoreDir())
	assert.Equal(t, filepath.Join(dir, "history"), cfg.HistoryFile())
}

func TestSetWritesOnlyThatKey(t *testing.T) {
	dir := t.TempDir()
	body := `{"provider": "http://node:8545", "deploy_timeout": "90s"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(body), 0o600))
	t.Setenv("UCWALLET_GAS_LIMIT", "21000")

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	cfg.Provider = "http://override:8545"
	require.NoError(t, cfg.Set("keystore_file", "/keys/UTC--a"))

	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"provider":"http://node:8545","deploy_timeout":"90s","keystore_file":"/keys/UTC--a"}`, string(data))

	reloaded, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "/keys/UTC--a", reloaded.KeystoreFile)
	assert.Equal(t, "http://node:8545", reloaded.Provider)
	assert.Equal(t, 90*time.Second, reloaded.DeployTimeout)
}

func TestSetCreatesConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	require.NoError(t, cfg.Set("keystore_file", "k.json"))

	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"keystore_file":"k.json"}`, string(data))
}

func TestLoadPartialConfigFile(t *testing.T) {
	dir := t.TempDir()
	body := `{"provider": "http://node:8545", "deploy_timeout": "90s", "poa": true}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(body), 0o600))

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "http://node:8545", cfg.Provider)
	assert.Equal(t, 90*time.Second, cfg.DeployTimeout)
	assert.True(t, cfg.POA)
	// untouched keys keep their defaults
	assert.Equal(t, uint64(6_800_000), cfg.GasLimit)
}

func TestLoadBadConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{not json`), 0o600))

	_, err := config.Load(dir)
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// environment overrides
// ---------------------------------------------------------------------------

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"provider": "http://file:8545"}`), 0o600))
	t.Setenv("UCWALLET_PROVIDER", "http://env:8545")
	t.Setenv("UCWALLET_GAS_LIMIT", "100000")

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "http://env:8545", cfg.Provider)
	assert.Equal(t, uint64(100000), cfg.GasLimit)
}

func TestEnvDuration(t *testing.T) {
	t.Setenv("UCWALLET_SETTLE_DELAY", "0s")

	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, cfg.SettleDelay)
}

func TestEnvFileLoaded(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("UCWALLET_UDFS_PORT=9999\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("UCWALLET_UDFS_PORT") })

	cfg, err := config.Load(dir, envFile)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.UDFSPort)
}

func TestMissingEnvFileErrors(t *testing.T) {
	_, err := config.Load(t.TempDir(), filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// derived settings
// ---------------------------------------------------------------------------

func TestPoAEnabled(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	assert.False(t, cfg.PoAEnabled())

	cfg.Provider = "https://rinkeby.infura.io/v3/abc"
	assert.True(t, cfg.PoAEnabled())

	cfg.Provider = "http://localhost:8545"
	cfg.POA = true
	assert.True(t, cfg.PoAEnabled())
}

func TestGasPriceWei(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "2000000000", cfg.GasPriceWei().String())
	assert.Equal(t, "25000000000", cfg.DeployGasPriceWei().String())

	cfg.GasPrice, cfg.DeployGasPrice = 0, 0
	assert.Nil(t, cfg.GasPriceWei())
	assert.Nil(t, cfg.DeployGasPriceWei())
}
