package config

import (
	"math/big"
	"path/filepath"
	"strings"
	"time"
)

// Config holds all ucwallet configuration.
type Config struct {
	Provider string `json:"provider" mapstructure:"provider"`
	POA      bool   `json:"poa"      mapstructure:"poa"`      // forced proof-of-authority block handling
	ChainID  int64  `json:"chain_id" mapstructure:"chain_id"` // 0 = ask the node

	GasLimit       uint64 `json:"gas_limit"        mapstructure:"gas_limit"`
	GasPrice       uint64 `json:"gas_price"        mapstructure:"gas_price"` // wei
	DeployGasLimit uint64 `json:"deploy_gas_limit" mapstructure:"deploy_gas_limit"`
	DeployGasPrice uint64 `json:"deploy_gas_price" mapstructure:"deploy_gas_price"` // wei

	ReceiptTimeout time.Duration `json:"receipt_timeout" mapstructure:"receipt_timeout"`
	DeployTimeout  time.Duration `json:"deploy_timeout"  mapstructure:"deploy_timeout"`
	SettleDelay    time.Duration `json:"settle_delay"    mapstructure:"settle_delay"`

	DeployConfig string `json:"deploy_config" mapstructure:"deploy_config"`
	SourcesDir   string `json:"sources_dir"   mapstructure:"sources_dir"`
	Compiler     string `json:"compiler"      mapstructure:"compiler"` // "solc" | "artifacts"
	SolcPath     string `json:"solc_path"     mapstructure:"solc_path"`
	ArtifactsIn  string `json:"artifacts_in"  mapstructure:"artifacts_in"` // hardhat/foundry output dir

	KeystoreFile string `json:"keystore_file" mapstructure:"keystore_file"` // default login key file

	UDFSHost string `json:"udfs_host" mapstructure:"udfs_host"`
	UDFSPort int    `json:"udfs_port" mapstructure:"udfs_port"`

	LogFile  string `json:"log_file"  mapstructure:"log_file"`
	LogLevel string `json:"log_level" mapstructure:"log_level"`

	// Names of contract events whose presence in an activation receipt marks the call failed.
	ActivationFailureEvents []string `json:"activation_failure_events" mapstructure:"activation_failure_events"`

	// internal: config dir path used for Save()
	configDir string
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// ArtifactsDir is where <name>.abi and <name>.bin files are kept.
func (c *Config) ArtifactsDir() string {
	return filepath.Join(c.configDir, artifactsDir)
}

// AddressesFile is the persisted name → address table of the last deployment.
func (c *Config) AddressesFile() string {
	return filepath.Join(c.configDir, addressesFile)
}

// KeystoreDir holds encrypted wallet files created by ucwallet.
func (c *Config) KeystoreDir() string {
	return filepath.Join(c.configDir, keystoreDir)
}

// HistoryFile is the interactive shell history.
func (c *Config) HistoryFile() string {
	return filepath.Join(c.configDir, historyFile)
}

// PoAEnabled reports whether blocks must be read with proof-of-authority rules.
func (c *Config) PoAEnabled() bool {
	return c.POA || strings.HasPrefix(c.Provider, poaProviderPrefix)
}

// GasPriceWei returns the call gas price, or nil when it is zero and the
// node should be asked.
func (c *Config) GasPriceWei() *big.Int {
	return weiOrNil(c.GasPrice)
}

// DeployGasPriceWei is GasPriceWei for deployments.
func (c *Config) DeployGasPriceWei() *big.Int {
	return weiOrNil(c.DeployGasPrice)
}

func weiOrNil(v uint64) *big.Int {
	if v == 0 {
		return nil
	}
	return new(big.Int).SetUint64(v)
}
