package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPrefix = "UCWALLET"
	dotEnv    = ".env"

	configFile    = "config.json"
	addressesFile = "contractAddresses.json"
	artifactsDir  = "artifacts"
	keystoreDir   = "keystore"
	historyFile   = "history"
	logFile       = "ucwallet.log"
)

// Load reads config from dir (or creates defaults). dir defaults to ~/.ucwallet.
//
// Values are layered: built-in defaults, then config.json in dir, then
// UCWALLET_* environment variables. envFiles are loaded into the environment
// first; without any, ./.env is used when present.
func Load(dir string, envFiles ...string) (*Config, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".ucwallet")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	if err := loadEnv(envFiles); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	v := viper.New()
	setDefaults(v, dir)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	path := filepath.Join(dir, configFile)
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.configDir = dir

	return cfg, nil
}

// Set writes one key to config.json and leaves the rest of the file as it
// is, so flag and environment overrides of the current run stay out of it.
func (c *Config) Set(key string, value any) error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	path := filepath.Join(c.configDir, configFile)

	v := viper.New()
	v.SetConfigFile(path)
	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	v.Set(key, value)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// --- helpers ---

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("provider", DefaultProvider)
	v.SetDefault("poa", false)
	v.SetDefault("chain_id", 0)
	v.SetDefault("gas_limit", GasLimitContractCall)
	v.SetDefault("gas_price", GasPriceCall)
	v.SetDefault("deploy_gas_limit", GasLimitDeploy)
	v.SetDefault("deploy_gas_price", GasPriceDeploy)
	v.SetDefault("receipt_timeout", TxConfirmTimeout)
	v.SetDefault("deploy_timeout", TxDeployTimeout)
	v.SetDefault("settle_delay", DeploySettle)
	v.SetDefault("deploy_config", "deploy_contract.json")
	v.SetDefault("sources_dir", "sols")
	v.SetDefault("compiler", "solc")
	v.SetDefault("solc_path", "solc")
	v.SetDefault("artifacts_in", "artifacts")
	v.SetDefault("keystore_file", "")
	v.SetDefault("udfs_host", DefaultUDFSHost)
	v.SetDefault("udfs_port", DefaultUDFSPort)
	v.SetDefault("log_file", filepath.Join(dir, logFile))
	v.SetDefault("log_level", "info")
	v.SetDefault("activation_failure_events", []string{})
}

func loadEnv(files []string) error {
	var paths []string
	for _, f := range files {
		if f != "" {
			paths = append(paths, f)
		}
	}
	if len(paths) == 0 {
		if _, err := os.Stat(dotEnv); err != nil {
			return nil
		}
		paths = []string{dotEnv}
	}
	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("godotenv.Load: %w", err)
	}
	return nil
}
