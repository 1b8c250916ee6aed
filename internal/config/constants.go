package config

import "time"

// Gas defaults. Contract calls and transfers share one limit; deployments
// carry their own, higher price.
const (
	GasLimitContractCall = uint64(6_800_000)
	GasLimitDeploy       = uint64(6_700_000)
	GasPriceCall         = uint64(2_000_000_000)  // 2 gwei
	GasPriceDeploy       = uint64(25_000_000_000) // 25 gwei
)

// Timeout constants used across cmd and the deploy runner.
const (
	TxConfirmTimeout = 3 * time.Minute        // standard transaction confirmation wait
	TxDeployTimeout  = 5 * time.Minute        // contract deployment confirmation wait
	DeploySettle     = 500 * time.Millisecond // pause between successive deployments
)

// Network and storage defaults.
const (
	DefaultProvider = "http://testnet.usc.ulord.one:58858"
	DefaultUDFSHost = "114.67.37.2"
	DefaultUDFSPort = 20418

	// poaProviderPrefix marks endpoints that need proof-of-authority block handling.
	poaProviderPrefix = "https://rinkeby"
)
