package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ulordchain/ucwallet/internal/chain"
	"github.com/ulordchain/ucwallet/internal/compiler"
	"github.com/ulordchain/ucwallet/internal/config"
	"github.com/ulordchain/ucwallet/internal/contract"
	"github.com/ulordchain/ucwallet/internal/dispatch"
	"github.com/ulordchain/ucwallet/internal/udfs"
	"github.com/ulordchain/ucwallet/internal/ui"
	"github.com/ulordchain/ucwallet/internal/wallet"
)

const chainIDTimeout = 10 * time.Second

// app wires one session: the chain client, the contract registry and the
// command dispatcher that owns the active account.
type app struct {
	cfg      *config.Config
	log      *log.Logger
	client   *chain.EVMClient
	tx       *contract.Transactor
	store    *contract.ArtifactStore
	registry *contract.Registry
	disp     *dispatch.Dispatcher
	files    *udfs.Client
	keys     *wallet.KeyDir
	secrets  wallet.Secrets
	out      io.Writer
	// spinOut receives a spinner during long waits; nil disables it.
	spinOut io.Writer
}

func newApp(ctx context.Context) (*app, error) {
	if cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	l := logger.Logger

	client := chain.NewEVMClient(cfg.Provider, chain.WithPOA(cfg.PoAEnabled()))
	chainID := resolveChainID(ctx, cfg, client, l)
	if err := checkConsensus(ctx, client); err != nil {
		l.Warn("latest block rejected", "provider", cfg.Provider, "err", err)
	}

	a := &app{
		cfg:     cfg,
		log:     l,
		client:  client,
		tx:      contract.NewTransactor(client, chainID, l),
		store:   contract.NewArtifactStore(cfg.ArtifactsDir()),
		files:   udfs.New(udfs.Endpoint(cfg.UDFSHost, cfg.UDFSPort)),
		keys:    wallet.NewKeyDir(cfg.KeystoreDir(), false),
		secrets: wallet.DefaultKeyring(cfg.Dir()),
		out:     os.Stdout,
	}
	a.registry = contract.NewRegistry(a.store, cfg.AddressesFile())
	a.disp = dispatch.New(a.registry, a.tx, client, a.callGas(), l)
	a.registerBuiltins()
	if err := a.disp.Reload(); err != nil {
		l.Warn("some contracts could not be loaded", "err", err)
	}
	return a, nil
}

// resolveChainID prefers the configured id, then asks the node. Without
// either, transactions are signed without replay protection.
func resolveChainID(ctx context.Context, c *config.Config, client *chain.EVMClient, l *log.Logger) *big.Int {
	if c.ChainID > 0 {
		return big.NewInt(c.ChainID)
	}
	ctx, cancel := context.WithTimeout(ctx, chainIDTimeout)
	defer cancel()
	id, err := client.ChainID(ctx)
	if err != nil {
		l.Warn("chain id unavailable, signing without replay protection", "provider", c.Provider, "err", err)
		return nil
	}
	return id
}

// checkConsensus reads the latest block. A proof-of-authority chain used
// without poa mode is reported with a hint; other read failures are left to
// the first command that needs the node.
func checkConsensus(ctx context.Context, client *chain.EVMClient) error {
	ctx, cancel := context.WithTimeout(ctx, chainIDTimeout)
	defer cancel()
	_, err := client.LatestBlock(ctx)
	if errors.Is(err, chain.ErrExtraData) {
		return fmt.Errorf("%w; set poa to true in config.json or UCWALLET_POA=true", err)
	}
	return nil
}

// consensus describes how the node seals its latest block.
func consensus(ctx context.Context, client *chain.EVMClient) string {
	b, err := client.LatestBlock(ctx)
	switch {
	case errors.Is(err, chain.ErrExtraData):
		return "proof-of-authority seal found, poa mode is off"
	case err != nil:
		return "unknown: " + err.Error()
	case b.Seal != nil:
		return "proof-of-authority, sealed block " + strconv.FormatUint(b.Number, 10)
	case client.POA():
		return "proof-of-authority mode"
	}
	return "standard"
}

// busy runs fn behind a spinner showing msg.
func (a *app) busy(msg string, fn func() error) error {
	if a.spinOut == nil {
		return fn()
	}
	s := ui.NewSpinnerTo(a.spinOut, msg)
	s.Start()
	defer s.Stop()
	return fn()
}

// callGas and deployGas leave Price nil when none is configured, which asks
// the node.
func (a *app) callGas() contract.GasSettings {
	return contract.GasSettings{Limit: a.cfg.GasLimit, Price: a.cfg.GasPriceWei()}
}

func (a *app) deployGas() contract.GasSettings {
	return contract.GasSettings{Limit: a.cfg.DeployGasLimit, Price: a.cfg.DeployGasPriceWei()}
}

func newCompiler(c *config.Config) (compiler.Compiler, error) {
	switch c.Compiler {
	case "", "solc":
		return compiler.Solc{Path: c.SolcPath}, nil
	case "artifacts":
		return compiler.ArtifactDir{Dir: c.ArtifactsIn}, nil
	}
	return nil, fmt.Errorf("unknown compiler %q (want solc or artifacts)", c.Compiler)
}

// loginConfigured unlocks the configured key file, if any. The password
// comes from --keystore_pwd, then the keychain, then a hidden prompt.
func (a *app) loginConfigured(ctx context.Context) error {
	path := a.cfg.KeystoreFile
	if path == "" {
		return errors.New("no key file configured")
	}

	pwd := keystorePwd
	fromKeychain := false
	if pwd == "" {
		if saved, err := a.secrets.Retrieve(path); err == nil {
			pwd, fromKeychain = saved, true
		}
	}
	if pwd == "" {
		var err error
		if pwd, err = readPassword(fmt.Sprintf("Password for %s: ", path)); err != nil {
			return err
		}
	}

	acc, err := wallet.FromKeyFile(path, pwd)
	if err != nil {
		if fromKeychain && errors.Is(err, wallet.ErrWrongPassword) {
			_ = a.secrets.Delete(path)
		}
		return err
	}
	if remember && !fromKeychain {
		if err := a.secrets.Store(path, pwd); err != nil {
			a.log.Warn("could not remember password", "err", err)
		}
	}
	a.disp.SetAccount(acc)
	a.log.Info("account unlocked", "address", acc.Address().Hex(), "keyfile", path)
	return nil
}

// account returns the session account for commands outside the shell.
func (a *app) account(ctx context.Context) (contract.Signer, error) {
	if s, err := a.disp.Account(); err == nil {
		return s, nil
	}
	if err := a.loginConfigured(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", dispatch.ErrNoAccount, err)
	}
	return a.disp.Account()
}
