package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ulordchain/ucwallet/internal/chain"
	"github.com/ulordchain/ucwallet/internal/deploy"
	"github.com/ulordchain/ucwallet/internal/dispatch"
	"github.com/ulordchain/ucwallet/internal/ui"
	"github.com/ulordchain/ucwallet/internal/udfs"
	"github.com/ulordchain/ucwallet/internal/wallet"
)

// Settlement contract used by transfer_tokens.
const (
	settlementContract = "MulTransfer"
	settlementFunction = "mulPayDiff"
)

var readPassword = ui.ReadPassword

// registerBuiltins adds the wallet, chain and file commands to the shell.
func (a *app) registerBuiltins() {
	d := a.disp
	d.Register(dispatch.Builtin{
		Name:  "login_by_key_file",
		Usage: "login_by_key_file <key file> [password]",
		Help:  "Reload the private key file and password",
		Run:   a.loginByKeyFile,
	})
	d.Register(dispatch.Builtin{
		Name:  "login_by_private_key",
		Usage: "login_by_private_key <private key> [wallet password]",
		Help:  "Reload the private key; with a password it is also saved as a key file",
		Run:   a.loginByPrivateKey,
	})
	d.Register(dispatch.Builtin{
		Name:  "create_wallet",
		Usage: "create_wallet <password>",
		Help:  "Create a new wallet",
		Run:   a.createWallet,
	})
	d.Register(dispatch.Builtin{
		Name:  "get_balance",
		Usage: "get_balance [address]",
		Help:  "Get SideChain balance",
		Run:   a.getBalance,
	})
	d.Register(dispatch.Builtin{
		Name:     "transfer_gas",
		Usage:    "transfer_gas <to address> <value wei>",
		Help:     "Send side-chain gas to an address",
		Mutating: true,
		Run:      a.transferGas,
	})
	d.Register(dispatch.Builtin{
		Name:     "transfer_tokens",
		Usage:    "transfer_tokens <addr1,addr2,...> <qty1,qty2,...>",
		Help:     "Multiple address settlement. Data is separated by commas, not spaces",
		Mutating: true,
		Run:      a.transferTokens,
	})
	d.Register(dispatch.Builtin{
		Name:  "deploy_contract",
		Usage: "deploy_contract [deploy config]",
		Help:  "Deploying Ushare contracts",
		Run:   a.deployContract,
	})
	d.Register(dispatch.Builtin{
		Name:  "activate_contract",
		Usage: "activate_contract [deploy config]",
		Help:  "Run the activation calls against the deployed contracts",
		Run:   a.activateContract,
	})
	d.Register(dispatch.Builtin{
		Name:  "status",
		Usage: "status",
		Help:  "Show node, account and session state",
		Run:   a.status,
	})
	d.Register(dispatch.Builtin{
		Name:  "upload",
		Usage: "upload <path>",
		Help:  "Upload the file and get the hash",
		Run:   a.upload,
	})
	d.Register(dispatch.Builtin{
		Name:  "download_hash",
		Usage: "download_hash <hash> [file path]",
		Help:  "Download files from udfs",
		Run:   a.download,
	})
	d.Register(dispatch.Builtin{
		Name:  "set_udfs_ip",
		Usage: "set_udfs_ip <ip> <port>",
		Help:  "Modifying the IP and port of the udfs",
		Run:   a.setUDFS,
	})
	d.Rebuild()
}

func usage(b string) error { return fmt.Errorf("usage: %s", b) }

// ---------------------------------------------------------------------------
// Accounts
// ---------------------------------------------------------------------------

func (a *app) loginByKeyFile(_ context.Context, req dispatch.Request) (*dispatch.Result, error) {
	if len(req.Args) < 1 || len(req.Args) > 2 {
		return nil, usage("login_by_key_file <key file> [password]")
	}
	path := req.Args[0]
	var pwd string
	if len(req.Args) == 2 {
		pwd = req.Args[1]
	} else {
		var err error
		if pwd, err = readPassword(fmt.Sprintf("Password for %s: ", path)); err != nil {
			return nil, err
		}
	}
	acc, err := wallet.FromKeyFile(path, pwd)
	if err != nil {
		return nil, err
	}
	a.disp.SetAccount(acc)
	a.log.Info("account unlocked", "address", acc.Address().Hex(), "keyfile", path)
	return &dispatch.Result{Output: acc.Address().Hex()}, nil
}

func (a *app) loginByPrivateKey(_ context.Context, req dispatch.Request) (*dispatch.Result, error) {
	if len(req.Args) < 1 || len(req.Args) > 2 {
		return nil, usage("login_by_private_key <private key> [wallet password]")
	}
	acc, err := wallet.FromPrivateKey(req.Args[0])
	if err != nil {
		return nil, err
	}
	out := "address:  " + acc.Address().Hex()
	if len(req.Args) == 2 {
		path, err := a.keys.Save(acc, req.Args[1])
		if err != nil {
			return nil, err
		}
		out += "\nkey file: " + path
	}
	a.disp.SetAccount(acc)
	a.log.Info("account unlocked from private key", "address", acc.Address().Hex())
	return &dispatch.Result{Output: out}, nil
}

func (a *app) createWallet(_ context.Context, req dispatch.Request) (*dispatch.Result, error) {
	if len(req.Args) != 1 {
		return nil, usage("create_wallet <password>")
	}
	acc, err := wallet.Generate()
	if err != nil {
		return nil, err
	}
	path, err := a.keys.Save(acc, req.Args[0])
	if err != nil {
		return nil, err
	}
	a.log.Info("wallet created", "address", acc.Address().Hex(), "keyfile", path)
	return &dispatch.Result{Output: fmt.Sprintf("address:  %s\nkey file: %s", acc.Address().Hex(), path)}, nil
}

// ---------------------------------------------------------------------------
// Gas and tokens
// ---------------------------------------------------------------------------

func (a *app) getBalance(ctx context.Context, req dispatch.Request) (*dispatch.Result, error) {
	var addr common.Address
	switch {
	case len(req.Args) > 1:
		return nil, usage("get_balance [address]")
	case len(req.Args) == 1:
		var err error
		if addr, err = parseAddress(req.Args[0]); err != nil {
			return nil, err
		}
	case req.Account == nil:
		return nil, dispatch.ErrNoAccount
	default:
		addr = req.Account.Address()
	}

	wei, err := a.client.BalanceAt(ctx, addr)
	if err != nil {
		return nil, err
	}
	return &dispatch.Result{Output: fmt.Sprintf("%s (%s wei)", chain.WeiToETH(wei), wei)}, nil
}

func (a *app) transferGas(ctx context.Context, req dispatch.Request) (*dispatch.Result, error) {
	if len(req.Args) != 2 {
		return nil, usage("transfer_gas <to address> <value wei>")
	}
	to, err := parseAddress(req.Args[0])
	if err != nil {
		return nil, err
	}
	value, err := parseWei(req.Args[1])
	if err != nil {
		return nil, err
	}
	hash, err := a.tx.Transfer(ctx, req.Account, to, value, a.callGas())
	if err != nil {
		return nil, err
	}
	a.log.Info("gas transfer sent", "to", to.Hex(), "wei", value, "tx", hash.Hex())
	return &dispatch.Result{TxHash: hash, Output: hash.Hex()}, nil
}

func (a *app) transferTokens(ctx context.Context, req dispatch.Request) (*dispatch.Result, error) {
	if len(req.Args) != 2 {
		return nil, usage("transfer_tokens <addr1,addr2,...> <qty1,qty2,...>")
	}
	addrs, err := parseAddressList(req.Args[0])
	if err != nil {
		return nil, err
	}
	amounts, err := parseAmountList(req.Args[1])
	if err != nil {
		return nil, err
	}
	if len(addrs) != len(amounts) {
		return nil, fmt.Errorf("%d addresses but %d quantities", len(addrs), len(amounts))
	}

	dc, err := a.registry.Get(settlementContract)
	if err != nil {
		return nil, err
	}
	hash, err := a.tx.Transact(ctx, req.Account, dc, settlementFunction, []any{addrs, amounts}, nil, a.callGas())
	if err != nil {
		return nil, err
	}
	a.log.Info("settlement sent", "recipients", len(addrs), "tx", hash.Hex())
	return &dispatch.Result{TxHash: hash, Output: hash.Hex()}, nil
}

// ---------------------------------------------------------------------------
// Deployment
// ---------------------------------------------------------------------------

func (a *app) deployContract(ctx context.Context, req dispatch.Request) (*dispatch.Result, error) {
	if req.Account == nil {
		return nil, dispatch.ErrNoAccount
	}
	planPath := a.cfg.DeployConfig
	if len(req.Args) > 0 {
		planPath = req.Args[0]
	}
	var res *deploy.Result
	err := a.busy("Deploying contracts from "+planPath, func() (err error) {
		res, err = a.runDeploy(ctx, req.Account, planPath, a.cfg.SourcesDir, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := a.disp.Reload(); err != nil {
		a.log.Warn("reloading contracts", "err", err)
	}
	return &dispatch.Result{Output: renderDeployment(res)}, nil
}

func (a *app) activateContract(ctx context.Context, req dispatch.Request) (*dispatch.Result, error) {
	if req.Account == nil {
		return nil, dispatch.ErrNoAccount
	}
	planPath := a.cfg.DeployConfig
	if len(req.Args) > 0 {
		planPath = req.Args[0]
	}
	var rep *deploy.Report
	err := a.busy("Running activation calls", func() (err error) {
		rep, err = a.runActivate(ctx, req.Account, planPath)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &dispatch.Result{Output: renderReport(rep)}, nil
}

func (a *app) status(ctx context.Context, req dispatch.Request) (*dispatch.Result, error) {
	pairs := [][2]string{{"Provider", a.cfg.Provider}}

	if latency, block, err := a.client.Ping(ctx); err != nil {
		pairs = append(pairs, [2]string{"Node", "unreachable: " + err.Error()})
	} else {
		pairs = append(pairs,
			[2]string{"Block", fmt.Sprintf("%d (%s)", block, latency.Round(time.Millisecond))},
			[2]string{"Consensus", consensus(ctx, a.client)},
		)
	}
	if id := a.tx.ChainID(); id != nil {
		pairs = append(pairs, [2]string{"Chain ID", id.String()})
	} else {
		pairs = append(pairs, [2]string{"Chain ID", "unknown (unprotected signing)"})
	}
	pairs = append(pairs, [2]string{"Gas price", a.gasPriceLine(ctx)})

	account := "none"
	if req.Account != nil {
		account = req.Account.Address().Hex()
	}
	pairs = append(pairs, [2]string{"Account", account})

	last := "none"
	if h, ok := a.disp.LastTx(); ok {
		last = h.Hex()
	}
	pairs = append(pairs,
		[2]string{"Last tx", last},
		[2]string{"Contracts", contractsLine(a.registry.Names())},
		[2]string{"UDFS", a.files.Endpoint()},
	)
	return &dispatch.Result{Output: ui.KeyValueBlock("ucwallet", pairs)}, nil
}

func (a *app) gasPriceLine(ctx context.Context) string {
	if p := a.cfg.GasPriceWei(); p != nil {
		return fmt.Sprintf("%g gwei (configured)", chain.WeiToGwei(p))
	}
	p, err := a.client.SuggestGasPrice(ctx)
	if err != nil {
		return "unknown: " + err.Error()
	}
	return fmt.Sprintf("%g gwei (node)", chain.WeiToGwei(p))
}

func contractsLine(names []string) string {
	if len(names) == 0 {
		return "0"
	}
	styled := make([]string, len(names))
	for i, n := range names {
		styled[i] = ui.ContractName(n)
	}
	return strconv.Itoa(len(names)) + ": " + strings.Join(styled, ", ")
}

// ---------------------------------------------------------------------------
// Files
// ---------------------------------------------------------------------------

func (a *app) upload(_ context.Context, req dispatch.Request) (*dispatch.Result, error) {
	if len(req.Args) != 1 {
		return nil, usage("upload <path>")
	}
	f, err := a.files.Upload(req.Args[0])
	if err != nil {
		return nil, err
	}
	a.log.Info("file uploaded", "name", f.Name, "hash", f.Hash, "size", f.Size)
	return &dispatch.Result{Output: f.Hash}, nil
}

func (a *app) download(_ context.Context, req dispatch.Request) (*dispatch.Result, error) {
	if len(req.Args) < 1 || len(req.Args) > 2 {
		return nil, usage("download_hash <hash> [file path]")
	}
	out := ""
	if len(req.Args) == 2 {
		out = req.Args[1]
	}
	path, err := a.files.Download(req.Args[0], out)
	if err != nil {
		return nil, err
	}
	return &dispatch.Result{Output: path}, nil
}

func (a *app) setUDFS(_ context.Context, req dispatch.Request) (*dispatch.Result, error) {
	if len(req.Args) != 2 {
		return nil, usage("set_udfs_ip <ip> <port>")
	}
	host := strings.TrimSpace(req.Args[0])
	port, err := strconv.Atoi(req.Args[1])
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid port %q", req.Args[1])
	}
	a.files.Configure(udfs.Endpoint(host, port))
	a.cfg.UDFSHost, a.cfg.UDFSPort = host, port
	return &dispatch.Result{Output: "Success"}, nil
}
