package deploy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ulordchain/ucwallet/internal/chain"
	"github.com/ulordchain/ucwallet/internal/compiler"
	"github.com/ulordchain/ucwallet/internal/contract"
)

// Chain is what deployment needs from the node.
type Chain interface {
	contract.Backend
	WaitForReceipt(ctx context.Context, hash common.Hash, timeout time.Duration) (*chain.Receipt, error)
}

// Options tunes a deployment run.
type Options struct {
	Gas            contract.GasSettings
	ReceiptTimeout time.Duration
	SettleDelay    time.Duration // pause after each deployment, 0 disables
	SkipActivation bool
}

// Deployment is the outcome for one contract.
type Deployment struct {
	Name    string
	Key     string // compiler output key
	Address common.Address
	TxHash  common.Hash // zero for literal addresses
	GasUsed uint64
	Literal bool
}

// Result is the outcome of a run.
type Result struct {
	Deployments []Deployment
	Table       *AddressTable
	Activation  *Report
}

// Orchestrator deploys a Plan contract by contract.
type Orchestrator struct {
	Compiler      compiler.Compiler
	Chain         Chain
	Transactor    *contract.Transactor
	Store         *contract.ArtifactStore
	AddressesPath string
	Activator     *Activator
	Options       Options
	Log           *log.Logger
}

// Deploy compiles every source of plan in one batch, then deploys the
// contracts in order. Each constructor receives the addresses of its
// dependencies followed by its literal arguments. The address file is
// written once all contracts are deployed; artifacts are written as each
// contract is reached and stay on disk if the run fails.
func (o *Orchestrator) Deploy(ctx context.Context, signer contract.Signer, plan *Plan) (*Result, error) {
	logger := o.logger()
	if len(plan.Order) == 0 {
		return nil, &ConfigError{Msg: `"sortkeys" is empty`}
	}

	table, err := NewAddressTable(signer.Address(), plan.Accounts)
	if err != nil {
		return nil, err
	}

	logger.Info("compiling contracts", "count", len(plan.Order))
	outputs, err := o.Compiler.Compile(ctx, plan.SourcePaths())
	if err != nil {
		return nil, err
	}

	res := &Result{Table: table}
	deployed := make(map[string]common.Address, len(plan.Order))

	for _, name := range plan.Order {
		d, err := o.deployOne(ctx, signer, plan.Specs[name], outputs, table)
		if err != nil {
			return res, err
		}
		table.Set(name, d.Address)
		deployed[name] = d.Address
		res.Deployments = append(res.Deployments, d)

		if !d.Literal {
			if err := sleep(ctx, o.Options.SettleDelay); err != nil {
				return res, err
			}
		}
	}

	if err := contract.WriteAddresses(o.AddressesPath, deployed); err != nil {
		return res, err
	}
	logger.Info("all contracts deployed", "addresses", o.AddressesPath)

	if o.Options.SkipActivation || len(plan.Activations) == 0 || o.Activator == nil {
		return res, nil
	}
	res.Activation = o.Activator.Run(ctx, signer, table, plan.Activations)
	return res, nil
}

func (o *Orchestrator) deployOne(ctx context.Context, signer contract.Signer, spec ContractSpec, outputs map[string]compiler.Output, table *AddressTable) (Deployment, error) {
	logger := o.logger()
	d := Deployment{Name: spec.Name}

	key, out, ok := compiler.Find(outputs, spec.Name)
	if !ok {
		return d, &ConfigError{Contract: spec.Name, Msg: "no compilation result found"}
	}
	d.Key = key
	if err := o.Store.WriteABI(spec.Name, out.ABI); err != nil {
		return d, err
	}
	if err := o.Store.WriteBin(spec.Name, out.Bin); err != nil {
		return d, err
	}

	if spec.Literal != nil {
		d.Address = *spec.Literal
		d.Literal = true
		logger.Info("already deployed, continuing", "contract", spec.Name, "address", d.Address.Hex())
		return d, nil
	}

	args := make([]any, 0, len(spec.DependencyNames)+len(spec.Args))
	for _, dep := range spec.DependencyNames {
		addr, ok := table.Lookup(dep)
		if !ok {
			return d, &ConfigError{Contract: spec.Name, Msg: fmt.Sprintf("cannot find address for dependency %q", dep)}
		}
		args = append(args, addr)
	}
	for _, a := range spec.Args {
		if s, ok := a.(string); ok && common.IsHexAddress(s) {
			a = common.HexToAddress(s)
		}
		args = append(args, a)
	}

	parsed, err := abi.JSON(bytes.NewReader(out.ABI))
	if err != nil {
		return d, fmt.Errorf("parsing ABI of %s: %w", spec.Name, err)
	}
	converted, err := contract.ConvertArgs(parsed.Constructor.Inputs, args)
	if err != nil {
		return d, &ConfigError{Contract: spec.Name, Msg: "constructor arguments", Err: err}
	}

	hash, predicted, err := o.Transactor.Deploy(ctx, signer, parsed, out.Bin, converted, o.Options.Gas)
	if err != nil {
		return d, fmt.Errorf("deploying %s: %w", spec.Name, err)
	}
	d.TxHash = hash
	logger.Info("waiting for receipt", "contract", spec.Name, "tx", hash.Hex())

	receipt, err := o.Chain.WaitForReceipt(ctx, hash, o.Options.ReceiptTimeout)
	if err != nil {
		return d, fmt.Errorf("deploying %s: %w", spec.Name, err)
	}
	d.GasUsed = receipt.GasUsed
	d.Address = receipt.ContractAddress
	if d.Address == (common.Address{}) {
		logger.Warn("receipt has no contract address, using the derived one", "contract", spec.Name)
		d.Address = predicted
	}
	logger.Info("deployed", "contract", spec.Name, "tx", hash.Hex(), "address", d.Address.Hex(), "gas_used", d.GasUsed)
	return d, nil
}

func (o *Orchestrator) logger() *log.Logger {
	if o.Log == nil {
		return log.New(io.Discard)
	}
	return o.Log
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
