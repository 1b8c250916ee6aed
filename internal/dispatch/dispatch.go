// Package dispatch maps shell command lines to built-in operations or to
// contract functions, and keeps at most one unconfirmed transaction in
// flight per session.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ulordchain/ucwallet/internal/chain"
	"github.com/ulordchain/ucwallet/internal/contract"
)

// Errors.
var (
	ErrNoAccount       = errors.New("no account loaded; use login_by_key_file or login_by_private_key")
	ErrUnknownCommand  = errors.New("unknown command")
	ErrUnknownFunction = errors.New("unknown function")
	ErrMissingFunction = errors.New("missing function name")
)

// MissingFunctionError is returned when a contract name is given without a
// function.
type MissingFunctionError struct {
	Contract string
}

func (e *MissingFunctionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Contract, ErrMissingFunction)
}

// Is makes MissingFunctionError match ErrMissingFunction.
func (e *MissingFunctionError) Is(target error) bool { return target == ErrMissingFunction }

// Command is one entry of the command table: a Builtin or a ContractOp.
type Command interface {
	command()
}

// Builtin is a fixed wallet operation.
type Builtin struct {
	Name     string
	Usage    string
	Help     string
	Mutating bool // sends a transaction; needs an account and a clear gate
	Run      func(ctx context.Context, req Request) (*Result, error)
}

// ContractOp invokes a contract function. An empty Function takes the
// function name from the next token.
type ContractOp struct {
	Contract string
	Function string
}

func (Builtin) command()    {}
func (ContractOp) command() {}

// Request is what a Builtin receives.
type Request struct {
	Args    []string
	Account contract.Signer // nil when no account is loaded
}

// Result is the outcome of one command.
type Result struct {
	Output  string
	TxHash  common.Hash
	Pending bool // refused: TxHash is the still unconfirmed previous transaction
	View    bool
	Values  []any
	Exit    bool
}

// Registry is the set of deployed contracts.
type Registry interface {
	Load() error
	Get(name string) (*contract.DeployedContract, error)
	Names() []string
}

// Invoker runs contract functions.
type Invoker interface {
	Call(ctx context.Context, from common.Address, dc *contract.DeployedContract, fn string, args []any) ([]any, error)
	Transact(ctx context.Context, s contract.Signer, dc *contract.DeployedContract, fn string, args []any, value *big.Int, gas contract.GasSettings) (common.Hash, error)
}

// ReceiptSource looks up receipts; nil means still pending.
type ReceiptSource interface {
	TransactionReceipt(ctx context.Context, hash common.Hash) (*chain.Receipt, error)
}

// Dispatcher owns the session state: the active account, the command table
// and the last transaction.
type Dispatcher struct {
	registry Registry
	invoker  Invoker
	receipts ReceiptSource
	gas      contract.GasSettings
	log      *log.Logger

	builtins map[string]Builtin
	table    map[string]Command

	account  contract.Signer
	lastTx   *common.Hash
	lastDone bool
}

// New creates a Dispatcher with the core built-ins registered.
func New(reg Registry, inv Invoker, receipts ReceiptSource, gas contract.GasSettings, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	d := &Dispatcher{
		registry: reg,
		invoker:  inv,
		receipts: receipts,
		gas:      gas,
		log:      logger,
		builtins: make(map[string]Builtin),
	}
	d.registerCore()
	d.Rebuild()
	return d
}

// Register adds or replaces a built-in. Call Rebuild afterwards.
func (d *Dispatcher) Register(b Builtin) {
	d.builtins[b.Name] = b
}

// Rebuild recomputes the command table from the built-ins and the registry.
// Built-ins win over contract names; a function name becomes a shortcut when
// exactly one contract has it and nothing else is called that.
func (d *Dispatcher) Rebuild() {
	table := make(map[string]Command, len(d.builtins))
	for name, b := range d.builtins {
		table[name] = b
	}

	owners := make(map[string][]string)
	for _, name := range d.registry.Names() {
		if _, taken := table[name]; !taken {
			table[name] = ContractOp{Contract: name}
		}
		dc, err := d.registry.Get(name)
		if err != nil {
			continue
		}
		for _, fn := range dc.FunctionNames() {
			owners[fn] = append(owners[fn], name)
		}
	}
	for fn, cs := range owners {
		if _, taken := table[fn]; taken || len(cs) != 1 {
			continue
		}
		table[fn] = ContractOp{Contract: cs[0], Function: fn}
	}
	d.table = table
}

// Resolve returns the command bound to name.
func (d *Dispatcher) Resolve(name string) (Command, bool) {
	c, ok := d.table[name]
	return c, ok
}

// Names returns every command name, sorted.
func (d *Dispatcher) Names() []string {
	out := make([]string, 0, len(d.table))
	for n := range d.table {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// SetAccount makes s the active account.
func (d *Dispatcher) SetAccount(s contract.Signer) { d.account = s }

// Account returns the active account or ErrNoAccount.
func (d *Dispatcher) Account() (contract.Signer, error) {
	if d.account == nil {
		return nil, ErrNoAccount
	}
	return d.account, nil
}

// LastTx returns the hash of the last transaction sent in this session.
func (d *Dispatcher) LastTx() (common.Hash, bool) {
	if d.lastTx == nil {
		return common.Hash{}, false
	}
	return *d.lastTx, true
}

// Dispatch splits line on whitespace and executes it. Blank lines do nothing.
func (d *Dispatcher) Dispatch(ctx context.Context, line string) (*Result, error) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return &Result{}, nil
	}
	return d.Execute(ctx, tokens)
}

// Execute runs one tokenized command.
func (d *Dispatcher) Execute(ctx context.Context, tokens []string) (*Result, error) {
	cmd, ok := d.table[tokens[0]]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, tokens[0])
	}
	args := tokens[1:]

	switch c := cmd.(type) {
	case Builtin:
		return d.runBuiltin(ctx, c, args)
	case ContractOp:
		fn := c.Function
		if fn == "" {
			if len(args) == 0 {
				return nil, &MissingFunctionError{Contract: c.Contract}
			}
			fn, args = args[0], args[1:]
		}
		return d.Invoke(ctx, c.Contract, fn, args)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, tokens[0])
}

func (d *Dispatcher) runBuiltin(ctx context.Context, b Builtin, args []string) (*Result, error) {
	if !b.Mutating {
		return b.Run(ctx, Request{Args: args, Account: d.account})
	}

	signer, err := d.Account()
	if err != nil {
		return nil, err
	}
	if res, err := d.gate(ctx); res != nil || err != nil {
		return res, err
	}
	res, err := b.Run(ctx, Request{Args: args, Account: signer})
	if err != nil {
		return nil, err
	}
	if res != nil && res.TxHash != (common.Hash{}) {
		d.track(res.TxHash)
	}
	return res, nil
}

// Invoke calls fn on the named contract with shell tokens as arguments.
// View functions are answered with eth_call and never touch the
// pending-transaction gate.
func (d *Dispatcher) Invoke(ctx context.Context, contractName, fn string, tokens []string) (*Result, error) {
	dc, err := d.registry.Get(contractName)
	if err != nil {
		return nil, err
	}
	spec, ok := dc.Function(fn)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no function %s", ErrUnknownFunction, contractName, fn)
	}

	if spec.IsView {
		args, err := contract.Coerce(tokens, spec.Inputs)
		if err != nil {
			return nil, err
		}
		var from common.Address
		if d.account != nil {
			from = d.account.Address()
		}
		values, err := d.invoker.Call(ctx, from, dc, fn, args)
		if err != nil {
			return nil, err
		}
		return &Result{View: true, Values: values, Output: formatValues(values)}, nil
	}

	signer, err := d.Account()
	if err != nil {
		return nil, err
	}
	if res, err := d.gate(ctx); res != nil || err != nil {
		return res, err
	}
	args, err := contract.Coerce(tokens, spec.Inputs)
	if err != nil {
		return nil, err
	}
	hash, err := d.invoker.Transact(ctx, signer, dc, fn, args, nil, d.gas)
	if err != nil {
		return nil, err
	}
	d.track(hash)
	d.log.Info("contract call sent", "contract", contractName, "function", fn, "tx", hash.Hex())
	return &Result{TxHash: hash, Output: hash.Hex()}, nil
}

// gate returns a Pending result while the last transaction has no receipt.
func (d *Dispatcher) gate(ctx context.Context) (*Result, error) {
	if d.lastTx == nil || d.lastDone {
		return nil, nil
	}
	receipt, err := d.receipts.TransactionReceipt(ctx, *d.lastTx)
	if err != nil {
		return nil, fmt.Errorf("checking last transaction: %w", err)
	}
	if receipt == nil {
		d.log.Warn("refused: last transaction unconfirmed", "tx", d.lastTx.Hex())
		return &Result{
			Pending: true,
			TxHash:  *d.lastTx,
			Output:  "The last transaction is not confirmed yet: " + d.lastTx.Hex(),
		}, nil
	}
	d.lastDone = true
	return nil, nil
}

func (d *Dispatcher) track(hash common.Hash) {
	d.lastTx = &hash
	d.lastDone = false
}

// Complete proposes the next token for a partially typed line.
func (d *Dispatcher) Complete(tokens []string) []string {
	if len(tokens) <= 1 {
		return d.Names()
	}
	if len(tokens) == 2 {
		if op, ok := d.table[tokens[0]].(ContractOp); ok && op.Function == "" {
			if dc, err := d.registry.Get(op.Contract); err == nil {
				return dc.FunctionNames()
			}
		}
	}
	return nil
}

func formatValues(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = contract.FormatValue(v)
	}
	return strings.Join(parts, "\n")
}
