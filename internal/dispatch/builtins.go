package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ulordchain/ucwallet/internal/chain"
	"github.com/ulordchain/ucwallet/internal/contract"
)

// registerCore installs the built-ins that only need the session itself.
func (d *Dispatcher) registerCore() {
	d.Register(Builtin{
		Name:  "help",
		Usage: "help [command|contract]",
		Help:  "Print help info",
		Run: func(_ context.Context, req Request) (*Result, error) {
			if len(req.Args) > 0 {
				return d.helpFor(req.Args[0])
			}
			return &Result{Output: d.Help()}, nil
		},
	})
	d.Register(Builtin{
		Name:  "exit",
		Usage: "exit",
		Help:  "Leave the wallet",
		Run: func(context.Context, Request) (*Result, error) {
			return &Result{Exit: true}, nil
		},
	})
	d.Register(Builtin{
		Name:  "contract",
		Usage: "contract <name> <function> [params...]",
		Help:  "Call contract",
		Run: func(ctx context.Context, req Request) (*Result, error) {
			switch len(req.Args) {
			case 0:
				return nil, fmt.Errorf("usage: contract <name> <function> [params...]")
			case 1:
				if _, err := d.registry.Get(req.Args[0]); err != nil {
					return nil, err
				}
				return nil, &MissingFunctionError{Contract: req.Args[0]}
			}
			return d.Invoke(ctx, req.Args[0], req.Args[1], req.Args[2:])
		},
	})
	d.Register(Builtin{
		Name:  "get_receipt",
		Usage: "get_receipt <tx hash>",
		Help:  "Obtain receipt of transaction",
		Run: func(ctx context.Context, req Request) (*Result, error) {
			if len(req.Args) != 1 {
				return nil, fmt.Errorf("usage: get_receipt <tx hash>")
			}
			raw := req.Args[0]
			if len(strings.TrimPrefix(raw, "0x")) != 2*common.HashLength {
				return nil, fmt.Errorf("invalid transaction hash %q", raw)
			}
			return d.receiptResult(ctx, common.HexToHash(raw))
		},
	})
	d.Register(Builtin{
		Name:  "get_last_receipt",
		Usage: "get_last_receipt",
		Help:  "Get the details of the last contract call",
		Run: func(ctx context.Context, _ Request) (*Result, error) {
			hash, ok := d.LastTx()
			if !ok {
				return &Result{Output: "no transaction sent in this session"}, nil
			}
			return d.receiptResult(ctx, hash)
		},
	})
	d.Register(Builtin{
		Name:  "reload",
		Usage: "reload",
		Help:  "Reload deployed contracts",
		Run: func(context.Context, Request) (*Result, error) {
			if err := d.Reload(); err != nil {
				return nil, err
			}
			return &Result{Output: fmt.Sprintf("%d contracts loaded", len(d.registry.Names()))}, nil
		},
	})
}

// Reload re-reads the registry and rebuilds the command table. A missing
// deployment is not an error here; the table then holds only built-ins.
func (d *Dispatcher) Reload() error {
	err := d.registry.Load()
	d.Rebuild()
	if errors.Is(err, contract.ErrNoDeployment) {
		return nil
	}
	return err
}

func (d *Dispatcher) receiptResult(ctx context.Context, hash common.Hash) (*Result, error) {
	r, err := d.receipts.TransactionReceipt(ctx, hash)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return &Result{TxHash: hash, Pending: true, Output: hash.Hex() + " is pending or unknown"}, nil
	}
	return &Result{TxHash: hash, Output: FormatReceipt(r)}, nil
}

// FormatReceipt renders a receipt as aligned key/value lines.
func FormatReceipt(r *chain.Receipt) string {
	status := "success"
	if !r.Succeeded() {
		status = "reverted"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "hash:     %s\n", r.TxHash.Hex())
	fmt.Fprintf(&b, "status:   %s\n", status)
	fmt.Fprintf(&b, "block:    %d\n", r.BlockNumber)
	fmt.Fprintf(&b, "gas used: %d\n", r.GasUsed)
	if r.ContractAddress != (common.Address{}) {
		fmt.Fprintf(&b, "contract: %s\n", r.ContractAddress.Hex())
	}
	fmt.Fprintf(&b, "logs:     %d", len(r.Logs))
	return b.String()
}

// Help lists the built-ins followed by the deployed contracts.
func (d *Dispatcher) Help() string {
	names := make([]string, 0, len(d.builtins))
	for n := range d.builtins {
		names = append(names, n)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Commands:\n")
	for _, n := range names {
		fmt.Fprintf(&b, "  %-22s %s\n", n, d.builtins[n].Help)
	}
	contracts := d.registry.Names()
	if len(contracts) > 0 {
		b.WriteString("Contracts (help <contract> for functions):\n")
		for _, c := range contracts {
			fmt.Fprintf(&b, "  %s\n", c)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (d *Dispatcher) helpFor(name string) (*Result, error) {
	if b, ok := d.builtins[name]; ok {
		return &Result{Output: fmt.Sprintf("%s\n  %s", b.Usage, b.Help)}, nil
	}
	dc, err := d.registry.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s at %s\n", dc.Name, dc.Address.Hex())
	for _, fn := range dc.FunctionNames() {
		spec, _ := dc.Function(fn)
		kind := ""
		if spec.IsView {
			kind = " (view)"
		}
		fmt.Fprintf(&b, "  %s %s %s%s\n", spec.Selector(), fn, spec.Usage(), kind)
	}
	return &Result{Output: strings.TrimRight(b.String(), "\n")}, nil
}
