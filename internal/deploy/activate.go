package deploy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ulordchain/ucwallet/internal/chain"
	"github.com/ulordchain/ucwallet/internal/contract"
)

// ErrActivationFailed marks a call whose receipt reports failure.
var ErrActivationFailed = errors.New("activation failed")

// CallReport is the outcome of one activation call.
type CallReport struct {
	Call
	TxHash common.Hash
	Events []string
	Err    error
}

// Report collects the outcome of an activation run.
type Report struct {
	Calls []CallReport
}

// Failed returns the number of calls that did not succeed.
func (r *Report) Failed() int {
	n := 0
	for _, c := range r.Calls {
		if c.Err != nil {
			n++
		}
	}
	return n
}

// Activator sends the post-deployment calls of a plan, one at a time.
type Activator struct {
	Chain          Chain
	Transactor     *contract.Transactor
	Store          *contract.ArtifactStore
	Gas            contract.GasSettings
	ReceiptTimeout time.Duration
	// FailureEvents are event names that mark a call as failed when the
	// called contract emits them.
	FailureEvents []string
	Log           *log.Logger
}

// Run sends every call and waits for its receipt before the next. Failed
// calls are logged and recorded; the run goes on until all calls are tried
// or ctx is done.
func (a *Activator) Run(ctx context.Context, signer contract.Signer, table *AddressTable, calls []Call) *Report {
	logger := a.Log
	if logger == nil {
		logger = log.New(io.Discard)
	}

	rep := &Report{}
	for _, c := range calls {
		if err := ctx.Err(); err != nil {
			rep.Calls = append(rep.Calls, CallReport{Call: c, Err: err})
			continue
		}
		cr := a.runOne(ctx, signer, table, c)
		if cr.Err != nil {
			logger.Error("activation failed", "contract", c.Contract, "function", c.Function, "tx", cr.TxHash.Hex(), "err", cr.Err)
		} else {
			logger.Info("activation succeeded", "contract", c.Contract, "function", c.Function, "tx", cr.TxHash.Hex())
		}
		rep.Calls = append(rep.Calls, cr)
	}
	return rep
}

func (a *Activator) runOne(ctx context.Context, signer contract.Signer, table *AddressTable, c Call) CallReport {
	cr := CallReport{Call: c}

	addr, ok := table.Lookup(c.Contract)
	if !ok {
		cr.Err = fmt.Errorf("no address for contract %s", c.Contract)
		return cr
	}
	abiJSON, err := a.Store.ReadABI(c.Contract)
	if err != nil {
		cr.Err = err
		return cr
	}
	dc, err := contract.NewDeployedContract(c.Contract, addr, abiJSON)
	if err != nil {
		cr.Err = err
		return cr
	}
	method, ok := dc.ABI.Methods[c.Function]
	if !ok {
		cr.Err = fmt.Errorf("%s has no function %s", c.Contract, c.Function)
		return cr
	}

	raw := make([]any, len(c.Args))
	for i, v := range c.Args {
		raw[i] = table.Substitute(v)
	}
	args, err := contract.ConvertArgs(method.Inputs, raw)
	if err != nil {
		cr.Err = err
		return cr
	}

	cr.TxHash, err = a.Transactor.Transact(ctx, signer, dc, c.Function, args, nil, a.Gas)
	if err != nil {
		cr.Err = err
		return cr
	}
	receipt, err := a.Chain.WaitForReceipt(ctx, cr.TxHash, a.ReceiptTimeout)
	if receipt != nil {
		cr.Events = eventNames(dc, receipt.Logs)
	}
	if err != nil {
		cr.Err = err
		return cr
	}

	for _, ev := range cr.Events {
		for _, bad := range a.FailureEvents {
			if ev == bad {
				cr.Err = fmt.Errorf("%w: %s emitted %s", ErrActivationFailed, c.Contract, ev)
				return cr
			}
		}
	}
	return cr
}

// eventNames decodes the names of the logs emitted by dc itself.
func eventNames(dc *contract.DeployedContract, logs []chain.Log) []string {
	var out []string
	for _, l := range logs {
		if l.Address != dc.Address || len(l.Topics) == 0 {
			continue
		}
		if name, ok := dc.EventName(l.Topics[0]); ok {
			out = append(out, name)
		}
	}
	return out
}
