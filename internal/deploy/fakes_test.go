package deploy

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"github.com/ulordchain/ucwallet/internal/chain"
	"github.com/ulordchain/ucwallet/internal/compiler"
	"github.com/ulordchain/ucwallet/internal/contract"
	"github.com/ulordchain/ucwallet/internal/wallet"
)

const (
	testPrivKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

	abiA = `[{"type":"constructor","inputs":[],"stateMutability":"nonpayable"}]`
	abiB = `[{"type":"constructor","inputs":[{"name":"a","type":"address"},{"name":"n","type":"uint256"}],"stateMutability":"nonpayable"}]`
	abiS = `[{"type":"constructor","inputs":[{"name":"label","type":"string"}],"stateMutability":"nonpayable"}]`
	abiW = `[
	  {"type":"constructor","inputs":[],"stateMutability":"nonpayable"},
	  {"type":"function","name":"mulInsertWhite","inputs":[{"name":"addrs","type":"address[]"}],"outputs":[],"stateMutability":"nonpayable"},
	  {"type":"function","name":"setLimit","inputs":[{"name":"who","type":"address"},{"name":"limit","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
	  {"type":"event","name":"Refused","anonymous":false,"inputs":[{"indexed":false,"name":"who","type":"address"}]},
	  {"type":"event","name":"Added","anonymous":false,"inputs":[{"indexed":false,"name":"who","type":"address"}]}
	]`

	binA = "0x6001"
	binB = "0x6002"
	binW = "0x6003"
	binS = "0x6004"
)

var testChainID = big.NewInt(1337)

type fakeCompiler struct {
	outputs map[string]compiler.Output
	err     error
	paths   []string
}

func (f *fakeCompiler) Compile(_ context.Context, paths []string) (map[string]compiler.Output, error) {
	f.paths = paths
	return f.outputs, f.err
}

func standardOutputs() map[string]compiler.Output {
	return map[string]compiler.Output{
		"sols/A.sol:A": {ABI: []byte(abiA), Bin: binA},
		"sols/B.sol:B": {ABI: []byte(abiB), Bin: binB},
		"sols/W.sol:W": {ABI: []byte(abiW), Bin: binW},
		"sols/S.sol:S": {ABI: []byte(abiS), Bin: binS},
	}
}

// fakeChain mines every transaction immediately. Contract creations get the
// address derived from sender and nonce.
type fakeChain struct {
	sent     []*types.Transaction
	receipts map[common.Hash]*chain.Receipt
	// outcome decides status and logs for a mined transaction.
	outcome func(tx *types.Transaction, to common.Address) (uint64, []chain.Log)
}

func newFakeChain() *fakeChain {
	return &fakeChain{receipts: make(map[common.Hash]*chain.Receipt)}
}

func (f *fakeChain) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return uint64(len(f.sent)), nil
}

func (f *fakeChain) SuggestGasPrice(context.Context) (*big.Int, error) { return big.NewInt(1), nil }

func (f *fakeChain) EstimateGas(context.Context, chain.CallMsg) (uint64, error) { return 100_000, nil }

func (f *fakeChain) CallContract(context.Context, chain.CallMsg) ([]byte, error) { return nil, nil }

func (f *fakeChain) SendRawTransaction(_ context.Context, raw []byte) (common.Hash, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, err
	}
	from, err := types.Sender(types.NewEIP155Signer(testChainID), tx)
	if err != nil {
		return common.Hash{}, err
	}
	f.sent = append(f.sent, tx)

	r := &chain.Receipt{TxHash: tx.Hash(), Status: 1, GasUsed: 21_000}
	var to common.Address
	if tx.To() == nil {
		r.ContractAddress = crypto.CreateAddress(from, tx.Nonce())
		to = r.ContractAddress
	} else {
		to = *tx.To()
	}
	if f.outcome != nil {
		r.Status, r.Logs = f.outcome(tx, to)
	}
	f.receipts[tx.Hash()] = r
	return tx.Hash(), nil
}

func (f *fakeChain) WaitForReceipt(_ context.Context, hash common.Hash, _ time.Duration) (*chain.Receipt, error) {
	r, ok := f.receipts[hash]
	if !ok {
		return nil, chain.ErrReceiptTimeout
	}
	if !r.Succeeded() {
		return r, chain.ErrReverted
	}
	return r, nil
}

type harness struct {
	orch     *Orchestrator
	chain    *fakeChain
	compiler *fakeCompiler
	store    *contract.ArtifactStore
	account  *wallet.Account
	addrFile string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	acc, err := wallet.FromPrivateKey(testPrivKeyHex)
	require.NoError(t, err)

	dir := t.TempDir()
	ch := newFakeChain()
	comp := &fakeCompiler{outputs: standardOutputs()}
	store := contract.NewArtifactStore(filepath.Join(dir, "artifacts"))
	tr := contract.NewTransactor(ch, testChainID, nil)
	gas := contract.GasSettings{Limit: 6_700_000, Price: big.NewInt(25e9)}

	h := &harness{
		chain:    ch,
		compiler: comp,
		store:    store,
		account:  acc,
		addrFile: filepath.Join(dir, "contractAddresses.json"),
	}
	h.orch = &Orchestrator{
		Compiler:      comp,
		Chain:         ch,
		Transactor:    tr,
		Store:         store,
		AddressesPath: h.addrFile,
		Activator: &Activator{
			Chain:          ch,
			Transactor:     tr,
			Store:          store,
			Gas:            contract.GasSettings{Limit: 6_800_000, Price: big.NewInt(2e9)},
			ReceiptTimeout: time.Second,
			FailureEvents:  []string{"Refused"},
		},
		Options: Options{Gas: gas, ReceiptTimeout: time.Second},
	}
	return h
}

func mustPlan(t *testing.T, cfg string) *Plan {
	t.Helper()
	p, err := ParsePlan([]byte(cfg), "sols")
	require.NoError(t, err)
	return p
}
