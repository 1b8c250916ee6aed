package contract

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"reflect"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ulordchain/ucwallet/internal/chain"
	"github.com/ulordchain/ucwallet/internal/wallet"
)

// Backend is the part of the chain client the Transactor needs.
type Backend interface {
	PendingNonceAt(ctx context.Context, addr common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg chain.CallMsg) (uint64, error)
	SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error)
	CallContract(ctx context.Context, msg chain.CallMsg) ([]byte, error)
}

// Signer signs transactions and owns the nonce sequence of its address.
type Signer interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) ([]byte, error)
	NextNonce(ctx context.Context, src wallet.NonceSource) (uint64, error)
	CommitNonce(nonce uint64)
	ResetNonce()
}

// GasSettings fixes gas for one transaction. A zero Limit is estimated by
// the node and a nil Price is taken from eth_gasPrice.
type GasSettings struct {
	Limit uint64
	Price *big.Int
}

// Transactor builds, signs and broadcasts legacy transactions and runs
// read-only calls.
type Transactor struct {
	backend Backend
	chainID *big.Int
	log     *log.Logger
}

// NewTransactor creates a Transactor. A nil chainID signs without replay
// protection.
func NewTransactor(b Backend, chainID *big.Int, logger *log.Logger) *Transactor {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Transactor{backend: b, chainID: chainID, log: logger}
}

// ChainID returns the chain id used for signing, nil when unprotected.
func (t *Transactor) ChainID() *big.Int { return t.chainID }

// Deploy sends a contract-creation transaction for bin with the packed
// constructor args. It returns the hash and the address the contract will
// have once mined.
func (t *Transactor) Deploy(ctx context.Context, s Signer, parsed abi.ABI, bin string, args []any, gas GasSettings) (common.Hash, common.Address, error) {
	if !strings.HasPrefix(bin, "0x") {
		bin = "0x" + bin
	}
	code, err := hexutil.Decode(bin)
	if err != nil {
		return common.Hash{}, common.Address{}, fmt.Errorf("decoding bytecode: %w", err)
	}
	if len(code) == 0 {
		return common.Hash{}, common.Address{}, fmt.Errorf("bytecode is empty; abstract contracts and interfaces cannot be deployed")
	}
	input, err := parsed.Pack("", args...)
	if err != nil {
		return common.Hash{}, common.Address{}, fmt.Errorf("encoding constructor: %w", err)
	}

	hash, nonce, err := t.send(ctx, s, nil, append(code, input...), nil, gas)
	if err != nil {
		return common.Hash{}, common.Address{}, err
	}
	return hash, crypto.CreateAddress(s.Address(), nonce), nil
}

// Transact sends a state-changing call of fn on dc.
func (t *Transactor) Transact(ctx context.Context, s Signer, dc *DeployedContract, fn string, args []any, value *big.Int, gas GasSettings) (common.Hash, error) {
	data, err := dc.ABI.Pack(fn, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("encoding %s.%s: %w", dc.Name, fn, err)
	}
	to := dc.Address
	hash, _, err := t.send(ctx, s, &to, data, value, gas)
	return hash, err
}

// Transfer sends value wei of the native coin to to.
func (t *Transactor) Transfer(ctx context.Context, s Signer, to common.Address, value *big.Int, gas GasSettings) (common.Hash, error) {
	hash, _, err := t.send(ctx, s, &to, nil, value, gas)
	return hash, err
}

// Call runs fn on dc with eth_call and decodes the outputs.
func (t *Transactor) Call(ctx context.Context, from common.Address, dc *DeployedContract, fn string, args []any) ([]any, error) {
	data, err := dc.ABI.Pack(fn, args...)
	if err != nil {
		return nil, fmt.Errorf("encoding %s.%s: %w", dc.Name, fn, err)
	}
	to := dc.Address
	out, err := t.backend.CallContract(ctx, chain.CallMsg{From: from, To: &to, Data: data})
	if err != nil {
		return nil, err
	}
	values, err := dc.ABI.Unpack(fn, out)
	if err != nil {
		return nil, fmt.Errorf("decoding %s.%s result: %w", dc.Name, fn, err)
	}
	return values, nil
}

func (t *Transactor) send(ctx context.Context, s Signer, to *common.Address, data []byte, value *big.Int, gas GasSettings) (common.Hash, uint64, error) {
	if value == nil {
		value = new(big.Int)
	}
	from := s.Address()

	nonce, err := s.NextNonce(ctx, t.backend)
	if err != nil {
		return common.Hash{}, 0, err
	}

	price := gas.Price
	if price == nil {
		if price, err = t.backend.SuggestGasPrice(ctx); err != nil {
			return common.Hash{}, 0, fmt.Errorf("getting gas price: %w", err)
		}
	}

	limit := gas.Limit
	if limit == 0 {
		limit, err = t.backend.EstimateGas(ctx, chain.CallMsg{From: from, To: to, Data: data, Value: value})
		if err != nil {
			return common.Hash{}, 0, fmt.Errorf("estimating gas: %w", err)
		}
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: price,
		Gas:      limit,
		To:       to,
		Value:    value,
		Data:     data,
	})
	raw, err := s.SignTx(tx, t.chainID)
	if err != nil {
		return common.Hash{}, 0, err
	}

	hash, err := t.backend.SendRawTransaction(ctx, raw)
	if err != nil {
		s.ResetNonce()
		return common.Hash{}, 0, fmt.Errorf("broadcasting transaction: %w", err)
	}
	s.CommitNonce(nonce)

	t.log.Debug("transaction sent", "hash", hash.Hex(), "from", from.Hex(), "nonce", nonce, "gas", limit, "gas_price", price)
	return hash, nonce, nil
}

// FormatValue renders a decoded ABI value for the terminal.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "<nil>"
	case common.Address:
		return val.Hex()
	case common.Hash:
		return val.Hex()
	case *big.Int:
		return val.String()
	case []byte:
		return hexutil.Encode(val)
	case string:
		return val
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			for i := range b {
				b[i] = byte(rv.Index(i).Uint())
			}
			return hexutil.Encode(b)
		}
		fallthrough
	case reflect.Slice:
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = FormatValue(rv.Index(i).Interface())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprint(v)
}
