package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Errors.
var (
	ErrRPC            = errors.New("RPC error")
	ErrReceiptTimeout = errors.New("receipt not observed before timeout")
	ErrReverted       = errors.New("transaction reverted")
	ErrExtraData      = errors.New("block extra-data longer than 32 bytes; enable proof-of-authority mode")
)

// Proof-of-authority extra-data layout: 32 bytes of vanity followed by a 65-byte seal.
const (
	extraVanity = 32
	extraSeal   = 65
)

// EVMClient is a minimal JSON-RPC client for EVM chains.
type EVMClient struct {
	url          string
	client       *http.Client
	poa          bool
	pollInterval time.Duration
}

// Option configures an EVMClient.
type Option func(*EVMClient)

// WithPOA enables proof-of-authority block handling.
func WithPOA(on bool) Option {
	return func(c *EVMClient) { c.poa = on }
}

// WithPollInterval sets how often WaitForReceipt polls the node.
func WithPollInterval(d time.Duration) Option {
	return func(c *EVMClient) { c.pollInterval = d }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *EVMClient) { c.client = hc }
}

// NewEVMClient creates a new EVM JSON-RPC client pointed at url.
func NewEVMClient(url string, opts ...Option) *EVMClient {
	c := &EVMClient{
		url: url,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		pollInterval: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the endpoint the client talks to.
func (c *EVMClient) URL() string { return c.url }

// POA reports whether proof-of-authority block handling is on.
func (c *EVMClient) POA() bool { return c.poa }

// CallMsg describes a read-only call or a gas estimation request.
type CallMsg struct {
	From  common.Address
	To    *common.Address // nil for contract creation
	Data  []byte
	Value *big.Int
	Gas   uint64
}

func (m CallMsg) toArg() map[string]interface{} {
	arg := map[string]interface{}{
		"from": m.From.Hex(),
	}
	if m.To != nil {
		arg["to"] = m.To.Hex()
	}
	if len(m.Data) > 0 {
		arg["data"] = hexutil.Encode(m.Data)
	}
	if m.Value != nil && m.Value.Sign() > 0 {
		arg["value"] = hexutil.EncodeBig(m.Value)
	}
	if m.Gas > 0 {
		arg["gas"] = hexutil.EncodeUint64(m.Gas)
	}
	return arg
}

// BalanceAt returns the latest native balance of addr in wei.
func (c *EVMClient) BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error) {
	return c.callBig(ctx, "balance", "eth_getBalance", addr.Hex(), "latest")
}

// PendingNonceAt returns the transaction count of addr including pending
// transactions, using the "pending" block tag.
func (c *EVMClient) PendingNonceAt(ctx context.Context, addr common.Address) (uint64, error) {
	return c.callUint(ctx, "pending nonce", "eth_getTransactionCount", addr.Hex(), "pending")
}

// SendRawTransaction broadcasts a signed raw transaction.
func (c *EVMClient) SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error) {
	var hash common.Hash
	if err := c.callInto(ctx, &hash, "eth_sendRawTransaction", hexutil.Encode(raw)); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

// EstimateGas estimates gas for a call or a contract creation.
func (c *EVMClient) EstimateGas(ctx context.Context, msg CallMsg) (uint64, error) {
	return c.callUint(ctx, "gas estimate", "eth_estimateGas", msg.toArg())
}

// SuggestGasPrice returns the node's current gas price.
func (c *EVMClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return c.callBig(ctx, "gas price", "eth_gasPrice")
}

// ChainID returns the chain's ID.
func (c *EVMClient) ChainID(ctx context.Context) (*big.Int, error) {
	return c.callBig(ctx, "chain id", "eth_chainId")
}

// BlockNumber returns the latest block number.
func (c *EVMClient) BlockNumber(ctx context.Context) (uint64, error) {
	return c.callUint(ctx, "block number", "eth_blockNumber")
}

// CallContract executes a read-only call and returns the raw return data.
func (c *EVMClient) CallContract(ctx context.Context, msg CallMsg) ([]byte, error) {
	var out hexutil.Bytes
	if err := c.callInto(ctx, &out, "eth_call", msg.toArg(), "latest"); err != nil {
		return nil, err
	}
	return out, nil
}

// Log is one event log attached to a receipt.
type Log struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
}

// Receipt is the on-chain receipt of a mined transaction.
type Receipt struct {
	TxHash          common.Hash
	Status          uint64 // 1 = success, 0 = reverted
	BlockNumber     uint64
	GasUsed         uint64
	ContractAddress common.Address // zero unless a contract was created
	Logs            []Log
}

// Succeeded reports whether the transaction executed without reverting.
func (r *Receipt) Succeeded() bool { return r.Status == 1 }

type rawLog struct {
	Address common.Address `json:"address"`
	Topics  []common.Hash  `json:"topics"`
	Data    hexutil.Bytes  `json:"data"`
}

type rawReceipt struct {
	TxHash          common.Hash     `json:"transactionHash"`
	Status          *hexutil.Uint64 `json:"status"`
	BlockNumber     *hexutil.Big    `json:"blockNumber"`
	GasUsed         *hexutil.Uint64 `json:"gasUsed"`
	ContractAddress *string         `json:"contractAddress"`
	Logs            []rawLog        `json:"logs"`
}

// TransactionReceipt fetches the receipt for hash.
// Returns nil, nil if the transaction is still pending.
func (c *EVMClient) TransactionReceipt(ctx context.Context, hash common.Hash) (*Receipt, error) {
	var raw *rawReceipt
	if err := c.callInto(ctx, &raw, "eth_getTransactionReceipt", hash.Hex()); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil // still pending
	}

	// Receipts from before status codes existed carry only a state root.
	r := &Receipt{TxHash: hash, Status: 1}
	if raw.Status != nil {
		r.Status = uint64(*raw.Status)
	}
	if raw.BlockNumber != nil {
		r.BlockNumber = raw.BlockNumber.ToInt().Uint64()
	}
	if raw.GasUsed != nil {
		r.GasUsed = uint64(*raw.GasUsed)
	}
	if raw.ContractAddress != nil && common.IsHexAddress(*raw.ContractAddress) {
		r.ContractAddress = common.HexToAddress(*raw.ContractAddress)
	}
	for _, l := range raw.Logs {
		r.Logs = append(r.Logs, Log{Address: l.Address, Topics: l.Topics, Data: l.Data})
	}
	return r, nil
}

// WaitForReceipt polls until the transaction is mined, timeout expires or
// ctx is cancelled. A reverted transaction returns its receipt together
// with ErrReverted.
func (c *EVMClient) WaitForReceipt(ctx context.Context, hash common.Hash, timeout time.Duration) (*Receipt, error) {
	deadline := time.Now().Add(timeout)
	for {
		receipt, err := c.TransactionReceipt(ctx, hash)
		if err != nil {
			return nil, err
		}
		if receipt != nil {
			if !receipt.Succeeded() {
				return receipt, fmt.Errorf("%w (hash: %s)", ErrReverted, hash.Hex())
			}
			return receipt, nil
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%w: %s not mined within %s", ErrReceiptTimeout, hash.Hex(), timeout)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

// Block is the header data ucwallet reads from the chain.
type Block struct {
	Number    uint64
	Hash      common.Hash
	Timestamp uint64
	ExtraData []byte
	// Set only in proof-of-authority mode.
	Vanity []byte
	Seal   []byte
}

type rawBlock struct {
	Number    hexutil.Uint64 `json:"number"`
	Hash      common.Hash    `json:"hash"`
	Timestamp hexutil.Uint64 `json:"timestamp"`
	ExtraData hexutil.Bytes  `json:"extraData"`
}

// LatestBlock returns the latest block header. In strict mode a block whose
// extra-data exceeds 32 bytes is rejected, as proof-of-authority chains put
// the signer seal there.
func (c *EVMClient) LatestBlock(ctx context.Context) (*Block, error) {
	var raw *rawBlock
	if err := c.callInto(ctx, &raw, "eth_getBlockByNumber", "latest", false); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("latest block not available")
	}

	b := &Block{
		Number:    uint64(raw.Number),
		Hash:      raw.Hash,
		Timestamp: uint64(raw.Timestamp),
		ExtraData: raw.ExtraData,
	}
	if len(b.ExtraData) <= extraVanity {
		return b, nil
	}
	if !c.poa {
		return nil, fmt.Errorf("%w (block %d has %d bytes)", ErrExtraData, b.Number, len(b.ExtraData))
	}
	b.Vanity = b.ExtraData[:extraVanity]
	if len(b.ExtraData) >= extraVanity+extraSeal {
		b.Seal = b.ExtraData[len(b.ExtraData)-extraSeal:]
	}
	return b, nil
}

// Ping tests the RPC endpoint and returns latency + block number.
func (c *EVMClient) Ping(ctx context.Context) (latency time.Duration, blockNum uint64, err error) {
	start := time.Now()
	blockNum, err = c.BlockNumber(ctx)
	return time.Since(start), blockNum, err
}

// --- internal JSON-RPC plumbing ---

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *EVMClient) call(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	if params == nil {
		params = []interface{}{}
	}
	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("RPC request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	if rpcResp.Error != nil {
		return nil, fmt.Errorf("%w %d: %s", ErrRPC, rpcResp.Error.Code, rpcResp.Error.Message)
	}
	return rpcResp.Result, nil
}

func (c *EVMClient) callInto(ctx context.Context, out interface{}, method string, params ...interface{}) error {
	result, err := c.call(ctx, method, params...)
	if err != nil {
		return err
	}
	if len(result) == 0 {
		result = json.RawMessage("null")
	}
	if err := json.Unmarshal(result, out); err != nil {
		return fmt.Errorf("parsing %s result: %w", method, err)
	}
	return nil
}

func (c *EVMClient) callBig(ctx context.Context, what, method string, params ...interface{}) (*big.Int, error) {
	var s string
	if err := c.callInto(ctx, &s, method, params...); err != nil {
		return nil, err
	}
	n, ok := parseBigHex(s)
	if !ok {
		return nil, fmt.Errorf("could not parse %s: %s", what, s)
	}
	return n, nil
}

func (c *EVMClient) callUint(ctx context.Context, what, method string, params ...interface{}) (uint64, error) {
	n, err := c.callBig(ctx, what, method, params...)
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("%s out of range: %s", what, n)
	}
	return n.Uint64(), nil
}

// --- math helpers ---

var (
	eth1  = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	gwei1 = new(big.Float).SetInt(big.NewInt(1_000_000_000))
)

// WeiToETH converts a wei amount to an ether decimal string.
func WeiToETH(wei *big.Int) string { return weiToETH(wei) }

func weiToETH(wei *big.Int) string {
	f := new(big.Float).SetInt(wei)
	f.Quo(f, eth1)
	return f.Text('f', 18)
}

// WeiToGwei converts a wei amount to gwei.
func WeiToGwei(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	f := new(big.Float).SetInt(wei)
	f.Quo(f, gwei1)
	v, _ := f.Float64()
	return v
}

func parseBigHex(s string) (*big.Int, bool) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return new(big.Int), true
	}
	return new(big.Int).SetString(s, 16)
}
