package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Errors.
var (
	ErrInvalidKey    = errors.New("invalid private key")
	ErrWrongPassword = errors.New("could not decrypt key file with the given password")
)

// Account is an unlocked signing key. It also owns the nonce sequence of
// its address, so every transaction it signs gets a fresh nonce even when
// the node has not yet indexed the previous one.
type Account struct {
	key     *ecdsa.PrivateKey
	address common.Address
	nonces  NonceTracker
	keyFile string
}

// FromPrivateKey unlocks an account from a hex private key (0x optional).
func FromPrivateKey(hexKey string) (*Account, error) {
	privKey, err := crypto.HexToECDSA(normaliseHexKey(hexKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return newAccount(privKey), nil
}

// FromKeyFile decrypts a Web3 secret-storage key file.
func FromKeyFile(path, password string) (*Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}
	key, err := keystore.DecryptKey(data, password)
	if errors.Is(err, keystore.ErrDecrypt) {
		return nil, ErrWrongPassword
	}
	if err != nil {
		return nil, fmt.Errorf("decrypting key file %s: %w", path, err)
	}
	a := newAccount(key.PrivateKey)
	a.keyFile = path
	return a, nil
}

// Generate creates an account with a fresh random key.
func Generate() (*Account, error) {
	privKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}
	return newAccount(privKey), nil
}

func newAccount(key *ecdsa.PrivateKey) *Account {
	return &Account{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}
}

// Address returns the checksum address of the account.
func (a *Account) Address() common.Address {
	return a.address
}

// KeyFile returns the key file the account was loaded from or saved to, if any.
func (a *Account) KeyFile() string {
	return a.keyFile
}

// PrivateKeyHex exports the private key as 0x-prefixed hex.
func (a *Account) PrivateKeyHex() string {
	return "0x" + common.Bytes2Hex(crypto.FromECDSA(a.key))
}

// SignTx signs an EVM transaction and returns the raw signed bytes. A nil or
// zero chainID signs without replay protection.
func (a *Account) SignTx(tx *types.Transaction, chainID *big.Int) ([]byte, error) {
	var signer types.Signer = types.HomesteadSigner{}
	if chainID != nil && chainID.Sign() > 0 {
		signer = types.NewEIP155Signer(chainID)
	}
	signed, err := types.SignTx(tx, signer, a.key)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}

	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshaling signed tx: %w", err)
	}

	return raw, nil
}

// NextNonce returns the nonce for the next transaction.
func (a *Account) NextNonce(ctx context.Context, src NonceSource) (uint64, error) {
	return a.nonces.Next(ctx, src, a.address)
}

// CommitNonce records that nonce was broadcast.
func (a *Account) CommitNonce(nonce uint64) {
	a.nonces.Commit(nonce)
}

// ResetNonce drops the local sequence; the next nonce comes from the node.
func (a *Account) ResetNonce() {
	a.nonces.Reset()
}

// KeyDir stores accounts as encrypted key files.
type KeyDir struct {
	ks *keystore.KeyStore
}

// NewKeyDir opens dir as a key-file directory. light selects cheaper scrypt
// parameters, meant for tests.
func NewKeyDir(dir string, light bool) *KeyDir {
	n, p := keystore.StandardScryptN, keystore.StandardScryptP
	if light {
		n, p = keystore.LightScryptN, keystore.LightScryptP
	}
	return &KeyDir{ks: keystore.NewKeyStore(dir, n, p)}
}

// Save encrypts a with password and returns the key-file path. Saving an
// account that is already present returns the existing file.
func (k *KeyDir) Save(a *Account, password string) (string, error) {
	acc, err := k.ks.ImportECDSA(a.key, password)
	if errors.Is(err, keystore.ErrAccountAlreadyExists) {
		acc, err = k.ks.Find(accounts.Account{Address: a.address})
	}
	if err != nil {
		return "", fmt.Errorf("saving key file: %w", err)
	}
	a.keyFile = acc.URL.Path
	return acc.URL.Path, nil
}

// Addresses lists the accounts stored in the directory.
func (k *KeyDir) Addresses() []common.Address {
	accs := k.ks.Accounts()
	out := make([]common.Address, 0, len(accs))
	for _, acc := range accs {
		out = append(out, acc.Address)
	}
	return out
}

// normaliseHexKey trims whitespace and a 0x/0X prefix.
func normaliseHexKey(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s[2:]
	}
	return s
}
