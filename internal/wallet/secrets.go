package wallet

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"

	"github.com/99designs/keyring"
	"golang.org/x/crypto/sha3"
)

const keychainService = "ucwallet"

// ErrSecretNotFound is returned when no password is remembered for a key file.
var ErrSecretNotFound = errors.New("secret not found")

// Secrets remembers key-file passwords so login does not prompt every time.
type Secrets interface {
	Store(keyFile, password string) error
	Retrieve(keyFile string) (string, error)
	Delete(keyFile string) error
}

// Keyring stores passwords in the OS keychain.
type Keyring struct {
	ring keyring.Keyring
}

// DefaultKeyring returns a Keyring backed by the OS keychain. fileDir is
// used by the encrypted-file fallback on hosts without a keychain.
func DefaultKeyring(fileDir string) *Keyring {
	cfg := keyring.Config{
		ServiceName:              keychainService,
		KeychainTrustApplication: true,
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.TerminalPrompt,
	}

	// On Linux without a GUI, fall back to file-based storage.
	if runtime.GOOS == "linux" {
		cfg.AllowedBackends = []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.FileBackend,
		}
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		// Use file backend as ultimate fallback.
		ring, _ = keyring.Open(keyring.Config{
			ServiceName:      keychainService,
			AllowedBackends:  []keyring.BackendType{keyring.FileBackend},
			FileDir:          fileDir,
			FilePasswordFunc: keyring.TerminalPrompt,
		})
	}

	return &Keyring{ring: ring}
}

// Store remembers the password of keyFile.
func (k *Keyring) Store(keyFile, password string) error {
	if k.ring == nil {
		return fmt.Errorf("keychain not available")
	}
	err := k.ring.Set(keyring.Item{
		Key:         secretRef(keyFile),
		Data:        []byte(password),
		Label:       "ucwallet key file password",
		Description: keyFile,
	})
	if err != nil {
		return fmt.Errorf("keychain store: %w", err)
	}
	return nil
}

// Retrieve fetches the remembered password of keyFile.
func (k *Keyring) Retrieve(keyFile string) (string, error) {
	if k.ring == nil {
		return "", ErrSecretNotFound
	}
	item, err := k.ring.Get(secretRef(keyFile))
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrSecretNotFound
	}
	if err != nil {
		return "", fmt.Errorf("keychain retrieve: %w", err)
	}
	return string(item.Data), nil
}

// Delete forgets the password of keyFile.
func (k *Keyring) Delete(keyFile string) error {
	if k.ring == nil {
		return nil
	}
	err := k.ring.Remove(secretRef(keyFile))
	if errors.Is(err, keyring.ErrKeyNotFound) || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// secretRef keys secrets by a digest of the absolute key-file path, so
// relative and absolute spellings of one file share an entry and the key is
// safe to use as a file name.
func secretRef(keyFile string) string {
	if abs, err := filepath.Abs(keyFile); err == nil {
		keyFile = abs
	}
	sum := sha3.Sum256([]byte(keyFile))
	return keychainService + "." + hex.EncodeToString(sum[:16])
}
