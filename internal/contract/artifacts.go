package contract

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const (
	abiExt = ".abi"
	binExt = ".bin"
)

// ArtifactStore keeps the ABI and bytecode of every deployed contract as
// <dir>/<name>.abi (JSON array) and <dir>/<name>.bin (hex).
type ArtifactStore struct {
	dir string
}

// NewArtifactStore returns a store rooted at dir.
func NewArtifactStore(dir string) *ArtifactStore {
	return &ArtifactStore{dir: dir}
}

// Dir returns the artifact directory.
func (s *ArtifactStore) Dir() string { return s.dir }

// WriteABI stores the ABI of name.
func (s *ArtifactStore) WriteABI(name string, abiJSON []byte) error {
	return s.write(name+abiExt, abiJSON)
}

// WriteBin stores the creation bytecode of name as hex.
func (s *ArtifactStore) WriteBin(name, bin string) error {
	return s.write(name+binExt, []byte(bin))
}

// ReadABI returns the stored ABI of name.
func (s *ArtifactStore) ReadABI(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name+abiExt))
	if err != nil {
		return nil, fmt.Errorf("reading ABI of %s: %w", name, err)
	}
	return data, nil
}

// ListABIs returns the names of all stored ABIs, sorted. A missing directory
// yields no names.
func (s *ArtifactStore) ListABIs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing artifacts: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != abiExt {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), abiExt))
	}
	sort.Strings(names)
	return names, nil
}

func (s *ArtifactStore) write(file string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating artifact dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, file), data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", file, err)
	}
	return nil
}

// ReadAddresses loads a name→address file.
func ReadAddresses(path string) (map[string]common.Address, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	out := make(map[string]common.Address, len(raw))
	for name, addr := range raw {
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("parsing %s: %s has invalid address %q", path, name, addr)
		}
		out[name] = common.HexToAddress(addr)
	}
	return out, nil
}

// WriteAddresses replaces path atomically with the checksum form of addrs.
func WriteAddresses(path string, addrs map[string]common.Address) error {
	raw := make(map[string]string, len(addrs))
	for name, addr := range addrs {
		raw[name] = addr.Hex()
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".addresses-*")
	if err != nil {
		return fmt.Errorf("writing addresses: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing addresses: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing addresses: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing addresses: %w", err)
	}
	return nil
}
