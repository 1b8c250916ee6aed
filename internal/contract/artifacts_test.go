package contract

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// ArtifactStore
// ---------------------------------------------------------------------------

func TestArtifactStoreWriteRead(t *testing.T) {
	s := NewArtifactStore(filepath.Join(t.TempDir(), "nested", "artifacts"))

	require.NoError(t, s.WriteABI("Token", []byte(tokenABI)))
	require.NoError(t, s.WriteBin("Token", "0x6080"))

	abiJSON, err := s.ReadABI("Token")
	require.NoError(t, err)
	assert.Equal(t, tokenABI, string(abiJSON))

	bin, err := os.ReadFile(filepath.Join(s.Dir(), "Token.bin"))
	require.NoError(t, err)
	assert.Equal(t, "0x6080", string(bin))
}

func TestArtifactStoreReadMissing(t *testing.T) {
	s := NewArtifactStore(t.TempDir())
	_, err := s.ReadABI("None")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestArtifactStoreListABIs(t *testing.T) {
	s := NewArtifactStore(t.TempDir())
	require.NoError(t, s.WriteABI("B", []byte(tokenABI)))
	require.NoError(t, s.WriteABI("A", []byte(tokenABI)))
	require.NoError(t, s.WriteBin("C", "0x00"))

	names, err := s.ListABIs()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, names)
}

func TestArtifactStoreListMissingDir(t *testing.T) {
	names, err := NewArtifactStore(filepath.Join(t.TempDir(), "none")).ListABIs()
	require.NoError(t, err)
	assert.Empty(t, names)
}

// ---------------------------------------------------------------------------
// Address file
// ---------------------------------------------------------------------------

func TestAddressesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contractAddresses.json")
	in := map[string]common.Address{"A": addrA, "Token": tokenAddr}

	require.NoError(t, WriteAddresses(path, in))
	out, err := ReadAddresses(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), tokenAddr.Hex(), "addresses are stored in checksum form")
}

func TestWriteAddressesLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "contractAddresses.json")
	require.NoError(t, WriteAddresses(path, map[string]common.Address{"A": addrA}))
	require.NoError(t, WriteAddresses(path, map[string]common.Address{"B": addrB}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	out, err := ReadAddresses(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]common.Address{"B": addrB}, out)
}

func TestReadAddressesInvalidEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"A":"0x123"}`), 0o644))
	_, err := ReadAddresses(path)
	assert.Error(t, err)
}

func TestReadAddressesMissing(t *testing.T) {
	_, err := ReadAddresses(filepath.Join(t.TempDir(), "none.json"))
	assert.True(t, os.IsNotExist(err))
}
