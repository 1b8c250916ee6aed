package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedNonce struct {
	n     uint64
	err   error
	calls int
}

func (f *fixedNonce) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	f.calls++
	return f.n, f.err
}

func TestNonceTrackerUsesNodeWhenUnknown(t *testing.T) {
	var nt NonceTracker
	n, err := nt.Next(context.Background(), &fixedNonce{n: 9}, common.Address{})
	require.NoError(t, err)
	assert.Equal(t, uint64(9), n)
}

func TestNonceTrackerAlwaysAsksNode(t *testing.T) {
	var nt NonceTracker
	src := &fixedNonce{n: 1}
	for i := 0; i < 3; i++ {
		_, err := nt.Next(context.Background(), src, common.Address{})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, src.calls)
}

func TestNonceTrackerCoversLaggingNode(t *testing.T) {
	var nt NonceTracker
	src := &fixedNonce{n: 0}

	n, err := nt.Next(context.Background(), src, common.Address{})
	require.NoError(t, err)
	nt.Commit(n)

	n, err = nt.Next(context.Background(), src, common.Address{})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
	nt.Commit(n)

	n, err = nt.Next(context.Background(), src, common.Address{})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
}

func TestNonceTrackerNodeAhead(t *testing.T) {
	var nt NonceTracker
	nt.Commit(3)

	// transactions were sent from elsewhere; the node wins
	n, err := nt.Next(context.Background(), &fixedNonce{n: 10}, common.Address{})
	require.NoError(t, err)
	assert.Equal(t, uint64(10), n)
}

func TestNonceTrackerError(t *testing.T) {
	var nt NonceTracker
	boom := errors.New("boom")
	_, err := nt.Next(context.Background(), &fixedNonce{err: boom}, common.Address{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
}

func TestNonceTrackerReset(t *testing.T) {
	var nt NonceTracker
	nt.Commit(7)
	nt.Reset()

	n, err := nt.Next(context.Background(), &fixedNonce{n: 2}, common.Address{})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
}
