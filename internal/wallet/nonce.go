package wallet

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// NonceSource reports an address's transaction count including pending ones.
type NonceSource interface {
	PendingNonceAt(ctx context.Context, addr common.Address) (uint64, error)
}

// NonceTracker hands out nonces as max(node pending count, last used + 1).
// The node is asked every time; the local counter only covers nodes whose
// pending view lags behind a just-broadcast transaction.
type NonceTracker struct {
	next  uint64
	known bool
}

// Next returns the nonce to use for the next transaction from addr.
func (n *NonceTracker) Next(ctx context.Context, src NonceSource, addr common.Address) (uint64, error) {
	pending, err := src.PendingNonceAt(ctx, addr)
	if err != nil {
		return 0, fmt.Errorf("getting nonce: %w", err)
	}
	if n.known && n.next > pending {
		return n.next, nil
	}
	return pending, nil
}

// Commit records that nonce was used.
func (n *NonceTracker) Commit(nonce uint64) {
	n.next = nonce + 1
	n.known = true
}

// Reset forgets the local counter.
func (n *NonceTracker) Reset() {
	n.next = 0
	n.known = false
}
