package builder

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// nonceTracker hands out nonces per account that never go backwards, even
// when the chain has not yet seen the previous transaction.
type nonceTracker struct {
	mu   sync.Mutex
	next map[common.Address]uint64
}

func newNonceTracker() *nonceTracker {
	return &nonceTracker{next: make(map[common.Address]uint64)}
}

func (n *nonceTracker) reserve(addr common.Address, chainNonce uint64) uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	nonce := chainNonce
	if next, ok := n.next[addr]; ok && next > nonce {
		nonce = next
	}
	n.next[addr] = nonce + 1
	return nonce
}

// release returns nonce to the pool if it is the latest one handed out for
// addr.
func (n *nonceTracker) release(addr common.Address, nonce uint64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if next, ok := n.next[addr]; ok && next == nonce+1 {
		n.next[addr] = nonce
		return true
	}
	return false
}
