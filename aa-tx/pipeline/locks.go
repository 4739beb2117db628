package pipeline

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// accountLocks serializes nonce acquisition and broadcast per account. A
// waiter gives up when its context is done.
type accountLocks struct {
	mu    sync.Mutex
	locks map[common.Address]chan struct{}
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[common.Address]chan struct{})}
}

func (l *accountLocks) lock(ctx context.Context, addr common.Address) (func(), error) {
	l.mu.Lock()
	ch, ok := l.locks[addr]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[addr] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
