package executor

import (
	"context"
	"sync"
	"time"
)

// lockRegistry serializes swap execution per wallet address. Each wallet
// gets a one-token channel; holding the token is holding the lock. Entries
// are retained for the life of the process, bounded by the wallet count.
type lockRegistry struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func newLockRegistry() *lockRegistry {
	return &lockRegistry{
		locks: make(map[string]chan struct{}),
	}
}

func (r *lockRegistry) get(address string) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.locks[address]
	if !ok {
		ch = make(chan struct{}, 1)
		r.locks[address] = ch
	}
	return ch
}

// acquire takes the wallet lock, waiting at most maxWait. Returns
// ErrWalletBusy on timeout. The returned release function is safe to call
// exactly once.
func (r *lockRegistry) acquire(ctx context.Context, address string, maxWait time.Duration) (func(), error) {
	ch := r.get(address)

	timer := time.NewTimer(maxWait)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-timer.C:
		return nil, ErrWalletBusy
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
