package prefix

import (
	"context"
	"fmt"
	"sync"

	"github.com/alfredjeanlab/guildkeeper/internal/model"
)

// keyLocks hands out one mutex per tenant id. Entries are reference counted
// and removed once nobody holds or waits on them, so the map only grows
// with the number of tenants in flight.
type keyLocks struct {
	mu    sync.Mutex
	locks map[uint64]*keyLock
}

type keyLock struct {
	sem  chan struct{}
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[uint64]*keyLock)}
}

// lock blocks until the lock for key is held or ctx is done. The returned
// func releases it and must be called exactly once.
func (k *keyLocks) lock(ctx context.Context, key uint64) (func(), error) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{sem: make(chan struct{}, 1)}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
		return func() {
			<-l.sem
			k.release(key, l)
		}, nil
	case <-ctx.Done():
		k.release(key, l)
		return nil, fmt.Errorf("tenant %d: %w: %w", key, model.ErrLockUnavailable, ctx.Err())
	}
}

func (k *keyLocks) release(key uint64, l *keyLock) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
}

// size returns the number of live lock entries.
func (k *keyLocks) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
