package runtime

import (
	"context"
	"sync"

	"github.com/0gfoundation/exchange-booth/internal/address"
)

// lockTable grants exclusive access to sets of accounts. A set is taken all
// at once or not at all, so two transactions never hold parts of each
// other's write sets.
type lockTable struct {
	mu   sync.Mutex
	held map[address.Address]chan struct{}
}

func newLockTable() *lockTable {
	return &lockTable{held: make(map[address.Address]chan struct{})}
}

func (l *lockTable) acquire(ctx context.Context, keys []address.Address) error {
	if len(keys) == 0 {
		return nil
	}
	for {
		l.mu.Lock()
		var busy chan struct{}
		for _, k := range keys {
			if ch, ok := l.held[k]; ok {
				busy = ch
				break
			}
		}
		if busy == nil {
			ch := make(chan struct{})
			for _, k := range keys {
				l.held[k] = ch
			}
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		select {
		case <-busy:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *lockTable) release(keys []address.Address) {
	if len(keys) == 0 {
		return
	}
	l.mu.Lock()
	ch := l.held[keys[0]]
	for _, k := range keys {
		delete(l.held, k)
	}
	l.mu.Unlock()
	close(ch)
}
