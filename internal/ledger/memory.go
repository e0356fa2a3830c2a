package ledger

import (
	"context"
	"sync"

	"github.com/0gfoundation/exchange-booth/internal/account"
	"github.com/0gfoundation/exchange-booth/internal/address"
	"github.com/0gfoundation/exchange-booth/internal/errs"
)

type entry struct {
	info    *account.Info
	version uint64
}

// MemoryStore keeps accounts in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[address.Address]entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[address.Address]entry)}
}

func (m *MemoryStore) Get(ctx context.Context, key address.Address) (*account.Info, uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e := m.accounts[key]
	if e.info == nil {
		return empty(key), e.version, nil
	}
	return e.info.Clone(), e.version, nil
}

func (m *MemoryStore) Commit(ctx context.Context, updates []*account.Info, versions map[address.Address]uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range updates {
		if cur := m.accounts[u.Key].version; cur != versions[u.Key] {
			return errs.Wrapf(errs.ErrWriteConflict, "account %s at version %d, expected %d", u.Key, cur, versions[u.Key])
		}
	}
	for _, u := range updates {
		next := m.accounts[u.Key].version + 1
		if !u.Exists() {
			// keep the version so a stale writer still conflicts
			m.accounts[u.Key] = entry{info: nil, version: next}
			continue
		}
		m.accounts[u.Key] = entry{info: u.Clone(), version: next}
	}
	return nil
}

func (m *MemoryStore) Put(ctx context.Context, info *account.Info) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[info.Key] = entry{info: info.Clone(), version: m.accounts[info.Key].version + 1}
	return nil
}

func (m *MemoryStore) Scan(ctx context.Context, owner address.Address) ([]*account.Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*account.Info
	for _, e := range m.accounts {
		if e.info != nil && e.info.Owner == owner {
			out = append(out, e.info.Clone())
		}
	}
	return out, nil
}
