// Package ledger persists accounts. Each account carries a version that
// Commit checks so concurrent writers cannot silently overwrite each other.
package ledger

import (
	"context"

	"github.com/0gfoundation/exchange-booth/internal/account"
	"github.com/0gfoundation/exchange-booth/internal/address"
)

// Store is the account database behind the runtime. Missing accounts load as
// empty system-owned accounts at version 0.
type Store interface {
	Get(ctx context.Context, key address.Address) (*account.Info, uint64, error)
	// Commit writes every update whose stored version still equals the one in
	// versions, or nothing at all. Updates with zero lamports are deleted.
	Commit(ctx context.Context, updates []*account.Info, versions map[address.Address]uint64) error
	// Put writes an account outside of any transaction (genesis, fixtures).
	Put(ctx context.Context, info *account.Info) error
	// Scan returns every stored account owned by owner.
	Scan(ctx context.Context, owner address.Address) ([]*account.Info, error)
}

// Load reads a set of accounts and their versions.
func Load(ctx context.Context, s Store, keys []address.Address) (map[address.Address]*account.Info, map[address.Address]uint64, error) {
	infos := make(map[address.Address]*account.Info, len(keys))
	versions := make(map[address.Address]uint64, len(keys))
	for _, k := range keys {
		info, v, err := s.Get(ctx, k)
		if err != nil {
			return nil, nil, err
		}
		infos[k] = info
		versions[k] = v
	}
	return infos, versions, nil
}

func empty(key address.Address) *account.Info {
	return &account.Info{Key: key, Owner: account.SystemProgramID}
}
