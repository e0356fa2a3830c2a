// Package booth implements the exchange booth: a two-sided token vault pair
// controlled by a derived state account, converting at an oracle rate minus
// an admin-set fee.
package booth

import (
	"github.com/0gfoundation/exchange-booth/internal/address"
	"github.com/0gfoundation/exchange-booth/internal/errs"
	"github.com/0gfoundation/exchange-booth/internal/layout"
)

const (
	StateSize = address.Size*2 + 1 + address.Size + 1 + address.Size + 8

	// MaxFeeBps is 100%.
	MaxFeeBps = 10_000
)

var (
	stateSeedPrefix      = []byte("state_info")
	vaultBaseSeedPrefix  = []byte("vault_base")
	vaultQuoteSeedPrefix = []byte("vault_quote")
)

// Side names one half of the booth pair.
type Side uint8

const (
	SideBase Side = iota
	SideQuote
)

func (s Side) String() string {
	if s == SideBase {
		return "base"
	}
	return "quote"
}

type State struct {
	Admin         address.Address
	MintBase      address.Address
	DecimalsBase  uint8
	MintQuote     address.Address
	DecimalsQuote uint8
	Oracle        address.Address
	FeeBps        uint64
}

func (s *State) Marshal() []byte {
	b := make([]byte, StateSize)
	offset := 0
	layout.PutKey(b, s.Admin, &offset)
	layout.PutKey(b, s.MintBase, &offset)
	layout.PutUint8(b, s.DecimalsBase, &offset)
	layout.PutKey(b, s.MintQuote, &offset)
	layout.PutUint8(b, s.DecimalsQuote, &offset)
	layout.PutKey(b, s.Oracle, &offset)
	layout.PutUint64(b, s.FeeBps, &offset)
	return b
}

func (s *State) Unmarshal(data []byte) error {
	if len(data) != StateSize {
		return errs.Wrapf(errs.ErrInvalidAccountData, "booth state: %d bytes", len(data))
	}
	offset := 0
	layout.GetKey(data, &s.Admin, &offset)
	layout.GetKey(data, &s.MintBase, &offset)
	layout.GetUint8(data, &s.DecimalsBase, &offset)
	layout.GetKey(data, &s.MintQuote, &offset)
	layout.GetUint8(data, &s.DecimalsQuote, &offset)
	layout.GetKey(data, &s.Oracle, &offset)
	layout.GetUint64(data, &s.FeeBps, &offset)
	return nil
}

// SideOf reports which side of the pair mint is on.
func (s *State) SideOf(mint address.Address) (Side, error) {
	switch mint {
	case s.MintBase:
		return SideBase, nil
	case s.MintQuote:
		return SideQuote, nil
	default:
		return 0, errs.Wrapf(errs.ErrUnknownMint, "mint %s", mint)
	}
}

func (s *State) Mint(side Side) address.Address {
	if side == SideBase {
		return s.MintBase
	}
	return s.MintQuote
}

func (s *State) Decimals(side Side) uint8 {
	if side == SideBase {
		return s.DecimalsBase
	}
	return s.DecimalsQuote
}

// ── Addresses ─────────────────────────────────────────────────────────────────

func StateSeeds(admin, mintBase, mintQuote, oracle address.Address) [][]byte {
	return [][]byte{stateSeedPrefix, admin[:], mintBase[:], mintQuote[:], oracle[:]}
}

func VaultSeeds(state, mint address.Address, side Side) [][]byte {
	prefix := vaultBaseSeedPrefix
	if side == SideQuote {
		prefix = vaultQuoteSeedPrefix
	}
	return [][]byte{prefix, state[:], mint[:]}
}

func StateAddress(space address.Space, program, admin, mintBase, mintQuote, oracle address.Address) (address.Address, uint8, error) {
	return address.Derive(space, StateSeeds(admin, mintBase, mintQuote, oracle), program)
}

func VaultAddress(space address.Space, program, state, mint address.Address, side Side) (address.Address, uint8, error) {
	return address.Derive(space, VaultSeeds(state, mint, side), program)
}

// Addresses is the full derived address set of one booth.
type Addresses struct {
	State      address.Address
	StateBump  uint8
	VaultBase  address.Address
	BaseBump   uint8
	VaultQuote address.Address
	QuoteBump  uint8
}

func DeriveAddresses(space address.Space, program, admin, mintBase, mintQuote, oracle address.Address) (*Addresses, error) {
	var a Addresses
	var err error
	if a.State, a.StateBump, err = StateAddress(space, program, admin, mintBase, mintQuote, oracle); err != nil {
		return nil, err
	}
	if a.VaultBase, a.BaseBump, err = VaultAddress(space, program, a.State, mintBase, SideBase); err != nil {
		return nil, err
	}
	if a.VaultQuote, a.QuoteBump, err = VaultAddress(space, program, a.State, mintQuote, SideQuote); err != nil {
		return nil, err
	}
	return &a, nil
}

func withBump(seeds [][]byte, bump uint8) [][]byte {
	return append(seeds, []byte{bump})
}
