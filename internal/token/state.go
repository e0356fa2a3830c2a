// Package token implements the built-in fungible-token program and the
// client other programs use to drive it.
package token

import (
	"github.com/0gfoundation/exchange-booth/internal/account"
	"github.com/0gfoundation/exchange-booth/internal/address"
	"github.com/0gfoundation/exchange-booth/internal/errs"
	"github.com/0gfoundation/exchange-booth/internal/layout"
)

const (
	MintSize    = address.Size + 8 + 1 + 1
	AccountSize = address.Size + address.Size + 8 + 1
)

type AccountState uint8

const (
	AccountStateUninitialized AccountState = iota
	AccountStateInitialized
)

type Mint struct {
	MintAuthority address.Address
	Supply        uint64
	Decimals      uint8
	IsInitialized bool
}

func (m *Mint) Marshal() []byte {
	b := make([]byte, MintSize)
	offset := 0
	layout.PutKey(b, m.MintAuthority, &offset)
	layout.PutUint64(b, m.Supply, &offset)
	layout.PutUint8(b, m.Decimals, &offset)
	layout.PutBool(b, m.IsInitialized, &offset)
	return b
}

func (m *Mint) Unmarshal(data []byte) error {
	if len(data) != MintSize {
		return errs.Wrapf(errs.ErrInvalidAccountData, "mint: %d bytes", len(data))
	}
	offset := 0
	layout.GetKey(data, &m.MintAuthority, &offset)
	layout.GetUint64(data, &m.Supply, &offset)
	layout.GetUint8(data, &m.Decimals, &offset)
	layout.GetBool(data, &m.IsInitialized, &offset)
	return nil
}

type Account struct {
	Mint   address.Address
	Owner  address.Address
	Amount uint64
	State  AccountState
}

func (a *Account) Marshal() []byte {
	b := make([]byte, AccountSize)
	offset := 0
	layout.PutKey(b, a.Mint, &offset)
	layout.PutKey(b, a.Owner, &offset)
	layout.PutUint64(b, a.Amount, &offset)
	layout.PutUint8(b, uint8(a.State), &offset)
	return b
}

func (a *Account) Unmarshal(data []byte) error {
	if len(data) != AccountSize {
		return errs.Wrapf(errs.ErrInvalidAccountData, "token account: %d bytes", len(data))
	}
	var state uint8
	offset := 0
	layout.GetKey(data, &a.Mint, &offset)
	layout.GetKey(data, &a.Owner, &offset)
	layout.GetUint64(data, &a.Amount, &offset)
	layout.GetUint8(data, &state, &offset)
	a.State = AccountState(state)
	return nil
}

// LoadMint decodes an initialized mint owned by the token program.
func LoadMint(info *account.Info) (*Mint, error) {
	if info.Owner != account.TokenProgramID {
		return nil, errs.Wrapf(errs.ErrOwnerMismatch, "mint %s owned by %s", info.Key, info.Owner)
	}
	var m Mint
	if err := m.Unmarshal(info.Data); err != nil {
		return nil, err
	}
	if !m.IsInitialized {
		return nil, errs.Wrapf(errs.ErrAccountNotFound, "mint %s not initialized", info.Key)
	}
	return &m, nil
}

// LoadAccount decodes an initialized token account owned by the token program.
func LoadAccount(info *account.Info) (*Account, error) {
	if info.Owner != account.TokenProgramID {
		return nil, errs.Wrapf(errs.ErrOwnerMismatch, "token account %s owned by %s", info.Key, info.Owner)
	}
	var a Account
	if err := a.Unmarshal(info.Data); err != nil {
		return nil, err
	}
	if a.State != AccountStateInitialized {
		return nil, errs.Wrapf(errs.ErrAccountNotFound, "token account %s not initialized", info.Key)
	}
	return &a, nil
}
