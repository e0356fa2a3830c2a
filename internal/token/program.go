package token

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/0gfoundation/exchange-booth/internal/account"
	"github.com/0gfoundation/exchange-booth/internal/address"
	"github.com/0gfoundation/exchange-booth/internal/errs"
	"github.com/0gfoundation/exchange-booth/internal/guard"
	"github.com/0gfoundation/exchange-booth/internal/layout"
)

type Tag uint8

const (
	TagInitializeMint Tag = iota
	TagInitializeAccount
	TagMintTo
	TagTransfer
	TagBurn
	TagCloseAccount
)

func (t Tag) String() string {
	switch t {
	case TagInitializeMint:
		return "InitializeMint"
	case TagInitializeAccount:
		return "InitializeAccount"
	case TagMintTo:
		return "MintTo"
	case TagTransfer:
		return "Transfer"
	case TagBurn:
		return "Burn"
	case TagCloseAccount:
		return "CloseAccount"
	default:
		return "Unknown"
	}
}

// Program is the token program processor.
type Program struct {
	log *zap.Logger
}

func NewProgram(log *zap.Logger) *Program {
	return &Program{log: log}
}

func (p *Program) Process(ctx context.Context, accounts []*account.Info, data []byte) error {
	if len(data) == 0 {
		return errs.Wrapf(errs.ErrInvalidInstruction, "empty token instruction")
	}
	tag := Tag(data[0])
	offset := 1
	switch tag {
	case TagInitializeMint:
		if len(data) != 1+1+address.Size {
			return badLength(tag, data)
		}
		var decimals uint8
		var authority address.Address
		layout.GetUint8(data, &decimals, &offset)
		layout.GetKey(data, &authority, &offset)
		return p.initializeMint(accounts, decimals, authority)
	case TagInitializeAccount:
		if len(data) != 1+address.Size {
			return badLength(tag, data)
		}
		var owner address.Address
		layout.GetKey(data, &owner, &offset)
		return p.initializeAccount(accounts, owner)
	case TagMintTo, TagTransfer, TagBurn:
		if len(data) != 1+8 {
			return badLength(tag, data)
		}
		var amount uint64
		layout.GetUint64(data, &amount, &offset)
		switch tag {
		case TagMintTo:
			return p.mintTo(accounts, amount)
		case TagTransfer:
			return p.transfer(accounts, amount)
		default:
			return p.burn(accounts, amount)
		}
	case TagCloseAccount:
		if len(data) != 1 {
			return badLength(tag, data)
		}
		return p.closeAccount(accounts)
	default:
		return errs.Wrapf(errs.ErrInvalidInstruction, "unknown token instruction %d", data[0])
	}
}

func badLength(tag Tag, data []byte) error {
	return errs.Wrapf(errs.ErrInvalidInstruction, "%s: %d bytes", tag, len(data))
}

func (p *Program) initializeMint(accounts []*account.Info, decimals uint8, authority address.Address) error {
	accs, err := guard.Accounts(accounts, 1)
	if err != nil {
		return err
	}
	mint := accs[0]
	if err := guard.All(
		guard.Writable(mint),
		guard.OwnedBy(mint, account.TokenProgramID),
	); err != nil {
		return err
	}
	var m Mint
	if err := m.Unmarshal(mint.Data); err != nil {
		return err
	}
	if m.IsInitialized {
		return errs.Wrapf(errs.ErrAccountAlreadyInUse, "mint %s", mint.Key)
	}
	m = Mint{MintAuthority: authority, Decimals: decimals, IsInitialized: true}
	copy(mint.Data, m.Marshal())
	return nil
}

func (p *Program) initializeAccount(accounts []*account.Info, owner address.Address) error {
	accs, err := guard.Accounts(accounts, 2)
	if err != nil {
		return err
	}
	acct, mint := accs[0], accs[1]
	if err := guard.All(
		guard.Writable(acct),
		guard.OwnedBy(acct, account.TokenProgramID),
	); err != nil {
		return err
	}
	var a Account
	if err := a.Unmarshal(acct.Data); err != nil {
		return err
	}
	if a.State != AccountStateUninitialized {
		return errs.Wrapf(errs.ErrAccountAlreadyInUse, "token account %s", acct.Key)
	}
	if _, err := LoadMint(mint); err != nil {
		return err
	}
	a = Account{Mint: mint.Key, Owner: owner, State: AccountStateInitialized}
	copy(acct.Data, a.Marshal())
	return nil
}

func (p *Program) mintTo(accounts []*account.Info, amount uint64) error {
	accs, err := guard.Accounts(accounts, 3)
	if err != nil {
		return err
	}
	mintInfo, dest, authority := accs[0], accs[1], accs[2]
	if err := guard.All(
		guard.Writable(mintInfo),
		guard.Writable(dest),
		guard.Signer(authority),
	); err != nil {
		return err
	}
	m, err := LoadMint(mintInfo)
	if err != nil {
		return err
	}
	if m.MintAuthority != authority.Key {
		return errs.Wrapf(errs.ErrOwnerMismatch, "mint authority is %s", m.MintAuthority)
	}
	a, err := LoadAccount(dest)
	if err != nil {
		return err
	}
	if a.Mint != mintInfo.Key {
		return errs.Wrapf(errs.ErrMintMismatch, "account %s holds %s", dest.Key, a.Mint)
	}
	if m.Supply > math.MaxUint64-amount || a.Amount > math.MaxUint64-amount {
		return errs.ErrArithmeticOverflow
	}
	m.Supply += amount
	a.Amount += amount
	copy(mintInfo.Data, m.Marshal())
	copy(dest.Data, a.Marshal())
	return nil
}

func (p *Program) transfer(accounts []*account.Info, amount uint64) error {
	accs, err := guard.Accounts(accounts, 3)
	if err != nil {
		return err
	}
	srcInfo, dstInfo, authority := accs[0], accs[1], accs[2]
	if err := guard.All(
		guard.Writable(srcInfo),
		guard.Writable(dstInfo),
		guard.Signer(authority),
	); err != nil {
		return err
	}
	src, err := LoadAccount(srcInfo)
	if err != nil {
		return err
	}
	dst, err := LoadAccount(dstInfo)
	if err != nil {
		return err
	}
	if src.Owner != authority.Key {
		return errs.Wrapf(errs.ErrOwnerMismatch, "account %s is owned by %s", srcInfo.Key, src.Owner)
	}
	if src.Mint != dst.Mint {
		return errs.Wrapf(errs.ErrMintMismatch, "%s -> %s", src.Mint, dst.Mint)
	}
	if src.Amount < amount {
		return errs.Wrapf(errs.ErrInsufficientFunds, "account %s holds %d, needs %d", srcInfo.Key, src.Amount, amount)
	}
	if srcInfo.Key == dstInfo.Key {
		return nil
	}
	if dst.Amount > math.MaxUint64-amount {
		return errs.ErrArithmeticOverflow
	}
	src.Amount -= amount
	dst.Amount += amount
	copy(srcInfo.Data, src.Marshal())
	copy(dstInfo.Data, dst.Marshal())

	p.log.Debug("token transfer",
		zap.String("from", srcInfo.Key.String()),
		zap.String("to", dstInfo.Key.String()),
		zap.Uint64("amount", amount),
	)
	return nil
}

func (p *Program) burn(accounts []*account.Info, amount uint64) error {
	accs, err := guard.Accounts(accounts, 3)
	if err != nil {
		return err
	}
	acctInfo, mintInfo, authority := accs[0], accs[1], accs[2]
	if err := guard.All(
		guard.Writable(acctInfo),
		guard.Writable(mintInfo),
		guard.Signer(authority),
	); err != nil {
		return err
	}
	a, err := LoadAccount(acctInfo)
	if err != nil {
		return err
	}
	m, err := LoadMint(mintInfo)
	if err != nil {
		return err
	}
	if a.Owner != authority.Key {
		return errs.Wrapf(errs.ErrOwnerMismatch, "account %s is owned by %s", acctInfo.Key, a.Owner)
	}
	if a.Mint != mintInfo.Key {
		return errs.Wrapf(errs.ErrMintMismatch, "account %s holds %s", acctInfo.Key, a.Mint)
	}
	if a.Amount < amount {
		return errs.Wrapf(errs.ErrInsufficientFunds, "account %s holds %d, needs %d", acctInfo.Key, a.Amount, amount)
	}
	a.Amount -= amount
	m.Supply -= amount
	copy(acctInfo.Data, a.Marshal())
	copy(mintInfo.Data, m.Marshal())
	return nil
}

func (p *Program) closeAccount(accounts []*account.Info) error {
	accs, err := guard.Accounts(accounts, 3)
	if err != nil {
		return err
	}
	acctInfo, dest, authority := accs[0], accs[1], accs[2]
	if err := guard.All(
		guard.Writable(acctInfo),
		guard.Writable(dest),
		guard.Signer(authority),
	); err != nil {
		return err
	}
	a, err := LoadAccount(acctInfo)
	if err != nil {
		return err
	}
	if a.Owner != authority.Key {
		return errs.Wrapf(errs.ErrOwnerMismatch, "account %s is owned by %s", acctInfo.Key, a.Owner)
	}
	if a.Amount != 0 {
		return errs.Wrapf(errs.ErrInvalidAccountData, "account %s still holds %d", acctInfo.Key, a.Amount)
	}
	if dest.Lamports > math.MaxUint64-acctInfo.Lamports {
		return errs.ErrArithmeticOverflow
	}
	dest.Lamports += acctInfo.Lamports
	acctInfo.Lamports = 0
	acctInfo.Data = nil
	acctInfo.Owner = account.SystemProgramID
	return nil
}

// ── Instruction builders ──────────────────────────────────────────────────────

func InitializeMint(mint, authority address.Address, decimals uint8) account.Instruction {
	data := make([]byte, 1+1+address.Size)
	offset := 0
	layout.PutUint8(data, uint8(TagInitializeMint), &offset)
	layout.PutUint8(data, decimals, &offset)
	layout.PutKey(data, authority, &offset)
	return account.Instruction{
		Program:  account.TokenProgramID,
		Accounts: []account.Meta{{Address: mint, IsWritable: true}},
		Data:     data,
	}
}

func InitializeAccount(acct, mint, owner address.Address) account.Instruction {
	data := make([]byte, 1+address.Size)
	offset := 0
	layout.PutUint8(data, uint8(TagInitializeAccount), &offset)
	layout.PutKey(data, owner, &offset)
	return account.Instruction{
		Program: account.TokenProgramID,
		Accounts: []account.Meta{
			{Address: acct, IsWritable: true},
			{Address: mint},
		},
		Data: data,
	}
}

func MintTo(mint, dest, authority address.Address, amount uint64) account.Instruction {
	return amountInstruction(TagMintTo, amount,
		account.Meta{Address: mint, IsWritable: true},
		account.Meta{Address: dest, IsWritable: true},
		account.Meta{Address: authority, IsSigner: true},
	)
}

func Transfer(src, dst, authority address.Address, amount uint64) account.Instruction {
	return amountInstruction(TagTransfer, amount,
		account.Meta{Address: src, IsWritable: true},
		account.Meta{Address: dst, IsWritable: true},
		account.Meta{Address: authority, IsSigner: true},
	)
}

func Burn(acct, mint, authority address.Address, amount uint64) account.Instruction {
	return amountInstruction(TagBurn, amount,
		account.Meta{Address: acct, IsWritable: true},
		account.Meta{Address: mint, IsWritable: true},
		account.Meta{Address: authority, IsSigner: true},
	)
}

func CloseAccount(acct, dest, authority address.Address) account.Instruction {
	return account.Instruction{
		Program: account.TokenProgramID,
		Accounts: []account.Meta{
			{Address: acct, IsWritable: true},
			{Address: dest, IsWritable: true},
			{Address: authority, IsSigner: true},
		},
		Data: []byte{uint8(TagCloseAccount)},
	}
}

func amountInstruction(tag Tag, amount uint64, metas ...account.Meta) account.Instruction {
	data := make([]byte, 1+8)
	offset := 0
	layout.PutUint8(data, uint8(tag), &offset)
	layout.PutUint64(data, amount, &offset)
	return account.Instruction{Program: account.TokenProgramID, Accounts: metas, Data: data}
}
