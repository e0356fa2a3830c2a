// Package system implements the built-in program that owns fresh accounts:
// account creation, lamport transfers and the allocation capability handed
// to other programs.
package system

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

const (
	tagCreateAccount uint8 = 0
	tagTransfer      uint8 = 1

	createAccountLen = 1 + 8 + 8 + address.Size
	transferLen      = 1 + 8
)

// Program is the system program processor.
type Program struct {
	log *zap.Logger
}

func NewProgram(log *zap.Logger) *Program {
	return &Program{log: log}
}

func (p *Program) Process(ctx context.Context, accounts []*account.Info, data []byte) error {
	if len(data) == 0 {
		return errs.Wrapf(errs.ErrInvalidInstruction, "empty system instruction")
	}
	switch data[0] {
	case tagCreateAccount:
		if len(data) != createAccountLen {
			return errs.Wrapf(errs.ErrInvalidInstruction, "CreateAccount: %d bytes", len(data))
		}
		var lamports, space uint64
		var owner address.Address
		offset := 1
		layout.GetUint64(data, &lamports, &offset)
		layout.GetUint64(data, &space, &offset)
		layout.GetKey(data, &owner, &offset)
		return p.createAccount(accounts, lamports, space, owner)
	case tagTransfer:
		if len(data) != transferLen {
			return errs.Wrapf(errs.ErrInvalidInstruction, "Transfer: %d bytes", len(data))
		}
		var lamports uint64
		offset := 1
		layout.GetUint64(data, &lamports, &offset)
		return p.transfer(accounts, lamports)
	default:
		return errs.Wrapf(errs.ErrInvalidInstruction, "unknown system instruction %d", data[0])
	}
}

func (p *Program) createAccount(accounts []*account.Info, lamports, space uint64, owner address.Address) error {
	accs, err := guard.Accounts(accounts, 2)
	if err != nil {
		return err
	}
	from, to := accs[0], accs[1]
	if err := guard.All(
		guard.Signer(from),
		guard.Writable(from),
		guard.Signer(to),
		guard.Writable(to),
		guard.Uninitialized(to),
	); err != nil {
		return err
	}
	if from.Lamports < lamports {
		return errs.Wrapf(errs.ErrInsufficientFunds, "payer %s has %d lamports, needs %d", from.Key, from.Lamports, lamports)
	}

	from.Lamports -= lamports
	to.Lamports = lamports
	to.Data = make([]byte, space)
	to.Owner = owner

	p.log.Debug("account created",
		zap.String("account", to.Key.String()),
		zap.String("owner", owner.String()),
		zap.Uint64("space", space),
		zap.Uint64("lamports", lamports),
	)
	return nil
}

func (p *Program) transfer(accounts []*account.Info, lamports uint64) error {
	accs, err := guard.Accounts(accounts, 2)
	if err != nil {
		return err
	}
	from, to := accs[0], accs[1]
	if err := guard.All(
		guard.Signer(from),
		guard.Writable(from),
		guard.Writable(to),
		guard.OwnedBy(from, account.SystemProgramID),
	); err != nil {
		return err
	}
	if len(from.Data) > 0 {
		return errs.Wrapf(errs.ErrInvalidAccountData, "transfer source %s carries data", from.Key)
	}
	if from.Lamports < lamports {
		return errs.Wrapf(errs.ErrInsufficientFunds, "account %s has %d lamports, needs %d", from.Key, from.Lamports, lamports)
	}
	if to.Lamports > math.MaxUint64-lamports {
		return errs.ErrArithmeticOverflow
	}
	from.Lamports -= lamports
	to.Lamports += lamports
	return nil
}

// ── Instruction builders ──────────────────────────────────────────────────────

func CreateAccount(from, to address.Address, lamports, space uint64, owner address.Address) account.Instruction {
	data := make([]byte, createAccountLen)
	offset := 0
	layout.PutUint8(data, tagCreateAccount, &offset)
	layout.PutUint64(data, lamports, &offset)
	layout.PutUint64(data, space, &offset)
	layout.PutKey(data, owner, &offset)
	return account.Instruction{
		Program: account.SystemProgramID,
		Accounts: []account.Meta{
			{Address: from, IsSigner: true, IsWritable: true},
			{Address: to, IsSigner: true, IsWritable: true},
		},
		Data: data,
	}
}

func Transfer(from, to address.Address, lamports uint64) account.Instruction {
	data := make([]byte, transferLen)
	offset := 0
	layout.PutUint8(data, tagTransfer, &offset)
	layout.PutUint64(data, lamports, &offset)
	return account.Instruction{
		Program: account.SystemProgramID,
		Accounts: []account.Meta{
			{Address: from, IsSigner: true, IsWritable: true},
			{Address: to, IsWritable: true},
		},
		Data: data,
	}
}
