package system

import (
	"context"
	"math"

	"github.com/0gfoundation/exchange-booth/internal/account"
	"github.com/0gfoundation/exchange-booth/internal/address"
	"github.com/0gfoundation/exchange-booth/internal/errs"
	"github.com/0gfoundation/exchange-booth/internal/guard"
)

// Allocator is the account.Allocator handed to one program. Allocation goes
// through the system program; release is done by the owning program directly.
type Allocator struct {
	program address.Address
	invoker account.Invoker
	rent    Rent
}

func NewAllocator(program address.Address, invoker account.Invoker, rent Rent) *Allocator {
	return &Allocator{program: program, invoker: invoker, rent: rent}
}

// Allocate funds target with the rent-exempt minimum for space bytes, paid by
// payer, and assigns it to owner.
func (a *Allocator) Allocate(ctx context.Context, payer, target *account.Info, space uint64, owner address.Address, signerSeeds [][]byte) error {
	if err := guard.All(
		guard.Signer(payer),
		guard.Writable(payer),
		guard.Writable(target),
		guard.Uninitialized(target),
	); err != nil {
		return err
	}
	ix := CreateAccount(payer.Key, target.Key, a.rent.MinimumBalance(space), space, owner)
	if signerSeeds == nil {
		return a.invoker.Invoke(ctx, ix)
	}
	return a.invoker.Invoke(ctx, ix, signerSeeds)
}

// Release drains target into recipient and hands it back to the system
// program with no data. Only the owning program may release an account.
func (a *Allocator) Release(ctx context.Context, target, recipient *account.Info) error {
	if err := guard.All(
		guard.OwnedBy(target, a.program),
		guard.Writable(target),
		guard.Writable(recipient),
	); err != nil {
		return err
	}
	if recipient.Lamports > math.MaxUint64-target.Lamports {
		return errs.ErrArithmeticOverflow
	}
	recipient.Lamports += target.Lamports
	target.Lamports = 0
	target.Data = nil
	target.Owner = account.SystemProgramID
	return nil
}
