// Package guard holds the pre-mutation account checks. Each guard is a pure
// predicate over an account; All runs a set of them and reports the first
// failure, so programs can validate everything before touching state.
package guard

import (
	"github.com/0gfoundation/exchange-booth/internal/account"
	"github.com/0gfoundation/exchange-booth/internal/address"
	"github.com/0gfoundation/exchange-booth/internal/errs"
)

// Check is a deferred guard.
type Check func() error

// All evaluates every check in order and returns the first failure.
func All(checks ...Check) error {
	for _, c := range checks {
		if err := c(); err != nil {
			return err
		}
	}
	return nil
}

func Signer(a *account.Info) Check {
	return func() error {
		if !a.IsSigner {
			return errs.Wrapf(errs.ErrMissingSignature, "account %s", a.Key)
		}
		return nil
	}
}

func Writable(a *account.Info) Check {
	return func() error {
		if !a.IsWritable {
			return errs.Wrapf(errs.ErrNotWritable, "account %s", a.Key)
		}
		return nil
	}
}

func OwnedBy(a *account.Info, program address.Address) Check {
	return func() error {
		if a.Owner != program {
			return errs.Wrapf(errs.ErrOwnerMismatch, "account %s owned by %s, expected %s", a.Key, a.Owner, program)
		}
		return nil
	}
}

func IsSystemProgram(a *account.Info) Check {
	return isCollaborator(a, account.SystemProgramID, "system program")
}

func IsTokenProgram(a *account.Info) Check {
	return isCollaborator(a, account.TokenProgramID, "token program")
}

func IsRentSysvar(a *account.Info) Check {
	return isCollaborator(a, account.RentSysvarID, "rent sysvar")
}

func isCollaborator(a *account.Info, want address.Address, name string) Check {
	return func() error {
		if a.Key != want {
			return errs.Wrapf(errs.ErrUnexpectedCollaborator, "expected %s, received %s", name, a.Key)
		}
		return nil
	}
}

// Initialized fails for accounts that hold no lamports.
func Initialized(a *account.Info) Check {
	return func() error {
		if !a.Exists() {
			return errs.Wrapf(errs.ErrAccountNotFound, "account %s", a.Key)
		}
		return nil
	}
}

// Uninitialized fails for accounts that already hold lamports or data.
func Uninitialized(a *account.Info) Check {
	return func() error {
		if a.Exists() || len(a.Data) > 0 {
			return errs.Wrapf(errs.ErrAccountAlreadyInUse, "account %s", a.Key)
		}
		return nil
	}
}

// Accounts returns the first n accounts or ErrNotEnoughAccounts.
func Accounts(accounts []*account.Info, n int) ([]*account.Info, error) {
	if len(accounts) < n {
		return nil, errs.Wrapf(errs.ErrNotEnoughAccounts, "need %d, got %d", n, len(accounts))
	}
	return accounts[:n], nil
}
