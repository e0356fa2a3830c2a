// Package program is the entry point of the custodial program: it decodes
// instruction data, maps the positional account list onto the echo and
// exchange booth processors and dispatches.
package program

import (
	"context"

	"go.uber.org/zap"

	"github.com/0gfoundation/exchange-booth/internal/account"
	"github.com/0gfoundation/exchange-booth/internal/address"
	"github.com/0gfoundation/exchange-booth/internal/booth"
	"github.com/0gfoundation/exchange-booth/internal/echo"
	"github.com/0gfoundation/exchange-booth/internal/errs"
	"github.com/0gfoundation/exchange-booth/internal/guard"
	"github.com/0gfoundation/exchange-booth/internal/instruction"
	"github.com/0gfoundation/exchange-booth/internal/runtime"
)

// Tokens is the token program as seen by both processors.
type Tokens interface {
	booth.TokenVault
	echo.TokenBurner
}

// Deps are the collaborators a Router is built from.
type Deps struct {
	Space  address.Space
	Alloc  account.Allocator
	Tokens Tokens
	Oracle booth.Oracle
	Log    *zap.Logger
}

type Router struct {
	program address.Address
	echo    *echo.Processor
	booth   *booth.Engine
	log     *zap.Logger
}

func NewRouter(programID address.Address, deps Deps) *Router {
	return &Router{
		program: programID,
		echo:    echo.NewProcessor(programID, deps.Space, deps.Alloc, deps.Tokens, deps.Log),
		booth:   booth.NewEngine(programID, deps.Space, deps.Alloc, deps.Tokens, deps.Oracle, deps.Log),
		log:     deps.Log,
	}
}

// NewFactory registers the program with a runtime. The runtime supplies
// allocation and token access per invocation; the oracle is shared.
func NewFactory(oracle booth.Oracle) runtime.Factory {
	return func(env runtime.Env) runtime.Processor {
		return NewRouter(env.Program, Deps{
			Space:  env.Space,
			Alloc:  env.Alloc,
			Tokens: env.Tokens,
			Oracle: oracle,
			Log:    env.Log,
		})
	}
}

func (r *Router) Process(ctx context.Context, accounts []*account.Info, data []byte) error {
	args, err := instruction.Decode(data)
	if err != nil {
		return err
	}
	r.log.Debug("processing instruction", zap.Stringer("instruction", args.Tag()), zap.Int("accounts", len(accounts)))

	switch a := args.(type) {
	case *instruction.EchoArgs:
		acc, err := guard.Accounts(accounts, 1)
		if err != nil {
			return err
		}
		return r.echo.Echo(ctx, acc[0], a.Data)

	case *instruction.InitializeAuthorizedEchoArgs:
		acc, err := guard.Accounts(accounts, 3)
		if err != nil {
			return err
		}
		return r.echo.InitializeAuthorized(ctx, acc[0], acc[1], acc[2], a.OwnerSeed, a.BufferSize)

	case *instruction.AuthorizedEchoArgs:
		acc, err := guard.Accounts(accounts, 2)
		if err != nil {
			return err
		}
		return r.echo.Authorized(ctx, acc[0], acc[1], a.Data)

	case *instruction.InitializeVendingMachineEchoArgs:
		acc, err := guard.Accounts(accounts, 4)
		if err != nil {
			return err
		}
		return r.echo.InitializeVending(ctx, acc[0], acc[1], acc[2], acc[3], a.Price, a.BufferSize)

	case *instruction.VendingMachineEchoArgs:
		acc, err := guard.Accounts(accounts, 5)
		if err != nil {
			return err
		}
		return r.echo.Vending(ctx, acc[0], acc[1], acc[2], acc[3], acc[4], a.Data)

	case *instruction.InitializeExchangeBoothArgs:
		acc, err := guard.Accounts(accounts, 10)
		if err != nil {
			return err
		}
		return r.booth.Initialize(ctx, booth.InitializeAccounts{
			Admin:         acc[0],
			MintBase:      acc[1],
			MintQuote:     acc[2],
			Oracle:        acc[3],
			TokenProgram:  acc[4],
			SystemProgram: acc[5],
			RentSysvar:    acc[6],
			State:         acc[7],
			VaultBase:     acc[8],
			VaultQuote:    acc[9],
		}, a.VaultBaseBump, a.VaultQuoteBump, a.StateBump)

	case *instruction.DepositArgs:
		ta, err := transferAccounts(accounts)
		if err != nil {
			return err
		}
		return r.booth.Deposit(ctx, ta, a.Mint, a.Amount)

	case *instruction.WithdrawArgs:
		ta, err := transferAccounts(accounts)
		if err != nil {
			return err
		}
		return r.booth.Withdraw(ctx, ta, a.Mint, a.Amount)

	case *instruction.ExchangeArgs:
		acc, err := guard.Accounts(accounts, 8)
		if err != nil {
			return err
		}
		return r.booth.Exchange(ctx, booth.ExchangeAccounts{
			User:         acc[0],
			UserIn:       acc[1],
			UserOut:      acc[2],
			Oracle:       acc[3],
			TokenProgram: acc[4],
			VaultBase:    acc[5],
			VaultQuote:   acc[6],
			State:        acc[7],
		}, a.InputMint, a.Amount)

	case *instruction.CloseExchangeBoothArgs:
		acc, err := guard.Accounts(accounts, 7)
		if err != nil {
			return err
		}
		return r.booth.Close(ctx, booth.CloseAccounts{
			Admin:        acc[0],
			AdminBase:    acc[1],
			AdminQuote:   acc[2],
			TokenProgram: acc[3],
			VaultBase:    acc[4],
			VaultQuote:   acc[5],
			State:        acc[6],
		})

	case *instruction.UpdateFeeArgs:
		acc, err := guard.Accounts(accounts, 2)
		if err != nil {
			return err
		}
		return r.booth.UpdateFee(ctx, acc[0], acc[1], a.FeeBps)

	default:
		return errs.Wrapf(errs.ErrNotImplemented, "instruction %s", args.Tag())
	}
}

func transferAccounts(accounts []*account.Info) (booth.TransferAccounts, error) {
	acc, err := guard.Accounts(accounts, 5)
	if err != nil {
		return booth.TransferAccounts{}, err
	}
	return booth.TransferAccounts{
		Admin:        acc[0],
		AdminToken:   acc[1],
		TokenProgram: acc[2],
		Vault:        acc[3],
		State:        acc[4],
	}, nil
}
