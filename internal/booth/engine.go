package booth

import (
	"context"
	"errors"
	"math/big"

	"go.uber.org/zap"

	"github.com/0gfoundation/exchange-booth/internal/account"
	"github.com/0gfoundation/exchange-booth/internal/address"
	"github.com/0gfoundation/exchange-booth/internal/errs"
	"github.com/0gfoundation/exchange-booth/internal/guard"
	"github.com/0gfoundation/exchange-booth/internal/token"
)

// TokenVault moves funds in and out of the booth vaults.
type TokenVault interface {
	InitializeAccount(ctx context.Context, acct, mint *account.Info, owner address.Address) error
	Transfer(ctx context.Context, src, dst, authority *account.Info, amount uint64, signerSeeds ...[][]byte) error
	CloseAccount(ctx context.Context, acct, dest, authority *account.Info, signerSeeds ...[][]byte) error
	Balance(acct *account.Info) (uint64, error)
	Decimals(mint *account.Info) (uint8, error)
}

// Oracle reports quote units per base unit. Implementations must not cache.
type Oracle interface {
	Rate(ctx context.Context, oracle *account.Info, base, quote address.Address) (*big.Rat, error)
}

type Engine struct {
	program address.Address
	space   address.Space
	alloc   account.Allocator
	tokens  TokenVault
	oracle  Oracle
	log     *zap.Logger
}

func NewEngine(program address.Address, space address.Space, alloc account.Allocator, tokens TokenVault, oracle Oracle, log *zap.Logger) *Engine {
	return &Engine{program: program, space: space, alloc: alloc, tokens: tokens, oracle: oracle, log: log}
}

type InitializeAccounts struct {
	Admin, MintBase, MintQuote, Oracle      *account.Info
	TokenProgram, SystemProgram, RentSysvar *account.Info
	State, VaultBase, VaultQuote            *account.Info
}

type TransferAccounts struct {
	Admin, AdminToken, TokenProgram, Vault, State *account.Info
}

type ExchangeAccounts struct {
	User, UserIn, UserOut, Oracle, TokenProgram *account.Info
	VaultBase, VaultQuote, State                *account.Info
}

type CloseAccounts struct {
	Admin, AdminBase, AdminQuote, TokenProgram *account.Info
	VaultBase, VaultQuote, State               *account.Info
}

// Initialize creates the state account and both vaults. The bumps come from
// the caller and are checked against the derivation.
func (e *Engine) Initialize(ctx context.Context, a InitializeAccounts, vaultBaseBump, vaultQuoteBump, stateBump uint8) error {
	if err := guard.All(
		guard.Signer(a.Admin),
		guard.Writable(a.Admin),
		guard.IsTokenProgram(a.TokenProgram),
		guard.IsSystemProgram(a.SystemProgram),
		guard.IsRentSysvar(a.RentSysvar),
		guard.Writable(a.State),
		guard.Writable(a.VaultBase),
		guard.Writable(a.VaultQuote),
		guard.Uninitialized(a.State),
	); err != nil {
		return err
	}
	if a.MintBase.Key == a.MintQuote.Key {
		return errs.Wrapf(errs.ErrInvalidAccountData, "base and quote mint are both %s", a.MintBase.Key)
	}

	stateSeeds := StateSeeds(a.Admin.Key, a.MintBase.Key, a.MintQuote.Key, a.Oracle.Key)
	baseSeeds := VaultSeeds(a.State.Key, a.MintBase.Key, SideBase)
	quoteSeeds := VaultSeeds(a.State.Key, a.MintQuote.Key, SideQuote)
	if err := address.Verify(e.space, stateSeeds, stateBump, e.program, a.State.Key); err != nil {
		return err
	}
	if err := address.Verify(e.space, baseSeeds, vaultBaseBump, e.program, a.VaultBase.Key); err != nil {
		return err
	}
	if err := address.Verify(e.space, quoteSeeds, vaultQuoteBump, e.program, a.VaultQuote.Key); err != nil {
		return err
	}

	decBase, err := e.tokens.Decimals(a.MintBase)
	if err != nil {
		return err
	}
	decQuote, err := e.tokens.Decimals(a.MintQuote)
	if err != nil {
		return err
	}

	if err := e.alloc.Allocate(ctx, a.Admin, a.State, StateSize, e.program, withBump(stateSeeds, stateBump)); err != nil {
		return err
	}
	vaults := []struct {
		vault, mint *account.Info
		seeds       [][]byte
	}{
		{a.VaultBase, a.MintBase, withBump(baseSeeds, vaultBaseBump)},
		{a.VaultQuote, a.MintQuote, withBump(quoteSeeds, vaultQuoteBump)},
	}
	for _, v := range vaults {
		if err := e.alloc.Allocate(ctx, a.Admin, v.vault, token.AccountSize, account.TokenProgramID, v.seeds); err != nil {
			return err
		}
		if err := e.tokens.InitializeAccount(ctx, v.vault, v.mint, a.State.Key); err != nil {
			return err
		}
	}

	st := State{
		Admin:         a.Admin.Key,
		MintBase:      a.MintBase.Key,
		DecimalsBase:  decBase,
		MintQuote:     a.MintQuote.Key,
		DecimalsQuote: decQuote,
		Oracle:        a.Oracle.Key,
	}
	copy(a.State.Data, st.Marshal())

	e.log.Info("exchange booth initialized",
		zap.String("state", a.State.Key.String()),
		zap.String("admin", a.Admin.Key.String()),
		zap.String("mint_base", a.MintBase.Key.String()),
		zap.String("mint_quote", a.MintQuote.Key.String()),
	)
	return nil
}

// Deposit moves amount of mint from the admin's token account into the
// matching vault.
func (e *Engine) Deposit(ctx context.Context, a TransferAccounts, mint address.Address, amount uint64) error {
	st, side, err := e.prepareTransfer(a, mint)
	if err != nil {
		return err
	}
	if err := e.tokens.Transfer(ctx, a.AdminToken, a.Vault, a.Admin, amount); err != nil {
		return err
	}
	e.log.Debug("deposit",
		zap.String("state", a.State.Key.String()),
		zap.Stringer("side", side),
		zap.Uint64("amount", amount),
		zap.Uint64("fee_bps", st.FeeBps),
	)
	return nil
}

// Withdraw moves amount of mint from the matching vault to the admin.
func (e *Engine) Withdraw(ctx context.Context, a TransferAccounts, mint address.Address, amount uint64) error {
	st, side, err := e.prepareTransfer(a, mint)
	if err != nil {
		return err
	}
	seeds, err := e.stateSigner(st, a.State.Key)
	if err != nil {
		return err
	}
	if err := e.tokens.Transfer(ctx, a.Vault, a.AdminToken, a.State, amount, seeds); err != nil {
		return vaultError(err)
	}
	e.log.Debug("withdraw",
		zap.String("state", a.State.Key.String()),
		zap.Stringer("side", side),
		zap.Uint64("amount", amount),
	)
	return nil
}

func (e *Engine) prepareTransfer(a TransferAccounts, mint address.Address) (*State, Side, error) {
	if err := guard.All(
		guard.Signer(a.Admin),
		guard.Writable(a.AdminToken),
		guard.IsTokenProgram(a.TokenProgram),
		guard.Writable(a.Vault),
	); err != nil {
		return nil, 0, err
	}
	st, err := e.loadState(a.State)
	if err != nil {
		return nil, 0, err
	}
	if st.Admin != a.Admin.Key {
		return nil, 0, errs.Wrapf(errs.ErrNotAdmin, "%s", a.Admin.Key)
	}
	side, err := st.SideOf(mint)
	if err != nil {
		return nil, 0, err
	}
	if err := e.checkVault(a.State.Key, st, side, a.Vault); err != nil {
		return nil, 0, err
	}
	return st, side, nil
}

// Quote is the result of pricing an exchange without executing it.
type Quote struct {
	InputMint  address.Address
	OutputMint address.Address
	InputSide  Side
	Amount     uint64
	Output     uint64
	// Rate is output units per input unit in whole tokens, before fees.
	Rate   *big.Rat
	FeeBps uint64
}

// Quote prices an exchange of amount inputMint against a fresh oracle rate.
func (e *Engine) Quote(ctx context.Context, state, oracle *account.Info, inputMint address.Address, amount uint64) (*Quote, error) {
	st, err := e.loadState(state)
	if err != nil {
		return nil, err
	}
	return e.quote(ctx, st, oracle, inputMint, amount)
}

func (e *Engine) quote(ctx context.Context, st *State, oracle *account.Info, inputMint address.Address, amount uint64) (*Quote, error) {
	if oracle.Key != st.Oracle {
		return nil, errs.Wrapf(errs.ErrAddressMismatch, "booth oracle is %s, got %s", st.Oracle, oracle.Key)
	}
	in, err := st.SideOf(inputMint)
	if err != nil {
		return nil, err
	}
	out := SideQuote
	if in == SideQuote {
		out = SideBase
	}

	rate, err := e.oracle.Rate(ctx, oracle, st.MintBase, st.MintQuote)
	if err != nil {
		if errors.Is(err, errs.ErrOracleUnavailable) {
			return nil, err
		}
		return nil, errs.Wrap(errs.ErrOracleUnavailable, err)
	}
	if rate.Sign() <= 0 {
		return nil, errs.Wrapf(errs.ErrOracleUnavailable, "non-positive rate %s", rate.RatString())
	}
	if in == SideQuote {
		rate = new(big.Rat).Inv(rate)
	}

	output, err := ComputeOutput(amount, rate, st.Decimals(in), st.Decimals(out), st.FeeBps)
	if err != nil {
		return nil, err
	}
	return &Quote{
		InputMint:  inputMint,
		OutputMint: st.Mint(out),
		InputSide:  in,
		Amount:     amount,
		Output:     output,
		Rate:       rate,
		FeeBps:     st.FeeBps,
	}, nil
}

// Exchange takes amount of inputMint from the user into its vault and pays
// out the other side at the current oracle rate minus the fee.
func (e *Engine) Exchange(ctx context.Context, a ExchangeAccounts, inputMint address.Address, amount uint64) error {
	if err := guard.All(
		guard.Signer(a.User),
		guard.Writable(a.UserIn),
		guard.Writable(a.UserOut),
		guard.IsTokenProgram(a.TokenProgram),
		guard.Writable(a.VaultBase),
		guard.Writable(a.VaultQuote),
	); err != nil {
		return err
	}
	st, err := e.loadState(a.State)
	if err != nil {
		return err
	}
	if err := e.checkVault(a.State.Key, st, SideBase, a.VaultBase); err != nil {
		return err
	}
	if err := e.checkVault(a.State.Key, st, SideQuote, a.VaultQuote); err != nil {
		return err
	}
	q, err := e.quote(ctx, st, a.Oracle, inputMint, amount)
	if err != nil {
		return err
	}
	seeds, err := e.stateSigner(st, a.State.Key)
	if err != nil {
		return err
	}

	inVault, outVault := a.VaultBase, a.VaultQuote
	if q.InputSide == SideQuote {
		inVault, outVault = a.VaultQuote, a.VaultBase
	}
	if err := e.tokens.Transfer(ctx, a.UserIn, inVault, a.User, amount); err != nil {
		return err
	}
	if err := e.tokens.Transfer(ctx, outVault, a.UserOut, a.State, q.Output, seeds); err != nil {
		return vaultError(err)
	}

	e.log.Info("exchange",
		zap.String("state", a.State.Key.String()),
		zap.String("user", a.User.Key.String()),
		zap.Stringer("input_side", q.InputSide),
		zap.Uint64("amount_in", amount),
		zap.Uint64("amount_out", q.Output),
		zap.String("rate", q.Rate.RatString()),
	)
	return nil
}

// Close drains both vaults to the admin, closes them and releases the state.
func (e *Engine) Close(ctx context.Context, a CloseAccounts) error {
	if err := guard.All(
		guard.Signer(a.Admin),
		guard.Writable(a.Admin),
		guard.Writable(a.AdminBase),
		guard.Writable(a.AdminQuote),
		guard.IsTokenProgram(a.TokenProgram),
		guard.Writable(a.VaultBase),
		guard.Writable(a.VaultQuote),
		guard.Writable(a.State),
	); err != nil {
		return err
	}
	st, err := e.loadState(a.State)
	if err != nil {
		return err
	}
	if st.Admin != a.Admin.Key {
		return errs.Wrapf(errs.ErrNotAdmin, "%s", a.Admin.Key)
	}
	if err := e.checkVault(a.State.Key, st, SideBase, a.VaultBase); err != nil {
		return err
	}
	if err := e.checkVault(a.State.Key, st, SideQuote, a.VaultQuote); err != nil {
		return err
	}
	seeds, err := e.stateSigner(st, a.State.Key)
	if err != nil {
		return err
	}

	for _, v := range []struct{ vault, dest *account.Info }{
		{a.VaultBase, a.AdminBase},
		{a.VaultQuote, a.AdminQuote},
	} {
		bal, err := e.tokens.Balance(v.vault)
		if err != nil {
			return err
		}
		if bal > 0 {
			if err := e.tokens.Transfer(ctx, v.vault, v.dest, a.State, bal, seeds); err != nil {
				return err
			}
		}
		if err := e.tokens.CloseAccount(ctx, v.vault, a.Admin, a.State, seeds); err != nil {
			return err
		}
	}
	if err := e.alloc.Release(ctx, a.State, a.Admin); err != nil {
		return err
	}

	e.log.Info("exchange booth closed", zap.String("state", a.State.Key.String()))
	return nil
}

// UpdateFee sets the booth fee.
func (e *Engine) UpdateFee(ctx context.Context, admin, state *account.Info, feeBps uint64) error {
	if err := guard.All(
		guard.Signer(admin),
		guard.Writable(state),
	); err != nil {
		return err
	}
	if feeBps > MaxFeeBps {
		return errs.Wrapf(errs.ErrInvalidFee, "%d bps", feeBps)
	}
	st, err := e.loadState(state)
	if err != nil {
		return err
	}
	if st.Admin != admin.Key {
		return errs.Wrapf(errs.ErrNotAdmin, "%s", admin.Key)
	}
	st.FeeBps = feeBps
	copy(state.Data, st.Marshal())
	return nil
}

// LoadState decodes a live booth state account owned by program.
func LoadState(program address.Address, info *account.Info) (*State, error) {
	if err := guard.All(
		guard.Initialized(info),
		guard.OwnedBy(info, program),
	); err != nil {
		return nil, err
	}
	var st State
	if err := st.Unmarshal(info.Data); err != nil {
		return nil, err
	}
	return &st, nil
}

func (e *Engine) loadState(info *account.Info) (*State, error) {
	return LoadState(e.program, info)
}

func (e *Engine) checkVault(state address.Address, st *State, side Side, vault *account.Info) error {
	want, _, err := VaultAddress(e.space, e.program, state, st.Mint(side), side)
	if err != nil {
		return errs.Wrap(errs.ErrAddressMismatch, err)
	}
	if want != vault.Key {
		return errs.Wrapf(errs.ErrAddressMismatch, "%s vault is %s, got %s", side, want, vault.Key)
	}
	return nil
}

// stateSigner returns the seeds that let the state account sign for its vaults.
func (e *Engine) stateSigner(st *State, state address.Address) ([][]byte, error) {
	seeds := StateSeeds(st.Admin, st.MintBase, st.MintQuote, st.Oracle)
	addr, bump, err := address.Derive(e.space, seeds, e.program)
	if err != nil {
		return nil, errs.Wrap(errs.ErrAddressMismatch, err)
	}
	if addr != state {
		return nil, errs.Wrapf(errs.ErrAddressMismatch, "state is %s, got %s", addr, state)
	}
	return withBump(seeds, bump), nil
}

func vaultError(err error) error {
	if errors.Is(err, errs.ErrInsufficientFunds) {
		return errs.Wrap(errs.ErrInsufficientVaultBalance, err)
	}
	return err
}
