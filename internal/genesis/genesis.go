// Package genesis seeds an empty ledger: funded wallets, token mints with
// their holders, and price accounts for the oracle publisher.
package genesis

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/0gfoundation/exchange-booth/internal/account"
	"github.com/0gfoundation/exchange-booth/internal/address"
	"github.com/0gfoundation/exchange-booth/internal/ledger"
	"github.com/0gfoundation/exchange-booth/internal/oracle"
	"github.com/0gfoundation/exchange-booth/internal/system"
	"github.com/0gfoundation/exchange-booth/internal/token"
)

type Genesis struct {
	Accounts      []Wallet       `mapstructure:"accounts"`
	Mints         []Mint         `mapstructure:"mints"`
	TokenAccounts []TokenAccount `mapstructure:"token_accounts"`
	Prices        []Price        `mapstructure:"prices"`
}

// Wallet is a system-owned account holding lamports.
type Wallet struct {
	Address  address.Address `mapstructure:"address"`
	Lamports uint64          `mapstructure:"lamports"`
}

type Mint struct {
	Address   address.Address `mapstructure:"address"`
	Authority address.Address `mapstructure:"authority"`
	Decimals  uint8           `mapstructure:"decimals"`
}

// TokenAccount holds Amount of Mint for Owner. Mint must be listed in Mints;
// its supply is the sum of these amounts.
type TokenAccount struct {
	Address address.Address `mapstructure:"address"`
	Mint    address.Address `mapstructure:"mint"`
	Owner   address.Address `mapstructure:"owner"`
	Amount  uint64          `mapstructure:"amount"`
}

// Price is a price account owned by the oracle publisher, stamped with the
// time genesis is applied.
type Price struct {
	Address   address.Address `mapstructure:"address"`
	Authority address.Address `mapstructure:"authority"`
	Base      address.Address `mapstructure:"base"`
	Quote     address.Address `mapstructure:"quote"`
	Mantissa  uint64          `mapstructure:"mantissa"`
	Expo      int32           `mapstructure:"expo"`
}

// Load reads a genesis file (yaml, json or toml by extension).
func Load(path string) (*Genesis, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read genesis %s: %w", path, err)
	}
	g := &Genesis{}
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(g, hook); err != nil {
		return nil, fmt.Errorf("decode genesis %s: %w", path, err)
	}
	return g, nil
}

// Build turns g into ledger accounts. Data accounts are funded at the
// rent-exempt minimum.
func (g *Genesis) Build(rent system.Rent, now time.Time) ([]*account.Info, error) {
	var out []*account.Info
	seen := make(map[address.Address]bool)
	add := func(info *account.Info) error {
		if info.Key.IsZero() {
			return fmt.Errorf("genesis: account without address")
		}
		if seen[info.Key] {
			return fmt.Errorf("genesis: duplicate address %s", info.Key)
		}
		if info.Lamports == 0 {
			return fmt.Errorf("genesis: account %s has no lamports", info.Key)
		}
		seen[info.Key] = true
		out = append(out, info)
		return nil
	}

	for _, w := range g.Accounts {
		if err := add(&account.Info{Key: w.Address, Owner: account.SystemProgramID, Lamports: w.Lamports}); err != nil {
			return nil, err
		}
	}

	supply := make(map[address.Address]uint64, len(g.Mints))
	for _, m := range g.Mints {
		supply[m.Address] = 0
	}
	for _, ta := range g.TokenAccounts {
		s, ok := supply[ta.Mint]
		if !ok {
			return nil, fmt.Errorf("genesis: token account %s holds unknown mint %s", ta.Address, ta.Mint)
		}
		if s > math.MaxUint64-ta.Amount {
			return nil, fmt.Errorf("genesis: supply of %s overflows", ta.Mint)
		}
		supply[ta.Mint] = s + ta.Amount
		state := token.Account{Mint: ta.Mint, Owner: ta.Owner, Amount: ta.Amount, State: token.AccountStateInitialized}
		if err := add(dataAccount(ta.Address, account.TokenProgramID, state.Marshal(), rent)); err != nil {
			return nil, err
		}
	}
	for _, m := range g.Mints {
		state := token.Mint{MintAuthority: m.Authority, Supply: supply[m.Address], Decimals: m.Decimals, IsInitialized: true}
		if err := add(dataAccount(m.Address, account.TokenProgramID, state.Marshal(), rent)); err != nil {
			return nil, err
		}
	}

	for _, p := range g.Prices {
		if p.Mantissa == 0 {
			return nil, fmt.Errorf("genesis: price %s is zero", p.Address)
		}
		if p.Expo > oracle.MaxExpo || p.Expo < -oracle.MaxExpo {
			return nil, fmt.Errorf("genesis: price %s exponent %d outside ±%d", p.Address, p.Expo, oracle.MaxExpo)
		}
		state := oracle.PriceAccount{
			Base:        p.Base,
			Quote:       p.Quote,
			Mantissa:    p.Mantissa,
			Expo:        p.Expo,
			PublishTime: now.Unix(),
			Authority:   p.Authority,
		}
		if err := add(dataAccount(p.Address, oracle.ProgramID, state.Marshal(), rent)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func dataAccount(key, owner address.Address, data []byte, rent system.Rent) *account.Info {
	return &account.Info{
		Key:      key,
		Owner:    owner,
		Lamports: rent.MinimumBalance(uint64(len(data))),
		Data:     data,
	}
}

// Apply writes accounts to store unless any of them already exists, so a
// restarted node never re-seeds a ledger it has been running on. It reports
// whether genesis was written.
func Apply(ctx context.Context, store ledger.Store, accounts []*account.Info, log *zap.Logger) (bool, error) {
	for _, info := range accounts {
		existing, _, err := store.Get(ctx, info.Key)
		if err != nil {
			return false, fmt.Errorf("genesis check %s: %w", info.Key, err)
		}
		if existing.Exists() {
			log.Info("ledger already initialized; genesis skipped", zap.String("account", info.Key.String()))
			return false, nil
		}
	}
	for _, info := range accounts {
		if err := store.Put(ctx, info); err != nil {
			return false, fmt.Errorf("genesis put %s: %w", info.Key, err)
		}
	}
	log.Info("genesis applied", zap.Int("accounts", len(accounts)))
	return true, nil
}
