// Package oracle supplies exchange rates to the booth. Every source reports
// quote units per base unit and refuses to answer with a stale price.
package oracle

import (
	"context"
	"math/big"
	"time"

	"github.com/0gfoundation/exchange-booth/internal/account"
	"github.com/0gfoundation/exchange-booth/internal/address"
	"github.com/0gfoundation/exchange-booth/internal/errs"
	"github.com/0gfoundation/exchange-booth/internal/layout"
)

const PriceAccountSize = address.Size + address.Size + 8 + 4 + 8 + address.Size

// MaxExpo bounds the decimal exponent of a price account in both directions.
const MaxExpo = 38

// MaxClockSkew is how far ahead of the local clock a publish time may be.
const MaxClockSkew = 5 * time.Second

// PriceAccount is the on-ledger price record: price = Mantissa * 10^Expo.
// Only Authority may publish new prices into it.
type PriceAccount struct {
	Base        address.Address
	Quote       address.Address
	Mantissa    uint64
	Expo        int32
	PublishTime int64
	Authority   address.Address
}

func (p *PriceAccount) Marshal() []byte {
	b := make([]byte, PriceAccountSize)
	offset := 0
	layout.PutKey(b, p.Base, &offset)
	layout.PutKey(b, p.Quote, &offset)
	layout.PutUint64(b, p.Mantissa, &offset)
	layout.PutInt32(b, p.Expo, &offset)
	layout.PutInt64(b, p.PublishTime, &offset)
	layout.PutKey(b, p.Authority, &offset)
	return b
}

func (p *PriceAccount) Unmarshal(data []byte) error {
	if len(data) < PriceAccountSize {
		return errs.Wrapf(errs.ErrInvalidAccountData, "price account: %d bytes", len(data))
	}
	offset := 0
	layout.GetKey(data, &p.Base, &offset)
	layout.GetKey(data, &p.Quote, &offset)
	layout.GetUint64(data, &p.Mantissa, &offset)
	layout.GetInt32(data, &p.Expo, &offset)
	layout.GetInt64(data, &p.PublishTime, &offset)
	layout.GetKey(data, &p.Authority, &offset)
	return nil
}

// Rat returns the price as an exact rational. Expo must be within ±MaxExpo.
func (p *PriceAccount) Rat() (*big.Rat, error) {
	if p.Expo > MaxExpo || p.Expo < -MaxExpo {
		return nil, errs.Wrapf(errs.ErrOracleUnavailable, "price exponent %d outside ±%d", p.Expo, MaxExpo)
	}
	exp := int64(p.Expo)
	if exp < 0 {
		exp = -exp
	}
	r := new(big.Rat).SetInt(new(big.Int).SetUint64(p.Mantissa))
	scale := new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(exp), nil))
	if p.Expo >= 0 {
		return r.Mul(r, scale), nil
	}
	return r.Quo(r, scale), nil
}

// checkFresh rejects prices older than maxAge and prices published more than
// MaxClockSkew in the future. A zero maxAge disables the age check only.
func checkFresh(published, now time.Time, maxAge time.Duration) error {
	if published.After(now.Add(MaxClockSkew)) {
		return errs.Wrapf(errs.ErrOracleUnavailable, "price published %s in the future", published.Sub(now).Truncate(time.Second))
	}
	if maxAge <= 0 {
		return nil
	}
	if age := now.Sub(published); age > maxAge {
		return errs.Wrapf(errs.ErrOracleUnavailable, "price is %s old, max %s", age.Truncate(time.Second), maxAge)
	}
	return nil
}

// AccountFeed reads the price from the oracle account passed to the instruction.
type AccountFeed struct {
	MaxAge time.Duration
	Now    func() time.Time
}

func NewAccountFeed(maxAge time.Duration) *AccountFeed {
	return &AccountFeed{MaxAge: maxAge, Now: time.Now}
}

func (f *AccountFeed) Rate(ctx context.Context, oracle *account.Info, base, quote address.Address) (*big.Rat, error) {
	if !oracle.Exists() {
		return nil, errs.Wrapf(errs.ErrOracleUnavailable, "oracle account %s does not exist", oracle.Key)
	}
	var p PriceAccount
	if err := p.Unmarshal(oracle.Data); err != nil {
		return nil, errs.Wrap(errs.ErrOracleUnavailable, err)
	}
	if p.Base != base || p.Quote != quote {
		return nil, errs.Wrapf(errs.ErrOracleUnavailable, "oracle %s prices %s/%s", oracle.Key, p.Base, p.Quote)
	}
	if p.Mantissa == 0 {
		return nil, errs.Wrapf(errs.ErrOracleUnavailable, "oracle %s reports zero price", oracle.Key)
	}
	if err := checkFresh(time.Unix(p.PublishTime, 0), f.Now(), f.MaxAge); err != nil {
		return nil, err
	}
	return p.Rat()
}

type pair struct{ base, quote address.Address }

// Static answers from a fixed table and never goes stale.
type Static struct {
	rates map[pair]*big.Rat
}

func NewStatic() *Static {
	return &Static{rates: make(map[pair]*big.Rat)}
}

func (s *Static) Set(base, quote address.Address, rate *big.Rat) *Static {
	s.rates[pair{base, quote}] = new(big.Rat).Set(rate)
	return s
}

func (s *Static) Rate(ctx context.Context, oracle *account.Info, base, quote address.Address) (*big.Rat, error) {
	r, ok := s.rates[pair{base, quote}]
	if !ok {
		return nil, errs.Wrapf(errs.ErrOracleUnavailable, "no static rate for %s/%s", base, quote)
	}
	return new(big.Rat).Set(r), nil
}
