package booth

import (
	"math/big"

	"github.com/0gfoundation/exchange-booth/internal/errs"
)

var maxUint64 = new(big.Int).SetUint64(^uint64(0))

// ComputeOutput converts amount input units to output units:
//
//	floor(amount * rate * 10^(decOut-decIn) * (10000-feeBps) / 10000)
//
// rate is output units per input unit in whole tokens.
func ComputeOutput(amount uint64, rate *big.Rat, decIn, decOut uint8, feeBps uint64) (uint64, error) {
	if feeBps > MaxFeeBps {
		return 0, errs.Wrapf(errs.ErrInvalidFee, "%d bps", feeBps)
	}
	if rate.Sign() <= 0 {
		return 0, errs.Wrapf(errs.ErrOracleUnavailable, "non-positive rate %s", rate.RatString())
	}

	v := new(big.Rat).SetInt(new(big.Int).SetUint64(amount))
	v.Mul(v, rate)
	v.Mul(v, pow10(int(decOut)-int(decIn)))
	v.Mul(v, big.NewRat(int64(MaxFeeBps-feeBps), MaxFeeBps))

	out := new(big.Int).Quo(v.Num(), v.Denom())
	if out.Cmp(maxUint64) > 0 {
		return 0, errs.Wrapf(errs.ErrArithmeticOverflow, "output %s exceeds u64", out)
	}
	return out.Uint64(), nil
}

func pow10(exp int) *big.Rat {
	neg := exp < 0
	if neg {
		exp = -exp
	}
	p := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil)
	if neg {
		return new(big.Rat).SetFrac(big.NewInt(1), p)
	}
	return new(big.Rat).SetInt(p)
}
