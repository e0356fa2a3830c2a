package oracle

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/0gfoundation/exchange-booth/internal/account"
	"github.com/0gfoundation/exchange-booth/internal/address"
	"github.com/0gfoundation/exchange-booth/internal/errs"
)

var testPublisher = address.MustParse("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")

func publishAccounts(ix account.Instruction, price *account.Info, signed bool) []*account.Info {
	price.IsWritable = ix.Accounts[0].IsWritable
	authority := &account.Info{Key: ix.Accounts[1].Address, IsSigner: signed}
	return []*account.Info{price, authority}
}

func ownedPrice() *account.Info {
	p := PriceAccount{Base: testBase, Quote: testQuote, Mantissa: 1, PublishTime: testNow.Unix() - 600, Authority: testPublisher}
	return &account.Info{Key: testOracle, Owner: ProgramID, Lamports: 1, Data: p.Marshal()}
}

func TestProgram_Publish(t *testing.T) {
	info := ownedPrice()
	ix := Publish(testOracle, testPublisher, 25, -1, testNow.Unix())
	if err := NewProgram(zap.NewNop()).Process(context.Background(), publishAccounts(ix, info, true), ix.Data); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	// the refreshed account serves a fresh rate again
	r, err := newAccountFeed().Rate(context.Background(), info, testBase, testQuote)
	if err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if r.String() != "5/2" {
		t.Errorf("rate: got %s want 5/2", r)
	}
}

func TestProgram_PublishRejects(t *testing.T) {
	cases := []struct {
		name   string
		ix     account.Instruction
		signed bool
		mutate func(*account.Info)
		want   error
	}{
		{"unsigned", Publish(testOracle, testPublisher, 2, 0, testNow.Unix()), false, nil, errs.ErrMissingSignature},
		{"other authority", Publish(testOracle, testBase, 2, 0, testNow.Unix()), true, nil, errs.ErrAddressMismatch},
		{"foreign owner", Publish(testOracle, testPublisher, 2, 0, testNow.Unix()), true,
			func(a *account.Info) { a.Owner = account.SystemProgramID }, errs.ErrOwnerMismatch},
		{"zero price", Publish(testOracle, testPublisher, 0, 0, testNow.Unix()), true, nil, errs.ErrInvalidInstruction},
		{"exponent", Publish(testOracle, testPublisher, 2, MaxExpo+1, testNow.Unix()), true, nil, errs.ErrInvalidInstruction},
		{"backdated", Publish(testOracle, testPublisher, 2, 0, testNow.Unix()-3600), true, nil, errs.ErrInvalidInstruction},
	}
	for _, c := range cases {
		info := ownedPrice()
		before := info.Clone()
		if c.mutate != nil {
			c.mutate(info)
			before = info.Clone()
		}
		err := NewProgram(zap.NewNop()).Process(context.Background(), publishAccounts(c.ix, info, c.signed), c.ix.Data)
		if !errors.Is(err, c.want) {
			t.Errorf("%s: got %v want %v", c.name, err, c.want)
		}
		if !info.Equal(before) {
			t.Errorf("%s: price account modified on failure", c.name)
		}
	}
}
