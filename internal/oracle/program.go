package oracle

import (
	"context"

	"go.uber.org/zap"

	"github.com/0gfoundation/exchange-booth/internal/account"
	"github.com/0gfoundation/exchange-booth/internal/address"
	"github.com/0gfoundation/exchange-booth/internal/errs"
	"github.com/0gfoundation/exchange-booth/internal/guard"
	"github.com/0gfoundation/exchange-booth/internal/layout"
)

// ProgramID owns price accounts and accepts price updates from their authority.
var ProgramID = address.MustParse("FWFQz7ZoFQveqXfrpz4DuUhYerDpsu78zzs5swfoZZ6L")

const tagPublish uint8 = 0

const publishDataSize = 1 + 8 + 4 + 8

// Program is the price publisher. Accounts for Publish:
//
//	0 price account [w], 1 authority [s]
type Program struct {
	log *zap.Logger
}

func NewProgram(log *zap.Logger) *Program {
	return &Program{log: log}
}

func (p *Program) Process(ctx context.Context, accounts []*account.Info, data []byte) error {
	if len(data) == 0 || data[0] != tagPublish {
		return errs.Wrapf(errs.ErrInvalidInstruction, "unknown oracle instruction")
	}
	if len(data) != publishDataSize {
		return errs.Wrapf(errs.ErrInvalidInstruction, "Publish: %d bytes", len(data))
	}
	var (
		mantissa    uint64
		expo        int32
		publishTime int64
	)
	offset := 1
	layout.GetUint64(data, &mantissa, &offset)
	layout.GetInt32(data, &expo, &offset)
	layout.GetInt64(data, &publishTime, &offset)

	accs, err := guard.Accounts(accounts, 2)
	if err != nil {
		return err
	}
	priceInfo, authority := accs[0], accs[1]
	if err := guard.All(
		guard.Writable(priceInfo),
		guard.Signer(authority),
		guard.Initialized(priceInfo),
		guard.OwnedBy(priceInfo, ProgramID),
	); err != nil {
		return err
	}

	var price PriceAccount
	if err := price.Unmarshal(priceInfo.Data); err != nil {
		return err
	}
	if price.Authority != authority.Key {
		return errs.Wrapf(errs.ErrAddressMismatch, "price authority is %s, got %s", price.Authority, authority.Key)
	}
	if mantissa == 0 {
		return errs.Wrapf(errs.ErrInvalidInstruction, "zero price")
	}
	if expo > MaxExpo || expo < -MaxExpo {
		return errs.Wrapf(errs.ErrInvalidInstruction, "price exponent %d outside ±%d", expo, MaxExpo)
	}
	if publishTime < price.PublishTime {
		return errs.Wrapf(errs.ErrInvalidInstruction, "publish time %d precedes %d", publishTime, price.PublishTime)
	}

	price.Mantissa, price.Expo, price.PublishTime = mantissa, expo, publishTime
	copy(priceInfo.Data, price.Marshal())
	p.log.Debug("price published",
		zap.String("account", priceInfo.Key.String()),
		zap.Uint64("mantissa", mantissa),
		zap.Int32("expo", expo),
		zap.Int64("publish_time", publishTime),
	)
	return nil
}

// Publish builds a price update signed by the account's authority.
func Publish(price, authority address.Address, mantissa uint64, expo int32, publishTime int64) account.Instruction {
	data := make([]byte, publishDataSize)
	offset := 0
	layout.PutUint8(data, tagPublish, &offset)
	layout.PutUint64(data, mantissa, &offset)
	layout.PutInt32(data, expo, &offset)
	layout.PutInt64(data, publishTime, &offset)
	return account.Instruction{
		Program: ProgramID,
		Accounts: []account.Meta{
			{Address: price, IsWritable: true},
			{Address: authority, IsSigner: true},
		},
		Data: data,
	}
}
