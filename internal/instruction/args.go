// Package instruction is the wire format of the booth program: a one-byte
// tag followed by little-endian arguments, plus builders that lay out the
// positional account lists.
package instruction

import (
	"github.com/0gfoundation/exchange-booth/internal/address"
	"github.com/0gfoundation/exchange-booth/internal/errs"
	"github.com/0gfoundation/exchange-booth/internal/layout"
)

type Tag uint8

const (
	TagEcho Tag = iota
	TagInitializeAuthorizedEcho
	TagAuthorizedEcho
	TagInitializeVendingMachineEcho
	TagVendingMachineEcho
	TagInitializeExchangeBooth
	TagDeposit
	TagWithdraw
	TagExchange
	TagCloseExchangeBooth
	TagUpdateFee
)

func (t Tag) String() string {
	switch t {
	case TagEcho:
		return "Echo"
	case TagInitializeAuthorizedEcho:
		return "InitializeAuthorizedEcho"
	case TagAuthorizedEcho:
		return "AuthorizedEcho"
	case TagInitializeVendingMachineEcho:
		return "InitializeVendingMachineEcho"
	case TagVendingMachineEcho:
		return "VendingMachineEcho"
	case TagInitializeExchangeBooth:
		return "InitializeExchangeBooth"
	case TagDeposit:
		return "Deposit"
	case TagWithdraw:
		return "Withdraw"
	case TagExchange:
		return "Exchange"
	case TagCloseExchangeBooth:
		return "CloseExchangeBooth"
	case TagUpdateFee:
		return "UpdateFee"
	default:
		return "Unknown"
	}
}

// Args is the decoded argument set of one instruction.
type Args interface {
	Tag() Tag
	size() int
	put(dst []byte, offset *int)
	get(src []byte, offset *int) bool
}

type EchoArgs struct{ Data []byte }

type InitializeAuthorizedEchoArgs struct {
	OwnerSeed  uint64
	BufferSize uint32
}

type AuthorizedEchoArgs struct{ Data []byte }

type InitializeVendingMachineEchoArgs struct {
	Price      uint64
	BufferSize uint32
}

type VendingMachineEchoArgs struct{ Data []byte }

type InitializeExchangeBoothArgs struct {
	VaultBaseBump  uint8
	VaultQuoteBump uint8
	StateBump      uint8
}

type DepositArgs struct {
	Mint   address.Address
	Amount uint64
}

type WithdrawArgs struct {
	Mint   address.Address
	Amount uint64
}

type ExchangeArgs struct {
	InputMint address.Address
	Amount    uint64
}

type CloseExchangeBoothArgs struct{}

type UpdateFeeArgs struct{ FeeBps uint64 }

func (*EchoArgs) Tag() Tag                         { return TagEcho }
func (*InitializeAuthorizedEchoArgs) Tag() Tag     { return TagInitializeAuthorizedEcho }
func (*AuthorizedEchoArgs) Tag() Tag               { return TagAuthorizedEcho }
func (*InitializeVendingMachineEchoArgs) Tag() Tag { return TagInitializeVendingMachineEcho }
func (*VendingMachineEchoArgs) Tag() Tag           { return TagVendingMachineEcho }
func (*InitializeExchangeBoothArgs) Tag() Tag      { return TagInitializeExchangeBooth }
func (*DepositArgs) Tag() Tag                      { return TagDeposit }
func (*WithdrawArgs) Tag() Tag                     { return TagWithdraw }
func (*ExchangeArgs) Tag() Tag                     { return TagExchange }
func (*CloseExchangeBoothArgs) Tag() Tag           { return TagCloseExchangeBooth }
func (*UpdateFeeArgs) Tag() Tag                    { return TagUpdateFee }

// bytes-carrying instructions

func (a *EchoArgs) size() int                        { return 4 + len(a.Data) }
func (a *EchoArgs) put(dst []byte, offset *int)      { layout.PutBytes(dst, a.Data, offset) }
func (a *EchoArgs) get(src []byte, offset *int) bool { return layout.GetBytes(src, &a.Data, offset) }

func (a *AuthorizedEchoArgs) size() int                   { return 4 + len(a.Data) }
func (a *AuthorizedEchoArgs) put(dst []byte, offset *int) { layout.PutBytes(dst, a.Data, offset) }
func (a *AuthorizedEchoArgs) get(src []byte, offset *int) bool {
	return layout.GetBytes(src, &a.Data, offset)
}

func (a *VendingMachineEchoArgs) size() int                   { return 4 + len(a.Data) }
func (a *VendingMachineEchoArgs) put(dst []byte, offset *int) { layout.PutBytes(dst, a.Data, offset) }
func (a *VendingMachineEchoArgs) get(src []byte, offset *int) bool {
	return layout.GetBytes(src, &a.Data, offset)
}

// fixed-size instructions

func (a *InitializeAuthorizedEchoArgs) size() int { return 8 + 4 }
func (a *InitializeAuthorizedEchoArgs) put(dst []byte, offset *int) {
	layout.PutUint64(dst, a.OwnerSeed, offset)
	layout.PutUint32(dst, a.BufferSize, offset)
}
func (a *InitializeAuthorizedEchoArgs) get(src []byte, offset *int) bool {
	if !fits(src, *offset, a.size()) {
		return false
	}
	layout.GetUint64(src, &a.OwnerSeed, offset)
	layout.GetUint32(src, &a.BufferSize, offset)
	return true
}

func (a *InitializeVendingMachineEchoArgs) size() int { return 8 + 4 }
func (a *InitializeVendingMachineEchoArgs) put(dst []byte, offset *int) {
	layout.PutUint64(dst, a.Price, offset)
	layout.PutUint32(dst, a.BufferSize, offset)
}
func (a *InitializeVendingMachineEchoArgs) get(src []byte, offset *int) bool {
	if !fits(src, *offset, a.size()) {
		return false
	}
	layout.GetUint64(src, &a.Price, offset)
	layout.GetUint32(src, &a.BufferSize, offset)
	return true
}

func (a *InitializeExchangeBoothArgs) size() int { return 3 }
func (a *InitializeExchangeBoothArgs) put(dst []byte, offset *int) {
	layout.PutUint8(dst, a.VaultBaseBump, offset)
	layout.PutUint8(dst, a.VaultQuoteBump, offset)
	layout.PutUint8(dst, a.StateBump, offset)
}
func (a *InitializeExchangeBoothArgs) get(src []byte, offset *int) bool {
	if !fits(src, *offset, a.size()) {
		return false
	}
	layout.GetUint8(src, &a.VaultBaseBump, offset)
	layout.GetUint8(src, &a.VaultQuoteBump, offset)
	layout.GetUint8(src, &a.StateBump, offset)
	return true
}

func (a *DepositArgs) size() int                   { return address.Size + 8 }
func (a *DepositArgs) put(dst []byte, offset *int) { putMintAmount(dst, a.Mint, a.Amount, offset) }
func (a *DepositArgs) get(src []byte, offset *int) bool {
	return getMintAmount(src, &a.Mint, &a.Amount, offset)
}

func (a *WithdrawArgs) size() int                   { return address.Size + 8 }
func (a *WithdrawArgs) put(dst []byte, offset *int) { putMintAmount(dst, a.Mint, a.Amount, offset) }
func (a *WithdrawArgs) get(src []byte, offset *int) bool {
	return getMintAmount(src, &a.Mint, &a.Amount, offset)
}

func (a *ExchangeArgs) size() int { return address.Size + 8 }
func (a *ExchangeArgs) put(dst []byte, offset *int) {
	putMintAmount(dst, a.InputMint, a.Amount, offset)
}
func (a *ExchangeArgs) get(src []byte, offset *int) bool {
	return getMintAmount(src, &a.InputMint, &a.Amount, offset)
}

func (a *CloseExchangeBoothArgs) size() int                        { return 0 }
func (a *CloseExchangeBoothArgs) put(dst []byte, offset *int)      {}
func (a *CloseExchangeBoothArgs) get(src []byte, offset *int) bool { return true }

func (a *UpdateFeeArgs) size() int                   { return 8 }
func (a *UpdateFeeArgs) put(dst []byte, offset *int) { layout.PutUint64(dst, a.FeeBps, offset) }
func (a *UpdateFeeArgs) get(src []byte, offset *int) bool {
	if !fits(src, *offset, a.size()) {
		return false
	}
	layout.GetUint64(src, &a.FeeBps, offset)
	return true
}

func putMintAmount(dst []byte, mint address.Address, amount uint64, offset *int) {
	layout.PutKey(dst, mint, offset)
	layout.PutUint64(dst, amount, offset)
}

func getMintAmount(src []byte, mint *address.Address, amount *uint64, offset *int) bool {
	if !fits(src, *offset, address.Size+8) {
		return false
	}
	layout.GetKey(src, mint, offset)
	layout.GetUint64(src, amount, offset)
	return true
}

func fits(src []byte, offset, n int) bool {
	return len(src) >= offset+n
}

// Encode serializes args behind their tag.
func Encode(a Args) []byte {
	data := make([]byte, 1+a.size())
	offset := 0
	layout.PutUint8(data, uint8(a.Tag()), &offset)
	a.put(data, &offset)
	return data
}

// Decode parses instruction data. Unknown tags, short input and trailing
// bytes are all ErrInvalidInstruction.
func Decode(data []byte) (Args, error) {
	if len(data) == 0 {
		return nil, errs.Wrapf(errs.ErrInvalidInstruction, "empty instruction data")
	}
	var a Args
	switch Tag(data[0]) {
	case TagEcho:
		a = &EchoArgs{}
	case TagInitializeAuthorizedEcho:
		a = &InitializeAuthorizedEchoArgs{}
	case TagAuthorizedEcho:
		a = &AuthorizedEchoArgs{}
	case TagInitializeVendingMachineEcho:
		a = &InitializeVendingMachineEchoArgs{}
	case TagVendingMachineEcho:
		a = &VendingMachineEchoArgs{}
	case TagInitializeExchangeBooth:
		a = &InitializeExchangeBoothArgs{}
	case TagDeposit:
		a = &DepositArgs{}
	case TagWithdraw:
		a = &WithdrawArgs{}
	case TagExchange:
		a = &ExchangeArgs{}
	case TagCloseExchangeBooth:
		a = &CloseExchangeBoothArgs{}
	case TagUpdateFee:
		a = &UpdateFeeArgs{}
	default:
		return nil, errs.Wrapf(errs.ErrInvalidInstruction, "unknown tag %d", data[0])
	}
	offset := 1
	if !a.get(data, &offset) {
		return nil, errs.Wrapf(errs.ErrInvalidInstruction, "%s: truncated", a.Tag())
	}
	if offset != len(data) {
		return nil, errs.Wrapf(errs.ErrInvalidInstruction, "%s: %d trailing bytes", a.Tag(), len(data)-offset)
	}
	return a, nil
}
