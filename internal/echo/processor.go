package echo

import (
	"context"

	"go.uber.org/zap"

	"github.com/0gfoundation/exchange-booth/internal/account"
	"github.com/0gfoundation/exchange-booth/internal/address"
	"github.com/0gfoundation/exchange-booth/internal/errs"
	"github.com/0gfoundation/exchange-booth/internal/guard"
)

// TokenBurner takes the vending machine's payment.
type TokenBurner interface {
	Burn(ctx context.Context, acct, mint, authority *account.Info, amount uint64, signerSeeds ...[][]byte) error
}

type Processor struct {
	program address.Address
	space   address.Space
	alloc   account.Allocator
	tokens  TokenBurner
	log     *zap.Logger
}

func NewProcessor(program address.Address, space address.Space, alloc account.Allocator, tokens TokenBurner, log *zap.Logger) *Processor {
	return &Processor{program: program, space: space, alloc: alloc, tokens: tokens, log: log}
}

// Echo copies data into a zeroed buffer owned by the program.
func (p *Processor) Echo(ctx context.Context, buffer *account.Info, data []byte) error {
	if err := guard.All(
		guard.Writable(buffer),
		guard.OwnedBy(buffer, p.program),
	); err != nil {
		return err
	}
	return EchoInto(buffer.Data, data)
}

// InitializeAuthorized creates the buffer derived from (authority, ownerSeed)
// with room for size bytes, header included.
func (p *Processor) InitializeAuthorized(ctx context.Context, buffer, authority, systemProgram *account.Info, ownerSeed uint64, size uint32) error {
	if err := guard.All(
		guard.Writable(buffer),
		guard.Signer(authority),
		guard.Writable(authority),
		guard.IsSystemProgram(systemProgram),
	); err != nil {
		return err
	}
	if size <= HeaderSize {
		return errs.Wrapf(errs.ErrBufferTooSmall, "size %d", size)
	}
	seeds := AuthorizedBufferSeeds(authority.Key, ownerSeed)
	addr, bump, err := address.Derive(p.space, seeds, p.program)
	if err != nil {
		return errs.Wrap(errs.ErrAddressMismatch, err)
	}
	if addr != buffer.Key {
		return errs.Wrapf(errs.ErrAddressMismatch, "expected %s, got %s", addr, buffer.Key)
	}
	if err := p.alloc.Allocate(ctx, authority, buffer, uint64(size), p.program, withBump(seeds, bump)); err != nil {
		return err
	}
	Header{Bump: bump, Seed: ownerSeed, PayloadLen: size - HeaderSize}.Put(buffer.Data)

	p.log.Debug("authorized buffer created",
		zap.String("buffer", buffer.Key.String()),
		zap.String("authority", authority.Key.String()),
		zap.Uint32("size", size),
	)
	return nil
}

// Authorized overwrites the payload of the authority's buffer with data
// repeated cyclically.
func (p *Processor) Authorized(ctx context.Context, buffer, authority *account.Info, data []byte) error {
	if err := guard.All(
		guard.Writable(buffer),
		guard.Signer(authority),
		guard.OwnedBy(buffer, p.program),
	); err != nil {
		return err
	}
	h, err := ReadHeader(buffer.Data)
	if err != nil {
		return err
	}
	if err := address.Verify(p.space, AuthorizedBufferSeeds(authority.Key, h.Seed), h.Bump, p.program, buffer.Key); err != nil {
		return err
	}
	return WriteCyclic(buffer.Data[HeaderSize:], data)
}

// InitializeVending creates the vending machine for (mint, price).
func (p *Processor) InitializeVending(ctx context.Context, buffer, mint, payer, systemProgram *account.Info, price uint64, size uint32) error {
	if err := guard.All(
		guard.Writable(buffer),
		guard.Signer(payer),
		guard.Writable(payer),
		guard.OwnedBy(mint, account.TokenProgramID),
		guard.IsSystemProgram(systemProgram),
	); err != nil {
		return err
	}
	if size <= HeaderSize {
		return errs.Wrapf(errs.ErrBufferTooSmall, "size %d", size)
	}
	seeds := VendingMachineSeeds(mint.Key, price)
	addr, bump, err := address.Derive(p.space, seeds, p.program)
	if err != nil {
		return errs.Wrap(errs.ErrAddressMismatch, err)
	}
	if addr != buffer.Key {
		return errs.Wrapf(errs.ErrAddressMismatch, "expected %s, got %s", addr, buffer.Key)
	}
	if err := p.alloc.Allocate(ctx, payer, buffer, uint64(size), p.program, withBump(seeds, bump)); err != nil {
		return err
	}
	Header{Bump: bump, Seed: price, PayloadLen: size - HeaderSize}.Put(buffer.Data)

	p.log.Debug("vending machine created",
		zap.String("buffer", buffer.Key.String()),
		zap.String("mint", mint.Key.String()),
		zap.Uint64("price", price),
	)
	return nil
}

// Vending burns the machine's price from the user's token account and then
// writes data cyclically. A rejected burn leaves the payload untouched.
func (p *Processor) Vending(ctx context.Context, buffer, user, userToken, mint, tokenProgram *account.Info, data []byte) error {
	if err := guard.All(
		guard.Writable(buffer),
		guard.Signer(user),
		guard.Writable(userToken),
		guard.Writable(mint),
		guard.IsTokenProgram(tokenProgram),
		guard.OwnedBy(buffer, p.program),
	); err != nil {
		return err
	}
	h, err := ReadHeader(buffer.Data)
	if err != nil {
		return err
	}
	if err := address.Verify(p.space, VendingMachineSeeds(mint.Key, h.Seed), h.Bump, p.program, buffer.Key); err != nil {
		return err
	}
	if len(data) == 0 {
		return errs.ErrEmptyInput
	}
	if err := p.tokens.Burn(ctx, userToken, mint, user, h.Seed); err != nil {
		return errs.Wrap(errs.ErrPaymentFailed, err)
	}
	return WriteCyclic(buffer.Data[HeaderSize:], data)
}
