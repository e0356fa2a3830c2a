package token

import (
	"context"

	"github.com/0gfoundation/exchange-booth/internal/account"
	"github.com/0gfoundation/exchange-booth/internal/address"
)

// Client drives the token program from inside another program. Authorities
// that are derived addresses of the caller sign with signerSeeds.
type Client struct {
	invoker account.Invoker
}

func NewClient(invoker account.Invoker) *Client {
	return &Client{invoker: invoker}
}

func (c *Client) InitializeAccount(ctx context.Context, acct, mint *account.Info, owner address.Address) error {
	return c.invoker.Invoke(ctx, InitializeAccount(acct.Key, mint.Key, owner))
}

func (c *Client) Transfer(ctx context.Context, src, dst, authority *account.Info, amount uint64, signerSeeds ...[][]byte) error {
	return c.invoker.Invoke(ctx, Transfer(src.Key, dst.Key, authority.Key, amount), signerSeeds...)
}

func (c *Client) Burn(ctx context.Context, acct, mint, authority *account.Info, amount uint64, signerSeeds ...[][]byte) error {
	return c.invoker.Invoke(ctx, Burn(acct.Key, mint.Key, authority.Key, amount), signerSeeds...)
}

func (c *Client) CloseAccount(ctx context.Context, acct, dest, authority *account.Info, signerSeeds ...[][]byte) error {
	return c.invoker.Invoke(ctx, CloseAccount(acct.Key, dest.Key, authority.Key), signerSeeds...)
}

func (c *Client) Balance(acct *account.Info) (uint64, error) {
	a, err := LoadAccount(acct)
	if err != nil {
		return 0, err
	}
	return a.Amount, nil
}

func (c *Client) Decimals(mint *account.Info) (uint8, error) {
	m, err := LoadMint(mint)
	if err != nil {
		return 0, err
	}
	return m.Decimals, nil
}
