// Package account defines the view of ledger accounts that programs operate
// on, and the capabilities the host lends to programs.
package account

import (
	"bytes"
	"context"

	"github.com/0gfoundation/exchange-booth/internal/address"
)

var (
	SystemProgramID = address.Zero
	TokenProgramID  = address.MustParse("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	RentSysvarID    = address.MustParse("SysvarRent111111111111111111111111111111111")
)

// Info is an account loaded for one instruction. Programs mutate Lamports,
// Owner and Data in place; the host commits or discards the result.
type Info struct {
	Key        address.Address
	Owner      address.Address
	Lamports   uint64
	Data       []byte
	Executable bool

	IsSigner   bool
	IsWritable bool
}

// Exists reports whether the account holds any lamports. Accounts drained to
// zero are removed by the host at commit.
func (a *Info) Exists() bool { return a.Lamports > 0 }

// Clone returns a deep copy without the per-instruction flags.
func (a *Info) Clone() *Info {
	return &Info{
		Key:        a.Key,
		Owner:      a.Owner,
		Lamports:   a.Lamports,
		Data:       bytes.Clone(a.Data),
		Executable: a.Executable,
	}
}

// Equal compares persisted fields.
func (a *Info) Equal(b *Info) bool {
	return a.Key == b.Key &&
		a.Owner == b.Owner &&
		a.Lamports == b.Lamports &&
		a.Executable == b.Executable &&
		bytes.Equal(a.Data, b.Data)
}

// Meta declares one positional account of an instruction.
type Meta struct {
	Address    address.Address
	IsSigner   bool
	IsWritable bool
}

// Instruction is a program invocation with its positional account list.
type Instruction struct {
	Program  address.Address
	Accounts []Meta
	Data     []byte
}

// Invoker runs an instruction of another program inside the current one.
// signerSeeds grant the signer privilege to addresses the caller derives from
// them; every other privilege must already be held by the caller.
type Invoker interface {
	Invoke(ctx context.Context, ix Instruction, signerSeeds ...[][]byte) error
}

// Allocator creates and releases storage on behalf of the calling program.
//
// signerSeeds, when non-nil, are the derivation seeds (bump included) proving
// that the calling program controls target; otherwise target must sign.
type Allocator interface {
	Allocate(ctx context.Context, payer, target *Info, space uint64, owner address.Address, signerSeeds [][]byte) error
	Release(ctx context.Context, target, recipient *Info) error
}
