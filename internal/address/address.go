// Package address implements 32-byte ledger addresses and the deterministic
// derivation of program-controlled addresses from seed lists.
package address

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

const Size = 32

// Address identifies an account on the ledger.
type Address [Size]byte

var Zero Address

var ErrInvalidAddress = errors.New("invalid address")

// FromBytes copies b into an Address. b must be exactly Size bytes.
func FromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != Size {
		return a, fmt.Errorf("%w: got %d bytes", ErrInvalidAddress, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// Parse decodes a base58 address.
func Parse(s string) (Address, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return Zero, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return FromBytes(raw)
}

// MustParse is Parse for package-level constants.
func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) String() string { return base58.Encode(a[:]) }

func (a Address) Bytes() []byte { return a[:] }

func (a Address) IsZero() bool { return a == Zero }

func (a Address) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
