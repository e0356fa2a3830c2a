package address

import (
	"errors"
	"fmt"

	"github.com/0gfoundation/exchange-booth/internal/errs"
)

const (
	MaxSeeds      = 16
	MaxSeedLength = 32
)

var (
	ErrTooManySeeds = errors.New("too many seeds")
	ErrSeedTooLong  = errors.New("seed exceeds max length")
	// ErrOnCurve means the candidate could be controlled by a key pair.
	ErrOnCurve      = errors.New("derived address lies in key-pair space")
	ErrNoViableBump = errors.New("no bump yields an off-curve address")
)

// Space maps a seed list (bump included) and a namespace to an address that
// no private key controls. Implementations must be pure functions.
type Space interface {
	Create(seeds [][]byte, namespace Address) (Address, error)
}

// Derive searches bumps from 255 down to 0 and returns the first address the
// space accepts, together with that bump.
func Derive(space Space, seeds [][]byte, namespace Address) (Address, uint8, error) {
	if err := checkSeeds(seeds, 1); err != nil {
		return Zero, 0, err
	}
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)
	for bump := 255; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{uint8(bump)}
		addr, err := space.Create(withBump, namespace)
		if err == nil {
			return addr, uint8(bump), nil
		}
		if !errors.Is(err, ErrOnCurve) {
			return Zero, 0, err
		}
	}
	return Zero, 0, ErrNoViableBump
}

// Verify recomputes the address for seeds+bump and compares it to candidate.
func Verify(space Space, seeds [][]byte, bump uint8, namespace, candidate Address) error {
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)
	withBump[len(seeds)] = []byte{bump}

	addr, err := space.Create(withBump, namespace)
	if err != nil {
		return errs.Wrap(errs.ErrAddressMismatch, err)
	}
	if addr != candidate {
		return errs.Wrapf(errs.ErrAddressMismatch, "expected %s, got %s", addr, candidate)
	}
	return nil
}

// checkSeeds enforces the seed limits, leaving room for reserve extra seeds.
func checkSeeds(seeds [][]byte, reserve int) error {
	if len(seeds)+reserve > MaxSeeds {
		return fmt.Errorf("%w: %d", ErrTooManySeeds, len(seeds))
	}
	for i, s := range seeds {
		if len(s) > MaxSeedLength {
			return fmt.Errorf("%w: seed %d has %d bytes", ErrSeedTooLong, i, len(s))
		}
	}
	return nil
}

// SpaceByName resolves a configured address space.
func SpaceByName(name string) (Space, error) {
	switch name {
	case "", "ed25519":
		return Ed25519Space{}, nil
	case "keccak":
		return KeccakSpace{}, nil
	default:
		return nil, fmt.Errorf("unknown address space %q", name)
	}
}
