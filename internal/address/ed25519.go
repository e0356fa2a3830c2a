package address

import (
	"github.com/gagliardetto/solana-go"
)

// Ed25519Space derives addresses the way Solana derives program addresses:
// sha256(seeds || namespace || "ProgramDerivedAddress"), rejected while the
// digest decodes as an ed25519 point.
type Ed25519Space struct{}

func (Ed25519Space) Create(seeds [][]byte, namespace Address) (Address, error) {
	if err := checkSeeds(seeds, 0); err != nil {
		return Zero, err
	}
	// Seed limits are already enforced, so any failure here is an on-curve digest.
	pk, err := solana.CreateProgramAddress(seeds, solana.PublicKey(namespace))
	if err != nil {
		return Zero, ErrOnCurve
	}
	return Address(pk), nil
}
