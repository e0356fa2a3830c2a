package address

import (
	"github.com/ethereum/go-ethereum/crypto"
)

const keccakMarker = "KeccakDerivedAddress"

// KeccakSpace derives addresses as keccak256(seeds || namespace || marker).
// A digest that is the x-coordinate of a secp256k1 point is rejected, which
// keeps derived addresses out of the EVM key-pair space.
type KeccakSpace struct{}

func (KeccakSpace) Create(seeds [][]byte, namespace Address) (Address, error) {
	if err := checkSeeds(seeds, 0); err != nil {
		return Zero, err
	}

	parts := make([][]byte, 0, len(seeds)+2)
	parts = append(parts, seeds...)
	parts = append(parts, namespace[:], []byte(keccakMarker))
	digest := crypto.Keccak256(parts...)

	compressed := make([]byte, 0, 33)
	compressed = append(compressed, 0x02)
	compressed = append(compressed, digest...)
	if _, err := crypto.DecompressPubkey(compressed); err == nil {
		return Zero, ErrOnCurve
	}

	var a Address
	copy(a[:], digest)
	return a, nil
}
