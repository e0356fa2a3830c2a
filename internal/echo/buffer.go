// Package echo implements the buffer programs: the unauthorized echo buffer,
// the authorized buffer keyed by its creator, and the vending machine that
// charges a token burn per write.
package echo

import (
	"github.com/0gfoundation/exchange-booth/internal/address"
	"github.com/0gfoundation/exchange-booth/internal/errs"
	"github.com/0gfoundation/exchange-booth/internal/layout"
)

// HeaderSize is [bump:1][seed:8][payloadLen:4].
const HeaderSize = 1 + 8 + 4

var (
	authoritySeedPrefix = []byte("authority")
	vendingSeedPrefix   = []byte("vending_machine")
)

// Header prefixes authorized and vending buffers. Seed holds the owner seed
// of an authorized buffer or the price of a vending machine.
type Header struct {
	Bump       uint8
	Seed       uint64
	PayloadLen uint32
}

func (h Header) Put(dst []byte) {
	offset := 0
	layout.PutUint8(dst, h.Bump, &offset)
	layout.PutUint64(dst, h.Seed, &offset)
	layout.PutUint32(dst, h.PayloadLen, &offset)
}

// ReadHeader decodes the header and checks it against the account size.
func ReadHeader(data []byte) (Header, error) {
	var h Header
	if len(data) < HeaderSize {
		return h, errs.Wrapf(errs.ErrInvalidAccountData, "buffer holds %d bytes, header needs %d", len(data), HeaderSize)
	}
	offset := 0
	layout.GetUint8(data, &h.Bump, &offset)
	layout.GetUint64(data, &h.Seed, &offset)
	layout.GetUint32(data, &h.PayloadLen, &offset)
	if uint64(h.PayloadLen) != uint64(len(data)-HeaderSize) {
		return h, errs.Wrapf(errs.ErrInvalidAccountData, "header payload length %d, account payload %d", h.PayloadLen, len(data)-HeaderSize)
	}
	return h, nil
}

func AuthorizedBufferSeeds(authority address.Address, ownerSeed uint64) [][]byte {
	return [][]byte{authoritySeedPrefix, authority[:], layout.Uint64Bytes(ownerSeed)}
}

func AuthorizedBufferAddress(space address.Space, program, authority address.Address, ownerSeed uint64) (address.Address, uint8, error) {
	return address.Derive(space, AuthorizedBufferSeeds(authority, ownerSeed), program)
}

func VendingMachineSeeds(mint address.Address, price uint64) [][]byte {
	return [][]byte{vendingSeedPrefix, mint[:], layout.Uint64Bytes(price)}
}

func VendingMachineAddress(space address.Space, program, mint address.Address, price uint64) (address.Address, uint8, error) {
	return address.Derive(space, VendingMachineSeeds(mint, price), program)
}

// WriteCyclic fills payload with data repeated from the start.
func WriteCyclic(payload, data []byte) error {
	if len(data) == 0 {
		return errs.ErrEmptyInput
	}
	for i := range payload {
		payload[i] = data[i%len(data)]
	}
	return nil
}

// EchoInto copies data into an all-zero buffer, truncating to the buffer
// length and leaving any tail untouched.
func EchoInto(buf, data []byte) error {
	for _, b := range buf {
		if b != 0 {
			return errs.ErrBufferNotEmpty
		}
	}
	copy(buf, data)
	return nil
}

func withBump(seeds [][]byte, bump uint8) [][]byte {
	return append(seeds, []byte{bump})
}
