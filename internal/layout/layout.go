// Package layout holds the offset-cursor helpers used by every fixed binary
// layout in the module (account state and instruction data). All integers are
// little-endian. Callers check lengths before decoding.
package layout

import (
	"encoding/binary"

	"github.com/0gfoundation/exchange-booth/internal/address"
)

func PutKey(dst []byte, v address.Address, offset *int) {
	copy(dst[*offset:], v[:])
	*offset += address.Size
}
func GetKey(src []byte, dst *address.Address, offset *int) {
	copy(dst[:], src[*offset:*offset+address.Size])
	*offset += address.Size
}

func PutUint8(dst []byte, v uint8, offset *int) {
	dst[*offset] = v
	*offset += 1
}
func GetUint8(src []byte, dst *uint8, offset *int) {
	*dst = src[*offset]
	*offset += 1
}

func PutUint32(dst []byte, v uint32, offset *int) {
	binary.LittleEndian.PutUint32(dst[*offset:], v)
	*offset += 4
}
func GetUint32(src []byte, dst *uint32, offset *int) {
	*dst = binary.LittleEndian.Uint32(src[*offset:])
	*offset += 4
}

func PutUint64(dst []byte, v uint64, offset *int) {
	binary.LittleEndian.PutUint64(dst[*offset:], v)
	*offset += 8
}
func GetUint64(src []byte, dst *uint64, offset *int) {
	*dst = binary.LittleEndian.Uint64(src[*offset:])
	*offset += 8
}

func PutInt32(dst []byte, v int32, offset *int) {
	PutUint32(dst, uint32(v), offset)
}
func GetInt32(src []byte, dst *int32, offset *int) {
	var u uint32
	GetUint32(src, &u, offset)
	*dst = int32(u)
}

func PutInt64(dst []byte, v int64, offset *int) {
	PutUint64(dst, uint64(v), offset)
}
func GetInt64(src []byte, dst *int64, offset *int) {
	var u uint64
	GetUint64(src, &u, offset)
	*dst = int64(u)
}

func PutBool(dst []byte, v bool, offset *int) {
	if v {
		dst[*offset] = 1
	} else {
		dst[*offset] = 0
	}
	*offset += 1
}
func GetBool(src []byte, dst *bool, offset *int) {
	*dst = src[*offset] != 0
	*offset += 1
}

// PutBytes writes a u32 length prefix followed by v.
func PutBytes(dst []byte, v []byte, offset *int) {
	PutUint32(dst, uint32(len(v)), offset)
	copy(dst[*offset:], v)
	*offset += len(v)
}

// GetBytes reads a u32-prefixed byte string. ok is false when src is too short.
func GetBytes(src []byte, dst *[]byte, offset *int) (ok bool) {
	if len(src) < *offset+4 {
		return false
	}
	var n uint32
	GetUint32(src, &n, offset)
	if uint64(len(src)) < uint64(*offset)+uint64(n) {
		return false
	}
	*dst = make([]byte, n)
	copy(*dst, src[*offset:*offset+int(n)])
	*offset += int(n)
	return true
}

// Uint64Bytes returns the little-endian encoding of v, the form used in seeds.
func Uint64Bytes(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}
