package vaa

import (
	"bytes"
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// AddressLength is the width of the canonical cross-chain address form.
const AddressLength = 32

var (
	// ErrInvalidAddressLength is returned when raw address bytes are not
	// exactly 32 bytes long.
	ErrInvalidAddressLength = errors.New("address must be exactly 32 bytes")

	// ErrNonZeroPadding is returned when converting a canonical address to
	// a shorter native form and the bytes that should be padding are not
	// zero. Truncating them would let distinct foreign addresses collide
	// with the same native address.
	ErrNonZeroPadding = errors.New("address padding bytes are not zero")
)

// Address is the 32-byte canonical address used to identify emitters and
// contracts across chains. Native addresses shorter than 32 bytes are
// zero-left-padded into this form.
type Address [AddressLength]byte

// AddressFromBytes converts raw bytes into an Address. The input must be
// exactly 32 bytes; callers holding shorter native addresses pad first.
func AddressFromBytes(b []byte) (Address, error) {
	var a Address

	if len(b) != AddressLength {
		return a, errors.Wrapf(ErrInvalidAddressLength, "got %d bytes", len(b))
	}
	copy(a[:], b)

	return a, nil
}

// AddressFromHex decodes a hex string, with or without 0x prefix,
// zero-left-padding it to 32 bytes.
func AddressFromHex(s string) (Address, error) {
	var a Address

	s = strings.TrimPrefix(s, "0x")
	if len(s) > 2*AddressLength {
		return a, errors.Wrapf(ErrInvalidAddressLength, "got %d hex chars", len(s))
	}
	if len(s)%2 != 0 {
		s = "0" + s
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return a, errors.Wrap(err, "decode address hex")
	}
	copy(a[AddressLength-len(b):], b)

	return a, nil
}

// AddressFromEth zero-left-pads a 20-byte Ethereum-style address into the
// canonical form.
func AddressFromEth(addr common.Address) Address {
	var a Address
	copy(a[AddressLength-common.AddressLength:], addr.Bytes())

	return a
}

// Eth converts the canonical address back to its 20-byte native form. The
// 12 leading bytes must be zero.
func (a Address) Eth() (common.Address, error) {
	var native common.Address

	pad := AddressLength - common.AddressLength
	if !bytes.Equal(a[:pad], make([]byte, pad)) {
		return native, errors.Wrap(ErrNonZeroPadding, a.String())
	}
	copy(native[:], a[pad:])

	return native, nil
}

// IsZero reports whether the address is all zero bytes.
func (a Address) IsZero() bool {
	return a == Address{}
}

// String returns the full-width hex form of the address.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}
