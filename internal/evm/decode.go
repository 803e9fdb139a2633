package evm

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// ErrInvalidLength is returned when raw bytes do not fit the target width.
var ErrInvalidLength = errors.New("invalid byte length")

func lengthError(what string, want int, raw []byte) error {
	return fmt.Errorf("%w for %s: want %d bytes, found 0x%s", ErrInvalidLength, what, want, hex.EncodeToString(raw))
}

// DecodeHash copies exactly 32 bytes into a Hash. what names the field in errors.
func DecodeHash(raw []byte, what string) (Hash, error) {
	var h Hash
	if len(raw) != HashLength {
		return h, lengthError(what, HashLength, raw)
	}
	copy(h[:], raw)
	return h, nil
}

// DecodeAddress copies exactly 20 bytes into an Address.
func DecodeAddress(raw []byte, what string) (Address, error) {
	var a Address
	if len(raw) != AddressLength {
		return a, lengthError(what, AddressLength, raw)
	}
	copy(a[:], raw)
	return a, nil
}

// DecodeU256 reads a big endian 32 byte word.
func DecodeU256(raw []byte, what string) (uint256.Int, error) {
	var v uint256.Int
	if len(raw) != WordLength {
		return v, lengthError(what, WordLength, raw)
	}
	v.SetBytes32(raw)
	return v, nil
}

// PadAndParseAddress left pads raw with zeros up to 20 bytes.
func PadAndParseAddress(raw []byte) (Address, error) {
	var a Address
	if len(raw) > AddressLength {
		return a, lengthError("address", AddressLength, raw)
	}
	copy(a[AddressLength-len(raw):], raw)
	return a, nil
}

// ParseSlotEntry decodes a stored slot. A nil value reads as zero.
func ParseSlotEntry(key, value []byte) (uint256.Int, uint256.Int, error) {
	k, err := DecodeU256(key, "slot key")
	if err != nil {
		return uint256.Int{}, uint256.Int{}, err
	}
	if value == nil {
		return k, uint256.Int{}, nil
	}
	v, err := DecodeU256(value, "slot value")
	if err != nil {
		return uint256.Int{}, uint256.Int{}, err
	}
	return k, v, nil
}
