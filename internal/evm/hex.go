package evm

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

const (
	AddressLength = 20
	HashLength    = 32
	WordLength    = 32
)

// Address is a 20 byte account address.
type Address [AddressLength]byte

// Hash is a 32 byte block, transaction or code hash.
type Hash [HashLength]byte

// Bytes is an arbitrary byte string rendered as 0x-prefixed hex.
type Bytes []byte

// Slots maps storage slot keys to values for a single contract.
type Slots map[uint256.Int]uint256.Int

func decodeHexString(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	out, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	return out, nil
}

func encodeHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// ParseAddress parses a hex address, left padding short inputs.
func ParseAddress(s string) (Address, error) {
	raw, err := decodeHexString(s)
	if err != nil {
		return Address{}, fmt.Errorf("address %q: %w", s, err)
	}
	return PadAndParseAddress(raw)
}

// MustParseAddress is ParseAddress for constants; it panics on bad input.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) Hex() string    { return encodeHex(a[:]) }
func (a Address) String() string { return a.Hex() }
func (a Address) Bytes() []byte  { return a[:] }

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseHash parses a hex hash. The input must decode to exactly 32 bytes.
func ParseHash(s string) (Hash, error) {
	raw, err := decodeHexString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("hash %q: %w", s, err)
	}
	return DecodeHash(raw, "hash")
}

// MustParseHash is ParseHash for constants; it panics on bad input.
func MustParseHash(s string) Hash {
	h, err := ParseHash(s)
	if err != nil {
		panic(err)
	}
	return h
}

func (h Hash) Hex() string    { return encodeHex(h[:]) }
func (h Hash) String() string { return h.Hex() }
func (h Hash) Bytes() []byte  { return h[:] }
func (h Hash) IsZero() bool   { return h == Hash{} }

// MarshalText implements encoding.TextMarshaler.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseBytes decodes 0x-prefixed or bare hex.
func ParseBytes(s string) (Bytes, error) {
	raw, err := decodeHexString(s)
	if err != nil {
		return nil, err
	}
	return Bytes(raw), nil
}

func (b Bytes) Hex() string    { return encodeHex(b) }
func (b Bytes) String() string { return b.Hex() }

// MarshalText implements encoding.TextMarshaler.
func (b Bytes) MarshalText() ([]byte, error) {
	return []byte(b.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Bytes) UnmarshalText(text []byte) error {
	parsed, err := ParseBytes(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// ParseU256 reads a 0x hex or decimal number of at most 256 bits.
func ParseU256(s string) (uint256.Int, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		raw, err := decodeHexString(s)
		if err != nil {
			return uint256.Int{}, fmt.Errorf("u256 %q: %w", s, err)
		}
		if len(raw) > WordLength {
			return uint256.Int{}, fmt.Errorf("u256 %q: exceeds 256 bits", s)
		}
		var v uint256.Int
		v.SetBytes(raw)
		return v, nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return uint256.Int{}, fmt.Errorf("u256 %q: %w", s, err)
	}
	return *v, nil
}

// Word returns the big endian 32 byte encoding of v.
func Word(v uint256.Int) []byte {
	b := v.Bytes32()
	return b[:]
}

// NewSlots builds a slot map from small integer pairs.
func NewSlots(pairs ...[2]uint64) Slots {
	out := make(Slots, len(pairs))
	for _, p := range pairs {
		out[*uint256.NewInt(p[0])] = *uint256.NewInt(p[1])
	}
	return out
}
