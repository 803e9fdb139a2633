package evm

import (
	"errors"
	"strings"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const daiAddress = "0x6B175474E89094C44Da98b954EedeAC495271d0F"

func TestParseChain(t *testing.T) {
	c, err := ParseChain(" Ethereum ")
	require.NoError(t, err)
	assert.Equal(t, Ethereum, c)

	_, err = ParseChain("solana")
	assert.Error(t, err)
}

func TestParseAddressRoundTrip(t *testing.T) {
	a, err := ParseAddress(daiAddress)
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower(daiAddress), a.Hex())

	text, err := a.MarshalText()
	require.NoError(t, err)
	var back Address
	require.NoError(t, back.UnmarshalText(text))
	assert.Equal(t, a, back)
}

func TestPadAndParseAddress(t *testing.T) {
	a, err := PadAndParseAddress([]byte{0x02})
	require.NoError(t, err)
	assert.Equal(t, "0x0000000000000000000000000000000000000002", a.Hex())

	_, err = PadAndParseAddress(make([]byte, 21))
	assert.True(t, errors.Is(err, ErrInvalidLength))
}

func TestDecodeHashRejectsWrongLength(t *testing.T) {
	_, err := DecodeHash([]byte{0xab, 0xcd}, "tx hash")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidLength))
	assert.Contains(t, err.Error(), "tx hash")
	assert.Contains(t, err.Error(), "0xabcd")
}

func TestParseU256(t *testing.T) {
	v, err := ParseU256("0x01")
	require.NoError(t, err)
	assert.Equal(t, *uint256.NewInt(1), v)

	v, err = ParseU256("25")
	require.NoError(t, err)
	assert.Equal(t, *uint256.NewInt(25), v)

	_, err = ParseU256("0x" + strings.Repeat("ff", 33))
	assert.Error(t, err)
}

func TestParseSlotEntry(t *testing.T) {
	key := Word(*uint256.NewInt(5))
	value := Word(*uint256.NewInt(25))

	k, v, err := ParseSlotEntry(key, value)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), k.Uint64())
	assert.Equal(t, uint64(25), v.Uint64())

	_, v, err = ParseSlotEntry(key, nil)
	require.NoError(t, err)
	assert.True(t, v.IsZero())

	_, _, err = ParseSlotEntry(key[:31], value)
	assert.Contains(t, err.Error(), "slot key")
	_, _, err = ParseSlotEntry(key, value[:4])
	assert.Contains(t, err.Error(), "slot value")
}

func TestAccountUpdateMerge(t *testing.T) {
	addr := MustParseAddress(daiAddress)
	base := AccountUpdate{Address: addr, Chain: Ethereum, Slots: NewSlots([2]uint64{0, 1}), Change: ChangeCreation}
	balance := uint256.NewInt(10)
	later := AccountUpdate{Address: addr, Chain: Ethereum, Slots: NewSlots([2]uint64{0, 2}, [2]uint64{1, 3}), Balance: balance, Change: ChangeUpdate}

	require.NoError(t, base.Merge(later))
	assert.Equal(t, NewSlots([2]uint64{0, 2}, [2]uint64{1, 3}), base.Slots)
	assert.Equal(t, balance, base.Balance)
	assert.Equal(t, ChangeCreation, base.Change)

	other := AccountUpdate{Address: MustParseAddress("0x01"), Chain: Ethereum}
	assert.Error(t, base.Merge(other))
}

func TestAccountToUpdate(t *testing.T) {
	acc := Account{Chain: Ethereum, Address: MustParseAddress(daiAddress), Balance: *uint256.NewInt(7), Code: Bytes{0x60}}
	upd := acc.ToUpdate()
	assert.Equal(t, ChangeCreation, upd.Change)
	require.NotNil(t, upd.Balance)
	assert.Equal(t, uint64(7), upd.Balance.Uint64())
	assert.Equal(t, Bytes{0x60}, upd.Code)
}

func TestParseChangeType(t *testing.T) {
	ct, err := ParseChangeType("")
	require.NoError(t, err)
	assert.Equal(t, ChangeUpdate, ct)
	_, err = ParseChangeType("mutation")
	assert.Error(t, err)
}

func TestCodeHashOfEmptyCode(t *testing.T) {
	// keccak256 of the empty string, the code hash of every EOA.
	want := MustParseHash("0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")
	assert.Equal(t, want, CodeHash(nil))
}
