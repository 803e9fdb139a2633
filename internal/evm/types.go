package evm

import (
	"fmt"
	"strings"
	"time"

	"github.com/holiman/uint256"
)

// Block is a minimal block header.
type Block struct {
	Number     uint64
	Hash       Hash
	ParentHash Hash
	Chain      Chain
	Timestamp  time.Time
}

// Transaction is a transaction within a block. To is nil for contract creations.
type Transaction struct {
	Hash      Hash
	BlockHash Hash
	From      Address
	To        *Address
	Index     uint64
}

// ChangeType classifies an account change.
type ChangeType string

const (
	ChangeUpdate   ChangeType = "update"
	ChangeCreation ChangeType = "creation"
	ChangeDeletion ChangeType = "deletion"
)

// ParseChangeType defaults an empty input to an update.
func ParseChangeType(raw string) (ChangeType, error) {
	switch ChangeType(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ChangeUpdate:
		return ChangeUpdate, nil
	case ChangeCreation:
		return ChangeCreation, nil
	case ChangeDeletion:
		return ChangeDeletion, nil
	default:
		return "", fmt.Errorf("unknown change type %q", raw)
	}
}

// Account is the full state of a contract at some version.
type Account struct {
	Chain           Chain
	Address         Address
	Title           string
	Slots           Slots
	Balance         uint256.Int
	Code            Bytes
	CodeHash        Hash
	BalanceModifyTx Hash
	CodeModifyTx    Hash
	CreationTx      *Hash
}

// AccountUpdate carries the dirty parts of an account produced by one transaction.
type AccountUpdate struct {
	Address Address
	Chain   Chain
	Slots   Slots
	Balance *uint256.Int
	Code    Bytes
	Change  ChangeType
}

// ToUpdate turns a freshly created account into a creation update.
func (a Account) ToUpdate() AccountUpdate {
	balance := a.Balance
	return AccountUpdate{
		Address: a.Address,
		Chain:   a.Chain,
		Slots:   a.Slots,
		Balance: &balance,
		Code:    a.Code,
		Change:  ChangeCreation,
	}
}

// Merge folds a later update for the same account into u.
func (u *AccountUpdate) Merge(other AccountUpdate) error {
	if u.Address != other.Address || u.Chain != other.Chain {
		return fmt.Errorf("merge update: account mismatch %s/%s vs %s/%s", u.Chain, u.Address, other.Chain, other.Address)
	}
	if u.Slots == nil {
		u.Slots = make(Slots, len(other.Slots))
	}
	for k, v := range other.Slots {
		u.Slots[k] = v
	}
	if other.Balance != nil {
		u.Balance = other.Balance
	}
	if other.Code != nil {
		u.Code = other.Code
	}
	if other.Change == ChangeDeletion {
		u.Change = ChangeDeletion
	}
	return nil
}
