package db

import (
	"time"

	"github.com/google/uuid"

	"github.com/sloppy/tychostore/internal/evm"
)

// StoredBlock is a block together with its row id.
type StoredBlock struct {
	ID      int64
	ChainID int64
	Main    bool
	evm.Block
}

// StoredTransaction is a transaction with its row id and block position.
type StoredTransaction struct {
	ID          int64
	BlockID     int64
	BlockNumber uint64
	Timestamp   time.Time
	evm.Transaction
}

// txIndexBits is the width of the transaction index inside an ordinal.
const txIndexBits = 24

// Ordinal orders writes within a chain by block number, then by position in
// the block. Blocks sharing a timestamp still get distinct ordinals.
func (t StoredTransaction) Ordinal() int64 {
	return int64(t.BlockNumber)<<txIndexBits | int64(t.Index)
}

// ContractRow is the current, unversioned part of a contract.
type ContractRow struct {
	ID        int64
	ChainID   int64
	Address   evm.Address
	Title     string
	CreatedAt time.Time
	DeletedAt *time.Time
}

// SlotsDelta maps contract addresses to the slot values that changed between
// two versions.
type SlotsDelta map[evm.Address]evm.Slots

// SlotCount returns the number of slots across all contracts.
func (d SlotsDelta) SlotCount() int {
	n := 0
	for _, slots := range d {
		n += len(slots)
	}
	return n
}

// SlotChange is one versioned write to a contract slot.
type SlotChange struct {
	Slot          evm.Bytes
	Value         evm.Bytes
	PreviousValue evm.Bytes
	Ordinal       int64
	ModifyTx      evm.Hash
	ValidFrom     time.Time
	ValidTo       *time.Time
}

// ExtractionRun records one import of a changeset.
type ExtractionRun struct {
	ID           uuid.UUID
	Chain        evm.Chain
	Source       string
	StartedAt    time.Time
	FinishedAt   time.Time
	Blocks       int
	Transactions int
	Accounts     int
	Slots        int
	Skipped      int
}
