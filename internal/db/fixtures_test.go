package db

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sloppy/tychostore/internal/evm"
	"github.com/sloppy/tychostore/internal/testutil"
)

const (
	daiAddress  = "0x6B175474E89094C44Da98b954EedeAC495271d0F"
	wethAddress = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
	tx0Hash     = "0xbb7e16d797a9e2fbc537e30f91ed3d27a254dd9578aa4c3af3e5f0d3e8130945"
	tx1Hash     = "0x3108322284d0a89a7accb288d1a94384d499504fe7e04441b0706c7628dee7b7"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	dir := testutil.TempDir(t)
	db, err := Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err, "open test db")
	t.Cleanup(func() { db.Close() })
	return db
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02T15:04:05", s)
	require.NoError(t, err)
	return ts.UTC()
}

func blockHash(n uint64) evm.Hash {
	return evm.MustParseHash(fmt.Sprintf("0x%064x", 0xb10c0000+n))
}

// insertBlocks stores consecutive ethereum blocks 1..n at the given times.
func insertBlocks(t *testing.T, db *DB, times ...string) []StoredBlock {
	t.Helper()
	return insertBlocksFrom(t, db, 1, times...)
}

type txSpec struct {
	block evm.Hash
	index uint64
	hash  string
}

func insertTxns(t *testing.T, db *DB, specs ...txSpec) []StoredTransaction {
	t.Helper()
	var out []StoredTransaction
	require.NoError(t, db.InTx(func(tx *Tx) error {
		for _, s := range specs {
			stx, err := tx.InsertTransaction(evm.Transaction{
				Hash:      evm.MustParseHash(s.hash),
				BlockHash: s.block,
				From:      evm.MustParseAddress("0x01"),
				Index:     s.index,
			})
			if err != nil {
				return err
			}
			out = append(out, stx)
		}
		return nil
	}))
	return out
}

func applyUpdate(t *testing.T, db *DB, txHash string, update evm.AccountUpdate) {
	t.Helper()
	require.NoError(t, db.InTx(func(tx *Tx) error {
		_, err := tx.ApplyAccountUpdate(update, evm.MustParseHash(txHash))
		return err
	}))
}

// setupSlotsDelta stores one contract whose slots change in two blocks an
// hour apart:
//
//	00:00  slot0=1 slot1=5 slot2=1
//	01:00  slot0=2 slot1=3 slot5=25 slot6=30
func setupSlotsDelta(t *testing.T, db *DB) []StoredBlock {
	t.Helper()
	blocks := insertBlocks(t, db, "2020-01-01T00:00:00", "2020-01-01T01:00:00")
	insertTxns(t, db,
		txSpec{block: blocks[0].Hash, index: 1, hash: tx0Hash},
		txSpec{block: blocks[1].Hash, index: 1, hash: tx1Hash},
	)
	dai := evm.MustParseAddress(daiAddress)
	applyUpdate(t, db, tx0Hash, evm.AccountUpdate{
		Address: dai,
		Chain:   evm.Ethereum,
		Slots:   evm.NewSlots([2]uint64{0, 1}, [2]uint64{1, 5}, [2]uint64{2, 1}),
		Change:  evm.ChangeCreation,
	})
	applyUpdate(t, db, tx1Hash, evm.AccountUpdate{
		Address: dai,
		Chain:   evm.Ethereum,
		Slots:   evm.NewSlots([2]uint64{0, 2}, [2]uint64{1, 3}, [2]uint64{5, 25}, [2]uint64{6, 30}),
		Change:  evm.ChangeUpdate,
	})
	return blocks
}

// insertBlocksFrom stores blocks starting at number first.
func insertBlocksFrom(t *testing.T, db *DB, first uint64, times ...string) []StoredBlock {
	t.Helper()
	var out []StoredBlock
	require.NoError(t, db.InTx(func(tx *Tx) error {
		for i, ts := range times {
			n := first + uint64(i)
			b, err := tx.InsertBlock(evm.Block{
				Number:     n,
				Hash:       blockHash(n),
				ParentHash: blockHash(n - 1),
				Chain:      evm.Ethereum,
				Timestamp:  mustTime(t, ts),
			})
			if err != nil {
				return err
			}
			out = append(out, b)
		}
		return nil
	}))
	return out
}

func repeat(s string, n int) string {
	return strings.Repeat(s, n)
}
