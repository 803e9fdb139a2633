package export

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sloppy/tychostore/internal/db"
	"github.com/sloppy/tychostore/internal/evm"
	"github.com/sloppy/tychostore/internal/testutil"
)

const (
	daiAddress  = "0x6b175474e89094c44da98b954eedeac495271d0f"
	wethAddress = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	tx0Hash     = "0xbb7e16d797a9e2fbc537e30f91ed3d27a254dd9578aa4c3af3e5f0d3e8130945"
	tx1Hash     = "0x3108322284d0a89a7accb288d1a94384d499504fe7e04441b0706c7628dee7b7"
)

var assets = testutil.NewAssets()

func sampleDelta() DeltaExport {
	delta := db.SlotsDelta{
		evm.MustParseAddress(wethAddress): evm.NewSlots([2]uint64{0, 16}),
		evm.MustParseAddress(daiAddress):  evm.NewSlots([2]uint64{6, 30}, [2]uint64{0, 2}, [2]uint64{5, 25}, [2]uint64{1, 3}),
	}
	return NewDeltaExport(evm.Ethereum,
		db.AtBlockNumber(evm.Ethereum, 1),
		db.AtBlockNumber(evm.Ethereum, 2),
		delta,
	)
}

func sampleContract() ContractExport {
	creation := evm.MustParseHash(tx0Hash)
	return NewContractExport(evm.Account{
		Chain:           evm.Ethereum,
		Address:         evm.MustParseAddress(daiAddress),
		Title:           "Dai Stablecoin",
		Slots:           evm.NewSlots([2]uint64{1, 5}, [2]uint64{0, 1}),
		Balance:         *uint256.NewInt(100),
		Code:            evm.Bytes{0x60, 0x01},
		CodeHash:        evm.MustParseHash("0x" + strings.Repeat("ab", 32)),
		BalanceModifyTx: evm.MustParseHash(tx1Hash),
		CodeModifyTx:    creation,
		CreationTx:      &creation,
	}, nil)
}

func TestWriteDeltaJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDeltaJSON(&buf, sampleDelta()))
	assertMatchesAsset(t, "delta.json", buf.String())
}

func TestWriteDeltaCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDeltaCSV(&buf, sampleDelta()))
	assertMatchesAsset(t, "delta.csv", buf.String())
}

func TestWriteDeltaCSVHeaderOnlyWhenEmpty(t *testing.T) {
	var buf bytes.Buffer
	empty := NewDeltaExport(evm.Ethereum, nil, nil, nil)
	require.NoError(t, WriteDeltaCSV(&buf, empty))
	assert.Equal(t, "chain,address,slot,value\n", buf.String())
	assert.Equal(t, "latest", empty.Start)
	assert.Zero(t, empty.SlotCount())
}

func TestWriteContractJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteContractJSON(&buf, sampleContract()))
	assert.JSONEq(t, `{
		"chain": "ethereum",
		"address": "`+daiAddress+`",
		"title": "Dai Stablecoin",
		"version": "latest",
		"balance": "100",
		"code": "0x6001",
		"code_hash": "0x`+strings.Repeat("ab", 32)+`",
		"balance_modify_tx": "`+tx1Hash+`",
		"code_modify_tx": "`+tx0Hash+`",
		"creation_tx": "`+tx0Hash+`",
		"slots": [{"slot": "0x0", "value": "0x1"}, {"slot": "0x1", "value": "0x5"}]
	}`, buf.String())
}

func TestWriteContractText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteContractText(&buf, sampleContract()))
	assertMatchesAsset(t, "contract.txt", buf.String())
}

func TestWriteDeltaText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDeltaText(&buf, sampleDelta()))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Delta ethereum: block ethereum#1 -> block ethereum#2\n"))
	assert.Equal(t, 7, strings.Count(out, "\n"), "title, header and five slot rows")

	buf.Reset()
	require.NoError(t, WriteDeltaText(&buf, NewDeltaExport(evm.Ethereum, nil, nil, nil)))
	assert.Contains(t, buf.String(), "No changes.")
}

func TestExportFromDatabase(t *testing.T) {
	database := setupExportDB(t)

	var buf bytes.Buffer
	require.NoError(t, ExportDeltaJSON(database, evm.Ethereum,
		db.AtBlockNumber(evm.Ethereum, 2),
		db.AtBlockNumber(evm.Ethereum, 1),
		&buf,
	))
	var got DeltaExport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Contracts, 1)
	assert.Equal(t, []SlotValue{{Slot: "0x0", Value: "0x1"}, {Slot: "0x5", Value: "0x0"}}, got.Contracts[0].Slots)

	buf.Reset()
	require.NoError(t, ExportDeltaCSV(database, evm.Ethereum,
		db.AtBlockNumber(evm.Ethereum, 1),
		db.AtBlockNumber(evm.Ethereum, 2),
		&buf,
	))
	assert.Equal(t, 3, strings.Count(buf.String(), "\n"))

	buf.Reset()
	require.NoError(t, ExportContractJSON(database, evm.Ethereum, evm.MustParseAddress(daiAddress), db.AtBlockNumber(evm.Ethereum, 1), &buf))
	var contract ContractExport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &contract))
	assert.Equal(t, []SlotValue{{Slot: "0x0", Value: "0x1"}}, contract.Slots)
	assert.Equal(t, "block ethereum#1", contract.Version)

	err := ExportContractJSON(database, evm.Ethereum, evm.MustParseAddress(wethAddress), nil, &buf)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

// setupExportDB stores dai with slot0=1 in block 1, then slot0=2 and slot5=7
// in block 2.
func setupExportDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Open(filepath.Join(testutil.TempDir(t), "export.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	dai := evm.MustParseAddress(daiAddress)
	steps := []struct {
		tx     string
		slots  evm.Slots
		change evm.ChangeType
	}{
		{tx0Hash, evm.NewSlots([2]uint64{0, 1}), evm.ChangeCreation},
		{tx1Hash, evm.NewSlots([2]uint64{0, 2}, [2]uint64{5, 7}), evm.ChangeUpdate},
	}
	require.NoError(t, database.InTx(func(tx *db.Tx) error {
		for i, step := range steps {
			n := uint64(i + 1)
			block := evm.Block{
				Number:    n,
				Hash:      evm.MustParseHash("0x" + strings.Repeat("0", 63) + string(rune('0'+n))),
				Chain:     evm.Ethereum,
				Timestamp: base.Add(time.Duration(i) * time.Hour),
			}
			if _, err := tx.InsertBlock(block); err != nil {
				return err
			}
			if _, err := tx.InsertTransaction(evm.Transaction{
				Hash:      evm.MustParseHash(step.tx),
				BlockHash: block.Hash,
				From:      evm.MustParseAddress("0x01"),
			}); err != nil {
				return err
			}
			if _, err := tx.ApplyAccountUpdate(evm.AccountUpdate{
				Address: dai,
				Chain:   evm.Ethereum,
				Slots:   step.slots,
				Change:  step.change,
			}, evm.MustParseHash(step.tx)); err != nil {
				return err
			}
		}
		return nil
	}))
	return database
}

func assertMatchesAsset(t *testing.T, name, got string) {
	t.Helper()
	expected := string(assets.ReadFile(t, name))
	assert.Equal(t, strings.TrimSpace(expected), strings.TrimSpace(got), "%s mismatch", name)
}
