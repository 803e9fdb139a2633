package importer

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sloppy/tychostore/internal/db"
	"github.com/sloppy/tychostore/internal/evm"
	"github.com/sloppy/tychostore/internal/scope"
	"github.com/sloppy/tychostore/internal/testutil"
)

const (
	dai  = "0x6b175474e89094c44da98b954eedeac495271d0f"
	weth = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	usdc = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
)

var assets = testutil.NewAssets()

func newTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Open(filepath.Join(testutil.TempDir(t), "test.db"))
	require.NoError(t, err, "open db")
	t.Cleanup(func() { database.Close() })
	return database
}

func TestParseChangesetAsset(t *testing.T) {
	cs, err := ParseChangeset(strings.NewReader(string(assets.ReadFile(t, "dai.yaml"))))
	require.NoError(t, err)

	assert.Equal(t, evm.Ethereum, cs.Chain)
	assert.Equal(t, "dai-fixture", cs.Source)
	blocks, txns, accounts := cs.Counts()
	assert.Equal(t, 2, blocks)
	assert.Equal(t, 2, txns)
	assert.Equal(t, 4, accounts)

	first := cs.Blocks[0].Transactions[0]
	require.NotNil(t, first.Transaction.To)
	assert.Equal(t, evm.MustParseAddress(dai), *first.Transaction.To)
	daiCreation := first.Accounts[0]
	assert.Equal(t, evm.ChangeCreation, daiCreation.Change)
	assert.Equal(t, evm.NewSlots([2]uint64{0, 1}, [2]uint64{1, 5}, [2]uint64{2, 1}), daiCreation.Slots)
	require.NotNil(t, daiCreation.Balance)
	assert.Equal(t, uint64(100), daiCreation.Balance.Uint64())
	assert.Equal(t, evm.Bytes{0x60, 0x01}, daiCreation.Code)

	second := cs.Blocks[1].Transactions[0]
	assert.Nil(t, second.Transaction.To)
	assert.Equal(t, evm.ChangeUpdate, second.Accounts[0].Change)
	assert.Equal(t, time.Date(2020, 1, 1, 1, 0, 0, 0, time.UTC), cs.Blocks[1].Block.Timestamp)

	require.Len(t, first.Components, 1)
	assert.Equal(t, "weighted_pool", first.Components[0].ProtocolType)
	assert.Equal(t, evm.Bytes{0x0b, 0xb8}, first.Components[0].StaticAttributes["fee"])

	require.Len(t, cs.Tokens, 2)
	require.Len(t, cs.Tokens[0].Gas, 2)
	assert.Equal(t, uint64(29000), *cs.Tokens[0].Gas[0])
	assert.Nil(t, cs.Tokens[0].Gas[1])
}

func TestImportFileWritesChangeset(t *testing.T) {
	database := newTestDB(t)
	matcher := scope.NewMatcher([]string{dai, weth})
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	stats, err := ImportFile(database, matcher, filepath.Join(testutil.AssetDir(), "dai.yaml"), now)
	require.NoError(t, err)

	assert.Equal(t, "dai-fixture", stats.Source)
	assert.Equal(t, 2, stats.Blocks)
	assert.Equal(t, 2, stats.Transactions)
	assert.Equal(t, 3, stats.Accounts)
	assert.Equal(t, 1, stats.Skipped, "usdc is not tracked")
	assert.Equal(t, 8, stats.Slots)
	assert.Equal(t, 1, stats.ProtocolTypes)
	assert.Equal(t, 1, stats.Components)
	assert.Equal(t, 2, stats.States)
	assert.Equal(t, 2, stats.Tokens)

	delta, err := database.GetSlotsDelta(evm.Ethereum,
		db.AtBlockNumber(evm.Ethereum, 1),
		db.AtBlockNumber(evm.Ethereum, 2),
	)
	require.NoError(t, err)
	assert.Equal(t, db.SlotsDelta{
		evm.MustParseAddress(dai): evm.NewSlots([2]uint64{0, 2}, [2]uint64{1, 3}, [2]uint64{5, 25}, [2]uint64{6, 30}),
	}, delta)

	_, found, err := database.GetContractRow(evm.Ethereum, evm.MustParseAddress(usdc))
	require.NoError(t, err)
	assert.False(t, found, "skipped account must not be stored")

	acc, found, err := database.GetContract(evm.Ethereum, evm.MustParseAddress(dai), nil, false)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint64(100), acc.Balance.Uint64())

	state, found, err := database.GetProtocolState(evm.Ethereum, "dai-weth", nil)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, evm.Bytes{0x03}, state.Attributes["reserve0"])

	tokens, err := database.ListTokens(evm.Ethereum)
	require.NoError(t, err)
	assert.Len(t, tokens, 2)

	runs, err := database.ListExtractionRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, stats.ID, runs[0].ID)
	assert.Equal(t, now, runs[0].StartedAt)
	assert.Equal(t, 1, runs[0].Skipped)
}

func TestImportWithoutRulesTracksEverything(t *testing.T) {
	database := newTestDB(t)
	stats, err := ImportFile(database, scope.NewMatcher(nil), assets.Path("dai.yaml"), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Accounts)
	assert.Zero(t, stats.Skipped)
}

func TestImportTwiceIsDuplicate(t *testing.T) {
	database := newTestDB(t)
	matcher := scope.NewMatcher(nil)
	_, err := ImportFile(database, matcher, assets.Path("dai.yaml"), time.Now())
	require.NoError(t, err)

	_, err = ImportFile(database, matcher, assets.Path("dai.yaml"), time.Now())
	assert.ErrorIs(t, err, db.ErrDuplicate)

	runs, err := database.ListExtractionRuns()
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestImportRollsBackOnUnknownProtocolType(t *testing.T) {
	database := newTestDB(t)
	_, err := ImportFile(database, scope.NewMatcher(nil), assets.Path("unknown_type.yaml"), time.Now())
	require.ErrorIs(t, err, db.ErrNotFound)
	assert.Contains(t, err.Error(), "missing_type")

	_, found, err := database.GetBlockByNumber(evm.Ethereum, 7)
	require.NoError(t, err)
	assert.False(t, found, "block must be rolled back")

	runs, err := database.ListExtractionRuns()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestParseChangesetErrors(t *testing.T) {
	_, err := ParseChangesetFile(assets.Path("bad_slot.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slot 0x0 value")

	_, err = ParseChangesetFile(assets.Path("does_not_exist.yaml"))
	assert.ErrorContains(t, err, "open changeset")

	tests := map[string]string{
		"empty":         "",
		"unknown field": "chain: ethereum\nbogus: 1\n",
		"unknown chain": "chain: solana\n",
		"bad financial": "chain: ethereum\nprotocol_types:\n  - name: p\n    financial_type: lending\n    implementation: vm\n",
		"bad timestamp": "chain: ethereum\nblocks:\n  - number: 1\n    hash: \"0x" + strings.Repeat("01", 32) + "\"\n    timestamp: yesterday\n",
		"short hash":    "chain: ethereum\nblocks:\n  - number: 1\n    hash: \"0x01\"\n    timestamp: \"2020-01-01T00:00:00Z\"\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseChangeset(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}
