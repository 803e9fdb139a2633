package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sloppy/tychostore/internal/evm"
	"github.com/sloppy/tychostore/internal/testutil"
)

var assets = testutil.NewAssets()

func TestLoaderLoad(t *testing.T) {
	t.Run("loads config from file", func(t *testing.T) {
		cfg, err := NewLoader().Load(assets.Path("tycho.yaml"))
		require.NoError(t, err)

		assert.Equal(t, "/var/lib/tycho/store.db", cfg.DB)
		assert.Equal(t, "0.0.0.0:9090", cfg.Listen)
		assert.Equal(t, "arbitrum", cfg.Chain)
		assert.Equal(t, []string{
			"0x6b175474e89094c44da98b954eedeac495271d0f",
			"!0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2",
		}, cfg.TrackedContracts)
		assert.True(t, cfg.Verbose)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("defaults for missing file", func(t *testing.T) {
		cfg, err := NewLoader().Load(filepath.Join(testutil.TempDir(t), "nonexistent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultDBPath, cfg.DB)
		assert.Equal(t, DefaultListen, cfg.Listen)
		assert.Equal(t, DefaultChain, cfg.Chain)
		assert.Empty(t, cfg.TrackedContracts)
		assert.False(t, cfg.Verbose)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("TYCHO_DB", "/env/store.db")
		t.Setenv("TYCHO_CHAIN", "starknet")
		t.Setenv("TYCHO_TRACKED_CONTRACTS", "0x01,0x02")

		cfg, err := NewLoader().Load(assets.Path("tycho.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "/env/store.db", cfg.DB)
		assert.Equal(t, "starknet", cfg.Chain)
		assert.Equal(t, []string{"0x01", "0x02"}, cfg.TrackedContracts)
		assert.Equal(t, "0.0.0.0:9090", cfg.Listen, "file value kept when env is unset")
	})

	t.Run("malformed file", func(t *testing.T) {
		_, err := NewLoader().Load(assets.Path("broken.yaml"))
		assert.ErrorContains(t, err, "reading config file")
	})
}

func TestLoadDotEnv(t *testing.T) {
	for _, key := range []string{"TYCHO_DB", "TYCHO_CHAIN"} {
		prev, had := os.LookupEnv(key)
		require.NoError(t, os.Unsetenv(key))
		t.Cleanup(func() {
			if had {
				os.Setenv(key, prev)
			} else {
				os.Unsetenv(key)
			}
		})
	}

	require.NoError(t, LoadDotEnv(assets.Path("sample.env")))
	cfg, err := NewLoader().Load("")
	require.NoError(t, err)
	assert.Equal(t, "/from/dotenv.db", cfg.DB)

	chain, err := cfg.ParsedChain()
	require.NoError(t, err)
	assert.Equal(t, evm.ZkSync, chain)
}

func TestLoadDotEnvKeepsExistingVariables(t *testing.T) {
	t.Setenv("TYCHO_DB", "/already/set.db")
	t.Setenv("TYCHO_CHAIN", "ethereum")
	require.NoError(t, LoadDotEnv(assets.Path("sample.env")))
	assert.Equal(t, "/already/set.db", os.Getenv("TYCHO_DB"))
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(testutil.TempDir(t), ".env")))
	assert.NoError(t, LoadDotEnv(""))
}

func TestValidate(t *testing.T) {
	cfg := &Config{DB: "", Listen: "", Chain: "solana", TrackedContracts: []string{"nope"}}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db path is empty")
	assert.Contains(t, err.Error(), "listen address is empty")
	assert.Contains(t, err.Error(), "solana")
	assert.Contains(t, err.Error(), "tracked contract")
}
