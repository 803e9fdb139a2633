package db

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sloppy/tychostore/internal/evm"
)

type versionKind int

const (
	versionBlockHash versionKind = iota + 1
	versionBlockNumber
	versionTimestamp
)

// Version selects a point in history, either by block or by timestamp. A nil
// *Version means "now".
type Version struct {
	kind   versionKind
	hash   evm.Hash
	chain  evm.Chain
	number uint64
	ts     time.Time
}

// AtBlockHash selects the version produced by the block with the given hash.
func AtBlockHash(h evm.Hash) *Version {
	return &Version{kind: versionBlockHash, hash: h}
}

// AtBlockNumber selects the version produced by the main-chain block number.
func AtBlockNumber(chain evm.Chain, number uint64) *Version {
	return &Version{kind: versionBlockNumber, chain: chain, number: number}
}

// AtTime selects the version valid at ts.
func AtTime(ts time.Time) *Version {
	return &Version{kind: versionTimestamp, ts: ts.UTC()}
}

func (v *Version) String() string {
	if v == nil {
		return "latest"
	}
	switch v.kind {
	case versionBlockHash:
		return "block " + v.hash.Hex()
	case versionBlockNumber:
		return fmt.Sprintf("block %s#%d", v.chain, v.number)
	default:
		return v.ts.Format(time.RFC3339Nano)
	}
}

// ParseVersion reads the version syntax used by the CLI and HTTP API:
// empty or "latest" for now, a 0x-prefixed block hash, a decimal block
// number on chain, or an RFC3339 timestamp.
func ParseVersion(chain evm.Chain, raw string) (*Version, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "" || strings.EqualFold(raw, "latest"):
		return nil, nil
	case strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X"):
		h, err := evm.ParseHash(raw)
		if err != nil {
			return nil, fmt.Errorf("parse version: %w", err)
		}
		return AtBlockHash(h), nil
	}
	if n, err := strconv.ParseUint(raw, 10, 64); err == nil {
		return AtBlockNumber(chain, n), nil
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, fmt.Errorf("parse version %q: expected block hash, block number or RFC3339 time", raw)
	}
	return AtTime(ts), nil
}

// now is swapped in tests.
var now = time.Now

// VersionToTS resolves a version into the timestamp it stands for. Block
// versions require the block to be stored; a missing block yields
// ErrNotFound even if changes exist in neighbouring blocks.
func (db *DB) VersionToTS(v *Version) (time.Time, error) {
	return versionToTS(db, v)
}

// VersionToTS resolves a version inside the transaction.
func (tx *Tx) VersionToTS(v *Version) (time.Time, error) {
	return versionToTS(tx, v)
}

func versionToTS(q querier, v *Version) (time.Time, error) {
	if v == nil {
		return now().UTC(), nil
	}
	switch v.kind {
	case versionBlockHash:
		b, found, err := blockByHash(q, v.hash)
		if err != nil {
			return time.Time{}, err
		}
		if !found {
			return time.Time{}, fmt.Errorf("%w: block %s", ErrNotFound, v.hash.Hex())
		}
		return b.Timestamp, nil
	case versionBlockNumber:
		b, found, err := blockByNumber(q, v.chain, v.number)
		if err != nil {
			return time.Time{}, err
		}
		if !found {
			return time.Time{}, fmt.Errorf("%w: block %s#%d", ErrNotFound, v.chain, v.number)
		}
		return b.Timestamp, nil
	case versionTimestamp:
		return v.ts, nil
	default:
		return time.Time{}, fmt.Errorf("unknown version kind %d", v.kind)
	}
}
