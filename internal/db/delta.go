package db

import (
	"fmt"

	"github.com/sloppy/tychostore/internal/evm"
)

type changedSlot struct {
	contractID int64
	slot       []byte
	value      []byte
}

// Forward: latest value per (contract, slot) within (start, target].
const forwardDeltaQuery = `
SELECT contract_id, slot, value FROM (
	SELECT cs.contract_id, cs.slot, cs.value,
	       ROW_NUMBER() OVER (
	           PARTITION BY cs.contract_id, cs.slot
	           ORDER BY cs.valid_from_us DESC, cs.ordinal DESC, cs.id DESC
	       ) AS rn
	FROM contract_storage cs
	JOIN contract c ON c.id = cs.contract_id
	WHERE c.chain_id = ? AND cs.valid_from_us > ? AND cs.valid_from_us <= ?
) WHERE rn = 1
ORDER BY contract_id, slot`

// Backward: value before the first change per (contract, slot) within (target, start].
const backwardDeltaQuery = `
SELECT contract_id, slot, previous_value FROM (
	SELECT cs.contract_id, cs.slot, cs.previous_value,
	       ROW_NUMBER() OVER (
	           PARTITION BY cs.contract_id, cs.slot
	           ORDER BY cs.valid_from_us ASC, cs.ordinal ASC, cs.id ASC
	       ) AS rn
	FROM contract_storage cs
	JOIN contract c ON c.id = cs.contract_id
	WHERE c.chain_id = ? AND cs.valid_from_us > ? AND cs.valid_from_us <= ?
) WHERE rn = 1
ORDER BY contract_id, slot`

// GetSlotsDelta returns, per contract, the slot values needed to move state
// from start to target. Going forward it yields the latest values written in
// (start, target]; going backward it yields the values slots held before
// their first change in (target, start], with never-set slots reading zero.
func (db *DB) GetSlotsDelta(chain evm.Chain, start, target *Version) (SlotsDelta, error) {
	chainID, err := requireChainID(db, chain)
	if err != nil {
		return nil, err
	}
	startTS, err := db.VersionToTS(start)
	if err != nil {
		return nil, err
	}
	targetTS, err := db.VersionToTS(target)
	if err != nil {
		return nil, err
	}

	query, lo, hi := forwardDeltaQuery, toMicros(startTS), toMicros(targetTS)
	if lo > hi {
		query, lo, hi = backwardDeltaQuery, hi, lo
	}

	changed, err := loadChangedSlots(db, query, chainID, lo, hi)
	if err != nil {
		return nil, err
	}
	if len(changed) == 0 {
		return SlotsDelta{}, nil
	}

	addresses, err := contractAddresses(db, changed)
	if err != nil {
		return nil, err
	}

	result := make(SlotsDelta, len(addresses))
	for _, c := range changed {
		addr, ok := addresses[c.contractID]
		if !ok {
			return nil, fmt.Errorf("%w: failed to find contract address for id %d", ErrDecode, c.contractID)
		}
		k, v, err := evm.ParseSlotEntry(c.slot, c.value)
		if err != nil {
			return nil, decodeErr(err)
		}
		slots, ok := result[addr]
		if !ok {
			slots = make(evm.Slots)
			result[addr] = slots
		}
		slots[k] = v
	}
	return result, nil
}

func loadChangedSlots(q querier, query string, chainID, lo, hi int64) ([]changedSlot, error) {
	rows, err := q.Query(query, chainID, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("query slots delta: %w", err)
	}
	defer rows.Close()

	var out []changedSlot
	for rows.Next() {
		var c changedSlot
		if err := rows.Scan(&c.contractID, &c.slot, &c.value); err != nil {
			return nil, fmt.Errorf("scan slots delta: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// contractAddresses resolves the distinct contract ids of changed in one
// query; ids are much smaller than addresses, so the delta query only
// carries ids.
func contractAddresses(q querier, changed []changedSlot) (map[int64]evm.Address, error) {
	seen := make(map[int64]struct{})
	var ids []any
	for _, c := range changed {
		if _, ok := seen[c.contractID]; ok {
			continue
		}
		seen[c.contractID] = struct{}{}
		ids = append(ids, c.contractID)
	}

	rows, err := q.Query(`SELECT id, address FROM contract WHERE id IN (`+placeholders(len(ids))+`)`, ids...)
	if err != nil {
		return nil, fmt.Errorf("query contract addresses: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]evm.Address, len(ids))
	for rows.Next() {
		var (
			id  int64
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan contract address: %w", err)
		}
		addr, err := evm.DecodeAddress(raw, fmt.Sprintf("address of contract %d", id))
		if err != nil {
			return nil, decodeErr(err)
		}
		out[id] = addr
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
