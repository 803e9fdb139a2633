package db

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/holiman/uint256"

	"github.com/sloppy/tychostore/internal/evm"
)

// UpsertSlots writes slot values for a contract as of (ts, ordinal). The
// currently valid row of each slot is closed at ts and becomes the new row's
// previous value. A second write from the same (ts, ordinal) overwrites in
// place. Writes older than the current row fail with ErrOutOfOrder.
func (tx *Tx) UpsertSlots(contractID, txID, ordinal int64, ts time.Time, slots evm.Slots) (int, error) {
	if len(slots) == 0 {
		return 0, nil
	}
	tsUS := toMicros(ts)

	keys := make([]uint256.Int, 0, len(slots))
	for k := range slots {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Lt(&keys[j]) })

	for _, k := range keys {
		slot := evm.Word(k)
		value := evm.Word(slots[k])

		var (
			curID, curFrom, curOrd int64
			curValue               []byte
		)
		err := tx.QueryRow(
			`SELECT id, value, valid_from_us, ordinal FROM contract_storage
			 WHERE contract_id = ? AND slot = ? AND valid_to_us IS NULL
			 ORDER BY valid_from_us DESC, ordinal DESC, id DESC LIMIT 1`,
			contractID, slot,
		).Scan(&curID, &curValue, &curFrom, &curOrd)
		found := true
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return 0, fmt.Errorf("current slot value: %w", err)
			}
			found = false
		}

		var previous any
		if found {
			if tsUS < curFrom || (tsUS == curFrom && ordinal < curOrd) {
				return 0, fmt.Errorf("%w: slot 0x%s of contract %d", ErrOutOfOrder, hex.EncodeToString(slot), contractID)
			}
			if tsUS == curFrom && ordinal == curOrd {
				if _, err := tx.Exec(`UPDATE contract_storage SET value = ?, modify_tx = ? WHERE id = ?`, value, txID, curID); err != nil {
					return 0, fmt.Errorf("overwrite slot: %w", err)
				}
				continue
			}
			if _, err := tx.Exec(`UPDATE contract_storage SET valid_to_us = ? WHERE id = ?`, tsUS, curID); err != nil {
				return 0, fmt.Errorf("close slot version: %w", err)
			}
			previous = curValue
		}

		if _, err := tx.Exec(
			`INSERT INTO contract_storage (contract_id, slot, value, previous_value, ordinal, modify_tx, valid_from_us)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			contractID, slot, value, previous, ordinal, txID, tsUS,
		); err != nil {
			return 0, fmt.Errorf("insert slot: %w", err)
		}
	}
	return len(keys), nil
}

func slotsAt(q querier, contractID int64, ts time.Time) (evm.Slots, error) {
	tsUS := toMicros(ts)
	rows, err := q.Query(
		`SELECT slot, value FROM contract_storage
		 WHERE contract_id = ? AND valid_from_us <= ? AND (valid_to_us IS NULL OR valid_to_us > ?)`,
		contractID, tsUS, tsUS,
	)
	if err != nil {
		return nil, fmt.Errorf("load slots: %w", err)
	}
	defer rows.Close()

	out := make(evm.Slots)
	for rows.Next() {
		var rawKey, rawValue []byte
		if err := rows.Scan(&rawKey, &rawValue); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		k, v, err := evm.ParseSlotEntry(rawKey, rawValue)
		if err != nil {
			return nil, decodeErr(err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SlotHistory lists every stored write of one slot, oldest first.
func (db *DB) SlotHistory(chain evm.Chain, address evm.Address, slot uint256.Int) ([]SlotChange, error) {
	row, found, err := contractRow(db, chain, address)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: contract %s on %s", ErrNotFound, address.Hex(), chain)
	}
	rows, err := db.Query(
		`SELECT cs.slot, cs.value, cs.previous_value, cs.ordinal, t.hash, cs.valid_from_us, cs.valid_to_us
		 FROM contract_storage cs JOIN txn t ON t.id = cs.modify_tx
		 WHERE cs.contract_id = ? AND cs.slot = ?
		 ORDER BY cs.valid_from_us, cs.ordinal, cs.id`,
		row.ID, evm.Word(slot),
	)
	if err != nil {
		return nil, fmt.Errorf("slot history: %w", err)
	}
	defer rows.Close()

	var out []SlotChange
	for rows.Next() {
		var (
			c        SlotChange
			txHash   []byte
			from     int64
			to       sql.NullInt64
			slotRaw  []byte
			value    []byte
			previous []byte
		)
		if err := rows.Scan(&slotRaw, &value, &previous, &c.Ordinal, &txHash, &from, &to); err != nil {
			return nil, fmt.Errorf("scan slot history: %w", err)
		}
		if c.ModifyTx, err = evm.DecodeHash(txHash, "modify tx hash"); err != nil {
			return nil, decodeErr(err)
		}
		c.Slot, c.Value, c.PreviousValue = slotRaw, value, previous
		c.ValidFrom = fromMicros(from)
		c.ValidTo = nullMicros(to)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
