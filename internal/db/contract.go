package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"github.com/sloppy/tychostore/internal/evm"
)

// InsertContract stores a new contract. The creation, balance and code
// transactions are linked when they are already stored. Slots are not
// written here; use ApplyAccountUpdate or UpsertSlots.
func (tx *Tx) InsertContract(acc evm.Account, createdAt time.Time) (ContractRow, error) {
	chainID, err := tx.EnsureChain(acc.Chain)
	if err != nil {
		return ContractRow{}, err
	}
	creationTx, err := optionalTxID(tx, acc.CreationTx)
	if err != nil {
		return ContractRow{}, err
	}
	balanceTx, err := optionalTxID(tx, nonZero(acc.BalanceModifyTx))
	if err != nil {
		return ContractRow{}, err
	}
	codeTx, err := optionalTxID(tx, nonZero(acc.CodeModifyTx))
	if err != nil {
		return ContractRow{}, err
	}
	codeHash := acc.CodeHash
	if codeHash.IsZero() {
		codeHash = evm.CodeHash(acc.Code)
	}
	code := []byte(acc.Code)
	if code == nil {
		code = []byte{}
	}

	var id int64
	err = tx.QueryRow(
		`INSERT INTO contract (chain_id, address, title, creation_tx, created_at_us, balance, balance_modify_tx, code, code_hash, code_modify_tx)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		chainID, acc.Address.Bytes(), acc.Title, creationTx, toMicros(createdAt),
		evm.Word(acc.Balance), balanceTx, code, codeHash.Bytes(), codeTx,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return ContractRow{}, fmt.Errorf("%w: contract %s on %s", ErrDuplicate, acc.Address.Hex(), acc.Chain)
		}
		return ContractRow{}, fmt.Errorf("insert contract: %w", err)
	}
	return ContractRow{
		ID:        id,
		ChainID:   chainID,
		Address:   acc.Address,
		Title:     acc.Title,
		CreatedAt: fromMicros(toMicros(createdAt)),
	}, nil
}

func nonZero(h evm.Hash) *evm.Hash {
	if h.IsZero() {
		return nil
	}
	return &h
}

func optionalTxID(q querier, h *evm.Hash) (any, error) {
	if h == nil {
		return nil, nil
	}
	t, found, err := transactionByHash(q, *h)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: tx %s", ErrNotFound, h.Hex())
	}
	return t.ID, nil
}

// GetContractRow fetches the unversioned contract row.
func (db *DB) GetContractRow(chain evm.Chain, address evm.Address) (ContractRow, bool, error) {
	return contractRow(db, chain, address)
}

func contractRow(q querier, chain evm.Chain, address evm.Address) (ContractRow, bool, error) {
	var (
		out     ContractRow
		created int64
		deleted sql.NullInt64
	)
	err := q.QueryRow(
		`SELECT ct.id, ct.chain_id, ct.title, ct.created_at_us, ct.deleted_at_us
		 FROM contract ct JOIN chain c ON c.id = ct.chain_id
		 WHERE c.name = ? AND ct.address = ?`,
		chain.String(), address.Bytes(),
	).Scan(&out.ID, &out.ChainID, &out.Title, &created, &deleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ContractRow{}, false, nil
		}
		return ContractRow{}, false, fmt.Errorf("get contract %s: %w", address.Hex(), err)
	}
	out.Address = address
	out.CreatedAt = fromMicros(created)
	out.DeletedAt = nullMicros(deleted)
	return out, true, nil
}

// ListContracts returns the contracts of chain ordered by address.
func (db *DB) ListContracts(chain evm.Chain) ([]ContractRow, error) {
	rows, err := db.Query(
		`SELECT ct.id, ct.chain_id, ct.address, ct.title, ct.created_at_us, ct.deleted_at_us
		 FROM contract ct JOIN chain c ON c.id = ct.chain_id
		 WHERE c.name = ?
		 ORDER BY ct.address`,
		chain.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	defer rows.Close()

	var out []ContractRow
	for rows.Next() {
		var (
			c       ContractRow
			addr    []byte
			created int64
			deleted sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.ChainID, &addr, &c.Title, &created, &deleted); err != nil {
			return nil, fmt.Errorf("scan contract: %w", err)
		}
		if c.Address, err = evm.DecodeAddress(addr, "contract address"); err != nil {
			return nil, decodeErr(err)
		}
		c.CreatedAt = fromMicros(created)
		c.DeletedAt = nullMicros(deleted)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetContract loads a contract as it was at version. Contracts created after
// or deleted at/before the version are reported as not found. Balance and
// code are the latest stored values; only storage slots are versioned.
func (db *DB) GetContract(chain evm.Chain, address evm.Address, version *Version, includeSlots bool) (evm.Account, bool, error) {
	ts, err := db.VersionToTS(version)
	if err != nil {
		return evm.Account{}, false, err
	}

	var (
		id                        int64
		title                     string
		created                   int64
		deleted                   sql.NullInt64
		balance, code, codeHash   []byte
		creationTx, balTx, codeTx []byte
	)
	err = db.QueryRow(
		`SELECT ct.id, ct.title, ct.created_at_us, ct.deleted_at_us, ct.balance, ct.code, ct.code_hash,
		        cr.hash, bt.hash, kt.hash
		 FROM contract ct
		 JOIN chain c ON c.id = ct.chain_id
		 LEFT JOIN txn cr ON cr.id = ct.creation_tx
		 LEFT JOIN txn bt ON bt.id = ct.balance_modify_tx
		 LEFT JOIN txn kt ON kt.id = ct.code_modify_tx
		 WHERE c.name = ? AND ct.address = ?`,
		chain.String(), address.Bytes(),
	).Scan(&id, &title, &created, &deleted, &balance, &code, &codeHash, &creationTx, &balTx, &codeTx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return evm.Account{}, false, nil
		}
		return evm.Account{}, false, fmt.Errorf("get contract %s: %w", address.Hex(), err)
	}
	tsUS := toMicros(ts)
	if created > tsUS || (deleted.Valid && deleted.Int64 <= tsUS) {
		return evm.Account{}, false, nil
	}

	acc := evm.Account{
		Chain:   chain,
		Address: address,
		Title:   title,
		Code:    evm.Bytes(code),
	}
	if acc.Balance, err = evm.DecodeU256(balance, "balance"); err != nil {
		return evm.Account{}, false, decodeErr(err)
	}
	if acc.CodeHash, err = evm.DecodeHash(codeHash, "code hash"); err != nil {
		return evm.Account{}, false, decodeErr(err)
	}
	if balTx != nil {
		if acc.BalanceModifyTx, err = evm.DecodeHash(balTx, "balance tx hash"); err != nil {
			return evm.Account{}, false, decodeErr(err)
		}
	}
	if codeTx != nil {
		if acc.CodeModifyTx, err = evm.DecodeHash(codeTx, "code tx hash"); err != nil {
			return evm.Account{}, false, decodeErr(err)
		}
	}
	if creationTx != nil {
		h, err := evm.DecodeHash(creationTx, "creation tx hash")
		if err != nil {
			return evm.Account{}, false, decodeErr(err)
		}
		acc.CreationTx = &h
	}
	if includeSlots {
		if acc.Slots, err = slotsAt(db, id, ts); err != nil {
			return evm.Account{}, false, err
		}
	}
	return acc, true, nil
}

// ApplyAccountUpdate writes the dirty parts of update as of the stored
// transaction txHash and returns the number of slots written. Creation
// updates insert the contract when it does not exist yet, or revive it when
// it was deleted earlier.
func (tx *Tx) ApplyAccountUpdate(update evm.AccountUpdate, txHash evm.Hash) (int, error) {
	stx, found, err := transactionByHash(tx, txHash)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("%w: tx %s", ErrNotFound, txHash.Hex())
	}

	row, found, err := contractRow(tx, update.Chain, update.Address)
	if err != nil {
		return 0, err
	}
	switch {
	case !found && update.Change == evm.ChangeCreation:
		acc := evm.Account{
			Chain:      update.Chain,
			Address:    update.Address,
			Code:       update.Code,
			CreationTx: &txHash,
		}
		if update.Balance != nil {
			acc.Balance = *update.Balance
			acc.BalanceModifyTx = txHash
		}
		if update.Code != nil {
			acc.CodeModifyTx = txHash
		}
		if row, err = tx.InsertContract(acc, stx.Timestamp); err != nil {
			return 0, err
		}
	case !found:
		return 0, fmt.Errorf("%w: contract %s on %s", ErrNotFound, update.Address.Hex(), update.Chain)
	case row.DeletedAt != nil && update.Change == evm.ChangeCreation:
		if err := tx.recreateContract(row, stx, update); err != nil {
			return 0, err
		}
	case row.DeletedAt != nil:
		return 0, fmt.Errorf("%w: contract %s was deleted at %s", ErrNotFound, update.Address.Hex(), row.DeletedAt.Format(time.RFC3339))
	default:
		if err := tx.updateBalanceAndCode(row.ID, stx.ID, update.Balance, update.Code); err != nil {
			return 0, err
		}
	}

	written, err := tx.UpsertSlots(row.ID, stx.ID, stx.Ordinal(), stx.Timestamp, update.Slots)
	if err != nil {
		return 0, err
	}

	if update.Change == evm.ChangeDeletion {
		if _, err := tx.Exec(`UPDATE contract SET deleted_at_us = ? WHERE id = ?`, toMicros(stx.Timestamp), row.ID); err != nil {
			return 0, fmt.Errorf("delete contract: %w", err)
		}
	}
	return written, nil
}

// recreateContract revives a deleted contract row for a redeploy at the same
// address. Balance and code start from the update, and slots still open from
// the previous deployment are closed at the new creation time.
func (tx *Tx) recreateContract(row ContractRow, stx StoredTransaction, update evm.AccountUpdate) error {
	tsUS := toMicros(stx.Timestamp)
	if tsUS < toMicros(*row.DeletedAt) {
		return fmt.Errorf("%w: contract %s recreated before its deletion", ErrOutOfOrder, update.Address.Hex())
	}

	var (
		balance   uint256.Int
		balanceTx any
		codeTx    any
	)
	if update.Balance != nil {
		balance, balanceTx = *update.Balance, stx.ID
	}
	code := []byte(update.Code)
	if code == nil {
		code = []byte{}
	} else {
		codeTx = stx.ID
	}
	if _, err := tx.Exec(
		`UPDATE contract SET deleted_at_us = NULL, created_at_us = ?, creation_tx = ?,
		        balance = ?, balance_modify_tx = ?, code = ?, code_hash = ?, code_modify_tx = ?
		 WHERE id = ?`,
		tsUS, stx.ID, evm.Word(balance), balanceTx, code, evm.CodeHash(code).Bytes(), codeTx, row.ID,
	); err != nil {
		return fmt.Errorf("recreate contract: %w", err)
	}
	if _, err := tx.Exec(
		`UPDATE contract_storage SET valid_to_us = ? WHERE contract_id = ? AND valid_to_us IS NULL`,
		tsUS, row.ID,
	); err != nil {
		return fmt.Errorf("close slots of deleted contract: %w", err)
	}
	return nil
}

func (tx *Tx) updateBalanceAndCode(contractID, txID int64, balance *uint256.Int, code evm.Bytes) error {
	if balance != nil {
		if _, err := tx.Exec(
			`UPDATE contract SET balance = ?, balance_modify_tx = ? WHERE id = ?`,
			evm.Word(*balance), txID, contractID,
		); err != nil {
			return fmt.Errorf("update balance: %w", err)
		}
	}
	if code != nil {
		if _, err := tx.Exec(
			`UPDATE contract SET code = ?, code_hash = ?, code_modify_tx = ? WHERE id = ?`,
			[]byte(code), evm.CodeHash(code).Bytes(), txID, contractID,
		); err != nil {
			return fmt.Errorf("update code: %w", err)
		}
	}
	return nil
}
