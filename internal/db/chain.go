package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/sloppy/tychostore/internal/evm"
)

// EnsureChain returns the id of chain, inserting it when missing.
func (tx *Tx) EnsureChain(chain evm.Chain) (int64, error) {
	var id int64
	err := tx.QueryRow(
		`INSERT INTO chain (name) VALUES (?)
		 ON CONFLICT(name) DO UPDATE SET name = excluded.name
		 RETURNING id`,
		chain.String(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ensure chain %s: %w", chain, err)
	}
	return id, nil
}

// EnsureChain is the non-transactional form used by tests and tooling.
func (db *DB) EnsureChain(chain evm.Chain) (int64, error) {
	var id int64
	err := db.InTx(func(tx *Tx) error {
		var err error
		id, err = tx.EnsureChain(chain)
		return err
	})
	return id, err
}

// ChainID looks up a stored chain.
func (db *DB) ChainID(chain evm.Chain) (int64, bool, error) {
	return chainID(db, chain)
}

func chainID(q querier, chain evm.Chain) (int64, bool, error) {
	var id int64
	err := q.QueryRow(`SELECT id FROM chain WHERE name = ?`, chain.String()).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get chain %s: %w", chain, err)
	}
	return id, true, nil
}

func requireChainID(q querier, chain evm.Chain) (int64, error) {
	id, found, err := chainID(q, chain)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("%w: chain %s", ErrNotFound, chain)
	}
	return id, nil
}

// ListChains returns stored chains ordered by name.
func (db *DB) ListChains() ([]evm.Chain, error) {
	rows, err := db.Query(`SELECT name FROM chain ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list chains: %w", err)
	}
	defer rows.Close()

	var chains []evm.Chain
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan chain: %w", err)
		}
		chains = append(chains, evm.Chain(name))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return chains, nil
}
