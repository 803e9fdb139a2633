package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/sloppy/tychostore/internal/evm"
)

func decodeErr(err error) error {
	return fmt.Errorf("%w: %w", ErrDecode, err)
}

const blockColumns = `b.id, b.chain_id, c.name, b.hash, b.parent_hash, b.number, b.main, b.ts_us`

func scanBlock(row interface{ Scan(...any) error }) (StoredBlock, error) {
	var (
		out          StoredBlock
		chainName    string
		hash, parent []byte
		number, ts   int64
	)
	if err := row.Scan(&out.ID, &out.ChainID, &chainName, &hash, &parent, &number, &out.Main, &ts); err != nil {
		return StoredBlock{}, err
	}
	h, err := evm.DecodeHash(hash, "block hash")
	if err != nil {
		return StoredBlock{}, decodeErr(err)
	}
	p, err := evm.DecodeHash(parent, "parent hash")
	if err != nil {
		return StoredBlock{}, decodeErr(err)
	}
	out.Block = evm.Block{
		Number:     uint64(number),
		Hash:       h,
		ParentHash: p,
		Chain:      evm.Chain(chainName),
		Timestamp:  fromMicros(ts),
	}
	return out, nil
}

// InsertBlock stores a block on its chain, creating the chain if needed.
func (tx *Tx) InsertBlock(b evm.Block) (StoredBlock, error) {
	chainID, err := tx.EnsureChain(b.Chain)
	if err != nil {
		return StoredBlock{}, err
	}
	var id int64
	err = tx.QueryRow(
		`INSERT INTO block (chain_id, hash, parent_hash, number, main, ts_us)
		 VALUES (?, ?, ?, ?, 1, ?)
		 RETURNING id`,
		chainID, b.Hash.Bytes(), b.ParentHash.Bytes(), int64(b.Number), toMicros(b.Timestamp),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return StoredBlock{}, fmt.Errorf("%w: block %s", ErrDuplicate, b.Hash.Hex())
		}
		return StoredBlock{}, fmt.Errorf("insert block: %w", err)
	}
	b.Timestamp = fromMicros(toMicros(b.Timestamp))
	return StoredBlock{ID: id, ChainID: chainID, Main: true, Block: b}, nil
}

// GetBlockByHash fetches a block by hash.
func (db *DB) GetBlockByHash(h evm.Hash) (StoredBlock, bool, error) {
	return blockByHash(db, h)
}

// GetBlockByHash fetches a block by hash inside the transaction.
func (tx *Tx) GetBlockByHash(h evm.Hash) (StoredBlock, bool, error) {
	return blockByHash(tx, h)
}

func blockByHash(q querier, h evm.Hash) (StoredBlock, bool, error) {
	b, err := scanBlock(q.QueryRow(
		`SELECT `+blockColumns+` FROM block b JOIN chain c ON c.id = b.chain_id WHERE b.hash = ?`,
		h.Bytes(),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return StoredBlock{}, false, nil
		}
		return StoredBlock{}, false, fmt.Errorf("get block %s: %w", h.Hex(), err)
	}
	return b, true, nil
}

// GetBlockByNumber fetches the main-chain block with the given number.
func (db *DB) GetBlockByNumber(chain evm.Chain, number uint64) (StoredBlock, bool, error) {
	return blockByNumber(db, chain, number)
}

func blockByNumber(q querier, chain evm.Chain, number uint64) (StoredBlock, bool, error) {
	b, err := scanBlock(q.QueryRow(
		`SELECT `+blockColumns+` FROM block b JOIN chain c ON c.id = b.chain_id
		 WHERE c.name = ? AND b.number = ? AND b.main = 1
		 ORDER BY b.id DESC LIMIT 1`,
		chain.String(), int64(number),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return StoredBlock{}, false, nil
		}
		return StoredBlock{}, false, fmt.Errorf("get block %s#%d: %w", chain, number, err)
	}
	return b, true, nil
}

// LatestBlock returns the highest main-chain block of chain.
func (db *DB) LatestBlock(chain evm.Chain) (StoredBlock, bool, error) {
	b, err := scanBlock(db.QueryRow(
		`SELECT `+blockColumns+` FROM block b JOIN chain c ON c.id = b.chain_id
		 WHERE c.name = ? AND b.main = 1
		 ORDER BY b.number DESC, b.id DESC LIMIT 1`,
		chain.String(),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return StoredBlock{}, false, nil
		}
		return StoredBlock{}, false, fmt.Errorf("latest block %s: %w", chain, err)
	}
	return b, true, nil
}

// InsertTransaction stores a transaction; its block must already be stored.
func (tx *Tx) InsertTransaction(t evm.Transaction) (StoredTransaction, error) {
	block, found, err := blockByHash(tx, t.BlockHash)
	if err != nil {
		return StoredTransaction{}, err
	}
	if !found {
		return StoredTransaction{}, fmt.Errorf("%w: block %s for tx %s", ErrNotFound, t.BlockHash.Hex(), t.Hash.Hex())
	}
	to := []byte{}
	if t.To != nil {
		to = t.To.Bytes()
	}
	var id int64
	err = tx.QueryRow(
		`INSERT INTO txn (block_id, hash, from_address, to_address, idx)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING id`,
		block.ID, t.Hash.Bytes(), t.From.Bytes(), to, int64(t.Index),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return StoredTransaction{}, fmt.Errorf("%w: tx %s", ErrDuplicate, t.Hash.Hex())
		}
		return StoredTransaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return StoredTransaction{
		ID:          id,
		BlockID:     block.ID,
		BlockNumber: block.Number,
		Timestamp:   block.Timestamp,
		Transaction: t,
	}, nil
}

// GetTransaction fetches a transaction by hash.
func (db *DB) GetTransaction(h evm.Hash) (StoredTransaction, bool, error) {
	return transactionByHash(db, h)
}

// GetTransaction fetches a transaction by hash inside the transaction.
func (tx *Tx) GetTransaction(h evm.Hash) (StoredTransaction, bool, error) {
	return transactionByHash(tx, h)
}

func transactionByHash(q querier, h evm.Hash) (StoredTransaction, bool, error) {
	var (
		out                   StoredTransaction
		hash, blockHash, from []byte
		to                    []byte
		index, number, ts     int64
	)
	err := q.QueryRow(
		`SELECT t.id, t.block_id, t.hash, b.hash, b.number, t.from_address, t.to_address, t.idx, b.ts_us
		 FROM txn t JOIN block b ON b.id = t.block_id
		 WHERE t.hash = ?`,
		h.Bytes(),
	).Scan(&out.ID, &out.BlockID, &hash, &blockHash, &number, &from, &to, &index, &ts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return StoredTransaction{}, false, nil
		}
		return StoredTransaction{}, false, fmt.Errorf("get transaction %s: %w", h.Hex(), err)
	}
	if out.Hash, err = evm.DecodeHash(hash, "tx hash"); err != nil {
		return StoredTransaction{}, false, decodeErr(err)
	}
	if out.BlockHash, err = evm.DecodeHash(blockHash, "tx block hash"); err != nil {
		return StoredTransaction{}, false, decodeErr(err)
	}
	if out.From, err = evm.DecodeAddress(from, "tx sender"); err != nil {
		return StoredTransaction{}, false, decodeErr(err)
	}
	if len(to) > 0 {
		receiver, err := evm.DecodeAddress(to, "tx receiver")
		if err != nil {
			return StoredTransaction{}, false, decodeErr(err)
		}
		out.To = &receiver
	}
	out.Index = uint64(index)
	out.BlockNumber = uint64(number)
	out.Timestamp = fromMicros(ts)
	return out, true, nil
}
