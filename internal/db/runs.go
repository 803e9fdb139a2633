package db

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/sloppy/tychostore/internal/evm"
)

// InsertExtractionRun records a finished import.
func (tx *Tx) InsertExtractionRun(run ExtractionRun) error {
	chainID, err := tx.EnsureChain(run.Chain)
	if err != nil {
		return err
	}
	_, err = tx.Exec(
		`INSERT INTO extraction_run (id, chain_id, source, started_at_us, finished_at_us, blocks, transactions, accounts, slots, skipped)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), chainID, run.Source, toMicros(run.StartedAt), toMicros(run.FinishedAt),
		run.Blocks, run.Transactions, run.Accounts, run.Slots, run.Skipped,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: extraction run %s", ErrDuplicate, run.ID)
		}
		return fmt.Errorf("insert extraction run: %w", err)
	}
	return nil
}

// ListExtractionRuns returns runs newest first.
func (db *DB) ListExtractionRuns() ([]ExtractionRun, error) {
	rows, err := db.Query(
		`SELECT r.id, c.name, r.source, r.started_at_us, r.finished_at_us, r.blocks, r.transactions, r.accounts, r.slots, r.skipped
		 FROM extraction_run r JOIN chain c ON c.id = r.chain_id
		 ORDER BY r.started_at_us DESC, r.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list extraction runs: %w", err)
	}
	defer rows.Close()

	var runs []ExtractionRun
	for rows.Next() {
		var (
			r                 ExtractionRun
			id, chain         string
			started, finished int64
		)
		if err := rows.Scan(&id, &chain, &r.Source, &started, &finished, &r.Blocks, &r.Transactions, &r.Accounts, &r.Slots, &r.Skipped); err != nil {
			return nil, fmt.Errorf("scan extraction run: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, decodeErr(err)
		}
		r.Chain = evm.Chain(chain)
		r.StartedAt = fromMicros(started)
		r.FinishedAt = fromMicros(finished)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}
