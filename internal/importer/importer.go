package importer

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/sloppy/tychostore/internal/db"
	"github.com/sloppy/tychostore/internal/scope"
)

// ImportStats holds results of an import operation.
type ImportStats struct {
	db.ExtractionRun
	ProtocolTypes int
	Components    int
	States        int
	Tokens        int
}

// ImportFile parses a changeset file and imports it. The file name is used
// as the run source unless the changeset names one.
func ImportFile(database *db.DB, matcher *scope.Matcher, path string, now time.Time) (ImportStats, error) {
	cs, err := ParseChangesetFile(path)
	if err != nil {
		return ImportStats{}, err
	}
	if cs.Source == "" {
		cs.Source = filepath.Base(path)
	}
	return Import(database, matcher, cs, now)
}

// Import writes a changeset within a single transaction and records an
// extraction run for it. Accounts and tokens outside the matcher's scope are
// skipped and counted.
func Import(database *db.DB, matcher *scope.Matcher, cs Changeset, now time.Time) (ImportStats, error) {
	started := time.Now()
	tx, err := database.Begin()
	if err != nil {
		return ImportStats{}, err
	}
	defer tx.Rollback()

	stats := ImportStats{
		ExtractionRun: db.ExtractionRun{
			ID:        uuid.New(),
			Chain:     cs.Chain,
			Source:    cs.Source,
			StartedAt: now.UTC(),
		},
	}

	typeIDs := make(map[string]int64)
	for _, pt := range cs.ProtocolTypes {
		id, err := tx.InsertProtocolType(pt)
		if err != nil {
			return ImportStats{}, err
		}
		typeIDs[pt.Name] = id
		stats.ProtocolTypes++
	}

	for _, b := range cs.Blocks {
		if err := importBlock(tx, matcher, b, typeIDs, &stats); err != nil {
			return ImportStats{}, err
		}
	}

	for _, t := range cs.Tokens {
		if !matcher.InScope(t.Address) {
			stats.Skipped++
			continue
		}
		if err := tx.InsertToken(t); err != nil {
			return ImportStats{}, err
		}
		stats.Tokens++
	}

	stats.FinishedAt = stats.StartedAt.Add(time.Since(started))
	if err := tx.InsertExtractionRun(stats.ExtractionRun); err != nil {
		return ImportStats{}, err
	}
	if err := tx.Commit(); err != nil {
		return ImportStats{}, err
	}
	return stats, nil
}

func importBlock(tx *db.Tx, matcher *scope.Matcher, b BlockChanges, typeIDs map[string]int64, stats *ImportStats) error {
	if _, err := tx.InsertBlock(b.Block); err != nil {
		return err
	}
	stats.Blocks++

	for _, t := range b.Transactions {
		if _, err := tx.InsertTransaction(t.Transaction); err != nil {
			return err
		}
		stats.Transactions++

		for _, u := range t.Accounts {
			if !matcher.InScope(u.Address) {
				stats.Skipped++
				continue
			}
			written, err := tx.ApplyAccountUpdate(u, t.Transaction.Hash)
			if err != nil {
				return fmt.Errorf("apply %s: %w", u.Address.Hex(), err)
			}
			stats.Accounts++
			stats.Slots += written
		}

		for _, c := range t.Components {
			typeID, err := resolveProtocolType(tx, typeIDs, c.ProtocolType)
			if err != nil {
				return err
			}
			pc := c.ProtocolComponent
			pc.ProtocolTypeID = strconv.FormatInt(typeID, 10)
			if _, err := tx.InsertProtocolComponent(pc, b.Block.Timestamp); err != nil {
				return err
			}
			stats.Components++
		}

		for _, s := range t.States {
			if err := tx.InsertProtocolState(b.Block.Chain, s); err != nil {
				return err
			}
			stats.States++
		}
	}
	return nil
}

func resolveProtocolType(tx *db.Tx, known map[string]int64, name string) (int64, error) {
	if id, ok := known[name]; ok {
		return id, nil
	}
	stored, found, err := tx.GetProtocolType(name)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("%w: protocol type %s", db.ErrNotFound, name)
	}
	known[name] = stored.ID
	return stored.ID, nil
}
