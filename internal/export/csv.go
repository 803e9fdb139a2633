package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/sloppy/tychostore/internal/db"
	"github.com/sloppy/tychostore/internal/evm"
)

// WriteDeltaCSV writes one row per changed slot, ordered by address then slot.
func WriteDeltaCSV(w io.Writer, delta DeltaExport) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, c := range delta.Contracts {
		for _, s := range c.Slots {
			if err := writer.Write(csvRow(delta.Chain, c.Address, s)); err != nil {
				return fmt.Errorf("write row: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// ExportDeltaCSV loads the delta between two versions and writes it as CSV.
func ExportDeltaCSV(database *db.DB, chain evm.Chain, start, target *db.Version, w io.Writer) error {
	delta, err := database.GetSlotsDelta(chain, start, target)
	if err != nil {
		return fmt.Errorf("get slots delta: %w", err)
	}
	return WriteDeltaCSV(w, NewDeltaExport(chain, start, target, delta))
}

func csvHeader() []string {
	return []string{
		"chain",
		"address",
		"slot",
		"value",
	}
}

func csvRow(chain evm.Chain, address evm.Address, slot SlotValue) []string {
	return []string{
		chain.String(),
		address.Hex(),
		slot.Slot,
		slot.Value,
	}
}
