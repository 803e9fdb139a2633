package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sloppy/tychostore/internal/db"
	"github.com/sloppy/tychostore/internal/evm"
)

// ContractExport is the JSON shape of a contract at a version.
type ContractExport struct {
	Chain           evm.Chain   `json:"chain"`
	Address         evm.Address `json:"address"`
	Title           string      `json:"title"`
	Version         string      `json:"version"`
	Balance         string      `json:"balance"`
	Code            evm.Bytes   `json:"code"`
	CodeHash        evm.Hash    `json:"code_hash"`
	BalanceModifyTx evm.Hash    `json:"balance_modify_tx"`
	CodeModifyTx    evm.Hash    `json:"code_modify_tx"`
	CreationTx      *evm.Hash   `json:"creation_tx"`
	Slots           []SlotValue `json:"slots"`
}

// NewContractExport converts an account read at version.
func NewContractExport(acc evm.Account, version *db.Version) ContractExport {
	slots := SortedSlots(acc.Slots)
	return ContractExport{
		Chain:           acc.Chain,
		Address:         acc.Address,
		Title:           acc.Title,
		Version:         version.String(),
		Balance:         acc.Balance.Dec(),
		Code:            acc.Code,
		CodeHash:        acc.CodeHash,
		BalanceModifyTx: acc.BalanceModifyTx,
		CodeModifyTx:    acc.CodeModifyTx,
		CreationTx:      acc.CreationTx,
		Slots:           slots,
	}
}

// WriteDeltaJSON writes a slot delta as indented JSON.
func WriteDeltaJSON(w io.Writer, delta DeltaExport) error {
	return writeJSON(w, delta)
}

// WriteContractJSON writes a contract as indented JSON.
func WriteContractJSON(w io.Writer, contract ContractExport) error {
	return writeJSON(w, contract)
}

// ExportDeltaJSON loads the delta between two versions and writes it as JSON.
func ExportDeltaJSON(database *db.DB, chain evm.Chain, start, target *db.Version, w io.Writer) error {
	delta, err := database.GetSlotsDelta(chain, start, target)
	if err != nil {
		return fmt.Errorf("get slots delta: %w", err)
	}
	return WriteDeltaJSON(w, NewDeltaExport(chain, start, target, delta))
}

// ExportContractJSON loads a contract with its slots at version and writes it as JSON.
func ExportContractJSON(database *db.DB, chain evm.Chain, address evm.Address, version *db.Version, w io.Writer) error {
	acc, found, err := database.GetContract(chain, address, version, true)
	if err != nil {
		return fmt.Errorf("get contract: %w", err)
	}
	if !found {
		return fmt.Errorf("%w: contract %s at %s", db.ErrNotFound, address.Hex(), version)
	}
	return WriteContractJSON(w, NewContractExport(acc, version))
}

func writeJSON(w io.Writer, payload any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(payload); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
