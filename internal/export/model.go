package export

import (
	"bytes"
	"sort"

	"github.com/holiman/uint256"

	"github.com/sloppy/tychostore/internal/db"
	"github.com/sloppy/tychostore/internal/evm"
)

// DeltaExport is a slot delta flattened into a stable order.
type DeltaExport struct {
	Chain     evm.Chain       `json:"chain"`
	Start     string          `json:"start"`
	Target    string          `json:"target"`
	Contracts []ContractSlots `json:"contracts"`
}

// ContractSlots lists one contract's slots ordered by slot number.
type ContractSlots struct {
	Address evm.Address `json:"address"`
	Slots   []SlotValue `json:"slots"`
}

type SlotValue struct {
	Slot  string `json:"slot"`
	Value string `json:"value"`
}

// NewDeltaExport orders delta by address bytes, then by slot number.
func NewDeltaExport(chain evm.Chain, start, target *db.Version, delta db.SlotsDelta) DeltaExport {
	out := DeltaExport{
		Chain:     chain,
		Start:     start.String(),
		Target:    target.String(),
		Contracts: make([]ContractSlots, 0, len(delta)),
	}
	for addr, slots := range delta {
		out.Contracts = append(out.Contracts, ContractSlots{Address: addr, Slots: SortedSlots(slots)})
	}
	sort.Slice(out.Contracts, func(i, j int) bool {
		return bytes.Compare(out.Contracts[i].Address[:], out.Contracts[j].Address[:]) < 0
	})
	return out
}

// SlotCount returns the number of slots across all contracts.
func (d DeltaExport) SlotCount() int {
	n := 0
	for _, c := range d.Contracts {
		n += len(c.Slots)
	}
	return n
}

// SortedSlots renders slots as hex pairs ordered by slot number.
func SortedSlots(slots evm.Slots) []SlotValue {
	keys := make([]uint256.Int, 0, len(slots))
	for k := range slots {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Lt(&keys[j]) })

	out := make([]SlotValue, 0, len(keys))
	for _, k := range keys {
		v := slots[k]
		out = append(out, SlotValue{Slot: k.Hex(), Value: v.Hex()})
	}
	return out
}
