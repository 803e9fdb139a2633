package export

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// WriteContractText writes a readable summary of a contract.
func WriteContractText(w io.Writer, contract ContractExport) error {
	fmt.Fprintf(w, "Contract: %s (%s) [%s]\n", contract.Address.Hex(), contract.Chain, contract.Version)
	if contract.Title != "" {
		fmt.Fprintf(w, "Title: %s\n", contract.Title)
	}
	fmt.Fprintf(w, "Balance: %s\n", contract.Balance)
	fmt.Fprintf(w, "Code hash: %s\n", contract.CodeHash.Hex())
	if contract.CreationTx != nil {
		fmt.Fprintf(w, "Created in: %s\n", contract.CreationTx.Hex())
	}

	if len(contract.Slots) == 0 {
		_, err := fmt.Fprintln(w, "  No slots found.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  Slot\tValue")
	for _, s := range contract.Slots {
		fmt.Fprintf(tw, "  %s\t%s\n", s.Slot, s.Value)
	}
	return tw.Flush()
}

// WriteDeltaText writes a slot delta as an aligned table.
func WriteDeltaText(w io.Writer, delta DeltaExport) error {
	fmt.Fprintf(w, "Delta %s: %s -> %s\n", delta.Chain, delta.Start, delta.Target)
	if len(delta.Contracts) == 0 {
		_, err := fmt.Fprintln(w, "  No changes.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  Address\tSlot\tValue")
	for _, c := range delta.Contracts {
		for _, s := range c.Slots {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", c.Address.Hex(), s.Slot, s.Value)
		}
	}
	return tw.Flush()
}
