package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sloppy/tychostore/internal/db"
	"github.com/sloppy/tychostore/internal/evm"
	"github.com/sloppy/tychostore/internal/export"
)

func newContractCmd(a *app) *cobra.Command {
	var version, format string
	var noSlots bool
	cmd := &cobra.Command{
		Use:   "contract <address>",
		Short: "Show a contract's state at a version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chain := a.chain()
			address, err := evm.ParseAddress(args[0])
			if err != nil {
				return err
			}
			v, err := db.ParseVersion(chain, version)
			if err != nil {
				return fmt.Errorf("version: %w", err)
			}

			database, err := a.openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			acc, found, err := database.GetContract(chain, address, v, !noSlots)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("contract %s on %s: %w", address.Hex(), chain, db.ErrNotFound)
			}

			c := export.NewContractExport(acc, v)
			switch format {
			case "text":
				return export.WriteContractText(a.out, c)
			case "json":
				return export.WriteContractJSON(a.out, c)
			default:
				return fmt.Errorf("unknown format %q (want text or json)", format)
			}
		},
	}
	cmd.Flags().StringVar(&version, "version", "latest", "Version to read")
	cmd.Flags().BoolVar(&noSlots, "no-slots", false, "Omit storage slots")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	return cmd
}
