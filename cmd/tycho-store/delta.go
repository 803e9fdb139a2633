package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sloppy/tychostore/internal/db"
	"github.com/sloppy/tychostore/internal/evm"
	"github.com/sloppy/tychostore/internal/export"
)

func newDeltaCmd(a *app) *cobra.Command {
	var start, target, format string
	cmd := &cobra.Command{
		Use:   "delta",
		Short: "Show storage slots that differ between two versions",
		Long: `Delta prints the slot values that must be applied to move contract
storage from --start to --target. Versions are "latest", a block hash
(0x...), a block number, or an RFC3339 timestamp. When target is older
than start the previous values are printed instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			chain := a.chain()
			startV, targetV, err := parseRange(chain, start, target)
			if err != nil {
				return err
			}

			database, err := a.openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			delta, err := database.GetSlotsDelta(chain, startV, targetV)
			if err != nil {
				return err
			}
			d := export.NewDeltaExport(chain, startV, targetV, delta)

			switch format {
			case "text":
				a.printer().Delta(d)
				return nil
			case "table":
				return export.WriteDeltaText(a.out, d)
			case "json":
				return export.WriteDeltaJSON(a.out, d)
			case "csv":
				return export.WriteDeltaCSV(a.out, d)
			default:
				return fmt.Errorf("unknown format %q (want text, table, json or csv)", format)
			}
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "Start version (required)")
	cmd.Flags().StringVar(&target, "target", "latest", "Target version")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, table, json, csv")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func parseRange(chain evm.Chain, start, target string) (*db.Version, *db.Version, error) {
	startV, err := db.ParseVersion(chain, start)
	if err != nil {
		return nil, nil, fmt.Errorf("start: %w", err)
	}
	targetV, err := db.ParseVersion(chain, target)
	if err != nil {
		return nil, nil, fmt.Errorf("target: %w", err)
	}
	return startV, targetV, nil
}
