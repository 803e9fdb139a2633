package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sloppy/tychostore/internal/export"
)

func newExportCmd(a *app) *cobra.Command {
	var start, target, format, outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a slot delta to a JSON or CSV file",
		Long: `Export writes the slot delta between --start and --target to --out.
The format follows the file extension (.json or .csv) unless --format is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == "" {
				format = strings.TrimPrefix(strings.ToLower(filepath.Ext(outPath)), ".")
			}
			if format != "json" && format != "csv" {
				return fmt.Errorf("cannot export %q: unknown format %q (want json or csv)", outPath, format)
			}

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

			// outPath is written only once the delta rendered.
			var buf bytes.Buffer
			if format == "json" {
				err = export.ExportDeltaJSON(database, chain, startV, targetV, &buf)
			} else {
				err = export.ExportDeltaCSV(database, chain, startV, targetV, &buf)
			}
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}

			a.printer().Success("wrote %s delta to %s", format, outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "Start version (required)")
	cmd.Flags().StringVar(&target, "target", "latest", "Target version")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (required)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: json, csv (default from extension)")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
