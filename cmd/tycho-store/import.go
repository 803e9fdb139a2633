package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/sloppy/tychostore/internal/importer"
	"github.com/sloppy/tychostore/internal/output"
)

func newImportCmd(a *app) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "import <changeset.yaml>...",
		Short: "Import changeset files into the store",
		Long: `Import parses each YAML changeset and writes it in its own transaction.
Accounts and tokens outside the tracked contracts are skipped. A failing
file stops the import; files already imported stay committed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := a.openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			matcher := a.matcher()
			bar := newImportBar(a, len(args), quiet)

			var total importer.ImportStats
			for _, path := range args {
				stats, err := importer.ImportFile(database, matcher, path, time.Now())
				if err != nil {
					return fmt.Errorf("import %s: %w", path, err)
				}
				output.Debug("imported changeset",
					"file", path,
					"run", stats.ID,
					"blocks", stats.Blocks,
					"slots", stats.Slots,
					"skipped", stats.Skipped,
				)
				addStats(&total, stats)
				if bar != nil {
					_ = bar.Add(1)
				}
			}

			p := a.printer()
			p.Success("imported %d files: %d blocks, %d transactions, %d accounts, %d slots",
				len(args), total.Blocks, total.Transactions, total.Accounts, total.Slots)
			if total.Components > 0 || total.States > 0 || total.Tokens > 0 {
				p.Success("protocol: %d types, %d components, %d states, %d tokens",
					total.ProtocolTypes, total.Components, total.States, total.Tokens)
			}
			if total.Skipped > 0 {
				p.Warning("skipped %d untracked entries", total.Skipped)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Disable the progress bar")
	return cmd
}

func newImportBar(a *app, total int, quiet bool) *progressbar.ProgressBar {
	if quiet || total < 2 {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.CyanString("importing changesets")),
		progressbar.OptionSetWriter(a.errOut),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionEnableColorCodes(!a.noColor),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(a.errOut)
		}),
	)
}

func addStats(total *importer.ImportStats, s importer.ImportStats) {
	total.Blocks += s.Blocks
	total.Transactions += s.Transactions
	total.Accounts += s.Accounts
	total.Slots += s.Slots
	total.Skipped += s.Skipped
	total.ProtocolTypes += s.ProtocolTypes
	total.Components += s.Components
	total.States += s.States
	total.Tokens += s.Tokens
}
