package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sloppy/tychostore/internal/config"
	"github.com/sloppy/tychostore/internal/db"
	"github.com/sloppy/tychostore/internal/evm"
	"github.com/sloppy/tychostore/internal/output"
	"github.com/sloppy/tychostore/internal/scope"
)

// app carries per-invocation state shared by the subcommands.
type app struct {
	out    io.Writer
	errOut io.Writer

	loader     *config.Loader
	cfg        *config.Config
	configFile string
	envFile    string
	noColor    bool
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut, loader: config.NewLoader()}

	root := &cobra.Command{
		Use:   "tycho-store",
		Short: "Versioned EVM contract storage",
		Long: `tycho-store imports chain changesets into a SQLite store and serves
contract state and slot deltas at any stored version.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initialize()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "Path to YAML config file (env: TYCHO_CONFIG)")
	flags.StringVar(&a.envFile, "env-file", ".env", "Path to a .env file loaded before the environment is read")
	flags.String("db", "", "Path to database file (env: TYCHO_DB)")
	flags.String("chain", "", "Chain to operate on (env: TYCHO_CHAIN)")
	flags.StringSlice("track", nil, "Tracked contract addresses, prefix with ! to exclude (env: TYCHO_TRACKED_CONTRACTS)")
	flags.BoolP("verbose", "v", false, "Enable verbose output")
	flags.BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	v := a.loader.Viper()
	_ = v.BindPFlag("db", flags.Lookup("db"))
	_ = v.BindPFlag("chain", flags.Lookup("chain"))
	_ = v.BindPFlag("tracked_contracts", flags.Lookup("track"))
	_ = v.BindPFlag("verbose", flags.Lookup("verbose"))

	root.AddCommand(
		newServeCmd(a),
		newImportCmd(a),
		newDeltaCmd(a),
		newContractCmd(a),
		newExportCmd(a),
		newRunsCmd(a),
		newVersionCmd(),
	)
	return root
}

// initialize loads .env, config file and environment, then sets up logging.
func (a *app) initialize() error {
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return err
	}
	configFile := a.configFile
	if configFile == "" {
		configFile = a.loader.Viper().GetString("config")
	}
	cfg, err := a.loader.Load(configFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg

	output.SetupLogging(output.LogConfig{Verbose: cfg.Verbose, Writer: a.errOut})
	output.Debug("configuration loaded",
		"config", configFile,
		"db", cfg.DB,
		"chain", cfg.Chain,
		"tracked", len(cfg.TrackedContracts),
	)
	return nil
}

func (a *app) chain() evm.Chain {
	// Validate already accepted it.
	c, _ := a.cfg.ParsedChain()
	return c
}

func (a *app) openDB() (*db.DB, error) {
	database, err := db.Open(a.cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return database, nil
}

func (a *app) matcher() *scope.Matcher {
	m := scope.NewMatcher(a.cfg.TrackedContracts)
	for _, def := range m.Skipped() {
		output.Warn("ignoring tracked contract entry", "entry", def)
	}
	return m
}

func (a *app) printer() *output.Printer {
	return output.NewPrinter(a.out, a.noColor)
}
