package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sloppy/tychostore/internal/output"
	"github.com/sloppy/tychostore/internal/web"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API and contract pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := a.openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := web.NewServer(database, output.ComponentLogger("http"))
			output.Info("listening", "addr", a.cfg.Listen, "db", a.cfg.DB)
			return srv.ListenAndServe(ctx, a.cfg.Listen)
		},
	}
	cmd.Flags().String("listen", "", "Address to listen on (env: TYCHO_LISTEN)")
	_ = a.loader.Viper().BindPFlag("listen", cmd.Flags().Lookup("listen"))
	return cmd
}
