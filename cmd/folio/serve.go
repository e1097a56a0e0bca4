package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eringen/folio"
	"github.com/eringen/folio/telemetry"
)

func (c *cli) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the site over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tel, err := telemetry.Init(c.cfg.Telemetry, c.log.Named("telemetry"))
			if err != nil {
				return err
			}
			app := folio.New(c.cfg,
				folio.WithLogger(c.log),
				folio.WithTelemetry(tel),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.Run(ctx)
		},
	}
	cmd.Flags().String("addr", "", "listen address (default :3000)")
	_ = c.v.BindPFlag("addr", cmd.Flags().Lookup("addr"))
	return cmd
}
