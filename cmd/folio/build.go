package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eringen/folio"
)

func (c *cli) newBuildCmd() *cobra.Command {
	var (
		out   string
		watch bool
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Export the site as static files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := folio.New(c.cfg, folio.WithLogger(c.log))
			defer app.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := app.Export(ctx, out); err != nil {
				return err
			}
			if !watch {
				return nil
			}

			return app.Watch(ctx, 300*time.Millisecond, func() {
				if err := app.Export(ctx, out); err != nil {
					c.log.Error("rebuild failed", zap.Error(err))
				}
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "dist", "output directory")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "rebuild when content changes")
	return cmd
}
