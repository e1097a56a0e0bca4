package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/eringen/folio/scaffold"
)

func newNewCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "new <name>",
		Short:   "Create a new folio site",
		Example: "  folio new my-site",
		Args:    cobra.ExactArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			name := filepath.Base(dir)
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "Creating new folio site: %s\n\n", name)
			if err := scaffold.Generate(dir, scaffold.NewData(name, time.Now()), out); err != nil {
				return err
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Done! Next steps:")
			fmt.Fprintln(out)
			fmt.Fprintf(out, "  cd %s\n", dir)
			fmt.Fprintln(out, "  folio serve")
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Write posts in content/posts and set sessionSecret in folio.yaml for production.")
			return nil
		},
	}
}
