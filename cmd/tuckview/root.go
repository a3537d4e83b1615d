package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "tuckview",
		Short:         "Adaptive table-data query service",
		Long:          "tuckview serves tabular data from JSON documents, SQLite files, and PostgreSQL databases over a uniform HTTP API, adapting pagination and filtering to what each backend can do.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCommand())

	return root
}
