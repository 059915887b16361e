package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the contenthub CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contenthub",
		Short: "contenthub - articles, books and recipes API",
		Long: `contenthub serves the content publishing API. Configuration is read
from the environment; a .env file in the working directory is loaded first.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewCreateAdminCmd())

	return cmd
}
