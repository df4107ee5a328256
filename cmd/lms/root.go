package main

import (
	"github.com/spf13/cobra"

	"lms/cmd/internal/app"
)

// NewRootCmd creates the root command. Without a subcommand it serves.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lms",
		Short: "LMS auth service with single active session per account",
		Long: `lms serves the login, password-change and session endpoints plus the
realtime channel used to force-logout superseded sessions.

Configuration is read from LMS_* environment variables.`,
		SilenceUsage: true,
		RunE:         runServe,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewHashPasswordCmd())

	return cmd
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and realtime server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	return app.Run(cmd.Context())
}
