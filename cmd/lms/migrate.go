package main

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"lms/cmd/internal/db"
)

// NewMigrateCmd creates the migrate command group.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long:  `Apply or revert the embedded schema migrations against LMS_DATABASE_URL.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(func(m *db.Migrator) error {
				if err := m.Up(); err != nil {
					return err
				}
				return printVersion(cmd, m)
			})
		},
	})

	var confirm bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Revert every migration (drops all LMS data)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirm {
				return errors.New("refusing to drop the schema without --yes")
			}
			return withMigrator(func(m *db.Migrator) error {
				if err := m.Down(); err != nil {
					return err
				}
				cmd.Println("schema dropped")
				return nil
			})
		},
	}
	down.Flags().BoolVar(&confirm, "yes", false, "confirm the destructive rollback")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(func(m *db.Migrator) error { return printVersion(cmd, m) })
		},
	})

	return cmd
}

func withMigrator(fn func(*db.Migrator) error) (err error) {
	url := strings.TrimSpace(os.Getenv("LMS_DATABASE_URL"))
	if url == "" {
		return errors.New("LMS_DATABASE_URL is required")
	}

	m, err := db.NewMigrator(url)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, m.Close()) }()

	return fn(m)
}

func printVersion(cmd *cobra.Command, m *db.Migrator) error {
	v, dirty, err := m.Version()
	if err != nil {
		return err
	}
	cmd.Printf("schema version %d (dirty=%t)\n", v, dirty)
	return nil
}
