package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hackgods/clinic-scheduling/internal/db"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the clinic scheduling schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("dsn", os.Getenv("POSTGRES_DSN"), "postgres connection string")

	rootCmd.AddCommand(upCmd(), downCmd(), forceCmd(), versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func withMigrator(cmd *cobra.Command, fn func(m *db.Migrator) error) error {
	dsn, _ := cmd.Flags().GetString("dsn")
	if dsn == "" {
		return errors.New("--dsn or POSTGRES_DSN is required")
	}

	m, err := db.NewMigrator(dsn)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			fmt.Fprintln(os.Stderr, "close migrator:", err)
		}
	}()

	return fn(m)
}

func upCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(m *db.Migrator) error {
				if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
					return fmt.Errorf("migrate up: %w", err)
				}
				fmt.Println("migrations applied")
				return nil
			})
		},
	}
}

func downCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			return withMigrator(cmd, func(m *db.Migrator) error {
				var err error
				if steps > 0 {
					err = m.Steps(-steps)
				} else {
					err = m.Down()
				}
				if err != nil && !errors.Is(err, migrate.ErrNoChange) {
					return fmt.Errorf("migrate down: %w", err)
				}
				fmt.Println("migrations rolled back")
				return nil
			})
		},
	}
	cmd.Flags().Int("steps", 1, "number of migrations to roll back, 0 for all")
	return cmd
}

func forceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "force <version>",
		Short: "Set the schema version without running migrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}
			return withMigrator(cmd, func(m *db.Migrator) error {
				if err := m.Force(v); err != nil {
					return fmt.Errorf("force version: %w", err)
				}
				fmt.Printf("schema version forced to %d\n", v)
				return nil
			})
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(m *db.Migrator) error {
				v, dirty, err := m.Version()
				if errors.Is(err, migrate.ErrNilVersion) {
					fmt.Println("no migrations applied")
					return nil
				}
				if err != nil {
					return fmt.Errorf("read version: %w", err)
				}
				fmt.Printf("version=%d dirty=%t\n", v, dirty)
				return nil
			})
		},
	}
}
