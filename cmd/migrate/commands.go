package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	appmigrations "github.com/wolfman30/vetchat-assistant/migrations"
)

// migrator is the subset of *migrate.Migrate the commands drive.
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Version() (uint, bool, error)
	Close() (error, error)
}

type openFunc func(databaseURL string) (migrator, error)

func newRootCmd(open openFunc) *cobra.Command {
	var databaseURL string

	rootCmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply vetchat database migrations",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "postgres connection string (defaults to DATABASE_URL)")

	// withMigrator opens the database for a single command and always closes it.
	withMigrator := func(fn func(cmd *cobra.Command, m migrator) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			url := strings.TrimSpace(databaseURL)
			if url == "" {
				return errors.New("DATABASE_URL is required")
			}
			m, err := open(url)
			if err != nil {
				return err
			}
			defer func() { _, _ = m.Close() }()
			return fn(cmd, m)
		}
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m migrator) error {
			if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("migrate up: %w", err)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "migrations complete")
			return err
		}),
	}

	var steps int
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations (all unless --steps is set)",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m migrator) error {
			var err error
			if steps > 0 {
				err = m.Steps(-steps)
			} else {
				err = m.Down()
			}
			if err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("migrate down: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "rollback complete")
			return err
		}),
	}
	downCmd.Flags().IntVar(&steps, "steps", 0, "number of migrations to roll back")

	var forceVersion int
	forceCmd := &cobra.Command{
		Use:   "force <version>",
		Short: "Set the schema version without running migrations",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(_ *cobra.Command, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version: %w", err)
			}
			forceVersion = v
			return nil
		},
	}
	forceCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(cmd *cobra.Command, m migrator) error {
			if err := m.Force(forceVersion); err != nil {
				return fmt.Errorf("force version: %w", err)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "forced version to %d\n", forceVersion)
			return err
		})(cmd, args)
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m migrator) error {
			v, dirty, err := m.Version()
			if errors.Is(err, migrate.ErrNilVersion) {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
				return err
			}
			if err != nil {
				return fmt.Errorf("read version: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty=%t)\n", v, dirty)
			return err
		}),
	}

	rootCmd.AddCommand(upCmd, downCmd, forceCmd, versionCmd)
	return rootCmd
}

func openMigrator(databaseURL string) (migrator, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db driver: %w", err)
	}
	srcDriver, err := iofs.New(appmigrations.FS, ".")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("source driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", srcDriver, "postgres", dbDriver)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}
