package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/erp/payables/internal/infrastructure/migration"
	"github.com/erp/payables/migrations"
)

func newMigrateCmd(rt *runtime) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the payables database schema",
		Long: `Applies the versioned SQL migrations to the configured database.

up, down, steps, version and force use the migrations compiled into the
binary unless --path names a directory. create and list work on --path or
database.migrations_path.`,
	}
	cmd.PersistentFlags().StringVar(&path, "path", "", "Migrations directory (default: migrations built into the binary)")

	// withMigrator opens a dedicated connection; closing the migrator closes it
	withMigrator := func(fn func(m *migration.Migrator) error) error {
		db, err := rt.openDatabase()
		if err != nil {
			return err
		}
		sqlDB, err := db.DB.DB()
		if err != nil {
			_ = db.Close()
			return err
		}
		m, err := migration.New(sqlDB, migration.Config{
			Driver:         rt.cfg.Database.Driver,
			MigrationsPath: path,
		}, rt.log.Named("migrate"))
		if err != nil {
			_ = db.Close()
			return err
		}
		defer func() {
			if err := m.Close(); err != nil {
				rt.log.Warn("Failed to close migrator", zap.Error(err))
			}
		}()
		return fn(m)
	}

	sourceDir := func() string {
		if path != "" {
			return path
		}
		return rt.cfg.Database.MigrationsPath
	}

	var confirmDown bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back every migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmDown {
				return errors.New("migrate down drops the payables schema; pass --yes to confirm")
			}
			return withMigrator(func(m *migration.Migrator) error { return m.Down() })
		},
	}
	down.Flags().BoolVar(&confirmDown, "yes", false, "Confirm rolling back every migration")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(func(m *migration.Migrator) error { return m.Up() })
			},
		},
		down,
		&cobra.Command{
			Use:   "steps N",
			Short: "Apply N migrations, or roll back when N is negative",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil || n == 0 {
					return fmt.Errorf("invalid step count %q: expected a non-zero integer", args[0])
				}
				return withMigrator(func(m *migration.Migrator) error { return m.Steps(n) })
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied migration version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(func(m *migration.Migrator) error {
					v, dirty, err := m.Version()
					if err != nil {
						return err
					}
					suffix := ""
					if dirty {
						suffix = " (dirty)"
					}
					_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d%s\n", v, suffix)
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "force VERSION",
			Short: "Set the migration version without running migrations",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				return withMigrator(func(m *migration.Migrator) error { return m.Force(v) })
			},
		},
		&cobra.Command{
			Use:   "create NAME [DESCRIPTION]",
			Short: "Create the next numbered up/down migration pair",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				description := ""
				if len(args) > 1 {
					description = args[1]
				}
				mf, err := migration.CreateMigration(sourceDir(), args[0], description)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", mf.UpPath, mf.DownPath)
				return err
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List available migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				var fsys fs.FS = migrations.FS
				if path != "" {
					fsys = os.DirFS(path)
				}
				names, err := migration.ListMigrations(fsys)
				if err != nil {
					return err
				}
				for _, name := range names {
					if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
						return err
					}
				}
				return nil
			},
		},
	)

	return cmd
}
