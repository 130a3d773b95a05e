package commands

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapch/pkg/schemamigration"
	"github.com/spf13/cobra"
)

// NewMigrationsCommand creates the migrations command group.
func NewMigrationsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "migrations",
		Aliases: []string{"migrate"},
		Short:   "Inspect and edit the schema_migrations table",
		Long: `Inspect and edit the schema_migrations bookkeeping table.

ClickHouse rows are never updated in place: adding a version appends an active
row, removing it appends an inactive row, and ReplacingMergeTree keeps the
newest row per version.`,
	}

	cmd.AddCommand(newMigrationsListCommand())
	cmd.AddCommand(newMigrationsAddCommand())
	cmd.AddCommand(newMigrationsRemoveCommand())
	cmd.AddCommand(newMigrationsAssumeCommand())

	return cmd
}

func newMigrationsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List applied migration versions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			ch, cleanup, err := cmdCtx.Connect(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			versions, err := schemamigration.New(ch, cmdCtx.Logger).Versions(cmd.Context())
			if err != nil {
				return err
			}
			return cmdCtx.Renderer.Table(nameResult("version", versions), "")
		},
	}
}

func newMigrationsAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <version>...",
		Short: "Record versions as applied",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(s *schemamigration.Store, r func(string)) error {
				for _, v := range args {
					if err := s.Add(cmd.Context(), v); err != nil {
						return err
					}
					r(v)
				}
				return nil
			})
		},
	}
}

func newMigrationsRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <version>...",
		Short: "Record versions as rolled back",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(s *schemamigration.Store, r func(string)) error {
				for _, v := range args {
					if err := s.Remove(cmd.Context(), v); err != nil {
						return err
					}
					r(v)
				}
				return nil
			})
		},
	}
}

func newMigrationsAssumeCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "assume <version>",
		Short: "Mark a version and every earlier migration file as applied",
		Long: `Mark <version> as applied, together with every earlier version found in
the migrations directory that is not recorded yet. Useful after loading a
schema dump into a fresh database.

Migration files are named <version>_<description>.<ext>.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			if dir == "" {
				dir = cmdCtx.Cfg.MigrationsDir
			}
			known, err := migrationVersions(dir)
			if err != nil {
				return err
			}
			return withStore(cmd, func(s *schemamigration.Store, r func(string)) error {
				if err := s.AssumeMigratedUpTo(cmd.Context(), args[0], known); err != nil {
					return err
				}
				r(args[0])
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Migrations directory (default: migrations_dir from config)")

	return cmd
}

// withStore connects, ensures the bookkeeping table exists and runs fn. The
// callback passed to fn reports one processed version.
func withStore(cmd *cobra.Command, fn func(*schemamigration.Store, func(string)) error) error {
	cmdCtx := NewCommandContext(cmd)
	ch, cleanup, err := cmdCtx.Connect(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	store := schemamigration.New(ch, cmdCtx.Logger)
	if err := store.CreateTable(cmd.Context()); err != nil {
		return err
	}
	return fn(store, func(v string) {
		cmdCtx.Renderer.StatusLine(v, "success", "")
	})
}

// migrationVersions returns the versions of migration files in dir, in
// directory order. A missing directory yields no versions.
func migrationVersions(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var versions []string
	for _, name := range names {
		version, _, ok := strings.Cut(name, "_")
		if !ok || version == "" || strings.TrimLeft(version, "0123456789") != "" {
			continue
		}
		versions = append(versions, version)
	}
	return versions, nil
}
