package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/db"
	"github.com/angelmondragon/storefront/pkg/instance"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/migrate"
)

type rootOptions struct {
	Dir      string
	Embedded bool
}

func (o *rootOptions) source() (fs.FS, error) {
	if o.Embedded {
		return migrate.EmbeddedSource()
	}
	return migrate.DirSource(o.Dir)
}

func printOutcomes(w io.Writer, outcomes []migrate.Outcome) {
	for _, o := range outcomes {
		switch {
		case o.Direction != "":
			fmt.Fprintf(w, "%-4s %d %s (%s)\n", o.Direction, o.Version, o.Path, o.Duration.Round(time.Millisecond))
		case o.Applied:
			fmt.Fprintf(w, "applied %d %s %s\n", o.Version, o.Path, o.AppliedAt.UTC().Format(time.RFC3339))
		default:
			fmt.Fprintf(w, "pending %d %s\n", o.Version, o.Path)
		}
	}
}

// dbOpener connects to the configured database and returns the logger built
// from the same config. Tests swap in sqlite.
type dbOpener func(ctx context.Context) (*db.Client, *logger.Logger, error)

func newRootCommand(open dbOpener) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the storefront database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.Dir, "dir", migrate.DefaultDir, "goose migrations directory")
	cmd.PersistentFlags().BoolVar(&opts.Embedded, "embedded", false, "use the migrations compiled into the binary instead of --dir")

	for _, command := range []string{"up", "down", "status"} {
		cmd.AddCommand(newGooseCommand(command, opts, open))
	}
	cmd.AddCommand(newToCommand(opts, open))
	cmd.AddCommand(newCreateCommand(opts))
	cmd.AddCommand(newValidateCommand(opts))
	return cmd
}

func newGooseCommand(command string, opts *rootOptions, open dbOpener) *cobra.Command {
	return &cobra.Command{
		Use:   command,
		Short: fmt.Sprintf("Run goose %s", command),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client, logg, err := open(ctx)
			if err != nil {
				return err
			}
			defer client.Close()
			ctx = logg.WithFields(ctx, map[string]any{"cmd": command, "embedded": opts.Embedded})

			// The SQL files are Postgres-only; sqlite schemas come from the models.
			if client.Driver() == db.DriverSQLite {
				if command != "up" {
					return fmt.Errorf("%s is not supported on sqlite", command)
				}
				if err := migrate.AutoMigrateModels(client); err != nil {
					return fmt.Errorf("sqlite schema: %w", err)
				}
				logg.Info(ctx, "sqlite schema migrated from models")
				fmt.Fprintln(cmd.OutOrStdout(), "sqlite schema migrated from models")
				return nil
			}

			sqlDB, err := client.SQL()
			if err != nil {
				return err
			}
			source, err := opts.source()
			if err != nil {
				return err
			}
			outcomes, err := migrate.Apply(ctx, sqlDB, source, command)
			printOutcomes(cmd.OutOrStdout(), outcomes)
			if err != nil {
				return err
			}
			logg.Info(logg.WithField(ctx, "migrations", len(outcomes)), "migrate done")
			return nil
		},
	}
}

func newToCommand(opts *rootOptions, open dbOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "to VERSION",
		Short: "Migrate up or down to VERSION (YYYYMMDDHHMMSS)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, logg, err := open(ctx)
			if err != nil {
				return err
			}
			defer client.Close()
			if client.Driver() == db.DriverSQLite {
				return fmt.Errorf("to is not supported on sqlite")
			}

			sqlDB, err := client.SQL()
			if err != nil {
				return err
			}
			source, err := opts.source()
			if err != nil {
				return err
			}
			outcomes, err := migrate.MigrateTo(ctx, sqlDB, source, args[0])
			printOutcomes(cmd.OutOrStdout(), outcomes)
			if err != nil {
				return err
			}
			logg.Info(logg.WithField(ctx, "version", args[0]), "migrate done")
			return nil
		},
	}
}

func newCreateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME",
		Short: "Write an empty timestamped migration into --dir",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := migrate.CreateSQLMigration(opts.Dir, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "created migration:", path)
			return nil
		},
	}
}

func newValidateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check migration names and goose markers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if opts.Embedded {
				err = migrate.ValidateEmbedded()
			} else {
				err = migrate.ValidateDir(opts.Dir)
			}
			if err != nil {
				for _, problem := range multierr.Errors(err) {
					fmt.Fprintln(cmd.ErrOrStderr(), "-", problem)
				}
				return fmt.Errorf("migration validation failed")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migration validation passed")
			return nil
		},
	}
}

func openDatabase(ctx context.Context) (*db.Client, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
		Fields:      map[string]any{"env": cfg.App.Env, "instance": instance.GetID()},
	})
	client, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return nil, nil, err
	}
	return client, logg, nil
}
