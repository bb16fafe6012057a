package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront/internal/catalogseed"
	products "github.com/angelmondragon/storefront/internal/products"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/db"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/migrate"
)

type rootOptions struct {
	File string
}

// dbOpener connects to the configured database. Tests swap in sqlite.
type dbOpener func(ctx context.Context, logg *logger.Logger) (*db.Client, error)

func newRootCommand(open dbOpener) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "seed",
		Short:         "Load storefront fixture data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.File, "file", "f", "", "catalog YAML file")
	_ = cmd.MarkPersistentFlagRequired("file")

	cmd.AddCommand(newCatalogCommand(opts, open))
	cmd.AddCommand(newValidateCommand(opts))
	return cmd
}

func newValidateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check a catalog file without writing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := catalogseed.LoadFile(opts.File)
			if err != nil {
				for _, e := range multierr.Errors(err) {
					fmt.Fprintln(cmd.ErrOrStderr(), "-", e)
				}
				return fmt.Errorf("catalog %s is invalid", opts.File)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "catalog ok: %d categories, %d products\n", len(catalog.Categories), len(catalog.Products))
			return nil
		},
	}
}

func newCatalogCommand(opts *rootOptions, open dbOpener) *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Upsert the categories and products of a catalog file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logg := logger.New(logger.Options{ServiceName: "seed", Output: cmd.ErrOrStderr()})

			catalog, err := catalogseed.LoadFile(opts.File)
			if err != nil {
				return err
			}

			client, err := open(ctx, logg)
			if err != nil {
				return err
			}
			defer client.Close()

			if autoMigrate {
				if err := migrateSchema(ctx, client); err != nil {
					return err
				}
			}

			result, err := catalogseed.Apply(ctx, client, products.NewRepository(client.DB()), catalog, logg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d categories, %d products\n", result.Categories, result.Products)
			return nil
		},
	}
	cmd.Flags().BoolVar(&autoMigrate, "migrate", false, "bring the schema up to date first")
	return cmd
}

func migrateSchema(ctx context.Context, client *db.Client) error {
	if client.Driver() == db.DriverSQLite {
		return migrate.AutoMigrateModels(client)
	}
	sqlDB, err := client.SQL()
	if err != nil {
		return err
	}
	return migrate.RunEmbedded(ctx, sqlDB, "up")
}

func openDatabase(ctx context.Context, logg *logger.Logger) (*db.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
}
