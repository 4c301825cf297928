package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/inventario/pkg/config"
	"github.com/angelmondragon/inventario/pkg/db"
	"github.com/angelmondragon/inventario/pkg/logger"
	"github.com/angelmondragon/inventario/pkg/migrate"
)

type options struct {
	dir    string
	driver string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the productos/ventas schema with goose",
		Long: `Runs goose migrations against the configured database.

Without --dir the migrations compiled into the binary are used for up, down,
status and version. create and validate work on the source tree.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.dir, "dir", "", "migrations directory (default: embedded, or pkg/migrate/migrations/<driver> for create/validate)")
	root.PersistentFlags().StringVar(&opts.driver, "driver", "", "postgres|mysql|sqlite (default: INVENTARIO_DB_DRIVER)")

	root.AddCommand(
		gooseCmd("up", "Apply all pending migrations", opts),
		gooseCmd("down", "Roll back the latest migration", opts),
		gooseCmd("status", "Print applied and pending migrations", opts),
		versionCmd(opts),
		createCmd(opts),
		validateCmd(opts),
	)
	return root
}

func gooseCmd(command, short string, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   command,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), command, opts, func(ctx context.Context, client *db.Client) error {
				sqlDB, err := client.SQL()
				if err != nil {
					return err
				}
				return migrate.Run(ctx, sqlDB, client.Driver(), opts.dir, command)
			})
		},
	}
}

func versionCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "version <YYYYMMDDHHMMSS>",
		Short: "Migrate up or down to the given version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), "version", opts, func(ctx context.Context, client *db.Client) error {
				sqlDB, err := client.SQL()
				if err != nil {
					return err
				}
				return migrate.MigrateToVersion(ctx, sqlDB, client.Driver(), opts.dir, args[0])
			})
		},
	}
}

func createCmd(opts *options) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an empty SQL migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := migrate.CreateSQLMigration(opts.sourceDir(), name)
			if err != nil {
				return fmt.Errorf("create migration: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "created migration:", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "migration name (required)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func validateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check migration file names and goose annotations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := migrate.ValidateDir(opts.sourceDir()); err != nil {
				return fmt.Errorf("migration validation failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migration validation passed")
			return nil
		},
	}
}

func (o *options) resolvedDriver() string {
	driver := o.driver
	if driver == "" {
		driver = os.Getenv(config.EnvDBDriver)
	}
	return config.DBConfig{Driver: driver}.NormalizedDriver()
}

func (o *options) sourceDir() string {
	if o.dir != "" {
		return o.dir
	}
	return migrate.DefaultDir(o.resolvedDriver())
}

// withDB loads config, opens the database and hands it to fn. A --driver flag
// overrides the configured one.
func withDB(ctx context.Context, command string, opts *options, fn func(context.Context, *db.Client) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.driver != "" {
		cfg.DB.Driver = opts.driver
	}

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{
		"env":    cfg.App.Env,
		"cmd":    command,
		"driver": cfg.DB.NormalizedDriver(),
	})

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "resource not working: database", err)
		return err
	}
	defer client.Close()

	logg.Info(ctx, "migrate ready")
	if err := fn(ctx, client); err != nil {
		logg.Error(ctx, "migrate failed", err)
		return err
	}
	logg.Info(ctx, "migrate finished")
	return nil
}
