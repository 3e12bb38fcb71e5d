package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
	EnvFile    string
}

// NewRootCommand creates the root command. Without subcommand it serves the api.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "books",
		Short:         "Books store api",
		Long:          "A minimal books store api backed by a relational database.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "./config.yml", "path of the yaml configuration file")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env", "./config.env", "path of the optional dotenv file")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the api server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts)
		},
	}
}

func runServe(opts *RootOptions) error {
	config, err := LoadAndInitConfigs(opts.ConfigFile, opts.EnvFile, GitCommit, GitTag, BuildTime)
	if err != nil {
		return fmt.Errorf("failed to setup app configuration: %w", err)
	}
	app, err := NewApp(config)
	if err != nil {
		return fmt.Errorf("application failed to initialized: %w", err)
	}
	return app.Run()
}

// NewMigrateCommand creates the migrate command. It only creates
// the books table when missing then exits.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the books table if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := LoadAndInitConfigs(rootOpts.ConfigFile, rootOpts.EnvFile, GitCommit, GitTag, BuildTime)
			if err != nil {
				return fmt.Errorf("failed to setup app configuration: %w", err)
			}
			db, err := OpenBookDatabase(&config.Database)
			if err != nil {
				return fmt.Errorf("failed to migrate books database: %w", err)
			}
			if err = db.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "books schema ready on %s database\n", config.Database.Driver)
			return nil
		},
	}
}

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build details",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tag: %s\ncommit: %s\nbuilt: %s\n", GitTag, GitCommit, BuildTime)
		},
	}
}
