package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/kadirbelkuyu/DBSMT/internal/app"
	"github.com/kadirbelkuyu/DBSMT/internal/config"

	"github.com/spf13/cobra"
)

const appName = "Database Schema Migration Toolkit"

const asciiBanner = `
 ██████████   ███████████   █████████  ██████   ██████ ███████████
░░███░░░░███ ░░███░░░░░███ ███░░░░░███░░██████ ██████ ░█░░░███░░░█
 ░███   ░░███ ░███    ░███░███    ░░░  ░███░█████░███ ░   ░███  ░
 ░███    ░███ ░██████████ ░░█████████  ░███░░███ ░███     ░███
 ░███    ░███ ░███░░░░░███ ░░░░░░░░███ ░███ ░░░  ░███     ░███
 ░███    ███  ░███    ░███ ███    ░███ ░███      ░███     ░███
 ██████████   ███████████ ░░█████████  █████     █████    █████
░░░░░░░░░░   ░░░░░░░░░░░   ░░░░░░░░░  ░░░░░     ░░░░░    ░░░░░
`

var rootCmd = &cobra.Command{
	Use:   "dbsmt",
	Short: "Schema migration toolkit for PostgreSQL, MySQL and SQLite",
	Long:  `A developer-friendly CLI to diff schema definitions, generate versioned SQL migrations, and apply them transactionally with an audit ledger.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		printBanner()
		return cmd.Help()
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Diff the declared schema against the last snapshot and write a migration",
	RunE:  runGenerate,
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply all pending migrations to the database",
	RunE:  runApply,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	RunE:  runStatus,
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Record the live database structure as the latest snapshot",
	RunE:  runSnapshot,
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check database connectivity",
	RunE:  runPing,
}

var migrationService = app.NewService()

var (
	configPath  string
	schemaPath  string
	description string
	schemaName  string
	skipConfirm bool
	verbose     bool
)

func init() {
	generateCmd.Flags().StringVar(&configPath, "config", "", "Path to the configuration file")
	generateCmd.Flags().StringVar(&schemaPath, "schema", "", "Path to the declarative schema file")
	generateCmd.Flags().StringVarP(&description, "message", "m", "", "Description used to name the migration")
	generateCmd.Flags().BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	generateCmd.MarkFlagRequired("config")
	generateCmd.MarkFlagRequired("schema")
	generateCmd.MarkFlagRequired("message")

	applyCmd.Flags().StringVar(&configPath, "config", "", "Path to the configuration file")
	applyCmd.Flags().BoolVar(&skipConfirm, "yes", false, "Apply without asking for confirmation")
	applyCmd.Flags().BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	applyCmd.MarkFlagRequired("config")

	statusCmd.Flags().StringVar(&configPath, "config", "", "Path to the configuration file")
	statusCmd.Flags().BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	statusCmd.MarkFlagRequired("config")

	snapshotCmd.Flags().StringVar(&configPath, "config", "", "Path to the configuration file")
	snapshotCmd.Flags().StringVar(&schemaName, "schema-name", "public", "Database schema to introspect")
	snapshotCmd.Flags().BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	snapshotCmd.MarkFlagRequired("config")

	pingCmd.Flags().StringVar(&configPath, "config", "", "Path to the configuration file")
	pingCmd.Flags().BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	pingCmd.MarkFlagRequired("config")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(pingCmd)

	cobra.OnInitialize(func() {
		rootCmd.SilenceUsage = true
		rootCmd.SilenceErrors = true
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("cannot load config: %w", err)
	}

	return migrationService.Generate(cfg, schemaPath, description, verbose)
}

func runApply(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("cannot load config: %w", err)
	}

	return migrationService.Apply(cfg, skipConfirm, verbose)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("cannot load config: %w", err)
	}

	return migrationService.Status(cfg, verbose)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("cannot load config: %w", err)
	}

	return migrationService.Snapshot(cfg, schemaName, verbose)
}

func runPing(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("cannot load config: %w", err)
	}

	return migrationService.Ping(cfg, verbose)
}

func printBanner() {
	fmt.Print(asciiBanner)
	fmt.Println(appName)
	fmt.Println(strings.Repeat("-", len(appName)))
}
