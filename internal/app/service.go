package app

import (
	"fmt"

	"github.com/kadirbelkuyu/DBSMT/internal/apply"
	"github.com/kadirbelkuyu/DBSMT/internal/config"
	"github.com/kadirbelkuyu/DBSMT/internal/database"
	"github.com/kadirbelkuyu/DBSMT/internal/diff"
	"github.com/kadirbelkuyu/DBSMT/internal/schema"
	"github.com/kadirbelkuyu/DBSMT/internal/sqlgen"
	"github.com/kadirbelkuyu/DBSMT/internal/store"
	"github.com/kadirbelkuyu/DBSMT/pkg/interactive"
	"github.com/kadirbelkuyu/DBSMT/pkg/logger"
	"github.com/kadirbelkuyu/DBSMT/pkg/progress"
)

type Service struct{}

func NewService() *Service {
	return &Service{}
}

// Generate diffs the declared schema against the last recorded snapshot,
// writes the resulting SQL as a new numbered migration, and records the new
// snapshot. Runs entirely offline.
func (s *Service) Generate(cfg *config.Config, schemaPath, description string, verboseFlag bool) error {
	log := logger.NewLogger(verboseFlag)

	dialect, err := sqlgen.ParseDialect(cfg.Database.Type)
	if err != nil {
		return err
	}

	desired, err := schema.LoadDefinition(schemaPath)
	if err != nil {
		return fmt.Errorf("failed to load schema definition: %w", err)
	}

	history := schema.NewHistory(cfg.Migrations.SnapshotDir)
	current, err := history.Latest()
	if err != nil {
		return fmt.Errorf("failed to load previous snapshot: %w", err)
	}
	if current == nil {
		log.Info("No previous snapshot found; generating initial migration.")
	}

	operations := diff.DetectChanges(current, desired)
	if len(operations) == 0 {
		log.Info("No schema changes detected.")
		return nil
	}

	script := sqlgen.Script(operations, dialect)

	migrationStore := store.NewStore(cfg.Migrations.Directory)
	file, err := migrationStore.Save(description, script)
	if err != nil {
		return fmt.Errorf("failed to save migration: %w", err)
	}

	if _, err := history.Save(*desired); err != nil {
		return fmt.Errorf("failed to record schema snapshot: %w", err)
	}

	fmt.Println()
	fmt.Printf("Generated %s with %d operations:\n", file.Filename, len(operations))
	for _, op := range operations {
		fmt.Printf("  - %s\n", op)
	}

	log.Infof("Migration written to %s", file.Path)
	return nil
}

// Apply executes every pending migration against the configured database,
// asking for confirmation first unless skipConfirm is set.
func (s *Service) Apply(cfg *config.Config, skipConfirm, verboseFlag bool) error {
	log := logger.NewLogger(verboseFlag)

	dialect, err := sqlgen.ParseDialect(cfg.Database.Type)
	if err != nil {
		return err
	}

	conn, err := database.NewConnection(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close()

	applier := apply.NewApplier(conn.DB, dialect, cfg.Migrations.Table, log)
	if err := applier.EnsureLedger(); err != nil {
		return err
	}

	applied, err := applier.Applied()
	if err != nil {
		return err
	}

	migrationStore := store.NewStore(cfg.Migrations.Directory)
	pending, err := migrationStore.Pending(applied)
	if err != nil {
		return err
	}

	if len(pending) == 0 {
		log.Info("No pending migrations.")
		return nil
	}

	fmt.Println()
	fmt.Printf("Pending migrations (%d):\n", len(pending))
	for _, migration := range pending {
		fmt.Printf("  %s\n", migration.Filename)
	}

	if !skipConfirm {
		prompter := interactive.NewPrompter()
		target := fmt.Sprintf("database '%s'", conn.GetDatabaseName())
		if !prompter.ConfirmAction("apply", target) {
			log.Info("Operation cancelled by user.")
			return nil
		}
	}

	bar := progress.NewBar(int64(len(pending)), "Applying migrations")
	for _, migration := range pending {
		if err := applier.Apply(migration); err != nil {
			fmt.Println()
			return err
		}
		bar.Increment()
	}
	bar.Finish()

	log.Infof("%d migrations applied successfully", len(pending))
	return nil
}

// Status reports which migrations have been applied and which are still
// pending, without mutating anything beyond ledger creation.
func (s *Service) Status(cfg *config.Config, verboseFlag bool) error {
	log := logger.NewLogger(verboseFlag)

	dialect, err := sqlgen.ParseDialect(cfg.Database.Type)
	if err != nil {
		return err
	}

	conn, err := database.NewConnection(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close()

	applier := apply.NewApplier(conn.DB, dialect, cfg.Migrations.Table, log)
	if err := applier.EnsureLedger(); err != nil {
		return err
	}

	applied, err := applier.Applied()
	if err != nil {
		return err
	}

	migrationStore := store.NewStore(cfg.Migrations.Directory)
	pending, err := migrationStore.Pending(applied)
	if err != nil {
		return err
	}

	fmt.Printf("Migration directory: %s\n", migrationStore.Directory())
	fmt.Printf("Ledger table: %s\n", cfg.Migrations.Table)

	fmt.Println()
	fmt.Printf("Applied migrations (%d):\n", len(applied))
	if len(applied) == 0 {
		fmt.Println("  (none)")
	}
	for _, filename := range applied {
		fmt.Printf("  %s\n", filename)
	}

	fmt.Println()
	fmt.Printf("Pending migrations (%d):\n", len(pending))
	if len(pending) == 0 {
		fmt.Println("  (none)")
	}
	for _, migration := range pending {
		fmt.Printf("  %s\n", migration.Filename)
	}

	return nil
}

// Snapshot introspects the live database and records the result as the
// latest schema snapshot.
func (s *Service) Snapshot(cfg *config.Config, schemaName string, verboseFlag bool) error {
	log := logger.NewLogger(verboseFlag)

	conn, err := database.NewConnection(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close()

	introspector := schema.NewIntrospector(conn, log)
	snap, err := introspector.Snapshot(schemaName, cfg.Migrations.Table)
	if err != nil {
		return err
	}

	history := schema.NewHistory(cfg.Migrations.SnapshotDir)
	path, err := history.Save(*snap)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	log.Infof("Snapshot of %d tables saved to %s", len(snap.Tables), path)
	return nil
}

// Ping verifies connectivity and prints server details.
func (s *Service) Ping(cfg *config.Config, verboseFlag bool) error {
	log := logger.NewLogger(verboseFlag)

	dialect, err := sqlgen.ParseDialect(cfg.Database.Type)
	if err != nil {
		return err
	}

	conn, err := database.NewConnection(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close()

	applier := apply.NewApplier(conn.DB, dialect, cfg.Migrations.Table, log)
	if err := applier.TestConnection(); err != nil {
		return err
	}

	info, err := applier.DatabaseInfo()
	if err != nil {
		return err
	}

	fmt.Printf("Connected to %s\n", conn.GetDatabaseName())
	fmt.Printf("Dialect: %s\n", info.Dialect)
	fmt.Printf("Version: %s\n", info.Version)

	return nil
}
