package apply

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/kadirbelkuyu/DBSMT/internal/sqlgen"
	"github.com/kadirbelkuyu/DBSMT/internal/store"
	"github.com/kadirbelkuyu/DBSMT/pkg/logger"
)

const DefaultLedgerTable = "dbsmt_migrations"

// Applier owns the applied-migrations ledger inside the target database and
// executes pending migrations against it, one transaction per file.
type Applier struct {
	db      *sql.DB
	dialect sqlgen.Dialect
	table   string
	logger  *logger.Logger
}

func NewApplier(db *sql.DB, dialect sqlgen.Dialect, table string, logger *logger.Logger) *Applier {
	if strings.TrimSpace(table) == "" {
		table = DefaultLedgerTable
	}
	return &Applier{
		db:      db,
		dialect: dialect,
		table:   table,
		logger:  logger,
	}
}

// EnsureLedger creates the ledger table when absent. If creation fails but a
// bounded read succeeds the table already exists and the error is swallowed;
// when both fail the creation error is surfaced.
func (a *Applier) EnsureLedger() error {
	if _, err := a.db.Exec(a.ledgerDDL()); err != nil {
		if verifyErr := a.verifyLedger(); verifyErr != nil {
			return fmt.Errorf("failed to initialize ledger table %s: %w", a.table, err)
		}
		a.logger.Debugf("Ledger table %s already exists", a.table)
	}
	return nil
}

func (a *Applier) ledgerDDL() string {
	name := quoteIdent(a.table, a.dialect)

	switch a.dialect {
	case sqlgen.MySQL:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id INT AUTO_INCREMENT PRIMARY KEY,
			filename VARCHAR(255) NOT NULL UNIQUE,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`, name)
	case sqlgen.SQLite:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			filename TEXT NOT NULL UNIQUE,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`, name)
	default:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id SERIAL PRIMARY KEY,
			filename VARCHAR(255) NOT NULL UNIQUE,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`, name)
	}
}

func (a *Applier) verifyLedger() error {
	query := fmt.Sprintf("SELECT filename FROM %s LIMIT 1", quoteIdent(a.table, a.dialect))

	var filename string
	err := a.db.QueryRow(query).Scan(&filename)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}

// Apply runs one pending migration inside a single transaction and records it
// in the ledger. Any statement failure rolls everything back, so retrying
// re-attempts the file from its first statement.
func (a *Applier) Apply(migration store.PendingMigration) error {
	statements := splitStatements(migration.SQL)

	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for %s: %w", migration.Filename, err)
	}
	defer tx.Rollback()

	for _, stmt := range statements {
		a.logger.Debugf("Executing: %s", stmt)
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("migration %s failed: %w", migration.Filename, err)
		}
	}

	insert := fmt.Sprintf(
		"INSERT INTO %s (filename) VALUES (%s)",
		quoteIdent(a.table, a.dialect),
		a.placeholder(1),
	)
	if _, err := tx.Exec(insert, migration.Filename); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", migration.Filename, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", migration.Filename, err)
	}

	return nil
}

// Applied returns all ledger filenames ordered by filename, which matches the
// store's numeric ordering for well-formed names.
func (a *Applier) Applied() ([]string, error) {
	query := fmt.Sprintf("SELECT filename FROM %s ORDER BY filename", quoteIdent(a.table, a.dialect))

	rows, err := a.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	var applied []string
	for rows.Next() {
		var filename string
		if err := rows.Scan(&filename); err != nil {
			return nil, fmt.Errorf("failed to read ledger row: %w", err)
		}
		applied = append(applied, filename)
	}

	return applied, rows.Err()
}

// TestConnection issues a trivial read without touching the ledger.
func (a *Applier) TestConnection() error {
	var one int
	if err := a.db.QueryRow("SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

type Info struct {
	Dialect string
	Version string
}

// DatabaseInfo reports the server version for diagnostics.
func (a *Applier) DatabaseInfo() (Info, error) {
	var query string
	switch a.dialect {
	case sqlgen.MySQL:
		query = "SELECT VERSION()"
	case sqlgen.SQLite:
		query = "SELECT sqlite_version()"
	default:
		query = "SELECT version()"
	}

	var version string
	if err := a.db.QueryRow(query).Scan(&version); err != nil {
		return Info{}, fmt.Errorf("failed to query database version: %w", err)
	}

	return Info{
		Dialect: string(a.dialect),
		Version: version,
	}, nil
}

func (a *Applier) placeholder(n int) string {
	if a.dialect == sqlgen.Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func quoteIdent(name string, dialect sqlgen.Dialect) string {
	if dialect == sqlgen.MySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
