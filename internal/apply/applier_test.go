package apply_test

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/kadirbelkuyu/DBSMT/internal/apply"
	"github.com/kadirbelkuyu/DBSMT/internal/sqlgen"
	"github.com/kadirbelkuyu/DBSMT/internal/store"
	"github.com/kadirbelkuyu/DBSMT/pkg/logger"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// The in-memory database lives per connection; a pool of one keeps every
	// statement on the same database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	return db
}

func newTestApplier(t *testing.T, db *sql.DB) *apply.Applier {
	t.Helper()
	return apply.NewApplier(db, sqlgen.SQLite, "dbsmt_migrations", logger.NewLogger(false))
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&count))
	return count
}

func TestEnsureLedgerCreatesTable(t *testing.T) {
	db := openTestDB(t)
	applier := newTestApplier(t, db)

	require.NoError(t, applier.EnsureLedger())

	applied, err := applier.Applied()
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestEnsureLedgerIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	applier := newTestApplier(t, db)

	require.NoError(t, applier.EnsureLedger())
	require.NoError(t, applier.EnsureLedger())
}

func TestApplyRecordsLedgerRow(t *testing.T) {
	db := openTestDB(t)
	applier := newTestApplier(t, db)
	require.NoError(t, applier.EnsureLedger())

	migration := store.PendingMigration{
		Filename: "0001_init.sql",
		SQL:      "-- create_table users\nCREATE TABLE users (\n    id INTEGER PRIMARY KEY,\n    name VARCHAR(50) NOT NULL\n);\n",
	}

	require.NoError(t, applier.Apply(migration))

	applied, err := applier.Applied()
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_init.sql"}, applied)

	// The created table is usable.
	_, err = db.Exec("INSERT INTO users (id, name) VALUES (1, 'ada')")
	require.NoError(t, err)
}

func TestApplyExecutesStatementsInOrder(t *testing.T) {
	db := openTestDB(t)
	applier := newTestApplier(t, db)
	require.NoError(t, applier.EnsureLedger())

	migration := store.PendingMigration{
		Filename: "0001_init.sql",
		SQL: "CREATE TABLE users (id INTEGER PRIMARY KEY);\n" +
			"INSERT INTO users (id) VALUES (1);\n" +
			"INSERT INTO users (id) VALUES (2);\n",
	}

	require.NoError(t, applier.Apply(migration))
	assert.Equal(t, 2, countRows(t, db, "users"))
}

func TestApplyRollsBackOnFailure(t *testing.T) {
	db := openTestDB(t)
	applier := newTestApplier(t, db)
	require.NoError(t, applier.EnsureLedger())

	_, err := db.Exec("CREATE TABLE users (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)

	migration := store.PendingMigration{
		Filename: "0002_bad.sql",
		SQL: "INSERT INTO users (id) VALUES (1);\n" +
			"INSERT INTO no_such_table (id) VALUES (1);\n",
	}

	err = applier.Apply(migration)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0002_bad.sql")

	// The successful first statement must not survive the failed file.
	assert.Equal(t, 0, countRows(t, db, "users"))

	applied, appliedErr := applier.Applied()
	require.NoError(t, appliedErr)
	assert.Empty(t, applied)
}

func TestApplyRetryAfterFailureStartsFromFirstStatement(t *testing.T) {
	db := openTestDB(t)
	applier := newTestApplier(t, db)
	require.NoError(t, applier.EnsureLedger())

	_, err := db.Exec("CREATE TABLE users (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)

	bad := store.PendingMigration{
		Filename: "0002_bad.sql",
		SQL:      "INSERT INTO users (id) VALUES (1);\nINSERT INTO no_such_table (id) VALUES (1);\n",
	}
	require.Error(t, applier.Apply(bad))

	fixed := store.PendingMigration{
		Filename: "0002_bad.sql",
		SQL:      "INSERT INTO users (id) VALUES (1);\nINSERT INTO users (id) VALUES (2);\n",
	}
	require.NoError(t, applier.Apply(fixed))

	assert.Equal(t, 2, countRows(t, db, "users"))
}

func TestApplyDuplicateFilenameFailsOnLedgerConstraint(t *testing.T) {
	db := openTestDB(t)
	applier := newTestApplier(t, db)
	require.NoError(t, applier.EnsureLedger())

	migration := store.PendingMigration{
		Filename: "0001_init.sql",
		SQL:      "CREATE TABLE users (id INTEGER PRIMARY KEY);\n",
	}
	require.NoError(t, applier.Apply(migration))

	again := store.PendingMigration{
		Filename: "0001_init.sql",
		SQL:      "CREATE TABLE teams (id INTEGER PRIMARY KEY);\n",
	}
	err := applier.Apply(again)
	require.Error(t, err)

	// The racing file's statements were rolled back with the ledger insert.
	_, err = db.Exec("SELECT COUNT(*) FROM teams")
	require.Error(t, err)
}

func TestAppliedOrderedByFilename(t *testing.T) {
	db := openTestDB(t)
	applier := newTestApplier(t, db)
	require.NoError(t, applier.EnsureLedger())

	for _, filename := range []string{"0002_second.sql", "0001_first.sql", "0003_third.sql"} {
		require.NoError(t, applier.Apply(store.PendingMigration{
			Filename: filename,
			SQL:      "SELECT 1;\n",
		}))
	}

	applied, err := applier.Applied()
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_first.sql", "0002_second.sql", "0003_third.sql"}, applied)
}

func TestTestConnection(t *testing.T) {
	db := openTestDB(t)
	applier := newTestApplier(t, db)

	require.NoError(t, applier.TestConnection())
}

func TestDatabaseInfo(t *testing.T) {
	db := openTestDB(t)
	applier := newTestApplier(t, db)

	info, err := applier.DatabaseInfo()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", info.Dialect)
	assert.NotEmpty(t, info.Version)
}
