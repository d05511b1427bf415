package app_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kadirbelkuyu/DBSMT/internal/app"
	"github.com/kadirbelkuyu/DBSMT/internal/config"
	"github.com/kadirbelkuyu/DBSMT/internal/schema"
)

const shopSchema = `
tables:
  users:
    columns:
      - name: id
        type: INTEGER
        primary_key: true
        auto_increment: true
      - name: email
        type: VARCHAR(100)
        nullable: false
        unique: true
    indexes:
      - name: idx_users_email
        columns: [email]
        unique: true
  orders:
    columns:
      - name: id
        type: INTEGER
        primary_key: true
        auto_increment: true
      - name: user_id
        type: INTEGER
        nullable: false
    foreign_keys:
      - name: fk_orders_user
        columns: [user_id]
        referenced_table: users
        referenced_columns: [id]
        on_delete: CASCADE
`

const shopSchemaWithStatus = `
tables:
  users:
    columns:
      - name: id
        type: INTEGER
        primary_key: true
        auto_increment: true
      - name: email
        type: VARCHAR(100)
        nullable: false
        unique: true
    indexes:
      - name: idx_users_email
        columns: [email]
        unique: true
  orders:
    columns:
      - name: id
        type: INTEGER
        primary_key: true
        auto_increment: true
      - name: user_id
        type: INTEGER
        nullable: false
      - name: status
        type: VARCHAR(20)
    foreign_keys:
      - name: fk_orders_user
        columns: [user_id]
        referenced_table: users
        referenced_columns: [id]
        on_delete: CASCADE
`

func startPostgres(t *testing.T) *config.Config {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute)),
	)
	if err != nil {
		t.Skipf("docker not available, skipping integration test: %v", err)
	}
	t.Cleanup(func() { container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dir := t.TempDir()
	return &config.Config{
		Database: config.DatabaseConfig{
			Type:     "postgres",
			Host:     host,
			Port:     port.Int(),
			Database: "testdb",
			Username: "testuser",
			Password: "testpass",
			SSLMode:  "disable",
		},
		Migrations: config.MigrationsConfig{
			Directory:   filepath.Join(dir, "migrations"),
			SnapshotDir: filepath.Join(dir, "migrations", "meta"),
			Table:       "dbsmt_migrations",
		},
	}
}

func TestGenerateApplyPipelineAgainstPostgres(t *testing.T) {
	cfg := startPostgres(t)
	service := app.NewService()
	schemaDir := t.TempDir()

	schemaPath := filepath.Join(schemaDir, "schema.yaml")
	require.NoError(t, os.WriteFile(schemaPath, []byte(shopSchema), 0o644))

	require.NoError(t, service.Generate(cfg, schemaPath, "init shop", false))
	require.NoError(t, service.Apply(cfg, true, false))

	db, err := sql.Open("postgres", cfg.GetConnectionString())
	require.NoError(t, err)
	defer db.Close()

	// The migrated schema is live: FK and unique index are enforced.
	_, err = db.Exec("INSERT INTO users (email) VALUES ('ada@example.com')")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO orders (user_id) VALUES (1)")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO orders (user_id) VALUES (999)")
	require.Error(t, err, "foreign key to a missing user must be rejected")
	_, err = db.Exec("INSERT INTO users (email) VALUES ('ada@example.com')")
	require.Error(t, err, "duplicate email must violate the unique index")

	var applied int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM dbsmt_migrations").Scan(&applied))
	assert.Equal(t, 1, applied)

	// Second revision: add a column, diffed against the recorded snapshot.
	require.NoError(t, os.WriteFile(schemaPath, []byte(shopSchemaWithStatus), 0o644))
	require.NoError(t, service.Generate(cfg, schemaPath, "add order status", false))
	require.NoError(t, service.Apply(cfg, true, false))

	_, err = db.Exec("UPDATE orders SET status = 'shipped' WHERE user_id = 1")
	require.NoError(t, err)

	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM dbsmt_migrations").Scan(&applied))
	assert.Equal(t, 2, applied)

	require.NoError(t, service.Status(cfg, false))
	require.NoError(t, service.Ping(cfg, false))
}

func TestSnapshotIntrospectsLiveDatabase(t *testing.T) {
	cfg := startPostgres(t)
	service := app.NewService()
	schemaDir := t.TempDir()

	schemaPath := filepath.Join(schemaDir, "schema.yaml")
	require.NoError(t, os.WriteFile(schemaPath, []byte(shopSchema), 0o644))
	require.NoError(t, service.Generate(cfg, schemaPath, "init shop", false))
	require.NoError(t, service.Apply(cfg, true, false))

	// Wipe the local snapshot history, then rebuild it from the live database.
	require.NoError(t, os.RemoveAll(cfg.Migrations.SnapshotDir))
	require.NoError(t, service.Snapshot(cfg, "public", false))

	history := schema.NewHistory(cfg.Migrations.SnapshotDir)
	snap, err := history.Latest()
	require.NoError(t, err)
	require.NotNil(t, snap)

	assert.Contains(t, snap.Tables, "users")
	assert.Contains(t, snap.Tables, "orders")
	assert.NotContains(t, snap.Tables, "dbsmt_migrations", "the ledger table is excluded from snapshots")

	orders := snap.Tables["orders"]
	require.Len(t, orders.ForeignKeys, 1)
	assert.Equal(t, "users", orders.ForeignKeys[0].ReferencedTable)
	assert.Equal(t, "CASCADE", orders.ForeignKeys[0].OnDelete)

	users := snap.Tables["users"]
	id, ok := users.FindColumn("id")
	require.True(t, ok)
	assert.True(t, id.PrimaryKey)
	assert.True(t, id.AutoIncrement)
}
