package schema_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirbelkuyu/DBSMT/internal/schema"
)

func writeSchemaFile(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefinition(t *testing.T) {
	path := writeSchemaFile(t, `
tables:
  users:
    columns:
      - name: id
        type: INTEGER
        primary_key: true
        auto_increment: true
      - name: email
        type: VARCHAR(100)
        unique: true
        nullable: false
      - name: bio
        type: TEXT
    indexes:
      - name: idx_users_email
        columns: [email]
        unique: true
  orders:
    columns:
      - name: id
        type: INTEGER
        primary_key: true
      - name: user_id
        type: INTEGER
        nullable: false
    foreign_keys:
      - name: fk_orders_user
        columns: [user_id]
        referenced_table: users
        referenced_columns: [id]
        on_delete: CASCADE
`)

	snap, err := schema.LoadDefinition(path)
	require.NoError(t, err)
	require.Len(t, snap.Tables, 2)

	users := snap.Tables["users"]
	require.Len(t, users.Columns, 3)

	id, ok := users.FindColumn("id")
	require.True(t, ok)
	assert.True(t, id.PrimaryKey)
	assert.True(t, id.AutoIncrement)
	assert.False(t, id.Nullable, "primary key columns default to not nullable")

	email, ok := users.FindColumn("email")
	require.True(t, ok)
	assert.True(t, email.Unique)
	assert.False(t, email.Nullable, "explicit nullable: false wins")

	bio, ok := users.FindColumn("bio")
	require.True(t, ok)
	assert.True(t, bio.Nullable, "plain columns default to nullable")

	require.Len(t, users.Indexes, 1)
	assert.True(t, users.Indexes[0].Unique)

	orders := snap.Tables["orders"]
	require.Len(t, orders.ForeignKeys, 1)
	fk := orders.ForeignKeys[0]
	assert.Equal(t, "users", fk.ReferencedTable)
	assert.Equal(t, "CASCADE", fk.OnDelete)
}

func TestLoadDefinitionRejectsDuplicateColumns(t *testing.T) {
	path := writeSchemaFile(t, `
tables:
  users:
    columns:
      - name: id
        type: INTEGER
      - name: id
        type: BIGINT
`)

	_, err := schema.LoadDefinition(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "more than once")
}

func TestLoadDefinitionRejectsEmptyTable(t *testing.T) {
	path := writeSchemaFile(t, `
tables:
  users:
    columns: []
`)

	_, err := schema.LoadDefinition(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns")
}

func TestLoadDefinitionRejectsMissingType(t *testing.T) {
	path := writeSchemaFile(t, `
tables:
  users:
    columns:
      - name: id
`)

	_, err := schema.LoadDefinition(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no type")
}

func TestLoadDefinitionRejectsForeignKeyArityMismatch(t *testing.T) {
	path := writeSchemaFile(t, `
tables:
  orders:
    columns:
      - name: id
        type: INTEGER
    foreign_keys:
      - columns: [user_id, region_id]
        referenced_table: users
        referenced_columns: [id]
`)

	_, err := schema.LoadDefinition(path)
	require.Error(t, err)
}

func TestLoadDefinitionMissingFile(t *testing.T) {
	_, err := schema.LoadDefinition(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read schema file")
}
