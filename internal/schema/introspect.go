package schema

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/kadirbelkuyu/DBSMT/internal/database"
	"github.com/kadirbelkuyu/DBSMT/pkg/logger"
)

// Introspector reads the structure of a live PostgreSQL database and turns it
// into a snapshot the differ can consume.
type Introspector struct {
	conn   *database.Connection
	logger *logger.Logger
}

func NewIntrospector(conn *database.Connection, logger *logger.Logger) *Introspector {
	return &Introspector{
		conn:   conn,
		logger: logger,
	}
}

// Snapshot captures all tables in the given schema, skipping any table whose
// name appears in exclude (the migration ledger, typically).
func (in *Introspector) Snapshot(schemaName string, exclude ...string) (*Snapshot, error) {
	if in.conn.Config.Database.Type != "postgres" {
		return nil, fmt.Errorf("schema introspection is only supported for postgres, got %s", in.conn.Config.Database.Type)
	}
	if schemaName == "" {
		schemaName = "public"
	}

	in.logger.Infof("Introspecting schema %s...", schemaName)

	excluded := make(map[string]struct{}, len(exclude))
	for _, name := range exclude {
		excluded[name] = struct{}{}
	}

	query := `
		SELECT t.table_name
		FROM information_schema.tables t
		WHERE t.table_type = 'BASE TABLE'
		AND t.table_schema = $1
		ORDER BY t.table_name
	`

	rows, err := in.conn.DB.Query(query, schemaName)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to read table metadata: %w", err)
		}
		if _, skip := excluded[name]; skip {
			continue
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read table metadata: %w", err)
	}

	snap := NewSnapshot()
	for _, name := range names {
		table := Table{Name: name}
		if err := in.readColumns(schemaName, &table); err != nil {
			return nil, fmt.Errorf("failed to gather columns for %s: %w", name, err)
		}
		if err := in.readPrimaryKeys(schemaName, &table); err != nil {
			return nil, fmt.Errorf("failed to gather primary keys for %s: %w", name, err)
		}
		if err := in.readIndexes(schemaName, &table); err != nil {
			return nil, fmt.Errorf("failed to gather indexes for %s: %w", name, err)
		}
		if err := in.readForeignKeys(schemaName, &table); err != nil {
			return nil, fmt.Errorf("failed to gather foreign keys for %s: %w", name, err)
		}
		snap.AddTable(table)
	}

	in.logger.Infof("%d tables introspected", len(snap.Tables))
	return snap, nil
}

func (in *Introspector) readColumns(schemaName string, table *Table) error {
	query := `
		SELECT
			column_name,
			data_type,
			is_nullable,
			column_default,
			character_maximum_length
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`

	rows, err := in.conn.DB.Query(query, schemaName, table.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			col          Column
			dataType     string
			isNullable   string
			defaultValue sql.NullString
			maxLength    sql.NullInt64
		)

		if err := rows.Scan(&col.Name, &dataType, &isNullable, &defaultValue, &maxLength); err != nil {
			return err
		}

		col.Type = neutralType(dataType, maxLength)
		col.Nullable = isNullable == "YES"

		if defaultValue.Valid {
			if strings.HasPrefix(defaultValue.String, "nextval(") {
				col.AutoIncrement = true
			} else {
				value := defaultValue.String
				col.Default = &value
			}
		}

		table.Columns = append(table.Columns, col)
	}

	return rows.Err()
}

func (in *Introspector) readPrimaryKeys(schemaName string, table *Table) error {
	query := `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
		AND tc.table_schema = $1 AND tc.table_name = $2
		ORDER BY kcu.ordinal_position
	`

	rows, err := in.conn.DB.Query(query, schemaName, table.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var columnName string
		if err := rows.Scan(&columnName); err != nil {
			return err
		}
		for i := range table.Columns {
			if table.Columns[i].Name == columnName {
				table.Columns[i].PrimaryKey = true
				table.Columns[i].Nullable = false
			}
		}
	}

	return rows.Err()
}

func (in *Introspector) readIndexes(schemaName string, table *Table) error {
	query := `
		SELECT
			i.indexname,
			pg_get_indexdef(ix.indexrelid) AS indexdef,
			ix.indisunique,
			ix.indisprimary
		FROM pg_indexes i
		JOIN pg_index ix ON ix.indexrelid = (
			SELECT oid FROM pg_class WHERE relname = i.indexname
		)
		WHERE i.schemaname = $1 AND i.tablename = $2
		ORDER BY i.indexname
	`

	rows, err := in.conn.DB.Query(query, schemaName, table.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			idx       Index
			indexDef  string
			isPrimary bool
		)
		if err := rows.Scan(&idx.Name, &indexDef, &idx.Unique, &isPrimary); err != nil {
			return err
		}
		if isPrimary {
			continue
		}

		idx.Columns = parseIndexColumns(indexDef)
		table.Indexes = append(table.Indexes, idx)
	}

	return rows.Err()
}

func (in *Introspector) readForeignKeys(schemaName string, table *Table) error {
	query := `
		SELECT
			tc.constraint_name,
			kcu.column_name,
			ccu.table_name AS foreign_table_name,
			ccu.column_name AS foreign_column_name,
			rc.delete_rule,
			rc.update_rule
		FROM information_schema.table_constraints AS tc
		JOIN information_schema.key_column_usage AS kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage AS ccu
			ON ccu.constraint_name = tc.constraint_name
			AND ccu.table_schema = tc.table_schema
		JOIN information_schema.referential_constraints AS rc
			ON tc.constraint_name = rc.constraint_name
			AND tc.table_schema = rc.constraint_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		AND tc.table_schema = $1 AND tc.table_name = $2
		ORDER BY tc.constraint_name, kcu.ordinal_position
	`

	rows, err := in.conn.DB.Query(query, schemaName, table.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	var order []string
	grouped := make(map[string]*ForeignKey)

	for rows.Next() {
		var name, column, refTable, refColumn, onDelete, onUpdate string
		if err := rows.Scan(&name, &column, &refTable, &refColumn, &onDelete, &onUpdate); err != nil {
			return err
		}

		fk, ok := grouped[name]
		if !ok {
			fk = &ForeignKey{
				Name:            name,
				ReferencedTable: refTable,
				OnDelete:        normalizeAction(onDelete),
				OnUpdate:        normalizeAction(onUpdate),
			}
			grouped[name] = fk
			order = append(order, name)
		}
		fk.Columns = append(fk.Columns, column)
		fk.ReferencedColumns = append(fk.ReferencedColumns, refColumn)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, name := range order {
		table.ForeignKeys = append(table.ForeignKeys, *grouped[name])
	}

	return nil
}

func neutralType(dataType string, maxLength sql.NullInt64) string {
	switch strings.ToLower(dataType) {
	case "character varying", "varchar":
		if maxLength.Valid {
			return fmt.Sprintf("VARCHAR(%d)", maxLength.Int64)
		}
		return "VARCHAR"
	case "character", "char":
		if maxLength.Valid {
			return fmt.Sprintf("CHAR(%d)", maxLength.Int64)
		}
		return "CHAR"
	case "integer":
		return "INTEGER"
	case "timestamp without time zone":
		return "TIMESTAMP"
	case "timestamp with time zone":
		return "TIMESTAMPTZ"
	case "time without time zone":
		return "TIME"
	case "double precision":
		return "DOUBLE PRECISION"
	default:
		return strings.ToUpper(dataType)
	}
}

func parseIndexColumns(indexDef string) []string {
	start := strings.Index(indexDef, "(")
	end := strings.LastIndex(indexDef, ")")
	if start == -1 || end == -1 || end <= start {
		return nil
	}

	columns := strings.Split(indexDef[start+1:end], ",")
	for i, col := range columns {
		columns[i] = strings.TrimSpace(col)
	}
	return columns
}

func normalizeAction(action string) string {
	action = strings.ToUpper(strings.TrimSpace(action))
	if action == "NO ACTION" {
		return ""
	}
	return action
}
