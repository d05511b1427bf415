package sqlgen

import (
	"fmt"
	"strings"

	"github.com/kadirbelkuyu/DBSMT/internal/diff"
	"github.com/kadirbelkuyu/DBSMT/internal/schema"
)

// Result is the outcome of rendering one operation. Exactly one field is set:
// Statement holds executable SQL without the trailing terminator, Diagnostic
// holds a comment block explaining why the change could not be expressed.
type Result struct {
	Statement  string
	Diagnostic string
}

// Render translates a single operation into SQL for the given dialect. It
// never fails: operations that have no portable or dialect-legal translation
// come back as a diagnostic comment so the script stays reviewable.
func Render(op diff.Operation, dialect Dialect) Result {
	switch op.Kind {
	case diff.CreateTable:
		return renderCreateTable(op, dialect)
	case diff.DropTable:
		return Result{Statement: fmt.Sprintf("DROP TABLE %s", op.Table)}
	case diff.AddColumn:
		return renderAddColumn(op, dialect)
	case diff.DropColumn:
		return Result{Statement: fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", op.Table, op.Object)}
	case diff.AlterColumn:
		return renderAlterColumn(op)
	case diff.CreateIndex:
		return renderCreateIndex(op)
	case diff.DropIndex:
		return renderDropIndex(op, dialect)
	case diff.AddForeignKey:
		return renderAddForeignKey(op, dialect)
	case diff.DropForeignKey:
		return renderDropForeignKey(op, dialect)
	default:
		return diagnostic(fmt.Sprintf("unknown operation kind %q", op.Kind))
	}
}

// Script renders all operations in order into one reviewable SQL script. Each
// block starts with a comment restating the operation, followed by either the
// terminated statement or the diagnostic explaining the omission. Blocks are
// separated by a blank line.
func Script(ops []diff.Operation, dialect Dialect) string {
	if len(ops) == 0 {
		return ""
	}

	blocks := make([]string, 0, len(ops))
	for _, op := range ops {
		res := Render(op, dialect)

		var b strings.Builder
		fmt.Fprintf(&b, "-- %s\n", op)
		if res.Statement != "" {
			b.WriteString(res.Statement)
			b.WriteString(";")
		} else {
			b.WriteString(res.Diagnostic)
		}
		blocks = append(blocks, b.String())
	}

	return strings.Join(blocks, "\n\n") + "\n"
}

func renderCreateTable(op diff.Operation, dialect Dialect) Result {
	table := op.NewTable
	if table == nil {
		return diagnostic("create_table operation carries no table definition")
	}

	primaryKeys := table.PrimaryKeyColumns()
	inlinePK := len(primaryKeys) == 1

	defs := make([]string, 0, len(table.Columns)+1)
	for _, col := range table.Columns {
		defs = append(defs, columnDef(col, dialect, inlinePK))
	}

	if len(primaryKeys) > 1 {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(primaryKeys, ", ")))
	}

	stmt := fmt.Sprintf("CREATE TABLE %s (\n    %s\n)", table.Name, strings.Join(defs, ",\n    "))
	return Result{Statement: stmt}
}

func renderAddColumn(op diff.Operation, dialect Dialect) Result {
	col := op.NewColumn
	if col == nil {
		return diagnostic("add_column operation carries no column definition")
	}
	if col.PrimaryKey && dialect == SQLite {
		return diagnostic(
			"sqlite cannot add a primary key column to an existing table",
			"intended: "+describeColumn(*col),
		)
	}

	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", op.Table, columnDef(*col, dialect, true))
	return Result{Statement: stmt}
}

func renderAlterColumn(op diff.Operation) Result {
	if op.OldColumn == nil || op.NewColumn == nil {
		return diagnostic("alter_column operation is missing a definition")
	}
	return diagnostic(
		"column changes are not expressed as portable SQL; apply manually",
		"old: "+describeColumn(*op.OldColumn),
		"new: "+describeColumn(*op.NewColumn),
	)
}

func renderCreateIndex(op diff.Operation) Result {
	idx := op.NewIndex
	if idx == nil {
		return diagnostic("create_index operation carries no index definition")
	}

	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	stmt := fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)", unique, idx.Name, op.Table, strings.Join(idx.Columns, ", "))
	return Result{Statement: stmt}
}

func renderDropIndex(op diff.Operation, dialect Dialect) Result {
	if dialect == MySQL {
		return Result{Statement: fmt.Sprintf("DROP INDEX %s ON %s", op.Object, op.Table)}
	}
	return Result{Statement: fmt.Sprintf("DROP INDEX %s", op.Object)}
}

func renderAddForeignKey(op diff.Operation, dialect Dialect) Result {
	fk := op.NewForeignKey
	if fk == nil {
		return diagnostic("add_foreign_key operation carries no constraint definition")
	}
	if dialect == SQLite {
		return diagnostic(
			"sqlite cannot add a foreign key to an existing table",
			"intended: "+describeForeignKey(op.Table, *fk),
		)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "ALTER TABLE %s ADD ", op.Table)
	if fk.Name != "" {
		fmt.Fprintf(&b, "CONSTRAINT %s ", fk.Name)
	}
	fmt.Fprintf(&b, "FOREIGN KEY (%s) REFERENCES %s (%s)",
		strings.Join(fk.Columns, ", "),
		fk.ReferencedTable,
		strings.Join(fk.ReferencedColumns, ", "),
	)
	if fk.OnDelete != "" {
		fmt.Fprintf(&b, " ON DELETE %s", fk.OnDelete)
	}
	if fk.OnUpdate != "" {
		fmt.Fprintf(&b, " ON UPDATE %s", fk.OnUpdate)
	}

	return Result{Statement: b.String()}
}

func renderDropForeignKey(op diff.Operation, dialect Dialect) Result {
	name := op.Object
	if name == "" && op.OldForeignKey != nil {
		name = op.OldForeignKey.Name
	}
	if name == "" {
		reason := []string{"constraint name is unknown; drop it manually"}
		if op.OldForeignKey != nil {
			reason = append(reason, "intended: drop "+describeForeignKey(op.Table, *op.OldForeignKey))
		}
		return diagnostic(reason[0], reason[1:]...)
	}

	switch dialect {
	case MySQL:
		return Result{Statement: fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s", op.Table, name)}
	case SQLite:
		return diagnostic(
			"sqlite cannot drop a foreign key from an existing table",
			fmt.Sprintf("intended: drop constraint %s on %s", name, op.Table),
		)
	default:
		return Result{Statement: fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", op.Table, name)}
	}
}

// columnDef renders one column clause. inlinePK controls whether a primary key
// column gets its PRIMARY KEY marker here; composite keys are emitted as a
// table-level clause instead.
func columnDef(col schema.Column, dialect Dialect, inlinePK bool) string {
	typ := col.Type
	if col.AutoIncrement && dialect == Postgres {
		if strings.EqualFold(typ, "BIGINT") {
			typ = "BIGSERIAL"
		} else {
			typ = "SERIAL"
		}
	}

	var b strings.Builder
	b.WriteString(col.Name)
	b.WriteString(" ")
	b.WriteString(typ)

	if col.PrimaryKey && inlinePK {
		b.WriteString(" PRIMARY KEY")
		if col.AutoIncrement {
			switch dialect {
			case MySQL:
				b.WriteString(" AUTO_INCREMENT")
			case SQLite:
				b.WriteString(" AUTOINCREMENT")
			}
		}
		if col.Default != nil {
			b.WriteString(" DEFAULT ")
			b.WriteString(*col.Default)
		}
		return b.String()
	}

	if col.AutoIncrement && dialect == MySQL {
		b.WriteString(" AUTO_INCREMENT")
	}
	if !col.Nullable {
		b.WriteString(" NOT NULL")
	}
	if col.Default != nil {
		b.WriteString(" DEFAULT ")
		b.WriteString(*col.Default)
	}
	if col.Unique {
		b.WriteString(" UNIQUE")
	}

	return b.String()
}

// describeColumn is the dialect-neutral one-line form used inside diagnostics.
func describeColumn(col schema.Column) string {
	parts := []string{col.Name, col.Type}
	if col.PrimaryKey {
		parts = append(parts, "PRIMARY KEY")
	}
	if col.AutoIncrement {
		parts = append(parts, "AUTOINCREMENT")
	}
	if !col.Nullable && !col.PrimaryKey {
		parts = append(parts, "NOT NULL")
	}
	if col.Default != nil {
		parts = append(parts, "DEFAULT "+*col.Default)
	}
	if col.Unique && !col.PrimaryKey {
		parts = append(parts, "UNIQUE")
	}
	return strings.Join(parts, " ")
}

func describeForeignKey(table string, fk schema.ForeignKey) string {
	name := fk.Name
	if name == "" {
		name = "(unnamed)"
	}
	return fmt.Sprintf("%s FOREIGN KEY %s (%s) REFERENCES %s (%s)",
		name, table, strings.Join(fk.Columns, ", "), fk.ReferencedTable, strings.Join(fk.ReferencedColumns, ", "))
}

func diagnostic(reason string, details ...string) Result {
	lines := make([]string, 0, len(details)+1)
	lines = append(lines, "-- "+reason)
	for _, detail := range details {
		lines = append(lines, "-- "+detail)
	}
	return Result{Diagnostic: strings.Join(lines, "\n")}
}
