package diff

import (
	"fmt"

	"github.com/kadirbelkuyu/DBSMT/internal/schema"
)

type Kind string

const (
	CreateTable    Kind = "create_table"
	DropTable      Kind = "drop_table"
	AddColumn      Kind = "add_column"
	DropColumn     Kind = "drop_column"
	AlterColumn    Kind = "alter_column"
	CreateIndex    Kind = "create_index"
	DropIndex      Kind = "drop_index"
	AddForeignKey  Kind = "add_foreign_key"
	DropForeignKey Kind = "drop_foreign_key"
)

// Operation is one schema change derived from comparing two snapshots. Which
// definition fields are set depends on the kind: AddColumn carries only
// NewColumn, AlterColumn carries both OldColumn and NewColumn, and so on.
type Operation struct {
	Kind   Kind
	Table  string
	Object string

	NewTable      *schema.Table
	OldColumn     *schema.Column
	NewColumn     *schema.Column
	OldIndex      *schema.Index
	NewIndex      *schema.Index
	OldForeignKey *schema.ForeignKey
	NewForeignKey *schema.ForeignKey
}

func (o Operation) String() string {
	if o.Object != "" {
		return fmt.Sprintf("%s %s.%s", o.Kind, o.Table, o.Object)
	}
	return fmt.Sprintf("%s %s", o.Kind, o.Table)
}

// plan buckets operations by kind so the final sequence can honor dependency
// order: constraints and indexes are removed before the columns and tables
// they sit on, and tables exist before anything is added to them.
type plan struct {
	dropForeignKeys []Operation
	dropIndexes     []Operation
	dropColumns     []Operation
	dropTables      []Operation
	createTables    []Operation
	addColumns      []Operation
	alterColumns    []Operation
	createIndexes   []Operation
	addForeignKeys  []Operation
}

func (p *plan) sequence() []Operation {
	total := len(p.dropForeignKeys) + len(p.dropIndexes) + len(p.dropColumns) +
		len(p.dropTables) + len(p.createTables) + len(p.addColumns) +
		len(p.alterColumns) + len(p.createIndexes) + len(p.addForeignKeys)

	ops := make([]Operation, 0, total)
	ops = append(ops, p.dropForeignKeys...)
	ops = append(ops, p.dropIndexes...)
	ops = append(ops, p.dropColumns...)
	ops = append(ops, p.dropTables...)
	ops = append(ops, p.createTables...)
	ops = append(ops, p.addColumns...)
	ops = append(ops, p.alterColumns...)
	ops = append(ops, p.createIndexes...)
	ops = append(ops, p.addForeignKeys...)
	return ops
}

// DetectChanges compares two snapshots and returns the ordered operations that
// turn old into new. A nil or empty old snapshot means everything in new is
// created from scratch. The result is deterministic: tables are visited in
// lexicographic order and definitions in their declared order.
func DetectChanges(old, new *schema.Snapshot) []Operation {
	var p plan

	for _, name := range new.TableNames() {
		newTable := new.Tables[name]
		if old != nil {
			if oldTable, ok := old.Tables[name]; ok {
				diffTable(&p, oldTable, newTable)
				continue
			}
		}
		appendCreateTable(&p, newTable)
	}

	if old != nil {
		for _, name := range old.TableNames() {
			if _, ok := new.Tables[name]; !ok {
				p.dropTables = append(p.dropTables, Operation{Kind: DropTable, Table: name})
			}
		}
	}

	return p.sequence()
}

// appendCreateTable emits the table itself plus one operation per index and
// foreign key, keeping operation granularity uniform for generation and
// reporting.
func appendCreateTable(p *plan, table schema.Table) {
	t := table
	p.createTables = append(p.createTables, Operation{
		Kind:     CreateTable,
		Table:    table.Name,
		NewTable: &t,
	})

	for _, idx := range table.Indexes {
		i := idx
		p.createIndexes = append(p.createIndexes, Operation{
			Kind:     CreateIndex,
			Table:    table.Name,
			Object:   idx.Name,
			NewIndex: &i,
		})
	}

	for _, fk := range table.ForeignKeys {
		f := fk
		p.addForeignKeys = append(p.addForeignKeys, Operation{
			Kind:          AddForeignKey,
			Table:         table.Name,
			Object:        fk.Name,
			NewForeignKey: &f,
		})
	}
}

func diffTable(p *plan, old, new schema.Table) {
	diffColumns(p, old, new)
	diffIndexes(p, old, new)
	diffForeignKeys(p, old, new)
}

func diffColumns(p *plan, old, new schema.Table) {
	for _, col := range new.Columns {
		oldCol, ok := old.FindColumn(col.Name)
		if !ok {
			c := col
			p.addColumns = append(p.addColumns, Operation{
				Kind:      AddColumn,
				Table:     new.Name,
				Object:    col.Name,
				NewColumn: &c,
			})
			continue
		}
		if !columnsEqual(oldCol, col) {
			o, c := oldCol, col
			p.alterColumns = append(p.alterColumns, Operation{
				Kind:      AlterColumn,
				Table:     new.Name,
				Object:    col.Name,
				OldColumn: &o,
				NewColumn: &c,
			})
		}
	}

	for _, col := range old.Columns {
		if _, ok := new.FindColumn(col.Name); !ok {
			c := col
			p.dropColumns = append(p.dropColumns, Operation{
				Kind:      DropColumn,
				Table:     new.Name,
				Object:    col.Name,
				OldColumn: &c,
			})
		}
	}
}

func diffIndexes(p *plan, old, new schema.Table) {
	for _, idx := range new.Indexes {
		oldIdx, ok := old.FindIndex(idx.Name)
		if !ok {
			i := idx
			p.createIndexes = append(p.createIndexes, Operation{
				Kind:     CreateIndex,
				Table:    new.Name,
				Object:   idx.Name,
				NewIndex: &i,
			})
			continue
		}
		if !indexesEqual(oldIdx, idx) {
			o, i := oldIdx, idx
			p.dropIndexes = append(p.dropIndexes, Operation{
				Kind:     DropIndex,
				Table:    new.Name,
				Object:   idx.Name,
				OldIndex: &o,
			})
			p.createIndexes = append(p.createIndexes, Operation{
				Kind:     CreateIndex,
				Table:    new.Name,
				Object:   idx.Name,
				NewIndex: &i,
			})
		}
	}

	for _, idx := range old.Indexes {
		if _, ok := new.FindIndex(idx.Name); !ok {
			i := idx
			p.dropIndexes = append(p.dropIndexes, Operation{
				Kind:     DropIndex,
				Table:    new.Name,
				Object:   idx.Name,
				OldIndex: &i,
			})
		}
	}
}

func diffForeignKeys(p *plan, old, new schema.Table) {
	matched := make([]bool, len(old.ForeignKeys))

	for _, fk := range new.ForeignKeys {
		idx := findForeignKey(old.ForeignKeys, matched, fk)
		if idx == -1 {
			f := fk
			p.addForeignKeys = append(p.addForeignKeys, Operation{
				Kind:          AddForeignKey,
				Table:         new.Name,
				Object:        fk.Name,
				NewForeignKey: &f,
			})
			continue
		}

		matched[idx] = true
		oldFK := old.ForeignKeys[idx]
		if !foreignKeysEqual(oldFK, fk) {
			o, f := oldFK, fk
			p.dropForeignKeys = append(p.dropForeignKeys, Operation{
				Kind:          DropForeignKey,
				Table:         new.Name,
				Object:        oldFK.Name,
				OldForeignKey: &o,
			})
			p.addForeignKeys = append(p.addForeignKeys, Operation{
				Kind:          AddForeignKey,
				Table:         new.Name,
				Object:        fk.Name,
				NewForeignKey: &f,
			})
		}
	}

	for i, fk := range old.ForeignKeys {
		if matched[i] {
			continue
		}
		f := fk
		p.dropForeignKeys = append(p.dropForeignKeys, Operation{
			Kind:          DropForeignKey,
			Table:         new.Name,
			Object:        fk.Name,
			OldForeignKey: &f,
		})
	}
}

// findForeignKey matches by constraint name when the candidate has one, and
// falls back to the (columns, referenced table, referenced columns) tuple for
// unnamed constraints.
func findForeignKey(existing []schema.ForeignKey, matched []bool, want schema.ForeignKey) int {
	if want.Name != "" {
		for i, fk := range existing {
			if !matched[i] && fk.Name == want.Name {
				return i
			}
		}
	}
	for i, fk := range existing {
		if matched[i] {
			continue
		}
		if stringsEqual(fk.Columns, want.Columns) &&
			fk.ReferencedTable == want.ReferencedTable &&
			stringsEqual(fk.ReferencedColumns, want.ReferencedColumns) {
			return i
		}
	}
	return -1
}

func columnsEqual(a, b schema.Column) bool {
	return a.Name == b.Name &&
		a.Type == b.Type &&
		a.Nullable == b.Nullable &&
		a.PrimaryKey == b.PrimaryKey &&
		a.Unique == b.Unique &&
		a.AutoIncrement == b.AutoIncrement &&
		stringPointersEqual(a.Default, b.Default)
}

func indexesEqual(a, b schema.Index) bool {
	return a.Name == b.Name && a.Unique == b.Unique && stringsEqual(a.Columns, b.Columns)
}

func foreignKeysEqual(a, b schema.ForeignKey) bool {
	return a.Name == b.Name &&
		a.ReferencedTable == b.ReferencedTable &&
		a.OnDelete == b.OnDelete &&
		a.OnUpdate == b.OnUpdate &&
		stringsEqual(a.Columns, b.Columns) &&
		stringsEqual(a.ReferencedColumns, b.ReferencedColumns)
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func stringPointersEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
