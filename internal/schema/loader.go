package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type columnSpec struct {
	Name          string  `yaml:"name"`
	Type          string  `yaml:"type"`
	Nullable      *bool   `yaml:"nullable"`
	PrimaryKey    bool    `yaml:"primary_key"`
	Unique        bool    `yaml:"unique"`
	AutoIncrement bool    `yaml:"auto_increment"`
	Default       *string `yaml:"default"`
}

type tableSpec struct {
	Columns     []columnSpec `yaml:"columns"`
	Indexes     []Index      `yaml:"indexes"`
	ForeignKeys []ForeignKey `yaml:"foreign_keys"`
}

type definitionFile struct {
	Tables map[string]tableSpec `yaml:"tables"`
}

// LoadDefinition reads a declarative schema file and converts it into a
// snapshot. Columns default to nullable unless they are part of the primary
// key; an explicit nullable value always wins.
func LoadDefinition(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}

	var def definitionFile
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse schema file: %w", err)
	}

	snap := NewSnapshot()
	for name, spec := range def.Tables {
		table, err := buildTable(name, spec)
		if err != nil {
			return nil, err
		}
		snap.AddTable(table)
	}

	return snap, nil
}

func buildTable(name string, spec tableSpec) (Table, error) {
	if len(spec.Columns) == 0 {
		return Table{}, fmt.Errorf("table %s has no columns", name)
	}

	table := Table{Name: name}
	seen := make(map[string]struct{}, len(spec.Columns))

	for _, cs := range spec.Columns {
		if cs.Name == "" {
			return Table{}, fmt.Errorf("table %s has a column without a name", name)
		}
		if cs.Type == "" {
			return Table{}, fmt.Errorf("column %s.%s has no type", name, cs.Name)
		}
		if _, ok := seen[cs.Name]; ok {
			return Table{}, fmt.Errorf("table %s declares column %s more than once", name, cs.Name)
		}
		seen[cs.Name] = struct{}{}

		col := Column{
			Name:          cs.Name,
			Type:          cs.Type,
			Nullable:      !cs.PrimaryKey,
			PrimaryKey:    cs.PrimaryKey,
			Unique:        cs.Unique,
			AutoIncrement: cs.AutoIncrement,
			Default:       cs.Default,
		}
		if cs.Nullable != nil {
			col.Nullable = *cs.Nullable
		}

		table.Columns = append(table.Columns, col)
	}

	for _, idx := range spec.Indexes {
		if idx.Name == "" {
			return Table{}, fmt.Errorf("table %s has an index without a name", name)
		}
		if len(idx.Columns) == 0 {
			return Table{}, fmt.Errorf("index %s on table %s has no columns", idx.Name, name)
		}
	}
	table.Indexes = spec.Indexes

	for _, fk := range spec.ForeignKeys {
		if len(fk.Columns) == 0 || fk.ReferencedTable == "" {
			return Table{}, fmt.Errorf("table %s has an incomplete foreign key", name)
		}
		if len(fk.Columns) != len(fk.ReferencedColumns) {
			return Table{}, fmt.Errorf("foreign key on table %s references %d columns with %d local columns", name, len(fk.ReferencedColumns), len(fk.Columns))
		}
	}
	table.ForeignKeys = spec.ForeignKeys

	return table, nil
}
