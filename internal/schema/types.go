package schema

import "sort"

type Column struct {
	Name          string  `json:"name" yaml:"name"`
	Type          string  `json:"type" yaml:"type"`
	Nullable      bool    `json:"nullable" yaml:"nullable"`
	PrimaryKey    bool    `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
	Unique        bool    `json:"unique,omitempty" yaml:"unique,omitempty"`
	AutoIncrement bool    `json:"auto_increment,omitempty" yaml:"auto_increment,omitempty"`
	Default       *string `json:"default,omitempty" yaml:"default,omitempty"`
}

type Index struct {
	Name    string   `json:"name" yaml:"name"`
	Columns []string `json:"columns" yaml:"columns"`
	Unique  bool     `json:"unique,omitempty" yaml:"unique,omitempty"`
}

type ForeignKey struct {
	Name              string   `json:"name,omitempty" yaml:"name,omitempty"`
	Columns           []string `json:"columns" yaml:"columns"`
	ReferencedTable   string   `json:"referenced_table" yaml:"referenced_table"`
	ReferencedColumns []string `json:"referenced_columns" yaml:"referenced_columns"`
	OnDelete          string   `json:"on_delete,omitempty" yaml:"on_delete,omitempty"`
	OnUpdate          string   `json:"on_update,omitempty" yaml:"on_update,omitempty"`
}

type Table struct {
	Name        string       `json:"name" yaml:"name"`
	Columns     []Column     `json:"columns" yaml:"columns"`
	Indexes     []Index      `json:"indexes,omitempty" yaml:"indexes,omitempty"`
	ForeignKeys []ForeignKey `json:"foreign_keys,omitempty" yaml:"foreign_keys,omitempty"`
}

type Snapshot struct {
	Tables map[string]Table `json:"tables" yaml:"tables"`
}

func NewSnapshot() *Snapshot {
	return &Snapshot{Tables: make(map[string]Table)}
}

func (s *Snapshot) AddTable(table Table) {
	if s.Tables == nil {
		s.Tables = make(map[string]Table)
	}
	s.Tables[table.Name] = table
}

// TableNames returns the table names in lexicographic order so that callers
// iterating a snapshot always see the same sequence.
func (s *Snapshot) TableNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (t Table) FindColumn(name string) (Column, bool) {
	for _, col := range t.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

func (t Table) FindIndex(name string) (Index, bool) {
	for _, idx := range t.Indexes {
		if idx.Name == name {
			return idx, true
		}
	}
	return Index{}, false
}

// PrimaryKeyColumns returns the names of primary key columns in declaration order.
func (t Table) PrimaryKeyColumns() []string {
	var keys []string
	for _, col := range t.Columns {
		if col.PrimaryKey {
			keys = append(keys, col.Name)
		}
	}
	return keys
}
