// Package schema describes the tables a question may be answered from.
package schema

import (
	"fmt"
	"strings"

	"github.com/elliotchance/orderedmap/v2"

	"github.com/dbsmedya/nlquery/internal/sqlutil"
)

// ColumnDef describes a single column. Enum lists the only literal values the
// keyword synthesizer may place in SQL for this column.
type ColumnDef struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Nullable bool     `json:"nullable"`
	Enum     []string `json:"enum,omitempty"`
}

// Relationship is a foreign key from LocalColumn to ForeignTable.ForeignColumn.
type Relationship struct {
	LocalColumn   string `json:"local_column"`
	ForeignTable  string `json:"foreign_table"`
	ForeignColumn string `json:"foreign_column"`
}

// TableDef describes a table.
type TableDef struct {
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	PrimaryKey    string         `json:"primary_key"`
	Columns       []ColumnDef    `json:"columns"`
	Relationships []Relationship `json:"relationships,omitempty"`
}

// Column returns the named column, matched case-insensitively.
func (t TableDef) Column(name string) (ColumnDef, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return ColumnDef{}, false
}

// ColumnNames returns the column names in declaration order.
func (t TableDef) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// EnumValue returns the canonical enumeration literal of column that equals
// want, ignoring case.
func (t TableDef) EnumValue(column, want string) (string, bool) {
	col, ok := t.Column(column)
	if !ok {
		return "", false
	}
	for _, v := range col.Enum {
		if strings.EqualFold(v, want) {
			return v, true
		}
	}
	return "", false
}

// Catalog is an immutable, ordered set of tables. It is safe for concurrent reads.
type Catalog struct {
	tables *orderedmap.OrderedMap[string, TableDef]
}

// NewCatalog validates the definitions and returns a Catalog preserving their order.
func NewCatalog(tables ...TableDef) (*Catalog, error) {
	m := orderedmap.NewOrderedMap[string, TableDef]()
	for _, t := range tables {
		if !sqlutil.IsValidIdentifier(t.Name) {
			return nil, &sqlutil.InvalidIdentifierError{Name: t.Name}
		}
		key := strings.ToLower(t.Name)
		if _, exists := m.Get(key); exists {
			return nil, fmt.Errorf("duplicate table %s", t.Name)
		}
		for _, c := range t.Columns {
			if !sqlutil.IsValidIdentifier(c.Name) {
				return nil, fmt.Errorf("table %s: %w", t.Name, &sqlutil.InvalidIdentifierError{Name: c.Name})
			}
		}
		if t.PrimaryKey != "" {
			if _, ok := t.Column(t.PrimaryKey); !ok {
				return nil, fmt.Errorf("table %s: primary key %s is not a column", t.Name, t.PrimaryKey)
			}
		}
		m.Set(key, t)
	}

	// Relationships may point forward, so they are checked once every table is known.
	for el := m.Front(); el != nil; el = el.Next() {
		for _, rel := range el.Value.Relationships {
			if _, ok := el.Value.Column(rel.LocalColumn); !ok {
				return nil, fmt.Errorf("table %s: relationship column %s is not a column", el.Value.Name, rel.LocalColumn)
			}
			target, ok := m.Get(strings.ToLower(rel.ForeignTable))
			if !ok {
				return nil, fmt.Errorf("table %s: relationship targets unknown table %s", el.Value.Name, rel.ForeignTable)
			}
			if _, ok := target.Column(rel.ForeignColumn); !ok {
				return nil, fmt.Errorf("table %s: relationship targets unknown column %s.%s", el.Value.Name, rel.ForeignTable, rel.ForeignColumn)
			}
		}
	}

	return &Catalog{tables: m}, nil
}

// MustCatalog is like NewCatalog but panics on invalid definitions.
func MustCatalog(tables ...TableDef) *Catalog {
	c, err := NewCatalog(tables...)
	if err != nil {
		panic(err)
	}
	return c
}

// Len returns the number of tables.
func (c *Catalog) Len() int {
	if c == nil || c.tables == nil {
		return 0
	}
	return c.tables.Len()
}

// IsEmpty reports whether the catalog has no tables.
func (c *Catalog) IsEmpty() bool {
	return c.Len() == 0
}

// Tables returns the tables in declaration order.
func (c *Catalog) Tables() []TableDef {
	out := make([]TableDef, 0, c.Len())
	if c.IsEmpty() {
		return out
	}
	for el := c.tables.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value)
	}
	return out
}

// Table looks a table up by name, ignoring case.
func (c *Catalog) Table(name string) (TableDef, bool) {
	if c.IsEmpty() {
		return TableDef{}, false
	}
	return c.tables.Get(strings.ToLower(name))
}

// PrimaryTable returns the entity table most other tables reference.
// Ties go to the table declared first; with no relationships it is the first table.
func (c *Catalog) PrimaryTable() (TableDef, bool) {
	if c.IsEmpty() {
		return TableDef{}, false
	}
	refs := make(map[string]int)
	for _, t := range c.Tables() {
		for _, rel := range t.Relationships {
			refs[strings.ToLower(rel.ForeignTable)]++
		}
	}
	best, bestRefs := TableDef{}, -1
	for _, t := range c.Tables() {
		if n := refs[strings.ToLower(t.Name)]; n > bestRefs {
			best, bestRefs = t, n
		}
	}
	return best, true
}

// Dependents returns the tables holding a relationship to the named table.
func (c *Catalog) Dependents(name string) []TableDef {
	var out []TableDef
	for _, t := range c.Tables() {
		for _, rel := range t.Relationships {
			if strings.EqualFold(rel.ForeignTable, name) {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// JoinKey returns the relationship from table to its parent, if any.
func (c *Catalog) JoinKey(from, to string) (Relationship, bool) {
	t, ok := c.Table(from)
	if !ok {
		return Relationship{}, false
	}
	for _, rel := range t.Relationships {
		if strings.EqualFold(rel.ForeignTable, to) {
			return rel, true
		}
	}
	return Relationship{}, false
}
