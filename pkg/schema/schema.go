// Package schema declares the workshop tables and renders their DDL.
package schema

import (
	"fmt"
	"strings"
)

// Table describes one PostgreSQL table.
type Table struct {
	Name        string
	Columns     []Column
	PrimaryKey  *PrimaryKey
	ForeignKeys []ForeignKey
	Checks      []Check
}

// Column describes one table column.
type Column struct {
	Name    string
	SQLType string // e.g. "serial", "text", "integer", "date"
	NotNull bool
	Unique  bool
	Default string // raw SQL expression, empty for no default
}

// PrimaryKey describes a table's primary key.
//
// External marks keys whose values are supplied by the source dataset
// rather than generated by the database. Uniqueness of external keys is
// verified before load, the column itself is a plain PRIMARY KEY.
type PrimaryKey struct {
	Column   string
	External bool
}

// ForeignKey describes a REFERENCES constraint.
type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

// Check describes a named CHECK constraint.
type Check struct {
	Name       string
	Expression string
}

// View binds a name to a query definition. Querying the view re-executes
// the definition against current table state.
type View struct {
	Name  string
	Query string
}

// CreateSQL renders the CREATE TABLE statement for the table.
// Single-column primary keys are declared inline on the column.
func (t Table) CreateSQL() string {
	var parts []string

	for _, col := range t.Columns {
		def := col.definition()
		if t.PrimaryKey != nil && col.Name == t.PrimaryKey.Column {
			def += " PRIMARY KEY"
		}
		parts = append(parts, "    "+def)
	}

	for _, fk := range t.ForeignKeys {
		parts = append(parts, fmt.Sprintf("    FOREIGN KEY (%s) REFERENCES %s (%s)",
			fk.Column, fk.RefTable, fk.RefColumn))
	}

	for _, check := range t.Checks {
		parts = append(parts, fmt.Sprintf("    CONSTRAINT %s CHECK (%s)",
			check.Name, check.Expression))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n)", t.Name, strings.Join(parts, ",\n"))
}

// DropSQL renders the DROP TABLE statement for the table.
func (t Table) DropSQL() string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", t.Name)
}

// Column returns the named column and whether it exists.
func (t Table) Column(name string) (Column, bool) {
	for _, col := range t.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

func (c Column) definition() string {
	def := c.Name + " " + c.SQLType
	if c.NotNull {
		def += " NOT NULL"
	}
	if c.Unique {
		def += " UNIQUE"
	}
	if c.Default != "" {
		def += " DEFAULT " + c.Default
	}
	return def
}

// CreateSQL renders the CREATE VIEW statement.
func (v View) CreateSQL() string {
	return fmt.Sprintf("CREATE OR REPLACE VIEW %s AS\n%s", v.Name, v.Query)
}

// DropSQL renders the DROP VIEW statement.
func (v View) DropSQL() string {
	return fmt.Sprintf("DROP VIEW IF EXISTS %s", v.Name)
}

// AddColumnSQL renders an ALTER TABLE ... ADD COLUMN statement.
func AddColumnSQL(table string, col Column) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s", table, col.definition())
}

// SetNotNullSQL renders an ALTER TABLE ... SET NOT NULL statement.
func SetNotNullSQL(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL", table, column)
}

// AddCheckSQL renders an ALTER TABLE ... ADD CONSTRAINT ... CHECK statement.
func AddCheckSQL(table string, check Check) string {
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s)",
		table, check.Name, check.Expression)
}
