package schema

import "fmt"

// Validate performs structural checks over a set of tables: every table
// has a name, columns and a primary key; every foreign key resolves to a
// declared table and column; constraint columns exist.
func Validate(tables []Table) error {
	byName := make(map[string]Table, len(tables))
	for _, t := range tables {
		if t.Name == "" {
			return fmt.Errorf("table with empty name")
		}
		if _, dup := byName[t.Name]; dup {
			return fmt.Errorf("table %s declared twice", t.Name)
		}
		byName[t.Name] = t
	}

	for _, t := range tables {
		if len(t.Columns) == 0 {
			return fmt.Errorf("table %s has no columns", t.Name)
		}
		if t.PrimaryKey == nil {
			return fmt.Errorf("table %s has no primary key", t.Name)
		}
		if _, ok := t.Column(t.PrimaryKey.Column); !ok {
			return fmt.Errorf("table %s: primary key column %s not declared", t.Name, t.PrimaryKey.Column)
		}

		seen := make(map[string]bool, len(t.Columns))
		for _, col := range t.Columns {
			if col.Name == "" {
				return fmt.Errorf("table %s has a column with empty name", t.Name)
			}
			if seen[col.Name] {
				return fmt.Errorf("table %s: column %s declared twice", t.Name, col.Name)
			}
			seen[col.Name] = true
			if col.SQLType == "" {
				return fmt.Errorf("table %s: column %s has no SQL type", t.Name, col.Name)
			}
		}

		for _, fk := range t.ForeignKeys {
			if _, ok := t.Column(fk.Column); !ok {
				return fmt.Errorf("table %s: foreign key column %s not declared", t.Name, fk.Column)
			}
			ref, ok := byName[fk.RefTable]
			if !ok {
				return fmt.Errorf("table %s: foreign key references unknown table %s", t.Name, fk.RefTable)
			}
			if _, ok := ref.Column(fk.RefColumn); !ok {
				return fmt.Errorf("table %s: foreign key references unknown column %s.%s",
					t.Name, fk.RefTable, fk.RefColumn)
			}
		}

		for _, check := range t.Checks {
			if check.Name == "" || check.Expression == "" {
				return fmt.Errorf("table %s has an unnamed or empty check constraint", t.Name)
			}
		}
	}

	return nil
}
