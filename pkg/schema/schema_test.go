package schema

import (
	"strings"
	"testing"
)

func TestCreateTableSQL(t *testing.T) {
	table := Table{
		Name: "states",
		Columns: []Column{
			{Name: "id", SQLType: "serial", NotNull: true},
			{Name: "name", SQLType: "text", NotNull: true, Unique: true},
			{Name: "abbreviation", SQLType: "varchar(2)", NotNull: true, Unique: true},
			{Name: "population", SQLType: "integer"},
		},
		PrimaryKey: &PrimaryKey{Column: "id"},
	}

	sql := table.CreateSQL()

	if !strings.Contains(sql, "CREATE TABLE IF NOT EXISTS states") {
		t.Errorf("Expected CREATE TABLE IF NOT EXISTS states, got: %s", sql)
	}
	if !strings.Contains(sql, "id serial NOT NULL PRIMARY KEY") {
		t.Errorf("Expected inline PRIMARY KEY on id, got: %s", sql)
	}
	if !strings.Contains(sql, "abbreviation varchar(2) NOT NULL UNIQUE") {
		t.Errorf("Expected unique abbreviation column, got: %s", sql)
	}
	if !strings.Contains(sql, "population integer") {
		t.Errorf("Expected nullable population column, got: %s", sql)
	}
	if strings.Contains(sql, "population integer NOT NULL") {
		t.Errorf("population must stay nullable, got: %s", sql)
	}
}

func TestCreateTableSQLWithForeignKey(t *testing.T) {
	table := Table{
		Name: "cities",
		Columns: []Column{
			{Name: "id", SQLType: "serial", NotNull: true},
			{Name: "state_id", SQLType: "integer", NotNull: true},
			{Name: "name", SQLType: "text", NotNull: true},
		},
		PrimaryKey:  &PrimaryKey{Column: "id"},
		ForeignKeys: []ForeignKey{{Column: "state_id", RefTable: "states", RefColumn: "id"}},
	}

	sql := table.CreateSQL()

	if !strings.Contains(sql, "FOREIGN KEY (state_id) REFERENCES states (id)") {
		t.Errorf("Expected foreign key clause, got: %s", sql)
	}
}

func TestCreateTableSQLWithCheckAndDefault(t *testing.T) {
	table := Table{
		Name: "customers",
		Columns: []Column{
			{Name: "id", SQLType: "serial", NotNull: true},
			{Name: "loyalty_member", SQLType: "integer", NotNull: true, Default: "0"},
		},
		PrimaryKey: &PrimaryKey{Column: "id"},
		Checks:     []Check{{Name: "customers_loyalty_flag", Expression: "loyalty_member IN (0, 1)"}},
	}

	sql := table.CreateSQL()

	if !strings.Contains(sql, "loyalty_member integer NOT NULL DEFAULT 0") {
		t.Errorf("Expected default on loyalty_member, got: %s", sql)
	}
	if !strings.Contains(sql, "CONSTRAINT customers_loyalty_flag CHECK (loyalty_member IN (0, 1))") {
		t.Errorf("Expected named check constraint, got: %s", sql)
	}
}

func TestAlterStatements(t *testing.T) {
	add := AddColumnSQL("items", Column{Name: "price", SQLType: "integer"})
	if add != "ALTER TABLE items ADD COLUMN IF NOT EXISTS price integer" {
		t.Errorf("Unexpected ADD COLUMN statement: %s", add)
	}

	notNull := SetNotNullSQL("items", "price")
	if notNull != "ALTER TABLE items ALTER COLUMN price SET NOT NULL" {
		t.Errorf("Unexpected SET NOT NULL statement: %s", notNull)
	}

	check := AddCheckSQL("items", Check{Name: "items_price_nonnegative", Expression: "price >= 0"})
	if check != "ALTER TABLE items ADD CONSTRAINT items_price_nonnegative CHECK (price >= 0)" {
		t.Errorf("Unexpected ADD CONSTRAINT statement: %s", check)
	}
}

func TestViewSQL(t *testing.T) {
	view := View{
		Name:  "item_popularity",
		Query: "SELECT i.id AS item_id FROM items i",
	}

	create := view.CreateSQL()
	if !strings.Contains(create, "CREATE OR REPLACE VIEW item_popularity AS") {
		t.Errorf("Expected CREATE OR REPLACE VIEW, got: %s", create)
	}
	if !strings.Contains(create, "SELECT i.id AS item_id FROM items i") {
		t.Errorf("Expected view to embed its defining query, got: %s", create)
	}

	if view.DropSQL() != "DROP VIEW IF EXISTS item_popularity" {
		t.Errorf("Unexpected DROP VIEW statement: %s", view.DropSQL())
	}
}

func TestCreateSQLIsDeterministic(t *testing.T) {
	table := Table{
		Name: "vehicles",
		Columns: []Column{
			{Name: "id", SQLType: "serial", NotNull: true},
			{Name: "vehicle", SQLType: "text", NotNull: true, Unique: true},
		},
		PrimaryKey: &PrimaryKey{Column: "id"},
	}

	first := table.CreateSQL()
	for i := 0; i < 5; i++ {
		if got := table.CreateSQL(); got != first {
			t.Fatalf("CreateSQL not deterministic:\n%s\nvs\n%s", first, got)
		}
	}
}
