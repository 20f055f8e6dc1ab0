package dataset

import "github.com/barnardcsc/workshopdb/pkg/schema"

// StateSeed is one seed row for the states table.
type StateSeed struct {
	ID           int
	Name         string
	Abbreviation string
	Population   int
}

// CitySeed is one seed row for the cities table.
type CitySeed struct {
	ID      int
	StateID int
	Name    string
}

// StateSeeds are the workshop's states. Name and abbreviation are each
// unique across the table.
var StateSeeds = []StateSeed{
	{ID: 1, Name: "New York", Abbreviation: "NY", Population: 19677151},
	{ID: 2, Name: "New Jersey", Abbreviation: "NJ", Population: 9261699},
	{ID: 3, Name: "Connecticut", Abbreviation: "CT", Population: 3626205},
	{ID: 4, Name: "Pennsylvania", Abbreviation: "PA", Population: 12972008},
	{ID: 5, Name: "California", Abbreviation: "CA", Population: 39029342},
}

// CitySeeds are the workshop's cities. Every city belongs to exactly one
// state; a state may have any number of cities.
var CitySeeds = []CitySeed{
	{ID: 1, StateID: 1, Name: "New York City"},
	{ID: 2, StateID: 1, Name: "Albany"},
	{ID: 3, StateID: 1, Name: "Buffalo"},
	{ID: 4, StateID: 2, Name: "Newark"},
	{ID: 5, StateID: 2, Name: "Jersey City"},
	{ID: 6, StateID: 3, Name: "Hartford"},
	{ID: 7, StateID: 4, Name: "Philadelphia"},
	{ID: 8, StateID: 4, Name: "Pittsburgh"},
	{ID: 9, StateID: 5, Name: "Los Angeles"},
	{ID: 10, StateID: 5, Name: "San Francisco"},
}

// Geography returns the one-to-many states/cities dataset.
func Geography() Dataset {
	states := schema.Table{
		Name: "states",
		Columns: []schema.Column{
			{Name: "id", SQLType: "serial", NotNull: true},
			{Name: "name", SQLType: "text", NotNull: true, Unique: true},
			{Name: "abbreviation", SQLType: "varchar(2)", NotNull: true, Unique: true},
			{Name: "population", SQLType: "integer"},
		},
		PrimaryKey: &schema.PrimaryKey{Column: "id"},
	}

	cities := schema.Table{
		Name: "cities",
		Columns: []schema.Column{
			{Name: "id", SQLType: "serial", NotNull: true},
			{Name: "state_id", SQLType: "integer", NotNull: true},
			{Name: "name", SQLType: "text", NotNull: true},
		},
		PrimaryKey:  &schema.PrimaryKey{Column: "id"},
		ForeignKeys: []schema.ForeignKey{{Column: "state_id", RefTable: "states", RefColumn: "id"}},
	}

	return Dataset{
		Name:   "geography",
		Tables: []schema.Table{states, cities},
	}
}
