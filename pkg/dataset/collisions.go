package dataset

import "github.com/barnardcsc/workshopdb/pkg/schema"

// Collisions returns the NYC motor-vehicle collisions dataset.
//
// Collision ids come from the source data's collision identifier, not
// from a sequence; they must be unique and non-null in the files, which
// the primary key enforces at load time. Vehicle types are linked to
// collisions through the vehicle_collisions junction table: a collision
// may involve several vehicles and a vehicle type recurs across many
// collisions.
func Collisions() Dataset {
	collisions := schema.Table{
		Name: "collisions",
		Columns: []schema.Column{
			{Name: "id", SQLType: "bigint", NotNull: true},
			{Name: "date", SQLType: "date"},
			{Name: "time", SQLType: "time"},
			{Name: "borough", SQLType: "text"},
			{Name: "zip_code", SQLType: "text"},
			{Name: "latitude", SQLType: "double precision"},
			{Name: "longitude", SQLType: "double precision"},
			{Name: "on_street", SQLType: "text"},
			{Name: "cross_street", SQLType: "text"},
			{Name: "off_street", SQLType: "text"},
		},
		PrimaryKey: &schema.PrimaryKey{Column: "id", External: true},
	}

	vehicles := schema.Table{
		Name: "vehicles",
		Columns: []schema.Column{
			{Name: "id", SQLType: "serial", NotNull: true},
			{Name: "vehicle", SQLType: "text", NotNull: true, Unique: true},
		},
		PrimaryKey: &schema.PrimaryKey{Column: "id"},
	}

	vehicleCollisions := schema.Table{
		Name: "vehicle_collisions",
		Columns: []schema.Column{
			{Name: "id", SQLType: "serial", NotNull: true},
			{Name: "collision_id", SQLType: "bigint", NotNull: true},
			{Name: "vehicle_id", SQLType: "integer", NotNull: true},
		},
		PrimaryKey: &schema.PrimaryKey{Column: "id"},
		ForeignKeys: []schema.ForeignKey{
			{Column: "collision_id", RefTable: "collisions", RefColumn: "id"},
			{Column: "vehicle_id", RefTable: "vehicles", RefColumn: "id"},
		},
	}

	collisionsPerDay := schema.View{
		Name: "collisions_per_day",
		Query: `SELECT date, COUNT(*) AS collisions
FROM collisions
GROUP BY date`,
	}

	return Dataset{
		Name:   "collisions",
		Tables: []schema.Table{collisions, vehicles, vehicleCollisions},
		Views:  []schema.View{collisionsPerDay},
	}
}
