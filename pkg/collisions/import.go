package collisions

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/barnardcsc/workshopdb/pkg/csvload"
	"github.com/barnardcsc/workshopdb/pkg/pgdb"
)

// CollisionMapping maps the collision records file onto the collisions
// table. Only the id is critical; malformed values in the remaining
// fields load as NULL.
func CollisionMapping() csvload.Mapping {
	return csvload.Mapping{
		Table: "collisions",
		Columns: []csvload.ColumnSpec{
			{Name: "id", CSV: "unique_key", Kind: csvload.KindBigint, Required: true},
			{Name: "date", CSV: "date", Kind: csvload.KindDate},
			{Name: "time", CSV: "time", Kind: csvload.KindTime},
			{Name: "borough", CSV: "borough", Kind: csvload.KindText},
			{Name: "zip_code", CSV: "zip_code", Kind: csvload.KindText},
			{Name: "latitude", CSV: "latitude", Kind: csvload.KindDouble},
			{Name: "longitude", CSV: "longitude", Kind: csvload.KindDouble},
			{Name: "on_street", CSV: "on_street_name", Kind: csvload.KindText},
			{Name: "cross_street", CSV: "cross_street_name", Kind: csvload.KindText},
			{Name: "off_street", CSV: "off_street_name", Kind: csvload.KindText},
		},
	}
}

// ImportCollisions loads the collision records CSV. The source assigns
// the collision ids, so duplicate or missing ids in the file fail the
// load rather than being silently renumbered.
func (r *Repo) ImportCollisions(ctx context.Context, f io.Reader) (*csvload.Report, error) {
	return csvload.Import(ctx, r.db, CollisionMapping(), f)
}

// ImportVehicles loads the vehicle/collision association CSV. The file
// carries vehicle type labels; labels are first registered in the
// vehicles table, then each association row is copied into the junction
// table with the label resolved to its vehicle id. Rows naming a
// collision that was never loaded fail with pgdb.ErrForeignKey.
func (r *Repo) ImportVehicles(ctx context.Context, f io.Reader) (int64, error) {
	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read CSV header: %w", err)
	}
	collisionPos, vehiclePos := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "collision_id", "unique_key":
			collisionPos = i
		case "vehicle", "vehicle_type":
			vehiclePos = i
		}
	}
	if collisionPos < 0 || vehiclePos < 0 {
		return 0, fmt.Errorf("CSV header must name collision_id and vehicle columns")
	}

	type association struct {
		collisionID int64
		vehicle     string
	}
	var assocs []association
	labels := make(map[string]bool)
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read CSV row: %w", err)
		}
		line++

		id, err := strconv.ParseInt(strings.TrimSpace(record[collisionPos]), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("row %d: bad collision id %q", line, record[collisionPos])
		}
		vehicle := strings.TrimSpace(record[vehiclePos])
		if vehicle == "" {
			// Source rows with no vehicle type recorded carry nothing to link.
			continue
		}
		assocs = append(assocs, association{collisionID: id, vehicle: vehicle})
		labels[vehicle] = true
	}

	vehicleIDs, err := r.registerVehicleTypes(ctx, labels)
	if err != nil {
		return 0, err
	}

	copyRows := make([][]any, len(assocs))
	for i, a := range assocs {
		copyRows[i] = []any{a.collisionID, vehicleIDs[a.vehicle]}
	}

	copied, err := r.db.Pool().CopyFrom(ctx,
		pgx.Identifier{"vehicle_collisions"},
		[]string{"collision_id", "vehicle_id"},
		pgx.CopyFromRows(copyRows),
	)
	if err != nil {
		return 0, fmt.Errorf("copy into vehicle_collisions: %w", pgdb.MapError(err))
	}
	return copied, nil
}

// registerVehicleTypes upserts the labels into the vehicles table and
// returns the label-to-id mapping.
func (r *Repo) registerVehicleTypes(ctx context.Context, labels map[string]bool) (map[string]int, error) {
	ids := make(map[string]int, len(labels))
	for label := range labels {
		var id int
		err := r.db.QueryRow(ctx, `
			INSERT INTO vehicles (vehicle) VALUES ($1)
			ON CONFLICT (vehicle) DO UPDATE SET vehicle = EXCLUDED.vehicle
			RETURNING id`, label).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("register vehicle type %q: %w", label, pgdb.MapError(err))
		}
		ids[label] = id
	}
	return ids, nil
}
