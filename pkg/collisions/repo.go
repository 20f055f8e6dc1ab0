// Package collisions imports and queries the NYC motor-vehicle
// collisions dataset.
package collisions

import (
	"context"
	"fmt"
	"time"

	"github.com/barnardcsc/workshopdb/pkg/pgdb"
)

// DayCount is the number of collisions recorded on one date.
type DayCount struct {
	Date       time.Time
	Collisions int
}

// HourCount is the number of collisions recorded in one hour of day.
type HourCount struct {
	Hour       int
	Collisions int
}

// WeekdayCount is the number of collisions recorded per day of week.
// Weekday follows PostgreSQL's EXTRACT(DOW): 0 is Sunday.
type WeekdayCount struct {
	Weekday    int
	Collisions int
}

// VehicleCount is the number of collisions a vehicle type appears in.
type VehicleCount struct {
	Vehicle    string
	Collisions int
}

// Repo runs the collisions queries.
type Repo struct {
	db *pgdb.DB
}

// NewRepo creates a collisions repository.
func NewRepo(db *pgdb.DB) *Repo {
	return &Repo{db: db}
}

// Total returns the number of loaded collisions.
func (r *Repo) Total(ctx context.Context) (int, error) {
	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM collisions").Scan(&total); err != nil {
		return 0, fmt.Errorf("count collisions: %w", err)
	}
	return total, nil
}

// PerDay counts collisions per date through the collisions_per_day view,
// ordered by date.
func (r *Repo) PerDay(ctx context.Context) ([]DayCount, error) {
	rows, err := r.db.Query(ctx, `
		SELECT date, collisions
		FROM collisions_per_day
		WHERE date IS NOT NULL
		ORDER BY date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []DayCount
	for rows.Next() {
		var dc DayCount
		if err := rows.Scan(&dc.Date, &dc.Collisions); err != nil {
			return nil, fmt.Errorf("scan day count: %w", err)
		}
		counts = append(counts, dc)
	}
	return counts, rows.Err()
}

// PerHour counts collisions per hour of day, ordered by hour.
func (r *Repo) PerHour(ctx context.Context) ([]HourCount, error) {
	rows, err := r.db.Query(ctx, `
		SELECT EXTRACT(HOUR FROM time)::int AS hour, COUNT(*) AS collisions
		FROM collisions
		WHERE time IS NOT NULL
		GROUP BY hour
		ORDER BY hour`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []HourCount
	for rows.Next() {
		var hc HourCount
		if err := rows.Scan(&hc.Hour, &hc.Collisions); err != nil {
			return nil, fmt.Errorf("scan hour count: %w", err)
		}
		counts = append(counts, hc)
	}
	return counts, rows.Err()
}

// PerWeekday counts collisions per day of week, Sunday first.
func (r *Repo) PerWeekday(ctx context.Context) ([]WeekdayCount, error) {
	rows, err := r.db.Query(ctx, `
		SELECT EXTRACT(DOW FROM date)::int AS weekday, COUNT(*) AS collisions
		FROM collisions
		WHERE date IS NOT NULL
		GROUP BY weekday
		ORDER BY weekday`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []WeekdayCount
	for rows.Next() {
		var wc WeekdayCount
		if err := rows.Scan(&wc.Weekday, &wc.Collisions); err != nil {
			return nil, fmt.Errorf("scan weekday count: %w", err)
		}
		counts = append(counts, wc)
	}
	return counts, rows.Err()
}

// TopVehicleTypes counts, per vehicle type, the collisions it appears
// in, most frequent first, ties broken by type name.
func (r *Repo) TopVehicleTypes(ctx context.Context, limit int) ([]VehicleCount, error) {
	rows, err := r.db.Query(ctx, `
		SELECT v.vehicle, COUNT(vc.id) AS collisions
		FROM vehicles v
		JOIN vehicle_collisions vc ON vc.vehicle_id = v.id
		GROUP BY v.vehicle
		ORDER BY collisions DESC, v.vehicle
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []VehicleCount
	for rows.Next() {
		var vc VehicleCount
		if err := rows.Scan(&vc.Vehicle, &vc.Collisions); err != nil {
			return nil, fmt.Errorf("scan vehicle count: %w", err)
		}
		counts = append(counts, vc)
	}
	return counts, rows.Err()
}

// VehiclesInCollision lists the vehicle types that participated in one
// collision, through the junction table, ordered by type name.
func (r *Repo) VehiclesInCollision(ctx context.Context, collisionID int64) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT v.vehicle
		FROM vehicle_collisions vc
		JOIN vehicles v ON v.id = vc.vehicle_id
		WHERE vc.collision_id = $1
		ORDER BY v.vehicle`, collisionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}
