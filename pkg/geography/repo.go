// Package geography queries the one-to-many states/cities dataset.
package geography

import (
	"context"
	"fmt"

	"github.com/barnardcsc/workshopdb/pkg/dataset"
	"github.com/barnardcsc/workshopdb/pkg/pgdb"
)

// State is one row of the states table.
type State struct {
	ID           int
	Name         string
	Abbreviation string
	Population   *int
}

// City is one row of the cities table.
type City struct {
	ID      int
	StateID int
	Name    string
}

// CityState pairs a city with its state. Both tables carry a "name"
// column, so the join must alias them apart or the engine rejects the
// column reference as ambiguous.
type CityState struct {
	City         string
	State        string
	Abbreviation string
}

// CityCount is the number of cities recorded per state.
type CityCount struct {
	State  string
	Cities int
}

// Repo runs the geography queries.
type Repo struct {
	db *pgdb.DB
}

// NewRepo creates a geography repository.
func NewRepo(db *pgdb.DB) *Repo {
	return &Repo{db: db}
}

// InsertState adds a state and returns its generated id. Reusing a name
// or abbreviation fails with pgdb.ErrDuplicate.
func (r *Repo) InsertState(ctx context.Context, name, abbreviation string, population int) (int, error) {
	var id int
	err := r.db.QueryRow(ctx,
		"INSERT INTO states (name, abbreviation, population) VALUES ($1, $2, $3) RETURNING id",
		name, abbreviation, population,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert state %s: %w", name, pgdb.MapError(err))
	}
	return id, nil
}

// InsertCity adds a city and returns its generated id. An unknown state
// id fails with pgdb.ErrForeignKey.
func (r *Repo) InsertCity(ctx context.Context, stateID int, name string) (int, error) {
	var id int
	err := r.db.QueryRow(ctx,
		"INSERT INTO cities (state_id, name) VALUES ($1, $2) RETURNING id",
		stateID, name,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert city %s: %w", name, pgdb.MapError(err))
	}
	return id, nil
}

// ListStates returns all states ordered by name.
func (r *Repo) ListStates(ctx context.Context) ([]State, error) {
	rows, err := r.db.Query(ctx,
		"SELECT id, name, abbreviation, population FROM states ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var states []State
	for rows.Next() {
		var s State
		if err := rows.Scan(&s.ID, &s.Name, &s.Abbreviation, &s.Population); err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		states = append(states, s)
	}
	return states, rows.Err()
}

// CitiesWithStates joins cities to their states with table aliases,
// ordered by city name.
func (r *Repo) CitiesWithStates(ctx context.Context) ([]CityState, error) {
	rows, err := r.db.Query(ctx, `
		SELECT c.name AS city, s.name AS state, s.abbreviation
		FROM cities c
		JOIN states s ON s.id = c.state_id
		ORDER BY c.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pairs []CityState
	for rows.Next() {
		var p CityState
		if err := rows.Scan(&p.City, &p.State, &p.Abbreviation); err != nil {
			return nil, fmt.Errorf("scan city/state pair: %w", err)
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

// CitiesPerState counts cities per state, most cities first, ties broken
// by state name.
func (r *Repo) CitiesPerState(ctx context.Context) ([]CityCount, error) {
	rows, err := r.db.Query(ctx, `
		SELECT s.name AS state, COUNT(c.id) AS cities
		FROM states s
		LEFT JOIN cities c ON c.state_id = s.id
		GROUP BY s.name
		ORDER BY cities DESC, state`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []CityCount
	for rows.Next() {
		var cc CityCount
		if err := rows.Scan(&cc.State, &cc.Cities); err != nil {
			return nil, fmt.Errorf("scan city count: %w", err)
		}
		counts = append(counts, cc)
	}
	return counts, rows.Err()
}

// Seed inserts the workshop's states and cities with their canonical ids,
// then advances the id sequences past the seeded values. Seeding twice is
// a no-op.
func (r *Repo) Seed(ctx context.Context) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, s := range dataset.StateSeeds {
		_, err := tx.Exec(ctx,
			`INSERT INTO states (id, name, abbreviation, population) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO NOTHING`,
			s.ID, s.Name, s.Abbreviation, s.Population,
		)
		if err != nil {
			return fmt.Errorf("seed state %s: %w", s.Name, pgdb.MapError(err))
		}
	}

	for _, c := range dataset.CitySeeds {
		_, err := tx.Exec(ctx,
			`INSERT INTO cities (id, state_id, name) VALUES ($1, $2, $3)
			 ON CONFLICT (id) DO NOTHING`,
			c.ID, c.StateID, c.Name,
		)
		if err != nil {
			return fmt.Errorf("seed city %s: %w", c.Name, pgdb.MapError(err))
		}
	}

	for _, table := range []string{"states", "cities"} {
		_, err := tx.Exec(ctx, fmt.Sprintf(
			"SELECT setval(pg_get_serial_sequence('%s', 'id'), (SELECT MAX(id) FROM %s))", table, table))
		if err != nil {
			return fmt.Errorf("advance %s sequence: %w", table, err)
		}
	}

	return tx.Commit(ctx)
}
