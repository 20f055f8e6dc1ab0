//go:build integration
// +build integration

package workshopdb_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/barnardcsc/workshopdb/pkg/collisions"
	"github.com/barnardcsc/workshopdb/pkg/dataset"
	"github.com/barnardcsc/workshopdb/pkg/geography"
	"github.com/barnardcsc/workshopdb/pkg/pgdb"
	"github.com/barnardcsc/workshopdb/pkg/provision"
	"github.com/barnardcsc/workshopdb/pkg/shop"
)

// setupTestDB creates a PostgreSQL container and returns connection details
func setupTestDB(t *testing.T) (string, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	cleanup := func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return connStr, cleanup
}

// provisionAll applies every dataset's steps in order.
func provisionAll(t *testing.T, db *pgdb.DB) *provision.Provisioner {
	ctx := context.Background()

	prov := provision.NewProvisioner(db.Pool())
	if err := prov.Initialize(ctx); err != nil {
		t.Fatalf("Failed to initialize provisioning: %v", err)
	}
	if err := prov.Lock(ctx); err != nil {
		t.Fatalf("Failed to acquire provisioning lock: %v", err)
	}
	defer prov.Unlock(ctx)

	for _, d := range dataset.All() {
		if err := prov.ApplyDataset(ctx, d, false); err != nil {
			t.Fatalf("Failed to provision dataset %s: %v", d.Name, err)
		}
	}
	return prov
}

func TestIntegration_ProvisionAndStatus(t *testing.T) {
	connStr, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	db, err := pgdb.ConnectURL(ctx, connStr)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	prov := provisionAll(t, db)

	t.Run("All steps applied", func(t *testing.T) {
		records, err := prov.Status(ctx, dataset.All())
		if err != nil {
			t.Fatalf("Failed to get status: %v", err)
		}

		var total int
		for _, d := range dataset.All() {
			total += len(d.Steps())
		}
		if len(records) != total {
			t.Fatalf("Expected %d status records, got %d", total, len(records))
		}

		for _, r := range records {
			if r.Status != provision.StatusApplied {
				t.Errorf("Step %s: expected applied, got %s", r.Name, r.Status)
			}
			if r.AppliedAt == nil {
				t.Errorf("Step %s: expected applied_at timestamp", r.Name)
			}
		}
	})

	t.Run("Reapply is a no-op", func(t *testing.T) {
		shopDS, err := dataset.ByName("shop")
		if err != nil {
			t.Fatalf("Failed to find shop dataset: %v", err)
		}
		if err := prov.ApplyDataset(ctx, shopDS, false); err != nil {
			t.Fatalf("Reapplying provisioned dataset failed: %v", err)
		}
	})

	t.Run("Reset drops the dataset", func(t *testing.T) {
		geoDS, err := dataset.ByName("geography")
		if err != nil {
			t.Fatalf("Failed to find geography dataset: %v", err)
		}
		if err := prov.Reset(ctx, geoDS); err != nil {
			t.Fatalf("Failed to reset geography: %v", err)
		}

		_, err = db.Exec(ctx, "SELECT COUNT(*) FROM states")
		if !errors.Is(err, pgdb.ErrUndefinedTable) {
			t.Errorf("Expected undefined table after reset, got %v", err)
		}

		// Reset leaves the dataset reprovisionable
		if err := prov.ApplyDataset(ctx, geoDS, false); err != nil {
			t.Fatalf("Failed to reprovision geography after reset: %v", err)
		}
	})

	t.Run("Lock round-trip", func(t *testing.T) {
		// The advisory lock must be released on the same session that
		// took it, even with concurrent pool traffic between the two.
		locker := provision.NewProvisioner(db.Pool()).WithLockID(900001)
		if err := locker.Lock(ctx); err != nil {
			t.Fatalf("Failed to lock: %v", err)
		}
		for i := 0; i < 10; i++ {
			if _, err := db.Exec(ctx, "SELECT 1"); err != nil {
				t.Fatalf("Query while holding lock failed: %v", err)
			}
		}
		if err := locker.Unlock(ctx); err != nil {
			t.Fatalf("Failed to unlock: %v", err)
		}
		if err := locker.Unlock(ctx); err == nil {
			t.Error("Second unlock should report the lock is not held")
		}
	})
}

func TestIntegration_ShopQueries(t *testing.T) {
	connStr, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	db, err := pgdb.ConnectURL(ctx, connStr)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	provisionAll(t, db)

	repo := shop.NewRepo(db)
	if err := repo.Seed(ctx); err != nil {
		t.Fatalf("Failed to seed shop: %v", err)
	}

	t.Run("Revenue per customer", func(t *testing.T) {
		rows, err := repo.RevenuePerCustomer(ctx)
		if err != nil {
			t.Fatalf("Failed to query revenue: %v", err)
		}

		want := dataset.ExpectedRevenue()
		if len(rows) != len(want) {
			t.Fatalf("Expected %d customers, got %d", len(want), len(rows))
		}
		for _, r := range rows {
			if r.Revenue != want[r.CustomerID] {
				t.Errorf("Customer %d: expected %d cents, got %d", r.CustomerID, want[r.CustomerID], r.Revenue)
			}
		}
	})

	t.Run("Purchase frequency per item", func(t *testing.T) {
		rows, err := repo.PopularItems(ctx)
		if err != nil {
			t.Fatalf("Failed to query popularity: %v", err)
		}

		want := dataset.ExpectedPurchaseCounts()
		if len(rows) != len(want) {
			t.Fatalf("Expected %d items, got %d", len(want), len(rows))
		}
		for _, r := range rows {
			if r.Purchases != want[r.ItemID] {
				t.Errorf("Item %d (%s): expected %d purchases, got %d", r.ItemID, r.ItemName, want[r.ItemID], r.Purchases)
			}
		}

		// Ordering is part of the contract: most purchased first, ties by name
		for i := 1; i < len(rows); i++ {
			if rows[i].Purchases > rows[i-1].Purchases {
				t.Errorf("Rows out of order at index %d", i)
			}
		}
	})

	t.Run("Views match direct queries", func(t *testing.T) {
		direct, err := repo.RevenuePerCustomer(ctx)
		if err != nil {
			t.Fatalf("Failed to query revenue: %v", err)
		}
		viewed, err := repo.RevenuePerCustomerFromView(ctx)
		if err != nil {
			t.Fatalf("Failed to query revenue view: %v", err)
		}
		if len(direct) != len(viewed) {
			t.Fatalf("View returned %d rows, direct query %d", len(viewed), len(direct))
		}
		for i := range direct {
			if direct[i] != viewed[i] {
				t.Errorf("Row %d: view %+v differs from direct %+v", i, viewed[i], direct[i])
			}
		}
	})

	t.Run("Views reflect new sales without rebuild", func(t *testing.T) {
		before, err := repo.PopularItemsFromView(ctx)
		if err != nil {
			t.Fatalf("Failed to query popularity view: %v", err)
		}
		counts := make(map[int]int, len(before))
		for _, r := range before {
			counts[r.ItemID] = r.Purchases
		}

		if _, err := repo.RecordSale(ctx, 1, 2); err != nil {
			t.Fatalf("Failed to record sale: %v", err)
		}

		after, err := repo.PopularItemsFromView(ctx)
		if err != nil {
			t.Fatalf("Failed to query popularity view: %v", err)
		}
		for _, r := range after {
			want := counts[r.ItemID]
			if r.ItemID == 2 {
				want++
			}
			if r.Purchases != want {
				t.Errorf("Item %d: expected %d purchases after new sale, got %d", r.ItemID, want, r.Purchases)
			}
		}
	})

	t.Run("Sale for unknown customer is rejected", func(t *testing.T) {
		_, err := repo.RecordSale(ctx, 999, 1)
		if !errors.Is(err, pgdb.ErrForeignKey) {
			t.Errorf("Expected foreign key violation, got %v", err)
		}
	})

	t.Run("Negative price is rejected", func(t *testing.T) {
		_, err := repo.AddItem(ctx, "refund voucher", -500)
		if !errors.Is(err, pgdb.ErrCheckViolation) {
			t.Errorf("Expected check violation, got %v", err)
		}
	})

	t.Run("Loyalty flip", func(t *testing.T) {
		if err := repo.SetLoyaltyMember(ctx, 2, true); err != nil {
			t.Fatalf("Failed to update loyalty: %v", err)
		}
		if err := repo.SetLoyaltyMember(ctx, 999, true); err == nil {
			t.Error("Expected error updating unknown customer")
		}
	})
}

func TestIntegration_GeographyQueries(t *testing.T) {
	connStr, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	db, err := pgdb.ConnectURL(ctx, connStr)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	provisionAll(t, db)

	repo := geography.NewRepo(db)
	if err := repo.Seed(ctx); err != nil {
		t.Fatalf("Failed to seed geography: %v", err)
	}

	t.Run("Cities joined with their states", func(t *testing.T) {
		rows, err := repo.CitiesWithStates(ctx)
		if err != nil {
			t.Fatalf("Failed to query cities: %v", err)
		}
		if len(rows) != len(dataset.CitySeeds) {
			t.Fatalf("Expected %d cities, got %d", len(dataset.CitySeeds), len(rows))
		}
		for _, r := range rows {
			if r.City == "" || r.State == "" || len(r.Abbreviation) != 2 {
				t.Errorf("Incomplete row: %+v", r)
			}
		}
	})

	t.Run("Cities per state", func(t *testing.T) {
		rows, err := repo.CitiesPerState(ctx)
		if err != nil {
			t.Fatalf("Failed to aggregate: %v", err)
		}
		if len(rows) != len(dataset.StateSeeds) {
			t.Fatalf("Expected %d states, got %d", len(dataset.StateSeeds), len(rows))
		}
		var total int
		for i, r := range rows {
			total += r.Cities
			if i > 0 && r.Cities > rows[i-1].Cities {
				t.Errorf("Rows out of order at index %d", i)
			}
		}
		if total != len(dataset.CitySeeds) {
			t.Errorf("Expected %d cities across states, got %d", len(dataset.CitySeeds), total)
		}
	})

	t.Run("Duplicate abbreviation is rejected", func(t *testing.T) {
		_, err := repo.InsertState(ctx, "New York Again", "NY", 1)
		if !errors.Is(err, pgdb.ErrDuplicate) {
			t.Errorf("Expected unique violation, got %v", err)
		}
	})

	t.Run("City for unknown state is rejected", func(t *testing.T) {
		_, err := repo.InsertCity(ctx, 999, "Atlantis")
		if !errors.Is(err, pgdb.ErrForeignKey) {
			t.Errorf("Expected foreign key violation, got %v", err)
		}
	})

	t.Run("Unaliased join is ambiguous", func(t *testing.T) {
		_, err := db.Exec(ctx,
			"SELECT name FROM cities JOIN states ON cities.state_id = states.id")
		if !errors.Is(err, pgdb.ErrAmbiguousColumn) {
			t.Errorf("Expected ambiguous column error, got %v", err)
		}
	})
}

func TestIntegration_CollisionsImport(t *testing.T) {
	connStr, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	db, err := pgdb.ConnectURL(ctx, connStr)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	provisionAll(t, db)

	repo := collisions.NewRepo(db)

	collisionCSV := strings.Join([]string{
		"unique_key,date,time,borough,zip_code,latitude,longitude,on_street_name,cross_street_name,off_street_name",
		"4001,09/11/2021,9:35,BROOKLYN,11208,40.667,-73.866,ATLANTIC AVENUE,,",
		"4002,09/11/2021,14:30,,,not-a-number,,WHITESTONE EXPRESSWAY,20 AVENUE,",
		"4003,09/12/2021,0:15,QUEENS,11355,40.751,-73.820,,,144-54 41 AVENUE",
	}, "\n")

	t.Run("Tolerant CSV load", func(t *testing.T) {
		report, err := repo.ImportCollisions(ctx, strings.NewReader(collisionCSV))
		if err != nil {
			t.Fatalf("Failed to import collisions: %v", err)
		}
		if report.RowsCopied != 3 {
			t.Errorf("Expected 3 rows copied, got %d", report.RowsCopied)
		}
		// The malformed latitude on row 4002 loads as NULL
		if report.NullsCoerced != 1 {
			t.Errorf("Expected 1 coerced NULL, got %d", report.NullsCoerced)
		}

		total, err := repo.Total(ctx)
		if err != nil {
			t.Fatalf("Failed to count collisions: %v", err)
		}
		if total != 3 {
			t.Errorf("Expected 3 collisions, got %d", total)
		}
	})

	t.Run("Duplicate external id is rejected", func(t *testing.T) {
		_, err := repo.ImportCollisions(ctx, strings.NewReader(
			"unique_key,date,time,borough,zip_code,latitude,longitude,on_street_name,cross_street_name,off_street_name\n"+
				"4001,09/13/2021,8:00,BRONX,,,,,,\n"))
		if !errors.Is(err, pgdb.ErrDuplicate) {
			t.Errorf("Expected unique violation, got %v", err)
		}
	})

	t.Run("Vehicle associations", func(t *testing.T) {
		vehiclesCSV := strings.Join([]string{
			"collision_id,vehicle",
			"4001,Sedan",
			"4001,Bike",
			"4002,Sedan",
			"4003,Station Wagon/Sport Utility Vehicle",
			"4003,", // no vehicle type recorded
		}, "\n")

		linked, err := repo.ImportVehicles(ctx, strings.NewReader(vehiclesCSV))
		if err != nil {
			t.Fatalf("Failed to import vehicle associations: %v", err)
		}
		if linked != 4 {
			t.Errorf("Expected 4 associations, got %d", linked)
		}

		top, err := repo.TopVehicleTypes(ctx, 10)
		if err != nil {
			t.Fatalf("Failed to query vehicle types: %v", err)
		}
		if len(top) != 3 {
			t.Fatalf("Expected 3 vehicle types, got %d", len(top))
		}
		if top[0].Vehicle != "Sedan" || top[0].Collisions != 2 {
			t.Errorf("Expected Sedan with 2 collisions first, got %+v", top[0])
		}

		inCrash, err := repo.VehiclesInCollision(ctx, 4001)
		if err != nil {
			t.Fatalf("Failed to query vehicles in collision: %v", err)
		}
		if len(inCrash) != 2 {
			t.Errorf("Expected 2 vehicles in collision 4001, got %v", inCrash)
		}
	})

	t.Run("Association to missing collision is rejected", func(t *testing.T) {
		_, err := repo.ImportVehicles(ctx, strings.NewReader(
			"collision_id,vehicle\n9999,Sedan\n"))
		if !errors.Is(err, pgdb.ErrForeignKey) {
			t.Errorf("Expected foreign key violation, got %v", err)
		}
	})

	t.Run("Aggregations", func(t *testing.T) {
		perDay, err := repo.PerDay(ctx)
		if err != nil {
			t.Fatalf("Failed to query per-day counts: %v", err)
		}
		if len(perDay) != 2 {
			t.Fatalf("Expected 2 dates, got %d", len(perDay))
		}
		if perDay[0].Collisions != 2 || perDay[1].Collisions != 1 {
			t.Errorf("Expected counts [2 1], got %+v", perDay)
		}

		perHour, err := repo.PerHour(ctx)
		if err != nil {
			t.Fatalf("Failed to query per-hour counts: %v", err)
		}
		hours := make(map[int]int, len(perHour))
		for _, h := range perHour {
			hours[h.Hour] = h.Collisions
		}
		if hours[9] != 1 || hours[14] != 1 || hours[0] != 1 {
			t.Errorf("Unexpected hourly distribution: %v", hours)
		}
	})
}
