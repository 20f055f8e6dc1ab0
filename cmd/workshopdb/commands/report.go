package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/barnardcsc/workshopdb/cmd/workshopdb/output"
	"github.com/barnardcsc/workshopdb/pkg/collisions"
	"github.com/barnardcsc/workshopdb/pkg/geography"
	"github.com/barnardcsc/workshopdb/pkg/pgdb"
	"github.com/barnardcsc/workshopdb/pkg/shop"
)

var topVehiclesLimit int

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Run the workshop's aggregate queries",
	Long: `Run the workshop's aggregate queries against the provisioned datasets.

Subcommands:
  cities               - Cities joined to their states
  cities-per-state     - City count per state
  popularity           - Purchase frequency per item
  revenue              - Revenue per customer (cents)
  collisions-by-day    - Collisions per date
  collisions-by-hour   - Collisions per hour of day
  collisions-by-weekday- Collisions per day of week
  top-vehicles         - Vehicle types by collision count`,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.AddCommand(
		reportQuery("cities", "Cities joined to their states", runCitiesReport),
		reportQuery("cities-per-state", "City count per state", runCitiesPerStateReport),
		reportQuery("popularity", "Purchase frequency per item", runPopularityReport),
		reportQuery("revenue", "Revenue per customer in cents", runRevenueReport),
		reportQuery("collisions-by-day", "Collisions per date", runCollisionsByDayReport),
		reportQuery("collisions-by-hour", "Collisions per hour of day", runCollisionsByHourReport),
		reportQuery("collisions-by-weekday", "Collisions per day of week", runCollisionsByWeekdayReport),
		reportQuery("top-vehicles", "Vehicle types by collision count", runTopVehiclesReport),
	)

	for _, c := range reportCmd.Commands() {
		if c.Use == "top-vehicles" {
			c.Flags().IntVar(&topVehiclesLimit, "limit", 10, "Number of vehicle types to list")
		}
	}
}

func reportQuery(use, short string, run func(context.Context, *pgdb.DB) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireDB(); err != nil {
				return err
			}
			ctx := context.Background()
			db, err := pgdb.ConnectURL(ctx, dbURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()
			return run(ctx, db)
		},
	}
}

func emit(title string, headers []string, rows [][]string, payload any) error {
	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(payload)
	}
	output.Section(title)
	return output.Table(headers, rows)
}

func runCitiesReport(ctx context.Context, db *pgdb.DB) error {
	pairs, err := geography.NewRepo(db).CitiesWithStates(ctx)
	if err != nil {
		return err
	}
	rows := make([][]string, len(pairs))
	for i, p := range pairs {
		rows[i] = []string{p.City, p.State, p.Abbreviation}
	}
	return emit("Cities", []string{"CITY", "STATE", "ABBR"}, rows, pairs)
}

func runCitiesPerStateReport(ctx context.Context, db *pgdb.DB) error {
	counts, err := geography.NewRepo(db).CitiesPerState(ctx)
	if err != nil {
		return err
	}
	rows := make([][]string, len(counts))
	for i, c := range counts {
		rows[i] = []string{c.State, strconv.Itoa(c.Cities)}
	}
	return emit("Cities per State", []string{"STATE", "CITIES"}, rows, counts)
}

func runPopularityReport(ctx context.Context, db *pgdb.DB) error {
	report, err := shop.NewRepo(db).PopularItemsFromView(ctx)
	if err != nil {
		return err
	}
	rows := make([][]string, len(report))
	for i, p := range report {
		rows[i] = []string{strconv.Itoa(p.ItemID), p.ItemName, strconv.Itoa(p.Purchases)}
	}
	return emit("Item Popularity", []string{"ID", "ITEM", "PURCHASES"}, rows, report)
}

func runRevenueReport(ctx context.Context, db *pgdb.DB) error {
	report, err := shop.NewRepo(db).RevenuePerCustomerFromView(ctx)
	if err != nil {
		return err
	}
	rows := make([][]string, len(report))
	for i, r := range report {
		rows[i] = []string{strconv.Itoa(r.CustomerID), r.CustomerName, strconv.Itoa(r.Revenue)}
	}
	return emit("Customer Revenue", []string{"ID", "CUSTOMER", "REVENUE (CENTS)"}, rows, report)
}

func runCollisionsByDayReport(ctx context.Context, db *pgdb.DB) error {
	counts, err := collisions.NewRepo(db).PerDay(ctx)
	if err != nil {
		return err
	}
	rows := make([][]string, len(counts))
	for i, c := range counts {
		rows[i] = []string{c.Date.Format("2006-01-02"), strconv.Itoa(c.Collisions)}
	}
	return emit("Collisions per Day", []string{"DATE", "COLLISIONS"}, rows, counts)
}

func runCollisionsByHourReport(ctx context.Context, db *pgdb.DB) error {
	counts, err := collisions.NewRepo(db).PerHour(ctx)
	if err != nil {
		return err
	}
	rows := make([][]string, len(counts))
	for i, c := range counts {
		rows[i] = []string{fmt.Sprintf("%02d:00", c.Hour), strconv.Itoa(c.Collisions)}
	}
	return emit("Collisions per Hour", []string{"HOUR", "COLLISIONS"}, rows, counts)
}

func runCollisionsByWeekdayReport(ctx context.Context, db *pgdb.DB) error {
	counts, err := collisions.NewRepo(db).PerWeekday(ctx)
	if err != nil {
		return err
	}
	rows := make([][]string, len(counts))
	for i, c := range counts {
		rows[i] = []string{time.Weekday(c.Weekday).String(), strconv.Itoa(c.Collisions)}
	}
	return emit("Collisions per Weekday", []string{"WEEKDAY", "COLLISIONS"}, rows, counts)
}

func runTopVehiclesReport(ctx context.Context, db *pgdb.DB) error {
	counts, err := collisions.NewRepo(db).TopVehicleTypes(ctx, topVehiclesLimit)
	if err != nil {
		return err
	}
	rows := make([][]string, len(counts))
	for i, c := range counts {
		rows[i] = []string{c.Vehicle, strconv.Itoa(c.Collisions)}
	}
	return emit("Top Vehicle Types", []string{"VEHICLE", "COLLISIONS"}, rows, counts)
}
