package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/barnardcsc/workshopdb/cmd/workshopdb/output"
	"github.com/barnardcsc/workshopdb/pkg/geography"
	"github.com/barnardcsc/workshopdb/pkg/pgdb"
	"github.com/barnardcsc/workshopdb/pkg/shop"
)

// seedCmd inserts the canonical workshop rows
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the workshop's canonical rows",
	Long: `Insert the workshop's canonical rows into the geography and shop
datasets. The collisions dataset is populated with 'import' instead.

Seeding is idempotent: rows that already exist are left alone.

Examples:
  workshopdb seed                      # Seed geography and shop
  workshopdb seed --dataset shop       # Seed one dataset`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSeed()
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringVar(&datasetName, "dataset", "", "Limit to one dataset (geography or shop)")
}

func runSeed() error {
	if err := requireDB(); err != nil {
		return err
	}

	ctx := context.Background()

	db, err := pgdb.ConnectURL(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	seedGeography := datasetName == "" || datasetName == "geography"
	seedShop := datasetName == "" || datasetName == "shop"
	if !seedGeography && !seedShop {
		return fmt.Errorf("dataset %q has no seed rows (collisions is loaded with 'import')", datasetName)
	}

	if seedGeography {
		if err := geography.NewRepo(db).Seed(ctx); err != nil {
			return fmt.Errorf("seed geography: %w", err)
		}
		output.Success("Seeded geography (states, cities)")
	}

	if seedShop {
		if err := shop.NewRepo(db).Seed(ctx); err != nil {
			return fmt.Errorf("seed shop: %w", err)
		}
		output.Success("Seeded shop (customers, items, sales)")
	}

	return nil
}
