package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/barnardcsc/workshopdb/cmd/workshopdb/output"
	"github.com/barnardcsc/workshopdb/pkg/collisions"
	"github.com/barnardcsc/workshopdb/pkg/pgdb"
)

var (
	// Import flags
	collisionsFile string
	vehiclesFile   string
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import CSV files",
}

// importCollisionsCmd loads the collisions dataset
var importCollisionsCmd = &cobra.Command{
	Use:   "collisions",
	Short: "Import the collision CSV files",
	Long: `Import the two collision CSV files: the collision records and the
vehicle/collision associations.

The collision id comes from the source data, so the records file must
carry unique, non-empty ids. Malformed values in other columns load as
NULL. Association rows referencing a collision that is not in the
records file are rejected by the database's foreign key.

Examples:
  workshopdb import collisions --data collisions.csv --vehicles vehicle_collisions.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImportCollisions()
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.AddCommand(importCollisionsCmd)

	importCollisionsCmd.Flags().StringVar(&collisionsFile, "data", "", "Collision records CSV (required)")
	importCollisionsCmd.Flags().StringVar(&vehiclesFile, "vehicles", "", "Vehicle/collision association CSV")
	_ = importCollisionsCmd.MarkFlagRequired("data")
}

func runImportCollisions() error {
	if err := requireDB(); err != nil {
		return err
	}

	ctx := context.Background()

	db, err := pgdb.ConnectURL(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	repo := collisions.NewRepo(db)

	data, err := os.Open(collisionsFile)
	if err != nil {
		return fmt.Errorf("open collision records: %w", err)
	}
	defer data.Close()

	report, err := repo.ImportCollisions(ctx, data)
	if err != nil {
		return fmt.Errorf("import collisions: %w", err)
	}
	output.Success("Imported %d collision(s)", report.RowsCopied)
	if report.NullsCoerced > 0 {
		output.Warning("%d malformed field(s) loaded as NULL", report.NullsCoerced)
	}

	if vehiclesFile == "" {
		return nil
	}

	vehicles, err := os.Open(vehiclesFile)
	if err != nil {
		return fmt.Errorf("open vehicle associations: %w", err)
	}
	defer vehicles.Close()

	linked, err := repo.ImportVehicles(ctx, vehicles)
	if err != nil {
		return fmt.Errorf("import vehicle associations: %w", err)
	}
	output.Success("Linked %d vehicle record(s)", linked)
	return nil
}
