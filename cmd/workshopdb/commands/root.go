package commands

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	dbURL      string
	verbose    bool
	jsonOutput bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "workshopdb",
	Short: "workshopdb - PostgreSQL example datasets for the SQL workshop",
	Long: `workshopdb provisions and explores the SQL workshop's example datasets
on a PostgreSQL database.

Datasets:
  geography  - states and cities (one-to-many via foreign key)
  shop       - customers, items and sales (many-to-many via junction table)
  collisions - NYC motor-vehicle collisions, loaded from CSV files

Commands cover the full lesson arc: create the tables and views, seed the
canonical rows, import the collision CSVs, and run the aggregate reports.`,
	Version: "1.2.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A .env file is optional; an explicit --db flag wins.
		_ = godotenv.Load()
		if dbURL == "" {
			dbURL = os.Getenv("DATABASE_URL")
		}
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "Database connection URL (defaults to DATABASE_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
}

func requireDB() error {
	if dbURL == "" {
		return fmt.Errorf("--db flag or DATABASE_URL is required")
	}
	return nil
}
