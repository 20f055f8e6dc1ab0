package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/barnardcsc/workshopdb/cmd/workshopdb/output"
	"github.com/barnardcsc/workshopdb/cmd/workshopdb/tui"
	"github.com/barnardcsc/workshopdb/pkg/dataset"
	"github.com/barnardcsc/workshopdb/pkg/provision"
)

var (
	// Provision flags
	dryRun      bool
	datasetName string
	interactive bool
)

// provisionCmd represents the provision command
var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Create the workshop tables and views",
	Long: `Create the workshop tables and views on the target database.

Subcommands:
  up      - Apply pending provisioning steps
  status  - Show provisioning status
  reset   - Drop a dataset and clear its step records`,
}

// provisionUpCmd applies pending steps
var provisionUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending provisioning steps",
	Long: `Apply pending provisioning steps to create the workshop schemas.

Examples:
  workshopdb provision up                       # Provision every dataset
  workshopdb provision up --dataset shop        # Provision one dataset
  workshopdb provision up --dry-run             # Preview without applying
  workshopdb provision up --interactive         # Step through in the TUI`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProvisionUp()
	},
}

// provisionStatusCmd shows provisioning status
var provisionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show provisioning status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProvisionStatus()
	},
}

// provisionResetCmd drops a dataset
var provisionResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop a dataset's views and tables",
	Long: `Drop a dataset's views and tables (children before parents) and clear
its step records so it can be provisioned again.

Examples:
  workshopdb provision reset --dataset collisions`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProvisionReset()
	},
}

func init() {
	rootCmd.AddCommand(provisionCmd)
	provisionCmd.AddCommand(provisionUpCmd, provisionStatusCmd, provisionResetCmd)

	provisionUpCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Run in interactive mode with TUI")
	provisionUpCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview steps without applying")
	provisionUpCmd.Flags().StringVar(&datasetName, "dataset", "", "Limit to one dataset")

	provisionStatusCmd.Flags().StringVar(&datasetName, "dataset", "", "Limit to one dataset")

	provisionResetCmd.Flags().StringVar(&datasetName, "dataset", "", "Dataset to drop (required)")
	_ = provisionResetCmd.MarkFlagRequired("dataset")
}

func selectedDatasets() ([]dataset.Dataset, error) {
	if datasetName == "" {
		return dataset.All(), nil
	}
	d, err := dataset.ByName(datasetName)
	if err != nil {
		return nil, err
	}
	return []dataset.Dataset{d}, nil
}

func runProvisionUp() error {
	if interactive && dryRun {
		return fmt.Errorf("--dry-run cannot be combined with --interactive")
	}

	if err := requireDB(); err != nil {
		return err
	}

	datasets, err := selectedDatasets()
	if err != nil {
		return err
	}

	if interactive {
		return tui.RunProvisionUI(dbURL, datasets)
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	prov := provision.NewProvisioner(pool)

	if err := prov.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize provisioning: %w", err)
	}

	if !dryRun {
		if err := prov.Lock(ctx); err != nil {
			return fmt.Errorf("failed to acquire provision lock: %w", err)
		}
		defer func() { _ = prov.Unlock(ctx) }()
	}

	applied, err := prov.AppliedSteps(ctx)
	if err != nil {
		return err
	}

	if dryRun {
		output.Section("DRY RUN - Preview")
		pending := 0
		for _, d := range datasets {
			for _, step := range d.Steps() {
				if applied[step.Name] {
					continue
				}
				pending++
				fmt.Printf("  %s %s\n", output.StatusIcon("pending"), step.Name)
				if verbose {
					fmt.Println(step.SQL)
				}
			}
		}
		if pending == 0 {
			output.Info("Nothing to apply")
		}
		return nil
	}

	output.Section("Provisioning")
	total := 0
	for _, d := range datasets {
		for _, step := range d.Steps() {
			if applied[step.Name] {
				continue
			}
			if verbose {
				output.Info("Applying %s...", step.Name)
			}
			if err := prov.Apply(ctx, d.Name, step, false); err != nil {
				output.Error("Failed to apply %s: %v", step.Name, err)
				return err
			}
			output.Success("Applied %s", step.Name)
			total++
		}
	}

	if total == 0 {
		output.Info("Nothing to apply")
		return nil
	}
	fmt.Println()
	output.Success("Successfully applied %d step(s)", total)
	return nil
}

func runProvisionStatus() error {
	if err := requireDB(); err != nil {
		return err
	}

	datasets, err := selectedDatasets()
	if err != nil {
		return err
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	prov := provision.NewProvisioner(pool)
	if err := prov.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize provisioning: %w", err)
	}

	records, err := prov.Status(ctx, datasets)
	if err != nil {
		return err
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(records)
	}

	output.Section("Provisioning Status")
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tDATASET\tSTATUS\tAPPLIED AT")
	for _, r := range records {
		appliedAt := ""
		if r.AppliedAt != nil {
			appliedAt = r.AppliedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%s %s\t%s\t%s\t%s\n",
			output.StatusIcon(string(r.Status)), r.Name, r.Dataset, r.Status, appliedAt)
	}
	return w.Flush()
}

func runProvisionReset() error {
	if err := requireDB(); err != nil {
		return err
	}

	d, err := dataset.ByName(datasetName)
	if err != nil {
		return err
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	prov := provision.NewProvisioner(pool)
	if err := prov.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize provisioning: %w", err)
	}
	if err := prov.Lock(ctx); err != nil {
		return fmt.Errorf("failed to acquire provision lock: %w", err)
	}
	defer func() { _ = prov.Unlock(ctx) }()

	if err := prov.Reset(ctx, d); err != nil {
		return err
	}

	output.Success("Dropped dataset %s", d.Name)
	return nil
}
