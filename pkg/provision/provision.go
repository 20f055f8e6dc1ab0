// Package provision applies the datasets' ordered schema steps to a
// PostgreSQL database and tracks what has been applied.
package provision

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/barnardcsc/workshopdb/pkg/dataset"
)

// Status of a step in the tracking table.
type Status string

const (
	// StatusPending means the step has not been applied.
	StatusPending Status = "pending"
	// StatusApplied means the step has been applied.
	StatusApplied Status = "applied"
	// StatusFailed means the step failed to apply.
	StatusFailed Status = "failed"
)

// Record represents a step in the tracking table.
type Record struct {
	Name      string
	Dataset   string
	Status    Status
	AppliedAt *time.Time
	Error     *string
}

// Provisioner executes and tracks dataset provisioning steps.
type Provisioner struct {
	pool     *pgxpool.Pool
	lockID   int64 // PostgreSQL advisory lock ID
	lockConn *pgxpool.Conn
}

// NewProvisioner creates a new Provisioner.
func NewProvisioner(pool *pgxpool.Pool) *Provisioner {
	return &Provisioner{
		pool:   pool,
		lockID: 727450931,
	}
}

// WithLockID sets a custom advisory lock ID.
func (p *Provisioner) WithLockID(lockID int64) *Provisioner {
	p.lockID = lockID
	return p
}

// Initialize creates the workshop_steps tracking table if it doesn't exist.
func (p *Provisioner) Initialize(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS workshop_steps (
			name VARCHAR(255) PRIMARY KEY,
			dataset VARCHAR(100) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			applied_at TIMESTAMP,
			error TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_workshop_steps_dataset
		ON workshop_steps(dataset);
	`

	if _, err := p.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create workshop_steps table: %w", err)
	}
	return nil
}

// Lock acquires an advisory lock to prevent concurrent provisioning runs.
// Advisory locks are session-scoped, so the lock is taken on a dedicated
// connection held until Unlock; going through the pool could release on a
// different session than the one that locked.
func (p *Provisioner) Lock(ctx context.Context) error {
	if p.lockConn != nil {
		return fmt.Errorf("provision lock already held")
	}

	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection for provision lock: %w", err)
	}
	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", p.lockID); err != nil {
		conn.Release()
		return fmt.Errorf("failed to acquire provision lock: %w", err)
	}
	p.lockConn = conn
	return nil
}

// Unlock releases the advisory lock and returns its connection to the pool.
func (p *Provisioner) Unlock(ctx context.Context) error {
	if p.lockConn == nil {
		return fmt.Errorf("lock was not held")
	}

	var released bool
	err := p.lockConn.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", p.lockID).Scan(&released)
	p.lockConn.Release()
	p.lockConn = nil
	if err != nil {
		return fmt.Errorf("failed to release provision lock: %w", err)
	}
	if !released {
		return fmt.Errorf("lock was not held")
	}
	return nil
}

// AppliedSteps returns the names of all applied steps.
func (p *Provisioner) AppliedSteps(ctx context.Context) (map[string]bool, error) {
	rows, err := p.pool.Query(ctx,
		"SELECT name FROM workshop_steps WHERE status = 'applied'")
	if err != nil {
		return nil, fmt.Errorf("failed to query applied steps: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan step record: %w", err)
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

// Apply executes one step inside a transaction and records the outcome.
// A dry run records nothing and executes nothing.
func (p *Provisioner) Apply(ctx context.Context, ds string, step dataset.Step, dryRun bool) error {
	if dryRun {
		return nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO workshop_steps (name, dataset, status) VALUES ($1, $2, 'pending')
		 ON CONFLICT (name) DO UPDATE SET status = 'pending'`,
		step.Name, ds,
	)
	if err != nil {
		return fmt.Errorf("failed to record step: %w", err)
	}

	if _, err := tx.Exec(ctx, step.SQL); err != nil {
		// Record the failure outside the aborted transaction.
		_ = tx.Rollback(ctx)
		errMsg := err.Error()
		now := time.Now()
		_, _ = p.pool.Exec(ctx,
			`INSERT INTO workshop_steps (name, dataset, status, applied_at, error)
			 VALUES ($1, $2, 'failed', $3, $4)
			 ON CONFLICT (name) DO UPDATE SET status = 'failed', applied_at = $3, error = $4`,
			step.Name, ds, now, errMsg,
		)
		return fmt.Errorf("step %s failed: %w", step.Name, err)
	}

	now := time.Now()
	_, err = tx.Exec(ctx,
		"UPDATE workshop_steps SET status = 'applied', applied_at = $1, error = NULL WHERE name = $2",
		now, step.Name,
	)
	if err != nil {
		return fmt.Errorf("failed to update step status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit step: %w", err)
	}
	return nil
}

// ApplyDataset applies every pending step of a dataset in order. A failed
// step halts the run; already-applied steps are skipped.
func (p *Provisioner) ApplyDataset(ctx context.Context, d dataset.Dataset, dryRun bool) error {
	applied, err := p.AppliedSteps(ctx)
	if err != nil {
		return err
	}

	for _, step := range d.Steps() {
		if applied[step.Name] {
			continue
		}
		if err := p.Apply(ctx, d.Name, step, dryRun); err != nil {
			return fmt.Errorf("failed to apply %s: %w", step.Name, err)
		}
	}
	return nil
}

// Status returns one record per step of the given datasets, in step order.
func (p *Provisioner) Status(ctx context.Context, datasets []dataset.Dataset) ([]Record, error) {
	rows, err := p.pool.Query(ctx,
		"SELECT name, dataset, status, applied_at, error FROM workshop_steps")
	if err != nil {
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}
	defer rows.Close()

	known := make(map[string]Record)
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Name, &r.Dataset, &r.Status, &r.AppliedAt, &r.Error); err != nil {
			return nil, fmt.Errorf("failed to scan step record: %w", err)
		}
		known[r.Name] = r
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var records []Record
	for _, d := range datasets {
		for _, step := range d.Steps() {
			if r, ok := known[step.Name]; ok {
				records = append(records, r)
			} else {
				records = append(records, Record{
					Name:    step.Name,
					Dataset: d.Name,
					Status:  StatusPending,
				})
			}
		}
	}
	return records, nil
}

// Reset drops a dataset's views and tables (children first) and clears its
// tracking rows.
func (p *Provisioner) Reset(ctx context.Context, d dataset.Dataset) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range d.DropSQL() {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to drop: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, "DELETE FROM workshop_steps WHERE dataset = $1", d.Name); err != nil {
		return fmt.Errorf("failed to clear step records: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit reset: %w", err)
	}
	return nil
}
