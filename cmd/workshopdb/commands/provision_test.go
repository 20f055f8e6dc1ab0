package commands

import (
	"strings"
	"testing"
)

func TestProvisionUpRejectsInteractiveDryRun(t *testing.T) {
	origDB, origInteractive, origDryRun := dbURL, interactive, dryRun
	defer func() {
		dbURL, interactive, dryRun = origDB, origInteractive, origDryRun
	}()

	dbURL = "postgres://localhost:5432/workshop"
	interactive = true
	dryRun = true

	err := runProvisionUp()
	if err == nil {
		t.Fatal("expected error for --interactive with --dry-run, got nil")
	}
	if !strings.Contains(err.Error(), "--dry-run") || !strings.Contains(err.Error(), "--interactive") {
		t.Errorf("error should name both flags, got: %v", err)
	}
}
