// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"testing"

	"mssqlops-cli/internal/dbcc"
)

// resetCheckdbFlags returns the package flag vars to their defaults
// after a test mutates them. Not parallel-safe.
func resetCheckdbFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		checkdbAllDatabases = false
		checkdbNoIndex = false
		checkdbPhysicalOnly = false
		checkdbDataPurity = false
		checkdbExtendedLogical = false
		checkdbTabLock = false
		checkdbEstimateOnly = false
		checkdbMaxDOP = 0
		checkdbRepair = false
		checkdbAcceptDataLoss = false
		checkdbInfoMessages = false
	})
}

func TestCheckdbOptions_Defaults(t *testing.T) {
	resetCheckdbFlags(t)

	opts := checkdbOptions()
	if opts != (dbcc.Options{}) {
		t.Errorf("default flags should map to the zero Options, got %+v", opts)
	}
}

func TestCheckdbOptions_RepairEscalation(t *testing.T) {
	resetCheckdbFlags(t)

	checkdbRepair = true
	if got := checkdbOptions().Repair; got != dbcc.RepairRebuild {
		t.Errorf("--repair alone should map to REPAIR_REBUILD, got %v", got)
	}

	checkdbAcceptDataLoss = true
	if got := checkdbOptions().Repair; got != dbcc.RepairAllowDataLoss {
		t.Errorf("--repair --accept-data-loss should map to REPAIR_ALLOW_DATA_LOSS, got %v", got)
	}
}

func TestCheckdbOptions_AcceptDataLossWithoutRepair(t *testing.T) {
	resetCheckdbFlags(t)

	// --accept-data-loss without --repair must not request any repair.
	checkdbAcceptDataLoss = true
	if got := checkdbOptions().Repair; got != dbcc.RepairNone {
		t.Errorf("--accept-data-loss alone should not enable repair, got %v", got)
	}
}

func TestReportsCorruption(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		summary   dbcc.Summary
		errorRows int
		want      bool
	}{
		{
			name:    "clean summary",
			summary: dbcc.Summary{Found: true},
			want:    false,
		},
		{
			name:    "summary with errors",
			summary: dbcc.Summary{Found: true, AllocationErrors: 1, ConsistencyErrors: 2},
			want:    true,
		},
		{
			// The summary wins even when error rows were printed; it is
			// the server's final word on what CHECKDB found.
			name:      "clean summary with stray error rows",
			summary:   dbcc.Summary{Found: true},
			errorRows: 3,
			want:      false,
		},
		{
			name: "no summary and no error rows",
			want: false,
		},
		{
			// A missing or unparseable summary must not hide printed
			// integrity errors behind a clean exit.
			name:      "no summary but error rows present",
			errorRows: 2,
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := reportsCorruption(tt.summary, tt.errorRows); got != tt.want {
				t.Errorf("reportsCorruption(%+v, %d) = %v, want %v", tt.summary, tt.errorRows, got, tt.want)
			}
		})
	}
}

func TestCheckdbOptions_FlagMapping(t *testing.T) {
	resetCheckdbFlags(t)

	checkdbNoIndex = true
	checkdbTabLock = true
	checkdbMaxDOP = 4
	checkdbInfoMessages = true

	opts := checkdbOptions()
	if !opts.NoIndex || !opts.TabLock || opts.MaxDOP != 4 || !opts.InfoMessages {
		t.Errorf("flag mapping wrong: %+v", opts)
	}
}
