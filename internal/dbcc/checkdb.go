// SPDX-License-Identifier: MPL-2.0

// Package dbcc assembles DBCC CHECKDB statements from option flags and
// normalizes the heterogeneous TABLERESULTS rows that different server
// versions return.
package dbcc

import (
	"errors"
	"fmt"
	"strings"
)

// RepairLevel selects the repair clause inside the DBCC argument list.
type RepairLevel int

const (
	// RepairNone runs a check only.
	RepairNone RepairLevel = iota
	// RepairRebuild performs repairs with no possibility of data loss.
	RepairRebuild
	// RepairAllowDataLoss performs all repairs, including ones that
	// deallocate damaged pages. Requires explicit operator consent.
	RepairAllowDataLoss
)

// maxDOPCeiling matches the server-side MAXDOP limit for DBCC.
const maxDOPCeiling = 64

// MaxDOPMinMajor is the first server major version whose DBCC CHECKDB
// accepts a MAXDOP option (13 = SQL Server 2016).
const MaxDOPMinMajor = 13

var (
	// ErrConflictingOptions is returned for mutually exclusive flag combinations.
	ErrConflictingOptions = errors.New("conflicting DBCC options")
	// ErrDataLossNotAccepted is returned when REPAIR_ALLOW_DATA_LOSS is
	// requested without the explicit consent flag.
	ErrDataLossNotAccepted = errors.New("repair level allows data loss but --accept-data-loss was not given")
	// ErrMaxDOPUnsupported is returned when MAXDOP is requested against a
	// server version that does not support it.
	ErrMaxDOPUnsupported = errors.New("MAXDOP requires SQL Server 2016 or newer")
)

// Options describes one DBCC CHECKDB invocation. The zero value is a
// plain full check with table results, all error messages, and
// informational messages suppressed.
type Options struct {
	// NoIndex skips nonclustered index checks. Exclusive with Repair.
	NoIndex bool
	// PhysicalOnly limits checks to physical structures. Exclusive with
	// DataPurity and ExtendedLogicalChecks.
	PhysicalOnly bool
	// DataPurity checks column values for out-of-range data.
	DataPurity bool
	// ExtendedLogicalChecks runs logical checks on indexed views, XML
	// indexes, and spatial indexes.
	ExtendedLogicalChecks bool
	// TabLock uses table locks instead of an internal snapshot.
	TabLock bool
	// EstimateOnly reports tempdb space needed instead of checking.
	EstimateOnly bool
	// MaxDOP caps parallelism; zero leaves the server default.
	MaxDOP int
	// Repair selects the repair clause; the target database must be in
	// single-user mode for any repair.
	Repair RepairLevel
	// AcceptDataLoss is the operator's consent for RepairAllowDataLoss.
	AcceptDataLoss bool
	// InfoMessages includes informational messages (drops NO_INFOMSGS).
	InfoMessages bool
}

// Validate rejects option combinations the server would refuse, before
// anything is sent to it. major is the connected server's major version.
func (o Options) Validate(major int) error {
	if o.PhysicalOnly && o.DataPurity {
		return fmt.Errorf("%w: PHYSICAL_ONLY and DATA_PURITY", ErrConflictingOptions)
	}
	if o.PhysicalOnly && o.ExtendedLogicalChecks {
		return fmt.Errorf("%w: PHYSICAL_ONLY and EXTENDED_LOGICAL_CHECKS", ErrConflictingOptions)
	}
	if o.EstimateOnly && o.Repair != RepairNone {
		return fmt.Errorf("%w: ESTIMATEONLY and repair", ErrConflictingOptions)
	}
	if o.NoIndex && o.Repair != RepairNone {
		return fmt.Errorf("%w: NOINDEX and repair", ErrConflictingOptions)
	}
	if o.Repair == RepairAllowDataLoss && !o.AcceptDataLoss {
		return ErrDataLossNotAccepted
	}
	if o.MaxDOP < 0 || o.MaxDOP > maxDOPCeiling {
		return fmt.Errorf("MAXDOP %d out of range 0..%d", o.MaxDOP, maxDOPCeiling)
	}
	if o.MaxDOP > 0 && major < MaxDOPMinMajor {
		return ErrMaxDOPUnsupported
	}
	return nil
}

// Statement builds the DBCC CHECKDB statement for one database.
// Callers must Validate first; Statement does not re-check.
func (o Options) Statement(database string) string {
	var b strings.Builder

	b.WriteString("DBCC CHECKDB (N'")
	b.WriteString(escapeLiteral(database))
	b.WriteString("'")
	switch {
	case o.Repair == RepairRebuild:
		b.WriteString(", REPAIR_REBUILD")
	case o.Repair == RepairAllowDataLoss:
		b.WriteString(", REPAIR_ALLOW_DATA_LOSS")
	case o.NoIndex:
		b.WriteString(", NOINDEX")
	}
	b.WriteString(")")

	with := []string{"TABLERESULTS", "ALL_ERRORMSGS"}
	if !o.InfoMessages {
		with = append(with, "NO_INFOMSGS")
	}
	if o.PhysicalOnly {
		with = append(with, "PHYSICAL_ONLY")
	}
	if o.DataPurity {
		with = append(with, "DATA_PURITY")
	}
	if o.ExtendedLogicalChecks {
		with = append(with, "EXTENDED_LOGICAL_CHECKS")
	}
	if o.TabLock {
		with = append(with, "TABLOCK")
	}
	if o.EstimateOnly {
		with = append(with, "ESTIMATEONLY")
	}
	if o.MaxDOP > 0 {
		with = append(with, fmt.Sprintf("MAXDOP = %d", o.MaxDOP))
	}

	b.WriteString(" WITH ")
	b.WriteString(strings.Join(with, ", "))
	return b.String()
}

// escapeLiteral doubles single quotes for embedding in an N'...' literal.
// DBCC does not accept parameter markers, so the name is inlined.
func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
