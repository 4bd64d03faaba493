// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"mssqlops-cli/internal/dbcc"
	"mssqlops-cli/internal/instance"
	"mssqlops-cli/internal/issue"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	checkdbAllDatabases    bool
	checkdbNoIndex         bool
	checkdbPhysicalOnly    bool
	checkdbDataPurity      bool
	checkdbExtendedLogical bool
	checkdbTabLock         bool
	checkdbEstimateOnly    bool
	checkdbMaxDOP          int
	checkdbRepair          bool
	checkdbAcceptDataLoss  bool
	checkdbInfoMessages    bool
)

var checkdbCmd = &cobra.Command{
	Use:   "checkdb",
	Short: "Run DBCC CHECKDB integrity checks",
	Long: `Run DBCC CHECKDB against one database (--database) or every
accessible online database (--all-databases, tempdb excluded).

The check runs WITH TABLERESULTS; rows are normalized across server
versions and integrity errors are printed as a table. The command
exits non-zero when any database reports corruption.

Repairs require the target database to be in single-user mode.
--repair performs REPAIR_REBUILD; adding --accept-data-loss escalates
to REPAIR_ALLOW_DATA_LOSS.`,
	Args: cobra.NoArgs,
	RunE: runCheckdb,
}

func init() {
	f := checkdbCmd.Flags()
	f.BoolVar(&checkdbAllDatabases, "all-databases", false, "check every accessible online database")
	f.BoolVar(&checkdbNoIndex, "no-index", false, "skip nonclustered index checks (NOINDEX)")
	f.BoolVar(&checkdbPhysicalOnly, "physical-only", false, "limit checks to physical structures (PHYSICAL_ONLY)")
	f.BoolVar(&checkdbDataPurity, "data-purity", false, "check column values for out-of-range data (DATA_PURITY)")
	f.BoolVar(&checkdbExtendedLogical, "extended-logical-checks", false, "run extended logical checks on indexed views and XML/spatial indexes")
	f.BoolVar(&checkdbTabLock, "tablock", false, "use table locks instead of an internal snapshot (TABLOCK)")
	f.BoolVar(&checkdbEstimateOnly, "estimate-only", false, "report tempdb space needed instead of checking (ESTIMATEONLY)")
	f.IntVar(&checkdbMaxDOP, "max-dop", 0, "cap parallelism (MAXDOP, SQL Server 2016+)")
	f.BoolVar(&checkdbRepair, "repair", false, "perform REPAIR_REBUILD")
	f.BoolVar(&checkdbAcceptDataLoss, "accept-data-loss", false, "with --repair, escalate to REPAIR_ALLOW_DATA_LOSS")
	f.BoolVar(&checkdbInfoMessages, "verbose-messages", false, "include informational messages (drop NO_INFOMSGS)")
}

func checkdbOptions() dbcc.Options {
	opts := dbcc.Options{
		NoIndex:               checkdbNoIndex,
		PhysicalOnly:          checkdbPhysicalOnly,
		DataPurity:            checkdbDataPurity,
		ExtendedLogicalChecks: checkdbExtendedLogical,
		TabLock:               checkdbTabLock,
		EstimateOnly:          checkdbEstimateOnly,
		MaxDOP:                checkdbMaxDOP,
		AcceptDataLoss:        checkdbAcceptDataLoss,
		InfoMessages:          checkdbInfoMessages,
	}
	if checkdbRepair {
		opts.Repair = dbcc.RepairRebuild
		if checkdbAcceptDataLoss {
			opts.Repair = dbcc.RepairAllowDataLoss
		}
	}
	return opts
}

const onlineDatabasesQuery = `SELECT name FROM sys.databases
WHERE state_desc = N'ONLINE'
  AND name <> N'tempdb'
  AND HAS_DBACCESS(name) = 1
ORDER BY name`

func runCheckdb(cmd *cobra.Command, args []string) error {
	if checkdbAllDatabases == (flagDatabase != "") {
		return fmt.Errorf("exactly one of --database or --all-databases is required")
	}

	return withConn(func(ctx context.Context, conn *instance.Conn) error {
		opts := checkdbOptions()
		if err := opts.Validate(conn.Version.Major); err != nil {
			return err
		}

		var databases []string
		if checkdbAllDatabases {
			rows, err := conn.DB.QueryContext(ctx, onlineDatabasesQuery)
			if err != nil {
				return issue.WrapWithContext(err, "enumerate databases", conn.Target.Addr())
			}
			defer rows.Close()
			for rows.Next() {
				var name string
				if err := rows.Scan(&name); err != nil {
					return issue.WrapWithOperation(err, "read database name")
				}
				databases = append(databases, name)
			}
			if err := rows.Err(); err != nil {
				return issue.WrapWithOperation(err, "enumerate databases")
			}
		} else {
			databases = []string{flagDatabase}
		}

		var corrupt, failed []string
		for _, db := range databases {
			summary, errorRows, err := checkOneDatabase(ctx, conn, db, opts)
			if err != nil {
				// Per-database failures are warnings; the loop continues.
				log.Warn("check failed", "database", db, "err", err)
				failed = append(failed, db)
				continue
			}
			switch {
			case !reportsCorruption(summary, errorRows):
				fmt.Printf("%s %s\n", SuccessStyle.Render("✓"), db)
			case summary.Found:
				corrupt = append(corrupt, db)
				fmt.Printf("%s %s: %d allocation errors, %d consistency errors\n",
					ErrorStyle.Render("✗"), db, summary.AllocationErrors, summary.ConsistencyErrors)
			default:
				corrupt = append(corrupt, db)
				fmt.Printf("%s %s: %d integrity errors (no summary reported)\n",
					ErrorStyle.Render("✗"), db, errorRows)
			}
		}

		if len(failed) > 0 {
			fmt.Println(WarningStyle.Render(fmt.Sprintf("%d database(s) could not be checked", len(failed))))
		}
		if len(corrupt) > 0 {
			return &ExitError{Code: 1, Err: fmt.Errorf("integrity errors found in %d database(s)", len(corrupt))}
		}
		if len(failed) == len(databases) {
			return &ExitError{Code: 1, Err: fmt.Errorf("no database could be checked")}
		}
		return nil
	})
}

// reportsCorruption decides whether a finished check found integrity
// errors. The summary message is authoritative; when the server did not
// produce a parseable summary, any error-level result row counts.
func reportsCorruption(summary dbcc.Summary, errorRows int) bool {
	if summary.Found {
		return !summary.Clean()
	}
	return errorRows > 0
}

// checkOneDatabase runs a single DBCC CHECKDB, prints error rows, and
// returns the parsed summary plus the number of error-level rows.
func checkOneDatabase(ctx context.Context, conn *instance.Conn, db string, opts dbcc.Options) (dbcc.Summary, int, error) {
	stmt := opts.Statement(db)
	log.Debug("running", "statement", stmt)

	rows, err := conn.DB.QueryContext(ctx, stmt)
	if err != nil {
		return dbcc.Summary{}, 0, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return dbcc.Summary{}, 0, fmt.Errorf("read result columns: %w", err)
	}

	vals := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range vals {
		ptrs[i] = &vals[i]
	}

	var messages []string
	var failures []dbcc.CheckResult
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return dbcc.Summary{}, 0, fmt.Errorf("scan result row: %w", err)
		}
		r := dbcc.Normalize(columns, vals)
		messages = append(messages, r.MessageText)
		if r.IsFailure() {
			failures = append(failures, r)
		}
	}
	if err := rows.Err(); err != nil {
		return dbcc.Summary{}, 0, err
	}

	if len(failures) > 0 {
		rs := &instance.ResultSet{
			Columns: []string{"Error", "Level", "State", "Object", "Index", "Page", "RepairLevel", "Message"},
		}
		for _, f := range failures {
			rs.Rows = append(rs.Rows, []string{
				fmt.Sprint(f.Error), fmt.Sprint(f.Level), fmt.Sprint(f.State),
				fmt.Sprint(f.ObjectID), fmt.Sprint(f.IndexID),
				fmt.Sprintf("(%d:%d)", f.File, f.Page),
				f.RepairLevel, f.MessageText,
			})
		}
		if err := printResultSet(rs); err != nil {
			return dbcc.Summary{}, 0, err
		}
	}

	return dbcc.ParseSummary(messages), len(failures), nil
}
