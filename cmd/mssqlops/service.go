// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"

	"mssqlops-cli/internal/instance"
	"mssqlops-cli/internal/issue"

	"github.com/spf13/cobra"
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Enumerate SQL Server services",
}

var serviceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List services via sys.dm_server_services",
	Long: `Enumerate the SQL Server, Agent, and full-text services the
instance knows about, with startup type, status, and service account.

Instant file initialization is reported where the server exposes the
column (2016 SP1 and newer); older versions show 'n/a'.`,
	Args: cobra.NoArgs,
	RunE: runServiceList,
}

func init() {
	serviceCmd.AddCommand(serviceListCmd)
}

// ifiColumnQuery checks whether the server's sys.dm_server_services
// has the instant_file_initialization_enabled column. It was added in
// 2016 SP1, so the major version alone cannot decide (2016 RTM is
// major 13 without it).
const ifiColumnQuery = `SELECT COUNT(*)
FROM sys.all_columns
WHERE object_id = OBJECT_ID(N'sys.dm_server_services')
  AND name = N'instant_file_initialization_enabled'`

// serviceListQuery returns the enumeration query. Servers without the
// instant file initialization column report 'n/a' for it.
func serviceListQuery(hasIFIColumn bool) string {
	ifi := "'n/a' AS instant_file_initialization"
	if hasIFIColumn {
		ifi = "ISNULL(instant_file_initialization_enabled, 'N') AS instant_file_initialization"
	}
	return `SELECT
	servicename,
	startup_type_desc,
	status_desc,
	service_account,
	is_clustered,
	ISNULL(cluster_nodename, '') AS cluster_nodename,
	` + ifi + `
FROM sys.dm_server_services
ORDER BY servicename`
}

func runServiceList(cmd *cobra.Command, args []string) error {
	return withConn(func(ctx context.Context, conn *instance.Conn) error {
		var ifiColumns int
		if err := conn.DB.QueryRowContext(ctx, ifiColumnQuery).Scan(&ifiColumns); err != nil {
			return issue.WrapWithContext(err, "probe service columns", conn.Target.Addr())
		}

		rows, err := conn.DB.QueryContext(ctx, serviceListQuery(ifiColumns > 0))
		if err != nil {
			return issue.WrapWithContext(err, "query sys.dm_server_services", conn.Target.Addr())
		}
		defer rows.Close()

		rs, err := instance.Collect(rows)
		if err != nil {
			return issue.WrapWithOperation(err, "read service rows")
		}
		return printResultSet(rs)
	})
}
