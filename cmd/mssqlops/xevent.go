// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"

	"mssqlops-cli/internal/instance"
	"mssqlops-cli/internal/issue"

	"github.com/spf13/cobra"
)

var xeventCmd = &cobra.Command{
	Use:   "xevent",
	Short: "Inspect extended events sessions",
}

var xeventListCmd = &cobra.Command{
	Use:   "list",
	Short: "List defined and running extended events sessions",
	Long: `List every session defined in sys.server_event_sessions, joined
against sys.dm_xe_sessions to show which ones are currently running.`,
	Args: cobra.NoArgs,
	RunE: runXeventList,
}

func init() {
	xeventCmd.AddCommand(xeventListCmd)
}

const xeventListQuery = `SELECT
	s.name,
	CASE WHEN r.name IS NULL THEN 'stopped' ELSE 'running' END AS state,
	CASE WHEN s.startup_state = 1 THEN 'auto' ELSE 'manual' END AS startup,
	ISNULL(CONVERT(varchar(30), r.create_time, 126), '') AS running_since
FROM sys.server_event_sessions s
LEFT JOIN sys.dm_xe_sessions r ON r.name = s.name
ORDER BY s.name`

func runXeventList(cmd *cobra.Command, args []string) error {
	return withConn(func(ctx context.Context, conn *instance.Conn) error {
		rows, err := conn.DB.QueryContext(ctx, xeventListQuery)
		if err != nil {
			return issue.WrapWithContext(err, "query extended events sessions", conn.Target.Addr())
		}
		defer rows.Close()

		rs, err := instance.Collect(rows)
		if err != nil {
			return issue.WrapWithOperation(err, "read session rows")
		}
		return printResultSet(rs)
	})
}
