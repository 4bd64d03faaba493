// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"

	"mssqlops-cli/internal/instance"
	"mssqlops-cli/internal/issue"

	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect server audits",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List server audits and their targets",
	Args:  cobra.NoArgs,
	RunE:  runAuditList,
}

func init() {
	auditCmd.AddCommand(auditListCmd)
}

const auditListQuery = `SELECT
	a.name,
	a.type_desc,
	CASE WHEN a.is_state_enabled = 1 THEN 'enabled' ELSE 'disabled' END AS state,
	a.on_failure_desc,
	a.queue_delay,
	ISNULL(f.log_file_path, '') AS file_path,
	ISNULL(f.max_rollover_files, 0) AS max_rollover_files
FROM sys.server_audits a
LEFT JOIN sys.server_file_audits f ON f.audit_id = a.audit_id
ORDER BY a.name`

func runAuditList(cmd *cobra.Command, args []string) error {
	return withConn(func(ctx context.Context, conn *instance.Conn) error {
		rows, err := conn.DB.QueryContext(ctx, auditListQuery)
		if err != nil {
			return issue.WrapWithContext(err, "query sys.server_audits", conn.Target.Addr())
		}
		defer rows.Close()

		rs, err := instance.Collect(rows)
		if err != nil {
			return issue.WrapWithOperation(err, "read audit rows")
		}
		return printResultSet(rs)
	})
}
