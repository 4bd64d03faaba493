// SPDX-License-Identifier: MPL-2.0

package scripting

import (
	"context"
	"fmt"

	"mssqlops-cli/internal/instance"
)

const configsQuery = `SELECT name, CONVERT(bigint, value), is_advanced
FROM sys.configurations
ORDER BY name`

// scriptConfigs emits an sp_configure replay script for every option.
// Advanced options are grouped behind a temporary 'show advanced
// options' toggle so the script runs as-is on a fresh server.
func scriptConfigs(ctx context.Context, conn *instance.Conn) (string, error) {
	rows, err := conn.DB.QueryContext(ctx, configsQuery)
	if err != nil {
		return "", fmt.Errorf("query sys.configurations: %w", err)
	}
	defer rows.Close()

	var basic, advanced string
	for rows.Next() {
		var name string
		var value int64
		var isAdvanced bool
		if err := rows.Scan(&name, &value, &isAdvanced); err != nil {
			return "", fmt.Errorf("scan configuration row: %w", err)
		}
		if name == "show advanced options" {
			continue
		}
		line := fmt.Sprintf("EXEC sys.sp_configure %s, %d;\n", QuoteLiteral(name), value)
		if isAdvanced {
			advanced += line
		} else {
			basic += line
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	out := basic
	if advanced != "" {
		out += "EXEC sys.sp_configure N'show advanced options', 1;\nRECONFIGURE;\nGO\n"
		out += advanced
		out += "EXEC sys.sp_configure N'show advanced options', 0;\n"
	}
	out += "RECONFIGURE;\nGO\n"
	return out, nil
}
