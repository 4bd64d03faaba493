// SPDX-License-Identifier: MPL-2.0

package instance

import (
	"database/sql"
	"fmt"
	"time"
)

// ResultSet is a fully materialized query result, ready for table, CSV,
// or JSON rendering. All values are formatted as strings; NULL becomes
// an empty string.
type ResultSet struct {
	Columns []string
	Rows    [][]string
}

// Collect drains rows into a ResultSet. The caller still owns rows and
// should defer rows.Close().
func Collect(rows *sql.Rows) (*ResultSet, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	rs := &ResultSet{Columns: cols}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out := make([]string, len(cols))
		for i, v := range vals {
			out[i] = FormatValue(v)
		}
		rs.Rows = append(rs.Rows, out)
	}
	return rs, rows.Err()
}

// FormatValue renders a driver value for display.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", val)
	}
}
