// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"mssqlops-cli/internal/instance"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// printResultSet renders a materialized result set in the format chosen
// by the --output-format flag.
func printResultSet(rs *instance.ResultSet) error {
	return renderResultSet(os.Stdout, rs, flagFormat)
}

func renderResultSet(w io.Writer, rs *instance.ResultSet, format string) error {
	switch format {
	case "table", "":
		return renderTable(w, rs)
	case "csv":
		return renderCSV(w, rs)
	case "json":
		return renderJSON(w, rs)
	default:
		return fmt.Errorf("unknown output format %q (valid: table, csv, json)", format)
	}
}

func renderTable(w io.Writer, rs *instance.ResultSet) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(SubtitleStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerRowStyle.Padding(0, 1)
			}
			return cellStyle
		}).
		Headers(rs.Columns...)
	for _, row := range rs.Rows {
		t.Row(row...)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func renderCSV(w io.Writer, rs *instance.ResultSet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(rs.Columns); err != nil {
		return err
	}
	for _, row := range rs.Rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func renderJSON(w io.Writer, rs *instance.ResultSet) error {
	records := make([]map[string]string, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		rec := make(map[string]string, len(rs.Columns))
		for i, col := range rs.Columns {
			if i < len(row) {
				rec[col] = row[i]
			}
		}
		records = append(records, rec)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}
