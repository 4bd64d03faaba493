// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"slices"
	"time"

	"mssqlops-cli/internal/instance"
	"mssqlops-cli/internal/issue"
	"mssqlops-cli/internal/scripting"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	exportOutputDir       string
	exportAppendTimestamp bool
	exportExclude         []string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Script server-level objects to .sql files",
	Long: `Generate T-SQL scripts for server-level objects and write them
under <output>/<instance>/<class>.sql.

Each object class is its own subcommand; 'export instance' runs all of
them in sequence, skipping classes that fail with a warning.`,
}

var exportInstanceCmd = &cobra.Command{
	Use:   "instance",
	Short: "Export every object class in sequence",
	Args:  cobra.NoArgs,
	RunE:  runExportInstance,
}

func init() {
	exportCmd.PersistentFlags().StringVar(&exportOutputDir, "output", "", "base output directory (default from config)")
	exportCmd.PersistentFlags().BoolVar(&exportAppendTimestamp, "append-timestamp", false, "suffix the instance directory with a UTC timestamp")

	exportInstanceCmd.Flags().StringSliceVar(&exportExclude, "exclude", nil, "object classes to skip (repeatable)")

	exportCmd.AddCommand(exportInstanceCmd)
	for _, class := range scripting.Classes() {
		exportCmd.AddCommand(newExportClassCmd(class))
	}
}

// newExportClassCmd builds the subcommand for one object class.
func newExportClassCmd(class scripting.Class) *cobra.Command {
	return &cobra.Command{
		Use:   class.Name,
		Short: "Export " + class.Description,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConn(func(ctx context.Context, conn *instance.Conn) error {
				w, dir, err := exportWriter(conn)
				if err != nil {
					return err
				}
				path, err := exportClass(ctx, conn, w, dir, class)
				if err != nil {
					return err
				}
				fmt.Printf("%s %s\n", SuccessStyle.Render("✓"), StmtStyle.Render(path))
				return nil
			})
		},
	}
}

// exportWriter builds the script writer from flags and config and
// creates the per-instance directory.
func exportWriter(conn *instance.Conn) (*scripting.Writer, string, error) {
	out := exportOutputDir
	if out == "" {
		out = cfg.Export.OutputDir
	}
	ts := exportAppendTimestamp || cfg.Export.AppendTimestamp

	w := scripting.NewWriter(out, ts)
	dir, err := w.InstanceDir(conn.Target.Name)
	if err != nil {
		return nil, "", err
	}
	return w, dir, nil
}

func exportClass(ctx context.Context, conn *instance.Conn, w *scripting.Writer, dir string, class scripting.Class) (string, error) {
	body, err := class.Script(ctx, conn)
	if err != nil {
		return "", issue.WrapWithContext(err, "script "+class.Description, conn.Target.Addr())
	}
	if body == "" {
		body = "-- No objects of this class on the instance.\n"
	}
	return w.Write(dir, class.Name, scripting.Header(conn, time.Now()), body)
}

func runExportInstance(cmd *cobra.Command, args []string) error {
	for _, name := range exportExclude {
		if _, ok := scripting.Lookup(name); !ok {
			return fmt.Errorf("unknown object class %q in --exclude", name)
		}
	}

	return withConn(func(ctx context.Context, conn *instance.Conn) error {
		w, dir, err := exportWriter(conn)
		if err != nil {
			return err
		}

		var done, failed int
		for _, class := range scripting.Classes() {
			if slices.Contains(exportExclude, class.Name) {
				log.Debug("skipping excluded class", "class", class.Name)
				continue
			}
			path, err := exportClass(ctx, conn, w, dir, class)
			if err != nil {
				// A failing class is a warning; the sequence continues.
				log.Warn("class export failed", "class", class.Name, "err", err)
				fmt.Printf("%s %s\n", ErrorStyle.Render("✗"), class.Name)
				failed++
				continue
			}
			fmt.Printf("%s %s\n", SuccessStyle.Render("✓"), StmtStyle.Render(path))
			done++
		}

		fmt.Printf("\n%d class(es) exported, %d failed\n", done, failed)
		if done == 0 && failed > 0 {
			return &ExitError{Code: 1, Err: fmt.Errorf("every object class failed to export")}
		}
		return nil
	})
}
