// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"mssqlops-cli/internal/instance"
	"mssqlops-cli/internal/issue"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var flagNoReconfigure bool

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Read and change sp_configure options",
}

var configureGetCmd = &cobra.Command{
	Use:   "get [option]",
	Short: "List sp_configure options or show one",
	Long: `List all sys.configurations rows, or a single option by exact name.

Shows the configured value, the value in use, the valid range, and
whether the option is dynamic (takes effect without restart) or
advanced (requires 'show advanced options').`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigureGet,
}

var configureSetCmd = &cobra.Command{
	Use:   "set <option> <value>",
	Short: "Change an sp_configure option",
	Long: `Run sp_configure for one option and RECONFIGURE the server.

The value is validated against the option's minimum/maximum before
anything is sent. When the option is advanced and 'show advanced
options' is off, it is enabled for the call and restored afterwards.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigureSet,
}

func init() {
	configureCmd.AddCommand(configureGetCmd)
	configureCmd.AddCommand(configureSetCmd)

	configureSetCmd.Flags().BoolVar(&flagNoReconfigure, "no-reconfigure", false, "skip RECONFIGURE; the value stays pending")
}

const configurationsQuery = `SELECT
	name,
	CONVERT(bigint, value) AS value,
	CONVERT(bigint, value_in_use) AS value_in_use,
	CONVERT(bigint, minimum) AS minimum,
	CONVERT(bigint, maximum) AS maximum,
	is_dynamic,
	is_advanced
FROM sys.configurations`

// configOption mirrors one sys.configurations row.
type configOption struct {
	Name       string
	Value      int64
	ValueInUse int64
	Minimum    int64
	Maximum    int64
	IsDynamic  bool
	IsAdvanced bool
}

func runConfigureGet(cmd *cobra.Command, args []string) error {
	return withConn(func(ctx context.Context, conn *instance.Conn) error {
		query := configurationsQuery + " ORDER BY name"
		var rows *sql.Rows
		var err error
		if len(args) == 1 {
			query = configurationsQuery + " WHERE name = @name"
			rows, err = conn.DB.QueryContext(ctx, query, sql.Named("name", args[0]))
		} else {
			rows, err = conn.DB.QueryContext(ctx, query)
		}
		if err != nil {
			return issue.WrapWithContext(err, "query sys.configurations", conn.Target.Addr())
		}
		defer rows.Close()

		rs, err := instance.Collect(rows)
		if err != nil {
			return issue.WrapWithOperation(err, "read configuration rows")
		}
		if len(args) == 1 && len(rs.Rows) == 0 {
			return issue.NewErrorContext().
				WithOperation("look up configuration option").
				WithResource(args[0]).
				WithSuggestion("Run 'mssqlops configure get' to list all option names").
				Wrap(sql.ErrNoRows).
				BuildError()
		}
		return printResultSet(rs)
	})
}

func lookupOption(ctx context.Context, db *sql.DB, name string) (configOption, error) {
	var opt configOption
	row := db.QueryRowContext(ctx, configurationsQuery+" WHERE name = @name", sql.Named("name", name))
	err := row.Scan(&opt.Name, &opt.Value, &opt.ValueInUse, &opt.Minimum, &opt.Maximum,
		&opt.IsDynamic, &opt.IsAdvanced)
	return opt, err
}

// validateOptionValue bounds-checks a requested value client-side.
func validateOptionValue(opt configOption, value int64) error {
	if value < opt.Minimum || value > opt.Maximum {
		return fmt.Errorf("value %d for %q out of range %d..%d", value, opt.Name, opt.Minimum, opt.Maximum)
	}
	return nil
}

// setPlan lays out the statements issued around one sp_configure call.
type setPlan struct {
	// EnableAdvanced flips 'show advanced options' on before the call.
	EnableAdvanced bool
	// Reconfigure runs RECONFIGURE after the target option.
	Reconfigure bool
	// RestoreAdvanced flips 'show advanced options' back off afterwards.
	RestoreAdvanced bool
	// RestoreReconfigure runs RECONFIGURE after the restore. RECONFIGURE
	// applies every pending value server-wide, so this must stay off
	// when the target value is meant to remain pending.
	RestoreReconfigure bool
}

func planConfigureSet(optAdvanced, advancedOn, noReconfigure bool) setPlan {
	p := setPlan{Reconfigure: !noReconfigure}
	if optAdvanced && !advancedOn {
		p.EnableAdvanced = true
		p.RestoreAdvanced = true
		p.RestoreReconfigure = !noReconfigure
	}
	return p
}

func runConfigureSet(cmd *cobra.Command, args []string) error {
	name := args[0]
	value, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("value %q is not an integer", args[1])
	}

	return withConn(func(ctx context.Context, conn *instance.Conn) error {
		opt, err := lookupOption(ctx, conn.DB, name)
		if errors.Is(err, sql.ErrNoRows) {
			return issue.NewErrorContext().
				WithOperation("look up configuration option").
				WithResource(name).
				WithSuggestion("Run 'mssqlops configure get' to list all option names").
				Wrap(err).
				BuildError()
		}
		if err != nil {
			return issue.WrapWithContext(err, "look up configuration option", name)
		}
		if err := validateOptionValue(opt, value); err != nil {
			return err
		}

		// Advanced options need 'show advanced options' while being set.
		advancedOn := true
		if opt.IsAdvanced {
			adv, err := lookupOption(ctx, conn.DB, "show advanced options")
			if err != nil {
				return issue.WrapWithOperation(err, "read 'show advanced options'")
			}
			advancedOn = adv.ValueInUse != 0
		}

		plan := planConfigureSet(opt.IsAdvanced, advancedOn, flagNoReconfigure)
		if plan.EnableAdvanced {
			log.Debug("enabling 'show advanced options' for the call")
			if err := execConfigure(ctx, conn.DB, "show advanced options", 1, true); err != nil {
				return err
			}
		}

		setErr := execConfigure(ctx, conn.DB, name, value, plan.Reconfigure)

		if plan.RestoreAdvanced {
			if err := execConfigure(ctx, conn.DB, "show advanced options", 0, plan.RestoreReconfigure); err != nil {
				log.Warn("could not restore 'show advanced options'", "err", err)
			}
		}
		if setErr != nil {
			return issue.WrapWithContext(setErr, "set configuration option", name)
		}

		switch {
		case flagNoReconfigure:
			fmt.Printf("%s %s = %d (pending, RECONFIGURE skipped)\n", WarningStyle.Render("~"), name, value)
		case opt.IsDynamic:
			fmt.Printf("%s %s = %d\n", SuccessStyle.Render("✓"), name, value)
		default:
			fmt.Printf("%s %s = %d (restart required to take effect)\n", SuccessStyle.Render("✓"), name, value)
		}
		return nil
	})
}

// execConfigure runs sp_configure for one option, optionally followed
// by RECONFIGURE.
func execConfigure(ctx context.Context, db *sql.DB, name string, value int64, reconfigure bool) error {
	if _, err := db.ExecContext(ctx, "EXEC sys.sp_configure @opt, @val",
		sql.Named("opt", name), sql.Named("val", value)); err != nil {
		return fmt.Errorf("sp_configure %q: %w", name, err)
	}
	if reconfigure {
		if _, err := db.ExecContext(ctx, "RECONFIGURE"); err != nil {
			return fmt.Errorf("RECONFIGURE after %q: %w", name, err)
		}
	}
	return nil
}
