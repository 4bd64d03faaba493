// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"database/sql"
	"fmt"

	"mssqlops-cli/internal/instance"
	"mssqlops-cli/internal/issue"
	"mssqlops-cli/internal/scripting"

	"github.com/spf13/cobra"
)

var roleCmd = &cobra.Command{
	Use:   "role",
	Short: "Manage server roles and their members",
}

var roleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List server roles",
	Args:  cobra.NoArgs,
	RunE:  runRoleList,
}

var roleMembersCmd = &cobra.Command{
	Use:   "members <role>",
	Short: "List the members of a server role",
	Args:  cobra.ExactArgs(1),
	RunE:  runRoleMembers,
}

var roleAddMemberCmd = &cobra.Command{
	Use:   "add-member <role> <login>",
	Short: "Add a login to a server role",
	Args:  cobra.ExactArgs(2),
	RunE:  runRoleAddMember,
}

var roleDropMemberCmd = &cobra.Command{
	Use:   "drop-member <role> <login>",
	Short: "Remove a login from a server role",
	Args:  cobra.ExactArgs(2),
	RunE:  runRoleDropMember,
}

var roleCreateCmd = &cobra.Command{
	Use:   "create <role>",
	Short: "Create a user-defined server role",
	Args:  cobra.ExactArgs(1),
	RunE:  runRoleCreate,
}

var roleDropCmd = &cobra.Command{
	Use:   "drop <role>",
	Short: "Drop a user-defined server role",
	Args:  cobra.ExactArgs(1),
	RunE:  runRoleDrop,
}

func init() {
	roleCmd.AddCommand(roleListCmd)
	roleCmd.AddCommand(roleMembersCmd)
	roleCmd.AddCommand(roleAddMemberCmd)
	roleCmd.AddCommand(roleDropMemberCmd)
	roleCmd.AddCommand(roleCreateCmd)
	roleCmd.AddCommand(roleDropCmd)
}

const roleListQuery = `SELECT
	r.name,
	CASE WHEN r.is_fixed_role = 1 THEN 'fixed' ELSE 'user-defined' END AS kind,
	ISNULL(o.name, '') AS owner,
	r.create_date,
	r.modify_date
FROM sys.server_principals r
LEFT JOIN sys.server_principals o ON o.principal_id = r.owning_principal_id
WHERE r.type = 'R'
ORDER BY r.is_fixed_role DESC, r.name`

func runRoleList(cmd *cobra.Command, args []string) error {
	return withConn(func(ctx context.Context, conn *instance.Conn) error {
		rows, err := conn.DB.QueryContext(ctx, roleListQuery)
		if err != nil {
			return issue.WrapWithContext(err, "query server roles", conn.Target.Addr())
		}
		defer rows.Close()

		rs, err := instance.Collect(rows)
		if err != nil {
			return issue.WrapWithOperation(err, "read role rows")
		}
		return printResultSet(rs)
	})
}

const roleMembersQuery = `SELECT
	m.name,
	m.type_desc,
	m.is_disabled,
	m.create_date
FROM sys.server_role_members rm
JOIN sys.server_principals r ON r.principal_id = rm.role_principal_id
JOIN sys.server_principals m ON m.principal_id = rm.member_principal_id
WHERE r.name = @role
ORDER BY m.name`

func runRoleMembers(cmd *cobra.Command, args []string) error {
	role := args[0]
	return withConn(func(ctx context.Context, conn *instance.Conn) error {
		if err := requireRole(ctx, conn.DB, role, false); err != nil {
			return err
		}
		rows, err := conn.DB.QueryContext(ctx, roleMembersQuery, sql.Named("role", role))
		if err != nil {
			return issue.WrapWithContext(err, "query role members", role)
		}
		defer rows.Close()

		rs, err := instance.Collect(rows)
		if err != nil {
			return issue.WrapWithOperation(err, "read member rows")
		}
		return printResultSet(rs)
	})
}

// requireRole verifies the role exists, and optionally that it is not a
// fixed role (fixed roles cannot be created or dropped).
func requireRole(ctx context.Context, db *sql.DB, role string, rejectFixed bool) error {
	var fixed bool
	row := db.QueryRowContext(ctx,
		"SELECT is_fixed_role FROM sys.server_principals WHERE type = 'R' AND name = @role",
		sql.Named("role", role))
	if err := row.Scan(&fixed); err != nil {
		if err == sql.ErrNoRows {
			return issue.NewErrorContext().
				WithOperation("look up server role").
				WithResource(role).
				WithSuggestion("Run 'mssqlops role list' to see all roles").
				Wrap(err).
				BuildError()
		}
		return issue.WrapWithContext(err, "look up server role", role)
	}
	if rejectFixed && fixed {
		return fmt.Errorf("role %q is a fixed server role and cannot be changed", role)
	}
	return nil
}

func runRoleAddMember(cmd *cobra.Command, args []string) error {
	role, login := args[0], args[1]
	return withConn(func(ctx context.Context, conn *instance.Conn) error {
		if err := requireRole(ctx, conn.DB, role, false); err != nil {
			return err
		}
		// Role and member are identifiers, so they cannot be parameterized.
		stmt := fmt.Sprintf("ALTER SERVER ROLE %s ADD MEMBER %s",
			scripting.QuoteName(role), scripting.QuoteName(login))
		if _, err := conn.DB.ExecContext(ctx, stmt); err != nil {
			return issue.WrapWithContext(err, "add role member", fmt.Sprintf("%s -> %s", login, role))
		}
		fmt.Printf("%s added %s to %s\n", SuccessStyle.Render("✓"), StmtStyle.Render(login), StmtStyle.Render(role))
		return nil
	})
}

func runRoleDropMember(cmd *cobra.Command, args []string) error {
	role, login := args[0], args[1]
	return withConn(func(ctx context.Context, conn *instance.Conn) error {
		if err := requireRole(ctx, conn.DB, role, false); err != nil {
			return err
		}
		stmt := fmt.Sprintf("ALTER SERVER ROLE %s DROP MEMBER %s",
			scripting.QuoteName(role), scripting.QuoteName(login))
		if _, err := conn.DB.ExecContext(ctx, stmt); err != nil {
			return issue.WrapWithContext(err, "drop role member", fmt.Sprintf("%s -> %s", login, role))
		}
		fmt.Printf("%s removed %s from %s\n", SuccessStyle.Render("✓"), StmtStyle.Render(login), StmtStyle.Render(role))
		return nil
	})
}

func runRoleCreate(cmd *cobra.Command, args []string) error {
	role := args[0]
	return withConn(func(ctx context.Context, conn *instance.Conn) error {
		stmt := "CREATE SERVER ROLE " + scripting.QuoteName(role)
		if _, err := conn.DB.ExecContext(ctx, stmt); err != nil {
			return issue.WrapWithContext(err, "create server role", role)
		}
		fmt.Printf("%s created server role %s\n", SuccessStyle.Render("✓"), StmtStyle.Render(role))
		return nil
	})
}

func runRoleDrop(cmd *cobra.Command, args []string) error {
	role := args[0]
	return withConn(func(ctx context.Context, conn *instance.Conn) error {
		if err := requireRole(ctx, conn.DB, role, true); err != nil {
			return err
		}
		stmt := "DROP SERVER ROLE " + scripting.QuoteName(role)
		if _, err := conn.DB.ExecContext(ctx, stmt); err != nil {
			return issue.WrapWithContext(err, "drop server role", role)
		}
		fmt.Printf("%s dropped server role %s\n", SuccessStyle.Render("✓"), StmtStyle.Render(role))
		return nil
	})
}
