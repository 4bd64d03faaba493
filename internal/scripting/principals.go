// SPDX-License-Identifier: MPL-2.0

package scripting

import (
	"context"
	"fmt"

	"mssqlops-cli/internal/instance"
)

const loginsQuery = `SELECT
	p.name,
	p.type,
	p.default_database_name,
	ISNULL(p.default_language_name, N''),
	p.is_disabled,
	ISNULL(CONVERT(varchar(514), l.password_hash, 1), ''),
	CONVERT(varchar(514), p.sid, 1),
	ISNULL(l.is_policy_checked, 0),
	ISNULL(l.is_expiration_checked, 0)
FROM sys.server_principals p
LEFT JOIN sys.sql_logins l ON l.principal_id = p.principal_id
WHERE p.type IN ('S', 'U', 'G')
  AND p.name NOT LIKE '##%'
  AND p.name <> N'sa'
ORDER BY p.name`

type loginRow struct {
	Name          string
	Type          string
	DefaultDB     string
	DefaultLang   string
	Disabled      bool
	PasswordHash  string
	SID           string
	PolicyChecked bool
	ExpireChecked bool
}

const loginTemplate = `IF NOT EXISTS (SELECT 1 FROM sys.server_principals WHERE name = {{qlit .Name}})
{{- if .IsSQL}}
CREATE LOGIN {{qname .Name}} WITH PASSWORD = {{.PasswordHash}} HASHED, SID = {{.SID}}, DEFAULT_DATABASE = {{qname .DefaultDB}}{{if .DefaultLang}}, DEFAULT_LANGUAGE = {{qname .DefaultLang}}{{end}}, CHECK_POLICY = {{if .PolicyChecked}}ON{{else}}OFF{{end}}, CHECK_EXPIRATION = {{if .ExpireChecked}}ON{{else}}OFF{{end}};
{{- else}}
CREATE LOGIN {{qname .Name}} FROM WINDOWS WITH DEFAULT_DATABASE = {{qname .DefaultDB}}{{if .DefaultLang}}, DEFAULT_LANGUAGE = {{qname .DefaultLang}}{{end}};
{{- end}}
{{- if .Disabled}}
ALTER LOGIN {{qname .Name}} DISABLE;
{{- end}}
GO
`

// IsSQL reports whether the login is a SQL login (as opposed to a
// Windows user or group).
func (l loginRow) IsSQL() bool { return l.Type == "S" }

// scriptLogins emits CREATE LOGIN statements. SQL logins are scripted
// with the original password hash and SID so they transfer without a
// password reset; 'sa' and internal ## logins are skipped.
func scriptLogins(ctx context.Context, conn *instance.Conn) (string, error) {
	rows, err := conn.DB.QueryContext(ctx, loginsQuery)
	if err != nil {
		return "", fmt.Errorf("query sys.server_principals: %w", err)
	}
	defer rows.Close()

	var out string
	for rows.Next() {
		var l loginRow
		if err := rows.Scan(&l.Name, &l.Type, &l.DefaultDB, &l.DefaultLang, &l.Disabled,
			&l.PasswordHash, &l.SID, &l.PolicyChecked, &l.ExpireChecked); err != nil {
			return "", fmt.Errorf("scan login row: %w", err)
		}
		stmt, err := render("login", loginTemplate, l)
		if err != nil {
			return "", err
		}
		out += stmt
	}
	return out, rows.Err()
}

const rolesQuery = `SELECT r.name, r.is_fixed_role,
	ISNULL(o.name, N'')
FROM sys.server_principals r
LEFT JOIN sys.server_principals o ON o.principal_id = r.owning_principal_id
WHERE r.type = 'R'
ORDER BY r.name`

const roleMembersQuery = `SELECT r.name, m.name
FROM sys.server_role_members rm
JOIN sys.server_principals r ON r.principal_id = rm.role_principal_id
JOIN sys.server_principals m ON m.principal_id = rm.member_principal_id
WHERE m.name NOT LIKE '##%'
ORDER BY r.name, m.name`

// scriptRoles emits CREATE SERVER ROLE for user-defined roles and
// ALTER SERVER ROLE ... ADD MEMBER for every membership, fixed roles
// included (the membership transfers even when the role itself is built in).
func scriptRoles(ctx context.Context, conn *instance.Conn) (string, error) {
	rows, err := conn.DB.QueryContext(ctx, rolesQuery)
	if err != nil {
		return "", fmt.Errorf("query server roles: %w", err)
	}
	defer rows.Close()

	var out string
	for rows.Next() {
		var name, owner string
		var fixed bool
		if err := rows.Scan(&name, &fixed, &owner); err != nil {
			return "", fmt.Errorf("scan role row: %w", err)
		}
		if fixed {
			continue
		}
		out += fmt.Sprintf("IF NOT EXISTS (SELECT 1 FROM sys.server_principals WHERE name = %s AND type = 'R')\nCREATE SERVER ROLE %s", QuoteLiteral(name), QuoteName(name))
		if owner != "" {
			out += " AUTHORIZATION " + QuoteName(owner)
		}
		out += ";\nGO\n"
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	members, err := conn.DB.QueryContext(ctx, roleMembersQuery)
	if err != nil {
		return "", fmt.Errorf("query role members: %w", err)
	}
	defer members.Close()

	for members.Next() {
		var role, member string
		if err := members.Scan(&role, &member); err != nil {
			return "", fmt.Errorf("scan role member row: %w", err)
		}
		out += fmt.Sprintf("ALTER SERVER ROLE %s ADD MEMBER %s;\nGO\n", QuoteName(role), QuoteName(member))
	}
	return out, members.Err()
}

const credentialsQuery = `SELECT name, credential_identity
FROM sys.credentials
ORDER BY name`

// scriptCredentials emits CREATE CREDENTIAL statements. Secrets cannot
// be read back from the server, so each statement carries a placeholder
// the operator has to fill in.
func scriptCredentials(ctx context.Context, conn *instance.Conn) (string, error) {
	rows, err := conn.DB.QueryContext(ctx, credentialsQuery)
	if err != nil {
		return "", fmt.Errorf("query sys.credentials: %w", err)
	}
	defer rows.Close()

	var out string
	for rows.Next() {
		var name, identity string
		if err := rows.Scan(&name, &identity); err != nil {
			return "", fmt.Errorf("scan credential row: %w", err)
		}
		out += fmt.Sprintf("-- Secret is not recoverable from the server; replace before running.\nCREATE CREDENTIAL %s WITH IDENTITY = %s, SECRET = '<secret>';\nGO\n",
			QuoteName(name), QuoteLiteral(identity))
	}
	return out, rows.Err()
}
